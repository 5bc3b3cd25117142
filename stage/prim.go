package stage

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Well-known prim type names.
const (
	TypeXform    = "Xform"
	TypeScope    = "Scope"
	TypeMesh     = "Mesh"
	TypeCube     = "Cube"
	TypeSphere   = "Sphere"
	TypeCamera   = "Camera"
	TypeMaterial = "Material"
	TypeShader   = "Shader"
)

// Purpose tokens. Purpose is read from the prim's own "purpose" attribute;
// ancestors are not consulted.
const (
	PurposeDefault = "default"
	PurposeRender  = "render"
	PurposeProxy   = "proxy"
	PurposeGuide   = "guide"
)

// Visibility tokens.
const (
	VisibilityInherited = "inherited"
	VisibilityInvisible = "invisible"
)

// Well-known attribute and relationship names.
const (
	AttrPurpose     = "purpose"
	AttrVisibility  = "visibility"
	AttrDisplayName = "displayName"

	RelMaterialBinding = "material:binding"
)

// Attribute is a named value on a prim. Values are plain Go types chosen by
// the author; the typed accessors on Prim perform the conversions the loggers
// rely on.
type Attribute struct {
	Name  string
	Value interface{}
}

// Prim is a node in the stage hierarchy: a type name, attributes,
// relationships, metadata, and children in definition order.
type Prim struct {
	stage    *Stage
	path     Path
	typeName string
	parent   *Prim
	children []*Prim
	byName   map[string]*Prim

	attrs map[string]*Attribute
	rels  map[string][]Path

	instanceable bool
	abstract     bool
	reference    Path
	apiSchemas   []string
	kind         string
}

func newPrim(st *Stage, path Path, typeName string, parent *Prim) *Prim {
	return &Prim{
		stage:    st,
		path:     path,
		typeName: typeName,
		parent:   parent,
		byName:   make(map[string]*Prim),
		attrs:    make(map[string]*Attribute),
		rels:     make(map[string][]Path),
	}
}

// Path returns the prim's path on the stage. Instance proxies are visited
// under remapped paths during traversal; this always returns the defining
// prim's own path.
func (p *Prim) Path() Path { return p.path }

// Name returns the prim's name (the final path segment).
func (p *Prim) Name() string { return p.path.Name() }

// TypeName returns the prim's schema type name, or "" for untyped prims.
func (p *Prim) TypeName() string { return p.typeName }

// SetTypeName assigns a type to an untyped prim. Retyping is an error.
func (p *Prim) SetTypeName(typeName string) error {
	if p.typeName != "" && p.typeName != typeName {
		return fmt.Errorf("prim %s already has type %s", p.path, p.typeName)
	}
	p.typeName = typeName
	return nil
}

// IsA reports whether the prim has the given type name.
func (p *Prim) IsA(typeName string) bool { return p.typeName == typeName }

// IsXformable reports whether the prim type carries local transform ops.
func (p *Prim) IsXformable() bool {
	switch p.typeName {
	case TypeXform, TypeMesh, TypeCube, TypeSphere, TypeCamera:
		return true
	}
	return false
}

// IsGprim reports whether the prim is a geometric primitive the loggers know
// how to extract.
func (p *Prim) IsGprim() bool {
	switch p.typeName {
	case TypeMesh, TypeCube, TypeSphere:
		return true
	}
	return false
}

// Parent returns the parent prim, or nil for the pseudo-root.
func (p *Prim) Parent() *Prim { return p.parent }

// Children returns the prim's children in definition order. The returned
// slice is the prim's own; callers must not mutate it.
func (p *Prim) Children() []*Prim { return p.children }

// Child returns the direct child with the given name, or nil.
func (p *Prim) Child(name string) *Prim { return p.byName[name] }

// Stage returns the stage this prim belongs to.
func (p *Prim) Stage() *Stage { return p.stage }

// CreateAttribute sets an attribute value, replacing any previous value.
func (p *Prim) CreateAttribute(name string, value interface{}) *Attribute {
	attr := &Attribute{Name: name, Value: value}
	p.attrs[name] = attr
	return attr
}

// GetAttribute returns the named attribute if it exists.
func (p *Prim) GetAttribute(name string) (*Attribute, bool) {
	attr, ok := p.attrs[name]
	return attr, ok
}

// HasAttribute reports whether the named attribute exists.
func (p *Prim) HasAttribute(name string) bool {
	_, ok := p.attrs[name]
	return ok
}

// SetRelationship sets the targets of a named relationship.
func (p *Prim) SetRelationship(name string, targets ...Path) {
	p.rels[name] = append([]Path(nil), targets...)
}

// Relationship returns the targets of a named relationship.
func (p *Prim) Relationship(name string) ([]Path, bool) {
	targets, ok := p.rels[name]
	return targets, ok
}

// FirstTarget returns the first target of a relationship, if any.
func (p *Prim) FirstTarget(name string) (Path, bool) {
	targets, ok := p.rels[name]
	if !ok || len(targets) == 0 {
		return "", false
	}
	return targets[0], true
}

// SetInstanceable marks the prim as an instance of its reference target.
func (p *Prim) SetInstanceable(v bool) { p.instanceable = v }

// Instanceable reports whether the prim is an instance of its reference.
func (p *Prim) Instanceable() bool { return p.instanceable }

// SetAbstract marks the prim as a class prototype. Abstract prims and their
// subtrees are excluded from traversal but remain addressable by path, so
// references can target them.
func (p *Prim) SetAbstract(v bool) { p.abstract = v }

// IsAbstract reports whether the prim is a class prototype.
func (p *Prim) IsAbstract() bool { return p.abstract }

// SetReference points the prim at another prim whose subtree supplies its
// children. Combined with SetInstanceable(true) the subtree is traversed as
// instance proxies under this prim's path.
func (p *Prim) SetReference(target Path) { p.reference = target }

// Reference returns the reference target, if set.
func (p *Prim) Reference() (Path, bool) {
	if p.reference == "" {
		return "", false
	}
	return p.reference, true
}

// AddAPISchema applies a named API schema to the prim.
func (p *Prim) AddAPISchema(name string) {
	for _, s := range p.apiSchemas {
		if s == name {
			return
		}
	}
	p.apiSchemas = append(p.apiSchemas, name)
}

// HasAPI reports whether the named API schema is applied.
func (p *Prim) HasAPI(name string) bool {
	for _, s := range p.apiSchemas {
		if s == name {
			return true
		}
	}
	return false
}

// APISchemas returns the applied API schema names.
func (p *Prim) APISchemas() []string { return p.apiSchemas }

// SetKind sets the prim's kind metadata (e.g. "component", "group").
func (p *Prim) SetKind(kind string) { p.kind = kind }

// Kind returns the prim's kind metadata.
func (p *Prim) Kind() string { return p.kind }

// Purpose returns the prim's own purpose token, defaulting to "default".
func (p *Prim) Purpose() string {
	if tok, ok := p.Token(AttrPurpose); ok {
		return tok
	}
	return PurposeDefault
}

// Visibility returns the prim's own visibility token, defaulting to
// "inherited".
func (p *Prim) Visibility() string {
	if tok, ok := p.Token(AttrVisibility); ok {
		return tok
	}
	return VisibilityInherited
}

// Token returns a string-valued attribute.
func (p *Prim) Token(name string) (string, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return "", false
	}
	s, ok := attr.Value.(string)
	return s, ok
}

// Bool returns a bool-valued attribute.
func (p *Prim) Bool(name string) (bool, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return false, false
	}
	b, ok := attr.Value.(bool)
	return b, ok
}

// Float returns a numeric attribute as float64.
func (p *Prim) Float(name string) (float64, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return 0, false
	}
	switch v := attr.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Vec3 returns a 3-component float attribute.
func (p *Prim) Vec3(name string) ([3]float64, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return [3]float64{}, false
	}
	switch v := attr.Value.(type) {
	case [3]float64:
		return v, true
	case [3]float32:
		return [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}, true
	case []float64:
		if len(v) == 3 {
			return [3]float64{v[0], v[1], v[2]}, true
		}
	}
	return [3]float64{}, false
}

// Quat returns a 4-component float attribute stored (w, x, y, z).
func (p *Prim) Quat(name string) ([4]float64, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return [4]float64{}, false
	}
	switch v := attr.Value.(type) {
	case [4]float64:
		return v, true
	case []float64:
		if len(v) == 4 {
			return [4]float64{v[0], v[1], v[2], v[3]}, true
		}
	}
	return [4]float64{}, false
}

// Matrix returns a 4x4 matrix attribute.
func (p *Prim) Matrix(name string) (mgl64.Mat4, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return mgl64.Mat4{}, false
	}
	m, ok := attr.Value.(mgl64.Mat4)
	return m, ok
}

// Ints returns an int-array attribute.
func (p *Prim) Ints(name string) ([]int, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return nil, false
	}
	v, ok := attr.Value.([]int)
	return v, ok
}

// Strings returns a string-array attribute.
func (p *Prim) Strings(name string) ([]string, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return nil, false
	}
	v, ok := attr.Value.([]string)
	return v, ok
}

// Vec3fArray returns an array-of-3-float attribute (points, normals, colors).
func (p *Prim) Vec3fArray(name string) ([][3]float32, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return nil, false
	}
	v, ok := attr.Value.([][3]float32)
	return v, ok
}

// Vec2fArray returns an array-of-2-float attribute (texture coordinates).
func (p *Prim) Vec2fArray(name string) ([][2]float32, bool) {
	attr, ok := p.attrs[name]
	if !ok {
		return nil, false
	}
	v, ok := attr.Value.([][2]float32)
	return v, ok
}

// Asset returns an asset-path attribute as a string.
func (p *Prim) Asset(name string) (string, bool) {
	return p.Token(name)
}

func (p *Prim) addChild(c *Prim) {
	p.children = append(p.children, c)
	p.byName[c.Name()] = c
}

func (p *Prim) removeChild(name string) bool {
	c, ok := p.byName[name]
	if !ok {
		return false
	}
	delete(p.byName, name)
	for i, child := range p.children {
		if child == c {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	return true
}
