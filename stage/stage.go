// Package stage holds an in-memory scene description: a hierarchy of typed
// prims with attributes, relationships, transform ops, and material bindings.
//
// It models the slice of scene-graph semantics the dolly loggers depend on -
// composition of xformOps into local transforms, purpose and visibility
// tokens, instanceable references, and geometric schemas - without any file
// format parsing beyond its own YAML set files.
//
// Example usage:
//
//	st := stage.NewStage()
//	world, _ := st.Define("/World", stage.TypeXform)
//	crate, _ := st.Define("/World/Crate", stage.TypeCube)
//	crate.SetTranslate(0, 0, 1)
//
//	st.Walk(func(path stage.Path, prim *stage.Prim) bool {
//	    fmt.Println(path, prim.TypeName())
//	    return stage.Continue
//	})
package stage

import (
	"fmt"
)

// Walk control values, returned by visit callbacks.
const (
	Continue = true
	Break    = false
)

// Stage is a complete scene description rooted at "/".
type Stage struct {
	root          *Prim
	upAxis        string
	metersPerUnit float64
	rootDir       string
}

// NewStage creates an empty stage with Z up and meters-per-unit 1.
func NewStage() *Stage {
	st := &Stage{
		upAxis:        "Z",
		metersPerUnit: 1.0,
	}
	st.root = newPrim(st, RootPath, "", nil)
	return st
}

// Root returns the pseudo-root prim.
func (s *Stage) Root() *Prim { return s.root }

// UpAxis returns the stage up axis, "Y" or "Z".
func (s *Stage) UpAxis() string { return s.upAxis }

// SetUpAxis sets the stage up axis. Only "Y" and "Z" are valid.
func (s *Stage) SetUpAxis(axis string) error {
	if axis != "Y" && axis != "Z" {
		return fmt.Errorf("up axis must be Y or Z, got %q", axis)
	}
	s.upAxis = axis
	return nil
}

// MetersPerUnit returns the stage linear unit scale.
func (s *Stage) MetersPerUnit() float64 { return s.metersPerUnit }

// SetMetersPerUnit sets the stage linear unit scale.
func (s *Stage) SetMetersPerUnit(m float64) { s.metersPerUnit = m }

// RootDir returns the directory relative asset paths resolve against,
// typically the directory of the set file the stage was loaded from.
func (s *Stage) RootDir() string { return s.rootDir }

// SetRootDir sets the directory relative asset paths resolve against.
func (s *Stage) SetRootDir(dir string) { s.rootDir = dir }

// Define creates a prim at the given path, creating missing ancestors as
// untyped prims. Defining an existing untyped prim assigns the type; an
// existing prim with a conflicting type is an error.
func (s *Stage) Define(path Path, typeName string) (*Prim, error) {
	p, err := ParsePath(string(path))
	if err != nil {
		return nil, err
	}
	if p.IsRoot() {
		return nil, fmt.Errorf("cannot define the pseudo-root")
	}

	cur := s.root
	segs := p.Segments()
	for i, seg := range segs {
		child := cur.Child(seg)
		if child == nil {
			childPath := cur.path.AppendChild(seg)
			childType := ""
			if i == len(segs)-1 {
				childType = typeName
			}
			child = newPrim(s, childPath, childType, cur)
			cur.addChild(child)
		} else if i == len(segs)-1 && typeName != "" {
			if err := child.SetTypeName(typeName); err != nil {
				return nil, err
			}
		}
		cur = child
	}
	return cur, nil
}

// GetPrimAtPath returns the prim at the given path, or nil. Paths beneath an
// instanceable reference resolve through the referenced prototype, so
// instance-proxy paths reported by traversal can be looked up directly.
func (s *Stage) GetPrimAtPath(path Path) *Prim {
	if path.IsRoot() {
		return s.root
	}
	cur := s.root
	for _, seg := range path.Segments() {
		next := s.resolveChild(cur, seg, nil)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// resolveChild finds a direct child by name, following the reference chain
// when the prim has none of its own. seen cuts reference cycles.
func (s *Stage) resolveChild(p *Prim, name string, seen []Path) *Prim {
	if c := p.Child(name); c != nil {
		return c
	}
	target, ok := p.Reference()
	if !ok || containsPath(seen, target) {
		return nil
	}
	proto := s.GetPrimAtPath(target)
	if proto == nil {
		return nil
	}
	return s.resolveChild(proto, name, append(seen, target))
}

// RemovePrim removes the prim at path and its whole subtree. It reports
// whether anything was removed.
func (s *Stage) RemovePrim(path Path) bool {
	if path.IsRoot() {
		return false
	}
	parent := s.GetPrimAtPath(path.Parent())
	if parent == nil {
		return false
	}
	return parent.removeChild(path.Name())
}

// Walk visits every prim below the pseudo-root in depth-first definition
// order, instance proxies included: a prim with a reference has the
// referenced subtree visited under the prim's own path. Abstract prims are
// skipped along with their subtrees. The visit callback receives the
// traversal path, which differs from prim.Path() for proxies. Returning
// Break stops the walk.
func (s *Stage) Walk(visit func(path Path, prim *Prim) bool) {
	s.walkChildren(s.root, s.root.path, visit, nil)
}

// walkChildren visits the subtree below prim, remapping paths under base.
// expanding tracks reference targets on the current chain to cut cycles.
func (s *Stage) walkChildren(prim *Prim, base Path, visit func(Path, *Prim) bool, expanding []Path) bool {
	for _, child := range prim.Children() {
		if child.IsAbstract() {
			continue
		}
		childPath := base.AppendChild(child.Name())
		if !visit(childPath, child) {
			return false
		}
		if !s.walkChildren(child, childPath, visit, expanding) {
			return false
		}
		if target, ok := child.Reference(); ok {
			if !s.expandReference(target, childPath, visit, expanding) {
				return false
			}
		}
	}
	return true
}

// expandReference walks a referenced prototype's subtree under base,
// following chained references on the prototype itself.
func (s *Stage) expandReference(target Path, base Path, visit func(Path, *Prim) bool, expanding []Path) bool {
	if containsPath(expanding, target) {
		return true
	}
	proto := s.GetPrimAtPath(target)
	if proto == nil {
		return true
	}
	expanding = append(expanding, target)
	if !s.walkChildren(proto, base, visit, expanding) {
		return false
	}
	if next, ok := proto.Reference(); ok {
		return s.expandReference(next, base, visit, expanding)
	}
	return true
}

func containsPath(paths []Path, p Path) bool {
	for _, q := range paths {
		if q == p {
			return true
		}
	}
	return false
}
