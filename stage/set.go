package stage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Set files are this package's own YAML scene description, used by tests,
// examples, and the CLI. A set file lists prims flat, in definition order:
//
//	stage:
//	  upAxis: Z
//	  metersPerUnit: 1.0
//	prims:
//	  - path: /World
//	    type: Xform
//	  - path: /World/Crate
//	    type: Cube
//	    material: /World/Looks/CrateMat
//	    attrs:
//	      size: 2.0
//	      xformOp:translate: [0, 0, 1]
//	      xformOpOrder: [xformOp:translate]
//
// Scalar attrs pass through as numbers, strings, or bools. Flat number lists
// become vectors by length (3, 4, or 16 for a column-major matrix); nested
// number lists become point/texcoord arrays by inner length. faceVertexCounts
// and faceVertexIndices become int slices.

type setFile struct {
	Stage setStageMeta `yaml:"stage"`
	Prims []setPrim    `yaml:"prims"`
}

type setStageMeta struct {
	UpAxis        string  `yaml:"upAxis"`
	MetersPerUnit float64 `yaml:"metersPerUnit"`
}

type setPrim struct {
	Path         string                 `yaml:"path"`
	Type         string                 `yaml:"type"`
	Purpose      string                 `yaml:"purpose"`
	Visibility   string                 `yaml:"visibility"`
	Instanceable bool                   `yaml:"instanceable"`
	Abstract     bool                   `yaml:"abstract"`
	APISchemas   []string               `yaml:"apiSchemas"`
	Kind         string                 `yaml:"kind"`
	Reference    string                 `yaml:"reference"`
	Material     string                 `yaml:"material"`
	Attrs        map[string]interface{} `yaml:"attrs"`
	Rels         map[string][]string    `yaml:"rels"`
}

// LoadSetFile reads a set file from disk. The stage's root directory is set
// to the file's directory, so relative asset paths resolve next to the set.
func LoadSetFile(path string) (*Stage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open set file: %w", err)
	}
	defer f.Close()

	st, err := LoadSet(f)
	if err != nil {
		return nil, fmt.Errorf("load set file %s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err == nil {
		st.SetRootDir(abs)
	}
	return st, nil
}

// LoadSet reads a set description from r into a new stage.
func LoadSet(r io.Reader) (*Stage, error) {
	var set setFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("parse set yaml: %w", err)
	}

	st := NewStage()
	if set.Stage.UpAxis != "" {
		if err := st.SetUpAxis(set.Stage.UpAxis); err != nil {
			return nil, err
		}
	}
	if set.Stage.MetersPerUnit > 0 {
		st.SetMetersPerUnit(set.Stage.MetersPerUnit)
	}

	for _, sp := range set.Prims {
		if err := definePrim(st, sp); err != nil {
			return nil, fmt.Errorf("prim %s: %w", sp.Path, err)
		}
	}
	return st, nil
}

func definePrim(st *Stage, sp setPrim) error {
	prim, err := st.Define(Path(sp.Path), sp.Type)
	if err != nil {
		return err
	}

	if sp.Purpose != "" {
		prim.CreateAttribute(AttrPurpose, sp.Purpose)
	}
	if sp.Visibility != "" {
		prim.CreateAttribute(AttrVisibility, sp.Visibility)
	}
	prim.SetInstanceable(sp.Instanceable)
	prim.SetAbstract(sp.Abstract)
	for _, schema := range sp.APISchemas {
		prim.AddAPISchema(schema)
	}
	if sp.Kind != "" {
		prim.SetKind(sp.Kind)
	}
	if sp.Reference != "" {
		ref, err := ParsePath(sp.Reference)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		prim.SetReference(ref)
	}
	if sp.Material != "" {
		mat, err := ParsePath(sp.Material)
		if err != nil {
			return fmt.Errorf("material: %w", err)
		}
		prim.SetRelationship(RelMaterialBinding, mat)
	}

	for name, raw := range sp.Attrs {
		value, err := convertAttr(name, raw)
		if err != nil {
			return fmt.Errorf("attr %s: %w", name, err)
		}
		prim.CreateAttribute(name, value)
	}

	for name, rawTargets := range sp.Rels {
		targets := make([]Path, 0, len(rawTargets))
		for _, t := range rawTargets {
			tp, err := ParsePath(t)
			if err != nil {
				return fmt.Errorf("rel %s: %w", name, err)
			}
			targets = append(targets, tp)
		}
		prim.SetRelationship(name, targets...)
	}
	return nil
}

// convertAttr turns a decoded YAML value into the attribute representation
// the typed accessors expect, selecting by shape with a name-based override
// for the int-typed topology arrays.
func convertAttr(name string, raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case bool, string, float64:
		return v, nil
	case int:
		return v, nil
	case []interface{}:
		return convertList(name, v)
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

func convertList(name string, list []interface{}) (interface{}, error) {
	if len(list) == 0 {
		return []float64{}, nil
	}

	switch list[0].(type) {
	case string:
		out := make([]string, len(list))
		for i, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("mixed string list")
			}
			out[i] = s
		}
		return out, nil

	case []interface{}:
		return convertNested(list)

	case int, float64:
		nums, err := toFloats(list)
		if err != nil {
			return nil, err
		}
		if name == AttrFaceVertexCounts || name == AttrFaceVertexIndices {
			ints := make([]int, len(nums))
			for i, f := range nums {
				ints[i] = int(f)
			}
			return ints, nil
		}
		switch len(nums) {
		case 3:
			return [3]float64{nums[0], nums[1], nums[2]}, nil
		case 4:
			return [4]float64{nums[0], nums[1], nums[2], nums[3]}, nil
		case 16:
			var m mgl64.Mat4
			copy(m[:], nums)
			return m, nil
		default:
			return nums, nil
		}
	}
	return nil, fmt.Errorf("unsupported list element type %T", list[0])
}

func convertNested(list []interface{}) (interface{}, error) {
	first, ok := list[0].([]interface{})
	if !ok {
		return nil, fmt.Errorf("mixed nested list")
	}
	switch len(first) {
	case 2:
		out := make([][2]float32, len(list))
		for i, e := range list {
			inner, ok := e.([]interface{})
			if !ok || len(inner) != 2 {
				return nil, fmt.Errorf("row %d is not a 2-vector", i)
			}
			nums, err := toFloats(inner)
			if err != nil {
				return nil, err
			}
			out[i] = [2]float32{float32(nums[0]), float32(nums[1])}
		}
		return out, nil
	case 3:
		out := make([][3]float32, len(list))
		for i, e := range list {
			inner, ok := e.([]interface{})
			if !ok || len(inner) != 3 {
				return nil, fmt.Errorf("row %d is not a 3-vector", i)
			}
			nums, err := toFloats(inner)
			if err != nil {
				return nil, err
			}
			out[i] = [3]float32{float32(nums[0]), float32(nums[1]), float32(nums[2])}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported vector width %d", len(first))
	}
}

func toFloats(list []interface{}) ([]float64, error) {
	out := make([]float64, len(list))
	for i, e := range list {
		switch n := e.(type) {
		case int:
			out[i] = float64(n)
		case float64:
			out[i] = n
		default:
			return nil, fmt.Errorf("element %d is not numeric (%T)", i, e)
		}
	}
	return out, nil
}
