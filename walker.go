package dolly

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gobwas/glob"

	"github.com/teranos/dolly/stage"
)

// Record is one prim visit produced by a Walker. Everything beyond the path
// is resolved lazily; transforms and geometry are only computed when asked
// for.
type Record struct {
	// Path is the visited path. For instance proxies this differs from
	// the prim's own path.
	Path stage.Path
	// Prim is the visited prim, the prototype prim for proxies.
	Prim *stage.Prim
}

// IsInstanceProxy reports whether the record visits a prototype prim under
// an instance path.
func (r Record) IsInstanceProxy() bool { return r.Path != r.Prim.Path() }

// LocalTransform returns the prim's authored local transform.
func (r Record) LocalTransform() (mgl64.Mat4, bool) { return r.Prim.LocalTransform() }

// Geometry extracts the prim's gprim data, nil for non-gprims.
func (r Record) Geometry() (*stage.Geometry, error) { return stage.ExtractGeometry(r.Prim) }

// WalkerConfig filters which prims a Walker visits.
type WalkerConfig struct {
	// Include lists path patterns to visit; empty means every path.
	// Patterns use shell-style matching where '*' also crosses '/'.
	Include []string
	// Exclude lists path patterns to skip. An exclusion beats any
	// inclusion.
	Exclude []string
	// VisitGuides also visits prims whose purpose is "guide". Guides are
	// helper geometry and skipped by default; their descendants are
	// considered either way.
	VisitGuides bool
}

// Walker traverses a stage depth-first in definition order, applying path
// filters and the guide-purpose skip.
type Walker struct {
	st          *stage.Stage
	include     []glob.Glob
	exclude     []glob.Glob
	visitGuides bool
}

// NewWalker compiles the config's patterns against a stage.
func NewWalker(st *stage.Stage, cfg WalkerConfig) (*Walker, error) {
	w := &Walker{st: st, visitGuides: cfg.VisitGuides}
	for _, pattern := range cfg.Include {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		w.include = append(w.include, g)
	}
	for _, pattern := range cfg.Exclude {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		w.exclude = append(w.exclude, g)
	}
	return w, nil
}

// Matches reports whether a path passes the include and exclude filters.
func (w *Walker) Matches(path stage.Path) bool {
	s := path.String()
	for _, g := range w.exclude {
		if g.Match(s) {
			return false
		}
	}
	if len(w.include) == 0 {
		return true
	}
	for _, g := range w.include {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// Walk visits matching prims. Guide-purpose prims are skipped one prim at a
// time: their children are still visited. Returning stage.Break stops the
// walk.
func (w *Walker) Walk(visit func(Record) bool) {
	w.st.Walk(func(path stage.Path, prim *stage.Prim) bool {
		if !w.visitGuides && prim.Purpose() == stage.PurposeGuide {
			return stage.Continue
		}
		if !w.Matches(path) {
			return stage.Continue
		}
		return visit(Record{Path: path, Prim: prim})
	})
}
