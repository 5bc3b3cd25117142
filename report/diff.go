package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/teranos/dolly/take"
)

// DefaultTolerance is the transform drift below which two takes are
// considered the same.
const DefaultTolerance = 0.05

// EntityDrift is one entity whose final transform moved between takes.
type EntityDrift struct {
	Path  string
	Drift float64
}

// GeometryMismatch is one entity whose geometry row counts differ.
type GeometryMismatch struct {
	Path string
	A, B int
}

// Drift is the difference between two takes.
type Drift struct {
	Added    []string
	Removed  []string
	Moved    []EntityDrift
	Geometry []GeometryMismatch
}

// Clean reports whether the takes match within tolerance.
func (d Drift) Clean() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 &&
		len(d.Moved) == 0 && len(d.Geometry) == 0
}

func (d Drift) String() string {
	if d.Clean() {
		return "takes match"
	}
	var b strings.Builder
	for _, path := range d.Added {
		fmt.Fprintf(&b, "added    %s\n", path)
	}
	for _, path := range d.Removed {
		fmt.Fprintf(&b, "removed  %s\n", path)
	}
	for _, m := range d.Moved {
		fmt.Fprintf(&b, "moved    %s (drift %.4f)\n", m.Path, m.Drift)
	}
	for _, g := range d.Geometry {
		fmt.Fprintf(&b, "geometry %s (%d vs %d rows)\n", g.Path, g.A, g.B)
	}
	return strings.TrimRight(b.String(), "\n")
}

// entityDigest is the comparable shape of one entity in a take: its row
// counts and the last transform logged for it.
type entityDigest struct {
	geometry  int
	transform *take.Transform3D
}

func digest(rows []take.Row) map[string]*entityDigest {
	out := make(map[string]*entityDigest)
	for _, row := range rows {
		dg := out[row.Entity]
		if dg == nil {
			dg = &entityDigest{}
			out[row.Entity] = dg
		}
		switch data := row.Data.(type) {
		case take.Transform3D:
			tr := data
			dg.transform = &tr
		case take.Mesh3D, take.Boxes3D, take.Ellipsoids3D:
			dg.geometry++
		}
	}
	return out
}

// CompareTakes diffs two takes: entities present in one but not the other,
// entities whose final transform drifted beyond tolerance, and entities
// whose geometry row counts differ. A non-positive tolerance means
// DefaultTolerance.
func CompareTakes(a, b []take.Row, tolerance float64) Drift {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	da := digest(a)
	db := digest(b)

	var d Drift
	for path := range db {
		if da[path] == nil {
			d.Added = append(d.Added, path)
		}
	}
	for path, ea := range da {
		eb := db[path]
		if eb == nil {
			d.Removed = append(d.Removed, path)
			continue
		}
		if ea.transform != nil && eb.transform != nil {
			if drift := transformDrift(*ea.transform, *eb.transform); drift > tolerance {
				d.Moved = append(d.Moved, EntityDrift{Path: path, Drift: drift})
			}
		}
		if ea.geometry != eb.geometry {
			d.Geometry = append(d.Geometry, GeometryMismatch{Path: path, A: ea.geometry, B: eb.geometry})
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Slice(d.Moved, func(i, j int) bool { return d.Moved[i].Path < d.Moved[j].Path })
	sort.Slice(d.Geometry, func(i, j int) bool { return d.Geometry[i].Path < d.Geometry[j].Path })
	return d
}

// transformDrift measures how far two transforms disagree: the Euclidean
// distance between translations, or the largest quaternion or scale
// component delta, whichever is bigger. A missing scale compares as unit
// scale.
func transformDrift(a, b take.Transform3D) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		dv := a.Translation[i] - b.Translation[i]
		sum += dv * dv
	}
	drift := math.Sqrt(sum)

	for i := 0; i < 4; i++ {
		if dq := math.Abs(a.Quaternion[i] - b.Quaternion[i]); dq > drift {
			drift = dq
		}
	}

	sa, sb := unitScale(a.Scale), unitScale(b.Scale)
	for i := 0; i < 3; i++ {
		if ds := math.Abs(sa[i] - sb[i]); ds > drift {
			drift = ds
		}
	}
	return drift
}

func unitScale(s *[3]float64) [3]float64 {
	if s == nil {
		return [3]float64{1, 1, 1}
	}
	return *s
}
