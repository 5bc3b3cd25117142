package dolly

import (
	"fmt"
	"sort"
	"sync"

	"github.com/teranos/dolly/rig"
	"github.com/teranos/dolly/stage"
	"github.com/teranos/dolly/take"
)

// PoseOrigin tells where a resolved transform came from.
type PoseOrigin int

const (
	// OriginStage means the transform is the prim's authored local
	// transform.
	OriginStage PoseOrigin = iota
	// OriginLive means the transform came from the live pose source.
	OriginLive
)

func (o PoseOrigin) String() string {
	if o == OriginLive {
		return "live"
	}
	return "stage"
}

// PoseOverlay merges live simulation poses over a stage's authored
// transforms. Live poses arrive two ways: Refresh pulls a scene's
// articulation body poses into an enumerable coverage map, and SetSource
// attaches a query-style source consulted for rigid-body prims. Wherever a
// live pose covers a path the live pose wins; everything else falls back to
// the authored local transform. Both feeds can be swapped while sweeps are
// running.
type PoseOverlay struct {
	mu      sync.RWMutex
	source  rig.PoseSource
	refresh map[stage.Path]rig.Pose
}

// NewPoseOverlay creates an overlay with no live feed attached.
func NewPoseOverlay() *PoseOverlay { return &PoseOverlay{} }

// SetSource swaps the live pose source. A nil source turns source lookups
// off. The source is consulted only for prims carrying the rigid-body
// schema; Refresh coverage is unaffected.
func (o *PoseOverlay) SetSource(src rig.PoseSource) {
	o.mu.Lock()
	o.source = src
	o.mu.Unlock()
}

// Refresh pulls world poses for the scene's articulation bodies and installs
// them as the overlay's covered paths. envs selects environment copies, nil
// meaning all of them. It returns every covered entity path, sorted, plus
// the poses that differ from the previous refresh. Change detection is exact
// equality on the pose components.
func (o *PoseOverlay) Refresh(scene rig.Scene, envs []int) ([]stage.Path, map[stage.Path]rig.Pose, error) {
	if envs == nil {
		envs = make([]int, scene.NumEnvs())
		for i := range envs {
			envs[i] = i
		}
	}
	for _, env := range envs {
		if env < 0 || env >= scene.NumEnvs() {
			return nil, nil, fmt.Errorf("env %d out of range, scene has %d envs", env, scene.NumEnvs())
		}
	}

	next := make(map[stage.Path]rig.Pose)
	for _, art := range scene.Articulations() {
		poses := art.BodyPoses()
		names := art.BodyNames()
		for _, env := range envs {
			if env >= len(poses) {
				return nil, nil, fmt.Errorf("articulation %s reported poses for %d envs, want env %d",
					art.Name(), len(poses), env)
			}
			row := poses[env]
			if len(row) != len(names) {
				return nil, nil, fmt.Errorf("articulation %s reported %d poses for %d bodies",
					art.Name(), len(row), len(names))
			}
			root := rig.ResolveEnvPath(art.PrimPath(), env)
			for i, name := range names {
				next[root.AppendChild(name)] = row[i]
			}
		}
	}

	o.mu.Lock()
	changed := make(map[stage.Path]rig.Pose)
	for path, pose := range next {
		if last, seen := o.refresh[path]; !seen || !last.Equal(pose) {
			changed[path] = pose
		}
	}
	o.refresh = next
	o.mu.Unlock()

	covered := make([]stage.Path, 0, len(next))
	for path := range next {
		covered = append(covered, path)
	}
	sort.Slice(covered, func(i, j int) bool { return covered[i] < covered[j] })
	return covered, changed, nil
}

// Covered returns the refresh coverage, sorted. Paths fed through SetSource
// are not enumerable and not included.
func (o *PoseOverlay) Covered() []stage.Path {
	o.mu.RLock()
	covered := make([]stage.Path, 0, len(o.refresh))
	for path := range o.refresh {
		covered = append(covered, path)
	}
	o.mu.RUnlock()
	sort.Slice(covered, func(i, j int) bool { return covered[i] < covered[j] })
	return covered
}

// LivePose returns the live pose for a path, refresh coverage first, then
// the source.
func (o *PoseOverlay) LivePose(path stage.Path) (rig.Pose, bool) {
	o.mu.RLock()
	pose, ok := o.refresh[path]
	src := o.source
	o.mu.RUnlock()
	if ok {
		return pose, true
	}
	if src == nil {
		return rig.Pose{}, false
	}
	return src.WorldPose(path)
}

// Covers reports whether a live pose exists for the path.
func (o *PoseOverlay) Covers(path stage.Path) bool {
	_, ok := o.LivePose(path)
	return ok
}

// Resolve merges live poses over the record's authored transform. Refresh
// coverage wins outright. The source is consulted only for prims carrying
// the rigid-body schema, and a rigid-body prim the source misses resolves to
// nothing at all rather than falling back to its stale authored transform.
// Live poses carry no scale; authored transforms always do.
//
// Live poses are world-space while entity transforms compose down the tree.
// TODO: divide out the accumulated ancestor transform when a live prim sits
// under a transformed parent.
func (o *PoseOverlay) Resolve(rec Record) (take.Transform3D, PoseOrigin, bool) {
	o.mu.RLock()
	pose, covered := o.refresh[rec.Path]
	src := o.source
	o.mu.RUnlock()

	if covered {
		return poseTransform(pose), OriginLive, true
	}
	if src != nil && rec.Prim.HasAPI(rig.APIRigidBody) {
		if pose, ok := src.WorldPose(rec.Path); ok {
			return poseTransform(pose), OriginLive, true
		}
		return take.Transform3D{}, OriginLive, false
	}

	tr, ok := authoredTransform(rec)
	return tr, OriginStage, ok
}
