// Package dolly streams scene description and live simulation state into
// recording takes.
//
// Dolly walks an in-memory stage, resolves each prim's transform, geometry,
// and surface shading, and appends the result to a take stream. Repeated
// sweeps are incremental: geometry is logged once per entity, transforms only
// when they change, and entities whose prims vanished are cleared. A pose
// overlay merges live simulation poses over the authored stage transforms,
// with live poses winning wherever the simulation covers a path.
//
// Basic usage:
//
//	st, _ := stage.LoadSetFile("scenes/warehouse.yaml")
//	stream := take.NewStream("warehouse")
//
//	logger, _ := dolly.NewStageLogger(st, stream, dolly.StageLoggerConfig{
//		Exclude: []string{"*/Looks/*"},
//	})
//	logger.LogStage()
//
// For live simulation state, refresh the overlay from the running scene and
// sweep per step:
//
//	for step := 0; step < n; step++ {
//		logger.Overlay().Refresh(scene, nil)
//		stream.SetSequence("step", int64(step))
//		logger.LogStage()
//	}
package dolly
