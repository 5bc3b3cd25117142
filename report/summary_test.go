package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/dolly/take"
)

// recordedRows logs a small take through a real stream so the rows carry
// genuine time cells.
func recordedRows(t *testing.T) []take.Row {
	t.Helper()
	sink := take.NewMemorySink()
	stream := take.NewStream("summary", take.WithSink(sink))

	require.NoError(t, stream.SetSequence("step", 0))
	require.NoError(t, stream.Log("/World/Crate", take.Boxes3D{HalfSizes: [][3]float32{{1, 1, 1}}}))
	for step := int64(0); step < 3; step++ {
		require.NoError(t, stream.SetSequence("step", step))
		require.NoError(t, stream.SetDuration("sim", time.Duration(step)*time.Second/2))
		require.NoError(t, stream.Log("/World/Crate", take.Transform3D{Translation: [3]float64{float64(step), 0, 0}}))
	}
	require.NoError(t, stream.Log("/World/Ball", take.Ellipsoids3D{HalfSizes: [][3]float32{{1, 1, 1}}}))
	return sink.Rows()
}

// TestBuildSummary tests aggregation of rows into entity and timeline stats
func TestBuildSummary(t *testing.T) {
	s := BuildSummary(recordedRows(t))

	assert.Equal(t, 5, s.Rows)
	assert.Equal(t, map[string]int{
		take.KindBoxes3D:      1,
		take.KindEllipsoids3D: 1,
		take.KindTransform3D:  3,
	}, s.Kinds)

	require.Len(t, s.Entities, 2)
	assert.Equal(t, "/World/Ball", s.Entities[0].Path, "entities come back sorted")
	assert.Equal(t, "/World/Crate", s.Entities[1].Path)
	assert.Equal(t, 4, s.Entities[1].Rows)
	assert.Equal(t, 3, s.Entities[1].Kinds[take.KindTransform3D])

	require.Len(t, s.Timelines, 2)
	sim, step := s.Timelines[0], s.Timelines[1]
	assert.Equal(t, "sim", sim.Name)
	assert.Equal(t, take.TimeDuration, sim.Kind)
	// Three transforms plus the ball row, which still carries the cell
	assert.Equal(t, 4, sim.Points)
	assert.Equal(t, int64(0), sim.Min.Value)
	assert.Equal(t, int64(time.Second), sim.Max.Value)

	assert.Equal(t, "step", step.Name)
	assert.Equal(t, take.TimeSequence, step.Kind)
	// The box row was logged at step 0 too
	assert.Equal(t, 5, step.Points)
	assert.Equal(t, int64(0), step.Min.Value)
	assert.Equal(t, int64(2), step.Max.Value)
}

// TestBuildSummary_Empty tests the zero-row take
func TestBuildSummary_Empty(t *testing.T) {
	s := BuildSummary(nil)
	assert.Equal(t, 0, s.Rows)
	assert.Empty(t, s.Entities)
	assert.Empty(t, s.Timelines)
	assert.Empty(t, s.Kinds)
}

// TestTimelineStats_Range tests the display form of a timeline span
func TestTimelineStats_Range(t *testing.T) {
	cases := []struct {
		name  string
		stats TimelineStats
		want  string
	}{
		{
			name:  "no points",
			stats: TimelineStats{},
			want:  "",
		},
		{
			name: "single point",
			stats: TimelineStats{
				Points: 1,
				Min:    take.TimeCell{Kind: take.TimeSequence, Value: 3},
				Max:    take.TimeCell{Kind: take.TimeSequence, Value: 3},
			},
			want: "#3",
		},
		{
			name: "sequence span",
			stats: TimelineStats{
				Points: 5,
				Min:    take.TimeCell{Kind: take.TimeSequence, Value: 0},
				Max:    take.TimeCell{Kind: take.TimeSequence, Value: 4},
			},
			want: "#0 to #4",
		},
		{
			name: "duration span",
			stats: TimelineStats{
				Points: 2,
				Min:    take.TimeCell{Kind: take.TimeDuration, Value: 0},
				Max:    take.TimeCell{Kind: take.TimeDuration, Value: int64(1500 * time.Millisecond)},
			},
			want: "0s to 1.5s",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.stats.Range())
		})
	}
}
