// Package report turns recorded takes into artifacts a human can review:
// aggregate summaries, HTML report pages with an embedded contact sheet,
// drift comparisons between two takes, and a dashboard index over past
// reports.
package report

import (
	"sort"

	"github.com/teranos/dolly/take"
)

// TimelineStats describes one timeline across a take.
type TimelineStats struct {
	Name   string        `json:"name"`
	Kind   take.TimeKind `json:"kind"`
	Points int           `json:"points"`
	Min    take.TimeCell `json:"min"`
	Max    take.TimeCell `json:"max"`
}

// Range renders the covered span for display.
func (t TimelineStats) Range() string {
	if t.Points == 0 {
		return ""
	}
	if t.Min == t.Max {
		return t.Min.String()
	}
	return t.Min.String() + " to " + t.Max.String()
}

// EntityStats describes one entity path across a take.
type EntityStats struct {
	Path  string         `json:"path"`
	Rows  int            `json:"rows"`
	Kinds map[string]int `json:"kinds"`
}

// Summary aggregates a take for reporting.
type Summary struct {
	Rows      int             `json:"rows"`
	Entities  []EntityStats   `json:"entities"`
	Timelines []TimelineStats `json:"timelines"`
	Kinds     map[string]int  `json:"kinds"`
}

// BuildSummary aggregates rows into per-entity and per-timeline statistics.
// Entities and timelines come back sorted by name.
func BuildSummary(rows []take.Row) Summary {
	entities := make(map[string]*EntityStats)
	timelines := make(map[string]*TimelineStats)
	kinds := make(map[string]int)

	for _, row := range rows {
		kinds[row.Kind]++

		ent := entities[row.Entity]
		if ent == nil {
			ent = &EntityStats{Path: row.Entity, Kinds: make(map[string]int)}
			entities[row.Entity] = ent
		}
		ent.Rows++
		ent.Kinds[row.Kind]++

		for name, cell := range row.Time {
			tl := timelines[name]
			if tl == nil {
				tl = &TimelineStats{Name: name, Kind: cell.Kind, Min: cell, Max: cell}
				timelines[name] = tl
			}
			tl.Points++
			if cell.Value < tl.Min.Value {
				tl.Min = cell
			}
			if cell.Value > tl.Max.Value {
				tl.Max = cell
			}
		}
	}

	s := Summary{Rows: len(rows), Kinds: kinds}
	for _, ent := range entities {
		s.Entities = append(s.Entities, *ent)
	}
	sort.Slice(s.Entities, func(i, j int) bool { return s.Entities[i].Path < s.Entities[j].Path })
	for _, tl := range timelines {
		s.Timelines = append(s.Timelines, *tl)
	}
	sort.Slice(s.Timelines, func(i, j int) bool { return s.Timelines[i].Name < s.Timelines[j].Name })
	return s
}
