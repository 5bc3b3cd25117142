package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/dolly/report"
	"github.com/teranos/dolly/take"
)

var diffTolerance float64

var diffCmd = &cobra.Command{
	Use:   "diff <a.jsonl> <b.jsonl>",
	Short: "Compare two takes for drift",
	Long: `Diff compares the final state of two takes entity by entity and reports
entities that were added, removed, moved beyond the tolerance, or
changed geometry row counts. Exits nonzero when the takes drifted.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().Float64Var(&diffTolerance, "tolerance", report.DefaultTolerance, "Maximum transform drift to tolerate")
}

func runDiff(cmd *cobra.Command, args []string) error {
	a, err := take.ReadFile(args[0])
	if err != nil {
		return err
	}
	b, err := take.ReadFile(args[1])
	if err != nil {
		return err
	}

	drift := report.CompareTakes(a, b, diffTolerance)
	fmt.Println(drift.String())
	if !drift.Clean() {
		return fmt.Errorf("takes drifted beyond tolerance %.4f", diffTolerance)
	}
	return nil
}
