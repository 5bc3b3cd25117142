package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/dolly/report"
	"github.com/teranos/dolly/take"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report <take.jsonl>",
	Short: "Generate an HTML report for a recorded take",
	Long: `Report reads a take file, summarizes its rows per entity and timeline,
renders a contact sheet of any recorded textures, and writes a
timestamped HTML report plus a refreshed index page.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "reports", "Directory to write reports into")
}

func runReport(cmd *cobra.Command, args []string) error {
	rows, err := take.ReadFile(args[0])
	if err != nil {
		return err
	}
	summary := report.BuildSummary(rows)

	writer := report.NewWriter(reportOut)
	path, err := writer.WriteReport(report.TakeReport{
		Title:   baseName(args[0]),
		Summary: summary,
		Sheet:   report.ContactSheet(rows),
	})
	if err != nil {
		return err
	}
	if err := report.WriteIndex(reportOut); err != nil {
		return err
	}

	fmt.Printf("%d rows, %d entities, %d timelines\n",
		summary.Rows, len(summary.Entities), len(summary.Timelines))
	for _, tl := range summary.Timelines {
		fmt.Printf("  %-20s %-9s %5d points  %s\n", tl.Name, tl.Kind, tl.Points, tl.Range())
	}
	fmt.Printf("📊 Report: %s\n", path)
	return nil
}
