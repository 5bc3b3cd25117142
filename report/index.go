package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// IndexEntry is one report directory in the dashboard index.
type IndexEntry struct {
	Title        string
	Timestamp    string
	Rows         int
	Entities     int
	Timelines    int
	RelativePath string
	CreatedAt    time.Time
}

// WriteIndex scans baseDir for report pages and writes a dashboard
// index.html linking them, newest first.
func WriteIndex(baseDir string) error {
	entries, err := scanReports(baseDir)
	if err != nil {
		return fmt.Errorf("scan reports: %w", err)
	}

	path := filepath.Join(baseDir, "index.html")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer file.Close()

	tmpl := template.Must(template.New("index").Parse(indexTemplate))
	data := struct {
		Reports     []IndexEntry
		GeneratedAt time.Time
	}{
		Reports:     entries,
		GeneratedAt: time.Now(),
	}
	if err := tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	return nil
}

// scanReports finds report pages under baseDir. A report page is an
// index.html inside a directory named like a report timestamp.
func scanReports(baseDir string) ([]IndexEntry, error) {
	var entries []IndexEntry

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() != "index.html" || path == filepath.Join(baseDir, "index.html") {
			return nil
		}

		dir := filepath.Dir(path)
		stamp := filepath.Base(dir)
		if _, err := time.Parse("20060102_150405", stamp); err != nil {
			return nil
		}

		entry := IndexEntry{
			Title:        filepath.Base(filepath.Dir(dir)),
			Timestamp:    stamp,
			RelativePath: relativePath(baseDir, path),
			CreatedAt:    info.ModTime(),
		}
		if meta, err := extractMetadata(path); err == nil {
			entry.Title = meta.Title
			entry.Rows = meta.Rows
			entry.Entities = meta.Entities
			entry.Timelines = meta.Timelines
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// extractMetadata reads the embedded JSON block back out of a report page.
func extractMetadata(path string) (*Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	html := string(content)

	start := strings.Index(html, `<script type="application/json" id="take-metadata">`)
	if start == -1 {
		return nil, fmt.Errorf("no metadata block in %s", path)
	}
	jsonStart := strings.Index(html[start:], "{")
	if jsonStart == -1 {
		return nil, fmt.Errorf("no JSON object in metadata block")
	}
	start += jsonStart

	scriptEnd := strings.Index(html[start:], "</script>")
	if scriptEnd == -1 {
		return nil, fmt.Errorf("unterminated metadata block")
	}
	end := start + scriptEnd

	var meta Metadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(html[start:end])), &meta); err != nil {
		return nil, fmt.Errorf("parse metadata block: %w", err)
	}
	return &meta, nil
}

// relativePath returns target relative to base, or target itself when no
// relative form exists.
func relativePath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}
