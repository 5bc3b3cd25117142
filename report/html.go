package report

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

//go:embed html_templates/take_report.html
var takeReportTemplate string

//go:embed html_templates/index.html
var indexTemplate string

// Metadata is the structured block embedded in every report page. The index
// scanner reads it back instead of parsing the surrounding HTML.
type Metadata struct {
	Title      string `json:"title"`
	Rows       int    `json:"rows"`
	Entities   int    `json:"entities"`
	Timelines  int    `json:"timelines"`
	Timestamp  string `json:"timestamp"`
	ReportType string `json:"reportType"`
}

// TakeReport is everything one report page renders.
type TakeReport struct {
	Title       string
	GeneratedAt time.Time
	Summary     Summary
	Sheet       *image.RGBA // optional contact sheet
}

// Writer writes HTML reports under a base directory, one timestamped
// directory per report: <base>/<title>/<20060102_150405>/index.html.
type Writer struct {
	baseDir       string
	templateCache map[string]*template.Template
}

// NewWriter creates a report writer rooted at baseDir.
func NewWriter(baseDir string) *Writer {
	return &Writer{
		baseDir:       baseDir,
		templateCache: make(map[string]*template.Template),
	}
}

// reportPage is the template payload for one report.
type reportPage struct {
	TakeReport
	Stamp        string
	MetadataJSON template.JS
	SheetURL     template.URL
}

// WriteReport renders rep into a fresh timestamped directory and returns the
// path of the written index.html.
func (w *Writer) WriteReport(rep TakeReport) (string, error) {
	if rep.Title == "" {
		rep.Title = "take"
	}
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = time.Now()
	}
	stamp := rep.GeneratedAt.Format("20060102_150405")

	dir := filepath.Join(w.baseDir, rep.Title, stamp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	meta, err := json.Marshal(Metadata{
		Title:      rep.Title,
		Rows:       rep.Summary.Rows,
		Entities:   len(rep.Summary.Entities),
		Timelines:  len(rep.Summary.Timelines),
		Timestamp:  stamp,
		ReportType: "take",
	})
	if err != nil {
		return "", fmt.Errorf("marshal report metadata: %w", err)
	}

	page := reportPage{
		TakeReport:   rep,
		Stamp:        stamp,
		MetadataJSON: template.JS(meta),
	}
	if rep.Sheet != nil {
		url, err := imageDataURL(rep.Sheet)
		if err != nil {
			return "", fmt.Errorf("encode contact sheet: %w", err)
		}
		page.SheetURL = url
	}

	path := filepath.Join(dir, "index.html")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	if err := w.template("take", takeReportTemplate).Execute(file, page); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return path, nil
}

// template parses and caches a named template.
func (w *Writer) template(name, text string) *template.Template {
	if tmpl, ok := w.templateCache[name]; ok {
		return tmpl
	}
	tmpl := template.Must(template.New(name).Parse(text))
	w.templateCache[name] = tmpl
	return tmpl
}

// imageDataURL encodes an image as a PNG data URL for inline embedding, so
// report pages stay single self-contained files.
func imageDataURL(img image.Image) (template.URL, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	data := base64.StdEncoding.EncodeToString(buf.Bytes())
	return template.URL(fmt.Sprintf("data:image/png;base64,%s", data)), nil
}
