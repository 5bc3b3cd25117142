package take

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// maxRowBytes bounds a single row line when reading take files back. Mesh
// rows with embedded textures run large.
const maxRowBytes = 64 << 20

// FileSink writes rows as JSON lines. Parent directories are created on
// open, matching how save paths behave elsewhere.
type FileSink struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
	enc  *json.Encoder
}

// NewFileSink creates or truncates a take file at path.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create take directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create take file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &FileSink{
		path: path,
		file: f,
		w:    w,
		enc:  json.NewEncoder(w),
	}, nil
}

// Path returns the take file location.
func (f *FileSink) Path() string { return f.path }

// Append implements Sink.
func (f *FileSink) Append(row Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return fmt.Errorf("take file %s is closed", f.path)
	}
	return f.enc.Encode(row)
}

// Flush implements Sink.
func (f *FileSink) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	return f.w.Flush()
}

// Close implements Sink. Closing twice is harmless.
func (f *FileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	if err := f.w.Flush(); err != nil {
		f.file.Close()
		f.file = nil
		return err
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// rawRow defers payload decoding until the kind is known.
type rawRow struct {
	Entity string          `json:"entity"`
	Kind   string          `json:"kind"`
	Time   Cells           `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// ReadFile loads a take file back into rows. Payloads decode into their
// archetype structs by kind; unknown kinds decode into generic maps so newer
// files still read.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open take file: %w", err)
	}
	defer f.Close()

	rows, err := readRows(f)
	if err != nil {
		return nil, fmt.Errorf("read take file %s: %w", path, err)
	}
	return rows, nil
}

func readRows(r io.Reader) ([]Row, error) {
	var rows []Row
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRowBytes)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		var raw rawRow
		if err := json.Unmarshal(text, &raw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := decodeRow(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func decodeRow(raw rawRow) (Row, error) {
	row := Row{Entity: raw.Entity, Kind: raw.Kind, Time: raw.Time}

	var err error
	switch raw.Kind {
	case KindTransform3D:
		var a Transform3D
		err = json.Unmarshal(raw.Data, &a)
		row.Data = a
	case KindMesh3D:
		var a Mesh3D
		err = json.Unmarshal(raw.Data, &a)
		row.Data = a
	case KindBoxes3D:
		var a Boxes3D
		err = json.Unmarshal(raw.Data, &a)
		row.Data = a
	case KindEllipsoids3D:
		var a Ellipsoids3D
		err = json.Unmarshal(raw.Data, &a)
		row.Data = a
	case KindClear:
		var a Clear
		err = json.Unmarshal(raw.Data, &a)
		row.Data = a
	case KindViewCoordinates:
		var a ViewCoordinates
		err = json.Unmarshal(raw.Data, &a)
		row.Data = a
	default:
		var a map[string]interface{}
		err = json.Unmarshal(raw.Data, &a)
		row.Data = a
	}
	if err != nil {
		return Row{}, fmt.Errorf("decode %s payload: %w", raw.Kind, err)
	}
	return row, nil
}
