package keyword

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// fileNoteSource reads partitioned note storage: one directory per
// partition holding part-*.ndjson or part-*.ndjson.gz files, one JSON
// note per line.
type fileNoteSource struct {
	dir string
}

func NewFileNoteSource(dir string) NoteSource {
	return &fileNoteSource{dir: dir}
}

type noteRow struct {
	PersonID int64  `json:"person_id"`
	NoteID   int64  `json:"note_id"`
	NoteDate string `json:"note_date"`
	NoteText string `json:"note_text"`
}

func (s *fileNoteSource) Partitions(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list note partitions: %w", err)
	}
	var parts []string
	for _, e := range entries {
		if e.IsDir() {
			parts = append(parts, e.Name())
		}
	}
	sort.Strings(parts)
	return parts, nil
}

func (s *fileNoteSource) Scan(ctx context.Context, partition string, fn func(Note) error) (int, error) {
	pattern := filepath.Join(s.dir, partition, "part-*")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(files)

	skipped := 0
	for _, path := range files {
		if !strings.HasSuffix(path, ".ndjson") && !strings.HasSuffix(path, ".ndjson.gz") {
			continue
		}
		n, err := s.scanFile(ctx, path, fn)
		skipped += n
		if err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

func (s *fileNoteSource) scanFile(ctx context.Context, path string, fn func(Note) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open note file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("open gzip note file %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	sc := bufio.NewScanner(r)
	// Notes can run to megabytes of text on one line.
	sc.Buffer(make([]byte, 0, 1<<20), 64<<20)

	skipped := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var row noteRow
		if err := json.Unmarshal(line, &row); err != nil {
			// Undecodable record: a local anomaly, never fatal.
			skipped++
			continue
		}
		n := Note{PersonID: row.PersonID, NoteID: row.NoteID, Date: row.NoteDate, Text: row.NoteText}
		if err := fn(n); err != nil {
			return skipped, err
		}
	}
	if err := sc.Err(); err != nil {
		return skipped, fmt.Errorf("read note file %s: %w", path, err)
	}
	return skipped, nil
}

// Resumable is true: partitions are static files, so a finished
// partition's intermediate output stays valid across reruns.
func (s *fileNoteSource) Resumable() bool { return true }
