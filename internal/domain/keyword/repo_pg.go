package keyword

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgNoteSource scans the OMOP note table in note_id ranges so workers
// can share the corpus without coordinating.
type pgNoteSource struct {
	pool   *pgxpool.Pool
	shards int
}

func NewPGNoteSource(pool *pgxpool.Pool, shards int) NoteSource {
	if shards < 1 {
		shards = 1
	}
	return &pgNoteSource{pool: pool, shards: shards}
}

// Partitions splits [min(note_id), max(note_id)] into contiguous
// half-open ranges encoded as "lo-hi". An empty note table yields no
// partitions.
func (s *pgNoteSource) Partitions(ctx context.Context) ([]string, error) {
	var lo, hi *int64
	err := s.pool.QueryRow(ctx, `SELECT MIN(note_id), MAX(note_id) FROM note`).Scan(&lo, &hi)
	if err != nil {
		return nil, fmt.Errorf("note id bounds: %w", err)
	}
	if lo == nil || hi == nil {
		return nil, nil
	}

	span := *hi - *lo + 1
	step := span / int64(s.shards)
	if step < 1 {
		step = 1
	}
	var parts []string
	for start := *lo; start <= *hi; start += step {
		end := start + step
		if end > *hi+1 {
			end = *hi + 1
		}
		parts = append(parts, fmt.Sprintf("%d-%d", start, end))
	}
	return parts, nil
}

func (s *pgNoteSource) Scan(ctx context.Context, partition string, fn func(Note) error) (int, error) {
	lo, hi, err := parseRange(partition)
	if err != nil {
		return 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT person_id, note_id, COALESCE(note_date::text, ''), COALESCE(note_text, '')
		FROM note
		WHERE note_id >= $1 AND note_id < $2
		ORDER BY note_id`,
		lo, hi)
	if err != nil {
		return 0, fmt.Errorf("scan note range %s: %w", partition, err)
	}
	defer rows.Close()

	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.PersonID, &n.NoteID, &n.Date, &n.Text); err != nil {
			return 0, fmt.Errorf("scan note row: %w", err)
		}
		if err := fn(n); err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("read note rows: %w", err)
	}
	return 0, nil
}

// Resumable is false for the database source: a fresh range scan is
// cheaper than checkpoint bookkeeping against a live table.
func (s *pgNoteSource) Resumable() bool { return false }

func parseRange(partition string) (int64, int64, error) {
	loStr, hiStr, ok := strings.Cut(partition, "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed note partition %q", partition)
	}
	lo, err := strconv.ParseInt(loStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed note partition %q: %w", partition, err)
	}
	hi, err := strconv.ParseInt(hiStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed note partition %q: %w", partition, err)
	}
	return lo, hi, nil
}
