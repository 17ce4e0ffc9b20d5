package keyword

import "context"

// NoteSource streams notes from partitioned storage so the scan never
// holds the corpus in memory. Partitions are independent and may be
// scanned in parallel; ordering across notes carries no guarantee.
type NoteSource interface {
	// Partitions lists the partition names of the source, in a stable
	// order.
	Partitions(ctx context.Context) ([]string, error)
	// Scan calls fn once per note in the partition. Records that cannot
	// be decoded are skipped and reported in the returned count, never
	// as an error.
	Scan(ctx context.Context, partition string, fn func(Note) error) (skipped int, err error)
	// Resumable reports whether per-partition checkpoints are worth
	// keeping for this source.
	Resumable() bool
}
