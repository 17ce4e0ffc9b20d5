package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clinphen/audcohort/internal/platform/results"
)

type Stats struct {
	Partitions        int
	SkippedPartitions int // already-processed partitions (resumable source)
	Notes             int
	EmptyNotes        int
	Undecodable       int
	MatchedNotes      int
	Matches           int
	Included          int
	ExcludedBy        map[string]int
}

type Service struct {
	source   NoteSource
	matcher  *Matcher
	excluder *Excluder
	store    *results.Store
	workers  int
	logger   zerolog.Logger
}

func NewService(source NoteSource, matcher *Matcher, excluder *Excluder, store *results.Store, workers int, logger zerolog.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		source:   source,
		matcher:  matcher,
		excluder: excluder,
		store:    store,
		workers:  workers,
		logger:   logger,
	}
}

// Run scans every note partition and writes the match file. Partitions
// are scanned in parallel; within one note the match sequence is
// deterministic and written as a single block. For resumable sources
// each partition's matches are checkpointed under the intermediate
// directory and finished partitions are skipped on rerun, so an
// interrupted run can be restarted without rescanning.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	partitions, err := s.source.Partitions(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("keyword scan: %w", err)
	}

	st := &statsCollector{excludedBy: make(map[string]int)}
	st.partitions = len(partitions)

	if s.source.Resumable() {
		err = s.runResumable(ctx, partitions, st)
	} else {
		err = s.runSinglePass(ctx, partitions, st)
	}
	if err != nil {
		return Stats{}, fmt.Errorf("keyword scan: %w", err)
	}

	stats := st.snapshot()
	s.logger.Info().
		Int("partitions", stats.Partitions).
		Int("skipped_partitions", stats.SkippedPartitions).
		Int("notes", stats.Notes).
		Int("empty_notes", stats.EmptyNotes).
		Int("undecodable_records", stats.Undecodable).
		Int("matched_notes", stats.MatchedNotes).
		Int("matches", stats.Matches).
		Int("included_matches", stats.Included).
		Interface("excluded_by", stats.ExcludedBy).
		Msg("keyword match file written")
	return stats, nil
}

// runSinglePass streams every partition into one match writer.
func (s *Service) runSinglePass(ctx context.Context, partitions []string, st *statsCollector) error {
	mw, err := results.NewMatchWriter(s.store.Path(results.KeywordMatchesFile))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, partition := range partitions {
		partition := partition
		g.Go(func() error {
			return s.scanPartition(gctx, partition, mw, st)
		})
	}
	if err := g.Wait(); err != nil {
		mw.Close()
		return err
	}
	return mw.Close()
}

// runResumable checkpoints each partition, skipping finished ones, then
// merges the checkpoints into the final match file.
func (s *Service) runResumable(ctx context.Context, partitions []string, st *statsCollector) error {
	dir, err := s.store.IntermediateDir()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, partition := range partitions {
		partition := partition
		path := intermediatePath(dir, partition)
		g.Go(func() error {
			if _, err := os.Stat(path); err == nil {
				st.addSkipped()
				return nil
			}
			return s.checkpointPartition(gctx, partition, path, st)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return s.mergeIntermediates(dir, partitions)
}

// checkpointPartition writes the partition's matches to a temp file and
// renames it into place only on success, so an interrupted partition is
// rescanned rather than trusted.
func (s *Service) checkpointPartition(ctx context.Context, partition, path string, st *statsCollector) error {
	tmp := path + ".partial"
	mw, err := results.NewMatchWriter(tmp)
	if err != nil {
		return err
	}
	if err := s.scanPartition(ctx, partition, mw, st); err != nil {
		mw.Close()
		os.Remove(tmp)
		return err
	}
	if err := mw.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Service) mergeIntermediates(dir string, partitions []string) error {
	mw, err := results.NewMatchWriter(s.store.Path(results.KeywordMatchesFile))
	if err != nil {
		return err
	}
	for _, partition := range partitions {
		rows, err := results.ReadMatchRows(intermediatePath(dir, partition))
		if err != nil {
			mw.Close()
			return fmt.Errorf("merge partition %s: %w", partition, err)
		}
		if err := mw.WriteNote(rows); err != nil {
			mw.Close()
			return err
		}
	}
	return mw.Close()
}

func (s *Service) scanPartition(ctx context.Context, partition string, mw *results.MatchWriter, st *statsCollector) error {
	skipped, err := s.source.Scan(ctx, partition, func(n Note) error {
		rows := s.scanNote(n, st)
		if len(rows) == 0 {
			return nil
		}
		return mw.WriteNote(rows)
	})
	st.addUndecodable(skipped)
	if err != nil {
		return fmt.Errorf("partition %s: %w", partition, err)
	}
	return nil
}

// scanNote produces one row per match, excluded matches included; only
// included rows count toward the cohort downstream.
func (s *Service) scanNote(n Note, st *statsCollector) []results.MatchRow {
	if n.Text == "" {
		st.addEmptyNote()
		return nil
	}

	matches := s.matcher.Match(n.Text)
	rows := make([]results.MatchRow, 0, len(matches))
	var included int
	excludedBy := make(map[string]int)
	for _, m := range matches {
		category := s.excluder.Evaluate(n.Text, m)
		if category == "" {
			included++
		} else {
			excludedBy[category]++
		}
		rows = append(rows, results.MatchRow{
			PersonID:    n.PersonID,
			NoteID:      n.NoteID,
			PatternID:   m.PatternID,
			SpanStart:   m.Start,
			SpanEnd:     m.End,
			MatchedText: m.Text,
			Included:    category == "",
			ExcludedBy:  category,
		})
	}
	st.addNote(len(matches), included, excludedBy)
	return rows
}

func intermediatePath(dir, partition string) string {
	return filepath.Join(dir, partition+"_matches.csv")
}

// statsCollector aggregates counters across scan workers.
type statsCollector struct {
	mu         sync.Mutex
	partitions int
	skipped    int
	notes      int
	emptyNotes int
	undecode   int
	matched    int
	matches    int
	included   int
	excludedBy map[string]int
}

func (c *statsCollector) addSkipped() {
	c.mu.Lock()
	c.skipped++
	c.mu.Unlock()
}

func (c *statsCollector) addUndecodable(n int) {
	if n == 0 {
		return
	}
	c.mu.Lock()
	c.undecode += n
	c.mu.Unlock()
}

func (c *statsCollector) addEmptyNote() {
	c.mu.Lock()
	c.notes++
	c.emptyNotes++
	c.mu.Unlock()
}

func (c *statsCollector) addNote(matches, included int, excludedBy map[string]int) {
	c.mu.Lock()
	c.notes++
	if matches > 0 {
		c.matched++
	}
	c.matches += matches
	c.included += included
	for category, n := range excludedBy {
		c.excludedBy[category] += n
	}
	c.mu.Unlock()
}

func (c *statsCollector) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	excluded := make(map[string]int, len(c.excludedBy))
	for k, v := range c.excludedBy {
		excluded[k] = v
	}
	return Stats{
		Partitions:        c.partitions,
		SkippedPartitions: c.skipped,
		Notes:             c.notes,
		EmptyNotes:        c.emptyNotes,
		Undecodable:       c.undecode,
		MatchedNotes:      c.matched,
		Matches:           c.matches,
		Included:          c.included,
		ExcludedBy:        excluded,
	}
}
