package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinphen/audcohort/internal/config"
	"github.com/clinphen/audcohort/internal/domain/diagnosisrule"
	"github.com/clinphen/audcohort/internal/domain/drugrule"
	"github.com/clinphen/audcohort/internal/domain/keyword"
	"github.com/clinphen/audcohort/internal/domain/report"
	"github.com/clinphen/audcohort/internal/platform/db"
	"github.com/clinphen/audcohort/internal/platform/results"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "audcohort",
		Short: "AUD phenotype cohort extraction over an OMOP warehouse",
	}

	rootCmd.AddCommand(drugCmd())
	rootCmd.AddCommand(diagnosisCmd())
	rootCmd.AddCommand(keywordsCmd())
	rootCmd.AddCommand(reportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func drugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drug",
		Short: "Extract the medication-exposure cohort",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrug()
		},
	}
}

func diagnosisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnosis",
		Short: "Extract the ICD diagnosis-rule cohort",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnosis()
		},
	}
}

func keywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords",
		Short: "Scan clinical notes for AUD keyword matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeywords()
		},
	}
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Compute cohort overlaps and phenotype-definition counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport()
		},
	}
}

// setup loads the configuration and builds the run logger shared by
// every subcommand.
func setup(component string) (*config.Config, zerolog.Logger) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	logger = logger.With().
		Str("component", component).
		Str("run_id", uuid.NewString()).
		Logger()

	if err := cfg.ValidateCommon(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg, logger
}

func openStore(cfg *config.Config, logger zerolog.Logger) *results.Store {
	store, err := results.NewStore(cfg.ResultsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open results area")
	}
	return store
}

func runDrug() error {
	cfg, logger := setup("drug-rule")
	if err := cfg.ValidateDB(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := cfg.ValidateDrug(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	concepts, err := drugrule.LoadConceptSet(cfg.ConceptsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load medication concept set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	store := openStore(cfg, logger)
	svc := drugrule.NewService(drugrule.NewExposureRepoPG(pool), concepts, store, logger)
	if _, _, err := svc.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("drug-rule extraction failed")
		return err
	}
	return nil
}

func runDiagnosis() error {
	cfg, logger := setup("diagnosis-rule")
	if err := cfg.ValidateDB(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	store := openStore(cfg, logger)
	svc := diagnosisrule.NewService(
		diagnosisrule.NewOccurrenceRepoPG(pool),
		diagnosisrule.DefaultCodeSet(),
		store, logger)
	if _, _, err := svc.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("diagnosis-rule extraction failed")
		return err
	}
	return nil
}

func runKeywords() error {
	cfg, logger := setup("keyword-engine")
	if err := cfg.ValidateKeywords(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	patterns, err := keyword.LoadPatterns(cfg.PatternsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load keyword patterns")
	}
	logger.Info().Int("patterns", len(patterns)).Msg("keyword patterns loaded")

	cues := keyword.DefaultCues()
	if cfg.CuesFile != "" {
		if cues, err = keyword.LoadCues(cfg.CuesFile); err != nil {
			logger.Fatal().Err(err).Msg("failed to load cue vocabulary")
		}
	}
	excluder, err := keyword.NewExcluder(cfg.ExclusionWindow, cues)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build exclusion rules")
	}

	ctx := context.Background()
	var source keyword.NoteSource
	if cfg.NotesDir != "" {
		source = keyword.NewFileNoteSource(cfg.NotesDir)
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		source = keyword.NewPGNoteSource(pool, cfg.ScanWorkers)
	}

	store := openStore(cfg, logger)
	svc := keyword.NewService(source, keyword.NewMatcher(patterns), excluder, store, cfg.ScanWorkers, logger)
	if _, err := svc.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("keyword extraction failed")
		return err
	}
	return nil
}

func runReport() error {
	cfg, logger := setup("report")
	store := openStore(cfg, logger)

	// A missing cohort file means the extractor has not run; fail fast
	// instead of reporting an empty cohort.
	drug, err := store.ReadCohort(results.DrugCohortFile)
	if err != nil {
		logger.Error().Err(err).Msg("drug cohort unavailable")
		return err
	}
	diagnosis, err := store.ReadCohort(results.ICDCohortFile)
	if err != nil {
		logger.Error().Err(err).Msg("diagnosis cohort unavailable")
		return err
	}
	notes, err := results.ReadMatchCohort(store.Path(results.KeywordMatchesFile))
	if err != nil {
		logger.Error().Err(err).Msg("keyword cohort unavailable")
		return err
	}

	r := report.BuildAUD(drug, diagnosis, notes)
	if err := store.WriteTable(results.SummaryFile, []string{"definition", "patient_count"}, r.SummaryRows()); err != nil {
		logger.Error().Err(err).Msg("failed to write summary")
		return err
	}
	for _, def := range r.Definitions {
		name := "cohort_" + def.Name + ".csv"
		if err := store.WriteCohort(name, def.Set); err != nil {
			logger.Error().Err(err).Msg("failed to write definition cohort")
			return err
		}
	}

	logger.Info().
		Int("medication", drug.Len()).
		Int("diagnosis", diagnosis.Len()).
		Int("notes", notes.Len()).
		Int("union", r.Union.Len()).
		Int("all_three", r.Full.Len()).
		Msg("phenotype summary written")
	return nil
}
