package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tunogya/footprint/pkg/analysis"
	"github.com/tunogya/footprint/pkg/config"
	"github.com/tunogya/footprint/pkg/data"
	"github.com/tunogya/footprint/pkg/logx"
	"github.com/tunogya/footprint/pkg/model"
	"github.com/tunogya/footprint/pkg/queue/nats"
	"github.com/tunogya/footprint/pkg/store/duckdb"
)

// Config holds backfill options
type Config struct {
	ConfigPath  string
	Source      string
	DuckDBPath  string
	ExportPath  string
	Publish     bool
	Reset       bool
	Concurrency int
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("load config")
	}
	if flags.Source != "" {
		cfg.Source = flags.Source
	}
	if flags.DuckDBPath != "" {
		cfg.DuckDBPath = flags.DuckDBPath
	}
	if flags.Concurrency > 0 {
		cfg.Concurrency = flags.Concurrency
	}

	log := logx.New(cfg.LogLevel, cfg.LogPretty)
	if cfg.Source == "" {
		log.Fatal().Msg("no source given: use -source or FOOTPRINT_SOURCE")
	}
	if cfg.DuckDBPath == "" {
		cfg.DuckDBPath = "footprint.duckdb"
	}

	ctx := context.Background()

	log.Info().Str("source", cfg.Source).Msg("loading bars")
	groups, err := data.LoadGroups(ctx, data.Open(cfg.Source), 0)
	if err != nil {
		log.Fatal().Err(err).Msg("load bars")
	}
	total := 0
	for _, bars := range groups {
		total += len(bars)
	}
	log.Info().Int("symbols", len(groups)).Int("bars", total).Msg("bars loaded")

	log.Info().Str("path", cfg.DuckDBPath).Msg("connecting to DuckDB")
	duckClient, err := duckdb.Open(cfg.DuckDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open DuckDB")
	}
	defer duckClient.Close()

	if flags.Reset {
		if err := duckdb.DropAllTables(ctx, duckClient); err != nil {
			log.Fatal().Err(err).Msg("drop tables")
		}
		if err := duckdb.InitializeSchema(ctx, duckClient); err != nil {
			log.Fatal().Err(err).Msg("create tables")
		}
		log.Warn().Msg("stored bars and signals dropped")
	}

	barRepo := duckdb.NewBarRepo(duckClient)
	signalRepo := duckdb.NewSignalRepo(duckClient)

	for symbol, bars := range groups {
		if err := barRepo.InsertBatch(ctx, bars); err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("store bars")
		}
	}

	scanner := analysis.NewScanner(analysis.NewEngine(), cfg.Concurrency)
	history, err := scanner.ScanHistory(ctx, groups)
	if err != nil {
		log.Fatal().Err(err).Msg("classify history")
	}

	runID := uuid.NewString()
	var records []model.Record
	flagged := 0
	for _, symbol := range sortedSymbols(history) {
		for _, rec := range history[symbol] {
			if rec.HasSignals() {
				flagged++
			}
			records = append(records, rec)
		}
	}
	if err := signalRepo.InsertBatch(ctx, runID, records); err != nil {
		log.Fatal().Err(err).Msg("store signals")
	}
	log.Info().
		Str("run_id", runID).
		Int("records", len(records)).
		Int("with_signals", flagged).
		Msg("signal run stored")

	if flags.ExportPath != "" {
		var all []model.Bar
		for _, symbol := range sortedSymbols(groups) {
			all = append(all, groups[symbol]...)
		}
		if err := data.WriteParquet(flags.ExportPath, all); err != nil {
			log.Fatal().Err(err).Msg("export parquet")
		}
		log.Info().Str("path", flags.ExportPath).Msg("bars exported")
	}

	if flags.Publish {
		if err := publish(ctx, cfg.NATSURL, groups); err != nil {
			log.Fatal().Err(err).Msg("publish bars")
		}
		log.Info().Str("subject", nats.SubjectBarWrite).Msg("bars published")
	}

	log.Info().Msg("backfill completed")
}

// publish sends one bar batch per symbol to the streamer
func publish(ctx context.Context, url string, groups map[string][]model.Bar) error {
	client, err := nats.NewClient(nats.Config{URL: url, Name: "footprint-backfill"})
	if err != nil {
		return err
	}
	defer client.Drain()

	if err := client.CreateStream(ctx, []string{nats.SubjectBarWrite}); err != nil {
		return err
	}

	for _, symbol := range sortedSymbols(groups) {
		payload, err := nats.Encode(nats.BarBatchMsg{Bars: groups[symbol]})
		if err != nil {
			return fmt.Errorf("encode %s: %w", symbol, err)
		}
		if err := client.Publish(ctx, nats.SubjectBarWrite, payload); err != nil {
			return err
		}
	}
	return nil
}

func sortedSymbols[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.ConfigPath, "config", "", "YAML config file")
	flag.StringVar(&cfg.Source, "source", "", "CSV path, sheet URL or parquet file")
	flag.StringVar(&cfg.DuckDBPath, "duckdb", "", "DuckDB file path")
	flag.StringVar(&cfg.ExportPath, "export", "", "Also write all bars to this parquet file")
	flag.BoolVar(&cfg.Publish, "publish", false, "Publish bar batches to NATS for the streamer")
	flag.BoolVar(&cfg.Reset, "reset", false, "Drop stored bars and signal runs first")
	flag.IntVar(&cfg.Concurrency, "concurrency", 0, "Symbols classified in parallel")

	flag.Parse()
	return cfg
}
