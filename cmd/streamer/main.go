package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tunogya/footprint/pkg/analysis"
	"github.com/tunogya/footprint/pkg/config"
	"github.com/tunogya/footprint/pkg/logx"
	"github.com/tunogya/footprint/pkg/metrics"
	"github.com/tunogya/footprint/pkg/model"
	"github.com/tunogya/footprint/pkg/queue/nats"
	"github.com/tunogya/footprint/pkg/store/duckdb"
	"github.com/tunogya/footprint/pkg/window"
)

// Flags holds command-line overrides
type Flags struct {
	ConfigPath   string
	DuckDBPath   string
	NATSURL      string
	ConsumerName string
	MetricsAddr  string
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("load config")
	}
	if flags.DuckDBPath != "" {
		cfg.DuckDBPath = flags.DuckDBPath
	}
	if flags.NATSURL != "" {
		cfg.NATSURL = flags.NATSURL
	}
	if cfg.DuckDBPath == "" {
		cfg.DuckDBPath = "footprint.duckdb"
	}

	log := logx.New(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("path", cfg.DuckDBPath).Msg("connecting to DuckDB")
	duckClient, err := duckdb.Open(cfg.DuckDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open DuckDB")
	}
	defer duckClient.Close()

	barRepo := duckdb.NewBarRepo(duckClient)
	signalRepo := duckdb.NewSignalRepo(duckClient)

	tracker := window.NewTracker(model.LatestTailBars, analysis.NewEngine())
	seeded, err := seed(ctx, tracker, barRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("seed windows")
	}
	log.Info().Int("symbols", seeded).Msg("windows seeded from DuckDB")

	log.Info().Str("url", cfg.NATSURL).Msg("connecting to NATS")
	natsClient, err := nats.NewClient(nats.Config{URL: cfg.NATSURL, Name: "footprint-streamer"})
	if err != nil {
		log.Fatal().Err(err).Msg("connect to NATS")
	}
	defer natsClient.Close()

	if err := natsClient.CreateStream(ctx, []string{nats.SubjectBarWrite}); err != nil {
		log.Fatal().Err(err).Msg("create stream")
	}

	runID := uuid.NewString()
	w := newWorker(log, barRepo, signalRepo, tracker, natsClient, runID)

	consumeCtx, err := natsClient.Subscribe(ctx, nats.SubjectBarWrite, flags.ConsumerName, w.handle)
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe")
	}
	defer consumeCtx.Stop()

	log.Info().
		Str("subject", nats.SubjectBarWrite).
		Str("consumer", flags.ConsumerName).
		Str("run_id", runID).
		Msg("streamer started")

	if flags.MetricsAddr != "" {
		metricsSrv := metrics.Serve(flags.MetricsAddr)
		defer metricsSrv.Close()
		log.Info().Str("addr", flags.MetricsAddr).Msg("metrics listening")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
}

// seed fills the tracker with the stored tail of every symbol
func seed(ctx context.Context, tracker *window.Tracker, repo *duckdb.BarRepo) (int, error) {
	symbols, err := repo.Symbols(ctx)
	if err != nil {
		return 0, err
	}
	for _, symbol := range symbols {
		bars, err := repo.FetchLatestBars(ctx, symbol, model.LatestTailBars)
		if err != nil {
			return 0, err
		}
		tracker.Seed(bars)
	}
	return len(symbols), nil
}

func parseFlags() Flags {
	f := Flags{}

	flag.StringVar(&f.ConfigPath, "config", "", "YAML config file")
	flag.StringVar(&f.DuckDBPath, "duckdb", "", "DuckDB file path")
	flag.StringVar(&f.NATSURL, "nats", "", "NATS server URL")
	flag.StringVar(&f.ConsumerName, "consumer", "bar-writer", "Durable consumer name")
	flag.StringVar(&f.MetricsAddr, "metrics", "", "Serve prometheus metrics on this address")

	flag.Parse()
	return f
}
