package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tunogya/footprint/pkg/api"
	"github.com/tunogya/footprint/pkg/config"
	"github.com/tunogya/footprint/pkg/data"
	"github.com/tunogya/footprint/pkg/logx"
	"github.com/tunogya/footprint/pkg/queue/nats"
	"github.com/tunogya/footprint/pkg/store/duckdb"
)

// Flags holds command-line overrides
type Flags struct {
	ConfigPath string
	Source     string
	DuckDBPath string
	Addr       string
	Live       bool
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("load config")
	}
	applyFlags(cfg, flags)

	log := logx.New(cfg.LogLevel, cfg.LogPretty)

	provider, closeProvider, err := openProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open bar provider")
	}
	defer closeProvider()

	srv := api.NewServer(provider, api.WithLogger(log), api.WithConcurrency(cfg.Concurrency))

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if flags.Live {
		natsClient, err := nats.NewClient(nats.Config{URL: cfg.NATSURL, Name: "footprint-server"})
		if err != nil {
			log.Fatal().Err(err).Msg("connect to NATS")
		}
		defer natsClient.Close()

		sub, err := natsClient.Listen(nats.SubjectSignals, func(payload []byte) {
			msg, err := nats.DecodeSignal(payload)
			if err != nil {
				log.Warn().Err(err).Msg("decode signal")
				return
			}
			srv.Hub().Broadcast(msg.Record)
		})
		if err != nil {
			log.Fatal().Err(err).Msg("subscribe to signals")
		}
		defer sub.Unsubscribe()
		log.Info().Str("subject", nats.SubjectSignals).Msg("relaying live signals")
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server stopped")
	}
	log.Info().Msg("shutting down")
}

func openProvider(cfg *config.Config) (data.BarProvider, func(), error) {
	if cfg.DuckDBPath != "" {
		client, err := duckdb.Open(cfg.DuckDBPath)
		if err != nil {
			return nil, nil, err
		}
		return duckdb.NewBarRepo(client), func() { client.Close() }, nil
	}
	if cfg.Source == "" {
		return nil, nil, errors.New("no bar source: set FOOTPRINT_SOURCE or FOOTPRINT_DUCKDB")
	}
	return data.Open(cfg.Source), func() {}, nil
}

func parseFlags() Flags {
	f := Flags{}

	flag.StringVar(&f.ConfigPath, "config", "", "YAML config file")
	flag.StringVar(&f.Source, "source", "", "CSV path, sheet URL or parquet file")
	flag.StringVar(&f.DuckDBPath, "duckdb", "", "DuckDB file to read bars from")
	flag.StringVar(&f.Addr, "addr", "", "HTTP listen address")
	flag.BoolVar(&f.Live, "live", false, "Relay streamer signals from NATS to websocket clients")

	flag.Parse()
	return f
}

func applyFlags(cfg *config.Config, f Flags) {
	if f.Source != "" {
		cfg.Source = f.Source
	}
	if f.DuckDBPath != "" {
		cfg.DuckDBPath = f.DuckDBPath
	}
	if f.Addr != "" {
		cfg.HTTPAddr = f.Addr
	}
}
