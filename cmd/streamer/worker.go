package main

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/tunogya/footprint/pkg/data"
	"github.com/tunogya/footprint/pkg/model"
	"github.com/tunogya/footprint/pkg/queue/nats"
	"github.com/tunogya/footprint/pkg/window"
)

type barStore interface {
	InsertBatch(ctx context.Context, bars []model.Bar) error
}

type signalStore interface {
	InsertBatch(ctx context.Context, runID string, records []model.Record) error
}

type publisher interface {
	PublishCore(subject string, data []byte) error
}

type worker struct {
	log       zerolog.Logger
	bars      barStore
	signals   signalStore
	tracker   *window.Tracker
	publisher publisher
	runID     string
}

func newWorker(log zerolog.Logger, bars barStore, signals signalStore, tracker *window.Tracker, pub publisher, runID string) *worker {
	return &worker{
		log:       log,
		bars:      bars,
		signals:   signals,
		tracker:   tracker,
		publisher: pub,
		runID:     runID,
	}
}

func (w *worker) handle(msg jetstream.Msg) error {
	return w.process(context.Background(), msg.Data())
}

// process stores a bar batch, advances each symbol's window and emits the
// new latest records. Invalid bars are logged and dropped rather than
// redelivered. When storing or publishing fails the windows are rolled
// back, so the redelivered batch produces the same records.
func (w *worker) process(ctx context.Context, payload []byte) error {
	batch, err := nats.DecodeBarBatch(payload)
	if err != nil {
		w.log.Warn().Err(err).Msg("dropping undecodable batch")
		return nil
	}

	if err := w.bars.InsertBatch(ctx, batch.Bars); err != nil {
		return err
	}

	groups := data.GroupBySymbol(batch.Bars)
	symbols := make([]string, 0, len(groups))
	for symbol := range groups {
		symbols = append(symbols, symbol)
	}
	snap := w.tracker.Snapshot(symbols...)

	if err := w.emit(ctx, groups); err != nil {
		w.tracker.Restore(snap)
		return err
	}
	return nil
}

func (w *worker) emit(ctx context.Context, groups map[string][]model.Bar) error {
	var records []model.Record
	for symbol, bars := range groups {
		for _, b := range bars {
			rec, err := w.tracker.Push(b)
			if errors.Is(err, model.ErrInvalidInput) {
				w.log.Warn().Err(err).Str("symbol", symbol).Msg("bar rejected")
				continue
			}
			if err != nil {
				return err
			}
			if rec != nil {
				records = append(records, *rec)
			}
		}
	}

	if len(records) == 0 {
		return nil
	}
	if err := w.signals.InsertBatch(ctx, w.runID, records); err != nil {
		return err
	}

	for _, rec := range records {
		if !rec.HasSignals() {
			continue
		}
		payload, err := nats.Encode(nats.SignalMsg{RunID: w.runID, Record: rec})
		if err != nil {
			return err
		}
		if err := w.publisher.PublishCore(nats.SubjectSignals, payload); err != nil {
			return err
		}
		w.log.Info().
			Str("symbol", rec.Symbol).
			Str("date", rec.Date).
			Str("signals", rec.Signals).
			Msg("signal")
	}
	return nil
}
