package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/footprint/pkg/model"
	"github.com/tunogya/footprint/pkg/queue/nats"
	"github.com/tunogya/footprint/pkg/window"
)

type memBars struct{ bars []model.Bar }

func (m *memBars) InsertBatch(_ context.Context, bars []model.Bar) error {
	m.bars = append(m.bars, bars...)
	return nil
}

type flakySignals struct {
	failures int
	stored   []model.Record
}

func (f *flakySignals) InsertBatch(_ context.Context, _ string, records []model.Record) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("disk full")
	}
	f.stored = append(f.stored, records...)
	return nil
}

type capturePublisher struct{ msgs []*nats.SignalMsg }

func (c *capturePublisher) PublishCore(subject string, payload []byte) error {
	msg, err := nats.DecodeSignal(payload)
	if err != nil {
		return err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func flatBar(i int) model.Bar {
	return model.Bar{
		Symbol: "X",
		Date:   day0.AddDate(0, 0, i),
		Open:   10,
		High:   10.1,
		Low:    9.9,
		Close:  10,
		Volume: 1000,
	}
}

func seededWorker(t *testing.T, signals signalStore, pub publisher) *worker {
	t.Helper()
	tracker := window.NewTracker(model.LatestTailBars, nil)
	var seed []model.Bar
	for i := 0; i < 24; i++ {
		seed = append(seed, flatBar(i))
	}
	tracker.Seed(seed)
	return newWorker(zerolog.Nop(), &memBars{}, signals, tracker, pub, "run-1")
}

func batch(t *testing.T, bars ...model.Bar) []byte {
	t.Helper()
	payload, err := nats.Encode(nats.BarBatchMsg{Bars: bars})
	require.NoError(t, err)
	return payload
}

func TestWorkerRedeliveryAfterStoreFailure(t *testing.T) {
	signals := &flakySignals{failures: 1}
	pub := &capturePublisher{}
	w := seededWorker(t, signals, pub)
	payload := batch(t, flatBar(24))

	require.Error(t, w.process(context.Background(), payload))
	assert.Empty(t, pub.msgs)

	require.NoError(t, w.process(context.Background(), payload))
	require.Len(t, signals.stored, 1)
	assert.Equal(t, "2024-01-25", signals.stored[0].Date)
	assert.Equal(t, "Near POI", signals.stored[0].Signals)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "run-1", pub.msgs[0].RunID)
	assert.Equal(t, signals.stored[0], pub.msgs[0].Record)
}

func TestWorkerReevaluatesCorrectedBar(t *testing.T) {
	signals := &flakySignals{}
	w := seededWorker(t, signals, &capturePublisher{})

	require.NoError(t, w.process(context.Background(), batch(t, flatBar(24))))

	corrected := flatBar(24)
	corrected.Close = 12
	corrected.High = 12
	require.NoError(t, w.process(context.Background(), batch(t, corrected)))

	require.Len(t, signals.stored, 2)
	assert.Equal(t, 12.0, signals.stored[1].Close)
	assert.Equal(t, 25, w.tracker.Size("X"))
}

func TestWorkerDropsStaleAndUndecodable(t *testing.T) {
	signals := &flakySignals{}
	w := seededWorker(t, signals, &capturePublisher{})

	assert.NoError(t, w.process(context.Background(), []byte("not json")))
	assert.NoError(t, w.process(context.Background(), batch(t, flatBar(3))))
	assert.Empty(t, signals.stored)
}
