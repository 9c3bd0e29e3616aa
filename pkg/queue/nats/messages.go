package nats

import (
	"encoding/json"

	"github.com/tunogya/footprint/pkg/model"
)

// Subject constants
const (
	SubjectBarWrite = "footprint.bars.write"
	SubjectSignals  = "footprint.signals"
)

// BarBatchMsg carries bars to be stored and evaluated, oldest first per symbol
type BarBatchMsg struct {
	Bars []model.Bar `json:"bars"`
}

// SignalMsg carries one latest-only record produced by the streamer
type SignalMsg struct {
	RunID  string       `json:"run_id,omitempty"`
	Record model.Record `json:"record"`
}

// Encode serializes a message to JSON bytes
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeBarBatch deserializes a BarBatchMsg from JSON bytes
func DecodeBarBatch(data []byte) (*BarBatchMsg, error) {
	var msg BarBatchMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DecodeSignal deserializes a SignalMsg from JSON bytes
func DecodeSignal(data []byte) (*SignalMsg, error) {
	var msg SignalMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
