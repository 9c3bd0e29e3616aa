package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/footprint/pkg/data"
	"github.com/tunogya/footprint/pkg/model"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func flatBars(symbol string, n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{
			Symbol: symbol,
			Date:   day0.AddDate(0, 0, i),
			Open:   10,
			High:   10.1,
			Low:    9.9,
			Close:  10,
			Volume: 1000,
		}
	}
	return bars
}

// fixture: AAA ends on an absorption bar, BBB ends quiet, CCC is too short
func fixture() []model.Bar {
	aaa := flatBars("AAA", 21)
	aaa[20].High, aaa[20].Low, aaa[20].Volume = 10, 9, 2000

	bbb := flatBars("BBB", 21)
	bbb[20].Open, bbb[20].Close = 10.5, 10.5
	bbb[20].High, bbb[20].Low = 10.6, 10.4

	bars := append(aaa, bbb...)
	return append(bars, flatBars("CCC", 5)...)
}

func newTestServer(t *testing.T, p data.BarProvider) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(p, WithConcurrency(2))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

func TestLatestSignals(t *testing.T) {
	_, ts := newTestServer(t, data.NewMemoryProvider(fixture()))

	var records []model.Record
	resp := getJSON(t, ts.URL+"/api/signals", &records)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	require.Len(t, records, 1)
	assert.Equal(t, model.Record{
		Symbol:  "AAA",
		Date:    "2024-01-21",
		Close:   10,
		Volume:  2000,
		Signals: "Near POI, Absorption (L-Shadow)",
	}, records[0])
}

func TestLatestSignalsEmptyIsArray(t *testing.T) {
	_, ts := newTestServer(t, data.NewMemoryProvider(flatBars("CCC", 5)))

	resp, err := http.Get(ts.URL + "/api/signals")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "[]", string(raw))
}

func TestHistorical(t *testing.T) {
	_, ts := newTestServer(t, data.NewMemoryProvider(fixture()))

	resp, err := http.Get(ts.URL + "/api/historical/bbb")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-21", rows[0]["Date"])
	assert.Equal(t, "", rows[0]["Signals"])
	assert.NotContains(t, rows[0], "Symbol")
}

func TestHistoricalShortSymbolIsEmpty(t *testing.T) {
	_, ts := newTestServer(t, data.NewMemoryProvider(fixture()))

	var records []model.Record
	resp := getJSON(t, ts.URL+"/api/historical/CCC", &records)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestHistoricalUnknownSymbol(t *testing.T) {
	_, ts := newTestServer(t, data.NewMemoryProvider(fixture()))

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/historical/NOPE", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Symbol not found", body["error"])
}

type failingProvider struct{ err error }

func (p failingProvider) Symbols(context.Context) ([]string, error) { return nil, p.err }

func (p failingProvider) FetchBars(context.Context, string) ([]model.Bar, error) {
	return nil, p.err
}

func (p failingProvider) FetchLatestBars(context.Context, string, int) ([]model.Bar, error) {
	return nil, p.err
}

func TestProviderErrors(t *testing.T) {
	_, ts := newTestServer(t, failingProvider{errors.New("sheet unavailable")})

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/signals", &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["error"], "sheet unavailable")

	_, ts = newTestServer(t, failingProvider{model.ErrInvalidInput})
	resp = getJSON(t, ts.URL+"/api/historical/AAA", &body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCORSAndHealth(t *testing.T) {
	_, ts := newTestServer(t, data.NewMemoryProvider(nil))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.test")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebsocketBroadcast(t *testing.T) {
	srv, ts := newTestServer(t, data.NewMemoryProvider(nil))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/signals"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.Hub().Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	want := model.Record{Symbol: "AAA", Date: "2024-01-21", Close: 10, Volume: 2000, Signals: "Near POI"}
	srv.Hub().Broadcast(want)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got model.Record
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want, got)
}
