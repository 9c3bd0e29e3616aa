package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tunogya/footprint/pkg/model"
)

// Accepted date layouts for the Date column
var dateLayouts = []string{
	model.DateLayout,
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Required columns, matched case-insensitively after trimming
var requiredColumns = []string{"symbol", "date", "open", "high", "low", "close", "volume"}

// CSVProvider implements BarProvider over a sheet export with the columns
// Symbol, Date, Open, High, Low, Close, Volume. The source is a file path
// or an http(s) URL. URL sources are fetched again on every call; file
// sources are read once.
type CSVProvider struct {
	source string
	client *http.Client

	mu      sync.Mutex
	cached  *MemoryProvider
	skipped int
}

// NewCSVProvider creates a new CSV-based bar provider
func NewCSVProvider(source string) *CSVProvider {
	return &CSVProvider{
		source: source,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient replaces the client used for URL sources
func (p *CSVProvider) WithHTTPClient(c *http.Client) *CSVProvider {
	p.client = c
	return p
}

// Skipped returns the number of rows dropped by the last load
func (p *CSVProvider) Skipped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipped
}

func (p *CSVProvider) isRemote() bool {
	return strings.HasPrefix(p.source, "http://") || strings.HasPrefix(p.source, "https://")
}

// load returns a snapshot provider for this call
func (p *CSVProvider) load(ctx context.Context) (*MemoryProvider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && !p.isRemote() {
		return p.cached, nil
	}

	rc, err := p.open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	bars, skipped, err := ReadBars(rc)
	if err != nil {
		return nil, err
	}

	mem := NewMemoryProvider(bars)
	p.skipped = skipped
	if !p.isRemote() {
		p.cached = mem
	}
	return mem, nil
}

func (p *CSVProvider) open(ctx context.Context) (io.ReadCloser, error) {
	if !p.isRemote() {
		f, err := os.Open(p.source)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch CSV: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch CSV: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Symbols lists known symbols
func (p *CSVProvider) Symbols(ctx context.Context) ([]string, error) {
	mem, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return mem.Symbols(ctx)
}

// FetchBars retrieves all bars for a symbol
func (p *CSVProvider) FetchBars(ctx context.Context, symbol string) ([]model.Bar, error) {
	mem, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return mem.FetchBars(ctx, symbol)
}

// FetchLatestBars retrieves the most recent N bars
func (p *CSVProvider) FetchLatestBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error) {
	mem, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return mem.FetchLatestBars(ctx, symbol, limit)
}

// Groups returns every symbol's bars from a single read
func (p *CSVProvider) Groups(ctx context.Context, limit int) (map[string][]model.Bar, error) {
	mem, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return mem.Groups(ctx, limit)
}

// ReadBars parses a CSV table into bars. Rows with missing or non-numeric
// fields are skipped and counted; a missing required column is an error.
func ReadBars(r io.Reader) ([]model.Bar, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		colMap[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colMap[col]; !ok {
			return nil, 0, fmt.Errorf("CSV header missing column %q: %w", col, model.ErrInvalidInput)
		}
	}

	var (
		bars    []model.Bar
		skipped int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("failed to read CSV record: %w", err)
		}

		bar, err := parseRecord(record, colMap)
		if err != nil {
			skipped++
			continue
		}
		bars = append(bars, bar)
	}

	return bars, skipped, nil
}

// parseRecord parses a CSV record into a Bar
func parseRecord(record []string, colMap map[string]int) (model.Bar, error) {
	getValue := func(name string) string {
		if idx, ok := colMap[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	symbol := NormalizeSymbol(getValue("symbol"))
	if symbol == "" {
		return model.Bar{}, fmt.Errorf("missing symbol")
	}

	date, err := parseDate(getValue("date"))
	if err != nil {
		return model.Bar{}, err
	}

	var prices [4]float64
	for i, col := range [...]string{"open", "high", "low", "close"} {
		v, err := parseNumber(getValue(col))
		if err != nil {
			return model.Bar{}, fmt.Errorf("invalid %s: %w", col, err)
		}
		prices[i] = v
	}

	if prices[1] < prices[2] {
		return model.Bar{}, fmt.Errorf("high %v below low %v", prices[1], prices[2])
	}

	volume, err := parseNumber(getValue("volume"))
	if err != nil {
		return model.Bar{}, fmt.Errorf("invalid volume: %w", err)
	}
	if volume < 0 {
		return model.Bar{}, fmt.Errorf("negative volume")
	}

	return model.Bar{
		Symbol: symbol,
		Date:   date,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: int64(volume),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseNumber accepts thousands separators ("1,234.5")
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// WriteBars writes bars in the sheet layout read by ReadBars
func WriteBars(w io.Writer, bars []model.Bar) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Symbol", "Date", "Open", "High", "Low", "Close", "Volume"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range bars {
		b := &bars[i]
		row := []string{
			b.Symbol,
			b.DateString(),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatInt(b.Volume, 10),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
