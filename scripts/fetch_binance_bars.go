package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tunogya/footprint/pkg/data"
	"github.com/tunogya/footprint/pkg/logx"
	"github.com/tunogya/footprint/pkg/model"
)

// Fetches daily klines from Binance and writes them as a Symbol/Date/OHLCV
// sheet that the CSV provider can read.
func main() {
	symbols := flag.String("symbols", "BTCUSDT,ETHUSDT", "Comma-separated trading symbols")
	limit := flag.Int("limit", 365, "Number of daily klines per symbol (max 1000)")
	output := flag.String("output", "data/bars.csv", "Output CSV file path")
	flag.Parse()

	log := logx.New("info", true)
	client := &http.Client{Timeout: 30 * time.Second}

	var all []model.Bar
	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = data.NormalizeSymbol(symbol)
		if symbol == "" {
			continue
		}
		log.Info().Str("symbol", symbol).Msg("fetching daily klines")

		bars, err := fetch(client, symbol, *limit)
		if err != nil {
			log.Fatal().Err(err).Str("symbol", symbol).Msg("fetch klines")
		}
		log.Info().Str("symbol", symbol).Int("bars", len(bars)).Msg("fetched")
		all = append(all, bars...)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		log.Fatal().Err(err).Msg("create output directory")
	}
	file, err := os.Create(*output)
	if err != nil {
		log.Fatal().Err(err).Msg("create output file")
	}
	defer file.Close()

	if err := data.WriteBars(file, all); err != nil {
		log.Fatal().Err(err).Msg("write bars")
	}
	log.Info().Str("path", *output).Int("bars", len(all)).Msg("saved")
}

func fetch(client *http.Client, symbol string, limit int) ([]model.Bar, error) {
	url := fmt.Sprintf("https://api.binance.com/api/v3/klines?symbol=%s&interval=1d&limit=%d", symbol, limit)

	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var klines [][]any
	if err := json.Unmarshal(body, &klines); err != nil {
		return nil, err
	}

	bars := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		b, err := parseKline(symbol, k)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// parseKline reads [openTimeMs, open, high, low, close, volume, ...].
// Base-asset volume is rounded to whole units.
func parseKline(symbol string, k []any) (model.Bar, error) {
	if len(k) < 6 {
		return model.Bar{}, fmt.Errorf("short kline: %v", k)
	}
	openMs, ok := k[0].(float64)
	if !ok {
		return model.Bar{}, fmt.Errorf("bad open time: %v", k[0])
	}

	var v [5]float64
	for i := range v {
		s, ok := k[i+1].(string)
		if !ok {
			return model.Bar{}, fmt.Errorf("bad field %d: %v", i+1, k[i+1])
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Bar{}, err
		}
		v[i] = f
	}

	t := time.UnixMilli(int64(openMs)).UTC()
	return model.Bar{
		Symbol: symbol,
		Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Open:   v[0],
		High:   v[1],
		Low:    v[2],
		Close:  v[3],
		Volume: int64(math.Round(v[4])),
	}, nil
}
