package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"

	"github.com/tunogya/footprint/pkg/analysis"
	"github.com/tunogya/footprint/pkg/config"
	"github.com/tunogya/footprint/pkg/data"
	"github.com/tunogya/footprint/pkg/logx"
	"github.com/tunogya/footprint/pkg/model"
	"github.com/tunogya/footprint/pkg/store/duckdb"
)

// Flags holds scan options
type Flags struct {
	ConfigPath  string
	Source      string
	Symbol      string
	OnlySignals bool
	DuckDBPath  string
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)
	buyerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	sellerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	poiStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6"))
	absorptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a855f7"))
	titleStyle      = lipgloss.NewStyle().Bold(true).MarginBottom(1)
)

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("load config")
	}
	if flags.Source != "" {
		cfg.Source = flags.Source
	}

	log := logx.New(cfg.LogLevel, true)
	ctx := context.Background()

	if flags.DuckDBPath != "" {
		title, records, err := storedRun(ctx, flags.DuckDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("read stored run")
		}
		show(title, withSignals(records))
		return
	}

	if cfg.Source == "" {
		log.Fatal().Msg("no source given: use -source or FOOTPRINT_SOURCE")
	}

	provider := data.Open(cfg.Source)

	var (
		title   string
		records []model.Record
	)
	if flags.Symbol == "" {
		groups, err := data.LoadGroups(ctx, provider, model.LatestTailBars)
		if err != nil {
			log.Fatal().Err(err).Msg("load bars")
		}
		scanner := analysis.NewScanner(analysis.NewEngine(), cfg.Concurrency)
		records, err = scanner.ScanLatest(ctx, groups)
		if err != nil {
			log.Fatal().Err(err).Msg("scan")
		}
		title = fmt.Sprintf("Latest signals across %d symbols", len(groups))
	} else {
		symbol := data.NormalizeSymbol(flags.Symbol)
		bars, err := provider.FetchBars(ctx, symbol)
		if err != nil {
			log.Fatal().Err(err).Msg("load bars")
		}
		if len(bars) == 0 {
			log.Fatal().Str("symbol", symbol).Msg("symbol not found")
		}
		records, err = analysis.History(bars)
		if err != nil {
			log.Fatal().Err(err).Msg("classify")
		}
		for i := range records {
			records[i].Symbol = symbol
		}
		if flags.OnlySignals {
			records = withSignals(records)
		}
		title = fmt.Sprintf("%s: %d classified bars", symbol, len(records))
	}

	show(title, records)
}

func show(title string, records []model.Record) {
	fmt.Println(titleStyle.Render(title))
	if len(records) == 0 {
		fmt.Println("No signals.")
		return
	}
	fmt.Println(render(records))
}

// storedRun loads the most recent signal run written by backfill
func storedRun(ctx context.Context, path string) (string, []model.Record, error) {
	client, err := duckdb.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer client.Close()

	repo := duckdb.NewSignalRepo(client)
	runID, err := repo.LatestRun(ctx)
	if err != nil {
		return "", nil, err
	}
	if runID == "" {
		return "No stored runs", nil, nil
	}
	records, err := repo.GetByRun(ctx, runID)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Run %s: %d classified bars", runID, len(records)), records, nil
}

func withSignals(records []model.Record) []model.Record {
	out := records[:0]
	for _, r := range records {
		if r.HasSignals() {
			out = append(out, r)
		}
	}
	return out
}

func render(records []model.Record) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Symbol", "Date", "Close", "Volume", "Signals").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range records {
		t.Row(
			r.Symbol,
			r.Date,
			strconv.FormatFloat(r.Close, 'f', 2, 64),
			strconv.FormatInt(r.Volume, 10),
			colorSignals(r.Signals),
		)
	}
	return t.Render()
}

// colorSignals styles each label by its family
func colorSignals(s string) string {
	labels := model.ParseLabels(s).Labels()
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = styleFor(l).Render(string(l))
	}
	return strings.Join(parts, model.LabelSeparator)
}

func styleFor(l model.Label) lipgloss.Style {
	switch l {
	case model.AggressiveBuyer:
		return buyerStyle
	case model.AggressiveSeller:
		return sellerStyle
	case model.NearPOI, model.PointOfRelease:
		return poiStyle
	default:
		return absorptionStyle
	}
}

func parseFlags() Flags {
	f := Flags{}

	flag.StringVar(&f.ConfigPath, "config", "", "YAML config file")
	flag.StringVar(&f.Source, "source", "", "CSV path, sheet URL or parquet file")
	flag.StringVar(&f.Symbol, "symbol", "", "Show full history for one symbol instead of the latest scan")
	flag.BoolVar(&f.OnlySignals, "only-signals", false, "With -symbol, hide bars without signals")
	flag.StringVar(&f.DuckDBPath, "stored", "", "Show the last backfill run stored in this DuckDB file")

	flag.Parse()
	return f
}
