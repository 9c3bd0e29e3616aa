package data

import (
	"path/filepath"
	"strings"
)

// Open picks a provider from the source: .parquet files use
// ParquetProvider, anything else (CSV path or URL) uses CSVProvider
func Open(source string) BarProvider {
	if strings.EqualFold(filepath.Ext(source), ".parquet") {
		return NewParquetProvider(source)
	}
	return NewCSVProvider(source)
}
