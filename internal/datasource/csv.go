package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// csvCacheTTL keeps parsed files hot between scoring passes.
const csvCacheTTL = 5 * time.Minute

// CSVSource serves daily bars from per-ticker CSV files in a directory.
// Files are named <TICKER>.csv with a header row and columns
// date,open,high,low,close,volume; dates are YYYY-MM-DD.
type CSVSource struct {
	dir   string
	cache *Cache
}

// NewCSVSource creates a CSV source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir, cache: NewCache(csvCacheTTL)}
}

// Name returns the data source name.
func (s *CSVSource) Name() string { return "CSV files" }

// DailyBars reads and validates the ticker's series. A missing file
// maps to ErrTickerNotFound so the resolver can fall through.
func (s *CSVSource) DailyBars(ctx context.Context, ticker string) ([]models.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := "csv:" + ticker
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]models.PriceBar), nil
	}

	path := filepath.Join(s.dir, strings.ToUpper(ticker)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", ticker, ErrTickerNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := parseBars(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := models.ValidateSeries(ticker, bars); err != nil {
		return nil, err
	}

	s.cache.Set(key, bars)
	return bars, nil
}

// parseBars reads a CSV bar series from r. The first row is a header.
func parseBars(r io.Reader) ([]models.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	bars := make([]models.PriceBar, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: want 6 columns, got %d", i+2, len(row))
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date %q: %w", i+2, row[0], err)
		}
		var vals [4]float64
		for j := 1; j <= 4; j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad value %q: %w", i+2, row[j], err)
			}
			vals[j-1] = v
		}
		vol, err := strconv.ParseInt(row[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad volume %q: %w", i+2, row[5], err)
		}
		bars = append(bars, models.PriceBar{
			Date: date, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vol,
		})
	}
	return bars, nil
}
