package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

func writeCSV(t *testing.T, dir, ticker, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ticker+".csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCSVSource_DailyBars(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "AAA", `date,open,high,low,close,volume
2024-01-02,100,102,99,101,50000
2024-01-03,101,103,100,102.5,60000
2024-01-04,102.5,104,101,103,55000
`)

	src := NewCSVSource(dir)
	bars, err := src.DailyBars(context.Background(), "aaa")
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	want := models.PriceBar{
		Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		Open: 101, High: 103, Low: 100, Close: 102.5, Volume: 60000,
	}
	if bars[1] != want {
		t.Errorf("bar mismatch: got %+v want %+v", bars[1], want)
	}
}

func TestCSVSource_MissingTicker(t *testing.T) {
	src := NewCSVSource(t.TempDir())
	_, err := src.DailyBars(context.Background(), "NOPE")
	if !errors.Is(err, ErrTickerNotFound) {
		t.Fatalf("expected ErrTickerNotFound, got %v", err)
	}
}

func TestCSVSource_RejectsUnsortedFile(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BAD", `date,open,high,low,close,volume
2024-01-03,101,103,100,102,60000
2024-01-02,100,102,99,101,50000
`)
	src := NewCSVSource(dir)
	_, err := src.DailyBars(context.Background(), "BAD")
	var se *models.SeriesError
	if !errors.As(err, &se) {
		t.Fatalf("expected *models.SeriesError, got %v", err)
	}
}

func TestCSVSource_RejectsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	for ticker, content := range map[string]string{
		"BADDATE": "date,open,high,low,close,volume\nJan 2,100,102,99,101,50000\n",
		"BADNUM":  "date,open,high,low,close,volume\n2024-01-02,abc,102,99,101,50000\n",
		"EMPTY":   "date,open,high,low,close,volume\n",
	} {
		writeCSV(t, dir, ticker, content)
		if _, err := NewCSVSource(dir).DailyBars(context.Background(), ticker); err == nil {
			t.Errorf("%s: expected parse error", ticker)
		}
	}
}

// --- resolver ---

type stubSource struct {
	name string
	bars []models.PriceBar
	err  error
	hits int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) DailyBars(_ context.Context, _ string) ([]models.PriceBar, error) {
	s.hits++
	return s.bars, s.err
}

func TestResolver_PrimaryWins(t *testing.T) {
	bars := []models.PriceBar{{Date: time.Now(), Close: 100}}
	primary := &stubSource{name: "primary", bars: bars}
	fallback := &stubSource{name: "fallback"}

	got, err := NewResolver(primary, fallback).DailyBars(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if len(got) != 1 || fallback.hits != 0 {
		t.Error("primary success must not consult the fallback")
	}
}

func TestResolver_FallsThrough(t *testing.T) {
	bars := []models.PriceBar{{Date: time.Now(), Close: 100}}
	primary := &stubSource{name: "primary", err: ErrTickerNotFound}
	fallback := &stubSource{name: "fallback", bars: bars}

	got, err := NewResolver(primary, fallback).DailyBars(context.Background(), "AAA")
	if err != nil {
		t.Fatalf("DailyBars: %v", err)
	}
	if len(got) != 1 || primary.hits != 1 {
		t.Error("resolver must try primary first, then fall back")
	}
}

func TestResolver_AllFail(t *testing.T) {
	primary := &stubSource{name: "primary", err: ErrTickerNotFound}
	fallback := &stubSource{name: "fallback", err: errors.New("feed down")}

	_, err := NewResolver(primary, fallback).DailyBars(context.Background(), "AAA")
	if err == nil {
		t.Fatal("expected error when every source fails")
	}
	if !errors.Is(err, ErrTickerNotFound) {
		t.Error("joined error must preserve the not-found cause")
	}

	if _, err := NewResolver().DailyBars(context.Background(), "AAA"); err == nil {
		t.Error("empty chain must fail")
	}
}

// --- news helpers ---

func TestCleanHTML(t *testing.T) {
	got := cleanHTML(`<p>Shares <b>surge</b> on earnings</p>`)
	if got != "Shares surge on earnings" {
		t.Errorf("cleanHTML: %q", got)
	}
	if cleanHTML("") != "" {
		t.Error("empty input stays empty")
	}
}

func TestNewsKeywordMatching(t *testing.T) {
	n := NewNewsWithFeeds(nil, map[string][]string{"AAPL": {"apple"}})
	kws := n.keywords("AAPL")
	if !matchesAny("Apple unveils new chip", kws) {
		t.Error("alias should match")
	}
	if !matchesAny("AAPL falls 3%", kws) {
		t.Error("ticker should match")
	}
	if matchesAny("Banana futures rally", kws) {
		t.Error("unrelated text should not match")
	}
}

// --- cache and limiter ---

func TestCache(t *testing.T) {
	c := NewCache(50 * time.Millisecond)
	c.Set("k", 42)
	if v, ok := c.Get("k"); !ok || v.(int) != 42 {
		t.Fatal("expected cache hit")
	}

	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Error("invalidated key must miss")
	}

	c.Set("k", 1)
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired key must miss")
	}
}

func TestRateLimiterCancelled(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("expected cancellation while exhausted")
	}
}
