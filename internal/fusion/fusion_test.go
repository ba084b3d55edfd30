package fusion

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

func fullBundle() models.SignalBundle {
	return models.SignalBundle{
		Ticker:         "TEST",
		Date:           time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		RSI:            models.Signal(62),
		ROCZ:           models.Signal(0.8),
		SMADevZ:        models.Signal(0.4),
		BandwidthZ:     models.Signal(0.2),
		Sentiment:      models.Signal(0.5),
		Attention:      models.Signal(0.7),
		VolumeAnomaly:  models.Signal(1.8),
		VolumeAccelZ:   models.Signal(0.6),
		RelativeReturn: models.Signal(0.03),
	}
}

func TestComputePressure_Bounds(t *testing.T) {
	e := NewEngine(ProfileHybrid)
	score, err := e.ComputePressure(fullBundle())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Value < 0 || score.Value > 100 {
		t.Errorf("score out of [0,100]: %f", score.Value)
	}
	if score.Value <= 50 {
		t.Errorf("expected bullish score > 50 for bullish bundle, got %f", score.Value)
	}
}

func TestComputePressure_ExtremeBundlesStayInBounds(t *testing.T) {
	e := NewEngine(ProfileHybrid)
	bull := fullBundle()
	bull.RSI = models.Signal(100)
	bull.ROCZ = models.Signal(50)
	bull.SMADevZ = models.Signal(50)
	bull.BandwidthZ = models.Signal(50)
	bull.Sentiment = models.Signal(1)
	bull.VolumeAnomaly = models.Signal(100)
	bull.VolumeAccelZ = models.Signal(50)
	bull.RelativeReturn = models.Signal(5)

	bear := fullBundle()
	bear.RSI = models.Signal(0)
	bear.ROCZ = models.Signal(-50)
	bear.SMADevZ = models.Signal(-50)
	bear.BandwidthZ = models.Signal(-50)
	bear.Sentiment = models.Signal(-1)
	bear.VolumeAnomaly = models.Signal(0)
	bear.VolumeAccelZ = models.Signal(-50)
	bear.RelativeReturn = models.Signal(-5)

	for _, b := range []models.SignalBundle{bull, bear} {
		score, err := e.ComputePressure(b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if score.Value < 0 || score.Value > 100 {
			t.Errorf("score out of [0,100]: %f", score.Value)
		}
	}
}

func TestComputePressure_Monotonicity(t *testing.T) {
	e := NewEngine(ProfileHybrid)
	base := fullBundle()
	baseScore, err := e.ComputePressure(base)
	if err != nil {
		t.Fatal(err)
	}

	bump := []func(*models.SignalBundle){
		func(b *models.SignalBundle) { b.RSI = models.Signal(b.RSI.Value + 10) },
		func(b *models.SignalBundle) { b.ROCZ = models.Signal(b.ROCZ.Value + 0.5) },
		func(b *models.SignalBundle) { b.SMADevZ = models.Signal(b.SMADevZ.Value + 0.5) },
		func(b *models.SignalBundle) { b.BandwidthZ = models.Signal(b.BandwidthZ.Value + 0.5) },
		func(b *models.SignalBundle) { b.Sentiment = models.Signal(b.Sentiment.Value + 0.2) },
		func(b *models.SignalBundle) { b.VolumeAnomaly = models.Signal(b.VolumeAnomaly.Value + 0.5) },
		func(b *models.SignalBundle) { b.VolumeAccelZ = models.Signal(b.VolumeAccelZ.Value + 0.5) },
		func(b *models.SignalBundle) { b.RelativeReturn = models.Signal(b.RelativeReturn.Value + 0.02) },
	}
	for i, fn := range bump {
		b := fullBundle()
		fn(&b)
		score, err := e.ComputePressure(b)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if score.Value < baseScore.Value {
			t.Errorf("case %d: increasing a sub-signal decreased the score: %f -> %f",
				i, baseScore.Value, score.Value)
		}
	}
}

func TestComputePressure_MissingBucketRenormalizes(t *testing.T) {
	e := NewEngine(ProfileHybrid)
	b := fullBundle()
	// Knock out the entire volatility bucket.
	b.BandwidthZ = models.NoSignal

	score, err := e.ComputePressure(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := score.Breakdown["volatility"]; ok {
		t.Error("missing bucket must not appear in the breakdown")
	}

	// The remaining effective weights must sum to exactly 1.0: with bucket
	// scores of 1.0 the contributions would sum to 100. Equivalently,
	// contribution/score summed over buckets equals 100 within 1e-9.
	trend, trendOK := e.trendScore(b)
	retail, retailOK := e.retailScore(b)
	if !trendOK || !retailOK {
		t.Fatal("expected trend and retail buckets to remain valid")
	}
	effWeightSum := score.Breakdown["trend"]/(trend*100) + score.Breakdown["retail"]/(retail*100)
	if math.Abs(effWeightSum-1.0) > 1e-9 {
		t.Errorf("renormalized weights sum to %.12f, want 1.0", effWeightSum)
	}
}

func TestComputePressure_AllMissing(t *testing.T) {
	e := NewEngine(ProfileHybrid)
	_, err := e.ComputePressure(models.SignalBundle{Ticker: "EMPTY"})
	if err == nil {
		t.Fatal("expected error when every bucket is missing")
	}
	var ise *InsufficientSignalError
	if !errors.As(err, &ise) {
		t.Fatalf("expected *InsufficientSignalError, got %T", err)
	}
	if ise.Ticker != "EMPTY" {
		t.Errorf("error should carry the ticker, got %q", ise.Ticker)
	}
}

func TestComputePressure_ZeroIsValidNotMissing(t *testing.T) {
	e := NewEngine(ProfileHybrid)
	b := models.SignalBundle{
		Ticker:    "TEST",
		Sentiment: models.Signal(-1), // maximally bearish, still a signal
	}
	score, err := e.ComputePressure(b)
	if err != nil {
		t.Fatalf("a bearish-only bundle must still score: %v", err)
	}
	if score.Value != 0 {
		t.Errorf("expected 0 for a maximally bearish single signal, got %f", score.Value)
	}
}

func TestComputePressure_Deterministic(t *testing.T) {
	e := NewEngine(ProfileHybrid)
	b := fullBundle()
	first, err := e.ComputePressure(b)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := e.ComputePressure(b)
		if err != nil {
			t.Fatal(err)
		}
		if again.Value != first.Value {
			t.Fatalf("non-deterministic score: %f vs %f", first.Value, again.Value)
		}
	}
}

func TestComputePressure_ClassicProfile(t *testing.T) {
	e := NewEngine(ProfileClassic)
	score, err := e.ComputePressure(fullBundle())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"trend", "volatility", "sentiment", "attention"} {
		if _, ok := score.Breakdown[name]; !ok {
			t.Errorf("classic profile breakdown missing bucket %q", name)
		}
	}
	if _, ok := score.Breakdown["retail"]; ok {
		t.Error("classic profile must not carry a retail bucket")
	}
}

func TestDefaultWeights_RetailSubWeightsSumToOne(t *testing.T) {
	w := DefaultWeights(ProfileHybrid)
	sum := w.RetailSentiment + w.RetailAnomaly + w.RetailAcceleration
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("retail sub-weights sum to %f, want 1.0", sum)
	}
	if math.Abs(w.Trend+w.Volatility+w.Retail-1.0) > 1e-9 {
		t.Error("hybrid bucket weights must sum to 1.0")
	}
	cw := DefaultWeights(ProfileClassic)
	if math.Abs(cw.Trend+cw.Volatility+cw.Sentiment+cw.Attention-1.0) > 1e-9 {
		t.Error("classic bucket weights must sum to 1.0")
	}
}
