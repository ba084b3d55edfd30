// Pulse — retail pressure-score analytics for equities.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hylle9/ai-stock-analytics/api"
	"github.com/hylle9/ai-stock-analytics/internal/config"
	"github.com/hylle9/ai-stock-analytics/internal/datasource"
	"github.com/hylle9/ai-stock-analytics/internal/fusion"
	"github.com/hylle9/ai-stock-analytics/internal/risk"
	"github.com/hylle9/ai-stock-analytics/internal/scoring"
	"github.com/hylle9/ai-stock-analytics/internal/simulate"
	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse — retail pressure-score analytics for equities",
	Long: `Pulse fuses trend, volatility, and retail-interest signals into a
single 0-100 pressure score per ticker, simulates SMA-crossover
strategies against buy-and-hold and the market index, and reports
historical-simulation risk metrics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "CSV price series directory override")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(riskCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Wiring helpers ---

// barSource builds the price series chain: local CSV files first.
func barSource(cmd *cobra.Command) scoring.BarSource {
	dir := cfg.Data.Dir
	if override, _ := cmd.Flags().GetString("data-dir"); override != "" {
		dir = override
	}
	return datasource.NewResolver(datasource.NewCSVSource(dir))
}

func newsSource() scoring.NewsSource {
	if !cfg.Data.NewsEnabled {
		return nil
	}
	return datasource.NewNews()
}

func scoreService(cmd *cobra.Command) *scoring.Service {
	builder := scoring.NewBuilder(scoring.BuilderConfig{ZWindow: cfg.Scoring.ZWindow})
	engine := fusion.NewEngineWithWeights(fusion.Profile(cfg.Scoring.Profile), fusion.Weights{
		Trend:              cfg.Scoring.TrendWeight,
		Volatility:         cfg.Scoring.VolatilityWeight,
		Retail:             cfg.Scoring.RetailWeight,
		Sentiment:          cfg.Scoring.SentimentWeight,
		Attention:          cfg.Scoring.AttentionWeight,
		RetailSentiment:    cfg.Scoring.RetailSentiment,
		RetailAnomaly:      cfg.Scoring.RetailAnomaly,
		RetailAcceleration: cfg.Scoring.RetailAcceleration,
	})
	return scoring.NewService(barSource(cmd), newsSource(), builder, engine,
		cfg.Scoring.MarketTicker, cfg.Scoring.Concurrency)
}

func simEngine() *simulate.Engine {
	return simulate.NewEngine(simulate.Config{
		FastPeriod:       cfg.Simulation.FastPeriod,
		SlowPeriod:       cfg.Simulation.SlowPeriod,
		ConfirmBars:      cfg.Simulation.ConfirmBars,
		ReentryThreshold: cfg.Simulation.ReentryThreshold,
		ReentryWindow:    cfg.Simulation.ReentryWindow,
	})
}

func normalizeTickers(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ToUpper(strings.TrimSpace(a))
	}
	return out
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulse %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Score Command ---

var scoreCmd = &cobra.Command{
	Use:   "score [ticker]...",
	Short: "Compute pressure scores for one or more tickers",
	Long: `Compute the 0-100 pressure score for each ticker from its daily
price series plus, when enabled, RSS news sentiment.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		svc := scoreService(cmd)
		tickers := normalizeTickers(args)

		if len(tickers) == 1 {
			score, bundle, err := svc.ScoreTicker(ctx, tickers[0])
			if err != nil {
				return err
			}
			printScore(score)
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				printBundle(bundle)
			}
			return nil
		}

		results, err := svc.ScoreAll(ctx, tickers)
		if err != nil {
			return err
		}
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				fmt.Printf("  %-8s  error: %v\n", res.Ticker, res.Err)
				continue
			}
			fmt.Printf("  %-8s  %6.1f\n", res.Ticker, res.Score.Value)
		}
		if failed == len(results) {
			return fmt.Errorf("all %d tickers failed", failed)
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().Bool("verbose", false, "print the full signal bundle")
}

func printScore(score models.PressureScore) {
	fmt.Printf("📊 %s — pressure score %.1f / 100\n", score.Ticker, score.Value)
	names := make([]string, 0, len(score.Breakdown))
	for name := range score.Breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("    %-12s %6.1f\n", name, score.Breakdown[name])
	}
}

func printBundle(b models.SignalBundle) {
	fmt.Printf("\n  Signals as of %s:\n", b.Date.Format("2006-01-02"))
	rows := []struct {
		name string
		sig  models.SubSignal
	}{
		{"rsi", b.RSI},
		{"roc_z", b.ROCZ},
		{"sma_dev_z", b.SMADevZ},
		{"bandwidth_z", b.BandwidthZ},
		{"sentiment", b.Sentiment},
		{"attention", b.Attention},
		{"volume_anomaly", b.VolumeAnomaly},
		{"volume_accel_z", b.VolumeAccelZ},
		{"relative_return", b.RelativeReturn},
	}
	for _, row := range rows {
		if row.sig.Valid {
			fmt.Printf("    %-16s %8.3f\n", row.name, row.sig.Value)
		} else {
			fmt.Printf("    %-16s     (no signal)\n", row.name)
		}
	}
}

// --- Simulate Command ---

var simulateCmd = &cobra.Command{
	Use:   "simulate [ticker]",
	Short: "Run an SMA-crossover strategy simulation",
	Long: `Replay the golden-cross/death-cross strategy over the ticker's
daily history. The aggressive variant trades on the raw cross events;
the conservative variant waits out a confirmation window and arms a
delayed re-entry when a cross fails confirmation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := normalizeTickers(args)[0]
		kind, err := strategyFlag(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		bars, err := barSource(cmd).DailyBars(ctx, ticker)
		if err != nil {
			return err
		}
		result, err := simEngine().Run(ticker, bars, kind)
		if err != nil {
			return err
		}
		printSimulation(result)
		return nil
	},
}

func init() {
	simulateCmd.Flags().String("strategy", "conservative", "aggressive or conservative")
	compareCmd.Flags().String("strategy", "conservative", "aggressive or conservative")
}

func strategyFlag(cmd *cobra.Command) (models.StrategyKind, error) {
	raw, _ := cmd.Flags().GetString("strategy")
	kind := models.StrategyKind(strings.ToLower(raw))
	if kind != models.Aggressive && kind != models.Conservative {
		return "", fmt.Errorf("strategy must be aggressive or conservative, got %q", raw)
	}
	return kind, nil
}

func printSimulation(res *models.SimulationResult) {
	fmt.Printf("🔁 %s — %s strategy, %s to %s\n",
		res.Ticker, res.Strategy,
		res.EligibleFrom.Format("2006-01-02"), res.To.Format("2006-01-02"))
	fmt.Printf("   Final return: %+.2f%%", res.FinalReturn*100)
	if res.OpenAtEnd {
		fmt.Print("  (position still open, marked to market)")
	}
	fmt.Println()
	if len(res.Trades) == 0 {
		fmt.Println("   No trades.")
		return
	}
	fmt.Printf("   Trades (%d):\n", len(res.Trades))
	for _, tr := range res.Trades {
		fmt.Printf("     %s  %-4s %9.2f  %s\n",
			tr.Date.Format("2006-01-02"), tr.Action, tr.Price, tr.Reason)
	}
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare [ticker]",
	Short: "Compare a strategy against buy-and-hold and the market",
	Long: `Run the strategy simulation and report its return alongside
buy-and-hold of the same stock and of the market index, all over the
identical eligible window.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := normalizeTickers(args)[0]
		kind, err := strategyFlag(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		src := barSource(cmd)
		bars, err := src.DailyBars(ctx, ticker)
		if err != nil {
			return err
		}
		market, err := src.DailyBars(ctx, cfg.Scoring.MarketTicker)
		if err != nil {
			return fmt.Errorf("market series %s: %w", cfg.Scoring.MarketTicker, err)
		}

		result, err := simEngine().Run(ticker, bars, kind)
		if err != nil {
			return err
		}
		cmp, err := simulate.Compare(result, bars, market)
		if err != nil {
			return err
		}

		fmt.Printf("⚖️  %s — %s strategy, %s to %s\n",
			cmp.Ticker, cmp.Strategy,
			cmp.Start.Format("2006-01-02"), cmp.End.Format("2006-01-02"))
		fmt.Printf("   Strategy:     %+.2f%%\n", cmp.StrategyReturn*100)
		fmt.Printf("   Buy & hold:   %+.2f%%\n", cmp.BuyHoldReturn*100)
		fmt.Printf("   Market (%s): %+.2f%%\n", cfg.Scoring.MarketTicker, cmp.MarketReturn*100)
		return nil
	},
}

// --- Risk Command ---

var riskCmd = &cobra.Command{
	Use:   "risk [ticker]...",
	Short: "Report VaR, CVaR, and annualized volatility",
	Long: `Compute historical-simulation risk metrics from each ticker's daily
returns. With multiple tickers, an equal-weight portfolio report is
appended.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		src := barSource(cmd)
		riskCfg := risk.Config{Confidence: cfg.Risk.Confidence, MinSamples: cfg.Risk.MinSamples}
		tickers := normalizeTickers(args)

		var tails [][]float64
		for _, ticker := range tickers {
			bars, err := src.DailyBars(ctx, ticker)
			if err != nil {
				return err
			}
			report, err := risk.AssessSeries(ticker, bars, riskCfg)
			if err != nil {
				return err
			}
			printRisk(report)
			tails = append(tails, models.DailyReturns(bars))
		}

		if len(tickers) > 1 {
			portfolio, err := risk.AssessPortfolio("equal-weight portfolio", tails, riskCfg)
			if err != nil {
				return err
			}
			fmt.Println()
			printRisk(portfolio)
		}
		return nil
	},
}

func printRisk(r *models.RiskReport) {
	fmt.Printf("🛡️  %s (%.0f%% confidence, %d samples)\n",
		r.Ticker, r.Confidence*100, r.Samples)
	fmt.Printf("   VaR:        %.2f%%\n", r.VaR*100)
	fmt.Printf("   CVaR:       %.2f%%\n", r.CVaR*100)
	fmt.Printf("   Volatility: %.2f%% annualized\n", r.Volatility*100)
	if r.LowConfidence {
		fmt.Println("   ⚠️  sample below minimum size; treat metrics as indicative")
	}
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := api.NewServer(cfg, barSource(cmd), newsSource())
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting pulse API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  pulse — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:        %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Profile:        %s\n", cfg.Scoring.Profile)
		fmt.Printf("    Market index:   %s\n", cfg.Scoring.MarketTicker)
		fmt.Printf("    SMA periods:    %d / %d\n", cfg.Simulation.FastPeriod, cfg.Simulation.SlowPeriod)
		fmt.Printf("    VaR confidence: %.0f%%\n", cfg.Risk.Confidence*100)
		fmt.Printf("    Data directory: %s\n", cfg.Data.Dir)
		fmt.Printf("    News feeds:     %s\n", onOff(cfg.Data.NewsEnabled))
		fmt.Printf("    API server:     %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
