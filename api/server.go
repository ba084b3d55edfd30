// Package api provides the HTTP REST API for the pressure-score
// analytics engine.
//
// It exposes endpoints for pressure scores, strategy simulation,
// benchmark comparison, risk reports, the per-ticker context object,
// session state, and WebSocket streaming of score updates.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hylle9/ai-stock-analytics/internal/config"
	"github.com/hylle9/ai-stock-analytics/internal/datasource"
	"github.com/hylle9/ai-stock-analytics/internal/fusion"
	"github.com/hylle9/ai-stock-analytics/internal/risk"
	"github.com/hylle9/ai-stock-analytics/internal/scoring"
	"github.com/hylle9/ai-stock-analytics/internal/session"
	"github.com/hylle9/ai-stock-analytics/internal/simulate"
	"github.com/hylle9/ai-stock-analytics/pkg/models"
)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	bars    scoring.BarSource
	news    scoring.NewsSource
	scorer  *scoring.Service
	sim     *simulate.Engine
	riskCfg risk.Config
	store   *session.Store
	wsHub   *WSHub
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, bars scoring.BarSource, news scoring.NewsSource) *Server {
	srv := &Server{
		cfg:   cfg,
		bars:  bars,
		news:  news,
		store: session.NewStore(),
		wsHub: NewWSHub(),
	}
	srv.applyScoring()
	srv.router = srv.buildRouter()
	return srv
}

// applyScoring rebuilds the analytical engines from the current config.
// The engines themselves are immutable; a config change swaps them out.
func (s *Server) applyScoring() {
	builder := scoring.NewBuilder(scoring.BuilderConfig{ZWindow: s.cfg.Scoring.ZWindow})
	engine := fusion.NewEngineWithWeights(fusion.Profile(s.cfg.Scoring.Profile), fusionWeights(s.cfg))
	s.scorer = scoring.NewService(s.bars, s.news, builder, engine, s.cfg.Scoring.MarketTicker, s.cfg.Scoring.Concurrency)
	s.sim = simulate.NewEngine(simulate.Config{
		FastPeriod:       s.cfg.Simulation.FastPeriod,
		SlowPeriod:       s.cfg.Simulation.SlowPeriod,
		ConfirmBars:      s.cfg.Simulation.ConfirmBars,
		ReentryThreshold: s.cfg.Simulation.ReentryThreshold,
		ReentryWindow:    s.cfg.Simulation.ReentryWindow,
	})
	s.riskCfg = risk.Config{Confidence: s.cfg.Risk.Confidence, MinSamples: s.cfg.Risk.MinSamples}
}

// fusionWeights maps the config section onto engine weights.
func fusionWeights(cfg *config.Config) fusion.Weights {
	return fusion.Weights{
		Trend:              cfg.Scoring.TrendWeight,
		Volatility:         cfg.Scoring.VolatilityWeight,
		Retail:             cfg.Scoring.RetailWeight,
		Sentiment:          cfg.Scoring.SentimentWeight,
		Attention:          cfg.Scoring.AttentionWeight,
		RetailSentiment:    cfg.Scoring.RetailSentiment,
		RetailAnomaly:      cfg.Scoring.RetailAnomaly,
		RetailAcceleration: cfg.Scoring.RetailAcceleration,
	}
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Pressure scores
		r.Get("/score/{ticker}", s.handleScore)
		r.Post("/score/batch", s.handleScoreBatch)

		// Context object for external collaborators
		r.Get("/context/{ticker}", s.handleContext)

		// Simulation and benchmarking
		r.Post("/simulate", s.handleSimulate)
		r.Post("/compare", s.handleCompare)

		// Risk
		r.Get("/risk/{ticker}", s.handleRisk)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleUpdateConfig)

		// Session state
		r.Get("/favorites", s.handleGetFavorites)
		r.Put("/favorites/{ticker}", s.handleAddFavorite)
		r.Delete("/favorites/{ticker}", s.handleRemoveFavorite)
		r.Get("/history/{ticker}", s.handleHistory)
		r.Get("/rising", s.handleRising)

		// WebSocket score stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BatchScoreRequest is the body for POST /api/v1/score/batch.
type BatchScoreRequest struct {
	Tickers []string `json:"tickers"`
}

// SimulateRequest is the body for POST /api/v1/simulate and /compare.
type SimulateRequest struct {
	Ticker   string `json:"ticker"`
	Strategy string `json:"strategy"` // "aggressive" or "conservative"
}

// ContextObject is the read-only snapshot handed to an external report
// generator: the raw bundle plus the score with its breakdown.
type ContextObject struct {
	Bundle models.SignalBundle  `json:"bundle"`
	Score  models.PressureScore `json:"score"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"profile": s.cfg.Scoring.Profile,
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	score, _, err := s.scorer.ScoreTicker(ctx, ticker)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	s.store.RecordScore(score)
	s.wsHub.Broadcast(WSMessage{Type: "score_update", Ticker: score.Ticker, Data: score})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: score})
}

func (s *Server) handleScoreBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Tickers) == 0 {
		writeError(w, http.StatusBadRequest, "tickers is required")
		return
	}
	for i := range req.Tickers {
		req.Tickers[i] = normalizeTicker(req.Tickers[i])
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	results, err := s.scorer.ScoreAll(ctx, req.Tickers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type entry struct {
		Ticker string                `json:"ticker"`
		Score  *models.PressureScore `json:"score,omitempty"`
		Error  string                `json:"error,omitempty"`
	}
	var scored []models.PressureScore
	entries := make([]entry, len(results))
	for i, res := range results {
		entries[i] = entry{Ticker: res.Ticker}
		if res.Err != nil {
			entries[i].Error = res.Err.Error()
			continue
		}
		sc := res.Score
		entries[i].Score = &sc
		scored = append(scored, sc)
	}

	rising := s.store.RecordBatch(scored)
	for _, sc := range scored {
		s.wsHub.Broadcast(WSMessage{Type: "score_update", Ticker: sc.Ticker, Data: sc})
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"results": entries,
			"rising":  rising,
		},
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	score, bundle, err := s.scorer.ScoreTicker(ctx, ticker)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ContextObject{Bundle: bundle, Score: score},
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSimulateRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := s.runSimulation(ctx, req)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSimulateRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := s.runSimulation(ctx, req)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	bars, err := s.bars.DailyBars(ctx, req.Ticker)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	market, err := s.bars.DailyBars(ctx, s.cfg.Scoring.MarketTicker)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	cmp, err := simulate.Compare(result, bars, market)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: cmp})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	bars, err := s.bars.DailyBars(ctx, ticker)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	report, err := risk.AssessSeries(ticker, bars, s.riskCfg)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: report})
}

// ============================================================
// Session handlers
// ============================================================

func (s *Server) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.store.Favorites()})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	s.store.AddFavorite(ticker)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.store.Favorites()})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	s.store.RemoveFavorite(ticker)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.store.Favorites()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ticker := normalizeTicker(chi.URLParam(r, "ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.store.History(ticker)})
}

// handleRising re-scores the favorite set and returns each ticker's
// movement against the previous pass.
func (s *Server) handleRising(w http.ResponseWriter, r *http.Request) {
	favs := s.store.Favorites()
	if len(favs) == 0 {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: []session.Rising{}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	results, err := s.scorer.ScoreAll(ctx, favs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var scored []models.PressureScore
	for _, res := range results {
		if res.Err == nil {
			scored = append(scored, res.Score)
		}
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.store.RecordBatch(scored)})
}

// ============================================================
// Helpers
// ============================================================

func (s *Server) decodeSimulateRequest(w http.ResponseWriter, r *http.Request) (SimulateRequest, bool) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	req.Ticker = normalizeTicker(req.Ticker)
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return req, false
	}
	switch models.StrategyKind(req.Strategy) {
	case models.Aggressive, models.Conservative:
	default:
		writeError(w, http.StatusBadRequest, "strategy must be aggressive or conservative")
		return req, false
	}
	return req, true
}

func (s *Server) runSimulation(ctx context.Context, req SimulateRequest) (*models.SimulationResult, error) {
	bars, err := s.bars.DailyBars(ctx, req.Ticker)
	if err != nil {
		return nil, err
	}
	return s.sim.Run(req.Ticker, bars, models.StrategyKind(req.Strategy))
}

// statusForError maps the engine's typed errors onto HTTP statuses:
// bad inputs are the caller's problem, missing tickers are 404, and
// everything else is a 500.
func statusForError(err error) int {
	var (
		seriesErr  *models.SeriesError
		historyErr *simulate.InsufficientHistoryError
		windowErr  *simulate.MisalignedWindowError
		signalErr  *fusion.InsufficientSignalError
		returnsErr *risk.InsufficientReturnsError
	)
	switch {
	case errors.Is(err, datasource.ErrTickerNotFound):
		return http.StatusNotFound
	case errors.As(err, &seriesErr),
		errors.As(err, &historyErr),
		errors.As(err, &windowErr),
		errors.As(err, &signalErr),
		errors.As(err, &returnsErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections. Ticker, when
// set, lets the hub route the message only to clients subscribed to it.
type WSMessage struct {
	Type   string      `json:"type"`
	Ticker string      `json:"ticker,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and score-update broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection. An empty
// subscription set receives every message.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage

	mu      sync.Mutex
	tickers map[string]bool
}

// Subscribe narrows the client's stream to include the ticker.
func (c *WSClient) Subscribe(ticker string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickers[ticker] = true
}

// Unsubscribe removes a ticker from the client's subscription set.
func (c *WSClient) Unsubscribe(ticker string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tickers, ticker)
}

// wants reports whether the client should receive a message for the
// given ticker.
func (c *WSClient) wants(ticker string) bool {
	if ticker == "" {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers) == 0 || c.tickers[ticker]
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*WSClient
			for client := range h.clients {
				if !client.wants(msg.Ticker) {
					continue
				}
				select {
				case client.send <- msg:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			if len(slow) > 0 {
				// Slow clients; disconnect
				h.mu.Lock()
				for _, client := range slow {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
