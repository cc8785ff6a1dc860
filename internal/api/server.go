// Package api serves the HTTP surface: defense generation, burn totals,
// and the leaderboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"garlic-defense/internal/domain"
	"garlic-defense/internal/generation"
	"garlic-defense/internal/observability"
	"garlic-defense/internal/scoring"
	"garlic-defense/internal/storage"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// Generator produces a defense strategy in the given language.
type Generator interface {
	Generate(ctx context.Context, language domain.Language) (*domain.DefenseStrategy, error)
}

// Options for creating Server.
type Options struct {
	Generator  Generator
	Aggregates storage.WalletAggregateStore

	// Totals is optional; without it total-burned reads report zero and
	// degraded.
	Totals *TotalsPoller

	// LastCycleState, when set, is included in /status responses.
	LastCycleState func() string

	// Clock overrides time.Now, for tests.
	Clock func() time.Time

	Logger *log.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	generator      Generator
	aggregates     storage.WalletAggregateStore
	totals         *TotalsPoller
	lastCycleState func() string
	clock          func() time.Time
	logger         *log.Logger
	startedAt      time.Time
}

// NewServer creates a new Server.
func NewServer(opts Options) *Server {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		generator:      opts.Generator,
		aggregates:     opts.Aggregates,
		totals:         opts.Totals,
		lastCycleState: opts.LastCycleState,
		clock:          clock,
		logger:         logger,
		startedAt:      clock(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/generate-defense", s.handleGenerateDefense)
	mux.HandleFunc("/total-burned", s.handleTotalBurned)
	mux.HandleFunc("/leaderboard", s.handleLeaderboard)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", observability.Handler())

	return mux
}

// GenerateDefenseRequest is the POST /generate-defense request body.
type GenerateDefenseRequest struct {
	Language string `json:"language"`
}

// GenerateDefenseResponse is the POST /generate-defense response body.
type GenerateDefenseResponse struct {
	Strategy      string `json:"strategy"`
	GarlicUsage   string `json:"garlicUsage"`
	Effectiveness int    `json:"effectiveness"`
}

func (s *Server) handleGenerateDefense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req GenerateDefenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Language == "" {
		req.Language = string(domain.LanguageEnglish)
	}

	language := domain.Language(req.Language)
	if !language.Valid() {
		writeError(w, http.StatusBadRequest, "invalid language")
		return
	}

	start := s.clock()
	strategy, err := s.generator.Generate(r.Context(), language)
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		observability.RecordGeneration(req.Language, "ok", elapsed)
	case errors.Is(err, generation.ErrTimeout):
		observability.RecordGeneration(req.Language, "timeout", elapsed)
		s.logger.Printf("[api] generation timed out for language %s", req.Language)
		writeError(w, http.StatusGatewayTimeout, "generation timed out")
		return
	case errors.Is(err, generation.ErrInvalidLanguage):
		observability.RecordGeneration(req.Language, "invalid_language", elapsed)
		writeError(w, http.StatusBadRequest, "invalid language")
		return
	default:
		observability.RecordGeneration(req.Language, "error", elapsed)
		s.logger.Printf("[api] generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	effectiveness := scoring.Score(strategy.Raw, s.clock())
	writeJSON(w, http.StatusOK, GenerateDefenseResponse{
		Strategy:      strategy.Strategy,
		GarlicUsage:   strategy.GarlicUsage,
		Effectiveness: effectiveness,
	})
}

// TotalBurnedResponse is the GET /total-burned response body.
type TotalBurnedResponse struct {
	TotalBurned uint64 `json:"totalBurned"`
	Degraded    bool   `json:"degraded"`
}

func (s *Server) handleTotalBurned(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// No poller configured reads the same as a poller that has not
	// succeeded yet: zero, flagged degraded.
	var total uint64
	degraded := true
	if s.totals != nil {
		total, degraded = s.totals.Value()
	}
	writeJSON(w, http.StatusOK, TotalBurnedResponse{
		TotalBurned: total,
		Degraded:    degraded,
	})
}

// LeaderboardEntry is one row of the GET /leaderboard response.
type LeaderboardEntry struct {
	Address                 string    `json:"address"`
	BurnCount               int64     `json:"burnCount"`
	StrategyCount           int64     `json:"strategyCount"`
	CumulativeEffectiveness int64     `json:"cumulativeEffectiveness"`
	MaxEffectiveness        int64     `json:"maxEffectiveness"`
	AverageEffectiveness    float64   `json:"averageEffectiveness"`
	LastActivityAt          time.Time `json:"lastActivityAt"`
}

// LeaderboardResponse is the GET /leaderboard response body.
type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	top, err := s.aggregates.Top(r.Context(), limit)
	if err != nil {
		s.logger.Printf("[api] leaderboard query failed: %v", err)
		observability.RecordDBError("postgres", "top")
		writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}

	entries := make([]LeaderboardEntry, 0, len(top))
	for _, a := range top {
		entries = append(entries, LeaderboardEntry{
			Address:                 a.Address,
			BurnCount:               a.BurnCount,
			StrategyCount:           a.StrategyCount,
			CumulativeEffectiveness: a.CumulativeEffectiveness,
			MaxEffectiveness:        a.MaxEffectiveness,
			AverageEffectiveness:    a.AverageEffectiveness,
			LastActivityAt:          a.LastActivityAt,
		})
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{Entries: entries})
}

// StatusResponse is the GET /status response body.
type StatusResponse struct {
	Status         string `json:"status"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
	TotalBurned    uint64 `json:"totalBurned"`
	Degraded       bool   `json:"degraded"`
	LastCycleState string `json:"lastCycleState,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(s.clock().Sub(s.startedAt).Seconds()),
	}
	if s.totals != nil {
		resp.TotalBurned, resp.Degraded = s.totals.Value()
	}
	if s.lastCycleState != nil {
		resp.LastCycleState = s.lastCycleState()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
