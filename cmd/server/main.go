// Package main runs the ranking and recommendation service:
// trending views, list similarity, creator discovery, spotlight and
// featured-slot analytics behind one HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"listrank/internal/analytics"
	"listrank/internal/discovery"
	"listrank/internal/domain"
	"listrank/internal/observability"
	"listrank/internal/similarity"
	"listrank/internal/spotlight"
	"listrank/internal/storage"
	chstore "listrank/internal/storage/clickhouse"
	"listrank/internal/storage/memory"
	"listrank/internal/storage/migrations"
	pgstore "listrank/internal/storage/postgres"
	"listrank/internal/trending"
)

// Server wires stores to engines and serves the HTTP API.
type Server struct {
	trending  *trending.Selector
	similar   *similarity.Engine
	discovery *discovery.Engine
	spotlight *spotlight.Selector
	analytics *analytics.Service
	obs       *observability.Metrics
	logger    *log.Logger

	mu        sync.Mutex
	startedAt time.Time
	requests  int
}

// allStores holds all storage implementations.
type allStores struct {
	lists      storage.ListStore
	creators   storage.CreatorStore
	ranks      storage.CreatorRankStore
	slots      storage.FeaturedSlotStore
	snapshots  storage.TrendingSnapshotStore
	engagement storage.EngagementStore
}

func main() {
	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "API HTTP address")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	cacheTTL := flag.Duration("cache-ttl", 10*time.Minute, "Trending snapshot freshness window")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	obs := observability.NewMetrics("listrank")

	trendingSelector := trending.NewSelector(stores.lists, stores.engagement, stores.snapshots, *cacheTTL)
	trendingSelector.SetObservability(obs)

	similarEngine := similarity.NewEngine(stores.lists, stores.engagement, stores.creators, domain.DefaultCreatorPolicy)
	discoveryEngine := discovery.NewEngine(stores.lists, stores.creators, stores.ranks, stores.engagement, domain.DefaultCreatorPolicy)
	spotlightSelector := spotlight.NewSelector(discoveryEngine, stores.engagement, stores.lists)

	analyticsService := analytics.NewService(stores.slots, stores.lists, stores.engagement)
	analyticsService.SetObservability(obs)

	server := &Server{
		trending:  trendingSelector,
		similar:   similarEngine,
		discovery: discoveryEngine,
		spotlight: spotlightSelector,
		analytics: analyticsService,
		obs:       obs,
		logger:    logger,
		startedAt: time.Now(),
	}

	api := &http.Server{Addr: *httpAddr, Handler: server.routes()}
	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: server.metricsRoutes()}

	errCh := make(chan error, 2)
	go func() {
		logger.Printf("API listening on %s", *httpAddr)
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Printf("Metrics listening on %s", *metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		logger.Printf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Printf("API shutdown: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Metrics shutdown: %v", err)
	}

	logger.Println("Shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// createStores creates all required stores, running migrations first.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		lists := memory.NewListStore()
		return &allStores{
			lists:      lists,
			creators:   memory.NewCreatorStore(lists),
			ranks:      memory.NewCreatorRankStore(),
			slots:      memory.NewFeaturedSlotStore(),
			snapshots:  memory.NewTrendingSnapshotStore(),
			engagement: memory.NewEngagementStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		lists:      pgstore.NewListStore(pool),
		creators:   pgstore.NewCreatorStore(pool),
		ranks:      pgstore.NewCreatorRankStore(pool),
		slots:      pgstore.NewFeaturedSlotStore(pool),
		snapshots:  pgstore.NewTrendingSnapshotStore(pool),
		engagement: chstore.NewEngagementStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// routes builds the API mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("GET /api/trending", s.counted(s.handleTrending))
	mux.HandleFunc("GET /api/trending/categories/{category}", s.counted(s.handleTrendingCategory))
	mux.HandleFunc("GET /api/lists/{id}/similar", s.counted(s.handleSimilar))
	mux.HandleFunc("GET /api/lists/{id}/rank", s.counted(s.handleRank))
	mux.HandleFunc("GET /api/users/{id}/recommended-creators", s.counted(s.handleRecommendedCreators))
	mux.HandleFunc("GET /api/users/{id}/spotlight", s.counted(s.handleSpotlight))
	mux.HandleFunc("GET /api/featured/{id}/performance", s.counted(s.handleSlotPerformance))
	mux.HandleFunc("GET /api/reports/weekly", s.counted(s.handleWeeklyReport))
	mux.HandleFunc("GET /api/insights/categories", s.counted(s.handleCategoryInsights))

	return mux
}

// metricsRoutes builds the operational mux.
func (s *Server) metricsRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.obs.Handler())
	return mux
}

func (s *Server) counted(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		h(w, r)
	}
}

// trendingOptions reads the shared query parameters of the trending views.
// refresh=1 bypasses the snapshot cache; intended for admin debugging.
func trendingOptions(r *http.Request) trending.Options {
	opts := trending.Options{}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if r.URL.Query().Get("refresh") == "1" {
		opts.Policy = trending.ForceRecompute
	}
	return opts
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	opts := trendingOptions(r)

	var (
		results []domain.TrendingResult
		err     error
	)
	switch view := r.URL.Query().Get("view"); view {
	case "", domain.ViewGlobal:
		results, err = s.trending.Global(r.Context(), opts)
	case domain.ViewFastRising:
		results, err = s.trending.FastRising(r.Context(), opts)
	case domain.ViewMonthly:
		results, err = s.trending.MonthlyPopular(r.Context(), opts)
	case domain.ViewFullSorted:
		results, err = s.trending.FullSorted(r.Context(), opts.Limit)
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown view %q", view))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, results)
}

func (s *Server) handleTrendingCategory(w http.ResponseWriter, r *http.Request) {
	results, err := s.trending.Category(r.Context(), r.PathValue("category"), trendingOptions(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, results)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	results, err := s.similar.TopSimilar(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, results)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	rank, err := s.trending.GlobalRank(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, map[string]int{"rank": rank})
}

func (s *Server) handleRecommendedCreators(w http.ResponseWriter, r *http.Request) {
	limit := discovery.DefaultLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}

	results, err := s.discovery.RecommendCreators(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, results)
}

func (s *Server) handleSpotlight(w http.ResponseWriter, r *http.Request) {
	spot, err := s.spotlight.Spotlight(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if spot == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no spotlight candidate"))
		return
	}
	s.writeJSON(w, spot)
}

func (s *Server) handleSlotPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := s.analytics.SlotPerformance(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, perf)
}

func (s *Server) handleWeeklyReport(w http.ResponseWriter, r *http.Request) {
	weekStart := startOfWeek(time.Now().UTC())
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("week_start: %w", err))
			return
		}
		weekStart = parsed
	}

	report, err := s.analytics.WeeklyReport(r.Context(), weekStart)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, report)
}

func (s *Server) handleCategoryInsights(w http.ResponseWriter, r *http.Request) {
	rangeDays := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("days: %q is not a positive integer", raw))
			return
		}
		rangeDays = parsed
	}

	insights, err := s.analytics.CategoryInsights(r.Context(), rangeDays)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, insights)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Requests int    `json:"requests"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.startedAt).String(),
		Requests: s.requests,
	}
	s.mu.Unlock()
	s.writeJSON(w, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Printf("request failed: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// startOfWeek returns the most recent Monday at midnight UTC.
func startOfWeek(t time.Time) time.Time {
	t = t.Truncate(24 * time.Hour)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
