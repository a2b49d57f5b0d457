// Package httpapi is the JSON surface over the pipeline: search, suggest,
// trending, worker liveness, stats and source management. Routing is chi;
// every endpoint except /healthz sits behind a per-IP rate limit.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/sportwire/idgen"
	"github.com/hazyhaar/sportwire/internal/store"
	"github.com/hazyhaar/sportwire/registry"
	"github.com/hazyhaar/sportwire/search"
)

// StatsFunc returns the pipeline's aggregate stats snapshot.
type StatsFunc func(ctx context.Context) (map[string]any, error)

// Config tunes the API server.
type Config struct {
	Addr          string  `yaml:"addr"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 10
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
}

// API owns the router and its collaborators.
type API struct {
	cfg    Config
	search *search.Engine
	store  *store.Store
	reg    *registry.Registry
	stats  StatsFunc
	log    *slog.Logger
	router chi.Router
}

// New assembles the router. stats may be nil; /v1/stats then serves only
// store counts.
func New(cfg Config, se *search.Engine, st *store.Store, reg *registry.Registry, stats StatsFunc, log *slog.Logger) *API {
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}
	a := &API{
		cfg:    cfg,
		search: se,
		store:  st,
		reg:    reg,
		stats:  stats,
		log:    log.With("component", "httpapi"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(a.log))
	r.Use(rateLimit(newIPLimiter(cfg.RatePerSecond, cfg.RateBurst)))

	r.Get("/healthz", a.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", a.handleSearch)
		r.Get("/suggest", a.handleSuggest)
		r.Get("/trending", a.handleTrending)
		r.Get("/workers", a.handleWorkers)
		r.Get("/stats", a.handleStats)
		r.Get("/sources", a.handleListSources)
		r.Post("/sources", a.handleCreateSource)
	})
	a.router = r
	return a
}

// Router exposes the handler for mounting or serving.
func (a *API) Router() http.Handler { return a.router }

// Serve blocks until ctx is cancelled, then shuts the listener down
// gracefully.
func (a *API) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.log.Info("http listening", "addr", a.cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := search.Query{
		Text:         qs.Get("q"),
		Keywords:     splitList(qs.Get("keywords")),
		Domains:      splitList(qs.Get("domains")),
		ContentTypes: splitList(qs.Get("types")),
		Sort:         qs.Get("sort"),
		Cursor:       qs.Get("cursor"),
		Limit:        intParam(qs.Get("limit"), 0),
	}
	if v := qs.Get("min_quality"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_quality")
			return
		}
		q.MinQuality = f
	}
	var err error
	if q.Since, err = timeParam(qs.Get("since")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid since")
		return
	}
	if q.Until, err = timeParam(qs.Get("until")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid until")
		return
	}

	res, err := a.search.Search(r.Context(), q)
	if err != nil {
		a.log.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleSuggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	limit := intParam(r.URL.Query().Get("limit"), 10)
	terms, err := a.search.Suggest(r.Context(), prefix, limit)
	if err != nil {
		a.log.Error("suggest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "suggest failed")
		return
	}
	if terms == nil {
		terms = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": terms})
}

func (a *API) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query().Get("limit"), 10)
	terms, err := a.store.ListTrending(r.Context(), limit)
	if err != nil {
		a.log.Error("trending listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "trending failed")
		return
	}
	if terms == nil {
		terms = []*store.TrendingTerm{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trending": terms})
}

func (a *API) handleWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := a.reg.Workers(r.Context())
	if err != nil {
		a.log.Error("worker listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "workers failed")
		return
	}
	if workers == nil {
		workers = []registry.Heartbeat{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"workers": workers})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{}
	if a.stats != nil {
		extra, err := a.stats(r.Context())
		if err != nil {
			a.log.Error("stats snapshot failed", "error", err)
			writeError(w, http.StatusInternalServerError, "stats failed")
			return
		}
		for k, v := range extra {
			out[k] = v
		}
	}
	if n, err := a.store.CountContentItems(r.Context()); err == nil {
		out["content_items"] = n
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := a.store.ListSources(r.Context())
	if err != nil {
		a.log.Error("source listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "sources failed")
		return
	}
	if sources == nil {
		sources = []*store.Source{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (a *API) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var src store.Source
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		writeError(w, http.StatusBadRequest, "invalid source body")
		return
	}
	if src.Domain == "" {
		writeError(w, http.StatusBadRequest, "domain is required")
		return
	}
	if src.ID == "" {
		src.ID = idgen.New()
	}
	src.IsActive = true
	if err := a.store.InsertSource(r.Context(), &src); err != nil {
		if errors.Is(err, store.ErrDuplicateSource) {
			writeError(w, http.StatusConflict, "source already exists")
			return
		}
		a.log.Error("source insert failed", "domain", src.Domain, "error", err)
		writeError(w, http.StatusInternalServerError, "source insert failed")
		return
	}
	a.log.Info("source created", "id", src.ID, "domain", src.Domain)
	writeJSON(w, http.StatusCreated, src)
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// timeParam accepts RFC 3339 or UnixMilli integers.
func timeParam(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ms, nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return 0, err
	}
	return ts.UnixMilli(), nil
}
