// Package httpapi exposes the workforce engine over HTTP: team and role
// management, run execution, execution history, metrics, and an SSE event
// stream.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zygen-arch/NuiFlo-WorkForce/internal/engine"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/provider"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store"
	"github.com/zygen-arch/NuiFlo-WorkForce/internal/store/postgres"
	"github.com/zygen-arch/NuiFlo-WorkForce/pkg/models"
)

// ServerOptions configures the HTTP server (home dir, listen addr, API key,
// DB, metrics, provider registry).
type ServerOptions struct {
	Home           string
	Addr           string
	Dev            bool
	APIKey         string       // if set, require X-API-Key header or query api_key
	DBDriver       string       // "sqlite" (default) or "postgres"
	DBURL          string       // for postgres: connection string (or set DATABASE_URL env)
	MetricsHandler http.Handler // if set, used for /metrics (OTel Prometheus handler)
	UseOtelHTTP    bool         // if true, wrap handler with otelhttp for request metrics
	Registry       *provider.Registry
	MaxConcurrent  int
	CallTimeout    time.Duration

	// Store overrides DB options when set; used by tests.
	Store store.Store
}

// App holds the HTTP server, SSE hub, store, and run engine.
type App struct {
	Server *http.Server
	Hub    *SSEHub
	Store  store.Store
	Engine *engine.Engine
}

// NewApp creates the HTTP app (server, hub, store, engine) and registers all
// routes.
func NewApp(opts ServerOptions) (*App, error) {
	hub := NewSSEHub()
	mux := http.NewServeMux()

	st := opts.Store
	if st == nil {
		var err error
		if opts.DBDriver == "postgres" {
			st, err = postgres.Open(opts.DBURL)
		} else {
			st, err = store.Open(opts.Home)
		}
		if err != nil {
			return nil, err
		}
	}

	reg := opts.Registry
	if reg == nil {
		reg = provider.NewRegistry()
	}
	eng := engine.New(st, reg, opts.MaxConcurrent, opts.CallTimeout)
	eng.Events = hub

	app := &App{Hub: hub, Store: st, Engine: eng}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "providers": reg.IDs()})
	})

	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	}

	mux.HandleFunc("/api/events", hub.Handler())

	mux.HandleFunc("/api/teams", app.handleTeams)
	mux.HandleFunc("/api/teams/", app.handleTeamScoped)
	mux.HandleFunc("/api/executions/", app.handleGetExecution)

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(models.DefaultMaxRequestBodyBytes, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = requestLogMiddleware(handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "workforce")
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      10 * time.Minute, // runs can take a while
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		_ = st.Close()
	})
	app.Server = srv
	return app, nil
}

func (a *App) handleTeams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		teams, err := a.Store.ListTeams(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, teams)
	case http.MethodPost:
		var body struct {
			Name          string  `json:"name"`
			Description   string  `json:"description"`
			MonthlyBudget float64 `json:"monthly_budget"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if body.Name == "" {
			writeJSONError(w, http.StatusBadRequest, "name required")
			return
		}
		t, err := a.Store.CreateTeam(r.Context(), body.Name, body.Description, body.MonthlyBudget)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Hub.PublishJSON(map[string]any{"type": "team_update", "team": t.Name})
		writeJSON(w, t)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *App) handleTeamScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/teams/")
	parts := strings.Split(rest, "/")
	if len(parts) < 1 || parts[0] == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	team := parts[0]

	// /api/teams/{team}
	if len(parts) == 1 || parts[1] == "" {
		switch r.Method {
		case http.MethodGet:
			t, err := a.Store.GetTeamByName(r.Context(), team)
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, t)
		case http.MethodDelete:
			if err := a.Store.DeleteTeam(r.Context(), team); err != nil {
				writeStoreError(w, err)
				return
			}
			a.Hub.PublishJSON(map[string]any{"type": "team_update", "team": team})
			writeJSON(w, map[string]any{"ok": true})
		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch parts[1] {
	case "budget":
		if r.Method != http.MethodPut {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var body struct {
			MonthlyBudget float64 `json:"monthly_budget"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := a.Store.SetTeamBudget(r.Context(), team, body.MonthlyBudget); err != nil {
			writeStoreError(w, err)
			return
		}
		a.Hub.PublishJSON(map[string]any{"type": "team_update", "team": team})
		writeJSON(w, map[string]any{"ok": true})

	case "roles":
		// /api/teams/{team}/roles/{title} — PATCH active flag
		if len(parts) >= 3 && parts[2] != "" {
			if r.Method != http.MethodPatch {
				writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			var body struct {
				Active *bool `json:"active"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Active == nil {
				writeJSONError(w, http.StatusBadRequest, "active required")
				return
			}
			if err := a.Store.SetRoleActive(r.Context(), team, parts[2], *body.Active); err != nil {
				writeStoreError(w, err)
				return
			}
			a.Hub.PublishJSON(map[string]any{"type": "role_update", "team": team, "role": parts[2]})
			writeJSON(w, map[string]any{"ok": true})
			return
		}
		switch r.Method {
		case http.MethodGet:
			roles, err := a.Store.ListRoles(r.Context(), team)
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, roles)
		case http.MethodPost:
			var role models.Role
			if err := json.NewDecoder(r.Body).Decode(&role); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid json")
				return
			}
			created, err := a.Store.CreateRole(r.Context(), team, role)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeJSONError(w, http.StatusNotFound, err.Error())
					return
				}
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			a.Hub.PublishJSON(map[string]any{"type": "role_update", "team": team, "role": created.Title})
			writeJSON(w, created)
		default:
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	case "execute":
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		a.handleExecute(w, r, team)

	case "executions":
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 {
				limit = n
			}
		}
		execs, err := a.Store.ListTeamExecutions(r.Context(), team, limit)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, execs)

	default:
		writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (a *App) handleExecute(w http.ResponseWriter, r *http.Request, team string) {
	var body struct {
		Input          string   `json:"input"`
		Preference     string   `json:"preference"`
		PerTaskCap     *float64 `json:"per_task_cap"`
		TimeoutSeconds int      `json:"timeout_seconds"`
		Roles          []string `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	opts := engine.Options{
		Preference: body.Preference,
		PerTaskCap: body.PerTaskCap,
		Roles:      body.Roles,
	}
	if body.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(body.TimeoutSeconds) * time.Second
	}

	exec, err := a.Engine.Run(r.Context(), team, body.Input, opts)
	switch {
	case err == nil, errors.Is(err, engine.ErrRunFailed):
		// Total failure still returns the full breakdown.
		writeJSON(w, exec)
	case errors.Is(err, engine.ErrBudgetExhausted):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(exec)
	case errors.Is(err, engine.ErrEmptyInput), errors.Is(err, engine.ErrNoActiveRoles):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func (a *App) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/executions/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	exec, err := a.Store.GetTeamExecution(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, exec)
}

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read
// more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH to
// prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for dev mode (frontends on another origin).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// apiKeyMiddleware guards the API routes. Health and metrics stay open for
// probes and scrapers.
func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/healthz" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != apiKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseRecorder captures status code for logging and forwards Flusher if
// supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		slog.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSONError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": "message"} with the given status
// code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
