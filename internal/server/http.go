package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/script-bridge/pkg/bridge"
	"github.com/morezero/script-bridge/pkg/db"
)

// HealthChecks reports each dependency.
type HealthChecks struct {
	Comms    bool  `json:"comms"`
	Database *bool `json:"database,omitempty"`
}

// HealthOutput is the /health body.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Bridges   int          `json:"bridges"`
	Timestamp string       `json:"timestamp"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", handleReady)
	mux.HandleFunc("/stubs.js", s.handleStubs)
	mux.HandleFunc("/bridges", s.handleBridges)
	mux.HandleFunc("/activity", s.handleActivity)
	mux.HandleFunc("/drops", s.handleDrops)
	mux.HandleFunc("/drops/summary", s.handleDropSummary)
	mux.HandleFunc("/drops/{id}", s.handleDrop)
	mux.HandleFunc("/argument-errors", s.handleArgumentErrors)
	return mux
}

func (s *Server) health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	out.Checks.Comms = s.nc != nil && s.nc.IsConnected()
	if !out.Checks.Comms {
		out.Status = "unhealthy"
	}
	if s.pool != nil {
		ok := s.pool.Ping(ctx) == nil
		out.Checks.Database = &ok
		if !ok {
			out.Status = "unhealthy"
		}
	}
	if s.reg != nil {
		out.Bridges = len(s.reg.Names())
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()
	h := s.health(ctx)
	w.Header().Set("Content-Type", "application/json")
	if h.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(h)
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

func (s *Server) handleStubs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", ContentTypeJavaScript+"; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(s.reg.UserScript()))
}

func (s *Server) handleBridges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.Describe())
}

func (s *Server) handleActivity(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.activity.Recent())
}

// requireStore reports whether drop persistence is on, answering 404 if not.
func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		http.Error(w, "drop persistence is disabled", http.StatusNotFound)
		return false
	}
	return true
}

// MaxListLimit caps the limit query parameter of the list endpoints.
const MaxListLimit = 10 * db.DefaultListLimit

// queryLimit parses the optional limit query parameter, clamped to
// MaxListLimit; zero means unset.
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return 0, false
	}
	return min(limit, MaxListLimit), true
}

func storeFailed(w http.ResponseWriter, op string, err error) {
	slog.Error(fmt.Sprintf("%s - %s: %v", logPrefix, op, err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// handleDrops lists persisted drops. Query: bridge, limit.
func (s *Server) handleDrops(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	drops, err := s.store.ListDrops(ctx, db.ListDropsParams{Bridge: r.URL.Query().Get("bridge"), Limit: limit})
	if err != nil {
		storeFailed(w, "list drops", err)
		return
	}
	writeJSON(w, http.StatusOK, drops)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		http.NotFound(w, r)
		return
	}
	drop, err := s.store.GetDrop(ctx, id)
	if err != nil {
		storeFailed(w, "get drop", err)
		return
	}
	if drop == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, drop)
}

// handleDropSummary returns drop counts per bridge.
func (s *Server) handleDropSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	counts, err := s.store.CountDropsByBridge(ctx)
	if err != nil {
		storeFailed(w, "count drops", err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleArgumentErrors(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	list, err := s.store.ListArgumentErrors(ctx, limit)
	if err != nil {
		storeFailed(w, "list argument errors", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - json encode: %v", logPrefix, err))
	}
}

// homePageTemplate is the HTML for the host home page.
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Script Bridge</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; }
    pre { background: #f5f5f5; padding: 0.5rem; overflow-x: auto; font-size: 0.8rem; margin: 0; white-space: pre-wrap; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
  </style>
</head>
<body>
  <h1>{{.Name}}</h1>
  <p class="meta">Channel <code>{{.Channel}}</code>, post method <code>{{.PostMethod}}</code>, error bridge <code>{{.ErrorBridge}}</code>. <a href="/stubs.js">stubs.js</a></p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Bridges</h2>
    {{if not .Bridges}}
    <p>No bridges registered.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Bridge</th><th>Version</th><th>Shape</th><th>Stub</th></tr>
      </thead>
      <tbody>
        {{range .Bridges}}
        <tr>
          <td>{{.Name}}</td>
          <td>{{.Version}}</td>
          <td>{{.Shape}}</td>
          <td><pre>{{.Stub}}</pre></td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

type homeData struct {
	Name        string
	Channel     string
	PostMethod  string
	ErrorBridge string
	Health      *HealthOutput
	Bridges     []bridge.HandlerInfo
}

// handleHome returns an HTTP handler for the host home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		opts := s.reg.StubOptions()
		data := homeData{
			Name:        "Script Bridge",
			Channel:     opts.Channel,
			PostMethod:  opts.PostMethod,
			ErrorBridge: opts.ErrorBridge,
			Health:      s.health(ctx),
			Bridges:     s.reg.Describe(),
		}
		if s.manifest != nil && s.manifest.Name != "" {
			data.Name = s.manifest.Name
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
