package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/observe"
)

// DefaultTimeout bounds one request's evaluation round.
const DefaultTimeout = 30 * time.Second

const msgEvaluationFailed = "Error executing dependency check."

// Source evaluates dependencies for a report. *health.Manager satisfies it.
type Source interface {
	Evaluate(ctx context.Context) (*health.ResultSet, error)
	EvaluateID(ctx context.Context, id string) (*health.ResultSet, error)
}

// LiveSource is a Source that can also evaluate without background caches.
// *health.Manager satisfies it.
type LiveSource interface {
	Source
	EvaluateLive(ctx context.Context) (*health.ResultSet, error)
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Source provides evaluation rounds. Required.
	Source Source

	// Reporter renders views. Default: NewReporter(ReporterConfig{}).
	Reporter *Reporter

	// Timeout bounds each request's round. Default: DefaultTimeout.
	Timeout time.Duration

	// PrivilegedRole is the role a caller needs to see stack traces. Empty
	// admits any authenticated caller.
	PrivilegedRole string

	// Logger receives evaluation errors. Default: no-op.
	Logger observe.Logger
}

// Handler serves status reports.
type Handler struct {
	config HandlerConfig
}

// NewHandler creates a Handler.
func NewHandler(config HandlerConfig) (*Handler, error) {
	if config.Source == nil {
		return nil, ErrMissingSource
	}
	if config.Reporter == nil {
		config.Reporter = NewReporter(ReporterConfig{})
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	return &Handler{config: config}, nil
}

// Summary serves the public summary view.
func (h *Handler) Summary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := h.evaluate(w, r)
		if !ok {
			return
		}
		writeJSON(w, PublicStatusCode(snap.SystemStatus), h.config.Reporter.Summary(snap))
	}
}

// Live serves the summary view of a round that evaluates every dependency
// now instead of reading pinger samples. Sources that cannot evaluate live
// fall back to a normal round.
func (h *Handler) Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eval := h.config.Source.Evaluate
		if live, ok := h.config.Source.(LiveSource); ok {
			eval = live.EvaluateLive
		}
		snap, ok := h.run(w, r, eval)
		if !ok {
			return
		}
		writeJSON(w, PublicStatusCode(snap.SystemStatus), h.config.Reporter.Summary(snap))
	}
}

// Detailed serves the detailed view with private status codes.
func (h *Handler) Detailed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := h.evaluate(w, r)
		if !ok {
			return
		}
		writeJSON(w, PrivateStatusCode(snap.SystemStatus), h.detailed(r, snap))
	}
}

// UpDown serves the dcStatus as plain text. Only an outage fails.
func (h *Handler) UpDown() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := h.evaluate(w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(PublicStatusCode(snap.SystemStatus))
		_, _ = w.Write([]byte(snap.DCStatus()))
	}
}

// Dependency serves the detailed view of the dependency named by the {id}
// path value.
func (h *Handler) Dependency() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
		defer cancel()

		rs, err := h.config.Source.EvaluateID(ctx, id)
		if errors.Is(err, health.ErrDependencyNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		if rs == nil {
			h.fail(w, r, err)
			return
		}
		snap := rs.Snapshot()
		writeJSON(w, PrivateStatusCode(snap.SystemStatus), h.detailed(r, snap))
	}
}

// Liveness reports that the process is serving requests. It evaluates nothing.
func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// RegisterHandlers registers every report endpoint on mux.
func RegisterHandlers(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /healthcheck", h.Summary())
	mux.HandleFunc("GET /private/healthcheck", h.Detailed())
	mux.HandleFunc("GET /healthcheck/updown", h.UpDown())
	mux.HandleFunc("GET /healthcheck/live", h.Live())
	mux.HandleFunc("GET /healthcheck/alive", Liveness())
	mux.HandleFunc("GET /healthcheck/dependency/{id}", h.Dependency())
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) (health.Snapshot, bool) {
	return h.run(w, r, h.config.Source.Evaluate)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, eval func(context.Context) (*health.ResultSet, error)) (health.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	rs, err := eval(ctx)
	if rs == nil {
		h.fail(w, r, err)
		return health.Snapshot{}, false
	}
	if err != nil {
		h.config.Logger.Warn(r.Context(), "evaluation round incomplete",
			observe.F("round", rs.ID()), observe.F("error", err.Error()))
	}
	return rs.Snapshot(), true
}

func (h *Handler) detailed(r *http.Request, snap health.Snapshot) Detailed {
	return h.config.Reporter.Detailed(snap, auth.Privileged(r.Context(), h.config.PrivilegedRole))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	msg := "no result set"
	if err != nil {
		msg = err.Error()
	}
	h.config.Logger.Error(r.Context(), "dependency evaluation failed", observe.F("error", msg))
	http.Error(w, msgEvaluationFailed, http.StatusServiceUnavailable)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
