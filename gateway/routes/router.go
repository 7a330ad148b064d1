// Package routes mounts the protocol's HTTP API on a chi router.
package routes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"ideacapital/core"
	"ideacapital/core/state"
	"ideacapital/gateway/middleware"
	"ideacapital/services/distribution"
)

// ArchiveReader serves archived events. *relay.Archive satisfies it.
type ArchiveReader interface {
	Events(ctx context.Context, after uint64, eventType string, limit int) ([]state.Record, error)
}

// Config wires the API to its backends. Planner and Archive are optional;
// their routes answer 503 when unset.
type Config struct {
	Node          *core.Node
	Planner       *distribution.Planner
	Archive       ArchiveReader
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

type api struct {
	node    *core.Node
	planner *distribution.Planner
	archive ArchiveReader
	logger  *slog.Logger
}

var errUnavailable = errors.New("service not configured")

// New builds the gateway handler.
func New(cfg Config) (http.Handler, error) {
	if cfg.Node == nil {
		return nil, errors.New("routes: node is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := &api{node: cfg.Node, planner: cfg.Planner, archive: cfg.Archive, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Observability != nil {
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}

	r.Route("/v1", func(v chi.Router) {
		if cfg.Authenticator != nil {
			v.Use(cfg.Authenticator.Middleware)
		}
		if cfg.RateLimiter != nil {
			v.Use(cfg.RateLimiter.Middleware)
		}
		v.Get("/deployment", a.deployment)
		a.mountTokens(v)
		a.mountFunding(v)
		a.mountDividends(v)
		a.mountGovernance(v)
		a.mountMarket(v)
		a.mountEvents(v)
	})

	return otelhttp.NewHandler(r, "gateway",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	), nil
}

// write mounts a mutating route: the caller identity is mandatory.
func write(r chi.Router, method, pattern string, h http.HandlerFunc) {
	r.With(middleware.RequireCaller).Method(method, pattern, h)
}

func (a *api) deployment(w http.ResponseWriter, r *http.Request) {
	dep, err := a.node.Deployment(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dep)
}
