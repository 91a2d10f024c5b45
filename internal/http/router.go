package http

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Availability *AvailabilityHandler
	Health       HealthChecker
	Middleware   []func(http.Handler) http.Handler
	// TraceName enables otelhttp server instrumentation under this operation name.
	TraceName string
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		resp := newResponder(nil)
		if cfg.Health != nil {
			if err := cfg.Health.Ping(r.Context()); err != nil {
				resp.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		resp.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	})

	if cfg.Availability != nil {
		routes := map[string]http.HandlerFunc{
			"availability":       cfg.Availability.Check,
			"recurrence/preview": cfg.Availability.Preview,
			"recurrence/submit":  cfg.Availability.Submit,
		}
		mux.HandleFunc("/units/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/units/")
			id, action, found := strings.Cut(rest, "/")
			handle, known := routes[action]
			if !found || id == "" || !known {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			ctx := ContextWithUnitID(r.Context(), id)
			handle(w, r.WithContext(ctx))
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	if cfg.TraceName != "" {
		handler = otelhttp.NewHandler(handler, cfg.TraceName)
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

type healthResponse struct {
	Status string `json:"status"`
}
