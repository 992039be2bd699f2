package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
)

// Options configures NewRouter. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Checks are run by /healthz; any failure makes it a 503.
	Checks map[string]func(context.Context) error
	// Mode is the validation mode of the gated routes. Zero is ModeJWTOnly; use
	// authcore.ModeInherit for the engine's configured mode.
	Mode         authcore.ValidationMode
	MaxBodyBytes int64
	Now          func() time.Time
}

// NewRouter builds the HTTP surface around svc.
func NewRouter(svc Service, opts Options) http.Handler {
	h := &Handler{
		svc:          svc,
		logger:       opts.Logger,
		now:          opts.Now,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.recovery)
	r.Use(h.requestLogging)
	r.Use(clientContext)

	r.Get("/healthz", h.healthz(opts.Checks))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	gate := middleware.Guard(svc, opts.Mode)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.With(gate).Get("/me", h.Me)
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.With(gate).Get("/", h.ListIdentities)
		r.With(gate).Get("/{id}", h.GetIdentity)

		strict := middleware.RequireStrict(svc)
		r.With(strict).Patch("/{id}", h.UpdateIdentity)
		r.With(strict).Delete("/{id}", h.DeactivateIdentity)
	})

	return r
}

// clientContext copies the caller's address, user agent and request id into the
// context for audit events.
func clientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := authcore.WithClientIP(r.Context(), ip)
		ctx = authcore.WithUserAgent(ctx, r.UserAgent())
		ctx = authcore.WithRequestID(ctx, chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				h.writeFailure(w, r, http.StatusInternalServerError, ErrorBody{Code: "INTERNAL_ERROR", Message: "an internal error occurred"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.InfoContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}
