// Package httpapi serves the annotator task endpoints over HTTP.
//
// Routes:
//
//	GET  /:slug/   next open task of the slug's task type (JSON)
//	POST /:slug/   submit a result (form or JSON body)
//	GET  /healthz  liveness, with an optional store ping
//	GET  /metrics  prometheus exposition
//
// Task routes require HTTP basic auth against the annotator ledger.
package httpapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/appraise/internal/errs"
	"github.com/example/appraise/internal/logging"
	"github.com/example/appraise/internal/metrics"
	"github.com/example/appraise/internal/ports/primary"
)

const (
	annotatorKey = "annotator"
	// authTTL bounds how long a verified login skips bcrypt.
	authTTL = 5 * time.Minute
)

// Server wires the task endpoints onto an echo instance.
type Server struct {
	Echo       *echo.Echo
	annotation primary.AnnotationService
	metrics    *metrics.CampaignMetrics
	gatherer   prometheus.Gatherer
	ping       func(context.Context) error
	authCache  *cache.Cache
	logger     *zap.Logger
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithMetrics records request metrics and exposes gatherer on /metrics.
func WithMetrics(m *metrics.CampaignMetrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithHealthCheck makes /healthz report the result of ping.
func WithHealthCheck(ping func(context.Context) error) Option {
	return func(s *Server) {
		s.ping = ping
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server with its routes registered.
func New(annotation primary.AnnotationService, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		Echo:       e,
		annotation: annotation,
		authCache:  cache.New(authTTL, 2*authTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)

	e.HTTPErrorHandler = s.errorHandler
	e.Use(s.requestMiddleware())
	e.Use(middleware.Recover())

	e.GET("/healthz", s.HealthCheck)
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	auth := middleware.BasicAuth(s.validate)
	for _, path := range []string{"/:slug/", "/:slug"} {
		e.GET(path, s.NextTask, auth)
		e.POST(path, s.Submit, auth)
	}
	return s
}

// ServeHTTP lets the server be mounted or driven in-process.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("serving task endpoints", zap.String("addr", addr))
	if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

// HealthCheck reports liveness and, when configured, store reachability.
func (s *Server) HealthCheck(c echo.Context) error {
	resp := map[string]string{"status": "ok"}
	code := http.StatusOK
	if s.ping != nil {
		if err := s.ping(c.Request().Context()); err != nil {
			resp["status"] = "unavailable"
			resp["error"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, resp)
}

// validate checks basic auth credentials, caching successful logins.
func (s *Server) validate(username, password string, c echo.Context) (bool, error) {
	key := authKey(username, password)
	if v, ok := s.authCache.Get(key); ok {
		c.Set(annotatorKey, v.(*primary.Annotator))
		return true, nil
	}

	a, err := s.annotation.Authenticate(c.Request().Context(), username, password)
	if errors.Is(err, errs.ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.authCache.SetDefault(key, a)
	c.Set(annotatorKey, a)
	return true, nil
}

// authKey never holds the plain password.
func authKey(username, password string) string {
	sum := sha256.Sum256([]byte(username + "\x00" + password))
	return hex.EncodeToString(sum[:])
}

func annotatorFrom(c echo.Context) *primary.Annotator {
	a, _ := c.Get(annotatorKey).(*primary.Annotator)
	return a
}

// requestMiddleware logs each request and feeds the request metrics.
func (s *Server) requestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Resolve the status now so metrics see the final code.
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			elapsed := time.Since(start)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			s.metrics.RecordHTTPRequest(req.Method, route, res.Status, elapsed)
			s.logger.Debug("request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Duration("latency", elapsed),
			)
			return nil
		}
	}
}
