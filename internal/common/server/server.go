// Package server holds the gin plumbing shared by all three binaries.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/common/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// RequestIDHeader is read from inbound requests and echoed on responses.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key holding the request id.
	RequestIDKey = "request_id"
)

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	service string
	cfg     config.ServerConfig
	engine  *gin.Engine
	log     logger.Logger
}

// Options configures New. Tracer may be nil.
type Options struct {
	Service     string
	Environment string
	Server      config.ServerConfig
	Logger      logger.Logger
	Tracer      trace.Tracer
}

// New constructs the HTTP server with default middleware, /ready and /metrics.
// Callers register /health and their API routes on Engine().
func New(opts Options) *HttpServer {
	if opts.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(opts.Service)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(Tracing(tracer))
	engine.Use(AccessLog(opts.Service, opts.Logger))

	engine.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": opts.Service})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &HttpServer{
		service: opts.Service,
		cfg:     opts.Server,
		engine:  engine,
		log:     opts.Logger,
	}
}

// Engine returns the gin engine for route registration.
func (s *HttpServer) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", map[string]interface{}{"addr": s.cfg.Addr(), "service": s.service})
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server error", map[string]interface{}{"error": err})
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Context cancelled, shutting down HTTP server", nil)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(s.cfg.ShutdownTimeout))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// RequestID assigns every request an id, reusing an inbound X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Tracing starts a server span per request and tags it with the request id.
func Tracing(tracer trace.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("request.id", c.GetString(RequestIDKey)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

// AccessLog logs each request and feeds the HTTP prometheus metrics.
func AccessLog(service string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		active := metrics.ActiveRequests.WithLabelValues(service)
		active.Inc()
		defer active.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(service, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(service, route).Observe(duration.Seconds())

		if log == nil || route == "/metrics" {
			return
		}
		log.Info("request completed", map[string]interface{}{
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"durationMs": duration.Milliseconds(),
			"requestId":  c.GetString(RequestIDKey),
		})
	}
}
