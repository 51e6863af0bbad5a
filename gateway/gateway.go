// Package gateway exposes the annotation service over HTTP: a JSON REST
// API for extraction, model lifecycle and reply suggestions, a WebSocket
// stream of model lifecycle events, and the Prometheus scrape endpoint.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/textann/entity"
	"github.com/c360/textann/errors"
	"github.com/c360/textann/metric"
	"github.com/c360/textann/model"
	"github.com/c360/textann/reply"
)

// Annotator extracts annotations from a single piece of text.
type Annotator interface {
	Annotate(ctx context.Context, text string, params entity.Params) ([]entity.Annotation, error)
}

// AnnotatorProvider resolves the extraction pipeline for a language.
type AnnotatorProvider interface {
	AnnotatorFor(id model.Identifier) (Annotator, error)
}

// Replier produces reply suggestions for a conversation.
type Replier interface {
	SuggestReplies(ctx context.Context, messages []reply.Message) (reply.SuggestionResult, error)
}

// Config holds the HTTP listener settings.
type Config struct {
	ListenAddr     string
	MaxRequestSize int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	EnableCORS     bool
	CORSOrigins    []string
}

// DefaultConfig returns sensible listener defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     ":8080",
		MaxRequestSize: 1 << 20,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		CORSOrigins:    []string{"*"},
	}
}

// Dependencies holds the collaborating services the gateway fronts.
type Dependencies struct {
	Models     *model.Manager
	Annotators AnnotatorProvider
	Replier    Replier
	Conditions model.DownloadConditions
	Registry   *metric.MetricsRegistry
	Logger     *slog.Logger
}

// Gateway serves the REST API and the lifecycle event stream.
type Gateway struct {
	config     Config
	models     *model.Manager
	annotators AnnotatorProvider
	replier    Replier
	conditions model.DownloadConditions
	registry   *metric.MetricsRegistry
	logger     *slog.Logger
	metrics    *httpMetrics

	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]struct{}
	clientsMu sync.Mutex

	server      *http.Server
	shutdown    chan struct{}
	running     bool
	stopped     bool
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	wg          sync.WaitGroup

	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64
}

// httpMetrics holds the gateway's Prometheus metrics.
type httpMetrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	wsClients     prometheus.Gauge
	wsEventsSent  prometheus.Counter
	wsConnections prometheus.Counter
}

func newHTTPMetrics(registry *metric.MetricsRegistry) *httpMetrics {
	if registry == nil {
		return nil
	}

	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "textann",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "textann",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"route"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "textann",
			Subsystem: "gateway",
			Name:      "ws_clients_connected",
			Help:      "Currently connected event stream clients",
		}),
		wsEventsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "textann",
			Subsystem: "gateway",
			Name:      "ws_events_sent_total",
			Help:      "Lifecycle events delivered to stream clients",
		}),
		wsConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "textann",
			Subsystem: "gateway",
			Name:      "ws_connections_total",
			Help:      "Total event stream connections accepted",
		}),
	}

	registry.PrometheusRegistry().MustRegister(
		m.requests, m.duration, m.wsClients, m.wsEventsSent, m.wsConnections,
	)
	return m
}

// New creates a gateway from configuration and dependencies.
func New(cfg Config, deps Dependencies) (*Gateway, error) {
	if cfg.ListenAddr == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Gateway", "New",
			"listen address is required")
	}
	if deps.Models == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Gateway", "New",
			"model manager is required")
	}
	if deps.Annotators == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Gateway", "New",
			"annotator provider is required")
	}
	if deps.Replier == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Gateway", "New",
			"replier is required")
	}
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = DefaultConfig().MaxRequestSize
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{
		config:     cfg,
		models:     deps.Models,
		annotators: deps.Annotators,
		replier:    deps.Replier,
		conditions: deps.Conditions,
		registry:   deps.Registry,
		logger:     logger.With("component", "gateway"),
		metrics:    newHTTPMetrics(deps.Registry),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
		clients:  make(map[*websocket.Conn]struct{}),
		shutdown: make(chan struct{}),
	}, nil
}

// Handler returns the route table as an http.Handler.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/annotate", g.instrument("annotate", g.handleAnnotate))
	mux.HandleFunc("GET /v1/models", g.instrument("models_list", g.handleListModels))
	mux.HandleFunc("GET /v1/models/{tag}", g.instrument("model_status", g.handleModelStatus))
	mux.HandleFunc("POST /v1/models/{tag}/download", g.instrument("model_download", g.handleDownload))
	mux.HandleFunc("DELETE /v1/models/{tag}", g.instrument("model_delete", g.handleDelete))
	mux.HandleFunc("POST /v1/replies", g.instrument("replies", g.handleReplies))
	mux.HandleFunc("GET /v1/events", g.handleEvents)
	mux.HandleFunc("GET /healthz", g.handleHealth)

	if g.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(
			g.registry.PrometheusRegistry(),
			promhttp.HandlerOpts{},
		))
	}

	return mux
}

// Start begins serving. The listener runs until Stop or a fatal error.
func (g *Gateway) Start(_ context.Context) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Gateway", "Start",
			"gateway already running")
	}
	if g.stopped {
		return errors.WrapFatal(errors.ErrShuttingDown, "Gateway", "Start",
			"gateway cannot be restarted")
	}

	g.server = &http.Server{
		Addr:         g.config.ListenAddr,
		Handler:      g.Handler(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}
	g.running = true
	g.startTime = time.Now()

	g.wg.Add(1)
	go g.runServer()

	return nil
}

func (g *Gateway) runServer() {
	defer g.wg.Done()

	g.logger.Info("gateway listening", "addr", g.config.ListenAddr)
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		g.logger.Error("gateway server exited", "error", err)
	}
}

// Stop gracefully stops the listener and closes all stream clients.
func (g *Gateway) Stop(timeout time.Duration) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return nil
	}
	g.stopped = true
	g.running = false
	close(g.shutdown)
	server := g.server
	g.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn("server shutdown", "error", err)
		}
	}

	g.closeAllClients()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrConnectionTimeout, "Gateway", "Stop",
			"stream clients did not drain in time")
	}
}

// instrument wraps a handler with request counting and latency tracking.
func (g *Gateway) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		g.requestsTotal.Add(1)

		requestID := requestIDFrom(r)
		w.Header().Set("X-Request-ID", requestID)

		if g.config.EnableCORS {
			g.applyCORS(w, r)
		}

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)

		if rec.code >= 400 {
			g.requestsFailed.Add(1)
		}
		if g.metrics != nil {
			g.metrics.requests.WithLabelValues(route, fmt.Sprintf("%d", rec.code)).Inc()
			g.metrics.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	}
}

// statusRecorder captures the response code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// requestIDFrom extracts the request ID header or generates a new one so
// requests can be correlated across logs.
func requestIDFrom(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func (g *Gateway) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")

	allowed := false
	for _, allowedOrigin := range g.config.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}

	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	} else {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// mapErrorToHTTPStatus maps classified errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case stderrors.Is(err, errors.ErrUnknownModel):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrModelNotReady),
		stderrors.Is(err, errors.ErrAlreadyDownloading):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrUnsupportedLanguage):
		return http.StatusUnprocessableEntity
	case stderrors.Is(err, errors.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsTransient(err):
		if strings.Contains(err.Error(), "timeout") {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sanitizeError returns a client-safe message. Internal detail stays in
// the logs, never in the response body.
func sanitizeError(err error) string {
	switch {
	case err == nil:
		return "internal server error"
	case stderrors.Is(err, errors.ErrUnknownModel):
		return "unknown language model"
	case stderrors.Is(err, errors.ErrModelNotReady):
		return "language model not downloaded"
	case stderrors.Is(err, errors.ErrAlreadyDownloading):
		return "model download already in progress"
	case stderrors.Is(err, errors.ErrUnsupportedLanguage):
		return "unsupported language"
	case errors.IsInvalid(err):
		return "invalid request"
	case errors.IsTransient(err):
		if strings.Contains(err.Error(), "timeout") {
			return "request timeout"
		}
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	data, _ := json.Marshal(map[string]any{
		"error":  message,
		"status": statusCode,
	})
	_, _ = w.Write(data)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Warn("response write failed", "error", err)
	}
}
