// Package main implements the entry point for the textann service: an
// HTTP API for entity extraction from text, language model lifecycle
// management, and reply suggestion.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/textann/annotate"
	"github.com/c360/textann/config"
	"github.com/c360/textann/gateway"
	"github.com/c360/textann/metric"
	"github.com/c360/textann/model"
	"github.com/c360/textann/reply"
	"github.com/c360/textann/scanner"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "textann"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printHelp()
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cliCfg.Validate {
		fmt.Println("Configuration is valid")
		return nil
	}

	// CLI overrides take precedence over the config file.
	logLevel := cfg.Logging.Level
	if cliCfg.LogLevel != "" {
		logLevel = cliCfg.LogLevel
	}
	logFormat := cfg.Logging.Format
	if cliCfg.LogFormat != "" {
		logFormat = cliCfg.LogFormat
	}
	logger := setupLogger(logLevel, logFormat)
	slog.SetDefault(logger)

	slog.Info("Starting textann",
		"version", Version,
		"config_path", cliCfg.ConfigPath,
		"listen_addr", cfg.HTTP.ListenAddr)

	registry := metric.NewMetricsRegistry()

	nc, err := connectNATS(cfg, registry)
	if err != nil {
		return err
	}
	if nc != nil {
		defer nc.Close()
	}

	manager, err := setupModelManager(cfg, registry, logger, nc)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Stop(cliCfg.ShutdownTimeout) }()

	provider, ranker, err := setupPipelines(cfg, registry, logger, manager)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Stop(cliCfg.ShutdownTimeout) }()

	gw, err := setupGateway(cfg, registry, logger, manager, provider, ranker)
	if err != nil {
		return err
	}

	preloadModels(cfg, manager)

	return runWithSignalHandling(gw, cfg.HTTP.ShutdownTimeout)
}

// connectNATS dials the lifecycle event broker when enabled. A nil return
// with nil error means NATS publishing is off.
func connectNATS(cfg *config.Config, registry *metric.MetricsRegistry) (*nats.Conn, error) {
	if !cfg.NATS.Enabled {
		return nil, nil
	}

	core := registry.CoreMetrics()
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, _ error) {
			core.RecordNATSStatus(false)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			core.RecordNATSStatus(true)
			core.RecordNATSReconnect()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect NATS at %s: %w", cfg.NATS.URL, err)
	}
	core.RecordNATSStatus(true)
	slog.Info("NATS connected", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	return nc, nil
}

func setupModelManager(
	cfg *config.Config,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
	nc *nats.Conn,
) (*model.Manager, error) {
	transportOpts := []model.HTTPTransportOption{model.WithTransportLogger(logger)}
	if cfg.Models.CacheDir != "" {
		transportOpts = append(transportOpts, model.WithCacheDir(cfg.Models.CacheDir))
	}
	transport, err := model.NewHTTPTransport(cfg.Models.BaseURL, transportOpts...)
	if err != nil {
		return nil, fmt.Errorf("create model transport: %w", err)
	}

	managerOpts := []model.Option{
		model.WithRetry(cfg.RetryConfig()),
		model.WithMetrics(registry),
		model.WithLogger(logger),
	}
	if nc != nil {
		managerOpts = append(managerOpts, model.WithNATS(nc, cfg.NATS.Subject))
	}

	manager, err := model.NewManager(transport, managerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create model manager: %w", err)
	}
	if err := manager.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("start model manager: %w", err)
	}
	return manager, nil
}

func setupPipelines(
	cfg *config.Config,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
	manager *model.Manager,
) (*annotate.Provider, *reply.Ranker, error) {
	scan := scanner.NewRuleScanner(scanner.WithAvailabilityGate(manager.Ensure))

	provider, err := annotate.NewProvider(scan, manager,
		annotate.WithWorkers(cfg.Extraction.Workers, cfg.Extraction.QueueSize),
		annotate.WithMetricsRegistry(registry),
		annotate.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create annotator provider: %w", err)
	}

	ranker, err := reply.NewRanker(reply.NewHeuristicModel(), manager,
		reply.WithMinConfidence(cfg.Reply.MinConfidence),
		reply.WithMetrics(registry),
		reply.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create reply ranker: %w", err)
	}
	return provider, ranker, nil
}

// annotatorProvider adapts the concrete provider to the gateway interface.
type annotatorProvider struct {
	provider *annotate.Provider
}

func (a annotatorProvider) AnnotatorFor(id model.Identifier) (gateway.Annotator, error) {
	return a.provider.AnnotatorFor(id)
}

func setupGateway(
	cfg *config.Config,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
	manager *model.Manager,
	provider *annotate.Provider,
	ranker *reply.Ranker,
) (*gateway.Gateway, error) {
	gwCfg := gateway.DefaultConfig()
	gwCfg.ListenAddr = cfg.HTTP.ListenAddr
	gwCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	gwCfg.WriteTimeout = cfg.HTTP.WriteTimeout

	gw, err := gateway.New(gwCfg, gateway.Dependencies{
		Models:     manager,
		Annotators: annotatorProvider{provider: provider},
		Replier:    ranker,
		Conditions: cfg.DownloadConditions(),
		Registry:   registry,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}
	return gw, nil
}

// preloadModels kicks off downloads for the configured languages. Failures
// are logged, not fatal; the models stay downloadable through the API.
func preloadModels(cfg *config.Config, manager *model.Manager) {
	ids, err := cfg.PreloadIdentifiers()
	if err != nil {
		slog.Warn("preload skipped", "error", err)
		return
	}
	conditions := cfg.DownloadConditions()
	for _, id := range ids {
		if _, err := manager.RequestDownload(id, conditions); err != nil {
			slog.Warn("preload request failed", "language", id, "error", err)
			continue
		}
		slog.Info("preload started", "language", id)
	}
}

// runWithSignalHandling serves until SIGINT or SIGTERM, then shuts the
// gateway down gracefully.
func runWithSignalHandling(gw *gateway.Gateway, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := gw.Start(signalCtx); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}
	slog.Info("textann started")

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := gw.Stop(shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("textann shutdown complete")
	return nil
}
