// Command membria-core runs the decision-memory engine daemon: the §4.9
// JSON-RPC tool server over stdin/stdout, the §4.3 webhook HTTP endpoint,
// the §4.10 TTL sweep, and the two Temporal background workers, all wired
// against a single graph-store connection and local engram index.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/actiquest-dev/membria-core/internal/calibration"
	"github.com/actiquest-dev/membria-core/internal/config"
	"github.com/actiquest-dev/membria-core/internal/contextmgr"
	"github.com/actiquest-dev/membria-core/internal/engramstore"
	"github.com/actiquest-dev/membria-core/internal/federation"
	"github.com/actiquest-dev/membria-core/internal/graphstore"
	"github.com/actiquest-dev/membria-core/internal/lock"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/orchestration"
	"github.com/actiquest-dev/membria-core/internal/outcometracker"
	"github.com/actiquest-dev/membria-core/internal/patternextractor"
	"github.com/actiquest-dev/membria-core/internal/planvalidator"
	"github.com/actiquest-dev/membria-core/internal/skillgen"
	"github.com/actiquest-dev/membria-core/internal/temporalworkers"
	"github.com/actiquest-dev/membria-core/internal/toolserver"
	"github.com/actiquest-dev/membria-core/internal/ttlsweep"
	"github.com/actiquest-dev/membria-core/internal/webhook"
)

func configureLogger(logLevel string, useDev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// modelNamespace converts the config package's Namespace into model's,
// since graph entities and calibration profiles are tagged with the
// latter while config stays free of the model package's dependency.
func modelNamespace(ns config.Namespace) model.Namespace {
	return model.Namespace{TenantID: ns.TenantID, TeamID: ns.TeamID, ProjectID: ns.ProjectID}
}

func main() {
	configPath := flag.String("config", "membria-core.toml", "path to config file")
	dev := flag.Bool("dev", false, "use text log format (default is JSON)")
	noTemporal := flag.Bool("no-temporal", false, "skip connecting to Temporal (tool server and webhook only)")
	temporalHostPort := flag.String("temporal-host-port", "127.0.0.1:7233", "Temporal frontend host:port")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("membria-core starting", "config", *configPath)

	config.LoadDotEnv()
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfgMgr := config.NewManager(cfg)

	logger = configureLogger(cfg.General.LogLevel, *dev)
	slog.SetDefault(logger)

	lockPath := config.ExpandHome("/tmp/membria-core.lock")
	instanceLock, err := lock.Acquire(lockPath, logger.With("component", "lock"))
	if err != nil {
		logger.Error("failed to acquire lock", "error", err)
		os.Exit(1)
	}
	defer instanceLock.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	graph, err := graphstore.Connect(ctx, cfg, logger.With("component", "graphstore"))
	if err != nil {
		logger.Error("failed to connect to graph engine", "error", err)
		os.Exit(1)
	}
	defer graph.Close(context.Background())

	engramDBPath := config.ExpandHome(cfg.Storage.EngramDBPath)
	engram, err := engramstore.Open(engramDBPath)
	if err != nil {
		logger.Error("failed to open engram store", "path", engramDBPath, "error", err)
		os.Exit(1)
	}
	defer engram.Close()

	calStore, err := calibration.NewFileStore(cfg.General.DataDir, modelNamespace(cfg.General.Namespace))
	if err != nil {
		logger.Error("failed to open calibration store", "error", err)
		os.Exit(1)
	}
	calEngine := calibration.NewEngine(calStore, cfg.Calibration.RollingWindowSize)

	tracker := outcometracker.New(graph, calEngine)
	ctxMgr := contextmgr.New(graph, calEngine)
	extractor := patternextractor.New(graph)
	planBuilder := planvalidator.NewBuilder(graph, calEngine, extractor)
	planValidator := planvalidator.NewValidator(graph, calEngine)
	orchSvc := orchestration.New(graph)

	now := func() int64 { return time.Now().Unix() }
	startedAt := now()

	skillGen := skillgen.New(extractor, graph, calEngine, now)

	reg := toolserver.NewRegistry()
	toolserver.RegisterAll(reg, &toolserver.Deps{
		Graph:         graph,
		Tracker:       tracker,
		Calibration:   calEngine,
		ContextMgr:    ctxMgr,
		PlanBuilder:   planBuilder,
		Validator:     planValidator,
		Orchestration: orchSvc,
		Engram:        engram,
		SkillGen:      skillGen,

		DefaultModule:  cfg.General.DefaultModule,
		DefaultTTLDays: 90,

		StartedAt: startedAt,
		LogPath:   cfg.General.LogDir,

		Now: now,
		Log: logger.With("component", "toolserver"),
	})

	dispatcher := webhook.NewDispatcher(tracker, 90)
	webhookSrv := webhook.NewServer(cfg.Webhook, dispatcher, logger.With("component", "webhook"))

	sweeper := ttlsweep.New(cfgMgr, graph, logger.With("component", "ttlsweep"), now)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	if cfg.Federation.Enabled {
		fed := federation.New(cfg.Federation, reg, logger.With("component", "federation"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			fed.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webhookSrv.Start(ctx); err != nil {
			logger.Error("webhook server error", "error", err)
		}
	}()

	if !*noTemporal {
		acts := &temporalworkers.Activities{
			Graph:     graph,
			Engram:    engram,
			Extractor: temporalworkers.NoopExtractor{},
			Log:       logger.With("component", "temporal"),
			Now:       now,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("starting temporal worker", "host_port", *temporalHostPort)
			if err := temporalworkers.StartWorker(*temporalHostPort, acts, logger.With("component", "temporal")); err != nil {
				logger.Error("temporal worker error", "error", err)
			}
		}()

		go func() {
			// Give the worker a moment to register workflows before the
			// schedules first fire.
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			err := temporalworkers.EnsureSchedules(ctx, *temporalHostPort, temporalworkers.ScheduleConfig{
				BatchProcessorTick:    cfg.Workers.BatchProcessorTick.Duration,
				HealthMonitorInterval: cfg.Workers.HealthMonitorInterval.Duration,
				PendingQueueSoftCap:   cfg.Workers.PendingQueueSoftCap,
			}, logger.With("component", "temporal"))
			if err != nil {
				logger.Error("failed to register temporal schedules", "error", err)
			}
		}()
	}

	toolServer := toolserver.NewServer(reg, cfg.ToolServer.Name, cfg.ToolServer.Version, logger.With("component", "toolserver"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				if err := cfgMgr.Reload(*configPath); err != nil {
					logger.Error("config reload failed", "error", err)
					continue
				}
				logger.Info("config reloaded")
			case syscall.SIGINT, syscall.SIGTERM:
				shutdownStart := time.Now()
				logger.Info("received signal, shutting down", "signal", sig)
				cancel()
				wg.Wait()
				logger.Info("membria-core stopped", "shutdown_duration", time.Since(shutdownStart).String())
				os.Exit(0)
			}
		}
	}()

	logger.Info("membria-core running",
		"webhook_bind", cfg.Webhook.Bind,
		"tool_server", fmt.Sprintf("%s/%s", cfg.ToolServer.Name, cfg.ToolServer.Version),
	)

	if err := toolServer.Start(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("tool server stopped", "error", err)
		cancel()
		wg.Wait()
		os.Exit(1)
	}

	cancel()
	wg.Wait()
}
