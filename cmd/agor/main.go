package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aescanero/agor/internal/application/dispatch"
	"github.com/aescanero/agor/internal/application/orchestrator"
	"github.com/aescanero/agor/internal/application/tools"
	"github.com/aescanero/agor/internal/config"
	"github.com/aescanero/agor/internal/ports"
	"github.com/aescanero/agor/pkg/adapters/events"
	eventsmem "github.com/aescanero/agor/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/agor/pkg/adapters/events/redis"
	"github.com/aescanero/agor/pkg/adapters/marketdata"
	promcollector "github.com/aescanero/agor/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/agor/pkg/adapters/model"
	"github.com/aescanero/agor/pkg/adapters/model/anthropic"
	"github.com/aescanero/agor/pkg/adapters/model/gemini"
	retrievalsqlite "github.com/aescanero/agor/pkg/adapters/retrieval/sqlite"
	"github.com/aescanero/agor/pkg/adapters/sandbox"
	storemem "github.com/aescanero/agor/pkg/adapters/store/memory"
	storeredis "github.com/aescanero/agor/pkg/adapters/store/redis"
	"github.com/aescanero/agor/pkg/api/http"
	"github.com/aescanero/agor/pkg/api/websocket"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Best effort: a missing .env file is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "agor",
		Short:         "Agent orchestration service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newRunCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agor %s (built %s)\n", Version, BuildTime)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestration API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <task>",
		Short: "Execute a single task and print the final output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), strings.Join(args, " "))
		},
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting agent orchestrator",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	metricsCollector := promcollector.NewCollector()

	agent, cleanup, err := buildAgent(cfg, metricsCollector, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Optional Redis: shared run records and a cross-node event stream.
	var store ports.RunStore = storemem.NewRunStore()
	hub := eventsmem.NewHub(cfg.Agent.EventQueueSize)
	var sink ports.EventSink = hub

	if cfg.Redis.Addr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("connecting to Redis: %w", err)
		}
		defer redisClient.Close()
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		store = storeredis.NewRunStore(redisClient, cfg.Redis.ResultTTL, logger)
		sink = events.NewFanout(hub, eventsredis.NewStreamSink(redisClient, 10000, cfg.Agent.EventQueueSize, logger))
	}

	manager := orchestrator.NewManager(agent, store, sink, metricsCollector, logger)

	httpServer := http.NewServer(&http.Config{
		Addr:    cfg.GetHTTPAddr(),
		Manager: manager,
		Logger:  logger,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(hub, logger))

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("agent orchestrator started", zap.Int("http_port", cfg.HTTPPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("run manager shutdown error", zap.Error(err))
	}
	if err := sink.Close(); err != nil {
		logger.Error("event sink close error", zap.Error(err))
	}

	logger.Info("agent orchestrator shut down complete")
	return nil
}

func runOnce(ctx context.Context, task string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	agent, cleanup, err := buildAgent(cfg, ports.NopMetrics{}, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	output := agent.Run(ctx, "cli", task, ports.NopSink{})

	encoded, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Println(string(encoded))

	if output.Partial {
		os.Exit(2)
	}
	return nil
}

// buildAgent wires the model router, the step runners and the
// orchestration loop. The returned cleanup closes owned resources.
func buildAgent(cfg *config.Config, metrics ports.MetricsCollector, logger *zap.Logger) (*orchestrator.Agent, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var backends []model.Backend
	if cfg.Model.AnthropicAPIKey != "" {
		backends = append(backends, anthropic.NewClient(
			cfg.Model.AnthropicAPIKey, cfg.Model.AnthropicModel, cfg.Model.MaxTokens))
	}
	if cfg.Model.GeminiAPIKey != "" {
		client, err := gemini.NewClient(context.Background(), cfg.Model.GeminiAPIKey, cfg.Model.GeminiModel)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("creating gemini backend: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		backends = append(backends, client)
	}

	router, err := model.NewRouter(model.RouterConfig{
		RequestTimeout:   cfg.Model.RequestTimeout,
		BreakerThreshold: cfg.Model.BreakerThreshold,
		BreakerRecovery:  cfg.Model.BreakerRecovery,
		Metrics:          metrics,
		Logger:           logger,
	}, backends...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("creating model router: %w", err)
	}

	retrieval, err := retrievalsqlite.New(cfg.Retrieval.DBPath, cfg.Retrieval.MinSimilarity)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("opening retrieval store: %w", err)
	}
	closers = append(closers, func() { _ = retrieval.Close() })

	executor := sandbox.NewClient(cfg.Sandbox, logger)
	market := marketdata.NewClient(cfg.Market.BaseURL, logger)

	registry := tools.NewRegistry()
	registry.Register(&tools.ComputeRunner{Exec: executor, Model: router, Timeout: cfg.Sandbox.Timeout})
	registry.Register(&tools.RetrieveRunner{Retrieval: retrieval, TopK: cfg.Retrieval.TopK})
	registry.Register(&tools.FetchDataRunner{Data: market, DefaultSymbol: cfg.Market.Symbol, DefaultPeriod: cfg.Market.Period})
	registry.Register(&tools.IndicatorsRunner{})
	registry.Register(&tools.SynthesizeRunner{Model: router})

	dispatcher := dispatch.NewDispatcher(registry, cfg.Agent.Concurrency, cfg.Agent.StepTimeout, metrics, logger)
	planner := orchestrator.NewPlanner(router, cfg.Agent.MaxPlanSteps, logger)
	verifier := orchestrator.NewVerifier(router, logger)

	agent := orchestrator.NewAgent(
		planner,
		orchestrator.NewValidator(),
		dispatcher,
		verifier,
		metrics,
		logger,
		cfg.Agent.MaxIterations,
		cfg.Agent.RunBudget,
		cfg.Agent.ReexecuteOnImprove,
	)
	return agent, cleanup, nil
}

// initLogger initializes the logger based on log level.
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	return logger
}
