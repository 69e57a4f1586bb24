package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/elementalcave/cave-server-go/internal/config"
	"github.com/elementalcave/cave-server-go/internal/level"
	"github.com/elementalcave/cave-server-go/internal/replay"
	"github.com/elementalcave/cave-server-go/internal/repository"
	"github.com/elementalcave/cave-server-go/internal/server"
	"github.com/elementalcave/cave-server-go/internal/session"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting cave server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	levels, err := loadLevels(cfg.Levels)
	if err != nil {
		logger.Fatal("failed to load levels", zap.Error(err))
	}
	if _, err := levels.Level(cfg.Levels.Default); err != nil {
		logger.Fatal("default level missing", zap.Error(err))
	}
	for _, id := range levels.IDs() {
		lvl, _ := levels.Level(id)
		if _, err := cfg.Generation(lvl.Setup.Info.Generation); err != nil {
			logger.Fatal("level uses an unknown rule generation", zap.String("level_id", id), zap.Error(err))
		}
	}
	logger.Info("levels loaded",
		zap.Int("count", levels.Len()),
		zap.String("directory", cfg.Levels.Directory),
	)

	var saves repository.SaveStore = repository.NewMemoryStore()
	if cfg.Database.Enabled {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
		saves = repository.NewPostgresStore(db)
	} else {
		logger.Warn("database disabled; save slots are kept in memory")
	}

	var recorder *replay.Recorder
	if cfg.Replays.Enabled {
		if err := os.MkdirAll(cfg.Replays.Directory, 0o755); err != nil {
			logger.Fatal("failed to create replay directory", zap.Error(err))
		}
		recorder = replay.NewRecorder(logger, cfg.Replays.Directory)
		logger.Info("replay recording enabled", zap.String("directory", cfg.Replays.Directory))
	}

	sessionMgr := session.NewManager(session.Options{
		Levels:          levels,
		Generations:     cfg,
		Saves:           saves,
		Recorder:        recorder,
		DefaultLevel:    cfg.Levels.Default,
		LeasePeriod:     cfg.Server.LeasePeriod,
		MaxSessions:     cfg.Server.MaxSessions,
		InvariantChecks: cfg.Rules.InvariantChecks,
	}, logger)
	logger.Info("session manager initialized",
		zap.Duration("lease_period", cfg.Server.LeasePeriod),
	)

	go sessionMgr.CleanupExpiredSessions(ctx)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
			server.RecoveryInterceptor(logger),
			server.LoggingInterceptor(logger),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)
	server.RegisterCaveServiceServer(grpcServer, server.NewCaveServer(sessionMgr, version, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	hub := server.NewHub(sessionMgr, logger)
	go hub.Run(ctx)
	wsServer := server.NewWebSocketServer(cfg.Server.WebSocket, hub)
	go func() {
		if wsErr := server.ServeWebSocket(wsServer, logger); wsErr != nil {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("cave server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("websocket_path", cfg.Server.WebSocket.Path),
		zap.Int("max_sessions", cfg.Server.MaxSessions),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("WebSocket server shutdown", zap.Error(err))
	}

	sessionMgr.CloseAll()

	grpcServer.GracefulStop()

	logger.Info("cave server stopped")
}

func loadLevels(cfg config.LevelsConfig) (*level.Catalog, error) {
	if cfg.Directory == "" {
		return level.Default()
	}
	return level.LoadDir(cfg.Directory)
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch cfg.Level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info":
		lvl = zapcore.InfoLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	return zapCfg.Build()
}
