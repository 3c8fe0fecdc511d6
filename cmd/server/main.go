package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fisherjoey/SportsManager-sub006/internal/application/port"
	"github.com/fisherjoey/SportsManager-sub006/internal/application/service"
	"github.com/fisherjoey/SportsManager-sub006/internal/config"
	"github.com/fisherjoey/SportsManager-sub006/internal/domain/approval"
	"github.com/fisherjoey/SportsManager-sub006/internal/infrastructure/external/lark"
	"github.com/fisherjoey/SportsManager-sub006/internal/infrastructure/persistence/repository"
	"github.com/fisherjoey/SportsManager-sub006/internal/infrastructure/persistence/sqlite"
	"github.com/fisherjoey/SportsManager-sub006/internal/infrastructure/worker"
	"github.com/fisherjoey/SportsManager-sub006/internal/interfaces/http"
	"github.com/fisherjoey/SportsManager-sub006/migrations"
	"github.com/fisherjoey/SportsManager-sub006/pkg/database"
	"github.com/fisherjoey/SportsManager-sub006/pkg/utils"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense approval engine",
		zap.Int("port", cfg.Server.Port))

	// Database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(migrations.FS); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Export.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create export directory", zap.Error(err))
	}

	// Persistence
	txManager := sqlite.NewDB(db.DB, logger)
	stageRepo := repository.NewStageRepository(db.DB, logger)
	expenseRepo := repository.NewExpenseRepository(db.DB, logger)
	directory := repository.NewDirectoryRepository(db.DB, logger)

	// Notifications
	var notifier port.Notifier
	if cfg.Lark.Enabled() {
		larkClient := lark.NewClient(lark.Config{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
		}, logger)
		notifier = lark.NewNotifier(larkClient, logger)
		logger.Info("Lark notifications enabled")
	} else {
		notifier = lark.NewNopNotifier(logger)
		logger.Info("Lark notifications disabled")
	}

	// Routing
	routing, err := cfg.Routing()
	if err != nil {
		logger.Fatal("Invalid routing configuration", zap.Error(err))
	}
	resolver, err := approval.NewThresholdResolver(routing)
	if err != nil {
		logger.Fatal("Failed to build threshold resolver", zap.Error(err))
	}

	// Services
	serviceLogger := &zapLoggerAdapter{logger: logger}
	workflowService := service.NewWorkflowService(resolver, stageRepo, expenseRepo, directory, notifier, txManager, serviceLogger)
	decisionService := service.NewDecisionService(stageRepo, workflowService, notifier, txManager, serviceLogger)
	delegationService := service.NewDelegationService(stageRepo, directory, notifier, txManager, serviceLogger)
	escalationService := service.NewEscalationService(stageRepo, directory, notifier, txManager, routing.Policy, serviceLogger)
	exportService := service.NewExportService(stageRepo, expenseRepo, serviceLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background escalation sweeper
	pollerCfg := worker.DefaultEscalationPollerConfig()
	pollerCfg.PollInterval = cfg.Escalation.PollInterval
	poller := worker.NewEscalationPoller(pollerCfg, escalationService, logger)

	workers := worker.NewManager(logger)
	workers.Register(poller)
	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server
	server := http.NewServer(http.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ExportDir:    cfg.Export.OutputDir,
	}, workflowService, decisionService, delegationService, escalationService, exportService, serviceLogger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()

	if err := workers.StopAll(); err != nil {
		logger.Error("Failed to stop workers", zap.Error(err))
	}
	if err := server.Stop(); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	logger.Info("Server exited")
}

// zapLoggerAdapter adapts zap.Logger to the service and http Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
