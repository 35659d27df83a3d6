// Purgeboard — management-модуль учёта агентов и очереди файлов на удаление.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/arturkryukov/purgeboard/internal/api/handlers"
	"github.com/arturkryukov/purgeboard/internal/config"
	"github.com/arturkryukov/purgeboard/internal/database"
	"github.com/arturkryukov/purgeboard/internal/repository"
	"github.com/arturkryukov/purgeboard/internal/server"
	"github.com/arturkryukov/purgeboard/internal/service"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("Запуск Purgeboard",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx := context.Background()

	// Миграции выполняются до открытия пула соединений
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка выполнения миграций", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к базе данных", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// Демонстрационные данные для стендов разработки.
	// Заполняются только при пустом реестре агентов.
	if cfg.DevSeed {
		seeded, err := database.Seed(ctx, pool, logger)
		if err != nil {
			logger.Error("Ошибка заполнения демо-данных", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if seeded {
			logger.Info("Демо-данные загружены")
		}
	}

	// Репозитории
	agentRepo := repository.NewAgentRepository(pool)
	fileRepo := repository.NewFileRecordRepository(pool)

	// Сервисы
	agentService := service.NewAgentService(agentRepo, logger)
	fileService := service.NewFileApprovalService(fileRepo, agentRepo, logger)

	// Фоновый монитор доступности агентов
	monitor := service.NewAgentMonitorService(
		agentRepo,
		cfg.AgentOfflineAfter,
		cfg.AgentMonitorInterval,
		logger,
	)
	monitor.Start(ctx)
	defer monitor.Stop()

	// HTTP-обработчики
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	apiHandler := handlers.NewAPIHandler(healthHandler, agentService, fileService, logger)

	srv := server.New(cfg, logger, apiHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
