// Пакет config — загрузка и валидация конфигурации Purgeboard
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Purgeboard.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8000-8009)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Мониторинг агентов ---

	// Порог с момента last_seen, после которого агент считается offline
	AgentOfflineAfter time.Duration
	// Интервал фоновой проверки агентов
	AgentMonitorInterval time.Duration

	// --- Разработка ---

	// Заполнение пустого реестра демо-данными при старте
	DevSeed bool

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// PB_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("PB_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("PB_PORT: %w", err)
	}
	if cfg.Port < 8000 || cfg.Port > 8009 {
		return nil, fmt.Errorf("PB_PORT: значение %d вне допустимого диапазона 8000-8009", cfg.Port)
	}

	// PB_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PB_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PB_LOG_LEVEL: %w", err)
	}

	// PB_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PB_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PB_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// PB_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("PB_DB_HOST")
	if err != nil {
		return nil, err
	}

	// PB_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("PB_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("PB_DB_PORT: %w", err)
	}

	// PB_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("PB_DB_NAME")
	if err != nil {
		return nil, err
	}

	// PB_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("PB_DB_USER")
	if err != nil {
		return nil, err
	}

	// PB_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("PB_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// PB_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("PB_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("PB_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Мониторинг агентов ---

	// PB_AGENT_OFFLINE_AFTER — порог устаревания last_seen (по умолчанию 5m)
	cfg.AgentOfflineAfter, err = getEnvDuration("PB_AGENT_OFFLINE_AFTER", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PB_AGENT_OFFLINE_AFTER: %w", err)
	}
	if cfg.AgentOfflineAfter <= 0 {
		return nil, fmt.Errorf("PB_AGENT_OFFLINE_AFTER: значение должно быть положительным")
	}

	// PB_AGENT_MONITOR_INTERVAL — интервал фоновой проверки (по умолчанию 30s)
	cfg.AgentMonitorInterval, err = getEnvDuration("PB_AGENT_MONITOR_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PB_AGENT_MONITOR_INTERVAL: %w", err)
	}
	if cfg.AgentMonitorInterval <= 0 {
		return nil, fmt.Errorf("PB_AGENT_MONITOR_INTERVAL: значение должно быть положительным")
	}

	// --- Разработка ---

	// PB_DEV_SEED — демо-данные в пустой реестр (по умолчанию false)
	cfg.DevSeed, err = getEnvBool("PB_DEV_SEED", false)
	if err != nil {
		return nil, fmt.Errorf("PB_DEV_SEED: %w", err)
	}

	// --- Graceful shutdown ---

	// PB_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PB_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PB_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
