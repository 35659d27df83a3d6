// seed.go — заполнение пустого реестра демо-данными для разработки.
// Включается через PB_DEV_SEED=true. В отличие от деструктивного пересоздания
// схемы, данные вставляются только если таблица agents пуста — существующий
// реестр никогда не затирается.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// demoAgent — демо-агент для заполнения пустого реестра.
type demoAgent struct {
	address string
	status  string
}

// demoFile — демо-файл; agentIdx — индекс агента в demoAgents.
type demoFile struct {
	filename string
	fullPath string
	agentIdx int
}

var demoAgents = []demoAgent{
	{"192.168.1.10", "online"},
	{"192.168.1.11", "online"},
	{"192.168.1.12", "offline"},
}

var demoFiles = []demoFile{
	{"matlab_script.m", "/home/user/documents/matlab_script.m", 0},
	{"data.mat", "/home/user/data/data.mat", 0},
	{"report.pdf", "/home/user/reports/report.pdf", 1},
	{"temp.txt", "/tmp/temp.txt", 1},
}

// Seed вставляет демо-агентов и демо-файлы, если таблица agents пуста.
// Возвращает true, если данные были вставлены.
func Seed(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (bool, error) {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count); err != nil {
		return false, fmt.Errorf("проверка таблицы agents: %w", err)
	}
	if count > 0 {
		logger.Info("Реестр не пуст, демо-данные не вставляются",
			slog.Int("agents", count),
		)
		return false, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("начало транзакции seed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	agentIDs := make([]int64, len(demoAgents))
	for i, a := range demoAgents {
		err := tx.QueryRow(ctx,
			`INSERT INTO agents (address, status) VALUES ($1, $2) RETURNING id`,
			a.address, a.status,
		).Scan(&agentIDs[i])
		if err != nil {
			return false, fmt.Errorf("вставка демо-агента %s: %w", a.address, err)
		}
	}

	for _, f := range demoFiles {
		_, err := tx.Exec(ctx,
			`INSERT INTO file_records (filename, full_path, agent_id) VALUES ($1, $2, $3)`,
			f.filename, f.fullPath, agentIDs[f.agentIdx],
		)
		if err != nil {
			return false, fmt.Errorf("вставка демо-файла %s: %w", f.filename, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("коммит seed: %w", err)
	}

	logger.Info("Демо-данные вставлены",
		slog.Int("agents", len(demoAgents)),
		slog.Int("files", len(demoFiles)),
	)
	return true, nil
}
