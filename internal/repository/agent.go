package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/purgeboard/internal/domain/model"
)

// AgentRepository — интерфейс CRUD для таблицы agents.
type AgentRepository interface {
	// Create регистрирует нового агента.
	Create(ctx context.Context, a *model.Agent) error
	// GetByID возвращает агента по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.Agent, error)
	// List возвращает всех агентов в порядке регистрации.
	List(ctx context.Context) ([]*model.Agent, error)
	// UpdateStatus устанавливает статус и last_seen агента.
	UpdateStatus(ctx context.Context, id int64, status string, seenAt time.Time) error
	// MarkOfflineBefore помечает offline агентов, чей last_seen старше cutoff.
	// Возвращает количество помеченных агентов.
	MarkOfflineBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// agentRepo — реализация AgentRepository.
type agentRepo struct {
	db DBTX
}

// NewAgentRepository создаёт репозиторий агентов.
func NewAgentRepository(db DBTX) AgentRepository {
	return &agentRepo{db: db}
}

func (r *agentRepo) Create(ctx context.Context, a *model.Agent) error {
	query := `
		INSERT INTO agents (address, status)
		VALUES ($1, $2)
		RETURNING id, last_seen, created_at, updated_at`

	if a.Status == "" {
		a.Status = model.AgentStatusOffline
	}

	err := r.db.QueryRow(ctx, query, a.Address, a.Status).
		Scan(&a.ID, &a.LastSeen, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка регистрации агента: %w", err)
	}
	return nil
}

func (r *agentRepo) GetByID(ctx context.Context, id int64) (*model.Agent, error) {
	query := `
		SELECT id, address, status, last_seen, created_at, updated_at
		FROM agents
		WHERE id = $1`

	a := &model.Agent{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Address, &a.Status, &a.LastSeen, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения агента: %w", err)
	}
	return a, nil
}

func (r *agentRepo) List(ctx context.Context) ([]*model.Agent, error) {
	query := `
		SELECT id, address, status, last_seen, created_at, updated_at
		FROM agents
		ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка агентов: %w", err)
	}
	defer rows.Close()

	var result []*model.Agent
	for rows.Next() {
		a := &model.Agent{}
		if err := rows.Scan(
			&a.ID, &a.Address, &a.Status, &a.LastSeen, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агента: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *agentRepo) UpdateStatus(ctx context.Context, id int64, status string, seenAt time.Time) error {
	query := `
		UPDATE agents
		SET status = $2, last_seen = $3, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status, seenAt)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса агента: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOfflineBefore переводит в offline всех online-агентов,
// не выходивших на связь после cutoff (включая агентов без last_seen).
func (r *agentRepo) MarkOfflineBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE agents
		SET status = 'offline', updated_at = now()
		WHERE status = 'online'
			AND (last_seen IS NULL OR last_seen < $1)`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ошибка пометки устаревших агентов: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
