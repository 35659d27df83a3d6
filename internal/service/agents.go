// agents.go — сервис реестра агентов флота.
// Регистрация, список, получение, обновление статуса/liveness.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arturkryukov/purgeboard/internal/domain/model"
	"github.com/arturkryukov/purgeboard/internal/repository"
)

// AgentService — сервис реестра агентов.
type AgentService struct {
	agentRepo repository.AgentRepository
	logger    *slog.Logger
}

// NewAgentService создаёт сервис реестра агентов.
func NewAgentService(agentRepo repository.AgentRepository, logger *slog.Logger) *AgentService {
	return &AgentService{
		agentRepo: agentRepo,
		logger:    logger.With(slog.String("component", "agent_service")),
	}
}

// Register регистрирует нового агента со статусом offline.
// Адрес обязателен.
func (s *AgentService) Register(ctx context.Context, address string) (*model.Agent, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: адрес агента обязателен", ErrValidation)
	}

	a := &model.Agent{
		Address: address,
		Status:  model.AgentStatusOffline,
	}
	if err := s.agentRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("регистрация агента: %w", err)
	}

	s.logger.Info("Агент зарегистрирован",
		slog.Int64("agent_id", a.ID),
		slog.String("address", a.Address),
	)

	return a, nil
}

// List возвращает всех агентов в порядке регистрации.
func (s *AgentService) List(ctx context.Context) ([]*model.Agent, error) {
	agents, err := s.agentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка агентов: %w", err)
	}
	return agents, nil
}

// Get возвращает агента по идентификатору.
func (s *AgentService) Get(ctx context.Context, id int64) (*model.Agent, error) {
	a, err := s.agentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение агента: %w", err)
	}
	return a, nil
}

// UpdateStatus устанавливает статус и last_seen агента.
// Нулевое seenAt заменяется текущим временем сервера.
func (s *AgentService) UpdateStatus(ctx context.Context, id int64, status string, seenAt time.Time) error {
	if !model.ValidAgentStatus(status) {
		return fmt.Errorf("%w: недопустимый статус %q, допустимые: online, offline", ErrValidation, status)
	}
	if seenAt.IsZero() {
		seenAt = time.Now().UTC()
	}

	if err := s.agentRepo.UpdateStatus(ctx, id, status, seenAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("обновление статуса агента: %w", err)
	}

	s.logger.Debug("Статус агента обновлён",
		slog.Int64("agent_id", id),
		slog.String("status", status),
	)

	return nil
}
