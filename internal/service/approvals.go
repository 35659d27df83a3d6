// approvals.go — сервис реестра файлов-кандидатов на удаление.
// Приём записей от агентов, список pending с поиском, групповые
// approve/reject с подсчётом фактических переходов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arturkryukov/purgeboard/internal/domain/model"
	"github.com/arturkryukov/purgeboard/internal/repository"
)

// FileApprovalService — сервис реестра файлов-кандидатов.
type FileApprovalService struct {
	fileRepo  repository.FileRecordRepository
	agentRepo repository.AgentRepository
	logger    *slog.Logger
}

// NewFileApprovalService создаёт сервис реестра файлов.
func NewFileApprovalService(
	fileRepo repository.FileRecordRepository,
	agentRepo repository.AgentRepository,
	logger *slog.Logger,
) *FileApprovalService {
	return &FileApprovalService{
		fileRepo:  fileRepo,
		agentRepo: agentRepo,
		logger:    logger.With(slog.String("component", "file_approval_service")),
	}
}

// Submit принимает запись файла-кандидата от агента.
// Проверяет существование агента; запись создаётся в статусе pending.
func (s *FileApprovalService) Submit(ctx context.Context, filename, fullPath string, agentID int64) (*model.FileRecord, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: имя файла обязательно", ErrValidation)
	}
	if fullPath == "" {
		return nil, fmt.Errorf("%w: полный путь обязателен", ErrValidation)
	}

	// Проверяем существование агента-владельца
	if _, err := s.agentRepo.GetByID(ctx, agentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: агент %d", ErrUnknownAgent, agentID)
		}
		return nil, fmt.Errorf("проверка агента: %w", err)
	}

	f := &model.FileRecord{
		Filename: filename,
		FullPath: fullPath,
		AgentID:  agentID,
	}
	if err := s.fileRepo.Create(ctx, f); err != nil {
		// Гонка: агент мог исчезнуть между проверкой и вставкой
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, fmt.Errorf("%w: агент %d", ErrUnknownAgent, agentID)
		}
		return nil, fmt.Errorf("добавление записи файла: %w", err)
	}

	s.logger.Info("Файл-кандидат принят",
		slog.Int64("file_id", f.ID),
		slog.Int64("agent_id", agentID),
		slog.String("filename", filename),
	)

	return f, nil
}

// ListPending возвращает pending-записи с адресом агента-владельца.
// Непустой search фильтрует по подстроке в имени файла или пути.
func (s *FileApprovalService) ListPending(ctx context.Context, search string) ([]*model.PendingFile, error) {
	files, err := s.fileRepo.ListPending(ctx, search)
	if err != nil {
		if errors.Is(err, repository.ErrIntegrity) {
			return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
		}
		return nil, fmt.Errorf("получение списка pending-файлов: %w", err)
	}
	return files, nil
}

// Approve одобряет удаление файлов из ids. Переводятся только
// pending-записи; остальные id молча пропускаются.
// Возвращает количество фактически одобренных.
func (s *FileApprovalService) Approve(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: список file_ids пуст", ErrValidation)
	}

	count, err := s.fileRepo.Approve(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("одобрение файлов: %w", err)
	}

	s.logger.Info("Файлы одобрены к удалению",
		slog.Int("requested", len(ids)),
		slog.Int("approved", count),
	)

	return count, nil
}

// Reject отклоняет удаление файлов из ids. Семантика как у Approve.
func (s *FileApprovalService) Reject(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: список file_ids пуст", ErrValidation)
	}

	count, err := s.fileRepo.Reject(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("отклонение файлов: %w", err)
	}

	s.logger.Info("Удаление файлов отклонено",
		slog.Int("requested", len(ids)),
		slog.Int("rejected", count),
	)

	return count, nil
}

// Stats возвращает количество записей по статусам для дашборда.
func (s *FileApprovalService) Stats(ctx context.Context) (*model.StatusCounts, error) {
	counts, err := s.fileRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("подсчёт файлов по статусам: %w", err)
	}
	return counts, nil
}
