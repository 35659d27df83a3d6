package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arturkryukov/purgeboard/internal/domain/model"
)

// FileRecordRepository — интерфейс для таблицы file_records.
type FileRecordRepository interface {
	// Create добавляет новую запись файла со статусом pending.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает запись файла по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.FileRecord, error)
	// ListPending возвращает pending-записи с адресом агента-владельца.
	// Непустой search фильтрует по подстроке в filename или full_path.
	ListPending(ctx context.Context, search string) ([]*model.PendingFile, error)
	// Approve переводит pending-записи из ids в approved, проставляя approved_at.
	// Возвращает количество фактически переведённых записей.
	Approve(ctx context.Context, ids []int64) (int, error)
	// Reject переводит pending-записи из ids в rejected. approved_at не трогается.
	Reject(ctx context.Context, ids []int64) (int, error)
	// CountByStatus возвращает количество записей по каждому статусу.
	CountByStatus(ctx context.Context) (*model.StatusCounts, error)
}

// fileRecordRepo — реализация FileRecordRepository.
type fileRecordRepo struct {
	db DBTX
}

// NewFileRecordRepository создаёт репозиторий реестра файлов.
func NewFileRecordRepository(db DBTX) FileRecordRepository {
	return &fileRecordRepo{db: db}
}

func (r *fileRecordRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO file_records (filename, full_path, agent_id)
		VALUES ($1, $2, $3)
		RETURNING id, status, created_at, approved_at`

	err := r.db.QueryRow(ctx, query, f.Filename, f.FullPath, f.AgentID).
		Scan(&f.ID, &f.Status, &f.CreatedAt, &f.ApprovedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: агент %d не зарегистрирован", ErrForeignKey, f.AgentID)
		}
		return fmt.Errorf("ошибка добавления записи файла: %w", err)
	}
	return nil
}

func (r *fileRecordRepo) GetByID(ctx context.Context, id int64) (*model.FileRecord, error) {
	query := `
		SELECT id, filename, full_path, agent_id, status, created_at, approved_at
		FROM file_records
		WHERE id = $1`

	f := &model.FileRecord{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.Filename, &f.FullPath, &f.AgentID, &f.Status, &f.CreatedAt, &f.ApprovedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи файла: %w", err)
	}
	return f, nil
}

// ListPending возвращает pending-записи в порядке поступления.
// LEFT JOIN с agents: отсутствие агента у живой записи — нарушение
// целостности (FK должен это исключать) и возвращается как ErrIntegrity,
// а не молча отбрасывается.
func (r *fileRecordRepo) ListPending(ctx context.Context, search string) ([]*model.PendingFile, error) {
	query := `
		SELECT f.id, f.filename, f.full_path, f.agent_id, a.address, f.status, f.created_at
		FROM file_records f
		LEFT JOIN agents a ON a.id = f.agent_id
		WHERE f.status = 'pending'`

	var args []any
	if search != "" {
		// Подстрочный поиск с учётом регистра по имени файла ИЛИ пути.
		// % и _ в search не экранируются и работают как шаблоны LIKE.
		query += ` AND (f.filename LIKE '%' || $1 || '%' OR f.full_path LIKE '%' || $1 || '%')`
		args = append(args, search)
	}
	query += ` ORDER BY f.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка pending-файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.PendingFile
	for rows.Next() {
		f := &model.PendingFile{}
		var address *string
		if err := rows.Scan(
			&f.ID, &f.Filename, &f.FullPath, &f.AgentID, &address, &f.Status, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования pending-файла: %w", err)
		}
		if address == nil {
			return nil, fmt.Errorf("%w: файл %d ссылается на несуществующего агента %d",
				ErrIntegrity, f.ID, f.AgentID)
		}
		f.AgentAddress = *address
		result = append(result, f)
	}
	return result, rows.Err()
}

// Approve — групповое одобрение. Один UPDATE с фильтром status = 'pending'
// служит compare-and-set: из двух конкурирующих вызовов по одной записи
// переход засчитается ровно одному. Отсутствующие и не-pending id
// молча пропускаются.
func (r *fileRecordRepo) Approve(ctx context.Context, ids []int64) (int, error) {
	query := `
		UPDATE file_records
		SET status = 'approved', approved_at = now()
		WHERE id = ANY($1) AND status = 'pending'`

	tag, err := r.db.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("ошибка одобрения файлов: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Reject — групповое отклонение с той же семантикой, что и Approve.
// approved_at остаётся NULL: pending-записи его не имеют, а только они
// подпадают под обновление.
func (r *fileRecordRepo) Reject(ctx context.Context, ids []int64) (int, error) {
	query := `
		UPDATE file_records
		SET status = 'rejected'
		WHERE id = ANY($1) AND status = 'pending'`

	tag, err := r.db.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("ошибка отклонения файлов: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *fileRecordRepo) CountByStatus(ctx context.Context) (*model.StatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM file_records`

	counts := &model.StatusCounts{}
	err := r.db.QueryRow(ctx, query).Scan(&counts.Pending, &counts.Approved, &counts.Rejected)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта файлов по статусам: %w", err)
	}
	return counts, nil
}
