// files.go — обработчики /api/v1/files endpoints.
// Реестр файлов-кандидатов: приём, список pending с поиском,
// групповые approve/reject, статистика по статусам.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apierrors "github.com/arturkryukov/purgeboard/internal/api/errors"
	"github.com/arturkryukov/purgeboard/internal/domain/model"
	"github.com/arturkryukov/purgeboard/internal/service"
)

// fileResponse — представление записи файла в API.
type fileResponse struct {
	ID         int64      `json:"id"`
	Filename   string     `json:"filename"`
	FullPath   string     `json:"full_path"`
	AgentID    int64      `json:"agent_id"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ApprovedAt *time.Time `json:"approved_at"`
}

// pendingFileResponse — pending-запись с адресом агента-владельца.
type pendingFileResponse struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	FullPath     string    `json:"full_path"`
	AgentID      int64     `json:"agent_id"`
	AgentAddress string    `json:"agent_address"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// fileSubmitRequest — тело запроса приёма файла-кандидата.
type fileSubmitRequest struct {
	Filename string `json:"filename"`
	FullPath string `json:"full_path"`
	AgentID  int64  `json:"agent_id"`
}

// fileBatchRequest — тело запроса группового approve/reject.
type fileBatchRequest struct {
	FileIDs []int64 `json:"file_ids"`
}

// SubmitFile — POST /api/v1/files.
// Принимает запись файла-кандидата от агента; статус — pending.
func (h *APIHandler) SubmitFile(w http.ResponseWriter, r *http.Request) {
	var req fileSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	f, err := h.files.Submit(r.Context(), req.Filename, req.FullPath, req.AgentID)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		if errors.Is(err, service.ErrUnknownAgent) {
			apierrors.UnknownAgent(w, err.Error())
			return
		}
		h.logger.Error("Ошибка приёма файла-кандидата", "agent_id", req.AgentID, "error", err)
		apierrors.InternalError(w, "Ошибка приёма файла-кандидата")
		return
	}

	writeJSON(w, http.StatusCreated, mapFileRecord(f))
}

// ListPendingFiles — GET /api/v1/files/pending?search=.
// Возвращает pending-записи с адресом агента-владельца.
// Непустой search — подстрочный фильтр по имени файла или пути.
func (h *APIHandler) ListPendingFiles(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")

	files, err := h.files.ListPending(r.Context(), search)
	if err != nil {
		if errors.Is(err, service.ErrIntegrity) {
			h.logger.Error("Нарушение целостности реестра файлов", "error", err)
			apierrors.IntegrityViolation(w, "Реестр файлов ссылается на несуществующего агента")
			return
		}
		h.logger.Error("Ошибка получения списка pending-файлов", "error", err)
		apierrors.InternalError(w, "Ошибка получения списка pending-файлов")
		return
	}

	items := make([]pendingFileResponse, len(files))
	for i, f := range files {
		items[i] = pendingFileResponse{
			ID:           f.ID,
			Filename:     f.Filename,
			FullPath:     f.FullPath,
			AgentID:      f.AgentID,
			AgentAddress: f.AgentAddress,
			Status:       f.Status,
			CreatedAt:    f.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, items)
}

// ApproveFiles — POST /api/v1/files/approve.
// Одобряет pending-записи из file_ids; остальные id молча пропускаются.
// Возвращает количество фактически одобренных.
func (h *APIHandler) ApproveFiles(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeBatchRequest(w, r)
	if !ok {
		return
	}

	count, err := h.files.Approve(r.Context(), ids)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка одобрения файлов", "error", err)
		apierrors.InternalError(w, "Ошибка одобрения файлов")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"approved": count})
}

// RejectFiles — POST /api/v1/files/reject.
// Отклоняет pending-записи из file_ids; семантика как у ApproveFiles.
func (h *APIHandler) RejectFiles(w http.ResponseWriter, r *http.Request) {
	ids, ok := decodeBatchRequest(w, r)
	if !ok {
		return
	}

	count, err := h.files.Reject(r.Context(), ids)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка отклонения файлов", "error", err)
		apierrors.InternalError(w, "Ошибка отклонения файлов")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"rejected": count})
}

// GetFileStats — GET /api/v1/files/stats.
// Количество записей по статусам для карточек дашборда.
func (h *APIHandler) GetFileStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.files.Stats(r.Context())
	if err != nil {
		h.logger.Error("Ошибка подсчёта статистики файлов", "error", err)
		apierrors.InternalError(w, "Ошибка подсчёта статистики файлов")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"pending":  counts.Pending,
		"approved": counts.Approved,
		"rejected": counts.Rejected,
	})
}

// decodeBatchRequest разбирает тело группового запроса.
// При некорректном JSON пишет 400 и возвращает ok=false.
// Пустой список не отклоняется здесь — это делает сервисный слой.
func decodeBatchRequest(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	var req fileBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return nil, false
	}
	return req.FileIDs, true
}

// mapFileRecord конвертирует domain model в API-представление.
func mapFileRecord(f *model.FileRecord) fileResponse {
	return fileResponse{
		ID:         f.ID,
		Filename:   f.Filename,
		FullPath:   f.FullPath,
		AgentID:    f.AgentID,
		Status:     f.Status,
		CreatedAt:  f.CreatedAt,
		ApprovedAt: f.ApprovedAt,
	}
}
