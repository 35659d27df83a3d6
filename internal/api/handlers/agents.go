// agents.go — обработчики /api/v1/agents endpoints.
// Реестр агентов: регистрация, список, получение, heartbeat/статус.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/purgeboard/internal/api/errors"
	"github.com/arturkryukov/purgeboard/internal/domain/model"
	"github.com/arturkryukov/purgeboard/internal/service"
)

// agentResponse — представление агента в API.
type agentResponse struct {
	ID        int64      `json:"id"`
	Address   string     `json:"address"`
	Status    string     `json:"status"`
	LastSeen  *time.Time `json:"last_seen"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// agentRegisterRequest — тело запроса регистрации агента.
type agentRegisterRequest struct {
	Address string `json:"address"`
}

// agentStatusRequest — тело запроса обновления статуса/heartbeat.
type agentStatusRequest struct {
	Status string     `json:"status"`
	SeenAt *time.Time `json:"seen_at,omitempty"`
}

// RegisterAgent — POST /api/v1/agents.
// Регистрирует нового агента со статусом offline.
func (h *APIHandler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	a, err := h.agents.Register(r.Context(), req.Address)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка регистрации агента", "address", req.Address, "error", err)
		apierrors.InternalError(w, "Ошибка регистрации агента")
		return
	}

	writeJSON(w, http.StatusCreated, mapAgent(a))
}

// ListAgents — GET /api/v1/agents.
// Возвращает всех агентов со статусом и last_seen.
func (h *APIHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.List(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения списка агентов", "error", err)
		apierrors.InternalError(w, "Ошибка получения списка агентов")
		return
	}

	items := make([]agentResponse, len(agents))
	for i, a := range agents {
		items[i] = mapAgent(a)
	}

	writeJSON(w, http.StatusOK, items)
}

// GetAgent — GET /api/v1/agents/{agent_id}.
func (h *APIHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := agentIDParam(w, r)
	if !ok {
		return
	}

	a, err := h.agents.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Агент не найден")
			return
		}
		h.logger.Error("Ошибка получения агента", "agent_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения агента")
		return
	}

	writeJSON(w, http.StatusOK, mapAgent(a))
}

// UpdateAgentStatus — PUT /api/v1/agents/{agent_id}/status.
// Heartbeat: устанавливает статус и last_seen.
// Отсутствующий seen_at заменяется временем сервера.
func (h *APIHandler) UpdateAgentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := agentIDParam(w, r)
	if !ok {
		return
	}

	var req agentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	var seenAt time.Time
	if req.SeenAt != nil {
		seenAt = *req.SeenAt
	}

	if err := h.agents.UpdateStatus(r.Context(), id, req.Status, seenAt); err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Агент не найден")
			return
		}
		h.logger.Error("Ошибка обновления статуса агента", "agent_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка обновления статуса агента")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// agentIDParam извлекает числовой {agent_id} из пути.
// При некорректном значении пишет 400 и возвращает ok=false.
func agentIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "agent_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		apierrors.ValidationError(w, "Некорректный идентификатор агента: "+raw)
		return 0, false
	}
	return id, true
}

// mapAgent конвертирует domain model в API-представление.
func mapAgent(a *model.Agent) agentResponse {
	return agentResponse{
		ID:        a.ID,
		Address:   a.Address,
		Status:    a.Status,
		LastSeen:  a.LastSeen,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
