// instructions.go — обработчик /api/v1/instructions.
// Приём инструкций оператора для Core Controller. Передача инструкции
// контроллеру пока не реализована — инструкция валидируется,
// логируется и подтверждается.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	apierrors "github.com/arturkryukov/purgeboard/internal/api/errors"
)

// instructionRequest — тело запроса с инструкцией оператора.
type instructionRequest struct {
	Instruction string `json:"instruction"`
}

// SubmitInstruction — POST /api/v1/instructions.
func (h *APIHandler) SubmitInstruction(w http.ResponseWriter, r *http.Request) {
	var req instructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		apierrors.ValidationError(w, "Инструкция не может быть пустой")
		return
	}

	h.logger.Info("Инструкция принята", "instruction", instruction)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Инструкция принята",
	})
}
