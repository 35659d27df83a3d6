// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrUnknownAgent — запись файла ссылается на незарегистрированного агента.
	ErrUnknownAgent = errors.New("агент не зарегистрирован")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrIntegrity — нарушение внутренней согласованности данных.
	ErrIntegrity = errors.New("нарушение целостности данных")
)
