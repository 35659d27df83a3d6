package model

import "time"

// Статусы агента.
const (
	// AgentStatusOnline — агент на связи.
	AgentStatusOnline = "online"
	// AgentStatusOffline — агент не выходил на связь.
	AgentStatusOffline = "offline"
)

// ValidAgentStatus проверяет допустимость значения статуса агента.
func ValidAgentStatus(s string) bool {
	return s == AgentStatusOnline || s == AgentStatusOffline
}

// Agent — зарегистрированный агент флота.
// Хранится в таблице agents.
type Agent struct {
	// ID — числовой идентификатор (BIGSERIAL), назначается при регистрации
	ID int64
	// Address — сетевой адрес агента (например, 192.168.1.10)
	Address string
	// Status — статус (online, offline)
	Status string
	// LastSeen — время последнего выхода на связь (может быть nil)
	LastSeen *time.Time
	// CreatedAt — время регистрации
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления записи
	UpdatedAt time.Time
}
