package model

import "time"

// Статусы записи файла-кандидата на удаление.
// Машина состояний: pending → approved, pending → rejected.
// approved и rejected — терминальные, обратных переходов нет.
const (
	// FileStatusPending — ожидает решения оператора.
	FileStatusPending = "pending"
	// FileStatusApproved — удаление одобрено.
	FileStatusApproved = "approved"
	// FileStatusRejected — удаление отклонено.
	FileStatusRejected = "rejected"
)

// FileRecord — файл, предложенный агентом к удалению.
// Хранится в таблице file_records.
type FileRecord struct {
	// ID — числовой идентификатор записи (BIGSERIAL)
	ID int64
	// Filename — имя файла
	Filename string
	// FullPath — полный путь к файлу на машине агента
	FullPath string
	// AgentID — идентификатор агента-владельца; неизменяем после создания
	AgentID int64
	// Status — статус (pending, approved, rejected)
	Status string
	// CreatedAt — время поступления записи
	CreatedAt time.Time
	// ApprovedAt — время одобрения; не-nil тогда и только тогда,
	// когда Status == approved
	ApprovedAt *time.Time
}

// PendingFile — запись файла для списка ожидающих решения.
// Дополнена адресом агента-владельца (JOIN с agents, только для отображения).
type PendingFile struct {
	ID           int64
	Filename     string
	FullPath     string
	AgentID      int64
	AgentAddress string
	Status       string
	CreatedAt    time.Time
}

// StatusCounts — количество записей по статусам (для карточек дашборда).
type StatusCounts struct {
	Pending  int
	Approved int
	Rejected int
}
