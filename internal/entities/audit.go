package entities

import "time"

type AuditEventType string

const (
	AuditEventCreate AuditEventType = "create"
	AuditEventUpdate AuditEventType = "update"
	AuditEventDelete AuditEventType = "delete"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`      // e.g., "book_create", "book_delete"
	Description string         `gorm:"size:500" json:"description"` // Human-readable summary
	EntityType  string         `gorm:"size:50" json:"entity_type"`
	EntityID    *uint          `gorm:"index" json:"entity_id,omitempty"`
	RequestID   string         `gorm:"size:36" json:"request_id,omitempty"`
	RemoteAddr  string         `gorm:"size:45" json:"remote_addr,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
