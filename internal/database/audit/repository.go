package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

const defaultLimit = 50

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(ctx context.Context, event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// GetEvents retrieves paginated audit events, most recent first.
func (r *Repository) GetEvents(ctx context.Context, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return page(r.db.WithContext(ctx).Model(&entities.AuditEvent{}), limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (r *Repository) GetEventsByType(ctx context.Context, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.AuditEvent{}).Where("event_type = ?", eventType)
	return page(query, limit, offset)
}

// GetEntityHistory returns every event recorded for one entity, oldest first.
func (r *Repository) GetEntityHistory(ctx context.Context, entityType string, entityID uint) ([]entities.AuditEvent, error) {
	var events []entities.AuditEvent
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

func page(query *gorm.DB, limit, offset int) ([]entities.AuditEvent, int64, error) {
	query = query.Session(&gorm.Session{})
	var events []entities.AuditEvent
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", olderThan).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
