// Package audit records who changed which book and when.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/entities"
)

const (
	entityBook   = "book"
	maxFieldSize = 500
	writeTimeout = 5 * time.Second
)

// Origin identifies the request that caused an event.
type Origin struct {
	RequestID  string
	RemoteAddr string
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo   *audit.Repository
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "audit").Logger()}
}

// Log records a generic audit event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background. Use Wait to drain.
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.repo.LogEvent(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("action", event.Action).Msg("failed to log audit event")
		}
	}()
}

// Wait blocks until every pending LogAsync write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogCreate records a book creation.
func (s *Service) LogCreate(origin Origin, book *entities.Book, err error) {
	s.LogAsync(bookEvent(origin, entities.AuditEventCreate, book, "Created book: ", err))
}

// LogUpdate records a book edit.
func (s *Service) LogUpdate(origin Origin, book *entities.Book, err error) {
	s.LogAsync(bookEvent(origin, entities.AuditEventUpdate, book, "Updated book: ", err))
}

// LogDelete records a book soft delete.
func (s *Service) LogDelete(origin Origin, book *entities.Book, err error) {
	s.LogAsync(bookEvent(origin, entities.AuditEventDelete, book, "Deleted book: ", err))
}

func bookEvent(origin Origin, typ entities.AuditEventType, book *entities.Book, prefix string, err error) *entities.AuditEvent {
	event := &entities.AuditEvent{
		EventType:   typ,
		Action:      entityBook + "_" + string(typ),
		Description: truncate(prefix+book.Title, maxFieldSize),
		EntityType:  entityBook,
		RequestID:   origin.RequestID,
		RemoteAddr:  origin.RemoteAddr,
		Status:      entities.AuditStatusSuccess,
	}
	if book.ID != 0 {
		id := book.ID
		event.EntityID = &id
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxFieldSize)
	}
	return event
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(ctx context.Context, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(ctx, limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(ctx context.Context, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(ctx, eventType, limit, offset)
}

// BookHistory returns the events recorded for one book, oldest first.
func (s *Service) BookHistory(ctx context.Context, bookID uint) ([]entities.AuditEvent, error) {
	return s.repo.GetEntityHistory(ctx, entityBook, bookID)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
