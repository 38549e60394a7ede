package http

import (
	"context"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// Store interfaces used by the HTTP controllers. Each controller depends on
// the narrowest set it needs so tests can provide hand-written fakes.

// BookStore provides CRUD access to books.
type BookStore interface {
	List(ctx context.Context, opts books.ListOptions) (*books.Page, error)
	Get(ctx context.Context, id uint) (*entities.Book, error)
	Create(ctx context.Context, book *entities.Book) error
	Update(ctx context.Context, book *entities.Book) error
	Delete(ctx context.Context, id uint) error
}

// AuditLogger records book changes.
type AuditLogger interface {
	LogCreate(origin audit.Origin, book *entities.Book, err error)
	LogUpdate(origin audit.Origin, book *entities.Book, err error)
	LogDelete(origin audit.Origin, book *entities.Book, err error)
}

// AuditReader lists recorded events.
type AuditReader interface {
	GetEvents(ctx context.Context, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEventsByType(ctx context.Context, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// HistoryReader returns the change history of one book.
type HistoryReader interface {
	BookHistory(ctx context.Context, bookID uint) ([]entities.AuditEvent, error)
}

var (
	_ BookStore     = (*books.Repository)(nil)
	_ AuditLogger   = (*audit.Service)(nil)
	_ AuditReader   = (*audit.Service)(nil)
	_ HistoryReader = (*audit.Service)(nil)
)
