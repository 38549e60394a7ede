package http

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// memBookStore is an in-memory BookStore.
type memBookStore struct {
	mu     sync.Mutex
	books  map[uint]entities.Book
	nextID uint
	err    error // returned by every call when set
}

func newMemBookStore(seed ...entities.Book) *memBookStore {
	s := &memBookStore{books: make(map[uint]entities.Book), nextID: 1}
	for _, b := range seed {
		b := b
		_ = s.Create(context.Background(), &b)
	}
	return s
}

func (s *memBookStore) List(_ context.Context, opts books.ListOptions) (*books.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	q := strings.ToLower(opts.Query)
	var all []entities.Book
	for _, b := range s.books {
		if q == "" || strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.Author), q) {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Title != all[j].Title {
			return all[i].Title < all[j].Title
		}
		return all[i].ID < all[j].ID
	})

	page := &books.Page{Total: int64(len(all))}
	start := opts.Offset
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	page.Books = all[start:end]
	return page, nil
}

func (s *memBookStore) Get(_ context.Context, id uint) (*entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	b, ok := s.books[id]
	if !ok {
		return nil, books.ErrNotFound
	}
	return &b, nil
}

func (s *memBookStore) Create(_ context.Context, book *entities.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	book.ID = s.nextID
	s.nextID++
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	s.books[book.ID] = *book
	return nil
}

func (s *memBookStore) Update(_ context.Context, book *entities.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.books[book.ID]; !ok {
		return books.ErrNotFound
	}
	book.UpdatedAt = time.Now()
	s.books[book.ID] = *book
	return nil
}

func (s *memBookStore) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.books[id]; !ok {
		return books.ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *memBookStore) failWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

var errStoreDown = errors.New("store down")

type auditCall struct {
	Type   entities.AuditEventType
	BookID uint
	Title  string
	Origin audit.Origin
	Err    error
}

// recordingAudit captures audit calls and serves them back as history.
type recordingAudit struct {
	mu    sync.Mutex
	calls []auditCall
}

func (a *recordingAudit) record(typ entities.AuditEventType, origin audit.Origin, book *entities.Book, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, auditCall{Type: typ, BookID: book.ID, Title: book.Title, Origin: origin, Err: err})
}

func (a *recordingAudit) LogCreate(origin audit.Origin, book *entities.Book, err error) {
	a.record(entities.AuditEventCreate, origin, book, err)
}

func (a *recordingAudit) LogUpdate(origin audit.Origin, book *entities.Book, err error) {
	a.record(entities.AuditEventUpdate, origin, book, err)
}

func (a *recordingAudit) LogDelete(origin audit.Origin, book *entities.Book, err error) {
	a.record(entities.AuditEventDelete, origin, book, err)
}

func (a *recordingAudit) BookHistory(_ context.Context, bookID uint) ([]entities.AuditEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var events []entities.AuditEvent
	for _, call := range a.calls {
		if call.BookID == bookID {
			events = append(events, entities.AuditEvent{
				EventType:   call.Type,
				Description: string(call.Type) + " " + call.Title,
				Status:      entities.AuditStatusSuccess,
				CreatedAt:   time.Now(),
			})
		}
	}
	return events, nil
}

func (a *recordingAudit) snapshot() []auditCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]auditCall(nil), a.calls...)
}

var bookListAll = books.ListOptions{}

// stubAuditReader serves a fixed list of events.
type stubAuditReader struct {
	events   []entities.AuditEvent
	lastType entities.AuditEventType
	err      error
}

func (s *stubAuditReader) GetEvents(_ context.Context, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.window(s.events, limit, offset)
}

func (s *stubAuditReader) GetEventsByType(_ context.Context, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	s.lastType = eventType
	var filtered []entities.AuditEvent
	for _, e := range s.events {
		if e.EventType == eventType {
			filtered = append(filtered, e)
		}
	}
	return s.window(filtered, limit, offset)
}

func (s *stubAuditReader) window(events []entities.AuditEvent, limit, offset int) ([]entities.AuditEvent, int64, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	total := int64(len(events))
	if offset > len(events) {
		offset = len(events)
	}
	end := offset + limit
	if end > len(events) {
		end = len(events)
	}
	return events[offset:end], total, nil
}
