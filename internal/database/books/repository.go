// Package books provides database operations for book records.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	page, err := repo.List(ctx, books.ListOptions{Query: "borges", Limit: 20})
//	book, err := repo.Get(ctx, 123)
package books

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// ErrNotFound is returned when no live book has the requested ID.
var ErrNotFound = errors.New("book not found")

// ListOptions filters and paginates List.
type ListOptions struct {
	Query  string // case-insensitive match on title or author
	Limit  int    // <= 0 means no limit
	Offset int
}

// Page is one slice of a listing plus the total number of matches.
type Page struct {
	Books []entities.Book
	Total int64
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *Repository) filtered(ctx context.Context, query string) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&entities.Book{})
	if q := strings.TrimSpace(query); q != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		tx = tx.Where(`search_text LIKE ? ESCAPE '\'`, pattern)
	}
	return tx
}

// List returns books ordered by title, then ID.
func (r *Repository) List(ctx context.Context, opts ListOptions) (*Page, error) {
	var total int64
	if err := r.filtered(ctx, opts.Query).Count(&total).Error; err != nil {
		return nil, err
	}

	tx := r.filtered(ctx, opts.Query).Order("title ASC, id ASC")
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		tx = tx.Offset(opts.Offset)
	}

	var books []entities.Book
	if err := tx.Find(&books).Error; err != nil {
		return nil, err
	}
	return &Page{Books: books, Total: total}, nil
}

// Get retrieves a book by its ID.
func (r *Repository) Get(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Create inserts a new book. The ID and timestamps are filled in on success.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	book.ID = 0
	book.RefreshSearchText()
	return r.db.WithContext(ctx).Create(book).Error
}

// Update overwrites the editable fields of an existing book.
func (r *Repository) Update(ctx context.Context, book *entities.Book) error {
	book.RefreshSearchText()
	result := r.db.WithContext(ctx).Model(&entities.Book{ID: book.ID}).
		Select("title", "author", "isbn", "publisher", "publication_year", "pages", "description", "search_text", "updated_at").
		Updates(book)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	updated, err := r.Get(ctx, book.ID)
	if err != nil {
		return err
	}
	*book = *updated
	return nil
}

// Delete performs a soft delete.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of live books.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&n).Error
	return n, err
}

// CreateBatch inserts books in a single transaction.
func (r *Repository) CreateBatch(ctx context.Context, list []entities.Book) error {
	if len(list) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range list {
			list[i].ID = 0
			list[i].RefreshSearchText()
			if err := tx.Create(&list[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
