package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/routes"
)

const (
	apiDefaultLimit = 20
	apiMaxLimit     = 100
)

// BooksAPIController serves the JSON book resource.
type BooksAPIController struct {
	store BookStore
	audit AuditLogger
	urls  routes.Set
}

func NewBooksAPIController(store BookStore, auditLog AuditLogger) *BooksAPIController {
	return &BooksAPIController{store: store, audit: auditLog}
}

// Collection dispatches GET and POST on api_book_list.
func (ctrl *BooksAPIController) Collection(c *gin.Context) {
	if c.Request.Method == http.MethodPost {
		ctrl.Create(c)
		return
	}
	ctrl.List(c)
}

// Member dispatches GET, PUT and DELETE on api_book_detail.
func (ctrl *BooksAPIController) Member(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodPut:
		ctrl.Update(c)
	case http.MethodDelete:
		ctrl.Delete(c)
	default:
		ctrl.Get(c)
	}
}

// List returns a page of books.
// GET /api/books/?q=&limit=&offset=
func (ctrl *BooksAPIController) List(c *gin.Context) {
	limit, offset := parsePagination(c, apiDefaultLimit, apiMaxLimit)
	page, err := ctrl.store.List(c.Request.Context(), books.ListOptions{
		Query:  strings.TrimSpace(c.Query("q")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	data := page.Books
	if data == nil {
		data = []entities.Book{}
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       data,
		Total:      page.Total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+len(page.Books)) < page.Total,
		TotalPages: totalPages(page.Total, limit),
	})
}

// Get returns one book.
// GET /api/books/:id/
func (ctrl *BooksAPIController) Get(c *gin.Context) {
	book, ok := ctrl.loadBook(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, book)
}

// Create adds a book and points Location at it.
// POST /api/books/
func (ctrl *BooksAPIController) Create(c *gin.Context) {
	form, fieldErrs, err := bindBookForm(c, binding.JSON)
	if err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}
	if fieldErrs != nil {
		respondValidationError(c, fieldErrs)
		return
	}

	book := form.toBook()
	err = ctrl.store.Create(c.Request.Context(), book)
	ctrl.audit.LogCreate(originOf(c), book, err)
	if err != nil {
		respondInternalError(c, err, "create book")
		return
	}

	if location, err := ctrl.urls.Reverse(RouteAPIBookDetail, book.ID); err == nil {
		c.Header("Location", location)
	}
	c.JSON(http.StatusCreated, book)
}

// Update replaces the editable fields of a book.
// PUT /api/books/:id/
func (ctrl *BooksAPIController) Update(c *gin.Context) {
	book, ok := ctrl.loadBook(c)
	if !ok {
		return
	}

	form, fieldErrs, err := bindBookForm(c, binding.JSON)
	if err != nil {
		respondBadRequest(c, "invalid JSON body")
		return
	}
	if fieldErrs != nil {
		respondValidationError(c, fieldErrs)
		return
	}

	form.apply(book)
	err = ctrl.store.Update(c.Request.Context(), book)
	ctrl.audit.LogUpdate(originOf(c), book, err)
	if errors.Is(err, books.ErrNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Delete soft-deletes a book.
// DELETE /api/books/:id/
func (ctrl *BooksAPIController) Delete(c *gin.Context) {
	book, ok := ctrl.loadBook(c)
	if !ok {
		return
	}

	err := ctrl.store.Delete(c.Request.Context(), book.ID)
	ctrl.audit.LogDelete(originOf(c), book, err)
	if errors.Is(err, books.ErrNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "delete book")
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctrl *BooksAPIController) loadBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := ctrl.store.Get(c.Request.Context(), id)
	if errors.Is(err, books.ErrNotFound) {
		respondNotFound(c, "book")
		return nil, false
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return nil, false
	}
	return book, true
}
