package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mrlokans/bookshelf/internal/audit"
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/routes"
)

const defaultPageSize = 20

// BookViews serves the HTML pages behind the named book routes.
type BookViews struct {
	store    BookStore
	audit    AuditLogger
	history  HistoryReader
	pageSize int
	pages    *pageRenderer
	urls     routes.Set
}

func NewBookViews(store BookStore, auditLog AuditLogger, history HistoryReader, pageSize int, pages *pageRenderer) *BookViews {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &BookViews{
		store:    store,
		audit:    auditLog,
		history:  history,
		pageSize: pageSize,
		pages:    pages,
	}
}

// List renders a page of books. GET lista_libros
func (v *BookViews) List(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	// Keeps (page-1)*pageSize from overflowing; clamped to the last page below.
	if maxPage := math.MaxInt32 / v.pageSize; page > maxPage {
		page = maxPage
	}

	result, err := v.listPage(c, query, page)
	if err != nil {
		v.pages.internalError(c, err, "list books")
		return
	}
	pages := totalPages(result.Total, v.pageSize)
	if page > pages {
		page = pages
		if result, err = v.listPage(c, query, page); err != nil {
			v.pages.internalError(c, err, "list books")
			return
		}
	}

	data := gin.H{
		"Books":      result.Books,
		"Total":      result.Total,
		"Query":      query,
		"Page":       page,
		"TotalPages": pages,
	}
	if isHTMXRequest(c) {
		v.pages.fragment(c, http.StatusOK, "book_rows", data)
		return
	}
	v.pages.render(c, http.StatusOK, "book_list", data)
}

func (v *BookViews) listPage(c *gin.Context, query string, page int) (*books.Page, error) {
	return v.store.List(c.Request.Context(), books.ListOptions{
		Query:  query,
		Limit:  v.pageSize,
		Offset: (page - 1) * v.pageSize,
	})
}

// Detail renders one book and its change history. GET detalle_libro
func (v *BookViews) Detail(c *gin.Context) {
	book, ok := v.loadBook(c)
	if !ok {
		return
	}

	var history []entities.AuditEvent
	if v.history != nil {
		var err error
		history, err = v.history.BookHistory(c.Request.Context(), book.ID)
		if err != nil {
			requestLogger(c).Warn().Err(err).Uint("book_id", book.ID).Msg("failed to load book history")
		}
	}

	v.pages.render(c, http.StatusOK, "book_detail", gin.H{
		"Title":   book.Title,
		"Book":    book,
		"History": history,
	})
}

// Create shows an empty form (GET) or saves a new book (POST). crear_libro
func (v *BookViews) Create(c *gin.Context) {
	action := v.reverse(RouteBookCreate)
	cancel := v.reverse(RouteBookList)

	if c.Request.Method != http.MethodPost {
		v.renderForm(c, http.StatusOK, "Nuevo libro", action, cancel, &BookForm{}, map[string]string{})
		return
	}

	form, fieldErrs, err := bindBookForm(c, binding.Form)
	if err != nil {
		v.renderForm(c, http.StatusUnprocessableEntity, "Nuevo libro", action, cancel, form,
			map[string]string{"form": "The submitted form could not be read."})
		return
	}
	if fieldErrs != nil {
		v.renderForm(c, http.StatusUnprocessableEntity, "Nuevo libro", action, cancel, form, fieldErrs)
		return
	}

	book := form.toBook()
	err = v.store.Create(c.Request.Context(), book)
	v.audit.LogCreate(originOf(c), book, err)
	if err != nil {
		v.pages.internalError(c, err, "create book")
		return
	}

	v.pages.flash(c, auth.FlashSuccess, "Libro creado: "+book.Title)
	c.Redirect(http.StatusSeeOther, v.reverse(RouteBookDetail, book.ID))
}

// Edit shows the prefilled form (GET) or saves changes (POST). editar_libro
func (v *BookViews) Edit(c *gin.Context) {
	book, ok := v.loadBook(c)
	if !ok {
		return
	}
	action := v.reverse(RouteBookEdit, book.ID)
	cancel := v.reverse(RouteBookDetail, book.ID)
	title := "Editar " + book.Title

	if c.Request.Method != http.MethodPost {
		v.renderForm(c, http.StatusOK, title, action, cancel, formFromBook(book), map[string]string{})
		return
	}

	form, fieldErrs, err := bindBookForm(c, binding.Form)
	if err != nil {
		v.renderForm(c, http.StatusUnprocessableEntity, title, action, cancel, form,
			map[string]string{"form": "The submitted form could not be read."})
		return
	}
	if fieldErrs != nil {
		v.renderForm(c, http.StatusUnprocessableEntity, title, action, cancel, form, fieldErrs)
		return
	}

	form.apply(book)
	err = v.store.Update(c.Request.Context(), book)
	v.audit.LogUpdate(originOf(c), book, err)
	if errors.Is(err, books.ErrNotFound) {
		v.NotFound(c)
		return
	}
	if err != nil {
		v.pages.internalError(c, err, "update book")
		return
	}

	v.pages.flash(c, auth.FlashSuccess, "Libro actualizado: "+book.Title)
	c.Redirect(http.StatusSeeOther, v.reverse(RouteBookDetail, book.ID))
}

// Delete asks for confirmation (GET) or soft-deletes the book (POST).
// eliminar_libro
func (v *BookViews) Delete(c *gin.Context) {
	book, ok := v.loadBook(c)
	if !ok {
		return
	}

	if c.Request.Method != http.MethodPost {
		v.pages.render(c, http.StatusOK, "book_confirm_delete", gin.H{
			"Title": "Eliminar " + book.Title,
			"Book":  book,
		})
		return
	}

	err := v.store.Delete(c.Request.Context(), book.ID)
	v.audit.LogDelete(originOf(c), book, err)
	if errors.Is(err, books.ErrNotFound) {
		v.NotFound(c)
		return
	}
	if err != nil {
		v.pages.internalError(c, err, "delete book")
		return
	}

	v.pages.flash(c, auth.FlashSuccess, "Libro eliminado: "+book.Title)
	c.Redirect(http.StatusSeeOther, v.reverse(RouteBookList))
}

// NotFound renders the 404 page used for missing books and for ids that are
// not integers.
func (v *BookViews) NotFound(c *gin.Context) {
	v.pages.notFound(c, "No such book.")
}

func (v *BookViews) loadBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := routes.IntParam(c, "id")
	if !ok {
		v.NotFound(c)
		return nil, false
	}
	book, err := v.store.Get(c.Request.Context(), uint(id))
	if errors.Is(err, books.ErrNotFound) {
		v.NotFound(c)
		return nil, false
	}
	if err != nil {
		v.pages.internalError(c, err, "get book")
		return nil, false
	}
	return book, true
}

func (v *BookViews) renderForm(c *gin.Context, status int, title, action, cancel string, form *BookForm, fieldErrs map[string]string) {
	v.pages.render(c, status, "book_form", gin.H{
		"Title":  title,
		"Action": action,
		"Cancel": cancel,
		"Form":   form,
		"Errors": fieldErrs,
	})
}

// reverse resolves a route registered by NewRouter. The names are constants
// so a failure is a programming error.
func (v *BookViews) reverse(name string, args ...any) string {
	u, err := v.urls.Reverse(name, args...)
	if err != nil {
		panic(err)
	}
	return u
}

func originOf(c *gin.Context) audit.Origin {
	return audit.Origin{
		RequestID:  GetRequestID(c),
		RemoteAddr: c.ClientIP(),
	}
}
