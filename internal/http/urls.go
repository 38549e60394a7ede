package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/routes"
)

// Route names used for reverse URL lookup.
const (
	RouteBookList   = "lista_libros"
	RouteBookDetail = "detalle_libro"
	RouteBookCreate = "crear_libro"
	RouteBookEdit   = "editar_libro"
	RouteBookDelete = "eliminar_libro"

	RouteAPIBookList   = "api_book_list"
	RouteAPIBookDetail = "api_book_detail"
)

// APIBooksPrefix is where the JSON book routes are mounted.
const APIBooksPrefix = "/api/books"

// NewBookTable builds the HTML book routes under prefix. The write
// middleware guards the create, edit and delete routes.
func NewBookTable(prefix string, v *BookViews, write ...gin.HandlerFunc) (*routes.Table, error) {
	return routes.New(prefix, []routes.Route{
		{Name: RouteBookList, Pattern: "/", Methods: routes.GET, Handler: v.List},
		{Name: RouteBookDetail, Pattern: "/<int:id>/", Methods: routes.GET, Handler: v.Detail},
		{Name: RouteBookCreate, Pattern: "/crear/", Methods: routes.GETAndPOST, Handler: v.Create, Middleware: write},
		{Name: RouteBookEdit, Pattern: "/<int:id>/editar/", Methods: routes.GETAndPOST, Handler: v.Edit, Middleware: write},
		{Name: RouteBookDelete, Pattern: "/<int:id>/eliminar/", Methods: routes.GETAndPOST, Handler: v.Delete, Middleware: write},
	}, routes.WithNotFound(v.NotFound))
}

// NewAPITable builds the JSON book routes. The write middleware only runs
// for methods that change data.
func NewAPITable(api *BooksAPIController, write ...gin.HandlerFunc) (*routes.Table, error) {
	guard := unsafeOnly(write...)
	return routes.New(APIBooksPrefix, []routes.Route{
		{Name: RouteAPIBookList, Pattern: "/", Methods: routes.GETAndPOST, Handler: api.Collection, Middleware: guard},
		{Name: RouteAPIBookDetail, Pattern: "/<int:id>/", Methods: routes.Resource, Handler: api.Member, Middleware: guard},
	}, routes.WithNotFound(func(c *gin.Context) {
		respondNotFound(c, "book")
	}))
}

// unsafeOnly wraps each handler so it is skipped for GET and HEAD requests.
func unsafeOnly(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	wrapped := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		h := h
		wrapped = append(wrapped, func(c *gin.Context) {
			if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
				return
			}
			h(c)
		})
	}
	return wrapped
}

// NewURLs builds the book and API route tables without handler
// dependencies, for listing and reversing routes outside the server.
func NewURLs(prefix string) (routes.Set, error) {
	bookTable, err := NewBookTable(prefix, &BookViews{})
	if err != nil {
		return nil, err
	}
	apiTable, err := NewAPITable(&BooksAPIController{})
	if err != nil {
		return nil, err
	}
	return routes.Set{bookTable, apiTable}, nil
}
