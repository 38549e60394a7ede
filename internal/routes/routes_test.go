package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// echo writes the route name and, when present, the converted id.
func echo(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := IntParam(c, "id"); ok {
			c.String(http.StatusOK, "%s:%d", name, id)
			return
		}
		c.String(http.StatusOK, name)
	}
}

func bookTable(t *testing.T, prefix string) *Table {
	t.Helper()
	table, err := New(prefix, []Route{
		{Name: "lista_libros", Pattern: "/", Methods: GET, Handler: echo("lista_libros")},
		{Name: "detalle_libro", Pattern: "/<int:id>/", Methods: GET, Handler: echo("detalle_libro")},
		{Name: "crear_libro", Pattern: "/crear/", Methods: GETAndPOST, Handler: echo("crear_libro")},
		{Name: "editar_libro", Pattern: "/<int:id>/editar/", Methods: GETAndPOST, Handler: echo("editar_libro")},
		{Name: "eliminar_libro", Pattern: "/<int:id>/eliminar/", Methods: GETAndPOST, Handler: echo("eliminar_libro")},
	})
	require.NoError(t, err)
	return table
}

func TestTable_Match(t *testing.T) {
	table := bookTable(t, "/libros")

	tests := []struct {
		path     string
		wantName string
		wantID   any
	}{
		{"/libros/", "lista_libros", nil},
		{"/libros/0/", "detalle_libro", 0},
		{"/libros/42/", "detalle_libro", 42},
		{"/libros/007/", "detalle_libro", 7},
		{"/libros/crear/", "crear_libro", nil},
		{"/libros/42/editar/", "editar_libro", 42},
		{"/libros/9/eliminar/", "eliminar_libro", 9},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, params, ok := table.Match(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.wantName, route.Name)
			if tt.wantID == nil {
				assert.Empty(t, params)
			} else {
				assert.Equal(t, tt.wantID, params["id"])
			}
		})
	}
}

func TestTable_Match_PassesEveryIDThrough(t *testing.T) {
	table := bookTable(t, "/libros")

	for _, id := range []int{0, 1, 9, 10, 99, 12345, 2147483647} {
		route, params, ok := table.Match(fmt.Sprintf("/libros/%d/", id))
		require.True(t, ok, "id %d", id)
		assert.Equal(t, "detalle_libro", route.Name)
		assert.Equal(t, id, params["id"])
	}
}

func TestTable_Match_RejectsNonInteger(t *testing.T) {
	table := bookTable(t, "/libros")

	paths := []string{
		"/libros/abc/",
		"/libros/-1/",
		"/libros/1.5/",
		"/libros/12a/",
		"/libros/%20/",
		"/libros/abc/editar/",
		"/libros/-3/editar/",
		"/libros/x/eliminar/",
		"/libros/99999999999999999999999/",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			_, _, ok := table.Match(path)
			assert.False(t, ok)
		})
	}
}

func TestTable_Match_RequiresPrefixAndTrailingSlash(t *testing.T) {
	table := bookTable(t, "/libros")

	for _, path := range []string{"/", "/5/", "/libros", "/libros/5", "/librosx/5/", "/libros/5/editar", "/libros/crear/extra/"} {
		_, _, ok := table.Match(path)
		assert.False(t, ok, path)
	}
}

func TestTable_Match_CreateNeverCollidesWithID(t *testing.T) {
	table := bookTable(t, "/libros")

	route, params, ok := table.Match("/libros/crear/")
	require.True(t, ok)
	assert.Equal(t, "crear_libro", route.Name)
	assert.NotContains(t, params, "id")

	for _, path := range []string{"/libros/crear/editar/", "/libros/crear/eliminar/"} {
		_, _, ok := table.Match(path)
		assert.False(t, ok, path)
	}
}

func TestTable_NamesResolveToExactlyOnePattern(t *testing.T) {
	table := bookTable(t, "/libros")

	patterns := make(map[string]string)
	for _, r := range table.Routes() {
		full, err := table.FullPattern(r.Name)
		require.NoError(t, err)
		_, dup := patterns[full]
		assert.False(t, dup, "pattern %s registered twice", full)
		patterns[full] = r.Name
	}
	assert.Len(t, patterns, 5)
	assert.Equal(t, "detalle_libro", patterns["/libros/<int:id>/"])
}

func TestTable_Reverse(t *testing.T) {
	table := bookTable(t, "/libros")

	tests := []struct {
		name string
		args []any
		want string
	}{
		{"lista_libros", nil, "/libros/"},
		{"detalle_libro", []any{42}, "/libros/42/"},
		{"detalle_libro", []any{uint(7)}, "/libros/7/"},
		{"detalle_libro", []any{"15"}, "/libros/15/"},
		{"crear_libro", nil, "/libros/crear/"},
		{"editar_libro", []any{3}, "/libros/3/editar/"},
		{"eliminar_libro", []any{int64(3)}, "/libros/3/eliminar/"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := table.Reverse(tt.name, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTable_ReverseRoundTripsThroughMatch(t *testing.T) {
	table := bookTable(t, "/libros")

	for _, name := range []string{"detalle_libro", "editar_libro", "eliminar_libro"} {
		u, err := table.Reverse(name, 123)
		require.NoError(t, err)
		route, params, ok := table.Match(u)
		require.True(t, ok)
		assert.Equal(t, name, route.Name)
		assert.Equal(t, 123, params["id"])
	}
}

func TestTable_Reverse_Errors(t *testing.T) {
	table := bookTable(t, "/libros")

	_, err := table.Reverse("missing")
	assert.ErrorIs(t, err, ErrUnknownRoute)

	_, err = table.Reverse("detalle_libro")
	assert.ErrorIs(t, err, ErrArgCount)

	_, err = table.Reverse("lista_libros", 1)
	assert.ErrorIs(t, err, ErrArgCount)

	_, err = table.Reverse("detalle_libro", -1)
	assert.ErrorIs(t, err, ErrBadArg)

	_, err = table.Reverse("detalle_libro", "abc")
	assert.ErrorIs(t, err, ErrBadArg)

	_, err = table.Reverse("detalle_libro", 1.5)
	assert.ErrorIs(t, err, ErrBadArg)

	assert.Panics(t, func() { table.MustReverse("missing") })
}

func TestNew_Validation(t *testing.T) {
	h := echo("x")

	t.Run("duplicate name", func(t *testing.T) {
		_, err := New("", []Route{
			{Name: "a", Pattern: "/a/", Methods: GET, Handler: h},
			{Name: "a", Pattern: "/b/", Methods: GET, Handler: h},
		})
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("same shape under different capture names", func(t *testing.T) {
		_, err := New("", []Route{
			{Name: "a", Pattern: "/<int:id>/", Methods: GET, Handler: h},
			{Name: "b", Pattern: "/<int:pk>/", Methods: GET, Handler: h},
		})
		assert.ErrorIs(t, err, ErrDuplicatePattern)
	})

	t.Run("unknown converter", func(t *testing.T) {
		_, err := New("", []Route{{Name: "a", Pattern: "/<uuid:id>/", Methods: GET, Handler: h}})
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("missing leading slash", func(t *testing.T) {
		_, err := New("", []Route{{Name: "a", Pattern: "a/", Methods: GET, Handler: h}})
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("repeated capture", func(t *testing.T) {
		_, err := New("", []Route{{Name: "a", Pattern: "/<int:id>/<int:id>/", Methods: GET, Handler: h}})
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("no methods", func(t *testing.T) {
		_, err := New("", []Route{{Name: "a", Pattern: "/a/", Handler: h}})
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("no handler", func(t *testing.T) {
		_, err := New("", []Route{{Name: "a", Pattern: "/a/", Methods: GET}})
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})
}

func TestTable_RoutesReturnsCopy(t *testing.T) {
	table := bookTable(t, "/libros")

	list := table.Routes()
	list[0].Name = "changed"
	list[0].Methods[0] = http.MethodDelete

	r, ok := table.Lookup("lista_libros")
	require.True(t, ok)
	assert.Equal(t, "lista_libros", r.Name)
	assert.Equal(t, http.MethodGet, table.Routes()[0].Methods[0])
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(""))
	assert.Equal(t, "", normalizePrefix("/"))
	assert.Equal(t, "/libros", normalizePrefix("libros/"))
	assert.Equal(t, "/libros", normalizePrefix("/libros"))

	table := bookTable(t, "")
	u, err := table.Reverse("detalle_libro", 5)
	require.NoError(t, err)
	assert.Equal(t, "/5/", u)
	route, _, ok := table.Match("/5/")
	require.True(t, ok)
	assert.Equal(t, "detalle_libro", route.Name)
}

func TestTable_Register(t *testing.T) {
	table := bookTable(t, "/libros")

	router := gin.New()
	router.HandleMethodNotAllowed = true
	table.Register(router)

	tests := []struct {
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{http.MethodGet, "/libros/", http.StatusOK, "lista_libros"},
		{http.MethodGet, "/libros/42/", http.StatusOK, "detalle_libro:42"},
		{http.MethodHead, "/libros/", http.StatusOK, ""},
		{http.MethodHead, "/libros/42/", http.StatusOK, ""},
		{http.MethodHead, "/libros/3/editar/", http.StatusOK, ""},
		{http.MethodHead, "/libros/abc/", http.StatusNotFound, ""},
		{http.MethodGet, "/libros/crear/", http.StatusOK, "crear_libro"},
		{http.MethodPost, "/libros/crear/", http.StatusOK, "crear_libro"},
		{http.MethodGet, "/libros/3/editar/", http.StatusOK, "editar_libro:3"},
		{http.MethodPost, "/libros/3/eliminar/", http.StatusOK, "eliminar_libro:3"},
		{http.MethodGet, "/libros/abc/", http.StatusNotFound, ""},
		{http.MethodGet, "/libros/-1/editar/", http.StatusNotFound, ""},
		{http.MethodPost, "/libros/abc/eliminar/", http.StatusNotFound, ""},
		{http.MethodPost, "/libros/", http.StatusMethodNotAllowed, ""},
		{http.MethodDelete, "/libros/3/", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, tt.path, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestTable_Register_CustomNotFound(t *testing.T) {
	table, err := New("/items", []Route{
		{Name: "item", Pattern: "/<int:id>/", Methods: GET, Handler: echo("item")},
	}, WithNotFound(func(c *gin.Context) {
		c.String(http.StatusNotFound, "no such item")
	}))
	require.NoError(t, err)

	router := gin.New()
	table.Register(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/items/nope/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no such item", w.Body.String())
}

func TestTable_Register_RunsMiddlewareAfterGuard(t *testing.T) {
	var calls []string
	mw := func(c *gin.Context) {
		calls = append(calls, "mw")
		c.Next()
	}
	table, err := New("", []Route{
		{Name: "item", Pattern: "/<int:id>/", Methods: GET, Handler: echo("item"), Middleware: []gin.HandlerFunc{mw}},
	})
	require.NoError(t, err)

	router := gin.New()
	table.Register(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/bad/", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, calls)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/8/", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"mw"}, calls)
}

func TestStrConverter(t *testing.T) {
	table, err := New("/tags", []Route{
		{Name: "tag", Pattern: "/<slug>/", Methods: GET, Handler: func(c *gin.Context) {
			s, _ := StrParam(c, "slug")
			c.String(http.StatusOK, s)
		}},
	})
	require.NoError(t, err)

	u, err := table.Reverse("tag", "science fiction")
	require.NoError(t, err)
	assert.Equal(t, "/tags/science%20fiction/", u)

	_, params, ok := table.Match(u)
	require.True(t, ok)
	assert.Equal(t, "science fiction", params["slug"])

	_, err = table.Reverse("tag", "a/b")
	assert.ErrorIs(t, err, ErrBadArg)
}

func TestSet(t *testing.T) {
	books := bookTable(t, "/libros")
	api, err := New("/api/books", []Route{
		{Name: "api_book_detail", Pattern: "/<int:id>/", Methods: Resource, Handler: echo("api")},
	})
	require.NoError(t, err)

	set := Set{books, api}

	u, err := set.Reverse("api_book_detail", 4)
	require.NoError(t, err)
	assert.Equal(t, "/api/books/4/", u)

	u, err = set.Reverse("detalle_libro", 4)
	require.NoError(t, err)
	assert.Equal(t, "/libros/4/", u)

	_, err = set.Reverse("nope")
	assert.ErrorIs(t, err, ErrUnknownRoute)

	route, _, ok := set.Match("/api/books/4/")
	require.True(t, ok)
	assert.Equal(t, "api_book_detail", route.Name)
}
