package http

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/readonly"
	"github.com/mrlokans/bookshelf/internal/routes"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// loadTemplates parses the built-in templates, or the *.html files in dir
// when an override directory is configured. Templates reverse URLs through
// the url function.
func loadTemplates(dir string, urls routes.Set) (*template.Template, error) {
	funcMap := template.FuncMap{
		"url": func(name string, args ...any) (string, error) {
			return urls.Reverse(name, args...)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}

	tmpl := template.New("").Funcs(funcMap)
	var err error
	if dir != "" {
		tmpl, err = tmpl.ParseGlob(filepath.Join(dir, "*.html"))
	} else {
		tmpl, err = tmpl.ParseFS(embeddedTemplates, "templates/*.html")
	}
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// pageRenderer fills in the values every page layout expects.
type pageRenderer struct {
	sessions *auth.SessionManager
	version  string
}

// render draws a full page and consumes the pending flash message.
func (p *pageRenderer) render(c *gin.Context, status int, name string, data gin.H) {
	data = p.common(c, data)
	if p.sessions != nil && c.Request.Method != http.MethodHead {
		if flash := p.sessions.PopFlash(c.Request); flash != nil {
			data["Flash"] = flash
		}
	}
	c.HTML(status, name, data)
}

// fragment draws a partial swapped in by htmx. The flash stays in the
// session for the next full page.
func (p *pageRenderer) fragment(c *gin.Context, status int, name string, data gin.H) {
	c.HTML(status, name, p.common(c, data))
}

func (p *pageRenderer) common(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["CSRFField"] = auth.CSRFTokenField(c)
	data["ReadOnly"] = readonly.IsReadOnly(c)
	data["RequestID"] = GetRequestID(c)
	data["Version"] = p.version
	if _, ok := data["Title"]; !ok {
		data["Title"] = "Libros"
	}
	return data
}

func (p *pageRenderer) flash(c *gin.Context, kind, message string) {
	if p.sessions != nil {
		p.sessions.AddFlash(c.Request, kind, message)
	}
}

func (p *pageRenderer) notFound(c *gin.Context, message string) {
	p.render(c, http.StatusNotFound, "not_found", gin.H{
		"Title":   "Not found",
		"Message": message,
	})
}

func (p *pageRenderer) internalError(c *gin.Context, err error, op string) {
	requestLogger(c).Error().Err(err).Str("op", op).Msg("internal error")
	p.render(c, http.StatusInternalServerError, "error", gin.H{
		"Title":   "Error",
		"Message": "The request could not be completed.",
	})
}
