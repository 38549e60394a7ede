package http

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/routes"
)

// Router bundles the gin engine with the route tables it serves.
type Router struct {
	*gin.Engine
	URLs routes.Set
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) (*Router, error) {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(RequestID())
	router.Use(RequestLogger(cfg.Logger))
	router.Use(Recovery(cfg.Logger))

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.BasicAuth))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	if cfg.ReadOnly != nil {
		router.Use(cfg.ReadOnly.Handler())
	}

	var write []gin.HandlerFunc
	if cfg.BasicAuth != nil {
		write = append(write, cfg.BasicAuth.Require())
	}

	pages := &pageRenderer{sessions: cfg.SessionManager, version: cfg.Version}
	views := NewBookViews(cfg.Books, cfg.Audit, cfg.History, cfg.PageSize, pages)
	booksAPI := NewBooksAPIController(cfg.Books, cfg.Audit)

	bookTable, err := NewBookTable(cfg.BooksPrefix, views, write...)
	if err != nil {
		return nil, err
	}
	apiTable, err := NewAPITable(booksAPI, write...)
	if err != nil {
		return nil, err
	}
	urls := routes.Set{bookTable, apiTable}
	views.urls = urls
	booksAPI.urls = urls

	tmpl, err := loadTemplates(cfg.TemplatesPath, urls)
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	if cfg.StaticPath != "" {
		if info, err := os.Stat(cfg.StaticPath); err == nil && info.IsDir() {
			router.Static("/static", cfg.StaticPath)
		}
	}

	// Health endpoints; a nil *database.Database must not become a non-nil Pinger
	var health *HealthController
	if cfg.Database != nil {
		health = NewHealthController(cfg.Database, cfg.Version)
	} else {
		health = NewHealthController(nil, cfg.Version)
	}
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.AuditEvents != nil {
		auditController := NewAuditController(cfg.AuditEvents)
		router.GET("/api/audit", auditController.GetAuditEvents)
	}

	bookTable.Register(router)
	apiTable.Register(router)

	if bookTable.Prefix() != "" {
		listURL := bookTable.MustReverse(RouteBookList)
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, listURL)
		})
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			respondNotFound(c, "resource")
			return
		}
		pages.notFound(c, "Page not found.")
	})
	router.NoMethod(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
			return
		}
		c.String(http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return &Router{Engine: router, URLs: urls}, nil
}
