package http

import (
	"github.com/rs/zerolog"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/readonly"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Books       BookStore
	Audit       AuditLogger
	History     HistoryReader
	AuditEvents AuditReader
	Database    *database.Database
	Logger      zerolog.Logger

	// Book routes
	BooksPrefix string
	PageSize    int

	// UI paths; an empty TemplatesPath uses the built-in templates
	TemplatesPath string
	StaticPath    string

	// Security
	CSRFSecret     []byte
	SecureCookies  bool
	SessionManager *auth.SessionManager
	BasicAuth      *auth.BasicAuth // nil leaves write routes open
	ReadOnly       *readonly.Middleware

	// Application info
	Version string
}
