package auth

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session data keys
const (
	SessionKeyFlash     = "flash"
	SessionKeyFlashKind = "flash_kind"
)

// Flash kinds understood by the templates.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager backed by the sessions table
// of sqlDB, which should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, lifetime time.Duration, secureCookies bool) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	// No cleanup goroutine; expired rows are ignored on load.
	sm.Store = sqlite3store.NewWithCleanupInterval(sqlDB, 0)
	sm.Lifetime = lifetime

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode // Lax so the cookie survives the post-redirect-get
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// AddFlash stores a message for the next page load.
func (sm *SessionManager) AddFlash(r *http.Request, kind, message string) {
	sm.Put(r.Context(), SessionKeyFlashKind, kind)
	sm.Put(r.Context(), SessionKeyFlash, message)
}

// PopFlash returns and clears the pending message, if any.
func (sm *SessionManager) PopFlash(r *http.Request) *Flash {
	message := sm.PopString(r.Context(), SessionKeyFlash)
	kind := sm.PopString(r.Context(), SessionKeyFlashKind)
	if message == "" {
		return nil
	}
	if kind == "" {
		kind = FlashSuccess
	}
	return &Flash{Kind: kind, Message: message}
}
