package auth

import (
	"crypto/subtle"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ContextKeyUsername holds the authenticated username on the Gin context.
const ContextKeyUsername = "auth_username"

// Realm is sent in the WWW-Authenticate challenge.
const Realm = "bookshelf"

// BasicAuth checks HTTP basic credentials against a single configured
// account whose password is stored as a bcrypt hash.
type BasicAuth struct {
	username     string
	passwordHash string
	lockout      *Lockout
}

// NewBasicAuth creates a checker. lockout may be nil to disable lockouts.
func NewBasicAuth(username, passwordHash string, lockout *Lockout) *BasicAuth {
	return &BasicAuth{
		username:     username,
		passwordHash: passwordHash,
		lockout:      lockout,
	}
}

// Valid reports whether r carries the configured credentials.
func (b *BasicAuth) Valid(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	return b.check(user, pass)
}

func (b *BasicAuth) check(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(b.username)) == 1
	// bcrypt runs even for a wrong username so both cost the same.
	passOK := PasswordMatches(b.passwordHash, pass)
	return userOK && passOK
}

// Require returns middleware that aborts with 401 unless the request
// carries valid credentials. A client that keeps sending bad credentials
// gets 429 until its lockout ends, whatever it sends meanwhile.
func (b *BasicAuth) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			challenge(c)
			return
		}
		ip := c.ClientIP()

		if b.lockout != nil {
			if wait := b.lockout.Remaining(ip, user); wait > 0 {
				lockedOut(c, wait)
				return
			}
		}

		if !b.check(user, pass) {
			if b.lockout != nil {
				if wait := b.lockout.Fail(ip, user); wait > 0 {
					lockedOut(c, wait)
					return
				}
			}
			challenge(c)
			return
		}

		if b.lockout != nil {
			b.lockout.Reset(ip, user)
		}
		c.Set(ContextKeyUsername, user)
		c.Next()
	}
}

func challenge(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="`+Realm+`", charset="UTF-8"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
}

func lockedOut(c *gin.Context, wait time.Duration) {
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "too many failed attempts",
		"retry_after": wait.String(),
	})
}

// GetUsername returns the authenticated username, or "" when the route is open.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}
