package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func basicRouter(b *BasicAuth) *gin.Engine {
	router := gin.New()
	router.POST("/write", b.Require(), func(c *gin.Context) {
		c.String(http.StatusOK, GetUsername(c))
	})
	return router
}

func TestBasicAuth_Require(t *testing.T) {
	router := basicRouter(testBasicAuth(t))

	t.Run("missing credentials", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/write", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Header().Get("WWW-Authenticate"), `Basic realm="bookshelf"`)
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		req.SetBasicAuth("admin", "nope")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong username", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		req.SetBasicAuth("root", "correct horse battery")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		req.SetBasicAuth("admin", "correct horse battery")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "admin", rr.Body.String())
	})
}

func TestBasicAuth_EmptyHashRejectsEverything(t *testing.T) {
	b := NewBasicAuth("admin", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.SetBasicAuth("admin", "")
	assert.False(t, b.Valid(req))
}

func TestBasicAuth_LocksOutAfterRepeatedFailures(t *testing.T) {
	lockout := NewLockout(LockoutPolicy{MaxFailures: 2, Window: time.Minute, Duration: time.Minute})
	valid := testBasicAuth(t)
	router := basicRouter(NewBasicAuth("admin", valid.passwordHash, lockout))

	send := func(user, pass string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		req.SetBasicAuth(user, pass)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusUnauthorized, send("admin", "bad1").Code)

	rr := send("admin", "bad2")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// The right password does not help while locked out.
	assert.Equal(t, http.StatusTooManyRequests, send("admin", "correct horse battery").Code)

	// Another username from the same address has its own counter.
	assert.Equal(t, http.StatusUnauthorized, send("editor", "bad").Code)
}

func TestBasicAuth_LoginClearsFailures(t *testing.T) {
	lockout := NewLockout(LockoutPolicy{MaxFailures: 2, Window: time.Minute, Duration: time.Minute})
	valid := testBasicAuth(t)
	router := basicRouter(NewBasicAuth("admin", valid.passwordHash, lockout))

	send := func(pass string) int {
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		req.SetBasicAuth("admin", pass)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send("bad1"))
	assert.Equal(t, http.StatusOK, send("correct horse battery"))
	assert.Equal(t, http.StatusUnauthorized, send("bad2"))
}

func TestBasicAuth_MissingCredentialsAreNotCounted(t *testing.T) {
	lockout := NewLockout(LockoutPolicy{MaxFailures: 1, Window: time.Minute, Duration: time.Minute})
	router := basicRouter(NewBasicAuth("admin", testBasicAuth(t).passwordHash, lockout))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/write", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	}
}
