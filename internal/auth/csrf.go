package auth

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTemplateField is the template function name for getting the CSRF token field.
const CSRFTemplateField = "csrfField"

// CSRFTokenHeader is the header name for CSRF token in AJAX requests.
const CSRFTokenHeader = "X-CSRF-Token"

const contextKeyCSRFToken = "csrf_token"

// CSRFMiddleware creates a Gin middleware for CSRF protection.
// It skips CSRF checks for API requests that carry valid basic auth
// credentials or a JSON body, neither of which a cross-site form can
// produce. Safe methods pass through and receive a token.
func CSRFMiddleware(secret []byte, secure bool, basic *BasicAuth) gin.HandlerFunc {
	csrfProtect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if isAPIWithValidBasic(c, basic) || isJSONAPIRequest(c) {
			c.Next()
			return
		}

		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Set(contextKeyCSRFToken, csrf.Token(r))
			// Session middleware runs after this and layers its context on top.
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// csrfErrorHandler handles CSRF validation failures.
func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing"}`))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Form expired</title></head>
<body style="font-family: system-ui; max-width: 400px; margin: 100px auto; text-align: center;">
<h1>Form expired</h1>
<p>The form submission could not be verified.</p>
<p><a href="javascript:history.back()">Go back and try again</a></p>
</body>
</html>`))
}

func isAPIWithValidBasic(c *gin.Context, basic *BasicAuth) bool {
	if basic == nil || !strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return false
	}
	return basic.Valid(c.Request)
}

func isJSONAPIRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") && c.ContentType() == "application/json"
}

// GetCSRFToken retrieves the CSRF token from the Gin context.
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(contextKeyCSRFToken)
}

// CSRFTokenField returns an HTML hidden input field with the CSRF token,
// or nothing when CSRF protection is off.
func CSRFTokenField(c *gin.Context) template.HTML {
	token := GetCSRFToken(c)
	if token == "" {
		return ""
	}
	return template.HTML(`<input type="hidden" name="gorilla.csrf.Token" value="` + template.HTMLEscapeString(token) + `">`)
}
