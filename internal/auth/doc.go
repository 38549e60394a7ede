// Package auth guards the write routes of the application.
//
// It supports two modes, selected by AUTH_MODE:
//   - "none": every route is open (default)
//   - "basic": create, edit, and delete routes require HTTP basic auth
//
// # Configuration
//
//	AUTH_MODE=basic
//	AUTH_USERNAME=admin
//	AUTH_PASSWORD_HASH=<bcrypt hash>      # see: bookshelf hash-password
//	AUTH_SESSION_SECRET=<hex-32-bytes>    # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_SECURE_COOKIES=true
//	AUTH_MAX_FAILURES=5                   # bad logins before a lockout
//	AUTH_FAILURE_WINDOW=15m
//	AUTH_LOCKOUT_DURATION=30m
//
// # Usage
//
//	lockout := auth.NewLockout(auth.LockoutPolicy{MaxFailures: 5, Window: 15 * time.Minute, Duration: 30 * time.Minute})
//	basic := auth.NewBasicAuth(cfg.Auth.Username, cfg.Auth.PasswordHash, lockout)
//	route.Middleware = append(route.Middleware, basic.Require())
//
// Sessions carry flash messages only; identity comes from the basic auth
// header on every request.
package auth
