// Package routes provides named route tables.
//
// A Table is a static registration list: each Route binds a path pattern
// such as "/<int:id>/editar/" to a gin handler under a symbolic name. The
// table is built once at startup and never modified afterwards, so it can be
// shared by every request goroutine without locking.
//
// # Patterns
//
// Patterns are slash-separated. A segment is either a literal or a capture
// written as <converter:name>. Supported converters:
//
//   - int: one or more ASCII digits, converted to a non-negative int
//   - str: any non-empty segment (the default when no converter is given)
//
// # Usage
//
//	table, err := routes.New("/libros", []routes.Route{
//		{Name: "lista_libros", Pattern: "/", Methods: routes.GET, Handler: list},
//		{Name: "detalle_libro", Pattern: "/<int:id>/", Methods: routes.GET, Handler: detail},
//	})
//	table.Register(router)
//	url, _ := table.Reverse("detalle_libro", 42) // "/libros/42/"
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Converter names the type of a path capture.
type Converter string

const (
	ConverterInt Converter = "int"
	ConverterStr Converter = "str"
)

// Common method sets. HEAD goes wherever GET does.
var (
	GET        = []string{http.MethodGet, http.MethodHead}
	GETAndPOST = []string{http.MethodGet, http.MethodHead, http.MethodPost}
	Resource   = []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete}
)

var (
	ErrDuplicateName    = errors.New("duplicate route name")
	ErrDuplicatePattern = errors.New("duplicate route pattern")
	ErrInvalidPattern   = errors.New("invalid route pattern")
	ErrUnknownRoute     = errors.New("unknown route name")
	ErrArgCount         = errors.New("wrong number of arguments")
	ErrBadArg           = errors.New("argument does not satisfy converter")
)

var captureRe = regexp.MustCompile(`^<(?:([a-z]+):)?([A-Za-z_][A-Za-z0-9_]*)>$`)

// Route associates a path pattern with a handler and a symbolic name.
type Route struct {
	Name    string
	Pattern string
	Methods []string
	Handler gin.HandlerFunc

	// Middleware runs after the captures are validated and before Handler.
	Middleware []gin.HandlerFunc
}

func (r Route) clone() Route {
	r.Methods = append([]string(nil), r.Methods...)
	r.Middleware = append([]gin.HandlerFunc(nil), r.Middleware...)
	return r
}

// Params holds converted captures keyed by name: int for int captures,
// string for str captures.
type Params map[string]any

type segment struct {
	literal string
	name    string
	conv    Converter
}

func (s segment) isCapture() bool {
	return s.name != ""
}

type compiledRoute struct {
	route    Route
	segments []segment
	trailing bool
}

// Table is an immutable set of named routes mounted under a common prefix.
type Table struct {
	prefix   string
	notFound gin.HandlerFunc
	routes   []compiledRoute
	byName   map[string]int
}

// Option customises a Table at construction time.
type Option func(*Table)

// WithNotFound sets the handler used when a capture fails its converter.
// The default aborts with a bare 404.
func WithNotFound(h gin.HandlerFunc) Option {
	return func(t *Table) {
		t.notFound = h
	}
}

// New builds a table from a registration list. Names must be unique, every
// route needs at least one method and a handler, and no two routes may share
// the same pattern shape.
func New(prefix string, routes []Route, opts ...Option) (*Table, error) {
	t := &Table{
		prefix: normalizePrefix(prefix),
		byName: make(map[string]int, len(routes)),
	}
	for _, opt := range opts {
		opt(t)
	}

	shapes := make(map[string]string, len(routes))
	for _, r := range routes {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: route with pattern %q has no name", ErrInvalidPattern, r.Pattern)
		}
		if _, exists := t.byName[r.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, r.Name)
		}
		if len(r.Methods) == 0 {
			return nil, fmt.Errorf("%w: route %s has no methods", ErrInvalidPattern, r.Name)
		}
		if r.Handler == nil {
			return nil, fmt.Errorf("%w: route %s has no handler", ErrInvalidPattern, r.Name)
		}

		segments, trailing, err := compilePattern(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r.Name, err)
		}

		shape := shapeOf(segments, trailing)
		if other, exists := shapes[shape]; exists {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicatePattern, other, r.Name)
		}
		shapes[shape] = r.Name

		t.byName[r.Name] = len(t.routes)
		t.routes = append(t.routes, compiledRoute{route: r.clone(), segments: segments, trailing: trailing})
	}

	return t, nil
}

// MustNew is like New but panics on error. Intended for package-level tables.
func MustNew(prefix string, routes []Route, opts ...Option) *Table {
	t, err := New(prefix, routes, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Prefix returns the mount prefix without a trailing slash.
func (t *Table) Prefix() string {
	return t.prefix
}

// Routes returns a copy of the registration list in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i, cr := range t.routes {
		out[i] = cr.route.clone()
	}
	return out
}

// Lookup returns the route registered under name.
func (t *Table) Lookup(name string) (Route, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Route{}, false
	}
	return t.routes[i].route.clone(), true
}

// FullPattern returns the route's pattern joined with the table prefix.
func (t *Table) FullPattern(name string) (string, error) {
	i, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}
	return t.prefix + t.routes[i].route.Pattern, nil
}

// Match resolves a request path (including the prefix) to a route.
// Captures are converted; a segment failing its converter does not match.
func (t *Table) Match(path string) (Route, Params, bool) {
	rel, ok := t.relative(path)
	if !ok {
		return Route{}, nil, false
	}

	trailing := strings.HasSuffix(rel, "/")
	parts := splitPath(rel)

	for _, cr := range t.routes {
		if cr.trailing != trailing || len(cr.segments) != len(parts) {
			continue
		}
		params, ok := matchSegments(cr.segments, parts)
		if ok {
			return cr.route.clone(), params, true
		}
	}
	return Route{}, nil, false
}

// Reverse builds the URL for the named route. Arguments are consumed in the
// order captures appear in the pattern.
func (t *Table) Reverse(name string, args ...any) (string, error) {
	i, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}
	cr := t.routes[i]

	var b strings.Builder
	b.WriteString(t.prefix)
	argIdx := 0
	for _, seg := range cr.segments {
		b.WriteByte('/')
		if !seg.isCapture() {
			b.WriteString(seg.literal)
			continue
		}
		if argIdx >= len(args) {
			return "", fmt.Errorf("%w: %s expects more than %d", ErrArgCount, name, len(args))
		}
		value, err := formatArg(seg, args[argIdx])
		if err != nil {
			return "", fmt.Errorf("route %s: %w", name, err)
		}
		b.WriteString(value)
		argIdx++
	}
	if argIdx != len(args) {
		return "", fmt.Errorf("%w: %s expects %d, got %d", ErrArgCount, name, argIdx, len(args))
	}
	if cr.trailing {
		b.WriteByte('/')
	}
	return b.String(), nil
}

// MustReverse is like Reverse but panics on error.
func (t *Table) MustReverse(name string, args ...any) string {
	u, err := t.Reverse(name, args...)
	if err != nil {
		panic(err)
	}
	return u
}

// Register installs every route on the router, one handler chain per method.
func (t *Table) Register(r gin.IRouter) {
	group := r
	if t.prefix != "" {
		group = r.Group(t.prefix)
	}

	for _, cr := range t.routes {
		chain := make([]gin.HandlerFunc, 0, len(cr.route.Middleware)+2)
		chain = append(chain, t.guard(cr.segments))
		chain = append(chain, cr.route.Middleware...)
		chain = append(chain, cr.route.Handler)

		path := ginPath(cr.segments, cr.trailing)
		for _, method := range cr.route.Methods {
			group.Handle(method, path, chain...)
		}
	}
}

// guard converts captures before the handler runs. gin matches any segment
// for a :param, so a failing converter is answered as an unmatched path.
func (t *Table) guard(segments []segment) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, seg := range segments {
			if !seg.isCapture() {
				continue
			}
			value, ok := convert(seg.conv, c.Param(seg.name))
			if !ok {
				if t.notFound != nil {
					t.notFound(c)
					c.Abort()
					return
				}
				c.AbortWithStatus(http.StatusNotFound)
				return
			}
			c.Set(contextKey(seg.name), value)
		}
		c.Next()
	}
}

// IntParam returns an int capture converted by the table guard.
func IntParam(c *gin.Context, name string) (int, bool) {
	v, exists := c.Get(contextKey(name))
	if !exists {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// StrParam returns a str capture converted by the table guard.
func StrParam(c *gin.Context, name string) (string, bool) {
	v, exists := c.Get(contextKey(name))
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func contextKey(name string) string {
	return "route_param_" + name
}

func (t *Table) relative(path string) (string, bool) {
	if t.prefix == "" {
		return path, strings.HasPrefix(path, "/")
	}
	if !strings.HasPrefix(path, t.prefix) {
		return "", false
	}
	rel := path[len(t.prefix):]
	if !strings.HasPrefix(rel, "/") {
		return "", false
	}
	return rel, true
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

func compilePattern(pattern string) ([]segment, bool, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, false, fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, pattern)
	}

	trailing := strings.HasSuffix(pattern, "/")
	parts := splitPath(pattern)
	segments := make([]segment, 0, len(parts))
	seen := make(map[string]bool)

	for _, part := range parts {
		if part == "" {
			return nil, false, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPattern, pattern)
		}
		m := captureRe.FindStringSubmatch(part)
		if m == nil {
			if strings.ContainsAny(part, "<>:*") {
				return nil, false, fmt.Errorf("%w: %q has a malformed segment %q", ErrInvalidPattern, pattern, part)
			}
			segments = append(segments, segment{literal: part})
			continue
		}

		conv := Converter(m[1])
		if conv == "" {
			conv = ConverterStr
		}
		if conv != ConverterInt && conv != ConverterStr {
			return nil, false, fmt.Errorf("%w: unknown converter %q in %q", ErrInvalidPattern, conv, pattern)
		}
		name := m[2]
		if seen[name] {
			return nil, false, fmt.Errorf("%w: capture %q repeated in %q", ErrInvalidPattern, name, pattern)
		}
		seen[name] = true
		segments = append(segments, segment{name: name, conv: conv})
	}
	return segments, trailing, nil
}

// splitPath splits "/a/b/" into [a b]; "/" yields no segments.
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// shapeOf is the pattern with capture names erased, used to detect two
// routes that would always match the same paths.
func shapeOf(segments []segment, trailing bool) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		if seg.isCapture() {
			b.WriteString("<" + string(seg.conv) + ">")
		} else {
			b.WriteString(seg.literal)
		}
	}
	if trailing || len(segments) == 0 {
		b.WriteByte('/')
	}
	return b.String()
}

func ginPath(segments []segment, trailing bool) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		if seg.isCapture() {
			b.WriteString(":" + seg.name)
		} else {
			b.WriteString(seg.literal)
		}
	}
	if trailing || len(segments) == 0 {
		b.WriteByte('/')
	}
	return b.String()
}

func matchSegments(segments []segment, parts []string) (Params, bool) {
	var params Params
	for i, seg := range segments {
		if !seg.isCapture() {
			if seg.literal != parts[i] {
				return nil, false
			}
			continue
		}
		raw, err := url.PathUnescape(parts[i])
		if err != nil {
			return nil, false
		}
		value, ok := convert(seg.conv, raw)
		if !ok {
			return nil, false
		}
		if params == nil {
			params = make(Params)
		}
		params[seg.name] = value
	}
	return params, true
}

func convert(conv Converter, raw string) (any, bool) {
	switch conv {
	case ConverterInt:
		if raw == "" {
			return nil, false
		}
		for i := 0; i < len(raw); i++ {
			if raw[i] < '0' || raw[i] > '9' {
				return nil, false
			}
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, false
		}
		return n, true
	case ConverterStr:
		if raw == "" || strings.Contains(raw, "/") {
			return nil, false
		}
		return raw, true
	}
	return nil, false
}

func formatArg(seg segment, arg any) (string, error) {
	switch seg.conv {
	case ConverterInt:
		var n int64
		switch v := arg.(type) {
		case int:
			n = int64(v)
		case int32:
			n = int64(v)
		case int64:
			n = v
		case uint:
			return strconv.FormatUint(uint64(v), 10), nil
		case uint32:
			return strconv.FormatUint(uint64(v), 10), nil
		case uint64:
			return strconv.FormatUint(v, 10), nil
		case string:
			if _, ok := convert(ConverterInt, v); !ok {
				return "", fmt.Errorf("%w: %s=%q is not an integer", ErrBadArg, seg.name, v)
			}
			return v, nil
		default:
			return "", fmt.Errorf("%w: %s has unsupported type %T", ErrBadArg, seg.name, arg)
		}
		if n < 0 {
			return "", fmt.Errorf("%w: %s=%d is negative", ErrBadArg, seg.name, n)
		}
		return strconv.FormatInt(n, 10), nil
	default:
		s := fmt.Sprint(arg)
		if s == "" || strings.Contains(s, "/") {
			return "", fmt.Errorf("%w: %s=%q is not a path segment", ErrBadArg, seg.name, s)
		}
		return url.PathEscape(s), nil
	}
}
