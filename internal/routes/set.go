package routes

import "fmt"

// Set resolves route names across several tables, for callers such as
// templates that link to pages and API endpoints alike.
type Set []*Table

// Reverse builds the URL for name using the first table that defines it.
func (s Set) Reverse(name string, args ...any) (string, error) {
	for _, t := range s {
		if _, ok := t.byName[name]; ok {
			return t.Reverse(name, args...)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownRoute, name)
}

// Match resolves a path against each table in order.
func (s Set) Match(path string) (Route, Params, bool) {
	for _, t := range s {
		if r, p, ok := t.Match(path); ok {
			return r, p, true
		}
	}
	return Route{}, nil, false
}
