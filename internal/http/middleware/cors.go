package middleware

import (
	"net/http"
	"strings"
)

// The booking surface is read and create only, so the browser contract is
// fixed: GET and POST, JSON bodies, bearer auth. Nothing here is
// configurable except the origin allowlist.
const (
	corsMethods = "GET, POST, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
	corsMaxAge  = "600"
)

// OriginPolicy decides which browser origins may call the engine.
type OriginPolicy struct {
	allowAny bool
	allowed  map[string]struct{}
}

// NewOriginPolicy parses an allowlist. A "*" entry admits every origin;
// blank entries are dropped.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{})}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			p.allowAny = true
		default:
			p.allowed[origin] = struct{}{}
		}
	}
	return p
}

// Allows reports whether the given Origin header value may call the engine.
func (p *OriginPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.allowAny {
		return true
	}
	_, ok := p.allowed[origin]
	return ok
}

// Handler answers preflights and stamps response headers for allowed
// origins. Disallowed origins pass through without CORS headers; the
// browser enforces the denial.
func (p *OriginPolicy) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if p.Allows(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", corsMaxAge)
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
