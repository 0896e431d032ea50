// Package auth provides the shared-key authentication middleware used by the
// management endpoints. Storefront checkout stays public; everything touching
// stored orders and invoices requires the configured API key.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sofia-padel/api/internal/platform/httpx"
)

const defaultHeader = "X-API-Key"

// APIKeyAuthenticator validates a shared secret carried in a request header.
type APIKeyAuthenticator struct {
	key    string
	header string
}

// Option customises APIKeyAuthenticator behaviour.
type Option func(*APIKeyAuthenticator)

// WithHeader overrides the header the key is read from.
func WithHeader(header string) Option {
	return func(a *APIKeyAuthenticator) {
		header = strings.TrimSpace(header)
		if header != "" {
			a.header = header
		}
	}
}

// NewAPIKeyAuthenticator constructs an authenticator for the given key.
func NewAPIKeyAuthenticator(key string, opts ...Option) *APIKeyAuthenticator {
	a := &APIKeyAuthenticator{
		key:    strings.TrimSpace(key),
		header: defaultHeader,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Middleware rejects requests that do not present the configured key.
func (a *APIKeyAuthenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Authorized(r) {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "invalid or missing api key", http.StatusUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorized reports whether the request carries the expected key.
func (a *APIKeyAuthenticator) Authorized(r *http.Request) bool {
	if a == nil || a.key == "" {
		return false
	}
	presented := strings.TrimSpace(r.Header.Get(a.header))
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.key)) == 1
}

// Header returns the header name the authenticator inspects.
func (a *APIKeyAuthenticator) Header() string {
	if a == nil {
		return defaultHeader
	}
	return a.header
}
