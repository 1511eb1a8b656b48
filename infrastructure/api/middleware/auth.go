package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/helixml/jobsel/infrastructure/api/jsonapi"
)

// APIKeyHeader carries the API key on protected requests.
const APIKeyHeader = "X-API-KEY"

// AuthConfig holds the accepted API keys. An empty config disables
// authentication.
type AuthConfig struct {
	keys []string
}

// NewAuthConfigWithKeys creates an AuthConfig accepting keys.
func NewAuthConfigWithKeys(keys []string) AuthConfig {
	cp := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			cp = append(cp, k)
		}
	}
	return AuthConfig{keys: cp}
}

// Enabled reports whether any key is configured.
func (c AuthConfig) Enabled() bool { return len(c.keys) > 0 }

// Valid reports whether key is one of the configured keys.
func (c AuthConfig) Valid(key string) bool {
	if key == "" {
		return false
	}
	for _, k := range c.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// WriteProtect requires a valid API key on every method other than GET,
// HEAD and OPTIONS. Selection queries are POSTs and so carry the key too.
func WriteProtect(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled() || safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if !config.Valid(r.Header.Get(APIKeyHeader)) {
				e := jsonapi.NewError("401", http.StatusText(http.StatusUnauthorized), "missing or invalid API key")
				e.Code = "unauthenticated"
				e.Source = &jsonapi.ErrorSource{Header: APIKeyHeader}
				WriteJSON(w, http.StatusUnauthorized, jsonapi.NewErrorResponse(e))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
