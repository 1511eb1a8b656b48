package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/helixml/jobsel/application/service"
	"github.com/helixml/jobsel/domain/attribute"
)

// Requester headers.
const (
	RequesterUserHeader = "X-Requester-User"
	RequesterHostHeader = "X-Requester-Host"
	RequesterPermHeader = "X-Requester-Perm"
)

type requesterKey struct{}

// WithRequester stores r in ctx.
func WithRequester(ctx context.Context, r service.Requester) context.Context {
	return context.WithValue(ctx, requesterKey{}, r)
}

// RequesterFrom returns the requester stored by the Requester middleware.
func RequesterFrom(ctx context.Context) (service.Requester, bool) {
	r, ok := ctx.Value(requesterKey{}).(service.Requester)
	return r, ok
}

// Requester identifies the caller from the requester headers. A requester
// user of the form user@host fills both fields. The permission header is
// only honoured on requests holding a valid API key; everyone else gets
// defaultPerm.
func Requester(auth AuthConfig, defaultPerm attribute.Perm) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get(RequesterUserHeader))
			if user == "" {
				WriteError(w, r, NewAuthenticationError("missing "+RequesterUserHeader+" header"), nil)
				return
			}
			host := strings.TrimSpace(r.Header.Get(RequesterHostHeader))
			if u, h, found := strings.Cut(user, "@"); found {
				user = u
				if host == "" {
					host = h
				}
			}

			perm := defaultPerm
			if raw := r.Header.Get(RequesterPermHeader); raw != "" && auth.Valid(r.Header.Get(APIKeyHeader)) {
				p, err := attribute.ParsePerm(raw)
				if err != nil {
					WriteError(w, r, NewAPIError(http.StatusBadRequest, "invalid "+RequesterPermHeader+" header", err), nil)
					return
				}
				perm = p
			}

			ctx := WithRequester(r.Context(), service.Requester{User: user, Host: host, Perm: perm})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
