package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/incridea/capture-pipeline/pkg/capture"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	// anonCookieName carries the long-lived anonymous token that
	// deduplicates likes and download logs for signed-out viewers.
	anonCookieName   = "gallery_id"
	anonCookieMaxAge = 365 * 24 * 60 * 60
)

// NewJWTAuth builds the verifier for admin tokens.
func NewJWTAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// Verifier parses an Authorization bearer token when present. It never
// rejects; identity resolution downstream decides what the caller may do.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verifier(ja)
}

// WithIdentity resolves the caller identity for every request. A valid JWT
// yields an account identity with its server-side role; everyone else gets
// an anonymous identity backed by a year-long cookie token, minted here on
// first contact.
func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := accountIdentity(r)
		if !ok {
			ident = anonIdentity(w, r)
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountIdentity(r *http.Request) (capture.Identity, bool) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return capture.Identity{}, false
	}

	sub, _ := claims["sub"].(string)
	accountID, err := uuid.Parse(sub)
	if err != nil {
		return capture.Identity{}, false
	}

	// The role claim only selects the row in the server-side policy table;
	// it is never compared against client expectations directly.
	roleClaim, _ := claims["role"].(string)
	return capture.AccountIdentity(accountID, capture.Role(roleClaim)), true
}

func anonIdentity(w http.ResponseWriter, r *http.Request) capture.Identity {
	if cookie, err := r.Cookie(anonCookieName); err == nil && cookie.Value != "" {
		return capture.AnonymousIdentity(cookie.Value)
	}

	token := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   anonCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return capture.AnonymousIdentity(token)
}

// IdentityFromContext returns the identity resolved by WithIdentity.
func IdentityFromContext(ctx context.Context) capture.Identity {
	if ident, ok := ctx.Value(identityKey).(capture.Identity); ok {
		return ident
	}
	return capture.Identity{}
}

// RequireCapability rejects callers whose identity does not hold the
// capability. Handlers still pass the identity down so the service layer
// enforces the same check.
func RequireCapability(c capture.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := IdentityFromContext(r.Context())
			if !ident.Can(c) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, errorBody("not_authorized", "caller lacks the required capability"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
