package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/drawmaster/internal/handlers"
	"github.com/HammerMeetNail/drawmaster/internal/identity"
	"github.com/HammerMeetNail/drawmaster/internal/logging"
)

type TokenVerifier interface {
	Verify(token string) (*identity.Identity, error)
}

// Registrar records identities seen in verified tokens so they can later be
// resolved by email.
type Registrar interface {
	Register(ctx context.Context, id identity.Identity) error
}

type AuthMiddleware struct {
	verifier  TokenVerifier
	registrar Registrar
	logger    *logging.Logger
	devUID    string
}

func NewAuthMiddleware(verifier TokenVerifier, registrar Registrar, logger *logging.Logger) *AuthMiddleware {
	if logger == nil {
		logger = logging.Default
	}
	return &AuthMiddleware{verifier: verifier, registrar: registrar, logger: logger}
}

// WithDevUID makes requests without a bearer token act as uid. Development only.
func (m *AuthMiddleware) WithDevUID(uid string) *AuthMiddleware {
	m.devUID = uid
	return m
}

// Authenticate verifies a bearer token and adds the identity to the context.
// Does not reject unauthenticated requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if m.devUID != "" {
				id := &identity.Identity{UID: m.devUID, Email: m.devUID + "@localhost"}
				next.ServeHTTP(w, r.WithContext(handlers.SetIdentityInContext(r.Context(), id)))
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		if m.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}

		id, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Debug("rejected bearer token", logging.Fields{"error": err})
			next.ServeHTTP(w, r)
			return
		}

		if m.registrar != nil && id.Email != "" {
			if err := m.registrar.Register(r.Context(), *id); err != nil {
				m.logger.Warn("registering identity failed", logging.Fields{"uid": id.UID, "error": err})
			}
		}

		next.ServeHTTP(w, r.WithContext(handlers.SetIdentityInContext(r.Context(), id)))
	})
}

// RequireAuth rejects unauthenticated requests with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handlers.GetIdentityFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
