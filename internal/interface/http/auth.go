package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/G2-Spool/spool-progress-service/config"
	"github.com/go-chi/chi/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRINCIPALS
// ══════════════════════════════════════════════════════════════════════════════

// Role is the caller's access level.
type Role string

const (
	// RoleStudent may read and write only its own data.
	RoleStudent Role = "student"

	// RoleInstructor may read any student's data.
	RoleInstructor Role = "instructor"

	// RoleSystem is for trusted services: bulk ingestion, point awards,
	// notification triggers.
	RoleSystem Role = "system"
)

// Principal identifies the authenticated caller.
type Principal struct {
	// StudentID - the student a bearer token belongs to, empty for
	// API-key callers.
	StudentID string

	// Role - the caller's access level.
	Role Role
}

// CanAccessStudent reports whether the principal may read the given
// student's data.
func (p Principal) CanAccessStudent(studentID string) bool {
	switch p.Role {
	case RoleInstructor, RoleSystem:
		return true
	case RoleStudent:
		return p.StudentID == studentID
	}
	return false
}

const contextKeyPrincipal contextKey = "principal"

// principalFromContext returns the authenticated principal, false when the
// request skipped authentication.
func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal).(Principal)
	return p, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATOR
// ══════════════════════════════════════════════════════════════════════════════

// tokenClaims is the accepted bearer token payload. Subject carries the
// student UUID.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// authenticator validates bearer tokens and service API keys.
type authenticator struct {
	secret       []byte
	issuer       string
	apiKeyHashes []string
}

func newAuthenticator(cfg config.AuthConfig) *authenticator {
	return &authenticator{
		secret:       []byte(cfg.JWTSecret),
		issuer:       cfg.JWTIssuer,
		apiKeyHashes: cfg.APIKeyHashes,
	}
}

// middleware authenticates the request and stores the principal in the
// context. An X-API-Key matching a configured bcrypt hash grants the system
// role; otherwise a valid HS256 bearer token is required.
func (a *authenticator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-Key"); key != "" {
			if !a.validAPIKey(key) {
				writeJSONError(w, http.StatusUnauthorized, "invalid_api_key", "API key not recognized")
				return
			}
			ctx := context.WithValue(r.Context(), contextKeyPrincipal, Principal{Role: RoleSystem})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		raw := bearerToken(r)
		if raw == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing_credentials", "Bearer token or API key is required")
			return
		}

		principal, err := a.parseToken(raw)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Bearer token is invalid or expired")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyPrincipal, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSystem rejects callers without the system role.
func (a *authenticator) requireSystem(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFromContext(r.Context())
		if !ok || p.Role != RoleSystem {
			writeJSONError(w, http.StatusForbidden, "forbidden", "This endpoint requires a service API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireStudentAccess checks the {studentID} route parameter against the
// principal: students reach only their own records, instructors and system
// callers reach any.
func (a *authenticator) requireStudentAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "missing_credentials", "Authentication required")
			return
		}

		studentID := chi.URLParam(r, "studentID")
		if !p.CanAccessStudent(studentID) {
			writeJSONError(w, http.StatusForbidden, "forbidden", "You may only access your own records")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// parseToken validates the bearer token and builds the principal.
// Only HS256 is accepted.
func (a *authenticator) parseToken(raw string) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, err
	}

	role := Role(claims.Role)
	switch role {
	case RoleStudent, RoleInstructor, RoleSystem:
	default:
		role = RoleStudent
	}

	return Principal{StudentID: claims.Subject, Role: role}, nil
}

// validAPIKey compares the presented key against every configured bcrypt
// hash. Hashing keeps raw keys out of the environment and config dumps.
func (a *authenticator) validAPIKey(key string) bool {
	for _, hash := range a.apiKeyHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
