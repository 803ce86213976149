package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/G2-Spool/spool-progress-service/config"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims tokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func studentToken(t *testing.T, studentID string) string {
	return signToken(t, tokenClaims{
		Role: string(RoleStudent),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   studentID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
}

func testAuthenticator(t *testing.T) *authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("service-key"), bcrypt.MinCost)
	require.NoError(t, err)
	return newAuthenticator(config.AuthConfig{
		JWTSecret:    testSecret,
		APIKeyHashes: []string{string(hash)},
	})
}

func okHandler(captured *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := principalFromContext(r.Context()); ok && captured != nil {
			*captured = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareRejectsMissingCredentials(t *testing.T) {
	auth := testAuthenticator(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/progress/s-1/summary", nil)
	auth.middleware(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	auth := testAuthenticator(t)
	var principal Principal

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken(t, "student-1"))
	auth.middleware(okHandler(&principal)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RoleStudent, principal.Role)
	assert.Equal(t, "student-1", principal.StudentID)
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	auth := testAuthenticator(t)
	expired := signToken(t, tokenClaims{
		Role: string(RoleStudent),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "student-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	auth.middleware(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsTokenWithoutExpiry(t *testing.T) {
	auth := testAuthenticator(t)
	noExpiry := signToken(t, tokenClaims{
		Role:             string(RoleStudent),
		RegisteredClaims: jwt.RegisteredClaims{Subject: "student-1"},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+noExpiry)
	auth.middleware(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	auth := testAuthenticator(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: string(RoleStudent),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "student-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	auth.middleware(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareChecksIssuerWhenConfigured(t *testing.T) {
	auth := newAuthenticator(config.AuthConfig{
		JWTSecret: testSecret,
		JWTIssuer: "spool-auth",
	})

	wrongIssuer := signToken(t, tokenClaims{
		Role: string(RoleStudent),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "student-1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+wrongIssuer)
	auth.middleware(okHandler(nil)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rightIssuer := signToken(t, tokenClaims{
		Role: string(RoleStudent),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "student-1",
			Issuer:    "spool-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+rightIssuer)
	auth.middleware(okHandler(nil)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareAPIKeyGrantsSystemRole(t *testing.T) {
	auth := testAuthenticator(t)
	var principal Principal

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/progress/bulk", nil)
	req.Header.Set("X-API-Key", "service-key")
	auth.middleware(okHandler(&principal)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RoleSystem, principal.Role)
	assert.Empty(t, principal.StudentID)
}

func TestAuthMiddlewareRejectsUnknownAPIKey(t *testing.T) {
	auth := testAuthenticator(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/progress/bulk", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	auth.middleware(okHandler(nil)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSystemRejectsStudents(t *testing.T) {
	auth := testAuthenticator(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	ctx := context.WithValue(req.Context(), contextKeyPrincipal, Principal{StudentID: "s-1", Role: RoleStudent})
	auth.requireSystem(okHandler(nil)).ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireStudentAccess(t *testing.T) {
	auth := testAuthenticator(t)

	serve := func(principal Principal, path string) *httptest.ResponseRecorder {
		router := chi.NewRouter()
		router.With(auth.requireStudentAccess).Get("/progress/{studentID}/summary", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		ctx := context.WithValue(req.Context(), contextKeyPrincipal, principal)
		router.ServeHTTP(rec, req.WithContext(ctx))
		return rec
	}

	// Students reach their own records only.
	rec := serve(Principal{StudentID: "s-1", Role: RoleStudent}, "/progress/s-1/summary")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(Principal{StudentID: "s-1", Role: RoleStudent}, "/progress/s-2/summary")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Instructors and system callers reach anyone.
	rec = serve(Principal{Role: RoleInstructor}, "/progress/s-2/summary")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(Principal{Role: RoleSystem}, "/progress/s-2/summary")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseTokenUnknownRoleDefaultsToStudent(t *testing.T) {
	auth := testAuthenticator(t)
	raw := signToken(t, tokenClaims{
		Role: "superadmin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "student-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	principal, err := auth.parseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, principal.Role)
}
