package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudo-init-do/carhub/internal/models"
	"github.com/sudo-init-do/carhub/internal/store"
	"github.com/sudo-init-do/carhub/internal/utils"
)

var secret = []byte("mw-secret")

func whoami(c echo.Context) error {
	id, _ := utils.UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "role": c.Get("role")})
}

func get(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	e := echo.New()
	e.GET("/who", whoami, JWTMiddleware(secret))

	tok, err := utils.IssueToken(secret, 7, "user", time.Hour)
	require.NoError(t, err)
	expired, err := utils.IssueToken(secret, 7, "user", -time.Minute)
	require.NoError(t, err)
	forged, err := utils.IssueToken([]byte("other"), 7, "admin", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name string
		auth string
		code int
	}{
		{"valid", "Bearer " + tok, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", tok, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + forged, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(e, "/who", tt.auth)
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	rec := get(e, "/who", "Bearer "+tok)
	assert.JSONEq(t, `{"id":7,"role":"user"}`, rec.Body.String())
}

func TestAdminGuardReadsStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	admin := models.User{Username: "root", Email: "root@example.com"}
	plain := models.User{Username: "joe", Email: "joe@example.com"}
	require.NoError(t, s.InTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateUser(ctx, &admin); err != nil {
			return err
		}
		if err := tx.CreateUser(ctx, &plain); err != nil {
			return err
		}
		_, err := tx.SetAdminByEmail(ctx, admin.Email)
		return err
	}))

	e := echo.New()
	e.GET("/admin/ping", whoami, JWTMiddleware(secret), AdminGuard(s))

	// a stale "admin" role in the token does not matter, the store does
	plainTok, err := utils.IssueToken(secret, plain.ID, "admin", time.Hour)
	require.NoError(t, err)
	adminTok, err := utils.IssueToken(secret, admin.ID, "user", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, get(e, "/admin/ping", "Bearer "+plainTok).Code)
	assert.Equal(t, http.StatusOK, get(e, "/admin/ping", "Bearer "+adminTok).Code)
}

func TestProtectedKeepsUnknownPathsNotFound(t *testing.T) {
	e := echo.New()
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	api := Protected(e, JWTMiddleware(secret))
	api.GET("/me", whoami)
	api.GET("/listings/:id", whoami)

	tok, err := utils.IssueToken(secret, 3, "user", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, get(e, "/no-such-page", "").Code)
	assert.Equal(t, http.StatusNotFound, get(e, "/", "").Code)
	assert.Equal(t, http.StatusNotFound, get(e, "/listings/1/nope", "Bearer "+tok).Code)
	assert.Equal(t, http.StatusOK, get(e, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(e, "/listings/1", "").Code)
	assert.Equal(t, http.StatusOK, get(e, "/me", "Bearer "+tok).Code)
}
