package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudo-init-do/carhub/internal/apperr"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := IssueToken(secret, 42, "admin", time.Hour)
	require.NoError(t, err)

	id, claims, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, "admin", claims.Role)

	_, _, err = ParseToken([]byte("other"), tok)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := IssueToken(secret, 1, "user", -time.Minute)
	require.NoError(t, err)

	_, _, err = ParseToken(secret, tok)
	assert.Error(t, err)
}

func TestParamID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")

	c.SetParamValues("17")
	id, err := ParamID(c, "id")
	require.NoError(t, err)
	assert.EqualValues(t, 17, id)

	for _, bad := range []string{"abc", "0", "-3", ""} {
		c.SetParamValues(bad)
		_, err := ParamID(c, "id")
		assert.ErrorIs(t, err, apperr.ErrValidation, bad)
	}
}

func TestFail(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, Fail(c, apperr.Forbidden("nope")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"nope"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, Fail(c, errors.New("pool exhausted")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
