package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-auth-verify/internal/user"
)

func render(t *testing.T, name string, data PageData) string {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, name, data))
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	return rec.Body.String()
}

func TestRender_HomeAnonymous(t *testing.T) {
	body := render(t, PageHome, PageData{Title: "Home"})

	assert.Contains(t, body, `href="/signup"`)
	assert.Contains(t, body, `href="/login"`)
	assert.NotContains(t, body, "/logout")
}

func TestRender_HomeUnverified(t *testing.T) {
	body := render(t, PageHome, PageData{
		Title: "Home",
		User:  &user.User{ID: uuid.New(), Email: "a@example.com"},
	})

	assert.Contains(t, body, `action="/email-verification"`)
	assert.Contains(t, body, `action="/logout"`)
	assert.NotContains(t, body, "Current user")
}

func TestRender_HomeVerified(t *testing.T) {
	body := render(t, PageHome, PageData{
		Title: "Home",
		User:  &user.User{ID: uuid.New(), Email: "a@example.com", EmailVerified: true, PasswordHash: "secret-hash"},
	})

	assert.Contains(t, body, "Current user:")
	assert.Contains(t, body, "a@example.com")
	assert.NotContains(t, body, "secret-hash")
	assert.NotContains(t, body, `action="/email-verification"`)
}

func TestRender_Forms(t *testing.T) {
	assert.Contains(t, render(t, PageSignup, PageData{Title: "Sign up"}), `action="/signup"`)
	assert.Contains(t, render(t, PageLogin, PageData{Title: "Log in"}), `action="/login"`)
}

func TestRender_UnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	err = r.Render(httptest.NewRecorder(), http.StatusOK, "missing", PageData{})
	assert.Error(t, err)
}
