package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothlead/backend/internal/store"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := NewTokenVerifier("secret")
	token, err := v.Issue("u1", "rep@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
	assert.Equal(t, "rep@example.com", claims.Email)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := NewTokenVerifier("secret")

	expired, err := v.Issue("u1", "", -time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenVerifier("other").Issue("u1", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSub, err := v.Issue("", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(noSub)
	assert.ErrorIs(t, err, ErrNoSubject)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenVerifier("").Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordSignIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "right" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"at","refresh_token":"rt","user":{"id":"u1","email":"rep@example.com"}}`)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "anon", time.Second, nil)

	sess, err := c.PasswordSignIn(context.Background(), " rep@example.com ", "right")
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "u1", sess.User.ID)

	_, err = c.PasswordSignIn(context.Background(), "rep@example.com", "wrong")
	var se *store.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Invalid login credentials", se.Message)
	assert.Equal(t, http.StatusBadRequest, se.Status)
}

func TestPasswordSignIn_ValidatesBeforeCalling(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "anon", time.Second, nil)
	_, err := c.PasswordSignIn(context.Background(), "  ", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = NewClient("", "", 0, nil).PasswordSignIn(context.Background(), "a@b.c", "pw")
	assert.ErrorIs(t, err, store.ErrNotConfigured)
}

type fakeAuth struct {
	sess *Session
	err  error
}

func (f fakeAuth) PasswordSignIn(context.Context, string, string) (*Session, error) {
	return f.sess, f.err
}

func signIn(t *testing.T, a PasswordAuthenticator, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/sign-in", NewHandler(a, nil).SignIn)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/sign-in", bytes.NewBufferString(body)))
	return w
}

func TestHandler_SignIn(t *testing.T) {
	w := signIn(t, fakeAuth{sess: &Session{AccessToken: "at"}}, `{"email":"a@b.c","password":"x"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"at"`)

	w = signIn(t, fakeAuth{err: ErrMissingCredentials}, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Enter your email and password.")

	w = signIn(t, fakeAuth{}, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = signIn(t, fakeAuth{err: &store.Error{Message: "Invalid login credentials"}}, `{"email":"a@b.c","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid login credentials")
}
