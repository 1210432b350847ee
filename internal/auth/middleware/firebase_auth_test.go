package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubVerifier struct{}

func (stubVerifier) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: "fb-1", Claims: map[string]interface{}{"email": "ann@example.org"}}, nil
}

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var uid, email string
	r := gin.New()
	r.Use(FirebaseAuthMiddleware(stubVerifier{}))
	r.GET("/", func(c *gin.Context) {
		uid = c.GetString("firebase_uid")
		email = c.GetString("email")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr, uid, email
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		rr, uid, email := serve(t, "Bearer good")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "fb-1", uid)
		assert.Equal(t, "ann@example.org", email)
	})

	t.Run("no token passes through", func(t *testing.T) {
		rr, uid, _ := serve(t, "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, uid)
	})

	t.Run("invalid token", func(t *testing.T) {
		rr, _, _ := serve(t, "Bearer forged")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
