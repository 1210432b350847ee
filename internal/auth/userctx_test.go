package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/GoSim-25-26J-441/diagram-service/internal/roles"
)

type stubResolver struct {
	seen []roles.UpsertRole
	err  error
}

func (s *stubResolver) EnsureRole(_ context.Context, u roles.UpsertRole) (string, error) {
	s.seen = append(s.seen, u)
	if s.err != nil {
		return "", s.err
	}
	return "role-" + u.ForeignID, nil
}

func newRouter(mw gin.HandlerFunc, got **Authz) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/", func(c *gin.Context) {
		*got = FromContext(c)
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestWithRole_Header(t *testing.T) {
	resolver := &stubResolver{}
	var got *Authz
	r := newRouter(WithRole(resolver, nil, true), &got)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "ann")
	req.Header.Set("X-User-Email", "ann@example.org")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "role-ann", got.RoleID())
	assert.Equal(t, "ann@example.org", resolver.seen[0].Email)
}

func TestWithRole_HeaderIgnoredWhenUntrusted(t *testing.T) {
	resolver := &stubResolver{}
	var got *Authz
	r := newRouter(WithRole(resolver, nil, false), &got)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "ann")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.False(t, got.LoggedIn())
	assert.Empty(t, resolver.seen)
}

func TestWithRole_FirebaseUID(t *testing.T) {
	resolver := &stubResolver{}
	var got *Authz

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(CtxFirebaseUID, "fb-1")
		c.Next()
	})
	r.Use(WithRole(resolver, nil, false))
	r.GET("/", func(c *gin.Context) {
		got = FromContext(c)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "role-fb-1", got.RoleID())
}

func TestWithRole_ResolverError(t *testing.T) {
	var got *Authz
	r := newRouter(WithRole(&stubResolver{err: errors.New("db down")}, nil, true), &got)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "ann")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Nil(t, got)
}
