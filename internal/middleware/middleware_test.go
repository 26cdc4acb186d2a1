package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-activity-api/internal/models"
	appErrors "github.com/noah-isme/club-activity-api/pkg/errors"
)

type stubValidator map[string]*models.JWTClaims

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

var tokens = stubValidator{
	"admin":  {UserID: "u-admin", Username: "root", Admin: true},
	"member": {UserID: "u-member", Username: "kim"},
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func whoami(c *gin.Context) {
	claims := Claims(c)
	if claims == nil {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, claims.Username)
}

func TestJWT(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWT(tokens), whoami)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "forged").Code)

	rec := serve(r, http.MethodGet, "/me", "member")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kim", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token member")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalJWT(t *testing.T) {
	r := gin.New()
	r.GET("/me", OptionalJWT(tokens), whoami)

	assert.Equal(t, "anonymous", serve(r, http.MethodGet, "/me", "").Body.String())
	assert.Equal(t, "anonymous", serve(r, http.MethodGet, "/me", "forged").Body.String())
	assert.Equal(t, "root", serve(r, http.MethodGet, "/me", "admin").Body.String())
}

func TestRequireAdmin(t *testing.T) {
	r := gin.New()
	r.GET("/admin", JWT(tokens), RequireAdmin(), whoami)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/admin", "admin").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", "member").Code)

	bare := gin.New()
	bare.GET("/admin", RequireAdmin(), whoami)
	assert.Equal(t, http.StatusUnauthorized, serve(bare, http.MethodGet, "/admin", "").Code)
}

func TestAdminOrSelf(t *testing.T) {
	r := gin.New()
	r.DELETE("/users/:id", JWT(tokens), AdminOrSelf(), whoami)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/users/u-member", "member").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodDelete, "/users/u-other", "member").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/users/u-other", "admin").Code)
}

type observed struct {
	method, path string
	status       int
}

type recordingObserver struct {
	calls []observed
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.calls = append(r.calls, observed{method: method, path: path, status: status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/activities/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, http.MethodGet, "/activities/42", "")
	serve(r, http.MethodGet, "/nowhere", "")

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{http.MethodGet, "/activities/:id", http.StatusNoContent}, obs.calls[0])
	assert.Equal(t, observed{http.MethodGet, "unmatched", http.StatusNotFound}, obs.calls[1])
}
