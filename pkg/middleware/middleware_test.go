package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"utmcouncil/vote-api/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(NewRequestIDMiddleware())
	r.GET("/", append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})...)
	r.POST("/", append(handlers, func(c *gin.Context) {
		buf := make([]byte, 64)
		_, err := c.Request.Body.Read(buf)
		if err != nil && err.Error() == "http: request body too large" {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})...)
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	w := do(newEngine(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestSessionMiddleware(t *testing.T) {
	s := security.NewSessions("secret")
	r := newEngine(NewSessionMiddleware(s))

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "No token provided")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = do(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token")

	token, err := s.Issue("user-1", "a@b.com", false)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())
}

func TestAdminMiddleware(t *testing.T) {
	s := security.NewSessions("secret")
	r := newEngine(NewSessionMiddleware(s), NewAdminMiddleware())

	user, err := s.Issue("user-1", "a@b.com", false)
	require.NoError(t, err)
	admin, err := s.IssueSuperAdmin("root@utm.md")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+user)
	assert.Equal(t, http.StatusForbidden, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+admin)
	assert.Equal(t, http.StatusOK, do(r, req).Code)
}

func TestBodySizeLimiter(t *testing.T) {
	r := newEngine(BodySizeLimiter(8))

	w := do(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, Burst: 2})
	r := newEngine(rl.Middleware())

	codes := []int{}
	for range 4 {
		codes = append(codes, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Contains(t, codes[2:], http.StatusTooManyRequests)
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newEngine(NewRateLimiter(RateLimiterConfig{}).Middleware())

	for range 10 {
		assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestTurnstileDisabledPassesThrough(t *testing.T) {
	r := newEngine(NewTurnstileMiddleware())
	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestPreflightMiddleware(t *testing.T) {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(NewPreflightMiddleware(), NewRequestIDMiddleware())
	r.NoMethod(MethodNotAllowed)
	r.POST("/vote", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := do(r, httptest.NewRequest(http.MethodOptions, "/vote", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(r, httptest.NewRequest(http.MethodPost, "/vote", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/vote", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"Method not allowed"`)
	assert.Contains(t, w.Body.String(), `"requestID"`)
}
