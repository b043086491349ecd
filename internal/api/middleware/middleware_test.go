package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohs25-2-misoten/agaru-up-api/shared/auth"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/videos", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodOptions, "/videos", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTraceKeepsOrGeneratesID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(Trace())
	r.GET("/", func(c *gin.Context) {
		seen = logger.GetTraceID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "abc")
	w := serve(r, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", w.Header().Get(TraceIDHeader))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "abc", seen)
	assert.Equal(t, seen, w.Header().Get(TraceIDHeader))
}

func TestAccessLogIncludesTraceID(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Trace(), AccessLog(logger.NewWriterLogger(&buf)))
	r.GET("/tags", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/tags", nil)
	req.Header.Set(TraceIDHeader, "trace-42")
	serve(r, req)

	assert.Contains(t, buf.String(), `"trace_id":"trace-42"`)
	assert.Contains(t, buf.String(), `"path":"/tags"`)
}

func TestRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.Discard()))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2, logger.Discard())
	defer limiter.Close()

	r := gin.New()
	r.POST("/report", limiter.Handler(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/report", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		codes = append(codes, serve(r, req).Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/report", nil)
	req.RemoteAddr = "198.51.100.1:5555"
	assert.Equal(t, http.StatusCreated, serve(r, req).Code)
}

func TestAuth(t *testing.T) {
	jwtService := auth.NewJWTService("secret", 1)
	var user string

	r := gin.New()
	r.POST("/report", Auth(jwtService), func(c *gin.Context) {
		user = c.GetString(ContextKeyUser)
		c.Status(http.StatusCreated)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/report", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/report", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	token, err := jwtService.GenerateToken("device-1", "taro")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/report", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusCreated, serve(r, req).Code)
	assert.Equal(t, "taro", user)
}
