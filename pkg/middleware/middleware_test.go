package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-dm/pkg/jwt"
)

func newAuthEngine(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager, err := jwt.NewManager(jwt.Config{Secret: "test-secret", AccessDuration: time.Minute})
	require.NoError(t, err)
	token, _, err := manager.GenerateAccessToken("u1", "alice")
	require.NoError(t, err)

	auth := NewAuthMiddleware(manager, "")
	echo := func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c)+"/"+GetUsername(c))
	}

	r := gin.New()
	r.GET("/api", auth.RequireAuth(), echo)
	r.GET("/ws", auth.RequireAuthWS(), echo)
	return r, token
}

func TestAuthMiddleware(t *testing.T) {
	engine, token := newAuthEngine(t)

	cases := []struct {
		name   string
		path   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer header", "/api", func(r *http.Request) { r.Header.Set(AuthHeaderKey, BearerPrefix+token) }, http.StatusOK},
		{"cookie", "/api", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token}) }, http.StatusOK},
		{"query on websocket route", "/ws?token=" + token, func(r *http.Request) {}, http.StatusOK},
		{"query on api route", "/api?token=" + token, func(r *http.Request) {}, http.StatusUnauthorized},
		{"malformed header", "/api", func(r *http.Request) { r.Header.Set(AuthHeaderKey, "Token "+token) }, http.StatusUnauthorized},
		{"garbage token", "/api", func(r *http.Request) { r.Header.Set(AuthHeaderKey, BearerPrefix+"garbage") }, http.StatusUnauthorized},
		{"missing", "/api", func(r *http.Request) {}, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tc.path, nil)
			tc.setup(r)
			w := httptest.NewRecorder()

			engine.ServeHTTP(w, r)

			require.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				require.Equal(t, "u1/alice", w.Body.String())
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	req := require.New(t)
	gin.SetMode(gin.TestMode)

	var deadline time.Time
	var hasDeadline bool
	r := gin.New()
	r.GET("/bounded", Timeout(time.Second), func(c *gin.Context) {
		deadline, hasDeadline = c.Request.Context().Deadline()
	})
	r.GET("/unbounded", Timeout(0), func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bounded", nil))
	req.True(hasDeadline)
	req.WithinDuration(time.Now().Add(time.Second), deadline, time.Second)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/unbounded", nil))
	req.False(hasDeadline)
}
