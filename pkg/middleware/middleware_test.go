package middleware

import (
	"bitwise74/sketch-api/pkg/security"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSessions() *Sessions {
	return &Sessions{Signer: security.NewSessionSigner("test-secret", time.Hour)}
}

func sessionRouter(s *Sessions) *gin.Engine {
	r := gin.New()
	r.Use(NewRequestIDMiddleware(), NewSessionMiddleware(s))

	r.GET("/whoami", func(c *gin.Context) {
		claims, ok := SessionFrom(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"user": nil})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": claims.Subject, "userID": c.GetString("userID")})
	})
	r.GET("/private", RequireSession(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return r
}

func TestSessionMiddleware(t *testing.T) {
	s := newSessions()
	r := sessionRouter(s)

	tok, err := s.Signer.Issue(security.Identity{ID: "u1", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		setup  func(*http.Request)
		want   string
		status int
	}{
		{"anonymous", func(*http.Request) {}, "", http.StatusUnauthorized},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok}) }, "u1", http.StatusNoContent},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }, "u1", http.StatusNoContent},
		{"garbage", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "nope"}) }, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.want == "" {
				assert.Nil(t, body["user"])
			} else {
				assert.Equal(t, tt.want, body["user"])
				assert.Equal(t, tt.want, body["userID"])
			}

			req = httptest.NewRequest(http.MethodGet, "/private", nil)
			tt.setup(req)
			w = httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSessionIssueAndRefresh(t *testing.T) {
	s := newSessions()

	r := gin.New()
	r.Use(NewSessionMiddleware(s))
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, s.Issue(c, security.Identity{ID: "u1", Coins: 5}))
		c.Status(http.StatusOK)
	})
	r.POST("/spend", func(c *gin.Context) {
		s.Refresh(c, 4)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodPost, "/spend", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	refreshed := w.Result().Cookies()
	require.Len(t, refreshed, 1)

	claims, err := s.Signer.Parse(refreshed[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, 4, claims.Coins)
}

func TestCookieQuota(t *testing.T) {
	r := gin.New()
	r.POST("/spend", func(c *gin.Context) {
		q := NewCookieQuota(c, false)

		n, ok, err := q.Get(c)
		require.NoError(t, err)
		if !ok {
			n = 5
		}

		require.NoError(t, q.Set(c, n-1))
		require.NoError(t, q.Set(c, n-2))

		got, _, _ := q.Get(c)
		c.JSON(http.StatusOK, gin.H{"coins": got})
	})

	req := httptest.NewRequest(http.MethodPost, "/spend", nil)
	req.AddCookie(&http.Cookie{Name: GuestCoinsCookie, Value: "3"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.JSONEq(t, `{"coins":1}`, w.Body.String())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "1", cookies[0].Value)
	assert.False(t, cookies[0].HttpOnly)
}

func TestBodySizeLimiter(t *testing.T) {
	r := gin.New()
	r.Use(NewRequestIDMiddleware(), BodySizeLimiter(8))
	r.POST("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("way too long body")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(RateLimiterMiddleware(ctx, RateLimiterConfig{RequestsPerSecond: 1, Burst: 2}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestTurnstile(t *testing.T) {
	verify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		json.NewEncoder(w).Encode(turnstileResponse{Success: body["response"] == "good" && body["secret"] == "s3cret"})
	}))
	defer verify.Close()

	r := gin.New()
	r.Use(NewTurnstileMiddleware(TurnstileConfig{Enabled: true, Secret: "s3cret", VerifyURL: verify.URL}))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if token != "" {
			req.Header.Set("TurnstileToken", token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("good"))
	assert.Equal(t, http.StatusUnauthorized, send("bad"))
	assert.Equal(t, http.StatusBadRequest, send(""))

	off := gin.New()
	off.Use(NewTurnstileMiddleware(TurnstileConfig{}))
	off.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	off.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
