package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const GuestCoinsCookie = "guest_coins"

// CookieQuota stores the balance of an anonymous caller in a cookie
type CookieQuota struct {
	C      *gin.Context
	Secure bool
	MaxAge time.Duration
}

func NewCookieQuota(c *gin.Context, secure bool) *CookieQuota {
	return &CookieQuota{C: c, Secure: secure, MaxAge: 365 * 24 * time.Hour}
}

// Get returns the value written earlier in this request, if any, else the
// one the client sent
func (q *CookieQuota) Get(context.Context) (int, bool, error) {
	if v, ok := q.C.Get(GuestCoinsCookie); ok {
		return v.(int), true, nil
	}

	raw, err := q.C.Cookie(GuestCoinsCookie)
	if err != nil || raw == "" {
		return 0, false, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		// Unreadable values count as absent
		return 0, false, nil
	}

	return n, true, nil
}

func (q *CookieQuota) Set(_ context.Context, n int) error {
	q.C.Set(GuestCoinsCookie, n)
	q.write(strconv.Itoa(n), int(q.MaxAge.Seconds()))

	return nil
}

func (q *CookieQuota) write(value string, maxAge int) {
	// Only the last write of a request should reach the client
	h := q.C.Writer.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, GuestCoinsCookie+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}

	// Readable by the frontend so it can show the balance
	q.C.SetSameSite(http.SameSiteLaxMode)
	q.C.SetCookie(GuestCoinsCookie, value, maxAge, "/", "", q.Secure, false)
}
