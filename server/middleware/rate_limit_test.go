package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(5)

	for i := 0; i < 5; i++ {
		require.True(t, rl.Allow("1.2.3.4"), "request %d within burst", i)
	}
	require.False(t, rl.Allow("1.2.3.4"))

	// Another key has its own budget.
	require.True(t, rl.Allow("5.6.7.8"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(2)
	handler := rl.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	do := func(method string) int {
		req := httptest.NewRequest(method, "/api/track", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do(http.MethodPost))
	require.Equal(t, http.StatusOK, do(http.MethodPost))
	require.Equal(t, http.StatusTooManyRequests, do(http.MethodPost))

	// GET is never limited.
	require.Equal(t, http.StatusOK, do(http.MethodGet))
}
