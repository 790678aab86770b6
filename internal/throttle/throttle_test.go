package throttle

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacentricdesign/profile-api/internal/config"
)

func TestAllow(t *testing.T) {
	l := New(config.Throttle{Rate: 0.001, Burst: 2})

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per key")
}

func TestDefaults(t *testing.T) {
	l := New(config.Throttle{})

	assert.InDelta(t, defaultRate, float64(l.limit), 0)
	assert.Equal(t, defaultBurst, l.burst)
}

func TestExpiredBucketIsRefilled(t *testing.T) {
	l := New(config.Throttle{Rate: 0.001, Burst: 1, TTL: 50 * time.Millisecond})

	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	assert.Eventually(t, func() bool { return l.buckets.Len() == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, l.Allow("a"))
}

func TestMiddleware(t *testing.T) {
	l := New(config.Throttle{Rate: 0.001, Burst: 1})

	calls := 0
	app := fiber.New()
	app.Post("/signin", l.Middleware(), func(c *fiber.Ctx) error {
		calls++
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/signin", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/signin", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 1, calls)
}
