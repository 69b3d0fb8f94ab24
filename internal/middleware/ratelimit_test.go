package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/innkeep/internal/cache"
	"github.com/charlesng35/innkeep/internal/database/testutil"
)

func pingRouter(store RateStore, limit int) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(store, limit, time.Minute, nil))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func hit(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	return w
}

func TestRateLimitWithMemoryStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryRateStore()
	now := time.Now()
	store.clock = func() time.Time { return now }
	r := pingRouter(store, 2)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, hit(r).Code)
	}
	w := hit(r)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, "60", w.Header().Get("Retry-After"))

	now = now.Add(61 * time.Second)
	store.Sweep()
	require.Empty(t, store.data)
	require.Equal(t, http.StatusOK, hit(r).Code)
}

func TestRateLimitWithRedisStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := miniredis.RunT(t)
	client, err := cache.NewRedisClient(cache.RedisConfig{Address: server.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	r := pingRouter(NewRedisRateStore(client), 1)
	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r).Code)
}

func TestRateLimitWithDatabaseStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	r := pingRouter(NewDatabaseRateStore(cache.NewDatabaseStore(db)), 1)
	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r).Code)
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := pingRouter(failingStore{}, 1)
	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusOK, hit(r).Code)

	require.Equal(t, http.StatusOK, hit(pingRouter(nil, 1)).Code)
}
