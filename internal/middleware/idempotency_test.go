package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func idempotencyRouter(store IdempotencyStore, calls *atomic.Int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/check", IdempotencyMiddleware(store), func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(http.StatusOK, gin.H{"call": n})
	})
	return r
}

func TestIdempotencyReplaysCachedResponse(t *testing.T) {
	var calls atomic.Int64
	r := idempotencyRouter(NewInMemIdempotencyStore(), &calls)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check", nil)
	req.Header.Set(HeaderIdempotencyKey, "key-1")
	r.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/check", nil)
	req.Header.Set(HeaderIdempotencyKey, "key-1")
	r.ServeHTTP(second, req)

	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, int64(1), calls.Load(), "handler must run once per key")
}

func TestIdempotencyDistinctKeysRunSeparately(t *testing.T) {
	var calls atomic.Int64
	r := idempotencyRouter(NewInMemIdempotencyStore(), &calls)

	for _, key := range []string{"key-1", "key-2"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/check", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}
	require.Equal(t, int64(2), calls.Load())
}

func TestIdempotencyNoKeyPassesThrough(t *testing.T) {
	var calls atomic.Int64
	r := idempotencyRouter(NewInMemIdempotencyStore(), &calls)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/check", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	require.Equal(t, int64(2), calls.Load())
}

func TestIdempotencyConcurrentRequestConflicts(t *testing.T) {
	store := NewInMemIdempotencyStore()
	var calls atomic.Int64
	r := idempotencyRouter(store, &calls)

	// Simulate an in-flight request holding the lock.
	_, hit := store.GetOrLock("anonymous:key-1")
	require.False(t, hit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check", nil)
	req.Header.Set(HeaderIdempotencyKey, "key-1")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, int64(0), calls.Load())
}

func TestIdempotencyStoreLifecycle(t *testing.T) {
	store := NewInMemIdempotencyStore()

	rec, hit := store.GetOrLock("k")
	require.False(t, hit)
	require.Nil(t, rec)

	rec, hit = store.GetOrLock("k")
	require.True(t, hit)
	require.True(t, rec.Processing)

	store.Save("k", http.StatusOK, []byte(`{"ok":true}`))
	rec, hit = store.GetOrLock("k")
	require.True(t, hit)
	require.False(t, rec.Processing)
	require.Equal(t, http.StatusOK, rec.Status)

	store.Unlock("k")
	_, hit = store.GetOrLock("k")
	require.False(t, hit)
}
