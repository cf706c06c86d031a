package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow_BlocksPastBurstSize(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 2, BurstSize: 3})

	require.True(t, rl.Allow("claimant-1"))
	require.True(t, rl.Allow("claimant-1"))
	require.True(t, rl.Allow("claimant-1"))
	assert.False(t, rl.Allow("claimant-1"), "4th call within the window should exceed burst size")
}

func TestRateLimiter_Allow_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 1, BurstSize: 1})

	require.True(t, rl.Allow("claimant-1"))
	assert.False(t, rl.Allow("claimant-1"))
	assert.True(t, rl.Allow("claimant-2"), "a different key must not be throttled by claimant-1's usage")
}

func TestPerClaimant_KeysOnIDPathVariable(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 1, BurstSize: 1})

	r := mux.NewRouter()
	r.Handle("/user/{id}", rl.PerClaimant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec1 := httptest.NewRecorder()
	r.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/user/alice", nil))
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/user/alice", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)

	rec3 := httptest.NewRecorder()
	r.ServeHTTP(rec3, httptest.NewRequest(http.MethodGet, "/user/bob", nil))
	assert.Equal(t, http.StatusOK, rec3.Code, "a different claimant's requests must not be throttled by alice's")
}

func TestPerClaimant_FallsBackToRemoteAddrWithNoIDVariable(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 1, BurstSize: 1})

	r := mux.NewRouter()
	r.Handle("/distributors", rl.PerClaimant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/distributors", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec1 := httptest.NewRecorder()
	r.ServeHTTP(rec1, req)
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}
