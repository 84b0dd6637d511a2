package verifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProviderClientVerify(t *testing.T) {
	t.Run("valid provider response yields verified identity", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "profile", req["collection"])

			_ = json.NewEncoder(w).Encode(map[string]any{
				"user": map[string]any{
					"_id":    "uid-123",
					"email":  "User@Example.com",
					"avatar": "https://cdn.example.com/a.png",
				},
			})
		}))
		defer srv.Close()

		c := NewProviderClient(srv.URL, time.Second, discardLogger())
		result := c.Verify(context.Background(), "token-abc")

		assert.True(t, result.Verified)
		assert.Equal(t, "user@example.com", result.Identity)
		assert.Equal(t, "uid-123", result.UserID)
		assert.Equal(t, "https://cdn.example.com/a.png", result.AvatarURL)
	})

	t.Run("empty token short-circuits without a network call", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		c := NewProviderClient(srv.URL, time.Second, discardLogger())
		result := c.Verify(context.Background(), "")

		assert.False(t, result.Verified)
		assert.Equal(t, int32(0), calls.Load())
	})

	t.Run("provider error payload resolves unverified", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "session expired"},
			})
		}))
		defer srv.Close()

		c := NewProviderClient(srv.URL, time.Second, discardLogger())
		assert.False(t, c.Verify(context.Background(), "stale-token").Verified)
	})

	t.Run("missing user data resolves unverified", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"user": map[string]any{"_id": "uid-123", "email": "not-an-email"},
			})
		}))
		defer srv.Close()

		c := NewProviderClient(srv.URL, time.Second, discardLogger())
		assert.False(t, c.Verify(context.Background(), "token").Verified)
	})

	t.Run("transport failure resolves unverified, never panics", func(t *testing.T) {
		c := NewProviderClient("http://127.0.0.1:1", 100*time.Millisecond, discardLogger())
		assert.False(t, c.Verify(context.Background(), "token").Verified)
	})

	t.Run("concurrent verifications of one token collapse upstream", func(t *testing.T) {
		var calls atomic.Int32
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			<-release
			_ = json.NewEncoder(w).Encode(map[string]any{
				"user": map[string]any{"_id": "uid-123", "email": "a@x.com"},
			})
		}))
		defer srv.Close()

		c := NewProviderClient(srv.URL, time.Second, discardLogger())

		var wg sync.WaitGroup
		results := make([]Result, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = c.Verify(context.Background(), "shared-token")
			}(i)
		}
		// Give the goroutines time to pile onto the in-flight call.
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, r := range results {
			assert.True(t, r.Verified)
		}
	})
}

func TestFallbackIdentity(t *testing.T) {
	t.Run("asserted identity wins when valid", func(t *testing.T) {
		identity, ok := FallbackIdentity("whatever", " User@X.com ")
		require.True(t, ok)
		assert.Equal(t, "user@x.com", identity)
	})

	t.Run("falls back to credential extraction", func(t *testing.T) {
		token := base64.StdEncoding.EncodeToString([]byte("a@x.com:5f4dcc3b"))
		identity, ok := FallbackIdentity(token, "")
		require.True(t, ok)
		assert.Equal(t, "a@x.com", identity)
	})

	t.Run("rejects credential without separator", func(t *testing.T) {
		token := base64.StdEncoding.EncodeToString([]byte("a@x.com"))
		_, ok := FallbackIdentity(token, "")
		assert.False(t, ok)
	})

	t.Run("rejects non-base64 credential and bad asserted identity", func(t *testing.T) {
		_, ok := FallbackIdentity("!!!not-base64!!!", "not-an-email")
		assert.False(t, ok)
	})

	t.Run("nothing usable", func(t *testing.T) {
		_, ok := FallbackIdentity("", "")
		assert.False(t, ok)
	})
}

func TestFallbackUserID(t *testing.T) {
	id := FallbackUserID("a@x.com")
	assert.Contains(t, id, "fallback_")
	assert.Equal(t, FallbackUserID("a@x.com"), id)
	assert.NotEqual(t, FallbackUserID("b@x.com"), id)
}
