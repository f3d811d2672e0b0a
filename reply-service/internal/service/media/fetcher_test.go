package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"writemystory/pkg/circuitbreaker"
)

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpegdata"))
	}))
	defer srv.Close()

	f := NewFetcher(Config{AccountSID: "AC123", AuthToken: "secret"})
	dl, err := f.Fetch(context.Background(), srv.URL+"/media/0", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", dl.ContentType)
	assert.Equal(t, []byte("jpegdata"), dl.Data)
}

func TestFetcher_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	f := NewFetcher(Config{MaxBytes: 16})
	_, err := f.Fetch(context.Background(), srv.URL, "")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetcher_BreakerOpensOnRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(Config{})
	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), srv.URL, "")
		assert.Error(t, err)
	}

	_, err := f.Fetch(context.Background(), srv.URL, "")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
	assert.Equal(t, 3, calls)
}
