package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadToMemory(t *testing.T) {
	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("#!/bin/sh\necho hello\n"))
	}))
	defer srv.Close()

	data, err := DownloadToMemory(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\necho hello\n", string(data))
	assert.True(t, strings.HasPrefix(gotUserAgent, "LivOS "), "unexpected user agent %q", gotUserAgent)
}

func TestDownloadToMemory_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := DownloadToMemory(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestDownloadWithRetry_RecoversFromTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	data, err := DownloadWithRetry(context.Background(), srv.URL, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(2), calls.Load())
}
