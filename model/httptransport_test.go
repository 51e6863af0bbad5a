package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/textann/errors"
)

func artifactServer(t *testing.T, artifacts map[string][]byte, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		data, ok := artifacts[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("ETag", `"v7"`)
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPTransportFetch(t *testing.T) {
	server := artifactServer(t, map[string][]byte{
		"/en.model": []byte("english weights"),
	}, nil)

	transport, err := NewHTTPTransport(server.URL)
	require.NoError(t, err)

	blob, err := transport.Fetch(context.Background(), English, DefaultDownloadConditions())
	require.NoError(t, err)
	assert.Equal(t, English, blob.Identifier)
	assert.Equal(t, []byte("english weights"), blob.Data)
	assert.Equal(t, `"v7"`, blob.Version)
}

func TestHTTPTransportMissingArtifact(t *testing.T) {
	server := artifactServer(t, nil, nil)

	transport, err := NewHTTPTransport(server.URL)
	require.NoError(t, err)

	_, err = transport.Fetch(context.Background(), Japanese, DefaultDownloadConditions())
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestHTTPTransportServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	transport, err := NewHTTPTransport(server.URL)
	require.NoError(t, err)

	_, err = transport.Fetch(context.Background(), English, DefaultDownloadConditions())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestHTTPTransportCache(t *testing.T) {
	var hits atomic.Int64
	server := artifactServer(t, map[string][]byte{
		"/de.model": []byte("german weights"),
	}, &hits)

	cacheDir := t.TempDir()
	transport, err := NewHTTPTransport(server.URL, WithCacheDir(cacheDir))
	require.NoError(t, err)

	blob, err := transport.Fetch(context.Background(), German, DefaultDownloadConditions())
	require.NoError(t, err)
	assert.Equal(t, []byte("german weights"), blob.Data)
	assert.EqualValues(t, 1, hits.Load())

	// Second fetch is served from disk without touching the server.
	blob, err = transport.Fetch(context.Background(), German, DefaultDownloadConditions())
	require.NoError(t, err)
	assert.Equal(t, []byte("german weights"), blob.Data)
	assert.Equal(t, "cached", blob.Version)
	assert.EqualValues(t, 1, hits.Load())

	cached, err := os.ReadFile(filepath.Join(cacheDir, "de.model"))
	require.NoError(t, err)
	assert.Equal(t, []byte("german weights"), cached)
}

func TestHTTPTransportDelete(t *testing.T) {
	var hits atomic.Int64
	server := artifactServer(t, map[string][]byte{
		"/fr.model": []byte("french weights"),
	}, &hits)

	cacheDir := t.TempDir()
	transport, err := NewHTTPTransport(server.URL, WithCacheDir(cacheDir))
	require.NoError(t, err)

	_, err = transport.Fetch(context.Background(), French, DefaultDownloadConditions())
	require.NoError(t, err)

	require.NoError(t, transport.Delete(context.Background(), French))
	_, statErr := os.Stat(filepath.Join(cacheDir, "fr.model"))
	assert.True(t, os.IsNotExist(statErr))

	// Deleting again is a no-op, and a fresh fetch hits the server.
	require.NoError(t, transport.Delete(context.Background(), French))
	_, err = transport.Fetch(context.Background(), French, DefaultDownloadConditions())
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestHTTPTransportValidation(t *testing.T) {
	_, err := NewHTTPTransport("")
	require.Error(t, err)

	server := artifactServer(t, nil, nil)
	transport, err := NewHTTPTransport(server.URL)
	require.NoError(t, err)

	_, err = transport.Fetch(context.Background(), Identifier(99), DefaultDownloadConditions())
	require.Error(t, err)
	require.Error(t, transport.Delete(context.Background(), Identifier(99)))
}
