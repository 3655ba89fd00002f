package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_LocalPathPassesThrough(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "parts.csv")
	got, cleanup, err := Fetch(context.Background(), path, FetchOptions{})
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, path, got)
}

func TestFetch_HTTPDownloadKeepsExtension(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exports/parts.csv", r.URL.Path)
		w.Write([]byte("MFG,MFG_PN\nVishay,CRCW0603\n"))
	}))
	defer srv.Close()

	path, cleanup, err := Fetch(context.Background(), srv.URL+"/exports/parts.csv", FetchOptions{})
	require.NoError(t, err)
	defer cleanup()

	assert.True(t, strings.HasSuffix(path, ".csv"), "temp file keeps the remote extension")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CRCW0603")

	cleanup()
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "cleanup removes the temp file")
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	path, cleanup, err := Fetch(context.Background(), srv.URL+"/parts.csv", FetchOptions{})
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, int32(2), calls.Load())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestFetch_NotFoundFailsWithoutRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, _, err := Fetch(context.Background(), srv.URL+"/gone.csv", FetchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	_, _, err := Fetch(context.Background(), "sftp://host/parts.csv", FetchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported source scheme")
}

func TestFetch_WindowsDrivePath(t *testing.T) {
	t.Parallel()

	got, cleanup, err := Fetch(context.Background(), `C:\exports\parts.csv`, FetchOptions{})
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, `C:\exports\parts.csv`, got)
}

func TestRemoteSource(t *testing.T) {
	t.Parallel()

	assert.True(t, RemoteSource("http://host/a.csv"))
	assert.True(t, RemoteSource("https://host/a.xlsx"))
	assert.True(t, RemoteSource("ftp://host/a.db"))
	assert.False(t, RemoteSource("/data/a.csv"))
	assert.False(t, RemoteSource("a.csv"))
}

func TestFetchOptions_Defaults(t *testing.T) {
	t.Parallel()

	o := FetchOptions{}.withDefaults()
	assert.Equal(t, "partmatch-cli/1.0", o.UserAgent)
	assert.Equal(t, 3, o.Retries)
	assert.NotZero(t, o.Timeout)
}
