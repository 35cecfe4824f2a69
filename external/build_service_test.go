package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origami/repo-data/types"
)

func TestProbeSizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.Header.Get("Accept-Encoding") == encodingGzip {
			w.Header().Set("Content-Length", "120")
		} else {
			w.Header().Set("Content-Length", "480")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewBuildServiceClient(WithBuildServiceHTTPClient(server.Client()))
	sizes, err := c.ProbeSizes(context.Background(), server.URL+"/bundles/js?modules=o-test@1.0.0", "js")
	require.NoError(t, err)
	assert.Equal(t, &BundleSizes{Raw: 480, Gzip: 120}, sizes)
}

func TestProbeSizesClassifiesStatus(t *testing.T) {
	for status, recoverable := range map[int]bool{
		http.StatusBadRequest:          false,
		http.StatusConflict:            false,
		560:                            false,
		http.StatusInternalServerError: true,
		http.StatusNotFound:            true,
	} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewBuildServiceClient(WithBuildServiceHTTPClient(server.Client()))
		_, err := c.ProbeSizes(context.Background(), server.URL+"/bundles/css?modules=o-test@1.0.0", "css")
		server.Close()

		require.Error(t, err, "status %d", status)
		assert.True(t, types.IsKind(err, types.BuildServiceError), "status %d", status)
		assert.Equal(t, recoverable, types.IsRecoverable(err), "status %d", status)
	}
}

func TestProbeSizesTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewBuildServiceClient(WithBuildServiceHTTPClient(server.Client()), WithProbeTimeout(20*time.Millisecond))
	start := time.Now()
	_, err := c.ProbeSizes(context.Background(), server.URL+"/bundles/js?modules=o-test@1.0.0", "js")
	require.Error(t, err)
	assert.True(t, types.IsRecoverable(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}
