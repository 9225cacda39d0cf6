package upstreamsvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/lumiclass/teacherdir/core"
	"github.com/lumiclass/teacherdir/core/directory"
)

func newTestClient(baseURL string, timeout time.Duration) *Client {
	conf := &core.Config{}
	conf.Upstream.BaseURL = baseURL
	conf.Upstream.Timeout = timeout
	return NewClient(conf)
}

func TestClient_fetchDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teachers", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"teachers":[{"name":"Tim Chen","display_name":"Tim"},{"name":"Kim Lau"}]}`))
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL, 10*time.Second).FetchDirectory(context.Background())
	if err != nil {
		t.Fatalf("FetchDirectory() failed: %v", err)
	}
	assert.Len(t, snap.Teachers, 2)
	assert.Equal(t, directory.Teacher{Name: "Tim Chen", DisplayName: "Tim"}, snap.Teachers[0])
	assert.Equal(t, "Kim Lau", snap.Teachers[1].Display())
	assert.WithinDuration(t, time.Now().UTC(), snap.FetchedAt, time.Minute)
}

func TestClient_emptyListIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"teachers":[]}`))
	}))
	defer srv.Close()

	snap, err := newTestClient(srv.URL, 10*time.Second).FetchDirectory(context.Background())
	if err != nil {
		t.Fatalf("FetchDirectory() failed: %v", err)
	}
	assert.Empty(t, snap.Teachers)
}

func TestClient_unavailableOnBadResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"http error status",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		},
		{
			"malformed json",
			func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"teachers":`)) },
		},
		{
			"missing teachers field",
			func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"instructors":[]}`)) },
		},
		{
			"null teachers field",
			func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"teachers":null}`)) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(srv.URL, 10*time.Second).FetchDirectory(context.Background())
			assert.Equal(t, directory.ErrUpstreamUnavailable, errors.Cause(err))
		})
	}
}

func TestClient_unavailableOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestClient(srv.URL, time.Second).FetchDirectory(context.Background())
	assert.Equal(t, directory.ErrUpstreamUnavailable, errors.Cause(err))
}

func TestClient_unavailableOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"teachers":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 50*time.Millisecond).FetchDirectory(context.Background())
	assert.Equal(t, directory.ErrUpstreamUnavailable, errors.Cause(err))
}
