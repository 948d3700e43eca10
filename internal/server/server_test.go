package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axoncore/axoncore/internal/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_RunStopsBackgroundJobs(t *testing.T) {
	port := freePort(t)
	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: port}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	started := make(chan struct{})
	stopped := make(chan struct{})
	job := func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(stopped)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, job) }()

	<-started
	addr := "http://127.0.0.1:" + strconv.Itoa(port)
	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get(addr)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	select {
	case <-stopped:
	default:
		t.Fatal("background job still running after Run returned")
	}
}

func TestServer_RunReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: l.Addr().(*net.TCPAddr).Port}, http.NotFoundHandler())
	err = srv.Run(context.Background())
	assert.Error(t, err)
}

func TestNew_WriteTimeoutFromConfig(t *testing.T) {
	h := http.NotFoundHandler()

	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, h)
	assert.Equal(t, config.DefaultWriteTimeout, srv.httpServer.WriteTimeout)

	srv = New(config.ServerConfig{Host: "127.0.0.1", Port: 8080, WriteTimeout: 105 * time.Second}, h)
	assert.Equal(t, 105*time.Second, srv.httpServer.WriteTimeout)
}
