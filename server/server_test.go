package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	listenErr error
	stop      chan struct{}
	shutdowns atomic.Int32
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{listenErr: listenErr, stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	if f.shutdowns.Add(1) == 1 {
		close(f.stop)
	}
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newFakeServer(nil)
	svc := NewHTTPService("api", srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.Equal(t, int32(1), srv.shutdowns.Load())
	assert.Equal(t, "api", svc.String())
}

func TestHTTPServiceListenFailure(t *testing.T) {
	listenErr := errors.New("address already in use")
	svc := NewHTTPService("", newFakeServer(listenErr), 0)

	err := svc.Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, listenErr)
	assert.Equal(t, "http-server", svc.String())
	assert.Equal(t, 10*time.Second, svc.shutdownTimeout)
}

func TestRunStopsOnCancel(t *testing.T) {
	sup := NewSupervisor("test", SupervisorConfig{ShutdownTimeout: time.Second})
	srv := newFakeServer(nil)
	sup.Add(NewHTTPService("api", srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, sup) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}
