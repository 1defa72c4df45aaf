package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	logger, hook := test.NewNullLogger()
	server := &http.Server{Addr: "127.0.0.1:0"}
	sm := NewShutdownManager(logger, time.Second, server)

	var order []string
	for _, name := range []string{"store", "cache", "scheduler"} {
		sm.Register(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, []string{"scheduler", "cache", "store"}, order)
	assert.Equal(t, "Graceful shutdown complete", hook.LastEntry().Message)
}

func TestShutdownManager_ContinuesAfterFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sm := NewShutdownManager(logger, time.Second)

	closeErr := errors.New("close failed")
	var storeClosed bool
	sm.Register("store", func(ctx context.Context) error {
		storeClosed = true
		return nil
	})
	sm.Register("cache", func(ctx context.Context) error { return closeErr })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, closeErr)
	assert.Contains(t, err.Error(), "cache: close failed")
	assert.True(t, storeClosed)
}

func TestShutdownManager_Deadline(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sm := NewShutdownManager(logger, 20*time.Millisecond)

	var storeClosed bool
	sm.Register("store", func(ctx context.Context) error {
		storeClosed = true
		return nil
	})
	sm.Register("scheduler", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, storeClosed)
}

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sm := NewShutdownManager(logger, 0)
	assert.Equal(t, 30*time.Second, sm.timeout)
}

func TestShutdownManager_AddServersDrainedBeforeSteps(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sm := NewShutdownManager(logger, time.Second)

	var storeClosed bool
	sm.Register("store", func(ctx context.Context) error {
		storeClosed = true
		return nil
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := &http.Server{Addr: listener.Addr().String(), Handler: http.NotFoundHandler()}
	served := make(chan error, 1)
	go func() { served <- server.Serve(listener) }()
	sm.AddServers(server)

	require.NoError(t, sm.Shutdown())
	assert.ErrorIs(t, <-served, http.ErrServerClosed)
	assert.True(t, storeClosed)
}
