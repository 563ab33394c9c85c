package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strada-framework/strada/types"
)

func testConfig() *types.ServiceConfig {
	return &types.ServiceConfig{
		Name:    "strada-test",
		Version: "0.0.1",
		Server: &types.ServerConfig{
			HTTP: &types.HTTPConfig{Host: "127.0.0.1", Port: 0},
		},
		Logger: &types.LoggerConfig{Level: "error"},
	}
}

func pingRoute() types.Declaration {
	return types.Declaration{
		Method:  "GET",
		Pattern: "/ping",
		Handler: func(ctx context.Context, rc *types.RequestContext) (*types.Response, error) {
			return types.NewResponse(200, []byte("pong")), nil
		},
	}
}

func TestService_StartStop(t *testing.T) {
	svc, err := NewService(context.Background(), "")
	require.Error(t, err, "missing config file must fail")
	require.Nil(t, svc)

	svc, err = NewServiceWithConfig(context.Background(), testConfig())
	require.NoError(t, err)

	svc.AddRoute(pingRoute())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Start() }()

	require.Eventually(t, svc.IsRunning, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop())

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not shut down")
	}

	assert.False(t, svc.IsRunning())
}

func TestService_BadRouteFailsStart(t *testing.T) {
	svc, err := NewServiceWithConfig(context.Background(), testConfig())
	require.NoError(t, err)

	svc.AddRoute(types.Declaration{
		Method:  "GET",
		Pattern: "/files/[...]/tail",
		Handler: func(ctx context.Context, rc *types.RequestContext) (*types.Response, error) {
			return types.NewResponse(200, nil), nil
		},
	})

	err = svc.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRouteLoadFailed)
}

func TestService_StopWhenNotRunning(t *testing.T) {
	svc, err := NewServiceWithConfig(context.Background(), testConfig())
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Stop(), types.ErrServerNotRunning)
}
