package server

import (
	"context"
	"testing"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.LogLevel = "error"
	return c
}

func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.db)
	assert.NotNil(t, app.userService)
}

func TestNewApp_MemoryRevocation(t *testing.T) {
	c := memoryConfig()
	c.RevocationStore = config.RevocationMemory

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	app.Close()
}

func TestNewApp_UnknownRevocationStore(t *testing.T) {
	c := memoryConfig()
	c.RevocationStore = "etcd"

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "unknown revocation store")
}

func TestRun_StopsWithContext(t *testing.T) {
	c := memoryConfig()
	c.EndpointAddr = "127.0.0.1:0"
	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, app.Run(ctx))
}
