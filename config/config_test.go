package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	assert := assert.New(t)

	// set up some defaults
	cfg := DefaultConfig()
	assert.NotNil(cfg.P2P)
	assert.NotNil(cfg.RPC)
	assert.NotNil(cfg.Instrumentation)

	// check the root dir stuff...
	cfg.SetRoot("/foo")
	assert.Equal("/foo", cfg.P2P.RootDir)
	assert.Equal("/foo", cfg.RPC.RootDir)
	assert.Equal("/foo/config/config.toml", cfg.ConfigFile())
}

func TestConfigValidateBasic(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ValidateBasic())

	// tamper with write_timeout
	cfg.P2P.WriteTimeout = -10 * time.Second
	err := cfg.ValidateBasic()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[p2p]")
}

func TestBaseConfigValidateBasic(t *testing.T) {
	cfg := TestBaseConfig()
	assert.NoError(t, cfg.ValidateBasic())

	// tamper with log format
	cfg.LogFormat = "invalid"
	assert.Error(t, cfg.ValidateBasic())

	cfg = TestBaseConfig()
	cfg.HashAlgorithm = "keccak256"
	assert.NoError(t, cfg.ValidateBasic())

	cfg.HashAlgorithm = "md5"
	assert.Error(t, cfg.ValidateBasic())
}

func TestRPCConfigValidateBasic(t *testing.T) {
	cfg := TestRPCConfig()
	assert.NoError(t, cfg.ValidateBasic())
	assert.False(t, cfg.IsCorsEnabled())

	cfg.CORSAllowedOrigins = []string{"*"}
	assert.True(t, cfg.IsCorsEnabled())

	cfg.MaxBodyBytes = -1
	assert.Error(t, cfg.ValidateBasic())
}

func TestP2PConfigValidateBasic(t *testing.T) {
	cfg := TestP2PConfig()
	assert.NoError(t, cfg.ValidateBasic())

	fieldsToTest := []func(*P2PConfig){
		func(c *P2PConfig) { c.ListenAddress = "" },
		func(c *P2PConfig) { c.MaxConnections = -1 },
		func(c *P2PConfig) { c.SendQueueSize = 0 },
		func(c *P2PConfig) { c.WriteTimeout = 0 },
		func(c *P2PConfig) { c.PingInterval = -time.Second },
		func(c *P2PConfig) { c.HandshakeTimeout = -time.Second },
	}

	for i, tamper := range fieldsToTest {
		cfg := TestP2PConfig()
		tamper(cfg)
		assert.Error(t, cfg.ValidateBasic(), "case %d", i)
	}
}

func TestP2PConfigPersistentPeerList(t *testing.T) {
	cfg := DefaultP2PConfig()
	assert.Empty(t, cfg.PersistentPeerList())

	cfg.PersistentPeers = "ws://a:6001, ,ws://b:6001 ,"
	assert.Equal(t, []string{"ws://a:6001", "ws://b:6001"}, cfg.PersistentPeerList())
}

func TestInstrumentationConfigValidateBasic(t *testing.T) {
	cfg := TestInstrumentationConfig()
	assert.NoError(t, cfg.ValidateBasic())

	cfg.MaxOpenConnections = -1
	assert.Error(t, cfg.ValidateBasic())

	cfg = TestInstrumentationConfig()
	cfg.Prometheus = true
	cfg.PrometheusListenAddr = ""
	assert.Error(t, cfg.ValidateBasic())
}
