package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileConfig mirrors the rendered file layout.
type fileConfig struct {
	Moniker       string `toml:"moniker"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	HashAlgorithm string `toml:"hash_algorithm"`

	RPC struct {
		ListenAddress      string   `toml:"laddr"`
		CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
		CORSAllowedMethods []string `toml:"cors_allowed_methods"`
		MaxBodyBytes       int64    `toml:"max_body_bytes"`
	} `toml:"rpc"`

	P2P struct {
		ListenAddress    string `toml:"laddr"`
		PersistentPeers  string `toml:"persistent_peers"`
		MaxConnections   int    `toml:"max_connections"`
		SendQueueSize    int    `toml:"send_queue_size"`
		WriteTimeout     string `toml:"write_timeout"`
		PingInterval     string `toml:"ping_interval"`
		HandshakeTimeout string `toml:"handshake_timeout"`
	} `toml:"p2p"`

	Instrumentation struct {
		Prometheus           bool   `toml:"prometheus"`
		PrometheusListenAddr string `toml:"prometheus_listen_addr"`
		Namespace            string `toml:"namespace"`
	} `toml:"instrumentation"`
}

func TestEnsureRoot(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, EnsureRoot(tmpDir))

	var fc fileConfig
	_, err := toml.DecodeFile(filepath.Join(tmpDir, defaultConfigFilePath), &fc)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Moniker, fc.Moniker)
	assert.Equal(t, def.LogLevel, fc.LogLevel)
	assert.Equal(t, def.HashAlgorithm, fc.HashAlgorithm)
	assert.Equal(t, def.P2P.ListenAddress, fc.P2P.ListenAddress)
	assert.Equal(t, def.RPC.ListenAddress, fc.RPC.ListenAddress)
	assert.Empty(t, fc.RPC.CORSAllowedOrigins)
	assert.Equal(t, def.RPC.CORSAllowedMethods, fc.RPC.CORSAllowedMethods)
	assert.Equal(t, "30s", fc.P2P.PingInterval)
	assert.Equal(t, def.Instrumentation.Namespace, fc.Instrumentation.Namespace)
}

func TestEnsureRootKeepsExistingConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, defaultConfigFilePath)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), defaultDirPerm))
	require.NoError(t, os.WriteFile(path, []byte(`moniker = "mine"`), 0644))

	require.NoError(t, EnsureRoot(tmpDir))

	bz, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `moniker = "mine"`, string(bz))
}

func TestWriteConfigFileRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, defaultConfigDir), defaultDirPerm))

	cfg := DefaultConfig()
	cfg.Moniker = "node0"
	cfg.HashAlgorithm = "keccak256"
	cfg.RPC.CORSAllowedOrigins = []string{"*", "http://*.example.com"}
	cfg.P2P.PersistentPeers = "ws://10.0.0.1:6001,ws://10.0.0.2:6001"
	cfg.P2P.WriteTimeout = 1500 * time.Millisecond
	cfg.Instrumentation.Prometheus = true

	require.NoError(t, WriteConfigFile(tmpDir, cfg))

	var fc fileConfig
	_, err := toml.DecodeFile(filepath.Join(tmpDir, defaultConfigFilePath), &fc)
	require.NoError(t, err)

	assert.Equal(t, "node0", fc.Moniker)
	assert.Equal(t, "keccak256", fc.HashAlgorithm)
	assert.Equal(t, cfg.RPC.CORSAllowedOrigins, fc.RPC.CORSAllowedOrigins)
	assert.Equal(t, cfg.P2P.PersistentPeers, fc.P2P.PersistentPeers)
	assert.Equal(t, "1.5s", fc.P2P.WriteTimeout)
	assert.True(t, fc.Instrumentation.Prometheus)
}

func TestResetTestRoot(t *testing.T) {
	cfg, err := ResetTestRoot(t.TempDir(), "reset")
	require.NoError(t, err)

	_, err = os.Stat(cfg.ConfigFile())
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateBasic())
}
