package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/creachadair/atomicfile"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate")
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root and config directories if they don't exist,
// and writes the default config file if there is none.
func EnsureRoot(rootDir string) error {
	if err := os.MkdirAll(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return writeDefaultConfigFileIfNone(rootDir)
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
// This function is called by cmd/naivechain/commands/init.go
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(filepath.Join(rootDir, defaultConfigFilePath))
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all. The file is replaced atomically.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}

	if _, err := atomicfile.WriteAll(path, &buffer, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func writeDefaultConfigFileIfNone(rootDir string) error {
	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		return WriteConfigFile(rootDir, DefaultConfig())
	}
	return nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: The home directory is "$HOME/.naivechain" by default, but could be
# changed via $NCHOME env variable or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# A custom human readable name for this node
moniker = "{{ .BaseConfig.Moniker }}"

# Output level for logging: trace | debug | info | warn | error
log_level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log_format = "{{ .BaseConfig.LogFormat }}"

# Digest used to hash blocks: sha256 | keccak256
# Every node of a network must use the same algorithm.
hash_algorithm = "{{ .BaseConfig.HashAlgorithm }}"

#######################################################################
###                 Advanced Configuration Options                  ###
#######################################################################

#######################################################
###       HTTP Server Configuration Options         ###
#######################################################
[rpc]

# TCP address for the HTTP control API to listen on
laddr = "{{ .RPC.ListenAddress }}"

# A list of origins a cross-domain request can be executed from
# Default value '[]' disables cors support
# Use '["*"]' to allow any origin
cors_allowed_origins = [{{ range .RPC.CORSAllowedOrigins }}{{ printf "%q, " . }}{{end}}]

# A list of methods the client is allowed to use with cross-domain requests
cors_allowed_methods = [{{ range .RPC.CORSAllowedMethods }}{{ printf "%q, " . }}{{end}}]

# A list of non simple headers the client is allowed to use with cross-domain requests
cors_allowed_headers = [{{ range .RPC.CORSAllowedHeaders }}{{ printf "%q, " . }}{{end}}]

# Maximum size of request body, in bytes
max_body_bytes = {{ .RPC.MaxBodyBytes }}

#######################################################
###           P2P Configuration Options             ###
#######################################################
[p2p]

# Address to listen for incoming peer connections
laddr = "{{ .P2P.ListenAddress }}"

# Comma separated list of peers to dial on start
# Example: "ws://10.0.0.1:6001,ws://10.0.0.2:6001"
persistent_peers = "{{ .P2P.PersistentPeers }}"

# Maximum number of inbound connections (0 - unlimited)
max_connections = {{ .P2P.MaxConnections }}

# Number of outbound messages buffered per peer
send_queue_size = {{ .P2P.SendQueueSize }}

# Timeout for a single write to a peer
write_timeout = "{{ .P2P.WriteTimeout }}"

# Interval between keepalive pings (0 - disabled)
ping_interval = "{{ .P2P.PingInterval }}"

# Timeout for the websocket handshake
handshake_timeout = "{{ .P2P.HandshakeTimeout }}"

#######################################################
###       Instrumentation Configuration Options     ###
#######################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus_listen_addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Maximum number of simultaneous connections.
# 0 - unlimited.
max_open_connections = {{ .Instrumentation.MaxOpenConnections }}

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`

/****** these are for test settings ***********/

// ResetTestRoot creates a fresh test home under dir, writes the default
// config file into it and returns a test config rooted there.
func ResetTestRoot(dir, testName string) (*Config, error) {
	// create a unique, concurrency-safe test directory under dir
	rootDir, err := os.MkdirTemp(dir, testName+"_")
	if err != nil {
		return nil, err
	}
	if err := EnsureRoot(rootDir); err != nil {
		return nil, err
	}

	return TestConfig().SetRoot(rootDir), nil
}
