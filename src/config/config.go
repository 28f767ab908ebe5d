package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultServerPort   = 30020
	DefaultAcceptPollMS = 500 // how often the accept loop checks for shutdown
	MinPort             = 1
	MaxPort             = 65535
)

// ServerConfig controls a session server. Zero durations mean "no timeout".
type ServerConfig struct {
	Port              int    `toml:"port"`
	BaseDir           string `toml:"base_dir"`             // directory served to clients
	AcceptPollMS      int    `toml:"accept_poll_ms"`       // listener deadline between shutdown checks
	DataDialTimeoutMS int    `toml:"data_dial_timeout_ms"` // 0 waits on the OS connect timeout
	ResolveHosts      bool   `toml:"resolve_hosts"`        // reverse-resolve peers for log lines
	JournalPath       string `toml:"journal_path"`         // empty disables the session journal
	MetricsAddr       string `toml:"metrics_addr"`         // empty disables the metrics endpoint
}

// DefaultServerConfig serves the current directory on DefaultServerPort.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         DefaultServerPort,
		BaseDir:      ".",
		AcceptPollMS: DefaultAcceptPollMS,
		ResolveHosts: true,
	}
}

// LoadServerConfig decodes path on top of DefaultServerConfig. Unknown keys
// are an error so typos do not silently fall back to defaults.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("decode %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Save writes cfg as TOML, replacing any existing file.
func (c ServerConfig) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

func (c ServerConfig) Validate() error {
	var errs []error
	if c.Port < MinPort || c.Port > MaxPort {
		errs = append(errs, fmt.Errorf("port %d outside [%d,%d]", c.Port, MinPort, MaxPort))
	}
	if c.AcceptPollMS <= 0 {
		errs = append(errs, fmt.Errorf("accept_poll_ms must be >= 1, got %d", c.AcceptPollMS))
	}
	if c.DataDialTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("data_dial_timeout_ms must be >= 0, got %d", c.DataDialTimeoutMS))
	}
	if info, err := os.Stat(c.BaseDir); err != nil {
		errs = append(errs, fmt.Errorf("base_dir: %w", err))
	} else if !info.IsDir() {
		errs = append(errs, fmt.Errorf("base_dir %s is not a directory", c.BaseDir))
	}
	return errors.Join(errs...)
}

func (c ServerConfig) AcceptPoll() time.Duration {
	return time.Duration(c.AcceptPollMS) * time.Millisecond
}

func (c ServerConfig) DataDialTimeout() time.Duration {
	return time.Duration(c.DataDialTimeoutMS) * time.Millisecond
}

// ClientConfig describes where a client reaches the server and where it
// listens for the data connection.
type ClientConfig struct {
	ServerAddr string // host:port of the control listener
	DataHost   string // local address to listen on; empty means all interfaces
	DataPort   int    // 0 picks an ephemeral port
}

func (c ClientConfig) Validate() error {
	if c.ServerAddr == "" {
		return errors.New("server address is required")
	}
	if c.DataPort < 0 || c.DataPort > MaxPort {
		return fmt.Errorf("data port %d outside [0,%d]", c.DataPort, MaxPort)
	}
	return nil
}
