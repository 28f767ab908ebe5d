package logcfg

import (
	"os"

	logs "github.com/danmuck/smplog"
)

const envConfigPath = "SMPLOG_CONFIG"

// Load resolves the smplog configuration. An explicit path wins, then the
// SMPLOG_CONFIG environment variable, then the well-known local files.
// Defaults are used when none of them can be read.
func Load(path string) logs.Config {
	if path != "" {
		if cfg, err := logs.ConfigFromFile(path); err == nil {
			return cfg
		}
	}

	if env := os.Getenv(envConfigPath); env != "" {
		if cfg, err := logs.ConfigFromFile(env); err == nil {
			return cfg
		}
	}

	candidates := []string{
		"./smplog.config.toml",
		"./local/smplog.config.toml",
	}

	for _, candidate := range candidates {
		if cfg, err := logs.ConfigFromFile(candidate); err == nil {
			return cfg
		}
	}

	return logs.DefaultConfig()
}
