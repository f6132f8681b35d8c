// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Run        RunConfig           `toml:"run"`
	DefaultRun DefaultRunConfig    `toml:"default_run"`
	Timer      TimerConfig         `toml:"timer"`
	Keys       map[string][]string `toml:"keys"`
	Log        LogConfig           `toml:"log"`
	Archive    ArchiveConfig       `toml:"archive"`
}

// RunConfig maps run file settings.
type RunConfig struct {
	Path     *string `toml:"path"`
	Autosave *bool   `toml:"autosave"`
}

// DefaultRunConfig describes the run created when no run file exists.
type DefaultRunConfig struct {
	Game     *string  `toml:"game"`
	Category *string  `toml:"category"`
	Segments []string `toml:"segments"`
}

// TimerConfig maps timer settings.
type TimerConfig struct {
	Comparison *string `toml:"comparison"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
	Path   *string `toml:"path"`
}

// ArchiveConfig maps attempt archive settings.
type ArchiveConfig struct {
	Enabled *bool   `toml:"enabled"`
	Path    *string `toml:"path"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Template is written by the config command when no config file exists.
const Template = `# tsplit configuration

[run]
# path = "tsplit_splits.toml"
# autosave = true

[default_run]
# game = "Breath of the Wild"
# category = "100%"
# segments = ["Paraglider", "IST", "Vah Medoh", "Ganon", "Korok 900"]

[timer]
# comparison = "Personal Best"

[keys]
# split = ["space"]
# undo = ["u"]
# skip = ["s"]
# reset = ["r"]
# pause = ["p"]
# comparison = ["c"]
# open = ["o"]
# save = ["ctrl+s"]
# hide = ["h"]

[log]
# level = "info"
# format = "text"
# path = "~/.local/state/tsplit/tsplit.log"

[archive]
# enabled = true
# path = "~/.local/share/tsplit/archive.db"
`
