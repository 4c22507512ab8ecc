package app

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Settings are the runner-level defaults read from a TOML file. Every field
// is optional; CLI flags take precedence over anything set here.
type Settings struct {
	Workers   int    `toml:"workers"`
	CacheDir  string `toml:"cache_dir"`
	WorkDir   string `toml:"work_dir"`
	Listen    string `toml:"listen"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// LoadSettings reads a TOML settings file.
func LoadSettings(path string) (*Settings, error) {
	var s Settings
	meta, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("settings %s: unknown key %q", path, undecoded[0].String())
	}
	return &s, nil
}
