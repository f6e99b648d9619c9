// Package config holds the CLI configuration and its defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/units"
	homedir "github.com/mitchellh/go-homedir"
)

var Version = "dev"

var (
	DefaultMaxArchiveSize = "2GiB"
	DefaultModDelay       = 30 * time.Second
)

type Config struct {
	Config string `yaml:"config" mapstructure:"config" desc:"path to configuration file"`
	// Password is the primary password, a comma separated candidate
	// list, or a path to a file with one password per line.
	Password       string `yaml:"password" mapstructure:"password"`
	Output         string `yaml:"output" mapstructure:"output"`
	MaxArchiveSize string `yaml:"max_archive_size" mapstructure:"max_archive_size"`
	Registry       string `yaml:"registry" mapstructure:"registry"`
	Debug          bool   `yaml:"debug" mapstructure:"debug"`
	// ModDelay is how long a watched file must stay unchanged before it
	// is considered fully written.
	ModDelay time.Duration `yaml:"mod_delay" mapstructure:"mod_delay"`
}

// ParseMaxArchiveSize resolves the human-readable size limit ("2GiB").
func (c *Config) ParseMaxArchiveSize() (int64, error) {
	if c.MaxArchiveSize == "" {
		return 0, nil
	}
	return units.ParseStrictBytes(c.MaxArchiveSize)
}

// LoadPasswords resolves the password option into a primary password and
// the ordered candidate list retried after a failure. A file path is
// read one password per line; an inline value may be comma separated.
func LoadPasswords(input string) (primary string, candidates []string) {
	if input == "" {
		return "", nil
	}
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		raw, readErr := os.ReadFile(input)
		if readErr != nil {
			return "", nil
		}
		for _, line := range strings.Split(string(raw), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				candidates = append(candidates, line)
			}
		}
	} else if strings.Contains(input, ",") {
		for _, part := range strings.Split(input, ",") {
			if part = strings.TrimSpace(part); part != "" {
				candidates = append(candidates, part)
			}
		}
	} else {
		candidates = []string{input}
	}
	if len(candidates) > 0 {
		primary = candidates[0]
	}
	return
}

// GetConfigFile returns the default config location, creating the
// directory on first use.
func GetConfigFile() (path string, err error) {
	home, err := homedir.Dir()
	if err != nil {
		return
	}
	dir := filepath.Join(home, ".config", "stealsift")
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	path = filepath.Join(dir, "config.yaml")
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		err = os.WriteFile(path, []byte{}, 0o600)
	}
	return
}
