// Package config resolves where MMV files live and loads registry
// definitions from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvTmpDir names the environment variable holding the PCP temporary directory.
	EnvTmpDir = "PCP_TMP_DIR"
	// DefaultTmpDir is used when EnvTmpDir is unset or empty.
	DefaultTmpDir = "/var/tmp"
	// Subdir is the directory below the temporary directory that holds MMV files.
	Subdir = "mmv"
)

// Config carries the file system settings shared by writers and readers.
type Config struct {
	TmpDir string `yaml:"tmpdir"`
}

// FromEnv returns the configuration described by the environment.
func FromEnv() Config {
	return Config{TmpDir: os.Getenv(EnvTmpDir)}
}

// Dir returns the directory holding MMV files.
func (c Config) Dir() string {
	tmp := c.TmpDir
	if tmp == "" {
		tmp = DefaultTmpDir
	}

	return filepath.Join(tmp, Subdir)
}

// Path returns the file path for the registry called name.
func (c Config) Path(name string) string {
	return filepath.Join(c.Dir(), name)
}

// Resolve maps a registry name or an explicit path to a file path. Anything
// containing a path separator is taken as a path.
func (c Config) Resolve(nameOrPath string) string {
	if strings.ContainsRune(nameOrPath, filepath.Separator) {
		return nameOrPath
	}

	return c.Path(nameOrPath)
}

// EnsureDir creates the MMV directory if it does not exist.
func (c Config) EnsureDir() error {
	if err := os.MkdirAll(c.Dir(), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", c.Dir(), err)
	}

	return nil
}

// Merge returns c with the non-empty fields of o applied on top.
func (c Config) Merge(o Config) Config {
	if o.TmpDir != "" {
		c.TmpDir = o.TmpDir
	}

	return c
}
