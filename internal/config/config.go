// Package config loads launcher settings from sightline.toml and fills in
// the defaults for everything the manifest leaves out.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the launcher looks for when no explicit config
// path is given.
const ManifestName = "sightline.toml"

// Duration is a time.Duration that decodes from TOML strings like "5s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ObserverConfig describes where and how events are streamed.
type ObserverConfig struct {
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	Encoding     string   `toml:"encoding"`
	Heartbeat    Duration `toml:"heartbeat"`
	DialTimeout  Duration `toml:"dial_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// ProjectConfig pins the project root used for relative paths.
type ProjectConfig struct {
	Root string `toml:"root"`
}

// FilterConfig restricts which files and modules get traced.
type FilterConfig struct {
	ExcludeFiles   []string `toml:"exclude_files"`
	ExcludeModules []string `toml:"exclude_modules"`
	Include        []string `toml:"include"`
}

// Config is the full launcher configuration.
type Config struct {
	Observer ObserverConfig `toml:"observer"`
	Project  ProjectConfig  `toml:"project"`
	Filter   FilterConfig   `toml:"filter"`
}

// Default returns the configuration used when no manifest exists. Synthetic
// code objects and interpreter bootstrap modules are excluded out of the box.
func Default() Config {
	return Config{
		Observer: ObserverConfig{
			Host:     "localhost",
			Port:     9876,
			Encoding: "ndjson",
		},
		Filter: FilterConfig{
			ExcludeFiles:   []string{"<string>", "<stdin>"},
			ExcludeModules: []string{"importlib", "threading", "socket"},
		},
	}
}

// Load parses a manifest file and layers it over the defaults. Keys absent
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// FindManifest walks up from startDir to locate sightline.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover resolves the effective configuration for startDir: the nearest
// manifest when one exists, defaults otherwise. A manifest without an
// explicit project root gets the manifest's own directory.
func Discover(startDir string) (Config, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	if cfg.Project.Root == "" {
		cfg.Project.Root = filepath.Dir(path)
	}
	return cfg, nil
}
