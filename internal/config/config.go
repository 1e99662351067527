// Package config loads the optional .mdtablefix.toml project file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project configuration file.
const FileName = ".mdtablefix.toml"

// Config is the decoded project configuration. Zero values mean "use the default".
type Config struct {
	Files FilesConfig `toml:"files"`
	Run   RunConfig   `toml:"run"`
}

// FilesConfig controls file selection.
type FilesConfig struct {
	// Extensions picked up when walking directories, e.g. ".md".
	Extensions []string `toml:"extensions"`
	// Exclude lists directory names skipped wherever they appear in a path.
	// node_modules is skipped even when it is not listed.
	Exclude []string `toml:"exclude"`
}

// RunConfig controls how the fix pass executes.
type RunConfig struct {
	Jobs  int64 `toml:"jobs"`
	Cache bool  `toml:"cache"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Files: FilesConfig{
			Extensions: []string{".md"},
			Exclude:    []string{"node_modules"},
		},
		Run: RunConfig{Jobs: 1},
	}
}

// Find walks up from startDir to locate FileName.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
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

// Load decodes the file at path on top of Default. Keys that are absent keep
// their default value; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and normalizes extensions to a leading dot.
func (c *Config) Validate() error {
	if len(c.Files.Extensions) == 0 {
		return errors.New("[files].extensions must not be empty")
	}
	for i, ext := range c.Files.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" || ext == "." {
			return fmt.Errorf("[files].extensions[%d] is empty", i)
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Files.Extensions[i] = ext
	}
	for i, name := range c.Files.Exclude {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("[files].exclude[%d] must be a single directory name, got %q", i, name)
		}
	}
	if c.Run.Jobs < 0 {
		return fmt.Errorf("[run].jobs must be >= 0, got %d", c.Run.Jobs)
	}
	return nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	if _, err := io.WriteString(w, "# mdtablefix configuration\n"); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(cfg)
}
