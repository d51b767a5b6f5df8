package goslides

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config carries the run-directory and session context a Presentation lives
// in. The run directory holds an images/ subdirectory that is the on-disk
// form of the media pool; it must exist for the lifetime of any Presentation
// referencing it.
type Config struct {
	// RunDir is the session's working directory. When empty it is derived
	// from SessionID as runs/<session-id>.
	RunDir string `yaml:"run_dir"`

	// SessionID identifies the session. Generated when both RunDir and
	// SessionID are empty.
	SessionID string `yaml:"session_id"`

	// ConvertBinary is the external converter binary ("soffice" by default).
	ConvertBinary string `yaml:"convert_binary"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug"`

	// Logger receives parse/serialize diagnostics. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`

	// Converter overrides the external image converter. Nil selects a
	// SofficeConverter built from ConvertBinary.
	Converter Converter `yaml:"-"`
}

// NewConfig returns a Config rooted at the given run directory.
func NewConfig(runDir string) *Config {
	return &Config{RunDir: runDir}
}

// NewSessionConfig returns a Config for the given session id, rooted at
// runs/<session-id>. An empty id gets a generated one.
func NewSessionConfig(sessionID string) *Config {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Config{SessionID: sessionID}
}

// LoadConfig reads a yaml config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &c, nil
}

// defaults fills unset fields and creates the run and image directories.
func (c *Config) defaults() error {
	if c.RunDir == "" {
		if c.SessionID == "" {
			c.SessionID = uuid.NewString()
		}
		c.RunDir = filepath.Join("runs", c.SessionID)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Converter == nil {
		c.Converter = &SofficeConverter{Binary: c.ConvertBinary, Logger: c.Logger}
	}
	for _, dir := range []string{c.RunDir, c.ImageDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// ImageDir returns the media pool directory under the run directory.
func (c *Config) ImageDir() string {
	return filepath.Join(c.RunDir, "images")
}

// Remove deletes the run directory and everything under it.
func (c *Config) Remove() error {
	if c.RunDir == "" {
		return nil
	}
	return os.RemoveAll(c.RunDir)
}
