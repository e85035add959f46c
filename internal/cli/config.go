package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/snapcheck/store"
)

// DefaultConfigFile is read from the working directory when present.
const DefaultConfigFile = ".snapcheck.yaml"

const defaultStore = store.DefaultDir

// Config is the optional project configuration:
//
//	store: testdata/__snapshots__
//	context: 3
type Config struct {
	// Store is a snapshot directory or a SQLite database path.
	Store string `yaml:"store"`

	// Context is the number of unchanged lines shown around each change
	// in diff output.
	Context int `yaml:"context"`
}

// LoadConfig reads path. A missing file yields the zero Config.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Context < 0 {
		return cfg, fmt.Errorf("parse %s: context must not be negative", path)
	}
	return cfg, nil
}
