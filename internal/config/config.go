// Package config reads the optional .rollgen.toml file that sets defaults for the
// rollgen command. Every value can still be overridden by a command-line flag.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"rollgen/internal/changelog"
	"rollgen/internal/output"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = ".rollgen.toml"

// configFile is the top-level TOML document.
type configFile struct {
	Rollback tomlRollback `toml:"rollback"`
	Output   tomlOutput   `toml:"output"`
	Audit    tomlAudit    `toml:"audit"`
}

// tomlRollback maps [rollback].
type tomlRollback struct {
	Granularity string `toml:"granularity"`
	Reverse     bool   `toml:"reverse"`
}

// tomlOutput maps [output].
type tomlOutput struct {
	InPlace *bool  `toml:"in_place"`
	Suffix  string `toml:"suffix"`
	Format  string `toml:"format"`
}

// tomlAudit maps [audit].
type tomlAudit struct {
	Enabled bool `toml:"enabled"`
}

// Config is the validated configuration.
type Config struct {
	Granularity changelog.Granularity
	Reverse     bool
	// InPlace rewrites the changelog itself. When false the result goes next to it,
	// named with Suffix.
	InPlace bool
	Suffix  string
	Format  string
	Audit   bool
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Granularity: changelog.GranularityStatement,
		InPlace:     true,
		Suffix:      ".rollback",
		Format:      "summary",
	}
}

// Options converts the rollback section into walker options.
func (c Config) Options() changelog.Options {
	return changelog.Options{Granularity: c.Granularity, Reverse: c.Reverse}
}

// Load reads path. An empty path falls back to DefaultFile, and a missing default file
// yields Default without error. A missing explicit file is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes TOML from r, applies defaults and validates the result.
func Parse(r io.Reader) (Config, error) {
	var cf configFile
	md, err := toml.NewDecoder(r).Decode(&cf)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("config: unknown keys: %s", strings.Join(keys, ", "))
	}
	return convert(&cf)
}

func convert(cf *configFile) (Config, error) {
	cfg := Default()

	g, err := changelog.ParseGranularity(cf.Rollback.Granularity)
	if err != nil {
		return Config{}, fmt.Errorf("config: rollback: %w", err)
	}
	cfg.Granularity = g
	cfg.Reverse = cf.Rollback.Reverse

	if cf.Output.InPlace != nil {
		cfg.InPlace = *cf.Output.InPlace
	}
	if s := strings.TrimSpace(cf.Output.Suffix); s != "" {
		if strings.ContainsAny(s, `/\`) {
			return Config{}, fmt.Errorf("config: output: suffix %q must not contain a path separator", s)
		}
		cfg.Suffix = s
	}
	if f := strings.TrimSpace(cf.Output.Format); f != "" {
		if _, err := output.NewFormatter(f); err != nil {
			return Config{}, fmt.Errorf("config: output: %w", err)
		}
		cfg.Format = strings.ToLower(f)
	}
	cfg.Audit = cf.Audit.Enabled

	return cfg, nil
}
