package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

const manifestName = "kestrel.toml"

const noInputsMessage = "no input documents\nplease name them explicitly, e.g.:\n  kestrel build path/to/program.yaml\nor list them under [build] inputs in " + manifestName

// projectConfig is the content of kestrel.toml. Every value is optional;
// command-line flags win over it.
type projectConfig struct {
	Build buildConfig `toml:"build"`
	Trace traceConfig `toml:"trace"`

	// path and root are set when the config came from a file.
	path string
	root string
}

type buildConfig struct {
	Inputs         []string `toml:"inputs"`
	Output         string   `toml:"output"`
	Cache          *bool    `toml:"cache"`
	CacheDir       string   `toml:"cache_dir"`
	Jobs           int      `toml:"jobs"`
	MaxDiagnostics int      `toml:"max_diagnostics"`
}

type traceConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	Output    string `toml:"output"`
	Mode      string `toml:"mode"`
	RingSize  int    `toml:"ring_size"`
	Heartbeat string `toml:"heartbeat"`
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
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

func loadProjectConfig(path string) (*projectConfig, error) {
	cfg := &projectConfig{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if cfg.Build.Jobs < 0 {
		return nil, fmt.Errorf("%s: [build] jobs must not be negative", path)
	}
	cfg.path = path
	cfg.root = filepath.Dir(path)
	return cfg, nil
}

// resolve makes a manifest-relative path absolute.
func (c *projectConfig) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.root == "" {
		return p
	}
	return filepath.Join(c.root, p)
}

// inputs returns the manifest's input documents resolved against its root.
func (c *projectConfig) inputs() []string {
	out := make([]string, len(c.Build.Inputs))
	for i, in := range c.Build.Inputs {
		out[i] = c.resolve(in)
	}
	return out
}

// loadConfig reads --config, or the nearest kestrel.toml, or returns an
// empty config when there is none.
func loadConfig(cmd *cobra.Command) (*projectConfig, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		found, ok, err := findManifest(".")
		if err != nil {
			return nil, err
		}
		if !ok {
			return &projectConfig{}, nil
		}
		path = found
	}
	return loadProjectConfig(path)
}

type configKey struct{}

func setConfig(cmd *cobra.Command, cfg *projectConfig) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
}

func configFrom(cmd *cobra.Command) *projectConfig {
	if ctx := cmd.Context(); ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(*projectConfig); ok {
			return cfg
		}
	}
	return &projectConfig{}
}
