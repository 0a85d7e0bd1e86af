// Package manifest handles avm.toml interpreter configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chazu/avm1/vm"
)

// FileName is the config file FindAndLoad looks for first.
const FileName = "avm.toml"

// FileNames lists the names FindAndLoad accepts in each directory, in
// order of preference.
var FileNames = []string{FileName, "avm.yaml", "avm.yml"}

// Config represents an avm.toml (or avm.yaml) file.
type Config struct {
	VM  VMConfig  `toml:"vm" yaml:"vm"`
	Log LogConfig `toml:"log" yaml:"log"`

	// Path is the file the config was loaded from (set at load time).
	Path string `toml:"-" yaml:"-"`
}

// VMConfig configures the interpreter.
type VMConfig struct {
	Version          int    `toml:"version" yaml:"version"`
	BranchLimit      int    `toml:"branch_limit" yaml:"branch_limit"`
	RecursionLimit   int    `toml:"recursion_limit" yaml:"recursion_limit"`
	InstructionLimit int    `toml:"instruction_limit" yaml:"instruction_limit"`
	LegacyEncoding   string `toml:"legacy_encoding" yaml:"legacy_encoding"`

	// AbortOnUnload is a pointer so an explicit false survives defaulting.
	AbortOnUnload *bool `toml:"abort_on_unload" yaml:"abort_on_unload"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	File      string `toml:"file" yaml:"file"`
}

// Default returns a config holding the interpreter defaults.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	def := vm.DefaultOptions()
	if c.VM.Version <= 0 {
		c.VM.Version = def.Version
	}
	if c.VM.BranchLimit <= 0 {
		c.VM.BranchLimit = def.BranchLimit
	}
	if c.VM.RecursionLimit <= 0 {
		c.VM.RecursionLimit = def.RecursionLimit
	}
	if c.VM.InstructionLimit < 0 {
		c.VM.InstructionLimit = 0
	}
	if c.VM.LegacyEncoding == "" {
		c.VM.LegacyEncoding = def.LegacyEncoding
	}
	if c.VM.AbortOnUnload == nil {
		b := def.AbortOnUnload
		c.VM.AbortOnUnload = &b
	}
}

// Load parses a config file. Files ending in .yaml or .yml are read as
// YAML, everything else as TOML. Zero fields get defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		err = toml.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad searches startDir and its ancestors for the first directory
// holding one of FileNames and loads it. A directory with both avm.toml
// and avm.yaml uses avm.toml. It returns nil, nil when no config exists.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
				return Load(path)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Options converts the config into interpreter options.
func (c *Config) Options() vm.Options {
	opts := vm.DefaultOptions()
	opts.Version = c.VM.Version
	opts.BranchLimit = c.VM.BranchLimit
	opts.RecursionLimit = c.VM.RecursionLimit
	opts.InstructionLimit = c.VM.InstructionLimit
	opts.LegacyEncoding = c.VM.LegacyEncoding
	if c.VM.AbortOnUnload != nil {
		opts.AbortOnUnload = *c.VM.AbortOnUnload
	}
	return opts
}
