/*
Copyright 2016 The sbctgt Authors All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the named-target configuration the "serve"
// command builds its block devices from: either a single leaf or a
// striped composition over N leaves (spec §6 CLI wiring). It is grounded
// on gotgt's pkg/config/config.go shape, reworked onto viper so the
// config file format (JSON/YAML/TOML) is negotiated rather than fixed,
// and onto go-homedir for the default config directory instead of
// gotgt's hand-rolled pkg/homedir.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/gostor/sbctgt/pkg/device"
	"github.com/gostor/sbctgt/pkg/striped"
)

// ConfigFileName is the base name Load/Save look for, without extension
// (viper resolves the extension against whatever format is present).
const ConfigFileName = "config"

var configDir = os.Getenv("SBCTGT_CONFIG")

func init() {
	if configDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			home = "."
		}
		configDir = filepath.Join(home, ".sbctgt")
	}
}

// ConfigDir returns the directory the configuration file lives in.
func ConfigDir() string {
	return configDir
}

// Leaf describes one leaf block device: a memory store (for tests and
// ephemeral targets) or a file-backed store.
type Leaf struct {
	Type      string `mapstructure:"type" json:"type"` // "memory" or "file"
	Path      string `mapstructure:"path" json:"path"`
	BlockSize uint32 `mapstructure:"block_size" json:"block_size"`
	// BlockCount is required for memory leaves; for file leaves it is
	// derived from the backing file's size on Open.
	BlockCount uint64 `mapstructure:"block_count" json:"block_count"`
}

// Target names one exported logical unit: a single leaf, or N leaves
// composed as a striped (RAID-0) device (spec §4.3).
type Target struct {
	Name   string `mapstructure:"name" json:"name"`
	Leaves []Leaf `mapstructure:"leaves" json:"leaves"`
}

// Config is the full set of configured targets.
type Config struct {
	Targets map[string]Target `mapstructure:"targets" json:"targets"`
}

// Load reads the configuration from dir (ConfigDir() if empty). A
// missing file is not an error: Load returns an empty Config, mirroring
// gotgt's "no config file yet" tolerance.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = ConfigDir()
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.AddConfigPath(dir)
	v.SetDefault("targets", map[string]interface{}{})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return &Config{Targets: make(map[string]Target)}, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", dir, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", dir, err)
	}
	if cfg.Targets == nil {
		cfg.Targets = make(map[string]Target)
	}
	return cfg, nil
}

// Save writes cfg as JSON to dir/config.json.
func (cfg *Config) Save(dir string) error {
	if dir == "" {
		dir = ConfigDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	v := viper.New()
	v.Set("targets", cfg.Targets)
	v.SetConfigType("json")
	return v.WriteConfigAs(filepath.Join(dir, ConfigFileName+".json"))
}

// BuildDevice constructs the block device a Target describes: the lone
// leaf directly, or a *striped.Device fanned out over every leaf when
// there is more than one (spec §4.3). It does not Open the device.
func (t Target) BuildDevice() (device.BlockDevice, error) {
	if len(t.Leaves) == 0 {
		return nil, fmt.Errorf("config: target %q has no leaves", t.Name)
	}
	devs := make([]device.BlockDevice, len(t.Leaves))
	for i, l := range t.Leaves {
		d, err := l.build(fmt.Sprintf("%s/%d", t.Name, i))
		if err != nil {
			return nil, err
		}
		devs[i] = d
	}
	if len(devs) == 1 {
		return devs[0], nil
	}
	return striped.New(devs...), nil
}

func (l Leaf) build(name string) (device.BlockDevice, error) {
	switch l.Type {
	case "", "memory":
		if l.BlockSize == 0 || l.BlockCount == 0 {
			return nil, fmt.Errorf("config: leaf %q needs block_size and block_count", name)
		}
		return device.NewMemoryDevice(name, l.BlockSize, l.BlockCount), nil
	case "file":
		if l.Path == "" || l.BlockSize == 0 {
			return nil, fmt.Errorf("config: leaf %q needs path and block_size", name)
		}
		return device.NewFileDevice(name, l.Path, l.BlockSize), nil
	default:
		return nil, fmt.Errorf("config: leaf %q has unknown type %q", name, l.Type)
	}
}
