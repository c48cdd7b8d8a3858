// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cfg is the unmarshal target for buhaod's configuration, bound to
// both a YAML file and a set of cobra/viper flags. cmd/buhaod/main.go owns
// the cobra.Command; this package only knows the shape of the config and
// how its fields map onto flags.
package cfg

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is buhaod's top-level configuration (§6).
type Config struct {
	Root   string `yaml:"root"`
	Socket string `yaml:"socket"`

	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig selects and configures the inode store backend.
type StoreConfig struct {
	// Backend is "mem" or "bolt".
	Backend string `yaml:"backend"`

	// Path is the bbolt database file; only meaningful when Backend == "bolt".
	Path string `yaml:"path"`
}

// LogConfig mirrors internal/logger.Config, kept separate so the logger
// package doesn't need to import viper/yaml tags.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
	Path   string `yaml:"path"`
}

// Validate reports the first configuration error found, covering what
// BindFlags' defaults can't enforce on their own (§6, §7 Config layer).
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("cfg: root is required")
	}
	if c.Socket == "" {
		return fmt.Errorf("cfg: socket is required")
	}
	switch c.Store.Backend {
	case "mem", "bolt":
	default:
		return fmt.Errorf("cfg: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "bolt" && c.Store.Path == "" {
		return fmt.Errorf("cfg: store.path is required when store.backend is \"bolt\"")
	}
	return nil
}

// BindFlags registers buhaod's flags on flagSet and binds each one into
// viper under the same key Config's yaml tags use, so a config file and
// flag overrides unmarshal into the same Config.
func BindFlags(flagSet *pflag.FlagSet) error {
	bind := func(name string, bindErr *error) {
		if *bindErr != nil {
			return
		}
		*bindErr = viper.BindPFlag(name, flagSet.Lookup(name))
	}

	var err error

	flagSet.String("root", "", "Directory tree to shadow.")
	bind("root", &err)

	flagSet.String("socket", DefaultSocketPath, "Unix-domain socket to listen on.")
	bind("socket", &err)

	flagSet.String("store.backend", "mem", `Inode store backend: "mem" or "bolt".`)
	bind("store.backend", &err)

	flagSet.String("store.path", "", `Path to the bbolt database file (store.backend == "bolt").`)
	bind("store.path", &err)

	flagSet.String("log.format", "text", `Log format: "text" or "json".`)
	bind("log.format", &err)

	flagSet.String("log.level", "info", "Minimum log severity: trace, debug, info, warn, error.")
	bind("log.level", &err)

	flagSet.String("log.path", "", "Log file path; empty logs to stderr.")
	bind("log.path", &err)

	return err
}

// DefaultSocketPath is the flag default for --socket; it matches
// server.DefaultSocketPath but is restated here so cfg has no dependency on
// the server package.
const DefaultSocketPath = "/tmp/buhao.sock"
