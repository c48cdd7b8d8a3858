// Copyright 2015 Google Inc. All Rights Reserved.
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

// Command buhaod is the shadow filesystem daemon: it crawls (or loads from
// its store) the tree rooted at --root, then answers Get/Refresh requests
// from the hook and the reference CLI over a Unix-domain socket.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/timeutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/buhao-fs/buhao/cfg"
	"github.com/buhao-fs/buhao/inode"
	"github.com/buhao-fs/buhao/internal/logger"
	"github.com/buhao-fs/buhao/server"
	"github.com/buhao-fs/buhao/store"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	mountConfig   cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "buhaod",
	Short: "Run the buhao shadow filesystem daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := mountConfig.Validate(); err != nil {
			return err
		}
		return run(mountConfig)
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&mountConfig)
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&mountConfig)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c cfg.Config) error {
	if err := logger.Init(logger.Config{
		Format:   logger.Format(c.Log.Format),
		Level:    c.Log.Level,
		FilePath: c.Log.Path,
	}); err != nil {
		return fmt.Errorf("buhaod: initialize logger: %w", err)
	}
	log := logger.Default()

	s, err := openStore(c.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	fs, err := loadOrCrawl(c.Root, s, log)
	if err != nil {
		return err
	}

	l, err := server.Listen(c.Socket)
	if err != nil {
		return fmt.Errorf("buhaod: %w", err)
	}
	defer l.Close()

	log.Info("buhaod ready", "root", c.Root, "socket", c.Socket, "inodes", fs.Len())

	srv := server.New(fs, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(l) }()

	select {
	case err := <-serveErr:
		return fmt.Errorf("buhaod: serve: %w", err)
	case <-sig:
		log.Info("shutting down")
		return nil
	}
}

// openStore constructs the configured Store backend (§6 "store" config).
func openStore(c cfg.StoreConfig) (store.Store, error) {
	switch c.Backend {
	case "bolt":
		s, err := store.OpenBoltStore(c.Path)
		if err != nil {
			return nil, fmt.Errorf("buhaod: open store: %w", err)
		}
		return s, nil
	default:
		return store.NewMemStore(), nil
	}
}

// loadOrCrawl tries to rebuild the shadow tree from s before falling back to
// a fresh crawl of the real filesystem, persisting the crawl's result into s
// either way so the next restart can skip it.
func loadOrCrawl(rootPath string, s store.Store, log *slog.Logger) (*inode.Filesystem, error) {
	root, err := inode.RootInodeId(rootPath)
	if err != nil {
		return nil, fmt.Errorf("buhaod: stat root %s: %w", rootPath, err)
	}

	if fs, ok, err := store.Load(s, rootPath, root); err != nil {
		return nil, fmt.Errorf("buhaod: load store: %w", err)
	} else if ok {
		log.Info("loaded shadow tree from store", "root", rootPath)
		return fs, nil
	}

	log.Info("crawling filesystem", "root", rootPath)
	fs, err := inode.Crawl(rootPath, log, timeutil.RealClock())
	if err != nil {
		return nil, fmt.Errorf("buhaod: crawl %s: %w", rootPath, err)
	}

	if err := store.Persist(s, fs); err != nil {
		return nil, fmt.Errorf("buhaod: persist crawl: %w", err)
	}
	return fs, nil
}
