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

// Command buhao is a reference REPL client for buhaod: it reads commands
// from stdin, one per line, and prints the daemon's response.
//
//	get <path>   ask the daemon to resolve <path>
//	refresh      ask the daemon to re-crawl (always rejected today)
//	exit         close the connection and quit
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buhao-fs/buhao/cfg"
	"github.com/buhao-fs/buhao/codec"
	"github.com/buhao-fs/buhao/internal/logger"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:   "buhao",
	Short: "Reference REPL client for buhaod",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepl(socketPath, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.Flags().StringVar(&socketPath, "socket", cfg.DefaultSocketPath, "Unix-domain socket buhaod is listening on.")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRepl(socketPath string, in *os.File, out *os.File) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("buhao: connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	c := codec.New(conn)
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command, args, _ := strings.Cut(line, " ")
		switch command {
		case "exit":
			return nil

		case "get":
			if err := handleGet(c, strings.TrimSpace(args), out); err != nil {
				logger.Errorf("get %s: %v", args, err)
			}

		case "refresh":
			if err := c.Send(uint8(codec.ActionRefresh), nil); err != nil {
				logger.Errorf("send refresh: %v", err)
				continue
			}
			printResponse(c, out)

		default:
			logger.Errorf("unknown command: %s", command)
		}
	}
	return scanner.Err()
}

func handleGet(c *codec.Codec, path string, out *os.File) error {
	if err := c.Send(uint8(codec.ActionGet), codec.GetRequest{Path: path}); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	printResponse(c, out)
	return nil
}

func printResponse(c *codec.Codec, out *os.File) {
	action, payload, err := c.Recv()
	if err != nil {
		logger.Errorf("receive response: %v", err)
		return
	}

	switch codec.ResponseAction(action) {
	case codec.ActionOk:
		fmt.Fprintf(out, "ok: %s\n", payload)
	case codec.ActionError:
		var message string
		if err := codec.Decode(payload, &message); err != nil {
			logger.Errorf("malformed error response: %v", err)
			return
		}
		fmt.Fprintf(out, "error: %s\n", message)
	default:
		logger.Errorf("unknown response action %d", action)
	}
}
