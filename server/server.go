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

// Package server implements the daemon side of the protocol: accepting
// connections on a Unix-domain socket and answering framed requests against
// a shadow Filesystem.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/jacobsa/reqtrace"

	"github.com/buhao-fs/buhao/codec"
	"github.com/buhao-fs/buhao/inode"
)

// ErrRefreshUnsupported is returned to a client that sends a Refresh
// request; invalidating and re-crawling the managed subtree is out of scope
// here (§4.3).
var ErrRefreshUnsupported = errors.New("server: refresh is not supported")

// Server answers Get/Refresh requests against a single Filesystem. The
// filesystem's own lock serializes lookups across connections; Server holds
// no additional state of its own.
type Server struct {
	fs     *inode.Filesystem
	logger *slog.Logger
}

// New returns a Server that answers from fs, logging via logger (or
// slog.Default if nil).
func New(fs *inode.Filesystem, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{fs: fs, logger: logger}
}

// Serve accepts connections from l until it returns an error (typically
// because l was closed), handling each on its own goroutine. It never
// returns nil; callers that close l deliberately should ignore the
// resulting error.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return fmt.Errorf("server: accept: %w", err)
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	c := codec.New(conn)
	for {
		if err := s.handleOne(c); err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Warn("connection terminated", "error", err)
			}
			return
		}
	}
}

func (s *Server) handleOne(c *codec.Codec) error {
	action, payload, err := c.Recv()
	if err != nil {
		return err
	}

	_, report := reqtrace.StartSpan(context.Background(), codec.RequestAction(action).String())

	var opErr error
	switch codec.RequestAction(action) {
	case codec.ActionGet:
		opErr = s.handleGet(c, payload)
	case codec.ActionRefresh:
		opErr = s.sendError(c, ErrRefreshUnsupported)
	default:
		opErr = fmt.Errorf("server: unknown request action %d", action)
	}

	report(opErr)
	return opErr
}

func (s *Server) handleGet(c *codec.Codec, payload []byte) error {
	var req codec.GetRequest
	if err := codec.Decode(payload, &req); err != nil {
		return s.sendError(c, err)
	}

	in, err := s.fs.Open(req.Path)
	if err != nil {
		return s.sendError(c, err)
	}

	return c.Send(uint8(codec.ActionOk), in)
}

func (s *Server) sendError(c *codec.Codec, cause error) error {
	s.logger.Debug("request failed", "error", cause)
	return c.Send(uint8(codec.ActionError), cause.Error())
}
