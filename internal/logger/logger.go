// Copyright 2023 Google Inc. All Rights Reserved.
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

// Package logger provides the structured logger used by buhaod and the
// reference CLI client. It wraps log/slog with a "severity" field (rather
// than slog's default "level") and an optional extra TRACE level below
// Debug, rotated to disk via lumberjack when a file path is configured.
//
// The hook (cmd/buhao-hook) must never write to stdout or stderr by
// default — those streams belong to the host process it's loaded into — so
// its entry point is the one place in this module that leaves logger
// unconfigured (or points it only at a file).
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Custom levels, spaced the way slog's own Debug/Info/Warn/Error are so
// slog.Leveler comparisons keep working.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the on-disk/console representation.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config controls Init.
type Config struct {
	Format Format
	Level  string // "trace", "debug", "info", "warn", "error"

	// FilePath, if non-empty, routes output through a rotating lumberjack
	// writer instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	programLevel = new(slog.LevelVar)
	defaultLogger *slog.Logger = slog.New(newHandler(os.Stderr, programLevel, FormatText))
)

// Init reconfigures the package-level logger. Safe to call more than once
// (e.g. after config reload); not safe for concurrent use with the logging
// functions below.
func Init(cfg Config) error {
	var out io.Writer = os.Stderr
	if cfg.FilePath != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
	}

	format := cfg.Format
	if format == "" {
		format = FormatText
	}

	setLevel(cfg.Level)
	defaultLogger = slog.New(newHandler(out, programLevel, format))
	return nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func setLevel(level string) {
	switch strings.ToLower(level) {
	case "trace":
		programLevel.Set(LevelTrace)
	case "debug":
		programLevel.Set(LevelDebug)
	case "warn", "warning":
		programLevel.Set(LevelWarn)
	case "error":
		programLevel.Set(LevelError)
	default:
		programLevel.Set(LevelInfo)
	}
}

func newHandler(w io.Writer, level slog.Leveler, format Format) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// replaceAttr renames slog's "level"/"msg" keys to "severity"/"message"
// (matching buhao's existing log convention, itself the Cloud Logging
// structured-payload field names) and spells TRACE out, since slog.Level has
// no built-in name below Debug.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		level := a.Value.Any().(slog.Level)
		a.Key = "severity"
		a.Value = slog.StringValue(severityName(level))
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

func severityName(l slog.Level) string {
	switch {
	case l < LevelDebug:
		return "TRACE"
	case l < LevelInfo:
		return "DEBUG"
	case l < LevelWarn:
		return "INFO"
	case l < LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

// Default returns the package-level logger, for components (server,
// hookmanager) that accept a *slog.Logger dependency.
func Default() *slog.Logger { return defaultLogger }

func logf(level slog.Level, format string, args ...any) {
	if !defaultLogger.Enabled(context.Background(), level) {
		return
	}
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func Tracef(format string, args ...any) { logf(LevelTrace, format, args...) }
func Debugf(format string, args ...any) { logf(LevelDebug, format, args...) }
func Infof(format string, args ...any)  { logf(LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { logf(LevelWarn, format, args...) }
func Errorf(format string, args ...any) { logf(LevelError, format, args...) }
