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

package logger

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/suite"
)

var (
	textSeverityLine = regexp.MustCompile(`severity=(\w+)`)
	jsonSeverityLine = regexp.MustCompile(`"severity":"(\w+)"`)
)

type LoggerTest struct {
	suite.Suite
	path string
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func (s *LoggerTest) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "buhaod.log")
}

func (s *LoggerTest) readLines() []string {
	data, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	var lines []string
	for _, l := range splitNonEmptyLines(string(data)) {
		lines = append(lines, l)
	}
	return lines
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func (s *LoggerTest) TestTextFormatUsesTheSeverityKeyNotLevel() {
	s.Require().NoError(Init(Config{Format: FormatText, Level: "debug", FilePath: s.path}))
	Infof("hello %s", "world")

	lines := s.readLines()
	s.Require().Len(lines, 1)
	s.Contains(lines[0], `message="hello world"`)
	m := textSeverityLine.FindStringSubmatch(lines[0])
	s.Require().NotNil(m)
	s.Equal("INFO", m[1])
}

func (s *LoggerTest) TestJsonFormatUsesTheSeverityKey() {
	s.Require().NoError(Init(Config{Format: FormatJSON, Level: "debug", FilePath: s.path}))
	Errorf("boom")

	lines := s.readLines()
	s.Require().Len(lines, 1)
	m := jsonSeverityLine.FindStringSubmatch(lines[0])
	s.Require().NotNil(m)
	s.Equal("ERROR", m[1])
}

func (s *LoggerTest) TestTraceIsBelowDebugAndSuppressedByDefault() {
	s.Require().NoError(Init(Config{Format: FormatText, Level: "info", FilePath: s.path}))
	Tracef("should not appear")
	Debugf("should not appear either")
	Infof("this one should")

	lines := s.readLines()
	s.Require().Len(lines, 1)
	s.Contains(lines[0], "this one should")
}

func (s *LoggerTest) TestTraceLevelEnablesAllFiveSeverities() {
	s.Require().NoError(Init(Config{Format: FormatText, Level: "trace", FilePath: s.path}))
	Tracef("t")
	Debugf("d")
	Infof("i")
	Warnf("w")
	Errorf("e")

	lines := s.readLines()
	s.Require().Len(lines, 5)
	wantSeverities := []string{"TRACE", "DEBUG", "INFO", "WARNING", "ERROR"}
	for i, line := range lines {
		m := textSeverityLine.FindStringSubmatch(line)
		s.Require().NotNil(m)
		s.Equal(wantSeverities[i], m[1])
	}
}
