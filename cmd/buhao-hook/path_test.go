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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPathLeavesAnAbsolutePathAlone(t *testing.T) {
	got, err := getPath("/tmp/buhao/a")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/buhao/a", got)
}

func TestGetPathJoinsARelativePathAgainstCwd(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	got, err := getPath("a")
	require.NoError(t, err)

	// dir may itself contain a symlink component (e.g. /tmp -> /private/tmp
	// on macOS); getPath is purely lexical and must not resolve it.
	want := filepath.Clean(filepath.Join(dir, "a"))
	assert.Equal(t, want, got)
}

func TestGetPathCollapsesDotAndDotDot(t *testing.T) {
	got, err := getPath("/tmp/buhao/b/../a/./x")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/buhao/a/x", got)
}
