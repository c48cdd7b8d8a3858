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

package inode

import "errors"

// Resolver failure kinds (§7 of the design: Resolver layer).
var (
	// ErrUnmanaged means the path does not fall under the filesystem's root.
	ErrUnmanaged = errors.New("inode: path is not managed by this filesystem")

	// ErrInvalidPath means a path component could not be found, or a ".."
	// was requested past the root.
	ErrInvalidPath = errors.New("inode: invalid path")

	// ErrTooManyRedirections means a symlink chase exceeded RecursiveLimit.
	ErrTooManyRedirections = errors.New("inode: too many symlink redirections")
)
