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

import (
	"fmt"
	"strings"
)

// RecursiveLimit bounds the total number of symlink hops chased while
// resolving a single path (§3, §4.1).
const RecursiveLimit = 10

// Open resolves path against the filesystem rooted at fs.Root and returns a
// snapshot of the resulting inode (§4.1).
//
// Absolute paths are stripped of the configured RootPath prefix; relative
// paths are walked starting at the root. Both forms share the same walker,
// which is also used internally to chase symlink targets.
func (fs *Filesystem) Open(path string) (Inode, error) {
	comps, err := fs.relativeComponents(path)
	if err != nil {
		return Inode{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	hops := 0
	in, _, err := fs.walkLocked(fs.Root, comps, &hops)
	return in, err
}

// relativeComponents strips the managed root from an absolute path (failing
// Unmanaged if it doesn't start with the root) or splits a relative path
// as-is, per §4.1 step 1.
func (fs *Filesystem) relativeComponents(path string) ([]string, error) {
	if !strings.HasPrefix(path, "/") {
		return splitComponents(path), nil
	}

	if path == fs.RootPath {
		return nil, nil
	}

	prefix := fs.RootPath
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	if !strings.HasPrefix(path, prefix) {
		return nil, fmt.Errorf("%w: %s", ErrUnmanaged, path)
	}

	return splitComponents(strings.TrimPrefix(path, prefix)), nil
}

// splitComponents breaks a slash-separated relative path into components.
// Empty components (from a leading, trailing, or doubled "/") and "."
// collapse to no-ops during the walk, matching RootDir/CurDir handling;
// ".." is ParentDir; anything else is Normal(name). This system is
// Unix-only, so there is no Prefix (drive-letter) component to reject.
func splitComponents(path string) []string {
	return strings.Split(path, "/")
}

// walkLocked performs the component walk described in §4.1, threading hops
// (the running count of symlink redirections for the whole Open call)
// through any nested resolution it triggers. Callers must hold fs.mu (the
// walk never mutates the map, but syncutil.InvariantMutex has no read mode).
//
// It returns the resulting inode and the id of the directory that contains
// it, the latter being what a caller needs to resolve a further relative
// symlink target should the result itself turn out to be a symlink.
func (fs *Filesystem) walkLocked(start InodeId, comps []string, hops *int) (Inode, InodeId, error) {
	current, ok := fs.lookup(start)
	if !ok {
		return Inode{}, 0, fmt.Errorf("%w: starting inode %d missing", ErrInvalidPath, start)
	}

	// lastDir is the id of the directory whose children produced `current`,
	// used to resolve a relative symlink target if `current` turns out to be
	// a symlink at the top of the next iteration.
	lastDir := start

	for _, comp := range comps {
		if current.IsSymlink() {
			resolved, dir, err := fs.chaseSymlink(current, lastDir, hops)
			if err != nil {
				return Inode{}, 0, err
			}
			current, lastDir = resolved, dir
		}

		switch comp {
		case "", ".":
			continue

		case "..":
			if !current.IsDir() {
				return Inode{}, 0, fmt.Errorf("%w: %q is not a directory", ErrInvalidPath, comp)
			}
			parent := current.Contents.Directory.Parent
			if parent == InvalidParent {
				return Inode{}, 0, fmt.Errorf("%w: cannot ascend above root", ErrInvalidPath)
			}
			next, ok := fs.lookup(parent)
			if !ok {
				return Inode{}, 0, fmt.Errorf("%w: parent inode %d missing", ErrInvalidPath, parent)
			}
			lastDir = current.Id
			current = next

		default:
			if !current.IsDir() {
				return Inode{}, 0, fmt.Errorf("%w: %q is not a directory", ErrInvalidPath, comp)
			}
			child, found := findChild(current.Contents.Directory, comp)
			if !found {
				return Inode{}, 0, fmt.Errorf("%w: no such entry %q", ErrInvalidPath, comp)
			}
			next, ok := fs.lookup(child.Inode)
			if !ok {
				return Inode{}, 0, fmt.Errorf("%w: child inode %d missing", ErrInvalidPath, child.Inode)
			}
			// The directory we just scanned is the containing directory of
			// whatever we found, which matters if it turns out to be a
			// symlink at the top of the next iteration.
			lastDir = current.Id
			current = next
		}
	}

	return current, lastDir, nil
}

// findChild scans dir.Children in order for the first entry named name,
// matching exact byte-wise comparison (§4.1 "Tie-breaks").
func findChild(dir *DirectoryContents, name string) (DirectoryItem, bool) {
	for _, item := range dir.Children {
		if item.Name == name {
			return item, true
		}
	}
	return DirectoryItem{}, false
}

// chaseSymlink resolves a symlink encountered as a non-terminal path
// component (§4.1, §9 "Symlink semantics split across layers") all the way
// down to a non-symlink, since the caller needs a concrete inode to keep
// walking through. An absolute target is resolved the same way a top-level
// Open would be; a relative target is resolved against containingDir, the
// directory the symlink was found in.
func (fs *Filesystem) chaseSymlink(symlink Inode, containingDir InodeId, hops *int) (Inode, InodeId, error) {
	for {
		if *hops >= RecursiveLimit {
			return Inode{}, 0, ErrTooManyRedirections
		}
		*hops++

		target := symlink.Contents.Target

		var (
			resolved Inode
			dir      InodeId
			err      error
		)
		if strings.HasPrefix(target, "/") {
			var comps []string
			comps, err = fs.relativeComponents(target)
			if err != nil {
				return Inode{}, 0, err
			}
			resolved, dir, err = fs.walkLocked(fs.Root, comps, hops)
		} else {
			resolved, dir, err = fs.walkLocked(containingDir, splitComponents(target), hops)
		}
		if err != nil {
			return Inode{}, 0, err
		}

		if !resolved.IsSymlink() {
			return resolved, dir, nil
		}

		symlink, containingDir = resolved, dir
	}
}
