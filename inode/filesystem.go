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

	"github.com/jacobsa/syncutil"
)

// Filesystem owns the in-memory inode graph rooted at RootPath and resolves
// paths against it. The zero value is not usable; use NewFilesystem.
//
// The mapping inodes is the only shared mutable state here (§5); it is
// guarded by mu, which callers never need to take directly: every exported
// method takes the lock itself and releases it before returning.
type Filesystem struct {
	RootPath string
	Root     InodeId

	// When acquiring this lock, the caller must hold no other locks.
	mu syncutil.InvariantMutex

	inodes map[InodeId]Inode // GUARDED_BY(mu)
}

// NewFilesystem creates an empty Filesystem rooted at rootPath with the given
// root inode ID. Callers populate it via Put, typically from a crawl (see
// Crawl) or from a persisted store.
func NewFilesystem(rootPath string, root InodeId) *Filesystem {
	fs := &Filesystem{
		RootPath: rootPath,
		Root:     root,
		inodes:   make(map[InodeId]Inode),
	}
	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)
	return fs
}

// checkInvariants is run by the InvariantMutex after every unlock in debug
// builds (see jacobsa/syncutil). It encodes the §3 invariants that are cheap
// to check eagerly; the full reachability invariant is exercised by tests
// instead; re-walking the whole graph on every unlock would be too costly to
// enable unconditionally.
func (fs *Filesystem) checkInvariants() {
	root, ok := fs.inodes[fs.Root]
	if !ok {
		return // Not yet populated.
	}
	if !root.IsDir() {
		panic("inode: root inode is not a directory")
	}
	if root.Contents.Directory.Parent != InvalidParent {
		panic("inode: root inode has a parent")
	}
	for id, in := range fs.inodes {
		if id != fs.Root && in.IsDir() && in.Contents.Directory.Parent == InvalidParent {
			panic(fmt.Sprintf("inode: non-root directory %d claims InvalidParent", id))
		}
	}
}

// Put inserts or replaces the inode record for in.Id.
func (fs *Filesystem) Put(in Inode) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.inodes[in.Id] = in
}

// lookup returns a snapshot of the inode with the given id. Callers must hold
// fs.mu.
func (fs *Filesystem) lookup(id InodeId) (Inode, bool) {
	in, ok := fs.inodes[id]
	return in, ok
}

// Len reports how many inodes are currently tracked, for diagnostics and
// tests.
func (fs *Filesystem) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.inodes)
}

// All returns a snapshot of every inode currently tracked, in unspecified
// order. Used to persist a freshly-crawled tree into a Store.
func (fs *Filesystem) All() []Inode {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	all := make([]Inode, 0, len(fs.inodes))
	for _, in := range fs.inodes {
		all = append(all, in)
	}
	return all
}
