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

// Package store persists the shadow inode graph so a daemon restart need
// not re-crawl the real filesystem. Two implementations satisfy the same
// Store interface: MemStore, a plain map for tests and small trees, and
// BoltStore, a go.etcd.io/bbolt-backed implementation keyed by epoch so a
// future refresh can write a new generation without disturbing readers of
// the old one.
package store

import "github.com/buhao-fs/buhao/inode"

// Store persists a snapshot of (InodeId -> Inode) pairs. Implementations
// need not be safe for concurrent use unless documented otherwise; callers
// in this module only use a Store from buhaod's single startup goroutine
// (Load, then Persist after a crawl).
type Store interface {
	// Insert records or replaces the entry for in.Id.
	Insert(in inode.Inode) error

	// Get returns the entry for id, or ok == false if it is not present.
	Get(id inode.InodeId) (in inode.Inode, ok bool, err error)

	// Remove deletes the entry for id, if any.
	Remove(id inode.InodeId) error

	// Values returns every entry currently stored, in unspecified order.
	Values() ([]inode.Inode, error)

	// Close releases any resources (file handles, connections) held by the
	// store.
	Close() error
}

// MemStore is an in-memory Store backed by a plain map. It exists mainly for
// tests and for running buhaod with --store.backend=mem (the default).
type MemStore struct {
	inodes map[inode.InodeId]inode.Inode
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{inodes: make(map[inode.InodeId]inode.Inode)}
}

func (s *MemStore) Insert(in inode.Inode) error {
	s.inodes[in.Id] = in
	return nil
}

func (s *MemStore) Get(id inode.InodeId) (inode.Inode, bool, error) {
	in, ok := s.inodes[id]
	return in, ok, nil
}

func (s *MemStore) Remove(id inode.InodeId) error {
	delete(s.inodes, id)
	return nil
}

func (s *MemStore) Values() ([]inode.Inode, error) {
	values := make([]inode.Inode, 0, len(s.inodes))
	for _, in := range s.inodes {
		values = append(values, in)
	}
	return values, nil
}

func (s *MemStore) Close() error { return nil }
