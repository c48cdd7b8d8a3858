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

package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/buhao-fs/buhao/inode"
)

var (
	metaBucket   = []byte("meta")
	inodesBucket = []byte("inodes")
	epochMetaKey = []byte("epoch")
)

// BoltStore persists inodes in a single bbolt database file. Every key is
// prefixed with an 8-byte big-endian epoch so that a future generation
// written by Refresh can coexist with (and then replace) an older one
// without an interleaved reader ever seeing a mix of the two; see
// NewEpoch. Only one epoch is ever read from by Get/Values, namely the
// store's current one.
type BoltStore struct {
	db    *bbolt.DB
	epoch uint64
}

// OpenBoltStore opens (creating if necessary) a bbolt database at path and
// resumes at whatever epoch was last recorded there.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt database %s: %w", path, err)
	}

	s := &BoltStore{db: db}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(metaBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(inodesBucket); err != nil {
			return err
		}

		if raw := tx.Bucket(metaBucket).Get(epochMetaKey); raw != nil {
			s.epoch = binary.BigEndian.Uint64(raw)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize bbolt schema: %w", err)
	}

	return s, nil
}

// Epoch reports the generation this store is currently reading and writing.
func (s *BoltStore) Epoch() uint64 { return s.epoch }

// NewEpoch advances the store to a fresh, empty generation and persists the
// new epoch number, leaving the previous generation's rows in place (a
// caller who wants them reclaimed can range-delete the old prefix
// separately). Nothing in buhaod calls this yet, since Refresh is currently
// rejected at the server layer, but the schema is shaped to support it
// without a migration once that changes.
func (s *BoltStore) NewEpoch() error {
	next := s.epoch + 1

	err := s.db.Update(func(tx *bbolt.Tx) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, next)
		return tx.Bucket(metaBucket).Put(epochMetaKey, buf)
	})
	if err != nil {
		return fmt.Errorf("store: advance epoch: %w", err)
	}

	s.epoch = next
	return nil
}

func (s *BoltStore) key(id inode.InodeId) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], s.epoch)
	binary.BigEndian.PutUint64(buf[8:16], uint64(id))
	return buf
}

func (s *BoltStore) Insert(in inode.Inode) error {
	value, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("store: marshal inode %d: %w", in.Id, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(inodesBucket).Put(s.key(in.Id), value)
	})
}

func (s *BoltStore) Get(id inode.InodeId) (inode.Inode, bool, error) {
	var in inode.Inode
	var found bool

	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(inodesBucket).Get(s.key(id))
		if value == nil {
			return nil
		}
		found = true
		return json.Unmarshal(value, &in)
	})
	if err != nil {
		return inode.Inode{}, false, fmt.Errorf("store: get inode %d: %w", id, err)
	}

	return in, found, nil
}

func (s *BoltStore) Remove(id inode.InodeId) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(inodesBucket).Delete(s.key(id))
	})
}

func (s *BoltStore) Values() ([]inode.Inode, error) {
	prefix := make([]byte, 8)
	binary.BigEndian.PutUint64(prefix, s.epoch)

	var values []inode.Inode
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(inodesBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var in inode.Inode
			if err := json.Unmarshal(v, &in); err != nil {
				return fmt.Errorf("unmarshal inode at key %x: %w", k, err)
			}
			values = append(values, in)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list inodes: %w", err)
	}

	return values, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
