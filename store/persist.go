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
	"fmt"

	"github.com/buhao-fs/buhao/inode"
)

// Persist writes every inode currently held by fs into s, overwriting
// whatever generation s already had for those ids.
func Persist(s Store, fs *inode.Filesystem) error {
	for _, in := range fs.All() {
		if err := s.Insert(in); err != nil {
			return fmt.Errorf("store: persist inode %d: %w", in.Id, err)
		}
	}
	return nil
}

// Load rebuilds a Filesystem rooted at rootPath/root entirely from s,
// skipping the real-filesystem crawl a fresh start would otherwise need.
// ok is false (with fs == nil) if s has no entry for root, meaning the
// daemon should fall back to inode.Crawl instead.
func Load(s Store, rootPath string, root inode.InodeId) (fs *inode.Filesystem, ok bool, err error) {
	if _, present, err := s.Get(root); err != nil {
		return nil, false, fmt.Errorf("store: load root %d: %w", root, err)
	} else if !present {
		return nil, false, nil
	}

	values, err := s.Values()
	if err != nil {
		return nil, false, fmt.Errorf("store: load: %w", err)
	}

	out := inode.NewFilesystem(rootPath, root)
	for _, in := range values {
		out.Put(in)
	}
	return out, true, nil
}
