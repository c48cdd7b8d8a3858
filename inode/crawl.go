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
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jacobsa/timeutil"
	"golang.org/x/sys/unix"
)

// RootInodeId stats rootPath and returns the real inode number that would
// become the shadow root's InodeId, without crawling the rest of the tree.
// buhaod uses this to look up a persisted Filesystem in a Store before
// deciding whether a fresh Crawl is needed.
func RootInodeId(rootPath string) (InodeId, error) {
	st, err := lstat(filepath.Clean(rootPath))
	if err != nil {
		return 0, err
	}
	return InodeId(st.Ino), nil
}

// Crawl builds a Filesystem by walking the real directory tree at rootPath,
// using each entry's real inode number as its InodeId (§4.2). A failure to
// stat or list any one entry is logged and that entry is skipped rather than
// aborting the whole crawl.
//
// clock times the crawl for the completion log line; pass nil to use
// timeutil.RealClock(). Tests that care about the logged duration can supply
// a timeutil.SimulatedClock instead.
func Crawl(rootPath string, logger *slog.Logger, clock timeutil.Clock) (*Filesystem, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = timeutil.RealClock()
	}

	rootPath = filepath.Clean(rootPath)
	start := clock.Now()

	rootStat, err := lstat(rootPath)
	if err != nil {
		return nil, err
	}

	root := InodeId(rootStat.Ino)
	fs := NewFilesystem(rootPath, root)

	children := dfsList(fs, rootPath, logger)
	fs.Put(newInode(rootStat, DirContents(InvalidParent, children)))

	logger.Info("crawl complete",
		"root", rootPath,
		"inodes", fs.Len(),
		"elapsed", clock.Now().Sub(start).String())

	return fs, nil
}

// dfsList lists dir's entries, recursing into subdirectories and populating
// fs with an Inode for everything it manages to stat. It never returns an
// error itself; entries it cannot process are logged and dropped, per
// dfs_list's skip-on-error behavior.
func dfsList(fs *Filesystem, dir string, logger *slog.Logger) []DirectoryItem {
	selfStat, err := lstat(dir)
	if err != nil {
		logger.Warn("failed to stat directory for crawl", "dir", dir, "error", err)
		return nil
	}
	selfID := InodeId(selfStat.Ino)

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("failed to read directory entries", "dir", dir, "error", err)
		return nil
	}

	items := make([]DirectoryItem, 0, len(entries))
	for _, entry := range entries {
		childPath := filepath.Join(dir, entry.Name())

		st, err := lstat(childPath)
		if err != nil {
			logger.Warn("failed to stat entry", "path", childPath, "error", err)
			continue
		}

		var contents Contents
		var itemType InodeType

		switch {
		case st.Mode&unix.S_IFMT == unix.S_IFLNK:
			target, err := os.Readlink(childPath)
			if err != nil {
				logger.Warn("failed to read symlink target", "path", childPath, "error", err)
				continue
			}
			contents = SymlinkContents(target)
			itemType = SymlinkType

		case st.Mode&unix.S_IFMT == unix.S_IFREG:
			contents = FileContents()
			itemType = FileType

		case st.Mode&unix.S_IFMT == unix.S_IFDIR:
			grandchildren := dfsList(fs, childPath, logger)
			contents = DirContents(selfID, grandchildren)
			itemType = DirectoryType

		default:
			// Sockets, devices, FIFOs: not part of the shadow model.
			continue
		}

		id := InodeId(st.Ino)
		items = append(items, DirectoryItem{
			Name:  entry.Name(),
			Inode: id,
			Type:  itemType,
		})
		fs.Put(newInode(st, contents))
	}

	return items
}

// lstat stats path without following a trailing symlink, mirroring
// std::fs::symlink_metadata in the original crawl.
func lstat(path string) (unix.Stat_t, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return unix.Stat_t{}, &os.PathError{Op: "lstat", Path: path, Err: err}
	}
	return st, nil
}

// newInode translates a raw unix.Stat_t into the shadow Inode record.
func newInode(st unix.Stat_t, contents Contents) Inode {
	return Inode{
		Id:    InodeId(st.Ino),
		Mode:  st.Mode,
		Uid:   st.Uid,
		Gid:   st.Gid,
		Nlink: uint64(st.Nlink),
		Atime: st.Atim.Sec,
		Mtime: st.Mtim.Sec,
		Ctime: st.Ctim.Sec,
		Size:  st.Size,

		Contents: contents,
	}
}
