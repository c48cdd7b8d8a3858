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

/*
#include "shim.h"
#include <errno.h>
*/
import "C"

import (
	"fmt"
	"path/filepath"

	"github.com/buhao-fs/buhao/hookmanager"
	"github.com/buhao-fs/buhao/inode"
)

//export stat
func stat(path *C.char, buf *C.struct_stat) C.int {
	return doStat(path, buf, false, C.real_stat)
}

//export stat64
func stat64(path *C.char, buf *C.struct_stat) C.int {
	return doStat(path, buf, false, C.real_stat64)
}

//export lstat
func lstat(path *C.char, buf *C.struct_stat) C.int {
	return doStat(path, buf, true, C.real_lstat)
}

//export lstat64
func lstat64(path *C.char, buf *C.struct_stat) C.int {
	return doStat(path, buf, true, C.real_lstat64)
}

//export fstatat
func fstatat(dirfd C.int, path *C.char, buf *C.struct_stat, flags C.int) C.int {
	if dirfd != atFDCWD {
		return C.real_fstatat(dirfd, path, buf, flags)
	}

	in, ok := resolveForStat(path, false)
	if !ok {
		return C.real_fstatat(dirfd, path, buf, flags)
	}
	fillStat(buf, in)
	return 0
}

func doStat(path *C.char, buf *C.struct_stat, isLstat bool, real C.buhao_stat_fn) C.int {
	in, ok := resolveForStat(path, isLstat)
	if !ok {
		return real(path, buf)
	}
	fillStat(buf, in)
	return 0
}

// resolveForStat implements the shared stat/stat64/lstat/lstat64/fstatat
// decision of §4.5: canonicalize, ask the Manager, and — for the non-lstat
// family only — chase a terminal symlink up to RecursiveLimit hops. ok is
// false whenever any step says "fall through".
func resolveForStat(path *C.char, isLstat bool) (inode.Inode, bool) {
	canon, err := getPath(goString(path))
	if err != nil {
		return inode.Inode{}, false
	}

	in, err := manager().Get(canon)
	if err != nil {
		return inode.Inode{}, false
	}

	if in.IsSymlink() && !isLstat {
		in, err = followSymlinkForStat(canon, in)
		if err != nil {
			return inode.Inode{}, false
		}
	}

	return in, true
}

// followSymlinkForStat re-resolves a chain of terminal symlinks path-by-path
// (§4.5 "stat/stat64/..."), since the hook only holds flat Inode snapshots
// and not the daemon's graph; the daemon's own resolver already collapsed
// any *non-terminal* symlinks on the way to this one (§9 "Symlink semantics
// split across layers").
func followSymlinkForStat(path string, in inode.Inode) (inode.Inode, error) {
	hops := 0
	for in.IsSymlink() {
		if hops >= inode.RecursiveLimit {
			return inode.Inode{}, fmt.Errorf("buhao-hook: too many symlink redirections resolving %s", path)
		}
		hops++

		target := in.Contents.Target
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		target = filepath.Clean(target)

		next, err := manager().Get(target)
		if err != nil {
			return inode.Inode{}, err
		}
		path, in = target, next
	}
	return in, nil
}

//export fstat
func fstat(fd C.int, buf *C.struct_stat) C.int {
	return doFstat(fd, buf, C.real_fstat)
}

//export fstat64
func fstat64(fd C.int, buf *C.struct_stat) C.int {
	return doFstat(fd, buf, C.real_fstat64)
}

func doFstat(fd C.int, buf *C.struct_stat, real C.buhao_fstat_fn) C.int {
	if !hookmanager.IsFileFd(int64(fd)) {
		return real(fd, buf)
	}

	sfd, err := manager().RetrieveFd(int64(fd), false, false)
	if err != nil {
		C.buhao_set_errno(C.EBADF)
		return -1
	}

	fillStat(buf, sfd.Info)
	return 0
}

// fillStat projects in onto buf per §4.6.
func fillStat(buf *C.struct_stat, in inode.Inode) {
	C.buhao_fill_stat(
		buf,
		C.uint64_t(in.Id),
		C.uint32_t(in.Mode),
		C.uint64_t(in.Nlink),
		C.uint32_t(in.Uid),
		C.uint32_t(in.Gid),
		C.int64_t(in.Size),
		C.int64_t(in.Atime),
		C.int64_t(in.Mtime),
		C.int64_t(in.Ctime),
	)
}
