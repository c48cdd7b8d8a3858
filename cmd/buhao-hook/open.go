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
#include <fcntl.h>
*/
import "C"

import (
	"unsafe"

	"github.com/buhao-fs/buhao/hookmanager"
)

// atFDCWD mirrors fcntl.h's AT_FDCWD so openat/fstatat can recognize the
// "relative to cwd" case without importing x/sys/unix into a cgo file.
const atFDCWD = C.AT_FDCWD

//export open
func open(path *C.char, flags C.int, mode C.mode_t) C.int {
	return doOpen(path, flags, mode, C.real_open)
}

//export open64
func open64(path *C.char, flags C.int, mode C.mode_t) C.int {
	return doOpen(path, flags, mode, C.real_open64)
}

//export openat
func openat(dirfd C.int, path *C.char, flags C.int, mode C.mode_t) C.int {
	return doOpenat(dirfd, path, flags, mode, C.real_openat)
}

//export openat64
func openat64(dirfd C.int, path *C.char, flags C.int, mode C.mode_t) C.int {
	return doOpenat(dirfd, path, flags, mode, C.real_openat64)
}

// doOpen implements the shared open/open64 interposer shape from §4.5: the
// real symbol is invoked, unmodified, on every fall-through path so the
// host program sees exactly the call it made.
func doOpen(path *C.char, flags C.int, mode C.mode_t, real C.buhao_open_fn) C.int {
	canon, err := getPath(goString(path))
	if err != nil {
		return real(path, flags, mode)
	}

	fd, err := manager().Open(canon, int32(flags), false)
	if err != nil {
		return real(path, flags, mode)
	}
	return C.int(fd)
}

func doOpenat(dirfd C.int, path *C.char, flags C.int, mode C.mode_t, real C.buhao_openat_fn) C.int {
	if dirfd != atFDCWD {
		return real(dirfd, path, flags, mode)
	}

	canon, err := getPath(goString(path))
	if err != nil {
		return real(dirfd, path, flags, mode)
	}

	fd, err := manager().Open(canon, int32(flags), false)
	if err != nil {
		return real(dirfd, path, flags, mode)
	}
	return C.int(fd)
}

//export close
func close(fd C.int) C.int {
	if !hookmanager.IsFileFd(int64(fd)) {
		return C.real_close(fd)
	}

	if err := manager().Close(int64(fd), false); err != nil {
		C.buhao_set_errno(C.EBADF)
		return -1
	}
	return 0
}

//export read
func read(fd C.int, buf unsafe.Pointer, count C.size_t) C.ssize_t {
	if !hookmanager.IsFileFd(int64(fd)) {
		return C.real_read(fd, buf, count)
	}
	return doReadAt(int64(fd), buf, count, -1)
}

//export pread64
func pread64(fd C.int, buf unsafe.Pointer, count C.size_t, offset C.off_t) C.ssize_t {
	if !hookmanager.IsFileFd(int64(fd)) {
		return C.real_pread64(fd, buf, count, offset)
	}
	return doReadAt(int64(fd), buf, count, int64(offset))
}

// doReadAt materializes (if needed) the real fd backing a synthetic one
// (§4.4 retrieve_fd) and issues the real read/pread64 against it.
func doReadAt(fd int64, buf unsafe.Pointer, count C.size_t, offset int64) C.ssize_t {
	sfd, err := manager().RetrieveFd(fd, false, true)
	if err != nil {
		C.buhao_set_errno(C.EBADF)
		return -1
	}

	if offset < 0 {
		return C.real_read(C.int(sfd.RealFd), buf, count)
	}
	return C.real_pread64(C.int(sfd.RealFd), buf, count, C.off_t(offset))
}
