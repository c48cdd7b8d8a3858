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
#define _GNU_SOURCE
#include "shim.h"
#include <dirent.h>
#include <errno.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/buhao-fs/buhao/hookmanager"
	"github.com/buhao-fs/buhao/inode"
)

//export opendir
func opendir(path *C.char) *C.DIR {
	canon, err := getPath(goString(path))
	if err != nil {
		return C.real_opendir(path)
	}

	handle, err := manager().Open(canon, 0, true)
	if err != nil {
		return C.real_opendir(path)
	}
	return handleToDIR(uint64(handle))
}

//export readdir
func readdir(dirp *C.DIR) *C.struct_dirent {
	handle := dirFromHandle(dirp)
	if !hookmanager.IsDirHandle(handle) {
		return C.real_readdir(dirp)
	}

	item, idx, ok := nextDirentFor(handle)
	if !ok {
		return nil // end of directory (errno untouched, §4.4) or bad handle (EBADF set by nextDirentFor)
	}

	var cerr C.int
	name := C.CString(item.Name)
	defer C.free(unsafe.Pointer(name))

	d := C.buhao_alloc_dirent(C.uint64_t(item.Inode), C.int64_t(idx), dType(item.Type), name, &cerr)
	if d == nil {
		C.buhao_set_errno(cerr)
		return nil
	}
	return d
}

//export readdir64
func readdir64(dirp *C.DIR) *C.struct_dirent64 {
	handle := dirFromHandle(dirp)
	if !hookmanager.IsDirHandle(handle) {
		return C.real_readdir64(dirp)
	}

	item, idx, ok := nextDirentFor(handle)
	if !ok {
		return nil
	}

	var cerr C.int
	name := C.CString(item.Name)
	defer C.free(unsafe.Pointer(name))

	d := C.buhao_alloc_dirent64(C.uint64_t(item.Inode), C.int64_t(idx), dType(item.Type), name, &cerr)
	if d == nil {
		C.buhao_set_errno(cerr)
		return nil
	}
	return d
}

//export closedir
func closedir(dirp *C.DIR) C.int {
	handle := dirFromHandle(dirp)
	if !hookmanager.IsDirHandle(handle) {
		return C.real_closedir(dirp)
	}

	if err := manager().Close(int64(handle), true); err != nil {
		C.buhao_set_errno(C.EBADF)
		return -1
	}
	return 0
}

// nextDirentFor fetches the child at the current DirState cursor for
// handle and advances it on success (§4.4 "Directory cursor").
func nextDirentFor(handle uint64) (inode.DirectoryItem, int, bool) {
	m := manager()

	sfd, err := m.RetrieveFd(int64(handle), true, false)
	if err != nil {
		C.buhao_set_errno(C.EBADF)
		return inode.DirectoryItem{}, 0, false
	}

	st, err := m.DirState(handle)
	if err != nil {
		C.buhao_set_errno(C.EBADF)
		return inode.DirectoryItem{}, 0, false
	}

	children := sfd.Info.Contents.Directory.Children
	if st.Idx >= len(children) {
		return inode.DirectoryItem{}, 0, false
	}

	item := children[st.Idx]
	idx := st.Idx
	_ = m.AdvanceDirState(handle)
	return item, idx, true
}

func dType(t inode.InodeType) C.uchar {
	switch t {
	case inode.DirectoryType:
		return C.DT_DIR
	case inode.SymlinkType:
		return C.DT_LNK
	default:
		return C.DT_REG
	}
}

// handleToDIR fabricates an opaque DIR* whose bit pattern is the synthetic
// handle itself; it is never dereferenced as a real DIR, only round-tripped
// back through dirFromHandle by a later readdir/closedir call.
func handleToDIR(handle uint64) *C.DIR {
	return (*C.DIR)(unsafe.Pointer(uintptr(handle)))
}

func dirFromHandle(dirp *C.DIR) uint64 {
	return uint64(uintptr(unsafe.Pointer(dirp)))
}
