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

// Package hookmanager holds the per-thread state an interposition library
// needs: a connection to buhaod, the synthetic file-descriptor and
// directory-handle tables, and the operations (Get/Open/Close/RetrieveFd)
// the interposers in cmd/buhao-hook drive.
//
// A Manager is deliberately thread-local rather than process-global: cgo
// callbacks from C always run on the OS thread that made the call, so
// keying a registry by the kernel thread id gives every application thread
// its own connection and fd namespace. The only cross-thread lock is the
// registry's, held briefly to look a Manager up and never across a daemon
// round trip.
package hookmanager

import (
	"fmt"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/buhao-fs/buhao/codec"
	"github.com/buhao-fs/buhao/inode"
)

// LowerFDBound is the smallest value a synthetic file descriptor may take.
// Real kernel fds never approach this, so any fd below it is real.
const LowerFDBound int32 = 0x00800000

// LowerDirFDBound is the smallest value a synthetic directory handle (cast
// from a DIR*) may take.
const LowerDirFDBound uint64 = 0x0000_8000_0000_0000

// ShadowFd is the hook's view of one open managed path.
type ShadowFd struct {
	Path      string
	Oflag     int32
	Info      inode.Inode
	HasRealFd bool
	RealFd    int
}

// DirState tracks how far a readdir cursor has advanced through a
// directory's children.
type DirState struct {
	Idx int
}

// Manager is one thread's connection to buhaod plus its synthetic
// descriptor tables. The zero value is not usable; construct via registry
// functions in thread.go.
type Manager struct {
	mu sync.Mutex

	rootPath   string
	socketPath string

	conn  net.Conn
	codec *codec.Codec

	// dead is set once connecting to the daemon has failed; from then on
	// every operation reports ErrDisconnected without retrying, so a broken
	// daemon cannot hang the host program call after call.
	dead bool

	files map[int32]*ShadowFd
	dirs  map[uint64]*ShadowFd

	dirState map[uint64]*DirState

	nextFd    int32
	nextDirFd uint64
}

func newManager(socketPath, rootPath string) *Manager {
	return &Manager{
		socketPath: socketPath,
		rootPath:   rootPath,
		files:      make(map[int32]*ShadowFd),
		dirs:       make(map[uint64]*ShadowFd),
		dirState:   make(map[uint64]*DirState),
		nextFd:     LowerFDBound,
		nextDirFd:  LowerDirFDBound,
	}
}

// ensureConnected lazily dials the daemon's socket. A prior failure is
// sticky: it is never retried within this Manager's lifetime (§9 "process
// wide singleton with thread locality").
func (m *Manager) ensureConnected() error {
	if m.dead {
		return ErrDisconnected
	}
	if m.conn != nil {
		return nil
	}

	conn, err := net.Dial("unix", m.socketPath)
	if err != nil {
		m.dead = true
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	m.conn = conn
	m.codec = codec.New(conn)
	return nil
}

// managed reports whether path falls under this Manager's configured root
// (§4.4 "Managed-path predicate").
func (m *Manager) managed(path string) bool {
	if path == m.rootPath {
		return true
	}
	prefix := m.rootPath
	if len(prefix) == 0 || prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return len(path) > len(prefix) && path[:len(prefix)] == prefix
}

// Get asks the daemon for the inode at path. Returns ErrNotManaged if path
// is outside this Manager's root, without contacting the daemon.
func (m *Manager) Get(path string) (inode.Inode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.managed(path) {
		return inode.Inode{}, ErrNotManaged
	}

	if err := m.ensureConnected(); err != nil {
		return inode.Inode{}, err
	}

	if err := m.codec.Send(uint8(codec.ActionGet), codec.GetRequest{Path: path}); err != nil {
		m.dead = true
		return inode.Inode{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	action, payload, err := m.codec.Recv()
	if err != nil {
		m.dead = true
		return inode.Inode{}, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	if codec.ResponseAction(action) == codec.ActionError {
		var message string
		if err := codec.Decode(payload, &message); err != nil {
			return inode.Inode{}, fmt.Errorf("%w: malformed error response: %v", ErrServer, err)
		}
		return inode.Inode{}, fmt.Errorf("%w: %s", ErrServer, message)
	}

	var in inode.Inode
	if err := codec.Decode(payload, &in); err != nil {
		return inode.Inode{}, fmt.Errorf("%w: malformed inode: %v", ErrServer, err)
	}
	return in, nil
}

// Open resolves path via Get and, on success, allocates a synthetic
// descriptor for it (§4.4 "open"). When dirOp is true the inode must be a
// directory and a DirState is initialized alongside.
func (m *Manager) Open(path string, oflag int32, dirOp bool) (int64, error) {
	in, err := m.Get(path)
	if err != nil {
		return 0, err
	}

	if dirOp && !in.IsDir() {
		return 0, ErrNotADirectory
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sfd := &ShadowFd{Path: path, Oflag: oflag, Info: in}

	if dirOp {
		handle := m.nextDirFd
		m.nextDirFd++
		m.dirs[handle] = sfd
		m.dirState[handle] = &DirState{Idx: 0}
		return int64(handle), nil
	}

	fd := m.nextFd
	m.nextFd++
	m.files[fd] = sfd
	return int64(fd), nil
}

// Close releases the synthetic state for fd (a file fd if dirOp is false, a
// directory handle otherwise), closing any lazily-materialized real fd.
func (m *Manager) Close(fd int64, dirOp bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if dirOp {
		handle := uint64(fd)
		sfd, ok := m.dirs[handle]
		if !ok {
			return ErrBadFd
		}
		delete(m.dirs, handle)
		delete(m.dirState, handle)
		return closeReal(sfd)
	}

	f := int32(fd)
	sfd, ok := m.files[f]
	if !ok {
		return ErrBadFd
	}
	delete(m.files, f)
	return closeReal(sfd)
}

func closeReal(sfd *ShadowFd) error {
	if !sfd.HasRealFd {
		return nil
	}
	return unix.Close(sfd.RealFd)
}

// RetrieveFd returns a snapshot of the ShadowFd for fd. When openReal is
// true and no real fd has been materialized yet, it issues a direct
// Openat(2) syscall (never through the interposed open symbol, per §9
// "avoiding self-recursion") against the stored path and stashes the
// result.
func (m *Manager) RetrieveFd(fd int64, dirOp bool, openReal bool) (ShadowFd, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sfd *ShadowFd
	var ok bool
	if dirOp {
		sfd, ok = m.dirs[uint64(fd)]
	} else {
		sfd, ok = m.files[int32(fd)]
	}
	if !ok {
		return ShadowFd{}, ErrBadFd
	}

	if openReal && !sfd.HasRealFd {
		realFd, err := unix.Openat(unix.AT_FDCWD, sfd.Path, int(sfd.Oflag), 0o644)
		if err != nil {
			return ShadowFd{}, fmt.Errorf("%w: %v", ErrBadFd, err)
		}
		sfd.RealFd = realFd
		sfd.HasRealFd = true
	}

	return *sfd, nil
}

// DirState returns the current directory cursor for handle, or ErrBadFd if
// it is not open.
func (m *Manager) DirState(handle uint64) (DirState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.dirState[handle]
	if !ok {
		return DirState{}, ErrBadFd
	}
	return *st, nil
}

// AdvanceDirState moves handle's cursor forward by one entry.
func (m *Manager) AdvanceDirState(handle uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.dirState[handle]
	if !ok {
		return ErrBadFd
	}
	st.Idx++
	return nil
}

// IsFileFd reports whether fd lies in the synthetic file-fd range.
func IsFileFd(fd int64) bool { return fd >= int64(LowerFDBound) }

// IsDirHandle reports whether handle lies in the synthetic dir-handle
// range.
func IsDirHandle(handle uint64) bool { return handle >= LowerDirFDBound }
