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

package hookmanager

import (
	"sync"

	"golang.org/x/sys/unix"
)

var (
	registryMu sync.Mutex
	registry   = make(map[int]*Manager)
)

// ForThisThread returns the Manager for the calling OS thread, creating one
// on first use. Every interposed call from cmd/buhao-hook is a cgo callback
// and therefore always runs on the same OS thread for its whole duration,
// so keying by Gettid gives each application thread an independent Manager
// without any lock held across a daemon round trip.
func ForThisThread(socketPath, rootPath string) *Manager {
	tid := unix.Gettid()

	registryMu.Lock()
	defer registryMu.Unlock()

	m, ok := registry[tid]
	if !ok {
		m = newManager(socketPath, rootPath)
		registry[tid] = m
	}
	return m
}

// ForgetThisThread drops the calling thread's Manager, closing its daemon
// connection if one was open. Mainly useful for tests, which otherwise
// accumulate one Manager per goroutine-pinned OS thread across test cases.
func ForgetThisThread() {
	tid := unix.Gettid()

	registryMu.Lock()
	m, ok := registry[tid]
	delete(registry, tid)
	registryMu.Unlock()

	if ok && m.conn != nil {
		m.conn.Close()
	}
}
