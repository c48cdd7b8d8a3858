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

import "errors"

// Manager failure kinds (§7 of the design: Manager layer). Interposers map
// each of these to a fall-through or an errno per §4.5, never to a crash.
var (
	// ErrNotManaged means the path falls outside the configured root.
	ErrNotManaged = errors.New("hookmanager: path is not managed")

	// ErrNotADirectory means Open was asked for a directory handle but the
	// resolved inode isn't one.
	ErrNotADirectory = errors.New("hookmanager: not a directory")

	// ErrDisconnected means the daemon connection could not be established
	// or was lost; it is sticky for the remaining lifetime of the Manager.
	ErrDisconnected = errors.New("hookmanager: disconnected from daemon")

	// ErrServer wraps an Error-typed response from the daemon.
	ErrServer = errors.New("hookmanager: server error")

	// ErrBadFd means the caller referenced a synthetic descriptor that
	// isn't currently open.
	ErrBadFd = errors.New("hookmanager: bad descriptor")
)
