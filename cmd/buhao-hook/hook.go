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

// Command buhao-hook is the LD_PRELOAD interposition library (§4.5). Built
// with -buildmode=c-shared, it exports libc-ABI-compatible replacements for
// the symbols listed in §6 and falls through to the real symbol, resolved
// once via dlsym(RTLD_NEXT, ...), whenever a path isn't managed or a shadow
// operation fails.
//
// This process must never write to stdout or stderr itself: those streams
// belong to whatever program it was preloaded into. Logging, if
// BUHAO_HOOK_LOG names a file, goes there exclusively (see init below).
package main

/*
#include "shim.h"
*/
import "C"

import (
	"os"

	"github.com/buhao-fs/buhao/hookmanager"
	"github.com/buhao-fs/buhao/internal/logger"
)

func init() {
	C.buhao_shim_init()

	if path := os.Getenv("BUHAO_HOOK_LOG"); path != "" {
		_ = logger.Init(logger.Config{FilePath: path, Level: "info"})
	}
}

func rootPath() string {
	if root := os.Getenv("BUHAO_ROOT"); root != "" {
		return root
	}
	return "/tmp/buhao"
}

func socketPath() string {
	if sock := os.Getenv("BUHAO_SOCK_PATH"); sock != "" {
		return sock
	}
	return "/tmp/buhao.sock"
}

// manager returns this OS thread's Manager, per §5 "Hook" and §9
// "Process-wide singleton with thread locality".
func manager() *hookmanager.Manager {
	return hookmanager.ForThisThread(socketPath(), rootPath())
}

// goString copies a NUL-terminated C string into Go memory. Safe to call
// with a NULL pointer only if the caller has already checked for it.
func goString(s *C.char) string {
	return C.GoString(s)
}

func main() {} // required by -buildmode=c-shared, never called
