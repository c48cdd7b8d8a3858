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

// Package inode holds the shadow-inode model mirrored from a subtree of the
// real filesystem: the inode graph, the DirectoryItem/Contents value types,
// and the read-only path resolver that walks it.
package inode

import (
	"encoding/json"
	"fmt"
)

// InodeId uniquely names an inode within a single daemon.
type InodeId uint64

// InvalidParent marks the root inode's absent parent.
const InvalidParent InodeId = ^InodeId(0)

// InodeType discriminates the three kinds of shadow inode.
type InodeType int

const (
	FileType InodeType = iota
	DirectoryType
	SymlinkType
)

func (t InodeType) String() string {
	switch t {
	case FileType:
		return "File"
	case DirectoryType:
		return "Directory"
	case SymlinkType:
		return "Symlink"
	default:
		return fmt.Sprintf("InodeType(%d)", int(t))
	}
}

func (t InodeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *InodeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "File":
		*t = FileType
	case "Directory":
		*t = DirectoryType
	case "Symlink":
		*t = SymlinkType
	default:
		return fmt.Errorf("inode: unknown InodeType %q", s)
	}
	return nil
}

// DirectoryItem is one named entry in a directory's children list. Order
// within a Directory's Children slice is the order readdir returns, and is
// stable across repeated reads of the same inode.
type DirectoryItem struct {
	Name  string    `json:"name"`
	Inode InodeId   `json:"inode"`
	Type  InodeType `json:"itype"`
}

// DirectoryContents is the payload of a Directory-typed inode.
type DirectoryContents struct {
	Parent   InodeId         `json:"parent"`
	Children []DirectoryItem `json:"children"`
}

// Contents is the tagged-union payload of an inode: exactly one of File (no
// data), Symlink (a raw, possibly-relative target string) or Directory.
//
// Wire encoding (see codec.Codec.Send / the Get response payload) mirrors the
// original Rust enum: the bare string "File", {"Symlink": target} or
// {"Directory": {...}}.
type Contents struct {
	Type      InodeType
	Target    string // valid iff Type == SymlinkType
	Directory *DirectoryContents // valid iff Type == DirectoryType
}

func FileContents() Contents {
	return Contents{Type: FileType}
}

func SymlinkContents(target string) Contents {
	return Contents{Type: SymlinkType, Target: target}
}

func DirContents(parent InodeId, children []DirectoryItem) Contents {
	return Contents{
		Type:      DirectoryType,
		Directory: &DirectoryContents{Parent: parent, Children: children},
	}
}

func (c Contents) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case FileType:
		return json.Marshal("File")
	case SymlinkType:
		return json.Marshal(map[string]string{"Symlink": c.Target})
	case DirectoryType:
		return json.Marshal(map[string]*DirectoryContents{"Directory": c.Directory})
	default:
		return nil, fmt.Errorf("inode: cannot marshal Contents with type %v", c.Type)
	}
}

func (c *Contents) UnmarshalJSON(data []byte) error {
	// Bare string case: "File".
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		if bare != "File" {
			return fmt.Errorf("inode: unknown bare Contents tag %q", bare)
		}
		*c = FileContents()
		return nil
	}

	var tagged struct {
		Symlink   *string            `json:"Symlink"`
		Directory *DirectoryContents `json:"Directory"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("inode: malformed Contents: %w", err)
	}
	switch {
	case tagged.Symlink != nil:
		*c = SymlinkContents(*tagged.Symlink)
	case tagged.Directory != nil:
		*c = Contents{Type: DirectoryType, Directory: tagged.Directory}
	default:
		return fmt.Errorf("inode: Contents object has neither Symlink nor Directory")
	}
	return nil
}

// Inode is the authoritative metadata record for one shadow filesystem
// entry. Timestamps are seconds since the epoch.
type Inode struct {
	Id    InodeId `json:"id"`
	Mode  uint32  `json:"mode"`
	Uid   uint32  `json:"uid"`
	Gid   uint32  `json:"gid"`
	Nlink uint64  `json:"nlink"`
	Atime int64   `json:"atime"`
	Mtime int64   `json:"mtime"`
	Ctime int64   `json:"ctime"`
	Size  int64   `json:"size"`

	Contents Contents `json:"contents"`
}

func (in Inode) IsDir() bool     { return in.Contents.Type == DirectoryType }
func (in Inode) IsSymlink() bool { return in.Contents.Type == SymlinkType }
func (in Inode) IsFile() bool    { return in.Contents.Type == FileType }
