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

package inode_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
	"github.com/jacobsa/timeutil"
	"golang.org/x/sys/unix"

	"github.com/buhao-fs/buhao/inode"
)

func TestCrawl(t *testing.T) { RunTests(t) }

type CrawlTest struct {
	dir string
}

func init() { RegisterTestSuite(&CrawlTest{}) }

func (t *CrawlTest) SetUp(ti *TestInfo) {
	var err error
	t.dir, err = os.MkdirTemp("", "buhao-crawl-")
	AssertEq(nil, err)

	AssertEq(nil, os.WriteFile(filepath.Join(t.dir, "a"), []byte("hello"), 0644))
	AssertEq(nil, os.Mkdir(filepath.Join(t.dir, "b"), 0755))
	AssertEq(nil, os.Symlink("../a", filepath.Join(t.dir, "b", "c")))
}

func (t *CrawlTest) TearDown() {
	os.RemoveAll(t.dir)
}

func (t *CrawlTest) WalksTheWholeTreeAndResolves() {
	fs, err := inode.Crawl(t.dir, slog.Default(), nil)
	AssertEq(nil, err)

	a, err := fs.Open("./a")
	AssertEq(nil, err)
	ExpectTrue(a.IsFile())

	c, err := fs.Open("./b/c")
	AssertEq(nil, err)
	ExpectTrue(c.IsSymlink())

	resolved, err := fs.Open("./b/c/.")
	AssertEq(nil, err)
	ExpectTrue(resolved.IsFile())
	ExpectEq(a.Id, resolved.Id)
}

func (t *CrawlTest) SkipsEntriesOfUnsupportedTypesWithoutFailingTheWholeCrawl() {
	// A named pipe isn't a file, directory, or symlink, so it has no place
	// in the shadow model; the crawl should drop it and move on.
	AssertEq(nil, unix.Mkfifo(filepath.Join(t.dir, "fifo"), 0644))

	fs, err := inode.Crawl(t.dir, slog.Default(), nil)
	AssertEq(nil, err)

	_, err = fs.Open("./fifo")
	ExpectNe(nil, err)

	_, err = fs.Open("./a")
	ExpectEq(nil, err)
}

func (t *CrawlTest) AcceptsAFakeClockForTestableCrawlTiming() {
	clock := &timeutil.SimulatedClock{}
	clock.SetTime(time.Date(2012, 8, 15, 22, 56, 0, 0, time.UTC))

	fs, err := inode.Crawl(t.dir, slog.Default(), clock)
	AssertEq(nil, err)
	ExpectEq(4, fs.Len())
}
