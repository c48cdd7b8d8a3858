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

package codec_test

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"

	"github.com/buhao-fs/buhao/codec"
)

func TestCodec(t *testing.T) { RunTests(t) }

type CodecTest struct {
	buf *bytes.Buffer
	c   *codec.Codec
}

func init() { RegisterTestSuite(&CodecTest{}) }

func (t *CodecTest) SetUp(ti *TestInfo) {
	t.buf = new(bytes.Buffer)
	t.c = codec.New(t.buf)
}

func (t *CodecTest) RoundTripsAGetRequest() {
	req := codec.GetRequest{Path: "/tmp/buhao/a"}
	AssertEq(nil, t.c.Send(uint8(codec.ActionGet), req))

	action, payload, err := t.c.Recv()
	AssertEq(nil, err)
	ExpectEq(uint8(codec.ActionGet), action)

	var got codec.GetRequest
	AssertEq(nil, codec.Decode(payload, &got))
	ExpectEq("", pretty.Compare(req, got))
}

func (t *CodecTest) EncodesTheExactWireLayout() {
	AssertEq(nil, t.c.Send(uint8(codec.ActionGet), codec.GetRequest{Path: "a"}))

	raw := t.buf.Bytes()
	body, err := json.Marshal(codec.GetRequest{Path: "a"})
	AssertEq(nil, err)

	ExpectEq("buhao", string(raw[0:5]))
	ExpectEq(uint8(1), raw[9]) // ActionGet
	ExpectEq(string(body), string(raw[10:]))
	ExpectEq(len(body), int(raw[5])<<24|int(raw[6])<<16|int(raw[7])<<8|int(raw[8]))
}

func (t *CodecTest) RejectsBadMagic() {
	t.buf.WriteString("nope!")
	t.buf.Write(make([]byte, 5))

	_, _, err := t.c.Recv()
	ExpectThat(err, Error(HasSubstr("bad frame magic")))
}

func (t *CodecTest) ReportsUnexpectedEOFMidFrame() {
	// A header promising a payload that never arrives.
	t.buf.WriteString("buhao")
	t.buf.Write([]byte{0, 0, 0, 5})
	t.buf.WriteByte(uint8(codec.ActionGet))
	t.buf.WriteString("ab") // short by 3 bytes

	_, _, err := t.c.Recv()
	ExpectNe(nil, err)
}

func (t *CodecTest) RecvOnEmptyStreamReturnsEOF() {
	_, _, err := t.c.Recv()
	ExpectEq(io.EOF, err)
}

func (t *CodecTest) SendsAnEmptyObjectForNilPayload() {
	AssertEq(nil, t.c.Send(uint8(codec.ActionRefresh), nil))

	_, payload, err := t.c.Recv()
	AssertEq(nil, err)
	ExpectEq("{}", string(payload))
}

// Feeding an encoded frame to the decoder one byte at a time must yield the
// same message a single-shot Recv does, and only once the final byte has
// arrived (§8, scenario 5: "frame resync").
func (t *CodecTest) AssemblesAFrameSplitAcrossArbitrarilyManyReads() {
	AssertEq(nil, t.c.Send(uint8(codec.ActionGet), codec.GetRequest{Path: "/tmp/buhao/a"}))
	raw := t.buf.Bytes()

	pr, pw := io.Pipe()
	trickle := codec.New(pr)

	done := make(chan struct{})
	var gotAction uint8
	var gotPayload json.RawMessage
	var gotErr error
	go func() {
		gotAction, gotPayload, gotErr = trickle.Recv()
		close(done)
	}()

	for i, b := range raw {
		finishedEarly := false
		select {
		case <-done:
			finishedEarly = i < len(raw)-1
		default:
		}
		ExpectFalse(finishedEarly)

		_, err := pw.Write([]byte{b})
		AssertEq(nil, err)
	}

	<-done
	AssertEq(nil, gotErr)
	ExpectEq(uint8(codec.ActionGet), gotAction)

	var got codec.GetRequest
	AssertEq(nil, codec.Decode(gotPayload, &got))
	ExpectEq("/tmp/buhao/a", got.Path)
}

func (t *CodecTest) CanSendMultipleFramesBackToBack() {
	AssertEq(nil, t.c.Send(uint8(codec.ActionGet), codec.GetRequest{Path: "x"}))
	AssertEq(nil, t.c.Send(uint8(codec.ActionGet), codec.GetRequest{Path: "y"}))

	_, p1, err := t.c.Recv()
	AssertEq(nil, err)
	_, p2, err := t.c.Recv()
	AssertEq(nil, err)

	var g1, g2 codec.GetRequest
	AssertEq(nil, codec.Decode(p1, &g1))
	AssertEq(nil, codec.Decode(p2, &g2))
	ExpectEq("x", g1.Path)
	ExpectEq("y", g2.Path)
}
