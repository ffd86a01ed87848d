// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"code.hybscloud.com/iox"
	"github.com/hybscloud/jsonstream/jsonio"
)

func TestDecoderReadsCompactObject(t *testing.T) {
	d := NewDecoder(strings.NewReader(`{"a":"hello","b":"world"}`))
	if err := d.ExpectStartObject(); err != nil {
		t.Fatalf("ExpectStartObject: %v", err)
	}
	for _, want := range [][2]string{{"a", "hello"}, {"b", "world"}} {
		name, ok, err := d.ExpectKey()
		if err != nil || !ok {
			t.Fatalf("ExpectKey: ok=%v err=%v", ok, err)
		}
		if name != want[0] {
			t.Fatalf("key = %q, want %q", name, want[0])
		}
		v, err := d.ExpectString()
		if err != nil {
			t.Fatalf("ExpectString: %v", err)
		}
		if v != want[1] {
			t.Fatalf("value = %q, want %q", v, want[1])
		}
	}
	_, ok, err := d.ExpectKey()
	if err != nil || ok {
		t.Fatalf("final ExpectKey: ok=%v err=%v, want ok=false err=nil", ok, err)
	}
	if err := d.ExpectEndOfStream(); err != nil {
		t.Fatalf("ExpectEndOfStream: %v", err)
	}
	// Idempotence (spec.md §8).
	if err := d.ExpectEndOfStream(); err != nil {
		t.Fatalf("second ExpectEndOfStream: %v", err)
	}
}

func TestDecoderReadsPrettyPrinted(t *testing.T) {
	in := "{\n  \"a\": \"hello\",\n  \"b\": \"world\"\n}"
	d := NewDecoder(strings.NewReader(in))
	if err := d.ExpectStartObject(); err != nil {
		t.Fatalf("ExpectStartObject: %v", err)
	}
	name, ok, err := d.ExpectKey()
	if err != nil || !ok || name != "a" {
		t.Fatalf("ExpectKey = %q, %v, %v", name, ok, err)
	}
	if v, err := d.ExpectString(); err != nil || v != "hello" {
		t.Fatalf("ExpectString = %q, %v", v, err)
	}
}

func TestDecoderEscapeHandling(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	if err := e.WriteToken(String("he said \"hi\"\n")); err != nil {
		t.Fatalf("WriteToken: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if want := `"he said \"hi\"\n"`; buf.String() != want {
		t.Fatalf("encoded = %q, want %q", buf.String(), want)
	}
	d := NewDecoder(bytes.NewReader(buf.Bytes()))
	got, err := d.ExpectString()
	if err != nil {
		t.Fatalf("ExpectString: %v", err)
	}
	if want := "he said \"hi\"\n"; got != want {
		t.Fatalf("decoded = %q, want %q", got, want)
	}
}

func TestDecoderSurrogatePair(t *testing.T) {
	d := NewDecoder(strings.NewReader("\"\\uD834\\uDD1E\""))
	got, err := d.ExpectString()
	if err != nil {
		t.Fatalf("ExpectString: %v", err)
	}
	if want := "\U0001D11E"; got != want {
		t.Fatalf("decoded = %q, want %q", got, want)
	}
}

func TestDecoderUnpairedSurrogateFails(t *testing.T) {
	d := NewDecoder(strings.NewReader(`"\uD834"`))
	if _, err := d.ExpectString(); err == nil {
		t.Fatalf("unpaired surrogate: want error")
	}
}

func TestDecoderTrailingGarbage(t *testing.T) {
	d := NewDecoder(strings.NewReader(`{"a":1} x`))
	if err := d.ExpectStartObject(); err != nil {
		t.Fatalf("ExpectStartObject: %v", err)
	}
	name, ok, err := d.ExpectKey()
	if err != nil || !ok || name != "a" {
		t.Fatalf("ExpectKey = %q, %v, %v", name, ok, err)
	}
	if v, err := d.ExpectInt(); err != nil || v != 1 {
		t.Fatalf("ExpectInt = %d, %v", v, err)
	}
	if _, ok, err := d.ExpectKey(); err != nil || ok {
		t.Fatalf("ExpectKey at end of object: ok=%v err=%v", ok, err)
	}
	var serr *SyntacticError
	if err := d.ExpectEndOfStream(); err == nil || !errors.As(err, &serr) {
		t.Fatalf("ExpectEndOfStream with trailing garbage: err = %v, want *SyntacticError", err)
	}
}

func TestDecoderReadTokenMismatchDoesNotConsume(t *testing.T) {
	d := NewDecoder(strings.NewReader(`"oops"`))
	if err := d.ExpectStartObject(); err == nil {
		t.Fatalf("ExpectStartObject on a string: want error")
	}
	// The mismatch must not have consumed the string; it should still be
	// readable as what it actually is.
	v, err := d.ExpectString()
	if err != nil || v != "oops" {
		t.Fatalf("ExpectString after failed ExpectStartObject: %q, %v", v, err)
	}
}

func TestDecoderArrayOfValues(t *testing.T) {
	d := NewDecoder(strings.NewReader(`[1,2,3]`))
	if err := d.ExpectStartArray(); err != nil {
		t.Fatalf("ExpectStartArray: %v", err)
	}
	var got []int64
	for {
		end, err := d.ExpectArrayEnd()
		if err != nil {
			t.Fatalf("ExpectArrayEnd: %v", err)
		}
		if end {
			break
		}
		v, err := d.ExpectInt()
		if err != nil {
			t.Fatalf("ExpectInt: %v", err)
		}
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("got = %v, want [1 2 3]", got)
	}
}

func TestDecoderSkipValue(t *testing.T) {
	d := NewDecoder(strings.NewReader(`{"a":[1,2,{"x":true}],"b":null}`))
	if err := d.ExpectStartObject(); err != nil {
		t.Fatalf("ExpectStartObject: %v", err)
	}
	name, ok, err := d.ExpectKey()
	if err != nil || !ok || name != "a" {
		t.Fatalf("ExpectKey: %q %v %v", name, ok, err)
	}
	if err := d.SkipValue(); err != nil {
		t.Fatalf("SkipValue: %v", err)
	}
	name, ok, err = d.ExpectKey()
	if err != nil || !ok || name != "b" {
		t.Fatalf("ExpectKey after skip: %q %v %v", name, ok, err)
	}
	if err := d.ExpectNull(); err != nil {
		t.Fatalf("ExpectNull: %v", err)
	}
}

func TestDecoderReadValueRawBytes(t *testing.T) {
	d := NewDecoder(strings.NewReader(`[{"n":1},2]`))
	if err := d.ExpectStartArray(); err != nil {
		t.Fatalf("ExpectStartArray: %v", err)
	}
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if got := v.String(); got != `{"n":1}` {
		t.Fatalf("ReadValue = %q, want %q", got, `{"n":1}`)
	}
}

// Buffer overflow (spec.md §8 scenario 7).
func TestDecoderBufferTooSmall(t *testing.T) {
	in := `{"` + strings.Repeat("x", 64) + `":1}`
	d := NewDecoder(strings.NewReader(in), WithBufferSize(16))
	if err := d.ExpectStartObject(); err != nil {
		t.Fatalf("ExpectStartObject: %v", err)
	}
	_, _, err := d.ExpectKey()
	var serr *SyntacticError
	if err == nil || !errors.As(err, &serr) {
		t.Fatalf("ExpectKey: err = %v, want *SyntacticError", err)
	}
	if serr.Error() == "" || !strings.Contains(serr.Error(), "buffer too small") {
		t.Fatalf("ExpectKey error = %q, want it to mention %q", serr.Error(), "buffer too small")
	}
	if serr.ByteOffset != 1 {
		t.Fatalf("ByteOffset = %d, want 1 (the key's opening quote)", serr.ByteOffset)
	}
}

func TestDecoderReadValueSpanningCompaction(t *testing.T) {
	// Large enough to cross compact's 32 KiB threshold partway through the
	// ReadValue scan, which previously could slide buf[start:] out from
	// under the returned Value once d.peeked was cleared after the first
	// token (see the compact/pinned doc comment).
	n := 40000
	var b strings.Builder
	b.WriteString(`[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('1')
	}
	b.WriteString(`]`)
	want := b.String()

	d := NewDecoder(strings.NewReader(`[` + want + `,2]`))
	if err := d.ExpectStartArray(); err != nil {
		t.Fatalf("ExpectStartArray: %v", err)
	}
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if got := v.String(); got != want {
		t.Fatalf("ReadValue returned %d bytes not matching the %d-byte input array", len(got), len(want))
	}
	got, err := d.ExpectInt()
	if err != nil || got != 2 {
		t.Fatalf("ExpectInt after ReadValue: %d, %v, want 2", got, err)
	}
}

func TestDecoderStackDepthAndInputOffset(t *testing.T) {
	d := NewDecoder(strings.NewReader(`[[1]]`))
	if d.StackDepth() != 0 {
		t.Fatalf("StackDepth() = %d, want 0", d.StackDepth())
	}
	if err := d.ExpectStartArray(); err != nil {
		t.Fatalf("ExpectStartArray: %v", err)
	}
	if d.StackDepth() != 1 {
		t.Fatalf("StackDepth() = %d, want 1", d.StackDepth())
	}
	if d.InputOffset() != 1 {
		t.Fatalf("InputOffset() = %d, want 1", d.InputOffset())
	}
}

// chunkedReader is an io.Reader that serves buf in pieces of size n, never
// reporting io.EOF together with the final chunk's bytes, matching the usual
// net.Conn contract and exercising the Decoder's multi-Read resumption path.
type chunkedReader struct {
	buf []byte
	n   int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		return 0, io.EOF
	}
	n := r.n
	if n > len(p) {
		n = len(p)
	}
	if n > len(r.buf) {
		n = len(r.buf)
	}
	copy(p, r.buf[:n])
	r.buf = r.buf[n:]
	return n, nil
}

func TestDecoderAcrossManySmallReads(t *testing.T) {
	r := &chunkedReader{buf: []byte(`{"a":"hello","b":[1,2,3]}`), n: 1}
	d := NewDecoder(r)
	if err := d.ExpectStartObject(); err != nil {
		t.Fatalf("ExpectStartObject: %v", err)
	}
	name, ok, err := d.ExpectKey()
	if err != nil || !ok || name != "a" {
		t.Fatalf("ExpectKey: %q %v %v", name, ok, err)
	}
	if v, err := d.ExpectString(); err != nil || v != "hello" {
		t.Fatalf("ExpectString: %q %v", v, err)
	}
	name, ok, err = d.ExpectKey()
	if err != nil || !ok || name != "b" {
		t.Fatalf("ExpectKey: %q %v %v", name, ok, err)
	}
	if err := d.ExpectStartArray(); err != nil {
		t.Fatalf("ExpectStartArray: %v", err)
	}
	for i := int64(1); i <= 3; i++ {
		v, err := d.ExpectInt()
		if err != nil || v != i {
			t.Fatalf("ExpectInt = %d, %v, want %d", v, err, i)
		}
	}
	if err := d.ExpectEndArray(); err != nil {
		t.Fatalf("ExpectEndArray: %v", err)
	}
	if err := d.ExpectEndObject(); err != nil {
		t.Fatalf("ExpectEndObject: %v", err)
	}
}

// coopReader reports jsonio's would-block sentinel until it has been polled
// a fixed number of times, then serves the whole buffer at once.
type coopReader struct {
	buf             []byte
	wouldBlockUntil int
	polls           int
}

func (r *coopReader) Read(p []byte) (int, error) {
	r.polls++
	if r.polls <= r.wouldBlockUntil {
		return 0, iox.ErrWouldBlock
	}
	if len(r.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func TestCoopDecoderRetriesOnWouldBlock(t *testing.T) {
	r := &coopReader{buf: []byte(`"hi"`), wouldBlockUntil: 2}
	d := NewCoopDecoder(r)
	var got string
	var err error
	for i := 0; i < 10; i++ {
		got, err = d.ExpectString()
		if err == nil {
			break
		}
		if !jsonio.IsWouldBlock(err) {
			t.Fatalf("ExpectString: unexpected error %v", err)
		}
	}
	if err != nil {
		t.Fatalf("ExpectString never succeeded: %v", err)
	}
	if got != "hi" {
		t.Fatalf("got = %q, want %q", got, "hi")
	}
}
