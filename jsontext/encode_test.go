// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

func TestEncoderCompactObject(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	tokens := []Token{
		ObjectStart,
		String("name"), String("gopher"),
		String("age"), Int(42),
		String("tags"), ArrayStart, String("a"), String("b"), ArrayEnd,
		ObjectEnd,
	}
	for _, tok := range tokens {
		if err := e.WriteToken(tok); err != nil {
			t.Fatalf("WriteToken(%v): %v", tok, err)
		}
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := `{"name":"gopher","age":42,"tags":["a","b"]}`
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestEncoderPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf, WithIndent("  "))
	for _, tok := range []Token{
		ObjectStart,
		String("a"), ArrayStart, Int(1), Int(2), ArrayEnd,
		ObjectEnd,
	} {
		if err := e.WriteToken(tok); err != nil {
			t.Fatalf("WriteToken(%v): %v", tok, err)
		}
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := "{\n  \"a\": [\n    1,\n    2\n  ]\n}"
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestEncoderEmptyContainers(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf, WithIndent("  "))
	for _, tok := range []Token{ObjectStart, ObjectEnd} {
		if err := e.WriteToken(tok); err != nil {
			t.Fatalf("WriteToken(%v): %v", tok, err)
		}
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got, want := buf.String(), "{}"; got != want {
		t.Fatalf("empty object pretty-printed as %q, want %q", got, want)
	}
}

func TestEncoderStringEscaping(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	if err := e.WriteToken(String("a\"b\\c\nd<e>")); err != nil {
		t.Fatalf("WriteToken: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := `"a\"b\\c\nd<e>"`
	if got := buf.String(); got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestEncoderEscapeForHTML(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf, EscapeForHTML(true))
	if err := e.WriteToken(String("<script>")); err != nil {
		t.Fatalf("WriteToken: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "\\u003c") {
		t.Fatalf("output = %q, want HTML-escaped '<'", got)
	}
}

func TestEncoderMismatchedDelimiter(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	if err := e.WriteToken(ArrayStart); err != nil {
		t.Fatalf("WriteToken(ArrayStart): %v", err)
	}
	if err := e.WriteToken(ObjectEnd); err == nil {
		t.Fatalf("WriteToken(ObjectEnd) after ArrayStart: want error")
	}
}

func TestEncoderRejectsTokenAfterTopLevelValue(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	if err := e.WriteToken(Int(1)); err != nil {
		t.Fatalf("WriteToken(1): %v", err)
	}
	if err := e.WriteToken(Int(2)); err == nil {
		t.Fatalf("second top-level token: want error")
	}
}

func TestEncoderRejectsNonFiniteFloat(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	if err := e.WriteToken(Float(math.NaN())); err == nil {
		t.Fatalf("WriteToken(NaN): want error")
	}
	var buf2 bytes.Buffer
	e2 := NewEncoder(&buf2)
	if err := e2.WriteToken(Float(0)); err != nil {
		t.Fatalf("zero float: %v", err)
	}
}

func TestEncoderStackDepthAndOutputOffset(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	if e.StackDepth() != 0 {
		t.Fatalf("StackDepth() before any token = %d, want 0", e.StackDepth())
	}
	if err := e.WriteToken(ObjectStart); err != nil {
		t.Fatalf("WriteToken: %v", err)
	}
	if e.StackDepth() != 1 {
		t.Fatalf("StackDepth() inside object = %d, want 1", e.StackDepth())
	}
	if err := e.WriteToken(ObjectEnd); err != nil {
		t.Fatalf("WriteToken: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if e.OutputOffset() != int64(buf.Len()) {
		t.Fatalf("OutputOffset() = %d, want %d", e.OutputOffset(), buf.Len())
	}
}

func TestEncoderTrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf, WithTrailingNewline(true))
	if err := e.WriteToken(Int(1)); err != nil {
		t.Fatalf("WriteToken: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got, want := buf.String(), "1\n"; got != want {
		t.Fatalf("output = %q, want %q", got, want)
	}
}

func TestEncoderResetReusesBuffer(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	e := NewEncoder(&buf1)
	if err := e.WriteToken(Int(1)); err != nil {
		t.Fatalf("WriteToken: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	e.Reset(&buf2)
	if err := e.WriteToken(Int(2)); err != nil {
		t.Fatalf("WriteToken after Reset: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buf1.String() != "1" || buf2.String() != "2" {
		t.Fatalf("buf1=%q buf2=%q, want 1 / 2", buf1.String(), buf2.String())
	}
}
