// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"math"

	"github.com/hybscloud/jsonstream/internal/bufpools"
	"github.com/hybscloud/jsonstream/internal/jsonstate"
	"github.com/hybscloud/jsonstream/internal/jsonwire"
	"github.com/hybscloud/jsonstream/jsonio"
)

// Encoder converts a sequence of caller-driven tokens into well-formed
// JSON bytes. The zero value is not usable; construct one with
// [NewEncoder] or [NewCoopEncoder].
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	wr          jsonio.ByteWriter
	cooperative bool

	buf    bufpools.Buffer
	flushN int // buf.Bytes()[:flushN] has already been handed to wr

	state   jsonstate.Machine
	options jsonOptions
	escape  *jsonwire.EscapeRunes

	offset int64 // total bytes successfully written to wr
	depth  int
	done   bool // top-level value complete and end-of-stream newline (if any) emitted
}

// NewEncoder constructs an Encoder that writes to w under the blocking
// I/O discipline: every method call either completes or returns an
// error.
func NewEncoder(w jsonio.ByteWriter, opts ...Options) *Encoder {
	e := new(Encoder)
	e.Reset(w, opts...)
	return e
}

// NewCoopEncoder constructs an Encoder that writes to w under the
// cooperative I/O discipline: a call that cannot make progress because w
// is not ready to accept more bytes returns an error satisfying
// [jsonio.IsWouldBlock] instead of blocking, and the same call may be
// retried later with no loss of state.
func NewCoopEncoder(w jsonio.CooperativeWriter, opts ...Options) *Encoder {
	e := new(Encoder)
	e.ResetCoop(w, opts...)
	return e
}

// Reset resets the encoder to write to w under the blocking discipline,
// as if it were newly constructed, reusing its internal buffer.
func (e *Encoder) Reset(w jsonio.ByteWriter, opts ...Options) {
	e.reset(w, false, opts...)
}

// ResetCoop resets the encoder to write to w under the cooperative
// discipline, reusing its internal buffer.
func (e *Encoder) ResetCoop(w jsonio.CooperativeWriter, opts ...Options) {
	e.reset(w, true, opts...)
}

func (e *Encoder) reset(w jsonio.ByteWriter, cooperative bool, opts ...Options) {
	if w == nil {
		panic("jsontext: invalid nil writer")
	}
	e.wr = w
	e.cooperative = cooperative
	e.buf.Reset()
	e.flushN = 0
	e.options = joinOptions(opts)
	e.state.Init(e.options.maxDepth)
	e.escape = jsonwire.MakeEscapeRunes(e.options.escapeHTML, e.options.escapeJS, e.options.escapeFunc)
	e.offset = 0
	e.depth = 0
	e.done = false
}

// StackDepth returns the number of currently open objects and arrays.
func (e *Encoder) StackDepth() int { return e.state.Depth() }

// OutputOffset returns the number of bytes already handed to the
// underlying writer. It does not include bytes still sitting in the
// internal buffer awaiting [Encoder.Flush].
func (e *Encoder) OutputOffset() int64 { return e.offset }

// WriteToken writes the next token of the document. See spec.md §4.1 for
// the full contract table.
func (e *Encoder) WriteToken(t Token) error {
	switch t.Kind() {
	case objectOKind:
		return e.writeDelimThen('{', e.state.PushObject)
	case objectCKind:
		return e.writeEnd('}', e.state.PopObject)
	case arrayOKind:
		return e.writeDelimThen('[', e.state.PushArray)
	case arrayCKind:
		return e.writeEnd(']', e.state.PopArray)
	case stringKind:
		return e.writeString(t.text)
	case nullKind:
		return e.writeLiteral("null")
	case trueKind:
		return e.writeLiteral("true")
	case falseKind:
		return e.writeLiteral("false")
	case numberKind:
		return e.writeNumber(t)
	default:
		panic("jsontext: invalid token")
	}
}

func (e *Encoder) writeDelimThen(b byte, push func() error) error {
	if err := e.writeDelim(Kind(b)); err != nil {
		return err
	}
	if err := push(); err != nil {
		return grammarError(err)
	}
	e.appendByte(b)
	e.depth++
	return e.maybeFlush()
}

func (e *Encoder) writeEnd(b byte, pop func() error) error {
	empty := e.state.Empty()
	if err := pop(); err != nil {
		return grammarError(err)
	}
	e.depth--
	if !empty && e.options.expand {
		e.appendByte('\n')
		e.appendIndent(e.depth)
	}
	e.appendByte(b)
	e.afterContainerValue()
	return e.maybeFlush()
}

func (e *Encoder) writeString(s string) error {
	if err := e.writeDelim(stringKind); err != nil {
		return err
	}
	dst, err := jsonwire.AppendQuote(nil, s, !e.options.allowInvalidUTF8, e.escape)
	if err != nil {
		return newSyntacticError("invalid UTF-8 within string").withOffset(e.currentOffset())
	}
	if err := e.state.AppendString(); err != nil {
		return grammarError(err)
	}
	e.appendRaw(dst)
	return e.finishScalar()
}

func (e *Encoder) writeLiteral(lit string) error {
	if err := e.writeDelim(Kind(lit[0])); err != nil {
		return err
	}
	if err := e.state.AppendLiteral(); err != nil {
		return grammarError(err)
	}
	e.appendRaw([]byte(lit))
	e.afterScalar()
	return e.maybeFlush()
}

func (e *Encoder) writeNumber(t Token) error {
	if err := e.writeDelim(numberKind); err != nil {
		return err
	}
	if t.text == "" && (math.IsNaN(t.num) || math.IsInf(t.num, 0)) {
		return newSyntacticError("unsupported value: " + floatSpecialName(t.num))
	}
	if err := e.state.AppendNumber(); err != nil {
		return grammarError(err)
	}
	dst := t.appendNumber(e.buf.AvailableBuffer())
	e.buf.Write(dst)
	e.afterScalar()
	return e.maybeFlush()
}

// writeDelim emits whatever separator (comma, colon, or pretty-printing
// whitespace) must precede a token of kind next, without yet recording
// the token itself in the container-stack.
func (e *Encoder) writeDelim(next Kind) error {
	if e.state.Done() {
		return newSyntacticError("unexpected token after top-level value").withOffset(e.currentOffset())
	}
	switch e.state.NeedDelim(jsonstate.Kind(next)) {
	case ':':
		if e.options.expand {
			e.appendByte(':')
			e.appendByte(' ')
		} else {
			e.appendByte(':')
		}
	case ',':
		e.appendByte(',')
		if e.options.expand {
			e.appendByte('\n')
			e.appendIndent(e.depth)
		}
	default:
		if e.options.expand && e.depth > 0 && e.state.Empty() {
			e.appendByte('\n')
			e.appendIndent(e.depth)
		}
	}
	return nil
}

func (e *Encoder) afterScalar() {
	if e.state.Depth() == 0 {
		e.finishRoot()
	}
}

func (e *Encoder) afterContainerValue() {
	if e.state.Depth() == 0 {
		e.finishRoot()
	}
}

func (e *Encoder) finishRoot() {
	if e.options.emitTrailingNewline && !e.done {
		e.appendByte('\n')
	}
	e.done = true
}

func (e *Encoder) finishScalar() error {
	e.afterScalar()
	return e.maybeFlush()
}

func (e *Encoder) appendByte(b byte)  { e.buf.Write([]byte{b}) }
func (e *Encoder) appendRaw(p []byte) { e.buf.Write(p) }
func (e *Encoder) appendIndent(depth int) {
	e.appendRaw([]byte(e.options.indentPrefix))
	indent := e.options.indent
	if indent == "" {
		indent = "  "
	}
	for i := 0; i < depth; i++ {
		e.appendRaw([]byte(indent))
	}
}

func (e *Encoder) currentOffset() int64 { return e.offset + int64(e.buf.Len()) }

// NeedFlush reports whether the internal buffer has grown large enough
// that the caller (or the next WriteToken call) should flush before
// continuing, to bound memory use on long-running encodes.
func (e *Encoder) NeedFlush() bool { return e.buf.Len() >= 64<<10 }

func (e *Encoder) maybeFlush() error {
	if e.NeedFlush() {
		// The token is already buffered; under the cooperative discipline a
		// would-block here is left for the caller's next Flush to resume.
		if err := e.Flush(); err != nil && !(e.cooperative && jsonio.Retryable(err)) {
			return err
		}
	}
	return nil
}

// Flush writes any buffered bytes to the underlying writer. Under the
// cooperative discipline, a partial write leaves the unwritten remainder
// buffered and returns an error satisfying [jsonio.IsWouldBlock]; the
// next call to Flush resumes from there.
func (e *Encoder) Flush() error {
	b := e.buf.Bytes()
	for e.flushN < len(b) {
		n, err := e.wr.Write(b[e.flushN:])
		e.flushN += n
		e.offset += int64(n)
		if err != nil {
			if e.cooperative && jsonio.Retryable(err) {
				return err
			}
			return &ioError{action: "write", err: err}
		}
		if e.cooperative {
			break
		}
	}
	if e.flushN == len(b) {
		e.buf.Reset()
		e.flushN = 0
	}
	return nil
}

func floatSpecialName(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, +1):
		return "+Inf"
	default:
		return "-Inf"
	}
}

