// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"errors"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/hybscloud/jsonstream/internal/jsonstate"
	"github.com/hybscloud/jsonstream/internal/jsonwire"
	"github.com/hybscloud/jsonstream/jsonio"
)

// Decoder validates JSON incrementally and lets the caller pull tokens
// at the structural positions it expects. The zero value is not usable;
// construct one with [NewDecoder] or [NewCoopDecoder].
//
// The same decoding logic services both I/O disciplines: every exported
// method begins by locating the next token from whatever has already
// been buffered, growing the buffer only when the buffered bytes are not
// enough to decide. Under the cooperative discipline, growing the buffer
// is the only place a call can report "not ready"; because nothing is
// consumed from the buffer until a token is fully identified, such a
// call leaves the Decoder exactly as it found it and may simply be
// invoked again.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	rd          jsonio.ByteReader
	cooperative bool

	buf    []byte // buf[pos:] is unconsumed input
	pos    int
	base   int64 // stream offset of buf[0]
	eof    bool  // true once rd has reported io.EOF
	pinned bool  // true while a ReadValue span holds a live index into buf; blocks compact

	state   jsonstate.Machine
	options jsonOptions

	peeked    bool
	peekKind  Kind
	peekStart int
}

// NewDecoder constructs a Decoder that reads from r under the blocking
// I/O discipline: every method call either completes or returns an
// error.
func NewDecoder(r jsonio.ByteReader, opts ...Options) *Decoder {
	d := new(Decoder)
	d.Reset(r, opts...)
	return d
}

// NewCoopDecoder constructs a Decoder that reads from r under the
// cooperative I/O discipline: a call that cannot make progress because r
// has no bytes ready returns an error satisfying [jsonio.IsWouldBlock]
// instead of blocking, and the same call may be retried later with no
// loss of state.
func NewCoopDecoder(r jsonio.CooperativeReader, opts ...Options) *Decoder {
	d := new(Decoder)
	d.ResetCoop(r, opts...)
	return d
}

// Reset resets the decoder to read from r under the blocking discipline,
// reusing its internal buffer.
func (d *Decoder) Reset(r jsonio.ByteReader, opts ...Options) {
	d.reset(r, false, opts...)
}

// ResetCoop resets the decoder to read from r under the cooperative
// discipline, reusing its internal buffer.
func (d *Decoder) ResetCoop(r jsonio.CooperativeReader, opts ...Options) {
	d.reset(r, true, opts...)
}

func (d *Decoder) reset(r jsonio.ByteReader, cooperative bool, opts ...Options) {
	if r == nil {
		panic("jsontext: invalid nil reader")
	}
	d.rd = r
	d.cooperative = cooperative
	d.buf = d.buf[:0]
	d.pos = 0
	d.base = 0
	d.eof = false
	d.pinned = false
	d.options = joinOptions(opts)
	d.state.Init(d.options.maxDepth)
	d.peeked = false
}

// StackDepth returns the number of currently open objects and arrays.
func (d *Decoder) StackDepth() int { return d.state.Depth() }

// InputOffset returns the current byte offset into the input stream.
func (d *Decoder) InputOffset() int64 { return d.base + int64(d.pos) }

func (d *Decoder) offsetAt(cur int) int64 { return d.base + int64(cur) }

// fill issues a single Read against the underlying source and appends
// whatever bytes it returns to buf. It never discards buffered bytes.
func (d *Decoder) fill() error {
	if d.eof {
		return io.EOF
	}
	if free := cap(d.buf) - len(d.buf); free < 4096 {
		next := make([]byte, len(d.buf), 2*cap(d.buf)+4096)
		copy(next, d.buf)
		d.buf = next
	}
	n, err := d.rd.Read(d.buf[len(d.buf):cap(d.buf)])
	d.buf = d.buf[:len(d.buf)+n]
	if n > 0 {
		return nil
	}
	switch {
	case errors.Is(err, io.EOF):
		d.eof = true
		return io.EOF
	case err != nil:
		if d.cooperative && jsonio.Retryable(err) {
			return err
		}
		return &ioError{action: "read", err: err}
	default:
		return nil // zero-byte, no-error read; caller loops and tries again
	}
}

// compact slides already-consumed bytes out of the front of buf, when it
// is worth the copy, so long-running decodes of large documents don't
// retain every byte ever read. Only safe to call when nothing refers to
// buf by index across the call: a pending peek is one such reference,
// and so is a ReadValue in progress (pinned is set for the whole of its
// scan and blocks compaction entirely).
func (d *Decoder) compact() {
	if d.peeked || d.pos == 0 || d.pinned {
		return
	}
	if d.pos < 32<<10 || d.pos*2 < len(d.buf) {
		return
	}
	n := copy(d.buf, d.buf[d.pos:])
	d.buf = d.buf[:n]
	d.base += int64(d.pos)
	d.pos = 0
}

// ensureAt grows buf (via fill) until buf[pos:pos+n] is available.
func (d *Decoder) ensureAt(pos, n int) error {
	for len(d.buf)-pos < n {
		if d.eof {
			return io.ErrUnexpectedEOF
		}
		if err := d.fill(); err != nil {
			return err
		}
	}
	return nil
}

// byteAt returns buf[cur], growing buf as needed.
func (d *Decoder) byteAt(cur int) (byte, error) {
	if err := d.ensureAt(cur, 1); err != nil {
		return 0, err
	}
	return d.buf[cur], nil
}

// skipWSAt advances cur past whitespace bytes, growing buf as needed. It
// stops at the first non-whitespace byte, or at end of input once eof is
// set; it never errors except for a read failure.
func (d *Decoder) skipWSAt(cur int) (int, error) {
	for {
		for cur < len(d.buf) && jsonwire.IsWhitespace(d.buf[cur]) {
			cur++
		}
		if cur < len(d.buf) || d.eof {
			return cur, nil
		}
		if err := d.fill(); err != nil && err != io.EOF {
			return cur, err
		}
	}
}

func kindOf(b byte) (Kind, error) {
	switch b {
	case '{', '}', '[', ']', '"', 'n', 't', 'f':
		return Kind(b), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return numberKind, nil
	default:
		return 0, errors.New("invalid character")
	}
}

func closingKindFor(s *jsonstate.Machine) Kind {
	if s.InObject() {
		return objectCKind
	}
	return arrayCKind
}

// peekToken locates, but does not consume, the next token: it skips
// whitespace and any required structural separator (':' or ',') given
// the current container-stack position, then classifies the first byte
// of the token itself. buf/pos are left untouched until the entire scan
// succeeds, so a failure (including a would-block) never loses state.
func (d *Decoder) peekToken() (Kind, int, error) {
	cur := d.pos
	var err error
	switch {
	case d.state.NeedValue():
		cur, err = d.skipWSAt(cur)
		if err != nil {
			return 0, 0, err
		}
		b, err := d.byteAt(cur)
		if err != nil {
			return 0, 0, err
		}
		if b != ':' {
			return 0, 0, newInvalidCharacterError([]byte{b}, "after object name").withOffset(d.offsetAt(cur))
		}
		cur++
		cur, err = d.skipWSAt(cur)
		if err != nil {
			return 0, 0, err
		}
	case !d.state.Empty():
		cur, err = d.skipWSAt(cur)
		if err != nil {
			return 0, 0, err
		}
		closeKind := closingKindFor(&d.state)
		b, err := d.byteAt(cur)
		if err != nil {
			return 0, 0, err
		}
		if Kind(b) == closeKind {
			d.pos = cur
			return closeKind, cur, nil
		}
		if b != ',' {
			return 0, 0, newInvalidCharacterError([]byte{b}, "after value").withOffset(d.offsetAt(cur))
		}
		cur++
		cur, err = d.skipWSAt(cur)
		if err != nil {
			return 0, 0, err
		}
		b2, err := d.byteAt(cur)
		if err != nil {
			return 0, 0, err
		}
		if Kind(b2) == closeKind {
			return 0, 0, newSyntacticError("unexpected trailing comma").withOffset(d.offsetAt(cur))
		}
	default:
		cur, err = d.skipWSAt(cur)
		if err != nil {
			return 0, 0, err
		}
	}
	if cur >= len(d.buf) {
		if d.state.Depth() == 0 && d.state.Done() {
			d.pos = cur
			return 0, cur, io.EOF
		}
		return 0, 0, io.ErrUnexpectedEOF
	}
	k, kerr := kindOf(d.buf[cur])
	if kerr != nil {
		return 0, 0, newInvalidCharacterError(d.buf[cur:cur+1], "at start of value").withOffset(d.offsetAt(cur))
	}
	d.pos = cur
	return k, cur, nil
}

// PeekKind reports the kind of the next token without consuming it. It
// returns io.EOF once the root value is complete and only whitespace (or
// nothing) remains.
func (d *Decoder) PeekKind() (Kind, error) {
	d.compact()
	if d.peeked {
		return d.peekKind, nil
	}
	k, start, err := d.peekToken()
	if err != nil {
		return 0, err
	}
	d.peeked = true
	d.peekKind = k
	d.peekStart = start
	return k, nil
}

// takeStart returns the cached peek position, consuming it, or performs
// a fresh peek if none was cached.
func (d *Decoder) takeStart() (Kind, int, error) {
	if d.peeked {
		d.peeked = false
		return d.peekKind, d.peekStart, nil
	}
	return d.peekToken()
}

// ReadToken reads and returns the next token, advancing past it.
func (d *Decoder) ReadToken() (tok Token, err error) {
	d.compact()
	k, start, err := d.takeStart()
	if err != nil {
		return Token{}, err
	}
	defer func() {
		// A would-block while reading the token's body leaves the token
		// peeked, so that retrying the call resumes from its start.
		if err != nil && d.cooperative && jsonio.Retryable(err) {
			d.peeked, d.peekKind, d.peekStart = true, k, start
		}
	}()
	switch k {
	case objectOKind:
		if err := d.state.PushObject(); err != nil {
			return Token{}, grammarError(err).withOffset(d.offsetAt(start))
		}
		d.pos = start + 1
		return ObjectStart, nil
	case objectCKind:
		if err := d.state.PopObject(); err != nil {
			return Token{}, grammarError(err).withOffset(d.offsetAt(start))
		}
		d.pos = start + 1
		return ObjectEnd, nil
	case arrayOKind:
		if err := d.state.PushArray(); err != nil {
			return Token{}, grammarError(err).withOffset(d.offsetAt(start))
		}
		d.pos = start + 1
		return ArrayStart, nil
	case arrayCKind:
		if err := d.state.PopArray(); err != nil {
			return Token{}, grammarError(err).withOffset(d.offsetAt(start))
		}
		d.pos = start + 1
		return ArrayEnd, nil
	case nullKind:
		if err := d.matchLiteralAt(start, "null"); err != nil {
			return Token{}, err
		}
		if err := d.state.AppendLiteral(); err != nil {
			return Token{}, grammarError(err).withOffset(d.offsetAt(start))
		}
		d.pos = start + len("null")
		return Null, nil
	case trueKind:
		if err := d.matchLiteralAt(start, "true"); err != nil {
			return Token{}, err
		}
		if err := d.state.AppendLiteral(); err != nil {
			return Token{}, grammarError(err).withOffset(d.offsetAt(start))
		}
		d.pos = start + len("true")
		return True, nil
	case falseKind:
		if err := d.matchLiteralAt(start, "false"); err != nil {
			return Token{}, err
		}
		if err := d.state.AppendLiteral(); err != nil {
			return Token{}, grammarError(err).withOffset(d.offsetAt(start))
		}
		d.pos = start + len("false")
		return False, nil
	case stringKind:
		end, err := d.scanStringAt(start)
		if err != nil {
			return Token{}, err
		}
		n, serr := jsonwire.ConsumeString(d.buf[start:end], !d.options.allowInvalidUTF8)
		if serr != nil {
			return Token{}, newSyntacticError(serr.Error()).withOffset(d.offsetAt(start + n))
		}
		dst, uerr := jsonwire.AppendUnquote(nil, d.buf[start:end])
		if uerr != nil {
			// ConsumeString above already rejects unpaired surrogates,
			// reporting a lone trailing high surrogate at the closing
			// quote; a failure here is located at the closing quote too.
			return Token{}, newSyntacticError(uerr.Error()).withOffset(d.offsetAt(end - 1))
		}
		if err := d.state.AppendString(); err != nil {
			return Token{}, grammarError(err).withOffset(d.offsetAt(start))
		}
		d.pos = end
		return String(string(dst)), nil
	case numberKind:
		end, err := d.scanNumberAt(start)
		if err != nil {
			return Token{}, err
		}
		n, nerr := jsonwire.ConsumeNumber(d.buf[start:end])
		if nerr != nil || start+n != end {
			if nerr == nil {
				nerr = jsonwire.ErrInvalidNumber
			}
			return Token{}, newSyntacticError(nerr.Error()).withOffset(d.offsetAt(start + n))
		}
		if err := d.state.AppendNumber(); err != nil {
			return Token{}, grammarError(err).withOffset(d.offsetAt(start))
		}
		text := string(d.buf[start:end])
		d.pos = end
		return Token{kind: numberKind, text: text}, nil
	default:
		return Token{}, newSyntacticError("unexpected end of input")
	}
}

func (d *Decoder) matchLiteralAt(start int, lit string) error {
	if err := d.ensureAt(start, len(lit)); err != nil {
		return err
	}
	for i := 0; i < len(lit); i++ {
		if d.buf[start+i] != lit[i] {
			return newInvalidCharacterError(d.buf[start+i:start+i+1], "in literal "+lit).withOffset(d.offsetAt(start + i))
		}
	}
	return nil
}

func isHexDigit(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}

// scanStringAt finds the end (exclusive, just past the closing quote) of
// the string literal starting at start, growing buf a byte at a time as
// needed. It validates escape-sequence shape (so it knows where the
// literal ends) but leaves UTF-8 and surrogate-pair validation to
// [jsonwire.ConsumeString] once the full span is known. It reports a
// "buffer too small" error, located at start, once the decoded length of
// the literal's contents exceeds the configured scan buffer capacity
// (see WithBufferSize).
func (d *Decoder) scanStringAt(start int) (int, error) {
	cur := start + 1
	decoded := 0
	for {
		if decoded > d.options.bufferSize {
			return 0, newBufferTooSmallError().withOffset(d.offsetAt(start))
		}
		b, err := d.byteAt(cur)
		if err != nil {
			return 0, err
		}
		switch {
		case b == '"':
			return cur + 1, nil
		case b == '\\':
			cur++
			b2, err := d.byteAt(cur)
			if err != nil {
				return 0, err
			}
			switch b2 {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				cur++
				decoded++
			case 'u':
				if err := d.ensureAt(cur+1, 4); err != nil {
					return 0, err
				}
				for i := cur + 1; i < cur+5; i++ {
					if !isHexDigit(d.buf[i]) {
						return 0, newSyntacticError("invalid \\u escape").withOffset(d.offsetAt(cur - 1))
					}
				}
				v, _ := strconv.ParseUint(string(d.buf[cur+1:cur+5]), 16, 32)
				if n := utf8.RuneLen(rune(v)); n > 0 {
					decoded += n
				} else {
					decoded += 2 // one half of a surrogate pair (4 bytes decoded)
				}
				cur += 5
			default:
				return 0, newSyntacticError("invalid escape sequence").withOffset(d.offsetAt(cur))
			}
		case b < 0x20:
			return 0, newSyntacticError("invalid control character within string").withOffset(d.offsetAt(cur))
		default:
			cur++
			decoded++
		}
	}
}

// scanNumberAt finds the end (exclusive) of the number literal starting
// at start, growing buf as needed. The literal ends at the first byte
// that cannot possibly continue a JSON number, or at end of input. It
// reports a "buffer too small" error, located at start, once the scanned
// span exceeds the configured scan buffer capacity (see WithBufferSize).
func (d *Decoder) scanNumberAt(start int) (int, error) {
	cur := start
	for {
		if cur-start > d.options.bufferSize {
			return 0, newBufferTooSmallError().withOffset(d.offsetAt(start))
		}
		if cur >= len(d.buf) {
			if d.eof {
				return cur, nil
			}
			if err := d.fill(); err != nil {
				if err == io.EOF {
					return cur, nil
				}
				return 0, err
			}
			continue
		}
		if !jsonwire.IsNumberContinuation(d.buf[cur]) {
			return cur, nil
		}
		cur++
	}
}

// ExpectStartObject consumes a '{' token, failing without consuming
// anything if the next token is not one.
func (d *Decoder) ExpectStartObject() error { return d.expectKind(objectOKind, "start of object") }

// ExpectEndObject consumes a '}' token.
func (d *Decoder) ExpectEndObject() error { return d.expectKind(objectCKind, "end of object") }

// ExpectStartArray consumes a '[' token.
func (d *Decoder) ExpectStartArray() error { return d.expectKind(arrayOKind, "start of array") }

// ExpectEndArray consumes a ']' token.
func (d *Decoder) ExpectEndArray() error { return d.expectKind(arrayCKind, "end of array") }

func (d *Decoder) expectKind(want Kind, what string) error {
	k, err := d.PeekKind()
	if err != nil {
		return err
	}
	if k != want {
		return newSyntacticError("expected " + what + ", found " + k.String()).withOffset(d.offsetAt(d.peekStart))
	}
	_, err = d.ReadToken()
	return err
}

// ExpectArrayEnd reports whether the array at the top of the stack is
// about to close; if so, it consumes the closing bracket. Callers loop
// on this before each element to implement spec.md's "expect value or
// end array" convenience without a separate method per scalar type.
func (d *Decoder) ExpectArrayEnd() (bool, error) {
	k, err := d.PeekKind()
	if err != nil {
		return false, err
	}
	if k != arrayCKind {
		return false, nil
	}
	_, err = d.ReadToken()
	return err == nil, err
}

// ExpectKey returns the next object member name. If the next token is
// instead the object's closing brace, it is consumed (popping the
// frame) and ok is false.
func (d *Decoder) ExpectKey() (name string, ok bool, err error) {
	k, err := d.PeekKind()
	if err != nil {
		return "", false, err
	}
	if k == objectCKind {
		_, err = d.ReadToken()
		return "", false, err
	}
	if k != stringKind {
		return "", false, newSyntacticError("expected string for object name, found " + k.String()).withOffset(d.offsetAt(d.peekStart))
	}
	t, err := d.ReadToken()
	if err != nil {
		return "", false, err
	}
	return t.String(), true, nil
}

// ExpectString reads a string-valued token.
func (d *Decoder) ExpectString() (string, error) {
	if err := d.expectScalarKind(stringKind); err != nil {
		return "", err
	}
	t, err := d.ReadToken()
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// ExpectBool reads a boolean-valued token.
func (d *Decoder) ExpectBool() (bool, error) {
	k, err := d.PeekKind()
	if err != nil {
		return false, err
	}
	if k != trueKind && k != falseKind {
		return false, newSyntacticError("expected boolean, found " + k.String()).withOffset(d.offsetAt(d.peekStart))
	}
	t, err := d.ReadToken()
	if err != nil {
		return false, err
	}
	return t.Bool(), nil
}

// ExpectNull consumes a null token.
func (d *Decoder) ExpectNull() error {
	if err := d.expectScalarKind(nullKind); err != nil {
		return err
	}
	_, err := d.ReadToken()
	return err
}

// ExpectFloat reads a number-valued token as a float64.
func (d *Decoder) ExpectFloat() (float64, error) {
	if err := d.expectScalarKind(numberKind); err != nil {
		return 0, err
	}
	t, err := d.ReadToken()
	if err != nil {
		return 0, err
	}
	return t.Float(), nil
}

// ExpectInt reads a number-valued token as an int64. It fails if the
// literal has a fractional or exponent part.
func (d *Decoder) ExpectInt() (int64, error) {
	if err := d.expectScalarKind(numberKind); err != nil {
		return 0, err
	}
	start := d.peekStartOrPos()
	t, err := d.ReadToken()
	if err != nil {
		return 0, err
	}
	v, perr := jsonwire.ParseInt([]byte(t.text))
	if perr != nil {
		return 0, newSyntacticError("number cannot be represented as an int64").withOffset(d.offsetAt(start))
	}
	return v, nil
}

// ExpectUint reads a number-valued token as a uint64. It fails if the
// literal has a fractional, exponent, or negative sign.
func (d *Decoder) ExpectUint() (uint64, error) {
	if err := d.expectScalarKind(numberKind); err != nil {
		return 0, err
	}
	start := d.peekStartOrPos()
	t, err := d.ReadToken()
	if err != nil {
		return 0, err
	}
	v, perr := jsonwire.ParseUint([]byte(t.text))
	if perr != nil {
		return 0, newSyntacticError("number cannot be represented as a uint64").withOffset(d.offsetAt(start))
	}
	return v, nil
}

func (d *Decoder) peekStartOrPos() int {
	if d.peeked {
		return d.peekStart
	}
	return d.pos
}

func (d *Decoder) expectScalarKind(want Kind) error {
	k, err := d.PeekKind()
	if err != nil {
		return err
	}
	if k != want {
		return newSyntacticError("expected " + want.String() + ", found " + k.String()).withOffset(d.offsetAt(d.peekStart))
	}
	return nil
}

// ExpectEndOfStream requires that, with the root value already complete,
// only whitespace remains before true end of input. It is idempotent:
// once it succeeds, it continues to succeed.
func (d *Decoder) ExpectEndOfStream() error {
	if !d.state.Done() {
		return newSyntacticError("top-level value not yet complete").withOffset(d.offsetAt(d.pos))
	}
	cur, err := d.skipWSAt(d.pos)
	if err != nil && err != io.EOF {
		return err
	}
	if cur < len(d.buf) {
		return newInvalidCharacterError(d.buf[cur:cur+1], "after top-level value").withOffset(d.offsetAt(cur))
	}
	d.pos = cur
	return nil
}

// ReadValue reads one complete JSON value (scalar, object, or array) and
// returns its raw, undecoded bytes as they appeared in the input. The
// returned Value is borrowed from the Decoder's internal buffer and is
// valid only until the next Decoder call.
func (d *Decoder) ReadValue() (Value, error) {
	k, start, err := d.takeStart()
	if err != nil {
		d.peeked = false
		return nil, err
	}
	d.peeked = true
	d.peekKind = k
	d.peekStart = start
	// Pin buf[start:] for the duration of the scan below: ReadToken
	// advances pos past start on the very first iteration, which would
	// otherwise make compact think buf[start:pos] is garbage consumed
	// input and slide it away out from under the Value this returns.
	d.pinned = true
	defer func() { d.pinned = false }()
	depth := 0
	for {
		t, err := d.ReadToken()
		if err != nil {
			return nil, err
		}
		switch t.Kind() {
		case objectOKind, arrayOKind:
			depth++
		case objectCKind, arrayCKind:
			depth--
		}
		if depth == 0 {
			break
		}
	}
	return Value(d.buf[start:d.pos]), nil
}

// SkipValue reads and discards one complete JSON value, without
// materializing its decoded form. It validates the value's
// well-formedness exactly as ReadValue does.
func (d *Decoder) SkipValue() error {
	_, err := d.ReadValue()
	return err
}
