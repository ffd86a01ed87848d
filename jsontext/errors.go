// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"errors"

	"github.com/hybscloud/jsonstream/internal/jsonstate"
	"github.com/hybscloud/jsonstream/internal/jsonwire"
)

const errorPrefix = "jsontext: "

// Error matches every error returned by this package according to errors.Is.
const Error = textError("jsontext error")

type textError string

func (e textError) Error() string { return string(e) }
func (e textError) Is(target error) bool {
	return e == target || target == Error
}

// ioError wraps a failure reported by the underlying byte source or sink.
// It is never synthesized by the engine itself; it only forwards whatever
// the host I/O capability returned.
type ioError struct {
	action string // "read" or "write"
	err    error
}

func (e *ioError) Error() string { return errorPrefix + e.action + " error: " + e.err.Error() }
func (e *ioError) Unwrap() error { return e.err }
func (e *ioError) Is(target error) bool {
	return e == target || target == Error || errors.Is(e.err, target)
}

// SyntacticError reports a JSON well-formedness violation: a grammar
// mismatch, an invalid UTF-8 sequence, a scan-buffer overflow, a
// max-depth violation, or a writer usage error. It carries the byte
// offset (relative to the start of the stream) at which the violation
// was detected.
type SyntacticError struct {
	// ByteOffset is the offset, relative to the start of the stream,
	// at which the error was detected.
	ByteOffset int64
	str        string
}

func (e *SyntacticError) Error() string { return errorPrefix + e.str }
func (e *SyntacticError) Is(target error) bool {
	return e == target || target == Error
}
func (e *SyntacticError) withOffset(pos int64) *SyntacticError {
	return &SyntacticError{ByteOffset: pos, str: e.str}
}

func newSyntacticError(str string) *SyntacticError { return &SyntacticError{str: str} }

// newBufferTooSmallError reports that a key or scalar value's decoded
// length would exceed the Decoder's scan buffer capacity (spec.md §4.2,
// §8 scenario 7; see WithBufferSize).
func newBufferTooSmallError() *SyntacticError { return newSyntacticError("buffer too small") }

func newInvalidCharacterError[Bytes ~[]byte | ~string](prefix Bytes, where string) *SyntacticError {
	return newSyntacticError("invalid character " + jsonwire.QuoteRune(prefix) + " " + where)
}

// grammarError adapts a jsonstate grammar violation to a SyntacticError.
func grammarError(err error) *SyntacticError {
	switch {
	case errors.Is(err, jsonstate.ErrMissingName):
		return newSyntacticError("missing string for object name")
	case errors.Is(err, jsonstate.ErrMissingValue):
		return newSyntacticError("missing value after object name")
	case errors.Is(err, jsonstate.ErrMismatchedDelim):
		return newSyntacticError("mismatching structural token for object or array")
	case errors.Is(err, jsonstate.ErrMaxDepth):
		return newSyntacticError("exceeded max depth")
	case errors.Is(err, jsonstate.ErrRootDone):
		return newSyntacticError("unexpected token after top-level value")
	default:
		return newSyntacticError(err.Error())
	}
}
