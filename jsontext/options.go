// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import "github.com/hybscloud/jsonstream/internal/jsonstate"

// jsonOptions is the resolved, construction-time configuration for an
// Encoder or Decoder. There is no mutable configuration beyond
// construction time: no CLI flags, no config files, no environment
// variables.
type jsonOptions struct {
	allowDuplicateNames bool
	allowInvalidUTF8    bool
	escapeHTML          bool
	escapeJS            bool
	escapeFunc          func(rune) bool
	expand              bool
	indent              string
	indentPrefix        string
	maxDepth            int
	emitTrailingNewline bool
	bufferSize          int
}

// DefaultScanBufferSize is the capacity of the Decoder's scan buffer when
// WithBufferSize is not specified. It bounds the decoded length of any
// single key or scalar value; it does not bound the size of a document or
// of a ReadValue span, which stream incrementally as they are read.
const DefaultScanBufferSize = 1 << 20 // 1 MiB

func defaultOptions() jsonOptions {
	return jsonOptions{maxDepth: jsonstate.DefaultMaxDepth, bufferSize: DefaultScanBufferSize}
}

// Options configures the construction of an Encoder or Decoder. Each
// constructor below (AllowDuplicateNames, WithIndent, and so on) returns
// an Options value that NewEncoder/NewDecoder/NewCoopEncoder/
// NewCoopDecoder apply in order, so later values override earlier ones.
type Options struct {
	apply func(*jsonOptions)
}

func (o Options) applyOption(dst *jsonOptions) {
	if o.apply != nil {
		o.apply(dst)
	}
}

func joinOptions(opts []Options) jsonOptions {
	dst := defaultOptions()
	for _, o := range opts {
		o.applyOption(&dst)
	}
	return dst
}

// AllowDuplicateNames specifies that Decoder and Encoder should allow
// objects to have duplicate member names. Duplicate names are not
// detected with or without this option: the underlying container-stack
// does not track member names at all, and a caller that needs this check
// supplies it itself. It exists so that call sites reading this option can be
// future-proofed against a name-tracking implementation without an API
// break. Currently a no-op.
func AllowDuplicateNames(v bool) Options {
	return Options{apply: func(o *jsonOptions) { o.allowDuplicateNames = v }}
}

// AllowInvalidUTF8 specifies that Decoder and Encoder should allow the
// presence of invalid UTF-8 within string values without reporting an
// error. Invalid bytes are replaced with the Unicode replacement
// character, U+FFFD, when decoded, or rejected at encode time unless
// this option is set.
func AllowInvalidUTF8(v bool) Options {
	return Options{apply: func(o *jsonOptions) { o.allowInvalidUTF8 = v }}
}

// EscapeForHTML specifies that '<', '>', and '&' should be escaped
// within JSON strings to make it safe to embed within HTML. Per
// spec.md §9(a), this is off by default.
func EscapeForHTML(v bool) Options {
	return Options{apply: func(o *jsonOptions) { o.escapeHTML = v }}
}

// EscapeForJS specifies that U+2028 and U+2029 should be escaped within
// JSON strings to make it safe to embed within JavaScript.
func EscapeForJS(v bool) Options {
	return Options{apply: func(o *jsonOptions) { o.escapeJS = v }}
}

// WithEscapeFunc specifies a function to determine whether a particular
// rune should be escaped as a hexadecimal Unicode codepoint.
func WithEscapeFunc(fn func(rune) bool) Options {
	return Options{apply: func(o *jsonOptions) { o.escapeFunc = fn }}
}

// Expand specifies whether the Encoder should expand children of JSON
// objects and arrays onto separate lines, using the indent settings
// below. The default is false (compact output).
func Expand(v bool) Options {
	return Options{apply: func(o *jsonOptions) { o.expand = v }}
}

// WithIndent specifies the indent string used by a pretty-printing
// Encoder for each level of object or array nesting. Setting a non-empty
// indent implies Expand(true). The default is two spaces.
func WithIndent(indent string) Options {
	return Options{apply: func(o *jsonOptions) {
		o.indent = indent
		o.expand = true
	}}
}

// WithIndentPrefix specifies a string that is prepended before each line
// of indented output.
func WithIndentPrefix(prefix string) Options {
	return Options{apply: func(o *jsonOptions) { o.indentPrefix = prefix }}
}

// WithMaxDepth overrides the default limit on container nesting depth
// (see internal/jsonstate.DefaultMaxDepth). A value <= 0 restores the
// default.
func WithMaxDepth(depth int) Options {
	return Options{apply: func(o *jsonOptions) {
		if depth <= 0 {
			depth = jsonstate.DefaultMaxDepth
		}
		o.maxDepth = depth
	}}
}

// WithBufferSize overrides the capacity of the Decoder's scan buffer (see
// DefaultScanBufferSize). It bounds the decoded length the Decoder will
// accumulate for a single key or scalar value before reporting a
// "buffer too small" SyntacticError (spec.md §4.2, §8 scenario 7); it is
// unrelated to the growable read-ahead buffer used to stream a document
// or a ReadValue span. A value <= 0 restores the default.
func WithBufferSize(n int) Options {
	return Options{apply: func(o *jsonOptions) {
		if n <= 0 {
			n = DefaultScanBufferSize
		}
		o.bufferSize = n
	}}
}

// WithTrailingNewline specifies that the Encoder should emit a single
// trailing newline once the top-level value is complete. Off by
// default, per spec.md §4.1.
func WithTrailingNewline(v bool) Options {
	return Options{apply: func(o *jsonOptions) { o.emitTrailingNewline = v }}
}
