// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonstate implements the container-stack push-down automaton
// shared by the encoder and decoder to validate that a sequence of
// tokens forms well-formed JSON.
package jsonstate

import "errors"

// Kind identifies the first byte of a token's grammar, with all number
// lead characters normalized to '0'.
type Kind byte

// Grammar errors returned by Machine methods.
var (
	ErrMissingName     = errors.New("missing string for object name")
	ErrMissingValue    = errors.New("missing value after object name")
	ErrMismatchedDelim = errors.New("mismatching structural token for object or array")
	ErrMaxDepth        = errors.New("max nesting depth exceeded")
	ErrRootDone        = errors.New("unexpected token after top-level value")
)

// entry encodes, in a single unsigned integer:
//   - whether this represents a JSON object or array, and
//   - how many elements have been appended to it so far.
//
// For an object, the count's parity distinguishes whether the next
// token must be a name (even) or a value (odd).
type entry uint64

const (
	typeMask   entry = 0x8000_0000_0000_0000
	typeObject entry = 0x8000_0000_0000_0000
	typeArray  entry = 0x0000_0000_0000_0000
	countMask  entry = 0x7fff_ffff_ffff_ffff
	countOdd   entry = 0x0000_0000_0000_0001
)

func (e entry) length() int64   { return int64(e & countMask) }
func (e entry) isObject() bool  { return e&typeMask == typeObject }
func (e entry) isArray() bool   { return e&typeMask == typeArray }
func (e entry) needValue() bool { return e&(typeMask|countOdd) == typeObject|countOdd }
func (e *entry) increment()     { *e++ }

// Machine is a stack where each entry represents one open JSON object or
// array. Init must be called before first use (a zero-value Machine has a
// depth limit of 0 and rejects every container); Init also resets it for
// reuse, to the state before any token of the (single) top-level value
// has been seen.
type Machine struct {
	stack    []entry
	rootDone bool
	maxDepth int
}

// DefaultMaxDepth is used when Init is called with maxDepth <= 0.
const DefaultMaxDepth = 10000

// Init (re)initializes the machine to represent an empty document,
// capping container nesting at maxDepth.
func (m *Machine) Init(maxDepth int) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	m.stack = m.stack[:0]
	m.rootDone = false
	m.maxDepth = maxDepth
}

// Depth reports the number of currently open containers.
func (m *Machine) Depth() int { return len(m.stack) }

// Done reports whether the single top-level value has been completed.
func (m *Machine) Done() bool { return m.rootDone }

func (m *Machine) top() *entry {
	if len(m.stack) == 0 {
		return nil
	}
	return &m.stack[len(m.stack)-1]
}

// AppendLiteral records that a JSON null/true/false token is next.
func (m *Machine) AppendLiteral() error {
	if e := m.top(); e != nil && e.needsName() {
		return ErrMissingName
	}
	if m.top() == nil && m.rootDone {
		return ErrRootDone
	}
	m.afterValue()
	return nil
}

// AppendString records that a JSON string token is next. Inside an
// object at name position, a string is the only valid token, so this
// never itself returns ErrMissingName.
func (m *Machine) AppendString() error {
	if m.top() == nil && m.rootDone {
		return ErrRootDone
	}
	m.afterValue()
	return nil
}

// AppendNumber records that a JSON number token is next.
func (m *Machine) AppendNumber() error { return m.AppendLiteral() }

func (m *Machine) afterValue() {
	if e := m.top(); e != nil {
		e.increment()
	} else {
		m.rootDone = true
	}
}

// PushObject records a JSON '{' token.
func (m *Machine) PushObject() error {
	if e := m.top(); e != nil && e.needsName() {
		return ErrMissingName
	}
	if m.top() == nil && m.rootDone {
		return ErrRootDone
	}
	if len(m.stack) >= m.maxDepth {
		return ErrMaxDepth
	}
	if e := m.top(); e != nil {
		e.increment()
	}
	m.stack = append(m.stack, typeObject)
	return nil
}

// PopObject records a JSON '}' token.
func (m *Machine) PopObject() error {
	e := m.top()
	switch {
	case e == nil || !e.isObject():
		return ErrMismatchedDelim
	case e.needValue():
		return ErrMissingValue
	}
	m.stack = m.stack[:len(m.stack)-1]
	if len(m.stack) == 0 {
		m.rootDone = true
	}
	return nil
}

// PushArray records a JSON '[' token.
func (m *Machine) PushArray() error {
	if e := m.top(); e != nil && e.needsName() {
		return ErrMissingName
	}
	if m.top() == nil && m.rootDone {
		return ErrRootDone
	}
	if len(m.stack) >= m.maxDepth {
		return ErrMaxDepth
	}
	if e := m.top(); e != nil {
		e.increment()
	}
	m.stack = append(m.stack, typeArray)
	return nil
}

// PopArray records a JSON ']' token.
func (m *Machine) PopArray() error {
	e := m.top()
	if e == nil || !e.isArray() {
		return ErrMismatchedDelim
	}
	m.stack = m.stack[:len(m.stack)-1]
	if len(m.stack) == 0 {
		m.rootDone = true
	}
	return nil
}

// needsName reports whether the next token inside this (object) entry
// must be a JSON string used as an object member name.
func (e entry) needsName() bool {
	return e.isObject() && e.length()%2 == 0
}

// NeedDelim reports the delimiter byte (':' or ',') that must appear
// before the next token of kind next, or 0 if none is required.
func (m *Machine) NeedDelim(next Kind) byte {
	e := m.top()
	if e == nil {
		return 0
	}
	switch {
	case e.needValue():
		return ':'
	case e.length() > 0 && next != '}' && next != ']':
		return ','
	}
	return 0
}

// AtObjectEnd reports whether the current container is an object
// that could legally be closed next (i.e. is at name position).
func (m *Machine) AtObjectEnd() bool {
	e := m.top()
	return e != nil && e.isObject() && !e.needValue()
}

// AtArrayStart reports whether the current container is an array
// with no elements appended yet.
func (m *Machine) AtArrayStart() bool {
	e := m.top()
	return e != nil && e.isArray() && e.length() == 0
}

// InObject reports whether the top container is an object.
func (m *Machine) InObject() bool {
	e := m.top()
	return e != nil && e.isObject()
}

// InArray reports whether the top container is an array.
func (m *Machine) InArray() bool {
	e := m.top()
	return e != nil && e.isArray()
}

// Empty reports whether the current container has had no elements
// appended to it yet. Used to decide whether a closing bracket is
// adjacent to its opening bracket (pretty-printing) or whether a
// comma/key is legal next (decoding).
func (m *Machine) Empty() bool {
	e := m.top()
	return e == nil || e.length() == 0
}

// NeedValue reports whether, inside the current object, a value is
// expected next (i.e. a name was just appended).
func (m *Machine) NeedValue() bool {
	e := m.top()
	return e != nil && e.needValue()
}
