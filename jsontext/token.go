// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"strconv"

	"github.com/hybscloud/jsonstream/internal/jsonwire"
)

// Kind represents each possible JSON token kind with a distinct ASCII
// character: 'n' for null, 'f' for false, 't' for true, '"' for string,
// '0' for number, '{' and '}' for object start and end,
// '[' and ']' for array start and end, and
// zero for an invalid token.
type Kind byte

const (
	invalidKind Kind = 0
	nullKind    Kind = 'n'
	falseKind   Kind = 'f'
	trueKind    Kind = 't'
	stringKind  Kind = '"'
	numberKind  Kind = '0'
	objectOKind Kind = '{'
	objectCKind Kind = '}'
	arrayOKind  Kind = '['
	arrayCKind  Kind = ']'
)

// String returns the kind in a human-readable format.
func (k Kind) String() string {
	switch k {
	case nullKind:
		return "null"
	case falseKind:
		return "false"
	case trueKind:
		return "true"
	case stringKind:
		return "string"
	case numberKind:
		return "number"
	case objectOKind:
		return "{"
	case objectCKind:
		return "}"
	case arrayOKind:
		return "["
	case arrayCKind:
		return "]"
	default:
		return "<invalid jsontext.Kind: " + strconv.Itoa(int(k)) + ">"
	}
}

// Token represents a single lexical JSON token, which may be one of the
// following: a JSON literal (null, true, false), a JSON string, a JSON
// number, or a start/end delimiter for a JSON object or array.
// A Token cannot represent an entire JSON object or array, only its
// start or end.
//
// A Token obtained from a Decoder is only valid until the next call to a
// Decoder method. Use [Token.Clone] to obtain a Token that is safe to
// retain indefinitely.
type Token struct {
	kind Kind
	text string // for stringKind and numberKind, the unquoted/unparsed text
	num  float64
}

// Null is the JSON literal null.
var Null Token = Token{kind: nullKind}

// False is the JSON literal false.
var False Token = Token{kind: falseKind}

// True is the JSON literal true.
var True Token = Token{kind: trueKind}

// ObjectStart is the delimiter for the start of an object, as in '{'.
var ObjectStart Token = Token{kind: objectOKind}

// ObjectEnd is the delimiter for the end of an object, as in '}'.
var ObjectEnd Token = Token{kind: objectCKind}

// ArrayStart is the delimiter for the start of an array, as in '['.
var ArrayStart Token = Token{kind: arrayOKind}

// ArrayEnd is the delimiter for the end of an array, as in ']'.
var ArrayEnd Token = Token{kind: arrayCKind}

// Bool constructs a Token representing a JSON boolean.
func Bool(b bool) Token {
	if b {
		return True
	}
	return False
}

// String constructs a Token representing a JSON string.
func String(s string) Token {
	return Token{kind: stringKind, text: s}
}

// Float constructs a Token representing a JSON number from a float.
// The values NaN, +Inf, and -Inf are not representable in JSON; a Token
// built from one of them is accepted here but rejected with a
// [SyntacticError] when it reaches [Encoder.WriteToken], since JSON has
// no way to express a non-finite number. Callers that care should check
// with math.IsNaN or math.IsInf beforehand.
func Float(n float64) Token {
	return Token{kind: numberKind, num: n}
}

// Int constructs a Token representing a JSON number from a signed integer.
func Int(n int64) Token {
	return Token{kind: numberKind, num: float64(n), text: strconv.FormatInt(n, 10)}
}

// Uint constructs a Token representing a JSON number from an unsigned integer.
func Uint(n uint64) Token {
	return Token{kind: numberKind, num: float64(n), text: strconv.FormatUint(n, 10)}
}

// Kind returns the token kind.
func (t Token) Kind() Kind { return t.kind }

// Bool returns the value for a JSON boolean. It panics if the token kind
// is not a JSON boolean.
func (t Token) Bool() bool {
	switch t.kind {
	case trueKind:
		return true
	case falseKind:
		return false
	default:
		panic("jsontext: token kind is " + t.kind.String() + ", not a boolean")
	}
}

// String returns the unescaped string value for a JSON string.
// It panics if the token kind is not a JSON string.
func (t Token) String() string {
	if t.kind != stringKind {
		panic("jsontext: token kind is " + t.kind.String() + ", not a string")
	}
	return t.text
}

// Float returns the numeric value for a JSON number. It panics if the
// token kind is not a JSON number. The value may lose precision for
// numbers beyond the representable range of float64.
func (t Token) Float() float64 {
	if t.kind != numberKind {
		panic("jsontext: token kind is " + t.kind.String() + ", not a number")
	}
	if t.text != "" {
		if f, err := jsonwire.ParseFloat([]byte(t.text), 64); err == nil {
			return f
		}
	}
	return t.num
}

// Int returns the signed integer value for a JSON number,
// truncating any fractional component. It panics if the token kind is
// not a JSON number.
func (t Token) Int() int64 {
	if t.kind != numberKind {
		panic("jsontext: token kind is " + t.kind.String() + ", not a number")
	}
	if t.text != "" {
		if i, err := jsonwire.ParseInt([]byte(t.text)); err == nil {
			return i
		}
	}
	return int64(t.Float())
}

// Uint returns the unsigned integer value for a JSON number,
// truncating any fractional component. It panics if the token kind is
// not a JSON number.
func (t Token) Uint() uint64 {
	if t.kind != numberKind {
		panic("jsontext: token kind is " + t.kind.String() + ", not a number")
	}
	if t.text != "" {
		if u, err := jsonwire.ParseUint([]byte(t.text)); err == nil {
			return u
		}
	}
	return uint64(t.Float())
}

// Clone returns a Token that is independent of any underlying Decoder
// buffer. Tokens obtained directly from the constructors in this package
// (String, Int, etc.) are already independent.
func (t Token) Clone() Token {
	return Token{kind: t.kind, text: string([]byte(t.text)), num: t.num}
}

// Value is a single complete, raw JSON value (a scalar, object, or
// array) exactly as it appeared in the input, undecoded. A Value
// obtained from [Decoder.ReadValue] is only valid until the next call to
// a Decoder method; use [Value.Clone] to retain it.
type Value []byte

// String returns the value's raw JSON text.
func (v Value) String() string { return string(v) }

// Clone returns a Value that is independent of any underlying Decoder
// buffer.
func (v Value) Clone() Value { return append(Value(nil), v...) }

// appendNumber formats the token's numeric value, preferring the
// original source text (for numbers parsed off the wire, and for
// Int/Uint constructed tokens) so round trips are exact. Callers must
// have already rejected non-finite t.num (see Encoder.writeNumber);
// JSON has no representation for NaN or ±Inf.
func (t Token) appendNumber(dst []byte) []byte {
	if t.text != "" {
		return append(dst, t.text...)
	}
	return jsonwire.AppendFloat(dst, t.num, 64)
}
