// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsontext

import (
	"sync"

	"github.com/hybscloud/jsonstream/internal/bufpools"
	"github.com/hybscloud/jsonstream/jsonio"
)

// In a sufficiently long-running stream, neither buffer is expected to
// grow arbitrarily large; a pooled value that did is not retained, to
// avoid pinning that memory for the lifetime of the process.
const maxRetainedBufferSize = 64 << 10

var encoderPool = &sync.Pool{New: func() any { return new(Encoder) }}

// GetEncoder returns a pooled Encoder reset to write to w, reducing
// allocations for callers that construct and discard many Encoders (for
// example, one per request). Return it with PutEncoder once done.
func GetEncoder(w jsonio.ByteWriter, opts ...Options) *Encoder {
	e := encoderPool.Get().(*Encoder)
	e.Reset(w, opts...)
	return e
}

// GetCoopEncoder is the cooperative-discipline counterpart to GetEncoder.
func GetCoopEncoder(w jsonio.CooperativeWriter, opts ...Options) *Encoder {
	e := encoderPool.Get().(*Encoder)
	e.ResetCoop(w, opts...)
	return e
}

// PutEncoder returns e to the pool. e must not be used afterward.
func PutEncoder(e *Encoder) {
	if e.buf.Cap() > maxRetainedBufferSize {
		e.buf = bufpools.Buffer{}
	}
	encoderPool.Put(e)
}

var decoderPool = &sync.Pool{New: func() any { return new(Decoder) }}

// GetDecoder returns a pooled Decoder reset to read from r. Return it
// with PutDecoder once done.
func GetDecoder(r jsonio.ByteReader, opts ...Options) *Decoder {
	d := decoderPool.Get().(*Decoder)
	d.Reset(r, opts...)
	return d
}

// GetCoopDecoder is the cooperative-discipline counterpart to GetDecoder.
func GetCoopDecoder(r jsonio.CooperativeReader, opts ...Options) *Decoder {
	d := decoderPool.Get().(*Decoder)
	d.ResetCoop(r, opts...)
	return d
}

// PutDecoder returns d to the pool. d must not be used afterward.
func PutDecoder(d *Decoder) {
	if cap(d.buf) > maxRetainedBufferSize {
		d.buf = nil
	}
	decoderPool.Put(d)
}
