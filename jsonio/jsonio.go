// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonio defines the byte-source and byte-sink capabilities that
// drive a jsontext Encoder or Decoder, and the two I/O disciplines built
// on top of them: blocking and cooperative.
//
// Under the blocking discipline, the underlying reader or writer always
// eventually makes progress or fails; a single call to an Encoder or
// Decoder method runs to completion.
//
// Under the cooperative discipline, the underlying stream may decline to
// make progress right now. Such streams signal this by returning
// [code.hybscloud.com/iox.ErrWouldBlock] (no bytes are currently
// available, or the sink's buffer is currently full) per the convention
// used throughout code.hybscloud.com/iox and code.hybscloud.com/framer.
// An engine operating under this discipline reports the same error back
// to its caller instead of blocking the calling goroutine, and retains
// enough internal state to resume exactly where it left off the next
// time the method is called.
//
// This package, and everything it imports (net,
// code.hybscloud.com/iox, code.hybscloud.com/framer), is a collaborator
// external to the core codec: a program that only imports jsontext and
// drives it over an io.Reader/io.Writer it already has in hand never
// needs to import jsonio at all.
package jsonio

import (
	"errors"
	"io"
	"net"
	"time"

	"code.hybscloud.com/framer"
	"code.hybscloud.com/iox"
)

// ByteReader is the blocking byte-source capability: Read either returns
// progress, io.EOF, or a failure, per the usual io.Reader contract.
type ByteReader = io.Reader

// ByteWriter is the blocking byte-sink capability.
type ByteWriter = io.Writer

// CooperativeReader is the non-blocking byte-source capability. Read may
// return (0, iox.ErrWouldBlock) to indicate no bytes are available yet
// without having reached end of stream.
type CooperativeReader = io.Reader

// CooperativeWriter is the non-blocking byte-sink capability. Write may
// return (n, iox.ErrWouldBlock), with n possibly less than len(p), to
// indicate that the sink accepted a prefix and cannot currently accept
// more.
type CooperativeWriter = io.Writer

// IsWouldBlock reports whether err indicates that a cooperative stream
// has no more progress to offer right now, and that the caller should
// retry later rather than treat this as a terminal failure.
func IsWouldBlock(err error) bool {
	return errors.Is(err, iox.ErrWouldBlock)
}

// IsMore reports whether err indicates that a cooperative stream made
// partial progress on a logical unit larger than one Read/Write call and
// expects to be called again to continue it, as distinct from
// [IsWouldBlock] which indicates no progress at all.
func IsMore(err error) bool {
	return errors.Is(err, iox.ErrMore)
}

// Retryable reports whether err is one a cooperative-discipline Decoder
// or Encoder should surface to its caller as "try again later" rather
// than as a fatal stream error.
func Retryable(err error) bool {
	return IsWouldBlock(err) || IsMore(err)
}

// FromIOX returns rw unchanged. It documents the expectation that rw
// already follows the code.hybscloud.com/iox convention of reporting
// [iox.ErrWouldBlock] / [iox.ErrMore] from Read and Write instead of
// blocking, which is what qualifies it as a [CooperativeReader] or
// [CooperativeWriter]. Used to make call sites self-documenting when
// wiring an iox-native stream into a cooperative jsontext engine.
func FromIOX(rw io.ReadWriter) io.ReadWriter { return rw }

// FromFramer wraps a stream transport (such as a TCP connection) so that
// Read yields exactly one framer-delimited message's bytes at a time and
// Write delimits each call's payload as its own frame. This lets a
// jsontext engine read or write one length-framed JSON document per
// message, which is the natural fit for "very large documents" or for
// message-oriented JSON-over-a-stream. The returned reader and writer
// honor the iox would-block convention whenever the underlying conn
// does, so they work under either I/O discipline.
func FromFramer(conn io.ReadWriter, opts ...framer.Option) (CooperativeReader, CooperativeWriter) {
	r := framer.NewReader(readerOf(conn), opts...)
	w := framer.NewWriter(writerOf(conn), opts...)
	return r, w
}

func readerOf(rw io.ReadWriter) io.Reader { return rw }
func writerOf(rw io.ReadWriter) io.Writer { return rw }

// pollTimeout is the deadline window used by FromNetConn to turn a
// blocking net.Conn into a cooperative one: a read or write that cannot
// complete within this window is reported as iox.ErrWouldBlock instead
// of as a timeout failure.
const pollTimeout = 1 * time.Millisecond

// FromNetConn adapts conn into a [CooperativeReader]/[CooperativeWriter]
// pair by polling it with a short read/write deadline and translating a
// resulting deadline-exceeded error into [iox.ErrWouldBlock]. conn must
// support SetReadDeadline/SetWriteDeadline; most net.Conn implementations
// do.
func FromNetConn(conn net.Conn) (CooperativeReader, CooperativeWriter) {
	return &coopConnReader{conn: conn}, &coopConnWriter{conn: conn}
}

type coopConnReader struct{ conn net.Conn }

func (r *coopConnReader) Read(p []byte) (int, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(pollTimeout)); err != nil {
		return 0, err
	}
	n, err := r.conn.Read(p)
	if err != nil && isTimeout(err) {
		return n, iox.ErrWouldBlock
	}
	return n, err
}

type coopConnWriter struct{ conn net.Conn }

func (w *coopConnWriter) Write(p []byte) (int, error) {
	if err := w.conn.SetWriteDeadline(time.Now().Add(pollTimeout)); err != nil {
		return 0, err
	}
	n, err := w.conn.Write(p)
	if err != nil && isTimeout(err) {
		return n, iox.ErrWouldBlock
	}
	return n, err
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
