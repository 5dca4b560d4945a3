// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O utilities for talking to a Matrix
// homeserver.
//
// ReadResponse and ErrorBody bound every response body read at
// MaxResponseSize so that a misbehaving server cannot exhaust memory.
// IsConnectionError classifies transport failures that leave a pooled
// connection unusable, so callers know when to drop idle connections
// before the next poll.
package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// MaxResponseSize is the bound on homeserver response body reads: 64 MB.
// An initial /sync for an account in many busy rooms is the largest
// legitimate response; the limit sits far above that.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes. A
// body that exceeds the limit is an error rather than a silent
// truncation, because a truncated JSON document would fail to decode
// with a misleading syntax error.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

// ErrResponseTooLarge is returned by ReadResponse when the body exceeds
// MaxResponseSize.
var ErrResponseTooLarge = errors.New("netutil: response body exceeds size limit")

// ErrorBody reads an HTTP error response body and returns it as a string
// for diagnostic error messages. Read errors are ignored: a partial or
// empty body is still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	return string(data)
}

// IsConnectionError reports whether err is a connection-level failure:
// unexpected EOF, closed connection, broken pipe, connection reset, or
// connection refused. These usually mean the pooled TCP connection is
// dead, and the next request should open a fresh one.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET || errno == syscall.ECONNREFUSED
	}
	return false
}
