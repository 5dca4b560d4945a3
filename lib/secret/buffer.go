// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer holds a credential outside the Go heap: in an anonymous
// mapping excluded from core dumps, locked against swapping when the
// memlock limit allows, and zeroed on Close.
//
// A Buffer must not be copied. Reading a closed Buffer panics.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	locked bool
	closed bool
}

// New maps a zero-filled buffer of size bytes.
//
// Containers often run with a memlock limit of a few kilobytes. When
// mlock fails with EPERM or ENOMEM the buffer is still returned, with
// Locked reporting false; every other protection still applies.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP): %w", err)
	}

	buffer := &Buffer{data: data}
	switch err := unix.Mlock(data); {
	case err == nil:
		buffer.locked = true
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.ENOMEM):
	default:
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock: %w", err)
	}
	return buffer, nil
}

// NewFromBytes moves source into a new Buffer: the bytes are copied
// and source is zeroed.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: cannot create buffer from empty source")
	}
	buffer, err := New(len(source))
	if err != nil {
		Zero(source)
		return nil, err
	}
	copy(buffer.data, source)
	Zero(source)
	return buffer, nil
}

// NewFromString copies source into a Buffer. The string itself stays
// on the heap until collected, so this is for values that already
// arrived as strings (a login response, a test fixture).
func NewFromString(source string) (*Buffer, error) {
	return NewFromBytes([]byte(source))
}

// Bytes returns the secret in place. The slice is invalid after Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contents()
}

// String returns a heap copy, for APIs that only take strings such as
// the Authorization header.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.contents())
}

// Len returns the secret's length, zero after Close.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Locked reports whether the memory is locked against swapping.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Close zeroes and unmaps the buffer. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	Zero(b.data)
	var errs []error
	if b.locked {
		if err := unix.Munlock(b.data); err != nil {
			errs = append(errs, fmt.Errorf("secret: munlock: %w", err))
		}
	}
	if err := unix.Munmap(b.data); err != nil {
		errs = append(errs, fmt.Errorf("secret: munmap: %w", err))
	}
	b.data = nil
	return errors.Join(errs...)
}

func (b *Buffer) contents() []byte {
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data
}

// Zero overwrites data with zeros.
func Zero(data []byte) {
	clear(data)
}
