// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package verrors centralizes the sentinel error values the arena, trie and
// mixer components raise, so callers can use errors.Is/errors.As instead of
// string matching.
package verrors

import "errors"

// Arena error kinds.
var (
	ErrOpenFailed = errors.New("arena: open failed")
	ErrBadMagic   = errors.New("arena: bad magic")
	ErrBadVersion = errors.New("arena: bad version")
	ErrBadEndian  = errors.New("arena: bad endian")
	ErrSizeLimit  = errors.New("arena: size ceiling exceeded")
	ErrMapFailed  = errors.New("arena: mmap failed")
	ErrLockFailed = errors.New("arena: flock failed")
	ErrNoMem      = errors.New("arena: allocation failed")
	ErrHeaderCRC  = errors.New("arena: header checksum mismatch")
)

// Trie error kinds.
var (
	ErrDuplicate        = errors.New("trie: duplicate key")
	ErrNotFound         = errors.New("trie: not found")
	ErrInvalidKeyLength = errors.New("trie: invalid key length")
)

// Mixer error kinds.
var (
	ErrResolveFailed     = errors.New("mixer: address resolution failed")
	ErrConnectFailed     = errors.New("mixer: connect failed")
	ErrHandshakeFailed   = errors.New("mixer: ssh handshake failed")
	ErrAuthFailed        = errors.New("mixer: authentication failed")
	ErrHostkeyMismatch   = errors.New("mixer: host key mismatch")
	ErrChannelOpenFailed = errors.New("mixer: channel open failed")
	ErrEOF               = errors.New("mixer: unexpected EOF")
	ErrFramingInvalid    = errors.New("mixer: invalid NETCONF framing")
	ErrProtocolViolation = errors.New("mixer: protocol violation")
)
