// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package arena

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/Juniper/juise-sub000/internal/verrors"
)

// HeaderSize is the fixed on-disk size of Header, in bytes.
const HeaderSize = 64

// Magic identifies a vatmix arena file. Version is bumped whenever the
// on-disk layout changes incompatibly.
var Magic = [8]byte{'V', 'A', 'T', 'M', 'I', 'X', '0', '1'}

// Version is the current on-disk header version.
const Version uint32 = 1

// endianMarker is written and re-read verbatim; a mismatch on open means the
// file was produced by a host with a different byte order than this one.
const endianMarker uint32 = 0x01020304

// Header is the fixed leading record of an arena file. All multi-byte
// fields are little-endian on disk regardless of host byte order; only
// endianMarker round-trips the raw bytes to catch a genuinely foreign file.
type Header struct {
	Version             uint32
	Flags               uint32
	Generation          uint32
	CommittedGeneration uint32
	Top                 Offset
	Size                Offset
	RootOffset          Offset
}

func (h *Header) encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	copy(buf[0:8], Magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	binary.NativeEndian.PutUint32(buf[12:16], endianMarker)
	binary.LittleEndian.PutUint32(buf[16:20], h.Flags)
	binary.LittleEndian.PutUint32(buf[20:24], h.Generation)
	binary.LittleEndian.PutUint32(buf[24:28], h.CommittedGeneration)
	binary.LittleEndian.PutUint64(buf[32:40], uint64(h.Top))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(h.Size))
	binary.LittleEndian.PutUint64(buf[48:56], uint64(h.RootOffset))
	binary.LittleEndian.PutUint32(buf[56:60], crc32.ChecksumIEEE(buf[0:56]))
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, verrors.ErrBadMagic
	}
	if string(buf[0:8]) != string(Magic[:]) {
		return h, verrors.ErrBadMagic
	}
	h.Version = binary.LittleEndian.Uint32(buf[8:12])
	if h.Version != Version {
		return h, verrors.ErrBadVersion
	}
	if binary.NativeEndian.Uint32(buf[12:16]) != endianMarker {
		return h, verrors.ErrBadEndian
	}
	h.Flags = binary.LittleEndian.Uint32(buf[16:20])
	h.Generation = binary.LittleEndian.Uint32(buf[20:24])
	h.CommittedGeneration = binary.LittleEndian.Uint32(buf[24:28])
	h.Top = Offset(binary.LittleEndian.Uint64(buf[32:40]))
	h.Size = Offset(binary.LittleEndian.Uint64(buf[40:48]))
	h.RootOffset = Offset(binary.LittleEndian.Uint64(buf[48:56]))
	wantCRC := binary.LittleEndian.Uint32(buf[56:60])
	gotCRC := crc32.ChecksumIEEE(buf[0:56])
	if wantCRC != gotCRC {
		return h, verrors.ErrHeaderCRC
	}
	return h, nil
}
