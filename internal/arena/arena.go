// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package arena implements a memory-mapped, file-backed, offset-addressed
// growable region used to store a versioned Patricia trie (internal/trie,
// internal/vat). Callers never see host pointers: every record is named by
// an Offset into the mapped region, so the mapping is free to move to a
// different virtual address across a grow without invalidating anything a
// caller is holding.
//
// The allocator itself is a simple bump allocator; reclaiming freed bytes
// within a generation is not a goal of this package (the trie above it owns
// its own freelist of node and leaf offsets, see internal/trie).
package arena

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/Juniper/juise-sub000/internal/verrors"
)

// Offset addresses a byte within an Arena's mapped region. NullOffset never
// names a valid allocation.
type Offset uint64

// NullOffset is the zero value of Offset, reserved to mean "no offset".
const NullOffset Offset = 0

// DefaultSize is the initial file size used by Create when the caller does
// not request one.
const DefaultSize = 1 << 20 // 1 MiB

// MaxSize bounds how large a single arena file may grow.
const MaxSize = 1 << 34 // 16 GiB

// lockRetryInterval is how often Lock polls the file lock while waiting.
const lockRetryInterval = 10 * time.Millisecond

var log = logrus.WithField("component", "arena")

// Arena is a growable, memory-mapped, file-backed allocation region.
// Offsets into it remain valid across grow; the returned Bytes slices do
// not (a grow may re-mmap at a different address), so callers must re-fetch
// a slice with Bytes after any call that might allocate.
type Arena struct {
	mu   sync.Mutex
	file *os.File
	data []byte
	hdr  Header

	flock     *flock.Flock
	lockMu    sync.Mutex
	lockDepth int
}

// Create initializes a new arena file at path with the given initial size
// (rounded up to a page multiple) and returns it open; the file lock is
// not held on return.
func Create(path string, size uint64) (*Arena, error) {
	if size == 0 {
		size = DefaultSize
	}
	size = pageRound(size)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrOpenFailed, err)
	}

	a := &Arena{file: f, flock: flock.New(path + ".lock")}
	if err := a.truncateAndMap(size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	a.hdr = Header{
		Version:             Version,
		Top:                 Offset(HeaderSize),
		Size:                Offset(size),
		RootOffset:          NullOffset,
		Generation:          1,
		CommittedGeneration: 1,
	}
	a.writeHeader()

	log.WithFields(logrus.Fields{"path": path, "size": size}).Info("arena created")
	return a, nil
}

// Open maps an existing arena file, validating its header.
func Open(path string) (*Arena, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrOpenFailed, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", verrors.ErrOpenFailed, err)
	}

	a := &Arena{file: f, flock: flock.New(path + ".lock")}
	if err := a.mapFile(uint64(info.Size())); err != nil {
		f.Close()
		return nil, err
	}

	hdr, err := decodeHeader(a.data[:HeaderSize])
	if err != nil {
		a.unmap()
		f.Close()
		return nil, err
	}
	a.hdr = hdr

	log.WithField("path", path).Info("arena opened")
	return a, nil
}

// Close unmaps, releases any held lock, and closes the underlying file.
func (a *Arena) Close() error {
	a.lockMu.Lock()
	if a.lockDepth != 0 {
		a.lockDepth = 0
		a.flock.Unlock()
	}
	a.lockMu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.unmap()
	return a.file.Close()
}

func (a *Arena) mapFile(size uint64) error {
	data, err := unix.Mmap(int(a.file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("%w: %v", verrors.ErrMapFailed, err)
	}
	a.data = data
	return nil
}

func (a *Arena) unmap() {
	if a.data != nil {
		unix.Munmap(a.data)
		a.data = nil
	}
}

func (a *Arena) truncateAndMap(size uint64) error {
	if err := a.file.Truncate(int64(size)); err != nil {
		return fmt.Errorf("%w: %v", verrors.ErrOpenFailed, err)
	}
	return a.mapFile(size)
}

func pageRound(n uint64) uint64 {
	const page = 4096
	return (n + page - 1) &^ (page - 1)
}

func (a *Arena) writeHeader() {
	buf := a.hdr.encode()
	copy(a.data[:HeaderSize], buf[:])
}

// Lock acquires the arena's advisory file lock, re-entrant within a single
// process. Only one writer may hold it across the whole system at a time
// (cross-process concurrent writers are out of scope, see Non-goals).
func (a *Arena) Lock(ctx context.Context) error {
	a.lockMu.Lock()
	defer a.lockMu.Unlock()
	if a.lockDepth == 0 {
		locked, err := a.flock.TryLockContext(ctx, lockRetryInterval)
		if err != nil || !locked {
			return fmt.Errorf("%w: %v", verrors.ErrLockFailed, err)
		}
	}
	a.lockDepth++
	return nil
}

// Unlock releases one level of the re-entrant lock acquired by Lock.
func (a *Arena) Unlock() error {
	a.lockMu.Lock()
	defer a.lockMu.Unlock()
	if a.lockDepth == 0 {
		return nil
	}
	a.lockDepth--
	if a.lockDepth == 0 {
		return a.flock.Unlock()
	}
	return nil
}

// Generation returns the arena's current mutation generation.
func (a *Arena) Generation() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hdr.Generation
}

// CommittedGeneration returns the last generation committed by CommitGeneration.
func (a *Arena) CommittedGeneration() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hdr.CommittedGeneration
}

// NextGeneration advances and returns the arena's generation counter,
// without yet marking it committed; see internal/vat.Tree.Fork.
func (a *Arena) NextGeneration() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hdr.Generation++
	a.writeHeader()
	return a.hdr.Generation
}

// CommitGeneration records generation as visible to new readers.
func (a *Arena) CommitGeneration(generation uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hdr.CommittedGeneration = generation
	a.writeHeader()
}

// RootOffset returns the offset of the allocator's root record (the base
// trie Root record that internal/vat's NewTree stores there).
func (a *Arena) RootOffset() Offset {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hdr.RootOffset
}

// SetRootOffset records the allocator's root record offset.
func (a *Arena) SetRootOffset(off Offset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hdr.RootOffset = off
	a.writeHeader()
}

// Alloc bump-allocates n bytes and returns their offset. It grows the
// backing file (and re-mmaps, possibly at a new address) if the arena does
// not have n free bytes.
func (a *Arena) Alloc(n uint64) (Offset, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	need := uint64(a.hdr.Top) + n
	if Offset(need) > a.hdr.Size {
		if err := a.grow(need); err != nil {
			return NullOffset, err
		}
	}

	off := a.hdr.Top
	a.hdr.Top = Offset(need)
	a.writeHeader()
	return off, nil
}

// grow must be called with a.mu held.
func (a *Arena) grow(minSize uint64) error {
	newSize := uint64(a.hdr.Size)
	if newSize == 0 {
		newSize = DefaultSize
	}
	for newSize < minSize {
		newSize *= 2
	}
	if newSize > MaxSize {
		return verrors.ErrSizeLimit
	}

	a.unmap()
	if err := a.truncateAndMap(newSize); err != nil {
		return err
	}
	a.hdr.Size = Offset(newSize)
	a.writeHeader()

	log.WithFields(logrus.Fields{"new_size": newSize}).Debug("arena grown")
	return nil
}

// Bytes returns a slice over n bytes at off. The slice is only valid until
// the next call that may grow the arena (Alloc); callers that hold a slice
// across an Alloc must re-fetch it.
func (a *Arena) Bytes(off Offset, n uint64) []byte {
	return a.data[off : uint64(off)+n]
}

// Size returns the arena's total mapped size in bytes.
func (a *Arena) Size() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uint64(a.hdr.Size)
}

// Sync flushes the mapped region to disk.
func (a *Arena) Sync() error {
	return unix.Msync(a.data, unix.MS_SYNC)
}
