// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package vat implements the user-space VAT handle: a named Arena file
// bound to a forest of generation-tagged Patricia tries (internal/trie).
// A Tree created by Fork shares its parent's nodes until the first
// mutation, at which point the mutation spine is copied into the forked
// generation while every other node stays shared (see Tree.Fork).
package vat

import (
	"github.com/Juniper/juise-sub000/internal/arena"
	"github.com/Juniper/juise-sub000/internal/trie"
)

// Handle binds an open Arena to the VAT namespace living inside it. The
// arena's own header already carries the VAT-specific magic and version
// (see internal/arena.Magic), so unlike the original C implementation
// there is no separate second on-disk header to validate here.
type Handle struct {
	a *arena.Arena
}

// Open wraps an already-open Arena as a VAT handle.
func Open(a *arena.Arena) *Handle {
	return &Handle{a: a}
}

// Arena returns the underlying Arena.
func (h *Handle) Arena() *arena.Arena { return h.a }

// Close closes the underlying arena.
func (h *Handle) Close() error { return h.a.Close() }

// Tree binds a VAT handle to one Root record at a given generation.
// Generation 0 means "no parent" (a base tree created directly by NewTree).
type Tree struct {
	h          *Handle
	root       *trie.Root
	generation uint32
	t          *trie.Tree
}

// NewTree creates the arena's trie root if none exists yet, initialized
// with the maximum key length (key_length == 0 means VATMaxKey) and the
// given key offset, and returns a base tree at generation 0. If a root
// already exists, it is reopened as-is (key length and offset are
// properties of the existing root, not re-specified by the caller).
func (h *Handle) NewTree(keyOffset uint16) (*Tree, error) {
	a := h.a
	if a.RootOffset() == arena.NullOffset {
		root, err := trie.NewRoot(a, 0, keyOffset)
		if err != nil {
			return nil, err
		}
		a.SetRootOffset(root.Offset())
		return &Tree{h: h, root: root, generation: 0, t: trie.Open(a, root)}, nil
	}
	root := trie.OpenRoot(a, a.RootOffset())
	return &Tree{h: h, root: root, generation: root.Generation(), t: trie.Open(a, root)}, nil
}

// Generation returns the tree's generation tag (0 means "no parent").
func (t *Tree) Generation() uint32 { return t.generation }

// Get reports whether key is present and, if so, its leaf contents offset.
func (t *Tree) Get(key []byte) (arena.Offset, bool) { return t.t.Get(key) }

// Add inserts key with the given contents offset and value type.
func (t *Tree) Add(key []byte, contents arena.Offset, valueType trie.ValueType) (bool, error) {
	return t.t.Add(key, contents, valueType)
}

// Delete removes key.
func (t *Tree) Delete(key []byte) (bool, error) { return t.t.Delete(key) }

// FindNext, FindPrev, Compare, SubtreeMatch, SubtreeNext and GetNext pass
// straight through to the underlying Patricia operations; a Tree is a thin
// generation-aware wrapper, not a second implementation of them.
func (t *Tree) FindNext(v arena.Offset) arena.Offset { return t.t.FindNext(v) }
func (t *Tree) FindPrev(v arena.Offset) arena.Offset { return t.t.FindPrev(v) }
func (t *Tree) Compare(a, b arena.Offset) int        { return t.t.Compare(a, b) }
func (t *Tree) SubtreeMatch(prefix []byte) arena.Offset {
	return t.t.SubtreeMatch(prefix)
}
func (t *Tree) GetNext(key []byte, returnEqual bool) arena.Offset {
	return t.t.GetNext(key, returnEqual)
}

// KeyAt resolves a trie-internal node offset (as returned by FindNext,
// FindPrev or GetNext) to its key bytes and leaf contents offset.
func (t *Tree) KeyAt(off arena.Offset) ([]byte, arena.Offset) {
	return t.t.KeyAt(off)
}

// Fork derives a new tree at generation, sharing every node of t's current
// root until the fork's own Add/Delete calls shadow nodes along their
// mutation spine (internal/trie's materializeRoot/materializeChild, driven
// off the node refcount ForkRoot bumps here). Mutating the fork never
// changes what t itself observes, and mutating t after the fork does not
// retroactively change what the fork observes either, since t's own first
// post-fork mutation shadows its spine exactly the same way.
func (t *Tree) Fork(generation uint32) (*Tree, error) {
	root, err := trie.ForkRoot(t.h.a, t.root, generation)
	if err != nil {
		return nil, err
	}
	return &Tree{h: t.h, root: root, generation: generation, t: trie.Open(t.h.a, root)}, nil
}

// RootOffset returns the offset of this tree's Root record, for use as a
// stable cross-process handle to reopen the same generation later.
func (t *Tree) RootOffset() arena.Offset { return t.root.Offset() }

// OpenTree reopens a tree at an existing Root record, e.g. one previously
// obtained via RootOffset.
func (h *Handle) OpenTree(off arena.Offset) *Tree {
	root := trie.OpenRoot(h.a, off)
	return &Tree{h: h, root: root, generation: root.Generation(), t: trie.Open(h.a, root)}
}
