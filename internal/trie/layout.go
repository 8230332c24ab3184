// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package trie implements the versioned Patricia trie described by the VAT
// on-disk layout: fixed-size Node and Leaf records addressed by offset into
// an internal/arena.Arena, and the classical Patricia operations (add,
// delete, search, find_next/find_prev, subtree_match/subtree_next, getnext)
// over them.
package trie

import (
	"encoding/binary"

	"github.com/Juniper/juise-sub000/internal/arena"
	"github.com/Juniper/juise-sub000/internal/bitnum"
)

// ValueType is the small type tag carried by a Leaf.
type ValueType uint8

// Leaf value type tags.
const (
	TypeBytes ValueType = iota
	TypeUint64
)

// RootSize, NodeSize and LeafSize are the fixed on-disk record sizes
// described by the VAT in-arena layout.
const (
	RootSize = 32
	NodeSize = 40
	LeafSize = 24
)

// field byte offsets within a Root record.
const (
	rootOffRootOffset = 0
	rootOffKeyLen     = 8
	rootOffKeyOffset  = 10
	rootOffGeneration = 12
	rootOffNodeFree   = 16
	rootOffLeafFree   = 24
)

// field byte offsets within a Node record.
const (
	nodeOffLength   = 0
	nodeOffBit      = 2
	nodeOffLeft     = 8
	nodeOffRight    = 16
	nodeOffRefcount = 24
	nodeOffLeaf     = 32
)

// field byte offsets within a Leaf record.
const (
	leafOffRefcount = 0
	leafOffType     = 2
	leafOffLength   = 4
	leafOffContents = 8
	leafOffKey      = 16
)

// Root is an in-arena-backed view of a TrieRoot record.
type Root struct {
	a   *arena.Arena
	off arena.Offset
}

// NewRoot creates a fresh, empty TrieRoot record with the given maximum key
// length in bytes (0 means VATMaxKey, the maximum) and key offset
// (the byte offset from a leaf's contents to its embedded key, for the
// common case where the key lives inside the user record).
func NewRoot(a *arena.Arena, keyLenBytes uint16, keyOffset uint16) (*Root, error) {
	off, err := a.Alloc(RootSize)
	if err != nil {
		return nil, err
	}
	if keyLenBytes == 0 {
		keyLenBytes = VATMaxKey
	}
	r := &Root{a: a, off: off}
	buf := a.Bytes(off, RootSize)
	putOffset(buf, rootOffRootOffset, arena.NullOffset)
	binary.LittleEndian.PutUint16(buf[rootOffKeyLen:], keyLenBytes)
	binary.LittleEndian.PutUint16(buf[rootOffKeyOffset:], keyOffset)
	binary.LittleEndian.PutUint32(buf[rootOffGeneration:], 0)
	putOffset(buf, rootOffNodeFree, arena.NullOffset)
	putOffset(buf, rootOffLeafFree, arena.NullOffset)
	return r, nil
}

// OpenRoot wraps an existing TrieRoot record at off.
func OpenRoot(a *arena.Arena, off arena.Offset) *Root {
	return &Root{a: a, off: off}
}

// Offset returns the arena offset of the root record itself.
func (r *Root) Offset() arena.Offset { return r.off }

func (r *Root) buf() []byte { return r.a.Bytes(r.off, RootSize) }

func (r *Root) rootNode() arena.Offset    { return getOffset(r.buf(), rootOffRootOffset) }
func (r *Root) setRootNode(o arena.Offset) { putOffset(r.buf(), rootOffRootOffset, o) }

// KeyLen returns the fixed key length in bytes this trie was created with.
func (r *Root) KeyLen() uint16 { return binary.LittleEndian.Uint16(r.buf()[rootOffKeyLen:]) }

// KeyOffset returns the byte offset from a leaf's contents to its embedded
// key, as given to NewRoot.
func (r *Root) KeyOffset() uint16 { return binary.LittleEndian.Uint16(r.buf()[rootOffKeyOffset:]) }

// RootNode returns the offset of the tree's top node, or arena.NullOffset
// for an empty tree. Exported for internal/vat's generation forking.
func (r *Root) RootNode() arena.Offset { return r.rootNode() }

// Generation returns the root's generation tag (0 means "no parent").
func (r *Root) Generation() uint32 { return binary.LittleEndian.Uint32(r.buf()[rootOffGeneration:]) }

// SetGeneration sets the root's generation tag.
func (r *Root) SetGeneration(g uint32) {
	binary.LittleEndian.PutUint32(r.buf()[rootOffGeneration:], g)
}

func (r *Root) nodeFreeHead() arena.Offset     { return getOffset(r.buf(), rootOffNodeFree) }
func (r *Root) setNodeFreeHead(o arena.Offset) { putOffset(r.buf(), rootOffNodeFree, o) }
func (r *Root) leafFreeHead() arena.Offset     { return getOffset(r.buf(), rootOffLeafFree) }
func (r *Root) setLeafFreeHead(o arena.Offset) { putOffset(r.buf(), rootOffLeafFree, o) }

// VATMaxKey is the maximum key length in bytes a trie supports.
const VATMaxKey = 256

func getOffset(buf []byte, at int) arena.Offset {
	return arena.Offset(binary.LittleEndian.Uint64(buf[at:]))
}

func putOffset(buf []byte, at int, o arena.Offset) {
	binary.LittleEndian.PutUint64(buf[at:], uint64(o))
}

// node is an in-arena-backed view of a Node record.
type node struct {
	a   *arena.Arena
	off arena.Offset
}

func nodeAt(a *arena.Arena, off arena.Offset) node { return node{a: a, off: off} }

func (n node) buf() []byte { return n.a.Bytes(n.off, NodeSize) }

func (n node) length() bitnum.Number {
	return bitnum.Number(binary.LittleEndian.Uint16(n.buf()[nodeOffLength:]))
}
func (n node) setLength(v bitnum.Number) {
	binary.LittleEndian.PutUint16(n.buf()[nodeOffLength:], uint16(v))
}
func (n node) bit() bitnum.Number {
	return bitnum.Number(binary.LittleEndian.Uint16(n.buf()[nodeOffBit:]))
}
func (n node) setBit(v bitnum.Number) {
	binary.LittleEndian.PutUint16(n.buf()[nodeOffBit:], uint16(v))
}
func (n node) left() arena.Offset      { return getOffset(n.buf(), nodeOffLeft) }
func (n node) setLeft(o arena.Offset)  { putOffset(n.buf(), nodeOffLeft, o) }
func (n node) right() arena.Offset     { return getOffset(n.buf(), nodeOffRight) }
func (n node) setRight(o arena.Offset) { putOffset(n.buf(), nodeOffRight, o) }
func (n node) leaf() arena.Offset      { return getOffset(n.buf(), nodeOffLeaf) }
func (n node) setLeaf(o arena.Offset)  { putOffset(n.buf(), nodeOffLeaf, o) }
func (n node) refcount() uint16 {
	return binary.LittleEndian.Uint16(n.buf()[nodeOffRefcount:])
}
func (n node) setRefcount(v uint16) {
	binary.LittleEndian.PutUint16(n.buf()[nodeOffRefcount:], v)
}

// child returns the left or right child offset.
func (n node) child(right bool) arena.Offset {
	if right {
		return n.right()
	}
	return n.left()
}

func (n node) setChild(right bool, o arena.Offset) {
	if right {
		n.setRight(o)
	} else {
		n.setLeft(o)
	}
}

// leafRec is an in-arena-backed view of a Leaf record.
type leafRec struct {
	a   *arena.Arena
	off arena.Offset
}

func leafAt(a *arena.Arena, off arena.Offset) leafRec { return leafRec{a: a, off: off} }

func (l leafRec) buf() []byte { return l.a.Bytes(l.off, LeafSize) }

func (l leafRec) refcount() uint16 {
	return binary.LittleEndian.Uint16(l.buf()[leafOffRefcount:])
}
func (l leafRec) setRefcount(v uint16) {
	binary.LittleEndian.PutUint16(l.buf()[leafOffRefcount:], v)
}
func (l leafRec) valueType() ValueType { return ValueType(l.buf()[leafOffType]) }
func (l leafRec) setValueType(t ValueType) {
	l.buf()[leafOffType] = byte(t)
}
func (l leafRec) length() uint16 {
	return binary.LittleEndian.Uint16(l.buf()[leafOffLength:])
}
func (l leafRec) setLength(v uint16) {
	binary.LittleEndian.PutUint16(l.buf()[leafOffLength:], v)
}
func (l leafRec) contents() arena.Offset     { return getOffset(l.buf(), leafOffContents) }
func (l leafRec) setContents(o arena.Offset) { putOffset(l.buf(), leafOffContents, o) }
func (l leafRec) key() arena.Offset          { return getOffset(l.buf(), leafOffKey) }
func (l leafRec) setKey(o arena.Offset)      { putOffset(l.buf(), leafOffKey, o) }

// keyBytes returns the key material for this leaf.
func (l leafRec) keyBytes() []byte {
	return l.a.Bytes(l.key(), uint64(l.length()))
}
