// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package trie

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/Juniper/juise-sub000/internal/arena"
)

func newTestTree(t *testing.T, keyLen uint16) (*arena.Arena, *Tree) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trie.vat")
	a, err := arena.Create(path, 0)
	if err != nil {
		t.Fatalf("arena.Create: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	root, err := NewRoot(a, keyLen, 0)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	return a, Open(a, root)
}

func putKey(t *testing.T, a *arena.Arena, tr *Tree, key []byte) arena.Offset {
	t.Helper()
	contentsOff, err := a.Alloc(uint64(len(key)))
	if err != nil {
		t.Fatalf("Alloc contents: %v", err)
	}
	copy(a.Bytes(contentsOff, uint64(len(key))), key)
	ok, err := tr.Add(key, contentsOff, TypeBytes)
	if err != nil {
		t.Fatalf("Add(%x): %v", key, err)
	}
	if !ok {
		t.Fatalf("Add(%x) = false, want true", key)
	}
	return contentsOff
}

func TestAddGetDeleteRoundTrip(t *testing.T) {
	a, tr := newTestTree(t, 4)
	key := []byte{0x01, 0x02, 0x03, 0x04}
	putKey(t, a, tr, key)

	if _, ok := tr.Get(key); !ok {
		t.Fatalf("Get after Add: not found")
	}
	if ok, err := tr.Delete(key); err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v, want true, nil", ok, err)
	}
	if _, ok := tr.Get(key); ok {
		t.Fatalf("Get after Delete: still found")
	}
}

func TestAddDuplicateRejected(t *testing.T) {
	a, tr := newTestTree(t, 4)
	key := []byte{0x01, 0x02, 0x03, 0x04}
	putKey(t, a, tr, key)

	ok, err := tr.Add(key, arena.NullOffset, TypeBytes)
	if err != nil {
		t.Fatalf("Add duplicate: %v", err)
	}
	if ok {
		t.Fatalf("Add duplicate = true, want false")
	}
}

func TestE1InsertSearchOrdering(t *testing.T) {
	a, tr := newTestTree(t, 4)
	keys := [][]byte{
		{0x01, 0x02, 0x03, 0x04},
		{0x01, 0x02, 0x03, 0x05},
		{0x01, 0x02, 0x04, 0x04},
		{0xff, 0xff, 0xff, 0xff},
	}
	for _, k := range keys {
		putKey(t, a, tr, k)
	}

	if _, ok := tr.Get([]byte{0x01, 0x02, 0x03, 0x05}); !ok {
		t.Fatalf("Get(01020305): miss, want hit")
	}
	if _, ok := tr.Get([]byte{0x01, 0x02, 0x03, 0x06}); ok {
		t.Fatalf("Get(01020306): hit, want miss")
	}

	match := tr.SubtreeMatch([]byte{0x01, 0x02, 0x03})
	if match == arena.NullOffset {
		t.Fatalf("SubtreeMatch: not found")
	}
	gotKey := leafAt(a, nodeAt(a, match).leaf()).keyBytes()
	if !bytes.Equal(gotKey, []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Fatalf("SubtreeMatch key = %x, want 01020304", gotKey)
	}

	var order [][]byte
	cur := arena.NullOffset
	for {
		next := tr.FindNext(cur)
		if next == arena.NullOffset {
			break
		}
		order = append(order, leafAt(a, nodeAt(a, next).leaf()).keyBytes())
		cur = next
	}
	if len(order) != len(keys) {
		t.Fatalf("FindNext walk produced %d keys, want %d", len(order), len(keys))
	}
	for i := 1; i < len(order); i++ {
		if bytes.Compare(order[i-1], order[i]) >= 0 {
			t.Fatalf("FindNext walk out of order at %d: %x then %x", i, order[i-1], order[i])
		}
	}
}

func TestFindNextPrevRoundTrip(t *testing.T) {
	a, tr := newTestTree(t, 4)
	keys := [][]byte{
		{0x01, 0x02, 0x03, 0x04},
		{0x01, 0x02, 0x03, 0x05},
		{0x01, 0x02, 0x04, 0x04},
		{0xff, 0xff, 0xff, 0xff},
	}
	var offs []arena.Offset
	for _, k := range keys {
		putKey(t, a, tr, k)
	}
	cur := arena.NullOffset
	for {
		next := tr.FindNext(cur)
		if next == arena.NullOffset {
			break
		}
		offs = append(offs, next)
		cur = next
	}

	for _, off := range offs {
		next := tr.FindNext(off)
		if next == arena.NullOffset {
			continue
		}
		if prev := tr.FindPrev(next); prev != off {
			t.Fatalf("FindPrev(FindNext(%v)) = %v, want %v", off, prev, off)
		}
	}
}

func TestE2DeleteNoBitNode(t *testing.T) {
	a, tr := newTestTree(t, 4)
	keys := [][]byte{
		{0x01, 0x02, 0x03, 0x04},
		{0x01, 0x02, 0x03, 0x05},
		{0x01, 0x02, 0x04, 0x04},
		{0xff, 0xff, 0xff, 0xff},
	}
	for _, k := range keys {
		putKey(t, a, tr, k)
	}

	if ok, err := tr.Delete([]byte{0x01, 0x02, 0x03, 0x04}); err != nil || !ok {
		t.Fatalf("Delete(01020304): ok=%v err=%v, want true, nil", ok, err)
	}

	first := tr.FindNext(arena.NullOffset)
	if first == arena.NullOffset {
		t.Fatalf("FindNext(null) after delete: empty tree")
	}
	gotKey := leafAt(a, nodeAt(a, first).leaf()).keyBytes()
	if !bytes.Equal(gotKey, []byte{0x01, 0x02, 0x03, 0x05}) {
		t.Fatalf("FindNext(null) = %x, want 01020305", gotKey)
	}
	if prev := tr.FindPrev(first); prev != arena.NullOffset {
		t.Fatalf("FindPrev(FindNext(null)) = %v, want NullOffset", prev)
	}
}

func TestDeleteEmptiesTree(t *testing.T) {
	a, tr := newTestTree(t, 4)
	key := []byte{0x01, 0x02, 0x03, 0x04}
	putKey(t, a, tr, key)
	if ok, err := tr.Delete(key); err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v, want true, nil", ok, err)
	}
	if tr.FindNext(arena.NullOffset) != arena.NullOffset {
		t.Fatalf("tree should be empty after deleting its only key")
	}
}

func TestCompare(t *testing.T) {
	a, tr := newTestTree(t, 4)
	o1 := putKey(t, a, tr, []byte{0x01, 0x00, 0x00, 0x00})
	_ = o1
	putKey(t, a, tr, []byte{0x02, 0x00, 0x00, 0x00})

	n1, _ := tr.search([]byte{0x01, 0x00, 0x00, 0x00})
	n2, _ := tr.search([]byte{0x02, 0x00, 0x00, 0x00})
	if tr.Compare(n1.off, n2.off) >= 0 {
		t.Fatalf("Compare(01000000, 02000000) >= 0, want < 0")
	}
	if tr.Compare(n1.off, n1.off) != 0 {
		t.Fatalf("Compare(x,x) != 0")
	}
}
