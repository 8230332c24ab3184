// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package vat

import (
	"path/filepath"
	"testing"

	"github.com/Juniper/juise-sub000/internal/arena"
	"github.com/Juniper/juise-sub000/internal/trie"
)

func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vat.vat")
	a, err := arena.Create(path, 0)
	if err != nil {
		t.Fatalf("arena.Create: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return Open(a)
}

func putKey(t *testing.T, h *Handle, tr *Tree, key []byte) {
	t.Helper()
	off, err := h.Arena().Alloc(uint64(len(key)))
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	copy(h.Arena().Bytes(off, uint64(len(key))), key)
	ok, err := tr.Add(key, off, trie.TypeBytes)
	if err != nil {
		t.Fatalf("Add(%x): %v", key, err)
	}
	if !ok {
		t.Fatalf("Add(%x) = false, want true", key)
	}
}

func TestForkSharesUntilFirstMutation(t *testing.T) {
	h := newTestHandle(t)
	base, err := h.NewTree(0)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	keyA := []byte{0x01, 0x02, 0x03, 0x04}
	putKey(t, h, base, keyA)

	fork, err := base.Fork(2)
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}

	if _, ok := fork.Get(keyA); !ok {
		t.Fatalf("fork.Get(keyA): miss, want hit (should share base's nodes)")
	}

	keyB := []byte{0x05, 0x06, 0x07, 0x08}
	putKey(t, h, fork, keyB)

	if _, ok := base.Get(keyB); ok {
		t.Fatalf("base.Get(keyB): hit, want miss (fork's mutation must not leak back)")
	}
	if _, ok := fork.Get(keyB); !ok {
		t.Fatalf("fork.Get(keyB): miss, want hit")
	}
	if _, ok := base.Get(keyA); !ok {
		t.Fatalf("base.Get(keyA): miss, want hit (base must still see its own key)")
	}
}

func TestKeyAtWalksInOrder(t *testing.T) {
	h := newTestHandle(t)
	tr, err := h.NewTree(0)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	keys := [][]byte{
		{0x03, 0x00, 0x00, 0x00},
		{0x01, 0x00, 0x00, 0x00},
		{0x02, 0x00, 0x00, 0x00},
	}
	for _, k := range keys {
		putKey(t, h, tr, k)
	}

	var got [][]byte
	off := tr.GetNext(nil, true)
	for off != arena.NullOffset {
		key, contents := tr.KeyAt(off)
		if contents == arena.NullOffset {
			t.Fatalf("KeyAt(%d) contents = NullOffset", off)
		}
		got = append(got, append([]byte(nil), key...))
		off = tr.FindNext(off)
	}

	want := [][]byte{{0x01, 0x00, 0x00, 0x00}, {0x02, 0x00, 0x00, 0x00}, {0x03, 0x00, 0x00, 0x00}}
	if len(got) != len(want) {
		t.Fatalf("walked %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if string(got[i]) != string(want[i]) {
			t.Fatalf("key %d = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestForkDeleteDoesNotAffectParent(t *testing.T) {
	h := newTestHandle(t)
	base, err := h.NewTree(0)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	keys := [][]byte{
		{0x01, 0x02, 0x03, 0x04},
		{0x01, 0x02, 0x03, 0x05},
		{0xff, 0xff, 0xff, 0xff},
	}
	for _, k := range keys {
		putKey(t, h, base, k)
	}

	fork, err := base.Fork(2)
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	ok, err := fork.Delete(keys[0])
	if err != nil || !ok {
		t.Fatalf("fork.Delete: ok=%v err=%v", ok, err)
	}

	if _, ok := fork.Get(keys[0]); ok {
		t.Fatalf("fork.Get after delete: hit, want miss")
	}
	if _, ok := base.Get(keys[0]); !ok {
		t.Fatalf("base.Get after fork delete: miss, want hit (base untouched)")
	}
	for _, k := range keys[1:] {
		if _, ok := base.Get(k); !ok {
			t.Fatalf("base.Get(%x): miss, want hit", k)
		}
		if _, ok := fork.Get(k); !ok {
			t.Fatalf("fork.Get(%x): miss, want hit", k)
		}
	}
}
