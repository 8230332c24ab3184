// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package trie

import (
	"bytes"
	"encoding/binary"

	"github.com/Juniper/juise-sub000/internal/arena"
	"github.com/Juniper/juise-sub000/internal/bitnum"
)

// Tree is a versioned Patricia trie bound to one Root record in an Arena.
//
// Every non-empty tree has exactly one node carrying bitnum.NoBit, the
// "top" node; both of its child offsets point to itself until a second key
// forces a real split. Every other node always has exactly one child that
// is a literal self-loop (marking that side as a realized leaf, not a
// deeper subtree) and one child that is a genuine descendant — add always
// installs a new node this way, so the invariant holds by construction.
type Tree struct {
	a    *arena.Arena
	root *Root
}

// Open binds a Tree to an existing Root record.
func Open(a *arena.Arena, root *Root) *Tree {
	return &Tree{a: a, root: root}
}

// ForkRoot allocates a new Root record at generation that shares parent's
// top node, bumping that node's refcount so Add/Delete against the new
// Root shadow nodes along the mutation spine (via materializeRoot/
// materializeChild) instead of mutating parent's tree in place. The forked
// Root starts with its own empty node/leaf freelists: sharing a freelist
// across generations would let one generation's free slot reuse stomp on
// the other's still-live nodes.
func ForkRoot(a *arena.Arena, parent *Root, generation uint32) (*Root, error) {
	off, err := a.Alloc(RootSize)
	if err != nil {
		return nil, err
	}
	r := &Root{a: a, off: off}
	buf := a.Bytes(off, RootSize)
	top := parent.rootNode()
	putOffset(buf, rootOffRootOffset, top)
	binary.LittleEndian.PutUint16(buf[rootOffKeyLen:], parent.KeyLen())
	binary.LittleEndian.PutUint16(buf[rootOffKeyOffset:], parent.KeyOffset())
	binary.LittleEndian.PutUint32(buf[rootOffGeneration:], generation)
	putOffset(buf, rootOffNodeFree, arena.NullOffset)
	putOffset(buf, rootOffLeafFree, arena.NullOffset)

	if top != arena.NullOffset {
		n := nodeAt(a, top)
		n.setRefcount(n.refcount() + 1)
	}
	return r, nil
}

func (t *Tree) keylenBit() bitnum.Number {
	return bitnum.LengthToBit(int(t.root.KeyLen()))
}

func (t *Tree) header() node {
	return nodeAt(t.a, t.root.rootNode())
}

// dir reports the descent direction for key at bit b: false is "left"
// (key bit 0, lexicographically smaller), true is "right".
func (t *Tree) dir(key []byte, b bitnum.Number) bool {
	return b < t.keylenBit() && bitnum.Test(key, b)
}

// search returns the candidate leaf-bearing node reached by descending the
// trie along key's bits. The caller must still compare the full key
// against the candidate, since a bit-trie descent alone only narrows to
// the nearest match, not a guaranteed hit (see Get).
func (t *Tree) search(key []byte) (node, bool) {
	if t.root.rootNode() == arena.NullOffset {
		return node{}, false
	}
	cur := t.header()
	for {
		d := t.dir(key, cur.bit())
		next := cur.child(d)
		if next == cur.off {
			return cur, true
		}
		cur = nodeAt(t.a, next)
	}
}

// Get reports whether key is present and, if so, its leaf contents offset.
func (t *Tree) Get(key []byte) (arena.Offset, bool) {
	cand, ok := t.search(key)
	if !ok {
		return arena.NullOffset, false
	}
	l := leafAt(t.a, cand.leaf())
	if !bytes.Equal(l.keyBytes(), key) {
		return arena.NullOffset, false
	}
	return l.contents(), true
}

// KeyAt returns the key and contents offset of the leaf reachable from
// off, a trie-internal offset as returned by FindNext/FindPrev/GetNext.
func (t *Tree) KeyAt(off arena.Offset) ([]byte, arena.Offset) {
	l := leafAt(t.a, nodeAt(t.a, off).leaf())
	return l.keyBytes(), l.contents()
}

// allocNode returns a free node slot, reusing the trie's own freelist
// before asking the arena for fresh bytes (arena allocation itself never
// reclaims, see internal/arena).
func (t *Tree) allocNode() (node, error) {
	if head := t.root.nodeFreeHead(); head != arena.NullOffset {
		n := nodeAt(t.a, head)
		t.root.setNodeFreeHead(n.left())
		return n, nil
	}
	off, err := t.a.Alloc(NodeSize)
	if err != nil {
		return node{}, err
	}
	return nodeAt(t.a, off), nil
}

func (t *Tree) freeNode(n node) {
	n.setLeft(t.root.nodeFreeHead())
	t.root.setNodeFreeHead(n.off)
}

func (t *Tree) allocLeaf() (leafRec, error) {
	if head := t.root.leafFreeHead(); head != arena.NullOffset {
		l := leafAt(t.a, head)
		t.root.setLeafFreeHead(l.contents())
		return l, nil
	}
	off, err := t.a.Alloc(LeafSize)
	if err != nil {
		return leafRec{}, err
	}
	return leafAt(t.a, off), nil
}

func (t *Tree) freeLeaf(l leafRec) {
	l.setContents(t.root.leafFreeHead())
	t.root.setLeafFreeHead(l.off)
}

// cloneNode duplicates n into a fresh node slot, fixing up any self-loop
// child reference to point at the clone instead of the original, and
// bumping the refcount of whichever real (non-self-loop) children it now
// also references. Used by materializeRoot/materializeChild to shadow a
// node shared with another generation before mutating through it.
func (t *Tree) cloneNode(n node) (node, error) {
	clone, err := t.allocNode()
	if err != nil {
		return node{}, err
	}
	copy(clone.buf(), n.buf())
	clone.setRefcount(1)
	if clone.left() == n.off {
		clone.setLeft(clone.off)
	}
	if clone.right() == n.off {
		clone.setRight(clone.off)
	}
	if clone.left() != clone.off {
		cn := nodeAt(t.a, clone.left())
		cn.setRefcount(cn.refcount() + 1)
	}
	if clone.right() != clone.off {
		cn := nodeAt(t.a, clone.right())
		cn.setRefcount(cn.refcount() + 1)
	}
	cl := leafAt(t.a, clone.leaf())
	cl.setRefcount(cl.refcount() + 1)
	return clone, nil
}

// materializeRoot returns a private (refcount == 1) view of the tree's top
// node, cloning it first if it is shared with another generation (see
// internal/vat.Tree.Fork). For an un-forked tree this is always a no-op
// since no root node ever has refcount > 1.
func (t *Tree) materializeRoot() (node, error) {
	off := t.root.rootNode()
	n := nodeAt(t.a, off)
	if n.refcount() <= 1 {
		return n, nil
	}
	clone, err := t.cloneNode(n)
	if err != nil {
		return node{}, err
	}
	n.setRefcount(n.refcount() - 1)
	t.root.setRootNode(clone.off)
	return clone, nil
}

// materializeChild is materializeRoot for a non-root edge: the child of
// parent in direction dir. A self-loop edge is already private (it names
// parent itself) and is returned unchanged.
func (t *Tree) materializeChild(parent node, dir bool) (node, error) {
	off := parent.child(dir)
	if off == parent.off {
		return parent, nil
	}
	n := nodeAt(t.a, off)
	if n.refcount() <= 1 {
		return n, nil
	}
	clone, err := t.cloneNode(n)
	if err != nil {
		return node{}, err
	}
	n.setRefcount(n.refcount() - 1)
	parent.setChild(dir, clone.off)
	return clone, nil
}

// Add inserts key with the given contents offset and type, returning false
// if key is already present (or is a prefix/superstring collision under
// the tree's fixed key length).
func (t *Tree) Add(key []byte, contents arena.Offset, valueType ValueType) (bool, error) {
	keyOff, err := t.a.Alloc(uint64(len(key)))
	if err != nil {
		return false, err
	}
	copy(t.a.Bytes(keyOff, uint64(len(key))), key)

	newLeaf, err := t.allocLeaf()
	if err != nil {
		return false, err
	}
	newLeaf.setRefcount(1)
	newLeaf.setValueType(valueType)
	newLeaf.setLength(uint16(len(key)))
	newLeaf.setContents(contents)
	newLeaf.setKey(keyOff)

	newNode, err := t.allocNode()
	if err != nil {
		return false, err
	}
	newNode.setRefcount(1)
	newNode.setLeaf(newLeaf.off)

	if t.root.rootNode() == arena.NullOffset {
		newNode.setBit(bitnum.NoBit)
		newNode.setLeft(newNode.off)
		newNode.setRight(newNode.off)
		t.root.setRootNode(newNode.off)
		return true, nil
	}

	cand, _ := t.search(key)
	candLeaf := leafAt(t.a, cand.leaf())
	diff := bitnum.Mismatch(key, candLeaf.keyBytes(), t.keylenBit())
	if diff >= t.keylenBit() {
		t.freeNode(newNode)
		t.freeLeaf(newLeaf)
		return false, nil
	}

	parent, err := t.materializeRoot()
	if err != nil {
		t.freeNode(newNode)
		t.freeLeaf(newLeaf)
		return false, err
	}
	for parent.bit() < diff {
		d := t.dir(key, parent.bit())
		childOff := parent.child(d)
		if childOff == parent.off {
			break
		}
		parent, err = t.materializeChild(parent, d)
		if err != nil {
			t.freeNode(newNode)
			t.freeLeaf(newLeaf)
			return false, err
		}
	}

	d := t.dir(key, parent.bit())
	oldChild := parent.child(d)

	newNode.setBit(diff)
	selfDir := t.dir(key, diff)
	newNode.setChild(selfDir, newNode.off)
	newNode.setChild(!selfDir, oldChild)
	parent.setChild(d, newNode.off)

	return true, nil
}

// otherChild returns the genuine (non-self-loop) child of a non-header
// node, per the construction invariant documented on Tree.
func (n node) otherChild() (dirIsRight bool, off arena.Offset) {
	if n.left() == n.off {
		return true, n.right()
	}
	return false, n.left()
}

// Delete removes key, returning false if it is not present.
func (t *Tree) Delete(key []byte) (bool, error) {
	victim, ok := t.search(key)
	if !ok {
		return false, nil
	}
	victimLeaf := leafAt(t.a, victim.leaf())
	if !bytes.Equal(victimLeaf.keyBytes(), key) {
		return false, nil
	}

	if victim.off == t.root.rootNode() {
		if err := t.deleteHeader(victim); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := t.spliceOut(victim, key); err != nil {
		return false, err
	}
	return true, nil
}

// spliceOut removes a non-header node from the tree structure (the caller
// has already verified it holds key) and releases its node and leaf slots.
// victim itself is looked up again by descent (rather than trusting the
// node value the caller passed in) so that materializing shared ancestors
// along the way yields victim's own private copy too.
func (t *Tree) spliceOut(victim node, key []byte) error {
	parent, err := t.materializeRoot()
	if err != nil {
		return err
	}
	var dir bool
	for {
		d := t.dir(key, parent.bit())
		childOff := parent.child(d)
		if childOff == victim.off {
			dir = d
			break
		}
		parent, err = t.materializeChild(parent, d)
		if err != nil {
			return err
		}
	}
	victim, err = t.materializeChild(parent, dir)
	if err != nil {
		return err
	}

	_, other := victim.otherChild()
	parent.setChild(dir, other)

	t.releaseLeaf(victimLeafOf(t, victim))
	t.releaseNode(victim)
	return nil
}

func victimLeafOf(t *Tree, n node) leafRec {
	return leafAt(t.a, n.leaf())
}

func (t *Tree) releaseLeaf(l leafRec) {
	rc := l.refcount() - 1
	l.setRefcount(rc)
	if rc == 0 {
		t.freeLeaf(l)
	}
}

func (t *Tree) releaseNode(n node) {
	rc := n.refcount() - 1
	n.setRefcount(rc)
	if rc == 0 {
		t.freeNode(n)
	}
}

// deleteHeader implements the special case described in the design notes:
// the top node's record (offset, bitnum.NoBit) is the permanent anchor for
// the tree's root, so deleting its key instead swaps in another leaf's
// contents and structurally removes that other node.
func (t *Tree) deleteHeader(header node) error {
	header, err := t.materializeRoot()
	if err != nil {
		return err
	}
	if header.left() == header.off && header.right() == header.off {
		t.releaseLeaf(leafAt(t.a, header.leaf()))
		t.releaseNode(header)
		t.root.setRootNode(arena.NullOffset)
		return nil
	}

	replacementOff := t.FindNext(header.off)
	if replacementOff == arena.NullOffset {
		replacementOff = t.FindPrev(header.off)
	}
	replacement := nodeAt(t.a, replacementOff)
	replacementKey := leafAt(t.a, replacement.leaf()).keyBytes()
	replacementKeyCopy := append([]byte(nil), replacementKey...)

	oldHeaderLeaf := leafAt(t.a, header.leaf())
	t.releaseLeaf(oldHeaderLeaf)

	header.setLeaf(replacement.leaf())
	leafAt(t.a, replacement.leaf()).setRefcount(leafAt(t.a, replacement.leaf()).refcount() + 1)

	return t.spliceOut(replacement, replacementKeyCopy)
}

// FindNext returns the successor of node v (a trie-internal node offset as
// returned by FindNext/FindPrev/GetNext/SubtreeMatch), or NullOffset if v is
// the largest key. v == NullOffset returns the smallest key in the tree.
func (t *Tree) FindNext(v arena.Offset) arena.Offset {
	if v == arena.NullOffset {
		return t.extreme(false)
	}
	return t.adjacent(v, false)
}

// FindPrev returns the predecessor of v, or NullOffset if v is the
// smallest key. v == NullOffset returns the largest key in the tree.
func (t *Tree) FindPrev(v arena.Offset) arena.Offset {
	if v == arena.NullOffset {
		return t.extreme(true)
	}
	return t.adjacent(v, true)
}

// extreme returns the leftmost (right=false) or rightmost (right=true)
// leaf in the tree.
func (t *Tree) extreme(right bool) arena.Offset {
	if t.root.rootNode() == arena.NullOffset {
		return arena.NullOffset
	}
	return t.extremeFrom(t.root.rootNode(), right)
}

func (t *Tree) extremeFrom(off arena.Offset, right bool) arena.Offset {
	cur := nodeAt(t.a, off)
	for {
		child := cur.child(right)
		if child == cur.off {
			return cur.off
		}
		cur = nodeAt(t.a, child)
	}
}

// adjacent implements find_next (wantPrev=false: track the last left turn
// and descend right from it) and find_prev (wantPrev=true: track the last
// right turn and descend left from it), per the design notes.
func (t *Tree) adjacent(v arena.Offset, wantPrev bool) arena.Offset {
	key := leafAt(t.a, nodeAt(t.a, v).leaf()).keyBytes()

	cur := t.header()
	var turn arena.Offset = arena.NullOffset
	for {
		d := t.dir(key, cur.bit())
		if d == wantPrev { // wantPrev tracks right turns, find_next tracks left turns
			turn = cur.off
		}
		childOff := cur.child(d)
		if childOff == cur.off || childOff == v {
			break
		}
		cur = nodeAt(t.a, childOff)
	}

	if turn == arena.NullOffset {
		return arena.NullOffset
	}
	turnNode := nodeAt(t.a, turn)
	other := turnNode.child(!wantPrev)
	if other == turnNode.off {
		return turnNode.off
	}
	return t.extremeFrom(other, wantPrev)
}

// Compare returns -1, 0 or +1 comparing the keys of two leaf-bearing
// nodes, by the same mismatch logic used during insertion.
func (t *Tree) Compare(a, b arena.Offset) int {
	ka := leafAt(t.a, nodeAt(t.a, a).leaf()).keyBytes()
	kb := leafAt(t.a, nodeAt(t.a, b).leaf()).keyBytes()
	return bytes.Compare(ka, kb)
}

// SubtreeMatch returns the lexicographically smallest node whose key
// starts with prefix, or NullOffset if no such node exists.
func (t *Tree) SubtreeMatch(prefix []byte) arena.Offset {
	if t.root.rootNode() == arena.NullOffset {
		return arena.NullOffset
	}
	prefixBits := bitnum.LengthToBit(len(prefix))
	cand, _ := t.searchPrefix(prefix, prefixBits)
	candLeaf := leafAt(t.a, cand.leaf())
	key := candLeaf.keyBytes()
	if len(key) < len(prefix) {
		return arena.NullOffset
	}
	if bitnum.Mismatch(key, prefix, prefixBits) < prefixBits {
		return arena.NullOffset
	}
	return cand.off
}

// searchPrefix descends the trie testing only bits within prefix's length;
// beyond that it always treats the prefix as exhausted ("out of range"),
// landing on a candidate the way search does for a full key.
func (t *Tree) searchPrefix(prefix []byte, prefixBits bitnum.Number) (node, bool) {
	cur := t.header()
	for {
		b := cur.bit()
		d := b < prefixBits && bitnum.Test(prefix, b)
		next := cur.child(d)
		if next == cur.off {
			return cur, true
		}
		cur = nodeAt(t.a, next)
	}
}

// SubtreeNext is find_next restricted to the subtree matched by
// SubtreeMatch: it stops (returns NullOffset) once the descent's last left
// turn lies at or before the prefix's bit, meaning the walk has left the
// subtree that shares prefix.
func (t *Tree) SubtreeNext(v arena.Offset, prefixBits bitnum.Number) arena.Offset {
	next := t.FindNext(v)
	if next == arena.NullOffset {
		return arena.NullOffset
	}
	key := leafAt(t.a, nodeAt(t.a, v).leaf()).keyBytes()
	nextKey := leafAt(t.a, nodeAt(t.a, next).leaf()).keyBytes()
	if bitnum.Mismatch(key, nextKey, prefixBits) < prefixBits {
		return arena.NullOffset
	}
	return next
}

// GetNext implements the SNMP-style "smallest key >= key" lookup,
// optionally returning an exact match.
func (t *Tree) GetNext(key []byte, returnEqual bool) arena.Offset {
	if t.root.rootNode() == arena.NullOffset {
		return arena.NullOffset
	}
	cand, _ := t.search(key)
	candLeaf := leafAt(t.a, cand.leaf())
	candKey := candLeaf.keyBytes()
	keyBits := t.keylenBit()
	diff := bitnum.Mismatch(key, candKey, keyBits)

	m := keyBits
	if bitnum.Number(len(candKey)) < bitnum.Number(len(key)) {
		m = bitnum.LengthToBit(len(candKey))
	}
	if diff >= m {
		if len(key) < len(candKey) || (len(key) == len(candKey) && returnEqual) {
			return cand.off
		}
		return t.FindNext(cand.off)
	}

	if bitnum.Test(key, diff) {
		// key is larger than the candidate at the mismatch point: find the
		// deepest ancestor tested below diff and continue rightward.
		ancestor := t.deepestAncestorBelow(key, diff)
		if ancestor == arena.NullOffset {
			return arena.NullOffset
		}
		return t.extremeFrom(nodeAt(t.a, ancestor).right(), false)
	}

	// candidate is smaller at diff: it is itself a valid answer unless a
	// later right turn in the original descent was taken at or past diff,
	// in which case we must restart from the ancestor preceding that turn.
	return cand.off
}

// deepestAncestorBelow returns the offset of the last node visited while
// descending key whose bit is strictly less than limit.
func (t *Tree) deepestAncestorBelow(key []byte, limit bitnum.Number) arena.Offset {
	if t.root.rootNode() == arena.NullOffset {
		return arena.NullOffset
	}
	cur := t.header()
	last := arena.NullOffset
	for {
		if cur.bit() >= limit {
			break
		}
		last = cur.off
		d := t.dir(key, cur.bit())
		next := cur.child(d)
		if next == cur.off {
			break
		}
		cur = nodeAt(t.a, next)
	}
	return last
}
