// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package socket

import "testing"

func TestBufferWriteConsume(t *testing.T) {
	var b Buffer
	b.Write([]byte("hello"))
	b.Write([]byte("world"))
	if got := string(b.Bytes()); got != "helloworld" {
		t.Fatalf("Bytes() = %q, want helloworld", got)
	}
	if b.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", b.Len())
	}

	b.Consume(5)
	if got := string(b.Bytes()); got != "world" {
		t.Fatalf("Bytes() after Consume(5) = %q, want world", got)
	}

	b.Consume(100)
	if b.Len() != 0 {
		t.Fatalf("Len() after over-consume = %d, want 0", b.Len())
	}
}

func TestBufferReset(t *testing.T) {
	var b Buffer
	b.Write([]byte("data"))
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
	b.Write([]byte("more"))
	if got := string(b.Bytes()); got != "more" {
		t.Fatalf("Bytes() after reuse = %q, want more", got)
	}
}

func TestRegistrySweepFailed(t *testing.T) {
	r := NewRegistry()
	closed := make(map[int]bool)
	typ := &Type{Close: func(s *Socket) { closed[s.Fd] = true }}

	s1 := New(typ, nil)
	s1.Fd = 1
	s1.State = StateFailed
	s2 := New(typ, nil)
	s2.Fd = 2
	s2.State = StateNormal

	r.Add(s1)
	r.Add(s2)

	r.SweepFailed()
	if r.Len() != 1 {
		t.Fatalf("Len() after sweep = %d, want 1", r.Len())
	}
	if !closed[1] {
		t.Fatalf("expected failed socket 1 to be closed")
	}
	if closed[2] {
		t.Fatalf("normal socket 2 should not have been closed")
	}
}
