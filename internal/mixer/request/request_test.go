// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package request

import (
	"testing"

	"github.com/Juniper/juise-sub000/internal/mixer/session"
	"github.com/Juniper/juise-sub000/internal/mixer/socket"
	"github.com/Juniper/juise-sub000/internal/mixer/wire"
)

func TestDispatchUnknownOperation(t *testing.T) {
	r := New(wire.Frame{Muxid: "1", Operation: "bogus"})
	err := Dispatch(r, wire.Frame{Muxid: "1", Operation: "bogus"})
	if err == nil {
		t.Fatalf("Dispatch with unknown operation returned nil error")
	}
	reqErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if reqErr.Muxid != "1" {
		t.Fatalf("Error.Muxid = %q, want 1", reqErr.Muxid)
	}
}

func TestDispatchRPCWithoutSessionSavesBody(t *testing.T) {
	r := New(wire.Frame{Muxid: "2", Operation: wire.OpRPC})
	if err := Dispatch(r, wire.Frame{Muxid: "2", Operation: wire.OpRPC, Body: []byte("<get/>")}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if r.State != socket.StateRPCInitial {
		t.Fatalf("State = %v, want RPC_INITIAL", r.State)
	}
}

func TestResumeHostkeyWrongState(t *testing.T) {
	r := New(wire.Frame{Muxid: "3"})
	r.State = socket.StateNormal
	err := Dispatch(r, wire.Frame{Muxid: "3", Operation: wire.OpHostkey})
	if err == nil {
		t.Fatalf("resumeHostkey in wrong state returned nil error")
	}
}

func TestListSweepReleasesFailedAndComplete(t *testing.T) {
	var l List
	errored := &Request{Muxid: "a", State: socket.StateError}
	failed := &Request{Muxid: "b", State: socket.StateFailed}
	alive := &Request{Muxid: "c", State: socket.StateNormal}
	l.Add(errored)
	l.Add(failed)
	l.Add(alive)

	released := l.Sweep()
	if released != 2 {
		t.Fatalf("Sweep() released = %d, want 2", released)
	}
	if l.ByMuxid("a") != nil || l.ByMuxid("b") != nil {
		t.Fatalf("errored/failed requests should have been dropped")
	}
	if l.ByMuxid("c") != alive {
		t.Fatalf("alive request should remain in the list")
	}
}

func TestListFailBySession(t *testing.T) {
	var l List
	r := &Request{Muxid: "x", State: socket.StateNormal}
	other := &Request{Muxid: "y", State: socket.StateNormal}
	other.Session = &session.Session{}
	l.Add(r)
	l.Add(other)

	l.FailBySession(other.Session)
	if other.State != socket.StateFailed {
		t.Fatalf("request bound to the failed session should be marked FAILED, got %v", other.State)
	}
	if r.State != socket.StateNormal {
		t.Fatalf("request bound to a different session should be untouched, got %v", r.State)
	}
}
