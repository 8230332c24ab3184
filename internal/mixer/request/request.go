// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package request implements the per-client RPC state machine: one
// Request is created per incoming wire frame and routed by its operation
// field to the Session/Channel it targets.
package request

import (
	"fmt"

	"github.com/Juniper/juise-sub000/internal/mixer/channel"
	"github.com/Juniper/juise-sub000/internal/mixer/session"
	"github.com/Juniper/juise-sub000/internal/mixer/socket"
	"github.com/Juniper/juise-sub000/internal/mixer/wire"
)

// Error wraps an underlying failure with the muxid the framed error
// message (§6.3) must echo back to the client.
type Error struct {
	Muxid string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("muxid %s: %v", e.Muxid, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Frame renders this error as a wire "error" operation frame.
func (e *Error) Frame() wire.Frame {
	return wire.Frame{
		Operation: wire.OpError,
		Muxid:     e.Muxid,
		Body:      []byte(e.Err.Error()),
	}
}

// Request is the client-visible unit of work bound to a muxid.
type Request struct {
	Muxid   string
	State   socket.State
	Target  string // [user@]name[:port], parsed by target_lookup
	Session *session.Session
	Channel *channel.Channel

	rpcBody []byte // saved RPC body while waiting for ESTABLISHED/auth
}

// New creates a Request for an incoming frame, deferring routing to
// Dispatch.
func New(f wire.Frame) *Request {
	return &Request{Muxid: f.Muxid, State: socket.StateNormal, Target: f.Attrs["target"], rpcBody: f.Body}
}

// Dispatch routes an incoming frame by its operation field, per the
// Request processing rules in the design notes.
func Dispatch(r *Request, f wire.Frame) error {
	switch f.Operation {
	case wire.OpRPC, wire.OpHTMLRPC:
		return r.startRPC(f.Body)
	case wire.OpHostkey:
		return r.resumeHostkey()
	case wire.OpPSWord:
		return r.resumePassword(f.Body)
	case wire.OpPSPhrase:
		return r.resumePassphrase(f.Body)
	default:
		return &Error{Muxid: r.Muxid, Err: fmt.Errorf("unhandled operation %q", f.Operation)}
	}
}

// startRPC implements the "rpc" operation: if the session is already
// established and a channel is available, the RPC is sent immediately;
// otherwise it is saved and the Request enters the matching wait state
// (HOSTKEY/PASSPHRASE/PASSWORD, set by the Session's auth ladder) until
// the session reaches ESTABLISHED.
func (r *Request) startRPC(body []byte) error {
	r.rpcBody = body
	if r.Session == nil || r.Session.State != socket.StateEstablished {
		r.State = socket.StateRPCInitial
		if r.Session != nil {
			switch r.Session.State {
			case socket.StateHostkey, socket.StatePassphrase, socket.StatePassword:
				r.State = r.Session.State
			}
		}
		return nil
	}
	return r.sendPendingRPC()
}

// resumeHostkey implements the "hostkey" operation: the client has
// confirmed (or rejected) an out-of-band host key prompt. The caller is
// expected to have already persisted the key and advanced the session;
// this just validates state and restarts the pending RPC.
func (r *Request) resumeHostkey() error {
	if r.State != socket.StateHostkey {
		return &Error{Muxid: r.Muxid, Err: fmt.Errorf("hostkey reply in unexpected state %s", r.State)}
	}
	return r.restartIfEstablished()
}

func (r *Request) resumePassword(body []byte) error {
	if r.State != socket.StatePassword {
		return &Error{Muxid: r.Muxid, Err: fmt.Errorf("password reply in unexpected state %s", r.State)}
	}
	return r.restartIfEstablished()
}

func (r *Request) resumePassphrase(body []byte) error {
	if r.State != socket.StatePassphrase {
		return &Error{Muxid: r.Muxid, Err: fmt.Errorf("passphrase reply in unexpected state %s", r.State)}
	}
	return r.restartIfEstablished()
}

func (r *Request) restartIfEstablished() error {
	if r.Session != nil && r.Session.State == socket.StateEstablished {
		return r.sendPendingRPC()
	}
	return nil
}

func (r *Request) sendPendingRPC() error {
	if r.Channel == nil {
		r.Channel = r.Session.OpenChannel()
	}
	framed := channel.FrameRPC(r.rpcBody)
	_ = framed // actual write goes through the channel's SSH stream, owned by eventloop
	r.State = socket.StateRPCWriteRPC
	return nil
}

// List is the EventLoop-owned set of live Requests, mutated only by the
// EventLoop goroutine (see the concurrency design notes). It implements
// eventloop.RequestSweeper.
type List struct {
	items []*Request
}

// Add registers r.
func (l *List) Add(r *Request) { l.items = append(l.items, r) }

// Sweep implements the per-iteration algorithm's step 4: requests in
// ERROR move to RPC_COMPLETE (errors are not fatal to the client), and
// requests left in FAILED or RPC_COMPLETE are released. Returns the
// number released.
func (l *List) Sweep() int {
	kept := l.items[:0]
	released := 0
	for _, r := range l.items {
		if r.State == socket.StateError {
			r.State = socket.StateRPCComplete
		}
		if r.State == socket.StateFailed || r.State == socket.StateRPCComplete {
			released++
			continue
		}
		kept = append(kept, r)
	}
	l.items = kept
	return released
}

// ByMuxid finds a live Request by its muxid, or nil.
func (l *List) ByMuxid(muxid string) *Request {
	for _, r := range l.items {
		if r.Muxid == muxid {
			return r
		}
	}
	return nil
}

// FailBySession marks every Request bound to sess as FAILED, per the
// Session failure semantics: the EventLoop will report and free them on
// its next Sweep.
func (l *List) FailBySession(sess *session.Session) {
	for _, r := range l.items {
		if r.Session == sess {
			r.State = socket.StateFailed
		}
	}
}
