// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package socket models the mixer's EventLoop-visible socket abstraction:
// a State machine shared by Sockets, Channels and Requests, and a Type
// vtable that lets the EventLoop drive every concrete transport (WebSocket
// bridge, SSH session, console) through the same call sequence without
// ever inspecting transport-specific fields.
package socket

import (
	"container/list"
	"golang.org/x/sys/unix"
)

// State is shared by Sockets, Channels and Requests.
type State int

// States, per the state enumeration.
const (
	StateNormal State = iota
	StateFailed
	StateError
	StateInput
	StateOutput
	StateHostkey
	StatePassphrase
	StatePassword
	StateEstablished
	StateRPCInitial
	StateRPCIdle
	StateRPCReadRPC
	StateRPCWriteRPC
	StateRPCReadReply
	StateRPCWriteReply
	StateRPCComplete
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateFailed:
		return "FAILED"
	case StateError:
		return "ERROR"
	case StateInput:
		return "INPUT"
	case StateOutput:
		return "OUTPUT"
	case StateHostkey:
		return "HOSTKEY"
	case StatePassphrase:
		return "PASSPHRASE"
	case StatePassword:
		return "PASSWORD"
	case StateEstablished:
		return "ESTABLISHED"
	case StateRPCInitial:
		return "RPC_INITIAL"
	case StateRPCIdle:
		return "RPC_IDLE"
	case StateRPCReadRPC:
		return "RPC_READ_RPC"
	case StateRPCWriteRPC:
		return "RPC_WRITE_RPC"
	case StateRPCReadReply:
		return "RPC_READ_REPLY"
	case StateRPCWriteReply:
		return "RPC_WRITE_REPLY"
	case StateRPCComplete:
		return "RPC_COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Socket is one live entry in the EventLoop's registry.
type Socket struct {
	Type  *Type
	State State
	Fd    int
	impl  any // transport-specific handle (session.Session, ws.Bridge, ...)
}

// Impl returns the transport-specific value behind this socket, for a
// caller that already knows (via Type) what concrete kind it is.
func (s *Socket) Impl() any { return s.impl }

// New wires a transport value to its vtable.
func New(t *Type, impl any) *Socket {
	return &Socket{Type: t, impl: impl}
}

// Type is the per-transport function-pointer record. The EventLoop invokes
// these and never reaches into a Socket's impl directly; every transport
// (SSH session, WebSocket bridge, console) satisfies the same shape.
type Type struct {
	Name string

	// Prep arranges the next poll: it may set events/fd on pfd and return
	// true to be polled, or return false if it has buffered work ready
	// and the EventLoop should call Poller immediately without waiting.
	Prep func(s *Socket, pfd *unix.PollFd, timeoutMs *int) bool

	// Poller handles the result of one poll iteration; pfd is nil if this
	// socket declined polling in Prep.
	Poller func(s *Socket, pfd *unix.PollFd)

	Write         func(s *Socket, p []byte) (int, error)
	WriteComplete func(s *Socket) bool
	Close         func(s *Socket)

	CheckHostkey func(s *Socket, fingerprint string) bool
	GetPassword  func(s *Socket) (string, bool)

	Error func(s *Socket, err error)
}

// Registry is the process-wide list of live Sockets, realized with
// container/list.List exactly as the EventLoop's single goroutine touches
// it (no mutex: nothing else may reach it, per the single-threaded
// EventLoop rule).
type Registry struct {
	l *list.List
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{l: list.New()}
}

// Add registers s and returns its list element, used later by Remove.
func (r *Registry) Add(s *Socket) *list.Element {
	return r.l.PushBack(s)
}

// Remove drops e from the registry.
func (r *Registry) Remove(e *list.Element) {
	r.l.Remove(e)
}

// Each visits every live Socket in registration order.
func (r *Registry) Each(fn func(s *Socket)) {
	for e := r.l.Front(); e != nil; e = e.Next() {
		fn(e.Value.(*Socket))
	}
}

// SweepFailed removes and closes every Socket in StateFailed, per the
// EventLoop's per-iteration algorithm step 5.
func (r *Registry) SweepFailed() {
	var next *list.Element
	for e := r.l.Front(); e != nil; e = next {
		next = e.Next()
		s := e.Value.(*Socket)
		if s.State == StateFailed {
			if s.Type.Close != nil {
				s.Type.Close(s)
			}
			r.l.Remove(e)
		}
	}
}

// Len reports how many Sockets are currently registered.
func (r *Registry) Len() int { return r.l.Len() }
