// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package eventloop implements the mixer's single-threaded, poll-based
// dispatcher: one loop iteration preps every live Socket, calls poll(2)
// once over the accumulated set, routes the results back through each
// Socket's Type vtable, then sweeps completed Requests and failed
// Sockets.
package eventloop

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/Juniper/juise-sub000/internal/mixer/socket"
)

var log = logrus.WithField("component", "eventloop")

// DefaultTimeout bounds how long one Iterate call may block in poll(2)
// when no Socket requests a shorter one.
const DefaultTimeout = 30 * time.Second

// RequestSweeper lets the loop drive Request-list bookkeeping (step 4 of
// the per-iteration algorithm) without importing package request, which
// would create an import cycle (request imports eventloop's siblings).
type RequestSweeper interface {
	// Sweep transitions ERROR requests to RPC_COMPLETE (errors are not
	// fatal to the client) and releases requests left in FAILED or
	// RPC_COMPLETE, returning how many were released.
	Sweep() int
}

// Loop is one EventLoop instance.
type Loop struct {
	Registry *socket.Registry
	Requests RequestSweeper
}

// New returns a Loop over an empty Registry.
func New(requests RequestSweeper) *Loop {
	return &Loop{Registry: socket.NewRegistry(), Requests: requests}
}

// Iterate runs exactly one pass of the per-iteration algorithm.
func (l *Loop) Iterate() error {
	type prepped struct {
		s      *socket.Socket
		pfd    unix.PollFd
		polled bool
	}

	var entries []prepped
	timeoutMs := int(DefaultTimeout / time.Millisecond)

	l.Registry.Each(func(s *socket.Socket) {
		var pfd unix.PollFd
		pfd.Fd = int32(s.Fd)
		polled := true
		if s.Type.Prep != nil {
			polled = s.Type.Prep(s, &pfd, &timeoutMs)
		}
		entries = append(entries, prepped{s: s, pfd: pfd, polled: polled})
	})

	var pollSet []unix.PollFd
	for _, e := range entries {
		if e.polled {
			pollSet = append(pollSet, e.pfd)
		}
	}

	if len(pollSet) > 0 {
		if _, err := unix.Poll(pollSet, timeoutMs); err != nil && err != unix.EINTR {
			return err
		}
	} else if timeoutMs > 0 {
		time.Sleep(time.Duration(timeoutMs) * time.Millisecond)
	}

	i := 0
	for _, e := range entries {
		var pfd *unix.PollFd
		if e.polled {
			pfd = &pollSet[i]
			i++
		}
		if e.s.Type.Poller != nil {
			e.s.Type.Poller(e.s, pfd)
		}
	}

	if l.Requests != nil {
		if n := l.Requests.Sweep(); n > 0 {
			log.WithField("released", n).Debug("requests released")
		}
	}

	l.Registry.SweepFailed()
	return nil
}

// Run calls Iterate forever until stop is closed.
func (l *Loop) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := l.Iterate(); err != nil {
			return err
		}
	}
}
