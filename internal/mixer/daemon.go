// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package mixer wires the EventLoop, Session, Request and Store layers
// into one running daemon, matching the component graph in §2.
package mixer

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/Juniper/juise-sub000/internal/mixer/eventloop"
	"github.com/Juniper/juise-sub000/internal/mixer/request"
	"github.com/Juniper/juise-sub000/internal/mixer/session"
	"github.com/Juniper/juise-sub000/internal/mixer/socket"
	"github.com/Juniper/juise-sub000/internal/store"
)

var log = logrus.WithField("component", "mixer")

// Daemon owns the EventLoop and every live Session, implementing
// console.Inspectable so the console socket can list/close/stat them.
type Daemon struct {
	mu       sync.Mutex
	sessions map[string]*session.Session

	store    *store.Store
	requests *request.List
	loop     *eventloop.Loop
}

// New builds a Daemon backed by st (nil for --no-db).
func New(st *store.Store) *Daemon {
	reqs := &request.List{}
	d := &Daemon{
		sessions: make(map[string]*session.Session),
		store:    st,
		requests: reqs,
		loop:     eventloop.New(reqs),
	}
	return d
}

// Registry exposes the EventLoop's socket registry so transport adapters
// (such as ws.Bridge) can be registered by the caller.
func (d *Daemon) Registry() *socket.Registry { return d.loop.Registry }

// Requests exposes the live Request list for Dispatch routing.
func (d *Daemon) Requests() *request.List { return d.requests }

// Session returns the named Session, opening a fresh idle one (backed by
// the Daemon's Store for host key trust) if none exists yet.
func (d *Daemon) Session(name string, prompt session.PromptClient) *session.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[name]; ok {
		return s
	}
	s := session.New(hostkeyAdapter{d.store}, prompt)
	d.sessions[name] = s
	return s
}

// Run drives the EventLoop until stop is closed.
func (d *Daemon) Run(stop <-chan struct{}) error {
	log.Info("mixer daemon starting")
	return d.loop.Run(stop)
}

// List implements console.Inspectable: the names of every live session.
func (d *Daemon) List() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.sessions))
	for name := range d.sessions {
		names = append(names, name)
	}
	return names
}

// Close implements console.Inspectable: fails the named session, which
// the EventLoop's next Sweep/SweepFailed pass tears down.
func (d *Daemon) Close(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[name]
	if !ok {
		return false
	}
	s.Fail()
	d.requests.FailBySession(s)
	delete(d.sessions, name)
	return true
}

// Stat implements console.Inspectable: a one-line summary for the console.
func (d *Daemon) Stat() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("%d sessions, %d sockets registered", len(d.sessions), d.loop.Registry.Len())
}

// hostkeyAdapter satisfies session.HostkeyChecker over a *store.Store,
// translating between ssh.PublicKey and the store's raw-bytes encoding.
type hostkeyAdapter struct{ st *store.Store }

func (h hostkeyAdapter) CheckHostkey(name string, key ssh.PublicKey) (session.Verdict, error) {
	if h.st == nil {
		return session.NoMatch, nil
	}
	v, err := h.st.CheckHostkey(name, key.Type(), key.Marshal())
	if err != nil {
		return session.NoMatch, err
	}
	return session.Verdict(v), nil
}

func (h hostkeyAdapter) SaveHostkey(name string, key ssh.PublicKey) error {
	if h.st == nil {
		return nil
	}
	return h.st.SaveHostkey(name, key.Type(), key.Marshal())
}
