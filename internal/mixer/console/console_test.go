// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package console

import (
	"bytes"
	"strings"
	"testing"
)

type fakeInspectable struct {
	names   []string
	closed  string
	closeOK bool
	stat    string
}

func (f *fakeInspectable) List() []string { return f.names }
func (f *fakeInspectable) Close(name string) bool {
	f.closed = name
	return f.closeOK
}
func (f *fakeInspectable) Stat() string { return f.stat }

func TestDispatchList(t *testing.T) {
	var out bytes.Buffer
	target := &fakeInspectable{names: []string{"router1", "router2"}}
	c := &Console{target: target, out: &out}

	if cont := c.dispatch("list"); !cont {
		t.Fatalf("dispatch(list) = false, want true")
	}
	if got := out.String(); got != "router1\nrouter2\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestDispatchCloseKnown(t *testing.T) {
	var out bytes.Buffer
	target := &fakeInspectable{closeOK: true}
	c := &Console{target: target, out: &out}

	c.dispatch("close router1")
	if target.closed != "router1" {
		t.Fatalf("Close called with %q, want router1", target.closed)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output for a successful close: %q", out.String())
	}
}

func TestDispatchCloseUnknown(t *testing.T) {
	var out bytes.Buffer
	target := &fakeInspectable{closeOK: false}
	c := &Console{target: target, out: &out}

	c.dispatch("close ghost")
	if !strings.Contains(out.String(), "no such socket: ghost") {
		t.Fatalf("output = %q, want a no-such-socket message", out.String())
	}
}

func TestDispatchStat(t *testing.T) {
	var out bytes.Buffer
	target := &fakeInspectable{stat: "3 sockets, 1 failed"}
	c := &Console{target: target, out: &out}

	c.dispatch("stat")
	if got := strings.TrimSpace(out.String()); got != "3 sockets, 1 failed" {
		t.Fatalf("output = %q", got)
	}
}

func TestDispatchQuit(t *testing.T) {
	c := &Console{target: &fakeInspectable{}, out: &bytes.Buffer{}}
	if cont := c.dispatch("quit"); cont {
		t.Fatalf("dispatch(quit) = true, want false")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	c := &Console{target: &fakeInspectable{}, out: &out}
	c.dispatch("frobnicate")
	if !strings.Contains(out.String(), "unknown command: frobnicate") {
		t.Fatalf("output = %q", out.String())
	}
}
