// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package console implements the mixer's local line console on stdio,
// supporting the "list", "close <name>", and "stat" inspection commands
// from the original implementation's console.c.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// Inspectable is implemented by whatever owns the live Socket registry,
// letting the console report on it without importing the eventloop
// package (which would create an import cycle through socket.Registry).
type Inspectable interface {
	List() []string
	Close(name string) bool
	Stat() string
}

// Console is one attached line-editing session.
type Console struct {
	line   *liner.State
	target Inspectable
	out    io.Writer
}

// New wraps an Inspectable target with a liner-backed prompt.
func New(target Inspectable, out io.Writer) *Console {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return &Console{line: l, target: target, out: out}
}

// Close releases the underlying liner state.
func (c *Console) Close() error { return c.line.Close() }

// RunOnce reads and executes a single console command, returning false
// when the session should end (EOF, Ctrl-C, or "quit"/"exit").
func (c *Console) RunOnce(prompt string) (bool, error) {
	text, err := c.line.Prompt(prompt)
	if err != nil {
		if err == liner.ErrPromptAborted || err == io.EOF {
			return false, nil
		}
		return false, err
	}
	c.line.AppendHistory(text)
	return c.dispatch(strings.TrimSpace(text)), nil
}

func (c *Console) dispatch(cmd string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return true
	}
	switch fields[0] {
	case "list":
		for _, name := range c.target.List() {
			fmt.Fprintln(c.out, name)
		}
	case "close":
		if len(fields) != 2 {
			fmt.Fprintln(c.out, "usage: close <name>")
			return true
		}
		if !c.target.Close(fields[1]) {
			fmt.Fprintf(c.out, "no such socket: %s\n", fields[1])
		}
	case "stat":
		fmt.Fprintln(c.out, c.target.Stat())
	case "quit", "exit":
		return false
	default:
		fmt.Fprintf(c.out, "unknown command: %s\n", fields[0])
	}
	return true
}
