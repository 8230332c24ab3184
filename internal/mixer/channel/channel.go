// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package channel implements NETCONF-over-SSH channel framing: the
// six-byte end-of-frame marker "]]>]]>", detected even when it straddles
// two separate reads, and RPC request framing with the <rpc format="html">
// prefix/suffix convention.
package channel

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Juniper/juise-sub000/internal/mixer/socket"
	"github.com/Juniper/juise-sub000/internal/verrors"
)

// Marker is the NETCONF end-of-frame sequence.
const Marker = "]]>]]>"

const (
	rpcPrefix = `<rpc format="html">`
	rpcSuffix = `</rpc>]]>]]>`
)

// Lifecycle states a Channel moves through; mirrors socket.State so the
// EventLoop's generic sweep logic applies unchanged.
type lifecycle int

const (
	lifecycleIdle lifecycle = iota
	lifecycleInUse
	lifecycleReleased
	lifecycleClosed
)

// Channel is one multiplexed NETCONF subsystem channel over a Session's
// SSH connection.
type Channel struct {
	ID          string // internal correlator for logging, distinct from any client muxid
	SessionName string
	State       socket.State
	lifecycle   lifecycle

	client any // the Request currently bound to this channel, if any

	in         socket.Buffer
	markerSeen int // bytes of Marker matched at the end of the buffered data
}

// New allocates a Channel bound to a session, in socket.StateRPCInitial.
func New(sessionName string) *Channel {
	return &Channel{ID: uuid.NewString(), SessionName: sessionName, State: socket.StateRPCInitial, lifecycle: lifecycleInUse}
}

// Release moves the channel to the session's released pool: clears the
// client/request link and resets framing state so a later netconf() call
// can hand it out again from scratch.
func (c *Channel) Release() {
	c.client = nil
	c.lifecycle = lifecycleReleased
	c.State = socket.StateRPCIdle
	c.in.Reset()
	c.markerSeen = 0
}

// Close tears down the channel record. The caller is responsible for
// closing the underlying SSH channel itself.
func (c *Channel) Close() {
	c.lifecycle = lifecycleClosed
	c.State = socket.StateFailed
}

// SetClient binds client (typically a *request.Request) to this channel,
// moving it back to in-use.
func (c *Channel) SetClient(client any) {
	c.client = client
	c.lifecycle = lifecycleInUse
}

// Client returns the currently bound client, or nil.
func (c *Channel) Client() any { return c.client }

// FrameRPC wraps body in the NETCONF RPC prefix/suffix, matching the
// "apply in place if room, else fresh buffer" rule in spirit: since Go
// slices don't expose pre-allocated headroom the way the C buffer did,
// this always builds a fresh, exactly-sized buffer, which is the
// behaviorally equivalent fallback path.
func FrameRPC(body []byte) []byte {
	out := make([]byte, 0, len(rpcPrefix)+len(body)+len(rpcSuffix))
	out = append(out, rpcPrefix...)
	out = append(out, body...)
	out = append(out, rpcSuffix...)
	return out
}

// Feed appends a read to the channel's inbound buffer and scans for the
// end-of-frame marker. Every call rescans all buffered data, so a marker
// straddling this read and a previous one is still found. It returns the
// framed body (marker consumed, not included) and true once a complete
// frame has arrived.
func (c *Channel) Feed(p []byte) ([]byte, bool) {
	c.in.Write(p)
	data := c.in.Bytes()

	// Scan the buffered data from its start; markerSeen counts consecutive
	// matched prefix bytes of Marker, and when no full marker is found it
	// is left holding how many of them end the buffered data.
	c.markerSeen = 0
	start := 0
	for start < len(data) {
		b := data[start]
		if b == Marker[c.markerSeen] {
			c.markerSeen++
			start++
			if c.markerSeen == len(Marker) {
				body := data[:start-len(Marker)]
				c.in.Consume(start)
				c.markerSeen = 0
				c.State = socket.StateRPCComplete
				return body, true
			}
			continue
		}
		if c.markerSeen == 0 {
			start++
			continue
		}
		// Mismatch partway through a candidate marker: the bytes matched
		// so far were ordinary data, not a frame terminator; restart the
		// scan from right after where the candidate began.
		start -= c.markerSeen - 1
		c.markerSeen = 0
	}
	return nil, false
}

// ValidateHello checks that a channel's absorbed hello response is at
// least framed correctly; the NETCONF <hello> body itself is opaque to
// this layer.
func ValidateHello(body []byte) error {
	if len(body) == 0 {
		return fmt.Errorf("%w: empty hello", verrors.ErrFramingInvalid)
	}
	return nil
}
