// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package ws adapts a browser WebSocket connection to the mixer's
// socket.Type vtable, decoding/encoding the wire frame format (§6.3) over
// each binary message.
package ws

import (
	"bufio"
	"bytes"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/Juniper/juise-sub000/internal/mixer/socket"
	"github.com/Juniper/juise-sub000/internal/mixer/wire"
)

var log = logrus.WithField("component", "ws")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Bridge is one upgraded browser connection, carrying framed wire
// messages in both directions.
type Bridge struct {
	conn    *websocket.Conn
	inbox   chan wire.Frame
	outbox  chan wire.Frame
	closed  bool
	Handler func(Bridge *Bridge, f wire.Frame)
}

// Upgrade promotes an HTTP request to a WebSocket connection and returns a
// Bridge ready to be wrapped in a socket.Socket via Type.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Bridge, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	b := &Bridge{conn: conn, inbox: make(chan wire.Frame, 16), outbox: make(chan wire.Frame, 16)}
	go b.readLoop()
	return b, nil
}

func (b *Bridge) readLoop() {
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			close(b.inbox)
			return
		}
		f, err := wire.Read(bufio.NewReader(bytes.NewReader(data)))
		if err != nil {
			log.WithError(err).Warn("dropping malformed frame")
			continue
		}
		b.inbox <- f
	}
}

// Send queues a frame for delivery to the browser client.
func (b *Bridge) Send(f wire.Frame) {
	if b.closed {
		return
	}
	b.outbox <- f
}

// Type is the socket.Type vtable for a ws.Bridge.
var Type = &socket.Type{
	Name: "ws",
	Prep: func(s *socket.Socket, pfd *unix.PollFd, timeoutMs *int) bool {
		b := s.Impl().(*Bridge)
		return len(b.outbox) == 0 // decline polling if we already have buffered writes pending
	},
	Poller: func(s *socket.Socket, pfd *unix.PollFd) {
		b := s.Impl().(*Bridge)
		select {
		case f, ok := <-b.inbox:
			if !ok {
				s.State = socket.StateFailed
				return
			}
			if b.Handler != nil {
				b.Handler(b, f)
			}
		default:
		}
		drainOutbox(b)
	},
	Write: func(s *socket.Socket, p []byte) (int, error) {
		b := s.Impl().(*Bridge)
		return len(p), b.conn.WriteMessage(websocket.BinaryMessage, p)
	},
	Close: func(s *socket.Socket) {
		b := s.Impl().(*Bridge)
		b.closed = true
		b.conn.Close()
	},
}

func drainOutbox(b *Bridge) {
	for {
		select {
		case f := <-b.outbox:
			if err := b.conn.WriteMessage(websocket.BinaryMessage, wire.Encode(f)); err != nil {
				log.WithError(err).Warn("write failed")
				return
			}
		default:
			return
		}
	}
}
