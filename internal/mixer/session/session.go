// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package session implements the mixer's persistent SSH session: address
// resolution, handshake, host key verification against the Store (or an
// ssh-known-hosts file), and the publickey/password auth state machine.
package session

import (
	"context"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/Juniper/juise-sub000/internal/mixer/channel"
	"github.com/Juniper/juise-sub000/internal/mixer/socket"
	"github.com/Juniper/juise-sub000/internal/verrors"
)

var log = logrus.WithField("component", "session")

// MaxPasswordAttempts is the number of consecutive password failures
// tolerated before the Session is torn down.
const MaxPasswordAttempts = 3

// HostkeyChecker looks a host key up against persisted trust state,
// implemented by internal/store in production and a known_hosts file
// callback when --use-known-hosts is set.
type HostkeyChecker interface {
	CheckHostkey(name string, key ssh.PublicKey) (Verdict, error)
	SaveHostkey(name string, key ssh.PublicKey) error
}

// Verdict is the result of a host key lookup.
type Verdict int

// Verdicts returned by HostkeyChecker.CheckHostkey.
const (
	Match Verdict = iota
	NoMatch
	Mismatch
)

// PromptClient is notified of events that require out-of-band user
// interaction (host key confirmation, passphrase/password prompts). It
// corresponds to the `mti_*` client callbacks in the design notes.
type PromptClient interface {
	CheckHostkey(fingerprint string) (suspend bool)
	GetPassphrase() (string, bool)
	GetPassword() (string, bool)
}

// Session is one persistent SSH connection to a device.
type Session struct {
	Name  string // hostname as passed to Open (not canonicalised), filled in after connect
	State socket.State

	conn   net.Conn
	client *ssh.Client

	inUse    []*channel.Channel
	released []*channel.Channel

	hostkeys HostkeyChecker
	prompt   PromptClient

	passwordAttempts int
	passwordCache    string
	passphraseCache  string
}

// New returns an idle Session bound to the given trust store and prompt
// client.
func New(hostkeys HostkeyChecker, prompt PromptClient) *Session {
	return &Session{State: socket.StateNormal, hostkeys: hostkeys, prompt: prompt}
}

// Open resolves hostname and dials port on each resolved address in turn
// until one connects. It performs neither the SSH handshake nor host key
// verification nor authentication; Handshake and Authenticate do those.
func (s *Session) Open(ctx context.Context, hostname string, port int) error {
	addrs, err := net.DefaultResolver.LookupHost(ctx, hostname)
	if err != nil {
		return fmt.Errorf("%w: %v", verrors.ErrResolveFailed, err)
	}

	var lastErr error
	var dialer net.Dialer
	for _, addr := range addrs {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, fmt.Sprint(port)))
		if err != nil {
			lastErr = err
			continue
		}
		s.conn = conn
		lastErr = nil
		break
	}
	if s.conn == nil {
		return fmt.Errorf("%w: %v", verrors.ErrConnectFailed, lastErr)
	}

	s.Name = hostname
	log.WithFields(logrus.Fields{"host": hostname, "port": port}).Info("session connecting")
	return nil
}

// Handshake performs the SSH client handshake over the already-dialed
// connection, verifying the host key via hostkeyCallback.
func (s *Session) Handshake(user string, auth []ssh.AuthMethod) error {
	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: s.hostKeyCallback,
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(s.conn, s.conn.RemoteAddr().String(), cfg)
	if err != nil {
		s.State = socket.StateFailed
		return fmt.Errorf("%w: %v", verrors.ErrHandshakeFailed, err)
	}
	s.client = ssh.NewClient(sshConn, chans, reqs)
	s.State = socket.StateEstablished
	log.WithField("host", s.Name).Info("session established")
	return nil
}

// hostKeyCallback implements check_hostkey: it looks the key up in the
// trust store, and on no-match/mismatch prompts the client with a
// human-readable fingerprint before proceeding or suspending.
func (s *Session) hostKeyCallback(hostname string, remote net.Addr, key ssh.PublicKey) error {
	verdict, err := s.hostkeys.CheckHostkey(s.Name, key)
	if err != nil {
		return err
	}
	if verdict == Match {
		return nil
	}

	s.State = socket.StateHostkey
	fp := knownhosts.Fingerprint(key)
	if suspend := s.prompt.CheckHostkey(fp); suspend {
		return fmt.Errorf("%w: host key %s requires confirmation", verrors.ErrHostkeyMismatch, fp)
	}
	if err := s.hostkeys.SaveHostkey(s.Name, key); err != nil {
		return err
	}
	return nil
}

// Authenticate runs the publickey-then-password ladder described in the
// design notes, given candidate identities and a password supplier.
func (s *Session) Authenticate(identities []ssh.Signer, password func() (string, bool)) error {
	for _, id := range identities {
		auth := ssh.PublicKeys(id)
		if err := s.tryHandshake(auth); err == nil {
			return nil
		}
	}

	for s.passwordAttempts < MaxPasswordAttempts {
		pw, ok := password()
		if !ok {
			s.State = socket.StatePassword
			return fmt.Errorf("%w: no password available", verrors.ErrAuthFailed)
		}
		if err := s.tryHandshake(ssh.Password(pw)); err == nil {
			s.passwordCache = pw
			return nil
		}
		s.passwordAttempts++
	}

	s.State = socket.StateFailed
	return fmt.Errorf("%w: exceeded %d password attempts", verrors.ErrAuthFailed, MaxPasswordAttempts)
}

func (s *Session) tryHandshake(auth ssh.AuthMethod) error {
	return s.Handshake("", []ssh.AuthMethod{auth})
}

// OpenChannel requests a fresh SSH channel for NETCONF use, reusing an
// idle Channel from the released pool when one is available.
func (s *Session) OpenChannel() *channel.Channel {
	if n := len(s.released); n > 0 {
		c := s.released[n-1]
		s.released = s.released[:n-1]
		s.inUse = append(s.inUse, c)
		return c
	}
	c := channel.New(s.Name)
	s.inUse = append(s.inUse, c)
	return c
}

// ReleaseChannel moves c from in-use to released, per the Channel
// lifecycle contract.
func (s *Session) ReleaseChannel(c *channel.Channel) {
	for i, ch := range s.inUse {
		if ch == c {
			s.inUse = append(s.inUse[:i], s.inUse[i+1:]...)
			break
		}
	}
	c.Release()
	s.released = append(s.released, c)
}

// Fail transitions the session and every channel it owns into the failed
// state, per the failure semantics in the design notes: session failures
// release every bound request, which the EventLoop then sweeps.
func (s *Session) Fail() {
	s.State = socket.StateFailed
	for _, c := range s.inUse {
		c.Close()
	}
	for _, c := range s.released {
		c.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
}
