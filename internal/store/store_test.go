// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostkeyCheckSaveRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer s.Close()

	key := []byte{0x01, 0x02, 0x03}
	verdict, err := s.CheckHostkey("router1", "ssh-ed25519", key)
	require.NoError(t, err)
	require.Equal(t, NoMatch, verdict)

	require.NoError(t, s.SaveHostkey("router1", "ssh-ed25519", key))
	verdict, err = s.CheckHostkey("router1", "ssh-ed25519", key)
	require.NoError(t, err)
	require.Equal(t, Match, verdict)

	otherKey := []byte{0x09, 0x09, 0x09}
	verdict, err = s.CheckHostkey("router1", "ssh-ed25519", otherKey)
	require.NoError(t, err)
	require.Equal(t, Mismatch, verdict)
}

func TestParseTarget(t *testing.T) {
	cases := []struct {
		raw  string
		want Target
	}{
		{"router1", Target{Name: "router1"}},
		{"admin@router1", Target{User: "admin", Name: "router1"}},
		{"router1:2222", Target{Name: "router1", Port: 2222}},
		{"admin@router1:2222", Target{User: "admin", Name: "router1", Port: 2222}},
	}
	for _, c := range cases {
		got := ParseTarget(c.raw)
		if got != c.want {
			t.Errorf("ParseTarget(%q) = %+v, want %+v", c.raw, got, c.want)
		}
	}
}

func TestPassphraseCache(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SavePassphrase("secret"))
	got, err := s.GetPassphrase()
	require.NoError(t, err)
	require.Equal(t, "secret", got)
}

func TestLookupDeviceNotFound(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer s.Close()

	_, found, err := s.LookupDevice("router1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestLookupOverridesStoredUser(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.Exec(`INSERT INTO devices (name, user) VALUES (?, ?)`, "router1", "stored-admin")
	require.NoError(t, err)

	target, dev, err := s.Lookup("explicit-admin@router1")
	require.NoError(t, err)
	require.Equal(t, "explicit-admin", target.User)
	require.Equal(t, "router1", dev.Name)

	target, _, err = s.Lookup("router1")
	require.NoError(t, err)
	require.Equal(t, "stored-admin", target.User)
}
