// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MIXER_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USER", "alice")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	c, err := Load(fs)
	require.NoError(t, err)
	require.Equal(t, defaultPort, c.Port)
	require.False(t, c.Verbose)
	require.NotEmpty(t, c.DB)
}

func TestLoadFlagOverrides(t *testing.T) {
	t.Setenv("MIXER_CONFIG", "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USER", "alice")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "2222", "--server", "router1", "--verbose"}))

	c, err := Load(fs)
	require.NoError(t, err)
	require.Equal(t, 2222, c.Port)
	require.Equal(t, "router1", c.Server)
	require.True(t, c.Verbose)
}

func TestDeriveSockets(t *testing.T) {
	t.Setenv("USER", "alice")
	c := &Config{DotDir: "/home/alice"}
	s := c.DeriveSockets()
	require.Equal(t, "/home/alice/mixer.alice.ws", s.WebSocket)
	require.Equal(t, "/home/alice/mixer.alice.cons", s.Console)
	require.Equal(t, "/home/alice/mixer.alice.lock", s.Lock)
}
