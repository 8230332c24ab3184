// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package config binds the mixer daemon's CLI flags (§6.4) and an
// optional config file together via viper, and derives the three
// well-known Unix socket paths under DOT_DIR.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved set of daemon settings, after flags and
// any config file have been merged.
type Config struct {
	Console       bool
	DB            string
	Debug         bool
	DotDir        string
	Fork          bool
	Home          string
	KeepAlive     bool
	LocalConsole  bool
	Log           string
	Login         string
	NoConsole     bool
	NoDB          bool
	Password      bool
	Port          int
	Server        string
	UseKnownHosts bool
	Verbose       bool
	Version       bool
}

// defaultPort is the standard NETCONF-over-SSH port.
const defaultPort = 830

// RegisterFlags defines the mixer's CLI flags on fs, matching the long
// and short forms.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolP("console", "c", false, "attach a console to a running mixer")
	fs.String("db", "", "path to the state store (default: $DOT_DIR/mixer.$USER.db)")
	fs.Bool("debug", false, "enable debug-level logging")
	fs.String("dot-dir", "", "directory for sockets/lock/store (default: $HOME)")
	fs.Bool("fork", false, "fork into the background after start-up")
	fs.String("home", "", "override $HOME for DOT_DIR derivation")
	fs.BoolP("keep-alive", "k", false, "send SSH keep-alives on idle sessions")
	fs.Bool("local-console", false, "run the console on stdio instead of the console socket")
	fs.String("log", "", "log file path (default: stderr)")
	fs.String("login", "", "default SSH login user")
	fs.Bool("no-console", false, "disable the console socket")
	fs.Bool("no-db", false, "run without a persistent store")
	fs.Bool("password", false, "prompt for a password up front")
	fs.Int("port", defaultPort, "default SSH port")
	fs.String("server", "", "target device, [user@]name[:port]")
	fs.BoolP("use-known-hosts", "K", false, "consult ~/.ssh/known_hosts for host key verification")
	fs.Bool("verbose", false, "enable verbose logging")
	fs.BoolP("version", "V", false, "print the version and exit")
}

// Load merges fs's parsed flags with any config file found at
// $DOT_DIR/mixer.toml (or the path given by the MIXER_CONFIG
// environment variable) and returns the resolved Config.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}
	v.SetEnvPrefix("mixer")
	v.AutomaticEnv()

	home := v.GetString("home")
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config: resolve home: %w", err)
		}
		home = h
	}
	dotDir := v.GetString("dot-dir")
	if dotDir == "" {
		dotDir = home
	}

	if cfgPath := os.Getenv("MIXER_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("mixer")
		v.SetConfigType("toml")
		v.AddConfigPath(dotDir)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	c := &Config{
		Console:       v.GetBool("console"),
		DB:            v.GetString("db"),
		Debug:         v.GetBool("debug"),
		DotDir:        dotDir,
		Fork:          v.GetBool("fork"),
		Home:          home,
		KeepAlive:     v.GetBool("keep-alive"),
		LocalConsole:  v.GetBool("local-console"),
		Log:           v.GetString("log"),
		Login:         v.GetString("login"),
		NoConsole:     v.GetBool("no-console"),
		NoDB:          v.GetBool("no-db"),
		Password:      v.GetBool("password"),
		Port:          v.GetInt("port"),
		Server:        v.GetString("server"),
		UseKnownHosts: v.GetBool("use-known-hosts"),
		Verbose:       v.GetBool("verbose"),
		Version:       v.GetBool("version"),
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.DB == "" {
		c.DB = filepath.Join(c.DotDir, fmt.Sprintf("mixer.%s.db", currentUser()))
	}
	return c, nil
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// Sockets holds the three well-known Unix socket/lock paths derived
// from a Config's DotDir, per §6.4.
type Sockets struct {
	WebSocket string
	Console   string
	Lock      string
}

// DeriveSockets computes the $DOT_DIR/mixer.$USER.{ws,cons,lock} paths.
func (c *Config) DeriveSockets() Sockets {
	user := currentUser()
	base := filepath.Join(c.DotDir, fmt.Sprintf("mixer.%s", user))
	return Sockets{
		WebSocket: base + ".ws",
		Console:   base + ".cons",
		Lock:      base + ".lock",
	}
}
