// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Command vatmixd is the mixer daemon: it bridges browser WebSocket
// clients and NETCONF-over-SSH network devices, per §6.4.
package main

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Juniper/juise-sub000/internal/buildinfo"
	"github.com/Juniper/juise-sub000/internal/config"
	"github.com/Juniper/juise-sub000/internal/mixer"
	"github.com/Juniper/juise-sub000/internal/mixer/console"
	"github.com/Juniper/juise-sub000/internal/mixer/request"
	"github.com/Juniper/juise-sub000/internal/mixer/socket"
	"github.com/Juniper/juise-sub000/internal/mixer/wire"
	"github.com/Juniper/juise-sub000/internal/mixer/ws"
	"github.com/Juniper/juise-sub000/internal/store"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vatmixd",
		Short:         "Persistent-SSH multiplexer daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("vatmixd: %w", err)
	}
	if cfg.Version {
		fmt.Println(buildinfo.String())
		return nil
	}
	configureLogging(cfg)

	sockets := cfg.DeriveSockets()
	lock := flock.New(sockets.Lock)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("vatmixd: acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("vatmixd: another instance is already running (%s)", sockets.Lock)
	}
	defer lock.Unlock()

	var st *store.Store
	if !cfg.NoDB {
		st, err = store.Open(cfg.DB)
		if err != nil {
			return fmt.Errorf("vatmixd: open store: %w", err)
		}
		defer st.Close()
	}

	d := mixer.New(st)

	if cfg.LocalConsole {
		go runLocalConsole(d)
	} else if !cfg.NoConsole {
		consoleLn, err := listenUnix(sockets.Console)
		if err != nil {
			return fmt.Errorf("vatmixd: console socket: %w", err)
		}
		defer consoleLn.Close()
		go serveConsoleSocket(consoleLn, d)
	}

	wsLn, err := listenUnix(sockets.WebSocket)
	if err != nil {
		return fmt.Errorf("vatmixd: websocket socket: %w", err)
	}
	defer wsLn.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		bridge, err := ws.Upgrade(w, r)
		if err != nil {
			logrus.WithError(err).Warn("websocket upgrade failed")
			return
		}
		bridge.Handler = func(b *ws.Bridge, f wire.Frame) {
			req := d.Requests().ByMuxid(f.Muxid)
			if req == nil {
				req = request.New(f)
				d.Requests().Add(req)
			}
			if err := request.Dispatch(req, f); err != nil {
				if reqErr, ok := err.(*request.Error); ok {
					b.Send(reqErr.Frame())
					return
				}
				logrus.WithError(err).Warn("request dispatch failed")
			}
		}
		d.Registry().Add(socket.New(ws.Type, bridge))
	})
	go func() {
		if err := http.Serve(wsLn, mux); err != nil {
			logrus.WithError(err).Warn("websocket listener stopped")
		}
	}()

	stop := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		close(stop)
	}()

	logrus.WithFields(logrus.Fields{
		"ws":      sockets.WebSocket,
		"console": sockets.Console,
		"version": buildinfo.Version,
	}).Info("vatmixd ready")

	if err := d.Run(stop); err != nil {
		return fmt.Errorf("vatmixd: event loop: %w", err)
	}
	return nil
}

// listenUnix binds a Unix domain socket at path, removing any stale file
// left behind by a prior, uncleanly terminated instance.
func listenUnix(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("path", path).Warn("failed to remove stale socket")
	}
	return net.Listen("unix", path)
}

// runLocalConsole attaches a liner-backed console.Console to the process's
// own stdio, for --local-console.
func runLocalConsole(d *mixer.Daemon) {
	c := console.New(d, os.Stdout)
	defer c.Close()
	for {
		more, err := c.RunOnce("vatmixd> ")
		if err != nil {
			logrus.WithError(err).Warn("local console ended")
			return
		}
		if !more {
			return
		}
	}
}

// serveConsoleSocket accepts connections on the console Unix socket and
// runs a minimal line-oriented command loop against d. Unlike
// runLocalConsole this does not use liner, which binds to the process's
// own tty rather than an arbitrary net.Conn.
func serveConsoleSocket(ln net.Listener, d *mixer.Daemon) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			logrus.WithError(err).Warn("console listener stopped")
			return
		}
		go handleConsoleConn(conn, d)
	}
}

func handleConsoleConn(conn net.Conn, d *mixer.Daemon) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "list":
			for _, name := range d.List() {
				fmt.Fprintln(conn, name)
			}
		case "close":
			if len(fields) != 2 {
				fmt.Fprintln(conn, "usage: close <name>")
				continue
			}
			if !d.Close(fields[1]) {
				fmt.Fprintf(conn, "no such session: %s\n", fields[1])
			}
		case "stat":
			fmt.Fprintln(conn, d.Stat())
		case "quit", "exit":
			return
		default:
			fmt.Fprintf(conn, "unknown command: %s\n", fields[0])
		}
	}
}

func configureLogging(cfg *config.Config) {
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else if cfg.Verbose {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
	if cfg.Log != "" {
		f, err := os.OpenFile(cfg.Log, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logrus.WithError(err).Error("failed to open log file, falling back to stderr")
			return
		}
		logrus.SetOutput(f)
	}
}
