// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Command vatrie is a small inspection/maintenance CLI for VAT arena
// files, exercising internal/arena, internal/trie and internal/vat
// outside the mixer daemon.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Juniper/juise-sub000/internal/arena"
	"github.com/Juniper/juise-sub000/internal/buildinfo"
	"github.com/Juniper/juise-sub000/internal/trie"
	"github.com/Juniper/juise-sub000/internal/vat"
)

// defaultSize is the initial file size for a freshly created arena; the
// arena grows on demand past this (see internal/arena.Arena.grow).
const defaultSize = 1 << 20

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "vatrie",
		Short:   "Inspect and edit a VAT arena file",
		Version: buildinfo.Version,
	}
	root.AddCommand(newCreateCmd(), newAddCmd(), newGetCmd(), newDeleteCmd(), newDumpCmd())
	return root
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <path>",
		Short: "Create a new empty VAT arena file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := arena.Create(args[0], defaultSize)
			if err != nil {
				return err
			}
			defer a.Close()
			h := vat.Open(a)
			if _, err := h.NewTree(0); err != nil {
				return err
			}
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path> <key> <value>",
		Short: "Insert a key/value pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, t, err := openTree(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			contents, err := storeValue(a, []byte(args[2]))
			if err != nil {
				return err
			}
			ok, err := t.Add([]byte(args[1]), contents, trie.TypeBytes)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q already present", args[1])
			}
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path> <key>",
		Short: "Look up a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, t, err := openTree(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			contents, ok := t.Get([]byte(args[1]))
			if !ok {
				return fmt.Errorf("key %q not found", args[1])
			}
			fmt.Println(string(loadValue(a, contents)))
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path> <key>",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, t, err := openTree(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := t.Delete([]byte(args[1]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("key %q not found", args[1])
			}
			return nil
		},
	}
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <path>",
		Short: "Print every key in ascending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, t, err := openTree(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			off := t.GetNext(nil, true)
			for off != arena.NullOffset {
				key, contents := t.KeyAt(off)
				fmt.Printf("%s\t%s\n", key, string(loadValue(a, contents)))
				off = t.FindNext(off)
			}
			return nil
		},
	}
}

func openTree(path string) (*arena.Arena, *vat.Tree, error) {
	a, err := arena.Open(path)
	if err != nil {
		return nil, nil, err
	}
	h := vat.Open(a)
	t, err := h.NewTree(0)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, t, nil
}

// storeValue writes a length-prefixed copy of v into the arena and
// returns its offset; vatrie's own convention for leaf contents, not a
// requirement of internal/trie (which treats contents as opaque).
func storeValue(a *arena.Arena, v []byte) (arena.Offset, error) {
	off, err := a.Alloc(uint64(4 + len(v)))
	if err != nil {
		return arena.NullOffset, err
	}
	buf := a.Bytes(off, uint64(4+len(v)))
	binary.LittleEndian.PutUint32(buf, uint32(len(v)))
	copy(buf[4:], v)
	return off, nil
}

func loadValue(a *arena.Arena, off arena.Offset) []byte {
	n := binary.LittleEndian.Uint32(a.Bytes(off, 4))
	return a.Bytes(off+4, uint64(n))
}
