// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wire

import (
	"bufio"
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := Frame{
		Operation: OpRPC,
		Muxid:     "42",
		Attrs:     map[string]string{"target": "router1"},
		Body:      []byte("<rpc/>"),
	}
	encoded := Encode(f)

	got, err := Read(bufio.NewReader(bytes.NewReader(encoded)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Operation != f.Operation {
		t.Fatalf("Operation = %q, want %q", got.Operation, f.Operation)
	}
	if got.Muxid != "42" {
		t.Fatalf("Muxid = %q, want %q", got.Muxid, "42")
	}
	if got.Attrs["target"] != "router1" {
		t.Fatalf("Attrs[target] = %q, want router1", got.Attrs["target"])
	}
	if !bytes.Equal(got.Body, f.Body) {
		t.Fatalf("Body = %q, want %q", got.Body, f.Body)
	}
}

func TestEncodeHeaderShape(t *testing.T) {
	f := Frame{Operation: OpReply, Muxid: "7", Body: []byte("ok")}
	encoded := Encode(f)
	if encoded[0] != '#' {
		t.Fatalf("missing leading '#'")
	}
	if string(encoded[1:3]) != Version {
		t.Fatalf("version = %q, want %q", encoded[1:3], Version)
	}
}

func TestReadRejectsBadMarker(t *testing.T) {
	_, err := Read(bufio.NewReader(bytes.NewReader([]byte("X01.00000020.rpc     .00000007.\nhi"))))
	if err == nil {
		t.Fatalf("Read: want error for missing '#'")
	}
}
