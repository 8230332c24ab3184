// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package buildinfo

import "testing"

func TestStringIncludesVersionAndCommit(t *testing.T) {
	old, oldCommit := Version, Commit
	defer func() { Version, Commit = old, oldCommit }()

	Version = "1.2.3"
	Commit = "abcdef0"
	got := String()
	want := "vatmixd 1.2.3 (abcdef0)"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
