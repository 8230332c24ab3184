// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package buildinfo carries the version string reported by the mixer
// daemon's --version/-V flag. Version is overridden at link time via
// -ldflags "-X .../buildinfo.Version=...".
package buildinfo

import "fmt"

// Version is the mixer release version, set at build time. It defaults
// to "dev" for a locally built binary.
var Version = "dev"

// Commit is the VCS commit the binary was built from, set at build time.
var Commit = "unknown"

// String renders the version line printed by --version/-V.
func String() string {
	return fmt.Sprintf("vatmixd %s (%s)", Version, Commit)
}
