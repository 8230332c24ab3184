// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package store

import (
	"strconv"
	"strings"
)

// Target is a parsed "[user@]name[:port]" client target string.
type Target struct {
	User string
	Name string
	Port int
}

// ParseTarget splits raw into its user/name/port components, leaving User
// empty and Port at 0 when not present in raw.
func ParseTarget(raw string) Target {
	t := Target{Name: raw}
	if at := strings.IndexByte(t.Name, '@'); at >= 0 {
		t.User = t.Name[:at]
		t.Name = t.Name[at+1:]
	}
	if colon := strings.LastIndexByte(t.Name, ':'); colon >= 0 {
		if port, err := strconv.Atoi(t.Name[colon+1:]); err == nil {
			t.Port = port
			t.Name = t.Name[:colon]
		}
	}
	return t
}

// Lookup resolves raw into a Target. When raw has no explicit "user@", the
// user comes from the stored device row, if any; an explicit user always
// wins. The device row has no port, so Port is only ever the ":port" given
// in raw.
func (s *Store) Lookup(raw string) (Target, Device, error) {
	t := ParseTarget(raw)
	dev, found, err := s.LookupDevice(t.Name)
	if err != nil {
		return t, Device{}, err
	}
	if !found {
		return t, Device{Name: t.Name, User: t.User}, nil
	}
	if t.User == "" {
		t.User = dev.User
	}
	return t, dev, nil
}
