// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package bitnum

import "testing"

func TestNoBitOrdering(t *testing.T) {
	for length := 1; length <= 8; length++ {
		if b := LengthToBit(length); b <= NoBit {
			t.Fatalf("LengthToBit(%d) = %v, want > NoBit", length, b)
		}
	}
}

func TestLengthToBit(t *testing.T) {
	cases := []struct {
		length int
		want   Number
	}{
		{0, NoBit},
		{1, 0x00ff},
		{2, 0x01ff},
		{5, 0x04ff},
	}
	for _, c := range cases {
		if got := LengthToBit(c.length); got != c.want {
			t.Errorf("LengthToBit(%d) = %#04x, want %#04x", c.length, got, c.want)
		}
	}
}

func TestMismatchFindsHighestDifferingBit(t *testing.T) {
	k1 := []byte{0x00, 0xff}
	k2 := []byte{0x00, 0x7f}
	bitlen := LengthToBit(2)

	b := Mismatch(k1, k2, bitlen)
	if ByteIndex(b) != 1 {
		t.Fatalf("Mismatch byte index = %d, want 1", ByteIndex(b))
	}
	if Test(k1, b) == Test(k2, b) {
		t.Fatalf("Test(k1,b)=%v Test(k2,b)=%v, want distinguishing bit", Test(k1, b), Test(k2, b))
	}
}

func TestMismatchAgreesReturnsBitlen(t *testing.T) {
	k1 := []byte{0x01, 0x02, 0x03}
	k2 := []byte{0x01, 0x02, 0x03}
	bitlen := LengthToBit(3)
	if got := Mismatch(k1, k2, bitlen); got != bitlen {
		t.Fatalf("Mismatch on equal keys = %#04x, want %#04x", got, bitlen)
	}
}

func TestMakeMonotonicWithinByte(t *testing.T) {
	// A mismatch on the MSB of a byte must sort before a mismatch on the
	// LSB of the same byte, matching "most significant bit first" order.
	msb := Make(3, 0x80)
	lsb := Make(3, 0x01)
	if msb >= lsb {
		t.Fatalf("Make MSB bit %#04x should sort before LSB bit %#04x", msb, lsb)
	}
}

func TestTestOnEmptyKeyReportsFalse(t *testing.T) {
	// NoBit is the bit number carried by the header node of a non-empty
	// trie; descending with an empty or short key must not index past it.
	if Test(nil, NoBit) {
		t.Fatalf("Test(nil, NoBit) = true, want false")
	}
	if Test([]byte{}, Make(0, 0x01)) {
		t.Fatalf("Test on an empty key past its length = true, want false")
	}
}

func TestTestRecoversTheMismatchedBit(t *testing.T) {
	for byteIdx := uint8(0); byteIdx < 4; byteIdx++ {
		for shift := uint(0); shift < 8; shift++ {
			diff := byte(1) << shift
			key1 := make([]byte, 4)
			key2 := make([]byte, 4)
			key2[byteIdx] = diff
			b := Make(byteIdx, diff)
			if Test(key1, b) == Test(key2, b) {
				t.Fatalf("byte %d shift %d: Test failed to distinguish", byteIdx, shift)
			}
		}
	}
}
