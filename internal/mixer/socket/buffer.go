// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package socket

// Buffer is a small growable byte buffer used by Channels to accumulate
// partial reads until a full frame (NETCONF end-of-frame marker, or a wire
// header) is available. Unlike bytes.Buffer it exposes Reset without
// discarding its backing array, since Channels reuse one Buffer across
// many RPCs.
type Buffer struct {
	data []byte
}

// Write appends p to the buffer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// Bytes returns the buffer's current contents. The slice is only valid
// until the next Write or Reset.
func (b *Buffer) Bytes() []byte { return b.data }

// Len reports the number of buffered bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Consume drops the first n bytes, shifting the remainder to the front of
// the backing array so it can be reused without a fresh allocation.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	b.data = append(b.data[:0], b.data[n:]...)
}

// Reset empties the buffer, keeping its backing array for reuse.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}
