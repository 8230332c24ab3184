// Copyright 2026 The Juniper Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package wire implements the mixer's framed client<->server protocol:
// a fixed-width ASCII header, an optional name="value" attribute list, a
// newline, and a body.
//
//	#<ver:2>.<length:8>.<operation:8>.<muxid:8>.<attrs>\n<body>
package wire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Juniper/juise-sub000/internal/verrors"
)

// Version is the only wire protocol version this implementation speaks.
const Version = "01"

// Operation is one of the fixed 8-byte, space-padded operation tags.
type Operation string

// Defined operations, per the header's operation field.
const (
	OpRPC      Operation = "rpc"
	OpReply    Operation = "reply"
	OpComplete Operation = "complete"
	OpHostkey  Operation = "hostkey"
	OpPSPhrase Operation = "psphrase"
	OpPSWord   Operation = "psword"
	OpError    Operation = "error"
	OpHTMLRPC  Operation = "htmlrpc"
	OpAuthInit Operation = "authinit"
	OpData     Operation = "data"
)

const (
	opWidth    = 8
	muxidWidth = 8
	lenWidth   = 8
	verWidth   = 2
)

// Frame is one decoded wire message.
type Frame struct {
	Operation Operation
	Muxid     string
	Attrs     map[string]string
	Body      []byte
}

// Encode renders a Frame to the wire format, computing the length field
// from the fully rendered message.
func Encode(f Frame) []byte {
	var attrs strings.Builder
	for _, k := range sortedKeys(f.Attrs) {
		fmt.Fprintf(&attrs, "%s=%q", k, f.Attrs[k])
	}

	op := padLeftSpace(string(f.Operation), opWidth)
	muxid := padLeftZero(f.Muxid, muxidWidth)

	// header template with a placeholder length, so we can measure the
	// total size before filling it in.
	suffix := fmt.Sprintf(".%s.%s.%s\n", op, muxid, attrs.String())
	total := 1 + verWidth + 1 + lenWidth + len(suffix) + len(f.Body)

	var out strings.Builder
	out.WriteByte('#')
	out.WriteString(Version)
	out.WriteByte('.')
	out.WriteString(fmt.Sprintf("%0*d", lenWidth, total))
	out.WriteString(suffix)
	out.Write([]byte(f.Body))
	return []byte(out.String())
}

func padLeftSpace(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padLeftZero(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return strings.Repeat("0", width-len(s)) + s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Read decodes one Frame from r, using length to know exactly how many
// bytes to consume (the header never needs a scan for a terminator beyond
// the first unescaped newline).
func Read(r *bufio.Reader) (Frame, error) {
	marker, err := r.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	if marker != '#' {
		return Frame{}, fmt.Errorf("%w: missing '#' marker", verrors.ErrFramingInvalid)
	}

	ver := make([]byte, verWidth)
	if _, err := io.ReadFull(r, ver); err != nil {
		return Frame{}, err
	}
	if string(ver) != Version {
		return Frame{}, fmt.Errorf("%w: unsupported version %q", verrors.ErrProtocolViolation, ver)
	}
	if b, err := r.ReadByte(); err != nil || b != '.' {
		return Frame{}, fmt.Errorf("%w: malformed header", verrors.ErrFramingInvalid)
	}

	lengthBuf := make([]byte, lenWidth)
	if _, err := io.ReadFull(r, lengthBuf); err != nil {
		return Frame{}, err
	}
	total, err := strconv.Atoi(strings.TrimSpace(string(lengthBuf)))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: bad length %q", verrors.ErrFramingInvalid, lengthBuf)
	}
	if b, err := r.ReadByte(); err != nil || b != '.' {
		return Frame{}, fmt.Errorf("%w: malformed header", verrors.ErrFramingInvalid)
	}

	opBuf := make([]byte, opWidth)
	if _, err := io.ReadFull(r, opBuf); err != nil {
		return Frame{}, err
	}
	if b, err := r.ReadByte(); err != nil || b != '.' {
		return Frame{}, fmt.Errorf("%w: malformed header", verrors.ErrFramingInvalid)
	}

	muxidBuf := make([]byte, muxidWidth)
	if _, err := io.ReadFull(r, muxidBuf); err != nil {
		return Frame{}, err
	}
	if b, err := r.ReadByte(); err != nil || b != '.' {
		return Frame{}, fmt.Errorf("%w: malformed header", verrors.ErrFramingInvalid)
	}

	attrLine, err := r.ReadString('\n')
	if err != nil {
		return Frame{}, err
	}
	attrs := parseAttrs(strings.TrimSuffix(attrLine, "\n"))

	headerLen := 1 + verWidth + 1 + lenWidth + 1 + opWidth + 1 + muxidWidth + 1 + len(attrLine)
	bodyLen := total - headerLen
	if bodyLen < 0 {
		return Frame{}, fmt.Errorf("%w: length %d shorter than header", verrors.ErrFramingInvalid, total)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}

	return Frame{
		Operation: Operation(strings.TrimSpace(string(opBuf))),
		Muxid:     strings.TrimLeft(string(muxidBuf), "0"),
		Attrs:     attrs,
		Body:      body,
	}, nil
}

func parseAttrs(line string) map[string]string {
	attrs := map[string]string{}
	for len(line) > 0 {
		line = strings.TrimLeft(line, " ")
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			break
		}
		key := line[:eq]
		rest := line[eq+1:]
		if len(rest) == 0 || rest[0] != '"' {
			break
		}
		rest = rest[1:]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			break
		}
		attrs[key] = rest[:end]
		line = rest[end+1:]
	}
	return attrs
}
