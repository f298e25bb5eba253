// Package lineending measures and normalizes CRLF/LF line terminators in byte streams.
//
// Both operations work on the raw bytes of the stream: no decoding is attempted and
// every byte outside a terminator is passed through unchanged. A lone CR is ordinary
// content. The package holds no state between calls, so callers may measure or
// convert different streams concurrently.
package lineending

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

const (
	cr byte = 0x0D
	lf byte = 0x0A
)

var (
	crlfSeq = []byte{cr, lf}
	lfSeq   = []byte{lf}
)

var (
	// ErrIO wraps any failure of the underlying reader or writer.
	ErrIO = errors.New("line ending i/o failed")

	// ErrUnknownLineEnding is returned when a value is neither "crlf" nor "lf".
	ErrUnknownLineEnding = errors.New("unknown line ending")
)

// LineEnding is a line terminator convention.
type LineEnding string

const (
	CRLF LineEnding = "crlf"
	LF   LineEnding = "lf"
)

// String returns the canonical lowercase name.
func (le LineEnding) String() string { return string(le) }

// Valid reports whether le is CRLF or LF.
func (le LineEnding) Valid() bool {
	return le == CRLF || le == LF
}

// Bytes returns a copy of the terminator sequence, or nil for an invalid value.
func (le LineEnding) Bytes() []byte {
	seq := le.sequence()
	if seq == nil {
		return nil
	}
	out := make([]byte, len(seq))
	copy(out, seq)
	return out
}

func (le LineEnding) sequence() []byte {
	switch le {
	case CRLF:
		return crlfSeq
	case LF:
		return lfSeq
	default:
		return nil
	}
}

// ParseLineEnding parses "crlf" or "lf", ignoring case and surrounding space.
func ParseLineEnding(s string) (LineEnding, error) {
	le := LineEnding(strings.ToLower(strings.TrimSpace(s)))
	if !le.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLineEnding, s)
	}
	return le, nil
}

// Stats counts lines by terminator style.
//
// A trailing fragment without LF at end of stream is counted in LF.
type Stats struct {
	LF   uint64 `json:"lf" yaml:"lf"`
	CRLF uint64 `json:"crlf" yaml:"crlf"`
}

// Classify returns the single convention used by every counted line.
// It returns false for a mixed stream and for an empty one.
func (s Stats) Classify() (LineEnding, bool) {
	switch {
	case s.LF == 0 && s.CRLF > 0:
		return CRLF, true
	case s.CRLF == 0 && s.LF > 0:
		return LF, true
	default:
		return "", false
	}
}

// IsMixed reports whether both conventions occur.
func (s Stats) IsMixed() bool { return s.LF > 0 && s.CRLF > 0 }

// Total is the number of counted lines.
func (s Stats) Total() uint64 { return s.LF + s.CRLF }

// readChunk appends bytes from br to buf up to and including the next LF, or up to
// end of stream. Lines longer than the reader's buffer are accumulated.
func readChunk(br *bufio.Reader, buf []byte) ([]byte, error) {
	for {
		frag, err := br.ReadSlice(lf)
		buf = append(buf, frag...)
		if !errors.Is(err, bufio.ErrBufferFull) {
			return buf, err
		}
	}
}
