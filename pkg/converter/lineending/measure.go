package lineending

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Measure reads r to the end and counts its lines by terminator.
//
// Every chunk read up to and including an LF is one line: CRLF if it ends in CR LF,
// LF otherwise. A final fragment with no LF still counts as an LF line. On a read
// failure Measure returns the counts gathered so far with an error wrapping ErrIO.
func Measure(r io.Reader) (Stats, error) {
	br := bufio.NewReader(r)
	buf := make([]byte, 0, 256)
	var stats Stats

	for {
		var err error
		buf, err = readChunk(br, buf[:0])
		if err != nil && !errors.Is(err, io.EOF) {
			return stats, fmt.Errorf("%w: read: %w", ErrIO, err)
		}
		if len(buf) == 0 {
			return stats, nil
		}

		if bytes.HasSuffix(buf, crlfSeq) {
			stats.CRLF++
		} else {
			stats.LF++
		}

		if err != nil {
			return stats, nil
		}
	}
}

// MeasureBytes is Measure over an in-memory buffer.
func MeasureBytes(data []byte) Stats {
	// bytes.Reader never fails
	stats, _ := Measure(bytes.NewReader(data))
	return stats
}
