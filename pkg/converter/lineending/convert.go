package lineending

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ConvertTo copies r to w rewriting every line terminator to target.
//
// An LF, together with one CR directly before it, is replaced by target's sequence.
// All other bytes are copied unchanged, and a last line without LF stays without one.
// w is flushed before ConvertTo returns nil. Any read, write or flush failure is
// returned wrapping ErrIO; w may then hold a prefix of the output.
func ConvertTo(r io.Reader, w io.Writer, target LineEnding) error {
	terminator := target.sequence()
	if terminator == nil {
		return fmt.Errorf("%w: %q", ErrUnknownLineEnding, string(target))
	}

	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 256)

	for {
		var readErr error
		buf, readErr = readChunk(br, buf[:0])
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("%w: read: %w", ErrIO, readErr)
		}
		if len(buf) == 0 {
			break
		}

		hasTerminator := buf[len(buf)-1] == lf
		if hasTerminator {
			buf = buf[:len(buf)-1]
			if len(buf) > 0 && buf[len(buf)-1] == cr {
				buf = buf[:len(buf)-1]
			}
		}

		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("%w: write: %w", ErrIO, err)
		}
		if hasTerminator {
			if _, err := bw.Write(terminator); err != nil {
				return fmt.Errorf("%w: write: %w", ErrIO, err)
			}
		}

		if readErr != nil {
			break
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrIO, err)
	}
	return nil
}

// Convert reads r fully and returns the converted bytes.
func Convert(r io.Reader, target LineEnding) ([]byte, error) {
	var out bytes.Buffer
	if err := ConvertTo(r, &out, target); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
