// Package lineproto wraps a duplex byte stream into the line-based read and
// flushed text write operations shared by the lineserv protocol handlers.
package lineproto

import (
	"bufio"
	"io"
	"strings"
)

// Terminator is the line separator of the wire protocol.
const Terminator = "\n"

const bufferSize = 4 << 10

// LineIO buffers a duplex byte stream and exposes it as line-oriented text
// I/O. Reads strip the terminator (and a preceding carriage return from
// line-ending-agnostic clients); writes append the terminator and flush
// immediately so the peer sees every line as soon as it is produced.
//
// LineIO is not safe for concurrent use; each session owns exactly one.
type LineIO struct {
	bufr *bufio.Reader
	bufw *bufio.Writer
}

// NewLineIO wraps the given stream in buffered line I/O.
//
// Parameters:
//   - rw: The duplex stream to wrap (typically a net.Conn)
//
// Returns:
//   - A LineIO ready for ReadLine/WriteLine calls
func NewLineIO(rw io.ReadWriter) *LineIO {
	return &LineIO{
		bufr: bufio.NewReaderSize(rw, bufferSize),
		bufw: bufio.NewWriterSize(rw, bufferSize),
	}
}

// ReadLine reads the next line from the stream and strips its terminator.
// A final unterminated line before stream end is returned as a normal line;
// the subsequent call reports io.EOF. io.EOF means the peer closed cleanly
// with no more lines; any other error is a transport failure.
//
// Returns:
//   - The line content without terminator
//   - io.EOF at end of stream, or the underlying read error
func (l *LineIO) ReadLine() (string, error) {
	line, err := l.bufr.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return trimTerminator(line), nil
		}

		return "", err
	}

	return trimTerminator(line), nil
}

// WriteLine writes text followed by the terminator and flushes, so the line
// is on the wire before WriteLine returns.
//
// Parameters:
//   - text: The line content, without terminator
//
// Returns:
//   - The first write or flush error encountered
func (l *LineIO) WriteLine(text string) error {
	if _, err := l.bufw.WriteString(text); err != nil {
		return err
	}

	if _, err := l.bufw.WriteString(Terminator); err != nil {
		return err
	}

	return l.bufw.Flush()
}

// CopyFrom copies r onto the stream verbatim and flushes. No terminator is
// appended; callers that need one write it separately.
//
// Parameters:
//   - r: The source of raw bytes (e.g. an open file)
//
// Returns:
//   - The number of bytes copied
//   - The first copy or flush error encountered
func (l *LineIO) CopyFrom(r io.Reader) (int64, error) {
	n, err := io.Copy(l.bufw, r)
	if err != nil {
		return n, err
	}

	return n, l.bufw.Flush()
}

// Flush forces any buffered output onto the stream.
func (l *LineIO) Flush() error {
	return l.bufw.Flush()
}

func trimTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
