package handler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cyberinferno/lineserv/event"
	"github.com/cyberinferno/lineserv/lineproto"
	"github.com/cyberinferno/lineserv/logger"
)

// Default greeting and farewell lines of the file service.
const (
	FileServeGreeting = "Welcome to the file server. Send a path, or 'stop' to end the session."
	FileServeFarewell = "Bye."
)

// Response lines of the file-serving protocol. Existing clients match
// these character for character; do not reword them.
const (
	dirHeaderFormat  = "目录 %s 下有文件："
	fileHeaderFormat = "File %s 的内容是："
	notFoundFormat   = "File %s is not found."
)

// Directory entries are streamed in batches from the open handle so large
// directories never materialize in memory at once.
const dirBatchSize = 64

// FileServe is the event handler that interprets each client line as a
// path relative to DocumentRoot and answers with one of three outcomes:
// a directory listing, the raw bytes of a readable file, or a not-found
// line. DocumentRoot is fixed for the handler's lifetime; one instance
// may serve any number of concurrent sessions.
type FileServe struct {
	// DocumentRoot is the base directory all client paths resolve
	// against. Required.
	DocumentRoot string
	// Logger receives session-scoped debug entries. Optional.
	Logger logger.Logger
	// Greeting overrides the greeting line source. Optional; defaults to
	// the static FileServeGreeting text.
	Greeting GreetingSource
}

// Handle implements event.Handler. It runs the file-serving protocol loop
// to completion and closes the connection on every exit path before any
// failure propagates.
func (h *FileServe) Handle(e event.Event) error {
	defer func() {
		_ = e.Conn.Close()
	}()

	log := sessionLogger(h.Logger, e.ID, e.Conn.RemoteAddr().String())
	lio := lineproto.NewLineIO(e.Conn)

	if err := lio.WriteLine(greetingText(h.Greeting, FileServeGreeting)); err != nil {
		return transportErr("write greeting", err)
	}

	for {
		line, err := lio.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("client disconnected")
				return nil
			}

			return transportErr("read line", err)
		}

		if line == StopLine {
			if err := lio.WriteLine(FileServeFarewell); err != nil {
				return transportErr("write farewell", err)
			}

			log.Debug("session ended by sentinel")
			return nil
		}

		path := h.Resolve(line)
		log.Debug("serving path", logger.Field{Key: "path", Value: path})
		if err := h.respond(lio, path); err != nil {
			return err
		}
	}
}

// Resolve joins client input with the document root. Input is treated as
// rooted at the document root, so a blank line resolves to the root itself
// and parent references cannot climb above it.
//
// Parameters:
//   - input: The client-supplied relative path, possibly empty
//
// Returns:
//   - The resolved absolute-within-root path
func (h *FileServe) Resolve(input string) string {
	return filepath.Join(h.DocumentRoot, filepath.Clean("/"+input))
}

// respond writes exactly one of the three outcomes for the resolved path,
// evaluated in precedence order: directory, readable regular file, not
// found. The not-found outcome is normal protocol data, never an error.
func (h *FileServe) respond(lio *lineproto.LineIO, path string) error {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		if dir, derr := os.Open(path); derr == nil {
			return h.listDirectory(lio, path, dir)
		}
		// unreadable directory falls through to not found
	} else if err == nil && info.Mode().IsRegular() {
		if f, ferr := os.Open(path); ferr == nil {
			return h.sendFile(lio, path, f)
		}
		// unreadable file falls through to not found
	}

	if werr := lio.WriteLine(fmt.Sprintf(notFoundFormat, path)); werr != nil {
		return transportErr("write not-found line", werr)
	}

	return nil
}

// listDirectory writes the directory header and one line per entry name.
// Entries are read lazily from the open handle in a single pass and each
// line is flushed as produced; order is whatever the OS yields.
func (h *FileServe) listDirectory(lio *lineproto.LineIO, path string, dir *os.File) error {
	defer func() {
		_ = dir.Close()
	}()

	if err := lio.WriteLine(fmt.Sprintf(dirHeaderFormat, path)); err != nil {
		return transportErr("write directory header", err)
	}

	for {
		names, err := dir.Readdirnames(dirBatchSize)
		for _, name := range names {
			if werr := lio.WriteLine(name); werr != nil {
				return transportErr("write directory entry", werr)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return transportErr("read directory", err)
		}
	}
}

// sendFile writes the file header, the file's bytes verbatim, and one
// trailing terminator.
func (h *FileServe) sendFile(lio *lineproto.LineIO, path string, f *os.File) error {
	defer func() {
		_ = f.Close()
	}()

	if err := lio.WriteLine(fmt.Sprintf(fileHeaderFormat, path)); err != nil {
		return transportErr("write file header", err)
	}

	if _, err := lio.CopyFrom(f); err != nil {
		return transportErr("copy file content", err)
	}

	if err := lio.WriteLine(""); err != nil {
		return transportErr("write trailing terminator", err)
	}

	return nil
}
