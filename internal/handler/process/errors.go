package process

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStartupIO      = errors.New("process: unable to select error stream")
	ErrProcessStartup = errors.New("process: failed to start")
	ErrProcessRuntime = errors.New("process: failed while running")
	ErrClosed         = errors.New("process: sink closed")
)

// StreamError carries the text a child process wrote to its error stream.
type StreamError struct {
	Err     error
	Command string
	Stderr  string
}

func newStreamError(err error, command string, stderr []byte) *StreamError {
	return &StreamError{Err: err, Command: command, Stderr: string(stderr)}
}

func (self *StreamError) Error() string {
	return fmt.Sprintf("%s: %q: %s", self.Err, self.Command,
		strings.TrimSpace(self.Stderr))
}

func (self *StreamError) Unwrap() error { return self.Err }
