package handler

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// NewStream returns a handler writing formatted records to w. The stream is
// not closed by Close.
func NewStream(w io.Writer) *Stream {
	s := &Stream{w: w}
	s.Processing = NewProcessing(s)
	return s
}

// NewStd returns a stream handler for "stdout" or "stderr".
func NewStd(name string) (*Stream, error) {
	switch name {
	case "", "stdout":
		return NewStream(os.Stdout), nil
	case "stderr":
		return NewStream(os.Stderr), nil
	}
	return nil, fmt.Errorf("%w: unknown stream %q",
		logger.ErrInvalidConfiguration, name)
}

// NewFile returns a handler appending formatted records to filename. The
// file is created if needed and reopened when it was removed, by logrotate
// for instance.
func NewFile(filename string) (*Stream, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: empty file name",
			logger.ErrInvalidConfiguration)
	}
	f, err := newLogFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", logger.ErrInvalidConfiguration, err)
	}
	s := NewStream(f)
	s.closer = f
	return s, nil
}

type Stream struct {
	*Processing

	w      io.Writer
	closer io.Closer
	mu     sync.Mutex
}

var _ Handler = (*Stream)(nil)

func (self *Stream) Write(_ context.Context, _ logger.Record, b []byte,
) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if _, err := self.w.Write(b); err != nil {
		return fmt.Errorf("stream handler: %w", err)
	}
	return nil
}

func (self *Stream) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closer == nil {
		return nil
	}
	err := self.closer.Close()
	self.closer = nil
	return err
}

// --------------------------------------------------

func newLogFile(filename string) (f *logFile, err error) {
	f = &logFile{filename: filename}
	err = f.Open()
	return
}

type logFile struct {
	file     *os.File
	filename string
}

func (self *logFile) Write(p []byte) (int, error) {
	if err := self.reopenIfNotExists(); err != nil {
		return 0, fmt.Errorf("reopen file %q: %w", self.filename, err)
	}
	n, err := self.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("write to %q: %w", self.filename, err)
	}
	return n, nil
}

func (self *logFile) reopenIfNotExists() error {
	if ok, err := self.exists(); err != nil {
		return err
	} else if ok {
		return nil
	}
	return self.reopen()
}

func (self *logFile) exists() (bool, error) {
	finfo, err := self.file.Stat()
	if err != nil {
		return false, fmt.Errorf("stat of %q: %w", self.filename, err)
	}

	if finfo.Sys() != nil {
		if stat, ok := finfo.Sys().(*syscall.Stat_t); ok {
			return stat.Nlink > 0, nil
		}
	}
	return true, nil
}

func (self *logFile) reopen() error {
	if err := self.file.Close(); err != nil {
		return fmt.Errorf("close %q: %w", self.filename, err)
	}
	return self.Open()
}

func (self *logFile) Open() error {
	f, err := os.OpenFile(self.filename,
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	self.file = f
	return nil
}

func (self *logFile) Close() error {
	if err := self.file.Close(); err != nil {
		return fmt.Errorf("close %q: %w", self.filename, err)
	}
	return nil
}
