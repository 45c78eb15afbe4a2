//go:build unix

package process

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const maxReadAvailable = 64 << 10

func newErrorStream(f *os.File) (errorStream, error) {
	raw, err := f.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("syscall conn of %q: %w", f.Name(), err)
	}
	return &pollStream{f: f, raw: raw}, nil
}

// pollStream waits for the error stream by poll(2) and reads it without
// blocking.
type pollStream struct {
	f   *os.File
	raw syscall.RawConn
}

func (self *pollStream) Select(timeout time.Duration) (ready bool,
	err error,
) {
	ctrlErr := self.raw.Control(func(fd uintptr) {
		ready, err = pollIn(int(fd), timeout)
	})
	if ctrlErr != nil {
		return false, fmt.Errorf("select error stream: %w", ctrlErr)
	}
	return
}

func pollIn(fd int, timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	deadline := time.Now().Add(timeout)
	for {
		ms := int(time.Until(deadline).Milliseconds())
		n, err := unix.Poll(fds, max(ms, 0))
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return false, fmt.Errorf("poll: %w", err)
		case n == 0:
			return false, nil
		case fds[0].Revents&unix.POLLNVAL != 0:
			return false, errors.New("poll: invalid descriptor")
		}
		return true, nil
	}
}

func (self *pollStream) ReadAvailable() ([]byte, error) {
	var b []byte
	buf := make([]byte, 4096)
	var readErr error
	ctrlErr := self.raw.Control(func(fd uintptr) {
		for len(b) < maxReadAvailable {
			n, err := unix.Read(int(fd), buf)
			switch {
			case errors.Is(err, unix.EINTR):
				continue
			case errors.Is(err, unix.EAGAIN):
				return
			case err != nil:
				readErr = fmt.Errorf("read error stream: %w", err)
				return
			case n == 0:
				return
			}
			b = append(b, buf[:n]...)
		}
	})
	if ctrlErr != nil {
		return b, fmt.Errorf("read error stream: %w", ctrlErr)
	}
	return b, readErr
}

func (self *pollStream) Close() error {
	if err := self.f.Close(); err != nil {
		return fmt.Errorf("close error stream: %w", err)
	}
	return nil
}
