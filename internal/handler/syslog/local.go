package syslog

import (
	"context"
	"errors"
	"fmt"
	gosyslog "log/syslog"
	"sync"
	"time"

	"github.com/dsh2dsh/logchain/internal/handler"
	"github.com/dsh2dsh/logchain/internal/logger"
)

const DefaultRetryInterval = 10 * time.Second

var ErrSyslogUnavailable = errors.New("syslog daemon unavailable")

// NewLocal returns a handler writing to the syslog daemon by log/syslog.
// With empty network and addr it's the local daemon.
func NewLocal(facility Facility, tag string) (*Local, error) {
	if !facility.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFacility, int(facility))
	}
	h := &Local{
		facility:      facility,
		tag:           tag,
		retryInterval: DefaultRetryInterval,
	}
	h.Processing = handler.NewProcessing(h)
	h.SetFormatter(defaultFormatter())
	return h, nil
}

type Local struct {
	*handler.Processing

	facility      Facility
	tag           string
	network       string
	addr          string
	retryInterval time.Duration

	writer             *gosyslog.Writer
	lastConnectAttempt time.Time
	lastConnectErr     error
	mu                 sync.Mutex
}

var _ handler.Handler = (*Local)(nil)

// WithRemote sends messages to the daemon at addr over network, like "udp"
// or "tcp", instead of the local one.
func (self *Local) WithRemote(network, addr string) *Local {
	self.network = network
	self.addr = addr
	return self
}

// WithRetryInterval sets how long writes fail with ErrSyslogUnavailable after
// a failed connection attempt, before the next one.
func (self *Local) WithRetryInterval(d time.Duration) *Local {
	self.retryInterval = d
	return self
}

func (self *Local) Write(_ context.Context, r logger.Record, b []byte,
) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if err := self.initWriter(); err != nil {
		return err
	}
	if err := self.levelWriter(r.Level)(string(b)); err != nil {
		return fmt.Errorf("syslog handler: %w", err)
	}
	return nil
}

func (self *Local) initWriter() error {
	if self.writer != nil {
		return nil
	}

	if !self.lastConnectAttempt.IsZero() {
		if time.Since(self.lastConnectAttempt) < self.retryInterval {
			return fmt.Errorf("%w: last attempt at %s: %w",
				ErrSyslogUnavailable, self.lastConnectAttempt.Format(time.RFC3339),
				self.lastConnectErr)
		}
	}

	w, err := gosyslog.Dial(self.network, self.addr, self.facility.Priority(),
		self.tag)
	self.lastConnectAttempt = time.Now()
	self.lastConnectErr = err
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSyslogUnavailable, err)
	}
	self.writer = w
	return nil
}

func (self *Local) levelWriter(l logger.Level) func(string) error {
	switch Severity(l) {
	case 0:
		return self.writer.Emerg
	case 1:
		return self.writer.Alert
	case 2:
		return self.writer.Crit
	case 3:
		return self.writer.Err
	case 4:
		return self.writer.Warning
	case 5:
		return self.writer.Notice
	case 6:
		return self.writer.Info
	}
	return self.writer.Debug
}

func (self *Local) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.writer == nil {
		return nil
	}
	err := self.writer.Close()
	self.writer = nil
	if err != nil {
		return fmt.Errorf("close syslog writer: %w", err)
	}
	return nil
}
