package handler

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/logging"
)

const DefaultSocketRetryInterval = 10 * time.Second

var (
	ErrSocketBusy   = errors.New("connection broken or not fast enough")
	ErrSocketClosed = errors.New("socket handler closed")
)

// NewSocket returns a handler streaming formatted records to a tcp or unix
// socket. The connection is established in background and reestablished
// after errors. Records written while it's down are dropped with
// ErrSocketBusy.
func NewSocket(network, address string) *Socket {
	s := &Socket{
		network:       network,
		address:       address,
		retryInterval: DefaultSocketRetryInterval,
		// allow one message in flight while previous is in io.Copy()
		entries: make(chan *bytes.Buffer, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.Processing = NewProcessing(s)
	s.connect = s.dial
	return s
}

type Socket struct {
	*Processing

	network       string
	address       string
	tlsConfig     *tls.Config
	retryInterval time.Duration
	connect       func(ctx context.Context) (net.Conn, error)

	entries chan *bytes.Buffer
	stop    chan struct{}
	done    chan struct{}
	started bool
	closed  bool
	mu      sync.Mutex
}

var _ Handler = (*Socket)(nil)

func (self *Socket) WithTLS(cfg *tls.Config) *Socket {
	self.tlsConfig = cfg
	return self
}

// WithRetryInterval sets how much time must pass between a connection error
// and the next attempt. It's also the write deadline.
func (self *Socket) WithRetryInterval(d time.Duration) *Socket {
	if d > 0 {
		self.retryInterval = d
	}
	return self
}

func (self *Socket) Address() string { return self.address }

func (self *Socket) dial(ctx context.Context) (conn net.Conn, err error) {
	deadline, _ := ctx.Deadline()
	dialer := net.Dialer{Deadline: deadline}
	if self.tlsConfig != nil {
		conn, err = tls.DialWithDialer(&dialer, self.network, self.address,
			self.tlsConfig)
	} else {
		conn, err = dialer.DialContext(ctx, self.network, self.address)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s %q: %w", self.network,
			self.address, err)
	}
	return conn, nil
}

func (self *Socket) Write(ctx context.Context, _ logger.Record, b []byte,
) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return ErrSocketClosed
	} else if !self.started {
		self.started = true
		go self.outLoop(logging.GetLogger(ctx, logging.SubsysSocket))
	}

	select {
	case self.entries <- bytes.NewBuffer(bytes.Clone(b)):
		return nil
	default:
		return ErrSocketBusy
	}
}

func (self *Socket) outLoop(l *logger.Logger) {
	defer close(self.done)
	var retry time.Time
	var conn net.Conn
	for msg := range self.entries {
		var err error
		for conn == nil {
			if d := time.Until(retry); d > 0 {
				select {
				case <-time.After(d):
				case <-self.stop:
					return
				}
			}
			ctx, cancel := context.WithTimeout(context.Background(),
				self.retryInterval)
			conn, err = self.connect(ctx)
			cancel()
			if err != nil {
				l.WithError(err).Warn("connection failed")
				retry = time.Now().Add(self.retryInterval)
				conn = nil
			}
		}
		err = conn.SetWriteDeadline(time.Now().Add(self.retryInterval))
		if err == nil {
			_, err = io.Copy(conn, msg)
		}
		if err != nil {
			l.WithError(err).Warn("write failed, reconnecting")
			retry = time.Now().Add(self.retryInterval)
			conn.Close()
			conn = nil
		}
	}
	if conn != nil {
		conn.Close()
	}
}

// Close stops accepting records and waits until the pending one is sent. A
// record waiting for reconnection is dropped.
func (self *Socket) Close() error {
	self.mu.Lock()
	if self.closed {
		self.mu.Unlock()
		return nil
	}
	self.closed = true
	close(self.entries)
	close(self.stop)
	started := self.started
	self.mu.Unlock()

	if started {
		<-self.done
	}
	return nil
}
