package syslog

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dsh2dsh/logchain/internal/formatter"
	"github.com/dsh2dsh/logchain/internal/handler"
	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/logging"
)

const DefaultWriteTimeout = time.Second

// Socket sends one datagram per Write.
type Socket interface {
	Write(b []byte) error
	Close() error
}

// NewUDPSocket returns a socket sending datagrams to addr, "host:port". It
// connects on first write.
func NewUDPSocket(addr string) *UDPSocket {
	return &UDPSocket{addr: addr, timeout: DefaultWriteTimeout}
}

type UDPSocket struct {
	addr    string
	timeout time.Duration
	conn    net.Conn
}

var _ Socket = (*UDPSocket)(nil)

func (self *UDPSocket) WithTimeout(timeout time.Duration) *UDPSocket {
	self.timeout = timeout
	return self
}

func (self *UDPSocket) Addr() string { return self.addr }

func (self *UDPSocket) Write(b []byte) error {
	if self.conn == nil {
		conn, err := net.DialTimeout("udp", self.addr, self.timeout)
		if err != nil {
			return fmt.Errorf("dial udp %q: %w", self.addr, err)
		}
		self.conn = conn
	}

	deadline := time.Now().Add(self.timeout)
	if err := self.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := self.conn.Write(b); err != nil {
		return fmt.Errorf("write to udp %q: %w", self.addr, err)
	}
	return nil
}

func (self *UDPSocket) Close() error {
	if self.conn == nil {
		return nil
	}
	err := self.conn.Close()
	self.conn = nil
	if err != nil {
		return fmt.Errorf("close udp %q: %w", self.addr, err)
	}
	return nil
}

// --------------------------------------------------

// NewUDPHandler returns a handler sending records to a syslog server at
// addr. facility is validated right away.
func NewUDPHandler(addr string, facility Facility, rfc RFC,
) (*UDPHandler, error) {
	framer, err := NewFramer(facility, rfc)
	if err != nil {
		return nil, err
	}
	return NewUDPHandlerWithFramer(NewUDPSocket(addr), framer), nil
}

func NewUDPHandlerWithFramer(socket Socket, framer *Framer) *UDPHandler {
	h := &UDPHandler{socket: socket, framer: framer}
	h.Processing = handler.NewProcessing(h)
	h.SetFormatter(defaultFormatter())
	return h
}

// defaultFormatter leaves time and level to the syslog header.
func defaultFormatter() formatter.Formatter {
	return formatter.NewSlog().WithLogMetadata(false)
}

// UDPHandler sends every line of a formatted record as a separate syslog
// datagram. Lost or reordered datagrams are not detected.
type UDPHandler struct {
	*handler.Processing

	framer *Framer
	socket Socket
	mu     sync.Mutex
}

var _ handler.Handler = (*UDPHandler)(nil)

func (self *UDPHandler) Framer() *Framer { return self.framer }

// SetSocket replaces the socket, closing the old one.
func (self *UDPHandler) SetSocket(s Socket) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	old := self.socket
	self.socket = s
	if old != nil {
		return old.Close()
	}
	return nil
}

func (self *UDPHandler) Write(ctx context.Context, r logger.Record, b []byte,
) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	datagrams := self.framer.Frame(r.Level, r.Time, b)
	for i, d := range datagrams {
		if err := self.socket.Write(d); err != nil {
			logging.GetLogger(ctx, logging.SubsysSyslog).WithError(err).
				With("datagram", i, "total", len(datagrams)).
				Warn("datagram not sent")
			return fmt.Errorf("syslog udp handler: %w", err)
		}
	}
	return nil
}

func (self *UDPHandler) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.socket.Close()
}
