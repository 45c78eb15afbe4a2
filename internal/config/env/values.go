package env

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var Values = struct {
	ProcessStartupTimeout time.Duration `env:"LOGCHAIN_PROCESS_STARTUP_TIMEOUT"`

	ProcessWriteTimeout time.Duration `env:"LOGCHAIN_PROCESS_WRITE_TIMEOUT"`

	ProcessCloseTimeout time.Duration `env:"LOGCHAIN_PROCESS_CLOSE_TIMEOUT"`

	SyslogWriteTimeout time.Duration `env:"LOGCHAIN_SYSLOG_WRITE_TIMEOUT"`

	// RFC 5426 allows up to 65535 bytes over IPv6, minus headers.
	SyslogMaxDatagram int `env:"LOGCHAIN_SYSLOG_MAX_DATAGRAM"`

	// Longest line pipe reads from stdin.
	PipeMaxLine int `env:"LOGCHAIN_PIPE_MAX_LINE"`
}{
	ProcessStartupTimeout: time.Second,
	ProcessWriteTimeout:   5 * time.Second,
	ProcessCloseTimeout:   5 * time.Second,
	SyslogWriteTimeout:    time.Second,
	SyslogMaxDatagram:     65023,
	PipeMaxLine:           1 << 20,
}

func Parse() error {
	if err := env.Parse(&Values); err != nil {
		return fmt.Errorf("failed parse env vars: %w", err)
	}
	return nil
}
