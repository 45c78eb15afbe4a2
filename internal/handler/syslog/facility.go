// Package syslog renders records as syslog messages and sends them either
// as UDP datagrams or to the local syslog daemon.
package syslog

import (
	"fmt"
	gosyslog "log/syslog"
	"strconv"
	"strings"

	"github.com/dsh2dsh/logchain/internal/logger"
)

var ErrUnknownFacility = fmt.Errorf("%w: unknown syslog facility",
	logger.ErrInvalidConfiguration)

// Facility is a syslog facility code, 0 (kern) to 23 (local7).
type Facility int

const (
	Kern Facility = iota
	User
	Mail
	Daemon
	Auth
	Syslog
	Lpr
	News
	Uucp
	Cron
	AuthPriv
	FTP
	NTP
	Security
	Console
	SolarisCron
	Local0
	Local1
	Local2
	Local3
	Local4
	Local5
	Local6
	Local7
)

var facilityNames = [...]string{
	Kern:        "kern",
	User:        "user",
	Mail:        "mail",
	Daemon:      "daemon",
	Auth:        "auth",
	Syslog:      "syslog",
	Lpr:         "lpr",
	News:        "news",
	Uucp:        "uucp",
	Cron:        "cron",
	AuthPriv:    "authpriv",
	FTP:         "ftp",
	NTP:         "ntp",
	Security:    "security",
	Console:     "console",
	SolarisCron: "solaris-cron",
	Local0:      "local0",
	Local1:      "local1",
	Local2:      "local2",
	Local3:      "local3",
	Local4:      "local4",
	Local5:      "local5",
	Local6:      "local6",
	Local7:      "local7",
}

// ParseFacility accepts a facility name, ignoring case, or its numeric
// code.
func ParseFacility(s string) (Facility, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f, fname := range facilityNames {
		if name == fname {
			return Facility(f), nil
		}
	}

	if code, err := strconv.Atoi(name); err == nil {
		if f := Facility(code); f.Valid() {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFacility, s)
}

// FacilityFromPriority returns the facility of a log/syslog priority, which
// keeps the facility shifted left by 3 bits.
func FacilityFromPriority(p gosyslog.Priority) (Facility, error) {
	f := Facility(p >> 3)
	if !f.Valid() || p&7 != 0 {
		return 0, fmt.Errorf("%w: priority %d", ErrUnknownFacility, int(p))
	}
	return f, nil
}

func (f Facility) Valid() bool { return f >= Kern && f <= Local7 }

func (f Facility) String() string {
	if f.Valid() {
		return facilityNames[f]
	}
	return "Facility(" + strconv.Itoa(int(f)) + ")"
}

// Priority returns f as log/syslog wants it.
func (f Facility) Priority() gosyslog.Priority {
	return gosyslog.Priority(f << 3)
}

// Severity returns the syslog severity of level, its numeric scale limited
// to 0..7.
func Severity(level logger.Level) int { return min(level.NumericScale(), 7) }

// PriorityValue is the PRI part of a syslog header.
func PriorityValue(f Facility, level logger.Level) int {
	return int(f)*8 + Severity(level)
}
