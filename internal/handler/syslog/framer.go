package syslog

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// DefaultMaxDatagram is the biggest datagram, header included, a Framer
// produces.
const DefaultMaxDatagram = 65023

type RFC int

const (
	RFC5424 RFC = iota
	RFC3164
	// RFC5424e is RFC5424 with milliseconds in the timestamp.
	RFC5424e
)

const (
	rfc5424Time  = "2006-01-02T15:04:05-07:00"
	rfc5424eTime = "2006-01-02T15:04:05.000-07:00"
	rfc3164Time  = "Jan 02 15:04:05"
)

func ParseRFC(s string) (RFC, error) {
	switch strings.ToLower(s) {
	case "", "rfc5424":
		return RFC5424, nil
	case "rfc3164":
		return RFC3164, nil
	case "rfc5424e":
		return RFC5424e, nil
	}
	return 0, fmt.Errorf("%w: unknown syslog format %q",
		logger.ErrInvalidConfiguration, s)
}

func (r RFC) String() string {
	switch r {
	case RFC3164:
		return "rfc3164"
	case RFC5424e:
		return "rfc5424e"
	}
	return "rfc5424"
}

// NewFramer returns a framer for facility, with hostname and pid of this
// process.
func NewFramer(facility Facility, rfc RFC) (*Framer, error) {
	if !facility.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFacility, int(facility))
	}
	hostname, _ := os.Hostname()
	f := &Framer{
		rfc:         rfc,
		facility:    facility,
		appName:     "logchain",
		pid:         os.Getpid(),
		maxDatagram: DefaultMaxDatagram,
	}
	return f.WithHostname(hostname), nil
}

// Framer splits a formatted record into lines and prefixes every line with a
// syslog header.
type Framer struct {
	rfc      RFC
	facility Facility
	hostname string
	appName  string
	pid      int

	maxDatagram int
}

func (self *Framer) WithHostname(hostname string) *Framer {
	if hostname == "" {
		hostname = "-"
	}
	self.hostname = hostname
	return self
}

func (self *Framer) WithAppName(name string) *Framer {
	self.appName = name
	return self
}

func (self *Framer) WithPID(pid int) *Framer {
	self.pid = pid
	return self
}

func (self *Framer) WithMaxDatagram(size int) *Framer {
	self.maxDatagram = size
	return self
}

func (self *Framer) Facility() Facility { return self.facility }

func (self *Framer) RFC() RFC { return self.rfc }

// Header returns the syslog header of a record at level, created at t.
func (self *Framer) Header(level logger.Level, t time.Time) string {
	pri := PriorityValue(self.facility, level)
	pid := strconv.Itoa(self.pid)
	switch self.rfc {
	case RFC3164:
		return "<" + strconv.Itoa(pri) + ">" + t.Format(rfc3164Time) + " " +
			self.hostname + " " + self.appName + "[" + pid + "]: "
	case RFC5424e:
		return self.header5424(pri, t.Format(rfc5424eTime), pid)
	}
	return self.header5424(pri, t.Format(rfc5424Time), pid)
}

func (self *Framer) header5424(pri int, ts, pid string) string {
	return "<" + strconv.Itoa(pri) + ">1 " + ts + " " + self.hostname + " " +
		self.appName + " " + pid + " - - "
}

var lineBreaks = regexp.MustCompile(`\r\n|\n|\r`)

// Frame returns one datagram per non-empty line of body, in order. A line
// too long for a datagram is truncated.
func (self *Framer) Frame(level logger.Level, t time.Time, body []byte,
) [][]byte {
	lines := lineBreaks.Split(string(body), -1)
	datagrams := make([][]byte, 0, len(lines))
	header := self.Header(level, t)
	maxLine := max(self.maxDatagram-len(header), 0)

	for _, line := range lines {
		if line == "" {
			continue
		}
		if len(line) > maxLine {
			line = truncate(line, maxLine)
		}
		var b bytes.Buffer
		b.Grow(len(header) + len(line))
		b.WriteString(header)
		b.WriteString(line)
		datagrams = append(datagrams, b.Bytes())
	}
	return datagrams
}

// truncate cuts s to at most n bytes, not splitting a multibyte rune.
func truncate(s string, n int) string {
	for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
