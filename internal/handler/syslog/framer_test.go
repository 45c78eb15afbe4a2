package syslog

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/logchain/internal/logger"
)

var testTime = time.Date(2014, 1, 7, 12, 34, 56, 0, time.UTC)

func newTestFramer(t *testing.T, rfc RFC) *Framer {
	f, err := NewFramer(AuthPriv, rfc)
	require.NoError(t, err)
	return f.WithHostname("host").WithAppName("php").WithPID(1234)
}

func TestNewFramer(t *testing.T) {
	_, err := NewFramer(Facility(42), RFC5424)
	require.ErrorIs(t, err, ErrUnknownFacility)

	f, err := NewFramer(User, RFC3164)
	require.NoError(t, err)
	assert.Equal(t, User, f.Facility())
	assert.Equal(t, RFC3164, f.RFC())
	assert.NotEmpty(t, f.hostname)
	assert.Equal(t, "-", f.WithHostname("").hostname)
}

func TestFramer_Header(t *testing.T) {
	tests := []struct {
		rfc  RFC
		want string
	}{
		{RFC5424, "<84>1 2014-01-07T12:34:56+00:00 host php 1234 - - "},
		{RFC5424e, "<84>1 2014-01-07T12:34:56.000+00:00 host php 1234 - - "},
		{RFC3164, "<84>Jan 07 12:34:56 host php[1234]: "},
	}
	for _, tt := range tests {
		t.Run(tt.rfc.String(), func(t *testing.T) {
			f := newTestFramer(t, tt.rfc)
			assert.Equal(t, tt.want, f.Header(logger.Warning, testTime))
		})
	}
}

func TestFramer_HeaderMilliseconds(t *testing.T) {
	f := newTestFramer(t, RFC5424e)
	ts := testTime.Add(123456789 * time.Nanosecond)
	assert.Equal(t, "<84>1 2014-01-07T12:34:56.123+00:00 host php 1234 - - ",
		f.Header(logger.Warning, ts))
}

func TestFramer_Frame(t *testing.T) {
	f := newTestFramer(t, RFC5424)
	header := f.Header(logger.Warning, testTime)

	datagrams := f.Frame(logger.Warning, testTime, []byte("hej\nlol"))
	require.Len(t, datagrams, 2)
	assert.Equal(t, header+"hej", string(datagrams[0]))
	assert.Equal(t, header+"lol", string(datagrams[1]))

	datagrams = f.Frame(logger.Warning, testTime, []byte("a\r\n\r\nb\rc\n"))
	require.Len(t, datagrams, 3)
	assert.Equal(t, header+"c", string(datagrams[2]))

	assert.Empty(t, f.Frame(logger.Warning, testTime, nil))
	assert.Empty(t, f.Frame(logger.Warning, testTime, []byte("\n\r\n")))
}

func TestFramer_Truncate(t *testing.T) {
	f := newTestFramer(t, RFC3164)
	header := f.Header(logger.Info, testTime)
	f.WithMaxDatagram(len(header) + 5)

	datagrams := f.Frame(logger.Info, testTime, []byte("0123456789\nabc"))
	require.Len(t, datagrams, 2)
	assert.Equal(t, header+"01234", string(datagrams[0]))
	assert.Equal(t, header+"abc", string(datagrams[1]))

	// never splits a rune
	datagrams = f.Frame(logger.Info, testTime, []byte("abcdцц"))
	require.Len(t, datagrams, 1)
	assert.Equal(t, header+"abcd", string(datagrams[0]))

	f.WithMaxDatagram(DefaultMaxDatagram)
	long := strings.Repeat("x", DefaultMaxDatagram)
	datagrams = f.Frame(logger.Info, testTime, []byte(long))
	require.Len(t, datagrams, 1)
	assert.Len(t, datagrams[0], DefaultMaxDatagram)
}

func TestParseRFC(t *testing.T) {
	for _, rfc := range []RFC{RFC5424, RFC3164, RFC5424e} {
		got, err := ParseRFC(strings.ToUpper(rfc.String()))
		require.NoError(t, err)
		assert.Equal(t, rfc, got)
	}
	_, err := ParseRFC("rfc" + strconv.Itoa(1))
	require.ErrorIs(t, err, logger.ErrInvalidConfiguration)
}
