package syslog

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/logchain/internal/handler"
	"github.com/dsh2dsh/logchain/internal/logger"
)

func TestNewLocal(t *testing.T) {
	_, err := NewLocal(Facility(100), "app")
	require.ErrorIs(t, err, ErrUnknownFacility)
}

func TestLocal_Remote(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	h, err := NewLocal(Local3, "app")
	require.NoError(t, err)
	h.WithRemote("udp", conn.LocalAddr().String()).
		WithRetryInterval(time.Minute)

	_, err = h.Handle(t.Context(), newTestRecord("to the daemon"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	msg := string(buf[:n])
	assert.Contains(t, msg, "<"+strconv.Itoa(PriorityValue(Local3, logger.Warning))+">")
	assert.Contains(t, msg, "app[")
	assert.Contains(t, msg, "lol: to the daemon")

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
}

func TestLocal_RetryInterval(t *testing.T) {
	h, err := NewLocal(User, "app")
	require.NoError(t, err)
	h.WithRemote("tcp", "127.0.0.1:1").WithRetryInterval(time.Hour)

	_, err = h.Handle(t.Context(), newTestRecord("x"))
	require.ErrorIs(t, err, ErrSyslogUnavailable)

	// no new attempt until the retry interval passes, still a failure
	sig, err := h.Handle(t.Context(), newTestRecord("y"))
	require.ErrorIs(t, err, ErrSyslogUnavailable)
	assert.Equal(t, handler.Stop, sig)

	c := handler.NewChain(h)
	_, err = c.Dispatch(t.Context(), newTestRecord("z"))
	var handlerErr *handler.HandlerError
	require.ErrorAs(t, err, &handlerErr)
	require.ErrorIs(t, err, ErrSyslogUnavailable)
}
