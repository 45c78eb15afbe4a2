package process

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/logchain/internal/formatter"
	"github.com/dsh2dsh/logchain/internal/handler"
	"github.com/dsh2dsh/logchain/internal/logger"
)

func TestHandler(t *testing.T) {
	_, err := New(Config{})
	require.ErrorIs(t, err, logger.ErrInvalidConfiguration)

	var stdout syncBuffer
	h, err := New(Config{
		Command:        "cat",
		StartupTimeout: 50 * time.Millisecond,
		Stdout:         &stdout,
	})
	require.NoError(t, err)
	h.SetFormatter(formatter.NewSlog().WithLogTime(false))
	h.SetLevel(logger.Warning)

	c := handler.NewChain(h)
	for _, r := range []logger.Record{
		logger.NewRecord("app", logger.Warning, "chuck norris", nil),
		logger.NewRecord("app", logger.Info, "skipped", nil),
		logger.NewRecord("app", logger.Error, "foobar1337", nil),
	} {
		_, err := c.Dispatch(t.Context(), r)
		require.NoError(t, err)
	}
	assert.Equal(t, Running, h.Sink().State())

	require.NoError(t, c.Close())
	assert.Equal(t, Closed, h.Sink().State())
	assert.Equal(t,
		"app.WARNING: chuck norris\napp.ERROR: foobar1337\n", stdout.String())
}

func TestHandler_StartupError(t *testing.T) {
	h, err := New(Config{Command: `>&2 echo "some fake error message"`})
	require.NoError(t, err)

	handled, err := handler.NewChain(h).Dispatch(t.Context(),
		logger.NewRecord("app", logger.Info, "x", nil))
	assert.True(t, handled)
	require.ErrorIs(t, err, ErrProcessStartup)

	var handlerErr *handler.HandlerError
	require.ErrorAs(t, err, &handlerErr)
	assert.Same(t, h, handlerErr.Handler)
	assert.Equal(t, Failed, h.Sink().State())
}
