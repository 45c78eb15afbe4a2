package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/processor"
)

func newRecord(level logger.Level, msg string) logger.Record {
	return logger.Record{
		Channel: "test",
		Level:   level,
		Message: msg,
		Context: logger.Fields{},
		Time:    time.Date(2014, 1, 7, 12, 34, 56, 0, time.UTC),
	}
}

// testWriter records everything written by a Processing handler.
type testWriter struct {
	records   []logger.Record
	formatted []string
	err       error
	closed    bool
}

func (self *testWriter) Write(_ context.Context, r logger.Record, b []byte,
) error {
	if self.err != nil {
		return self.err
	}
	self.records = append(self.records, r)
	self.formatted = append(self.formatted, string(b))
	return nil
}

func (self *testWriter) Close() error {
	self.closed = true
	return nil
}

func newTestHandler(level logger.Level, bubble bool,
) (*Processing, *testWriter) {
	w := new(testWriter)
	h := NewProcessing(w)
	h.SetLevel(level)
	h.SetBubble(bubble)
	return h, w
}

func TestBase(t *testing.T) {
	var b Base
	assert.Equal(t, logger.Debug, b.Level())
	assert.True(t, b.Bubble())
	for _, l := range logger.Levels() {
		assert.True(t, b.IsHandling(l), l)
	}

	b.SetLevel(logger.Warning)
	b.SetBubble(false)
	assert.Equal(t, logger.Warning, b.Level())
	assert.False(t, b.Bubble())
	assert.False(t, b.IsHandling(logger.Notice))
	assert.True(t, b.IsHandling(logger.Warning))
	assert.True(t, b.IsHandling(logger.Emergency))
	assert.Equal(t, Stop, b.signal())
}

func TestProcessing_Handle(t *testing.T) {
	h, w := newTestHandler(logger.Info, true)
	require.NoError(t, h.PushProcessor(func(r logger.Record) logger.Record {
		return r.WithExtra("seen", true)
	}))

	r := newRecord(logger.Warning, "hello")
	sig, err := h.Handle(t.Context(), r)
	require.NoError(t, err)
	assert.Equal(t, Continue, sig)
	require.Len(t, w.records, 1)
	assert.True(t, w.records[0].Extra.Has("seen"))
	assert.False(t, r.Extra.Has("seen"), "processor modified the original")
	assert.Equal(t,
		"[2014-01-07T12:34:56.000000+00:00] test.WARNING: hello [] "+
			`{"seen":true}`+"\n", w.formatted[0])

	_, err = h.PopProcessor()
	require.NoError(t, err)
	_, err = h.PopProcessor()
	require.ErrorIs(t, err, processor.ErrEmptyStack)
	require.ErrorIs(t, h.PushProcessor(nil), processor.ErrNotInvocable)

	require.NoError(t, h.Close())
	assert.True(t, w.closed)
}

func TestProcessing_WriteError(t *testing.T) {
	h, w := newTestHandler(logger.Debug, true)
	w.err = errors.New("sink is gone")
	sig, err := h.Handle(t.Context(), newRecord(logger.Info, "x"))
	require.ErrorIs(t, err, w.err)
	assert.Equal(t, Stop, sig)
}

func TestProcessing_HandleBatch(t *testing.T) {
	h, w := newTestHandler(logger.Info, true)
	records := []logger.Record{
		newRecord(logger.Debug, "skipped"),
		newRecord(logger.Info, "first"),
		newRecord(logger.Error, "second"),
	}
	require.NoError(t, h.HandleBatch(t.Context(), records))
	require.Len(t, w.records, 2)
	assert.Equal(t, "first", w.records[0].Message)
	assert.Equal(t, "second", w.records[1].Message)
}

func TestNoop(t *testing.T) {
	h := NewNoop()
	assert.True(t, h.IsHandling(logger.Debug))
	sig, err := h.Handle(t.Context(), newRecord(logger.Info, "x"))
	require.NoError(t, err)
	assert.Equal(t, Continue, sig)
	require.NoError(t, h.HandleBatch(t.Context(), nil))
	require.NoError(t, h.Close())
}

func TestHighestRecord(t *testing.T) {
	assert.Equal(t, logger.Record{}, HighestRecord(nil))

	records := []logger.Record{
		newRecord(logger.Info, "a"),
		newRecord(logger.Critical, "b"),
		newRecord(logger.Warning, "c"),
		newRecord(logger.Critical, "d"),
	}
	assert.Equal(t, "b", HighestRecord(records).Message)
}
