package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsh2dsh/logchain/internal/logger"
)

func appendMessage(s string) Processor {
	return func(r logger.Record) logger.Record {
		r.Message += s
		return r
	}
}

func TestStack_PushPop(t *testing.T) {
	s := new(Stack)
	var calls []string
	p1 := func(r logger.Record) logger.Record {
		calls = append(calls, "p1")
		return r
	}
	p2 := func(r logger.Record) logger.Record {
		calls = append(calls, "p2")
		return r
	}

	require.NoError(t, s.Push(p1))
	require.NoError(t, s.Push(p2))
	assert.Equal(t, 2, s.Len())

	got, err := s.Pop()
	require.NoError(t, err)
	got(logger.Record{})
	got, err = s.Pop()
	require.NoError(t, err)
	got(logger.Record{})
	assert.Equal(t, []string{"p2", "p1"}, calls)

	_, err = s.Pop()
	require.ErrorIs(t, err, ErrEmptyStack)
}

func TestStack_PopBalanced(t *testing.T) {
	s := new(Stack)
	for range 3 {
		require.NoError(t, s.Push(appendMessage("x")))
	}
	for range 3 {
		_, err := s.Pop()
		require.NoError(t, err)
	}
	_, err := s.Pop()
	require.ErrorIs(t, err, ErrEmptyStack)
}

func TestStack_PushNil(t *testing.T) {
	s := new(Stack)
	require.ErrorIs(t, s.Push(nil), ErrNotInvocable)
	assert.Zero(t, s.Len())

	_, err := NewStack(appendMessage("a"), nil)
	require.ErrorIs(t, err, ErrNotInvocable)
}

func TestStack_Apply(t *testing.T) {
	s, err := NewStack(appendMessage("1"), appendMessage("2"))
	require.NoError(t, err)
	require.NoError(t, s.Push(appendMessage("3")))

	r := s.Apply(logger.Record{Message: "m"})
	assert.Equal(t, "m123", r.Message)

	c := s.Clone()
	_, err = c.Pop()
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "m12", c.Apply(logger.Record{Message: "m"}).Message)
}
