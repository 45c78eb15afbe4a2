package logger

import (
	"context"
	"testing"
)

func NewTestLogger(t *testing.T) *Logger {
	return NewLogger("test", &testingOutlet{t})
}

type testingOutlet struct {
	t *testing.T
}

var _ Dispatcher = (*testingOutlet)(nil)

func (self *testingOutlet) Dispatch(_ context.Context, r Record) (bool, error) {
	self.t.Logf("%s.%s: %s %v", r.Channel, r.Level, r.Message, r.Context)
	return true, nil
}
