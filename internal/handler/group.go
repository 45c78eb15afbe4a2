package handler

import (
	"context"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// NewGroup returns a handler which passes accepted records to all of
// handlers through an inner chain.
func NewGroup(handlers ...Handler) *Group {
	return &Group{inner: NewChain(handlers...)}
}

// Group applies its own processors to a copy of a record, then dispatches
// the copy into its inner chain. Bubbling of the inner handlers only
// affects the inner chain.
type Group struct {
	Base
	Processors

	inner *Chain
}

var _ Handler = (*Group)(nil)

func (self *Group) Handlers() []Handler { return self.inner.Handlers() }

func (self *Group) IsHandling(level logger.Level) bool {
	return self.Base.IsHandling(level) && self.inner.IsHandling(level)
}

func (self *Group) Handle(ctx context.Context, r logger.Record,
) (Signal, error) {
	if !self.IsHandling(r.Level) {
		return Continue, nil
	}
	if _, err := self.inner.Dispatch(ctx, self.process(r)); err != nil {
		return Stop, err
	}
	return self.signal(), nil
}

func (self *Group) HandleBatch(ctx context.Context, records []logger.Record,
) error {
	processed := make([]logger.Record, 0, len(records))
	for i := range records {
		if self.IsHandling(records[i].Level) {
			processed = append(processed, self.process(records[i]))
		}
	}
	if len(processed) == 0 {
		return nil
	}
	return self.inner.HandleBatch(ctx, processed)
}

func (self *Group) Close() error { return self.inner.Close() }
