package handler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dsh2dsh/logchain/internal/logger"
)

func NewChain(handlers ...Handler) *Chain {
	return &Chain{handlers: handlers}
}

// Chain offers records to its handlers in order. Dispatch calls are
// serialized, so handlers never see concurrent calls through one chain. A
// handler must not dispatch into the chain it belongs to.
type Chain struct {
	name     string
	handlers []Handler
	mu       sync.Mutex
}

var (
	_ Handler           = (*Chain)(nil)
	_ logger.Dispatcher = (*Chain)(nil)
)

// WithName sets the name reported by metrics and diagnostics.
func (self *Chain) WithName(name string) *Chain {
	self.name = name
	return self
}

func (self *Chain) Name() string { return self.name }

func (self *Chain) Push(h Handler) *Chain {
	self.mu.Lock()
	self.handlers = append(self.handlers, h)
	self.mu.Unlock()
	return self
}

func (self *Chain) Handlers() []Handler {
	self.mu.Lock()
	defer self.mu.Unlock()
	return slices.Clone(self.handlers)
}

func (self *Chain) Len() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.handlers)
}

// IsHandling reports whether any handler accepts level.
func (self *Chain) IsHandling(level logger.Level) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return slices.ContainsFunc(self.handlers,
		func(h Handler) bool { return h.IsHandling(level) })
}

// Dispatch offers r to every handler in order, until one of them returns
// Stop or fails. It reports whether at least one handler accepted r. A
// failure is returned as *HandlerError and stops dispatching of r.
func (self *Chain) Dispatch(ctx context.Context, r logger.Record,
) (bool, error) {
	handled, _, err := self.dispatch(ctx, r)
	return handled, err
}

func (self *Chain) dispatch(ctx context.Context, r logger.Record,
) (handled bool, sig Signal, err error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	for i, h := range self.handlers {
		if !h.IsHandling(r.Level) {
			continue
		}
		handled = true
		sig, err = h.Handle(ctx, r)
		if err != nil {
			self.countError(h)
			return handled, Stop, newHandlerError(i, h, err, r)
		} else if sig == Stop {
			return handled, Stop, nil
		}
	}
	return handled, Continue, nil
}

// Handle dispatches r, so a chain can be used as a handler of another one.
// It stops the outer chain when a handler of this chain stopped r.
func (self *Chain) Handle(ctx context.Context, r logger.Record,
) (Signal, error) {
	_, sig, err := self.dispatch(ctx, r)
	return sig, err
}

// HandleBatch passes records to every handler as one batch. Records
// accepted by a handler which doesn't bubble are not passed to handlers
// after it.
func (self *Chain) HandleBatch(ctx context.Context,
	records []logger.Record,
) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	for i, h := range self.handlers {
		if len(records) == 0 {
			break
		}
		if err := h.HandleBatch(ctx, records); err != nil {
			self.countError(h)
			return newHandlerError(i, h, err, records...)
		}
		if b, ok := h.(bubbler); ok && !b.Bubble() {
			records = slices.DeleteFunc(slices.Clone(records),
				func(r logger.Record) bool { return h.IsHandling(r.Level) })
		}
	}
	return nil
}

// Close closes all handlers and returns all their errors joined.
func (self *Chain) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	var errs []error
	for i, h := range self.handlers {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close handler #%d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (self *Chain) countError(h Handler) {
	metricSinkErrors.WithLabelValues(self.name, handlerName(h)).Inc()
}
