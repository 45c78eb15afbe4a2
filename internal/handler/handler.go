// Package handler delivers records to their destinations. Handlers are
// arranged in a Chain, which offers every record to them in order until one
// of them stops it.
package handler

import (
	"context"
	"io"

	"github.com/dsh2dsh/logchain/internal/formatter"
	"github.com/dsh2dsh/logchain/internal/logger"
	"github.com/dsh2dsh/logchain/internal/processor"
)

// Signal tells the chain whether the record goes on to the next handler.
type Signal int

const (
	Continue Signal = iota
	Stop
)

func (s Signal) String() string {
	if s == Stop {
		return "stop"
	}
	return "continue"
}

type Handler interface {
	// IsHandling reports whether the handler accepts records at level.
	IsHandling(level logger.Level) bool

	// Handle processes, formats and writes one accepted record.
	Handle(ctx context.Context, r logger.Record) (Signal, error)

	// HandleBatch delivers records as a group. Records the handler doesn't
	// accept are skipped.
	HandleBatch(ctx context.Context, records []logger.Record) error

	Close() error
}

// Writer is the sink of a Processing handler. It gets the processed record
// together with its rendering.
type Writer interface {
	Write(ctx context.Context, r logger.Record, formatted []byte) error
}

type bubbler interface {
	Bubble() bool
}

// batchSink is implemented by handlers delivering a whole batch at once.
type batchSink interface {
	DeliversBatch() bool
}

// --------------------------------------------------

// Base keeps the minimum level and the bubbling flag. The zero value accepts
// every level and bubbles.
type Base struct {
	level    logger.Level
	noBubble bool
}

func (self *Base) Level() logger.Level { return max(self.level, logger.Debug) }

func (self *Base) SetLevel(level logger.Level) { self.level = level }

func (self *Base) Bubble() bool { return !self.noBubble }

func (self *Base) SetBubble(bubble bool) { self.noBubble = !bubble }

func (self *Base) IsHandling(level logger.Level) bool {
	return self.Level().Includes(level)
}

func (self *Base) signal() Signal {
	if self.Bubble() {
		return Continue
	}
	return Stop
}

// --------------------------------------------------

// Processors is the processor stack of a handler.
type Processors struct {
	stack processor.Stack
}

func (self *Processors) PushProcessor(p processor.Processor) error {
	return self.stack.Push(p)
}

func (self *Processors) PopProcessor() (processor.Processor, error) {
	return self.stack.Pop()
}

// process returns a processed copy of r, r itself is left untouched.
func (self *Processors) process(r logger.Record) logger.Record {
	if self.stack.Len() == 0 {
		return r
	}
	return self.stack.Apply(r.Clone())
}

// --------------------------------------------------

func NewProcessing(w Writer) *Processing {
	return &Processing{w: w}
}

// Processing is the common shape of a leaf handler: it copies an accepted
// record, runs its processors on the copy, formats it and writes the result
// to its Writer.
type Processing struct {
	Base
	Processors

	formatter formatter.Formatter
	w         Writer
}

var _ Handler = (*Processing)(nil)

// Formatter returns the formatter in use, the default one if none was set.
func (self *Processing) Formatter() formatter.Formatter {
	if self.formatter == nil {
		self.formatter = formatter.Default()
	}
	return self.formatter
}

func (self *Processing) SetFormatter(f formatter.Formatter) {
	self.formatter = f
}

func (self *Processing) Handle(ctx context.Context, r logger.Record,
) (Signal, error) {
	if !self.IsHandling(r.Level) {
		return Continue, nil
	}

	r = self.process(r)
	b, err := self.Formatter().Format(r)
	if err != nil {
		return Stop, err
	} else if err := self.w.Write(ctx, r, b); err != nil {
		return Stop, err
	}
	return self.signal(), nil
}

func (self *Processing) HandleBatch(ctx context.Context,
	records []logger.Record,
) error {
	for i := range records {
		if _, err := self.Handle(ctx, records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (self *Processing) Close() error {
	if c, ok := self.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
