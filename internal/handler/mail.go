package handler

import (
	"context"
	"fmt"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// Sender delivers one rendered batch. Records are the processed records the
// body was rendered from.
type Sender interface {
	Send(ctx context.Context, body []byte, records []logger.Record) error
}

type SenderFunc func(ctx context.Context, body []byte,
	records []logger.Record) error

func (f SenderFunc) Send(ctx context.Context, body []byte,
	records []logger.Record,
) error {
	return f(ctx, body, records)
}

// NewMail returns a handler which delivers records through sender. A single
// record is sent on its own, a batch is sent as a whole.
func NewMail(sender Sender) *Mail {
	m := &Mail{sender: sender}
	m.Processing = NewProcessing(m)
	return m
}

type Mail struct {
	*Processing

	sender Sender
}

var (
	_ Handler   = (*Mail)(nil)
	_ batchSink = (*Mail)(nil)
)

func (self *Mail) Sender() Sender { return self.sender }

func (self *Mail) DeliversBatch() bool { return true }

func (self *Mail) Write(ctx context.Context, r logger.Record, b []byte,
) error {
	return self.send(ctx, b, []logger.Record{r})
}

// HandleBatch sends all records with one Send, if at least one of them is
// accepted. Records below the minimum level are sent too, as the context of
// accepted ones.
func (self *Mail) HandleBatch(ctx context.Context, records []logger.Record,
) error {
	accepted := false
	for i := range records {
		if self.IsHandling(records[i].Level) {
			accepted = true
			break
		}
	}
	if !accepted {
		return nil
	}

	processed := make([]logger.Record, len(records))
	for i := range records {
		processed[i] = self.process(records[i])
	}

	body, err := self.Formatter().FormatBatch(processed)
	if err != nil {
		return err
	}
	return self.send(ctx, body, processed)
}

func (self *Mail) send(ctx context.Context, body []byte,
	records []logger.Record,
) error {
	if err := self.sender.Send(ctx, body, records); err != nil {
		return fmt.Errorf("mail handler: %w", err)
	}
	return nil
}

func (self *Mail) Close() error { return nil }

// HighestRecord returns the most severe of records, the first one of them if
// several have the same level.
func HighestRecord(records []logger.Record) (highest logger.Record) {
	for i := range records {
		if i == 0 || records[i].Level.IsHigherThan(highest.Level) {
			highest = records[i]
		}
	}
	return
}
