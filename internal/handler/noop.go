package handler

import (
	"context"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// Noop accepts everything and does nothing with it.
type Noop struct{}

var _ Handler = Noop{}

func NewNoop() Noop { return Noop{} }

func (Noop) IsHandling(logger.Level) bool { return true }

func (Noop) Handle(context.Context, logger.Record) (Signal, error) {
	return Continue, nil
}

func (Noop) HandleBatch(context.Context, []logger.Record) error { return nil }

func (Noop) Close() error { return nil }
