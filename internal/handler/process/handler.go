package process

import (
	"context"
	"sync"

	"github.com/dsh2dsh/logchain/internal/handler"
	"github.com/dsh2dsh/logchain/internal/logger"
)

// New returns a handler writing formatted records to a child process
// described by cfg. cfg is validated right away.
func New(cfg Config) (*Handler, error) {
	sink, err := NewSink(cfg)
	if err != nil {
		return nil, err
	}
	h := &Handler{sink: sink}
	h.Processing = handler.NewProcessing(h)
	return h, nil
}

type Handler struct {
	*handler.Processing

	sink *Sink
	mu   sync.Mutex
}

var _ handler.Handler = (*Handler)(nil)

func (self *Handler) Sink() *Sink { return self.sink }

func (self *Handler) Write(ctx context.Context, _ logger.Record, b []byte,
) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.sink.Write(ctx, b)
}

func (self *Handler) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.sink.Close()
}
