package handler

import (
	"context"
	"sync/atomic"

	"github.com/juju/ratelimit"

	"github.com/dsh2dsh/logchain/internal/logger"
)

// NewThrottle limits records passed to next by a token bucket, which fills
// at rate tokens per second up to capacity. Records over the limit are
// dropped and counted, the chain treats them as handled.
func NewThrottle(next Handler, rate float64, capacity int64) *Throttle {
	return &Throttle{
		next:   next,
		bucket: ratelimit.NewBucketWithRate(rate, max(capacity, 1)),
	}
}

type Throttle struct {
	next    Handler
	bucket  *ratelimit.Bucket
	dropped atomic.Int64
}

var _ Handler = (*Throttle)(nil)

func (self *Throttle) Next() Handler { return self.next }

// Dropped returns the number of records dropped so far.
func (self *Throttle) Dropped() int64 { return self.dropped.Load() }

func (self *Throttle) Bubble() bool {
	if b, ok := self.next.(bubbler); ok {
		return b.Bubble()
	}
	return true
}

func (self *Throttle) IsHandling(level logger.Level) bool {
	return self.next.IsHandling(level)
}

func (self *Throttle) Handle(ctx context.Context, r logger.Record,
) (Signal, error) {
	if self.bucket.TakeAvailable(1) == 0 {
		self.drop(r.Channel, 1)
		if !self.Bubble() {
			return Stop, nil
		}
		return Continue, nil
	}
	return self.next.Handle(ctx, r)
}

func (self *Throttle) HandleBatch(ctx context.Context,
	records []logger.Record,
) error {
	accepted := make([]logger.Record, 0, len(records))
	for i := range records {
		if self.next.IsHandling(records[i].Level) {
			accepted = append(accepted, records[i])
		}
	}
	if len(accepted) == 0 {
		return nil
	}

	// A batch sink delivers once for the whole batch, so it costs one token
	// and gets all records, accepted or not.
	if _, ok := self.next.(batchSink); ok {
		if self.bucket.TakeAvailable(1) == 0 {
			self.drop(accepted[0].Channel, len(records))
			return nil
		}
		return self.next.HandleBatch(ctx, records)
	}

	n := self.bucket.TakeAvailable(int64(len(accepted)))
	if n == 0 {
		self.drop(accepted[0].Channel, len(accepted))
		return nil
	} else if int(n) < len(accepted) {
		self.drop(accepted[0].Channel, len(accepted)-int(n))
	}
	return self.next.HandleBatch(ctx, accepted[:n])
}

func (self *Throttle) drop(channel string, n int) {
	self.dropped.Add(int64(n))
	metricDropped.WithLabelValues(channel).Add(float64(n))
}

func (self *Throttle) Close() error { return self.next.Close() }
