package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dsh2dsh/logchain/internal/logger"
)

var (
	metricRecords    *prometheus.CounterVec
	metricSinkErrors *prometheus.CounterVec
	metricDropped    *prometheus.CounterVec
)

func init() {
	metricRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logchain",
		Subsystem: "handler",
		Name:      "records",
		Help:      "number of records per channel and level",
	}, []string{"channel", "level"})

	metricSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logchain",
		Subsystem: "handler",
		Name:      "sink_errors",
		Help:      "number of failed deliveries per chain and handler type",
	}, []string{"chain", "handler"})

	metricDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logchain",
		Subsystem: "handler",
		Name:      "throttled",
		Help:      "number of records dropped by rate limits per channel",
	}, []string{"channel"})
}

func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(metricRecords, metricSinkErrors, metricDropped)
}

func handlerName(h Handler) string {
	name := fmt.Sprintf("%T", h)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// --------------------------------------------------

// NewMetrics returns a handler which counts accepted records per channel and
// level.
func NewMetrics() *Metrics { return &Metrics{} }

type Metrics struct {
	Base
}

var _ Handler = (*Metrics)(nil)

func (self *Metrics) Handle(_ context.Context, r logger.Record,
) (Signal, error) {
	if !self.IsHandling(r.Level) {
		return Continue, nil
	}
	metricRecords.WithLabelValues(r.Channel, r.Level.WireName()).Inc()
	return self.signal(), nil
}

func (self *Metrics) HandleBatch(ctx context.Context,
	records []logger.Record,
) error {
	for i := range records {
		if _, err := self.Handle(ctx, records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (self *Metrics) Close() error { return nil }
