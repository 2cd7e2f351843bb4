package generation

import (
	"context"
	"errors"
	"time"

	"github.com/buildbuddy/engine/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildbuddy_generation_requests_total",
			Help: "Total number of structured generation requests.",
		},
		[]string{"provider", "schema", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buildbuddy_generation_request_duration_seconds",
			Help:    "Histogram of structured generation latencies.",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"provider", "schema"},
	)
)

type instrumented struct {
	next     Generator
	provider string
	model    string
}

// Instrument wraps g so that each call is logged and counted.
func Instrument(g Generator, provider, model string) Generator {
	return &instrumented{next: g, provider: provider, model: model}
}

func (i *instrumented) Generate(ctx context.Context, req Request, out any) error {
	start := time.Now()
	err := i.next.Generate(ctx, req, out)
	dur := time.Since(start)

	status := "success"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	case err != nil:
		status = "error"
	}
	requestsTotal.With(prometheus.Labels{"provider": i.provider, "schema": req.Name, "status": status}).Inc()
	requestDuration.With(prometheus.Labels{"provider": i.provider, "schema": req.Name}).Observe(dur.Seconds())

	fields := []zap.Field{
		zap.String("provider", i.provider),
		zap.String("model", i.model),
		zap.String("schema", req.Name),
		zap.Duration("duration", dur),
	}
	if err != nil {
		logger.Named("generation").Warn("generation failed", append(fields, zap.Error(err))...)
		return err
	}
	logger.Named("generation").Info("generation succeeded", fields...)
	return nil
}
