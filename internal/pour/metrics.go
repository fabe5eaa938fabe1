package pour

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type engineMetrics struct {
	commits  metric.Int64Counter
	liters   metric.Float64Counter
	failures metric.Int64Counter
	undos    metric.Int64Counter
}

func newEngineMetrics() engineMetrics {
	m := otel.Meter("tapboard/pour")
	var em engineMetrics
	var err error
	if em.commits, err = m.Int64Counter("tapboard.pour.commits",
		metric.WithDescription("Pours written to the store")); err != nil {
		em.commits = noop.Int64Counter{}
	}
	if em.liters, err = m.Float64Counter("tapboard.pour.liters",
		metric.WithDescription("Volume poured"), metric.WithUnit("L")); err != nil {
		em.liters = noop.Float64Counter{}
	}
	if em.failures, err = m.Int64Counter("tapboard.pour.write_failures",
		metric.WithDescription("Commit and undo writes the store rejected")); err != nil {
		em.failures = noop.Int64Counter{}
	}
	if em.undos, err = m.Int64Counter("tapboard.pour.undos",
		metric.WithDescription("Pours reverted")); err != nil {
		em.undos = noop.Int64Counter{}
	}
	return em
}

func (m engineMetrics) committed(ctx context.Context, tap int, liters float64) {
	attrs := metric.WithAttributes(attribute.Int("tap", tap))
	m.commits.Add(ctx, 1, attrs)
	m.liters.Add(ctx, liters, attrs)
}

func (m engineMetrics) failed(ctx context.Context, op string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
