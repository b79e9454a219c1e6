package order

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/ovenline/pizzeria-orders/internal/domain/order"

// Telemetry holds the tracer and instruments the order Service reports
// through. The zero Service uses the global otel providers, which are no-ops
// until the process installs real ones.
type Telemetry struct {
	tracer   trace.Tracer
	accepted metric.Int64Counter
	rejected metric.Int64Counter
	canceled metric.Int64Counter
}

// NewTelemetry builds the order instruments from the given providers.
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) (*Telemetry, error) {
	meter := mp.Meter(scopeName)

	accepted, err := meter.Int64Counter("orders.accepted",
		metric.WithDescription("Orders that passed validation and pricing and were persisted."),
	)
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("orders.rejected",
		metric.WithDescription("Orders rejected during validation or price reconciliation."),
	)
	if err != nil {
		return nil, err
	}
	canceled, err := meter.Int64Counter("orders.canceled",
		metric.WithDescription("Orders canceled before pickup."),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		tracer:   tp.Tracer(scopeName),
		accepted: accepted,
		rejected: rejected,
		canceled: canceled,
	}, nil
}

func defaultTelemetry() *Telemetry {
	// The global providers are no-ops here and never fail instrument creation.
	t, _ := NewTelemetry(otel.GetTracerProvider(), otel.GetMeterProvider())
	return t
}

func (t *Telemetry) reject(ctx context.Context, stage string) {
	t.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
