package toolserver

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the handful of tool-call counters/durations this server
// records, mirroring kadirpekel-hector's pkg/observability recorder shape
// (Int64Counter + Float64Histogram pairs built off the global MeterProvider)
// scaled down to what §4.9's tool dispatch actually needs to observe.
type metrics struct {
	callsTotal  metric.Int64Counter
	errorsTotal metric.Int64Counter
	duration    metric.Float64Histogram
}

func newMetrics(meter metric.Meter) *metrics {
	callsTotal, _ := meter.Int64Counter("toolserver.tool_calls_total",
		metric.WithDescription("total tools/call invocations by tool name"))
	errorsTotal, _ := meter.Int64Counter("toolserver.tool_errors_total",
		metric.WithDescription("tools/call invocations that returned an error"))
	duration, _ := meter.Float64Histogram("toolserver.tool_call_duration_seconds",
		metric.WithDescription("tools/call handler latency in seconds"))
	return &metrics{callsTotal: callsTotal, errorsTotal: errorsTotal, duration: duration}
}

func (m *metrics) record(ctx context.Context, tool string, start time.Time, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.callsTotal.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.errorsTotal.Add(ctx, 1, attrs)
	}
}
