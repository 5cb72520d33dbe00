package tally

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "sendertally/internal/tally"

type instruments struct {
	listed   metric.Int64Counter
	resolved metric.Int64Counter
	skipped  metric.Int64Counter
	runs     metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	var inst instruments
	var err error
	if inst.listed, err = meter.Int64Counter("sendertally.messages.listed",
		metric.WithDescription("Message ids returned by list calls, after the cap"),
		metric.WithUnit("{message}")); err != nil {
		otel.Handle(err)
	}
	if inst.resolved, err = meter.Int64Counter("sendertally.messages.resolved",
		metric.WithDescription("Messages whose sender was counted"),
		metric.WithUnit("{message}")); err != nil {
		otel.Handle(err)
	}
	if inst.skipped, err = meter.Int64Counter("sendertally.messages.skipped",
		metric.WithDescription("Messages skipped after a failed or unparseable header fetch"),
		metric.WithUnit("{message}")); err != nil {
		otel.Handle(err)
	}
	if inst.runs, err = meter.Int64Counter("sendertally.runs",
		metric.WithDescription("Aggregation runs by final state"),
		metric.WithUnit("{run}")); err != nil {
		otel.Handle(err)
	}
	return inst
}

func (i instruments) record(ctx context.Context, res Result) {
	ctx = context.WithoutCancel(ctx)
	if i.listed != nil {
		i.listed.Add(ctx, int64(res.Listed))
	}
	if i.resolved != nil {
		i.resolved.Add(ctx, int64(len(res.Records)))
	}
	if i.skipped != nil {
		i.skipped.Add(ctx, int64(res.Skipped))
	}
	if i.runs != nil {
		i.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("state", res.State.String())))
	}
}
