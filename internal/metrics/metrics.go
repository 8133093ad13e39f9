// Package metrics registers observability gauges against the global OTEL
// meter provider. Grounded on akashi's internal/telemetry package (one
// meter, a handful of ObservableGauge callbacks reading live state) but
// trimmed to registration only: this module never wires an exporter or a
// tracer, leaving that to whatever host process embeds it.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/KyroDB/kyroql"

// StorageSource reports the durable store's on-disk segment count.
type StorageSource interface {
	SegmentCount() int
}

// MonitorSource reports the monitor subsystem's queue depth and drop
// counts: DroppedObservations counts ObserveAssert calls rejected at the
// ingress queue, DroppedEvents counts matched events dropped because a
// subscriber's stream buffer was full.
type MonitorSource interface {
	QueueDepth() int
	DroppedObservations() int64
	DroppedEvents() int64
}

// RuntimeSource reports the Reflex/Reflection pools' queue depths.
type RuntimeSource interface {
	ReflexQueueDepth() int
	ReflectionQueueDepth() int
}

// Register installs observable gauges for storage, monitor, and runtime
// state against otel.GetMeterProvider()'s current provider. Any argument
// may be nil to skip that gauge group (e.g. a simulation-scoped runtime
// with no monitor). Returns an error only if gauge registration itself
// fails; callbacks that read stale state are never fatal.
func Register(storage StorageSource, mon MonitorSource, rt RuntimeSource) error {
	meter := otel.GetMeterProvider().Meter(meterName)

	if storage != nil {
		segments, err := meter.Int64ObservableGauge(
			"kyroql.storage.segment_count",
			metric.WithDescription("number of compacted segment files on disk"),
		)
		if err != nil {
			return err
		}
		if _, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(segments, int64(storage.SegmentCount()))
			return nil
		}, segments); err != nil {
			return err
		}
	}

	if mon != nil {
		queueDepth, err := meter.Int64ObservableGauge(
			"kyroql.monitor.queue_depth",
			metric.WithDescription("observations buffered in the monitor dispatch queue"),
		)
		if err != nil {
			return err
		}
		dropped, err := meter.Int64ObservableGauge(
			"kyroql.monitor.dropped_observations",
			metric.WithDescription("observations rejected because the dispatch queue was full"),
		)
		if err != nil {
			return err
		}
		droppedEvents, err := meter.Int64ObservableGauge(
			"kyroql.monitor.dropped_events",
			metric.WithDescription("matched events dropped because a subscriber stream buffer was full"),
		)
		if err != nil {
			return err
		}
		if _, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(queueDepth, int64(mon.QueueDepth()))
			o.ObserveInt64(dropped, mon.DroppedObservations())
			o.ObserveInt64(droppedEvents, mon.DroppedEvents())
			return nil
		}, queueDepth, dropped, droppedEvents); err != nil {
			return err
		}
	}

	if rt != nil {
		reflexDepth, err := meter.Int64ObservableGauge(
			"kyroql.runtime.reflex_queue_depth",
			metric.WithDescription("jobs buffered on the Reflex pool"),
		)
		if err != nil {
			return err
		}
		reflectionDepth, err := meter.Int64ObservableGauge(
			"kyroql.runtime.reflection_queue_depth",
			metric.WithDescription("jobs buffered on the Reflection pool"),
		)
		if err != nil {
			return err
		}
		if _, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(reflexDepth, int64(rt.ReflexQueueDepth()))
			o.ObserveInt64(reflectionDepth, int64(rt.ReflectionQueueDepth()))
			return nil
		}, reflexDepth, reflectionDepth); err != nil {
			return err
		}
	}

	return nil
}
