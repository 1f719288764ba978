package monitoring

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
	"github.com/sarchlab/sensorsim/sensor"
	"github.com/sarchlab/sensorsim/sim/hooking"
)

var (
	// MetricSensorsimMsgRelayCount counts relay hops.
	MetricSensorsimMsgRelayCount = []string{"sensorsim", "msg", "relay", "count"}
	// MetricSensorsimMsgDeliverCount counts deliveries.
	MetricSensorsimMsgDeliverCount = []string{"sensorsim", "msg", "deliver", "count"}
	// MetricSensorsimMsgHops samples the hop count of each delivered message.
	MetricSensorsimMsgHops = []string{"sensorsim", "msg", "hops"}
	// MetricSensorsimMailboxPushCount counts messages entering mailboxes.
	MetricSensorsimMailboxPushCount = []string{"sensorsim", "mailbox", "push", "count"}
	// MetricSensorsimMailboxPopCount counts messages taken out of mailboxes.
	MetricSensorsimMailboxPopCount = []string{"sensorsim", "mailbox", "pop", "count"}
)

// A TelemetryLabel names a dimension shared by metrics and log records.
type TelemetryLabel string

var (
	// LabelRun carries the ID of a simulation run.
	LabelRun TelemetryLabel = "run"
	// LabelEngine carries the engine kind, dedicated or pooled.
	LabelEngine TelemetryLabel = "engine"
)

// M returns the label as a metric label.
func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

// L returns the label as a log attribute.
func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}

// A MetricsHook emits metrics to a metric sink. It can be attached to both
// sensors and mailboxes.
type MetricsHook struct {
	sink   metrics.MetricSink
	labels []metrics.Label
}

// NewMetricsHook creates a MetricsHook. Every emitted metric carries labels.
func NewMetricsHook(
	sink metrics.MetricSink,
	labels ...metrics.Label,
) *MetricsHook {
	return &MetricsHook{
		sink:   sink,
		labels: labels,
	}
}

// Func emits the metrics of one sensor or mailbox event.
func (h *MetricsHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case sensor.HookPosMsgRelay:
		h.sink.IncrCounterWithLabels(MetricSensorsimMsgRelayCount, 1, h.labels)
	case sensor.HookPosMsgDeliver:
		msg := ctx.Item.(*sensor.Msg)
		h.sink.IncrCounterWithLabels(MetricSensorsimMsgDeliverCount, 1, h.labels)
		h.sink.AddSampleWithLabels(MetricSensorsimMsgHops, float32(msg.Hops), h.labels)
	case sensor.HookPosMailboxPush:
		h.sink.IncrCounterWithLabels(MetricSensorsimMailboxPushCount, 1, h.labels)
	case sensor.HookPosMailboxPop:
		h.sink.IncrCounterWithLabels(MetricSensorsimMailboxPopCount, 1, h.labels)
	}
}
