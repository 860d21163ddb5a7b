package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Sink receives named counter values read on each monitor tick.
type Sink interface {
	Record(name string, value int64)
}

// LogSink reports metrics as structured log lines.
type LogSink struct{}

// NewLogSink constructs a logging telemetry sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Record logs the metric value.
func (s *LogSink) Record(name string, value int64) {
	log.WithFields(log.Fields{
		"metric": name,
		"value":  value,
	}).Info("telemetry")
}

// PrometheusSink exposes per-interval counter values as gauges. Gauges
// rather than counters because the workers reset the underlying values on
// every tick.
type PrometheusSink struct {
	gauges *prometheus.GaugeVec
}

// NewPrometheusSink constructs a sink registered against reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	gauges := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "notification_hub",
		Name:      "dispatch_interval_count",
		Help:      "Dispatch counter values for the last monitor interval.",
	}, []string{"metric"})
	reg.MustRegister(gauges)
	return &PrometheusSink{gauges: gauges}
}

// Record sets the gauge for the metric.
func (s *PrometheusSink) Record(name string, value int64) {
	s.gauges.WithLabelValues(name).Set(float64(value))
}
