package server

import (
	"time"

	"github.com/armon/go-metrics"
	"github.com/armon/go-metrics/prometheus"
)

// SetupTelemetry installs the global metrics sink, fanning out to an
// in-memory sink and the prometheus registry. It must be called once.
func SetupTelemetry(serviceName string) (*metrics.InmemSink, error) {
	inm := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(inm)

	promSink, err := prometheus.NewPrometheusSinkFrom(prometheus.PrometheusOpts{
		Name:       serviceName + "_prometheus_sink",
		Expiration: 0,
	})
	if err != nil {
		return nil, err
	}

	metricsConf := metrics.DefaultConfig(serviceName)
	metricsConf.EnableHostname = false

	if _, err := metrics.NewGlobal(metricsConf, metrics.FanoutSink{inm, promSink}); err != nil {
		return nil, err
	}

	return inm, nil
}
