package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netcmd_command_executions_total",
			Help: "Total command executions by type and outcome.",
		},
		[]string{"command_type", "outcome"},
	)
	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netcmd_command_execution_duration_seconds",
			Help:    "Command execution duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"command_type"},
	)
)

func init() {
	prometheus.MustRegister(executionsTotal, executionDuration)
}

func observeExecution(commandType string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	executionsTotal.WithLabelValues(commandType, outcome).Inc()
	executionDuration.WithLabelValues(commandType).Observe(duration.Seconds())
}
