package train

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paidagogos",
		Subsystem: "train",
		Name:      "runs_started_total",
		Help:      "Number of training runs started.",
	})
	epochsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paidagogos",
		Subsystem: "train",
		Name:      "epochs_completed_total",
		Help:      "Number of training epochs completed across all runs.",
	})
	earlyStops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paidagogos",
		Subsystem: "train",
		Name:      "early_stops_total",
		Help:      "Number of runs ended by an early-stopping request.",
	})
)
