package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	plansStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atomic_planner",
			Name:      "plans_started_total",
			Help:      "Count of planning runs started, by outcome.",
		},
		[]string{"outcome"},
	)

	breaksGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "atomic_planner",
			Name:      "breaks_generated_total",
			Help:      "Count of synthetic break events generated.",
		},
	)

	eventPartsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "atomic_planner",
			Name:      "event_parts_generated_total",
			Help:      "Count of event parts emitted to payloads.",
		},
	)

	timeslotsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "atomic_planner",
			Name:      "timeslots_generated_total",
			Help:      "Count of candidate timeslots emitted to payloads.",
		},
	)

	payloadsDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "atomic_planner",
			Name:      "payloads_dispatched_total",
			Help:      "Count of payloads handed to the solver.",
		},
	)

	solverDispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "atomic_planner",
			Name:      "solver_dispatch_duration_seconds",
			Help:      "Time to archive and dispatch a payload.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			plansStarted,
			breaksGenerated,
			eventPartsGenerated,
			timeslotsGenerated,
			payloadsDispatched,
			solverDispatchDuration,
		)
	})
}

func IncPlanStarted(outcome string) {
	plansStarted.WithLabelValues(outcome).Inc()
}

func AddBreaksGenerated(n int) {
	breaksGenerated.Add(float64(n))
}

func AddEventParts(n int) {
	eventPartsGenerated.Add(float64(n))
}

func AddTimeslots(n int) {
	timeslotsGenerated.Add(float64(n))
}

func IncPayloadDispatched() {
	payloadsDispatched.Inc()
}

func ObserveDispatchDuration(seconds float64) {
	solverDispatchDuration.Observe(seconds)
}
