// Package metrics records Prometheus metrics for onion chains and for
// individual handlers.
package metrics

import (
	"errors"
	"time"

	"github.com/Keksclan/onion"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomePanic     = "panic"
	OutcomeReentrant = "reentrant"
)

// Recorder owns the collectors shared by Chain and Step.
type Recorder struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	steps       *prometheus.HistogramVec
}

// NewRecorder creates the collectors under namespace and registers them with
// reg.
func NewRecorder(reg prometheus.Registerer, namespace string) (*Recorder, error) {
	r := &Recorder{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_invocations_total",
			Help:      "Composed chain invocations by outcome.",
		}, []string{"chain", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_duration_seconds",
			Help:      "Wall time of a whole chain invocation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of a handler, including everything it delegated to.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "outcome"}),
	}

	for _, c := range []prometheus.Collector{r.invocations, r.duration, r.steps} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Chain instruments every invocation of c under the given chain label.
func Chain[T any](r *Recorder, name string, c onion.Composed[T]) onion.Composed[T] {
	return func(v T, tail onion.Handler[T]) error {
		start := time.Now()
		err := c(v, tail)
		r.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		r.invocations.WithLabelValues(name, Outcome(err)).Inc()
		return err
	}
}

// Step instruments a single handler under the given step label.
func Step[T any](r *Recorder, name string, h onion.Handler[T]) onion.Handler[T] {
	return func(v T, next onion.Next) error {
		start := time.Now()
		err := h(v, next)
		r.steps.WithLabelValues(name, Outcome(err)).Observe(time.Since(start).Seconds())
		return err
	}
}

// Outcome classifies err for the outcome label.
func Outcome(err error) string {
	var pe *onion.PanicError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, onion.ErrNextCalledMultiple):
		return OutcomeReentrant
	case errors.As(err, &pe):
		return OutcomePanic
	}
	return OutcomeError
}
