package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus reports feed cache events as a single counter vector
// labeled by event kind, registered against reg.
type Prometheus struct {
	events *prometheus.CounterVec
}

// NewPrometheus registers the feed cache's counters against reg and
// returns a Metrics backed by them. namespace is prefixed onto the
// metric name, following the usual Prometheus client convention.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "feed_cache",
		Name:      "pool_events_total",
		Help:      "Feed cache shared block pool events by kind.",
	}, []string{"kind"})
	reg.MustRegister(events)

	return &Prometheus{events: events}
}

func (p *Prometheus) Miss()      { p.events.WithLabelValues("miss").Inc() }
func (p *Prometheus) CheckOut()  { p.events.WithLabelValues("check_out").Inc() }
func (p *Prometheus) CheckIn()   { p.events.WithLabelValues("check_in").Inc() }
func (p *Prometheus) Exhausted() { p.events.WithLabelValues("exhausted").Inc() }

var _ Metrics = (*Prometheus)(nil)
