package storage

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts page I/O and structural tree changes.
type Metrics struct {
	PagesRead       *prometheus.CounterVec
	PagesWritten    *prometheus.CounterVec
	NodeSplits      prometheus.Counter
	ForcedReinserts prometheus.Counter
}

// NewMetrics registers the counters on reg, or on a private registry when reg
// is nil. Counters already registered on reg are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		PagesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rstar_pages_read_total",
			Help: "Pages read from disk, by file.",
		}, []string{"file"}),
		PagesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rstar_pages_written_total",
			Help: "Pages written to disk, by file.",
		}, []string{"file"}),
		NodeSplits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rstar_node_splits_total",
			Help: "Index nodes split on overflow.",
		}),
		ForcedReinserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rstar_forced_reinserts_total",
			Help: "Overflows handled by forced reinsertion.",
		}),
	}

	var err error
	if m.PagesRead, err = register(reg, m.PagesRead); err != nil {
		return nil, err
	}
	if m.PagesWritten, err = register(reg, m.PagesWritten); err != nil {
		return nil, err
	}
	if m.NodeSplits, err = register(reg, m.NodeSplits); err != nil {
		return nil, err
	}
	if m.ForcedReinserts, err = register(reg, m.ForcedReinserts); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
