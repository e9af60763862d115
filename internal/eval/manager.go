// Package eval materializes lazy tensors. The Manager is the only path from
// a lazy handle to data: it generates a tape for the requested outputs, runs
// it and keeps every computed result in a cache shared by later calls.
package eval

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"

	"github.com/born-ml/lazytape/internal/graph"
	"github.com/born-ml/lazytape/internal/tape"
	"github.com/born-ml/lazytape/internal/tensor"
)

// Manager evaluates tensors of one store with one backend.
//
// It is not safe for concurrent use.
type Manager struct {
	store     *graph.Store
	generator *tape.Generator
	executor  *tape.Executor
	cache     map[graph.NodeID][]*tensor.RawTensor
	stats     Stats
}

// NewManager creates a manager over store. The default handlers are
// registered on the executor; passes may be nil to disable optimizations.
func NewManager(store *graph.Store, backend tensor.Backend, passes *tape.Passes) *Manager {
	ex := tape.NewExecutor(backend)
	tape.RegisterDefaultHandlers(ex)
	return &Manager{
		store:     store,
		generator: tape.NewGenerator(store, passes),
		executor:  ex,
		cache:     make(map[graph.NodeID][]*tensor.RawTensor),
	}
}

// Store returns the graph store the manager evaluates.
func (m *Manager) Store() *graph.Store {
	return m.store
}

// Generator returns the tape generator, e.g. to toggle optimizations.
func (m *Manager) Generator() *tape.Generator {
	return m.generator
}

// Executor returns the executor, e.g. to register extra handlers.
func (m *Manager) Executor() *tape.Executor {
	return m.executor
}

// Evaluate returns the data of t, computing it if needed.
//
// The returned tensor is a new handle the caller may Release. On error t is
// left untouched and the call may be retried.
func (m *Manager) Evaluate(t graph.Tensor) (*tensor.RawTensor, error) {
	results, err := m.EvaluateAll(t)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// EvaluateAll evaluates several tensors with a single tape. Results are
// returned in the order of ts. Stats are left untouched when any of ts can
// never be evaluated.
func (m *Manager) EvaluateAll(ts ...graph.Tensor) ([]*tensor.RawTensor, error) {
	var (
		pending []graph.Tensor
		hits    int64
	)
	for _, t := range ts {
		switch {
		case t.IsEvaluated():
			hits++
		case !t.IsLazy():
			return nil, errors.Wrapf(graph.ErrNoResult, "cannot evaluate %s", t)
		case m.Cached(t.Producer()):
			hits++
		default:
			pending = append(pending, t)
		}
	}
	m.stats.CacheHits += hits
	m.stats.CacheMisses += int64(len(pending))
	if len(pending) > 0 {
		if err := m.run(pending); err != nil {
			return nil, err
		}
	}

	results := make([]*tensor.RawTensor, len(ts))
	for i, t := range ts {
		if t.IsEvaluated() {
			results[i] = t.Raw().Clone()
			continue
		}
		outs := m.cache[t.Producer()]
		if int(t.Output()) >= len(outs) {
			for _, r := range results[:i] {
				r.Release()
			}
			return nil, graph.Errorf(graph.ErrNoResult, t.Producer(), m.opName(t.Producer()),
				"no result for output %d after execution", t.Output())
		}
		results[i] = outs[t.Output()].Clone()
	}
	return results, nil
}

// run generates and executes a tape for outputs and caches the result of
// every executed operation.
func (m *Manager) run(outputs []graph.Tensor) error {
	timer := prometheus.NewTimer(tapeDuration)
	defer timer.ObserveDuration()

	t, err := m.generator.Generate(outputs...)
	if err != nil {
		return err
	}
	m.executor.ClearResults()
	defer m.executor.ClearResults()
	if err := m.executor.ExecuteTape(t); err != nil {
		return err
	}

	for _, op := range t.Operations() {
		outs, found := m.executor.Result(op.NodeID)
		if !found {
			continue
		}
		for _, id := range append([]graph.NodeID{op.NodeID}, op.OutputNodes...) {
			if m.Cached(id) {
				continue
			}
			clones := make([]*tensor.RawTensor, len(outs))
			for i, r := range outs {
				clones[i] = r.Clone()
			}
			m.cache[id] = clones
		}
		for _, r := range outs {
			m.stats.MemoryAllocated += int64(r.ByteSize())
		}
	}
	m.stats.OperationsExecuted += int64(m.executor.Executed())
	klog.V(1).Infof("Evaluated %d outputs: %s", len(outputs), m.stats)
	return nil
}

func (m *Manager) opName(id graph.NodeID) string {
	if n, found := m.store.Node(id); found {
		return n.Name()
	}
	return ""
}

// Cached reports whether node id has a cached result.
func (m *Manager) Cached(id graph.NodeID) bool {
	_, found := m.cache[id]
	return found
}

// CacheSize returns the number of cached node results.
func (m *Manager) CacheSize() int {
	return len(m.cache)
}

// ClearCache drops every cached result and resets the statistics.
// The store is not affected.
func (m *Manager) ClearCache() {
	for _, outs := range m.cache {
		for _, r := range outs {
			r.Release()
		}
	}
	m.cache = make(map[graph.NodeID][]*tensor.RawTensor)
	m.stats = Stats{}
}

// Stats returns the counters accumulated since the last ClearCache.
func (m *Manager) Stats() Stats {
	return m.stats
}
