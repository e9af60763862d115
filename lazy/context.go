// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package lazy

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/born-ml/lazytape/internal/backend/cpu"
	"github.com/born-ml/lazytape/internal/config"
	"github.com/born-ml/lazytape/internal/eval"
	"github.com/born-ml/lazytape/internal/graph"
	"github.com/born-ml/lazytape/internal/tape"
	"github.com/born-ml/lazytape/tensor"
)

// Config selects the optimizations and kernel parallelism of a Context.
type Config = config.Config

// Option modifies a Config.
type Option = config.Option

// Stats are the evaluation counters of a Context.
type Stats = eval.Stats

// Configuration helpers.
var (
	DefaultConfig           = config.Default
	LoadConfig              = config.Load
	WithOptimizations       = config.WithOptimizations
	WithFusion              = config.WithFusion
	WithDeadCodeElimination = config.WithDeadCodeElimination
	WithParallel            = config.WithParallel
)

// Context owns a graph, the backend evaluating it and the result cache.
type Context struct {
	cfg     Config
	store   *graph.Store
	manager *eval.Manager
}

// New creates a Context on the CPU backend with the default configuration
// modified by opts.
func New(opts ...Option) *Context {
	return NewWithConfig(DefaultConfig().Apply(opts...))
}

// NewWithConfig creates a Context on the CPU backend.
func NewWithConfig(cfg Config) *Context {
	return NewWithBackend(cpu.NewWithConfig(cfg.Parallel), cfg)
}

// NewWithBackend creates a Context evaluating on backend. cfg.Parallel is
// ignored: it only configures the CPU backend.
func NewWithBackend(backend tensor.Backend, cfg Config) *Context {
	store := graph.NewStore()
	m := eval.NewManager(store, backend, passes(store, cfg))
	m.Generator().SetOptimize(cfg.Optimize)
	return &Context{cfg: cfg, store: store, manager: m}
}

func passes(store *graph.Store, cfg Config) *tape.Passes {
	p := tape.NewPasses()
	if cfg.DeadCodeElimination {
		p.Register(tape.DeadCodeElimination{})
	}
	if cfg.Fusion {
		p.Register(&tape.MLPFusion{Store: store})
	}
	return p
}

// Config returns the configuration the Context was created with.
func (c *Context) Config() Config {
	return c.cfg
}

// Store returns the graph backing the Context.
func (c *Context) Store() *graph.Store {
	return c.store
}

// Manager returns the evaluation manager, e.g. to register handlers or
// export metrics through Manager().Collector().
func (c *Context) Manager() *eval.Manager {
	return c.manager
}

// Stats returns the evaluation counters since the last ClearCache.
func (c *Context) Stats() Stats {
	return c.manager.Stats()
}

// ClearCache drops cached results and resets Stats. The graph is kept and
// already evaluated tensors keep their data.
func (c *Context) ClearCache() {
	c.manager.ClearCache()
}

// Reset drops the graph and the cache. Lazy tensors created before Reset
// can no longer be evaluated.
func (c *Context) Reset() {
	c.manager.ClearCache()
	c.store.Clear()
}

// Tape generates the optimized tape computing ts without executing it.
// Fusion adds one FusedMLP node to the store per fused pair the first time
// the pair is fused; later generations and evaluations reuse it.
func (c *Context) Tape(ts ...*Tensor) (*tape.Tape, error) {
	values, err := c.values(ts)
	if err != nil {
		return nil, err
	}
	return c.manager.Generator().Generate(values...)
}

// DOT renders the graph slice needed for ts in Graphviz format. With no
// tensors the whole graph is rendered.
func (c *Context) DOT(ts ...*Tensor) (string, error) {
	values, err := c.values(ts)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := graph.WriteDOT(&buf, c.store, values...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// EvalAll evaluates several tensors with a single tape.
func (c *Context) EvalAll(ts ...*Tensor) error {
	values, err := c.values(ts)
	if err != nil {
		return err
	}
	results, err := c.manager.EvaluateAll(values...)
	if err != nil {
		return err
	}
	for i, t := range ts {
		t.materialize(results[i])
	}
	return nil
}

// values checks that ts belong to c and its current graph.
func (c *Context) values(ts []*Tensor) ([]graph.Tensor, error) {
	values := make([]graph.Tensor, len(ts))
	for i, t := range ts {
		if t == nil {
			return nil, errors.Errorf("tensor #%d is nil", i)
		}
		if t.ctx != c {
			return nil, errors.Errorf("tensor #%d belongs to another context", i)
		}
		if t.value.IsLazy() && t.session != c.store.Session() {
			return nil, graph.Errorf(graph.ErrMissingDependency, t.value.Producer(), "",
				"tensor was built before the context was reset")
		}
		values[i] = t.value
	}
	return values, nil
}
