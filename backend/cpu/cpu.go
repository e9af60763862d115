// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/lazytape/internal/backend/cpu"
	"github.com/born-ml/lazytape/internal/parallel"
	"github.com/born-ml/lazytape/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// ParallelConfig controls how kernels split rows across goroutines.
type ParallelConfig = parallel.Config

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend using all available cores.
//
// Example:
//
//	import (
//	    "github.com/born-ml/lazytape/backend/cpu"
//	    "github.com/born-ml/lazytape/lazy"
//	)
//
//	func main() {
//	    ctx := lazy.NewWithBackend(cpu.New(), lazy.DefaultConfig())
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with explicit parallelism.
func NewWithConfig(cfg ParallelConfig) *Backend {
	return internalcpu.NewWithConfig(cfg)
}

// Sequential returns a parallel configuration that never spawns goroutines.
func Sequential() ParallelConfig {
	return parallel.Sequential()
}
