// Package parallel splits kernel loops over rows across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how loops are split.
type Config struct {
	Enabled      bool `yaml:"enabled"`
	NumWorkers   int  `yaml:"num_workers"`    // Upper bound on goroutines per loop.
	MinChunkSize int  `yaml:"min_chunk_size"` // Loops shorter than this run inline.
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

// chunkSize returns how many indices each goroutine handles, or n when the
// loop should run inline.
func (c Config) chunkSize(n int) int {
	if !c.Enabled || c.NumWorkers <= 1 || n < c.MinChunkSize {
		return n
	}
	return max((n+c.NumWorkers-1)/c.NumWorkers, c.MinChunkSize, 1)
}

// ForRange calls f on consecutive [lo, hi) ranges covering [0, n) and
// returns when all calls are done. Ranges may run concurrently.
func ForRange(n int, cfg Config, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	size := cfg.chunkSize(n)
	if size >= n {
		f(0, n)
		return
	}
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += size {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			f(lo, hi)
		}(lo, min(lo+size, n))
	}
	wg.Wait()
}

// For calls f(i) for every i in [0, n). f must only write state owned by i.
func For(n int, f func(i int), cfg Config) {
	ForRange(n, cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	})
}
