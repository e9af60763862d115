// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for the lazy evaluation runtime.
//
// # Overview
//
// This package implements tensor.Backend with:
//   - Pure Go implementation (no CGO)
//   - Float32, Float64, Int32 and Int64 support
//   - NumPy-compatible broadcasting for Add and Mul
//   - Row-parallel MatMul and FusedMLP kernels
//
// # Basic Usage
//
//	backend := cpu.NewWithConfig(cpu.Sequential())
//	ctx := lazy.NewWithBackend(backend, lazy.DefaultConfig())
//	a, _ := ctx.Ones(2, 2)
//	y, _ := ctx.MatMul(a, a)
//	data, _ := y.Float32s()
package cpu
