// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package lazy builds tensor computations as graphs and evaluates them on
// demand.
//
// # Overview
//
// Calling an operation only records a node; nothing is computed until data
// is requested. Evaluation then:
//   - collects the nodes the requested tensors depend on
//   - orders them topologically, failing on cycles
//   - builds a linear tape and runs the optimization passes
//     (dead-code elimination, MatMul+Add fusion)
//   - executes the tape on the backend and caches every computed result
//
// # Basic Usage
//
//	ctx := lazy.New()
//	x, _ := ctx.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
//	w, _ := ctx.Ones(3, 2)
//	b, _ := ctx.Full(0.5, 2)
//	h, _ := ctx.MatMul(x, w)
//	h, _ = ctx.Add(h, b)
//	y, _ := ctx.ReLU(h)
//	data, err := y.Float32s()  // Runs one fused tape.
//
// A Context is not safe for concurrent use; create one per goroutine or
// synchronize externally.
package lazy
