// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the materialized tensor storage and the math
// backend contract used by the lazy evaluation runtime.
//
// Most users build graphs with package lazy and only meet RawTensor as the
// result of an evaluation:
//
//	ctx := lazy.New()
//	x, _ := ctx.FromFloat32([]float32{-1, 2}, 2)
//	y, _ := ctx.ReLU(x)
//	raw, _ := y.Raw()  // *tensor.RawTensor
//	data := raw.AsFloat32()
//
// A custom Backend can be plugged into a context with lazy.NewWithBackend.
package tensor
