// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package lazy

import "github.com/born-ml/lazytape/internal/graph"

// Errors returned by evaluation. Match them with errors.Is.
var (
	ErrGraphCycle            = graph.ErrGraphCycle
	ErrMissingDependency     = graph.ErrMissingDependency
	ErrUnregisteredOperation = graph.ErrUnregisteredOperation
	ErrShapeMismatch         = graph.ErrShapeMismatch
	ErrNoResult              = graph.ErrNoResult
	ErrInvalidTape           = graph.ErrInvalidTape
)

// Error carries the node and operation kind involved in a failure.
type Error = graph.Error
