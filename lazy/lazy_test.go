// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package lazy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"

	"github.com/born-ml/lazytape/backend/cpu"
	"github.com/born-ml/lazytape/internal/graph"
	"github.com/born-ml/lazytape/tensor"
)

func init() {
	klog.InitFlags(nil)
}

func newTestContext(opts ...Option) *Context {
	return New(append([]Option{WithParallel(cpu.Sequential())}, opts...)...)
}

// countingBackend counts every kernel call.
type countingBackend struct {
	tensor.Backend
	calls int
}

func (b *countingBackend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	b.calls++
	return b.Backend.Add(x, y)
}

func (b *countingBackend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	b.calls++
	return b.Backend.Mul(x, y)
}

func (b *countingBackend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	b.calls++
	return b.Backend.MatMul(x, y)
}

func (b *countingBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	b.calls++
	return b.Backend.ReLU(x)
}

func (b *countingBackend) ReduceSum(x *tensor.RawTensor, dims []int, keepDim bool) *tensor.RawTensor {
	b.calls++
	return b.Backend.ReduceSum(x, dims, keepDim)
}

func (b *countingBackend) Split(x *tensor.RawTensor, size, dim int) []*tensor.RawTensor {
	b.calls++
	return b.Backend.Split(x, size, dim)
}

func (b *countingBackend) FusedMLP(x, w, bias *tensor.RawTensor, relu bool) *tensor.RawTensor {
	b.calls++
	return b.Backend.FusedMLP(x, w, bias, relu)
}

func TestMatMulOfConstants(t *testing.T) {
	ctx := newTestContext()
	a, err := ctx.Full(2, 2, 2)
	require.NoError(t, err)
	b, err := ctx.Full(3, 2, 2)
	require.NoError(t, err)
	y, err := ctx.MatMul(a, b)
	require.NoError(t, err)
	assert.True(t, y.IsLazy())
	assert.True(t, y.Shape().Equal(tensor.Shape{2, 2}))

	data, err := y.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{12, 12, 12, 12}, data)
	assert.True(t, y.IsEvaluated())
	assert.False(t, y.IsLazy())
}

func TestReLU(t *testing.T) {
	ctx := newTestContext()
	x, err := ctx.FromFloat32([]float32{-2, -1, 0, 1, 2, -0.5, 0.5, -3}, 8)
	require.NoError(t, err)
	y, err := ctx.ReLU(x)
	require.NoError(t, err)
	data, err := y.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 1, 2, 0, 0.5, 0}, data)
}

func TestBuildingComputesNothing(t *testing.T) {
	backend := &countingBackend{Backend: cpu.NewWithConfig(cpu.Sequential())}
	ctx := NewWithBackend(backend, DefaultConfig())

	x, err := ctx.Ones(4, 4)
	require.NoError(t, err)
	y := x
	for range 20 {
		if y, err = ctx.MatMul(y, x); err != nil {
			t.Fatal(err)
		}
		if y, err = ctx.ReLU(y); err != nil {
			t.Fatal(err)
		}
	}
	parts, err := ctx.Split(y, 2, 0)
	require.NoError(t, err)
	s, err := ctx.ReduceSum(parts[1], false)
	require.NoError(t, err)

	assert.Equal(t, 0, backend.calls)
	assert.Equal(t, 42, ctx.Store().Len())
	assert.Equal(t, Stats{}, ctx.Stats())

	require.NoError(t, s.Eval())
	assert.Equal(t, 42, backend.calls)
}

func TestEvalIsIdempotent(t *testing.T) {
	ctx := newTestContext()
	rng := rand.New(rand.NewSource(1))
	x, err := ctx.Rand(rng, 3, 3)
	require.NoError(t, err)
	y, err := ctx.MatMul(x, x)
	require.NoError(t, err)

	first, err := ctx.Manager().Evaluate(y.value)
	require.NoError(t, err)
	second, err := ctx.Manager().Evaluate(y.value)
	require.NoError(t, err)
	assert.Equal(t, first.Data(), second.Data())
	assert.Equal(t, int64(1), ctx.Stats().CacheHits)
	assert.Equal(t, int64(1), ctx.Stats().CacheMisses)

	// The same through the Tensor API.
	a, err := y.Float32s()
	require.NoError(t, err)
	b, err := y.Float32s()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, int64(3), ctx.Stats().CacheHits)
	assert.Equal(t, int64(1), ctx.Stats().CacheMisses)
}

func TestPipelineCachesEveryIntermediate(t *testing.T) {
	ctx := newTestContext()
	rng := rand.New(rand.NewSource(7))
	a, err := ctx.Rand(rng, 4, 4)
	require.NoError(t, err)
	b, err := ctx.Rand(rng, 4, 4)
	require.NoError(t, err)

	mm, err := ctx.MatMul(a, b)
	require.NoError(t, err)
	r, err := ctx.ReLU(mm)
	require.NoError(t, err)
	parts, err := ctx.Split(r, 2, 0)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	s, err := ctx.ReduceSum(parts[0], false)
	require.NoError(t, err)

	ids := graph.Collect(ctx.Store(), s.value)
	assert.Len(t, ids, 4)
	order, err := graph.Schedule(ctx.Store(), ids)
	require.NoError(t, err)
	assert.Len(t, order, 4)

	require.NoError(t, s.Eval())
	for _, id := range order {
		assert.True(t, ctx.Manager().Cached(id), "node #%d not cached", id)
	}

	// Cross-check against the cached intermediate.
	rows, err := parts[0].Float32s()
	require.NoError(t, err)
	var want float64
	for _, v := range rows {
		want += float64(v)
	}
	got, err := s.Float32s()
	require.NoError(t, err)
	assert.InDelta(t, want, float64(got[0]), 1e-4)
	assert.Equal(t, int64(1), ctx.Stats().CacheMisses)
}

func TestFusedMatchesUnfused(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	xData := make([]float32, 4*8)
	wData := make([]float32, 8*5)
	bData := make([]float32, 5)
	for _, data := range [][]float32{xData, wData, bData} {
		for i := range data {
			data[i] = rng.Float32()*2 - 1
		}
	}

	build := func(ctx *Context) (x, w, b *Tensor) {
		var err error
		x, err = ctx.FromFloat32(xData, 4, 8)
		require.NoError(t, err)
		w, err = ctx.FromFloat32(wData, 8, 5)
		require.NoError(t, err)
		b, err = ctx.FromFloat32(bData, 5)
		require.NoError(t, err)
		return
	}

	unfused := newTestContext(WithFusion(false))
	x, w, b := build(unfused)
	h, err := unfused.MatMul(x, w)
	require.NoError(t, err)
	h, err = unfused.Add(h, b)
	require.NoError(t, err)
	y1, err := unfused.ReLU(h)
	require.NoError(t, err)

	fused := newTestContext()
	x, w, b = build(fused)
	y2, err := fused.FusedMLP(x, w, b, true)
	require.NoError(t, err)

	assert.Equal(t, 3, unfused.Store().Len())
	assert.Equal(t, 1, fused.Store().Len())

	want, err := y1.Float32s()
	require.NoError(t, err)
	got, err := y2.Float32s()
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 0.02, "element %d", i)
	}
	assert.Equal(t, int64(3), unfused.Stats().OperationsExecuted)
	assert.Equal(t, int64(1), fused.Stats().OperationsExecuted)
}

func TestAutomaticFusion(t *testing.T) {
	run := func(opts ...Option) ([]float32, *Context) {
		ctx := newTestContext(opts...)
		x, err := ctx.FromFloat32([]float32{1, -2, 3, 0.5, 2, -1}, 2, 3)
		require.NoError(t, err)
		w, err := ctx.FromFloat32([]float32{0.5, -1, 2, 0.25, -0.5, 1}, 3, 2)
		require.NoError(t, err)
		b, err := ctx.FromFloat32([]float32{0.1, -0.2}, 2)
		require.NoError(t, err)
		h, err := ctx.MatMul(x, w)
		require.NoError(t, err)
		h, err = ctx.Add(h, b)
		require.NoError(t, err)
		y, err := ctx.ReLU(h)
		require.NoError(t, err)

		tp, err := ctx.Tape(y)
		require.NoError(t, err)
		if ctx.Config().Fusion && ctx.Config().Optimize {
			assert.Equal(t, 2, tp.Len())
		} else {
			assert.Equal(t, 3, tp.Len())
		}
		data, err := y.Float32s()
		require.NoError(t, err)
		return data, ctx
	}

	fused, ctx := run()
	unfused, _ := run(WithFusion(false))
	noOpt, _ := run(WithOptimizations(false))
	for i := range fused {
		assert.InDelta(t, unfused[i], fused[i], 1e-5)
		assert.InDelta(t, noOpt[i], fused[i], 1e-5)
	}
	assert.Equal(t, int64(2), ctx.Stats().OperationsExecuted)
}

func TestCycleIsDetected(t *testing.T) {
	ctx := newTestContext()
	c, err := ctx.Ones(2)
	require.NoError(t, err)
	x, err := ctx.ReLU(c)
	require.NoError(t, err)
	y, err := ctx.ReLU(x)
	require.NoError(t, err)

	// Make x depend on y, which depends on x.
	n, found := ctx.Store().Node(x.Producer())
	require.True(t, found)
	n.Inputs[0] = y.value

	err = y.Eval()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGraphCycle), "got %v", err)
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.NotZero(t, gerr.Node)
	assert.True(t, y.IsLazy())
}

func TestBuildErrors(t *testing.T) {
	ctx := newTestContext()
	a, err := ctx.Ones(2, 3)
	require.NoError(t, err)

	_, err = ctx.MatMul(a, a)
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	_, err = ctx.Add(a, mustOnes(t, ctx, 4))
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	_, err = ctx.ReduceSum(a, false, 2)
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	_, err = ctx.Split(a, 0, 0)
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	d, err := ctx.FromFloat64([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)
	_, err = ctx.Add(a, d)
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	assert.Equal(t, 0, ctx.Store().Len(), "failed builds record nothing")

	_, err = ctx.FromFloat32([]float32{1, 2, 3}, 2, 2)
	assert.ErrorContains(t, err, "failed to create constant")

	other := newTestContext()
	_, err = other.ReLU(a)
	assert.ErrorContains(t, err, "another context")
	_, err = ctx.ReLU(nil)
	assert.ErrorContains(t, err, "is nil")

	_, err = d.Float32s()
	assert.ErrorContains(t, err, "not float32")
}

func mustOnes(t *testing.T, ctx *Context, shape ...int) *Tensor {
	t.Helper()
	x, err := ctx.Ones(shape...)
	require.NoError(t, err)
	return x
}

func TestTransposedMatMul(t *testing.T) {
	ctx := newTestContext()
	a, err := ctx.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, 3, 2)
	require.NoError(t, err)
	y, err := ctx.MatMulT(a, a, true, false)
	require.NoError(t, err)
	assert.True(t, y.Shape().Equal(tensor.Shape{2, 2}))
	data, err := y.Float32s()
	require.NoError(t, err)
	// a^T @ a
	assert.Equal(t, []float32{35, 44, 44, 56}, data)
}

func TestSplitAndMultiply(t *testing.T) {
	ctx := newTestContext()
	x, err := ctx.FromFloat32([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5, 2)
	require.NoError(t, err)
	parts, err := ctx.Split(x, 2, 0)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.True(t, parts[2].Shape().Equal(tensor.Shape{1, 2}))

	prod, err := ctx.Multiply(parts[0], parts[2])
	require.NoError(t, err)
	sum, err := ctx.ReduceSum(prod, true, 0)
	require.NoError(t, err)
	require.NoError(t, ctx.EvalAll(sum, parts[1]))

	got, err := sum.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{9 + 27, 20 + 40}, got)
	assert.True(t, sum.Shape().Equal(tensor.Shape{1, 2}))
	middle, err := parts[1].Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 6, 7, 8}, middle)
	assert.Equal(t, int64(2), ctx.Stats().CacheMisses)
}

func TestClearCacheAndReset(t *testing.T) {
	ctx := newTestContext()
	x, err := ctx.Full(-1, 3)
	require.NoError(t, err)
	y, err := ctx.ReLU(x)
	require.NoError(t, err)
	z, err := ctx.ReLU(x)
	require.NoError(t, err)
	require.NoError(t, y.Eval())

	ctx.ClearCache()
	assert.Equal(t, Stats{}, ctx.Stats())
	data, err := y.Float32s()
	require.NoError(t, err, "evaluated tensors keep their data")
	assert.Equal(t, []float32{0, 0, 0}, data)

	ctx.Reset()
	assert.Equal(t, 0, ctx.Store().Len())
	err = z.Eval()
	assert.True(t, errors.Is(err, ErrMissingDependency), "got %v", err)

	// Constants survive a reset.
	w, err := ctx.ReLU(x)
	require.NoError(t, err)
	assert.Equal(t, graph.NodeID(1), w.Producer())
	require.NoError(t, w.Eval())
}

func TestDOT(t *testing.T) {
	ctx := newTestContext()
	a, err := ctx.Ones(2, 2)
	require.NoError(t, err)
	y, err := ctx.MatMul(a, a)
	require.NoError(t, err)
	y, err = ctx.ReLU(y)
	require.NoError(t, err)

	dot, err := ctx.DOT(y)
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "MatMul")
	assert.Contains(t, dot, "ReLU")

	assert.Contains(t, dot, "peripheries=2")

	all, err := ctx.DOT()
	require.NoError(t, err)
	assert.Contains(t, all, "ReLU")
	assert.NotContains(t, all, "peripheries=2")
}

func TestFloat64Graph(t *testing.T) {
	ctx := newTestContext()
	x, err := ctx.FromFloat64([]float64{1, -2, 3, -4}, 2, 2)
	require.NoError(t, err)
	y, err := ctx.ReLU(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float64, y.DType())
	raw, err := y.Raw()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 3, 0}, raw.AsFloat64())
	assert.False(t, math.IsNaN(raw.AsFloat64()[0]))
}

func TestSplitOutputLimit(t *testing.T) {
	ctx := newTestContext()
	const limit = 1 << 16

	data := make([]float32, limit)
	for i := range data {
		data[i] = float32(i)
	}
	x, err := ctx.FromFloat32(data, limit)
	require.NoError(t, err)
	parts, err := ctx.Split(x, 1, 0)
	require.NoError(t, err)
	require.Len(t, parts, limit)
	got, err := parts[limit-1].Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{limit - 1}, got)

	y, err := ctx.Zeros(limit + 1)
	require.NoError(t, err)
	_, err = ctx.Split(y, 1, 0)
	assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
}

func TestRepeatedTapeKeepsStoreStable(t *testing.T) {
	ctx := newTestContext()
	x, err := ctx.Ones(2, 3)
	require.NoError(t, err)
	w, err := ctx.Ones(3, 2)
	require.NoError(t, err)
	b, err := ctx.Ones(2)
	require.NoError(t, err)
	h, err := ctx.MatMul(x, w)
	require.NoError(t, err)
	h, err = ctx.Add(h, b)
	require.NoError(t, err)
	y, err := ctx.ReLU(h)
	require.NoError(t, err)

	for range 3 {
		tp, err := ctx.Tape(y)
		require.NoError(t, err)
		assert.Equal(t, 2, tp.Len())
	}
	require.NoError(t, y.Eval())
	assert.Equal(t, 4, ctx.Store().Len())

	before, err := ctx.DOT()
	require.NoError(t, err)
	_, err = ctx.Tape(y)
	require.NoError(t, err)
	after, err := ctx.DOT()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
