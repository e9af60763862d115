// Command lazytape builds a small MLP as a lazy graph, prints the optimized
// tape, evaluates it and reports the evaluation statistics.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"k8s.io/klog/v2"

	"github.com/born-ml/lazytape/lazy"
)

var (
	flagConfig  = flag.String("config", "", "YAML configuration file. Defaults are used if empty.")
	flagBatch   = flag.Int("batch", 4, "Number of rows fed to the MLP.")
	flagSize    = flag.Int("size", 8, "Input and hidden width of the MLP.")
	flagFusion  = flag.Bool("fusion", true, "Fuse MatMul followed by Add into one operation. Also requires fusion in the config.")
	flagDOT     = flag.String("dot", "", "Write the graph in Graphviz DOT format to this file.")
	flagMetrics = flag.Bool("metrics", false, "Print the evaluation metrics in Prometheus text format.")
	flagSeed    = flag.Int64("seed", 42, "Seed for the random inputs and weights.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg := lazy.DefaultConfig()
	if *flagConfig != "" {
		cfg = must.M1(lazy.LoadConfig(*flagConfig))
	}
	verbositySet := false
	flag.Visit(func(f *flag.Flag) { verbositySet = verbositySet || f.Name == "v" })
	if cfg.LogVerbosity > 0 && !verbositySet {
		must.M(flag.Set("v", strconv.Itoa(cfg.LogVerbosity)))
	}
	cfg = cfg.Apply(lazy.WithFusion(cfg.Fusion && *flagFusion))

	ctx := lazy.NewWithConfig(cfg)
	err := exceptions.TryCatch[error](func() { run(ctx) })
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

// run evaluates relu(x @ w1 + b1) @ w2 + b2.
func run(ctx *lazy.Context) {
	rng := rand.New(rand.NewSource(*flagSeed))
	batch, size := *flagBatch, *flagSize
	x := must.M1(ctx.Rand(rng, batch, size))
	w1 := must.M1(ctx.Rand(rng, size, size))
	b1 := must.M1(ctx.Full(0.1, size))
	w2 := must.M1(ctx.Rand(rng, size, 2))
	b2 := must.M1(ctx.Full(-0.5, 2))

	h := must.M1(ctx.Add(must.M1(ctx.MatMul(x, w1)), b1))
	h = must.M1(ctx.ReLU(h))
	y := must.M1(ctx.Add(must.M1(ctx.MatMul(h, w2)), b2))
	fmt.Printf("Graph: %d nodes, nothing computed yet.\n\n", ctx.Store().Len())

	fmt.Println(must.M1(ctx.Tape(y)))

	data := must.M1(y.Float32s())
	fmt.Printf("Output %v:\n", y.Shape())
	for row := range batch {
		fmt.Printf("  %v\n", data[row*2:row*2+2])
	}
	// Served from the tensor itself; counted as a cache hit.
	must.M(y.Eval())

	stats := ctx.Stats()
	fmt.Printf("\nStats: %s\n", stats)
	fmt.Printf("Results memory: %s\n", humanize.IBytes(uint64(stats.MemoryAllocated)))

	if *flagDOT != "" {
		dot := must.M1(ctx.DOT(y))
		must.M(os.WriteFile(*flagDOT, []byte(dot), 0o644))
		fmt.Printf("Graph written to %s\n", *flagDOT)
	}

	if *flagMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(ctx.Manager().Collector())
		fmt.Println()
		for _, mf := range must.M1(reg.Gather()) {
			must.M1(expfmt.MetricFamilyToText(os.Stdout, mf))
		}
	}
}
