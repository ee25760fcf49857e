package amplifier

import (
	"context"
	"runtime"
	"sync"

	"github.com/fortiblox/intcode/pkg/intcode"
	"golang.org/x/sync/errgroup"
)

// Result is the best phase setting found by a search.
type Result struct {
	Signal int64
	Phases []int64
}

// SearchConfig configures MaxSignal.
type SearchConfig struct {
	// Workers bounds the number of circuits evaluated concurrently.
	// Zero means GOMAXPROCS.
	Workers int

	// Machine configures every amplifier.
	Machine intcode.Options
}

// DefaultSearchConfig returns the default search configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Workers: 0,
		Machine: intcode.DefaultOptions(),
	}
}

// MaxSignal tries every ordering of phases and returns the one producing the
// highest final signal. Each ordering gets its own fresh circuit, so
// orderings are evaluated in parallel. Ties go to the ordering generated
// first, which keeps the result deterministic.
func MaxSignal(ctx context.Context, program []int64, phases []int64, mode Mode, cfg SearchConfig) (Result, error) {
	if len(phases) == 0 {
		return Result{}, ErrNoAmplifiers
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	perms := Permutations(phases)

	var (
		mu      sync.Mutex
		best    Result
		bestIdx = -1
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, perm := range perms {
		i, perm := i, perm
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			signal, err := run(program, perm, mode, cfg.Machine)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if bestIdx < 0 || signal > best.Signal || (signal == best.Signal && i < bestIdx) {
				best = Result{Signal: signal, Phases: perm}
				bestIdx = i
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	log.Infof("%s search over %d orderings: best %d with %v", mode, len(perms), best.Signal, best.Phases)
	return best, nil
}

// Permutations returns every ordering of values in lexicographic order of
// positions. The input slice is not modified.
func Permutations(values []int64) [][]int64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	var out [][]int64
	for {
		perm := make([]int64, n)
		for i, j := range idx {
			perm[i] = values[j]
		}
		out = append(out, perm)

		if !nextPermutation(idx) {
			return out
		}
	}
}

// nextPermutation advances idx to the next lexicographic ordering.
func nextPermutation(idx []int) bool {
	i := len(idx) - 2
	for i >= 0 && idx[i] >= idx[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(idx) - 1
	for idx[j] <= idx[i] {
		j--
	}
	idx[i], idx[j] = idx[j], idx[i]
	for l, r := i+1, len(idx)-1; l < r; l, r = l+1, r-1 {
		idx[l], idx[r] = idx[r], idx[l]
	}
	return true
}
