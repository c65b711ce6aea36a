// containment is a workload driver for the containment indices: it loads
// random element sets through the buffered wrapper while readers issue
// containment queries, then reports what it measured.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerwatch/containment/index"
	"github.com/ledgerwatch/containment/universe"
)

var (
	universeSize int
	permutations int
	numEntries   int
	numQueries   int
	readers      int
	maxSetSize   int
	seed         int64
	backend      string
	verbose      bool
)

func init() {
	benchCmd.Flags().IntVar(&universeSize, "universe", 300, "number of elements in the universe")
	benchCmd.Flags().IntVar(&permutations, "permutations", 3, "orderings kept by the multi backend")
	benchCmd.Flags().IntVar(&numEntries, "entries", 10000, "entries to load")
	benchCmd.Flags().IntVar(&numQueries, "queries", 2000, "queries per reader")
	benchCmd.Flags().IntVar(&readers, "readers", 8, "concurrent readers")
	benchCmd.Flags().IntVar(&maxSetSize, "setsize", 12, "maximum elements per entry")
	benchCmd.Flags().Int64Var(&seed, "seed", 42, "workload seed")
	benchCmd.Flags().StringVar(&backend, "backend", "multi", "index backend: multi, simple or trie")
	benchCmd.Flags().BoolVar(&verbose, "verbose", false, "log flush activity")
	rootCmd.AddCommand(benchCmd)
}

var rootCmd = &cobra.Command{
	Use:   "containment",
	Short: "Set containment index workload driver",
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load a random workload and measure query throughput",
	RunE: func(cmd *cobra.Command, args []string) error {
		return bench()
	},
}

// problem is a bench entry: an id plus a comma-joined element list, so
// distinct problems over the same set still bucket together.
type problem struct {
	id    int
	elems string
}

func (p problem) Elements() []int {
	if p.elems == "" {
		return nil
	}
	parts := strings.Split(p.elems, ",")
	out := make([]int, len(parts))
	for i, s := range parts {
		out[i], _ = strconv.Atoi(s)
	}
	return out
}

func randomProblem(rnd *rand.Rand, id int) problem {
	n := rnd.Intn(maxSetSize + 1)
	seen := make(map[int]struct{}, n)
	elems := make([]string, 0, n)
	for len(elems) < n {
		e := rnd.Intn(universeSize)
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		elems = append(elems, strconv.Itoa(e))
	}
	return problem{id: id, elems: strings.Join(elems, ",")}
}

func newBackend(u *universe.Universe[int]) (index.Index[int, problem], error) {
	switch backend {
	case "simple":
		return index.NewBitSetIndex[int, problem](u), nil
	case "trie":
		return index.NewTrieIndex[int, problem](u), nil
	case "multi":
		perms, err := u.Permutations(seed, permutations)
		if err != nil {
			return nil, err
		}
		return index.NewMultiIndex[int, problem](perms)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func bench() error {
	logger := zap.NewNop()
	if verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return err
		}
	}

	elems := make([]int, universeSize)
	for i := range elems {
		elems[i] = i
	}
	u, err := universe.New(elems)
	if err != nil {
		return err
	}
	inner, err := newBackend(u)
	if err != nil {
		return err
	}
	idx := index.NewBuffered(inner, index.BufferedConfig{Logger: logger})
	defer idx.Close()

	problems := make([]problem, numEntries)
	rnd := rand.New(rand.NewSource(seed))
	for i := range problems {
		problems[i] = randomProblem(rnd, i)
	}

	start := time.Now()
	var g errgroup.Group
	g.Go(func() error {
		for _, p := range problems {
			if err := idx.Add(p); err != nil {
				return err
			}
		}
		return nil
	})
	resultCh := make(chan [2]int, readers) // per reader: queries run, entries seen
	for r := 0; r < readers; r++ {
		r := r
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(seed + int64(r) + 1))
			seen := 0
			for q := 0; q < numQueries; q++ {
				p := problems[rnd.Intn(len(problems))]
				if q%2 == 0 {
					n, err := idx.NumSupersets(p)
					if err != nil {
						return err
					}
					seen += n
				} else {
					seq, err := idx.Subsets(p)
					if err != nil {
						return err
					}
					for range seq {
						seen++
					}
				}
			}
			resultCh <- [2]int{numQueries, seen}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	close(resultCh)
	elapsed := time.Since(start)

	totalQueries, totalSeen := 0, 0
	for r := range resultCh {
		totalQueries += r[0]
		totalSeen += r[1]
	}

	fmt.Printf("%s backend=%s universe=%d permutations=%d\n",
		aurora.Bold("containment bench"), aurora.Cyan(backend), universeSize, permutations)
	fmt.Printf("loaded   %s entries (size now %s)\n",
		aurora.Green(numEntries), aurora.Green(idx.Size()))
	fmt.Printf("ran      %s queries, %s entries yielded\n",
		aurora.Green(totalQueries), aurora.Green(totalSeen))
	fmt.Printf("elapsed  %s (%.0f queries/s)\n",
		aurora.Yellow(elapsed.Round(time.Millisecond)), float64(totalQueries)/elapsed.Seconds())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
