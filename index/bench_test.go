package index

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/ledgerwatch/containment/universe"
)

func benchEntries(n, universeSize, maxSet int, seed int64) []entry {
	rnd := rand.New(rand.NewSource(seed))
	out := make([]entry, n)
	for i := range out {
		size := rnd.Intn(maxSet + 1)
		seen := make(map[int]bool, size)
		elems := make([]int, 0, size)
		for len(elems) < size {
			e := rnd.Intn(universeSize)
			if !seen[e] {
				seen[e] = true
				elems = append(elems, e)
			}
		}
		out[i] = ent("p"+strconv.Itoa(i), elems...)
	}
	return out
}

func benchBackends(b *testing.B, universeSize int) map[string]Index[int, entry] {
	b.Helper()
	elems := make([]int, universeSize)
	for i := range elems {
		elems[i] = i
	}
	u, err := universe.New(elems)
	if err != nil {
		b.Fatal(err)
	}
	perms, err := u.Permutations(1, 3)
	if err != nil {
		b.Fatal(err)
	}
	multi, err := NewMultiIndex[int, entry](perms)
	if err != nil {
		b.Fatal(err)
	}
	return map[string]Index[int, entry]{
		"bitset": NewBitSetIndex[int, entry](u),
		"multi":  multi,
		"trie":   NewTrieIndex[int, entry](u),
	}
}

func BenchmarkAdd(b *testing.B) {
	entries := benchEntries(4096, 300, 12, 7)
	for name, x := range benchBackends(b, 300) {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if err := x.Add(entries[i%len(entries)]); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkNumSupersets(b *testing.B) {
	entries := benchEntries(4096, 300, 12, 7)
	queries := benchEntries(256, 300, 4, 8)
	for name, x := range benchBackends(b, 300) {
		for _, e := range entries {
			if err := x.Add(e); err != nil {
				b.Fatal(err)
			}
		}
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := x.NumSupersets(queries[i%len(queries)]); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSubsetsIterate(b *testing.B) {
	entries := benchEntries(4096, 300, 12, 7)
	queries := benchEntries(256, 300, 16, 9)
	for name, x := range benchBackends(b, 300) {
		for _, e := range entries {
			if err := x.Add(e); err != nil {
				b.Fatal(err)
			}
		}
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				seq, err := x.Subsets(queries[i%len(queries)])
				if err != nil {
					b.Fatal(err)
				}
				for range seq {
				}
			}
		})
	}
}
