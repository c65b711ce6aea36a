package index

import (
	"fmt"
	"iter"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ledgerwatch/containment/bitvec"
	"github.com/ledgerwatch/containment/iterx"
	"github.com/ledgerwatch/containment/ranktree"
	"github.com/ledgerwatch/containment/universe"
)

// planCacheSize bounds the memoized planner decisions.
const planCacheSize = 1024

type planKey struct {
	fp        bitvec.Key
	supersets bool
}

type multiBucket[E comparable] struct {
	fps     []bitvec.Vector // one fingerprint per permutation; fps[0] is canonical
	members map[E]struct{}
}

// MultiIndex keeps one ordered fingerprint set per permutation over a
// shared bucket map. A query is answered through the permutation whose
// candidate range is smallest: orderings that happen to scatter the
// query's bits low (for subsets) or high (for supersets) cut the range
// dramatically, and with several independent orderings at least one
// usually does.
//
// Each permutation stores fingerprints in its own encoding, so range
// comparison and the subset filter never remap bit positions.
type MultiIndex[El comparable, E Entry[El]] struct {
	perms   []*universe.Permutation[El]
	trees   []*ranktree.Tree[treeKey]
	buckets map[bitvec.Key]*multiBucket[E]
	entries int

	// plans memoizes the permutation chosen for a fingerprint; purged
	// whenever the orderings change. A stale choice would still be
	// correct, just not minimal.
	plans *lru.Cache[planKey, int]
}

// NewMultiIndex builds the index over k permutations sharing one
// universe. perms[0] is the canonical ordering that keys the buckets.
func NewMultiIndex[El comparable, E Entry[El]](perms []*universe.Permutation[El]) (*MultiIndex[El, E], error) {
	if len(perms) == 0 {
		return nil, fmt.Errorf("%w: no permutations", ErrInvalidConfig)
	}
	u := perms[0].Universe()
	for _, p := range perms[1:] {
		if p.Universe() != u {
			return nil, fmt.Errorf("%w: permutations disagree on the universe", ErrInvalidConfig)
		}
	}
	trees := make([]*ranktree.Tree[treeKey], len(perms))
	for j := range trees {
		trees[j] = ranktree.New(compareTreeKeys)
	}
	plans, err := lru.New[planKey, int](planCacheSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &MultiIndex[El, E]{
		perms:   perms,
		trees:   trees,
		buckets: make(map[bitvec.Key]*multiBucket[E]),
		plans:   plans,
	}, nil
}

func (x *MultiIndex[El, E]) fingerprints(elems []El) ([]bitvec.Vector, error) {
	fps := make([]bitvec.Vector, len(x.perms))
	for j, p := range x.perms {
		fp, err := Fingerprint(p, elems)
		if err != nil {
			return nil, err
		}
		fps[j] = fp
	}
	return fps, nil
}

func (x *MultiIndex[El, E]) Add(e E) error {
	fps, err := x.fingerprints(e.Elements())
	if err != nil {
		return err
	}
	canon := fps[0].Key()
	b := x.buckets[canon]
	if b == nil {
		b = &multiBucket[E]{fps: fps, members: make(map[E]struct{})}
		x.buckets[canon] = b
		for j, tr := range x.trees {
			tr.Add(treeKey{fp: fps[j], key: canon})
		}
		x.plans.Purge()
	}
	if _, ok := b.members[e]; ok {
		return nil
	}
	b.members[e] = struct{}{}
	x.entries++
	return nil
}

func (x *MultiIndex[El, E]) Remove(e E) error {
	fp, err := Fingerprint(x.perms[0], e.Elements())
	if err != nil {
		return err
	}
	canon := fp.Key()
	b := x.buckets[canon]
	if b == nil {
		return nil
	}
	if _, ok := b.members[e]; !ok {
		return nil
	}
	delete(b.members, e)
	x.entries--
	if len(b.members) == 0 {
		delete(x.buckets, canon)
		for j, tr := range x.trees {
			tr.Remove(treeKey{fp: b.fps[j], key: canon})
		}
		x.plans.Purge()
	}
	return nil
}

func (x *MultiIndex[El, E]) Contains(e E) (bool, error) {
	fp, err := Fingerprint(x.perms[0], e.Elements())
	if err != nil {
		return false, err
	}
	b := x.buckets[fp.Key()]
	if b == nil {
		return false, nil
	}
	_, ok := b.members[e]
	return ok, nil
}

// plan picks the permutation with the tightest candidate range for the
// query fingerprints, ties broken by permutation index.
func (x *MultiIndex[El, E]) plan(fps []bitvec.Vector, canon bitvec.Key, supersets bool) int {
	pk := planKey{fp: canon, supersets: supersets}
	if j, ok := x.plans.Get(pk); ok {
		return j
	}
	best, bestCount := 0, -1
	for j, tr := range x.trees {
		k := treeKey{fp: fps[j], key: canon}
		var c int
		if supersets {
			c = tr.CountGE(k)
		} else {
			c = tr.CountLE(k)
		}
		if bestCount < 0 || c < bestCount {
			best, bestCount = j, c
		}
	}
	x.plans.Add(pk, best)
	return best
}

func (x *MultiIndex[El, E]) subsetKeys(fps []bitvec.Vector, canon bitvec.Key) iter.Seq[treeKey] {
	j := x.plan(fps, canon, false)
	cands := x.trees[j].DescendLE(treeKey{fp: fps[j], key: canon})
	return iterx.Filter(cands, func(k treeKey) bool { return bitvec.Subset(k.fp, fps[j]) })
}

func (x *MultiIndex[El, E]) supersetKeys(fps []bitvec.Vector, canon bitvec.Key) iter.Seq[treeKey] {
	j := x.plan(fps, canon, true)
	cands := x.trees[j].AscendGE(treeKey{fp: fps[j], key: canon})
	return iterx.Filter(cands, func(k treeKey) bool { return bitvec.Subset(fps[j], k.fp) })
}

func (x *MultiIndex[El, E]) bucketEntries(k bitvec.Key) iter.Seq[E] {
	return func(yield func(E) bool) {
		b := x.buckets[k]
		if b == nil {
			return
		}
		for e := range b.members {
			if !yield(e) {
				return
			}
		}
	}
}

func (x *MultiIndex[El, E]) Subsets(q E) (iter.Seq[E], error) {
	fps, err := x.fingerprints(q.Elements())
	if err != nil {
		return nil, err
	}
	keys := x.subsetKeys(fps, fps[0].Key())
	return iterx.Nested(keys, func(k treeKey) iter.Seq[E] { return x.bucketEntries(k.key) }), nil
}

func (x *MultiIndex[El, E]) Supersets(q E) (iter.Seq[E], error) {
	fps, err := x.fingerprints(q.Elements())
	if err != nil {
		return nil, err
	}
	keys := x.supersetKeys(fps, fps[0].Key())
	return iterx.Nested(keys, func(k treeKey) iter.Seq[E] { return x.bucketEntries(k.key) }), nil
}

func (x *MultiIndex[El, E]) NumSubsets(q E) (int, error) {
	fps, err := x.fingerprints(q.Elements())
	if err != nil {
		return 0, err
	}
	n := 0
	for k := range x.subsetKeys(fps, fps[0].Key()) {
		n += len(x.buckets[k.key].members)
	}
	return n, nil
}

func (x *MultiIndex[El, E]) NumSupersets(q E) (int, error) {
	fps, err := x.fingerprints(q.Elements())
	if err != nil {
		return 0, err
	}
	n := 0
	for k := range x.supersetKeys(fps, fps[0].Key()) {
		n += len(x.buckets[k.key].members)
	}
	return n, nil
}

func (x *MultiIndex[El, E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, b := range x.buckets {
			for e := range b.members {
				if !yield(e) {
					return
				}
			}
		}
	}
}

func (x *MultiIndex[El, E]) Size() int { return x.entries }
