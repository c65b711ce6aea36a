package index

import (
	"iter"

	"github.com/ledgerwatch/containment/bitvec"
	"github.com/ledgerwatch/containment/iterx"
	"github.com/ledgerwatch/containment/ranktree"
	"github.com/ledgerwatch/containment/universe"
)

type bucket[E comparable] struct {
	fp      bitvec.Vector
	members map[E]struct{}
}

// BitSetIndex answers containment queries with a single ordering of set
// fingerprints. Supersets of a set q can only have fingerprints at or
// above q's in the ordering (bits are only added), so a query narrows the
// ordered set to a candidate range and filters it with the subset bit
// test.
type BitSetIndex[El comparable, E Entry[El]] struct {
	perm    *universe.Permutation[El]
	tree    *ranktree.Tree[treeKey]
	buckets map[bitvec.Key]*bucket[E]
	entries int
}

// NewBitSetIndex builds the index over the canonical ordering of u.
func NewBitSetIndex[El comparable, E Entry[El]](u *universe.Universe[El]) *BitSetIndex[El, E] {
	return NewBitSetIndexPerm[El, E](u.Canonical())
}

// NewBitSetIndexPerm builds the index over an explicit ordering.
func NewBitSetIndexPerm[El comparable, E Entry[El]](p *universe.Permutation[El]) *BitSetIndex[El, E] {
	return &BitSetIndex[El, E]{
		perm:    p,
		tree:    ranktree.New(compareTreeKeys),
		buckets: make(map[bitvec.Key]*bucket[E]),
	}
}

func (x *BitSetIndex[El, E]) Add(e E) error {
	fp, err := Fingerprint(x.perm, e.Elements())
	if err != nil {
		return err
	}
	k := fp.Key()
	b := x.buckets[k]
	if b == nil {
		b = &bucket[E]{fp: fp, members: make(map[E]struct{})}
		x.buckets[k] = b
		x.tree.Add(treeKey{fp: fp, key: k})
	}
	if _, ok := b.members[e]; ok {
		return nil
	}
	b.members[e] = struct{}{}
	x.entries++
	return nil
}

func (x *BitSetIndex[El, E]) Remove(e E) error {
	fp, err := Fingerprint(x.perm, e.Elements())
	if err != nil {
		return err
	}
	k := fp.Key()
	b := x.buckets[k]
	if b == nil {
		return nil
	}
	if _, ok := b.members[e]; !ok {
		return nil
	}
	delete(b.members, e)
	x.entries--
	if len(b.members) == 0 {
		delete(x.buckets, k)
		x.tree.Remove(treeKey{fp: b.fp, key: k})
	}
	return nil
}

func (x *BitSetIndex[El, E]) Contains(e E) (bool, error) {
	fp, err := Fingerprint(x.perm, e.Elements())
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

// subsetKeys yields the buckets in the candidate range (-inf, q] whose
// fingerprints pass the subset test.
func (x *BitSetIndex[El, E]) subsetKeys(qv bitvec.Vector) iter.Seq[treeKey] {
	cands := x.tree.DescendLE(treeKey{fp: qv, key: qv.Key()})
	return iterx.Filter(cands, func(k treeKey) bool { return bitvec.Subset(k.fp, qv) })
}

// supersetKeys yields the buckets in the candidate range [q, +inf) whose
// fingerprints pass the superset test.
func (x *BitSetIndex[El, E]) supersetKeys(qv bitvec.Vector) iter.Seq[treeKey] {
	cands := x.tree.AscendGE(treeKey{fp: qv, key: qv.Key()})
	return iterx.Filter(cands, func(k treeKey) bool { return bitvec.Subset(qv, k.fp) })
}

func (x *BitSetIndex[El, E]) bucketEntries(k bitvec.Key) iter.Seq[E] {
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

func (x *BitSetIndex[El, E]) Subsets(q E) (iter.Seq[E], error) {
	qv, err := Fingerprint(x.perm, q.Elements())
	if err != nil {
		return nil, err
	}
	return iterx.Nested(x.subsetKeys(qv), func(k treeKey) iter.Seq[E] { return x.bucketEntries(k.key) }), nil
}

func (x *BitSetIndex[El, E]) Supersets(q E) (iter.Seq[E], error) {
	qv, err := Fingerprint(x.perm, q.Elements())
	if err != nil {
		return nil, err
	}
	return iterx.Nested(x.supersetKeys(qv), func(k treeKey) iter.Seq[E] { return x.bucketEntries(k.key) }), nil
}

func (x *BitSetIndex[El, E]) NumSubsets(q E) (int, error) {
	qv, err := Fingerprint(x.perm, q.Elements())
	if err != nil {
		return 0, err
	}
	n := 0
	for k := range x.subsetKeys(qv) {
		n += len(x.buckets[k.key].members)
	}
	return n, nil
}

func (x *BitSetIndex[El, E]) NumSupersets(q E) (int, error) {
	qv, err := Fingerprint(x.perm, q.Elements())
	if err != nil {
		return 0, err
	}
	n := 0
	for k := range x.supersetKeys(qv) {
		n += len(x.buckets[k.key].members)
	}
	return n, nil
}

func (x *BitSetIndex[El, E]) All() iter.Seq[E] {
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

func (x *BitSetIndex[El, E]) Size() int { return x.entries }
