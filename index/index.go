// Package index implements in-memory set containment indices: structures
// that map cache entries carrying element sets to the entries whose sets
// are subsets or supersets of a query's set.
//
// Three backends share one contract: BitSetIndex (a single ordering of
// set fingerprints), MultiIndex (several orderings and a per-query
// planner), and TrieIndex (a prefix tree over sorted element paths).
// Buffered layers concurrent readers and batched writes over any of them.
package index

import (
	"errors"
	"fmt"
	"iter"

	"github.com/ledgerwatch/containment/bitvec"
	"github.com/ledgerwatch/containment/universe"
)

var (
	// ErrInvalidElement - an entry or query carries an element outside the universe.
	ErrInvalidElement = errors.New("index: element not in universe")
	// ErrInvalidConfig - index construction parameters are unusable.
	ErrInvalidConfig = errors.New("index: invalid configuration")
	// ErrTooLargeEntry - the entry's element set exceeds a backend's limit.
	ErrTooLargeEntry = errors.New("index: entry exceeds element limit")
)

// Entry constrains the values an index holds. Bucketing is by the entry's
// own equality: two unequal entries with the same element set are both
// kept and both returned. The element set must not change while the entry
// is indexed; fingerprints are computed at insertion and never refreshed.
type Entry[El comparable] interface {
	comparable
	Elements() []El
}

// Index is the containment-query contract shared by every backend.
//
// Size counts entries, not distinct element sets, and always agrees with
// All. Query sequences are lazy and duplicate-free, in unspecified order;
// a present query entry appears in both its own Subsets and Supersets.
//
// Raw implementations have no internal synchronisation: callers must
// serialise all operations, and must not mutate the index while a query
// sequence is being consumed. Wrap in Buffered for concurrent use.
type Index[El comparable, E Entry[El]] interface {
	// Add inserts e. Adding an equal entry again is a no-op.
	Add(e E) error
	// Remove deletes the entry equal to e; absent entries are not an error.
	Remove(e E) error
	Contains(e E) (bool, error)
	// Subsets yields every entry whose element set is a subset of q's.
	Subsets(q E) (iter.Seq[E], error)
	// Supersets yields every entry whose element set is a superset of q's.
	Supersets(q E) (iter.Seq[E], error)
	NumSubsets(q E) (int, error)
	NumSupersets(q E) (int, error)
	// All yields every entry exactly once.
	All() iter.Seq[E]
	Size() int
}

// Vectors over wide universes with few set bits go to the sparse
// representation; everything else stays dense.
const sparseWidthCutover = 4096

// Fingerprint encodes an element set as a packed bit vector under the
// given permutation: bit BitPos(e) is set for every element e.
func Fingerprint[El comparable](p *universe.Permutation[El], elems []El) (bitvec.Vector, error) {
	width := uint32(p.Size())
	var v bitvec.Mutable
	if width >= sparseWidthCutover && uint64(len(elems))*64 < uint64(width) {
		v = bitvec.NewSparse(width)
	} else {
		v = bitvec.NewDense(width)
	}
	for _, e := range elems {
		i, ok := p.BitPos(e)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidElement, e)
		}
		v.Set(i)
	}
	return v, nil
}

// treeKey is what the ordered fingerprint sets hold: the fingerprint in
// the tree's own encoding plus the content key of the bucket it belongs
// to.
type treeKey struct {
	fp  bitvec.Vector
	key bitvec.Key
}

func compareTreeKeys(a, b treeKey) int { return bitvec.Compare(a.fp, b.fp) }
