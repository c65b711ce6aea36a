// Package bitvec implements the packed bit vectors a containment index
// stores its set fingerprints in. Two representations are provided: a
// dense word array and a sparse one backed by a roaring bitmap. All
// package operations work across representations, so an index may hold a
// mix of both.
package bitvec

import (
	"encoding/binary"
	"iter"
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"
)

const wordBits = 64

// Key is the content address of a vector. Vectors with the same bits have
// the same key regardless of representation, so a Key can be used as a
// map key for bucketing.
type Key string

// Vector is a fixed-width vector of bits. Implementations are
// permutation-neutral storage: ordering semantics live in Compare, not in
// the vector.
type Vector interface {
	// Width is the number of addressable bits.
	Width() uint32
	Get(i uint32) bool
	PopCount() uint64
	// WordsAsc yields the non-zero 64-bit words, lowest word index first.
	WordsAsc() iter.Seq2[uint32, uint64]
	// WordsDesc yields the non-zero 64-bit words, highest word index first.
	WordsDesc() iter.Seq2[uint32, uint64]
	Key() Key
}

// Mutable is a vector still being built, e.g. by a fingerprint encoder.
type Mutable interface {
	Vector
	Set(i uint32)
}

// Dense is a vector stored as one word per 64 bits of width.
type Dense struct {
	width uint32
	words []uint64
}

func NewDense(width uint32) *Dense {
	return &Dense{width: width, words: make([]uint64, (width+wordBits-1)/wordBits)}
}

func (d *Dense) Width() uint32 { return d.width }

func (d *Dense) Set(i uint32) { d.words[i/wordBits] |= 1 << (i % wordBits) }

func (d *Dense) Get(i uint32) bool { return d.words[i/wordBits]&(1<<(i%wordBits)) != 0 }

func (d *Dense) PopCount() uint64 {
	var n uint64
	for _, w := range d.words {
		n += uint64(bits.OnesCount64(w))
	}
	return n
}

func (d *Dense) WordsAsc() iter.Seq2[uint32, uint64] {
	return func(yield func(uint32, uint64) bool) {
		for i, w := range d.words {
			if w != 0 && !yield(uint32(i), w) {
				return
			}
		}
	}
}

func (d *Dense) WordsDesc() iter.Seq2[uint32, uint64] {
	return func(yield func(uint32, uint64) bool) {
		for i := len(d.words) - 1; i >= 0; i-- {
			if w := d.words[i]; w != 0 && !yield(uint32(i), w) {
				return
			}
		}
	}
}

func (d *Dense) Key() Key { return keyOf(d) }

// Sparse is a vector that stores only its set bits, for wide universes
// with small sets.
type Sparse struct {
	width uint32
	bm    *roaring.Bitmap
}

func NewSparse(width uint32) *Sparse {
	return &Sparse{width: width, bm: roaring.New()}
}

func (s *Sparse) Width() uint32 { return s.width }

func (s *Sparse) Set(i uint32) { s.bm.Add(i) }

func (s *Sparse) Get(i uint32) bool { return s.bm.Contains(i) }

func (s *Sparse) PopCount() uint64 { return s.bm.GetCardinality() }

func (s *Sparse) WordsAsc() iter.Seq2[uint32, uint64] {
	return func(yield func(uint32, uint64) bool) {
		it := s.bm.Iterator()
		if !it.HasNext() {
			return
		}
		b := it.Next()
		word, acc := b/wordBits, uint64(1)<<(b%wordBits)
		for it.HasNext() {
			b = it.Next()
			if w := b / wordBits; w != word {
				if !yield(word, acc) {
					return
				}
				word, acc = w, 0
			}
			acc |= 1 << (b % wordBits)
		}
		yield(word, acc)
	}
}

func (s *Sparse) WordsDesc() iter.Seq2[uint32, uint64] {
	return func(yield func(uint32, uint64) bool) {
		it := s.bm.ReverseIterator()
		if !it.HasNext() {
			return
		}
		b := it.Next()
		word, acc := b/wordBits, uint64(1)<<(b%wordBits)
		for it.HasNext() {
			b = it.Next()
			if w := b / wordBits; w != word {
				if !yield(word, acc) {
					return
				}
				word, acc = w, 0
			}
			acc |= 1 << (b % wordBits)
		}
		yield(word, acc)
	}
}

func (s *Sparse) Key() Key { return keyOf(s) }

func keyOf(v Vector) Key {
	var buf []byte
	for i, w := range v.WordsAsc() {
		var tmp [12]byte
		binary.BigEndian.PutUint32(tmp[:4], i)
		binary.BigEndian.PutUint64(tmp[4:], w)
		buf = append(buf, tmp[:]...)
	}
	return Key(buf)
}

// Subset reports whether every bit set in a is also set in b.
func Subset(a, b Vector) bool {
	next, stop := iter.Pull2(b.WordsAsc())
	defer stop()
	bi, bw, ok := next()
	for ai, aw := range a.WordsAsc() {
		for ok && bi < ai {
			bi, bw, ok = next()
		}
		if !ok || bi != ai || aw&^bw != 0 {
			return false
		}
	}
	return true
}

// Compare orders two vectors by their integer value, where bit 0 is the
// least significant. Adding a bit to a set strictly increases its value,
// so the subset partial order embeds into this total order.
func Compare(a, b Vector) int {
	anext, astop := iter.Pull2(a.WordsDesc())
	defer astop()
	bnext, bstop := iter.Pull2(b.WordsDesc())
	defer bstop()
	for {
		ai, aw, aok := anext()
		bi, bw, bok := bnext()
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return -1
		case !bok:
			return 1
		case ai != bi:
			if ai > bi {
				return 1
			}
			return -1
		case aw != bw:
			if aw > bw {
				return 1
			}
			return -1
		}
	}
}

// Equal reports whether two vectors have the same bits set.
func Equal(a, b Vector) bool { return Compare(a, b) == 0 }
