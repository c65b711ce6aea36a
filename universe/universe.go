// Package universe defines the fixed element domain of a containment index
// and the bijections between elements and bit positions.
package universe

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrInvalidUniverse    = errors.New("universe: invalid universe")
	ErrInvalidPermutation = errors.New("universe: invalid permutation")
)

// Universe is the finite domain the indexed element sets are drawn from.
// The order of the elements passed to New is the universe's total order;
// it also defines the canonical bit layout. Immutable after construction.
type Universe[El comparable] struct {
	elems []El
	pos   map[El]uint32
}

func New[El comparable](elems []El) (*Universe[El], error) {
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: no elements", ErrInvalidUniverse)
	}
	u := &Universe[El]{
		elems: append([]El(nil), elems...),
		pos:   make(map[El]uint32, len(elems)),
	}
	for i, e := range u.elems {
		if _, dup := u.pos[e]; dup {
			return nil, fmt.Errorf("%w: duplicate element %v", ErrInvalidUniverse, e)
		}
		u.pos[e] = uint32(i)
	}
	return u, nil
}

func (u *Universe[El]) Size() int { return len(u.elems) }

// Index returns the position of e in the universe order.
func (u *Universe[El]) Index(e El) (uint32, bool) {
	i, ok := u.pos[e]
	return i, ok
}

// At returns the element at position i of the universe order.
func (u *Universe[El]) At(i uint32) El { return u.elems[i] }

// Permutation is a bijection between universe elements and bit positions
// {0..n-1}. Immutable after construction.
type Permutation[El comparable] struct {
	u   *Universe[El]
	fwd []uint32 // fwd[universe index] = bit position
}

// NewPermutation builds a permutation from explicit positions: positions[i]
// is the bit position of the i-th universe element. The positions must
// cover {0..n-1} exactly.
func NewPermutation[El comparable](u *Universe[El], positions []uint32) (*Permutation[El], error) {
	n := u.Size()
	if len(positions) != n {
		return nil, fmt.Errorf("%w: %d positions for %d elements", ErrInvalidPermutation, len(positions), n)
	}
	seen := make([]bool, n)
	for _, p := range positions {
		if int(p) >= n || seen[p] {
			return nil, fmt.Errorf("%w: positions do not cover 0..%d", ErrInvalidPermutation, n-1)
		}
		seen[p] = true
	}
	return &Permutation[El]{u: u, fwd: append([]uint32(nil), positions...)}, nil
}

// Canonical returns the identity permutation: bit position == universe index.
func (u *Universe[El]) Canonical() *Permutation[El] {
	fwd := make([]uint32, u.Size())
	for i := range fwd {
		fwd[i] = uint32(i)
	}
	return &Permutation[El]{u: u, fwd: fwd}
}

// Permutations returns k independent permutations of the universe. The
// first is always the canonical one; the remaining k-1 are pseudo-random
// shuffles driven by seed, so the same seed reproduces the same layout.
func (u *Universe[El]) Permutations(seed int64, k int) ([]*Permutation[El], error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: need at least one permutation, got %d", ErrInvalidPermutation, k)
	}
	perms := make([]*Permutation[El], 0, k)
	perms = append(perms, u.Canonical())
	rnd := rand.New(rand.NewSource(seed))
	for j := 1; j < k; j++ {
		fwd := make([]uint32, u.Size())
		for i := range fwd {
			fwd[i] = uint32(i)
		}
		rnd.Shuffle(len(fwd), func(a, b int) { fwd[a], fwd[b] = fwd[b], fwd[a] })
		perms = append(perms, &Permutation[El]{u: u, fwd: fwd})
	}
	return perms, nil
}

func (p *Permutation[El]) Universe() *Universe[El] { return p.u }

func (p *Permutation[El]) Size() int { return len(p.fwd) }

// BitPos returns the bit position of e under this permutation.
func (p *Permutation[El]) BitPos(e El) (uint32, bool) {
	i, ok := p.u.pos[e]
	if !ok {
		return 0, false
	}
	return p.fwd[i], true
}
