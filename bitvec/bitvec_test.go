package bitvec

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// both builds the same bit set in each representation.
func both(width uint32, bits ...uint32) (*Dense, *Sparse) {
	d, s := NewDense(width), NewSparse(width)
	for _, b := range bits {
		d.Set(b)
		s.Set(b)
	}
	return d, s
}

func asBigInt(v Vector) *big.Int {
	n := new(big.Int)
	for i := uint32(0); i < v.Width(); i++ {
		if v.Get(i) {
			n.SetBit(n, int(i), 1)
		}
	}
	return n
}

func TestSetGetPopCount(t *testing.T) {
	d, s := both(200, 0, 63, 64, 127, 128, 199)
	for _, v := range []Vector{d, s} {
		require.Equal(t, uint64(6), v.PopCount())
		require.True(t, v.Get(63))
		require.True(t, v.Get(64))
		require.False(t, v.Get(65))
		require.Equal(t, uint32(200), v.Width())
	}
}

func TestKeyAgreesAcrossRepresentations(t *testing.T) {
	d, s := both(300, 1, 70, 150, 299)
	require.Equal(t, d.Key(), s.Key())

	d2, s2 := both(300, 1, 70, 150)
	require.NotEqual(t, d.Key(), d2.Key())
	require.Equal(t, d2.Key(), s2.Key())

	de, se := both(300)
	require.Equal(t, de.Key(), se.Key())
	require.Equal(t, Key(""), de.Key())
}

func TestCompareSmall(t *testing.T) {
	a, _ := both(10, 0)    // 1
	b, _ := both(10, 1)    // 2
	c, _ := both(10, 0, 1) // 3
	require.Equal(t, -1, Compare(a, b))
	require.Equal(t, -1, Compare(b, c))
	require.Equal(t, 1, Compare(c, a))
	require.Equal(t, 0, Compare(a, a))

	empty, _ := both(10)
	require.Equal(t, -1, Compare(empty, a))
	require.Equal(t, 1, Compare(a, empty))
	require.True(t, Equal(empty, empty))
}

func TestSubsetSmall(t *testing.T) {
	a, _ := both(130, 5, 100)
	b, _ := both(130, 5, 64, 100, 129)
	empty, _ := both(130)
	require.True(t, Subset(a, b))
	require.False(t, Subset(b, a))
	require.True(t, Subset(a, a))
	require.True(t, Subset(empty, a))
	require.True(t, Subset(empty, empty))
	require.False(t, Subset(a, empty))

	// Disjoint words: a has a word b lacks entirely.
	c, _ := both(130, 5)
	d, _ := both(130, 100)
	require.False(t, Subset(c, d))
	require.False(t, Subset(d, c))
}

func TestRandomizedAgainstBigIntOracle(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	const width = 450
	for trial := 0; trial < 500; trial++ {
		na, nb := rnd.Intn(20), rnd.Intn(20)
		abits := make([]uint32, 0, na)
		bbits := make([]uint32, 0, nb)
		for i := 0; i < na; i++ {
			abits = append(abits, uint32(rnd.Intn(width)))
		}
		for i := 0; i < nb; i++ {
			bbits = append(bbits, uint32(rnd.Intn(width)))
		}
		ad, as := both(width, abits...)
		bd, bs := both(width, bbits...)

		wantCmp := asBigInt(ad).Cmp(asBigInt(bd))
		wantSub := new(big.Int).AndNot(asBigInt(ad), asBigInt(bd)).Sign() == 0

		// Every representation pairing must agree with the oracle.
		for _, a := range []Vector{ad, as} {
			for _, b := range []Vector{bd, bs} {
				require.Equal(t, wantCmp, Compare(a, b), "trial %d", trial)
				require.Equal(t, wantSub, Subset(a, b), "trial %d", trial)
			}
		}
		require.Equal(t, ad.Key(), as.Key())
	}
}
