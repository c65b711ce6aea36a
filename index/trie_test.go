package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrieRejectsOversizedEntry(t *testing.T) {
	u := intUniverse(t, MaxTrieEntryElements+10)
	x := NewTrieIndex[int, entry](u)

	big := make([]int, MaxTrieEntryElements+1)
	for i := range big {
		big[i] = i
	}
	require.ErrorIs(t, x.Add(ent("big", big...)), ErrTooLargeEntry)
	require.Equal(t, 0, x.Size())

	require.NoError(t, x.Add(ent("max", big[:MaxTrieEntryElements]...)))
	require.Equal(t, 1, x.Size())
}

func TestTriePrunesEmptyNodes(t *testing.T) {
	u := intUniverse(t, 16)
	x := NewTrieIndex[int, entry](u)

	deep := ent("deep", 1, 2, 3)
	shallow := ent("shallow", 1)
	require.NoError(t, x.Add(deep))
	require.NoError(t, x.Add(shallow))

	// Removing the deep entry prunes its tail but keeps the shared prefix.
	require.NoError(t, x.Remove(deep))
	one := x.root.children[1]
	require.NotNil(t, one)
	require.Empty(t, one.children)
	require.Len(t, one.members, 1)

	require.NoError(t, x.Remove(shallow))
	require.Empty(t, x.root.children)
	require.Equal(t, 0, x.Size())
}

func TestTriePathIsSortedAndDeduplicated(t *testing.T) {
	u := intUniverse(t, 16)
	x := NewTrieIndex[int, entry](u)

	// The same set written in a different order and with repeats lands in
	// the same node.
	require.NoError(t, x.Add(entry{id: "a", elems: "3,1,2"}))
	require.NoError(t, x.Add(entry{id: "b", elems: "2,2,1,3"}))
	require.Equal(t, 2, x.Size())
	require.ElementsMatch(t,
		[]entry{{id: "a", elems: "3,1,2"}, {id: "b", elems: "2,2,1,3"}},
		supersetsOf(t, x, ent("q", 1, 2, 3)))
}

func TestTrieSupersetsDoNotOvershoot(t *testing.T) {
	u := intUniverse(t, 16)
	x := NewTrieIndex[int, entry](u)

	// {2} sits below {1,2}'s needed element 1 in no path: the child 2 at
	// the root is above 1, so it can never complete a superset of {1,2}.
	require.NoError(t, x.Add(ent("two", 2)))
	require.NoError(t, x.Add(ent("both", 1, 2)))
	require.NoError(t, x.Add(ent("filler", 0, 1, 2, 5)))

	require.ElementsMatch(t,
		[]entry{ent("both", 1, 2), ent("filler", 0, 1, 2, 5)},
		supersetsOf(t, x, ent("q", 1, 2)))
	require.ElementsMatch(t,
		[]entry{ent("two", 2), ent("both", 1, 2), ent("filler", 0, 1, 2, 5)},
		supersetsOf(t, x, ent("q", 2)))
}
