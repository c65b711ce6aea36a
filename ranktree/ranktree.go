// Package ranktree implements an order-statistic set: a red-black tree
// whose nodes carry subtree sizes, giving exact rank counts in O(log n)
// next to the usual ordered iteration.
package ranktree

import "iter"

type color uint8

const (
	black color = iota
	red
)

type node[K any] struct {
	key                 K
	parent, left, right *node[K]
	col                 color
	size                int // nodes in the subtree rooted here, including self
}

// Tree is a set of keys ordered by a three-way comparator. Not safe for
// concurrent use.
type Tree[K any] struct {
	cmp  func(a, b K) int
	null *node[K] // shared sentinel leaf, black, size 0
	root *node[K]
	len  int
}

func New[K any](cmp func(a, b K) int) *Tree[K] {
	t := &Tree[K]{cmp: cmp}
	t.null = &node[K]{col: black}
	t.null.parent, t.null.left, t.null.right = t.null, t.null, t.null
	t.root = t.null
	return t
}

func (t *Tree[K]) Len() int { return t.len }

func (t *Tree[K]) IsEmpty() bool { return t.len == 0 }

func (t *Tree[K]) Has(k K) bool { return t.lookup(k) != t.null }

func (t *Tree[K]) lookup(k K) *node[K] {
	x := t.root
	for x != t.null {
		c := t.cmp(k, x.key)
		if c == 0 {
			return x
		}
		if c < 0 {
			x = x.left
		} else {
			x = x.right
		}
	}
	return t.null
}

// Add inserts k and reports whether it was absent.
func (t *Tree[K]) Add(k K) bool {
	y := t.null
	x := t.root
	for x != t.null {
		y = x
		c := t.cmp(k, x.key)
		if c == 0 {
			return false
		}
		if c < 0 {
			x = x.left
		} else {
			x = x.right
		}
	}
	z := &node[K]{key: k, parent: y, left: t.null, right: t.null, col: red, size: 1}
	if y == t.null {
		t.root = z
	} else if t.cmp(k, y.key) < 0 {
		y.left = z
	} else {
		y.right = z
	}
	for p := y; p != t.null; p = p.parent {
		p.size++
	}
	t.insertFixup(z)
	t.len++
	return true
}

// Remove deletes k and reports whether it was present.
func (t *Tree[K]) Remove(k K) bool {
	z := t.lookup(k)
	if z == t.null {
		return false
	}
	t.delete(z)
	t.len--
	return true
}

func (t *Tree[K]) leftRotate(x *node[K]) {
	y := x.right
	x.right = y.left
	if y.left != t.null {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.null {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
	x.size = 1 + x.left.size + x.right.size
	y.size = 1 + y.left.size + y.right.size
}

func (t *Tree[K]) rightRotate(x *node[K]) {
	y := x.left
	x.left = y.right
	if y.right != t.null {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == t.null {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
	x.size = 1 + x.left.size + x.right.size
	y.size = 1 + y.left.size + y.right.size
}

func (t *Tree[K]) insertFixup(z *node[K]) {
	for z.parent.col == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.col == red {
				z.parent.col = black
				y.col = black
				z.parent.parent.col = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.col = black
				z.parent.parent.col = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.col == red {
				z.parent.col = black
				y.col = black
				z.parent.parent.col = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.col = black
				z.parent.parent.col = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.col = black
}

func (t *Tree[K]) transplant(u, v *node[K]) {
	if u.parent == t.null {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *Tree[K]) min(x *node[K]) *node[K] {
	for x.left != t.null {
		x = x.left
	}
	return x
}

func (t *Tree[K]) delete(z *node[K]) {
	y := z
	yCol := y.col
	var x *node[K]
	switch {
	case z.left == t.null:
		x = z.right
		t.transplant(z, z.right)
	case z.right == t.null:
		x = z.left
		t.transplant(z, z.left)
	default:
		y = t.min(z.right)
		yCol = y.col
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.col = z.col
	}
	// The splice may have shrunk every subtree between x and the root;
	// recompute before the fixup rotations (which keep sizes correct on
	// their own).
	for p := x.parent; p != t.null; p = p.parent {
		p.size = 1 + p.left.size + p.right.size
	}
	if yCol == black {
		t.deleteFixup(x)
	}
	t.null.parent, t.null.left, t.null.right = t.null, t.null, t.null
}

func (t *Tree[K]) deleteFixup(x *node[K]) {
	for x != t.root && x.col == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.col == red {
				w.col = black
				x.parent.col = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.col == black && w.right.col == black {
				w.col = red
				x = x.parent
			} else {
				if w.right.col == black {
					w.left.col = black
					w.col = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.col = x.parent.col
				x.parent.col = black
				w.right.col = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.col == red {
				w.col = black
				x.parent.col = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.col == black && w.left.col == black {
				w.col = red
				x = x.parent
			} else {
				if w.left.col == black {
					w.right.col = black
					w.col = red
					t.leftRotate(w)
					w = x.parent.left
				}
				w.col = x.parent.col
				x.parent.col = black
				w.left.col = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.col = black
}

// CountLT returns the number of keys strictly below k.
func (t *Tree[K]) CountLT(k K) int {
	n := 0
	for x := t.root; x != t.null; {
		if t.cmp(x.key, k) < 0 {
			n += x.left.size + 1
			x = x.right
		} else {
			x = x.left
		}
	}
	return n
}

// CountLE returns the number of keys at or below k.
func (t *Tree[K]) CountLE(k K) int {
	n := 0
	for x := t.root; x != t.null; {
		if t.cmp(x.key, k) <= 0 {
			n += x.left.size + 1
			x = x.right
		} else {
			x = x.left
		}
	}
	return n
}

// CountGE returns the number of keys at or above k.
func (t *Tree[K]) CountGE(k K) int { return t.len - t.CountLT(k) }

// CountGT returns the number of keys strictly above k.
func (t *Tree[K]) CountGT(k K) int { return t.len - t.CountLE(k) }

// AscendGE yields all keys >= k in ascending order. The sequence is lazy
// and single-use; the tree must not be mutated while it is consumed.
func (t *Tree[K]) AscendGE(k K) iter.Seq[K] {
	return func(yield func(K) bool) {
		var stack []*node[K]
		for x := t.root; x != t.null; {
			if t.cmp(x.key, k) >= 0 {
				stack = append(stack, x)
				x = x.left
			} else {
				x = x.right
			}
		}
		for len(stack) > 0 {
			nd := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(nd.key) {
				return
			}
			for x := nd.right; x != t.null; x = x.left {
				stack = append(stack, x)
			}
		}
	}
}

// DescendLE yields all keys <= k in descending order, with the same
// laziness contract as AscendGE.
func (t *Tree[K]) DescendLE(k K) iter.Seq[K] {
	return func(yield func(K) bool) {
		var stack []*node[K]
		for x := t.root; x != t.null; {
			if t.cmp(x.key, k) <= 0 {
				stack = append(stack, x)
				x = x.right
			} else {
				x = x.left
			}
		}
		for len(stack) > 0 {
			nd := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(nd.key) {
				return
			}
			for x := nd.left; x != t.null; x = x.right {
				stack = append(stack, x)
			}
		}
	}
}

// All yields every key in ascending order.
func (t *Tree[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		var stack []*node[K]
		for x := t.root; x != t.null; x = x.left {
			stack = append(stack, x)
		}
		for len(stack) > 0 {
			nd := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(nd.key) {
				return
			}
			for x := nd.right; x != t.null; x = x.left {
				stack = append(stack, x)
			}
		}
	}
}
