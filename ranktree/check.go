package ranktree

import "fmt"

// CheckInvariants verifies the structural health of the tree: key order,
// red-black coloring, and subtree sizes. Intended for tests.
func (t *Tree[K]) CheckInvariants() error {
	if err := t.checkOrder(); err != nil {
		return err
	}
	if err := t.checkRedBlack(); err != nil {
		return err
	}
	return t.checkSizes()
}

func (t *Tree[K]) checkOrder() error {
	var prev *node[K]
	for x := range t.nodes() {
		if prev != nil && t.cmp(prev.key, x.key) >= 0 {
			return fmt.Errorf("ranktree: keys out of order: %v before %v", prev.key, x.key)
		}
		prev = x
	}
	return nil
}

func (t *Tree[K]) checkRedBlack() error {
	if t.root.col != black {
		return fmt.Errorf("ranktree: red root")
	}
	if t.null.col != black {
		return fmt.Errorf("ranktree: red sentinel")
	}
	_, err := t.blackHeight(t.root)
	return err
}

func (t *Tree[K]) blackHeight(x *node[K]) (int, error) {
	if x == t.null {
		return 1, nil
	}
	if x.col == red && (x.left.col == red || x.right.col == red) {
		return 0, fmt.Errorf("ranktree: red node %v has a red child", x.key)
	}
	lh, err := t.blackHeight(x.left)
	if err != nil {
		return 0, err
	}
	rh, err := t.blackHeight(x.right)
	if err != nil {
		return 0, err
	}
	if lh != rh {
		return 0, fmt.Errorf("ranktree: black height mismatch at %v: %d vs %d", x.key, lh, rh)
	}
	if x.col == black {
		lh++
	}
	return lh, nil
}

func (t *Tree[K]) checkSizes() error {
	n, err := t.checkSize(t.root)
	if err != nil {
		return err
	}
	if n != t.len {
		return fmt.Errorf("ranktree: root size %d but len %d", n, t.len)
	}
	return nil
}

func (t *Tree[K]) checkSize(x *node[K]) (int, error) {
	if x == t.null {
		if x.size != 0 {
			return 0, fmt.Errorf("ranktree: sentinel size %d", x.size)
		}
		return 0, nil
	}
	ln, err := t.checkSize(x.left)
	if err != nil {
		return 0, err
	}
	rn, err := t.checkSize(x.right)
	if err != nil {
		return 0, err
	}
	if x.size != 1+ln+rn {
		return 0, fmt.Errorf("ranktree: node %v size %d, subtrees %d+%d", x.key, x.size, ln, rn)
	}
	return x.size, nil
}

func (t *Tree[K]) nodes() func(yield func(*node[K]) bool) {
	return func(yield func(*node[K]) bool) {
		var stack []*node[K]
		for x := t.root; x != t.null; x = x.left {
			stack = append(stack, x)
		}
		for len(stack) > 0 {
			nd := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(nd) {
				return
			}
			for x := nd.right; x != t.null; x = x.left {
				stack = append(stack, x)
			}
		}
	}
}
