// Package avl holds the capacity-bounded AVL tree that indexes switches by id.
//
// The tree is not safe for concurrent use; callers serialize access.
package avl

import (
	"errors"
	"fmt"
	"iter"

	"smart-switch/internal/domain"
)

var (
	ErrCapacityExceeded = errors.New("tree capacity exceeded")
	ErrEmpty            = errors.New("tree is empty")
)

type node struct {
	sw     domain.Switch
	height int
	left   *node
	right  *node
}

type Tree struct {
	root    *node
	size    int
	maxSize int
}

func New(maxSize uint8) *Tree {
	return &Tree{maxSize: int(maxSize)}
}

func (t *Tree) Len() int      { return t.size }
func (t *Tree) Cap() int      { return t.maxSize }
func (t *Tree) IsEmpty() bool { return t.root == nil }

// Height of the whole tree, 0 when empty.
func (t *Tree) Height() int { return height(t.root) }

// Insert places sw by id. A duplicate id leaves the stored switch untouched and
// reports created=false. Inserts at full capacity fail with ErrCapacityExceeded.
func (t *Tree) Insert(sw domain.Switch) (created bool, err error) {
	if t.size >= t.maxSize {
		return false, ErrCapacityExceeded
	}
	t.root, created = t.insert(t.root, sw)
	if created {
		t.size++
	}
	return created, nil
}

func (t *Tree) insert(n *node, sw domain.Switch) (*node, bool) {
	if n == nil {
		return &node{sw: sw, height: 1}, true
	}
	var created bool
	switch {
	case sw.ID < n.sw.ID:
		n.left, created = t.insert(n.left, sw)
	case sw.ID > n.sw.ID:
		n.right, created = t.insert(n.right, sw)
	}
	return rebalance(n), created
}

func (t *Tree) find(id uint8) *node {
	n := t.root
	for n != nil {
		switch {
		case id < n.sw.ID:
			n = n.left
		case id > n.sw.ID:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

// Find returns a copy of the switch stored under id.
func (t *Tree) Find(id uint8) (domain.Switch, bool) {
	n := t.find(id)
	if n == nil {
		return domain.Switch{}, false
	}
	return n.sw, true
}

func (t *Tree) Contains(id uint8) bool {
	return t.find(id) != nil
}

// Update applies fn to the switch stored under id in place. The id is restored
// after fn returns; keys never change.
func (t *Tree) Update(id uint8, fn func(*domain.Switch)) bool {
	n := t.find(id)
	if n == nil {
		return false
	}
	fn(&n.sw)
	n.sw.ID = id
	return true
}

// Remove splices out id, replacing it by its in-order successor when it has a
// right subtree. Reports false when id is absent.
func (t *Tree) Remove(id uint8) bool {
	var removed bool
	t.root, removed = t.remove(t.root, id)
	if removed {
		t.size--
	}
	return removed
}

func (t *Tree) remove(n *node, id uint8) (*node, bool) {
	if n == nil {
		return nil, false
	}
	var removed bool
	switch {
	case id < n.sw.ID:
		n.left, removed = t.remove(n.left, id)
	case id > n.sw.ID:
		n.right, removed = t.remove(n.right, id)
	default:
		l, r := n.left, n.right
		if r == nil {
			return l, true
		}
		successor := leftmost(r)
		successor.right = extractMin(r)
		successor.left = l
		return rebalance(successor), true
	}
	return rebalance(n), removed
}

// Min returns the smallest id.
func (t *Tree) Min() (uint8, error) {
	if t.root == nil {
		return 0, ErrEmpty
	}
	return leftmost(t.root).sw.ID, nil
}

// RemoveMin discards the switch with the smallest id.
func (t *Tree) RemoveMin() error {
	if t.root == nil {
		return ErrEmpty
	}
	t.root = extractMin(t.root)
	t.size--
	return nil
}

func (t *Tree) Clear() {
	t.root = nil
	t.size = 0
}

// ForEach visits left subtree, right subtree, then the node, handing out a
// mutable switch. Ids are restored after each call.
func (t *Tree) ForEach(fn func(*domain.Switch)) {
	var walk func(*node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		walk(n.left)
		walk(n.right)
		id := n.sw.ID
		fn(&n.sw)
		n.sw.ID = id
	}
	walk(t.root)
}

// All yields switches in ascending id order.
func (t *Tree) All() iter.Seq[domain.Switch] {
	return func(yield func(domain.Switch) bool) {
		var walk func(*node) bool
		walk = func(n *node) bool {
			if n == nil {
				return true
			}
			return walk(n.left) && yield(n.sw) && walk(n.right)
		}
		walk(t.root)
	}
}

// PreOrder yields node, left subtree, right subtree.
func (t *Tree) PreOrder() iter.Seq[domain.Switch] {
	return func(yield func(domain.Switch) bool) {
		var walk func(*node) bool
		walk = func(n *node) bool {
			if n == nil {
				return true
			}
			return yield(n.sw) && walk(n.left) && walk(n.right)
		}
		walk(t.root)
	}
}

// Check verifies ordering, balance, cached heights and size.
func (t *Tree) Check() error {
	count := 0
	var check func(n *node, lo, hi int) (int, error)
	check = func(n *node, lo, hi int) (int, error) {
		if n == nil {
			return 0, nil
		}
		count++
		id := int(n.sw.ID)
		if id <= lo || id >= hi {
			return 0, fmt.Errorf("id %d out of order (bounds %d..%d)", id, lo, hi)
		}
		lh, err := check(n.left, lo, id)
		if err != nil {
			return 0, err
		}
		rh, err := check(n.right, id, hi)
		if err != nil {
			return 0, err
		}
		if bf := rh - lh; bf < -1 || bf > 1 {
			return 0, fmt.Errorf("id %d unbalanced: factor %d", id, bf)
		}
		h := 1 + max(lh, rh)
		if n.height != h {
			return 0, fmt.Errorf("id %d cached height %d, actual %d", id, n.height, h)
		}
		return h, nil
	}
	if _, err := check(t.root, -1, 256); err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("size %d, counted %d nodes", t.size, count)
	}
	return nil
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func (n *node) fix() {
	n.height = 1 + max(height(n.left), height(n.right))
}

func balanceFactor(n *node) int {
	return height(n.right) - height(n.left)
}

func rotateLeft(n *node) *node {
	r := n.right
	n.right = r.left
	r.left = n
	n.fix()
	r.fix()
	return r
}

func rotateRight(n *node) *node {
	l := n.left
	n.left = l.right
	l.right = n
	n.fix()
	l.fix()
	return l
}

func rebalance(n *node) *node {
	n.fix()
	switch balanceFactor(n) {
	case 2:
		if balanceFactor(n.right) < 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	case -2:
		if balanceFactor(n.left) > 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	}
	return n
}

func leftmost(n *node) *node {
	for n.left != nil {
		n = n.left
	}
	return n
}

func extractMin(n *node) *node {
	if n.left == nil {
		return n.right
	}
	n.left = extractMin(n.left)
	return rebalance(n)
}
