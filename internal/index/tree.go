// Package index implements the ordered key/value index used for every lookup
// table in the server: a red-black tree whose nodes live in an arena and link
// to each other by stable slot numbers instead of pointers.
package index

import (
	"iter"
	"log/slog"
)

type color uint8

const (
	red color = iota
	black
)

// Node is a stable handle to an entry in a Tree. Handles stay valid until the
// entry is deleted; deleting a two-child entry moves its in-order successor's
// key and value into the deleted handle's slot.
type Node int32

// NilNode marks the absence of a node.
const NilNode Node = -1

type node[K, V any] struct {
	color  color
	left   Node
	right  Node
	parent Node
	key    K
	value  V
	live   bool
}

// Tree is an ordered index keyed by K. The zero value is not usable; build one
// with New.
type Tree[K, V any] struct {
	nodes        []node[K, V]
	free         []Node
	root         Node
	cmp          func(a, b K) int
	releaseKey   func(K)
	releaseValue func(V)
	logger       *slog.Logger
}

// Option customises a Tree at construction time.
type Option[K, V any] func(*Tree[K, V])

// WithKeyRelease registers a callback run whenever the index gives up a key it owns.
func WithKeyRelease[K, V any](fn func(K)) Option[K, V] {
	return func(t *Tree[K, V]) {
		t.releaseKey = fn
	}
}

// WithValueRelease registers a callback run whenever the index gives up a value it owns.
func WithValueRelease[K, V any](fn func(V)) Option[K, V] {
	return func(t *Tree[K, V]) {
		t.releaseValue = fn
	}
}

// WithLogger overrides the logger used to report misuse.
func WithLogger[K, V any](logger *slog.Logger) Option[K, V] {
	return func(t *Tree[K, V]) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New builds an empty index ordered by cmp. A nil comparator is reported and
// yields an index on which every operation is a no-op.
func New[K, V any](cmp func(a, b K) int, opts ...Option[K, V]) *Tree[K, V] {
	t := &Tree[K, V]{
		root:   NilNode,
		cmp:    cmp,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	if cmp == nil {
		t.logger.Error("index: missing comparator")
	}
	return t
}

func (t *Tree[K, V]) usable(op string) bool {
	if t == nil {
		slog.Error("index: operation on nil index", "op", op)
		return false
	}
	if t.cmp == nil {
		t.logger.Error("index: operation on index without comparator", "op", op)
		return false
	}
	return true
}

// Insert stores value under key. When key is already present the previous
// value is released, the stored key is kept and the duplicate key passed in is
// released. It returns the node holding the entry.
func (t *Tree[K, V]) Insert(key K, value V) Node {
	return t.insert(key, value, true)
}

// InsertNoFree behaves like Insert but never runs release callbacks; ownership
// of a replaced value and of a duplicate key stays with the caller.
func (t *Tree[K, V]) InsertNoFree(key K, value V) Node {
	return t.insert(key, value, false)
}

func (t *Tree[K, V]) insert(key K, value V, release bool) Node {
	if !t.usable("insert") {
		return NilNode
	}
	parent := NilNode
	cur := t.root
	c := 0
	for cur != NilNode {
		parent = cur
		c = t.cmp(key, t.nodes[cur].key)
		switch {
		case c == 0:
			old := t.nodes[cur].value
			t.nodes[cur].value = value
			if release {
				if t.releaseValue != nil {
					t.releaseValue(old)
				}
				if t.releaseKey != nil {
					t.releaseKey(key)
				}
			}
			return cur
		case c < 0:
			cur = t.nodes[cur].left
		default:
			cur = t.nodes[cur].right
		}
	}

	z := t.alloc(key, value, parent)
	switch {
	case parent == NilNode:
		t.root = z
	case c < 0:
		t.nodes[parent].left = z
	default:
		t.nodes[parent].right = z
	}
	t.insertFixup(z)
	return z
}

func (t *Tree[K, V]) alloc(key K, value V, parent Node) Node {
	n := node[K, V]{
		color:  red,
		left:   NilNode,
		right:  NilNode,
		parent: parent,
		key:    key,
		value:  value,
		live:   true,
	}
	if last := len(t.free) - 1; last >= 0 {
		slot := t.free[last]
		t.free = t.free[:last]
		t.nodes[slot] = n
		return slot
	}
	t.nodes = append(t.nodes, n)
	return Node(len(t.nodes) - 1)
}

func (t *Tree[K, V]) insertFixup(z Node) {
	for z != t.root && t.isRed(t.nodes[z].parent) {
		p := t.nodes[z].parent
		g := t.nodes[p].parent
		if p == t.nodes[g].left {
			u := t.nodes[g].right
			if t.isRed(u) {
				t.nodes[p].color = black
				t.nodes[u].color = black
				t.nodes[g].color = red
				z = g
				continue
			}
			if z == t.nodes[p].right {
				z = p
				t.rotateLeft(z)
				p = t.nodes[z].parent
			}
			t.nodes[p].color = black
			t.nodes[g].color = red
			t.rotateRight(g)
		} else {
			u := t.nodes[g].left
			if t.isRed(u) {
				t.nodes[p].color = black
				t.nodes[u].color = black
				t.nodes[g].color = red
				z = g
				continue
			}
			if z == t.nodes[p].left {
				z = p
				t.rotateRight(z)
				p = t.nodes[z].parent
			}
			t.nodes[p].color = black
			t.nodes[g].color = red
			t.rotateLeft(g)
		}
	}
	t.nodes[t.root].color = black
}

func (t *Tree[K, V]) isRed(n Node) bool {
	return n != NilNode && t.nodes[n].color == red
}

func (t *Tree[K, V]) rotateLeft(x Node) {
	y := t.nodes[x].right
	t.nodes[x].right = t.nodes[y].left
	if l := t.nodes[y].left; l != NilNode {
		t.nodes[l].parent = x
	}
	p := t.nodes[x].parent
	t.nodes[y].parent = p
	switch {
	case p == NilNode:
		t.root = y
	case x == t.nodes[p].left:
		t.nodes[p].left = y
	default:
		t.nodes[p].right = y
	}
	t.nodes[y].left = x
	t.nodes[x].parent = y
}

func (t *Tree[K, V]) rotateRight(x Node) {
	y := t.nodes[x].left
	t.nodes[x].left = t.nodes[y].right
	if r := t.nodes[y].right; r != NilNode {
		t.nodes[r].parent = x
	}
	p := t.nodes[x].parent
	t.nodes[y].parent = p
	switch {
	case p == NilNode:
		t.root = y
	case x == t.nodes[p].right:
		t.nodes[p].right = y
	default:
		t.nodes[p].left = y
	}
	t.nodes[y].right = x
	t.nodes[x].parent = y
}

// Get returns the node stored under key, or NilNode.
func (t *Tree[K, V]) Get(key K) Node {
	if !t.usable("get") {
		return NilNode
	}
	cur := t.root
	for cur != NilNode {
		c := t.cmp(key, t.nodes[cur].key)
		switch {
		case c == 0:
			return cur
		case c < 0:
			cur = t.nodes[cur].left
		default:
			cur = t.nodes[cur].right
		}
	}
	return NilNode
}

// Lookup returns the value stored under key and whether it was present.
func (t *Tree[K, V]) Lookup(key K) (V, bool) {
	n := t.Get(key)
	if n == NilNode {
		var zero V
		return zero, false
	}
	return t.nodes[n].value, true
}

// GetValue returns the value stored under key, or def when key is absent.
func (t *Tree[K, V]) GetValue(key K, def V) V {
	if v, ok := t.Lookup(key); ok {
		return v
	}
	return def
}

// Key returns the key held by n.
func (t *Tree[K, V]) Key(n Node) K {
	if !t.valid(n, "key") {
		var zero K
		return zero
	}
	return t.nodes[n].key
}

// Value returns the value held by n.
func (t *Tree[K, V]) Value(n Node) V {
	if !t.valid(n, "value") {
		var zero V
		return zero
	}
	return t.nodes[n].value
}

func (t *Tree[K, V]) valid(n Node, op string) bool {
	if !t.usable(op) {
		return false
	}
	if n < 0 || int(n) >= len(t.nodes) || !t.nodes[n].live {
		t.logger.Error("index: invalid node", "op", op, "node", int(n))
		return false
	}
	return true
}

// Delete removes key, releasing both its key and value. It reports whether
// the key was present.
func (t *Tree[K, V]) Delete(key K) bool {
	n := t.Get(key)
	if n == NilNode {
		return false
	}
	k, v := t.unlink(n)
	if t.releaseKey != nil {
		t.releaseKey(k)
	}
	if t.releaseValue != nil {
		t.releaseValue(v)
	}
	return true
}

// DeleteNoFree removes key and hands its key and value back to the caller
// without running release callbacks.
func (t *Tree[K, V]) DeleteNoFree(key K) (K, V, bool) {
	n := t.Get(key)
	if n == NilNode {
		var (
			zk K
			zv V
		)
		return zk, zv, false
	}
	k, v := t.unlink(n)
	return k, v, true
}

func (t *Tree[K, V]) unlink(z Node) (K, V) {
	if t.nodes[z].left != NilNode && t.nodes[z].right != NilNode {
		s := t.minimum(t.nodes[z].right)
		t.nodes[z].key, t.nodes[s].key = t.nodes[s].key, t.nodes[z].key
		t.nodes[z].value, t.nodes[s].value = t.nodes[s].value, t.nodes[z].value
		z = s
	}

	child := t.nodes[z].left
	if child == NilNode {
		child = t.nodes[z].right
	}
	parent := t.nodes[z].parent
	if child != NilNode {
		t.nodes[child].parent = parent
	}
	switch {
	case parent == NilNode:
		t.root = child
	case z == t.nodes[parent].left:
		t.nodes[parent].left = child
	default:
		t.nodes[parent].right = child
	}
	if t.nodes[z].color == black {
		t.deleteFixup(child, parent)
	}

	key, value := t.nodes[z].key, t.nodes[z].value
	t.nodes[z] = node[K, V]{left: NilNode, right: NilNode, parent: NilNode}
	t.free = append(t.free, z)
	return key, value
}

func (t *Tree[K, V]) deleteFixup(x, parent Node) {
	for x != t.root && !t.isRed(x) {
		if x == t.nodes[parent].left {
			w := t.nodes[parent].right
			if t.isRed(w) {
				t.nodes[w].color = black
				t.nodes[parent].color = red
				t.rotateLeft(parent)
				w = t.nodes[parent].right
			}
			if !t.isRed(t.nodes[w].left) && !t.isRed(t.nodes[w].right) {
				t.nodes[w].color = red
				x = parent
				parent = t.nodes[x].parent
				continue
			}
			if !t.isRed(t.nodes[w].right) {
				t.nodes[t.nodes[w].left].color = black
				t.nodes[w].color = red
				t.rotateRight(w)
				w = t.nodes[parent].right
			}
			t.nodes[w].color = t.nodes[parent].color
			t.nodes[parent].color = black
			t.nodes[t.nodes[w].right].color = black
			t.rotateLeft(parent)
			x = t.root
		} else {
			w := t.nodes[parent].left
			if t.isRed(w) {
				t.nodes[w].color = black
				t.nodes[parent].color = red
				t.rotateRight(parent)
				w = t.nodes[parent].left
			}
			if !t.isRed(t.nodes[w].left) && !t.isRed(t.nodes[w].right) {
				t.nodes[w].color = red
				x = parent
				parent = t.nodes[x].parent
				continue
			}
			if !t.isRed(t.nodes[w].left) {
				t.nodes[t.nodes[w].right].color = black
				t.nodes[w].color = red
				t.rotateLeft(w)
				w = t.nodes[parent].left
			}
			t.nodes[w].color = t.nodes[parent].color
			t.nodes[parent].color = black
			t.nodes[t.nodes[w].left].color = black
			t.rotateRight(parent)
			x = t.root
		}
	}
	if x != NilNode {
		t.nodes[x].color = black
	}
}

func (t *Tree[K, V]) minimum(n Node) Node {
	for t.nodes[n].left != NilNode {
		n = t.nodes[n].left
	}
	return n
}

func (t *Tree[K, V]) maximum(n Node) Node {
	for t.nodes[n].right != NilNode {
		n = t.nodes[n].right
	}
	return n
}

// Front returns the smallest entry, or NilNode when the index is empty.
func (t *Tree[K, V]) Front() Node {
	if !t.usable("front") || t.root == NilNode {
		return NilNode
	}
	return t.minimum(t.root)
}

// Back returns the largest entry, or NilNode when the index is empty.
func (t *Tree[K, V]) Back() Node {
	if !t.usable("back") || t.root == NilNode {
		return NilNode
	}
	return t.maximum(t.root)
}

// Next returns the in-order successor of n.
func (t *Tree[K, V]) Next(n Node) Node {
	if !t.valid(n, "next") {
		return NilNode
	}
	if r := t.nodes[n].right; r != NilNode {
		return t.minimum(r)
	}
	p := t.nodes[n].parent
	for p != NilNode && n == t.nodes[p].right {
		n = p
		p = t.nodes[p].parent
	}
	return p
}

// Prev returns the in-order predecessor of n.
func (t *Tree[K, V]) Prev(n Node) Node {
	if !t.valid(n, "prev") {
		return NilNode
	}
	if l := t.nodes[n].left; l != NilNode {
		return t.maximum(l)
	}
	p := t.nodes[n].parent
	for p != NilNode && n == t.nodes[p].left {
		n = p
		p = t.nodes[p].parent
	}
	return p
}

// Size counts the entries by walking the tree.
func (t *Tree[K, V]) Size() int {
	if !t.usable("size") {
		return 0
	}
	return t.count(t.root)
}

func (t *Tree[K, V]) count(n Node) int {
	if n == NilNode {
		return 0
	}
	return 1 + t.count(t.nodes[n].left) + t.count(t.nodes[n].right)
}

// Clear removes every entry, releasing keys and values that have callbacks.
func (t *Tree[K, V]) Clear() {
	if !t.usable("clear") {
		return
	}
	for n := t.Front(); n != NilNode; n = t.Next(n) {
		if t.releaseKey != nil {
			t.releaseKey(t.nodes[n].key)
		}
		if t.releaseValue != nil {
			t.releaseValue(t.nodes[n].value)
		}
	}
	t.nodes = nil
	t.free = nil
	t.root = NilNode
}

// All yields the entries in ascending key order. The index must not be
// modified while the sequence is being consumed.
func (t *Tree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if !t.usable("all") {
			return
		}
		for n := t.Front(); n != NilNode; n = t.Next(n) {
			if !yield(t.nodes[n].key, t.nodes[n].value) {
				return
			}
		}
	}
}

// Keys returns a snapshot of the keys in ascending order.
func (t *Tree[K, V]) Keys() []K {
	var keys []K
	for k := range t.All() {
		keys = append(keys, k)
	}
	return keys
}
