// Package covertree implements RangeCoverTree: a rooted tree of hyperranges
// built by recursively applying a divider.Divider, with the cover
// operations (descend, rc, brc, src, urc) that the EMM schemes compose
// trapdoors and build-time labels from.
package covertree

import (
	"fmt"
	"sync"

	"github.com/rosualinpetru/ers-go"
	"github.com/rosualinpetru/ers-go/crypto/digest"
	"github.com/rosualinpetru/ers-go/divider"
	"github.com/rosualinpetru/ers-go/hyperrange"
)

// A Tree is a single node of a range-cover tree: its own hyperrange, its
// children (possibly overlapping, for TDAG-style dividers), and its height
// (0 for a leaf, 1+max(child heights) otherwise). A Tree is immutable after
// Build returns; its internal per-node query cache is safe for concurrent
// use, so a built Tree may be shared read-only across goroutines without
// any caller-side locking.
type Tree struct {
	rng      hyperrange.HyperRange
	height   int
	children []*Tree

	descendCache sync.Map // raw digest bytes -> []hyperrange.HyperRange
	rcCache      sync.Map // raw digest bytes -> []*Tree
	srcCache     sync.Map // raw digest bytes -> srcResult
}

type srcResult struct {
	rng   hyperrange.HyperRange
	found bool
}

// Build constructs a range-cover tree rooted at root by recursively
// applying d until it returns no children (a leaf). Returns
// ers.ErrNonterminatingDivider if d ever returns a single child equal to
// its own parent, which would make construction loop forever.
func Build(root hyperrange.HyperRange, d divider.Divider) (*Tree, error) {
	return build(root, d)
}

func build(rng hyperrange.HyperRange, d divider.Divider) (*Tree, error) {
	t := &Tree{rng: rng}

	childRanges := d.Divide(rng)
	if len(childRanges) == 0 {
		t.height = 0
		return t, nil
	}

	maxHeight := -1
	t.children = make([]*Tree, 0, len(childRanges))
	for _, cr := range childRanges {
		if cr.Equal(rng) {
			return nil, fmt.Errorf("covertree: divider returned parent range %v as its own child: %w", rng, ers.ErrNonterminatingDivider)
		}
		child, err := build(cr, d)
		if err != nil {
			return nil, err
		}
		if child.height > maxHeight {
			maxHeight = child.height
		}
		t.children = append(t.children, child)
	}
	t.height = maxHeight + 1
	return t, nil
}

// Range returns the node's hyperrange.
func (t *Tree) Range() hyperrange.HyperRange {
	return t.rng
}

// Height returns the node's height (0 for a leaf).
func (t *Tree) Height() int {
	return t.height
}

// cacheKey hashes (node range bytes, query bytes) into a cache key, domain
// separated per operation so descend/rc/src entries never collide even
// though they share the same underlying maps' key space shape.
func cacheKey(domain string, rng, q hyperrange.HyperRange) string {
	h := digest.New(domain)
	nb := rng.Bytes()
	qb := q.Bytes()
	_, _ = h.Write(nb)
	_, _ = h.Write(qb)
	return string(h.Sum(nil))
}

// Descend returns every node (this node included) whose range contains q,
// walking down from this node. Called at build time with q a unit range
// (a single point), it returns exactly that point's ancestors: the labels
// the point's values must be inserted under. For overlap (TDAG) trees it
// naturally returns every overlapping ancestor, so any future SRC/BRC cover
// of a query containing the point will find it.
func (t *Tree) Descend(q hyperrange.HyperRange) []hyperrange.HyperRange {
	key := cacheKey("covertree-descend", t.rng, q)
	if cached, ok := t.descendCache.Load(key); ok {
		return cached.([]hyperrange.HyperRange)
	}

	var out []hyperrange.HyperRange
	if t.rng.ContainsRange(q) {
		out = append(out, t.rng)
		for _, c := range t.children {
			out = append(out, c.Descend(q)...)
		}
	}

	t.descendCache.Store(key, out)
	return out
}

// rc returns the maximal nodes (as *Tree, preserving height and further
// descendants for urc) whose range is contained in q: a node is included
// whole once its range is fully inside q; otherwise rc recurses into every
// child that at least intersects q.
func (t *Tree) rc(q hyperrange.HyperRange) []*Tree {
	key := cacheKey("covertree-rc", t.rng, q)
	if cached, ok := t.rcCache.Load(key); ok {
		return cached.([]*Tree)
	}

	var out []*Tree
	switch {
	case q.ContainsRange(t.rng):
		out = []*Tree{t}
	case len(t.children) == 0:
		out = nil
	default:
		for _, c := range t.children {
			if !c.rng.Intersects(q) {
				continue
			}
			out = append(out, c.rc(q)...)
		}
	}

	t.rcCache.Store(key, out)
	return out
}

// Node pairs a cover-tree node's hyperrange with its height, as returned by
// RC.
type Node struct {
	Height int
	Range  hyperrange.HyperRange
}

// RC returns rc(q): all maximal nodes whose range is contained in q, a
// range cover of q ∩ root, with heights retained (needed for URC). A q
// equal to the root returns exactly one node: the root itself.
func (t *Tree) RC(q hyperrange.HyperRange) []Node {
	nodes := t.rc(q)
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Node{Height: n.height, Range: n.rng}
	}
	return out
}

// BRC returns RC(q) with heights stripped: the classical Best Range Cover.
func (t *Tree) BRC(q hyperrange.HyperRange) []hyperrange.HyperRange {
	nodes := t.rc(q)
	out := make([]hyperrange.HyperRange, len(nodes))
	for i, n := range nodes {
		out[i] = n.rng
	}
	return out
}

// SRC returns the smallest-volume node whose range contains q, and true if
// one exists. It does not exist (ok=false) when q is not contained in the
// root at all. Ties are broken by smallest volume among children whose
// range contains q; if none of a node's children contain q, that node
// itself is the answer.
func (t *Tree) SRC(q hyperrange.HyperRange) (hyperrange.HyperRange, bool) {
	if !t.rng.ContainsRange(q) {
		return hyperrange.HyperRange{}, false
	}
	return t.srcRec(q), true
}

func (t *Tree) srcRec(q hyperrange.HyperRange) hyperrange.HyperRange {
	key := cacheKey("covertree-src", t.rng, q)
	if cached, ok := t.srcCache.Load(key); ok {
		return cached.(srcResult).rng
	}

	var best hyperrange.HyperRange
	found := false
	for _, c := range t.children {
		if !c.rng.ContainsRange(q) {
			continue
		}
		candidate := c.srcRec(q)
		if !found || candidate.Volume().Cmp(best.Volume()) < 0 {
			best, found = candidate, true
		}
	}
	if !found {
		best = t.rng
	}

	t.srcCache.Store(key, srcResult{rng: best, found: true})
	return best
}

// URC returns a Uniform Range Cover of q: starting from RC(q), the largest
// (highest-height) node is repeatedly split into its children — restricted
// back down to q via rc — until every height from 0 up to the cover's
// original maximum height is represented, or no node is left large enough
// to split further. Termination is bounded by the tree's depth: each split
// either introduces a missing height or exhausts the splittable nodes.
func (t *Tree) URC(q hyperrange.HyperRange) []hyperrange.HyperRange {
	cover := t.rc(q)
	if len(cover) == 0 {
		return nil
	}

	maxLevel := 0
	for _, n := range cover {
		if n.height > maxLevel {
			maxLevel = n.height
		}
	}

	hasLevel := func(lvl int) bool {
		for _, n := range cover {
			if n.height == lvl {
				return true
			}
		}
		return false
	}

	for lvl := 0; lvl < maxLevel; {
		if hasLevel(lvl) {
			lvl++
			continue
		}

		idx, tallest := -1, -1
		for i, n := range cover {
			if n.height > lvl && n.height > tallest {
				tallest = n.height
				idx = i
			}
		}
		if idx == -1 || len(cover[idx].children) == 0 {
			break
		}

		splitNode := cover[idx]
		var replacement []*Tree
		for _, c := range splitNode.children {
			if !c.rng.Intersects(q) {
				continue
			}
			replacement = append(replacement, c.rc(q)...)
		}

		next := make([]*Tree, 0, len(cover)-1+len(replacement))
		next = append(next, cover[:idx]...)
		next = append(next, replacement...)
		next = append(next, cover[idx+1:]...)
		cover = next
	}

	out := make([]hyperrange.HyperRange, len(cover))
	for i, n := range cover {
		out[i] = n.rng
	}
	return out
}
