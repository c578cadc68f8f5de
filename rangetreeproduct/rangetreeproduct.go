// Package rangetreeproduct implements RangeCoverTreeProduct: a d-D cover
// structure composed of d independent per-axis 1-D covertree.Trees. Every
// operation works per-axis, then stitches the per-axis results back into
// d-D hyperranges by Cartesian product — correct because axis-independent
// partitioning composes, and far simpler than fusing the axes into a single
// d-D tree (at the cost of per-axis fan-out instead of d-way fan-out at
// each split).
package rangetreeproduct

import (
	"github.com/rosualinpetru/ers-go/covertree"
	"github.com/rosualinpetru/ers-go/hyperrange"
	"github.com/rosualinpetru/ers-go/point"
)

// A Product is an ordered list of per-axis 1-D cover trees, one per
// dimension, in axis order. Immutable after construction.
type Product struct {
	trees []*covertree.Tree
}

// New returns a Product over the given per-axis trees, in axis order.
// Panics if trees is empty.
func New(trees []*covertree.Tree) *Product {
	if len(trees) == 0 {
		panic("rangetreeproduct: at least one axis tree is required")
	}
	cp := make([]*covertree.Tree, len(trees))
	copy(cp, trees)
	return &Product{trees: cp}
}

// Dim returns the product's dimension (the number of axis trees).
func (pr *Product) Dim() int {
	return len(pr.trees)
}

// Descend returns the Cartesian product of each axis's Descend(p[i]),
// stitched into d-D hyperranges: every node (across all axes) whose range
// contains p's projection onto that axis. Output size is the product of
// the per-axis descent lengths.
func (pr *Product) Descend(p point.Point) []hyperrange.HyperRange {
	if p.Dim() != pr.Dim() {
		panic("rangetreeproduct: point dimension mismatch")
	}

	perAxis := make([][]hyperrange.HyperRange, pr.Dim())
	for i, t := range pr.trees {
		perAxis[i] = t.Descend(hyperrange.Unit(point.New(p.Coord(i))))
	}
	return cartesianStitch(perAxis)
}

// BRC returns the Cartesian product of each axis's BRC over q's projection
// onto that axis, stitched into d-D hyperranges.
func (pr *Product) BRC(q hyperrange.HyperRange) []hyperrange.HyperRange {
	if q.Dim() != pr.Dim() {
		panic("rangetreeproduct: range dimension mismatch")
	}

	perAxis := make([][]hyperrange.HyperRange, pr.Dim())
	for i, t := range pr.trees {
		perAxis[i] = t.BRC(axisSlice(q, i))
	}
	return cartesianStitch(perAxis)
}

// SRC returns the single d-D SRC of q: the per-axis SRC stitched together.
// If any axis's SRC does not exist (its projection is not contained in
// that axis's root), the overall SRC does not exist.
func (pr *Product) SRC(q hyperrange.HyperRange) (hyperrange.HyperRange, bool) {
	if q.Dim() != pr.Dim() {
		panic("rangetreeproduct: range dimension mismatch")
	}

	axisResults := make([]hyperrange.HyperRange, pr.Dim())
	for i, t := range pr.trees {
		r, ok := t.SRC(axisSlice(q, i))
		if !ok {
			return hyperrange.HyperRange{}, false
		}
		axisResults[i] = r
	}
	return stitch(axisResults), true
}

// axisSlice projects a d-D range onto its i-th axis as a 1-D HyperRange.
func axisSlice(q hyperrange.HyperRange, i int) hyperrange.HyperRange {
	return hyperrange.MustNew(point.New(q.Start().Coord(i)), point.New(q.End().Coord(i)))
}

// stitch combines one 1-D HyperRange per axis into a single d-D
// HyperRange.
func stitch(axisRanges []hyperrange.HyperRange) hyperrange.HyperRange {
	start := make([]uint64, len(axisRanges))
	end := make([]uint64, len(axisRanges))
	for i, ar := range axisRanges {
		start[i] = ar.Start().Coord(0)
		end[i] = ar.End().Coord(0)
	}
	return hyperrange.MustNew(point.New(start...), point.New(end...))
}

// cartesianStitch computes the Cartesian product of perAxis (one slice of
// 1-D ranges per axis) and stitches every combination into a d-D range.
func cartesianStitch(perAxis [][]hyperrange.HyperRange) []hyperrange.HyperRange {
	combos := [][]hyperrange.HyperRange{{}}
	for _, axisRanges := range perAxis {
		next := make([][]hyperrange.HyperRange, 0, len(combos)*len(axisRanges))
		for _, combo := range combos {
			for _, ar := range axisRanges {
				c := make([]hyperrange.HyperRange, len(combo), len(combo)+1)
				copy(c, combo)
				c = append(c, ar)
				next = append(next, c)
			}
		}
		combos = next
	}

	out := make([]hyperrange.HyperRange, len(combos))
	for i, combo := range combos {
		out[i] = stitch(combo)
	}
	return out
}
