// Package divider implements the three interchangeable hyperrange-splitting
// strategies a range-cover tree is built from: Uniform (even fan-out),
// UniformMidOverlap (even fan-out plus TDAG-style mid-offset overlap
// siblings), and DataDependent (empirical-CDF splits over a dataset).
package divider

import (
	"github.com/rosualinpetru/ers-go/hyperrange"
	"github.com/rosualinpetru/ers-go/point"
)

// A Divider splits a HyperRange into child ranges for a cover tree. Divide
// must be deterministic given its input and the divider's construction
// parameters. A unit range (all coordinates equal, i.e. a single lattice
// point) has no children: Divide must return nil for it. Divide must never
// return a single child equal to its parent — covertree.Build rejects that
// as ers.ErrNonterminatingDivider.
type Divider interface {
	Divide(r hyperrange.HyperRange) []hyperrange.HyperRange
}

// Uniform splits every axis of a range into n contiguous, (as close to)
// equal chunks, with any remainder distributed one-per-chunk starting from
// the first chunk. Its fan-out is n^d for a d-dimensional range, except that
// an axis whose length is already <= 1 is left unsplit. Uniform never
// returns the parent range itself.
type Uniform struct {
	n int
}

// NewUniform returns a Uniform divider with the given per-axis split count.
// Panics if n < 2: a divider that cannot split any axis would never
// terminate cover-tree construction.
func NewUniform(n int) Uniform {
	if n < 2 {
		panic("divider: n must be >= 2")
	}
	return Uniform{n: n}
}

// Divide implements Divider.
func (u Uniform) Divide(r hyperrange.HyperRange) []hyperrange.HyperRange {
	if r.IsUnit() {
		return nil
	}
	return recurseAxes(r, 0, func(rr hyperrange.HyperRange, dim int) []hyperrange.HyperRange {
		return splitAxisUniform(rr, dim, u.n)
	})
}

// UniformMidOverlap applies Uniform(n), then, along each axis, inserts an
// additional mid-overlap child between every pair of adjacent primary
// siblings: a range starting at the midpoint of the left sibling and
// spanning the same length as the left sibling. This is the TDAG
// construction — a query straddling an internal split still has a single
// node (the overlap sibling) as its exact ancestor. Duplicate overlap
// children are suppressed.
type UniformMidOverlap struct {
	n int
}

// NewUniformMidOverlap returns a UniformMidOverlap divider with the given
// per-axis primary split count. Panics if n < 2, for the same reason as
// NewUniform.
func NewUniformMidOverlap(n int) UniformMidOverlap {
	if n < 2 {
		panic("divider: n must be >= 2")
	}
	return UniformMidOverlap{n: n}
}

// Divide implements Divider.
func (u UniformMidOverlap) Divide(r hyperrange.HyperRange) []hyperrange.HyperRange {
	if r.IsUnit() {
		return nil
	}
	return recurseAxes(r, 0, func(rr hyperrange.HyperRange, dim int) []hyperrange.HyperRange {
		return splitAxisWithMidOverlap(rr, dim, u.n)
	})
}

// recurseAxes walks dimensions 0..dim-1, applying splitDim at each axis and
// recursing into every child it produces for the next axis. When dim
// reaches the range's dimension, the range itself (already split on every
// prior axis) is a leaf of the recursion.
func recurseAxes(r hyperrange.HyperRange, dim int, splitDim func(hyperrange.HyperRange, int) []hyperrange.HyperRange) []hyperrange.HyperRange {
	if dim >= r.Dim() {
		return []hyperrange.HyperRange{r}
	}
	var out []hyperrange.HyperRange
	for _, sub := range splitDim(r, dim) {
		out = append(out, recurseAxes(sub, dim+1, splitDim)...)
	}
	return out
}

// splitAxisUniform splits r along axis dim into n (as close to) equal
// chunks, leaving r unsplit on that axis if its length there is <= 1.
func splitAxisUniform(r hyperrange.HyperRange, dim, n int) []hyperrange.HyperRange {
	length := r.AxisLen(dim)
	if length <= 1 || n <= 1 {
		return []hyperrange.HyperRange{r}
	}

	chunkSize := length / uint64(n)
	rem := length % uint64(n)

	var subs []hyperrange.HyperRange
	cur := r.Start().Coord(dim)
	for i := 0; i < n; i++ {
		size := chunkSize
		if uint64(i) < rem {
			size++
		}
		if size == 0 {
			break
		}
		start, end := cur, cur+size-1
		subs = append(subs, withAxis(r, dim, start, end))
		cur = end + 1
	}
	return subs
}

// splitAxisWithMidOverlap is splitAxisUniform, plus the TDAG mid-overlap
// siblings between every adjacent pair of the resulting primary chunks.
func splitAxisWithMidOverlap(r hyperrange.HyperRange, dim, n int) []hyperrange.HyperRange {
	subs := splitAxisUniform(r, dim, n)
	if len(subs) < 2 {
		return subs
	}

	end := r.End().Coord(dim)
	i := 0
	for i < len(subs)-1 {
		start := subs[i].Start().Coord(dim)
		stop := subs[i].End().Coord(dim)
		size := stop - start + 1

		offsetStart := start + size/2
		offsetEnd := offsetStart + size - 1

		if offsetEnd <= end {
			offsetChild := withAxis(r, dim, offsetStart, offsetEnd)
			if !containsEqual(subs, offsetChild) {
				subs = insertAt(subs, i+1, offsetChild)
				i++
			}
		}
		i++
	}
	return subs
}

// withAxis returns a copy of r with axis dim's coordinates replaced by
// [start, end].
func withAxis(r hyperrange.HyperRange, dim int, start, end uint64) hyperrange.HyperRange {
	startCoords := r.Start().Coords()
	endCoords := r.End().Coords()
	startCoords[dim] = start
	endCoords[dim] = end
	return hyperrange.MustNew(point.New(startCoords...), point.New(endCoords...))
}

func containsEqual(rs []hyperrange.HyperRange, r hyperrange.HyperRange) bool {
	for _, rr := range rs {
		if rr.Equal(r) {
			return true
		}
	}
	return false
}

func insertAt(rs []hyperrange.HyperRange, i int, r hyperrange.HyperRange) []hyperrange.HyperRange {
	rs = append(rs, hyperrange.HyperRange{})
	copy(rs[i+1:], rs[i:])
	rs[i] = r
	return rs
}

// DataDependent splits a range per-axis using the empirical cumulative
// distribution of a fixed point set: each axis is cut at the coordinates
// that divide that axis's observed point density into n (as close to)
// equal-mass segments, rather than into n equal-length segments. Density is
// recomputed, for every call to Divide, from exactly the points of the set
// that lie within the range being divided — it is not cached across calls,
// and (faithfully reproducing the source construction this is ported from)
// it is computed once per Divide call and then reused unfiltered across
// every axis of the recursive per-axis split, even though later axes
// operate on sub-ranges already narrowed by earlier axes. If no point of
// the set lies in the range at all, DataDependent falls back to a plain
// Uniform(n) split of the whole range.
type DataDependent struct {
	n       int
	points  []point.Point
	uniform Uniform
}

// NewDataDependent returns a DataDependent divider with the given per-axis
// split count and backing point set. Panics if n < 2, for the same reason
// as NewUniform.
func NewDataDependent(n int, points []point.Point) DataDependent {
	return DataDependent{n: n, points: points, uniform: NewUniform(n)}
}

// Divide implements Divider.
func (d DataDependent) Divide(r hyperrange.HyperRange) []hyperrange.HyperRange {
	if r.IsUnit() {
		return nil
	}

	density := computeDensities(r, d.points)
	if len(density) == 0 {
		return d.uniform.Divide(r)
	}

	result := recurseAxes(r, 0, func(rr hyperrange.HyperRange, dim int) []hyperrange.HyperRange {
		return d.splitAxisByDensity(rr, dim, density)
	})

	out := result[:0]
	for _, c := range result {
		if !c.Equal(r) {
			out = append(out, c)
		}
	}
	return out
}

// computeDensities counts, for every axis, how many of points fall at each
// coordinate value on that axis, considering only points contained in r.
func computeDensities(r hyperrange.HyperRange, points []point.Point) map[int]map[uint64]int {
	density := map[int]map[uint64]int{}
	for _, p := range points {
		if !r.ContainsPoint(p) {
			continue
		}
		for dim := 0; dim < p.Dim(); dim++ {
			if density[dim] == nil {
				density[dim] = map[uint64]int{}
			}
			density[dim][p.Coord(dim)]++
		}
	}
	return density
}

// splitAxisByDensity splits r along axis dim into up to n segments by point
// mass, per density[dim], with cuts placed as divideSegmentByDensity
// describes. An axis whose length is already <= 1 is left unsplit.
func (d DataDependent) splitAxisByDensity(r hyperrange.HyperRange, dim int, density map[int]map[uint64]int) []hyperrange.HyperRange {
	length := r.AxisLen(dim)
	if length <= 1 || d.n <= 1 {
		return []hyperrange.HyperRange{r}
	}

	start, end := r.Start().Coord(dim), r.End().Coord(dim)
	segments := divideSegmentByDensity(start, end, density[dim], d.n)

	subs := make([]hyperrange.HyperRange, len(segments))
	for i, seg := range segments {
		subs[i] = withAxis(r, dim, seg[0], seg[1])
	}
	return subs
}

// divideSegmentByDensity partitions the integer segment [start, end] into
// up to splits contiguous sub-segments by point mass (per dist, a
// coordinate-value -> count map): the i-th cut is placed at the first
// coordinate whose cumulative count reaches i/splits of the total, and that
// coordinate opens the next sub-segment. Cuts that land on the same
// coordinate collapse, so fewer than splits sub-segments can result, and
// the resulting masses are not always the closest to equal that some other
// cut would give. If the segment carries no mass at all, it is
// returned whole as a single segment — an axis with no observed density
// is never split.
func divideSegmentByDensity(start, end uint64, dist map[uint64]int, splits int) [][2]uint64 {
	length := end - start + 1

	cdf := make([]int64, length)
	var cumulative int64
	for i := uint64(0); i < length; i++ {
		cumulative += int64(dist[start+i])
		cdf[i] = cumulative
	}

	total := cdf[len(cdf)-1]
	if total == 0 || splits <= 0 {
		return [][2]uint64{{start, end}}
	}

	boundaries := make([]uint64, splits+1)
	boundaries[0] = start
	boundaries[splits] = end + 1

	idx := 0
	for i := 1; i < splits; i++ {
		target := total * int64(i) / int64(splits)
		for idx < len(cdf) && cdf[idx] < target {
			idx++
		}
		boundaries[i] = start + uint64(idx)
	}

	var segments [][2]uint64
	last := boundaries[0]
	for i := 1; i <= splits; i++ {
		b := boundaries[i]
		if b <= last {
			continue
		}
		segments = append(segments, [2]uint64{last, b - 1})
		last = b
	}
	return segments
}
