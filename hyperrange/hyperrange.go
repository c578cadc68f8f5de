// Package hyperrange implements HyperRange, the axis-aligned hyperrectangle
// that every cover structure in this module partitions, covers, and
// serializes into EMM labels.
package hyperrange

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/rosualinpetru/ers-go"
	"github.com/rosualinpetru/ers-go/point"
)

// A HyperRange is a pair (Start, End) of same-dimension points with
// Start[i] <= End[i] for every axis i. HyperRanges are immutable, hashable
// (via Bytes), and compare by structural equality.
type HyperRange struct {
	start, end point.Point
}

// New constructs a HyperRange, validating that start and end share a
// dimension and that start[i] <= end[i] for every axis. Returns
// ers.ErrInvalidRange otherwise.
func New(start, end point.Point) (HyperRange, error) {
	if start.Dim() != end.Dim() {
		return HyperRange{}, fmt.Errorf("hyperrange: start dim %d, end dim %d: %w", start.Dim(), end.Dim(), ers.ErrInvalidRange)
	}
	for i := 0; i < start.Dim(); i++ {
		if start.Coord(i) > end.Coord(i) {
			return HyperRange{}, fmt.Errorf("hyperrange: axis %d start %d > end %d: %w", i, start.Coord(i), end.Coord(i), ers.ErrInvalidRange)
		}
	}
	return HyperRange{start: start, end: end}, nil
}

// MustNew is New, but panics on error. Intended for constructing fixed
// domains (e.g. the root of a cover tree) from constants, where an error
// indicates a programmer mistake rather than bad input.
func MustNew(start, end point.Point) HyperRange {
	r, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// Unit constructs the degenerate HyperRange [p, p].
func Unit(p point.Point) HyperRange {
	return HyperRange{start: p, end: p}
}

// FromBits returns the HyperRange [0,...,0]-[2^bits[0]-1,...,2^bits[d-1]-1],
// the full domain of a grid with the given per-axis bit widths.
func FromBits(bits []uint) HyperRange {
	start := make([]uint64, len(bits))
	end := make([]uint64, len(bits))
	for i, b := range bits {
		end[i] = (uint64(1) << b) - 1
	}
	return HyperRange{start: point.New(start...), end: point.New(end...)}
}

// Dim returns the range's dimension.
func (r HyperRange) Dim() int {
	return r.start.Dim()
}

// Start returns the range's minimum corner.
func (r HyperRange) Start() point.Point {
	return r.start
}

// End returns the range's maximum corner.
func (r HyperRange) End() point.Point {
	return r.end
}

// Equal reports structural equality: same start and end points.
func (r HyperRange) Equal(s HyperRange) bool {
	return r.start.Equal(s.start) && r.end.Equal(s.end)
}

// ContainsPoint reports whether p lies within r on every axis (inclusive).
// Panics if dimensions disagree.
func (r HyperRange) ContainsPoint(p point.Point) bool {
	if p.Dim() != r.Dim() {
		panic("hyperrange: dimension mismatch in ContainsPoint")
	}
	for i := 0; i < r.Dim(); i++ {
		if p.Coord(i) < r.start.Coord(i) || p.Coord(i) > r.end.Coord(i) {
			return false
		}
	}
	return true
}

// ContainsRange reports whether s is entirely contained within r. Panics if
// dimensions disagree.
func (r HyperRange) ContainsRange(s HyperRange) bool {
	if s.Dim() != r.Dim() {
		panic("hyperrange: dimension mismatch in ContainsRange")
	}
	for i := 0; i < r.Dim(); i++ {
		if s.start.Coord(i) < r.start.Coord(i) || s.end.Coord(i) > r.end.Coord(i) {
			return false
		}
	}
	return true
}

// Intersects reports whether r and s overlap on every axis.
func (r HyperRange) Intersects(s HyperRange) bool {
	if s.Dim() != r.Dim() {
		panic("hyperrange: dimension mismatch in Intersects")
	}
	for i := 0; i < r.Dim(); i++ {
		if r.start.Coord(i) > s.end.Coord(i) || s.start.Coord(i) > r.end.Coord(i) {
			return false
		}
	}
	return true
}

// IsUnit reports whether r is a single lattice point (start == end).
func (r HyperRange) IsUnit() bool {
	return r.start.Equal(r.end)
}

// AxisLen returns the number of lattice points r spans along axis i:
// end[i] - start[i] + 1.
func (r HyperRange) AxisLen(i int) uint64 {
	return r.end.Coord(i) - r.start.Coord(i) + 1
}

// Volume returns the number of lattice points contained in r: the product,
// over every axis, of AxisLen(i). Returned as a big.Int because the product
// of per-axis extents can exceed 64 bits even when every axis individually
// fits in uint64.
func (r HyperRange) Volume() *big.Int {
	v := big.NewInt(1)
	for i := 0; i < r.Dim(); i++ {
		v.Mul(v, new(big.Int).SetUint64(r.AxisLen(i)))
	}
	return v
}

// Points enumerates every lattice point contained in r, in lexicographic
// order. This is exponential in both dimension and per-axis extent; callers
// must only use it at the small scales the specification calls for (tests
// and dense toy datasets), never on a production-sized domain.
func (r HyperRange) Points() []point.Point {
	dim := r.Dim()
	total := r.Volume()
	if !total.IsUint64() {
		panic("hyperrange: Points() called on a range too large to enumerate")
	}

	pts := make([]point.Point, 0, total.Uint64())
	coords := make([]uint64, dim)
	copy(coords, r.start.Coords())

	for {
		pts = append(pts, point.New(coords...))

		// Odometer increment, least-significant axis first.
		i := dim - 1
		for i >= 0 {
			if coords[i] < r.end.Coord(i) {
				coords[i]++
				break
			}
			coords[i] = r.start.Coord(i)
			i--
		}
		if i < 0 {
			break
		}
	}
	return pts
}

// BoundaryPoints returns every lattice point lying on a face of r: all 2^d
// corners, plus, for every pair of corners differing in exactly one axis,
// the lattice points strictly between them along that axis. For d=1 this
// degenerates to {Start, End}.
func (r HyperRange) BoundaryPoints() []point.Point {
	dim := r.Dim()

	if dim == 1 {
		if r.start.Equal(r.end) {
			return []point.Point{r.start}
		}
		return []point.Point{r.start, r.end}
	}

	corners := r.corners()
	seen := make(map[string]point.Point)
	add := func(p point.Point) {
		seen[string(p.Bytes())] = p
	}
	for _, c := range corners {
		add(c)
	}

	for i, a := range corners {
		for _, b := range corners[i+1:] {
			axis, ok := differsInExactlyOneAxis(a, b)
			if !ok {
				continue
			}
			lo, hi := a.Coord(axis), b.Coord(axis)
			if lo > hi {
				lo, hi = hi, lo
			}
			for v := lo; v <= hi; v++ {
				coords := a.Coords()
				coords[axis] = v
				add(point.New(coords...))
			}
		}
	}

	out := make([]point.Point, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	return out
}

// corners returns the 2^d corner points of r (every combination of start/end
// per axis).
func (r HyperRange) corners() []point.Point {
	dim := r.Dim()
	n := 1 << uint(dim)
	out := make([]point.Point, 0, n)
	coords := make([]uint64, dim)
	for mask := 0; mask < n; mask++ {
		for i := 0; i < dim; i++ {
			if mask&(1<<uint(i)) != 0 {
				coords[i] = r.end.Coord(i)
			} else {
				coords[i] = r.start.Coord(i)
			}
		}
		coords2 := make([]uint64, dim)
		copy(coords2, coords)
		out = append(out, point.New(coords2...))
	}
	return out
}

// differsInExactlyOneAxis reports whether a and b differ on exactly one
// axis, returning that axis index.
func differsInExactlyOneAxis(a, b point.Point) (int, bool) {
	axis := -1
	for i := 0; i < a.Dim(); i++ {
		if a.Coord(i) != b.Coord(i) {
			if axis != -1 {
				return 0, false
			}
			axis = i
		}
	}
	if axis == -1 {
		return 0, false
	}
	return axis, true
}

// Bytes returns the canonical byte-form encoding of r: a uvarint dimension
// prefix, then for every axis, uvarint(start[i]) followed by uvarint(end[i]).
// Varints are self-delimiting, so this encoding is injective: any two
// structurally distinct HyperRanges produce different bytes. This is the
// label space handed to the EMM engine.
func (r HyperRange) Bytes() []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(tmp[:], uint64(r.Dim()))
	buf.Write(tmp[:n])

	for i := 0; i < r.Dim(); i++ {
		n := binary.PutUvarint(tmp[:], r.start.Coord(i))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], r.end.Coord(i))
		buf.Write(tmp[:n])
	}
	return buf.Bytes()
}

func (r HyperRange) String() string {
	return fmt.Sprintf("HyperRange%v-%v", r.start.Coords(), r.end.Coords())
}
