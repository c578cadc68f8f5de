// Package point implements Point, the immutable d-dimensional integer
// coordinate tuple that every other ERS package builds on.
package point

import (
	"bytes"
	"encoding/binary"
)

// A Point is an immutable, ordered tuple of d >= 1 nonnegative integer
// coordinates. Two points are equal iff they have the same dimension and
// identical coordinates at every axis.
type Point struct {
	coords []uint64
}

// New returns a Point with the given coordinates, in axis order. The slice
// is copied; mutating coords after New returns has no effect on the Point.
func New(coords ...uint64) Point {
	c := make([]uint64, len(coords))
	copy(c, coords)
	return Point{coords: c}
}

// Origin returns the all-zero point of the given dimension.
func Origin(dim int) Point {
	return Point{coords: make([]uint64, dim)}
}

// Dim returns the point's dimension.
func (p Point) Dim() int {
	return len(p.coords)
}

// Coord returns the point's coordinate along axis i.
func (p Point) Coord(i int) uint64 {
	return p.coords[i]
}

// Coords returns a copy of the point's coordinates.
func (p Point) Coords() []uint64 {
	c := make([]uint64, len(p.coords))
	copy(c, p.coords)
	return c
}

// Equal reports whether p and q have the same dimension and coordinates.
func (p Point) Equal(q Point) bool {
	if len(p.coords) != len(q.coords) {
		return false
	}
	for i, c := range p.coords {
		if c != q.coords[i] {
			return false
		}
	}
	return true
}

// Less reports whether p sorts before q under lexicographic order on
// coordinates. Panics if p and q have different dimensions.
func (p Point) Less(q Point) bool {
	if len(p.coords) != len(q.coords) {
		panic("point: dimension mismatch in Less")
	}
	for i, c := range p.coords {
		if c != q.coords[i] {
			return c < q.coords[i]
		}
	}
	return false
}

// StrictlyLess reports whether every coordinate of p is strictly less than
// the corresponding coordinate of q. This is the "less-than" relation used
// internally by range containment checks, distinct from the lexicographic
// total order exposed by Less. Panics if p and q have different dimensions.
func (p Point) StrictlyLess(q Point) bool {
	if len(p.coords) != len(q.coords) {
		panic("point: dimension mismatch in StrictlyLess")
	}
	for i, c := range p.coords {
		if c >= q.coords[i] {
			return false
		}
	}
	return true
}

// Add returns the coordinatewise sum of p and deltas, which must have the
// same dimension as p.
func (p Point) Add(deltas []int64) Point {
	if len(deltas) != len(p.coords) {
		panic("point: dimension mismatch in Add")
	}
	out := make([]uint64, len(p.coords))
	for i, c := range p.coords {
		out[i] = uint64(int64(c) + deltas[i])
	}
	return Point{coords: out}
}

// Bytes returns the canonical byte-form encoding of p: a uvarint dimension
// prefix followed by one uvarint per coordinate, in axis order. Varints are
// self-delimiting, so this encoding is injective for any fixed dimension,
// and the leading dimension prefix makes it injective across dimensions too.
func (p Point) Bytes() []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(p.coords)))
	buf.Write(tmp[:n])
	for _, c := range p.coords {
		n := binary.PutUvarint(tmp[:], c)
		buf.Write(tmp[:n])
	}
	return buf.Bytes()
}
