// Package hilbert implements the Hilbert space-filling curve: a bijection
// between integer points in [0, 2^k)^d and distances in [0, 2^(dk)), plus
// the boundary-walk range decomposition (BRC-with-merging and SRC) used by
// the Hilbert-projected scheme variants.
//
// The bijection is the standard Skilling axes<->transpose construction (the
// same one the reference hilbertcurve package implements): distances are
// formed by interleaving the bit planes of the per-axis transpose form,
// most significant bit plane first, axis-major within each plane.
package hilbert

import (
	"math/big"
	"sort"

	"github.com/rosualinpetru/ers-go/hyperrange"
	"github.com/rosualinpetru/ers-go/point"
)

// A Curve is a Hilbert curve over [0, 2^Bits)^Dims, parameterized by Bits
// (the per-axis order, i.e. bits per dimension) and Dims (the number of
// dimensions). Distances lie in [0, 2^(Bits*Dims)).
type Curve struct {
	bits uint
	dims int
}

// New returns the Hilbert curve of the given per-axis bit width and
// dimension count.
func New(bits uint, dims int) Curve {
	if bits == 0 || bits >= 64 || dims < 1 {
		panic("hilbert: bits must be in [1, 63] and dims must be >= 1")
	}
	return Curve{bits: bits, dims: dims}
}

// Bits returns the curve's per-axis bit width.
func (c Curve) Bits() uint {
	return c.bits
}

// Dims returns the curve's dimension count.
func (c Curve) Dims() int {
	return c.dims
}

// DistanceFromPoint maps a point in [0, 2^Bits)^Dims to its distance along
// the curve, in [0, 2^(Bits*Dims)).
func (c Curve) DistanceFromPoint(p point.Point) *big.Int {
	if p.Dim() != c.dims {
		panic("hilbert: point dimension mismatch")
	}

	x := p.Coords()
	axesToTranspose(x, c.bits)
	return transposeToDistance(x, c.bits)
}

// PointFromDistance maps a distance in [0, 2^(Bits*Dims)) back to its point
// in [0, 2^Bits)^Dims.
func (c Curve) PointFromDistance(d *big.Int) point.Point {
	x := distanceToTranspose(d, c.bits, c.dims)
	transposeToAxes(x, c.bits)
	return point.New(x...)
}

// Interval is a closed, contiguous interval of Hilbert distances [Start,
// End].
type Interval struct {
	Start, End *big.Int
}

// SRC returns the single-range cover of rng along the curve: the smallest
// closed distance interval containing every boundary distance of rng. This
// is a superset cover — it may include distances whose points fall outside
// rng — but it never excludes a distance that should be included.
func (c Curve) SRC(rng hyperrange.HyperRange) Interval {
	ds := c.sortedBoundaryDistances(rng)
	return Interval{Start: ds[0], End: ds[len(ds)-1]}
}

// BRC returns BRCWithMerging(rng, 0): the strict best range cover, with no
// gap merging.
func (c Curve) BRC(rng hyperrange.HyperRange) []Interval {
	return c.BRCWithMerging(rng, 0)
}

// BRCWithMerging decomposes rng into a list of contiguous Hilbert-distance
// intervals, per the boundary-walk algorithm: boundary distances are sorted,
// and adjacent distances are merged into one interval either because they
// are already contiguous, because the curve point one step ahead still
// lies inside rng (an interior excursion of the curve), or because the gap
// to the next boundary distance is smaller than tau * volume(rng) and is
// therefore absorbed rather than left as a separate interval.
//
// tau=0 closes every gap that leaves rng (strict BRC, no false positives
// beyond the curve's own interior excursions). tau=1 absorbs every gap
// shorter than volume(rng); a gap of volume(rng) or more that leaves rng
// still closes the interval, so the result is not always a single interval.
func (c Curve) BRCWithMerging(rng hyperrange.HyperRange, tau float64) []Interval {
	ds := c.sortedBoundaryDistances(rng)

	threshold := new(big.Float).Mul(new(big.Float).SetInt(rng.Volume()), big.NewFloat(tau))

	var out []Interval
	i := 0
	for i < len(ds) {
		start := ds[i]
		end := start

		for i+1 < len(ds) {
			gap := new(big.Int).Sub(ds[i+1], ds[i])
			if gap.Cmp(big.NewInt(1)) == 0 {
				end = ds[i+1]
				i++
				continue
			}

			next := new(big.Int).Add(ds[i], big.NewInt(1))
			nextPoint := c.PointFromDistance(next)

			if rng.ContainsPoint(nextPoint) {
				end = ds[i+1]
			} else if new(big.Float).SetInt(gap).Cmp(threshold) >= 0 {
				break
			} else {
				end = ds[i+1]
			}
			i++
		}

		out = append(out, Interval{Start: start, End: end})
		i++
	}
	return out
}

func (c Curve) sortedBoundaryDistances(rng hyperrange.HyperRange) []*big.Int {
	bps := rng.BoundaryPoints()
	ds := make([]*big.Int, len(bps))
	for i, p := range bps {
		ds[i] = c.DistanceFromPoint(p)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Cmp(ds[j]) < 0 })
	return ds
}

// axesToTranspose converts x, a point's per-axis coordinates (each in
// [0, 2^bits)), in place into its Hilbert transpose form.
func axesToTranspose(x []uint64, bits uint) {
	n := len(x)
	m := uint64(1) << (bits - 1)

	for q := m; q > 1; q >>= 1 {
		p := q - 1
		for i := 0; i < n; i++ {
			if x[i]&q != 0 {
				x[0] ^= p
			} else {
				t := (x[0] ^ x[i]) & p
				x[0] ^= t
				x[i] ^= t
			}
		}
	}

	for i := 1; i < n; i++ {
		x[i] ^= x[i-1]
	}

	var t uint64
	for q := m; q > 1; q >>= 1 {
		if x[n-1]&q != 0 {
			t ^= q - 1
		}
	}
	for i := 0; i < n; i++ {
		x[i] ^= t
	}
}

// transposeToAxes is the inverse of axesToTranspose.
func transposeToAxes(x []uint64, bits uint) {
	n := len(x)
	m := uint64(1) << (bits - 1)

	t := x[n-1] >> 1
	for i := n - 1; i > 0; i-- {
		x[i] ^= x[i-1]
	}
	x[0] ^= t

	for q := uint64(2); q != m<<1; q <<= 1 {
		p := q - 1
		for i := n - 1; i >= 0; i-- {
			if x[i]&q != 0 {
				x[0] ^= p
			} else {
				t := (x[0] ^ x[i]) & p
				x[0] ^= t
				x[i] ^= t
			}
		}
	}
}

// transposeToDistance packs the transpose form x into a single Hilbert
// distance, interleaving bit planes from most significant to least
// significant, axis-major within each plane.
func transposeToDistance(x []uint64, bits uint) *big.Int {
	n := len(x)
	d := new(big.Int)
	bitPos := int(bits)*n - 1
	for level := int(bits) - 1; level >= 0; level-- {
		for i := 0; i < n; i++ {
			if (x[i]>>uint(level))&1 != 0 {
				d.SetBit(d, bitPos, 1)
			}
			bitPos--
		}
	}
	return d
}

// distanceToTranspose is the inverse of transposeToDistance.
func distanceToTranspose(d *big.Int, bits uint, n int) []uint64 {
	x := make([]uint64, n)
	bitPos := int(bits)*n - 1
	for level := int(bits) - 1; level >= 0; level-- {
		for i := 0; i < n; i++ {
			if d.Bit(bitPos) != 0 {
				x[i] |= uint64(1) << uint(level)
			}
			bitPos--
		}
	}
	return x
}
