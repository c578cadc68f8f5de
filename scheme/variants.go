package scheme

import (
	"github.com/rosualinpetru/ers-go/covertree"
	"github.com/rosualinpetru/ers-go/divider"
	"github.com/rosualinpetru/ers-go/hilbert"
	"github.com/rosualinpetru/ers-go/hyperrange"
	"github.com/rosualinpetru/ers-go/point"
	"github.com/rosualinpetru/ers-go/rangetreeproduct"
	"github.com/rosualinpetru/ers-go/scaler"
)

// NewLinear returns the no-index baseline: every point is its own label,
// and a query's trapdoor enumerates every point the query range contains.
// Exact recall, O(|query volume|) trapdoor size. Always BRC-class.
func NewLinear(bits []uint) *Scheme {
	root := hyperrange.FromBits(bits)
	return &Scheme{
		kind:  Linear,
		mode:  modeBRC,
		dim:   len(bits),
		root:  root,
		cover: linearCover{},
	}
}

// NewRangeBRC returns the per-axis uniform-split product-of-trees variant:
// one 1-D Uniform(splitFactor) tree per axis, queried by BRC. Exact recall.
func NewRangeBRC(bits []uint, splitFactor int) (*Scheme, error) {
	dd := make([]divider.Divider, len(bits))
	for i := range bits {
		dd[i] = divider.NewUniform(splitFactor)
	}
	return buildProduct(RangeBRC, modeBRC, bits, dd)
}

// NewQuadBRC returns the single d-D quadtree variant: one Uniform(2) tree
// over the full d-D domain, queried by BRC. Exact recall.
func NewQuadBRC(bits []uint) (*Scheme, error) {
	return buildTree(QuadBRC, modeBRC, bits, divider.NewUniform(2))
}

// NewQuadSRC returns the single d-D quadtree variant queried by SRC: one
// Uniform(2) tree over the full d-D domain, a single superset label per
// query.
func NewQuadSRC(bits []uint) (*Scheme, error) {
	return buildTree(QuadSRC, modeSRC, bits, divider.NewUniform(2))
}

// NewTdagSRC returns the overlapping mid-split (TDAG) tree variant queried
// by SRC: one UniformMidOverlap(2) tree over the full d-D domain.
func NewTdagSRC(bits []uint) (*Scheme, error) {
	return buildTree(TdagSRC, modeSRC, bits, divider.NewUniformMidOverlap(2))
}

// NewDataDependentRangeBRC returns the data-dependent per-axis product
// variant: one 1-D DataDependent(splitFactor, .) tree per axis, queried by
// BRC. points must be exactly the d-D point set BuildIndex will later
// receive, since the tree shape is derived from their per-axis density.
func NewDataDependentRangeBRC(bits []uint, splitFactor int, points []point.Point) (*Scheme, error) {
	dd := make([]divider.Divider, len(bits))
	for i := range bits {
		dd[i] = divider.NewDataDependent(splitFactor, projectAxis(points, i))
	}
	return buildProduct(DataDependentRangeBRC, modeBRC, bits, dd)
}

// NewDataDependentQuadSRC returns the single d-D data-dependent quadtree
// variant queried by SRC: one DataDependent(2, points) tree over the full
// d-D domain.
func NewDataDependentQuadSRC(bits []uint, points []point.Point) (*Scheme, error) {
	return buildTree(DataDependentQuadSRC, modeSRC, bits, divider.NewDataDependent(2, points))
}

// NewLinearHilbert returns the Hilbert-projected no-index baseline: points
// are projected to their 1-D Hilbert distance, and a query's cover is the
// point-by-point enumeration of every distance BRCWithMerging(query,
// mergeTau) yields. dim*bits must not exceed 64 (panics otherwise), since
// every projected distance must fit in a uint64 point.Point coordinate.
//
// downscaleBits, per §4.8, is the optional pre-Hilbert query downscale: a
// query is shrunk by downscaleBits bits per axis before the boundary walk,
// trading precision (a coarser, possibly slightly larger cover) for a
// cheaper walk over a lower-resolution curve. 0 disables downscaling.
// Panics if downscaleBits >= bits.
func NewLinearHilbert(bits uint, dim int, mergeTau float64, downscaleBits uint) *Scheme {
	checkHilbertBudget(bits, dim)
	checkDownscaleBudget(bits, downscaleBits)
	curve := hilbert.New(bits, dim)
	return &Scheme{
		kind:          LinearHilbert,
		mode:          modeBRC,
		dim:           dim,
		root:          hyperrange.FromBits(repeat(bits, dim)),
		cover:         linearCover{},
		curve:         &curve,
		mergeTau:      mergeTau,
		downscaleBits: downscaleBits,
		scale:         scaler.New(bits),
	}
}

// NewRangeBRCHilbert returns the Hilbert-projected quadtree variant queried
// by BRC: points are projected to their Hilbert distance and indexed by a
// single 1-D Uniform(2) tree over the projected domain. downscaleBits is
// the same optional pre-Hilbert query downscale as NewLinearHilbert's.
func NewRangeBRCHilbert(bits uint, dim int, mergeTau float64, downscaleBits uint) (*Scheme, error) {
	checkHilbertBudget(bits, dim)
	checkDownscaleBudget(bits, downscaleBits)
	curve := hilbert.New(bits, dim)
	projectedRoot := hyperrange.FromBits([]uint{bits * uint(dim)})
	t, err := covertree.Build(projectedRoot, divider.NewUniform(2))
	if err != nil {
		return nil, err
	}
	return &Scheme{
		kind:          RangeBRCHilbert,
		mode:          modeBRC,
		dim:           dim,
		root:          hyperrange.FromBits(repeat(bits, dim)),
		cover:         treeCover{t: t},
		curve:         &curve,
		mergeTau:      mergeTau,
		downscaleBits: downscaleBits,
		scale:         scaler.New(bits),
	}, nil
}

// NewTdagSRCHilbert returns the Hilbert-projected TDAG variant queried by
// SRC: points are projected to their Hilbert distance, indexed by a single
// 1-D UniformMidOverlap(2) tree over the projected domain, and a query is
// covered by the curve's own SRC (a single contiguous distance interval,
// not BRCWithMerging).
func NewTdagSRCHilbert(bits uint, dim int) (*Scheme, error) {
	checkHilbertBudget(bits, dim)
	curve := hilbert.New(bits, dim)
	projectedRoot := hyperrange.FromBits([]uint{bits * uint(dim)})
	t, err := covertree.Build(projectedRoot, divider.NewUniformMidOverlap(2))
	if err != nil {
		return nil, err
	}
	return &Scheme{
		kind:  TdagSRCHilbert,
		mode:  modeSRC,
		dim:   dim,
		root:  hyperrange.FromBits(repeat(bits, dim)),
		cover: treeCover{t: t},
		curve: &curve,
	}, nil
}

// checkHilbertBudget panics if the projected Hilbert distance for a point
// in this curve could not fit in a uint64 point.Point coordinate.
func checkHilbertBudget(bits uint, dim int) {
	if bits*uint(dim) > 64 {
		panic("scheme: bits*dim exceeds 64, projected Hilbert distance would not fit in a uint64 coordinate")
	}
}

// checkDownscaleBudget panics if downscaleBits would reduce the curve
// below order 1, which hilbert.New itself rejects.
func checkDownscaleBudget(bits, downscaleBits uint) {
	if downscaleBits >= bits {
		panic("scheme: downscaleBits must be < bits")
	}
}

func repeat(bits uint, n int) []uint {
	out := make([]uint, n)
	for i := range out {
		out[i] = bits
	}
	return out
}

// projectAxis returns the 1-D projection of points onto axis i, the point
// set a per-axis DataDependent divider computes its density from.
func projectAxis(points []point.Point, axis int) []point.Point {
	out := make([]point.Point, len(points))
	for i, p := range points {
		out[i] = point.New(p.Coord(axis))
	}
	return out
}

func buildTree(kind Kind, mode queryMode, bits []uint, d divider.Divider) (*Scheme, error) {
	root := hyperrange.FromBits(bits)
	t, err := covertree.Build(root, d)
	if err != nil {
		return nil, err
	}
	return &Scheme{
		kind:  kind,
		mode:  mode,
		dim:   len(bits),
		root:  root,
		cover: treeCover{t: t},
	}, nil
}

func buildProduct(kind Kind, mode queryMode, bits []uint, dd []divider.Divider) (*Scheme, error) {
	root := hyperrange.FromBits(bits)
	trees := make([]*covertree.Tree, len(bits))
	for i, b := range bits {
		axisRoot := hyperrange.FromBits([]uint{b})
		t, err := covertree.Build(axisRoot, dd[i])
		if err != nil {
			return nil, err
		}
		trees[i] = t
	}
	return &Scheme{
		kind:  kind,
		mode:  mode,
		dim:   len(bits),
		root:  root,
		cover: productCover{p: rangetreeproduct.New(trees)},
	}, nil
}
