// Package scheme composes the range-cover index layer (divider, covertree,
// rangetreeproduct, hilbert) with the EMM engine into the concrete scheme
// variants of §4.7: every scheme in the source is a composition of a cover
// strategy (none / per-axis product / single d-D tree), a query mode
// (exact BRC-class / superset SRC-class), an optional Hilbert projection,
// and a divider choice — modeled here as composition, not the ~15-deep
// inheritance hierarchy of the source.
package scheme

import (
	"fmt"

	"github.com/rosualinpetru/ers-go"
	"github.com/rosualinpetru/ers-go/covertree"
	"github.com/rosualinpetru/ers-go/emm"
	"github.com/rosualinpetru/ers-go/hilbert"
	"github.com/rosualinpetru/ers-go/hyperrange"
	"github.com/rosualinpetru/ers-go/point"
	"github.com/rosualinpetru/ers-go/rangetreeproduct"
	"github.com/rosualinpetru/ers-go/scaler"
)

// Kind names one of the ten concrete scheme variants of §4.7.
type Kind int

const (
	Linear Kind = iota
	RangeBRC
	QuadBRC
	QuadSRC
	TdagSRC
	DataDependentRangeBRC
	DataDependentQuadSRC
	LinearHilbert
	RangeBRCHilbert
	TdagSRCHilbert
)

func (k Kind) String() string {
	switch k {
	case Linear:
		return "Linear"
	case RangeBRC:
		return "RangeBRC"
	case QuadBRC:
		return "QuadBRC"
	case QuadSRC:
		return "QuadSRC"
	case TdagSRC:
		return "TdagSRC"
	case DataDependentRangeBRC:
		return "DataDependentRangeBRC"
	case DataDependentQuadSRC:
		return "DataDependentQuadSRC"
	case LinearHilbert:
		return "LinearHilbert"
	case RangeBRCHilbert:
		return "RangeBRCHilbert"
	case TdagSRCHilbert:
		return "TdagSRCHilbert"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// queryMode selects how Trapdoor turns a query into a label set: brc
// (exact, possibly empty if the query misses the domain) or src (a single
// superset label, an error if the query isn't contained in the domain).
type queryMode int

const (
	modeBRC queryMode = iota
	modeSRC
)

// coverStructure is the shape common to covertree.Tree, rangetreeproduct.Product,
// and the trivial Linear cover: descend labels a point for build_index;
// brc/src label a query for trapdoor.
type coverStructure interface {
	descend(p point.Point) []hyperrange.HyperRange
	brc(q hyperrange.HyperRange) []hyperrange.HyperRange
	src(q hyperrange.HyperRange) (hyperrange.HyperRange, bool)
}

// linearCover is the trivial no-index cover: every point labels itself
// (the unit range at that point), and a query's BRC is simply every point
// it contains, each as its own unit-range label. It has no meaningful SRC
// (there is no tree to ascend), so src always reports not-found — Linear
// is always a BRC-class scheme.
type linearCover struct{}

func (linearCover) descend(p point.Point) []hyperrange.HyperRange {
	return []hyperrange.HyperRange{hyperrange.Unit(p)}
}

func (linearCover) brc(q hyperrange.HyperRange) []hyperrange.HyperRange {
	pts := q.Points()
	out := make([]hyperrange.HyperRange, len(pts))
	for i, p := range pts {
		out[i] = hyperrange.Unit(p)
	}
	return out
}

func (linearCover) src(hyperrange.HyperRange) (hyperrange.HyperRange, bool) {
	return hyperrange.HyperRange{}, false
}

// treeCover adapts a single d-D covertree.Tree (used directly by the
// non-product tree variants: QuadBRC, QuadSRC, TdagSRC,
// DataDependentQuadSRC, and the RangeBRCHilbert and TdagSRCHilbert variants
// operating on their projected 1-D tree; LinearHilbert uses linearCover).
type treeCover struct {
	t *covertree.Tree
}

func (c treeCover) descend(p point.Point) []hyperrange.HyperRange {
	return c.t.Descend(hyperrange.Unit(p))
}

func (c treeCover) brc(q hyperrange.HyperRange) []hyperrange.HyperRange {
	return c.t.BRC(q)
}

func (c treeCover) src(q hyperrange.HyperRange) (hyperrange.HyperRange, bool) {
	return c.t.SRC(q)
}

// productCover adapts a rangetreeproduct.Product of per-axis 1-D trees
// (used by RangeBRC and DataDependentRangeBRC).
type productCover struct {
	p *rangetreeproduct.Product
}

func (c productCover) descend(p point.Point) []hyperrange.HyperRange {
	return c.p.Descend(p)
}

func (c productCover) brc(q hyperrange.HyperRange) []hyperrange.HyperRange {
	return c.p.BRC(q)
}

func (c productCover) src(q hyperrange.HyperRange) (hyperrange.HyperRange, bool) {
	return c.p.SRC(q)
}

// PointValues pairs a plaintext point with its (possibly multi-valued)
// payload — one entry of the Map<Point, list<bytes>> build_index takes.
type PointValues struct {
	Point  point.Point
	Values [][]byte
}

// Plaintext is the input to BuildIndex: an unordered list of point/value
// pairs. point.Point is not map-keyable (it wraps a slice), so this is a
// slice rather than a Go map.
type Plaintext []PointValues

// A Scheme is one configured instance of a §4.7 variant: a fixed cover
// structure (and, for Hilbert variants, a fixed projection), built once and
// queried many times. The engine holds no state beyond dim/bits/cover — the
// key is never stored and is passed by value on every operation; only the
// built EncryptedDB is scheme-owned state.
type Scheme struct {
	kind Kind
	mode queryMode
	dim  int
	root hyperrange.HyperRange // the scheme's full domain, in original point space

	cover    coverStructure
	curve    *hilbert.Curve // non-nil only for the three Hilbert variants
	mergeTau float64        // brc_with_merging tolerance (Hilbert BRC-class only)

	// downscaleBits and scale implement §4.8's optional pre-Hilbert query
	// downscale: when downscaleBits > 0, a BRC-class Hilbert query is
	// shrunk by scale before the (cheaper, lower-resolution) boundary walk,
	// and the resulting 1-D ranges are shifted back up by scale afterward.
	// Unused (downscaleBits == 0) by TdagSRCHilbert, which always covers
	// at full resolution via the curve's own SRC.
	downscaleBits uint
	scale         scaler.Scaler

	db    emm.EncryptedDB
	built bool
}

func (s *Scheme) Kind() Kind { return s.kind }
func (s *Scheme) Dim() int   { return s.dim }

// Setup returns n fresh random bytes as a master key, per §4.6.
func (s *Scheme) Setup(n int) ([]byte, error) {
	return emm.Setup(n)
}

// project maps p into the scheme's labeling space: unchanged for
// non-Hilbert variants, or its Hilbert distance (as a 1-D point) for
// Hilbert variants. Every Hilbert constructor validates dim*bits <= 64 at
// construction time, so the conversion below never truncates.
func (s *Scheme) project(p point.Point) point.Point {
	if s.curve == nil {
		return p
	}
	d := s.curve.DistanceFromPoint(p)
	return point.New(d.Uint64())
}

func (s *Scheme) descendLabels(p point.Point) []hyperrange.HyperRange {
	return s.cover.descend(s.project(p))
}

// BuildIndex encrypts pts into the scheme's EncryptedDB: for each point,
// every label its cover's descend returns gets that point's values
// appended, then the accumulated label -> values multimap is handed to
// emm.Build.
func (s *Scheme) BuildIndex(key []byte, pts Plaintext) error {
	modified := map[string][][]byte{}
	for _, pv := range pts {
		if pv.Point.Dim() != s.dim {
			return fmt.Errorf("scheme: point dimension %d != scheme dimension %d: %w", pv.Point.Dim(), s.dim, ers.ErrDimensionMismatch)
		}
		for _, r := range s.descendLabels(pv.Point) {
			k := string(r.Bytes())
			modified[k] = append(modified[k], pv.Values...)
		}
	}

	db, err := emm.Build(key, modified)
	if err != nil {
		return err
	}
	s.db = db
	s.built = true
	return nil
}

// queryLabels turns a d-D query range into the set of label ranges
// Trapdoor issues one token per. For Hilbert variants the query is first
// projected through brc_with_merging (BRC-class) or the curve's own SRC
// (TdagSRCHilbert) into 1-D distance intervals, each of which is then
// covered by the scheme's 1-D cover structure in turn.
func (s *Scheme) queryLabels(q hyperrange.HyperRange) ([]hyperrange.HyperRange, error) {
	if s.curve == nil {
		return s.queryLabelsDirect(q)
	}
	return s.queryLabelsHilbert(q)
}

func (s *Scheme) queryLabelsDirect(q hyperrange.HyperRange) ([]hyperrange.HyperRange, error) {
	switch s.mode {
	case modeSRC:
		if !s.root.ContainsRange(q) {
			return nil, fmt.Errorf("scheme: query %v not contained in domain %v: %w", q, s.root, ers.ErrQueryOutOfDomain)
		}
		r, ok := s.cover.src(q)
		if !ok {
			return nil, fmt.Errorf("scheme: query %v not contained in domain: %w", q, ers.ErrQueryOutOfDomain)
		}
		return []hyperrange.HyperRange{r}, nil
	default:
		// BRC-class: an empty cover (query misses the domain entirely) is
		// a legitimate, non-error outcome.
		return s.cover.brc(q), nil
	}
}

func (s *Scheme) queryLabelsHilbert(q hyperrange.HyperRange) ([]hyperrange.HyperRange, error) {
	if s.mode == modeSRC {
		if !s.root.ContainsRange(q) {
			return nil, fmt.Errorf("scheme: query %v not contained in domain %v: %w", q, s.root, ers.ErrQueryOutOfDomain)
		}
		iv := s.curve.SRC(q)
		ivRange := intervalRange(iv)
		r, ok := s.cover.src(ivRange)
		if !ok {
			return nil, fmt.Errorf("scheme: hilbert interval %v not contained in projected domain: %w", ivRange, ers.ErrQueryOutOfDomain)
		}
		return []hyperrange.HyperRange{r}, nil
	}

	curve := *s.curve
	query := q
	if s.downscaleBits > 0 {
		query = s.scale.Downscale(s.downscaleBits, q)
		curve = hilbert.New(curve.Bits()-s.downscaleBits, curve.Dims())
	}

	intervals := curve.BRCWithMerging(query, s.mergeTau)
	if s.downscaleBits > 0 {
		intervals = s.scale.UpscaleIntervals(s.downscaleBits, intervals)
	}

	var out []hyperrange.HyperRange
	for _, iv := range intervals {
		out = append(out, s.cover.brc(intervalRange(iv))...)
	}
	return out, nil
}

func intervalRange(iv hilbert.Interval) hyperrange.HyperRange {
	return hyperrange.MustNew(point.New(iv.Start.Uint64()), point.New(iv.End.Uint64()))
}

// Trapdoor returns one token per label Trapdoor's cover computation
// derives for query, per §4.6/§4.4/§4.5. Returns ers.ErrIndexNotBuilt if
// BuildIndex has not run, ers.ErrDimensionMismatch if query's dimension
// disagrees with the scheme's, and ers.ErrQueryOutOfDomain for SRC-class
// schemes whose query is not contained in the domain.
func (s *Scheme) Trapdoor(key []byte, query hyperrange.HyperRange) ([][]byte, error) {
	if !s.built {
		return nil, ers.ErrIndexNotBuilt
	}
	if query.Dim() != s.dim {
		return nil, fmt.Errorf("scheme: query dimension %d != scheme dimension %d: %w", query.Dim(), s.dim, ers.ErrDimensionMismatch)
	}

	labels, err := s.queryLabels(query)
	if err != nil {
		return nil, err
	}

	tokens := make([][]byte, len(labels))
	for i, l := range labels {
		tokens[i] = emm.Trapdoor(key, l.Bytes())
	}
	return tokens, nil
}

// Search probes every token's Search path and returns the union of
// ciphertext values found, deduplicated (ciphertexts are byte-identical
// only when the same entry is reached twice, which happens when tokens
// holds the same token more than once; distinct tokens probe distinct
// labels, and every entry carries its own random nonce).
func (s *Scheme) Search(tokens [][]byte) ([][]byte, error) {
	if !s.built {
		return nil, ers.ErrIndexNotBuilt
	}

	seen := map[string]bool{}
	var out [][]byte
	for _, token := range tokens {
		for _, ct := range emm.Search(token, s.db) {
			k := string(ct)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, ct)
		}
	}
	return out, nil
}

// Resolve decrypts every ciphertext value and deduplicates the resulting
// plaintexts by content: overlapping (TDAG) covers can independently
// encrypt the same point's value under more than one ancestor label, and
// those decrypt to byte-identical plaintexts even though their ciphertexts
// differ (random nonces).
func (s *Scheme) Resolve(key []byte, ciphertexts [][]byte) ([][]byte, error) {
	plaintexts, err := emm.Resolve(key, ciphertexts)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	out := make([][]byte, 0, len(plaintexts))
	for _, pt := range plaintexts {
		k := string(pt)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, pt)
	}
	return out, nil
}
