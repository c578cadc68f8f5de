package scheme_test

import (
	"testing"

	"github.com/rosualinpetru/ers-go/hyperrange"
	"github.com/rosualinpetru/ers-go/point"
	"github.com/rosualinpetru/ers-go/scheme"
)

func pointLabel(p point.Point) string {
	return string(p.Bytes())
}

func valueSet(t *testing.T, values [][]byte) map[string]bool {
	t.Helper()
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[string(v)] = true
	}
	return set
}

func queryAndResolve(t *testing.T, s *scheme.Scheme, key []byte, query hyperrange.HyperRange) [][]byte {
	t.Helper()
	tokens, err := s.Trapdoor(key, query)
	if err != nil {
		t.Fatalf("Trapdoor: %v", err)
	}
	cts, err := s.Search(tokens)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	pts, err := s.Resolve(key, cts)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return pts
}

// S1: Linear d=2, 3-bit domain, 3 points, full-domain query returns every
// inserted value.
func TestS1LinearFullDomainReturnsEverything(t *testing.T) {
	s := scheme.NewLinear([]uint{3, 3})
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}

	pts := scheme.Plaintext{
		{Point: point.New(1, 1), Values: [][]byte{[]byte("a")}},
		{Point: point.New(2, 2), Values: [][]byte{[]byte("b")}},
		{Point: point.New(5, 5), Values: [][]byte{[]byte("c")}},
	}
	if err := s.BuildIndex(key, pts); err != nil {
		t.Fatal(err)
	}

	query := hyperrange.FromBits([]uint{3, 3})
	got := valueSet(t, queryAndResolve(t, s, key, query))

	want := map[string]bool{"a": true, "b": true, "c": true}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for v := range want {
		if !got[v] {
			t.Errorf("missing expected value %q", v)
		}
	}
}

// S2: same dataset as S1, a narrower query returns only the points it
// contains.
func TestS2LinearNarrowQuery(t *testing.T) {
	s := scheme.NewLinear([]uint{3, 3})
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}

	pts := scheme.Plaintext{
		{Point: point.New(1, 1), Values: [][]byte{[]byte("a")}},
		{Point: point.New(2, 2), Values: [][]byte{[]byte("b")}},
		{Point: point.New(5, 5), Values: [][]byte{[]byte("c")}},
	}
	if err := s.BuildIndex(key, pts); err != nil {
		t.Fatal(err)
	}

	query := hyperrange.MustNew(point.New(2, 2), point.New(3, 3))
	got := valueSet(t, queryAndResolve(t, s, key, query))

	if len(got) != 1 || !got["b"] {
		t.Fatalf("got %v, want {b}", got)
	}
}

// S3: RangeBRC over a dense 4x4 grid, query [(1,1),(2,2)] must recall
// exactly the 4 points it contains, with an exact (non-superset) cover.
func TestS3RangeBRCDenseGridExactRecall(t *testing.T) {
	s, err := scheme.NewRangeBRC([]uint{2, 2}, 2)
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}

	full := hyperrange.FromBits([]uint{2, 2})
	var pts scheme.Plaintext
	for _, p := range full.Points() {
		pts = append(pts, scheme.PointValues{Point: p, Values: [][]byte{[]byte(pointLabel(p))}})
	}
	if err := s.BuildIndex(key, pts); err != nil {
		t.Fatal(err)
	}

	query := hyperrange.MustNew(point.New(1, 1), point.New(2, 2))
	tokens, err := s.Trapdoor(key, query)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) > 4 {
		t.Errorf("BRC label count = %d, want <= 4", len(tokens))
	}

	cts, err := s.Search(tokens)
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := s.Resolve(key, cts)
	if err != nil {
		t.Fatal(err)
	}
	if len(resolved) != 4 {
		t.Fatalf("resolved %d values, want exactly 4", len(resolved))
	}
}

// S4: QuadSRC over the same dense dataset/query must recall a superset
// including every true match, with bounded label and result size.
func TestS4QuadSRCDenseGridSuperset(t *testing.T) {
	s, err := scheme.NewQuadSRC([]uint{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}

	full := hyperrange.FromBits([]uint{2, 2})
	truePoints := hyperrange.MustNew(point.New(1, 1), point.New(2, 2)).Points()
	trueSet := map[string]bool{}
	var pts scheme.Plaintext
	for _, p := range full.Points() {
		label := pointLabel(p)
		pts = append(pts, scheme.PointValues{Point: p, Values: [][]byte{[]byte(label)}})
	}
	for _, p := range truePoints {
		trueSet[pointLabel(p)] = true
	}
	if err := s.BuildIndex(key, pts); err != nil {
		t.Fatal(err)
	}

	query := hyperrange.MustNew(point.New(1, 1), point.New(2, 2))
	resolved := queryAndResolve(t, s, key, query)

	if len(resolved) > 16 {
		t.Errorf("resolved %d values, want <= 16 (full grid)", len(resolved))
	}

	got := valueSet(t, resolved)
	for want := range trueSet {
		if !got[want] {
			t.Errorf("superset missing true match %q", want)
		}
	}
	if len(got) < len(trueSet) {
		t.Errorf("superset smaller than true match set")
	}
}

// S5: TdagSRCHilbert over a dense 8x8 grid, query [(2,3),(5,6)] must issue
// exactly one trapdoor token and recall a superset of the true matches.
func TestS5TdagSRCHilbertDenseGrid(t *testing.T) {
	s, err := scheme.NewTdagSRCHilbert(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}

	full := hyperrange.FromBits([]uint{3, 3})
	var pts scheme.Plaintext
	for _, p := range full.Points() {
		pts = append(pts, scheme.PointValues{Point: p, Values: [][]byte{[]byte(pointLabel(p))}})
	}
	if err := s.BuildIndex(key, pts); err != nil {
		t.Fatal(err)
	}

	query := hyperrange.MustNew(point.New(2, 3), point.New(5, 6))
	trueSet := valueSet(t, nil)
	for _, p := range query.Points() {
		trueSet[pointLabel(p)] = true
	}

	tokens, err := s.Trapdoor(key, query)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 1 {
		t.Fatalf("trapdoor size = %d, want 1", len(tokens))
	}

	cts, err := s.Search(tokens)
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := s.Resolve(key, cts)
	if err != nil {
		t.Fatal(err)
	}

	got := valueSet(t, resolved)
	for want := range trueSet {
		if !got[want] {
			t.Errorf("superset missing true match %q", want)
		}
	}
}

// Universal invariant: a query entirely outside a BRC-class scheme's
// domain is not an error — it simply returns no tokens.
func TestBRCOutOfDomainQueryIsNotAnError(t *testing.T) {
	s, err := scheme.NewQuadBRC([]uint{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BuildIndex(key, scheme.Plaintext{
		{Point: point.New(1, 1), Values: [][]byte{[]byte("a")}},
	}); err != nil {
		t.Fatal(err)
	}

	outside := hyperrange.MustNew(point.New(10, 10), point.New(12, 12))
	tokens, err := s.Trapdoor(key, outside)
	if err != nil {
		t.Fatalf("BRC-class out-of-domain query must not error, got %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("expected no tokens, got %d", len(tokens))
	}
}

// Universal invariant: an SRC-class scheme rejects an out-of-domain query
// with ErrQueryOutOfDomain.
func TestSRCOutOfDomainQueryErrors(t *testing.T) {
	s, err := scheme.NewQuadSRC([]uint{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BuildIndex(key, scheme.Plaintext{
		{Point: point.New(1, 1), Values: [][]byte{[]byte("a")}},
	}); err != nil {
		t.Fatal(err)
	}

	outside := hyperrange.MustNew(point.New(2, 2), point.New(10, 10))
	if _, err := s.Trapdoor(key, outside); err == nil {
		t.Fatal("expected ErrQueryOutOfDomain, got nil")
	}
}

// Downscaled RangeBRCHilbert queries must still recall every true match:
// §4.8's downscale trades precision for a cheaper boundary walk, never
// recall.
func TestRangeBRCHilbertDownscaleNoFalseNegatives(t *testing.T) {
	s, err := scheme.NewRangeBRCHilbert(4, 2, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}

	full := hyperrange.FromBits([]uint{4, 4})
	var pts scheme.Plaintext
	for _, p := range full.Points() {
		pts = append(pts, scheme.PointValues{Point: p, Values: [][]byte{[]byte(pointLabel(p))}})
	}
	if err := s.BuildIndex(key, pts); err != nil {
		t.Fatal(err)
	}

	query := hyperrange.MustNew(point.New(3, 3), point.New(6, 6))
	trueSet := valueSet(t, nil)
	for _, p := range query.Points() {
		trueSet[pointLabel(p)] = true
	}

	got := valueSet(t, queryAndResolve(t, s, key, query))
	for want := range trueSet {
		if !got[want] {
			t.Errorf("downscaled query missing true match %q", want)
		}
	}
}

// downscaleBits == 0 must behave identically to no downscale at all.
func TestLinearHilbertZeroDownscaleIsNoOp(t *testing.T) {
	s := scheme.NewLinearHilbert(3, 2, 0, 0)
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BuildIndex(key, scheme.Plaintext{
		{Point: point.New(1, 1), Values: [][]byte{[]byte("a")}},
	}); err != nil {
		t.Fatal(err)
	}

	query := hyperrange.MustNew(point.New(1, 1), point.New(1, 1))
	resolved := queryAndResolve(t, s, key, query)
	if len(resolved) != 1 || string(resolved[0]) != "a" {
		t.Fatalf("got %v, want {a}", resolved)
	}
}

// Trapdoor must be deterministic: the same key and query always produce
// the same tokens.
func TestTrapdoorDeterministic(t *testing.T) {
	s, err := scheme.NewQuadBRC([]uint{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.BuildIndex(key, scheme.Plaintext{
		{Point: point.New(1, 1), Values: [][]byte{[]byte("a")}},
	}); err != nil {
		t.Fatal(err)
	}

	query := hyperrange.MustNew(point.New(0, 0), point.New(3, 3))
	a, err := s.Trapdoor(key, query)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Trapdoor(key, query)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("non-deterministic trapdoor sizes: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if string(a[i]) != string(b[i]) {
			t.Fatalf("non-deterministic trapdoor token at index %d", i)
		}
	}
}
