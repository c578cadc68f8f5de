package scheme_test

import (
	"testing"

	"github.com/rosualinpetru/ers-go/hyperrange"
	"github.com/rosualinpetru/ers-go/point"
	"github.com/rosualinpetru/ers-go/scheme"
)

func TestParallelBuildMatchesSequentialBuild(t *testing.T) {
	s1 := scheme.NewLinear([]uint{3, 3})
	s2 := scheme.NewLinear([]uint{3, 3})

	key, err := s1.Setup(32)
	if err != nil {
		t.Fatal(err)
	}

	var pts scheme.Plaintext
	for _, p := range []point.Point{
		point.New(0, 0), point.New(1, 1), point.New(2, 3),
		point.New(4, 4), point.New(5, 2), point.New(7, 7),
	} {
		pts = append(pts, scheme.PointValues{Point: p, Values: [][]byte{[]byte(pointLabel(p))}})
	}

	if err := s1.BuildIndex(key, pts); err != nil {
		t.Fatal(err)
	}
	if err := scheme.ParallelBuild(s2, key, pts, 3); err != nil {
		t.Fatal(err)
	}

	query := hyperrange.FromBits([]uint{3, 3})

	got1 := valueSet(t, queryAndResolve(t, s1, key, query))
	got2 := valueSet(t, queryAndResolve(t, s2, key, query))

	if len(got1) != len(got2) {
		t.Fatalf("sequential build resolved %d values, parallel build resolved %d", len(got1), len(got2))
	}
	for v := range got1 {
		if !got2[v] {
			t.Errorf("parallel build missing value %q present in sequential build", v)
		}
	}
}

func TestParallelBuildAggregatesDimensionMismatchErrors(t *testing.T) {
	s := scheme.NewLinear([]uint{3, 3})
	key, err := s.Setup(32)
	if err != nil {
		t.Fatal(err)
	}

	pts := scheme.Plaintext{
		{Point: point.New(1, 1, 1), Values: [][]byte{[]byte("bad")}},
	}

	if err := scheme.ParallelBuild(s, key, pts, 2); err == nil {
		t.Fatal("expected dimension mismatch error, got nil")
	}
}
