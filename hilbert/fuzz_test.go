package hilbert_test

import (
	"testing"

	fuzz "github.com/trailofbits/go-fuzz-utils"

	"github.com/rosualinpetru/ers-go/hilbert"
	"github.com/rosualinpetru/ers-go/internal/testdata"
	"github.com/rosualinpetru/ers-go/point"
)

// FuzzRoundTrip generates a random (bits, dims, coordinates) triple and
// checks that distance_from_point(point_from_distance(distance_from_point(p)))
// always recovers the same point — the HilbertCurve round-trip invariant,
// generalized beyond the seed's fixed k=3, d=2 case.
func FuzzRoundTrip(f *testing.F) {
	drbg := testdata.New("hilbert round trip")
	for range 10 {
		f.Add(drbg.Data(64))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		tp, err := fuzz.NewTypeProvider(data)
		if err != nil {
			t.Skip(err)
		}

		bitsByte, err := tp.GetByte()
		if err != nil {
			t.Skip(err)
		}
		bits := uint(bitsByte%8) + 1 // keep in [1, 8] so enumeration below stays cheap

		dimsByte, err := tp.GetByte()
		if err != nil {
			t.Skip(err)
		}
		dims := int(dimsByte%4) + 1 // [1, 4]

		coords := make([]uint64, dims)
		for i := range coords {
			b, err := tp.GetByte()
			if err != nil {
				t.Skip(err)
			}
			coords[i] = uint64(b) & ((uint64(1) << bits) - 1)
		}

		c := hilbert.New(bits, dims)
		p := point.New(coords...)

		d := c.DistanceFromPoint(p)
		back := c.PointFromDistance(d)
		if !back.Equal(p) {
			t.Fatalf("round trip failed: point %v -> distance %v -> point %v", p, d, back)
		}

		d2 := c.DistanceFromPoint(back)
		if d2.Cmp(d) != 0 {
			t.Fatalf("distance not stable across round trip: %v vs %v", d, d2)
		}
	})
}
