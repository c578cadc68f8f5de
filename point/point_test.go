package point_test

import (
	"bytes"
	"testing"

	"github.com/rosualinpetru/ers-go/point"
)

func TestEqual(t *testing.T) {
	a := point.New(1, 2, 3)
	b := point.New(1, 2, 3)
	c := point.New(1, 2, 4)

	if !a.Equal(b) {
		t.Error("expected equal points to compare equal")
	}
	if a.Equal(c) {
		t.Error("expected differing points to compare unequal")
	}
	if a.Equal(point.New(1, 2)) {
		t.Error("expected points of different dimension to compare unequal")
	}
}

func TestLess(t *testing.T) {
	tests := []struct {
		name string
		a, b point.Point
		want bool
	}{
		{"equal", point.New(1, 2), point.New(1, 2), false},
		{"first axis decides", point.New(1, 9), point.New(2, 0), true},
		{"later axis decides", point.New(3, 1), point.New(3, 2), true},
		{"reverse", point.New(3, 2), point.New(3, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.want {
				t.Errorf("Less() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrictlyLess(t *testing.T) {
	if !point.New(0, 0).StrictlyLess(point.New(1, 1)) {
		t.Error("expected (0,0) strictly less than (1,1)")
	}
	if point.New(0, 1).StrictlyLess(point.New(1, 1)) {
		t.Error("equal coordinate on one axis must not be strictly less")
	}
	if point.New(1, 1).StrictlyLess(point.New(1, 1)) {
		t.Error("a point is never strictly less than itself")
	}
}

func TestBytesInjective(t *testing.T) {
	points := []point.Point{
		point.New(0),
		point.New(1),
		point.New(0, 0),
		point.New(1, 0),
		point.New(0, 1),
		point.New(1, 2, 3),
		point.New(1, 2),
		point.New(300, 1),
		point.New(1, 300),
	}

	seen := map[string]point.Point{}
	for _, p := range points {
		b := string(p.Bytes())
		if prev, ok := seen[b]; ok && !prev.Equal(p) {
			t.Fatalf("distinct points %v and %v share byte form", prev, p)
		}
		seen[b] = p
	}
}

func TestBytesDeterministic(t *testing.T) {
	p := point.New(7, 42, 0)
	if !bytes.Equal(p.Bytes(), p.Bytes()) {
		t.Error("Bytes() must be deterministic")
	}
}

func TestAdd(t *testing.T) {
	p := point.New(5, 5)
	q := p.Add([]int64{-2, 3})
	if !q.Equal(point.New(3, 8)) {
		t.Errorf("Add() = %v, want (3,8)", q)
	}
}
