package model

import (
	"math"
	"testing"
)

var (
	paris = Coordinate{Lat: 48.8566, Lng: 2.3522}
	lyon  = Coordinate{Lat: 45.7640, Lng: 4.8357}
)

func TestDistanceZero(t *testing.T) {
	if d := paris.DistanceKM(paris); d != 0 {
		t.Fatalf("distance(Paris, Paris) = %f, want 0", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	ab := paris.DistanceKM(lyon)
	ba := lyon.DistanceKM(paris)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", ab, ba)
	}
}

func TestDistanceParisLyon(t *testing.T) {
	// Great-circle Paris-Lyon is roughly 392 km.
	d := paris.DistanceKM(lyon)
	if d < 380 || d > 405 {
		t.Fatalf("distance(Paris, Lyon) = %f, want ~392", d)
	}
}

func TestEffectiveRadiusDefault(t *testing.T) {
	if r := (Candidate{}).EffectiveRadiusKM(); r != DefaultRadiusKM {
		t.Fatalf("default radius = %f, want %f", r, DefaultRadiusKM)
	}
	if r := (Candidate{RadiusKM: 40}).EffectiveRadiusKM(); r != 40 {
		t.Fatalf("radius = %f, want 40", r)
	}
}
