package shape

import (
	"math"
	"testing"

	"roishape/pkg/mask"
)

// gridMoment is the closed-form principal moment of a fully filled grid
// along one axis: the sample variance of the uniform index sequence
// 0..nAxis-1 repeated total/nAxis times, scaled by the squared spacing.
// Cross-covariances vanish on a full grid, so these are exactly the
// eigenvalues the decomposition should find.
func gridMoment(nAxis, total int, spacing float64) float64 {
	n := float64(nAxis)
	N := float64(total)
	return (n*n - 1) / 12.0 * N / (N - 1) * spacing * spacing
}

// TestGridAxisLengths checks the axis lengths of a 9x3x3 grid against the
// closed form. The long axis is z, the two short axes tie.
func TestGridAxisLengths(t *testing.T) {
	f := newFeatures(t, solidMask(t, 9, 3, 3, unitSpacing()))

	long := gridMoment(9, 81, 1)  // 6.75
	short := gridMoment(3, 81, 1) // 0.675

	checks := []struct {
		name      string
		got       float64
		expected  float64
		tolerance float64
	}{
		{"MajorAxisLength", f.MajorAxisLength(), 4 * math.Sqrt(long), 1e-9},
		{"MinorAxisLength", f.MinorAxisLength(), 4 * math.Sqrt(short), 1e-9},
		{"LeastAxisLength", f.LeastAxisLength(), 4 * math.Sqrt(short), 1e-9},
		{"Elongation", f.Elongation(), math.Sqrt(0.1), 1e-9},
		{"Flatness", f.Flatness(), math.Sqrt(0.1), 1e-9},
	}

	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if math.Abs(c.got-c.expected) > c.tolerance {
				t.Errorf("%s: expected %.12f, got %.12f", c.name, c.expected, c.got)
			}
		})
	}
}

// TestAnisotropicAxisOrdering verifies that each moment picks up the
// spacing of its own axis. A 3x3x3 cube with spacing (1, 2, 4) is longest
// along z purely because of spacing, and the moment ratios reduce to
// spacing ratios.
func TestAnisotropicAxisOrdering(t *testing.T) {
	f := newFeatures(t, solidMask(t, 3, 3, 3, mask.Spacing{X: 1, Y: 2, Z: 4}))

	if got, expected := f.MajorAxisLength(), 4*math.Sqrt(gridMoment(3, 27, 4)); math.Abs(got-expected) > 1e-9 {
		t.Errorf("MajorAxisLength: expected %.12f, got %.12f", expected, got)
	}
	if got, expected := f.MinorAxisLength(), 4*math.Sqrt(gridMoment(3, 27, 2)); math.Abs(got-expected) > 1e-9 {
		t.Errorf("MinorAxisLength: expected %.12f, got %.12f", expected, got)
	}
	if got, expected := f.LeastAxisLength(), 4*math.Sqrt(gridMoment(3, 27, 1)); math.Abs(got-expected) > 1e-9 {
		t.Errorf("LeastAxisLength: expected %.12f, got %.12f", expected, got)
	}

	// The grid factors cancel in the ratios, leaving spacing ratios.
	if got := f.Elongation(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Elongation: expected 0.5, got %.12f", got)
	}
	if got := f.Flatness(); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("Flatness: expected 0.25, got %.12f", got)
	}
}

// TestCubeAxesIsotropy verifies that a cube with unit spacing has no
// preferred direction: all three axis lengths agree and both ratios are 1.
func TestCubeAxesIsotropy(t *testing.T) {
	f := newFeatures(t, solidMask(t, 4, 4, 4, unitSpacing()))

	expected := 4 * math.Sqrt(gridMoment(4, 64, 1))
	for _, c := range []struct {
		name string
		got  float64
	}{
		{"MajorAxisLength", f.MajorAxisLength()},
		{"MinorAxisLength", f.MinorAxisLength()},
		{"LeastAxisLength", f.LeastAxisLength()},
	} {
		if math.Abs(c.got-expected) > 1e-9 {
			t.Errorf("%s: expected %.12f, got %.12f", c.name, expected, c.got)
		}
	}

	if got := f.Elongation(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Elongation: expected 1, got %.12f", got)
	}
	if got := f.Flatness(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Flatness: expected 1, got %.12f", got)
	}
}

// TestCenterOfMassAndBoundingBox places a 2x3x2 block away from the
// origin and checks position state against hand-computed values for
// spacing (0.5, 1, 2).
func TestCenterOfMassAndBoundingBox(t *testing.T) {
	m, err := mask.New(8, 7, 6, mask.Spacing{X: 0.5, Y: 1, Z: 2})
	if err != nil {
		t.Fatalf("Failed to create mask: %v", err)
	}
	for z := 1; z <= 2; z++ {
		for y := 2; y <= 4; y++ {
			for x := 0; x <= 1; x++ {
				m.Set(z, y, x, true)
			}
		}
	}
	f := newFeatures(t, m)

	com := f.CenterOfMass()
	if math.Abs(com.X-0.25) > 1e-12 || math.Abs(com.Y-3.0) > 1e-12 || math.Abs(com.Z-3.0) > 1e-12 {
		t.Errorf("CenterOfMass: expected (0.25, 3, 3), got (%g, %g, %g)", com.X, com.Y, com.Z)
	}

	bb := f.BoundingBox()
	expectedMin := mask.Index{Z: 1, Y: 2, X: 0}
	expectedMax := mask.Index{Z: 2, Y: 4, X: 1}
	if bb.Min != expectedMin || bb.Max != expectedMax {
		t.Errorf("BoundingBox: expected %v..%v, got %v..%v", expectedMin, expectedMax, bb.Min, bb.Max)
	}

	size := f.BoundingBoxSize()
	if size.X != 1.0 || size.Y != 3.0 || size.Z != 4.0 {
		t.Errorf("BoundingBoxSize: expected (1, 3, 4), got (%g, %g, %g)", size.X, size.Y, size.Z)
	}
}

// TestSingleVoxelAxes covers the smallest non-empty region: position
// state is defined, moment-derived state is not.
func TestSingleVoxelAxes(t *testing.T) {
	f := newFeatures(t, solidMask(t, 1, 1, 1, mask.Spacing{X: 0.5, Y: 1, Z: 2}))

	for _, c := range []struct {
		name string
		got  float64
	}{
		{"MajorAxisLength", f.MajorAxisLength()},
		{"MinorAxisLength", f.MinorAxisLength()},
		{"LeastAxisLength", f.LeastAxisLength()},
		{"Elongation", f.Elongation()},
		{"Flatness", f.Flatness()},
	} {
		if !math.IsNaN(c.got) {
			t.Errorf("%s for a single voxel: expected NaN, got %g", c.name, c.got)
		}
	}

	com := f.CenterOfMass()
	if com.X != 0 || com.Y != 0 || com.Z != 0 {
		t.Errorf("CenterOfMass: expected origin, got %v", com)
	}

	bb := f.BoundingBox()
	if bb.Min != (mask.Index{}) || bb.Max != (mask.Index{}) {
		t.Errorf("BoundingBox: expected the origin voxel, got %v..%v", bb.Min, bb.Max)
	}

	size := f.BoundingBoxSize()
	if size.X != 0.5 || size.Y != 1.0 || size.Z != 2.0 {
		t.Errorf("BoundingBoxSize: expected the voxel extents, got (%g, %g, %g)", size.X, size.Y, size.Z)
	}
}

// TestEmptyRegionPosition verifies the position state of an empty region:
// no bounding box, NaN sizes.
func TestEmptyRegionPosition(t *testing.T) {
	m, err := mask.New(3, 3, 3, unitSpacing())
	if err != nil {
		t.Fatalf("Failed to create mask: %v", err)
	}
	f := newFeatures(t, m)

	bb := f.BoundingBox()
	if bb != (BoundingBox{}) {
		t.Errorf("BoundingBox of empty region: expected the zero box, got %v..%v", bb.Min, bb.Max)
	}

	size := f.BoundingBoxSize()
	if !math.IsNaN(size.X) || !math.IsNaN(size.Y) || !math.IsNaN(size.Z) {
		t.Errorf("BoundingBoxSize of empty region: expected NaN components, got %v", size)
	}
}
