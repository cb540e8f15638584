package shape

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"roishape/pkg/mask"
)

// BoundingBox is the inclusive per-axis index extent of the region, in the
// unpadded mask's index space.
type BoundingBox struct {
	Min, Max mask.Index
}

// initAxes fixes the principal-moment, center-of-mass and bounding-box
// state at construction time. Positions are physical millimeters relative
// to the unpadded mask's origin; padding shifted every index by one, which
// is undone here.
func (f *Features) initAxes() {
	n := len(f.coords)
	if n == 0 {
		nan := math.NaN()
		f.centerOfMass = r3.Vector{X: nan, Y: nan, Z: nan}
		return
	}

	pts := mat.NewDense(n, 3, nil)
	var sum r3.Vector
	for i, c := range f.coords {
		x := float64(c.X-1) * f.spacing.X
		y := float64(c.Y-1) * f.spacing.Y
		z := float64(c.Z-1) * f.spacing.Z
		pts.SetRow(i, []float64{x, y, z})
		sum.X += x
		sum.Y += y
		sum.Z += z
	}
	f.centerOfMass = sum.Mul(1.0 / float64(n))

	minB, maxB := indexBounds(f.coords)
	f.bbox = BoundingBox{
		Min: mask.Index{Z: minB.Z - 1, Y: minB.Y - 1, X: minB.X - 1},
		Max: mask.Index{Z: maxB.Z - 1, Y: maxB.Y - 1, X: maxB.X - 1},
	}
	f.bboxOK = true

	// The sample covariance (n-1 denominator) needs at least two points.
	if n < 2 {
		return
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, pts, nil)
	var eig mat.EigenSym
	if !eig.Factorize(&cov, false) {
		return
	}
	eig.Values(f.moments[:])
	f.momentsOK = true
}

// MajorAxisLength returns 4*sqrt(lambda_major), the length in millimeters
// of the largest principal axis of the region's best-fit ellipsoid, where
// lambda_major is the largest eigenvalue of the sample covariance of the
// region's physical voxel positions. NaN when the region has fewer than
// two voxels or the decomposition failed.
func (f *Features) MajorAxisLength() float64 {
	return f.axisLength(2)
}

// MinorAxisLength returns 4*sqrt(lambda_minor) for the middle principal
// axis, in millimeters. NaN under the same conditions as MajorAxisLength.
func (f *Features) MinorAxisLength() float64 {
	return f.axisLength(1)
}

// LeastAxisLength returns 4*sqrt(lambda_least) for the smallest principal
// axis, in millimeters. NaN under the same conditions as MajorAxisLength.
func (f *Features) LeastAxisLength() float64 {
	return f.axisLength(0)
}

func (f *Features) axisLength(i int) float64 {
	if !f.momentsOK || f.moments[i] < 0 {
		return math.NaN()
	}
	return 4.0 * math.Sqrt(f.moments[i])
}

// Elongation returns sqrt(lambda_minor / lambda_major) in (0, 1]: 1 for a
// region equally extended along its two largest principal axes, smaller
// the more elongated the region is.
func (f *Features) Elongation() float64 {
	if !f.momentsOK || f.moments[1] < 0 || f.moments[2] <= 0 {
		return math.NaN()
	}
	return math.Sqrt(f.moments[1] / f.moments[2])
}

// Flatness returns sqrt(lambda_least / lambda_major) in (0, 1]: 1 for a
// sphere-like region, approaching 0 for a flat one.
func (f *Features) Flatness() float64 {
	if !f.momentsOK || f.moments[0] < 0 || f.moments[2] <= 0 {
		return math.NaN()
	}
	return math.Sqrt(f.moments[0] / f.moments[2])
}

// CenterOfMass returns the mean physical position of the region's voxels
// in millimeters, in the unpadded mask's frame with voxel (0,0,0) centered
// at the origin. All components are NaN for an empty region.
func (f *Features) CenterOfMass() r3.Vector {
	return f.centerOfMass
}

// BoundingBox returns the inclusive index bounds of the region in the
// unpadded mask. The zero box is returned for an empty region.
func (f *Features) BoundingBox() BoundingBox {
	return f.bbox
}

// BoundingBoxSize returns the physical edge lengths of the bounding box in
// millimeters, counting both bounding voxels. All components are NaN for
// an empty region.
func (f *Features) BoundingBoxSize() r3.Vector {
	if !f.bboxOK {
		nan := math.NaN()
		return r3.Vector{X: nan, Y: nan, Z: nan}
	}
	return r3.Vector{
		X: float64(f.bbox.Max.X-f.bbox.Min.X+1) * f.spacing.X,
		Y: float64(f.bbox.Max.Y-f.bbox.Min.Y+1) * f.spacing.Y,
		Z: float64(f.bbox.Max.Z-f.bbox.Min.Z+1) * f.spacing.Z,
	}
}
