package shape

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"roishape/pkg/mask"
)

// Features computes scalar shape descriptors for the region delineated in
// a binary voxel mask.
//
// Construction performs all the derived-state work once:
//  1. The input mask is padded with a one-voxel false shell so that
//     adjacent-voxel differencing never needs bounds checks.
//  2. The region's voxel coordinates are extracted from the padded mask.
//  3. Volume, surface area, the principal moments, the center of mass and
//     the bounding box are computed and cached.
//
// Every descriptor method is then a pure read of the cached state, except
// Maximum3DDiameter which walks the coordinate set on demand. Nothing is
// mutated after New returns, so a Features value is safe for concurrent
// readers without locking.
//
// An empty region is accepted: descriptors on it come back NaN or infinite
// rather than failing, and callers treat non-finite values as "undefined
// for this input".
type Features struct {
	// padded is the working mask, the input extended by a one-voxel false
	// shell on every face.
	padded *mask.BinaryMask

	// coords holds the (z, y, x) indices of region voxels in the padded
	// mask, in scan order.
	coords []mask.Index

	// spacing is the physical voxel spacing all descriptors scale by.
	spacing mask.Spacing

	// volume (cubic millimeters) and surfaceArea (square millimeters) are
	// fixed at construction; dependent descriptors read the cached values
	// and never recompute them.
	volume      float64
	surfaceArea float64

	// moments holds the eigenvalues of the sample covariance of the
	// region's physical voxel positions, ascending. momentsOK is false
	// when the region is too small or the factorization failed.
	moments   [3]float64
	momentsOK bool

	centerOfMass r3.Vector
	bbox         BoundingBox
	bboxOK       bool
}

// New computes the cached shape state for the region in m. The mask is
// padded internally; callers pass the unpadded segmentation and must not
// pre-pad it themselves.
func New(m *mask.BinaryMask) (*Features, error) {
	if m == nil {
		return nil, fmt.Errorf("mask must not be nil")
	}
	f := &Features{
		padded:  m.Pad(),
		spacing: m.Spacing(),
	}
	f.coords = f.padded.Coordinates()
	f.volume = float64(len(f.coords)) * f.spacing.VoxelVolume()
	f.surfaceArea = faceArea(f.padded)
	f.initAxes()
	return f, nil
}

// VoxelCount returns the number of voxels inside the region.
func (f *Features) VoxelCount() int {
	return len(f.coords)
}

// Volume returns the region volume in cubic millimeters: the voxel count
// times the physical volume of a single voxel.
func (f *Features) Volume() float64 {
	return f.volume
}

// SurfaceArea returns the face-counting estimate of the region boundary
// area in square millimeters. See faceArea for the estimate's bias.
func (f *Features) SurfaceArea() float64 {
	return f.surfaceArea
}

// SurfaceVolumeRatio returns surface area over volume. A compact region
// scores low; the ratio is not finite when the region is empty.
func (f *Features) SurfaceVolumeRatio() float64 {
	return f.surfaceArea / f.volume
}

// Compactness1 returns V / (A^(2/3) * sqrt(pi)), a dimensionless measure
// of how compact the region is relative to a sphere.
func (f *Features) Compactness1() float64 {
	return f.volume / (math.Pow(f.surfaceArea, 2.0/3.0) * math.Sqrt(math.Pi))
}

// Compactness2 returns 36*pi*V^2 / A^3. The value lies in (0, 1] for any
// real solid and reaches 1 only for a perfect sphere.
func (f *Features) Compactness2() float64 {
	return 36.0 * math.Pi * math.Pow(f.volume, 2.0) / math.Pow(f.surfaceArea, 3.0)
}

// SphericalDisproportion returns the ratio of the region's surface area to
// the surface area of a sphere of equal volume. At least 1 for any real
// solid; the reciprocal of Sphericity.
func (f *Features) SphericalDisproportion() float64 {
	r := math.Pow(3.0*f.volume/(4.0*math.Pi), 1.0/3.0)
	return f.surfaceArea / (4.0 * math.Pi * math.Pow(r, 2.0))
}

// Sphericity returns pi^(1/3) * (6V)^(2/3) / A, a roundness measure in
// (0, 1] reaching 1 only for a perfect sphere.
func (f *Features) Sphericity() float64 {
	return math.Pow(math.Pi, 1.0/3.0) * math.Pow(6.0*f.volume, 2.0/3.0) / f.surfaceArea
}

// faceArea estimates the region boundary area by counting exposed voxel
// faces on the padded mask. For each axis, adjacent voxels with differing
// values contribute one face, weighted by the area of the face orthogonal
// to that axis. The estimate systematically overestimates a curved
// surface; that bias is part of the descriptor's definition and consumers
// compare against values carrying the same bias.
func faceArea(p *mask.BinaryMask) float64 {
	nz, ny, nx := p.Dims()
	data := p.Data()
	sp := p.Spacing()
	plane := nx * ny

	xz := sp.X * sp.Z
	yz := sp.Y * sp.Z
	xy := sp.X * sp.Y

	var facesX, facesY, facesZ int

	// Faces exposed along x: compare each voxel with its +x neighbor.
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			rowOff := z*plane + y*nx
			for x := 0; x < nx-1; x++ {
				if data[rowOff+x] != data[rowOff+x+1] {
					facesX++
				}
			}
		}
	}

	// Faces exposed along y: compare each voxel with its +y neighbor.
	for z := 0; z < nz; z++ {
		for y := 0; y < ny-1; y++ {
			rowOff := z*plane + y*nx
			for x := 0; x < nx; x++ {
				if data[rowOff+x] != data[rowOff+nx+x] {
					facesY++
				}
			}
		}
	}

	// Faces exposed along z: compare each voxel with its +z neighbor.
	for z := 0; z < nz-1; z++ {
		for y := 0; y < ny; y++ {
			rowOff := z*plane + y*nx
			for x := 0; x < nx; x++ {
				if data[rowOff+x] != data[rowOff+plane+x] {
					facesZ++
				}
			}
		}
	}

	area := float64(facesX) * yz
	area += float64(facesY) * xz
	area += float64(facesZ) * xy
	return area
}
