package shape

import (
	"math"

	"roishape/pkg/mask"
)

// DefaultDiameterFloor is the lower bound, in millimeters, that the
// maximum 3D diameter search starts from. The search never reports less
// than its floor, so a region smaller than the floor across every axis
// (or an empty region) comes back as the floor itself. Callers measuring
// sub-millimeter structures pass their own bound through
// Maximum3DDiameterWithFloor.
const DefaultDiameterFloor = 1.0

// Maximum3DDiameter returns the largest pairwise Euclidean distance, in
// millimeters, between region voxels sitting on the axis-extreme
// boundaries, seeded with DefaultDiameterFloor.
func (f *Features) Maximum3DDiameter() float64 {
	return f.Maximum3DDiameterWithFloor(DefaultDiameterFloor)
}

// Maximum3DDiameterWithFloor is Maximum3DDiameter with an explicit floor
// seeding the running maximum.
//
// The search restricts candidates to voxels whose z, y or x index matches
// the per-axis minimum (one set) or maximum (the other set) over the
// region, scales both sets to physical coordinates, and scans all
// cross-set pairs. The candidate sets are bounded by the region's
// bounding-box faces rather than its volume, so the pair scan is
// O(Emax*Emin) with E the extreme-voxel counts. Elongated or plate-like
// regions place many voxels on one extreme and pay the most here.
func (f *Features) Maximum3DDiameterWithFloor(floor float64) float64 {
	if len(f.coords) == 0 {
		return floor
	}
	minB, maxB := indexBounds(f.coords)
	minEdge := edgeVoxels(f.coords, minB, f.spacing)
	maxEdge := edgeVoxels(f.coords, maxB, f.spacing)

	maxDiameter := floor
	for _, a := range maxEdge {
		for _, b := range minEdge {
			dz := b[0] - a[0]
			dy := b[1] - a[1]
			dx := b[2] - a[2]
			if d := math.Sqrt(dz*dz + dy*dy + dx*dx); d > maxDiameter {
				maxDiameter = d
			}
		}
	}
	return maxDiameter
}

// indexBounds returns the per-axis minimum and maximum indices over the
// coordinate set. The set must be non-empty.
func indexBounds(coords []mask.Index) (minB, maxB mask.Index) {
	minB = coords[0]
	maxB = coords[0]
	for _, c := range coords[1:] {
		if c.Z < minB.Z {
			minB.Z = c.Z
		}
		if c.Y < minB.Y {
			minB.Y = c.Y
		}
		if c.X < minB.X {
			minB.X = c.X
		}
		if c.Z > maxB.Z {
			maxB.Z = c.Z
		}
		if c.Y > maxB.Y {
			maxB.Y = c.Y
		}
		if c.X > maxB.X {
			maxB.X = c.X
		}
	}
	return minB, maxB
}

// edgeVoxels collects the physical positions of voxels whose z, y or x
// index sits on the corresponding bound, stacked axis by axis in that
// order. A voxel extreme on more than one axis appears once per matching
// axis; the duplicates add redundant comparisons without changing the
// maximum.
func edgeVoxels(coords []mask.Index, bound mask.Index, sp mask.Spacing) [][3]float64 {
	var edge [][3]float64
	for _, c := range coords {
		if c.Z == bound.Z {
			edge = append(edge, scaled(c, sp))
		}
	}
	for _, c := range coords {
		if c.Y == bound.Y {
			edge = append(edge, scaled(c, sp))
		}
	}
	for _, c := range coords {
		if c.X == bound.X {
			edge = append(edge, scaled(c, sp))
		}
	}
	return edge
}

// scaled converts an index triple to physical millimeters, keeping the
// (z, y, x) component order of the index.
func scaled(c mask.Index, sp mask.Spacing) [3]float64 {
	return [3]float64{
		float64(c.Z) * sp.Along(mask.AxisZ),
		float64(c.Y) * sp.Along(mask.AxisY),
		float64(c.X) * sp.Along(mask.AxisX),
	}
}
