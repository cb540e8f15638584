// Package mask provides the binary voxel mask model consumed by the shape
// feature computations. A mask couples a 3D 0/1 voxel array with the
// physical voxel spacing of the image it was segmented from.
package mask

import (
	"bytes"
	"fmt"
)

// Axis identifies one of the three mask array axes in index order.
// Voxels are addressed as (z, y, x): AxisZ varies slowest in the backing
// array and AxisX fastest. Spacing components are named after the physical
// axes (x, y, z), so the two orderings run in opposite directions;
// Spacing.Along resolves an array axis to its spacing component so that
// call sites never reconcile the orders by hand.
type Axis int

const (
	// AxisZ is the slowest-varying array axis (the slice index).
	AxisZ Axis = iota

	// AxisY is the row axis within a slice.
	AxisY

	// AxisX is the fastest-varying array axis (the column index).
	AxisX
)

// String returns the physical axis name for the array axis.
func (a Axis) String() string {
	switch a {
	case AxisZ:
		return "z"
	case AxisY:
		return "y"
	case AxisX:
		return "x"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Spacing is the physical size of a voxel in millimeters along each
// physical axis. All components must be positive.
type Spacing struct {
	X, Y, Z float64
}

// Along returns the spacing component for the given array axis.
func (s Spacing) Along(a Axis) float64 {
	switch a {
	case AxisZ:
		return s.Z
	case AxisY:
		return s.Y
	case AxisX:
		return s.X
	default:
		panic(fmt.Sprintf("invalid axis %d", int(a)))
	}
}

// Valid reports whether all spacing components are positive.
func (s Spacing) Valid() bool {
	return s.X > 0 && s.Y > 0 && s.Z > 0
}

// VoxelVolume returns the physical volume of a single voxel in cubic
// millimeters.
func (s Spacing) VoxelVolume() float64 {
	return s.X * s.Y * s.Z
}

// Index is a (z, y, x) voxel index triple.
type Index struct {
	Z, Y, X int
}

// BinaryMask is a 3D binary segmentation mask. Voxel values are stored in
// a flat array indexed z*nx*ny + y*nx + x, value 1 marking voxels inside
// the region of interest.
type BinaryMask struct {
	data       []uint8
	nz, ny, nx int
	spacing    Spacing
}

// New creates an all-false mask with the given dimensions (slices, rows,
// columns) and voxel spacing.
func New(nz, ny, nx int, spacing Spacing) (*BinaryMask, error) {
	if nz <= 0 || ny <= 0 || nx <= 0 {
		return nil, fmt.Errorf("mask dimensions must be positive, got %dx%dx%d", nz, ny, nx)
	}
	if !spacing.Valid() {
		return nil, fmt.Errorf("voxel spacing must be positive, got (%g, %g, %g)",
			spacing.X, spacing.Y, spacing.Z)
	}
	return &BinaryMask{
		data:    make([]uint8, nz*ny*nx),
		nz:      nz,
		ny:      ny,
		nx:      nx,
		spacing: spacing,
	}, nil
}

// NewFromData creates a mask from existing voxel data in z*nx*ny + y*nx + x
// order. Any nonzero byte marks a region voxel; values are normalized to
// 0/1 so that downstream arithmetic can rely on unit differences.
func NewFromData(data []uint8, nz, ny, nx int, spacing Spacing) (*BinaryMask, error) {
	m, err := New(nz, ny, nx, spacing)
	if err != nil {
		return nil, err
	}
	if len(data) != len(m.data) {
		return nil, fmt.Errorf("data length %d does not match dimensions %dx%dx%d",
			len(data), nz, ny, nx)
	}
	for i, v := range data {
		if v != 0 {
			m.data[i] = 1
		}
	}
	return m, nil
}

// Dims returns the mask dimensions as (slices, rows, columns).
func (m *BinaryMask) Dims() (nz, ny, nx int) {
	return m.nz, m.ny, m.nx
}

// Spacing returns the physical voxel spacing.
func (m *BinaryMask) Spacing() Spacing {
	return m.spacing
}

// Data returns the mask's backing voxel array. The slice is shared with
// the mask and must be treated as read-only.
func (m *BinaryMask) Data() []uint8 {
	return m.data
}

// At reports whether the voxel at (z, y, x) is inside the region.
// Out-of-range coordinates are outside any region and return false.
func (m *BinaryMask) At(z, y, x int) bool {
	if z < 0 || z >= m.nz || y < 0 || y >= m.ny || x < 0 || x >= m.nx {
		return false
	}
	return m.data[z*m.nx*m.ny+y*m.nx+x] != 0
}

// Set assigns the voxel at (z, y, x). Out-of-range coordinates are
// ignored, mirroring the stdlib image setters.
func (m *BinaryMask) Set(z, y, x int, inside bool) {
	if z < 0 || z >= m.nz || y < 0 || y >= m.ny || x < 0 || x >= m.nx {
		return
	}
	idx := z*m.nx*m.ny + y*m.nx + x
	if inside {
		m.data[idx] = 1
	} else {
		m.data[idx] = 0
	}
}

// Count returns the number of voxels inside the region.
func (m *BinaryMask) Count() int {
	n := 0
	for _, v := range m.data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Coordinates returns the (z, y, x) index triples of all region voxels in
// scan order: z outermost, then y, then x.
func (m *BinaryMask) Coordinates() []Index {
	coords := make([]Index, 0, m.Count())
	for z := 0; z < m.nz; z++ {
		for y := 0; y < m.ny; y++ {
			rowOff := z*m.nx*m.ny + y*m.nx
			for x := 0; x < m.nx; x++ {
				if m.data[rowOff+x] != 0 {
					coords = append(coords, Index{Z: z, Y: y, X: x})
				}
			}
		}
	}
	return coords
}

// Bounds returns the inclusive per-axis index extent of the region. The
// second return is false when the mask holds no region voxels.
func (m *BinaryMask) Bounds() (min, max Index, ok bool) {
	for z := 0; z < m.nz; z++ {
		for y := 0; y < m.ny; y++ {
			rowOff := z*m.nx*m.ny + y*m.nx
			for x := 0; x < m.nx; x++ {
				if m.data[rowOff+x] == 0 {
					continue
				}
				c := Index{Z: z, Y: y, X: x}
				if !ok {
					min, max = c, c
					ok = true
					continue
				}
				if c.Z < min.Z {
					min.Z = c.Z
				}
				if c.Y < min.Y {
					min.Y = c.Y
				}
				if c.X < min.X {
					min.X = c.X
				}
				if c.Z > max.Z {
					max.Z = c.Z
				}
				if c.Y > max.Y {
					max.Y = c.Y
				}
				if c.X > max.X {
					max.X = c.X
				}
			}
		}
	}
	return min, max, ok
}

// Pad returns a copy of the mask extended by exactly one false voxel on
// every face, so the padded dimensions are the originals plus two along
// each axis. Feature computations run on the padded mask: with a false
// shell in place, adjacent-voxel differencing never needs bounds checks
// because the region cannot touch the array edge.
//
// Pad always grows the mask. Padding an already-padded mask produces a
// double shell, which is not a valid feature input; callers hold on to the
// unpadded original and pad once.
func (m *BinaryMask) Pad() *BinaryMask {
	p := &BinaryMask{
		data:    make([]uint8, (m.nz+2)*(m.ny+2)*(m.nx+2)),
		nz:      m.nz + 2,
		ny:      m.ny + 2,
		nx:      m.nx + 2,
		spacing: m.spacing,
	}
	for z := 0; z < m.nz; z++ {
		for y := 0; y < m.ny; y++ {
			srcOff := z*m.nx*m.ny + y*m.nx
			dstOff := (z+1)*p.nx*p.ny + (y+1)*p.nx + 1
			copy(p.data[dstOff:dstOff+m.nx], m.data[srcOff:srcOff+m.nx])
		}
	}
	return p
}

// Unpad returns a copy with one voxel stripped from every face, the
// inverse of Pad. It fails when any dimension is below 3.
func (m *BinaryMask) Unpad() (*BinaryMask, error) {
	if m.nz < 3 || m.ny < 3 || m.nx < 3 {
		return nil, fmt.Errorf("mask %dx%dx%d too small to unpad", m.nz, m.ny, m.nx)
	}
	u := &BinaryMask{
		data:    make([]uint8, (m.nz-2)*(m.ny-2)*(m.nx-2)),
		nz:      m.nz - 2,
		ny:      m.ny - 2,
		nx:      m.nx - 2,
		spacing: m.spacing,
	}
	for z := 0; z < u.nz; z++ {
		for y := 0; y < u.ny; y++ {
			srcOff := (z+1)*m.nx*m.ny + (y+1)*m.nx + 1
			dstOff := z*u.nx*u.ny + y*u.nx
			copy(u.data[dstOff:dstOff+u.nx], m.data[srcOff:srcOff+u.nx])
		}
	}
	return u, nil
}

// Crop returns the inclusive index box [min, max] as a new mask with the
// same spacing. Cropping a mask to its region bounding box shrinks the
// arrays the feature computations scan without changing any feature value.
func (m *BinaryMask) Crop(min, max Index) (*BinaryMask, error) {
	if min.Z < 0 || min.Y < 0 || min.X < 0 ||
		max.Z >= m.nz || max.Y >= m.ny || max.X >= m.nx {
		return nil, fmt.Errorf("crop box (%d,%d,%d)..(%d,%d,%d) outside mask %dx%dx%d",
			min.Z, min.Y, min.X, max.Z, max.Y, max.X, m.nz, m.ny, m.nx)
	}
	if min.Z > max.Z || min.Y > max.Y || min.X > max.X {
		return nil, fmt.Errorf("crop box (%d,%d,%d)..(%d,%d,%d) has negative extent",
			min.Z, min.Y, min.X, max.Z, max.Y, max.X)
	}
	c := &BinaryMask{
		data:    make([]uint8, (max.Z-min.Z+1)*(max.Y-min.Y+1)*(max.X-min.X+1)),
		nz:      max.Z - min.Z + 1,
		ny:      max.Y - min.Y + 1,
		nx:      max.X - min.X + 1,
		spacing: m.spacing,
	}
	for z := 0; z < c.nz; z++ {
		for y := 0; y < c.ny; y++ {
			srcOff := (z+min.Z)*m.nx*m.ny + (y+min.Y)*m.nx + min.X
			dstOff := z*c.nx*c.ny + y*c.nx
			copy(c.data[dstOff:dstOff+c.nx], m.data[srcOff:srcOff+c.nx])
		}
	}
	return c, nil
}

// Clone returns a deep copy of the mask.
func (m *BinaryMask) Clone() *BinaryMask {
	c := *m
	c.data = make([]uint8, len(m.data))
	copy(c.data, m.data)
	return &c
}

// Equal reports whether two masks have identical dimensions, spacing and
// voxel values.
func (m *BinaryMask) Equal(o *BinaryMask) bool {
	if o == nil {
		return false
	}
	if m.nz != o.nz || m.ny != o.ny || m.nx != o.nx || m.spacing != o.spacing {
		return false
	}
	return bytes.Equal(m.data, o.data)
}
