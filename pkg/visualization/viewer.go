package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"roishape/pkg/mask"
)

// Viewer renders cross-sections of a binary mask as grayscale images,
// region voxels white on black.
type Viewer struct {
	// m is the mask being viewed
	m *mask.BinaryMask

	// dimensions of the mask
	width  int
	height int
	depth  int
}

// NewViewer creates a viewer over a mask.
func NewViewer(m *mask.BinaryMask) *Viewer {
	nz, ny, nx := m.Dims()
	return &Viewer{
		m:      m,
		width:  nx,
		height: ny,
		depth:  nz,
	}
}

// ExtractSlice extracts a 2D cross-section of the mask along the
// specified axis.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray16

	switch axis {
	case "x", "X":
		// Extract slice along the YZ plane
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}
		img = image.NewGray16(image.Rect(0, 0, v.depth, v.height))
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				img.SetGray16(z, y, voxelColor(v.m.At(z, y, position)))
			}
		}

	case "y", "Y":
		// Extract slice along the XZ plane
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.depth))
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, z, voxelColor(v.m.At(z, position, x)))
			}
		}

	case "z", "Z":
		// Extract slice along the XY plane
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.height))
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, y, voxelColor(v.m.At(position, y, x)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// voxelColor maps region membership to full white or black.
func voxelColor(inside bool) color.Gray16 {
	if inside {
		return color.Gray16{Y: 65535}
	}
	return color.Gray16{Y: 0}
}

// SaveSlice saves an extracted slice as a PNG image. PNG is lossless, so
// a saved preview stays strictly binary.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence extracts and saves every cross-section along the
// specified axis.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.width
	case "y", "Y":
		maxPos = v.height
	case "z", "Z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SaveMidSlices saves the three mid-volume cross-sections, one per axis.
func (v *Viewer) SaveMidSlices(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	positions := map[string]int{
		"x": v.width / 2,
		"y": v.height / 2,
		"z": v.depth / 2,
	}
	for _, axis := range []string{"x", "y", "z"} {
		img, err := v.ExtractSlice(axis, positions[axis])
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_mid.png", axis))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
