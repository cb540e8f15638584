package visualization

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"roishape/pkg/mask"
)

// createTestMask builds a mask with a single region voxel at (z, y, x) =
// (1, 2, 3).
func createTestMask(t *testing.T, nz, ny, nx int) *mask.BinaryMask {
	t.Helper()
	m, err := mask.New(nz, ny, nx, mask.Spacing{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("Failed to create mask: %v", err)
	}
	m.Set(1, 2, 3, true)
	return m
}

// TestNewViewer verifies that a new viewer picks up the mask dimensions
func TestNewViewer(t *testing.T) {
	viewer := NewViewer(createTestMask(t, 5, 10, 8))

	if viewer.width != 8 {
		t.Errorf("Expected width 8, got %d", viewer.width)
	}
	if viewer.height != 10 {
		t.Errorf("Expected height 10, got %d", viewer.height)
	}
	if viewer.depth != 5 {
		t.Errorf("Expected depth 5, got %d", viewer.depth)
	}
}

// TestExtractSlice verifies slice dimensions and the pixel mapping for
// each axis
func TestExtractSlice(t *testing.T) {
	width, height, depth := 8, 10, 5
	viewer := NewViewer(createTestMask(t, depth, height, width))

	// Z slice: image is width x height, region voxel at (x, y) = (3, 2).
	imgZ, err := viewer.ExtractSlice("z", 1)
	if err != nil {
		t.Fatalf("Failed to extract Z slice: %v", err)
	}
	boundsZ := imgZ.Bounds()
	if boundsZ.Dx() != width || boundsZ.Dy() != height {
		t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
			width, height, boundsZ.Dx(), boundsZ.Dy())
	}
	grayZ, ok := imgZ.(*image.Gray16)
	if !ok {
		t.Fatalf("Expected *image.Gray16, got %T", imgZ)
	}
	if grayZ.Gray16At(3, 2).Y != 65535 {
		t.Error("Region voxel should render white in the Z slice")
	}
	if grayZ.Gray16At(0, 0).Y != 0 {
		t.Error("Background voxel should render black in the Z slice")
	}

	// X slice: image is depth x height, region voxel at (z, y) = (1, 2).
	imgX, err := viewer.ExtractSlice("x", 3)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	boundsX := imgX.Bounds()
	if boundsX.Dx() != depth || boundsX.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d",
			depth, height, boundsX.Dx(), boundsX.Dy())
	}
	if imgX.(*image.Gray16).Gray16At(1, 2).Y != 65535 {
		t.Error("Region voxel should render white in the X slice")
	}

	// Y slice: image is width x depth, region voxel at (x, z) = (3, 1).
	imgY, err := viewer.ExtractSlice("y", 2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	boundsY := imgY.Bounds()
	if boundsY.Dx() != width || boundsY.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d",
			width, depth, boundsY.Dx(), boundsY.Dy())
	}
	if imgY.(*image.Gray16).Gray16At(3, 1).Y != 65535 {
		t.Error("Region voxel should render white in the Y slice")
	}

	// A slice away from the region voxel stays black.
	imgZ0, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract empty Z slice: %v", err)
	}
	if imgZ0.(*image.Gray16).Gray16At(3, 2).Y != 0 {
		t.Error("Slice z=0 should not contain the region voxel")
	}

	// Test invalid axis
	if _, err = viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}

	// Test out of bounds position
	if _, err = viewer.ExtractSlice("z", depth+1); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err = viewer.ExtractSlice("z", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestSaveSlice verifies that a slice saves as a decodable binary PNG
func TestSaveSlice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "viewer-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	viewer := NewViewer(createTestMask(t, 5, 10, 8))

	img, err := viewer.ExtractSlice("z", 1)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	filename := filepath.Join(tempDir, "test_slice.png")
	if err := viewer.SaveSlice(img, filename); err != nil {
		t.Fatalf("Failed to save slice: %v", err)
	}

	// Decode the file and confirm the region pixel survived losslessly.
	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Failed to open saved slice: %v", err)
	}
	defer f.Close()

	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode saved slice: %v", err)
	}
	r, _, _, _ := decoded.At(3, 2).RGBA()
	if r != 65535 {
		t.Errorf("Region pixel should decode as full white, got %d", r)
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "viewer-sequence-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	viewer := NewViewer(createTestMask(t, 3, 5, 5))

	outputDir := filepath.Join(tempDir, "slices")
	if err := viewer.SaveSliceSequence("z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for z := 0; z < 3; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}

// TestSaveMidSlices verifies the three per-axis preview files
func TestSaveMidSlices(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tempDir, err := os.MkdirTemp("", "viewer-mid-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	viewer := NewViewer(createTestMask(t, 5, 10, 8))

	outputDir := filepath.Join(tempDir, "previews")
	if err := viewer.SaveMidSlices(outputDir); err != nil {
		t.Fatalf("Failed to save mid slices: %v", err)
	}

	for _, axis := range []string{"x", "y", "z"} {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_mid.png", axis))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected preview file does not exist: %s", filename)
		}
	}
}
