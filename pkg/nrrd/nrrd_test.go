package nrrd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roishape/pkg/mask"
)

// createTempDir creates a temporary directory for test files
func createTempDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "nrrd-test-*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}
	return dir
}

// createTestMask builds a small asymmetric mask so axis mixups cannot
// cancel out.
func createTestMask(t *testing.T) *mask.BinaryMask {
	t.Helper()
	m, err := mask.New(3, 4, 5, mask.Spacing{X: 0.5, Y: 1, Z: 2.5})
	if err != nil {
		t.Fatalf("Failed to create mask: %v", err)
	}
	m.Set(0, 0, 0, true)
	m.Set(1, 2, 3, true)
	m.Set(2, 3, 4, true)
	m.Set(1, 1, 1, true)
	return m
}

// nrrdStream glues a header block and a data block into one reader.
func nrrdStream(header string, data []byte) io.Reader {
	return io.MultiReader(strings.NewReader(header), bytes.NewReader(data))
}

func TestRoundTrip(t *testing.T) {
	tmpDir := createTempDir(t)
	defer os.RemoveAll(tmpDir)

	m := createTestMask(t)

	for _, enc := range []Encoding{Raw, Gzip} {
		t.Run(string(enc), func(t *testing.T) {
			path := filepath.Join(tmpDir, "mask_"+string(enc)+".nrrd")

			if err := WriteFile(path, m, enc); err != nil {
				t.Fatalf("Failed to write mask: %v", err)
			}
			loaded, err := ReadFile(path)
			if err != nil {
				t.Fatalf("Failed to read mask back: %v", err)
			}

			if !loaded.Equal(m) {
				t.Error("Round-tripped mask differs from the original")
			}
		})
	}
}

func TestReadHeaderVariants(t *testing.T) {
	// Two voxels along x, values 7 and 0: exercises the nonzero-to-one
	// normalization as well.
	data := []byte{7, 0}

	testCases := []struct {
		name   string
		header string
	}{
		{
			"oldest magic and uchar alias",
			"NRRD0001\ntype: uchar\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspacings: 0.5 1 2.5\n\n",
		},
		{
			"unsigned char alias",
			"NRRD0004\ntype: unsigned char\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspacings: 0.5 1 2.5\n\n",
		},
		{
			"diagonal space directions",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspace directions: (0.5,0,0) (0,1,0) (0,0,2.5)\n\n",
		},
		{
			"negated direction from an orientation flip",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspace directions: (-0.5,0,0) (0,1,0) (0,0,2.5)\n\n",
		},
		{
			"windows line endings",
			"NRRD0004\r\ntype: uint8\r\ndimension: 3\r\nsizes: 2 1 1\r\nencoding: raw\r\nspacings: 0.5 1 2.5\r\n\r\n",
		},
		{
			"comments and annotations skipped",
			"NRRD0004\n# produced by a segmentation tool\ntype: uint8\nSegment0_Name:=lesion\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspacings: 0.5 1 2.5\ncontent: lesion mask\n\n",
		},
	}

	expectedSpacing := mask.Spacing{X: 0.5, Y: 1, Z: 2.5}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Read(nrrdStream(tc.header, data))
			if err != nil {
				t.Fatalf("Failed to read: %v", err)
			}

			nz, ny, nx := m.Dims()
			if nz != 1 || ny != 1 || nx != 2 {
				t.Errorf("Dims: expected (1, 1, 2), got (%d, %d, %d)", nz, ny, nx)
			}
			if sp := m.Spacing(); sp != expectedSpacing {
				t.Errorf("Spacing: expected %+v, got %+v", expectedSpacing, sp)
			}
			if !m.At(0, 0, 0) || m.At(0, 0, 1) {
				t.Error("Voxel values not decoded as nonzero = region")
			}
			if m.Data()[0] != 1 {
				t.Errorf("Nonzero byte should normalize to 1, got %d", m.Data()[0])
			}
		})
	}
}

func TestReadErrors(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		data   []byte
	}{
		{
			"bad magic",
			"NOTNRRD1\ntype: uint8\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspacings: 1 1 1\n\n",
			[]byte{1, 1},
		},
		{
			"wrong dimension",
			"NRRD0004\ntype: uint8\ndimension: 2\nsizes: 2 1\nencoding: raw\nspacings: 1 1\n\n",
			[]byte{1, 1},
		},
		{
			"unsupported type",
			"NRRD0004\ntype: float\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspacings: 1 1 1\n\n",
			[]byte{1, 1},
		},
		{
			"unsupported encoding",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 1 1\nencoding: hex\nspacings: 1 1 1\n\n",
			[]byte{1, 1},
		},
		{
			"missing spacing",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 1 1\nencoding: raw\n\n",
			[]byte{1, 1},
		},
		{
			"zero spacing",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspacings: 0 1 1\n\n",
			[]byte{1, 1},
		},
		{
			"oblique space directions",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspace directions: (1,0.1,0) (0,1,0) (0,0,1)\n\n",
			[]byte{1, 1},
		},
		{
			"sizes count mismatch",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 1\nencoding: raw\nspacings: 1 1 1\n\n",
			[]byte{1, 1},
		},
		{
			"truncated data",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 2 1\nencoding: raw\nspacings: 1 1 1\n\n",
			[]byte{1, 1},
		},
		{
			"trailing data",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspacings: 1 1 1\n\n",
			[]byte{1, 1, 1},
		},
		{
			"header without data section",
			"NRRD0004\ntype: uint8\ndimension: 3\nsizes: 2 1 1\nencoding: raw\nspacings: 1 1 1\n",
			nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Read(nrrdStream(tc.header, tc.data)); err == nil {
				t.Error("Read should have failed")
			}
		})
	}
}

func TestWriteRejects(t *testing.T) {
	if err := Write(io.Discard, nil, Raw); err == nil {
		t.Error("Write should reject a nil mask")
	}

	m := createTestMask(t)
	if err := Write(io.Discard, m, Encoding("bzip2")); err == nil {
		t.Error("Write should reject an unknown encoding")
	}
}

func TestReadFileMissing(t *testing.T) {
	tmpDir := createTempDir(t)
	defer os.RemoveAll(tmpDir)

	if _, err := ReadFile(filepath.Join(tmpDir, "absent.nrrd")); err == nil {
		t.Error("ReadFile should fail for a missing file")
	}
}
