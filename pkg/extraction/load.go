package extraction

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"roishape/internal/models"
	"roishape/pkg/dicomseries"
	"roishape/pkg/mask"
	"roishape/pkg/nrrd"
)

// loadMask dispatches to the loader for the configured or detected input
// format and applies the spacing override.
func (e *Extractor) loadMask() (*mask.BinaryMask, error) {
	format := strings.ToLower(e.params.Format)
	if format == "" || format == "auto" {
		detected, err := detectFormat(e.params.InputPath)
		if err != nil {
			return nil, err
		}
		format = detected
		if e.params.Verbose {
			fmt.Printf("Detected input format: %s\n", format)
		}
	}

	override := e.params.Spacing.Valid()

	switch format {
	case "nrrd":
		m, err := nrrd.ReadFile(e.params.InputPath)
		if err != nil {
			return nil, err
		}
		if override {
			nz, ny, nx := m.Dims()
			return mask.NewFromData(m.Data(), nz, ny, nx, e.params.Spacing)
		}
		return m, nil

	case "dicom":
		slices, sp, err := dicomseries.LoadSeries(e.params.InputPath, e.params.DicomThreshold)
		if err != nil {
			return nil, err
		}
		if override {
			sp = e.params.Spacing
		}
		// DICOM slices are binary already; any threshold inside (0, 1)
		// keeps them as they are.
		return buildMask(slices, sp, 0.5)

	case "stack":
		if !override {
			return nil, fmt.Errorf("stack input carries no spacing metadata: pass an explicit spacing")
		}
		slices, err := loadStack(e.params.InputPath)
		if err != nil {
			return nil, err
		}
		return buildMask(slices, e.params.Spacing, e.threshold())

	default:
		return nil, fmt.Errorf("unknown input format %q", e.params.Format)
	}
}

// threshold maps the configured stack threshold onto the comparison
// value.
func (e *Extractor) threshold() float64 {
	switch {
	case e.params.Threshold < 0:
		return 0
	case e.params.Threshold == 0:
		return 0.5
	default:
		return e.params.Threshold
	}
}

// detectFormat inspects the input path: an .nrrd file reads as NRRD, a
// directory reads as a DICOM series or an image stack depending on what
// it holds.
func detectFormat(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to inspect input: %v", err)
	}
	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(path), ".nrrd") {
			return "nrrd", nil
		}
		return "", fmt.Errorf("cannot detect the format of %s: unknown extension", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("failed to open directory: %v", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".dcm":
			return "dicom", nil
		case ".png", ".jpg", ".jpeg":
			return "stack", nil
		}
	}
	return "", fmt.Errorf("cannot detect the input format: %s holds no DICOM files or slice images", path)
}

// loadStack loads a directory of slice images as a stack, bottom slice
// first. Files are sorted by the numeric part of their names so slice_2
// precedes slice_10.
func loadStack(dir string) ([]models.Slice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %v", err)
	}

	var imageFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			imageFiles = append(imageFiles, entry.Name())
		}
	}
	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no slice images found in %s", dir)
	}

	sort.Slice(imageFiles, func(i, j int) bool {
		return extractNumber(imageFiles[i]) < extractNumber(imageFiles[j])
	})

	var slices []models.Slice
	for i, filename := range imageFiles {
		img, err := loadImage(filepath.Join(dir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %v", filename, err)
		}
		s := imageToSlice(img, i, filename)
		if i > 0 && (s.Rows != slices[0].Rows || s.Cols != slices[0].Cols) {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				filename, s.Cols, s.Rows, slices[0].Cols, slices[0].Rows)
		}
		slices = append(slices, s)
	}
	return slices, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	var digits strings.Builder
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// imageToSlice converts an image to a normalized sample slice, reading
// the red channel as 16-bit luminance the way grayscale slice exports
// store it.
func imageToSlice(img image.Image, index int, filename string) models.Slice {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			pixels[y*width+x] = float64(r) / 65535.0
		}
	}
	return models.Slice{
		Pixels:   pixels,
		Cols:     width,
		Rows:     height,
		Index:    index,
		Filename: filename,
	}
}

// buildMask stacks decoded slices into a binary mask, bottom slice at
// z 0, keeping samples strictly above the threshold.
func buildMask(slices []models.Slice, sp mask.Spacing, threshold float64) (*mask.BinaryMask, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("no slices to assemble")
	}
	rows, cols := slices[0].Rows, slices[0].Cols

	m, err := mask.New(len(slices), rows, cols, sp)
	if err != nil {
		return nil, err
	}
	for z, s := range slices {
		if s.Rows != rows || s.Cols != cols {
			return nil, fmt.Errorf("slice %d is %dx%d, expected %dx%d",
				z, s.Cols, s.Rows, cols, rows)
		}
		if len(s.Pixels) != rows*cols {
			return nil, fmt.Errorf("slice %d holds %d samples, expected %d",
				z, len(s.Pixels), rows*cols)
		}
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				if s.Pixels[y*cols+x] > threshold {
					m.Set(z, y, x, true)
				}
			}
		}
	}
	return m, nil
}
