// Package dicomseries loads binary masks stored as a directory of
// single-frame DICOM files, one file per slice.
package dicomseries

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"roishape/internal/models"
	"roishape/pkg/mask"
)

// LoadSeries reads every .dcm file in dir and returns the decoded slices
// in stacking order, bottom slice first, together with the voxel spacing
// the series metadata declares.
//
// Samples strictly greater than threshold become region pixels; a
// threshold of 0 keeps any nonzero sample, which is the right reading for
// exported label masks. Slices are ordered by InstanceNumber when every
// file carries one, by filename otherwise.
func LoadSeries(dir string, threshold int) ([]models.Slice, mask.Spacing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, mask.Spacing{}, fmt.Errorf("failed to open directory: %v", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".dcm") {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, mask.Spacing{}, fmt.Errorf("no DICOM files found in %s", dir)
	}

	var (
		slices     []models.Slice
		spacing    mask.Spacing
		rows, cols int
	)
	allOrdered := true
	for i, name := range files {
		path := filepath.Join(dir, name)
		ds, err := dicom.ParseFile(path, nil)
		if err != nil {
			return nil, mask.Spacing{}, fmt.Errorf("failed to parse %s: %v", name, err)
		}

		s, ordered, err := decodeSlice(&ds, name, threshold)
		if err != nil {
			return nil, mask.Spacing{}, fmt.Errorf("failed to decode %s: %v", name, err)
		}
		if !ordered {
			allOrdered = false
		}

		if i == 0 {
			rows, cols = s.Rows, s.Cols
			spacing, err = seriesSpacing(&ds)
			if err != nil {
				return nil, mask.Spacing{}, fmt.Errorf("failed to read spacing from %s: %v", name, err)
			}
		} else if s.Rows != rows || s.Cols != cols {
			return nil, mask.Spacing{}, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				name, s.Cols, s.Rows, cols, rows)
		}

		slices = append(slices, s)
	}

	if allOrdered {
		sort.SliceStable(slices, func(i, j int) bool {
			return slices[i].Index < slices[j].Index
		})
	} else {
		// Without a complete set of instance numbers the alphabetical
		// file order is the stacking order.
		for i := range slices {
			slices[i].Index = i
		}
	}
	return slices, spacing, nil
}

// decodeSlice pulls the first pixel frame out of one dataset and
// thresholds it into a binary slice. The second return reports whether
// the file carried an InstanceNumber.
func decodeSlice(ds *dicom.Dataset, name string, threshold int) (models.Slice, bool, error) {
	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return models.Slice{}, false, fmt.Errorf("no pixel data: %v", err)
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if len(info.Frames) == 0 {
		return models.Slice{}, false, fmt.Errorf("no pixel frames")
	}
	if len(info.Frames) > 1 {
		return models.Slice{}, false, fmt.Errorf("multi-frame files are not supported")
	}
	native, err := info.Frames[0].GetNativeFrame()
	if err != nil {
		return models.Slice{}, false, fmt.Errorf("failed to decode pixel frame: %v", err)
	}
	if len(native.Data) != native.Rows*native.Cols {
		return models.Slice{}, false, fmt.Errorf("expected %d samples, got %d",
			native.Rows*native.Cols, len(native.Data))
	}

	pixels := make([]float64, len(native.Data))
	for i, sample := range native.Data {
		// The first channel carries the mask value; label exports are
		// single-sample anyway.
		if sample[0] > threshold {
			pixels[i] = 1
		}
	}

	s := models.Slice{
		Pixels:   pixels,
		Cols:     native.Cols,
		Rows:     native.Rows,
		Filename: name,
	}

	index, ordered := intValue(ds, tag.InstanceNumber)
	s.Index = index

	if loc, ok := floatTagValue(ds, tag.SliceLocation); ok {
		s.Position = loc
	}
	return s, ordered, nil
}

// seriesSpacing derives the voxel spacing from one file's metadata.
// PixelSpacing stores the row spacing first, which is the step along y;
// the slice step prefers SpacingBetweenSlices and falls back to
// SliceThickness.
func seriesSpacing(ds *dicom.Dataset) (mask.Spacing, error) {
	ps, err := stringValues(ds, tag.PixelSpacing)
	if err != nil || len(ps) != 2 {
		return mask.Spacing{}, fmt.Errorf("missing or malformed PixelSpacing")
	}
	rowSpacing, err := parseDecimal(ps[0])
	if err != nil {
		return mask.Spacing{}, fmt.Errorf("invalid PixelSpacing %q", ps[0])
	}
	colSpacing, err := parseDecimal(ps[1])
	if err != nil {
		return mask.Spacing{}, fmt.Errorf("invalid PixelSpacing %q", ps[1])
	}

	zStep, ok := floatTagValue(ds, tag.SpacingBetweenSlices)
	if !ok {
		zStep, ok = floatTagValue(ds, tag.SliceThickness)
	}
	if !ok {
		return mask.Spacing{}, fmt.Errorf("missing SpacingBetweenSlices and SliceThickness")
	}

	// SpacingBetweenSlices may be negative when the scan runs the other
	// way; only the magnitude matters here.
	sp := mask.Spacing{X: colSpacing, Y: rowSpacing, Z: math.Abs(zStep)}
	if !sp.Valid() {
		return mask.Spacing{}, fmt.Errorf("non-positive spacing %+v", sp)
	}
	return sp, nil
}

// stringValues returns the element's value as strings, the encoding used
// for decimal and integer string attributes.
func stringValues(ds *dicom.Dataset, t tag.Tag) ([]string, error) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil, err
	}
	v, ok := el.Value.GetValue().([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected value type for tag %v", t)
	}
	return v, nil
}

// intValue reads an integer attribute that may be stored either as a
// native integer or as an integer string.
func intValue(ds *dicom.Dataset, t tag.Tag) (int, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, false
	}
	switch v := el.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case []string:
		if len(v) > 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(v[0])); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// floatTagValue reads a single decimal-string attribute.
func floatTagValue(ds *dicom.Dataset, t tag.Tag) (float64, bool) {
	v, err := stringValues(ds, t)
	if err != nil || len(v) == 0 {
		return 0, false
	}
	f, err := parseDecimal(v[0])
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseDecimal parses a DICOM decimal string, tolerating the padding
// some writers leave in.
func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
