package extraction

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// featureRows returns the report rows in their stable order, vector
// features expanded per component.
func featureRows(set FeatureSet) [][2]string {
	format := func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return [][2]string{
		{"voxelCount", strconv.Itoa(set.VoxelCount)},
		{"volume", format(set.Volume)},
		{"surfaceArea", format(set.SurfaceArea)},
		{"surfaceVolumeRatio", format(set.SurfaceVolumeRatio)},
		{"compactness1", format(set.Compactness1)},
		{"compactness2", format(set.Compactness2)},
		{"sphericalDisproportion", format(set.SphericalDisproportion)},
		{"sphericity", format(set.Sphericity)},
		{"maximum3dDiameter", format(set.Maximum3DDiameter)},
		{"majorAxisLength", format(set.MajorAxisLength)},
		{"minorAxisLength", format(set.MinorAxisLength)},
		{"leastAxisLength", format(set.LeastAxisLength)},
		{"elongation", format(set.Elongation)},
		{"flatness", format(set.Flatness)},
		{"centerOfMass.x", format(set.CenterOfMass.X)},
		{"centerOfMass.y", format(set.CenterOfMass.Y)},
		{"centerOfMass.z", format(set.CenterOfMass.Z)},
		{"boundingBoxSize.x", format(set.BoundingBoxSize.X)},
		{"boundingBoxSize.y", format(set.BoundingBoxSize.Y)},
		{"boundingBoxSize.z", format(set.BoundingBoxSize.Z)},
	}
}

// WriteCSVReport writes the feature set as two-column CSV with a header
// row. Undefined values render as NaN.
func WriteCSVReport(w io.Writer, set FeatureSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"feature", "value"}); err != nil {
		return err
	}
	for _, row := range featureRows(set) {
		if err := cw.Write(row[:]); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteYAMLReport writes the feature set as a YAML document. Undefined
// values render as .nan.
func WriteYAMLReport(w io.Writer, set FeatureSet) error {
	out, err := yaml.Marshal(set)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// WriteReport writes the feature set to path as "csv" or "yaml". An
// empty format picks by the path's extension, with csv as the fallback.
func WriteReport(path, format string, set FeatureSet) error {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "csv"
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %v", err)
	}

	switch strings.ToLower(format) {
	case "csv":
		err = WriteCSVReport(f, set)
	case "yaml", "yml":
		err = WriteYAMLReport(f, set)
	default:
		err = fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
