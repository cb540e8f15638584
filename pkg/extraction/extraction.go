package extraction

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"roishape/pkg/mask"
	"roishape/pkg/shape"
	"roishape/pkg/visualization"
)

// ProgressCallback receives per-feature completion events during the
// descriptor pass.
type ProgressCallback func(completed, total int, feature string)

// FeatureSet holds the computed shape descriptors of one region. Values
// that are undefined for the input, such as ratios over an empty region,
// are NaN rather than errors.
type FeatureSet struct {
	// VoxelCount is the number of voxels inside the region.
	VoxelCount int `yaml:"voxelCount"`

	// Volume is the region volume in cubic millimeters, voxel count
	// times the physical volume of one voxel.
	Volume float64 `yaml:"volume"`

	// SurfaceArea is the face-counting boundary area estimate in square
	// millimeters. The estimate overshoots curved surfaces; consumers
	// compare against values carrying the same bias.
	SurfaceArea float64 `yaml:"surfaceArea"`

	// SurfaceVolumeRatio is surface area over volume. Lower values mean
	// a more compact region.
	SurfaceVolumeRatio float64 `yaml:"surfaceVolumeRatio"`

	// Compactness1 is V / (A^(2/3) * sqrt(pi)), a dimensioned
	// compactness measure retained for comparability with published
	// feature sets.
	Compactness1 float64 `yaml:"compactness1"`

	// Compactness2 is 36*pi*V^2 / A^3, in (0, 1] with 1 for a perfect
	// sphere.
	Compactness2 float64 `yaml:"compactness2"`

	// SphericalDisproportion is the region surface area over the surface
	// area of a volume-matched sphere, at least 1 for any real solid.
	SphericalDisproportion float64 `yaml:"sphericalDisproportion"`

	// Sphericity is the reciprocal of SphericalDisproportion, in (0, 1]
	// with 1 for a perfect sphere.
	Sphericity float64 `yaml:"sphericity"`

	// Maximum3DDiameter is the largest pairwise distance between
	// boundary-extreme voxels in millimeters, never below the configured
	// floor. NaN when the diameter pass was skipped.
	Maximum3DDiameter float64 `yaml:"maximum3dDiameter"`

	// MajorAxisLength, MinorAxisLength and LeastAxisLength are the
	// principal axis lengths of the best-fit ellipsoid in millimeters,
	// largest first.
	MajorAxisLength float64 `yaml:"majorAxisLength"`
	MinorAxisLength float64 `yaml:"minorAxisLength"`
	LeastAxisLength float64 `yaml:"leastAxisLength"`

	// Elongation is sqrt(lambda_minor / lambda_major): 1 for a region
	// equally extended along its two largest principal axes.
	Elongation float64 `yaml:"elongation"`

	// Flatness is sqrt(lambda_least / lambda_major): 1 for a sphere-like
	// region, near 0 for a flat one.
	Flatness float64 `yaml:"flatness"`

	// CenterOfMass is the mean physical voxel position in millimeters,
	// in the input mask's frame.
	CenterOfMass r3.Vector `yaml:"centerOfMass"`

	// BoundingBoxSize is the physical extent of the region bounding box
	// in millimeters along x, y and z.
	BoundingBoxSize r3.Vector `yaml:"boundingBoxSize"`
}

// Params holds the extraction parameters controlling input, processing
// and output configuration.
type Params struct {
	// InputPath is the mask location: an NRRD file, a directory of DICOM
	// files, or a directory of slice images, depending on Format.
	InputPath string

	// Format selects the loader: "auto", "nrrd", "dicom" or "stack".
	// Auto detection inspects the path's extension and, for directories,
	// the file types inside.
	Format string

	// Spacing overrides the voxel spacing from the input metadata when
	// all three components are positive. Stack input carries no spacing
	// metadata, so there the override is required.
	Spacing mask.Spacing

	// Threshold binarizes normalized [0, 1] samples from stack input;
	// samples strictly above it become region pixels. Zero picks the
	// default of 0.5.
	Threshold float64

	// DicomThreshold binarizes raw DICOM samples; samples strictly above
	// it become region pixels. Zero keeps every nonzero sample, the
	// right reading for exported label masks.
	DicomThreshold int

	// CropToRegion shrinks the mask to the region bounding box before
	// feature computation. Descriptor values are invariant under this
	// crop; it only trims storage.
	CropToRegion bool

	// DiameterFloor seeds the maximum diameter search. Zero picks
	// shape.DefaultDiameterFloor; a negative value disables the floor.
	DiameterFloor float64

	// SkipDiameter skips the diameter pair scan, leaving
	// Maximum3DDiameter NaN. Useful on very large plate-like regions.
	SkipDiameter bool

	// ReportFile is where Run writes the feature report; empty disables
	// report writing. ReportFormat is "csv" or "yaml"; empty picks by
	// the report file's extension with csv as the fallback.
	ReportFile   string
	ReportFormat string

	// SavePreviews renders mid-volume slice previews into PreviewDir.
	SavePreviews bool
	PreviewDir   string

	// Verbose adds detail lines beyond the step headers.
	Verbose bool

	// Progress, when set, is invoked after each computed feature.
	Progress ProgressCallback
}

// Extractor runs the shape feature pipeline: load a binary mask, validate
// it, build the cached shape state and compute the descriptor set.
type Extractor struct {
	// params stores the extraction configuration
	params *Params

	// m holds the loaded mask, after any crop
	m *mask.BinaryMask

	// feats is the cached shape state built in step 3
	feats *shape.Features

	// set stores the computed descriptors after Run
	set FeatureSet
}

// NewExtractor creates an extractor with the provided parameters.
func NewExtractor(params *Params) *Extractor {
	return &Extractor{params: params}
}

// Run executes the complete extraction pipeline.
func (e *Extractor) Run() error {
	// Step 1: Load the segmentation mask
	fmt.Println("Step 1: Loading segmentation mask...")
	m, err := e.loadMask()
	if err != nil {
		return fmt.Errorf("failed to load mask: %v", err)
	}
	e.m = m
	if e.params.Verbose {
		nz, ny, nx := m.Dims()
		sp := m.Spacing()
		fmt.Printf("Loaded %dx%dx%d mask (x, y, z) with spacing %gx%gx%g mm\n",
			nx, ny, nz, sp.X, sp.Y, sp.Z)
	}

	// Step 2: Validate the region and optionally crop to its bounds
	fmt.Println("Step 2: Validating region...")
	count := e.m.Count()
	if count == 0 {
		fmt.Println("Warning: the mask delineates no voxels; descriptors will be undefined")
	}
	if e.params.CropToRegion && count > 0 {
		min, max, _ := e.m.Bounds()
		cropped, err := e.m.Crop(min, max)
		if err != nil {
			return fmt.Errorf("failed to crop mask: %v", err)
		}
		e.m = cropped
		if e.params.Verbose {
			nz, ny, nx := e.m.Dims()
			fmt.Printf("Cropped mask to region bounds: %dx%dx%d\n", nx, ny, nz)
		}
	}
	if e.params.Verbose {
		fmt.Printf("Region holds %d voxels\n", count)
	}

	// Step 3: Build the cached shape state
	fmt.Println("Step 3: Building cached shape state...")
	feats, err := shape.New(e.m)
	if err != nil {
		return fmt.Errorf("failed to build shape state: %v", err)
	}
	e.feats = feats

	// Step 4: Compute the descriptor set
	fmt.Println("Step 4: Computing shape descriptors...")
	e.set = e.computeFeatures()

	// Step 5: Write reports and previews
	if e.params.ReportFile != "" || e.params.SavePreviews {
		fmt.Println("Step 5: Writing outputs...")
		if e.params.ReportFile != "" {
			if err := WriteReport(e.params.ReportFile, e.params.ReportFormat, e.set); err != nil {
				return fmt.Errorf("failed to write report: %v", err)
			}
			if e.params.Verbose {
				fmt.Printf("Wrote feature report to %s\n", e.params.ReportFile)
			}
		}
		if e.params.SavePreviews {
			viewer := visualization.NewViewer(e.m)
			if err := viewer.SaveMidSlices(e.params.PreviewDir); err != nil {
				return fmt.Errorf("failed to save previews: %v", err)
			}
			if e.params.Verbose {
				fmt.Printf("Wrote slice previews to %s\n", e.params.PreviewDir)
			}
		}
	}

	return nil
}

// Results returns the descriptor set computed by Run.
func (e *Extractor) Results() FeatureSet {
	return e.set
}

// Mask returns the loaded mask, after any crop. Nil before Run.
func (e *Extractor) Mask() *mask.BinaryMask {
	return e.m
}

// computeFeatures evaluates every descriptor in the report order,
// notifying the progress callback as it goes.
func (e *Extractor) computeFeatures() FeatureSet {
	var set FeatureSet
	f := e.feats

	steps := []struct {
		name  string
		apply func()
	}{
		{"voxelCount", func() { set.VoxelCount = f.VoxelCount() }},
		{"volume", func() { set.Volume = f.Volume() }},
		{"surfaceArea", func() { set.SurfaceArea = f.SurfaceArea() }},
		{"surfaceVolumeRatio", func() { set.SurfaceVolumeRatio = f.SurfaceVolumeRatio() }},
		{"compactness1", func() { set.Compactness1 = f.Compactness1() }},
		{"compactness2", func() { set.Compactness2 = f.Compactness2() }},
		{"sphericalDisproportion", func() { set.SphericalDisproportion = f.SphericalDisproportion() }},
		{"sphericity", func() { set.Sphericity = f.Sphericity() }},
		{"maximum3dDiameter", func() {
			if e.params.SkipDiameter {
				set.Maximum3DDiameter = math.NaN()
				return
			}
			set.Maximum3DDiameter = f.Maximum3DDiameterWithFloor(e.diameterFloor())
		}},
		{"majorAxisLength", func() { set.MajorAxisLength = f.MajorAxisLength() }},
		{"minorAxisLength", func() { set.MinorAxisLength = f.MinorAxisLength() }},
		{"leastAxisLength", func() { set.LeastAxisLength = f.LeastAxisLength() }},
		{"elongation", func() { set.Elongation = f.Elongation() }},
		{"flatness", func() { set.Flatness = f.Flatness() }},
		{"centerOfMass", func() { set.CenterOfMass = f.CenterOfMass() }},
		{"boundingBoxSize", func() { set.BoundingBoxSize = f.BoundingBoxSize() }},
	}

	for i, s := range steps {
		s.apply()
		if e.params.Progress != nil {
			e.params.Progress(i+1, len(steps), s.name)
		} else if e.params.Verbose {
			fmt.Printf("\rComputing features: %d/%d", i+1, len(steps))
		}
	}
	if e.params.Progress == nil && e.params.Verbose {
		fmt.Println()
	}

	return set
}

// diameterFloor maps the configured floor onto the search seed.
func (e *Extractor) diameterFloor() float64 {
	switch {
	case e.params.DiameterFloor < 0:
		return 0
	case e.params.DiameterFloor == 0:
		return shape.DefaultDiameterFloor
	default:
		return e.params.DiameterFloor
	}
}
