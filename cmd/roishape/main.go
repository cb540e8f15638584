package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"roishape/pkg/config"
	"roishape/pkg/extraction"
	"roishape/pkg/mask"
)

func main() {
	defaults := config.DefaultConfig()

	// Parse command line arguments
	inputPath := flag.String("input", "", "Mask input: an NRRD file, a DICOM series directory or a slice image directory")
	format := flag.String("format", defaults.Input.Format, "Input format: auto, nrrd, dicom or stack")
	spacingArg := flag.String("spacing", "", "Voxel spacing override as \"x,y,z\" in mm (default: taken from the input metadata)")
	configPath := flag.String("config", "", "Configuration file path")
	reportPath := flag.String("output", defaults.Output.ReportPath, "Feature report filename (default: print to stdout only)")
	reportFormat := flag.String("report-format", defaults.Output.ReportFormat, "Report encoding: csv or yaml")
	previews := flag.Bool("previews", defaults.Output.Previews, "Save mid-volume preview slices")
	previewDir := flag.String("previews-dir", defaults.Output.PreviewDir, "Directory to save preview slices")
	floor := flag.Float64("floor", defaults.Features.DiameterFloor, "Lowest reported maximum diameter in mm (negative disables the floor)")
	verbose := flag.Bool("verbose", defaults.Output.Verbose, "Print per-stage progress details")
	writeConfig := flag.Bool("write-config", false, "Write a default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		path := *configPath
		if path == "" {
			path = "roishape.yaml"
		}
		if err := config.CreateDefaultConfigFile(path); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", path)
		return
	}

	// Validate inputs
	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load the configuration file, then let explicitly passed flags win
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if setFlags["format"] {
		cfg.Input.Format = *format
	}
	if setFlags["output"] {
		cfg.Output.ReportPath = *reportPath
	}
	if setFlags["report-format"] {
		cfg.Output.ReportFormat = *reportFormat
	}
	if setFlags["previews"] {
		cfg.Output.Previews = *previews
	}
	if setFlags["previews-dir"] {
		cfg.Output.PreviewDir = *previewDir
	}
	if setFlags["floor"] {
		cfg.Features.DiameterFloor = *floor
	}
	if setFlags["verbose"] {
		cfg.Output.Verbose = *verbose
	}
	if setFlags["spacing"] {
		sp, err := parseSpacing(*spacingArg)
		if err != nil {
			log.Fatalf("Invalid -spacing value: %v", err)
		}
		cfg.Input.SpacingX = sp.X
		cfg.Input.SpacingY = sp.Y
		cfg.Input.SpacingZ = sp.Z
	}

	fmt.Println("================================")
	fmt.Println("3D SHAPE DESCRIPTORS FOR VOLUMETRIC REGIONS OF INTEREST")
	fmt.Println("Morphological feature extraction from binary segmentation masks")
	fmt.Println("================================")

	// Initialize extraction parameters
	params := &extraction.Params{
		InputPath:      *inputPath,
		Format:         cfg.Input.Format,
		Spacing:        mask.Spacing{X: cfg.Input.SpacingX, Y: cfg.Input.SpacingY, Z: cfg.Input.SpacingZ},
		Threshold:      cfg.Input.Threshold,
		DicomThreshold: cfg.Input.DicomThreshold,
		CropToRegion:   cfg.Input.Crop,
		DiameterFloor:  cfg.Features.DiameterFloor,
		SkipDiameter:   !cfg.Features.MaximumDiameter,
		ReportFile:     cfg.Output.ReportPath,
		ReportFormat:   cfg.Output.ReportFormat,
		SavePreviews:   cfg.Output.Previews,
		PreviewDir:     cfg.Output.PreviewDir,
		Verbose:        cfg.Output.Verbose,
	}

	// Create extractor instance
	extractor := extraction.NewExtractor(params)

	// Run the extraction pipeline
	fmt.Println("Starting shape descriptor extraction...")
	startTime := time.Now()
	if err := extractor.Run(); err != nil {
		log.Fatalf("Extraction failed: %v", err)
	}
	processingTime := time.Since(startTime)

	// Display the computed descriptors
	set := extractor.Results()
	fmt.Printf("\nExtraction completed successfully in %.2f seconds!\n", processingTime.Seconds())
	if params.ReportFile != "" {
		fmt.Printf("Feature report saved to: %s\n", params.ReportFile)
	}

	fmt.Printf("\nShape Descriptors:\n")
	fmt.Printf("==================\n")
	fmt.Printf("Voxel Count: %d\n", set.VoxelCount)
	fmt.Printf("Volume: %.3f mm^3\n", set.Volume)
	fmt.Printf("Surface Area: %.3f mm^2\n", set.SurfaceArea)
	fmt.Printf("Surface to Volume Ratio: %.6f 1/mm\n", set.SurfaceVolumeRatio)
	fmt.Printf("Compactness 1: %.6f\n", set.Compactness1)
	fmt.Printf("Compactness 2: %.6f\n", set.Compactness2)
	fmt.Printf("Spherical Disproportion: %.6f\n", set.SphericalDisproportion)
	fmt.Printf("Sphericity: %.6f\n", set.Sphericity)
	fmt.Printf("Maximum 3D Diameter: %.3f mm\n", set.Maximum3DDiameter)
	fmt.Printf("Major Axis Length: %.3f mm\n", set.MajorAxisLength)
	fmt.Printf("Minor Axis Length: %.3f mm\n", set.MinorAxisLength)
	fmt.Printf("Least Axis Length: %.3f mm\n", set.LeastAxisLength)
	fmt.Printf("Elongation: %.6f\n", set.Elongation)
	fmt.Printf("Flatness: %.6f\n", set.Flatness)
	fmt.Printf("Center of Mass: (%.3f, %.3f, %.3f) mm\n",
		set.CenterOfMass.X, set.CenterOfMass.Y, set.CenterOfMass.Z)
	fmt.Printf("Bounding Box Size: (%.3f, %.3f, %.3f) mm\n",
		set.BoundingBoxSize.X, set.BoundingBoxSize.Y, set.BoundingBoxSize.Z)

	if params.SavePreviews {
		fmt.Printf("\nPreview slices saved to: %s\n", params.PreviewDir)
	}
}

// parseSpacing parses a "x,y,z" spacing triple in mm.
func parseSpacing(s string) (mask.Spacing, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mask.Spacing{}, fmt.Errorf("expected three comma-separated values, got %q", s)
	}
	var v [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return mask.Spacing{}, fmt.Errorf("invalid value %q", part)
		}
		v[i] = f
	}
	return mask.Spacing{X: v[0], Y: v[1], Z: v[2]}, nil
}
