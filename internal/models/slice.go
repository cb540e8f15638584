package models

// Slice represents a single decoded cross-section of a scan, as produced
// by the input loaders before the binary mask is assembled.
type Slice struct {
	// Pixels holds the slice samples in row-major order, Rows*Cols
	// values normalized to [0, 1]
	Pixels []float64

	// Cols and Rows are the pixel dimensions of the slice; the column
	// index varies fastest in Pixels
	Cols, Rows int

	// Index is the position of this slice in the stack, lowest first
	Index int

	// Filename is the original filename of the slice
	Filename string

	// Position is the physical location of the slice along the stacking
	// axis in mm, when the source records one
	Position float64
}
