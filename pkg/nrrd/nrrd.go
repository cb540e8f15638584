// Package nrrd reads and writes binary voxel masks in the NRRD file
// format, restricted to the subset segmentation tools exchange: 3D 8-bit
// data, raw or gzip encoding, axis-aligned voxel spacing.
package nrrd

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"roishape/pkg/mask"
)

// Encoding selects how Write stores the voxel data.
type Encoding string

const (
	// Raw stores the voxel bytes uncompressed.
	Raw Encoding = "raw"

	// Gzip stores the voxel bytes as a single gzip stream.
	Gzip Encoding = "gzip"
)

const magic = "NRRD0004"

// header collects the fields the reader needs; everything else in the
// file is skipped.
type header struct {
	typ        string
	dimension  int
	sizes      []int
	encoding   string
	spacing    mask.Spacing
	hasSpacing bool
}

// ReadFile loads a binary mask from an NRRD file on disk.
func ReadFile(path string) (*mask.BinaryMask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NRRD file: %v", err)
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", path, err)
	}
	return m, nil
}

// Read parses an NRRD stream into a binary mask. Any nonzero voxel byte
// marks a region voxel.
func Read(r io.Reader) (*mask.BinaryMask, error) {
	br := bufio.NewReader(r)

	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	nx, ny, nz := h.sizes[0], h.sizes[1], h.sizes[2]
	n := nx * ny * nz

	var data []byte
	switch h.encoding {
	case "raw":
		data, err = readExactly(br, n)
	case "gzip", "gz":
		var zr *gzip.Reader
		zr, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %v", err)
		}
		data, err = readExactly(zr, n)
		if cerr := zr.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close gzip stream: %v", cerr)
		}
	default:
		return nil, fmt.Errorf("unsupported encoding %q", h.encoding)
	}
	if err != nil {
		return nil, err
	}

	// The NRRD layout with fastest axis first matches the mask's flat
	// layout, so the bytes map one to one.
	return mask.NewFromData(data, nz, ny, nx, h.spacing)
}

// readExactly reads n voxel bytes and confirms the stream holds no more.
func readExactly(r io.Reader, n int) ([]byte, error) {
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("voxel data truncated: %v", err)
	}
	var one [1]byte
	if _, err := io.ReadFull(r, one[:]); err != io.EOF {
		return nil, fmt.Errorf("voxel data longer than the declared sizes")
	}
	return data, nil
}

func readHeader(br *bufio.Reader) (*header, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read NRRD magic: %v", err)
	}
	if !validMagic(line) {
		return nil, fmt.Errorf("not an NRRD file: bad magic %q", line)
	}

	h := &header{}
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read NRRD header: %v", err)
		}
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		// "key:=value" lines are free-form annotations, not fields.
		if strings.Contains(line, ":=") {
			continue
		}

		i := strings.Index(line, ":")
		if i < 0 {
			return nil, fmt.Errorf("malformed NRRD header line %q", line)
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		value := strings.TrimSpace(line[i+1:])

		switch key {
		case "type":
			h.typ = strings.ToLower(value)
		case "dimension":
			h.dimension, err = strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid dimension %q", value)
			}
		case "sizes":
			h.sizes, err = parseInts(value)
			if err != nil {
				return nil, fmt.Errorf("invalid sizes %q: %v", value, err)
			}
		case "encoding":
			h.encoding = strings.ToLower(value)
		case "spacings":
			h.spacing, err = parseSpacings(value)
			if err != nil {
				return nil, err
			}
			h.hasSpacing = true
		case "space directions":
			h.spacing, err = parseSpaceDirections(value)
			if err != nil {
				return nil, err
			}
			h.hasSpacing = true
		}
	}

	switch h.typ {
	case "uint8", "uchar", "unsigned char":
	case "":
		return nil, fmt.Errorf("missing type field")
	default:
		return nil, fmt.Errorf("unsupported type %q: only 8-bit masks are supported", h.typ)
	}
	if h.dimension != 3 {
		return nil, fmt.Errorf("unsupported dimension %d: only 3D masks are supported", h.dimension)
	}
	if len(h.sizes) != 3 {
		return nil, fmt.Errorf("expected 3 sizes, got %d", len(h.sizes))
	}
	for _, s := range h.sizes {
		if s <= 0 {
			return nil, fmt.Errorf("sizes must be positive, got %v", h.sizes)
		}
	}
	if h.encoding == "" {
		return nil, fmt.Errorf("missing encoding field")
	}
	if !h.hasSpacing {
		return nil, fmt.Errorf("missing voxel spacing: need a spacings or space directions field")
	}
	if !h.spacing.Valid() {
		return nil, fmt.Errorf("voxel spacing must be positive, got %+v", h.spacing)
	}
	return h, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// validMagic accepts any NRRD format revision, "NRRD0001" and up.
func validMagic(line string) bool {
	if len(line) != 8 || !strings.HasPrefix(line, "NRRD000") {
		return false
	}
	return line[7] >= '1' && line[7] <= '9'
}

func parseInts(value string) ([]int, error) {
	fields := strings.Fields(value)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parseSpacings maps "sx sy sz" onto the mask spacing, fastest axis
// first.
func parseSpacings(value string) (mask.Spacing, error) {
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return mask.Spacing{}, fmt.Errorf("expected 3 spacings, got %q", value)
	}
	var v [3]float64
	for i, f := range fields {
		parsed, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return mask.Spacing{}, fmt.Errorf("invalid spacing %q", f)
		}
		v[i] = parsed
	}
	return mask.Spacing{X: v[0], Y: v[1], Z: v[2]}, nil
}

// parseSpaceDirections maps a diagonal direction triple like
// "(0.5,0,0) (0,0.5,0) (0,0,2)" onto the mask spacing. Orientation flips
// carry a sign on the diagonal; the magnitude is the spacing. Anything
// off-diagonal means an oblique grid, which the mask cannot represent.
func parseSpaceDirections(value string) (mask.Spacing, error) {
	vectors := strings.Fields(value)
	if len(vectors) != 3 {
		return mask.Spacing{}, fmt.Errorf("expected 3 space directions, got %q", value)
	}
	var diag [3]float64
	for i, vec := range vectors {
		trimmed := strings.TrimSuffix(strings.TrimPrefix(vec, "("), ")")
		parts := strings.Split(trimmed, ",")
		if len(parts) != 3 {
			return mask.Spacing{}, fmt.Errorf("invalid space direction %q", vec)
		}
		for j, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return mask.Spacing{}, fmt.Errorf("invalid space direction %q", vec)
			}
			if i == j {
				diag[i] = math.Abs(v)
			} else if v != 0 {
				return mask.Spacing{}, fmt.Errorf("oblique space directions are not supported: %q", value)
			}
		}
	}
	return mask.Spacing{X: diag[0], Y: diag[1], Z: diag[2]}, nil
}

// WriteFile stores a binary mask as an NRRD file on disk.
func WriteFile(path string, m *mask.BinaryMask, enc Encoding) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create NRRD file: %v", err)
	}
	if err := Write(f, m, enc); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %v", path, err)
	}
	return f.Close()
}

// Write stores a binary mask as an NRRD stream with the given encoding.
func Write(w io.Writer, m *mask.BinaryMask, enc Encoding) error {
	if m == nil {
		return fmt.Errorf("mask must not be nil")
	}
	if enc != Raw && enc != Gzip {
		return fmt.Errorf("unsupported encoding %q", enc)
	}

	nz, ny, nx := m.Dims()
	sp := m.Spacing()

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n", magic)
	fmt.Fprintf(bw, "type: uint8\n")
	fmt.Fprintf(bw, "dimension: 3\n")
	fmt.Fprintf(bw, "sizes: %d %d %d\n", nx, ny, nz)
	fmt.Fprintf(bw, "encoding: %s\n", enc)
	fmt.Fprintf(bw, "spacings: %s %s %s\n",
		formatSpacing(sp.X), formatSpacing(sp.Y), formatSpacing(sp.Z))
	fmt.Fprintf(bw, "\n")

	switch enc {
	case Raw:
		if _, err := bw.Write(m.Data()); err != nil {
			return fmt.Errorf("failed to write voxel data: %v", err)
		}
	case Gzip:
		zw := gzip.NewWriter(bw)
		if _, err := zw.Write(m.Data()); err != nil {
			return fmt.Errorf("failed to compress voxel data: %v", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %v", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write voxel data: %v", err)
	}
	return nil
}

// formatSpacing renders a spacing component with enough digits to round
// trip exactly.
func formatSpacing(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
