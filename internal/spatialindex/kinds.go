package spatialindex

import "fmt"

// IndexKind identifies which pulse coordinate pair a grid index is
// built over. Values keep the SPD heritage numbering so persisted
// indexes stay readable across implementations.
type IndexKind int

const (
	KindCartesian   IndexKind = 1
	KindSpherical   IndexKind = 2
	KindCylindrical IndexKind = 3 // recognized, not supported
	KindPolar       IndexKind = 4 // recognized, not supported
	KindScan        IndexKind = 5
)

// ParseKind maps a lowercase kind name back to its IndexKind.
func ParseKind(s string) (IndexKind, error) {
	switch s {
	case "cartesian":
		return KindCartesian, nil
	case "spherical":
		return KindSpherical, nil
	case "cylindrical":
		return KindCylindrical, nil
	case "polar":
		return KindPolar, nil
	case "scan":
		return KindScan, nil
	default:
		return 0, fmt.Errorf("unknown index kind %q", s)
	}
}

// String returns the lowercase kind name.
func (k IndexKind) String() string {
	switch k {
	case KindCartesian:
		return "cartesian"
	case KindSpherical:
		return "spherical"
	case KindCylindrical:
		return "cylindrical"
	case KindPolar:
		return "polar"
	case KindScan:
		return "scan"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CoordColumns returns the (column-axis, row-axis) pulse column names
// the kind indexes over, in store column naming. Cylindrical and polar
// indexing are recognized for compatibility but not supported.
func (k IndexKind) CoordColumns() (x, y string, err error) {
	switch k {
	case KindCartesian:
		return "x_idx", "y_idx", nil
	case KindSpherical:
		return "azimuth", "zenith", nil
	case KindScan:
		return "scanline_idx", "scanline", nil
	case KindCylindrical, KindPolar:
		return "", "", fmt.Errorf("index kind %s is not supported", k)
	default:
		return "", "", fmt.Errorf("unknown index kind %d", int(k))
	}
}
