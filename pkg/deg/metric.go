package deg

import "fmt"

// Metric identifies the distance function paired with an element type.
// Mirrors the binary file format's metric tag (see pkg/degio).
type Metric uint8

const (
	L2Float32 Metric = 0x01 // squared L2 over f32
	IPFloat32 Metric = 0x02 // 1 - dot(a, b) over f32
	L2Uint8   Metric = 0x11 // squared L2 over u8, widened to avoid overflow
)

// String renders the metric tag for logging and error messages.
func (m Metric) String() string {
	switch m {
	case L2Float32:
		return "l2f32"
	case IPFloat32:
		return "ipf32"
	case L2Uint8:
		return "l2u8"
	default:
		return fmt.Sprintf("metric(0x%02x)", uint8(m))
	}
}

// ElemSize returns the byte size of a single vector element for the metric.
func (m Metric) ElemSize() (int, error) {
	switch m {
	case L2Float32, IPFloat32:
		return 4, nil
	case L2Uint8:
		return 1, nil
	default:
		return 0, fmt.Errorf("deg: unknown metric tag 0x%02x", uint8(m))
	}
}
