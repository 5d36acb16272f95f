package deg

import (
	"encoding/binary"
	"fmt"
	"math"
)

// kernelFunc computes the distance between two feature byte spans of equal,
// fixed length. Selected once at Space construction from (dim, metric),
// mirroring the teacher's function-pointer dispatch
// (pkg/hnsw/distance.go's DistanceFunc) generalized to operate on raw bytes
// per spec §4.1 rather than pre-decoded []float32.
type kernelFunc func(a, b []byte) float32

// Space maps two feature byte spans to a scalar distance under a fixed
// dimension and metric. Kernel selection happens once at construction; the
// hot path never branches on dim again.
type Space struct {
	metric   Metric
	dim      int
	elemSize int
	dataSize int
	kernel   kernelFunc
}

// NewSpace builds a distance space for the given metric and dimension.
func NewSpace(metric Metric, dim int) (*Space, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("deg: dimension must be positive, got %d", dim)
	}

	elemSize, err := metric.ElemSize()
	if err != nil {
		return nil, err
	}

	var kernel kernelFunc
	switch metric {
	case L2Float32:
		kernel = l2Float32Kernel(dim)
	case IPFloat32:
		kernel = ipFloat32Kernel(dim)
	case L2Uint8:
		kernel = l2Uint8Kernel(dim)
	default:
		return nil, fmt.Errorf("deg: unsupported metric %v for dim %d", metric, dim)
	}

	return &Space{
		metric:   metric,
		dim:      dim,
		elemSize: elemSize,
		dataSize: dim * elemSize,
		kernel:   kernel,
	}, nil
}

// Metric returns the configured metric.
func (s *Space) Metric() Metric { return s.metric }

// Dim returns the configured vector dimension.
func (s *Space) Dim() int { return s.dim }

// DataSize returns dim * sizeof(elem), the byte length of one feature.
func (s *Space) DataSize() int { return s.dataSize }

// Distance computes the distance between two feature byte spans, both of
// length DataSize(). Deterministic and, for L2, reflexive and returned as
// a squared value (spec §4.1): all comparisons elsewhere in the system use
// squared distances directly, never taking a square root.
func (s *Space) Distance(a, b []byte) float32 {
	return s.kernel(a, b)
}

// decodeFloat32 reads the i-th float32 out of a little-endian byte span.
func decodeFloat32(buf []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
}

// l2Float32Kernel returns a squared-L2 kernel over f32 elements. The
// source's residual dispatch on dim mod {16,8,4} selects a SIMD-width
// specialization at construction time; without cgo/SIMD intrinsics a
// portable stand-in is a 4-wide unrolled scalar accumulation loop, which
// the spec explicitly allows (§4.1: SIMD specialization is an
// implementation concern, not part of the algorithmic contract) as long as
// it reproduces the scalar definition bit-for-bit up to platform rounding.
func l2Float32Kernel(dim int) kernelFunc {
	unrolled := dim - dim%4
	return func(a, b []byte) float32 {
		var sum float32
		i := 0
		for ; i < unrolled; i += 4 {
			d0 := decodeFloat32(a, i) - decodeFloat32(b, i)
			d1 := decodeFloat32(a, i+1) - decodeFloat32(b, i+1)
			d2 := decodeFloat32(a, i+2) - decodeFloat32(b, i+2)
			d3 := decodeFloat32(a, i+3) - decodeFloat32(b, i+3)
			sum += d0*d0 + d1*d1 + d2*d2 + d3*d3
		}
		for ; i < dim; i++ {
			d := decodeFloat32(a, i) - decodeFloat32(b, i)
			sum += d * d
		}
		return sum
	}
}

// ipFloat32Kernel returns the 1 - dot(a, b) kernel over f32 elements.
func ipFloat32Kernel(dim int) kernelFunc {
	unrolled := dim - dim%4
	return func(a, b []byte) float32 {
		var sum float32
		i := 0
		for ; i < unrolled; i += 4 {
			sum += decodeFloat32(a, i)*decodeFloat32(b, i) +
				decodeFloat32(a, i+1)*decodeFloat32(b, i+1) +
				decodeFloat32(a, i+2)*decodeFloat32(b, i+2) +
				decodeFloat32(a, i+3)*decodeFloat32(b, i+3)
		}
		for ; i < dim; i++ {
			sum += decodeFloat32(a, i) * decodeFloat32(b, i)
		}
		return 1 - sum
	}
}

// l2Uint8Kernel returns a squared-L2 kernel over u8 elements, widened to
// int32 before squaring to avoid overflow (spec §4.1: "widens to 16-bit,
// squares, accumulates" — int32 is the natural Go widening target and
// strictly wider than the spec's minimum, so no precision is lost).
func l2Uint8Kernel(dim int) kernelFunc {
	unrolled := dim - dim%8
	return func(a, b []byte) float32 {
		var sum int32
		i := 0
		for ; i < unrolled; i += 8 {
			for j := 0; j < 8; j++ {
				d := int32(a[i+j]) - int32(b[i+j])
				sum += d * d
			}
		}
		for ; i < dim; i++ {
			d := int32(a[i]) - int32(b[i])
			sum += d * d
		}
		return float32(sum)
	}
}
