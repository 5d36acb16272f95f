package deg

import "math/bits"

// Filter is a bitset over external label values, consulted only during
// result admission in Search — never during frontier expansion, so an
// invalid vertex never blocks reachability (spec §4.6). Ported from
// deglib's filter.h: a flat []uint64 bitset plus an inclusion-rate
// estimate, rather than the teacher's pkg/search predicate-tree Filter
// (that one matches structured metadata; DEG only ever needs label
// membership, so the original C++ design is the closer fit here).
type Filter struct {
	bitset    []uint64
	maxValue  uint32
	maxLabels uint64
	count     uint64
}

// NewFilter builds a filter admitting exactly validLabels, against a
// universe of maxValue (largest label value that can ever appear) and
// maxLabelCount (total distinct labels that could exist, used for the
// inclusion-rate denominator).
func NewFilter(validLabels []uint32, maxValue uint32, maxLabelCount uint64) *Filter {
	f := &Filter{
		bitset:    make([]uint64, maxValue/64+1),
		maxValue:  maxValue,
		maxLabels: maxLabelCount,
	}
	for _, label := range validLabels {
		if label > maxValue {
			continue
		}
		word, bit := label/64, uint64(1)<<(label%64)
		if f.bitset[word]&bit == 0 {
			f.bitset[word] |= bit
			f.count++
		}
	}
	return f
}

// IsValid reports whether label passes the filter.
func (f *Filter) IsValid(label uint32) bool {
	if label > f.maxValue {
		return false
	}
	word, bit := label/64, uint64(1)<<(label%64)
	return f.bitset[word]&bit != 0
}

// Size returns the number of labels admitted by the filter.
func (f *Filter) Size() uint64 { return f.count }

// InclusionRate returns the ratio of admitted labels to the total possible
// label population.
func (f *Filter) InclusionRate() float64 {
	if f.maxLabels == 0 {
		return 0
	}
	return float64(f.count) / float64(f.maxLabels)
}

// ForEachValidLabel calls fn for every admitted label in ascending order.
func (f *Filter) ForEachValidLabel(fn func(label uint32)) {
	for wordIdx, word := range f.bitset {
		for word != 0 {
			bitPos := bits.TrailingZeros64(word)
			fn(uint32(wordIdx*64 + bitPos))
			word &= word - 1 // clear lowest set bit
		}
	}
}
