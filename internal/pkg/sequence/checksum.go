package sequence

import "math"

// MaxLength bounds how many values a single sequence session may hold, the
// same 2^16-1 cap mschristensen-risp's checksum.Sum documented.
const MaxLength = math.MaxUint16

// Sum adds up every value in seq. The maximum sequence length keeps the
// result representable in a uint64 (2^16-1 values of up to 2^32-1 each).
func Sum(seq []uint32) (uint64, error) {
	if len(seq) > MaxLength {
		return 0, ErrSequenceTooLong
	}
	var sum uint64
	for _, v := range seq {
		sum += uint64(v)
	}
	return sum, nil
}
