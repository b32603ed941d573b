package sequence_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqserve/cqserve/internal/pkg/sequence"
)

func TestSumAddsAllValues(t *testing.T) {
	sum, err := sequence.Sum([]uint32{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, uint64(10), sum)
}

func TestSumEmptySequence(t *testing.T) {
	sum, err := sequence.Sum(nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), sum)
}

func TestSumTooLongIsRejected(t *testing.T) {
	seq := make([]uint32, sequence.MaxLength+1)
	_, err := sequence.Sum(seq)
	require.ErrorIs(t, err, sequence.ErrSequenceTooLong)
}
