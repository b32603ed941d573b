package sequence_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cqserve/cqserve/internal/pkg/sequence"
)

func TestMemoryStoreNewGetClear(t *testing.T) {
	store := sequence.NewMemoryStore()
	clientID := uuid.New()

	seq, err := store.New(clientID, 8)
	require.NoError(t, err)
	require.Len(t, seq, 8)

	got, err := store.Get(clientID)
	require.NoError(t, err)
	require.Equal(t, seq, got)

	require.NoError(t, store.Clear(clientID))

	_, err = store.Get(clientID)
	require.ErrorIs(t, err, sequence.ErrSessionNotFound)
}

func TestMemoryStoreNewRejectsDuplicateSession(t *testing.T) {
	store := sequence.NewMemoryStore()
	clientID := uuid.New()

	_, err := store.New(clientID, 4)
	require.NoError(t, err)

	_, err = store.New(clientID, 4)
	require.ErrorIs(t, err, sequence.ErrSessionAlreadyExists)
}

func TestMemoryStoreGenerationIsReproducibleForSameClientID(t *testing.T) {
	clientID := uuid.New()

	store1 := sequence.NewMemoryStore()
	seq1, err := store1.New(clientID, 16)
	require.NoError(t, err)

	store2 := sequence.NewMemoryStore()
	seq2, err := store2.New(clientID, 16)
	require.NoError(t, err)

	require.Equal(t, seq1, seq2, "the same client id must seed the same sequence")
}

func TestMemoryStoreClearUnknownSession(t *testing.T) {
	store := sequence.NewMemoryStore()
	err := store.Clear(uuid.New())
	require.ErrorIs(t, err, sequence.ErrSessionNotFound)
}
