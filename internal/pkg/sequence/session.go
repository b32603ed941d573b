// Package sequence implements the "Sequence" demo ServerStream service: a
// client asks for a random uint32 sequence of a given length, the server
// generates one server-side and streams it one value at a time, finishing
// with a checksum trailer. Adapted from mschristensen-risp's
// internal/pkg/session and internal/pkg/handler, which drove the same
// generate-then-stream-then-checksum shape over a hand-rolled
// connect/ack/window protocol; here the streaming and completion signal
// are cq's ServerStream Writer and terminal status instead.
package sequence

import (
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// Store tracks in-progress sequence sessions, one per client-supplied id.
type Store interface {
	New(clientID uuid.UUID, length uint16) ([]uint32, error)
	Get(clientID uuid.UUID) ([]uint32, error)
	Clear(clientID uuid.UUID) error
}

// MemoryStore is an in-process Store, the same shape as
// mschristensen-risp's session.MemoryStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID][]uint32
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID][]uint32)}
}

// New generates a random sequence of length values for clientID.
func (m *MemoryStore) New(clientID uuid.UUID, length uint16) ([]uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[clientID]; ok {
		return nil, ErrSessionAlreadyExists
	}
	seq := make([]uint32, length)
	seed := int64(binary.BigEndian.Uint64(clientID[:8]))
	r := rand.New(rand.NewSource(seed))
	for i := range seq {
		seq[i] = r.Uint32()
	}
	m.sessions[clientID] = seq
	return seq, nil
}

// Get returns the sequence previously generated for clientID.
func (m *MemoryStore) Get(clientID uuid.UUID) ([]uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seq, ok := m.sessions[clientID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return seq, nil
}

// Clear discards the session for clientID.
func (m *MemoryStore) Clear(clientID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[clientID]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, clientID)
	return nil
}
