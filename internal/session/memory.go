// ABOUTME: In-process session slot that stores the encoded payload
// ABOUTME: Lets tests seed arbitrary (including malformed) payloads

package session

import (
	"context"
	"sync"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	payload []byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWithPayload seeds the slot with a raw payload.
func NewMemoryStoreWithPayload(raw []byte) *MemoryStore {
	return &MemoryStore{payload: append([]byte(nil), raw...)}
}

func (m *MemoryStore) Load(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.payload == nil {
		return nil, nil
	}
	s, err := Decode(m.payload)
	if err != nil {
		return nil, nil
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.payload = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	m.payload = nil
	m.mu.Unlock()
	return nil
}

// Raw returns a copy of the stored payload, nil when empty.
func (m *MemoryStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.payload == nil {
		return nil
	}
	return append([]byte(nil), m.payload...)
}
