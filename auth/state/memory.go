package state

import (
	"context"
	"sync"

	"github.com/gravitational/trace"
)

// MemoryStore keeps the pair in process memory.
type MemoryStore struct {
	lock  sync.RWMutex
	creds *Credentials
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) GetCredentials(_ context.Context) (*Credentials, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.creds == nil {
		return nil, notFound()
	}
	creds := *m.creds
	return &creds, nil
}

func (m *MemoryStore) PutCredentials(_ context.Context, creds *Credentials) error {
	if err := creds.CheckAndSetDefaults(); err != nil {
		return trace.Wrap(err)
	}
	stored := *creds
	m.lock.Lock()
	m.creds = &stored
	m.lock.Unlock()
	return nil
}

func (m *MemoryStore) ClearCredentials(_ context.Context) error {
	m.lock.Lock()
	m.creds = nil
	m.lock.Unlock()
	return nil
}
