package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"vegov/storage"
)

// Manager persists every engine record as rlp over a key/value store. Engines
// see it through narrow interfaces; the dispatcher hands each operation a
// Manager bound to that operation's transaction.
type Manager struct {
	store      storage.KVStore
	delegation *storage.VersionedStore
}

// NewManager creates a state manager operating on the provided store.
func NewManager(store storage.KVStore) *Manager {
	return &Manager{
		store:      store,
		delegation: storage.NewVersionedStore(store, delegVersionedPrefix),
	}
}

// Store exposes the underlying key/value store.
func (m *Manager) Store() storage.KVStore { return m.store }

func (m *Manager) getRaw(key []byte) ([]byte, bool, error) {
	if m == nil || m.store == nil {
		return nil, false, fmt.Errorf("state manager unavailable")
	}
	data, err := m.store.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	data, ok, err := m.getRaw(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("state manager unavailable")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.store.Put(key, encoded)
}

func (m *Manager) delete(key []byte) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("state manager unavailable")
	}
	return m.store.Delete(key)
}

// nextSequence returns the next value of a 1-based counter.
func (m *Manager) nextSequence(key []byte) (uint64, error) {
	var current uint64
	if _, err := m.get(key, &current); err != nil {
		return 0, err
	}
	current++
	if err := m.put(key, current); err != nil {
		return 0, err
	}
	return current, nil
}

func (m *Manager) currentSequence(key []byte) (uint64, error) {
	var current uint64
	_, err := m.get(key, &current)
	return current, err
}

// ParamStoreSet persists a raw parameter value.
func (m *Manager) ParamStoreSet(name string, value []byte) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("state manager unavailable")
	}
	return m.store.Put(paramsKey(name), value)
}

// ParamStoreGet loads a raw parameter value.
func (m *Manager) ParamStoreGet(name string) ([]byte, bool, error) {
	return m.getRaw(paramsKey(name))
}

func decodeList(key, value []byte, out interface{}) error {
	if err := rlp.DecodeBytes(value, out); err != nil {
		return fmt.Errorf("state: decode %q: %w", key, err)
	}
	return nil
}
