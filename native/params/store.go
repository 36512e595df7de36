package params

import (
	"bytes"
	"encoding/json"
	"fmt"

	coreerrors "vegov/core/errors"
)

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Store provides typed accessors for the persisted configuration.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetGlobal validates and persists the global state. Values are marshalled as
// JSON so operators can inspect them with generic tooling.
func (s *Store) SetGlobal(global GlobalState) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	if err := global.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(global)
	if err != nil {
		return fmt.Errorf("params: encode global: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyGlobal, encoded)
}

// Global loads the persisted global state. A missing record means genesis has
// not run yet.
func (s *Store) Global() (*GlobalState, error) {
	state, err := s.withState()
	if err != nil {
		return nil, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyGlobal)
	if err != nil {
		return nil, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return nil, coreerrors.Wrap(coreerrors.ErrNotFound, "params: global state not initialised")
	}
	var global GlobalState
	if err := json.Unmarshal(raw, &global); err != nil {
		return nil, fmt.Errorf("params: decode global: %w", err)
	}
	return &global, nil
}

// Initialised reports whether genesis has been applied.
func (s *Store) Initialised() (bool, error) {
	state, err := s.withState()
	if err != nil {
		return false, err
	}
	_, ok, err := state.ParamStoreGet(ParamsKeyGlobal)
	return ok, err
}
