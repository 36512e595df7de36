package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

/* versioned.go implements an append-only multi-version index on top of any KVStore */

// Key layout:
//   [prefix][2-byte big-endian len(userKey)][userKey][^height]
//
// The version suffix is the bitwise-inverted height so that, for a single
// user key, newer versions sort first. The length prefix keeps user keys
// prefix-free: scanning [prefix][len][userKey] never visits another key.
//
// Value layout:
//   [tombstone][value]

const (
	VersionSize    = 8
	AliveTombstone = byte(0)
	DeadTombstone  = byte(1)
	// LatestHeight reads the newest version regardless of height.
	LatestHeight = math.MaxUint64
	maxUserKey   = math.MaxUint16
)

// VersionedStore records every write under the height it happened at and
// answers "value as of height H" reads. Versions are never rewritten except
// when the same key is written twice at the same height, in which case the
// later write wins.
type VersionedStore struct {
	store  KVStore
	prefix []byte
}

// NewVersionedStore creates a versioned view over store rooted at prefix.
func NewVersionedStore(store KVStore, prefix []byte) *VersionedStore {
	return &VersionedStore{store: store, prefix: bytes.Clone(prefix)}
}

// SetAt stores value for key at height.
func (vs *VersionedStore) SetAt(key, value []byte, height uint64) error {
	k, err := vs.versionedKey(key, height)
	if err != nil {
		return err
	}
	v := make([]byte, 0, len(value)+1)
	v = append(v, AliveTombstone)
	v = append(v, value...)
	return vs.store.Put(k, v)
}

// DeleteAt marks key as deleted from height onwards.
func (vs *VersionedStore) DeleteAt(key []byte, height uint64) error {
	k, err := vs.versionedKey(key, height)
	if err != nil {
		return err
	}
	return vs.store.Put(k, []byte{DeadTombstone})
}

// GetAt returns the value that was current at height. The boolean is false
// when the key had no live value at that height.
func (vs *VersionedStore) GetAt(key []byte, height uint64) ([]byte, bool, error) {
	base, err := vs.encodeKey(key)
	if err != nil {
		return nil, false, err
	}
	var (
		found bool
		value []byte
	)
	err = vs.store.Iterate(base, func(k, v []byte) bool {
		if len(k) != len(base)+VersionSize {
			return true
		}
		version := parseVersion(k)
		if version > height {
			return true
		}
		if len(v) > 0 && v[0] == AliveTombstone {
			found = true
			value = bytes.Clone(v[1:])
		}
		return false
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Latest returns the newest live value for key.
func (vs *VersionedStore) Latest(key []byte) ([]byte, bool, error) {
	return vs.GetAt(key, LatestHeight)
}

// Versions lists the heights at which key was written, newest first.
func (vs *VersionedStore) Versions(key []byte) ([]uint64, error) {
	base, err := vs.encodeKey(key)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0)
	err = vs.store.Iterate(base, func(k, _ []byte) bool {
		if len(k) == len(base)+VersionSize {
			out = append(out, parseVersion(k))
		}
		return true
	})
	return out, err
}

func (vs *VersionedStore) encodeKey(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("storage: versioned key must not be empty")
	}
	if len(key) > maxUserKey {
		return nil, fmt.Errorf("storage: versioned key exceeds %d bytes", maxUserKey)
	}
	out := make([]byte, 0, len(vs.prefix)+2+len(key)+VersionSize)
	out = append(out, vs.prefix...)
	out = binary.BigEndian.AppendUint16(out, uint16(len(key)))
	out = append(out, key...)
	return out, nil
}

func (vs *VersionedStore) versionedKey(key []byte, height uint64) ([]byte, error) {
	base, err := vs.encodeKey(key)
	if err != nil {
		return nil, err
	}
	return binary.BigEndian.AppendUint64(base, ^height), nil
}

func parseVersion(k []byte) uint64 {
	return ^binary.BigEndian.Uint64(k[len(k)-VersionSize:])
}
