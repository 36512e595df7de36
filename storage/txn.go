package storage

import (
	"bytes"
	"encoding/binary"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

/*
Txn buffers set/delete operations in memory on top of a parent store.
Reads merge the buffered operations with the parent as if Write() had
already been called. Write() flushes the buffer to the parent; Discard()
drops it, leaving the parent untouched.

CONTRACT:
  - not thread safe
  - a Txn is used for exactly one operation and then written or discarded
  - Write() is only atomic with respect to callers that do not observe the
    parent mid-flush, which holds for the single-threaded dispatcher
*/
type Txn struct {
	parent KVStore
	ops    map[string]op
	sorted []string
}

// op is a buffered write: either a value or a delete marker.
type op struct {
	value  []byte
	delete bool
}

var _ KVStore = (*Txn)(nil)

// NewTxn creates an empty transaction over parent.
func NewTxn(parent KVStore) *Txn {
	return &Txn{parent: parent, ops: make(map[string]op)}
}

// Get returns the buffered value for key, falling back to the parent.
func (t *Txn) Get(key []byte) ([]byte, error) {
	if v, ok := t.ops[string(key)]; ok {
		if v.delete {
			return nil, ErrNotFound
		}
		return bytes.Clone(v.value), nil
	}
	return t.parent.Get(key)
}

// Put buffers a write.
func (t *Txn) Put(key, value []byte) error {
	t.update(string(key), bytes.Clone(value), false)
	return nil
}

// Delete buffers a delete marker.
func (t *Txn) Delete(key []byte) error {
	t.update(string(key), nil, true)
	return nil
}

func (t *Txn) update(key string, value []byte, del bool) {
	if _, found := t.ops[key]; !found {
		i := sort.SearchStrings(t.sorted, key)
		t.sorted = append(t.sorted, "")
		copy(t.sorted[i+1:], t.sorted[i:])
		t.sorted[i] = key
	}
	t.ops[key] = op{value: value, delete: del}
}

// Iterate merges the parent's keys under prefix with the buffered operations.
// Buffered values shadow the parent and buffered deletes hide parent keys.
func (t *Txn) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	type kv struct {
		key   string
		value []byte
	}
	merged := make([]kv, 0)
	err := t.parent.Iterate(prefix, func(key, value []byte) bool {
		if _, shadowed := t.ops[string(key)]; !shadowed {
			merged = append(merged, kv{key: string(key), value: value})
		}
		return true
	})
	if err != nil {
		return err
	}
	for _, k := range t.sorted {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		o := t.ops[k]
		if o.delete {
			continue
		}
		merged = append(merged, kv{key: k, value: o.value})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].key < merged[j].key })
	for _, entry := range merged {
		if !fn([]byte(entry.key), bytes.Clone(entry.value)) {
			return nil
		}
	}
	return nil
}

// Write flushes the buffered operations to the parent in key order and resets
// the buffer.
func (t *Txn) Write() error {
	for _, k := range t.sorted {
		o := t.ops[k]
		var err error
		if o.delete {
			err = t.parent.Delete([]byte(k))
		} else {
			err = t.parent.Put([]byte(k), o.value)
		}
		if err != nil {
			return err
		}
	}
	t.Discard()
	return nil
}

// Discard drops every buffered operation.
func (t *Txn) Discard() {
	t.ops = make(map[string]op)
	t.sorted = nil
}

// Len reports the number of distinct keys touched.
func (t *Txn) Len() int { return len(t.sorted) }

// Digest returns the keccak256 hash of the buffered change set. Identical
// operations applied to identical prior state yield identical digests, which
// lets hosts compare re-executions byte for byte.
func (t *Txn) Digest() []byte {
	var buf bytes.Buffer
	var lenBuf [8]byte
	for _, k := range t.sorted {
		o := t.ops[k]
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(k)))
		buf.Write(lenBuf[:])
		buf.WriteString(k)
		if o.delete {
			buf.WriteByte(1)
			continue
		}
		buf.WriteByte(0)
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(o.value)))
		buf.Write(lenBuf[:])
		buf.Write(o.value)
	}
	return ethcrypto.Keccak256(buf.Bytes())
}
