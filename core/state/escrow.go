package state

import (
	"vegov/native/escrow"
)

// EscrowHolder loads the holder registration of owner.
func (m *Manager) EscrowHolder(owner string) (*escrow.HolderRecord, bool, error) {
	record := new(escrow.HolderRecord)
	ok, err := m.get(escrowHolderKey(owner), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

// EscrowPutHolder stores a holder registration.
func (m *Manager) EscrowPutHolder(record *escrow.HolderRecord) error {
	return m.put(escrowHolderKey(record.Owner), record)
}

// EscrowNextHolderID allocates the next holder identifier.
func (m *Manager) EscrowNextHolderID() (uint64, error) {
	return m.nextSequence(escrowHolderSeqKey)
}

// EscrowNextEntryID allocates the next entry identifier.
func (m *Manager) EscrowNextEntryID() (uint64, error) {
	return m.nextSequence(escrowEntrySeqKey)
}

// EscrowLastEntryID returns the highest entry id issued so far, 0 before the
// first lock.
func (m *Manager) EscrowLastEntryID() (uint64, error) {
	return m.currentSequence(escrowEntrySeqKey)
}

// EscrowEntries loads the entries of (owner, denom) in creation order.
func (m *Manager) EscrowEntries(owner, denom string) ([]*escrow.VoteTokenEntry, error) {
	var entries []*escrow.VoteTokenEntry
	if _, err := m.get(escrowEntriesKey(owner, denom), &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*escrow.VoteTokenEntry{}
	}
	return entries, nil
}

// EscrowPutEntries replaces the entries of (owner, denom). An empty list
// removes the key so owner range queries stay tight.
func (m *Manager) EscrowPutEntries(owner, denom string, entries []*escrow.VoteTokenEntry) error {
	key := escrowEntriesKey(owner, denom)
	if len(entries) == 0 {
		return m.delete(key)
	}
	return m.put(key, entries)
}

// EscrowOwnerEntries derives the owner view by scanning every (owner, *) key.
// Denoms come back in key order.
func (m *Manager) EscrowOwnerEntries(owner string) ([]*escrow.VoteTokenEntry, error) {
	out := make([]*escrow.VoteTokenEntry, 0)
	var decodeErr error
	err := m.store.Iterate(escrowOwnerPrefix(owner), func(key, value []byte) bool {
		var entries []*escrow.VoteTokenEntry
		if decodeErr = decodeList(key, value, &entries); decodeErr != nil {
			return false
		}
		out = append(out, entries...)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

// EscrowSupply loads the totals of denom, zero when nothing was ever locked.
func (m *Manager) EscrowSupply(denom string) (*escrow.SupplyTotals, error) {
	totals := escrow.NewSupplyTotals(denom)
	ok, err := m.get(escrowSupplyKey(denom), totals)
	if err != nil {
		return nil, err
	}
	if !ok {
		return escrow.NewSupplyTotals(denom), nil
	}
	return totals, nil
}

// EscrowPutSupply stores the totals of a denom.
func (m *Manager) EscrowPutSupply(totals *escrow.SupplyTotals) error {
	return m.put(escrowSupplyKey(totals.Denom), totals)
}
