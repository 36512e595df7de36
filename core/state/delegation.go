package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"vegov/native/delegation"
)

func (m *Manager) versionedGet(key []byte, height uint64, out interface{}) (bool, error) {
	data, ok, err := m.delegation.GetAt(key, height)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode delegation record: %w", err)
	}
	return true, nil
}

func (m *Manager) versionedPut(key []byte, height uint64, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode delegation record: %w", err)
	}
	return m.delegation.SetAt(key, encoded, height)
}

// DelegationAt returns the delegator's delegation as of height.
func (m *Manager) DelegationAt(delegator string, height uint64) (*delegation.Delegation, bool, error) {
	d := new(delegation.Delegation)
	ok, err := m.versionedGet(delegationUserKey(delegKindDelegation, delegator), height, d)
	if err != nil || !ok {
		return nil, false, err
	}
	return d, true, nil
}

// DelegationPut records the delegator's delegation at height.
func (m *Manager) DelegationPut(d *delegation.Delegation, height uint64) error {
	return m.versionedPut(delegationUserKey(delegKindDelegation, d.Delegator), height, d)
}

// DelegationStatsAt returns the delegate's totals for denom as of height.
func (m *Manager) DelegationStatsAt(delegate, denom string, height uint64) (*delegation.Stats, bool, error) {
	s := new(delegation.Stats)
	ok, err := m.versionedGet(delegationUserKey(delegKindStats, delegate, denom), height, s)
	if err != nil || !ok {
		return nil, false, err
	}
	return s, true, nil
}

// DelegationPutStats records the delegate's totals at height.
func (m *Manager) DelegationPutStats(s *delegation.Stats, height uint64) error {
	return m.versionedPut(delegationUserKey(delegKindStats, s.Delegate, s.Denom), height, s)
}

// DelegationInfoAt returns the delegate's fee terms as of height.
func (m *Manager) DelegationInfoAt(delegate string, height uint64) (*delegation.Info, bool, error) {
	info := new(delegation.Info)
	ok, err := m.versionedGet(delegationUserKey(delegKindInfo, delegate), height, info)
	if err != nil || !ok {
		return nil, false, err
	}
	return info, true, nil
}

// DelegationPutInfo records the delegate's fee terms at height.
func (m *Manager) DelegationPutInfo(info *delegation.Info, height uint64) error {
	return m.versionedPut(delegationUserKey(delegKindInfo, info.Delegate), height, info)
}

// DelegationVersions lists the heights at which the delegator's delegation
// changed, newest first.
func (m *Manager) DelegationVersions(delegator string) ([]uint64, error) {
	return m.delegation.Versions(delegationUserKey(delegKindDelegation, delegator))
}

// DelegationClaims loads the proposals the delegator already claimed through
// delegate.
func (m *Manager) DelegationClaims(delegator, delegate string) (*delegation.Claims, error) {
	c := &delegation.Claims{Delegator: delegator, Delegate: delegate}
	if _, err := m.get(delegClaimsKey(delegator, delegate), c); err != nil {
		return nil, err
	}
	return c, nil
}

// DelegationPutClaims stores the claimed-proposal list.
func (m *Manager) DelegationPutClaims(c *delegation.Claims) error {
	return m.put(delegClaimsKey(c.Delegator, c.Delegate), c)
}

// DelegationClaimed reports whether the delegator claimed proposalID through
// delegate.
func (m *Manager) DelegationClaimed(delegator, delegate string, proposalID uint64) (bool, error) {
	_, ok, err := m.getRaw(delegClaimedKey(delegator, delegate, proposalID))
	return ok, err
}

// DelegationSetClaimed flags proposalID as claimed.
func (m *Manager) DelegationSetClaimed(delegator, delegate string, proposalID uint64) error {
	return m.store.Put(delegClaimedKey(delegator, delegate, proposalID), []byte{1})
}
