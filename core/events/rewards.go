package events

import "vegov/core/types"

const (
	// TypeRewardsClaimed is emitted when a claimant's cursor advances.
	TypeRewardsClaimed = "rewards.claimed"
	// TypeDelegatedClaimed is emitted when a delegator claims through a delegate.
	TypeDelegatedClaimed = "rewards.delegatedClaimed"
)

// RewardsClaimed summarises one claim.
type RewardsClaimed struct {
	AppID     uint64
	Claimant  string
	Cursor    uint64
	Proposals int
	Bribe     types.Coins
	Surplus   types.Coins
	Rebase    types.Coins
}

// EventType satisfies the Event interface.
func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// Event converts the payload into a broadcastable event.
func (e RewardsClaimed) Event() *types.Event {
	return &types.Event{Type: TypeRewardsClaimed, Attributes: map[string]string{
		"app":       uintToString(e.AppID),
		"claimant":  e.Claimant,
		"cursor":    uintToString(e.Cursor),
		"proposals": uintToString(uint64(e.Proposals)),
		"bribe":     formatCoins(e.Bribe),
		"surplus":   formatCoins(e.Surplus),
		"rebase":    formatCoins(e.Rebase),
	}}
}

// DelegatedClaimed summarises a delegated claim.
type DelegatedClaimed struct {
	Delegator   string
	Delegate    string
	Proposals   []uint64
	User        types.Coins
	DelegateFee types.Coins
	Protocol    types.Coins
}

// EventType satisfies the Event interface.
func (DelegatedClaimed) EventType() string { return TypeDelegatedClaimed }

// Event converts the payload into a broadcastable event.
func (e DelegatedClaimed) Event() *types.Event {
	return &types.Event{Type: TypeDelegatedClaimed, Attributes: map[string]string{
		"delegator":   e.Delegator,
		"delegate":    e.Delegate,
		"proposals":   uintToString(uint64(len(e.Proposals))),
		"user":        formatCoins(e.User),
		"delegateFee": formatCoins(e.DelegateFee),
		"protocol":    formatCoins(e.Protocol),
	}}
}
