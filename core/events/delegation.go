package events

import (
	"math/big"

	"vegov/core/types"
)

const (
	// TypeDelegateRegistered is emitted when a delegate publishes fee ratios.
	TypeDelegateRegistered = "delegation.registered"
	// TypeDelegated is emitted when a delegator assigns weight.
	TypeDelegated = "delegation.delegated"
	// TypeUndelegated is emitted when a delegator withdraws weight.
	TypeUndelegated = "delegation.undelegated"
)

// DelegateRegistered captures the fee terms of a delegate.
type DelegateRegistered struct {
	Delegate          string
	DelegatorFeeRatio string
	ProtocolFeeRatio  string
	Height            uint64
}

// EventType satisfies the Event interface.
func (DelegateRegistered) EventType() string { return TypeDelegateRegistered }

// Event converts the payload into a broadcastable event.
func (e DelegateRegistered) Event() *types.Event {
	return &types.Event{Type: TypeDelegateRegistered, Attributes: map[string]string{
		"delegate":     e.Delegate,
		"delegatorFee": e.DelegatorFeeRatio,
		"protocolFee":  e.ProtocolFeeRatio,
		"height":       uintToString(e.Height),
	}}
}

// Delegated captures a change in delegated weight.
type Delegated struct {
	Delegator      string
	Delegate       string
	Amount         *big.Int
	TotalDelegated *big.Int
	Height         uint64
	Removed        bool
}

// EventType satisfies the Event interface.
func (e Delegated) EventType() string {
	if e.Removed {
		return TypeUndelegated
	}
	return TypeDelegated
}

// Event converts the payload into a broadcastable event.
func (e Delegated) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"delegator":      e.Delegator,
		"delegate":       e.Delegate,
		"amount":         formatAmount(e.Amount),
		"totalDelegated": formatAmount(e.TotalDelegated),
		"height":         uintToString(e.Height),
	}}
}
