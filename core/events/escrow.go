package events

import (
	"math/big"

	"vegov/core/types"
)

const (
	// TypeEscrowLocked is emitted for every new vote-token entry.
	TypeEscrowLocked = "escrow.locked"
	// TypeEscrowWithdrawn is emitted when matured entries are paid out.
	TypeEscrowWithdrawn = "escrow.withdrawn"
	// TypeEscrowTransferred is emitted when entries change owner.
	TypeEscrowTransferred = "escrow.transferred"
)

// EscrowLocked captures a new lock position.
type EscrowLocked struct {
	Owner     string
	EntryID   uint64
	Principal types.Coin
	VoteToken types.Coin
	Tier      uint8
	EndTime   uint64
	Compound  bool
}

// EventType satisfies the Event interface.
func (EscrowLocked) EventType() string { return TypeEscrowLocked }

// Event converts the payload into a broadcastable event.
func (e EscrowLocked) Event() *types.Event {
	attrs := map[string]string{
		"owner":     e.Owner,
		"entryId":   uintToString(e.EntryID),
		"principal": e.Principal.String(),
		"voteToken": e.VoteToken.String(),
		"tier":      uintToString(uint64(e.Tier)),
		"endTime":   uintToString(e.EndTime),
	}
	if e.Compound {
		attrs["compound"] = "true"
	}
	return &types.Event{Type: TypeEscrowLocked, Attributes: attrs}
}

// EscrowWithdrawn captures the payout of matured entries.
type EscrowWithdrawn struct {
	Owner   string
	Denom   string
	Tier    uint8
	Amount  *big.Int
	Entries int
}

// EventType satisfies the Event interface.
func (EscrowWithdrawn) EventType() string { return TypeEscrowWithdrawn }

// Event converts the payload into a broadcastable event.
func (e EscrowWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeEscrowWithdrawn, Attributes: map[string]string{
		"owner":   e.Owner,
		"denom":   e.Denom,
		"tier":    uintToString(uint64(e.Tier)),
		"amount":  formatAmount(e.Amount),
		"entries": uintToString(uint64(e.Entries)),
	}}
}

// EscrowTransferred captures an ownership change.
type EscrowTransferred struct {
	Sender    string
	Recipient string
	Denom     string
	Tier      uint8
	Entries   int
}

// EventType satisfies the Event interface.
func (EscrowTransferred) EventType() string { return TypeEscrowTransferred }

// Event converts the payload into a broadcastable event.
func (e EscrowTransferred) Event() *types.Event {
	return &types.Event{Type: TypeEscrowTransferred, Attributes: map[string]string{
		"sender":    e.Sender,
		"recipient": e.Recipient,
		"denom":     e.Denom,
		"tier":      uintToString(uint64(e.Tier)),
		"entries":   uintToString(uint64(e.Entries)),
	}}
}
