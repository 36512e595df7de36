package events

import (
	"math/big"
	"strconv"
	"strings"

	"vegov/core/types"
)

const (
	// TypeProposalRaised is emitted when a new proposal opens for voting.
	TypeProposalRaised = "gov.proposalRaised"
	// TypeVoteCast is emitted when a voter records or replaces an allocation.
	TypeVoteCast = "gov.vote"
	// TypeBribeDeposited is emitted when a sponsor funds a pair's bribe pool.
	TypeBribeDeposited = "gov.bribeDeposited"
	// TypeEmissionFinalized is emitted when a proposal's emission is computed.
	TypeEmissionFinalized = "gov.emissionFinalized"
	// TypeFoundationFinalized is emitted when the foundation share is paid.
	TypeFoundationFinalized = "gov.foundationFinalized"
	// TypeEmissionConfigured is emitted when an app's emission schedule changes.
	TypeEmissionConfigured = "gov.emissionConfigured"
)

// ProposalRaised captures the opening of a proposal.
type ProposalRaised struct {
	ProposalID  uint64
	AppID       uint64
	VotingStart uint64
	VotingEnd   uint64
	Pairs       []uint64
}

// EventType satisfies the Event interface.
func (ProposalRaised) EventType() string { return TypeProposalRaised }

// Event converts the payload into a broadcastable event.
func (e ProposalRaised) Event() *types.Event {
	pairs := make([]string, 0, len(e.Pairs))
	for _, p := range e.Pairs {
		pairs = append(pairs, strconv.FormatUint(p, 10))
	}
	return &types.Event{Type: TypeProposalRaised, Attributes: map[string]string{
		"id":          uintToString(e.ProposalID),
		"app":         uintToString(e.AppID),
		"votingStart": uintToString(e.VotingStart),
		"votingEnd":   uintToString(e.VotingEnd),
		"pairs":       strings.Join(pairs, ","),
	}}
}

// VoteCast captures a voter's allocation.
type VoteCast struct {
	ProposalID  uint64
	Voter       string
	TotalWeight *big.Int
	Pairs       int
	Replaced    bool
}

// EventType satisfies the Event interface.
func (VoteCast) EventType() string { return TypeVoteCast }

// Event converts the payload into a broadcastable event.
func (e VoteCast) Event() *types.Event {
	return &types.Event{Type: TypeVoteCast, Attributes: map[string]string{
		"id":       uintToString(e.ProposalID),
		"voter":    e.Voter,
		"weight":   formatAmount(e.TotalWeight),
		"pairs":    uintToString(uint64(e.Pairs)),
		"replaced": strconv.FormatBool(e.Replaced),
	}}
}

// BribeDeposited captures a sponsor deposit.
type BribeDeposited struct {
	ProposalID uint64
	Pair       uint64
	Sponsor    string
	Amount     types.Coins
}

// EventType satisfies the Event interface.
func (BribeDeposited) EventType() string { return TypeBribeDeposited }

// Event converts the payload into a broadcastable event.
func (e BribeDeposited) Event() *types.Event {
	return &types.Event{Type: TypeBribeDeposited, Attributes: map[string]string{
		"id":      uintToString(e.ProposalID),
		"pair":    uintToString(e.Pair),
		"sponsor": e.Sponsor,
		"amount":  formatCoins(e.Amount),
	}}
}

// EmissionFinalized captures the emission split of a proposal.
type EmissionFinalized struct {
	ProposalID    uint64
	AppID         uint64
	Emission      *big.Int
	Rebase        *big.Int
	Foundation    *big.Int
	Surplus       types.Coin
	ClosingHeight uint64
}

// EventType satisfies the Event interface.
func (EmissionFinalized) EventType() string { return TypeEmissionFinalized }

// Event converts the payload into a broadcastable event.
func (e EmissionFinalized) Event() *types.Event {
	return &types.Event{Type: TypeEmissionFinalized, Attributes: map[string]string{
		"id":            uintToString(e.ProposalID),
		"app":           uintToString(e.AppID),
		"emission":      formatAmount(e.Emission),
		"rebase":        formatAmount(e.Rebase),
		"foundation":    formatAmount(e.Foundation),
		"surplus":       e.Surplus.String(),
		"closingHeight": uintToString(e.ClosingHeight),
	}}
}

// FoundationFinalized captures the foundation payout.
type FoundationFinalized struct {
	ProposalID uint64
	Amount     *big.Int
	Recipients int
}

// EventType satisfies the Event interface.
func (FoundationFinalized) EventType() string { return TypeFoundationFinalized }

// Event converts the payload into a broadcastable event.
func (e FoundationFinalized) Event() *types.Event {
	return &types.Event{Type: TypeFoundationFinalized, Attributes: map[string]string{
		"id":         uintToString(e.ProposalID),
		"amount":     formatAmount(e.Amount),
		"recipients": uintToString(uint64(e.Recipients)),
	}}
}

// EmissionConfigured captures an emission schedule update.
type EmissionConfigured struct {
	AppID        uint64
	TotalRewards *big.Int
	Pending      *big.Int
	Rate         string
}

// EventType satisfies the Event interface.
func (EmissionConfigured) EventType() string { return TypeEmissionConfigured }

// Event converts the payload into a broadcastable event.
func (e EmissionConfigured) Event() *types.Event {
	return &types.Event{Type: TypeEmissionConfigured, Attributes: map[string]string{
		"app":          uintToString(e.AppID),
		"totalRewards": formatAmount(e.TotalRewards),
		"pending":      formatAmount(e.Pending),
		"rate":         e.Rate,
	}}
}
