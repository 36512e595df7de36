package app

import (
	"encoding/hex"
	"math/big"

	"vegov/core/types"
	"vegov/native/delegation"
	"vegov/native/escrow"
	"vegov/native/governance"
)

// EffectKind names an outbound request to the host.
type EffectKind string

const (
	EffectEmissionMint     EffectKind = "emission_mint"
	EffectRebaseMint       EffectKind = "rebase_mint"
	EffectSurplusTransfer  EffectKind = "surplus_transfer"
	EffectFoundationPayout EffectKind = "foundation_payout"
	EffectPayout           EffectKind = "payout"
)

// Effect asks the host to mint or move value. An empty Recipient means the
// engine's own custody account.
type Effect struct {
	Kind      EffectKind  `json:"kind"`
	AppID     uint64      `json:"appId,omitempty"`
	Recipient string      `json:"recipient,omitempty"`
	Coins     types.Coins `json:"coins"`
}

// Dust is a floor-division remainder left in custody by an operation.
type Dust struct {
	Stream string     `json:"stream"`
	Amount types.Coin `json:"amount"`
}

// Result is returned for every successful operation.
type Result struct {
	Operation string         `json:"operation"`
	Output    any            `json:"output"`
	Effects   []Effect       `json:"effects,omitempty"`
	Dust      []Dust         `json:"dust,omitempty"`
	Events    []*types.Event `json:"events,omitempty"`
	// Digest is the keccak256 hash of the change set. Committed and simulated
	// runs of the same operation over the same state yield the same digest.
	Digest    HexBytes `json:"digest"`
	Committed bool     `json:"committed"`
}

// HexBytes renders as a lowercase hex string in JSON.
type HexBytes []byte

func (h HexBytes) String() string { return hex.EncodeToString(h) }

// MarshalText implements encoding.TextMarshaler.
func (h HexBytes) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

type LockResult struct {
	Entry *escrow.VoteTokenEntry `json:"entry"`
}

type WithdrawResult struct {
	Amount  types.Coin `json:"amount"`
	Removed int        `json:"removed"`
}

type TransferResult struct {
	Moved int `json:"moved"`
}

type EmissionResult struct {
	Emission *governance.Emission `json:"emission"`
}

type ProposalResult struct {
	Proposal *governance.Proposal `json:"proposal"`
}

type VoteResult struct {
	Vote *governance.Vote `json:"vote"`
}

type BribeResult struct {
	Pool types.Coins `json:"pool"`
}

type EmissionFinalizeResult struct {
	Proposal    *governance.Proposal        `json:"proposal"`
	Emission    *big.Int                    `json:"emission"`
	Rebase      *big.Int                    `json:"rebase"`
	Foundation  *big.Int                    `json:"foundation"`
	Allocations []governance.PairAllocation `json:"allocations"`
	Surplus     types.Coin                  `json:"surplus"`
}

type FoundationResult struct {
	Proposal *governance.Proposal          `json:"proposal"`
	Payouts  []governance.FoundationPayout `json:"payouts"`
}

type ClaimResult struct {
	Cursor    uint64      `json:"cursor"`
	Proposals []uint64    `json:"proposals"`
	Bribe     types.Coins `json:"bribe"`
	Surplus   types.Coins `json:"surplus"`
	Rebase    types.Coins `json:"rebase"`
}

type DelegateInfoResult struct {
	Info *delegation.Info `json:"info"`
}

type DelegationResult struct {
	Delegation *delegation.Delegation `json:"delegation"`
}

type DelegatedClaimResult struct {
	Proposals   []uint64    `json:"proposals"`
	User        types.Coins `json:"user"`
	DelegateFee types.Coins `json:"delegateFee"`
	Protocol    types.Coins `json:"protocol"`
}

func payout(recipient string, coins ...types.Coin) []Effect {
	set := types.Coins(coins).Normalize()
	if len(set) == 0 {
		return nil
	}
	return []Effect{{Kind: EffectPayout, Recipient: recipient, Coins: set}}
}
