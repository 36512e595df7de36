package app

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	coreerrors "vegov/core/errors"
	"vegov/core/types"
)

// Env is the execution context the host supplies with every operation. Time
// is unix seconds; the engine never reads a clock of its own.
type Env struct {
	Sender string      `json:"sender"`
	Height uint64      `json:"height"`
	Time   uint64      `json:"time"`
	Funds  types.Coins `json:"funds,omitempty"`
}

// Operation is the closed set of state transitions. Implementations live in
// this package only.
type Operation interface {
	Type() string
	isOperation()
}

// Lock escrows the attached principal at a tier.
type Lock struct {
	AppID uint64 `json:"appId"`
	Tier  uint8  `json:"tier"`
}

// Withdraw releases every matured entry of a denom and tier.
type Withdraw struct {
	Denom string `json:"denom"`
	Tier  uint8  `json:"tier"`
}

// Transfer moves every entry of a denom and tier to another owner.
type Transfer struct {
	Recipient string `json:"recipient"`
	Denom     string `json:"denom"`
	Tier      uint8  `json:"tier"`
}

// ConfigureEmission sets an app's reward budget and emission rate.
type ConfigureEmission struct {
	AppID        uint64        `json:"appId"`
	TotalRewards *big.Int      `json:"totalRewards"`
	EmissionRate types.Decimal `json:"emissionRate"`
}

// RaiseProposal opens the next emission proposal of an app.
type RaiseProposal struct {
	AppID uint64 `json:"appId"`
}

// Vote splits the sender's voting power across pairs.
type Vote struct {
	AppID           uint64          `json:"appId"`
	ProposalID      uint64          `json:"proposalId"`
	Pairs           []uint64        `json:"pairs"`
	Ratios          []types.Decimal `json:"ratios"`
	GovernanceDenom string          `json:"governanceDenom"`
}

// DepositBribe adds the attached funds to a pair's bribe pool.
type DepositBribe struct {
	ProposalID uint64 `json:"proposalId"`
	Pair       uint64 `json:"pair"`
}

// FinalizeEmission closes voting and computes the emission split.
type FinalizeEmission struct {
	ProposalID uint64 `json:"proposalId"`
}

// FinalizeFoundation pays out the foundation share of a proposal.
type FinalizeFoundation struct {
	ProposalID uint64 `json:"proposalId"`
}

// ClaimRewards collects bribe, surplus and rebase rewards for an app.
type ClaimRewards struct {
	AppID uint64 `json:"appId"`
}

// RegisterDelegate publishes the sender's delegate fee ratios.
type RegisterDelegate struct {
	DelegatorFeeRatio types.Decimal `json:"delegatorFeeRatio"`
	ProtocolFeeRatio  types.Decimal `json:"protocolFeeRatio"`
}

// Delegate assigns part of the sender's voting power to a delegate.
type Delegate struct {
	Delegate string   `json:"delegate"`
	Denom    string   `json:"denom"`
	Amount   *big.Int `json:"amount"`
}

// Undelegate withdraws the sender's delegation to a delegate.
type Undelegate struct {
	Delegate string `json:"delegate"`
}

// ClaimDelegated claims the delegated bribe share of one proposal, or of all
// finalised proposals when ProposalID is zero.
type ClaimDelegated struct {
	Delegate   string `json:"delegate"`
	AppID      uint64 `json:"appId"`
	ProposalID uint64 `json:"proposalId"`
}

const (
	TypeLock               = "lock"
	TypeWithdraw           = "withdraw"
	TypeTransfer           = "transfer"
	TypeConfigureEmission  = "configure_emission"
	TypeRaiseProposal      = "raise_proposal"
	TypeVote               = "vote"
	TypeDepositBribe       = "deposit_bribe"
	TypeFinalizeEmission   = "finalize_emission"
	TypeFinalizeFoundation = "finalize_foundation"
	TypeClaimRewards       = "claim_rewards"
	TypeRegisterDelegate   = "register_delegate"
	TypeDelegate           = "delegate"
	TypeUndelegate         = "undelegate"
	TypeClaimDelegated     = "claim_delegated"
)

func (Lock) Type() string               { return TypeLock }
func (Withdraw) Type() string           { return TypeWithdraw }
func (Transfer) Type() string           { return TypeTransfer }
func (ConfigureEmission) Type() string  { return TypeConfigureEmission }
func (RaiseProposal) Type() string      { return TypeRaiseProposal }
func (Vote) Type() string               { return TypeVote }
func (DepositBribe) Type() string       { return TypeDepositBribe }
func (FinalizeEmission) Type() string   { return TypeFinalizeEmission }
func (FinalizeFoundation) Type() string { return TypeFinalizeFoundation }
func (ClaimRewards) Type() string       { return TypeClaimRewards }
func (RegisterDelegate) Type() string   { return TypeRegisterDelegate }
func (Delegate) Type() string           { return TypeDelegate }
func (Undelegate) Type() string         { return TypeUndelegate }
func (ClaimDelegated) Type() string     { return TypeClaimDelegated }

func (Lock) isOperation()               {}
func (Withdraw) isOperation()           {}
func (Transfer) isOperation()           {}
func (ConfigureEmission) isOperation()  {}
func (RaiseProposal) isOperation()      {}
func (Vote) isOperation()               {}
func (DepositBribe) isOperation()       {}
func (FinalizeEmission) isOperation()   {}
func (FinalizeFoundation) isOperation() {}
func (ClaimRewards) isOperation()       {}
func (RegisterDelegate) isOperation()   {}
func (Delegate) isOperation()           {}
func (Undelegate) isOperation()         {}
func (ClaimDelegated) isOperation()     {}

var (
	// ErrUnknownOperation is returned for operation types outside the set.
	ErrUnknownOperation = coreerrors.Wrap(coreerrors.ErrValidation, "app: unknown operation")
	// ErrMalformedOperation is returned when an operation body fails to decode.
	ErrMalformedOperation = coreerrors.Wrap(coreerrors.ErrValidation, "app: malformed operation")
)

var decoders = map[string]func(json.RawMessage) (Operation, error){
	TypeLock:               decode[Lock],
	TypeWithdraw:           decode[Withdraw],
	TypeTransfer:           decode[Transfer],
	TypeConfigureEmission:  decode[ConfigureEmission],
	TypeRaiseProposal:      decode[RaiseProposal],
	TypeVote:               decode[Vote],
	TypeDepositBribe:       decode[DepositBribe],
	TypeFinalizeEmission:   decode[FinalizeEmission],
	TypeFinalizeFoundation: decode[FinalizeFoundation],
	TypeClaimRewards:       decode[ClaimRewards],
	TypeRegisterDelegate:   decode[RegisterDelegate],
	TypeDelegate:           decode[Delegate],
	TypeUndelegate:         decode[Undelegate],
	TypeClaimDelegated:     decode[ClaimDelegated],
}

func decode[T Operation](body json.RawMessage) (Operation, error) {
	var op T
	if len(body) > 0 && string(body) != "null" {
		if err := json.Unmarshal(body, &op); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOperation, err)
		}
	}
	return op, nil
}

// DecodeOperation builds an operation from its type tag and JSON body.
func DecodeOperation(kind string, body json.RawMessage) (Operation, error) {
	fn, ok := decoders[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, kind)
	}
	return fn(body)
}
