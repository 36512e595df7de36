package governance

import (
	"math/big"
	"sort"

	"vegov/core/types"
)

// ProposalStatus enumerates the lifecycle phases of an emission proposal.
type ProposalStatus uint8

const (
	// ProposalStatusUnspecified indicates the proposal has not yet been
	// initialised and should not appear in state.
	ProposalStatusUnspecified ProposalStatus = iota
	// ProposalStatusVoting identifies proposals accepting votes and bribes
	// until VotingEnd.
	ProposalStatusVoting
	// ProposalStatusFinalized marks proposals whose emission has been
	// computed. Only the rebase and foundation completion flags may change
	// afterwards.
	ProposalStatusFinalized
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusVoting:
		return "voting"
	case ProposalStatusFinalized:
		return "finalized"
	default:
		return "unspecified"
	}
}

// Proposal allocates one period of an app's emission across its eligible
// pairs. Times are unix seconds supplied by the caller.
type Proposal struct {
	ID                          uint64         `json:"id"`
	AppID                       uint64         `json:"appId"`
	Status                      ProposalStatus `json:"status"`
	VotingStart                 uint64         `json:"votingStart"`
	VotingEnd                   uint64         `json:"votingEnd"`
	EligiblePairs               []uint64       `json:"eligiblePairs"`
	EmissionCompleted           bool           `json:"emissionCompleted"`
	RebaseCompleted             bool           `json:"rebaseCompleted"`
	FoundationEmissionCompleted bool           `json:"foundationEmissionCompleted"`
	EmissionDistributed         *big.Int       `json:"emissionDistributed"`
	RebaseDistributed           *big.Int       `json:"rebaseDistributed"`
	FoundationDistributed       *big.Int       `json:"foundationDistributed"`
	TotalVotedWeight            *big.Int       `json:"totalVotedWeight"`
	TotalSurplus                types.Coin     `json:"totalSurplus"`
	ClosingHeight               uint64         `json:"closingHeight"`
	// RewardWeight and RewardEntryID snapshot the escrow at finalisation.
	// Rebase and surplus are priced against RewardWeight, and only entries
	// with an id up to RewardEntryID that were locked by VotingEnd earn them.
	RewardWeight  *big.Int `json:"rewardWeight"`
	RewardEntryID uint64   `json:"rewardEntryId"`
}

// EarnsRewards reports whether an escrow entry existed when the proposal
// closed and so shares in its rebase and surplus.
func (p *Proposal) EarnsRewards(entryID, startTime uint64) bool {
	return p != nil && entryID != 0 && entryID <= p.RewardEntryID && startTime <= p.VotingEnd
}

// IsEligible reports whether pair is in the sorted eligible list.
func (p *Proposal) IsEligible(pair uint64) bool {
	if p == nil {
		return false
	}
	i := sort.Search(len(p.EligiblePairs), func(i int) bool { return p.EligiblePairs[i] >= pair })
	return i < len(p.EligiblePairs) && p.EligiblePairs[i] == pair
}

// VotingOpen reports whether votes and bribes are accepted at now.
func (p *Proposal) VotingOpen(now uint64) bool {
	return p != nil && p.Status == ProposalStatusVoting && now < p.VotingEnd
}

func (p *Proposal) ensure() {
	if p.EmissionDistributed == nil {
		p.EmissionDistributed = big.NewInt(0)
	}
	if p.RebaseDistributed == nil {
		p.RebaseDistributed = big.NewInt(0)
	}
	if p.FoundationDistributed == nil {
		p.FoundationDistributed = big.NewInt(0)
	}
	if p.TotalVotedWeight == nil {
		p.TotalVotedWeight = big.NewInt(0)
	}
	if p.RewardWeight == nil {
		p.RewardWeight = big.NewInt(0)
	}
	if p.TotalSurplus.Amount == nil {
		p.TotalSurplus.Amount = big.NewInt(0)
	}
}

// Emission tracks an app's reward budget. RewardsPending only decreases and
// DistributedRewards only increases as proposals finalise.
type Emission struct {
	AppID              uint64        `json:"appId"`
	TotalRewards       *big.Int      `json:"totalRewards"`
	RewardsPending     *big.Int      `json:"rewardsPending"`
	EmissionRate       types.Decimal `json:"emissionRate"`
	DistributedRewards *big.Int      `json:"distributedRewards"`
}

// VotePair is the weight a voter assigned to one pair.
type VotePair struct {
	Pair   uint64   `json:"pair"`
	Weight *big.Int `json:"weight"`
}

// Vote is a voter's allocation on a proposal. OwnWeight and DelegatedWeight
// record where the voting power came from so bribes can be attributed to
// delegators later.
type Vote struct {
	ProposalID      uint64     `json:"proposalId"`
	Voter           string     `json:"voter"`
	Denom           string     `json:"denom"`
	Pairs           []VotePair `json:"pairs"`
	OwnWeight       *big.Int   `json:"ownWeight"`
	DelegatedWeight *big.Int   `json:"delegatedWeight"`
	BribeClaimed    bool       `json:"bribeClaimed"`
}

// AllocatedWeight sums the pair weights.
func (v *Vote) AllocatedWeight() *big.Int {
	total := big.NewInt(0)
	if v == nil {
		return total
	}
	for _, p := range v.Pairs {
		if p.Weight != nil {
			total.Add(total, p.Weight)
		}
	}
	return total
}

// PowerWeight is the voting power the allocation was computed from.
func (v *Vote) PowerWeight() *big.Int {
	total := big.NewInt(0)
	if v == nil {
		return total
	}
	if v.OwnWeight != nil {
		total.Add(total, v.OwnWeight)
	}
	if v.DelegatedWeight != nil {
		total.Add(total, v.DelegatedWeight)
	}
	return total
}

// VotingPower breaks down an account's weight for one governance denom.
type VotingPower struct {
	Locked       *big.Int
	DelegatedOut *big.Int
	DelegatedIn  *big.Int
}

// Own is the locked weight the account still controls itself.
func (p VotingPower) Own() *big.Int {
	out := new(big.Int)
	if p.Locked != nil {
		out.Set(p.Locked)
	}
	if p.DelegatedOut != nil {
		out.Sub(out, p.DelegatedOut)
	}
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}

// Total is own weight plus weight delegated in.
func (p VotingPower) Total() *big.Int {
	out := p.Own()
	if p.DelegatedIn != nil {
		out.Add(out, p.DelegatedIn)
	}
	return out
}

// PairAllocation is the emission share assigned to a pair.
type PairAllocation struct {
	Pair   uint64   `json:"pair"`
	Amount *big.Int `json:"amount"`
}

// EmissionOutcome describes the effects of finalising a proposal.
type EmissionOutcome struct {
	Proposal    *Proposal
	Denom       string
	Emission    *big.Int
	Rebase      *big.Int
	Foundation  *big.Int
	Allocations []PairAllocation
	Surplus     types.Coin
	// Dust is the part of the pair emission that floor division left
	// unallocated.
	Dust *big.Int
}

// FoundationPayout is one foundation address's share.
type FoundationPayout struct {
	Recipient string     `json:"recipient"`
	Amount    types.Coin `json:"amount"`
}

// FoundationOutcome describes the foundation payout of a proposal.
type FoundationOutcome struct {
	Proposal *Proposal
	Payouts  []FoundationPayout
}
