package delegation

import (
	"math/big"
	"sort"

	"vegov/core/types"
)

// LatestHeight selects the newest version in height-indexed reads.
const LatestHeight = ^uint64(0)

// Entry is weight of one denom assigned to a delegate.
type Entry struct {
	DelegatedTo string   `json:"delegatedTo"`
	Denom       string   `json:"denom"`
	Amount      *big.Int `json:"amount"`
}

// Delegation lists everything a delegator has assigned away.
type Delegation struct {
	Delegator string  `json:"delegator"`
	Entries   []Entry `json:"entries"`
}

// AmountTo returns the weight of denom assigned to delegate.
func (d *Delegation) AmountTo(delegate, denom string) *big.Int {
	total := big.NewInt(0)
	if d == nil {
		return total
	}
	for _, e := range d.Entries {
		if e.DelegatedTo == delegate && e.Denom == denom && e.Amount != nil {
			total.Add(total, e.Amount)
		}
	}
	return total
}

// Total returns the weight of denom assigned to anyone.
func (d *Delegation) Total(denom string) *big.Int {
	total := big.NewInt(0)
	if d == nil {
		return total
	}
	for _, e := range d.Entries {
		if e.Denom == denom && e.Amount != nil {
			total.Add(total, e.Amount)
		}
	}
	return total
}

// HasDelegate reports whether any weight is assigned to delegate.
func (d *Delegation) HasDelegate(delegate string) bool {
	if d == nil {
		return false
	}
	for _, e := range d.Entries {
		if e.DelegatedTo == delegate {
			return true
		}
	}
	return false
}

// Stats aggregates the weight of denom delegated to a delegate.
type Stats struct {
	Delegate       string   `json:"delegate"`
	Denom          string   `json:"denom"`
	TotalDelegated *big.Int `json:"totalDelegated"`
}

// Info holds the fee terms a delegate publishes. DelegatorFeeRatio is kept by
// the delegate out of each delegator's share; ProtocolFeeRatio goes to the
// foundation.
type Info struct {
	Delegate          string        `json:"delegate"`
	DelegatorFeeRatio types.Decimal `json:"delegatorFeeRatio"`
	ProtocolFeeRatio  types.Decimal `json:"protocolFeeRatio"`
}

// Claims lists the proposals a delegator has already claimed through a
// delegate, sorted and unique.
type Claims struct {
	Delegator string   `json:"delegator"`
	Delegate  string   `json:"delegate"`
	Proposals []uint64 `json:"proposals"`
}

// Add inserts id keeping the list sorted and unique.
func (c *Claims) Add(id uint64) {
	i := sort.Search(len(c.Proposals), func(i int) bool { return c.Proposals[i] >= id })
	if i < len(c.Proposals) && c.Proposals[i] == id {
		return
	}
	c.Proposals = append(c.Proposals, 0)
	copy(c.Proposals[i+1:], c.Proposals[i:])
	c.Proposals[i] = id
}

// ClaimOutcome describes the coins produced by a delegated claim.
type ClaimOutcome struct {
	Delegator   string
	Delegate    string
	Proposals   []uint64
	User        types.Coins
	DelegateFee types.Coins
	Protocol    types.Coins
	// ProtocolRecipient receives Protocol; empty when no foundation address is
	// configured and the fee stays in custody.
	ProtocolRecipient string
}
