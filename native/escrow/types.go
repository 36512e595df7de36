package escrow

import (
	"math/big"

	"vegov/core/types"
)

// Status tracks the lifecycle of a vote-token entry.
type Status uint8

const (
	StatusLocked Status = iota + 1
	// StatusUnlocking marks an entry at its EndTime: the lock has run its
	// full duration but withdrawal opens only after EndTime.
	StatusUnlocking
	StatusUnlocked
)

func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	case StatusUnlocking:
		return "unlocking"
	case StatusUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// VoteTokenDenomPrefix is prepended to a principal denom to name its vote
// token.
const VoteTokenDenomPrefix = "v"

// VoteTokenDenom returns the vote-token denomination minted for principal
// denom.
func VoteTokenDenom(denom string) string { return VoteTokenDenomPrefix + denom }

// VoteTokenEntry is a single lock position. Entries are immutable once created;
// only ownership changes (transfer) or removal (withdraw) touch them.
type VoteTokenEntry struct {
	ID        uint64     `json:"id"`
	Owner     string     `json:"owner"`
	Principal types.Coin `json:"principal"`
	VoteToken types.Coin `json:"voteToken"`
	Tier      uint8      `json:"tier"`
	StartTime uint64     `json:"startTime"`
	EndTime   uint64     `json:"endTime"`
	Status    Status     `json:"status"`
}

// Matured reports whether the entry may be withdrawn at now.
func (e *VoteTokenEntry) Matured(now uint64) bool {
	return e != nil && e.EndTime < now
}

// StatusAt derives the status observed at now.
func (e *VoteTokenEntry) StatusAt(now uint64) Status {
	switch {
	case e.Matured(now):
		return StatusUnlocked
	case now == e.EndTime:
		return StatusUnlocking
	default:
		return e.Status
	}
}

// Clone returns a deep copy of the entry.
func (e *VoteTokenEntry) Clone() *VoteTokenEntry {
	if e == nil {
		return nil
	}
	out := *e
	out.Principal = e.Principal.Clone()
	out.VoteToken = e.VoteToken.Clone()
	return &out
}

// HolderRecord registers an owner under a sequential identifier.
type HolderRecord struct {
	ID    uint64 `json:"id"`
	Owner string `json:"owner"`
}

// SupplyTotals aggregates every live entry of a principal denom.
type SupplyTotals struct {
	Denom           string   `json:"denom"`
	PrincipalLocked *big.Int `json:"principalLocked"`
	VoteTokenIssued *big.Int `json:"voteTokenIssued"`
}

// NewSupplyTotals returns zeroed totals for denom.
func NewSupplyTotals(denom string) *SupplyTotals {
	return &SupplyTotals{Denom: denom, PrincipalLocked: big.NewInt(0), VoteTokenIssued: big.NewInt(0)}
}

func (s *SupplyTotals) ensure() {
	if s.PrincipalLocked == nil {
		s.PrincipalLocked = big.NewInt(0)
	}
	if s.VoteTokenIssued == nil {
		s.VoteTokenIssued = big.NewInt(0)
	}
}

// SumVoteTokens totals the vote tokens of entries.
func SumVoteTokens(entries []*VoteTokenEntry) *big.Int {
	total := big.NewInt(0)
	for _, entry := range entries {
		if entry != nil && entry.VoteToken.Amount != nil {
			total.Add(total, entry.VoteToken.Amount)
		}
	}
	return total
}
