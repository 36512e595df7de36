package rewards

import (
	"fmt"
	"math/big"

	coreerrors "vegov/core/errors"
	"vegov/core/types"
	"vegov/native/governance"
)

// Every proportional split rounds down. Remainders stay in engine custody.

// BribeShare returns floor(voteWeight × pool / pairTotal).
func BribeShare(voteWeight, pairTotal, pool *big.Int) (*big.Int, error) {
	return split(voteWeight, pool, pairTotal)
}

// RebaseShare returns floor(tierLocked × pool / totalLocked).
func RebaseShare(tierLocked, totalLocked, pool *big.Int) (*big.Int, error) {
	return split(tierLocked, pool, totalLocked)
}

// SurplusShare returns floor(locked × surplus / totalLocked).
func SurplusShare(locked, totalLocked, surplus *big.Int) (*big.Int, error) {
	return split(locked, surplus, totalLocked)
}

func split(part, amount, whole *big.Int) (*big.Int, error) {
	if whole == nil || whole.Sign() == 0 || part == nil || part.Sign() == 0 || amount == nil || amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if part.Cmp(whole) > 0 {
		return nil, fmt.Errorf("%w: rewards: share %s exceeds total %s", coreerrors.ErrArithmetic, part, whole)
	}
	out, err := types.MulDivFloor(part, amount, whole)
	if err != nil {
		return nil, fmt.Errorf("%w: rewards: %v", coreerrors.ErrArithmetic, err)
	}
	return out, nil
}

// ScaleCoins returns floor(c × num / den) for every coin of cs.
func ScaleCoins(cs types.Coins, num, den *big.Int) (types.Coins, error) {
	out := make(types.Coins, 0, len(cs))
	for _, c := range cs {
		amt, err := split(num, c.Amount, den)
		if err != nil {
			return nil, err
		}
		out = append(out, types.NewCoin(c.Denom, amt))
	}
	return out.Normalize(), nil
}

// MulCoins returns floor(c × ratio) for every coin of cs.
func MulCoins(cs types.Coins, ratio types.Decimal) (types.Coins, error) {
	out := make(types.Coins, 0, len(cs))
	for _, c := range cs {
		amt, err := ratio.MulInt(c.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: rewards: %v", coreerrors.ErrArithmetic, err)
		}
		out = append(out, types.NewCoin(c.Denom, amt))
	}
	return out.Normalize(), nil
}

// SubCoins returns a - b, failing when any denom of b exceeds a.
func SubCoins(a, b types.Coins) (types.Coins, error) {
	out := a.Clone().Normalize()
	for _, c := range b.Normalize() {
		found := false
		for i := range out {
			if out[i].Denom != c.Denom {
				continue
			}
			diff, err := types.SafeSub(out[i].Amount, c.Amount)
			if err != nil {
				return nil, fmt.Errorf("%w: rewards: %s below %s", coreerrors.ErrArithmetic, out[i], c)
			}
			out[i].Amount = diff
			found = true
		}
		if !found && !c.IsZero() {
			return nil, fmt.Errorf("%w: rewards: missing %s", coreerrors.ErrArithmetic, c.Denom)
		}
	}
	return out.Normalize(), nil
}

// BribeState is the read access needed to price a vote's bribes.
type BribeState interface {
	GovernancePairTotal(proposalID, pair uint64) (*big.Int, error)
	GovernanceBribePool(proposalID, pair uint64) (types.Coins, error)
}

// BribeEntitlement prices every pair of vote against its pair tally and bribe
// pool: Σ floor(pairWeight × pool / pairTotal) per denomination.
func BribeEntitlement(state BribeState, vote *governance.Vote) (types.Coins, error) {
	total := types.Coins{}
	if vote == nil {
		return total, nil
	}
	for _, vp := range vote.Pairs {
		if vp.Weight == nil || vp.Weight.Sign() == 0 {
			continue
		}
		pairTotal, err := state.GovernancePairTotal(vote.ProposalID, vp.Pair)
		if err != nil {
			return nil, err
		}
		pool, err := state.GovernanceBribePool(vote.ProposalID, vp.Pair)
		if err != nil {
			return nil, err
		}
		for _, coin := range pool {
			share, err := BribeShare(vp.Weight, pairTotal, coin.Amount)
			if err != nil {
				return nil, err
			}
			total = total.Add(types.NewCoin(coin.Denom, share))
		}
	}
	return total, nil
}

// SplitEntitlement divides an entitlement between the voter's own weight and
// the weight delegated to them. The delegated part is the remainder, so the
// two always sum to the entitlement.
func SplitEntitlement(entitlement types.Coins, vote *governance.Vote) (own, delegated types.Coins, err error) {
	power := vote.PowerWeight()
	if power.Sign() == 0 {
		return types.Coins{}, entitlement.Clone(), nil
	}
	own, err = ScaleCoins(entitlement, vote.OwnWeight, power)
	if err != nil {
		return nil, nil, err
	}
	delegated, err = SubCoins(entitlement, own)
	if err != nil {
		return nil, nil, err
	}
	return own, delegated, nil
}
