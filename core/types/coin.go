package types

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Coin is an amount of a single denomination. Amounts are never negative.
type Coin struct {
	Denom  string   `json:"denom" yaml:"denom"`
	Amount *big.Int `json:"amount" yaml:"amount"`
}

// NewCoin copies amount into a new coin. A nil amount is treated as zero.
func NewCoin(denom string, amount *big.Int) Coin {
	return Coin{Denom: denom, Amount: cloneAmount(amount)}
}

// IsZero reports whether the coin carries no value.
func (c Coin) IsZero() bool { return c.Amount == nil || c.Amount.Sign() == 0 }

// Clone returns a deep copy of the coin.
func (c Coin) Clone() Coin { return NewCoin(c.Denom, c.Amount) }

func (c Coin) String() string {
	return fmt.Sprintf("%s%s", cloneAmount(c.Amount).String(), c.Denom)
}

// Coins is a set of coins. Normalised sets are sorted by denom, contain each
// denom at most once and carry no zero entries.
type Coins []Coin

// Normalize merges equal denominations by addition, drops zero amounts and
// sorts by denomination so merges are deterministic.
func (cs Coins) Normalize() Coins {
	totals := make(map[string]*big.Int, len(cs))
	for _, c := range cs {
		if c.IsZero() {
			continue
		}
		if cur, ok := totals[c.Denom]; ok {
			cur.Add(cur, c.Amount)
			continue
		}
		totals[c.Denom] = new(big.Int).Set(c.Amount)
	}
	out := make(Coins, 0, len(totals))
	for denom, amount := range totals {
		out = append(out, Coin{Denom: denom, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out
}

// Add returns the normalised sum of the set and others. The receiver is not
// modified.
func (cs Coins) Add(others ...Coin) Coins {
	merged := make(Coins, 0, len(cs)+len(others))
	merged = append(merged, cs...)
	merged = append(merged, others...)
	return merged.Normalize()
}

// AmountOf returns the amount held for denom, zero when absent.
func (cs Coins) AmountOf(denom string) *big.Int {
	total := big.NewInt(0)
	for _, c := range cs {
		if c.Denom == denom && c.Amount != nil {
			total.Add(total, c.Amount)
		}
	}
	return total
}

// IsZero reports whether the set carries no value at all.
func (cs Coins) IsZero() bool {
	for _, c := range cs {
		if !c.IsZero() {
			return false
		}
	}
	return true
}

// HasNegative reports whether any coin carries a negative amount. Callers
// check it before Normalize, which would net a negative against a positive
// of the same denom.
func (cs Coins) HasNegative() bool {
	for _, c := range cs {
		if c.Amount != nil && c.Amount.Sign() < 0 {
			return true
		}
	}
	return false
}

// Clone deep-copies the set.
func (cs Coins) Clone() Coins {
	if cs == nil {
		return nil
	}
	out := make(Coins, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}

func (cs Coins) String() string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ",")
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
