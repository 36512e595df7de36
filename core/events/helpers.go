package events

import (
	"math/big"
	"strconv"

	"vegov/core/types"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func uintToString(v uint64) string { return strconv.FormatUint(v, 10) }

func formatCoins(cs types.Coins) string {
	if len(cs) == 0 {
		return ""
	}
	return cs.Normalize().String()
}
