package params

import (
	"fmt"
	"strings"

	coreerrors "vegov/core/errors"
	"vegov/core/types"
)

// TierCount is the number of lock tiers every deployment defines.
const TierCount = 4

// TierWeight pairs a lock duration with the vote-token multiplier applied to
// principal locked for that long.
type TierWeight struct {
	Tier         uint8         `json:"tier"`
	DurationSecs uint64        `json:"durationSecs"`
	Weight       types.Decimal `json:"weight"`
}

// GlobalState is the engine-wide configuration installed at genesis.
// FoundationAddresses are expected in canonical form (lower-case, unique,
// first-seen order); config.Genesis.Resolve produces that form.
type GlobalState struct {
	Admin               string        `json:"admin"`
	TierWeights         []TierWeight  `json:"tierWeights"`
	VotingPeriodSecs    uint64        `json:"votingPeriodSecs"`
	VestingLedger       string        `json:"vestingLedger"`
	FoundationAddresses []string      `json:"foundationAddresses"`
	FoundationRatio     types.Decimal `json:"foundationRatio"`
	SurplusAssetID      uint64        `json:"surplusAssetId"`
	TransfersEnabled    bool          `json:"transfersEnabled"`
}

// Tier returns the weight configured for tier.
func (g *GlobalState) Tier(tier uint8) (TierWeight, bool) {
	if g == nil {
		return TierWeight{}, false
	}
	for _, tw := range g.TierWeights {
		if tw.Tier == tier {
			return tw, true
		}
	}
	return TierWeight{}, false
}

// IsAdmin reports whether addr is the configured admin.
func (g *GlobalState) IsAdmin(addr string) bool {
	if g == nil {
		return false
	}
	admin := strings.TrimSpace(g.Admin)
	return admin != "" && strings.EqualFold(admin, strings.TrimSpace(addr))
}

// Validate enforces the invariants of the configuration: four tiers T1..T4
// with strictly increasing durations and weights, a bounded foundation ratio
// and a canonical foundation address list.
func (g *GlobalState) Validate() error {
	if g == nil {
		return coreerrors.Wrap(coreerrors.ErrValidation, "params: global state missing")
	}
	if strings.TrimSpace(g.Admin) == "" {
		return coreerrors.Wrap(coreerrors.ErrValidation, "params: admin required")
	}
	if len(g.TierWeights) != TierCount {
		return fmt.Errorf("%w: params: expected %d tiers, got %d", coreerrors.ErrValidation, TierCount, len(g.TierWeights))
	}
	for i, tw := range g.TierWeights {
		if tw.Tier != uint8(i+1) {
			return fmt.Errorf("%w: params: tier %d out of order", coreerrors.ErrValidation, tw.Tier)
		}
		if tw.DurationSecs == 0 || tw.Weight.IsZero() {
			return fmt.Errorf("%w: params: tier %d must have positive duration and weight", coreerrors.ErrValidation, tw.Tier)
		}
		if i == 0 {
			continue
		}
		prev := g.TierWeights[i-1]
		if tw.DurationSecs <= prev.DurationSecs || tw.Weight.Cmp(prev.Weight) <= 0 {
			return fmt.Errorf("%w: params: tier %d must exceed tier %d in duration and weight", coreerrors.ErrValidation, tw.Tier, prev.Tier)
		}
	}
	if g.VotingPeriodSecs == 0 {
		return coreerrors.Wrap(coreerrors.ErrValidation, "params: voting period must be positive")
	}
	if g.FoundationRatio.Cmp(types.OneDecimal()) > 0 {
		return coreerrors.Wrap(coreerrors.ErrValidation, "params: foundation ratio must be <= 1")
	}
	if !g.FoundationRatio.IsZero() && len(g.FoundationAddresses) == 0 {
		return coreerrors.Wrap(coreerrors.ErrValidation, "params: foundation ratio set without foundation addresses")
	}
	seen := make(map[string]struct{}, len(g.FoundationAddresses))
	for _, addr := range g.FoundationAddresses {
		if addr == "" || addr != strings.ToLower(addr) {
			return fmt.Errorf("%w: params: foundation address %q not canonical", coreerrors.ErrValidation, addr)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("%w: params: duplicate foundation address %q", coreerrors.ErrValidation, addr)
		}
		seen[addr] = struct{}{}
	}
	return nil
}
