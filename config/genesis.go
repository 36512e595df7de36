package config

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"

	"vegov/core/types"
	"vegov/native/params"
)

// Genesis is the on-disk form of the global configuration. Ratios and weights
// are decimal strings.
type Genesis struct {
	Admin string `toml:"Admin"`
	// AddressPrefix, when set, requires admin and foundation addresses to be
	// bech32 with this human-readable part.
	AddressPrefix       string        `toml:"AddressPrefix,omitempty"`
	VotingPeriodSecs    uint64        `toml:"VotingPeriodSecs"`
	Tiers               []GenesisTier `toml:"Tiers"`
	VestingLedger       string        `toml:"VestingLedger,omitempty"`
	FoundationAddresses []string      `toml:"FoundationAddresses"`
	FoundationRatio     string        `toml:"FoundationRatio"`
	SurplusAssetID      uint64        `toml:"SurplusAssetID"`
	TransfersEnabled    bool          `toml:"TransfersEnabled"`
}

// GenesisTier is one lock tier.
type GenesisTier struct {
	Tier         uint8  `toml:"Tier"`
	DurationSecs uint64 `toml:"DurationSecs"`
	Weight       string `toml:"Weight"`
}

// Resolve canonicalises addresses, parses decimals and validates the result.
// Foundation addresses are lower-cased and de-duplicated keeping first-seen
// order.
func (g Genesis) Resolve() (params.GlobalState, error) {
	prefix := strings.ToLower(strings.TrimSpace(g.AddressPrefix))
	admin, err := canonicalAddress(g.Admin, prefix)
	if err != nil {
		return params.GlobalState{}, fmt.Errorf("genesis: admin: %w", err)
	}
	global := params.GlobalState{
		Admin:            admin,
		VotingPeriodSecs: g.VotingPeriodSecs,
		VestingLedger:    strings.TrimSpace(g.VestingLedger),
		SurplusAssetID:   g.SurplusAssetID,
		TransfersEnabled: g.TransfersEnabled,
	}
	for _, tier := range g.Tiers {
		weight, err := types.ParseDecimal(tier.Weight)
		if err != nil {
			return params.GlobalState{}, fmt.Errorf("genesis: tier %d weight: %w", tier.Tier, err)
		}
		global.TierWeights = append(global.TierWeights, params.TierWeight{Tier: tier.Tier, DurationSecs: tier.DurationSecs, Weight: weight})
	}
	ratio := strings.TrimSpace(g.FoundationRatio)
	if ratio == "" {
		ratio = "0"
	}
	if global.FoundationRatio, err = types.ParseDecimal(ratio); err != nil {
		return params.GlobalState{}, fmt.Errorf("genesis: FoundationRatio: %w", err)
	}
	seen := make(map[string]struct{}, len(g.FoundationAddresses))
	for _, raw := range g.FoundationAddresses {
		addr, err := canonicalAddress(raw, prefix)
		if err != nil {
			return params.GlobalState{}, fmt.Errorf("genesis: foundation address %q: %w", raw, err)
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		global.FoundationAddresses = append(global.FoundationAddresses, addr)
	}
	if err := global.Validate(); err != nil {
		return params.GlobalState{}, err
	}
	return global, nil
}

// canonicalAddress lower-cases addr and, when prefix is set, checks it is a
// well-formed bech32 string with that human-readable part.
func canonicalAddress(addr, prefix string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(addr))
	if trimmed == "" {
		return "", fmt.Errorf("empty address")
	}
	if prefix == "" {
		return trimmed, nil
	}
	hrp, data, err := bech32.Decode(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid bech32 string: %w", err)
	}
	if hrp != prefix {
		return "", fmt.Errorf("prefix %q, want %q", hrp, prefix)
	}
	if _, err := bech32.ConvertBits(data, 5, 8, false); err != nil {
		return "", fmt.Errorf("error converting bits: %w", err)
	}
	return trimmed, nil
}
