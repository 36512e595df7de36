package host

import (
	"fmt"
	"math/big"
	"strings"

	coreerrors "vegov/core/errors"
	"vegov/core/types"
)

// App describes a host application that owns a governance asset.
type App struct {
	ID                uint64 `yaml:"id"`
	Name              string `yaml:"name"`
	GovernanceAssetID uint64 `yaml:"governanceAssetId"`
}

// Querier is the read-only view the engines have of the host platform. Calls
// are synchronous and answer against state visible at the current operation.
type Querier interface {
	GetApp(appID uint64) (App, bool, error)
	GetAssetDenom(assetID uint64) (string, error)
	GetTotalSupply(appID, assetID uint64) (*big.Int, error)
	GetEligiblePairs(appID uint64) ([]uint64, error)
	IsAssetWhitelisted(denom string) (bool, error)
	GetSurplusReward(appID, assetID uint64) (types.Coin, error)
	GetVestedAmount(denom string) (*big.Int, error)
}

var (
	errUnknownApp        = coreerrors.Wrap(coreerrors.ErrValidation, "host: unknown app")
	errNoGovernanceAsset = coreerrors.Wrap(coreerrors.ErrValidation, "host: app has no governance asset")
)

// GovernanceDenom resolves the governance denomination of appID. Unknown apps
// and unresolvable assets are validation failures.
func GovernanceDenom(q Querier, appID uint64) (App, string, error) {
	if q == nil {
		return App{}, "", fmt.Errorf("host: querier not configured")
	}
	app, ok, err := q.GetApp(appID)
	if err != nil {
		return App{}, "", err
	}
	if !ok {
		return App{}, "", errUnknownApp
	}
	if app.GovernanceAssetID == 0 {
		return App{}, "", errNoGovernanceAsset
	}
	denom, err := q.GetAssetDenom(app.GovernanceAssetID)
	if err != nil {
		return App{}, "", err
	}
	denom = strings.TrimSpace(denom)
	if denom == "" {
		return App{}, "", errNoGovernanceAsset
	}
	return app, denom, nil
}
