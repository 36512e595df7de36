package host

import (
	"fmt"
	"math/big"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"vegov/core/types"
)

// Fixture is the YAML document describing a static host.
type Fixture struct {
	Apps   []FixtureApp   `yaml:"apps"`
	Assets []FixtureAsset `yaml:"assets"`
	// Vested maps a denom to the amount still held by the vesting ledger.
	Vested map[string]string `yaml:"vested"`
}

// FixtureApp extends App with the per-app values the host answers.
type FixtureApp struct {
	App           `yaml:",inline"`
	EligiblePairs []uint64               `yaml:"eligiblePairs"`
	TotalSupply   map[uint64]string      `yaml:"totalSupply"`
	Surplus       map[uint64]FixtureCoin `yaml:"surplus"`
}

// FixtureAsset registers an asset denomination.
type FixtureAsset struct {
	ID          uint64 `yaml:"id"`
	Denom       string `yaml:"denom"`
	Whitelisted bool   `yaml:"whitelisted"`
}

// FixtureCoin is a coin with a decimal string amount.
type FixtureCoin struct {
	Denom  string `yaml:"denom"`
	Amount string `yaml:"amount"`
}

type appKey struct {
	app   uint64
	asset uint64
}

// StaticQuerier answers host queries from in-memory tables. It backs the
// daemon when no host is attached and doubles as the test host.
type StaticQuerier struct {
	mu          sync.RWMutex
	apps        map[uint64]App
	pairs       map[uint64][]uint64
	assets      map[uint64]string
	whitelisted map[string]bool
	supply      map[appKey]*big.Int
	surplus     map[appKey]types.Coin
	vested      map[string]*big.Int
}

var _ Querier = (*StaticQuerier)(nil)

// NewStaticQuerier returns an empty host.
func NewStaticQuerier() *StaticQuerier {
	return &StaticQuerier{
		apps:        make(map[uint64]App),
		pairs:       make(map[uint64][]uint64),
		assets:      make(map[uint64]string),
		whitelisted: make(map[string]bool),
		supply:      make(map[appKey]*big.Int),
		surplus:     make(map[appKey]types.Coin),
		vested:      make(map[string]*big.Int),
	}
}

// LoadStaticQuerier reads a YAML fixture from path.
func LoadStaticQuerier(path string) (*StaticQuerier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("host: read fixture: %w", err)
	}
	return ParseStaticQuerier(raw)
}

// ParseStaticQuerier decodes a YAML fixture.
func ParseStaticQuerier(raw []byte) (*StaticQuerier, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return nil, fmt.Errorf("host: decode fixture: %w", err)
	}
	q := NewStaticQuerier()
	for _, asset := range fixture.Assets {
		q.SetAsset(asset.ID, asset.Denom, asset.Whitelisted)
	}
	for _, app := range fixture.Apps {
		q.SetApp(app.App, app.EligiblePairs...)
		for assetID, amount := range app.TotalSupply {
			v, err := parseAmount(amount)
			if err != nil {
				return nil, fmt.Errorf("host: app %d supply: %w", app.ID, err)
			}
			q.SetTotalSupply(app.ID, assetID, v)
		}
		for assetID, coin := range app.Surplus {
			v, err := parseAmount(coin.Amount)
			if err != nil {
				return nil, fmt.Errorf("host: app %d surplus: %w", app.ID, err)
			}
			q.SetSurplus(app.ID, assetID, types.NewCoin(coin.Denom, v))
		}
	}
	for denom, amount := range fixture.Vested {
		v, err := parseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("host: vested %s: %w", denom, err)
		}
		q.SetVested(denom, v)
	}
	return q, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// SetApp registers app together with its eligible pairs.
func (q *StaticQuerier) SetApp(app App, pairs ...uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.apps[app.ID] = app
	q.pairs[app.ID] = append([]uint64(nil), pairs...)
}

// SetAsset registers an asset denomination.
func (q *StaticQuerier) SetAsset(id uint64, denom string, whitelisted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.assets[id] = denom
	q.whitelisted[denom] = whitelisted
}

// SetTotalSupply records the supply of assetID within appID.
func (q *StaticQuerier) SetTotalSupply(appID, assetID uint64, amount *big.Int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.supply[appKey{appID, assetID}] = new(big.Int).Set(amount)
}

// SetSurplus records the surplus reward released for appID.
func (q *StaticQuerier) SetSurplus(appID, assetID uint64, coin types.Coin) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.surplus[appKey{appID, assetID}] = coin.Clone()
}

// SetVested records the amount of denom held by the vesting ledger.
func (q *StaticQuerier) SetVested(denom string, amount *big.Int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.vested[denom] = new(big.Int).Set(amount)
}

// GetApp implements Querier.
func (q *StaticQuerier) GetApp(appID uint64) (App, bool, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	app, ok := q.apps[appID]
	return app, ok, nil
}

// GetAssetDenom implements Querier. Unknown assets resolve to "".
func (q *StaticQuerier) GetAssetDenom(assetID uint64) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.assets[assetID], nil
}

// GetTotalSupply implements Querier.
func (q *StaticQuerier) GetTotalSupply(appID, assetID uint64) (*big.Int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if v, ok := q.supply[appKey{appID, assetID}]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

// GetEligiblePairs implements Querier. The returned slice is sorted.
func (q *StaticQuerier) GetEligiblePairs(appID uint64) ([]uint64, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := append([]uint64(nil), q.pairs[appID]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// IsAssetWhitelisted implements Querier.
func (q *StaticQuerier) IsAssetWhitelisted(denom string) (bool, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.whitelisted[denom], nil
}

// GetSurplusReward implements Querier.
func (q *StaticQuerier) GetSurplusReward(appID, assetID uint64) (types.Coin, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if c, ok := q.surplus[appKey{appID, assetID}]; ok {
		return c.Clone(), nil
	}
	return types.Coin{Amount: big.NewInt(0)}, nil
}

// GetVestedAmount implements Querier.
func (q *StaticQuerier) GetVestedAmount(denom string) (*big.Int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if v, ok := q.vested[denom]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}
