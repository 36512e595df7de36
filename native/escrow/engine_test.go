package escrow

import (
	"encoding/json"
	"math/big"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "vegov/core/errors"
	"vegov/core/events"
	"vegov/core/host"
	"vegov/core/types"
	"vegov/native/params"
)

type mockState struct {
	params   map[string][]byte
	holders  map[string]*HolderRecord
	entries  map[string]map[string][]*VoteTokenEntry
	supply   map[string]*SupplyTotals
	holderID uint64
	entryID  uint64
}

func newMockState() *mockState {
	return &mockState{
		params:  make(map[string][]byte),
		holders: make(map[string]*HolderRecord),
		entries: make(map[string]map[string][]*VoteTokenEntry),
		supply:  make(map[string]*SupplyTotals),
	}
}

func (m *mockState) ParamStoreSet(name string, value []byte) error {
	m.params[name] = append([]byte(nil), value...)
	return nil
}

func (m *mockState) ParamStoreGet(name string) ([]byte, bool, error) {
	v, ok := m.params[name]
	return v, ok, nil
}

func (m *mockState) EscrowHolder(owner string) (*HolderRecord, bool, error) {
	rec, ok := m.holders[owner]
	return rec, ok, nil
}

func (m *mockState) EscrowPutHolder(record *HolderRecord) error {
	m.holders[record.Owner] = record
	return nil
}

func (m *mockState) EscrowNextHolderID() (uint64, error) {
	m.holderID++
	return m.holderID, nil
}

func (m *mockState) EscrowNextEntryID() (uint64, error) {
	m.entryID++
	return m.entryID, nil
}

func (m *mockState) EscrowEntries(owner, denom string) ([]*VoteTokenEntry, error) {
	out := make([]*VoteTokenEntry, 0)
	for _, entry := range m.entries[owner][denom] {
		out = append(out, entry.Clone())
	}
	return out, nil
}

func (m *mockState) EscrowPutEntries(owner, denom string, entries []*VoteTokenEntry) error {
	if m.entries[owner] == nil {
		m.entries[owner] = make(map[string][]*VoteTokenEntry)
	}
	if len(entries) == 0 {
		delete(m.entries[owner], denom)
		return nil
	}
	m.entries[owner][denom] = entries
	return nil
}

func (m *mockState) EscrowOwnerEntries(owner string) ([]*VoteTokenEntry, error) {
	denoms := make([]string, 0)
	for denom := range m.entries[owner] {
		denoms = append(denoms, denom)
	}
	sort.Strings(denoms)
	out := make([]*VoteTokenEntry, 0)
	for _, denom := range denoms {
		out = append(out, m.entries[owner][denom]...)
	}
	return out, nil
}

func (m *mockState) EscrowSupply(denom string) (*SupplyTotals, error) {
	if s, ok := m.supply[denom]; ok {
		return &SupplyTotals{Denom: denom, PrincipalLocked: new(big.Int).Set(s.PrincipalLocked), VoteTokenIssued: new(big.Int).Set(s.VoteTokenIssued)}, nil
	}
	return NewSupplyTotals(denom), nil
}

func (m *mockState) EscrowPutSupply(totals *SupplyTotals) error {
	m.supply[totals.Denom] = totals
	return nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

type fixedGuard struct{ amount *big.Int }

func (g fixedGuard) DelegatedOut(string, string) (*big.Int, error) { return g.amount, nil }

const (
	denom = "uharbor"
	appID = uint64(1)
	day   = uint64(86400)
)

func testGlobal() params.GlobalState {
	return params.GlobalState{
		Admin: "admin",
		TierWeights: []params.TierWeight{
			{Tier: 1, DurationSecs: 7 * day, Weight: types.MustDecimal("0.25")},
			{Tier: 2, DurationSecs: 30 * day, Weight: types.MustDecimal("0.5")},
			{Tier: 3, DurationSecs: 180 * day, Weight: types.MustDecimal("1")},
			{Tier: 4, DurationSecs: 365 * day, Weight: types.MustDecimal("2")},
		},
		VotingPeriodSecs: 3 * day,
	}
}

func newTestEngine(t *testing.T) (*Engine, *mockState, *captureEmitter) {
	t.Helper()
	state := newMockState()
	global := testGlobal()
	raw, err := json.Marshal(global)
	require.NoError(t, err)
	require.NoError(t, state.ParamStoreSet(params.ParamsKeyGlobal, raw))

	q := host.NewStaticQuerier()
	q.SetAsset(9, denom, true)
	q.SetApp(host.App{ID: appID, GovernanceAssetID: 9}, 1, 2)

	emitter := &captureEmitter{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetQuerier(q)
	engine.SetEmitter(emitter)
	return engine, state, emitter
}

func coins(amount int64) types.Coins {
	return types.Coins{types.NewCoin(denom, big.NewInt(amount))}
}

func TestLockComputesVoteTokens(t *testing.T) {
	engine, _, emitter := newTestEngine(t)

	entry, err := engine.Lock("alice", coins(100), appID, 1, 1_000)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(25), entry.VoteToken.Amount)
	require.Equal(t, "vuharbor", entry.VoteToken.Denom)
	require.Equal(t, uint64(1_000+7*day), entry.EndTime)
	require.Equal(t, StatusLocked, entry.Status)

	supply, err := engine.Supply(denom)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), supply.PrincipalLocked)
	require.Equal(t, big.NewInt(25), supply.VoteTokenIssued)

	require.Len(t, emitter.events, 1)
	require.Equal(t, events.TypeEscrowLocked, emitter.events[0].EventType())
}

func TestLockNeverMergesEntries(t *testing.T) {
	engine, state, _ := newTestEngine(t)

	first, err := engine.Lock("alice", coins(100), appID, 1, 1_000)
	require.NoError(t, err)
	second, err := engine.Lock("alice", coins(100), appID, 1, 2_000)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	entries, err := engine.EntriesByDenom("alice", denom)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	supply, err := engine.Supply(denom)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(200), supply.PrincipalLocked)
	require.Equal(t, big.NewInt(50), supply.VoteTokenIssued)

	require.Len(t, state.holders, 1)
	require.EqualValues(t, 1, state.holders["alice"].ID)
}

func TestLockRejectsInvalidFunds(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	cases := []struct {
		name  string
		funds types.Coins
		app   uint64
		tier  uint8
		want  error
	}{
		{name: "empty", funds: nil, app: appID, tier: 1, want: coreerrors.ErrEmptyFunds},
		{name: "zero", funds: coins(0), app: appID, tier: 1, want: coreerrors.ErrZeroAmount},
		{name: "negative", funds: coins(-10), app: appID, tier: 1, want: coreerrors.ErrNegativeAmount},
		{name: "netted negative", funds: types.Coins{types.NewCoin(denom, big.NewInt(50)), types.NewCoin(denom, big.NewInt(-20))}, app: appID, tier: 1, want: coreerrors.ErrNegativeAmount},
		{name: "multiple", funds: types.Coins{types.NewCoin(denom, big.NewInt(1)), types.NewCoin("uatom", big.NewInt(1))}, app: appID, tier: 1, want: coreerrors.ErrMultipleDenoms},
		{name: "wrong denom", funds: types.Coins{types.NewCoin("uatom", big.NewInt(10))}, app: appID, tier: 1, want: ErrDenomMismatch},
		{name: "unknown tier", funds: coins(10), app: appID, tier: 5, want: ErrUnknownTier},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Lock("alice", tc.funds, tc.app, tc.tier, 1)
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, coreerrors.ErrValidation)
		})
	}

	_, err := engine.Lock("alice", coins(10), 42, 1, 1)
	require.ErrorIs(t, err, coreerrors.ErrValidation)
}

func TestWithdrawRequiresMaturity(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Lock("alice", coins(100), appID, 1, 1_000)
	require.NoError(t, err)
	_, err = engine.Lock("alice", coins(40), appID, 2, 1_000)
	require.NoError(t, err)

	end := uint64(1_000 + 7*day)
	_, _, err = engine.Withdraw("alice", nil, denom, 1, end)
	require.ErrorIs(t, err, coreerrors.ErrNotFound)

	_, _, err = engine.Withdraw("alice", coins(1), denom, 1, end+1)
	require.ErrorIs(t, err, coreerrors.ErrFundsNotAllowed)

	payout, removed, err := engine.Withdraw("alice", nil, denom, 1, end+1)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, "100uharbor", payout.String())

	entries, err := engine.EntriesByDenom("alice", denom)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.EqualValues(t, 2, entries[0].Tier)

	supply, err := engine.Supply(denom)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(40), supply.PrincipalLocked)
	require.Equal(t, big.NewInt(20), supply.VoteTokenIssued)
}

func TestWithdrawRespectsDelegatedWeight(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	engine.SetDelegationGuard(fixedGuard{amount: big.NewInt(10)})

	_, err := engine.Lock("alice", coins(100), appID, 1, 1_000)
	require.NoError(t, err)
	_, _, err = engine.Withdraw("alice", nil, denom, 1, 1_000+7*day+1)
	require.ErrorIs(t, err, ErrDelegatedWeight)
}

func TestTransferMovesEntries(t *testing.T) {
	engine, state, emitter := newTestEngine(t)

	_, err := engine.Lock("alice", coins(100), appID, 1, 1_000)
	require.NoError(t, err)
	_, err = engine.Lock("alice", coins(100), appID, 1, 2_000)
	require.NoError(t, err)

	_, err = engine.Transfer("alice", "bob", nil, denom, 1)
	require.ErrorIs(t, err, ErrTransfersDisabled)

	global := testGlobal()
	global.TransfersEnabled = true
	require.NoError(t, params.NewStore(state).SetGlobal(global))

	moved, err := engine.Transfer("alice", "bob", nil, denom, 1)
	require.NoError(t, err)
	require.Equal(t, 2, moved)

	_, err = engine.Transfer("alice", "bob", nil, denom, 1)
	require.ErrorIs(t, err, coreerrors.ErrNotFound)

	bobEntries, err := engine.Entries("bob")
	require.NoError(t, err)
	require.Len(t, bobEntries, 2)
	for _, entry := range bobEntries {
		require.Equal(t, "bob", entry.Owner)
		require.Greater(t, entry.ID, uint64(2), "moved entries are re-issued")
	}
	require.EqualValues(t, 1_000, bobEntries[0].StartTime)
	require.EqualValues(t, 2, state.holders["bob"].ID)

	supply, err := engine.Supply(denom)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(200), supply.PrincipalLocked)
	require.Equal(t, big.NewInt(50), supply.VoteTokenIssued)
	require.Equal(t, events.TypeEscrowTransferred, emitter.events[len(emitter.events)-1].EventType())
}

func TestLockForCompounds(t *testing.T) {
	engine, _, emitter := newTestEngine(t)

	entry, err := engine.LockFor("alice", types.NewCoin(denom, big.NewInt(8)), 2, 50)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(4), entry.VoteToken.Amount)

	locked, ok := emitter.events[0].(events.EscrowLocked)
	require.True(t, ok)
	require.True(t, locked.Compound)

	_, err = engine.LockFor("alice", types.NewCoin(denom, big.NewInt(0)), 2, 50)
	require.ErrorIs(t, err, coreerrors.ErrZeroAmount)
}

func TestStatusAt(t *testing.T) {
	entry := &VoteTokenEntry{StartTime: 10, EndTime: 40, Status: StatusLocked}
	require.Equal(t, StatusLocked, entry.StatusAt(39))
	require.Equal(t, StatusUnlocking, entry.StatusAt(40))
	require.False(t, entry.Matured(40))
	require.Equal(t, StatusUnlocked, entry.StatusAt(41))
	require.Equal(t, "unlocking", StatusUnlocking.String())
}
