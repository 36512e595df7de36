package rewards

import (
	"math/big"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"vegov/core/events"
	"vegov/core/host"
	"vegov/core/types"
	"vegov/native/escrow"
	"vegov/native/governance"
)

type pairKey struct {
	proposal uint64
	pair     uint64
}

type voteKey struct {
	proposal uint64
	voter    string
}

type cursorKey struct {
	app      uint64
	claimant string
}

type mockState struct {
	proposals  map[uint64]*governance.Proposal
	completed  map[uint64][]uint64
	votes      map[voteKey]*governance.Vote
	pairTotals map[pairKey]*big.Int
	bribes     map[pairKey]types.Coins
	cursors    map[cursorKey]uint64
}

func newMockState() *mockState {
	return &mockState{
		proposals:  make(map[uint64]*governance.Proposal),
		completed:  make(map[uint64][]uint64),
		votes:      make(map[voteKey]*governance.Vote),
		pairTotals: make(map[pairKey]*big.Int),
		bribes:     make(map[pairKey]types.Coins),
		cursors:    make(map[cursorKey]uint64),
	}
}

func (m *mockState) GovernancePairTotal(proposalID, pair uint64) (*big.Int, error) {
	if v, ok := m.pairTotals[pairKey{proposalID, pair}]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) GovernanceBribePool(proposalID, pair uint64) (types.Coins, error) {
	return m.bribes[pairKey{proposalID, pair}].Clone(), nil
}

func (m *mockState) GovernanceProposal(id uint64) (*governance.Proposal, bool, error) {
	p, ok := m.proposals[id]
	return p, ok, nil
}

func (m *mockState) GovernanceCompletedProposals(appID uint64) ([]uint64, error) {
	return append([]uint64(nil), m.completed[appID]...), nil
}

func (m *mockState) GovernanceVote(proposalID uint64, voter string) (*governance.Vote, bool, error) {
	v, ok := m.votes[voteKey{proposalID, voter}]
	if !ok {
		return nil, false, nil
	}
	clone := *v
	return &clone, true, nil
}

func (m *mockState) GovernancePutVote(v *governance.Vote) error {
	m.votes[voteKey{v.ProposalID, v.Voter}] = v
	return nil
}

func (m *mockState) RewardsClaimCursor(appID uint64, claimant string) (uint64, bool, error) {
	c, ok := m.cursors[cursorKey{appID, claimant}]
	return c, ok, nil
}

func (m *mockState) RewardsSetClaimCursor(appID uint64, claimant string, proposalID uint64) error {
	m.cursors[cursorKey{appID, claimant}] = proposalID
	return nil
}

type lockCall struct {
	owner string
	coin  types.Coin
	tier  uint8
}

// fakeLocker mints one vote token per principal unit.
type fakeLocker struct {
	lastID  uint64
	entries map[string][]*escrow.VoteTokenEntry
	calls   []lockCall
}

func (f *fakeLocker) add(owner string, amount int64, tier uint8, start uint64) *escrow.VoteTokenEntry {
	f.lastID++
	entry := &escrow.VoteTokenEntry{
		ID:        f.lastID,
		Owner:     owner,
		Principal: types.NewCoin(denom, big.NewInt(amount)),
		VoteToken: types.NewCoin(escrow.VoteTokenDenom(denom), big.NewInt(amount)),
		Tier:      tier,
		StartTime: start,
	}
	f.entries[owner] = append(f.entries[owner], entry)
	return entry
}

func (f *fakeLocker) LockFor(owner string, principal types.Coin, tier uint8, now uint64) (*escrow.VoteTokenEntry, error) {
	f.calls = append(f.calls, lockCall{owner: owner, coin: principal, tier: tier})
	return f.add(owner, principal.Amount.Int64(), tier, now), nil
}

func (f *fakeLocker) EntriesByDenom(owner, _ string) ([]*escrow.VoteTokenEntry, error) {
	out := make([]*escrow.VoteTokenEntry, 0, len(f.entries[owner]))
	for _, entry := range f.entries[owner] {
		out = append(out, entry.Clone())
	}
	return out, nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

const (
	denom = "uharbor"
	appID = uint64(1)
)

func newTestEngine() (*Engine, *mockState, *fakeLocker, *captureEmitter) {
	state := newMockState()
	q := host.NewStaticQuerier()
	q.SetAsset(9, denom, true)
	q.SetApp(host.App{ID: appID, GovernanceAssetID: 9}, 1, 2)
	locker := &fakeLocker{entries: make(map[string][]*escrow.VoteTokenEntry)}
	emitter := &captureEmitter{}

	engine := NewEngine()
	engine.SetState(state)
	engine.SetQuerier(q)
	engine.SetLocker(locker)
	engine.SetEmitter(emitter)
	return engine, state, locker, emitter
}

func finalized(id uint64, rebase int64, surplus types.Coin) *governance.Proposal {
	return &governance.Proposal{
		ID:                id,
		AppID:             appID,
		Status:            governance.ProposalStatusFinalized,
		EligiblePairs:     []uint64{1, 2},
		EmissionCompleted: true,
		RebaseCompleted:   true,
		RebaseDistributed: big.NewInt(rebase),
		TotalSurplus:      surplus,
		VotingEnd:         votingEnd,
		RewardWeight:      big.NewInt(10_000),
		RewardEntryID:     10,
	}
}

const votingEnd = uint64(50)

func seedClaimScenario(state *mockState, locker *fakeLocker) {
	locker.add("alice", 222, 1, 0)
	locker.add("alice", 778, 3, 0)
	locker.lastID = 10

	state.proposals[1] = finalized(1, 20_000, types.NewCoin("ucmst", big.NewInt(1_000)))
	state.proposals[2] = finalized(2, 10_000, types.Coin{Amount: big.NewInt(0)})
	state.completed[appID] = []uint64{1, 2}

	state.votes[voteKey{1, "alice"}] = &governance.Vote{
		ProposalID:      1,
		Voter:           "alice",
		Denom:           denom,
		Pairs:           []governance.VotePair{{Pair: 1, Weight: big.NewInt(30)}},
		OwnWeight:       big.NewInt(30),
		DelegatedWeight: big.NewInt(0),
	}
	state.pairTotals[pairKey{1, 1}] = big.NewInt(100)
	state.bribes[pairKey{1, 1}] = types.Coins{types.NewCoin("ucmst", big.NewInt(500))}
}

func TestClaimRewardsStreams(t *testing.T) {
	engine, state, locker, emitter := newTestEngine()
	seedClaimScenario(state, locker)

	outcome, err := engine.ClaimRewards("alice", nil, appID, 99)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, outcome.Proposals)
	require.EqualValues(t, 2, outcome.Cursor)
	require.Equal(t, "150ucmst", outcome.Bribe.String())
	// 1000 × 1000 / 10000
	require.Equal(t, "100ucmst", outcome.Surplus.String())
	require.Equal(t, "250ucmst", outcome.Payout.String())

	// tier 1: 222×20000/10000 + 222×10000/10000 = 444 + 222
	// tier 3: 778×20000/10000 + 778×10000/10000 = 1556 + 778
	sort.Slice(locker.calls, func(i, j int) bool { return locker.calls[i].tier < locker.calls[j].tier })
	require.Len(t, locker.calls, 2)
	require.Equal(t, lockCall{owner: "alice", coin: types.NewCoin(denom, big.NewInt(666)), tier: 1}, locker.calls[0])
	require.Equal(t, lockCall{owner: "alice", coin: types.NewCoin(denom, big.NewInt(2_334)), tier: 3}, locker.calls[1])
	require.Equal(t, "3000uharbor", outcome.Rebase.String())

	require.True(t, state.votes[voteKey{1, "alice"}].BribeClaimed)
	require.EqualValues(t, 2, state.cursors[cursorKey{appID, "alice"}])
	require.Equal(t, events.TypeRewardsClaimed, emitter.events[0].EventType())
}

func TestClaimRewardsIdempotent(t *testing.T) {
	engine, state, locker, _ := newTestEngine()
	seedClaimScenario(state, locker)

	_, err := engine.ClaimRewards("alice", nil, appID, 99)
	require.NoError(t, err)
	calls := len(locker.calls)

	second, err := engine.ClaimRewards("alice", nil, appID, 100)
	require.NoError(t, err)
	require.True(t, second.Payout.IsZero())
	require.Empty(t, second.Proposals)
	require.EqualValues(t, 2, second.Cursor)
	require.Len(t, locker.calls, calls)
}

func TestClaimRewardsKeepsDelegatedShare(t *testing.T) {
	engine, state, locker, _ := newTestEngine()
	seedClaimScenario(state, locker)
	vote := state.votes[voteKey{1, "alice"}]
	vote.OwnWeight = big.NewInt(10)
	vote.DelegatedWeight = big.NewInt(20)

	outcome, err := engine.ClaimRewards("alice", nil, appID, 99)
	require.NoError(t, err)
	require.Equal(t, "50ucmst", outcome.Bribe.String())
}

func TestClaimRewardsPicksUpNewProposals(t *testing.T) {
	engine, state, locker, _ := newTestEngine()
	seedClaimScenario(state, locker)
	state.completed[appID] = []uint64{1}

	first, err := engine.ClaimRewards("alice", nil, appID, 99)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, first.Proposals)

	state.completed[appID] = []uint64{1, 2}
	second, err := engine.ClaimRewards("alice", nil, appID, 100)
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, second.Proposals)
	require.True(t, second.Bribe.IsZero())
}

func TestClaimRewardsRejectsFunds(t *testing.T) {
	engine, _, _, _ := newTestEngine()
	_, err := engine.ClaimRewards("alice", types.Coins{types.NewCoin(denom, big.NewInt(1))}, appID, 1)
	require.Error(t, err)
}

func TestClaimRewardsIgnoresEntriesOutsideSnapshot(t *testing.T) {
	engine, state, locker, _ := newTestEngine()
	seedClaimScenario(state, locker)
	// Locked after voting closed but before finalisation.
	late := locker.add("carol", 5_000, 1, votingEnd+1)
	late.ID = 9
	// Locked after finalisation.
	locker.add("dave", 5_000, 1, votingEnd+100)

	for _, who := range []string{"carol", "dave"} {
		outcome, err := engine.ClaimRewards(who, nil, appID, 200)
		require.NoError(t, err)
		require.Equal(t, []uint64{1, 2}, outcome.Proposals)
		require.True(t, outcome.Rebase.IsZero(), who)
		require.True(t, outcome.Surplus.IsZero(), who)
	}
}

func TestClaimRewardsNeverExceedsPools(t *testing.T) {
	engine, state, locker, _ := newTestEngine()
	seedClaimScenario(state, locker)
	locker.lastID = 2
	// alice holds 1000; the rest of the 10000 snapshot weight.
	locker.add("bob", 3_333, 1, 10)
	locker.add("carol", 4_444, 3, 20)
	locker.add("dave", 1_223, 1, votingEnd)
	locker.lastID = 10
	locker.add("erin", 50_000, 1, votingEnd+5)

	rebasePaid := big.NewInt(0)
	surplusPaid := big.NewInt(0)
	for _, who := range []string{"erin", "alice", "bob", "carol", "dave"} {
		outcome, err := engine.ClaimRewards(who, nil, appID, 300)
		require.NoError(t, err)
		for _, c := range outcome.Rebase {
			rebasePaid.Add(rebasePaid, c.Amount)
		}
		for _, c := range outcome.Surplus {
			surplusPaid.Add(surplusPaid, c.Amount)
		}
	}
	// The snapshot weights divide the rebase pools exactly; surplus loses
	// only floor dust.
	minted := big.NewInt(20_000 + 10_000)
	require.Equal(t, 0, rebasePaid.Cmp(minted))
	require.LessOrEqual(t, surplusPaid.Cmp(big.NewInt(1_000)), 0)
	require.Greater(t, surplusPaid.Int64(), int64(990))

	// Re-locked rebase sits above the snapshot and earns nothing for these
	// proposals on a later claim.
	again, err := engine.ClaimRewards("alice", nil, appID, 400)
	require.NoError(t, err)
	require.Empty(t, again.Proposals)
}
