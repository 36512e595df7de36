package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	coreerrors "vegov/core/errors"
	"vegov/core/events"
	"vegov/core/host"
	"vegov/core/types"
	"vegov/native/delegation"
	"vegov/native/governance"
	"vegov/native/params"
	"vegov/observability/metrics"
	"vegov/storage"
)

const (
	admin  = "admin"
	appID  = uint64(1)
	denom  = "uharbor"
	period = uint64(100)
)

type fixture struct {
	app     *App
	db      *storage.MemDB
	querier *host.StaticQuerier
	sink    *events.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })

	q := host.NewStaticQuerier()
	q.SetAsset(9, denom, true)
	q.SetAsset(10, "ucmst", true)
	q.SetAsset(11, "uosmo", true)
	q.SetApp(host.App{ID: appID, Name: "harbor", GovernanceAssetID: 9}, 1, 2)
	q.SetTotalSupply(appID, 9, big.NewInt(4_000))
	q.SetVested(denom, big.NewInt(300))
	q.SetSurplus(appID, 10, types.NewCoin("ucmst", big.NewInt(900)))

	sink := &events.Buffer{}
	a := New(db, q,
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		WithMetrics(metrics.NewEngineMetrics(prometheus.NewRegistry())),
		WithEventSink(sink),
	)
	require.NoError(t, a.InitGenesis(params.GlobalState{
		Admin: admin,
		TierWeights: []params.TierWeight{
			{Tier: 1, DurationSecs: 10, Weight: types.MustDecimal("0.25")},
			{Tier: 2, DurationSecs: 20, Weight: types.MustDecimal("0.5")},
			{Tier: 3, DurationSecs: 30, Weight: types.MustDecimal("1")},
			{Tier: 4, DurationSecs: 40, Weight: types.MustDecimal("2")},
		},
		VotingPeriodSecs:    period,
		FoundationAddresses: []string{"found1"},
		FoundationRatio:     types.MustDecimal("0.2"),
		SurplusAssetID:      10,
		TransfersEnabled:    true,
	}))
	return &fixture{app: a, db: db, querier: q, sink: sink}
}

func coins(amount int64, d string) types.Coins {
	return types.Coins{types.NewCoin(d, big.NewInt(amount))}
}

func (f *fixture) exec(t *testing.T, env Env, op Operation) *Result {
	t.Helper()
	res, err := f.app.Execute(context.Background(), env, op)
	require.NoError(t, err)
	require.True(t, res.Committed)
	return res
}

// openProposal locks alice (400 at tier 3) and bob (300 at tier 4), configures
// a 100k budget at a 10% rate and raises proposal 1.
func (f *fixture) openProposal(t *testing.T) uint64 {
	t.Helper()
	f.exec(t, Env{Sender: "alice", Funds: coins(400, denom)}, Lock{AppID: appID, Tier: 3})
	f.exec(t, Env{Sender: "bob", Funds: coins(300, denom)}, Lock{AppID: appID, Tier: 4})
	f.exec(t, Env{Sender: admin}, ConfigureEmission{AppID: appID, TotalRewards: big.NewInt(100_000), EmissionRate: types.MustDecimal("0.1")})
	res := f.exec(t, Env{Sender: admin}, RaiseProposal{AppID: appID})
	return res.Output.(ProposalResult).Proposal.ID
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	pid := f.openProposal(t)
	require.EqualValues(t, 1, pid)

	supply, err := f.app.Supply(denom)
	require.NoError(t, err)
	require.Equal(t, 0, supply.PrincipalLocked.Cmp(big.NewInt(700)))
	require.Equal(t, 0, supply.VoteTokenIssued.Cmp(big.NewInt(1_000)))

	one := []types.Decimal{types.MustDecimal("1")}
	f.exec(t, Env{Sender: "alice", Time: 1}, Vote{AppID: appID, ProposalID: pid, Pairs: []uint64{1}, Ratios: one, GovernanceDenom: denom})
	f.exec(t, Env{Sender: "bob", Time: 1}, Vote{AppID: appID, ProposalID: pid, Pairs: []uint64{2}, Ratios: one, GovernanceDenom: denom})
	f.exec(t, Env{Sender: "carol", Time: 2, Funds: coins(90, "uosmo")}, DepositBribe{ProposalID: pid, Pair: 2})

	// circulating = 4000 - 300 - 700 = 3000, locked% = 1000 / 4000
	res := f.exec(t, Env{Sender: "keeper", Time: period, Height: 10}, FinalizeEmission{ProposalID: pid})
	out := res.Output.(EmissionFinalizeResult)
	require.Equal(t, 0, out.Emission.Cmp(big.NewInt(7_500)))
	require.Equal(t, 0, out.Rebase.Cmp(big.NewInt(2_500)))
	require.Equal(t, 0, out.Foundation.Cmp(big.NewInt(1_500)))
	require.Equal(t, []governance.PairAllocation{{Pair: 1, Amount: big.NewInt(2_400)}, {Pair: 2, Amount: big.NewInt(3_600)}}, out.Allocations)
	require.Equal(t, []Effect{
		{Kind: EffectEmissionMint, AppID: appID, Coins: coins(7_500, denom)},
		{Kind: EffectRebaseMint, AppID: appID, Coins: coins(2_500, denom)},
		{Kind: EffectSurplusTransfer, AppID: appID, Coins: coins(900, "ucmst")},
	}, res.Effects)
	require.Empty(t, res.Dust)

	res = f.exec(t, Env{Sender: "keeper", Time: period}, FinalizeFoundation{ProposalID: pid})
	require.Equal(t, []Effect{{Kind: EffectFoundationPayout, AppID: appID, Recipient: "found1", Coins: coins(1_500, denom)}}, res.Effects)

	res = f.exec(t, Env{Sender: "bob", Time: period}, ClaimRewards{AppID: appID})
	claim := res.Output.(ClaimResult)
	require.Equal(t, "90uosmo", claim.Bribe.String())
	require.Equal(t, "540ucmst", claim.Surplus.String())
	require.Equal(t, "1500uharbor", claim.Rebase.String())
	require.EqualValues(t, pid, claim.Cursor)
	require.Equal(t, []Effect{{Kind: EffectPayout, Recipient: "bob", Coins: types.Coins{types.NewCoin("ucmst", big.NewInt(540)), types.NewCoin("uosmo", big.NewInt(90))}}}, res.Effects)

	// bob's re-locked rebase sits outside the proposal's snapshot
	res = f.exec(t, Env{Sender: "alice", Time: period}, ClaimRewards{AppID: appID})
	claim = res.Output.(ClaimResult)
	require.True(t, claim.Bribe.IsZero())
	require.Equal(t, "360ucmst", claim.Surplus.String())
	require.Equal(t, "1000uharbor", claim.Rebase.String())

	res = f.exec(t, Env{Sender: "alice", Time: period + 1}, ClaimRewards{AppID: appID})
	require.Empty(t, res.Effects)
	require.Empty(t, res.Output.(ClaimResult).Proposals)

	res = f.exec(t, Env{Sender: "alice", Time: period}, Withdraw{Denom: denom, Tier: 3})
	withdrawn := res.Output.(WithdrawResult)
	require.Equal(t, 1, withdrawn.Removed)
	require.Equal(t, "400uharbor", withdrawn.Amount.String())
	require.Equal(t, payout("alice", types.NewCoin(denom, big.NewInt(400))), res.Effects)

	entries, err := f.app.HolderEntries("alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.EqualValues(t, period+30, entries[0].EndTime)

	supply, err = f.app.Supply(denom)
	require.NoError(t, err)
	require.Equal(t, 0, supply.PrincipalLocked.Cmp(big.NewInt(2_800)))
	require.Equal(t, 0, supply.VoteTokenIssued.Cmp(big.NewInt(4_600)))

	completed, err := f.app.CompletedProposals(appID)
	require.NoError(t, err)
	require.Equal(t, []uint64{pid}, completed)
	cursor, err := f.app.ClaimCursor(appID, "alice")
	require.NoError(t, err)
	require.Equal(t, pid, cursor)
}

func TestLateLockEarnsNoPastRewards(t *testing.T) {
	f := newFixture(t)
	pid := f.openProposal(t)
	f.exec(t, Env{Sender: "erin", Time: period - 1, Funds: coins(50, denom)}, Lock{AppID: appID, Tier: 1})
	f.exec(t, Env{Sender: "keeper", Time: period + 5, Height: 10}, FinalizeEmission{ProposalID: pid})
	// frank locks after finalisation, erin locked inside the voting window
	f.exec(t, Env{Sender: "frank", Time: period + 6, Funds: coins(5_000, denom)}, Lock{AppID: appID, Tier: 4})

	res := f.exec(t, Env{Sender: "frank", Time: period + 7}, ClaimRewards{AppID: appID})
	claim := res.Output.(ClaimResult)
	require.Equal(t, []uint64{pid}, claim.Proposals)
	require.True(t, claim.Rebase.IsZero())
	require.True(t, claim.Surplus.IsZero())
	require.Empty(t, res.Effects)

	minted := big.NewInt(0)
	for _, p := range []string{"alice", "bob", "erin"} {
		res = f.exec(t, Env{Sender: p, Time: period + 8}, ClaimRewards{AppID: appID})
		claim = res.Output.(ClaimResult)
		for _, c := range claim.Rebase {
			minted.Add(minted, c.Amount)
		}
		for _, c := range claim.Surplus {
			require.Equal(t, "ucmst", c.Denom)
		}
	}
	proposal, err := f.app.Proposal(pid)
	require.NoError(t, err)
	require.Equal(t, 0, proposal.RewardWeight.Cmp(big.NewInt(1_012)))
	require.LessOrEqual(t, minted.Cmp(proposal.RebaseDistributed), 0)
	require.Greater(t, minted.Int64(), proposal.RebaseDistributed.Int64()-3)
}

func TestNegativeFundsRejected(t *testing.T) {
	f := newFixture(t)
	pid := f.openProposal(t)
	f.exec(t, Env{Sender: "carol", Time: 2, Funds: coins(90, "uosmo")}, DepositBribe{ProposalID: pid, Pair: 2})

	_, err := f.app.Execute(context.Background(), Env{Sender: "mallory", Time: 3, Funds: coins(-80, "uosmo")}, DepositBribe{ProposalID: pid, Pair: 2})
	require.ErrorIs(t, err, coreerrors.ErrNegativeAmount)
	require.Equal(t, coreerrors.KindValidation, coreerrors.KindOf(err))

	_, err = f.app.Execute(context.Background(), Env{Sender: "mallory", Funds: coins(-10, denom)}, Lock{AppID: appID, Tier: 1})
	require.ErrorIs(t, err, coreerrors.ErrNegativeAmount)

	pool, err := f.app.BribePool(pid, 2)
	require.NoError(t, err)
	require.Equal(t, "90uosmo", pool.String())
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.exec(t, Env{Sender: "alice", Funds: coins(400, denom)}, Lock{AppID: appID, Tier: 3})
	published := len(f.sink.Pending())

	_, err := f.app.Execute(context.Background(), Env{Sender: "alice", Funds: coins(10, denom)}, Lock{AppID: appID, Tier: 9})
	require.Error(t, err)
	require.Equal(t, coreerrors.KindValidation, coreerrors.KindOf(err))

	_, err = f.app.Execute(context.Background(), Env{Sender: "alice", Funds: coins(5, denom)}, FinalizeEmission{ProposalID: 1})
	require.ErrorIs(t, err, coreerrors.ErrFundsNotAllowed)

	entries, err := f.app.HolderEntries("alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, f.sink.Pending(), published)
}

func TestSimulateMatchesExecute(t *testing.T) {
	f := newFixture(t)
	env := Env{Sender: "alice", Time: 5, Funds: coins(400, denom)}

	sim, err := f.app.Simulate(context.Background(), env, Lock{AppID: appID, Tier: 2})
	require.NoError(t, err)
	require.False(t, sim.Committed)
	entries, err := f.app.HolderEntries("alice")
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Empty(t, f.sink.Pending())

	res := f.exec(t, env, Lock{AppID: appID, Tier: 2})
	require.Equal(t, sim.Digest, res.Digest)
	require.Len(t, res.Events, 1)
	require.Equal(t, "escrow", res.Events[0].Module())
	require.Equal(t, "alice", res.Events[0].Attr("owner"))
	require.Len(t, f.sink.Pending(), 1)
}

func TestExecuteRequiresGenesisAndSender(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	a := New(db, host.NewStaticQuerier(), WithMetrics(metrics.NewEngineMetrics(nil)), WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))

	_, err := a.Execute(context.Background(), Env{Sender: "alice"}, RaiseProposal{AppID: appID})
	require.ErrorIs(t, err, ErrNotInitialised)

	_, err = a.Execute(context.Background(), Env{}, RaiseProposal{AppID: appID})
	require.ErrorIs(t, err, ErrSenderRequired)

	_, err = a.Execute(context.Background(), Env{Sender: "alice"}, nil)
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestUnauthorizedAdminOperations(t *testing.T) {
	f := newFixture(t)
	_, err := f.app.Execute(context.Background(), Env{Sender: "mallory"}, RaiseProposal{AppID: appID})
	require.Equal(t, coreerrors.KindUnauthorized, coreerrors.KindOf(err))
	_, err = f.app.CurrentProposal(appID)
	require.ErrorIs(t, err, ErrNoCurrentProposal)
}

func TestDelegatedClaimFlow(t *testing.T) {
	f := newFixture(t)
	f.exec(t, Env{Sender: "dave", Height: 1}, RegisterDelegate{DelegatorFeeRatio: types.MustDecimal("0.1"), ProtocolFeeRatio: types.MustDecimal("0.1")})
	pid := f.openProposal(t)
	f.exec(t, Env{Sender: "alice", Height: 2}, Delegate{Delegate: "dave", Denom: denom, Amount: big.NewInt(100)})

	// alice keeps 300 of her 400 for herself
	one := []types.Decimal{types.MustDecimal("1")}
	res := f.exec(t, Env{Sender: "alice", Time: 1, Height: 3}, Vote{AppID: appID, ProposalID: pid, Pairs: []uint64{1}, Ratios: one, GovernanceDenom: denom})
	require.Equal(t, 0, res.Output.(VoteResult).Vote.AllocatedWeight().Cmp(big.NewInt(300)))
	f.exec(t, Env{Sender: "bob", Time: 1, Height: 3}, Vote{AppID: appID, ProposalID: pid, Pairs: []uint64{2}, Ratios: one, GovernanceDenom: denom})
	res = f.exec(t, Env{Sender: "dave", Time: 1, Height: 3}, Vote{AppID: appID, ProposalID: pid, Pairs: []uint64{2}, Ratios: one, GovernanceDenom: denom})
	require.Equal(t, 0, res.Output.(VoteResult).Vote.DelegatedWeight.Cmp(big.NewInt(100)))
	f.exec(t, Env{Sender: "carol", Time: 2, Height: 4, Funds: coins(700, "uosmo")}, DepositBribe{ProposalID: pid, Pair: 2})

	// delegated weight cannot be withdrawn out from under the delegate
	_, err := f.app.Execute(context.Background(), Env{Sender: "alice", Time: 31, Height: 5}, Withdraw{Denom: denom, Tier: 3})
	require.Equal(t, coreerrors.KindValidation, coreerrors.KindOf(err))

	// dave's split is frozen between voting close and finalisation
	_, err = f.app.Execute(context.Background(), Env{Sender: "bob", Time: period, Height: 9}, Delegate{Delegate: "dave", Denom: denom, Amount: big.NewInt(50)})
	require.ErrorIs(t, err, delegation.ErrProposalClosing)
	_, err = f.app.Execute(context.Background(), Env{Sender: "alice", Time: period, Height: 9}, Undelegate{Delegate: "dave"})
	require.ErrorIs(t, err, delegation.ErrProposalClosing)

	f.exec(t, Env{Sender: "keeper", Time: period, Height: 10}, FinalizeEmission{ProposalID: pid})

	// undelegating after finalisation does not change what the snapshot pays
	f.exec(t, Env{Sender: "alice", Time: period + 1, Height: 11}, Undelegate{Delegate: "dave"})

	res = f.exec(t, Env{Sender: "alice", Height: 12}, ClaimDelegated{Delegate: "dave", AppID: appID})
	claim := res.Output.(DelegatedClaimResult)
	require.Equal(t, []uint64{pid}, claim.Proposals)
	require.Equal(t, "81uosmo", claim.User.String())
	require.Equal(t, "9uosmo", claim.DelegateFee.String())
	require.Equal(t, "10uosmo", claim.Protocol.String())
	require.Equal(t, []Effect{
		{Kind: EffectPayout, Recipient: "alice", Coins: coins(81, "uosmo")},
		{Kind: EffectPayout, Recipient: "dave", Coins: coins(9, "uosmo")},
		{Kind: EffectPayout, Recipient: "found1", Coins: coins(10, "uosmo")},
	}, res.Effects)

	_, err = f.app.Execute(context.Background(), Env{Sender: "alice", Height: 13}, ClaimDelegated{Delegate: "dave", AppID: appID, ProposalID: pid})
	require.Equal(t, coreerrors.KindValidation, coreerrors.KindOf(err))

	res = f.exec(t, Env{Sender: "bob", Time: period}, ClaimRewards{AppID: appID})
	require.Equal(t, "600uosmo", res.Output.(ClaimResult).Bribe.String())

	snapshot, err := f.app.DelegationAt("alice", 10)
	require.NoError(t, err)
	require.Equal(t, 0, snapshot.AmountTo("dave", denom).Cmp(big.NewInt(100)))
	stats, err := f.app.DelegateStatsAt("dave", denom, 12)
	require.NoError(t, err)
	require.Zero(t, stats.TotalDelegated.Sign())
	info, err := f.app.DelegateInfoAt("dave", 12)
	require.NoError(t, err)
	require.Equal(t, "0.1", info.DelegatorFeeRatio.String())
}

func TestDecodeOperation(t *testing.T) {
	op, err := DecodeOperation("Vote", json.RawMessage(`{"appId":1,"proposalId":2,"pairs":[1,2],"ratios":["0.25","0.75"],"governanceDenom":"uharbor"}`))
	require.NoError(t, err)
	vote, ok := op.(Vote)
	require.True(t, ok)
	require.Equal(t, []uint64{1, 2}, vote.Pairs)
	require.Equal(t, "0.75", vote.Ratios[1].String())

	op, err = DecodeOperation("delegate", json.RawMessage(`{"delegate":"dave","denom":"uharbor","amount":150}`))
	require.NoError(t, err)
	require.Equal(t, 0, op.(Delegate).Amount.Cmp(big.NewInt(150)))

	op, err = DecodeOperation("raise_proposal", nil)
	require.NoError(t, err)
	require.Equal(t, RaiseProposal{}, op)

	_, err = DecodeOperation("mint", nil)
	require.ErrorIs(t, err, ErrUnknownOperation)
	_, err = DecodeOperation("lock", json.RawMessage(`{"tier":"x"}`))
	require.ErrorIs(t, err, ErrMalformedOperation)
	require.Equal(t, coreerrors.KindValidation, coreerrors.KindOf(err))
}

func TestFinalizeEmissionReportsDust(t *testing.T) {
	res := finalizeEmissionResult(&governance.EmissionOutcome{
		Proposal:   &governance.Proposal{ID: 1, AppID: appID},
		Denom:      denom,
		Emission:   big.NewInt(10),
		Rebase:     big.NewInt(0),
		Foundation: big.NewInt(0),
		Surplus:    types.NewCoin("", nil),
		Dust:       big.NewInt(1),
	})
	require.Len(t, res.Effects, 1)
	require.Equal(t, []Dust{{Stream: "emission", Amount: types.NewCoin(denom, big.NewInt(1))}}, res.Dust)
}
