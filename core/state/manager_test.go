package state

import (
	"math/big"
	"testing"

	"vegov/core/types"
	"vegov/native/delegation"
	"vegov/native/escrow"
	"vegov/native/governance"
	"vegov/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { db.Close() })
	return NewManager(db)
}

func entry(id uint64, owner, denom string, amount int64) *escrow.VoteTokenEntry {
	return &escrow.VoteTokenEntry{
		ID:        id,
		Owner:     owner,
		Principal: types.NewCoin(denom, big.NewInt(amount)),
		VoteToken: types.NewCoin(escrow.VoteTokenDenom(denom), big.NewInt(amount)),
		Tier:      1,
		StartTime: 10,
		EndTime:   20,
		Status:    escrow.StatusLocked,
	}
}

func TestEscrowEntriesRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	if err := mgr.EscrowPutEntries("alice", "uharbor", []*escrow.VoteTokenEntry{entry(1, "alice", "uharbor", 5), entry(2, "alice", "uharbor", 7)}); err != nil {
		t.Fatalf("put entries: %v", err)
	}
	got, err := mgr.EscrowEntries("alice", "uharbor")
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if len(got) != 2 || got[1].ID != 2 || got[1].Principal.Amount.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("unexpected entries: %+v", got)
	}
	if got[0].Status != escrow.StatusLocked || got[0].EndTime != 20 {
		t.Fatalf("entry fields not preserved: %+v", got[0])
	}

	if err := mgr.EscrowPutEntries("alice", "uharbor", nil); err != nil {
		t.Fatalf("clear entries: %v", err)
	}
	got, err = mgr.EscrowEntries("alice", "uharbor")
	if err != nil {
		t.Fatalf("get entries: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no entries, got %d", len(got))
	}
}

func TestEscrowOwnerEntriesIsolatesOwners(t *testing.T) {
	mgr := newTestManager(t)

	puts := []struct {
		owner, denom string
		id           uint64
	}{
		{"al", "uharbor", 1},
		{"alice", "uatom", 2},
		{"alice", "uharbor", 3},
		{"bob", "uharbor", 4},
	}
	for _, p := range puts {
		if err := mgr.EscrowPutEntries(p.owner, p.denom, []*escrow.VoteTokenEntry{entry(p.id, p.owner, p.denom, 1)}); err != nil {
			t.Fatalf("put entries: %v", err)
		}
	}
	got, err := mgr.EscrowOwnerEntries("alice")
	if err != nil {
		t.Fatalf("owner entries: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("unexpected owner view: %+v", got)
	}
}

func TestEscrowSupplyDefaultsToZero(t *testing.T) {
	mgr := newTestManager(t)

	totals, err := mgr.EscrowSupply("uharbor")
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if totals.PrincipalLocked.Sign() != 0 || totals.VoteTokenIssued.Sign() != 0 {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
	totals.PrincipalLocked = big.NewInt(100)
	totals.VoteTokenIssued = big.NewInt(25)
	if err := mgr.EscrowPutSupply(totals); err != nil {
		t.Fatalf("put supply: %v", err)
	}
	again, err := mgr.EscrowSupply("uharbor")
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if again.VoteTokenIssued.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("unexpected issued %s", again.VoteTokenIssued)
	}
}

func TestSequencesStartAtOne(t *testing.T) {
	mgr := newTestManager(t)
	for want := uint64(1); want <= 3; want++ {
		got, err := mgr.GovernanceNextProposalID()
		if err != nil {
			t.Fatalf("next id: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
	holder, err := mgr.EscrowNextHolderID()
	if err != nil || holder != 1 {
		t.Fatalf("holder sequence shares state: %d %v", holder, err)
	}
}

func TestLastEntryIDTracksSequence(t *testing.T) {
	mgr := newTestManager(t)
	if last, err := mgr.EscrowLastEntryID(); err != nil || last != 0 {
		t.Fatalf("expected 0 before any lock, got %d %v", last, err)
	}
	for i := 0; i < 2; i++ {
		if _, err := mgr.EscrowNextEntryID(); err != nil {
			t.Fatalf("next entry: %v", err)
		}
	}
	if last, err := mgr.EscrowLastEntryID(); err != nil || last != 2 {
		t.Fatalf("expected 2, got %d %v", last, err)
	}
	if next, _ := mgr.EscrowNextEntryID(); next != 3 {
		t.Fatalf("reading the sequence must not advance it, got %d", next)
	}
}

func TestVoterProposals(t *testing.T) {
	mgr := newTestManager(t)
	if err := mgr.GovernancePutVoterProposals("dave", []uint64{3, 4}); err != nil {
		t.Fatalf("put: %v", err)
	}
	ids, err := mgr.GovernanceVoterProposals("dave")
	if err != nil || len(ids) != 2 || ids[1] != 4 {
		t.Fatalf("unexpected ids %v %v", ids, err)
	}
	if err := mgr.GovernancePutVoterProposals("dave", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if ids, err := mgr.GovernanceVoterProposals("dave"); err != nil || len(ids) != 0 {
		t.Fatalf("expected empty list, got %v %v", ids, err)
	}
}

func TestProposalAndVoteRoundTrip(t *testing.T) {
	mgr := newTestManager(t)

	p := &governance.Proposal{
		ID:                  7,
		AppID:               1,
		Status:              governance.ProposalStatusFinalized,
		EligiblePairs:       []uint64{1, 4},
		EmissionCompleted:   true,
		EmissionDistributed: big.NewInt(40),
		RebaseDistributed:   big.NewInt(50),
		TotalVotedWeight:    big.NewInt(100),
		TotalSurplus:        types.NewCoin("ucmst", big.NewInt(9)),
		ClosingHeight:       33,
		RewardWeight:        big.NewInt(1_000),
		RewardEntryID:       12,
	}
	if err := mgr.GovernancePutProposal(p); err != nil {
		t.Fatalf("put proposal: %v", err)
	}
	got, ok, err := mgr.GovernanceProposal(7)
	if err != nil || !ok {
		t.Fatalf("get proposal: %v %v", ok, err)
	}
	if got.ClosingHeight != 33 || !got.IsEligible(4) || got.TotalSurplus.String() != "9ucmst" || got.RewardEntryID != 12 || got.RewardWeight.Int64() != 1_000 {
		t.Fatalf("unexpected proposal: %+v", got)
	}

	for _, voter := range []string{"bob", "alice"} {
		v := &governance.Vote{ProposalID: 7, Voter: voter, Denom: "uharbor", Pairs: []governance.VotePair{{Pair: 1, Weight: big.NewInt(3)}}, OwnWeight: big.NewInt(3), DelegatedWeight: big.NewInt(0)}
		if err := mgr.GovernancePutVote(v); err != nil {
			t.Fatalf("put vote: %v", err)
		}
	}
	votes, err := mgr.GovernanceVotes(7)
	if err != nil {
		t.Fatalf("votes: %v", err)
	}
	if len(votes) != 2 || votes[0].Voter != "alice" {
		t.Fatalf("unexpected votes: %+v", votes)
	}

	if err := mgr.GovernancePutBribePool(7, 1, types.Coins{types.NewCoin("uosmo", big.NewInt(2)), types.NewCoin("ucmst", big.NewInt(1))}); err != nil {
		t.Fatalf("put bribe: %v", err)
	}
	pool, err := mgr.GovernanceBribePool(7, 1)
	if err != nil {
		t.Fatalf("bribe: %v", err)
	}
	if pool.String() != "1ucmst,2uosmo" {
		t.Fatalf("unexpected pool %s", pool)
	}
}

func TestDelegationReadsAsOfHeight(t *testing.T) {
	mgr := newTestManager(t)

	write := func(amount int64, height uint64) {
		d := &delegation.Delegation{Delegator: "alice", Entries: []delegation.Entry{{DelegatedTo: "dave", Denom: "uharbor", Amount: big.NewInt(amount)}}}
		if err := mgr.DelegationPut(d, height); err != nil {
			t.Fatalf("put delegation: %v", err)
		}
	}
	write(10, 5)
	write(30, 9)

	cases := []struct {
		height uint64
		want   int64
		ok     bool
	}{
		{height: 4, ok: false},
		{height: 5, want: 10, ok: true},
		{height: 8, want: 10, ok: true},
		{height: 9, want: 30, ok: true},
		{height: delegation.LatestHeight, want: 30, ok: true},
	}
	for _, tc := range cases {
		d, ok, err := mgr.DelegationAt("alice", tc.height)
		if err != nil {
			t.Fatalf("delegation at %d: %v", tc.height, err)
		}
		if ok != tc.ok {
			t.Fatalf("height %d: expected found=%v", tc.height, tc.ok)
		}
		if ok && d.AmountTo("dave", "uharbor").Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("height %d: expected %d, got %s", tc.height, tc.want, d.AmountTo("dave", "uharbor"))
		}
	}

	versions, err := mgr.DelegationVersions("alice")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 2 || versions[0] != 9 || versions[1] != 5 {
		t.Fatalf("unexpected versions %v", versions)
	}

	info := &delegation.Info{Delegate: "dave", DelegatorFeeRatio: types.MustDecimal("0.1"), ProtocolFeeRatio: types.MustDecimal("0.05")}
	if err := mgr.DelegationPutInfo(info, 3); err != nil {
		t.Fatalf("put info: %v", err)
	}
	gotInfo, ok, err := mgr.DelegationInfoAt("dave", 100)
	if err != nil || !ok {
		t.Fatalf("info: %v %v", ok, err)
	}
	if gotInfo.ProtocolFeeRatio.String() != "0.05" {
		t.Fatalf("unexpected ratio %s", gotInfo.ProtocolFeeRatio)
	}
}

func TestDelegationClaimFlags(t *testing.T) {
	mgr := newTestManager(t)

	claimed, err := mgr.DelegationClaimed("alice", "dave", 3)
	if err != nil || claimed {
		t.Fatalf("expected unclaimed: %v %v", claimed, err)
	}
	if err := mgr.DelegationSetClaimed("alice", "dave", 3); err != nil {
		t.Fatalf("set claimed: %v", err)
	}
	claimed, err = mgr.DelegationClaimed("alice", "dave", 3)
	if err != nil || !claimed {
		t.Fatalf("expected claimed: %v %v", claimed, err)
	}
	other, err := mgr.DelegationClaimed("alice", "erin", 3)
	if err != nil || other {
		t.Fatalf("flag leaked across delegates: %v %v", other, err)
	}
}
