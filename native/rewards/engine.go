package rewards

import (
	"errors"
	"math/big"
	"sort"

	coreerrors "vegov/core/errors"
	"vegov/core/events"
	"vegov/core/host"
	"vegov/core/types"
	"vegov/native/escrow"
	"vegov/native/governance"
)

var (
	errNilState   = errors.New("rewards: state not configured")
	errNilQuerier = errors.New("rewards: host querier not configured")
	errNilLocker  = errors.New("rewards: escrow locker not configured")
)

type engineState interface {
	BribeState
	GovernanceProposal(id uint64) (*governance.Proposal, bool, error)
	GovernanceCompletedProposals(appID uint64) ([]uint64, error)
	GovernanceVote(proposalID uint64, voter string) (*governance.Vote, bool, error)
	GovernancePutVote(v *governance.Vote) error
	RewardsClaimCursor(appID uint64, claimant string) (uint64, bool, error)
	RewardsSetClaimCursor(appID uint64, claimant string, proposalID uint64) error
}

// Locker exposes the claimant's escrow entries and re-locks rebase rewards
// into them.
type Locker interface {
	LockFor(owner string, principal types.Coin, tier uint8, now uint64) (*escrow.VoteTokenEntry, error)
	EntriesByDenom(owner, denom string) ([]*escrow.VoteTokenEntry, error)
}

// ClaimOutcome summarises one claim. Payout is what the host transfers to the
// claimant; Rebase was re-locked instead of paid.
type ClaimOutcome struct {
	AppID     uint64
	Claimant  string
	Cursor    uint64
	Proposals []uint64
	Bribe     types.Coins
	Surplus   types.Coins
	Rebase    types.Coins
	Payout    types.Coins
}

// Engine computes bribe, rebase and surplus rewards for finalised proposals.
type Engine struct {
	state   engineState
	querier host.Querier
	locker  Locker
	emitter events.Emitter
}

// NewEngine constructs a rewards engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetQuerier configures the host query interface.
func (e *Engine) SetQuerier(q host.Querier) { e.querier = q }

// SetLocker configures the escrow used for rebase compounding.
func (e *Engine) SetLocker(l Locker) { e.locker = l }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// Cursor returns the claimant's high-water mark for appID.
func (e *Engine) Cursor(appID uint64, claimant string) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	cursor, _, err := e.state.RewardsClaimCursor(appID, claimant)
	return cursor, err
}

// ClaimRewards attributes every proposal finalised after the claimant's cursor
// exactly once. Bribes and surplus are returned as the payout; rebase is
// re-locked at the tier that earned it. With nothing new to attribute the
// outcome is empty and no state changes.
func (e *Engine) ClaimRewards(claimant string, funds types.Coins, appID uint64, now uint64) (*ClaimOutcome, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.querier == nil {
		return nil, errNilQuerier
	}
	if e.locker == nil {
		return nil, errNilLocker
	}
	if !funds.IsZero() {
		return nil, coreerrors.ErrFundsNotAllowed
	}
	_, denom, err := host.GovernanceDenom(e.querier, appID)
	if err != nil {
		return nil, err
	}
	cursor, _, err := e.state.RewardsClaimCursor(appID, claimant)
	if err != nil {
		return nil, err
	}
	completed, err := e.state.GovernanceCompletedProposals(appID)
	if err != nil {
		return nil, err
	}
	targets := make([]uint64, 0, len(completed))
	for _, id := range completed {
		if id > cursor {
			targets = append(targets, id)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	outcome := &ClaimOutcome{
		AppID:    appID,
		Claimant: claimant,
		Cursor:   cursor,
		Bribe:    types.Coins{},
		Surplus:  types.Coins{},
		Rebase:   types.Coins{},
		Payout:   types.Coins{},
	}
	if len(targets) == 0 {
		return outcome, nil
	}

	// Entries are read before any rebase is re-locked. Each proposal only
	// counts the entries inside its reward snapshot.
	entries, err := e.locker.EntriesByDenom(claimant, denom)
	if err != nil {
		return nil, err
	}
	rebaseByTier := make(map[uint8]*big.Int)

	for _, id := range targets {
		proposal, ok, err := e.state.GovernanceProposal(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, governance.ErrProposalNotFound
		}
		bribe, err := e.claimBribe(proposal.ID, claimant)
		if err != nil {
			return nil, err
		}
		outcome.Bribe = outcome.Bribe.Add(bribe...)

		tiers, eligible := EligibleWeight(proposal, entries)
		for tier, locked := range tiers {
			share, err := RebaseShare(locked, proposal.RewardWeight, proposal.RebaseDistributed)
			if err != nil {
				return nil, err
			}
			if cur, ok := rebaseByTier[tier]; ok {
				cur.Add(cur, share)
			} else {
				rebaseByTier[tier] = share
			}
		}

		if !proposal.TotalSurplus.IsZero() {
			share, err := SurplusShare(eligible, proposal.RewardWeight, proposal.TotalSurplus.Amount)
			if err != nil {
				return nil, err
			}
			outcome.Surplus = outcome.Surplus.Add(types.NewCoin(proposal.TotalSurplus.Denom, share))
		}
		outcome.Proposals = append(outcome.Proposals, id)
		outcome.Cursor = id
	}

	order := make([]uint8, 0, len(rebaseByTier))
	for tier := range rebaseByTier {
		order = append(order, tier)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	for _, tier := range order {
		amount := rebaseByTier[tier]
		if amount.Sign() == 0 {
			continue
		}
		coin := types.NewCoin(denom, amount)
		if _, err := e.locker.LockFor(claimant, coin, tier, now); err != nil {
			return nil, err
		}
		outcome.Rebase = outcome.Rebase.Add(coin)
	}

	if err := e.state.RewardsSetClaimCursor(appID, claimant, outcome.Cursor); err != nil {
		return nil, err
	}
	outcome.Payout = outcome.Bribe.Add(outcome.Surplus...)
	e.emit(events.RewardsClaimed{
		AppID:     appID,
		Claimant:  claimant,
		Cursor:    outcome.Cursor,
		Proposals: len(outcome.Proposals),
		Bribe:     outcome.Bribe,
		Surplus:   outcome.Surplus,
		Rebase:    outcome.Rebase,
	})
	return outcome, nil
}

// EligibleWeight sums, per tier and in total, the vote tokens of entries that
// existed when the proposal closed.
func EligibleWeight(p *governance.Proposal, entries []*escrow.VoteTokenEntry) (map[uint8]*big.Int, *big.Int) {
	tiers := make(map[uint8]*big.Int)
	total := big.NewInt(0)
	for _, entry := range entries {
		if entry == nil || entry.VoteToken.Amount == nil || !p.EarnsRewards(entry.ID, entry.StartTime) {
			continue
		}
		cur, ok := tiers[entry.Tier]
		if !ok {
			cur = big.NewInt(0)
			tiers[entry.Tier] = cur
		}
		cur.Add(cur, entry.VoteToken.Amount)
		total.Add(total, entry.VoteToken.Amount)
	}
	return tiers, total
}

// claimBribe returns the claimant's own share of their vote's bribes and marks
// the vote claimed. The delegated share is left for ClaimDelegated.
func (e *Engine) claimBribe(proposalID uint64, claimant string) (types.Coins, error) {
	vote, ok, err := e.state.GovernanceVote(proposalID, claimant)
	if err != nil {
		return nil, err
	}
	if !ok || vote.BribeClaimed {
		return types.Coins{}, nil
	}
	entitlement, err := BribeEntitlement(e.state, vote)
	if err != nil {
		return nil, err
	}
	own, _, err := SplitEntitlement(entitlement, vote)
	if err != nil {
		return nil, err
	}
	vote.BribeClaimed = true
	if err := e.state.GovernancePutVote(vote); err != nil {
		return nil, err
	}
	return own, nil
}
