package governance

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	coreerrors "vegov/core/errors"
	"vegov/core/events"
	"vegov/core/host"
	"vegov/core/types"
	"vegov/native/escrow"
	"vegov/native/params"
)

var (
	errNilState   = errors.New("governance: state not configured")
	errNilQuerier = errors.New("governance: host querier not configured")
	errNilPower   = errors.New("governance: voting power source not configured")

	ErrProposalNotFound    = coreerrors.Wrap(coreerrors.ErrNotFound, "governance: proposal not found")
	ErrEmissionNotFound    = coreerrors.Wrap(coreerrors.ErrNotFound, "governance: emission not configured")
	ErrActiveProposal      = coreerrors.Wrap(coreerrors.ErrValidation, "governance: app already has an active proposal")
	ErrNoEligiblePairs     = coreerrors.Wrap(coreerrors.ErrValidation, "governance: app has no eligible pairs")
	ErrVotingClosed        = coreerrors.Wrap(coreerrors.ErrValidation, "governance: proposal is not open for voting")
	ErrVotingOpen          = coreerrors.Wrap(coreerrors.ErrValidation, "governance: voting period has not ended")
	ErrIneligiblePair      = coreerrors.Wrap(coreerrors.ErrValidation, "governance: pair not eligible")
	ErrDuplicatePair       = coreerrors.Wrap(coreerrors.ErrValidation, "governance: duplicate pair")
	ErrEmptyVote           = coreerrors.Wrap(coreerrors.ErrValidation, "governance: at least one pair required")
	ErrRatioMismatch       = coreerrors.Wrap(coreerrors.ErrValidation, "governance: pairs and ratios length mismatch")
	ErrInvalidRatio        = coreerrors.Wrap(coreerrors.ErrValidation, "governance: ratios must be positive and sum to at most 1")
	ErrWrongApp            = coreerrors.Wrap(coreerrors.ErrValidation, "governance: proposal belongs to another app")
	ErrWrongDenom          = coreerrors.Wrap(coreerrors.ErrValidation, "governance: denom is not the app's governance asset")
	ErrZeroVotingPower     = coreerrors.Wrap(coreerrors.ErrValidation, "governance: no voting power")
	ErrAlreadyFinalized    = coreerrors.Wrap(coreerrors.ErrValidation, "governance: emission already finalized")
	ErrFinalizeOutOfOrder  = coreerrors.Wrap(coreerrors.ErrValidation, "governance: a later proposal of the app is already finalized")
	ErrEmissionPending     = coreerrors.Wrap(coreerrors.ErrValidation, "governance: emission not finalized")
	ErrFoundationPaid      = coreerrors.Wrap(coreerrors.ErrValidation, "governance: foundation emission already paid")
	ErrNotWhitelisted      = coreerrors.Wrap(coreerrors.ErrValidation, "governance: bribe asset not whitelisted")
	ErrInvalidEmission     = coreerrors.Wrap(coreerrors.ErrValidation, "governance: emission rate must be in (0, 1]")
	ErrRewardsBelowPaid    = coreerrors.Wrap(coreerrors.ErrValidation, "governance: total rewards below distributed rewards")
	ErrCirculatingNegative = coreerrors.Wrap(coreerrors.ErrArithmetic, "governance: circulating supply would be negative")
	ErrPendingUnderflow    = coreerrors.Wrap(coreerrors.ErrArithmetic, "governance: pending rewards would underflow")
	ErrTallyUnderflow      = coreerrors.Wrap(coreerrors.ErrArithmetic, "governance: pair tally would underflow")
)

type engineState interface {
	params.StoreState
	GovernanceNextProposalID() (uint64, error)
	GovernanceProposal(id uint64) (*Proposal, bool, error)
	GovernancePutProposal(p *Proposal) error
	GovernanceCurrentProposal(appID uint64) (uint64, bool, error)
	GovernanceSetCurrentProposal(appID, id uint64) error
	GovernanceCompletedProposals(appID uint64) ([]uint64, error)
	GovernanceAppendCompleted(appID, id uint64) error
	GovernanceEmission(appID uint64) (*Emission, bool, error)
	GovernancePutEmission(em *Emission) error
	GovernanceVote(proposalID uint64, voter string) (*Vote, bool, error)
	GovernancePutVote(v *Vote) error
	GovernanceVoterProposals(voter string) ([]uint64, error)
	GovernancePutVoterProposals(voter string, ids []uint64) error
	GovernancePairTotal(proposalID, pair uint64) (*big.Int, error)
	GovernancePutPairTotal(proposalID, pair uint64, total *big.Int) error
	GovernanceBribePool(proposalID, pair uint64) (types.Coins, error)
	GovernancePutBribePool(proposalID, pair uint64, pool types.Coins) error
	EscrowSupply(denom string) (*escrow.SupplyTotals, error)
	EscrowLastEntryID() (uint64, error)
}

// PowerSource resolves an account's voting power for a governance denom.
type PowerSource interface {
	VotingPower(owner, denom string) (VotingPower, error)
}

// Engine coordinates the emission proposal lifecycle: raising proposals,
// tallying votes, collecting bribes and finalising the emission split.
type Engine struct {
	state   engineState
	querier host.Querier
	power   PowerSource
	emitter events.Emitter
}

// NewEngine constructs a governance engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetQuerier configures the host query interface.
func (e *Engine) SetQuerier(q host.Querier) { e.querier = q }

// SetPowerSource configures how voting power is resolved.
func (e *Engine) SetPowerSource(p PowerSource) { e.power = p }

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

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.querier == nil {
		return errNilQuerier
	}
	return nil
}

func (e *Engine) global() (*params.GlobalState, error) {
	return params.NewStore(e.state).Global()
}

func (e *Engine) requireAdmin(sender string) (*params.GlobalState, error) {
	global, err := e.global()
	if err != nil {
		return nil, err
	}
	if !global.IsAdmin(sender) {
		return nil, coreerrors.ErrAdminOnly
	}
	return global, nil
}

// Proposal loads a proposal by id.
func (e *Engine) Proposal(id uint64) (*Proposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p, ok, err := e.state.GovernanceProposal(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
	}
	p.ensure()
	return p, nil
}

// ConfigureEmission installs or updates the reward budget of an app. Rewards
// already distributed are kept; the pending budget is the remainder.
func (e *Engine) ConfigureEmission(sender string, funds types.Coins, appID uint64, totalRewards *big.Int, rate types.Decimal) (*Emission, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !funds.IsZero() {
		return nil, coreerrors.ErrFundsNotAllowed
	}
	if _, err := e.requireAdmin(sender); err != nil {
		return nil, err
	}
	if _, _, err := host.GovernanceDenom(e.querier, appID); err != nil {
		return nil, err
	}
	if rate.IsZero() || rate.Cmp(types.OneDecimal()) > 0 {
		return nil, ErrInvalidEmission
	}
	if totalRewards == nil || totalRewards.Sign() < 0 {
		return nil, coreerrors.ErrZeroAmount
	}
	em, ok, err := e.state.GovernanceEmission(appID)
	if err != nil {
		return nil, err
	}
	if !ok {
		em = &Emission{AppID: appID, DistributedRewards: big.NewInt(0)}
	}
	if em.DistributedRewards == nil {
		em.DistributedRewards = big.NewInt(0)
	}
	pending, err := types.SafeSub(totalRewards, em.DistributedRewards)
	if err != nil {
		return nil, ErrRewardsBelowPaid
	}
	em.TotalRewards = new(big.Int).Set(totalRewards)
	em.RewardsPending = pending
	em.EmissionRate = rate
	if err := e.state.GovernancePutEmission(em); err != nil {
		return nil, err
	}
	e.emit(events.EmissionConfigured{AppID: appID, TotalRewards: em.TotalRewards, Pending: em.RewardsPending, Rate: rate.String()})
	return em, nil
}

// RaiseProposal opens a new proposal for appID. Only one proposal per app may
// be open at a time.
func (e *Engine) RaiseProposal(sender string, funds types.Coins, appID uint64, now uint64) (*Proposal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !funds.IsZero() {
		return nil, coreerrors.ErrFundsNotAllowed
	}
	global, err := e.requireAdmin(sender)
	if err != nil {
		return nil, err
	}
	if _, ok, err := e.querier.GetApp(appID); err != nil {
		return nil, err
	} else if !ok {
		return nil, coreerrors.Wrap(coreerrors.ErrValidation, "governance: unknown app")
	}
	pairs, err := e.querier.GetEligiblePairs(appID)
	if err != nil {
		return nil, err
	}
	pairs = sortUnique(pairs)
	if len(pairs) == 0 {
		return nil, ErrNoEligiblePairs
	}
	currentID, ok, err := e.state.GovernanceCurrentProposal(appID)
	if err != nil {
		return nil, err
	}
	if ok {
		current, err := e.Proposal(currentID)
		if err != nil {
			return nil, err
		}
		if current.VotingEnd > now {
			return nil, ErrActiveProposal
		}
	}
	id, err := e.state.GovernanceNextProposalID()
	if err != nil {
		return nil, err
	}
	proposal := &Proposal{
		ID:            id,
		AppID:         appID,
		Status:        ProposalStatusVoting,
		VotingStart:   now,
		VotingEnd:     now + global.VotingPeriodSecs,
		EligiblePairs: pairs,
	}
	proposal.ensure()
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	if err := e.state.GovernanceSetCurrentProposal(appID, id); err != nil {
		return nil, err
	}
	e.emit(events.ProposalRaised{ProposalID: id, AppID: appID, VotingStart: now, VotingEnd: proposal.VotingEnd, Pairs: pairs})
	return proposal, nil
}

// VoteRequest carries a voter's allocation. Ratios[i] is the share of the
// voter's power assigned to Pairs[i].
type VoteRequest struct {
	AppID           uint64
	ProposalID      uint64
	Pairs           []uint64
	Ratios          []types.Decimal
	GovernanceDenom string
}

// Vote records or replaces voter's allocation on an open proposal. A previous
// allocation is retracted from the pair tallies before the new one is applied.
func (e *Engine) Vote(voter string, funds types.Coins, req VoteRequest, now uint64) (*Vote, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.power == nil {
		return nil, errNilPower
	}
	if !funds.IsZero() {
		return nil, coreerrors.ErrFundsNotAllowed
	}
	proposal, err := e.Proposal(req.ProposalID)
	if err != nil {
		return nil, err
	}
	if proposal.AppID != req.AppID {
		return nil, ErrWrongApp
	}
	if !proposal.VotingOpen(now) {
		return nil, ErrVotingClosed
	}
	if err := validateAllocation(proposal, req.Pairs, req.Ratios); err != nil {
		return nil, err
	}
	_, denom, err := host.GovernanceDenom(e.querier, req.AppID)
	if err != nil {
		return nil, err
	}
	if req.GovernanceDenom != denom {
		return nil, ErrWrongDenom
	}
	power, err := e.power.VotingPower(voter, denom)
	if err != nil {
		return nil, err
	}
	total := power.Total()
	if total.Sign() == 0 {
		return nil, ErrZeroVotingPower
	}

	prior, replaced, err := e.state.GovernanceVote(proposal.ID, voter)
	if err != nil {
		return nil, err
	}
	if replaced {
		for _, vp := range prior.Pairs {
			if err := e.addPairTotal(proposal.ID, vp.Pair, vp.Weight, false); err != nil {
				return nil, err
			}
		}
		remaining, err := types.SafeSub(proposal.TotalVotedWeight, prior.AllocatedWeight())
		if err != nil {
			return nil, ErrTallyUnderflow
		}
		proposal.TotalVotedWeight = remaining
	}

	vote := &Vote{
		ProposalID:      proposal.ID,
		Voter:           voter,
		Denom:           denom,
		Pairs:           make([]VotePair, 0, len(req.Pairs)),
		OwnWeight:       power.Own(),
		DelegatedWeight: new(big.Int).Sub(total, power.Own()),
	}
	for i, pair := range req.Pairs {
		weight, err := req.Ratios[i].MulInt(total)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", coreerrors.ErrArithmetic, err)
		}
		if err := e.addPairTotal(proposal.ID, pair, weight, true); err != nil {
			return nil, err
		}
		proposal.TotalVotedWeight.Add(proposal.TotalVotedWeight, weight)
		vote.Pairs = append(vote.Pairs, VotePair{Pair: pair, Weight: weight})
	}
	if err := e.state.GovernancePutVote(vote); err != nil {
		return nil, err
	}
	if !replaced {
		ids, err := e.state.GovernanceVoterProposals(voter)
		if err != nil {
			return nil, err
		}
		if err := e.state.GovernancePutVoterProposals(voter, append(ids, proposal.ID)); err != nil {
			return nil, err
		}
	}
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	e.emit(events.VoteCast{ProposalID: proposal.ID, Voter: voter, TotalWeight: vote.AllocatedWeight(), Pairs: len(vote.Pairs), Replaced: replaced})
	return vote, nil
}

func validateAllocation(p *Proposal, pairs []uint64, ratios []types.Decimal) error {
	if len(pairs) == 0 {
		return ErrEmptyVote
	}
	if len(pairs) != len(ratios) {
		return ErrRatioMismatch
	}
	seen := make(map[uint64]struct{}, len(pairs))
	sum := types.ZeroDecimal()
	for i, pair := range pairs {
		if _, dup := seen[pair]; dup {
			return ErrDuplicatePair
		}
		seen[pair] = struct{}{}
		if !p.IsEligible(pair) {
			return fmt.Errorf("%w: %d", ErrIneligiblePair, pair)
		}
		if ratios[i].IsZero() {
			return ErrInvalidRatio
		}
		next, err := sum.Add(ratios[i])
		if err != nil {
			return ErrInvalidRatio
		}
		sum = next
	}
	if sum.Cmp(types.OneDecimal()) > 0 {
		return ErrInvalidRatio
	}
	return nil
}

func (e *Engine) addPairTotal(proposalID, pair uint64, amount *big.Int, increase bool) error {
	current, err := e.state.GovernancePairTotal(proposalID, pair)
	if err != nil {
		return err
	}
	if increase {
		return e.state.GovernancePutPairTotal(proposalID, pair, new(big.Int).Add(current, amount))
	}
	next, err := types.SafeSub(current, amount)
	if err != nil {
		return ErrTallyUnderflow
	}
	return e.state.GovernancePutPairTotal(proposalID, pair, next)
}

// DepositBribe adds the attached funds to the bribe pool of (proposal, pair).
// Every denomination must be whitelisted by the host.
func (e *Engine) DepositBribe(sponsor string, funds types.Coins, proposalID, pair uint64, now uint64) (types.Coins, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if funds.HasNegative() {
		return nil, coreerrors.ErrNegativeAmount
	}
	deposit := funds.Normalize()
	if len(funds) == 0 {
		return nil, coreerrors.ErrEmptyFunds
	}
	if len(deposit) == 0 {
		return nil, coreerrors.ErrZeroAmount
	}
	proposal, err := e.Proposal(proposalID)
	if err != nil {
		return nil, err
	}
	if !proposal.VotingOpen(now) {
		return nil, ErrVotingClosed
	}
	if !proposal.IsEligible(pair) {
		return nil, fmt.Errorf("%w: %d", ErrIneligiblePair, pair)
	}
	for _, coin := range deposit {
		ok, err := e.querier.IsAssetWhitelisted(coin.Denom)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotWhitelisted, coin.Denom)
		}
	}
	pool, err := e.state.GovernanceBribePool(proposalID, pair)
	if err != nil {
		return nil, err
	}
	pool = pool.Add(deposit...)
	if err := e.state.GovernancePutBribePool(proposalID, pair, pool); err != nil {
		return nil, err
	}
	e.emit(events.BribeDeposited{ProposalID: proposalID, Pair: pair, Sponsor: sponsor, Amount: deposit})
	return pool, nil
}

// FinalizeEmission closes a proposal whose voting period has ended and
// computes its emission split:
//
//	circulating = totalSupply - vested - principalLocked
//	locked%     = voteTokenIssued / (voteTokenIssued + circulating)
//	raw         = rewardsPending * emissionRate
//	emission    = raw * (1 - locked%)
//	foundation  = emission * foundationRatio
//	rebase      = raw * locked%
//
// The rebase share is taken from the raw figure, not the discounted emission.
func (e *Engine) FinalizeEmission(proposalID uint64, now, height uint64) (*EmissionOutcome, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	proposal, err := e.Proposal(proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.EmissionCompleted {
		return nil, ErrAlreadyFinalized
	}
	if now < proposal.VotingEnd {
		return nil, ErrVotingOpen
	}
	// Claim cursors only move forward, so finalisation must follow id order.
	completed, err := e.state.GovernanceCompletedProposals(proposal.AppID)
	if err != nil {
		return nil, err
	}
	if n := len(completed); n > 0 && completed[n-1] > proposal.ID {
		return nil, ErrFinalizeOutOfOrder
	}
	global, err := e.global()
	if err != nil {
		return nil, err
	}
	app, denom, err := host.GovernanceDenom(e.querier, proposal.AppID)
	if err != nil {
		return nil, err
	}
	em, ok, err := e.state.GovernanceEmission(proposal.AppID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEmissionNotFound
	}

	totalSupply, err := e.querier.GetTotalSupply(proposal.AppID, app.GovernanceAssetID)
	if err != nil {
		return nil, err
	}
	vested, err := e.querier.GetVestedAmount(denom)
	if err != nil {
		return nil, err
	}
	supply, err := e.state.EscrowSupply(denom)
	if err != nil {
		return nil, err
	}
	circulating, err := types.SafeSub(totalSupply, vested)
	if err == nil {
		circulating, err = types.SafeSub(circulating, supply.PrincipalLocked)
	}
	if err != nil {
		return nil, ErrCirculatingNegative
	}
	lockedPct := types.ZeroDecimal()
	if denominator := new(big.Int).Add(supply.VoteTokenIssued, circulating); denominator.Sign() > 0 {
		lockedPct, err = types.DecimalFromRatio(supply.VoteTokenIssued, denominator)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", coreerrors.ErrArithmetic, err)
		}
	}
	unlockedPct, err := types.OneDecimal().Sub(lockedPct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrArithmetic, err)
	}
	raw, err := em.EmissionRate.MulInt(em.RewardsPending)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrArithmetic, err)
	}
	emission, err := unlockedPct.MulInt(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrArithmetic, err)
	}
	foundation, err := global.FoundationRatio.MulInt(emission)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrArithmetic, err)
	}
	rebase, err := lockedPct.MulInt(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrArithmetic, err)
	}
	pending, err := types.SafeSub(em.RewardsPending, emission)
	if err != nil {
		return nil, ErrPendingUnderflow
	}
	em.RewardsPending = pending
	em.DistributedRewards = new(big.Int).Add(em.DistributedRewards, emission)
	if err := e.state.GovernancePutEmission(em); err != nil {
		return nil, err
	}

	pairEmission := new(big.Int).Sub(emission, foundation)
	allocations, dust, err := e.allocatePairs(proposal, pairEmission)
	if err != nil {
		return nil, err
	}

	lastEntry, err := e.state.EscrowLastEntryID()
	if err != nil {
		return nil, err
	}

	surplus := types.NewCoin("", nil)
	if global.SurplusAssetID != 0 {
		surplus, err = e.querier.GetSurplusReward(proposal.AppID, global.SurplusAssetID)
		if err != nil {
			return nil, err
		}
		surplus = surplus.Clone()
	}

	proposal.Status = ProposalStatusFinalized
	proposal.EmissionCompleted = true
	proposal.RebaseCompleted = true
	proposal.EmissionDistributed = pairEmission
	proposal.RebaseDistributed = rebase
	proposal.FoundationDistributed = foundation
	proposal.TotalSurplus = surplus
	proposal.ClosingHeight = height
	proposal.RewardWeight = new(big.Int).Set(supply.VoteTokenIssued)
	proposal.RewardEntryID = lastEntry
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	if err := e.state.GovernanceAppendCompleted(proposal.AppID, proposal.ID); err != nil {
		return nil, err
	}
	e.emit(events.EmissionFinalized{
		ProposalID:    proposal.ID,
		AppID:         proposal.AppID,
		Emission:      emission,
		Rebase:        rebase,
		Foundation:    foundation,
		Surplus:       surplus,
		ClosingHeight: height,
	})
	return &EmissionOutcome{
		Proposal:    proposal,
		Denom:       denom,
		Emission:    emission,
		Rebase:      rebase,
		Foundation:  foundation,
		Allocations: allocations,
		Surplus:     surplus,
		Dust:        dust,
	}, nil
}

func (e *Engine) allocatePairs(p *Proposal, amount *big.Int) ([]PairAllocation, *big.Int, error) {
	dust := new(big.Int).Set(amount)
	if amount.Sign() == 0 || p.TotalVotedWeight.Sign() == 0 {
		return nil, dust, nil
	}
	out := make([]PairAllocation, 0, len(p.EligiblePairs))
	for _, pair := range p.EligiblePairs {
		total, err := e.state.GovernancePairTotal(p.ID, pair)
		if err != nil {
			return nil, nil, err
		}
		if total.Sign() == 0 {
			continue
		}
		share, err := types.MulDivFloor(total, amount, p.TotalVotedWeight)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", coreerrors.ErrArithmetic, err)
		}
		if share.Sign() == 0 {
			continue
		}
		dust.Sub(dust, share)
		out = append(out, PairAllocation{Pair: pair, Amount: share})
	}
	return out, dust, nil
}

// FinalizeFoundation releases the foundation share of a finalised proposal.
// The amount is split evenly across the foundation addresses; the remainder of
// the division goes to the first address.
func (e *Engine) FinalizeFoundation(funds types.Coins, proposalID uint64) (*FoundationOutcome, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !funds.IsZero() {
		return nil, coreerrors.ErrFundsNotAllowed
	}
	proposal, err := e.Proposal(proposalID)
	if err != nil {
		return nil, err
	}
	if !proposal.EmissionCompleted {
		return nil, ErrEmissionPending
	}
	if proposal.FoundationEmissionCompleted {
		return nil, ErrFoundationPaid
	}
	global, err := e.global()
	if err != nil {
		return nil, err
	}
	_, denom, err := host.GovernanceDenom(e.querier, proposal.AppID)
	if err != nil {
		return nil, err
	}
	payouts := splitEvenly(denom, proposal.FoundationDistributed, global.FoundationAddresses)
	proposal.FoundationEmissionCompleted = true
	if err := e.state.GovernancePutProposal(proposal); err != nil {
		return nil, err
	}
	e.emit(events.FoundationFinalized{ProposalID: proposal.ID, Amount: proposal.FoundationDistributed, Recipients: len(payouts)})
	return &FoundationOutcome{Proposal: proposal, Payouts: payouts}, nil
}

func splitEvenly(denom string, amount *big.Int, recipients []string) []FoundationPayout {
	if len(recipients) == 0 || amount == nil || amount.Sign() == 0 {
		return nil
	}
	n := big.NewInt(int64(len(recipients)))
	share, rem := new(big.Int).QuoRem(amount, n, new(big.Int))
	out := make([]FoundationPayout, 0, len(recipients))
	for i, addr := range recipients {
		amt := new(big.Int).Set(share)
		if i == 0 {
			amt.Add(amt, rem)
		}
		if amt.Sign() == 0 {
			continue
		}
		out = append(out, FoundationPayout{Recipient: addr, Amount: types.NewCoin(denom, amt)})
	}
	return out
}

// CompletedProposals lists the finalised proposal ids of an app in order.
func (e *Engine) CompletedProposals(appID uint64) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.GovernanceCompletedProposals(appID)
}

func sortUnique(in []uint64) []uint64 {
	out := append([]uint64(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
