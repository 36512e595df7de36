package delegation

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	coreerrors "vegov/core/errors"
	"vegov/core/events"
	"vegov/core/types"
	"vegov/native/escrow"
	"vegov/native/governance"
	"vegov/native/params"
	"vegov/native/rewards"
)

var (
	errNilState = errors.New("delegation: state not configured")

	ErrNoDelegation       = coreerrors.Wrap(coreerrors.ErrNotFound, "delegation: no delegation to delegate")
	ErrDelegateNotFound   = coreerrors.Wrap(coreerrors.ErrNotFound, "delegation: delegate not registered")
	ErrSelfDelegation     = coreerrors.Wrap(coreerrors.ErrValidation, "delegation: cannot delegate to self")
	ErrInvalidFeeRatio    = coreerrors.Wrap(coreerrors.ErrValidation, "delegation: fee ratios must be below 1")
	ErrInsufficientWeight = coreerrors.Wrap(coreerrors.ErrValidation, "delegation: amount exceeds undelegated weight")
	ErrAlreadyClaimed     = coreerrors.Wrap(coreerrors.ErrValidation, "delegation: proposal already claimed")
	ErrNothingToClaim     = coreerrors.Wrap(coreerrors.ErrValidation, "delegation: nothing to claim")
	ErrProposalOpen       = coreerrors.Wrap(coreerrors.ErrValidation, "delegation: proposal not finalized")
	ErrProposalClosing    = coreerrors.Wrap(coreerrors.ErrValidation, "delegation: delegate has a closed proposal awaiting finalisation")
	ErrStatsUnderflow     = coreerrors.Wrap(coreerrors.ErrArithmetic, "delegation: delegate totals would underflow")
)

type engineState interface {
	params.StoreState
	rewards.BribeState
	EscrowEntries(owner, denom string) ([]*escrow.VoteTokenEntry, error)
	GovernanceProposal(id uint64) (*governance.Proposal, bool, error)
	GovernanceCompletedProposals(appID uint64) ([]uint64, error)
	GovernanceVote(proposalID uint64, voter string) (*governance.Vote, bool, error)
	GovernanceVoterProposals(voter string) ([]uint64, error)
	GovernancePutVoterProposals(voter string, ids []uint64) error
	DelegationAt(delegator string, height uint64) (*Delegation, bool, error)
	DelegationPut(d *Delegation, height uint64) error
	DelegationStatsAt(delegate, denom string, height uint64) (*Stats, bool, error)
	DelegationPutStats(s *Stats, height uint64) error
	DelegationInfoAt(delegate string, height uint64) (*Info, bool, error)
	DelegationPutInfo(info *Info, height uint64) error
	DelegationClaims(delegator, delegate string) (*Claims, error)
	DelegationPutClaims(c *Claims) error
	DelegationClaimed(delegator, delegate string, proposalID uint64) (bool, error)
	DelegationSetClaimed(delegator, delegate string, proposalID uint64) error
}

// Engine manages delegated voting weight and splits delegated bribe rewards
// between delegators, delegates and the protocol. Every record is written at
// the operation's height so claims can read the ratios that applied when a
// proposal closed.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs a delegation engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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

// RegisterDelegate publishes or updates the fee terms of delegate.
func (e *Engine) RegisterDelegate(delegate string, funds types.Coins, delegatorFee, protocolFee types.Decimal, now, height uint64) (*Info, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !funds.IsZero() {
		return nil, coreerrors.ErrFundsNotAllowed
	}
	one := types.OneDecimal()
	if delegatorFee.Cmp(one) >= 0 || protocolFee.Cmp(one) >= 0 {
		return nil, ErrInvalidFeeRatio
	}
	if err := e.ensureSettled(delegate, now); err != nil {
		return nil, err
	}
	info := &Info{Delegate: delegate, DelegatorFeeRatio: delegatorFee, ProtocolFeeRatio: protocolFee}
	if err := e.state.DelegationPutInfo(info, height); err != nil {
		return nil, err
	}
	e.emit(events.DelegateRegistered{
		Delegate:          delegate,
		DelegatorFeeRatio: delegatorFee.String(),
		ProtocolFeeRatio:  protocolFee.String(),
		Height:            height,
	})
	return info, nil
}

// Delegate assigns amount of the delegator's vote-token weight in denom to a
// registered delegate. It is refused while a proposal the delegate voted on
// has closed but is not yet finalised.
func (e *Engine) Delegate(delegator string, funds types.Coins, delegate, denom string, amount *big.Int, now, height uint64) (*Delegation, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !funds.IsZero() {
		return nil, coreerrors.ErrFundsNotAllowed
	}
	delegate = strings.TrimSpace(delegate)
	if delegate == "" || delegate == delegator {
		return nil, ErrSelfDelegation
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, coreerrors.ErrZeroAmount
	}
	if _, ok, err := e.state.DelegationInfoAt(delegate, LatestHeight); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrDelegateNotFound
	}
	if err := e.ensureSettled(delegate, now); err != nil {
		return nil, err
	}
	entries, err := e.state.EscrowEntries(delegator, denom)
	if err != nil {
		return nil, err
	}
	d, err := e.latestDelegation(delegator)
	if err != nil {
		return nil, err
	}
	available := new(big.Int).Sub(escrow.SumVoteTokens(entries), d.Total(denom))
	if available.Cmp(amount) < 0 {
		return nil, ErrInsufficientWeight
	}
	merged := false
	for i := range d.Entries {
		if d.Entries[i].DelegatedTo == delegate && d.Entries[i].Denom == denom {
			d.Entries[i].Amount = new(big.Int).Add(d.Entries[i].Amount, amount)
			merged = true
			break
		}
	}
	if !merged {
		d.Entries = append(d.Entries, Entry{DelegatedTo: delegate, Denom: denom, Amount: new(big.Int).Set(amount)})
	}
	if err := e.state.DelegationPut(d, height); err != nil {
		return nil, err
	}
	stats, err := e.adjustStats(delegate, denom, amount, true, height)
	if err != nil {
		return nil, err
	}
	e.emit(events.Delegated{Delegator: delegator, Delegate: delegate, Amount: amount, TotalDelegated: stats.TotalDelegated, Height: height})
	return d, nil
}

// Undelegate withdraws every weight the delegator assigned to delegate, under
// the same finalisation rule as Delegate.
func (e *Engine) Undelegate(delegator string, funds types.Coins, delegate string, now, height uint64) (*Delegation, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !funds.IsZero() {
		return nil, coreerrors.ErrFundsNotAllowed
	}
	d, err := e.latestDelegation(delegator)
	if err != nil {
		return nil, err
	}
	if !d.HasDelegate(delegate) {
		return nil, ErrNoDelegation
	}
	if err := e.ensureSettled(delegate, now); err != nil {
		return nil, err
	}
	kept := make([]Entry, 0, len(d.Entries))
	removed := big.NewInt(0)
	for _, entry := range d.Entries {
		if entry.DelegatedTo != delegate {
			kept = append(kept, entry)
			continue
		}
		stats, err := e.adjustStats(delegate, entry.Denom, entry.Amount, false, height)
		if err != nil {
			return nil, err
		}
		removed.Add(removed, entry.Amount)
		e.emit(events.Delegated{Delegator: delegator, Delegate: delegate, Amount: entry.Amount, TotalDelegated: stats.TotalDelegated, Height: height, Removed: true})
	}
	d.Entries = kept
	if err := e.state.DelegationPut(d, height); err != nil {
		return nil, err
	}
	return d, nil
}

// ensureSettled fails when a proposal the delegate voted on has closed at now
// but is not finalised yet. Claims read delegation records at the finalisation
// height, so changes in that window would move the split after the fact.
// Finalised proposals are dropped from the delegate's list as they are seen.
func (e *Engine) ensureSettled(delegate string, now uint64) error {
	ids, err := e.state.GovernanceVoterProposals(delegate)
	if err != nil || len(ids) == 0 {
		return err
	}
	pending := make([]uint64, 0, len(ids))
	for _, id := range ids {
		p, ok, err := e.state.GovernanceProposal(id)
		if err != nil {
			return err
		}
		if !ok || p.EmissionCompleted {
			continue
		}
		if now >= p.VotingEnd {
			return fmt.Errorf("%w: proposal %d", ErrProposalClosing, id)
		}
		pending = append(pending, id)
	}
	if len(pending) == len(ids) {
		return nil
	}
	return e.state.GovernancePutVoterProposals(delegate, pending)
}

func (e *Engine) latestDelegation(delegator string) (*Delegation, error) {
	d, ok, err := e.state.DelegationAt(delegator, LatestHeight)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Delegation{Delegator: delegator}, nil
	}
	return d, nil
}

func (e *Engine) adjustStats(delegate, denom string, amount *big.Int, increase bool, height uint64) (*Stats, error) {
	stats, ok, err := e.state.DelegationStatsAt(delegate, denom, LatestHeight)
	if err != nil {
		return nil, err
	}
	if !ok {
		stats = &Stats{Delegate: delegate, Denom: denom, TotalDelegated: big.NewInt(0)}
	}
	if increase {
		stats.TotalDelegated = new(big.Int).Add(stats.TotalDelegated, amount)
	} else {
		next, err := types.SafeSub(stats.TotalDelegated, amount)
		if err != nil {
			return nil, ErrStatsUnderflow
		}
		stats.TotalDelegated = next
	}
	if err := e.state.DelegationPutStats(stats, height); err != nil {
		return nil, err
	}
	return stats, nil
}

// DelegatedOut implements escrow.DelegationGuard.
func (e *Engine) DelegatedOut(owner, denom string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	d, err := e.latestDelegation(owner)
	if err != nil {
		return nil, err
	}
	return d.Total(denom), nil
}

// VotingPower implements governance.PowerSource.
func (e *Engine) VotingPower(owner, denom string) (governance.VotingPower, error) {
	if e == nil || e.state == nil {
		return governance.VotingPower{}, errNilState
	}
	entries, err := e.state.EscrowEntries(owner, denom)
	if err != nil {
		return governance.VotingPower{}, err
	}
	out, err := e.DelegatedOut(owner, denom)
	if err != nil {
		return governance.VotingPower{}, err
	}
	in := big.NewInt(0)
	stats, ok, err := e.state.DelegationStatsAt(owner, denom, LatestHeight)
	if err != nil {
		return governance.VotingPower{}, err
	}
	if ok && stats.TotalDelegated != nil {
		in.Set(stats.TotalDelegated)
	}
	return governance.VotingPower{Locked: escrow.SumVoteTokens(entries), DelegatedOut: out, DelegatedIn: in}, nil
}

// ClaimDelegated pays the delegator's share of the bribes delegate earned with
// delegated weight. proposalID 0 claims every finalised proposal of appID not
// yet claimed. Ratios and amounts are read as of each proposal's closing
// height.
func (e *Engine) ClaimDelegated(delegator string, funds types.Coins, delegate string, appID, proposalID uint64) (*ClaimOutcome, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !funds.IsZero() {
		return nil, coreerrors.ErrFundsNotAllowed
	}
	current, err := e.latestDelegation(delegator)
	if err != nil {
		return nil, err
	}
	var targets []uint64
	if proposalID != 0 {
		claimed, err := e.state.DelegationClaimed(delegator, delegate, proposalID)
		if err != nil {
			return nil, err
		}
		if claimed {
			return nil, ErrAlreadyClaimed
		}
		targets = []uint64{proposalID}
	} else {
		completed, err := e.state.GovernanceCompletedProposals(appID)
		if err != nil {
			return nil, err
		}
		for _, id := range completed {
			claimed, err := e.state.DelegationClaimed(delegator, delegate, id)
			if err != nil {
				return nil, err
			}
			if !claimed {
				targets = append(targets, id)
			}
		}
	}

	global, err := params.NewStore(e.state).Global()
	if err != nil {
		return nil, err
	}
	outcome := &ClaimOutcome{
		Delegator:   delegator,
		Delegate:    delegate,
		User:        types.Coins{},
		DelegateFee: types.Coins{},
		Protocol:    types.Coins{},
	}
	if len(global.FoundationAddresses) > 0 {
		outcome.ProtocolRecipient = global.FoundationAddresses[0]
	}
	related := current.HasDelegate(delegate)
	for _, id := range targets {
		proposal, ok, err := e.state.GovernanceProposal(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %d", governance.ErrProposalNotFound, id)
		}
		if proposal.AppID != appID {
			return nil, governance.ErrWrongApp
		}
		if !proposal.EmissionCompleted {
			return nil, ErrProposalOpen
		}
		user, fee, protocol, hadWeight, err := e.claimProposal(delegator, delegate, proposal)
		if err != nil {
			return nil, err
		}
		related = related || hadWeight
		if user.IsZero() && fee.IsZero() && protocol.IsZero() {
			continue
		}
		outcome.User = outcome.User.Add(user...)
		outcome.DelegateFee = outcome.DelegateFee.Add(fee...)
		outcome.Protocol = outcome.Protocol.Add(protocol...)
		outcome.Proposals = append(outcome.Proposals, id)
		if err := e.state.DelegationSetClaimed(delegator, delegate, id); err != nil {
			return nil, err
		}
	}
	if !related {
		return nil, ErrNoDelegation
	}
	if len(outcome.Proposals) == 0 {
		return nil, ErrNothingToClaim
	}
	claims, err := e.state.DelegationClaims(delegator, delegate)
	if err != nil {
		return nil, err
	}
	for _, id := range outcome.Proposals {
		claims.Add(id)
	}
	if err := e.state.DelegationPutClaims(claims); err != nil {
		return nil, err
	}
	e.emit(events.DelegatedClaimed{
		Delegator:   delegator,
		Delegate:    delegate,
		Proposals:   outcome.Proposals,
		User:        outcome.User,
		DelegateFee: outcome.DelegateFee,
		Protocol:    outcome.Protocol,
	})
	return outcome, nil
}

// claimProposal splits the delegated part of delegate's bribe entitlement on
// one proposal:
//
//	delegated = entitlement × delegatedWeight / voteWeight
//	gross     = delegated × amount / totalDelegated   (as of closing height)
//	protocol  = gross × protocolFeeRatio
//	fee       = (gross - protocol) × delegatorFeeRatio
//	user      = gross - protocol - fee
func (e *Engine) claimProposal(delegator, delegate string, p *governance.Proposal) (user, fee, protocol types.Coins, hadWeight bool, err error) {
	vote, ok, err := e.state.GovernanceVote(p.ID, delegate)
	if err != nil || !ok {
		return nil, nil, nil, false, err
	}
	height := p.ClosingHeight
	d, ok, err := e.state.DelegationAt(delegator, height)
	if err != nil || !ok {
		return nil, nil, nil, false, err
	}
	amount := d.AmountTo(delegate, vote.Denom)
	if amount.Sign() == 0 {
		return nil, nil, nil, false, nil
	}
	stats, ok, err := e.state.DelegationStatsAt(delegate, vote.Denom, height)
	if err != nil {
		return nil, nil, nil, true, err
	}
	if !ok || stats.TotalDelegated.Sign() == 0 {
		return nil, nil, nil, true, nil
	}
	info, ok, err := e.state.DelegationInfoAt(delegate, height)
	if err != nil {
		return nil, nil, nil, true, err
	}
	if !ok {
		info = &Info{Delegate: delegate}
	}
	entitlement, err := rewards.BribeEntitlement(e.state, vote)
	if err != nil {
		return nil, nil, nil, true, err
	}
	_, delegated, err := rewards.SplitEntitlement(entitlement, vote)
	if err != nil {
		return nil, nil, nil, true, err
	}
	gross, err := rewards.ScaleCoins(delegated, amount, stats.TotalDelegated)
	if err != nil {
		return nil, nil, nil, true, err
	}
	protocol, err = rewards.MulCoins(gross, info.ProtocolFeeRatio)
	if err != nil {
		return nil, nil, nil, true, err
	}
	net, err := rewards.SubCoins(gross, protocol)
	if err != nil {
		return nil, nil, nil, true, err
	}
	fee, err = rewards.MulCoins(net, info.DelegatorFeeRatio)
	if err != nil {
		return nil, nil, nil, true, err
	}
	user, err = rewards.SubCoins(net, fee)
	if err != nil {
		return nil, nil, nil, true, err
	}
	return user, fee, protocol, true, nil
}
