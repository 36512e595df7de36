package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	coreerrors "vegov/core/errors"
	"vegov/core/events"
	"vegov/core/host"
	"vegov/core/types"
	"vegov/native/params"
)

var (
	errNilState   = errors.New("escrow: state not configured")
	errNilQuerier = errors.New("escrow: host querier not configured")

	ErrUnknownTier       = coreerrors.Wrap(coreerrors.ErrValidation, "escrow: unknown tier")
	ErrDenomMismatch     = coreerrors.Wrap(coreerrors.ErrValidation, "escrow: principal is not the app's governance asset")
	ErrNoMaturedEntries  = coreerrors.Wrap(coreerrors.ErrNotFound, "escrow: no matured entries")
	ErrNoEntries         = coreerrors.Wrap(coreerrors.ErrNotFound, "escrow: no entries")
	ErrTransfersDisabled = coreerrors.Wrap(coreerrors.ErrValidation, "escrow: vote tokens are not transferable")
	ErrSelfTransfer      = coreerrors.Wrap(coreerrors.ErrValidation, "escrow: recipient must differ from sender")
	ErrInvalidAddress    = coreerrors.Wrap(coreerrors.ErrValidation, "escrow: address required")
	ErrDelegatedWeight   = coreerrors.Wrap(coreerrors.ErrValidation, "escrow: entries back delegated weight")
	ErrSupplyUnderflow   = coreerrors.Wrap(coreerrors.ErrArithmetic, "escrow: supply totals would underflow")
)

type engineState interface {
	params.StoreState
	EscrowHolder(owner string) (*HolderRecord, bool, error)
	EscrowPutHolder(record *HolderRecord) error
	EscrowNextHolderID() (uint64, error)
	EscrowNextEntryID() (uint64, error)
	EscrowEntries(owner, denom string) ([]*VoteTokenEntry, error)
	EscrowPutEntries(owner, denom string, entries []*VoteTokenEntry) error
	EscrowOwnerEntries(owner string) ([]*VoteTokenEntry, error)
	EscrowSupply(denom string) (*SupplyTotals, error)
	EscrowPutSupply(totals *SupplyTotals) error
}

// DelegationGuard reports how much of an owner's vote-token weight is
// currently delegated away. Entries backing that weight cannot leave.
type DelegationGuard interface {
	DelegatedOut(owner, denom string) (*big.Int, error)
}

// Engine implements the escrow ledger: lock, withdraw and transfer of vote
// token positions together with per-denom supply accounting.
type Engine struct {
	state   engineState
	querier host.Querier
	guard   DelegationGuard
	emitter events.Emitter
}

// NewEngine creates an escrow engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetQuerier configures the host query interface.
func (e *Engine) SetQuerier(q host.Querier) { e.querier = q }

// SetDelegationGuard installs the delegated-weight check applied on exit.
func (e *Engine) SetDelegationGuard(g DelegationGuard) { e.guard = g }

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

func (e *Engine) global() (*params.GlobalState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return params.NewStore(e.state).Global()
}

// SingleCoin validates that funds carry exactly one positive denomination.
func SingleCoin(funds types.Coins) (types.Coin, error) {
	normalized := funds.Normalize()
	switch {
	case funds.HasNegative():
		return types.Coin{}, coreerrors.ErrNegativeAmount
	case len(funds) == 0:
		return types.Coin{}, coreerrors.ErrEmptyFunds
	case len(normalized) == 0:
		return types.Coin{}, coreerrors.ErrZeroAmount
	case len(normalized) > 1:
		return types.Coin{}, coreerrors.ErrMultipleDenoms
	}
	return normalized[0], nil
}

// Lock escrows the attached principal for tier and returns the new entry. The
// principal must be the governance asset of appID.
func (e *Engine) Lock(owner string, funds types.Coins, appID uint64, tier uint8, now uint64) (*VoteTokenEntry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.querier == nil {
		return nil, errNilQuerier
	}
	principal, err := SingleCoin(funds)
	if err != nil {
		return nil, err
	}
	_, denom, err := host.GovernanceDenom(e.querier, appID)
	if err != nil {
		return nil, err
	}
	if principal.Denom != denom {
		return nil, ErrDenomMismatch
	}
	return e.lock(owner, principal, tier, now, false)
}

// LockFor creates an entry without attached funds. Rebase compounding uses it
// to re-lock emission the engine already controls.
func (e *Engine) LockFor(owner string, principal types.Coin, tier uint8, now uint64) (*VoteTokenEntry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if principal.IsZero() {
		return nil, coreerrors.ErrZeroAmount
	}
	return e.lock(owner, principal, tier, now, true)
}

func (e *Engine) lock(owner string, principal types.Coin, tier uint8, now uint64, compound bool) (*VoteTokenEntry, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ErrInvalidAddress
	}
	global, err := e.global()
	if err != nil {
		return nil, err
	}
	tw, ok := global.Tier(tier)
	if !ok {
		return nil, ErrUnknownTier
	}
	voteAmount, err := tw.Weight.MulInt(principal.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrArithmetic, err)
	}
	if voteAmount.Sign() == 0 {
		return nil, coreerrors.Wrap(coreerrors.ErrValidation, "escrow: principal too small to mint vote tokens")
	}
	if _, err := e.ensureHolder(owner); err != nil {
		return nil, err
	}
	id, err := e.state.EscrowNextEntryID()
	if err != nil {
		return nil, err
	}
	entry := &VoteTokenEntry{
		ID:        id,
		Owner:     owner,
		Principal: principal.Clone(),
		VoteToken: types.NewCoin(VoteTokenDenom(principal.Denom), voteAmount),
		Tier:      tier,
		StartTime: now,
		EndTime:   now + tw.DurationSecs,
		Status:    StatusLocked,
	}
	if entry.EndTime < now {
		return nil, coreerrors.Wrap(coreerrors.ErrArithmetic, "escrow: end time overflow")
	}
	entries, err := e.state.EscrowEntries(owner, principal.Denom)
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)
	if err := e.state.EscrowPutEntries(owner, principal.Denom, entries); err != nil {
		return nil, err
	}
	if err := e.adjustSupply(principal.Denom, principal.Amount, voteAmount, true); err != nil {
		return nil, err
	}
	e.emit(events.EscrowLocked{
		Owner:     owner,
		EntryID:   entry.ID,
		Principal: entry.Principal,
		VoteToken: entry.VoteToken,
		Tier:      tier,
		EndTime:   entry.EndTime,
		Compound:  compound,
	})
	return entry.Clone(), nil
}

// Withdraw removes every matured entry of (owner, denom, tier) and returns the
// principal to pay out together with the number of entries removed.
func (e *Engine) Withdraw(owner string, funds types.Coins, denom string, tier uint8, now uint64) (types.Coin, int, error) {
	if e == nil || e.state == nil {
		return types.Coin{}, 0, errNilState
	}
	if !funds.IsZero() {
		return types.Coin{}, 0, coreerrors.ErrFundsNotAllowed
	}
	entries, err := e.state.EscrowEntries(owner, denom)
	if err != nil {
		return types.Coin{}, 0, err
	}
	var (
		kept    = make([]*VoteTokenEntry, 0, len(entries))
		matured = make([]*VoteTokenEntry, 0)
	)
	for _, entry := range entries {
		if entry.Tier == tier && entry.Matured(now) {
			matured = append(matured, entry)
			continue
		}
		kept = append(kept, entry)
	}
	if len(matured) == 0 {
		return types.Coin{}, 0, ErrNoMaturedEntries
	}
	if err := e.checkDelegated(owner, denom, kept); err != nil {
		return types.Coin{}, 0, err
	}
	principal := big.NewInt(0)
	for _, entry := range matured {
		principal.Add(principal, entry.Principal.Amount)
	}
	if err := e.state.EscrowPutEntries(owner, denom, kept); err != nil {
		return types.Coin{}, 0, err
	}
	if err := e.adjustSupply(denom, principal, SumVoteTokens(matured), false); err != nil {
		return types.Coin{}, 0, err
	}
	payout := types.NewCoin(denom, principal)
	e.emit(events.EscrowWithdrawn{Owner: owner, Denom: denom, Tier: tier, Amount: principal, Entries: len(matured)})
	return payout, len(matured), nil
}

// Transfer moves every (denom, tier) entry of sender to recipient regardless
// of maturity. Supply totals are unaffected.
func (e *Engine) Transfer(sender, recipient string, funds types.Coins, denom string, tier uint8) (int, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if !funds.IsZero() {
		return 0, coreerrors.ErrFundsNotAllowed
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return 0, ErrInvalidAddress
	}
	if recipient == sender {
		return 0, ErrSelfTransfer
	}
	global, err := e.global()
	if err != nil {
		return 0, err
	}
	if !global.TransfersEnabled {
		return 0, ErrTransfersDisabled
	}
	entries, err := e.state.EscrowEntries(sender, denom)
	if err != nil {
		return 0, err
	}
	var (
		kept  = make([]*VoteTokenEntry, 0, len(entries))
		moved = make([]*VoteTokenEntry, 0)
	)
	for _, entry := range entries {
		if entry.Tier == tier {
			moved = append(moved, entry)
			continue
		}
		kept = append(kept, entry)
	}
	if len(moved) == 0 {
		return 0, ErrNoEntries
	}
	if err := e.checkDelegated(sender, denom, kept); err != nil {
		return 0, err
	}
	if _, err := e.ensureHolder(recipient); err != nil {
		return 0, err
	}
	incoming, err := e.state.EscrowEntries(recipient, denom)
	if err != nil {
		return 0, err
	}
	// Moved entries take fresh ids so they fall outside the reward snapshot
	// of every proposal already finalised.
	for _, entry := range moved {
		id, err := e.state.EscrowNextEntryID()
		if err != nil {
			return 0, err
		}
		entry.ID = id
		entry.Owner = recipient
		incoming = append(incoming, entry)
	}
	if err := e.state.EscrowPutEntries(sender, denom, kept); err != nil {
		return 0, err
	}
	if err := e.state.EscrowPutEntries(recipient, denom, incoming); err != nil {
		return 0, err
	}
	e.emit(events.EscrowTransferred{Sender: sender, Recipient: recipient, Denom: denom, Tier: tier, Entries: len(moved)})
	return len(moved), nil
}

// Entries returns the owner's entries across every denom.
func (e *Engine) Entries(owner string) ([]*VoteTokenEntry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.EscrowOwnerEntries(owner)
}

// EntriesByDenom returns the owner's entries of denom.
func (e *Engine) EntriesByDenom(owner, denom string) ([]*VoteTokenEntry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.EscrowEntries(owner, denom)
}

// Supply returns the totals of denom.
func (e *Engine) Supply(denom string) (*SupplyTotals, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.EscrowSupply(denom)
}

// LockedVoteTokens sums the owner's vote tokens of principal denom.
func (e *Engine) LockedVoteTokens(owner, denom string) (*big.Int, error) {
	entries, err := e.EntriesByDenom(owner, denom)
	if err != nil {
		return nil, err
	}
	return SumVoteTokens(entries), nil
}

func (e *Engine) checkDelegated(owner, denom string, remaining []*VoteTokenEntry) error {
	if e.guard == nil {
		return nil
	}
	delegated, err := e.guard.DelegatedOut(owner, denom)
	if err != nil {
		return err
	}
	if delegated != nil && SumVoteTokens(remaining).Cmp(delegated) < 0 {
		return ErrDelegatedWeight
	}
	return nil
}

func (e *Engine) ensureHolder(owner string) (*HolderRecord, error) {
	record, ok, err := e.state.EscrowHolder(owner)
	if err != nil {
		return nil, err
	}
	if ok {
		return record, nil
	}
	id, err := e.state.EscrowNextHolderID()
	if err != nil {
		return nil, err
	}
	record = &HolderRecord{ID: id, Owner: owner}
	if err := e.state.EscrowPutHolder(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (e *Engine) adjustSupply(denom string, principal, voteTokens *big.Int, increase bool) error {
	totals, err := e.state.EscrowSupply(denom)
	if err != nil {
		return err
	}
	totals.ensure()
	if increase {
		totals.PrincipalLocked.Add(totals.PrincipalLocked, principal)
		totals.VoteTokenIssued.Add(totals.VoteTokenIssued, voteTokens)
		return e.state.EscrowPutSupply(totals)
	}
	locked, err := types.SafeSub(totals.PrincipalLocked, principal)
	if err != nil {
		return ErrSupplyUnderflow
	}
	issued, err := types.SafeSub(totals.VoteTokenIssued, voteTokens)
	if err != nil {
		return ErrSupplyUnderflow
	}
	totals.PrincipalLocked = locked
	totals.VoteTokenIssued = issued
	return e.state.EscrowPutSupply(totals)
}
