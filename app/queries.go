package app

import (
	"fmt"
	"math/big"

	coreerrors "vegov/core/errors"
	"vegov/core/state"
	"vegov/core/types"
	"vegov/native/delegation"
	"vegov/native/escrow"
	"vegov/native/governance"
	"vegov/native/params"
)

var (
	ErrProposalNotFound   = coreerrors.Wrap(coreerrors.ErrNotFound, "app: proposal not found")
	ErrNoCurrentProposal  = coreerrors.Wrap(coreerrors.ErrNotFound, "app: app has no proposal")
	ErrVoteNotFound       = coreerrors.Wrap(coreerrors.ErrNotFound, "app: vote not found")
	ErrEmissionNotFound   = coreerrors.Wrap(coreerrors.ErrNotFound, "app: emission not configured")
	ErrDelegationNotFound = coreerrors.Wrap(coreerrors.ErrNotFound, "app: delegation not found")
	ErrDelegateNotFound   = coreerrors.Wrap(coreerrors.ErrNotFound, "app: delegate not found")
)

// view runs fn against the committed state. Queries never see the buffered
// writes of an operation in flight.
func (a *App) view(fn func(m *state.Manager) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(state.NewManager(a.db))
}

// Global returns the stored configuration.
func (a *App) Global() (*params.GlobalState, error) {
	var out *params.GlobalState
	err := a.view(func(m *state.Manager) error {
		g, err := params.NewStore(m).Global()
		out = g
		return err
	})
	return out, err
}

// HolderEntries lists every escrow entry of owner across denominations.
func (a *App) HolderEntries(owner string) ([]*escrow.VoteTokenEntry, error) {
	var out []*escrow.VoteTokenEntry
	err := a.view(func(m *state.Manager) error {
		entries, err := m.EscrowOwnerEntries(owner)
		out = entries
		return err
	})
	return out, err
}

// HolderEntriesByDenom lists owner's entries of one principal denom.
func (a *App) HolderEntriesByDenom(owner, denom string) ([]*escrow.VoteTokenEntry, error) {
	var out []*escrow.VoteTokenEntry
	err := a.view(func(m *state.Manager) error {
		entries, err := m.EscrowEntries(owner, denom)
		out = entries
		return err
	})
	return out, err
}

// Supply returns the escrow totals of a principal denom.
func (a *App) Supply(denom string) (*escrow.SupplyTotals, error) {
	var out *escrow.SupplyTotals
	err := a.view(func(m *state.Manager) error {
		totals, err := m.EscrowSupply(denom)
		out = totals
		return err
	})
	return out, err
}

// Proposal returns a proposal by id.
func (a *App) Proposal(id uint64) (*governance.Proposal, error) {
	var out *governance.Proposal
	err := a.view(func(m *state.Manager) error {
		p, ok, err := m.GovernanceProposal(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrProposalNotFound, id)
		}
		out = p
		return nil
	})
	return out, err
}

// CurrentProposal returns the most recently raised proposal of an app.
func (a *App) CurrentProposal(appID uint64) (*governance.Proposal, error) {
	var out *governance.Proposal
	err := a.view(func(m *state.Manager) error {
		id, ok, err := m.GovernanceCurrentProposal(appID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: app %d", ErrNoCurrentProposal, appID)
		}
		p, ok, err := m.GovernanceProposal(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrProposalNotFound, id)
		}
		out = p
		return nil
	})
	return out, err
}

// CompletedProposals lists the finalised proposal ids of an app.
func (a *App) CompletedProposals(appID uint64) ([]uint64, error) {
	var out []uint64
	err := a.view(func(m *state.Manager) error {
		ids, err := m.GovernanceCompletedProposals(appID)
		out = ids
		return err
	})
	return out, err
}

// Vote returns voter's ballot on a proposal.
func (a *App) Vote(proposalID uint64, voter string) (*governance.Vote, error) {
	var out *governance.Vote
	err := a.view(func(m *state.Manager) error {
		v, ok, err := m.GovernanceVote(proposalID, voter)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: proposal %d voter %s", ErrVoteNotFound, proposalID, voter)
		}
		out = v
		return nil
	})
	return out, err
}

// PairTotal returns the weight voted for a pair.
func (a *App) PairTotal(proposalID, pair uint64) (*big.Int, error) {
	var out *big.Int
	err := a.view(func(m *state.Manager) error {
		total, err := m.GovernancePairTotal(proposalID, pair)
		out = total
		return err
	})
	return out, err
}

// BribePool returns the bribes deposited for a pair.
func (a *App) BribePool(proposalID, pair uint64) (types.Coins, error) {
	var out types.Coins
	err := a.view(func(m *state.Manager) error {
		pool, err := m.GovernanceBribePool(proposalID, pair)
		out = pool
		return err
	})
	return out, err
}

// Emission returns an app's emission budget.
func (a *App) Emission(appID uint64) (*governance.Emission, error) {
	var out *governance.Emission
	err := a.view(func(m *state.Manager) error {
		em, ok, err := m.GovernanceEmission(appID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: app %d", ErrEmissionNotFound, appID)
		}
		out = em
		return nil
	})
	return out, err
}

// ClaimCursor returns the last proposal id claimant has claimed for an app,
// zero when nothing has been claimed.
func (a *App) ClaimCursor(appID uint64, claimant string) (uint64, error) {
	var out uint64
	err := a.view(func(m *state.Manager) error {
		cursor, _, err := m.RewardsClaimCursor(appID, claimant)
		out = cursor
		return err
	})
	return out, err
}

// DelegationAt returns delegator's delegations as of height.
func (a *App) DelegationAt(delegator string, height uint64) (*delegation.Delegation, error) {
	var out *delegation.Delegation
	err := a.view(func(m *state.Manager) error {
		d, ok, err := m.DelegationAt(delegator, height)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s at %d", ErrDelegationNotFound, delegator, height)
		}
		out = d
		return nil
	})
	return out, err
}

// DelegateStatsAt returns the total delegated to delegate in denom as of
// height. A delegate nobody has delegated to reports zero.
func (a *App) DelegateStatsAt(delegate, denom string, height uint64) (*delegation.Stats, error) {
	var out *delegation.Stats
	err := a.view(func(m *state.Manager) error {
		s, ok, err := m.DelegationStatsAt(delegate, denom, height)
		if err != nil {
			return err
		}
		if !ok {
			s = &delegation.Stats{Delegate: delegate, Denom: denom, TotalDelegated: big.NewInt(0)}
		}
		out = s
		return nil
	})
	return out, err
}

// DelegateInfoAt returns a delegate's fee ratios as of height.
func (a *App) DelegateInfoAt(delegate string, height uint64) (*delegation.Info, error) {
	var out *delegation.Info
	err := a.view(func(m *state.Manager) error {
		info, ok, err := m.DelegationInfoAt(delegate, height)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrDelegateNotFound, delegate)
		}
		out = info
		return nil
	})
	return out, err
}
