package state

import (
	"math/big"

	"vegov/core/types"
	"vegov/native/governance"
)

// GovernanceNextProposalID allocates the next global proposal identifier.
func (m *Manager) GovernanceNextProposalID() (uint64, error) {
	return m.nextSequence(govProposalSeqKey)
}

// GovernanceProposal loads a proposal by id.
func (m *Manager) GovernanceProposal(id uint64) (*governance.Proposal, bool, error) {
	p := new(governance.Proposal)
	ok, err := m.get(govProposalKey(id), p)
	if err != nil || !ok {
		return nil, false, err
	}
	return p, true, nil
}

// GovernancePutProposal stores a proposal.
func (m *Manager) GovernancePutProposal(p *governance.Proposal) error {
	return m.put(govProposalKey(p.ID), p)
}

// GovernanceCurrentProposal returns the id of the last proposal raised for an
// app.
func (m *Manager) GovernanceCurrentProposal(appID uint64) (uint64, bool, error) {
	var id uint64
	ok, err := m.get(govCurrentKey(appID), &id)
	return id, ok, err
}

// GovernanceSetCurrentProposal records the app's current proposal.
func (m *Manager) GovernanceSetCurrentProposal(appID, id uint64) error {
	return m.put(govCurrentKey(appID), id)
}

// GovernanceCompletedProposals lists the finalised proposals of an app in
// finalisation order.
func (m *Manager) GovernanceCompletedProposals(appID uint64) ([]uint64, error) {
	var ids []uint64
	if _, err := m.get(govCompletedKey(appID), &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

// GovernanceVoterProposals lists the proposals voter has voted on and that
// were still open to finalisation when last checked.
func (m *Manager) GovernanceVoterProposals(voter string) ([]uint64, error) {
	var ids []uint64
	if _, err := m.get(govVoterKey(voter), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GovernancePutVoterProposals replaces the voter's proposal list.
func (m *Manager) GovernancePutVoterProposals(voter string, ids []uint64) error {
	if len(ids) == 0 {
		return m.delete(govVoterKey(voter))
	}
	return m.put(govVoterKey(voter), ids)
}

// GovernanceAppendCompleted appends id to the app's completed list.
func (m *Manager) GovernanceAppendCompleted(appID, id uint64) error {
	ids, err := m.GovernanceCompletedProposals(appID)
	if err != nil {
		return err
	}
	return m.put(govCompletedKey(appID), append(ids, id))
}

// GovernanceEmission loads the emission schedule of an app.
func (m *Manager) GovernanceEmission(appID uint64) (*governance.Emission, bool, error) {
	em := new(governance.Emission)
	ok, err := m.get(govEmissionKey(appID), em)
	if err != nil || !ok {
		return nil, false, err
	}
	return em, true, nil
}

// GovernancePutEmission stores the emission schedule of an app.
func (m *Manager) GovernancePutEmission(em *governance.Emission) error {
	return m.put(govEmissionKey(em.AppID), em)
}

// GovernanceVote loads voter's allocation on a proposal.
func (m *Manager) GovernanceVote(proposalID uint64, voter string) (*governance.Vote, bool, error) {
	v := new(governance.Vote)
	ok, err := m.get(govVoteKey(proposalID, voter), v)
	if err != nil || !ok {
		return nil, false, err
	}
	return v, true, nil
}

// GovernancePutVote replaces a voter's allocation.
func (m *Manager) GovernancePutVote(v *governance.Vote) error {
	return m.put(govVoteKey(v.ProposalID, v.Voter), v)
}

// GovernanceVotes lists every vote cast on a proposal in voter key order.
func (m *Manager) GovernanceVotes(proposalID uint64) ([]*governance.Vote, error) {
	out := make([]*governance.Vote, 0)
	var decodeErr error
	err := m.store.Iterate(govVoteProposalPrefix(proposalID), func(key, value []byte) bool {
		v := new(governance.Vote)
		if decodeErr = decodeList(key, value, v); decodeErr != nil {
			return false
		}
		out = append(out, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, decodeErr
}

// GovernancePairTotal returns the accumulated weight of a pair.
func (m *Manager) GovernancePairTotal(proposalID, pair uint64) (*big.Int, error) {
	total := new(big.Int)
	if _, err := m.get(govPairTotalKey(proposalID, pair), total); err != nil {
		return nil, err
	}
	return total, nil
}

// GovernancePutPairTotal stores the accumulated weight of a pair.
func (m *Manager) GovernancePutPairTotal(proposalID, pair uint64, total *big.Int) error {
	return m.put(govPairTotalKey(proposalID, pair), total)
}

// GovernanceBribePool loads the bribe pool of a pair.
func (m *Manager) GovernanceBribePool(proposalID, pair uint64) (types.Coins, error) {
	var pool types.Coins
	if _, err := m.get(govBribePoolKey(proposalID, pair), &pool); err != nil {
		return nil, err
	}
	if pool == nil {
		pool = types.Coins{}
	}
	return pool, nil
}

// GovernancePutBribePool stores the bribe pool of a pair.
func (m *Manager) GovernancePutBribePool(proposalID, pair uint64, pool types.Coins) error {
	return m.put(govBribePoolKey(proposalID, pair), pool.Normalize())
}
