package state

import "encoding/binary"

var (
	paramsPrefix = []byte("params/")

	escrowHolderPrefix  = []byte("ve/holder/id/")
	escrowHolderSeqKey  = []byte("ve/holder/seq")
	escrowEntrySeqKey   = []byte("ve/entry/seq")
	escrowEntriesPrefix = []byte("ve/entries/")
	escrowSupplyPrefix  = []byte("ve/supply/")

	govProposalSeqKey    = []byte("gov/proposal/seq")
	govProposalPrefix    = []byte("gov/proposal/")
	govCurrentPrefix     = []byte("gov/app/current/")
	govCompletedPrefix   = []byte("gov/app/completed/")
	govEmissionPrefix    = []byte("gov/emission/")
	govVotePrefix        = []byte("gov/vote/")
	govPairTotalPrefix   = []byte("gov/pairtotal/")
	govBribePoolPrefix   = []byte("gov/bribe/")
	govVoterPrefix       = []byte("gov/voter/")
	rewardsCursorPrefix  = []byte("rewards/cursor/")
	delegVersionedPrefix = []byte("deleg/v/")
	delegClaimsPrefix    = []byte("deleg/claims/")
	delegClaimedPrefix   = []byte("deleg/claimed/")
)

// Versioned delegation records share one multi-version store; the first byte
// of the user key names the record kind.
const (
	delegKindDelegation byte = 'd'
	delegKindStats      byte = 's'
	delegKindInfo       byte = 'i'
)

// compositeKey joins prefix with length-prefixed string segments so that no
// segment can run into the next one. A key built from a leading subset of the
// segments is a prefix of every key extending it, which is what range queries
// rely on.
func compositeKey(prefix []byte, parts ...string) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += 2 + len(p)
	}
	key := make([]byte, 0, size)
	key = append(key, prefix...)
	for _, p := range parts {
		key = binary.BigEndian.AppendUint16(key, uint16(len(p)))
		key = append(key, p...)
	}
	return key
}

func u64(v uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return string(buf[:])
}

func paramsKey(name string) []byte {
	key := make([]byte, len(paramsPrefix)+len(name))
	copy(key, paramsPrefix)
	copy(key[len(paramsPrefix):], name)
	return key
}

func escrowHolderKey(owner string) []byte { return compositeKey(escrowHolderPrefix, owner) }

func escrowEntriesKey(owner, denom string) []byte {
	return compositeKey(escrowEntriesPrefix, owner, denom)
}

func escrowOwnerPrefix(owner string) []byte { return compositeKey(escrowEntriesPrefix, owner) }

func escrowSupplyKey(denom string) []byte { return compositeKey(escrowSupplyPrefix, denom) }

func govProposalKey(id uint64) []byte { return compositeKey(govProposalPrefix, u64(id)) }

func govVoterKey(voter string) []byte { return compositeKey(govVoterPrefix, voter) }

func govCurrentKey(appID uint64) []byte { return compositeKey(govCurrentPrefix, u64(appID)) }

func govCompletedKey(appID uint64) []byte { return compositeKey(govCompletedPrefix, u64(appID)) }

func govEmissionKey(appID uint64) []byte { return compositeKey(govEmissionPrefix, u64(appID)) }

func govVoteKey(proposalID uint64, voter string) []byte {
	return compositeKey(govVotePrefix, u64(proposalID), voter)
}

func govVoteProposalPrefix(proposalID uint64) []byte {
	return compositeKey(govVotePrefix, u64(proposalID))
}

func govPairTotalKey(proposalID, pair uint64) []byte {
	return compositeKey(govPairTotalPrefix, u64(proposalID), u64(pair))
}

func govBribePoolKey(proposalID, pair uint64) []byte {
	return compositeKey(govBribePoolPrefix, u64(proposalID), u64(pair))
}

func rewardsCursorKey(appID uint64, claimant string) []byte {
	return compositeKey(rewardsCursorPrefix, u64(appID), claimant)
}

func delegationUserKey(kind byte, parts ...string) []byte {
	return compositeKey([]byte{kind}, parts...)
}

func delegClaimsKey(delegator, delegate string) []byte {
	return compositeKey(delegClaimsPrefix, delegator, delegate)
}

func delegClaimedKey(delegator, delegate string, proposalID uint64) []byte {
	return compositeKey(delegClaimedPrefix, delegator, delegate, u64(proposalID))
}
