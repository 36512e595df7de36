package state

// RewardsClaimCursor returns the claimant's high-water mark for an app.
func (m *Manager) RewardsClaimCursor(appID uint64, claimant string) (uint64, bool, error) {
	var cursor uint64
	ok, err := m.get(rewardsCursorKey(appID, claimant), &cursor)
	return cursor, ok, err
}

// RewardsSetClaimCursor stores the claimant's high-water mark.
func (m *Manager) RewardsSetClaimCursor(appID uint64, claimant string, proposalID uint64) error {
	return m.put(rewardsCursorKey(appID, claimant), proposalID)
}
