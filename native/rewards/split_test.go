package rewards

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "vegov/core/errors"
	"vegov/core/types"
	"vegov/native/governance"
)

func TestBribeShareFloors(t *testing.T) {
	share, err := BribeShare(big.NewInt(30), big.NewInt(100), big.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(150), share)

	share, err = BribeShare(big.NewInt(1), big.NewInt(3), big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(33), share)
}

func TestRebaseShareFloors(t *testing.T) {
	share, err := RebaseShare(big.NewInt(222), big.NewInt(10_000), big.NewInt(20_000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(444), share)
}

func TestSplitZeroTotals(t *testing.T) {
	share, err := SurplusShare(big.NewInt(5), big.NewInt(0), big.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, 0, share.Sign())

	_, err = BribeShare(big.NewInt(101), big.NewInt(100), big.NewInt(1))
	require.ErrorIs(t, err, coreerrors.ErrArithmetic)
}

func TestSplitEntitlement(t *testing.T) {
	vote := &governance.Vote{OwnWeight: big.NewInt(1), DelegatedWeight: big.NewInt(2)}
	entitlement := types.Coins{types.NewCoin("ucmst", big.NewInt(100)), types.NewCoin("uosmo", big.NewInt(10))}

	own, delegated, err := SplitEntitlement(entitlement, vote)
	require.NoError(t, err)
	require.Equal(t, "33ucmst,3uosmo", own.String())
	require.Equal(t, "67ucmst,7uosmo", delegated.String())
}

func TestSubCoins(t *testing.T) {
	a := types.Coins{types.NewCoin("ucmst", big.NewInt(10))}
	out, err := SubCoins(a, types.Coins{types.NewCoin("ucmst", big.NewInt(10))})
	require.NoError(t, err)
	require.True(t, out.IsZero())

	_, err = SubCoins(a, types.Coins{types.NewCoin("uosmo", big.NewInt(1))})
	require.ErrorIs(t, err, coreerrors.ErrArithmetic)
}
