package projection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderBrandPagination(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	router := NewRouter(RouterConfig{}, DefaultRegistry(), store, &recordingCheckpoint{}, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, router.Dispatch(ctx, brandEvent(t, i, uint64(i))))
	}
	reader := NewReader(store)

	page, err := reader.Brands(ctx, Pagination{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 5, page.TotalItems)
	require.EqualValues(t, 3, page.TotalPage)
	require.EqualValues(t, 1, page.CurrentPage)
	require.Len(t, page.Data, 2)
	require.Equal(t, "brand-4", page.Data[0].Name)
	require.Equal(t, "brand-3", page.Data[1].Name)

	last, err := reader.Brands(ctx, Pagination{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, last.Data, 1)
	require.Equal(t, "brand-0", last.Data[0].Name)

	defaults, err := reader.Brands(ctx, Pagination{})
	require.NoError(t, err)
	require.EqualValues(t, defaultPageSize, defaults.PageSize)
	require.Len(t, defaults.Data, 5)

	n, err := reader.BrandCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)

	byName, err := reader.BrandByName(ctx, "brand-2")
	require.NoError(t, err)
	require.Equal(t, "0xb1000000000000000002", byName.BrandProtocolID)
}

func TestReaderBrandWithRewards(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	router := NewRouter(RouterConfig{}, DefaultRegistry(), store, &recordingCheckpoint{}, nil)

	require.NoError(t, router.Dispatch(ctx, brandEvent(t, 1, 1)))
	require.NoError(t, router.Dispatch(ctx, rewardEvent(t, 1, 1, 2)))
	require.NoError(t, router.Dispatch(ctx, rewardEvent(t, 1, 2, 3)))
	require.NoError(t, router.Dispatch(ctx, rewardEvent(t, 9, 3, 4)))

	reader := NewReader(store)
	result, err := reader.BrandWithRewards(ctx, "0xb1000000000000000001")
	require.NoError(t, err)
	require.Equal(t, "brand-1", result.Brand.Name)
	require.Len(t, result.Rewards, 2)
	require.Equal(t, address(201).Hex(), result.Rewards[0].RewardAddress)

	first, err := reader.RewardByBrandID(ctx, "0xb1000000000000000001")
	require.NoError(t, err)
	require.Equal(t, address(201).Hex(), first.RewardAddress)

	rewards, err := reader.Rewards(ctx, Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 3, rewards.TotalItems)
	require.Equal(t, address(203).Hex(), rewards.Data[0].RewardAddress)
}

func TestReaderNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, DefaultRegistry().Bootstrap(ctx, store))
	reader := NewReader(store)

	_, err := reader.BrandByID(ctx, "0x00")
	require.True(t, errors.Is(err, ErrNotFound))
	_, err = reader.PoolByRewardAddress(ctx, address(1).Hex())
	require.True(t, errors.Is(err, ErrNotFound))
	_, err = reader.RedemptionByTxHash(ctx, "0x01")
	require.True(t, errors.Is(err, ErrNotFound))
	_, err = reader.BrandWithRewards(ctx, "0x00")
	require.True(t, errors.Is(err, ErrNotFound))

	pools, err := reader.Pools(ctx, Pagination{Page: 1, Limit: 5})
	require.NoError(t, err)
	require.Empty(t, pools.Data)
	require.NotNil(t, pools.Data)
	require.EqualValues(t, 0, pools.TotalPage)
}

func TestReaderRedemptionFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	router := NewRouter(RouterConfig{}, DefaultRegistry(), store, &recordingCheckpoint{}, nil)
	for i := 1; i <= 3; i++ {
		require.NoError(t, router.Dispatch(ctx, redemptionEvent(t, i, uint64(i))))
	}
	reader := NewReader(store)

	bySource, err := reader.RedemptionsByReward(ctx, address(1).Hex(), Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 3, bySource.TotalItems)

	byDest, err := reader.RedemptionsByReward(ctx, address(2).Hex(), Pagination{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, byDest.TotalItems)
	require.Len(t, byDest.Data, 2)

	byUser, err := reader.RedemptionsByUser(ctx, address(402).Hex(), Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, byUser.TotalItems)
	require.Equal(t, "20", byUser.Data[0].SourceAmount)

	n, err := reader.RedemptionCount(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}
