package projection

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"chronicle/internal/decoder"
	"chronicle/internal/model"
	"chronicle/internal/storage"
)

// PoolHandler projects currentPoolsState. The two indexed addresses are the
// reward tokens of a paired pool; body fields 0, 1, 4 describe side one and
// 5, 6, 7 side two as (me amount, reward amount, r optimal).
type PoolHandler struct{}

func (PoolHandler) Name() string           { return EventCurrentPoolsState }
func (PoolHandler) Signature() common.Hash { return CurrentPoolsStateSignature }
func (PoolHandler) Schema() decoder.Schema { return poolSchema }
func (PoolHandler) Table() string          { return poolTable }

func (PoolHandler) EnsureTable(ctx context.Context, store storage.Store) error {
	return execDDL(ctx, store, poolDDL(store.Dialect()))
}

func (PoolHandler) Apply(ctx context.Context, store storage.Store, _ model.RawEvent, decoded *decoder.DecodedEvent) error {
	indexed, body := newExtractors(decoded)
	zero := common.Address{}.Hex()
	sides := []model.Pool{
		{
			PoolAddress:                 zero,
			RewardToken:                 indexed.address(0),
			MeToken:                     zero,
			CurrentAmountOfMeTokens:     body.uint(0),
			CurrentAmountOfRewardTokens: body.uint(1),
			ROptimal:                    body.uint(4),
		},
		{
			PoolAddress:                 zero,
			RewardToken:                 indexed.address(1),
			MeToken:                     zero,
			CurrentAmountOfMeTokens:     body.uint(5),
			CurrentAmountOfRewardTokens: body.uint(6),
			ROptimal:                    body.uint(7),
		},
	}
	if err := firstErr(indexed, body); err != nil {
		return err
	}

	for i, side := range sides {
		err := store.Upsert(ctx, storage.Upsert{
			Table: poolTable,
			Key:   "reward_token",
			Columns: []string{
				"pool_address", "reward_token", "me_token",
				"current_amount_of_reward_tokens", "current_amount_of_me_tokens", "r_optimal",
			},
			Values: []any{
				side.PoolAddress, side.RewardToken, side.MeToken,
				side.CurrentAmountOfRewardTokens, side.CurrentAmountOfMeTokens, side.ROptimal,
			},
			Update: []string{"current_amount_of_reward_tokens", "current_amount_of_me_tokens"},
		})
		if err != nil {
			return fmt.Errorf("pool side %d: %w", i+1, err)
		}
	}
	return nil
}
