package projection

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"chronicle/internal/decoder"
	"chronicle/internal/model"
	"chronicle/internal/storage"
)

// RewardHandler projects fungibleRewardsCreatedSuccessfully(bytes10 brandId,
// address reward, address requestor, uint256 initialSupply, uint256 timestamp).
// A reward is inserted once per reward address.
type RewardHandler struct{}

func (RewardHandler) Name() string           { return EventRewardCreated }
func (RewardHandler) Signature() common.Hash { return RewardCreatedSignature }
func (RewardHandler) Schema() decoder.Schema { return rewardSchema }
func (RewardHandler) Table() string          { return rewardTable }

func (RewardHandler) EnsureTable(ctx context.Context, store storage.Store) error {
	return execDDL(ctx, store, rewardDDL(store.Dialect()))
}

func (RewardHandler) Apply(ctx context.Context, store storage.Store, _ model.RawEvent, decoded *decoder.DecodedEvent) error {
	_, body := newExtractors(decoded)
	reward := model.Reward{
		BrandID:          body.hexBytes(0),
		RewardAddress:    body.address(1),
		RequestorAddress: body.address(2),
		InitialSupply:    body.uint(3),
		Timestamp:        body.uint(4),
	}
	if err := firstErr(body); err != nil {
		return err
	}

	return store.Upsert(ctx, storage.Upsert{
		Table:   rewardTable,
		Key:     "reward_address",
		Columns: []string{"brand_id", "reward_address", "requestor_address", "initial_supply", "timestamp"},
		Values:  []any{reward.BrandID, reward.RewardAddress, reward.RequestorAddress, reward.InitialSupply, reward.Timestamp},
	})
}
