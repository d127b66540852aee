package projection

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"chronicle/internal/decoder"
	"chronicle/internal/model"
	"chronicle/internal/storage"
)

// RedemptionHandler projects crossBrandRedemption(address src, address dst,
// uint256 srcAmount, uint256 dstAmount, bool, address user). Every dispatch
// appends a row; redelivery duplicates it.
type RedemptionHandler struct{}

func (RedemptionHandler) Name() string           { return EventCrossBrandRedemption }
func (RedemptionHandler) Signature() common.Hash { return CrossBrandRedemptionSignature }
func (RedemptionHandler) Schema() decoder.Schema { return redemptionSchema }
func (RedemptionHandler) Table() string          { return redemptionTable }

func (RedemptionHandler) EnsureTable(ctx context.Context, store storage.Store) error {
	return execDDL(ctx, store, redemptionDDL(store.Dialect()))
}

func (RedemptionHandler) Apply(ctx context.Context, store storage.Store, ev model.RawEvent, decoded *decoder.DecodedEvent) error {
	_, body := newExtractors(decoded)
	redemption := model.Redemption{
		SourceToken:   body.address(0),
		DestToken:     body.address(1),
		SourceAmount:  body.uint(2),
		DestAmount:    body.uint(3),
		UserAddress:   body.address(5),
		OnchainTxHash: ev.TxHash.Hex(),
		LogIndex:      ev.LogIndex,
		RedeemedAt:    strconv.FormatUint(ev.BlockTimestamp, 10),
	}
	if err := firstErr(body); err != nil {
		return err
	}

	_, err := store.Exec(ctx, `
		INSERT INTO redemption (
			source_token, dest_token, source_amount, dest_amount, user_address, onchain_tx_hash, log_index, redeemed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		redemption.SourceToken,
		redemption.DestToken,
		redemption.SourceAmount,
		redemption.DestAmount,
		redemption.UserAddress,
		redemption.OnchainTxHash,
		int64(redemption.LogIndex),
		redemption.RedeemedAt,
	)
	return err
}
