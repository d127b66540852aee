package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"chronicle/internal/model"
)

func (c *Client) rawEvent(ctx context.Context, log types.Log) (model.RawEvent, error) {
	ts, err := c.BlockTimestamp(ctx, log.BlockNumber)
	if err != nil {
		return model.RawEvent{}, c.connErr(fmt.Sprintf("block timestamp %d", log.BlockNumber), err)
	}
	return buildRawEvent(log, ts), nil
}

func buildRawEvent(log types.Log, timestamp uint64) model.RawEvent {
	topics := make([]common.Hash, len(log.Topics))
	copy(topics, log.Topics)

	ev := model.RawEvent{
		Address:        log.Address,
		Topics:         topics,
		Data:           append([]byte{}, log.Data...),
		BlockNumber:    log.BlockNumber,
		TxHash:         log.TxHash,
		BlockTimestamp: timestamp,
		LogIndex:       uint64(log.Index),
		Removed:        log.Removed,
	}
	if len(topics) > 0 {
		ev.Signature = topics[0]
	}
	return ev
}
