package model

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// LogRecord is the JSON representation of a chain log used for offline decoding.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
}

// UnmarshalJSON decodes a LogRecord from JSON.
func (lr *LogRecord) UnmarshalJSON(data []byte) error {
	type Alias LogRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*lr = LogRecord(a)
	return nil
}

// RawEvent converts the record into a RawEvent. Topics and data must be 0x-prefixed hex.
func (lr LogRecord) RawEvent() (RawEvent, error) {
	if !common.IsHexAddress(lr.Address) {
		return RawEvent{}, fmt.Errorf("invalid address: %s", lr.Address)
	}

	topics := make([]common.Hash, 0, len(lr.Topics))
	for _, topic := range lr.Topics {
		b, err := hexutil.Decode(topic)
		if err != nil {
			return RawEvent{}, fmt.Errorf("invalid topic %s: %w", topic, err)
		}
		if len(b) > common.HashLength {
			return RawEvent{}, fmt.Errorf("topic length %d", len(b))
		}
		topics = append(topics, common.BytesToHash(b))
	}

	var data []byte
	if lr.Data != "" && lr.Data != "0x" {
		var err error
		data, err = hexutil.Decode(lr.Data)
		if err != nil {
			return RawEvent{}, fmt.Errorf("invalid data: %w", err)
		}
	}

	ev := RawEvent{
		Address:        common.HexToAddress(lr.Address),
		Topics:         topics,
		Data:           data,
		BlockNumber:    lr.BlockNumber,
		TxHash:         common.HexToHash(lr.TxHash),
		BlockTimestamp: lr.Timestamp,
		LogIndex:       lr.LogIndex,
		Removed:        lr.Removed,
	}
	if len(topics) > 0 {
		ev.Signature = topics[0]
	}
	return ev, nil
}

// NewLogRecord converts an observed event into its JSON record form.
func NewLogRecord(ev RawEvent) LogRecord {
	topics := make([]string, 0, len(ev.Topics))
	for _, topic := range ev.Topics {
		topics = append(topics, topic.Hex())
	}

	return LogRecord{
		BlockNumber: ev.BlockNumber,
		TxHash:      ev.TxHash.Hex(),
		LogIndex:    ev.LogIndex,
		Address:     ev.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(ev.Data),
		Removed:     ev.Removed,
		Timestamp:   ev.BlockTimestamp,
	}
}
