package model

import "github.com/ethereum/go-ethereum/common"

// RawEvent is a contract log as observed on chain, before decoding.
type RawEvent struct {
	Address        common.Address
	Signature      common.Hash
	Topics         []common.Hash
	Data           []byte
	BlockNumber    uint64
	TxHash         common.Hash
	BlockTimestamp uint64
	LogIndex       uint64
	Removed        bool
}
