package model

// DecodedLog is a log decoded offline against its handler schema.
type DecodedLog struct {
	Event       string `json:"event"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Timestamp   uint64 `json:"timestamp"`
	Indexed     []any  `json:"indexed"`
	Body        []any  `json:"body"`
}
