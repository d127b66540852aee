package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"chronicle/internal/decoder"
)

// ParseAddress converts a hex contract address into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseSignature converts a 32-byte hex topic0 into common.Hash.
func ParseSignature(input string) (common.Hash, error) {
	input = strings.TrimSpace(input)
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid event signature: %q", input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid event signature length: %q", input)
	}
	return common.BytesToHash(data), nil
}

// ParseSchema builds a schema from type strings. It returns nil when both
// lists are empty.
func ParseSchema(indexed, body []string) (*decoder.Schema, error) {
	if len(indexed) == 0 && len(body) == 0 {
		return nil, nil
	}
	schema, err := decoder.NewSchema(indexed, body)
	if err != nil {
		return nil, err
	}
	return &schema, nil
}
