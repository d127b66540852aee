package decoder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AsAddress returns v as an address.
func AsAddress(v any) (common.Address, error) {
	switch x := v.(type) {
	case common.Address:
		return x, nil
	case *common.Address:
		return *x, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", v)
	}
}

// AsBigInt returns v as an integer.
func AsBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	default:
		return nil, fmt.Errorf("unsupported integer type %T", v)
	}
}

// AsString returns v as a string.
func AsString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unsupported string type %T", v)
	}
	return s, nil
}

// AsBool returns v as a bool.
func AsBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("unsupported bool type %T", v)
	}
	return b, nil
}

// AsBytes returns v as a byte slice. Topic hashes of indexed dynamic values are accepted.
func AsBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case common.Hash:
		return x.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported bytes type %T", v)
	}
}

// AsTuple returns v as a positional list of tuple or array members.
func AsTuple(v any) ([]any, error) {
	t, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("unsupported tuple type %T", v)
	}
	return t, nil
}

// JSONValue converts a normalised value into a JSON-friendly form: integers
// become decimal strings and byte slices become 0x-prefixed hex.
func JSONValue(v any) any {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.String()
	case []byte:
		return hexutil.Bytes(x)
	case common.Address:
		return x.Hex()
	case common.Hash:
		return x.Hex()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = JSONValue(item)
		}
		return out
	default:
		return v
	}
}
