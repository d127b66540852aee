// Package decoder turns raw log topics and payloads into positional value
// trees according to a declared Schema.
package decoder

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DecodeError reports a log that cannot be decoded against its schema.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodedEvent holds decoded values positionally aligned with the schema.
//
// Integers decode to *big.Int, addresses to common.Address, fixed and
// dynamic bytes to []byte, tuples and arrays to []any. Indexed values of
// dynamic types decode to the common.Hash stored in the topic.
type DecodedEvent struct {
	Indexed []any
	Body    []any
}

// Decode decodes topics and data. topics[0] is the event signature.
func Decode(topics []common.Hash, data []byte, schema Schema) (*DecodedEvent, error) {
	if len(topics) == 0 {
		return nil, &DecodeError{Reason: "missing signature topic"}
	}
	if got, want := len(topics)-1, len(schema.Indexed); got != want {
		return nil, &DecodeError{Reason: fmt.Sprintf("expected %d indexed topics, got %d", want, got)}
	}

	indexedArgs, err := arguments(schema.Indexed, true)
	if err != nil {
		return nil, &DecodeError{Reason: "indexed schema", Err: err}
	}
	bodyArgs, err := arguments(schema.Body, false)
	if err != nil {
		return nil, &DecodeError{Reason: "body schema", Err: err}
	}

	indexed, err := decodeIndexed(indexedArgs, topics[1:])
	if err != nil {
		return nil, err
	}
	body, err := decodeBody(bodyArgs, data)
	if err != nil {
		return nil, err
	}

	return &DecodedEvent{Indexed: indexed, Body: body}, nil
}

func decodeIndexed(args abi.Arguments, topics []common.Hash) ([]any, error) {
	if len(args) == 0 {
		return []any{}, nil
	}
	out := make(map[string]interface{}, len(args))
	if err := abi.ParseTopicsIntoMap(out, args, topics); err != nil {
		return nil, &DecodeError{Reason: "parse topics", Err: err}
	}
	values := make([]any, 0, len(args))
	for _, arg := range args {
		values = append(values, normalize(out[arg.Name]))
	}
	return values, nil
}

func decodeBody(args abi.Arguments, data []byte) ([]any, error) {
	if len(args) == 0 {
		if len(data) != 0 {
			return nil, &DecodeError{Reason: fmt.Sprintf("unexpected %d byte payload for empty body", len(data))}
		}
		return []any{}, nil
	}
	raw, err := args.Unpack(data)
	if err != nil {
		return nil, &DecodeError{Reason: "unpack body", Err: err}
	}
	if len(raw) != len(args) {
		return nil, &DecodeError{Reason: fmt.Sprintf("expected %d body values, got %d", len(args), len(raw))}
	}
	values := make([]any, 0, len(raw))
	for _, v := range raw {
		values = append(values, normalize(v))
	}
	return values, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *big.Int:
		return new(big.Int).Set(x)
	case common.Address, common.Hash, string, bool:
		return x
	case []byte:
		return append([]byte{}, x...)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int())
	case reflect.Array, reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return b
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Struct:
		out := make([]any, rv.NumField())
		for i := range out {
			out[i] = normalize(rv.Field(i).Interface())
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	return v
}
