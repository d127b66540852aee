package decoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var testSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

func packBody(t *testing.T, fields []Field, values ...interface{}) []byte {
	t.Helper()
	args, err := arguments(fields, false)
	if err != nil {
		t.Fatalf("arguments: %v", err)
	}
	data, err := args.Pack(values...)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	return data
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

func TestDecodeIndexedAndBody(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	schema, err := NewSchema([]string{"address"}, []string{"address", "uint256"})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	data := packBody(t, schema.Body, b, big.NewInt(100))

	event, err := Decode([]common.Hash{testSignature, topicFromAddress(a)}, data, schema)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(event.Indexed) != 1 || event.Indexed[0] != a {
		t.Fatalf("indexed mismatch: %v", event.Indexed)
	}
	if len(event.Body) != 2 || event.Body[0] != b {
		t.Fatalf("body mismatch: %v", event.Body)
	}
	amount, err := AsBigInt(event.Body[1])
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	if amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("amount mismatch: %s", amount)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	a := common.HexToAddress("0x3333333333333333333333333333333333333333")
	schema, err := NewSchema([]string{"address"}, []string{"uint256", "bool"})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	topics := []common.Hash{testSignature, topicFromAddress(a)}
	data := packBody(t, schema.Body, big.NewInt(7), true)

	first, err := Decode(topics, data, schema)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	second, err := Decode(topics, data, schema)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("decode not deterministic: %v vs %v", first, second)
	}
}

func TestDecodeTopicCountMismatch(t *testing.T) {
	schema, err := NewSchema([]string{"address", "address"}, nil)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	_, err = Decode([]common.Hash{testSignature, {}}, nil, schema)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeMissingSignature(t *testing.T) {
	_, err := Decode(nil, nil, Schema{})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeShortPayload(t *testing.T) {
	schema, err := NewSchema(nil, []string{"uint256", "uint256"})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	_, err = Decode([]common.Hash{testSignature}, make([]byte, 32), schema)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeStringAndFixedBytes(t *testing.T) {
	schema, err := NewSchema(nil, []string{"string", "bytes10", "address"})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var id [10]byte
	copy(id[:], []byte{0xde, 0xad, 0xbe, 0xef})
	owner := common.HexToAddress("0x4444444444444444444444444444444444444444")
	data := packBody(t, schema.Body, "acme", id, owner)

	event, err := Decode([]common.Hash{testSignature}, data, schema)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	name, err := AsString(event.Body[0])
	if err != nil || name != "acme" {
		t.Fatalf("name mismatch: %v %v", name, err)
	}
	raw, err := AsBytes(event.Body[1])
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if len(raw) != 10 || !bytes.Equal(raw[:4], []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Fatalf("bytes10 mismatch: %x", raw)
	}
	got, err := AsAddress(event.Body[2])
	if err != nil || got != owner {
		t.Fatalf("owner mismatch: %v %v", got, err)
	}
}

func TestDecodeTuple(t *testing.T) {
	schema, err := NewSchema(nil, []string{"(address,uint256)"})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	args, err := arguments(schema.Body, false)
	if err != nil {
		t.Fatalf("arguments: %v", err)
	}
	owner := common.HexToAddress("0x5555555555555555555555555555555555555555")
	value := reflect.New(args[0].Type.GetType()).Elem()
	value.Field(0).Set(reflect.ValueOf(owner))
	value.Field(1).Set(reflect.ValueOf(big.NewInt(42)))
	data, err := args.Pack(value.Interface())
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	event, err := Decode([]common.Hash{testSignature}, data, schema)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tuple, err := AsTuple(event.Body[0])
	if err != nil {
		t.Fatalf("tuple: %v", err)
	}
	if len(tuple) != 2 || tuple[0] != owner {
		t.Fatalf("tuple mismatch: %v", tuple)
	}
	if n, err := AsBigInt(tuple[1]); err != nil || n.Int64() != 42 {
		t.Fatalf("tuple amount mismatch: %v %v", n, err)
	}
}

func TestDecodeUnsupportedType(t *testing.T) {
	schema := Schema{Body: []Field{{Type: "foo"}}}
	_, err := Decode([]common.Hash{testSignature}, make([]byte, 32), schema)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestParseField(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"uint256", "uint256"},
		{" address ", "address"},
		{"(address,uint256)", "(address,uint256)"},
		{"(address,(bool,bytes32))[]", "(address,(bool,bytes32))[]"},
	}
	for _, tc := range cases {
		f, err := ParseField(tc.expr)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.expr, err)
		}
		if f.String() != tc.want {
			t.Fatalf("parse %q: got %s", tc.expr, f.String())
		}
	}

	for _, bad := range []string{"", "(address", "address)", "(address,uint256)x", "()"} {
		if _, err := ParseField(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSchemaEqual(t *testing.T) {
	a, _ := NewSchema([]string{"address"}, []string{"uint256"})
	b, _ := NewSchema([]string{"address"}, []string{"uint256"})
	c, _ := NewSchema(nil, []string{"address", "uint256"})
	if !a.Equal(b) {
		t.Fatalf("expected equal schemas")
	}
	if a.Equal(c) {
		t.Fatalf("expected different schemas")
	}
}

func TestJSONValue(t *testing.T) {
	addr := common.HexToAddress("0x2C123047B23809DbCCDA2d34bB5158D2563221E3")
	v := JSONValue([]any{big.NewInt(42), []byte{0xb1, 0x02}, addr, true, "name"})
	want := []any{"42", "0xb102", addr.Hex(), true, "name"}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	expected, _ := json.Marshal(want)
	if string(out) != string(expected) {
		t.Fatalf("json mismatch: got %s want %s", out, expected)
	}
}
