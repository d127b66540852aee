package projection

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"chronicle/internal/decoder"
)

// extractor reads decoded values by position. The first failure sticks and
// later reads return zero values.
type extractor struct {
	section string
	values  []any
	err     error
}

func newExtractors(ev *decoder.DecodedEvent) (indexed, body *extractor) {
	return &extractor{section: "indexed", values: ev.Indexed}, &extractor{section: "body", values: ev.Body}
}

func (x *extractor) value(i int) (any, bool) {
	if x.err != nil {
		return nil, false
	}
	if i < 0 || i >= len(x.values) {
		x.fail(i, fmt.Errorf("position out of range (%d values)", len(x.values)))
		return nil, false
	}
	return x.values[i], true
}

func (x *extractor) fail(i int, err error) {
	if x.err == nil {
		x.err = &decoder.DecodeError{Reason: fmt.Sprintf("%s field %d", x.section, i), Err: err}
	}
}

// address returns the checksummed hex form.
func (x *extractor) address(i int) string {
	v, ok := x.value(i)
	if !ok {
		return ""
	}
	addr, err := decoder.AsAddress(v)
	if err != nil {
		x.fail(i, err)
		return ""
	}
	return addr.Hex()
}

// uint returns the decimal form.
func (x *extractor) uint(i int) string {
	v, ok := x.value(i)
	if !ok {
		return ""
	}
	n, err := decoder.AsBigInt(v)
	if err != nil {
		x.fail(i, err)
		return ""
	}
	return n.String()
}

func (x *extractor) str(i int) string {
	v, ok := x.value(i)
	if !ok {
		return ""
	}
	s, err := decoder.AsString(v)
	if err != nil {
		x.fail(i, err)
		return ""
	}
	return s
}

// hexBytes returns the 0x-prefixed hex form.
func (x *extractor) hexBytes(i int) string {
	v, ok := x.value(i)
	if !ok {
		return ""
	}
	b, err := decoder.AsBytes(v)
	if err != nil {
		x.fail(i, err)
		return ""
	}
	return hexutil.Encode(b)
}

func firstErr(xs ...*extractor) error {
	for _, x := range xs {
		if x.err != nil {
			return x.err
		}
	}
	return nil
}

var ratioPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// poolRatio computes reward * 1e18 / me over decimal strings. It returns "0"
// when me is zero or either amount is not a decimal integer.
func poolRatio(reward, me string) string {
	r, ok := new(big.Int).SetString(reward, 10)
	if !ok {
		return "0"
	}
	m, ok := new(big.Int).SetString(me, 10)
	if !ok || m.Sign() == 0 {
		return "0"
	}
	r.Mul(r, ratioPrecision)
	return r.Quo(r, m).String()
}
