package projection

import (
	"github.com/ethereum/go-ethereum/common"

	"chronicle/internal/decoder"
)

// Event names as emitted by the OpenReward diamond.
const (
	EventCrossBrandRedemption = "crossBrandRedemption"
	EventCurrentPoolsState    = "currentPoolsState"
	EventRegisterBrand        = "registerBrand"
	EventRewardCreated        = "fungibleRewardsCreatedSuccessfully"
)

var (
	// OpenRewardDiamond is the contract that emits every projected event.
	OpenRewardDiamond = common.HexToAddress("0x2C123047B23809DbCCDA2d34bB5158D2563221E3")

	CrossBrandRedemptionSignature = common.HexToHash("0xfed787e0d30655f3b4541940cf654e513554b6ceed26d2341cfacd02d1dd882c")
	CurrentPoolsStateSignature    = common.HexToHash("0xefe08965798e655edd8c4067c3e33db2d678750da0c9f84cd2c38d4fa02faf3b")
	RegisterBrandSignature        = common.HexToHash("0x0f5a0d63eb86b0478f8c56652b268eddd83c313e58058b1a65951958ed19074c")
	RewardCreatedSignature        = common.HexToHash("0x8ae268bd07c1784370b1d77d72548763ada0729264a966a234f895e03ae4c33c")
)

func fields(exprs ...string) []decoder.Field {
	out := make([]decoder.Field, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, decoder.MustField(expr))
	}
	return out
}

var (
	redemptionSchema = decoder.Schema{
		Body: fields("address", "address", "uint256", "uint256", "bool", "address"),
	}
	poolSchema = decoder.Schema{
		Indexed: fields("address", "address"),
		Body: fields(
			"uint256", "uint256", "uint256", "uint256", "uint256",
			"uint256", "uint256", "uint256", "uint256", "uint256",
		),
	}
	brandSchema = decoder.Schema{
		Body: fields("string", "string", "address", "bytes10", "address"),
	}
	rewardSchema = decoder.Schema{
		Body: fields("bytes10", "address", "address", "uint256", "uint256"),
	}
)
