package projection

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"chronicle/internal/decoder"
	"chronicle/internal/model"
	"chronicle/internal/storage"
)

// BrandHandler projects registerBrand(string name, string onlinePresence,
// address account, bytes10 protocolId, address requestor). A brand is
// inserted once per protocol id.
type BrandHandler struct{}

func (BrandHandler) Name() string           { return EventRegisterBrand }
func (BrandHandler) Signature() common.Hash { return RegisterBrandSignature }
func (BrandHandler) Schema() decoder.Schema { return brandSchema }
func (BrandHandler) Table() string          { return brandTable }

func (BrandHandler) EnsureTable(ctx context.Context, store storage.Store) error {
	return execDDL(ctx, store, brandDDL(store.Dialect()))
}

func (BrandHandler) Apply(ctx context.Context, store storage.Store, _ model.RawEvent, decoded *decoder.DecodedEvent) error {
	_, body := newExtractors(decoded)
	brand := model.Brand{
		Name:              body.str(0),
		OnlinePresence:    body.str(1),
		MainAccount:       body.address(2),
		BrandProtocolID:   body.hexBytes(3),
		OnboardingManager: body.address(4),
	}
	if err := firstErr(body); err != nil {
		return err
	}

	return store.Upsert(ctx, storage.Upsert{
		Table:   brandTable,
		Key:     "brand_protocol_id",
		Columns: []string{"name", "main_account", "online_presence", "brand_protocol_id", "onboarding_manager"},
		Values:  []any{brand.Name, brand.MainAccount, brand.OnlinePresence, brand.BrandProtocolID, brand.OnboardingManager},
	})
}
