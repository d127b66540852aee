package projection

import (
	"context"
	"fmt"

	"chronicle/internal/storage"
)

const (
	brandTable      = "brand"
	poolTable       = "pool"
	rewardTable     = "reward"
	redemptionTable = "redemption"
)

func brandDDL(d storage.Dialect) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	name TEXT,
	main_account TEXT,
	online_presence TEXT,
	brand_protocol_id TEXT UNIQUE,
	onboarding_manager TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, brandTable, d.IdentityColumn()),
		`CREATE INDEX IF NOT EXISTS brand_name_idx ON brand (name)`,
	}
}

func poolDDL(d storage.Dialect) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	pool_address TEXT,
	reward_token TEXT UNIQUE,
	me_token TEXT,
	current_amount_of_reward_tokens TEXT,
	current_amount_of_me_tokens TEXT,
	r_optimal TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, poolTable, d.IdentityColumn())}
}

func rewardDDL(d storage.Dialect) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	brand_id TEXT,
	reward_address TEXT UNIQUE,
	requestor_address TEXT,
	initial_supply TEXT,
	timestamp TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, rewardTable, d.IdentityColumn()),
		`CREATE INDEX IF NOT EXISTS reward_brand_id_idx ON reward (brand_id)`,
	}
}

func redemptionDDL(d storage.Dialect) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s,
	source_token TEXT,
	dest_token TEXT,
	source_amount TEXT,
	dest_amount TEXT,
	user_address TEXT,
	onchain_tx_hash TEXT,
	log_index BIGINT,
	redeemed_at TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`, redemptionTable, d.IdentityColumn()),
		`CREATE INDEX IF NOT EXISTS redemption_tx_hash_idx ON redemption (onchain_tx_hash)`,
		`CREATE INDEX IF NOT EXISTS redemption_user_idx ON redemption (user_address)`,
	}
}

func execDDL(ctx context.Context, store storage.Store, stmts []string) error {
	for _, stmt := range stmts {
		if err := store.ExecDDL(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
