package projection

import (
	"context"
	"errors"
	"fmt"

	"chronicle/internal/model"
	"chronicle/internal/storage"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page  int64
	Limit int64
}

func (p Pagination) normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

func (p Pagination) offset() int64 {
	return (p.Page - 1) * p.Limit
}

// Reader serves read-only queries over the projected tables, newest first.
type Reader struct {
	store storage.Store
}

func NewReader(store storage.Store) *Reader {
	return &Reader{store: store}
}

const (
	brandColumns      = `name, main_account, online_presence, brand_protocol_id, onboarding_manager, created_at`
	poolColumns       = `pool_address, reward_token, me_token, current_amount_of_reward_tokens, current_amount_of_me_tokens, r_optimal, created_at`
	rewardColumns     = `brand_id, reward_address, requestor_address, initial_supply, timestamp, created_at`
	redemptionColumns = `source_token, dest_token, source_amount, dest_amount, user_address, onchain_tx_hash, log_index, redeemed_at, created_at`
)

func scanBrand(rows storage.Rows) (model.Brand, error) {
	var b model.Brand
	var createdAt any
	if err := rows.Scan(&b.Name, &b.MainAccount, &b.OnlinePresence, &b.BrandProtocolID, &b.OnboardingManager, &createdAt); err != nil {
		return b, err
	}
	var err error
	b.CreatedAt, err = storage.ParseTime(createdAt)
	return b, err
}

func scanPool(rows storage.Rows) (model.Pool, error) {
	var p model.Pool
	var createdAt any
	if err := rows.Scan(&p.PoolAddress, &p.RewardToken, &p.MeToken, &p.CurrentAmountOfRewardTokens, &p.CurrentAmountOfMeTokens, &p.ROptimal, &createdAt); err != nil {
		return p, err
	}
	p.R = poolRatio(p.CurrentAmountOfRewardTokens, p.CurrentAmountOfMeTokens)
	var err error
	p.CreatedAt, err = storage.ParseTime(createdAt)
	return p, err
}

func scanReward(rows storage.Rows) (model.Reward, error) {
	var r model.Reward
	var createdAt any
	if err := rows.Scan(&r.BrandID, &r.RewardAddress, &r.RequestorAddress, &r.InitialSupply, &r.Timestamp, &createdAt); err != nil {
		return r, err
	}
	var err error
	r.CreatedAt, err = storage.ParseTime(createdAt)
	return r, err
}

func scanRedemption(rows storage.Rows) (model.Redemption, error) {
	var r model.Redemption
	var logIndex int64
	var createdAt any
	if err := rows.Scan(&r.SourceToken, &r.DestToken, &r.SourceAmount, &r.DestAmount, &r.UserAddress, &r.OnchainTxHash, &logIndex, &r.RedeemedAt, &createdAt); err != nil {
		return r, err
	}
	r.LogIndex = uint64(logIndex)
	var err error
	r.CreatedAt, err = storage.ParseTime(createdAt)
	return r, err
}

func queryAll[T any](ctx context.Context, store storage.Store, scan func(storage.Rows) (T, error), stmt string, args ...any) ([]T, error) {
	rows, err := store.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, &storage.PersistenceError{Op: "scan", Err: err}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &storage.PersistenceError{Op: "rows", Err: err}
	}
	return out, nil
}

func queryOne[T any](ctx context.Context, store storage.Store, scan func(storage.Rows) (T, error), stmt string, args ...any) (T, error) {
	var zero T
	all, err := queryAll(ctx, store, scan, stmt+" LIMIT 1", args...)
	if err != nil {
		return zero, err
	}
	if len(all) == 0 {
		return zero, ErrNotFound
	}
	return all[0], nil
}

func queryPage[T any](ctx context.Context, store storage.Store, scan func(storage.Rows) (T, error), p Pagination, countStmt, selectStmt string, args ...any) (model.Page[T], error) {
	p = p.normalize()
	total, err := storage.Count(ctx, store, countStmt, args...)
	if err != nil {
		return model.Page[T]{}, err
	}
	n := len(args)
	stmt := fmt.Sprintf("%s ORDER BY id DESC LIMIT $%d OFFSET $%d", selectStmt, n+1, n+2)
	data, err := queryAll(ctx, store, scan, stmt, append(args, p.Limit, p.offset())...)
	if err != nil {
		return model.Page[T]{}, err
	}
	return model.NewPage(data, total, p.Page, p.Limit), nil
}

// Brands lists brands.
func (r *Reader) Brands(ctx context.Context, p Pagination) (model.Page[model.Brand], error) {
	return queryPage(ctx, r.store, scanBrand, p,
		`SELECT COUNT(*) FROM brand`,
		`SELECT `+brandColumns+` FROM brand`)
}

// BrandByID returns the brand with the given protocol id.
func (r *Reader) BrandByID(ctx context.Context, id string) (model.Brand, error) {
	return queryOne(ctx, r.store, scanBrand, `SELECT `+brandColumns+` FROM brand WHERE brand_protocol_id = $1`, id)
}

// BrandByName returns the first brand registered under name.
func (r *Reader) BrandByName(ctx context.Context, name string) (model.Brand, error) {
	return queryOne(ctx, r.store, scanBrand, `SELECT `+brandColumns+` FROM brand WHERE name = $1 ORDER BY id`, name)
}

// BrandWithRewards returns a brand and every reward it created.
func (r *Reader) BrandWithRewards(ctx context.Context, id string) (model.BrandWithRewards, error) {
	brand, err := r.BrandByID(ctx, id)
	if err != nil {
		return model.BrandWithRewards{}, err
	}
	rewards, err := r.RewardsByBrandID(ctx, id)
	if err != nil {
		return model.BrandWithRewards{}, err
	}
	return model.BrandWithRewards{Brand: brand, Rewards: rewards}, nil
}

func (r *Reader) BrandCount(ctx context.Context) (int64, error) {
	return storage.Count(ctx, r.store, `SELECT COUNT(*) FROM brand`)
}

// Pools lists pools with their reward ratio.
func (r *Reader) Pools(ctx context.Context, p Pagination) (model.Page[model.Pool], error) {
	return queryPage(ctx, r.store, scanPool, p,
		`SELECT COUNT(*) FROM pool`,
		`SELECT `+poolColumns+` FROM pool`)
}

// PoolByRewardAddress returns the pool side keyed by reward token.
func (r *Reader) PoolByRewardAddress(ctx context.Context, reward string) (model.Pool, error) {
	return queryOne(ctx, r.store, scanPool, `SELECT `+poolColumns+` FROM pool WHERE reward_token = $1`, reward)
}

func (r *Reader) PoolCount(ctx context.Context) (int64, error) {
	return storage.Count(ctx, r.store, `SELECT COUNT(*) FROM pool`)
}

// Rewards lists rewards.
func (r *Reader) Rewards(ctx context.Context, p Pagination) (model.Page[model.Reward], error) {
	return queryPage(ctx, r.store, scanReward, p,
		`SELECT COUNT(*) FROM reward`,
		`SELECT `+rewardColumns+` FROM reward`)
}

// RewardByAddress returns the reward keyed by its token address.
func (r *Reader) RewardByAddress(ctx context.Context, reward string) (model.Reward, error) {
	return queryOne(ctx, r.store, scanReward, `SELECT `+rewardColumns+` FROM reward WHERE reward_address = $1`, reward)
}

// RewardByBrandID returns the first reward created by a brand.
func (r *Reader) RewardByBrandID(ctx context.Context, id string) (model.Reward, error) {
	return queryOne(ctx, r.store, scanReward, `SELECT `+rewardColumns+` FROM reward WHERE brand_id = $1 ORDER BY id`, id)
}

// RewardsByBrandID returns every reward created by a brand, oldest first.
func (r *Reader) RewardsByBrandID(ctx context.Context, id string) ([]model.Reward, error) {
	return queryAll(ctx, r.store, scanReward, `SELECT `+rewardColumns+` FROM reward WHERE brand_id = $1 ORDER BY id`, id)
}

func (r *Reader) RewardCount(ctx context.Context) (int64, error) {
	return storage.Count(ctx, r.store, `SELECT COUNT(*) FROM reward`)
}

// Redemptions lists redemptions.
func (r *Reader) Redemptions(ctx context.Context, p Pagination) (model.Page[model.Redemption], error) {
	return queryPage(ctx, r.store, scanRedemption, p,
		`SELECT COUNT(*) FROM redemption`,
		`SELECT `+redemptionColumns+` FROM redemption`)
}

// RedemptionsByReward lists redemptions where reward is the source or destination token.
func (r *Reader) RedemptionsByReward(ctx context.Context, reward string, p Pagination) (model.Page[model.Redemption], error) {
	return queryPage(ctx, r.store, scanRedemption, p,
		`SELECT COUNT(*) FROM redemption WHERE source_token = $1 OR dest_token = $1`,
		`SELECT `+redemptionColumns+` FROM redemption WHERE source_token = $1 OR dest_token = $1`,
		reward)
}

// RedemptionsByUser lists redemptions made by user.
func (r *Reader) RedemptionsByUser(ctx context.Context, user string, p Pagination) (model.Page[model.Redemption], error) {
	return queryPage(ctx, r.store, scanRedemption, p,
		`SELECT COUNT(*) FROM redemption WHERE user_address = $1`,
		`SELECT `+redemptionColumns+` FROM redemption WHERE user_address = $1`,
		user)
}

// RedemptionByTxHash returns the first redemption recorded for a transaction.
func (r *Reader) RedemptionByTxHash(ctx context.Context, txHash string) (model.Redemption, error) {
	return queryOne(ctx, r.store, scanRedemption, `SELECT `+redemptionColumns+` FROM redemption WHERE onchain_tx_hash = $1 ORDER BY id`, txHash)
}

func (r *Reader) RedemptionCount(ctx context.Context) (int64, error) {
	return storage.Count(ctx, r.store, `SELECT COUNT(*) FROM redemption`)
}
