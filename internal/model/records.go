package model

import "time"

// Brand is a registered brand, keyed by its protocol id.
type Brand struct {
	Name              string    `json:"brandName"`
	MainAccount       string    `json:"mainAccount"`
	OnlinePresence    string    `json:"onlinePresence"`
	BrandProtocolID   string    `json:"brandProtocolId"`
	OnboardingManager string    `json:"onboardingManager"`
	CreatedAt         time.Time `json:"createAt"`
}

// Pool is the current state of one side of a reward pool, keyed by reward token.
type Pool struct {
	PoolAddress                 string    `json:"poolAddress"`
	RewardToken                 string    `json:"rewardToken"`
	MeToken                     string    `json:"meToken"`
	CurrentAmountOfRewardTokens string    `json:"currentAmountOfRewardTokens"`
	CurrentAmountOfMeTokens     string    `json:"currentAmountOfMeTokens"`
	ROptimal                    string    `json:"rOptimal"`
	R                           string    `json:"r"`
	CreatedAt                   time.Time `json:"createAt"`
}

// Reward is a fungible reward token created by a brand, keyed by reward address.
type Reward struct {
	BrandID          string    `json:"brandId"`
	RewardAddress    string    `json:"rewardAddress"`
	RequestorAddress string    `json:"requestorAddress"`
	InitialSupply    string    `json:"initialSupply"`
	Timestamp        string    `json:"timestamp"`
	CreatedAt        time.Time `json:"createAt"`
}

// Redemption is a cross-brand redemption. It has no natural key.
type Redemption struct {
	SourceToken   string    `json:"sourceToken"`
	DestToken     string    `json:"destToken"`
	SourceAmount  string    `json:"sourceAmount"`
	DestAmount    string    `json:"destAmount"`
	UserAddress   string    `json:"userAddress"`
	OnchainTxHash string    `json:"onchainTxHash"`
	LogIndex      uint64    `json:"logIndex"`
	RedeemedAt    string    `json:"redeemedAt"`
	CreatedAt     time.Time `json:"createAt"`
}

// BrandWithRewards is a brand and every reward it created.
type BrandWithRewards struct {
	Brand   Brand    `json:"brandDetail"`
	Rewards []Reward `json:"rewards"`
}
