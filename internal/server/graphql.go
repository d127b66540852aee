package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"chronicle/internal/projection"
)

func stringFields(names ...string) graphql.Fields {
	fields := graphql.Fields{}
	for _, name := range names {
		fields[name] = &graphql.Field{Type: graphql.String}
	}
	fields["createAt"] = &graphql.Field{Type: graphql.DateTime}
	return fields
}

var (
	brandType = graphql.NewObject(graphql.ObjectConfig{
		Name:   "Brand",
		Fields: stringFields("brandName", "mainAccount", "onlinePresence", "brandProtocolId", "onboardingManager"),
	})

	poolType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Pool",
		Fields: stringFields("poolAddress", "rewardToken", "meToken",
			"currentAmountOfRewardTokens", "currentAmountOfMeTokens", "rOptimal", "r"),
	})

	rewardType = graphql.NewObject(graphql.ObjectConfig{
		Name:   "Reward",
		Fields: stringFields("brandId", "rewardAddress", "requestorAddress", "initialSupply", "timestamp"),
	})

	redemptionType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Redemption",
		Fields: func() graphql.Fields {
			fields := stringFields("sourceToken", "destToken", "sourceAmount", "destAmount",
				"userAddress", "onchainTxHash", "redeemedAt")
			fields["logIndex"] = &graphql.Field{Type: graphql.Int}
			return fields
		}(),
	})

	brandWithRewardsType = graphql.NewObject(graphql.ObjectConfig{
		Name: "BrandWithRewards",
		Fields: graphql.Fields{
			"brandDetail": &graphql.Field{Type: brandType},
			"rewards":     &graphql.Field{Type: graphql.NewList(rewardType)},
		},
	})
)

func pageType(name string, item *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.Fields{
			"data":        &graphql.Field{Type: graphql.NewList(item)},
			"totalPage":   &graphql.Field{Type: graphql.Int},
			"totalItems":  &graphql.Field{Type: graphql.Int},
			"currentPage": &graphql.Field{Type: graphql.Int},
			"pageSize":    &graphql.Field{Type: graphql.Int},
		},
	})
}

func pageArgs(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{
		"page":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
		"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func requiredString(name string) graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		name: &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}
}

func pageOf(p graphql.ResolveParams) projection.Pagination {
	page, _ := p.Args["page"].(int)
	limit, _ := p.Args["limit"].(int)
	return projection.Pagination{Page: int64(page), Limit: int64(limit)}
}

func stringArg(p graphql.ResolveParams, name string) string {
	v, _ := p.Args[name].(string)
	return v
}

// orNull maps a missing record to a null result.
func orNull(v any, err error) (any, error) {
	if errors.Is(err, projection.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func countField(count func(graphql.ResolveParams) (int64, error)) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			n, err := count(p)
			if err != nil {
				return nil, err
			}
			return strconv.FormatInt(n, 10), nil
		},
	}
}

func newSchema(reader *projection.Reader) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"brands": &graphql.Field{
				Type: pageType("BrandPage", brandType),
				Args: pageArgs(nil),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return reader.Brands(p.Context, pageOf(p))
				},
			},
			"brand": &graphql.Field{
				Type: brandType,
				Args: requiredString("id"),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return orNull(reader.BrandByID(p.Context, stringArg(p, "id")))
				},
			},
			"brandByName": &graphql.Field{
				Type: brandType,
				Args: requiredString("name"),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return orNull(reader.BrandByName(p.Context, stringArg(p, "name")))
				},
			},
			"brandWithRewards": &graphql.Field{
				Type: brandWithRewardsType,
				Args: requiredString("id"),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return orNull(reader.BrandWithRewards(p.Context, stringArg(p, "id")))
				},
			},
			"pools": &graphql.Field{
				Type: pageType("PoolPage", poolType),
				Args: pageArgs(nil),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return reader.Pools(p.Context, pageOf(p))
				},
			},
			"pool": &graphql.Field{
				Type: poolType,
				Args: requiredString("rewardAddress"),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return orNull(reader.PoolByRewardAddress(p.Context, stringArg(p, "rewardAddress")))
				},
			},
			"rewards": &graphql.Field{
				Type: pageType("RewardPage", rewardType),
				Args: pageArgs(nil),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return reader.Rewards(p.Context, pageOf(p))
				},
			},
			"reward": &graphql.Field{
				Type: rewardType,
				Args: requiredString("rewardAddress"),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return orNull(reader.RewardByAddress(p.Context, stringArg(p, "rewardAddress")))
				},
			},
			"rewardsByBrand": &graphql.Field{
				Type: graphql.NewList(rewardType),
				Args: requiredString("brandId"),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return reader.RewardsByBrandID(p.Context, stringArg(p, "brandId"))
				},
			},
			"redemptions": &graphql.Field{
				Type: pageType("RedemptionPage", redemptionType),
				Args: pageArgs(graphql.FieldConfigArgument{
					"rewardAddress": &graphql.ArgumentConfig{Type: graphql.String},
					"userAddress":   &graphql.ArgumentConfig{Type: graphql.String},
				}),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if reward := stringArg(p, "rewardAddress"); reward != "" {
						return reader.RedemptionsByReward(p.Context, reward, pageOf(p))
					}
					if user := stringArg(p, "userAddress"); user != "" {
						return reader.RedemptionsByUser(p.Context, user, pageOf(p))
					}
					return reader.Redemptions(p.Context, pageOf(p))
				},
			},
			"redemption": &graphql.Field{
				Type: redemptionType,
				Args: requiredString("txHash"),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return orNull(reader.RedemptionByTxHash(p.Context, stringArg(p, "txHash")))
				},
			},
			"brandCount": countField(func(p graphql.ResolveParams) (int64, error) {
				return reader.BrandCount(p.Context)
			}),
			"poolCount": countField(func(p graphql.ResolveParams) (int64, error) {
				return reader.PoolCount(p.Context)
			}),
			"rewardCount": countField(func(p graphql.ResolveParams) (int64, error) {
				return reader.RewardCount(p.Context)
			}),
			"redemptionCount": countField(func(p graphql.ResolveParams) (int64, error) {
				return reader.RedemptionCount(p.Context)
			}),
		},
	})
	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

func newGraphQLHandler(reader *projection.Reader) (http.Handler, error) {
	schema, err := newSchema(reader)
	if err != nil {
		return nil, err
	}
	return handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: true,
	}), nil
}
