package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"chronicle/internal/chain"
	"chronicle/internal/indexer"
	"chronicle/internal/projection"
)

// IndexerConfig describes one source. Empty fields fall back to the
// top-level rpc, backend, contract and start-block values.
type IndexerConfig struct {
	EventName      string   `mapstructure:"event-name"`
	Backend        string   `mapstructure:"backend"`
	RPC            string   `mapstructure:"rpc"`
	Contract       string   `mapstructure:"contract"`
	EventSignature string   `mapstructure:"event-signature"`
	StartBlock     *uint64  `mapstructure:"start-block"`
	Indexed        []string `mapstructure:"indexed"`
	Body           []string `mapstructure:"body"`
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL              string
	DBURL               string
	ServerAddr          string
	Contract            string
	StartBlock          uint64
	Backend             string
	HistoricalBatchSize uint64
	RPCTimeout          time.Duration
	SkipMalformed       bool
	Archive             string
	ShutdownGrace       time.Duration
	RateLimit           float64
	RateBurst           int
	LogLevel            string
	Indexers            []IndexerConfig
}

// legacyEnv maps keys to the environment variables used by earlier
// deployments, checked after the INDEXER_ form.
var legacyEnv = map[string]string{
	"rpc":         "JSON_RPC",
	"db-url":      "DB_URL_PROD",
	"server-addr": "HOST_N_PORT",
	"start-block": "START_BLOCK",
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		env := "INDEXER_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := v.BindEnv(key, env, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}

	v.SetDefault("server-addr", "0.0.0.0:8080")
	v.SetDefault("backend", string(chain.BackendEVM))
	v.SetDefault("contract", projection.OpenRewardDiamond.Hex())
	v.SetDefault("shutdown-grace", 10*time.Second)
	v.SetDefault("rate-limit", 0.0)
	v.SetDefault("rate-burst", 20)
	v.SetDefault("log-level", "info")

	cfg := Config{
		RPCURL:              v.GetString("rpc"),
		DBURL:               v.GetString("db-url"),
		ServerAddr:          v.GetString("server-addr"),
		Contract:            v.GetString("contract"),
		StartBlock:          v.GetUint64("start-block"),
		Backend:             v.GetString("backend"),
		HistoricalBatchSize: v.GetUint64("historical-batch-size"),
		RPCTimeout:          v.GetDuration("rpc-timeout"),
		SkipMalformed:       v.GetBool("skip-malformed"),
		Archive:             v.GetString("archive"),
		ShutdownGrace:       v.GetDuration("shutdown-grace"),
		RateLimit:           v.GetFloat64("rate-limit"),
		RateBurst:           v.GetInt("rate-burst"),
		LogLevel:            v.GetString("log-level"),
	}
	if err := v.UnmarshalKey("indexers", &cfg.Indexers); err != nil {
		return Config{}, fmt.Errorf("parse indexers: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed by the run command.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBURL) == "" {
		return fmt.Errorf("db url is required")
	}
	if strings.TrimSpace(c.ServerAddr) == "" {
		return fmt.Errorf("server address is required")
	}
	if c.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown grace must not be negative")
	}
	if c.RPCTimeout < 0 {
		return fmt.Errorf("rpc timeout must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}

// ChainOptions returns the connector options shared by every source.
func (c Config) ChainOptions() chain.Options {
	return chain.Options{
		HistoricalBatchSize: c.HistoricalBatchSize,
		RPCTimeout:          c.RPCTimeout,
	}
}

// Sources resolves the indexers list. An empty list yields the default
// OpenReward sources.
func (c Config) Sources() ([]indexer.Source, error) {
	if len(c.Indexers) == 0 {
		if strings.TrimSpace(c.RPCURL) == "" {
			return nil, fmt.Errorf("rpc url is required")
		}
		backend, err := chain.ParseBackend(c.Backend)
		if err != nil {
			return nil, err
		}
		contract, err := indexer.ParseAddress(c.Contract)
		if err != nil {
			return nil, err
		}
		return indexer.DefaultSources(backend, c.RPCURL, contract, c.StartBlock), nil
	}

	sources := make([]indexer.Source, 0, len(c.Indexers))
	for i, ic := range c.Indexers {
		source, err := c.source(ic)
		if err != nil {
			return nil, fmt.Errorf("indexers[%d]: %w", i, err)
		}
		sources = append(sources, source)
	}
	return sources, nil
}

func (c Config) source(ic IndexerConfig) (indexer.Source, error) {
	backend, err := chain.ParseBackend(firstNonEmpty(ic.Backend, c.Backend))
	if err != nil {
		return indexer.Source{}, err
	}
	rpcURL := firstNonEmpty(ic.RPC, c.RPCURL)
	if rpcURL == "" {
		return indexer.Source{}, fmt.Errorf("rpc url is required")
	}
	contract, err := indexer.ParseAddress(firstNonEmpty(ic.Contract, c.Contract))
	if err != nil {
		return indexer.Source{}, err
	}
	signature, err := indexer.ParseSignature(ic.EventSignature)
	if err != nil {
		return indexer.Source{}, err
	}
	schema, err := indexer.ParseSchema(ic.Indexed, ic.Body)
	if err != nil {
		return indexer.Source{}, fmt.Errorf("schema: %w", err)
	}
	start := c.StartBlock
	if ic.StartBlock != nil {
		start = *ic.StartBlock
	}
	return indexer.Source{
		EventName:  ic.EventName,
		Backend:    backend,
		RPCURL:     rpcURL,
		Contract:   contract,
		Signature:  signature,
		StartBlock: start,
		Schema:     schema,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
