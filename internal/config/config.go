package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults match the production Polygon deployment.
const (
	DefaultRPCURL          = "https://polygon-rpc.com"
	DefaultGammaBase       = "https://gamma-api.polymarket.com"
	DefaultExchange        = "0x4bFb41d5B3570DeFd03C39a9A4d8dE6bd8B8982E"
	DefaultNegRiskExchange = "0xC5D563A36AE78145C45A50134D48A1215220E0A8"
	DefaultCollateralUSDC  = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
)

// Config holds configuration values loaded from flags, env, or config file.
// From/To/TxHash describe the requested scan window; -1 and "" mean unset.
type Config struct {
	RPCURL          string
	PGDSN           string
	GammaBase       string
	Exchange        string
	NegRiskExchange string
	Collateral      string

	From      int64
	To        int64
	TxHash    string
	EventSlug string

	IncludeExchange bool
	IncludeNegRisk  bool

	ChunkSize        uint64
	FetchConcurrency int
	HTTPTimeout      time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration

	ListenAddr string
	LogLevel   string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc-url", DefaultRPCURL)
	v.SetDefault("gamma-base", DefaultGammaBase)
	v.SetDefault("exchange", DefaultExchange)
	v.SetDefault("neg-risk-exchange", DefaultNegRiskExchange)
	v.SetDefault("collateral", DefaultCollateralUSDC)
	v.SetDefault("from", int64(-1))
	v.SetDefault("to", int64(-1))
	v.SetDefault("include-exchange", true)
	v.SetDefault("include-neg-risk", true)
	v.SetDefault("chunk-size", uint64(4000))
	v.SetDefault("fetch-concurrency", 1)
	v.SetDefault("http-timeout", 20*time.Second)
	v.SetDefault("max-retries", 4)
	v.SetDefault("retry-base-delay", 1500*time.Millisecond)
	v.SetDefault("listen-addr", "127.0.0.1:8000")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:           v.GetString("rpc-url"),
		PGDSN:            v.GetString("pg-dsn"),
		GammaBase:        v.GetString("gamma-base"),
		Exchange:         v.GetString("exchange"),
		NegRiskExchange:  v.GetString("neg-risk-exchange"),
		Collateral:       v.GetString("collateral"),
		From:             v.GetInt64("from"),
		To:               v.GetInt64("to"),
		TxHash:           v.GetString("tx"),
		EventSlug:        v.GetString("event-slug"),
		IncludeExchange:  v.GetBool("include-exchange"),
		IncludeNegRisk:   v.GetBool("include-neg-risk"),
		ChunkSize:        v.GetUint64("chunk-size"),
		FetchConcurrency: v.GetInt("fetch-concurrency"),
		HTTPTimeout:      v.GetDuration("http-timeout"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBaseDelay:   v.GetDuration("retry-base-delay"),
		ListenAddr:       v.GetString("listen-addr"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}

// BlockArg converts a -1-means-unset flag value into an optional bound.
func BlockArg(value int64) *uint64 {
	if value < 0 {
		return nil
	}
	block := uint64(value)
	return &block
}
