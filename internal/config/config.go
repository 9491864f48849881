package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. DEX_RPC.
const EnvPrefix = "DEX"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	Hub             string
	WETH            string
	PrivateKey      string
	SlippageBps     uint32
	ApprovalPolicy  string
	QuoteDebounce   time.Duration
	ReadTimeout     time.Duration
	StatsInterval   time.Duration
	RPCRate         float64
	RPCBurst        int
	ReadConcurrency int
	MaxRetries      int
	RetryBackoff    time.Duration
	Journal         string
	PostgresDSN     string
	RedisAddr       string
	Listen          string
	LogLevel        string
	Tokens          []string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("slippage-bps", 50)
	v.SetDefault("approval-policy", "max")
	v.SetDefault("quote-debounce", 500*time.Millisecond)
	v.SetDefault("read-timeout", 10*time.Second)
	v.SetDefault("stats-interval", 30*time.Second)
	v.SetDefault("rpc-rate", 20.0)
	v.SetDefault("rpc-burst", 10)
	v.SetDefault("read-concurrency", 4)
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("listen", ":8080")
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
		RPCURL:          v.GetString("rpc"),
		Hub:             v.GetString("hub"),
		WETH:            v.GetString("weth"),
		PrivateKey:      v.GetString("private-key"),
		SlippageBps:     v.GetUint32("slippage-bps"),
		ApprovalPolicy:  v.GetString("approval-policy"),
		QuoteDebounce:   v.GetDuration("quote-debounce"),
		ReadTimeout:     v.GetDuration("read-timeout"),
		StatsInterval:   v.GetDuration("stats-interval"),
		RPCRate:         v.GetFloat64("rpc-rate"),
		RPCBurst:        v.GetInt("rpc-burst"),
		ReadConcurrency: v.GetInt("read-concurrency"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		Journal:         v.GetString("journal"),
		PostgresDSN:     v.GetString("pg-dsn"),
		RedisAddr:       v.GetString("redis-addr"),
		Listen:          v.GetString("listen"),
		LogLevel:        v.GetString("log-level"),
		Tokens:          getStringSlice(v, "tokens"),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.SlippageBps >= 10_000 {
		return fmt.Errorf("slippage-bps must be below 10000, got %d", c.SlippageBps)
	}
	switch c.ApprovalPolicy {
	case "", "max", "exact":
	default:
		return fmt.Errorf("approval-policy must be max or exact, got %q", c.ApprovalPolicy)
	}
	if c.ReadConcurrency < 0 || c.RPCBurst < 0 || c.MaxRetries < 0 {
		return errors.New("read-concurrency, rpc-burst and max-retries must not be negative")
	}
	return nil
}

// RequireChain reports the first missing setting needed to talk to the hub.
func (c Config) RequireChain() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.Hub == "" {
		return fmt.Errorf("hub address is required")
	}
	return nil
}

// loadDotEnv fills unset environment variables from path when it exists.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
