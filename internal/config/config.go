// Package config loads process configuration from flags, environment and
// an optional config file.
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

// EnvPrefix is prepended to every environment variable, e.g. BLOCKSCORE_RPC_URL.
const EnvPrefix = "BLOCKSCORE"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ListenAddr string

	RPCURL        string
	RPCRateLimit  float64
	RPCMaxRetries int

	QueryTimeout       time.Duration
	SignatureLimit     int
	ProtocolSampleSize int
	BatchTimeout       time.Duration

	CacheTTL           time.Duration
	CacheSweepInterval time.Duration

	SNSURL   string
	AdminKey string

	UseMemory        bool
	PostgresDSN      string
	PostgresMaxConns int
	ClickhouseDSN    string

	LogLevel string
}

// Defaults.
const (
	DefaultListenAddr = ":3001"
	DefaultRPCURL     = "https://api.mainnet-beta.solana.com"
	DefaultSNSURL     = "https://sns-sdk-proxy.bonfida.workers.dev"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen-addr", DefaultListenAddr)
	v.SetDefault("rpc-url", DefaultRPCURL)
	v.SetDefault("rpc-rate-limit", 10.0)
	v.SetDefault("rpc-max-retries", 3)
	v.SetDefault("query-timeout", 10*time.Second)
	v.SetDefault("signature-limit", 1000)
	v.SetDefault("protocol-sample-size", 0)
	v.SetDefault("batch-timeout", 30*time.Second)
	v.SetDefault("cache-ttl", 300*time.Second)
	v.SetDefault("cache-sweep-interval", 60*time.Second)
	v.SetDefault("sns-url", DefaultSNSURL)
	v.SetDefault("admin-key", "")
	v.SetDefault("use-memory", true)
	v.SetDefault("postgres-dsn", "")
	v.SetDefault("postgres-max-conns", 10)
	v.SetDefault("clickhouse-dsn", "")
	v.SetDefault("log-level", "info")
}

// RegisterFlags adds every config flag to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("listen-addr", DefaultListenAddr, "HTTP listen address")
	flags.String("rpc-url", DefaultRPCURL, "Solana RPC HTTP endpoint")
	flags.Float64("rpc-rate-limit", 10, "maximum RPC requests per second (0 disables)")
	flags.Int("rpc-max-retries", 3, "maximum RPC retry attempts")
	flags.Duration("query-timeout", 10*time.Second, "timeout of each ledger sub-query")
	flags.Int("signature-limit", 1000, "maximum signatures read per account")
	flags.Int("protocol-sample-size", 0, "recent transactions inspected for protocol interactions (0 disables)")
	flags.Duration("batch-timeout", 30*time.Second, "wall-clock timeout of a batch request")
	flags.Duration("cache-ttl", 300*time.Second, "score cache entry lifetime")
	flags.Duration("cache-sweep-interval", 60*time.Second, "interval between expired entry sweeps")
	flags.String("sns-url", DefaultSNSURL, "SNS proxy base URL")
	flags.String("admin-key", "", "key required by administrative endpoints")
	flags.Bool("use-memory", true, "keep score records and change events in memory")
	flags.String("postgres-dsn", "", "PostgreSQL connection string for score records")
	flags.Int("postgres-max-conns", 10, "maximum PostgreSQL pool connections")
	flags.String("clickhouse-dsn", "", "ClickHouse connection string for change events")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

// Load merges .env, config file, environment variables, and flags into Config.
// Flags that were set explicitly take precedence over the environment.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

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
		v.SetConfigName("blockscore")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		ListenAddr:         v.GetString("listen-addr"),
		RPCURL:             v.GetString("rpc-url"),
		RPCRateLimit:       v.GetFloat64("rpc-rate-limit"),
		RPCMaxRetries:      v.GetInt("rpc-max-retries"),
		QueryTimeout:       v.GetDuration("query-timeout"),
		SignatureLimit:     v.GetInt("signature-limit"),
		ProtocolSampleSize: v.GetInt("protocol-sample-size"),
		BatchTimeout:       v.GetDuration("batch-timeout"),
		CacheTTL:           v.GetDuration("cache-ttl"),
		CacheSweepInterval: v.GetDuration("cache-sweep-interval"),
		SNSURL:             v.GetString("sns-url"),
		AdminKey:           v.GetString("admin-key"),
		UseMemory:          v.GetBool("use-memory"),
		PostgresDSN:        v.GetString("postgres-dsn"),
		PostgresMaxConns:   v.GetInt("postgres-max-conns"),
		ClickhouseDSN:      v.GetString("clickhouse-dsn"),
		LogLevel:           v.GetString("log-level"),
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.QueryTimeout <= 0 || c.BatchTimeout <= 0 || c.CacheTTL <= 0 {
		return fmt.Errorf("timeouts and cache ttl must be positive")
	}
	if c.SignatureLimit <= 0 {
		return fmt.Errorf("signature limit must be positive, got %d", c.SignatureLimit)
	}
	if c.ProtocolSampleSize < 0 {
		return fmt.Errorf("protocol sample size must not be negative, got %d", c.ProtocolSampleSize)
	}
	if !c.UseMemory && c.PostgresDSN == "" && c.ClickhouseDSN == "" {
		return fmt.Errorf("postgres-dsn or clickhouse-dsn is required when use-memory is false")
	}
	return nil
}
