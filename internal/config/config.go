package config

import (
	"log/slog"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v2"
)

// =============================================================================
// Distributor Go Service - Configuration with Environment Overrides
// =============================================================================

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Chain    ChainConfig    `yaml:"chain"`
	Shards   ShardsConfig   `yaml:"shards"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Supabase SupabaseConfig `yaml:"supabase"`
	PubSub   PubSubConfig   `yaml:"pubsub"`
	Clawback ClawbackConfig `yaml:"clawback"`
}

type ServerConfig struct {
	Port            string `yaml:"port"`
	Env             string `yaml:"env"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	IdleTimeoutSec  int    `yaml:"idle_timeout_sec"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_sec"`
}

// ChainConfig points at the runtime this service reads distributor and
// claim-status accounts from, and streams updates for (C6).
type ChainConfig struct {
	RPCURL      string `yaml:"rpc_url"`
	StreamAddr  string `yaml:"stream_addr"` // gRPC account-subscription endpoint
	ProgramID   string `yaml:"program_id"`
	MintAddress string `yaml:"mint_address"`
}

// ShardsConfig locates the shard artifact directory the proof cache (C5)
// loads at startup.
type ShardsConfig struct {
	Dir          string `yaml:"dir"`
	MaxShardSize int    `yaml:"max_shard_size"`
}

type CacheConfig struct {
	RefreshIntervalSec int `yaml:"refresh_interval_sec"`
}

// RedisConfig backs the multi-replica claim-status cache mirror (C6).
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	KeyPrefix string `yaml:"key_prefix"`
	Enabled   bool   `yaml:"enabled"`
}

// SupabaseConfig is the optional shard-artifact storage mirror (C3).
type SupabaseConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
	Bucket     string `yaml:"bucket"`
	Enabled    bool   `yaml:"enabled"`
}

// PubSubConfig is the durable event-bus publish target (C8).
type PubSubConfig struct {
	ProjectID string `yaml:"project_id"`
	TopicID   string `yaml:"topic_id"`
	Enabled   bool   `yaml:"enabled"`
}

type ClawbackConfig struct {
	MinDelaySec   int64 `yaml:"min_delay_sec"`
	MaxHorizonSec int64 `yaml:"max_horizon_sec"`
}

// =============================================================================
// Singleton Pattern with Environment Overrides
// =============================================================================

var (
	instance *Config
	once     sync.Once
)

// Get returns the singleton config instance
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load config file (using defaults)", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		instance = cfg
	})
	return instance
}

// LoadConfig loads config from a YAML file
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Env = getEnv("DISTRIBUTOR_ENV", c.Server.Env)
	if v := getEnvInt("SERVER_READ_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ReadTimeoutSec = v
	}
	if v := getEnvInt("SERVER_WRITE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.WriteTimeoutSec = v
	}
	if v := getEnvInt("SERVER_IDLE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.IdleTimeoutSec = v
	}
	if v := getEnvInt("SERVER_SHUTDOWN_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ShutdownTimeout = v
	}

	c.Chain.RPCURL = getEnv("CHAIN_RPC_URL", c.Chain.RPCURL)
	c.Chain.StreamAddr = getEnv("CHAIN_STREAM_ADDR", c.Chain.StreamAddr)
	c.Chain.ProgramID = getEnv("CHAIN_PROGRAM_ID", c.Chain.ProgramID)
	c.Chain.MintAddress = getEnv("CHAIN_MINT_ADDRESS", c.Chain.MintAddress)

	c.Shards.Dir = getEnv("SHARDS_DIR", c.Shards.Dir)
	if v := getEnvInt("SHARDS_MAX_SIZE", 0); v > 0 {
		c.Shards.MaxShardSize = v
	}

	if v := getEnvInt("CACHE_REFRESH_INTERVAL_SEC", 0); v > 0 {
		c.Cache.RefreshIntervalSec = v
	}

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", c.Redis.KeyPrefix)
	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)

	c.Supabase.URL = getEnv("SUPABASE_URL", c.Supabase.URL)
	c.Supabase.ServiceKey = getEnv("SUPABASE_SERVICE_KEY", c.Supabase.ServiceKey)
	c.Supabase.Bucket = getEnv("SUPABASE_BUCKET", c.Supabase.Bucket)
	c.Supabase.Enabled = getEnvBool("SUPABASE_ENABLED", c.Supabase.Enabled)

	if projectID := getEnv("GCP_PROJECT_ID", ""); projectID != "" {
		c.PubSub.ProjectID = projectID
	}
	c.PubSub.TopicID = getEnv("PUBSUB_TOPIC_ID", c.PubSub.TopicID)
	c.PubSub.Enabled = getEnvBool("PUBSUB_ENABLED", c.PubSub.Enabled)

	if v := getEnvInt64("CLAWBACK_MIN_DELAY_SEC", 0); v > 0 {
		c.Clawback.MinDelaySec = v
	}
	if v := getEnvInt64("CLAWBACK_MAX_HORIZON_SEC", 0); v > 0 {
		c.Clawback.MaxHorizonSec = v
	}

	c.applyDefaults()
}

// applyDefaults sets sensible defaults for zero-valued config fields
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 15
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30
	}
	if c.Shards.MaxShardSize == 0 {
		c.Shards.MaxShardSize = 12_000
	}
	if c.Cache.RefreshIntervalSec == 0 {
		c.Cache.RefreshIntervalSec = 30
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "distributor:claims:"
	}
	if c.Supabase.Bucket == "" {
		c.Supabase.Bucket = "distributor-shards"
	}
	if c.PubSub.TopicID == "" {
		c.PubSub.TopicID = "distributor-events"
	}
	if c.Clawback.MinDelaySec == 0 {
		c.Clawback.MinDelaySec = 24 * 60 * 60
	}
	if c.Clawback.MaxHorizonSec == 0 {
		c.Clawback.MaxHorizonSec = 180 * 24 * 60 * 60
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

