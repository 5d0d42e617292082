package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ServiceConfig holds configuration for the query commands.
type ServiceConfig struct {
	Config

	CacheBackend     string
	RedisAddr        string
	CacheTTL         time.Duration
	MetricsTTL       time.Duration
	BlockTime        time.Duration
	SamplesPerCandle int
	RequestTimeout   time.Duration

	FiatURL       string
	MetricsPoolA  string
	MetricsPoolB  string
	MetricsFiatID string
}

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	ServiceConfig
	Listen string
}

// Validate checks the service settings.
func (c ServiceConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	switch c.CacheBackend {
	case CacheMemory:
	case CacheRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	if c.BlockTime <= 0 {
		return fmt.Errorf("block-time must be > 0")
	}
	if c.SamplesPerCandle <= 0 {
		return fmt.Errorf("samples-per-candle must be > 0")
	}
	return nil
}

func setServiceDefaults(v *viper.Viper) {
	v.SetDefault("cache-backend", CacheMemory)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("cache-ttl", 5*time.Minute)
	v.SetDefault("metrics-ttl", time.Minute)
	v.SetDefault("block-time", 10*time.Minute)
	v.SetDefault("samples-per-candle", 4)
	v.SetDefault("request-timeout", 60*time.Second)
	v.SetDefault("fiat-url", "https://api.coingecko.com/api/v3")
}

func serviceConfig(v *viper.Viper) ServiceConfig {
	return ServiceConfig{
		Config:           sharedConfig(v),
		CacheBackend:     v.GetString("cache-backend"),
		RedisAddr:        v.GetString("redis-addr"),
		CacheTTL:         v.GetDuration("cache-ttl"),
		MetricsTTL:       v.GetDuration("metrics-ttl"),
		BlockTime:        v.GetDuration("block-time"),
		SamplesPerCandle: v.GetInt("samples-per-candle"),
		RequestTimeout:   v.GetDuration("request-timeout"),
		FiatURL:          v.GetString("fiat-url"),
		MetricsPoolA:     v.GetString("metrics-pool-a"),
		MetricsPoolB:     v.GetString("metrics-pool-b"),
		MetricsFiatID:    v.GetString("metrics-fiat-id"),
	}
}

// LoadQuery merges config file, environment variables, and flags into ServiceConfig.
func LoadQuery(cfgFile string, flags *pflag.FlagSet) (ServiceConfig, error) {
	v, err := load(cfgFile, flags, setServiceDefaults)
	if err != nil {
		return ServiceConfig{}, err
	}
	return serviceConfig(v), nil
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := load(cfgFile, flags, func(v *viper.Viper) {
		setServiceDefaults(v)
		v.SetDefault("listen", ":8080")
	})
	if err != nil {
		return ServeConfig{}, err
	}
	return ServeConfig{
		ServiceConfig: serviceConfig(v),
		Listen:        v.GetString("listen"),
	}, nil
}
