package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Sampling modes.
const (
	SamplingClient = "client"
	SamplingScript = "script"
)

// Config holds the settings shared by every command.
type Config struct {
	RPCURL       string
	PoolsFile    string
	LogLevel     string
	MaxRetries   int
	RetryBackoff time.Duration
	Concurrency  int
	SamplingMode string
	ScriptFile   string
}

// Validate checks the shared settings.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	switch c.SamplingMode {
	case SamplingClient:
	case SamplingScript:
		if c.ScriptFile == "" {
			return fmt.Errorf("script-file is required in script sampling mode")
		}
	default:
		return fmt.Errorf("unknown sampling mode %q", c.SamplingMode)
	}
	return nil
}

// load merges config file, .env, environment variables, and flags. Command
// loaders register their own defaults through setDefaults.
func load(cfgFile string, flags *pflag.FlagSet, setDefaults func(v *viper.Viper)) (*viper.Viper, error) {
	LoadDotenv()

	v := viper.New()
	v.SetEnvPrefix("POOLSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("pools-file", "./pools.yaml")
	v.SetDefault("log-level", "info")
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("concurrency", 8)
	v.SetDefault("sampling-mode", SamplingClient)
	if setDefaults != nil {
		setDefaults(v)
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
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func sharedConfig(v *viper.Viper) Config {
	return Config{
		RPCURL:       v.GetString("rpc"),
		PoolsFile:    v.GetString("pools-file"),
		LogLevel:     v.GetString("log-level"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Concurrency:  v.GetInt("concurrency"),
		SamplingMode: strings.ToLower(v.GetString("sampling-mode")),
		ScriptFile:   v.GetString("script-file"),
	}
}
