package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Archive sinks.
const (
	SinkJSONL      = "jsonl"
	SinkPostgres   = "postgres"
	SinkClickHouse = "clickhouse"
)

// ArchiveConfig holds configuration for the archive command.
type ArchiveConfig struct {
	Config

	Pool              string
	FromHeight        uint64
	ToHeight          uint64
	Stride            uint64
	BatchSize         uint64
	Sink              string
	Out               string
	Errors            string
	PGDSN             string
	ClickHouseDSN     string
	Checkpoint        string
	CheckpointEnabled bool
}

// Validate checks the archive settings.
func (c ArchiveConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.Pool == "" {
		return fmt.Errorf("pool is required")
	}
	if c.Stride == 0 {
		return fmt.Errorf("stride must be > 0")
	}
	if c.BatchSize == 0 {
		return fmt.Errorf("batch-size must be > 0")
	}
	if c.ToHeight != 0 && c.ToHeight < c.FromHeight {
		return fmt.Errorf("to must be >= from")
	}
	switch c.Sink {
	case SinkJSONL:
		if c.Out == "" {
			return fmt.Errorf("out is required for the jsonl sink")
		}
	case SinkPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres sink")
		}
	case SinkClickHouse:
		if c.ClickHouseDSN == "" {
			return fmt.Errorf("clickhouse-dsn is required for the clickhouse sink")
		}
	default:
		return fmt.Errorf("unknown sink %q", c.Sink)
	}
	return nil
}

// LoadArchive merges config file, environment variables, and flags into ArchiveConfig.
func LoadArchive(cfgFile string, flags *pflag.FlagSet) (ArchiveConfig, error) {
	v, err := load(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("stride", uint64(1))
		v.SetDefault("batch-size", uint64(500))
		v.SetDefault("sink", SinkJSONL)
		v.SetDefault("out", "./data/snapshots.jsonl")
		v.SetDefault("errors", "./data/sample_errors.jsonl")
		v.SetDefault("checkpoint", "./data/archive_checkpoint.json")
		v.SetDefault("checkpoint-enabled", true)
	})
	if err != nil {
		return ArchiveConfig{}, err
	}

	return ArchiveConfig{
		Config:            sharedConfig(v),
		Pool:              v.GetString("pool"),
		FromHeight:        v.GetUint64("from"),
		ToHeight:          v.GetUint64("to"),
		Stride:            v.GetUint64("stride"),
		BatchSize:         v.GetUint64("batch-size"),
		Sink:              v.GetString("sink"),
		Out:               v.GetString("out"),
		Errors:            v.GetString("errors"),
		PGDSN:             v.GetString("pg-dsn"),
		ClickHouseDSN:     v.GetString("clickhouse-dsn"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
	}, nil
}
