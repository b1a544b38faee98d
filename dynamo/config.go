package dynamo

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds configuration for the DynamoDB backend.
type Config struct {
	// Table is the single table holding every collection.
	// Default: "docket"
	Table string `yaml:"table" env:"DOCKET_TABLE" env-default:"docket"`

	// GroupIndex is the GSI keyed on the leaf collection name, used by
	// collection-group queries.
	// Default: "grp-index"
	GroupIndex string `yaml:"group_index" env:"DOCKET_GROUP_INDEX" env-default:"grp-index"`

	// ConsistentRead makes reads outside transactions strongly consistent.
	// Transactional reads are always strongly consistent.
	// Default: true
	ConsistentRead bool `yaml:"consistent_read" env:"DOCKET_CONSISTENT_READ" env-default:"true"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Table:          "docket",
		GroupIndex:     "grp-index",
		ConsistentRead: true,
	}
}

// ConfigFromEnv reads the configuration from DOCKET_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("dynamo config: read env: %w", err)
	}
	cfg.validate()
	return cfg, nil
}

// validate fills empty values with defaults.
func (c *Config) validate() {
	def := DefaultConfig()
	if c.Table == "" {
		c.Table = def.Table
	}
	if c.GroupIndex == "" {
		c.GroupIndex = def.GroupIndex
	}
}
