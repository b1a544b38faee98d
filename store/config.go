package store

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds configuration for the Store.
type Config struct {
	// AutonumberCollection is the collection holding one counter document per
	// resolved collection path.
	// Default: "Autonumbers"
	AutonumberCollection string `yaml:"autonumber_collection" env:"DOCKET_AUTONUMBER_COLLECTION" env-default:"Autonumbers"`

	// ArchiveSuffix is appended to a collection path to form its archive collection.
	// Default: "_archive"
	ArchiveSuffix string `yaml:"archive_suffix" env:"DOCKET_ARCHIVE_SUFFIX" env-default:"_archive"`

	// SystemActor is stamped into uid on every write.
	// Default: "system"
	SystemActor string `yaml:"system_actor" env:"DOCKET_SYSTEM_ACTOR" env-default:"system"`

	// TokenMapField is the field holding the N-gram search index.
	// Default: "tokenMap"
	TokenMapField string `yaml:"token_map_field" env:"DOCKET_TOKEN_MAP_FIELD" env-default:"tokenMap"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AutonumberCollection: "Autonumbers",
		ArchiveSuffix:        "_archive",
		SystemActor:          "system",
		TokenMapField:        "tokenMap",
	}
}

// ConfigFromEnv reads the configuration from DOCKET_* environment variables,
// falling back to the defaults.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	cfg.validate()
	return cfg, nil
}

// validate fills empty values with defaults.
func (c *Config) validate() {
	def := DefaultConfig()
	if c.AutonumberCollection == "" {
		c.AutonumberCollection = def.AutonumberCollection
	}
	if c.ArchiveSuffix == "" {
		c.ArchiveSuffix = def.ArchiveSuffix
	}
	if c.SystemActor == "" {
		c.SystemActor = def.SystemActor
	}
	if c.TokenMapField == "" {
		c.TokenMapField = def.TokenMapField
	}
}
