package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/jacentio/docket/dynamo"
	"github.com/jacentio/docket/store"
)

// Config is the reindexer configuration, read from the environment.
type Config struct {
	Store  store.Config
	Dynamo dynamo.Config

	// SearchFields maps collection names to the fields indexed into their
	// token map, e.g. "customers:name|email,products:title".
	SearchFields map[string]string `env:"DOCKET_SEARCH_FIELDS"`

	LogLevel string `env:"DOCKET_LOG_LEVEL" env-default:"info"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

// registry builds one descriptor per configured collection.
func (c Config) registry() (*store.Registry, error) {
	names := make([]string, 0, len(c.SearchFields))
	for name := range c.SearchFields {
		names = append(names, name)
	}
	sort.Strings(names)

	r := store.NewRegistry()
	for _, name := range names {
		var fields []string
		for _, f := range strings.Split(c.SearchFields[name], "|") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("collection %q has no search fields", name)
		}
		r.Register(&store.Descriptor{Name: strings.TrimSpace(name), SearchFields: fields})
	}
	return r, nil
}

func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
