// Package config loads Provider settings from the environment.
//
// Variables use the TILECACHE_ prefix, e.g.
//
//	TILECACHE_SOURCE_URL=https://{s}.tile.example.com/{z}/{x}/{y}.png
//	TILECACHE_SOURCE_SUBDOMAINS=a,b,c
//	TILECACHE_CAPACITY=512
//	TILECACHE_HTTP_STORE=redis
//	TILECACHE_REDIS_ADDR=localhost:6379
//
// A .env file is read first when present.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/unkn0wn-root/tilecache"
	"github.com/unkn0wn-root/tilecache/codec"
	"github.com/unkn0wn-root/tilecache/decode"
	"github.com/unkn0wn-root/tilecache/executor"
	"github.com/unkn0wn-root/tilecache/httpcache"
	"github.com/unkn0wn-root/tilecache/store"
	"github.com/unkn0wn-root/tilecache/store/bigcache"
	"github.com/unkn0wn-root/tilecache/store/redis"
	"github.com/unkn0wn-root/tilecache/store/ristretto"
	"github.com/unkn0wn-root/tilecache/store/sqlite"
	"github.com/unkn0wn-root/tilecache/tile"
)

const Prefix = "TILECACHE_"

// Store kinds for HTTP.Store.
const (
	StoreMemory   = "memory"
	StoreBigcache = "bigcache"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StoreNone     = "none"
)

// DebugSource selects tile.Debug instead of a URL template.
const DebugSource = "debug"

type (
	Config struct {
		Source   Source   `envPrefix:"SOURCE_"`
		Cache    Cache    `envPrefix:"CACHE_"`
		HTTP     HTTP     `envPrefix:"HTTP_"`
		Memory   Memory   `envPrefix:"MEMORY_"`
		Bigcache Bigcache `envPrefix:"BIGCACHE_"`
		Redis    Redis    `envPrefix:"REDIS_"`
		SQLite   SQLite   `envPrefix:"SQLITE_"`
		Logger   Logger   `envPrefix:"LOGGER_"`

		Capacity    int      `env:"CAPACITY" envDefault:"256" validate:"min=1"`
		Concurrency int      `env:"CONCURRENCY" envDefault:"6" validate:"min=1,max=64"`
		Formats     []string `env:"FORMATS" envDefault:"png,jpeg" validate:"min=1,dive,oneof=png jpeg webp"`
	}

	Source struct {
		// URL is a {z}/{x}/{y} template, or "debug".
		URL        string   `env:"URL" envDefault:"https://tile.openstreetmap.org/{z}/{x}/{y}.png" validate:"required"`
		Subdomains []string `env:"SUBDOMAINS"`
		UserAgent  string   `env:"USER_AGENT" envDefault:"tilecache/1.0"`
	}

	Cache struct {
		FailureCooldown time.Duration `env:"FAILURE_COOLDOWN" envDefault:"30s" validate:"gt=0"`
		NetworkCooldown time.Duration `env:"NETWORK_COOLDOWN" envDefault:"5s" validate:"gt=0"`
	}

	HTTP struct {
		Store     string        `env:"STORE" envDefault:"memory" validate:"oneof=memory bigcache redis sqlite none"`
		Codec     string        `env:"CODEC" envDefault:"cbor" validate:"oneof=cbor msgpack json"`
		Namespace string        `env:"NAMESPACE" envDefault:"tiles"`
		TTL       time.Duration `env:"TTL" envDefault:"168h" validate:"gt=0"`
		Timeout   time.Duration `env:"TIMEOUT" envDefault:"30s" validate:"gt=0"`

		// Stored responses larger than this are treated as corrupt; 0 disables.
		MaxRecordKiB int `env:"MAX_RECORD_KIB" envDefault:"16384" validate:"min=0"`
	}

	Memory struct {
		MaxCostMB int64 `env:"MAX_COST_MB" envDefault:"64" validate:"min=1"`
	}

	Bigcache struct {
		LifeWindow  time.Duration `env:"LIFE_WINDOW" envDefault:"24h"`
		HardMaxMB   int           `env:"HARD_MAX_MB" envDefault:"256"`
		MaxEntryKiB int           `env:"MAX_ENTRY_KIB" envDefault:"64"`
	}

	Redis struct {
		Addr     string `env:"ADDR" envDefault:"localhost:6379"`
		Password string `env:"PASSWORD"`
		DB       int    `env:"DB" envDefault:"0" validate:"min=0"`
		Prefix   string `env:"PREFIX"`
	}

	SQLite struct {
		Path string `env:"PATH" envDefault:"tilecache.db"`
	}

	Logger struct {
		Level string `env:"LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	}
)

// Load reads the given .env files (".env" when none are named; missing files
// are skipped), then the environment, and validates the result.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}

	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: Prefix})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Source.URL != DebugSource {
		if err := c.template().Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

func (c *Config) template() tile.Template {
	return tile.Template{URL: c.Source.URL, Subdomains: c.Source.Subdomains}
}

// Options builds tilecache options, opening the configured HTTP store. The
// returned Options own the store; it is closed by Provider.Close.
func (c *Config) Options(log tilecache.Logger) (tilecache.Options, error) {
	opts := tilecache.Options{
		Capacity:        c.Capacity,
		FailureCooldown: c.Cache.FailureCooldown,
		NetworkCooldown: c.Cache.NetworkCooldown,
		UserAgent:       c.Source.UserAgent,
		HTTPNamespace:   c.HTTP.Namespace,
		HTTPTTL:         c.HTTP.TTL,
		HTTPTimeout:     c.HTTP.Timeout,
		Logger:          log,
	}
	if c.Source.URL == DebugSource {
		opts.Source = tile.Debug{}
	} else {
		opts.Source = c.template()
	}

	for _, s := range c.Formats {
		f, err := decode.ParseFormat(s)
		if err != nil {
			return tilecache.Options{}, fmt.Errorf("config: %w", err)
		}
		opts.Formats = append(opts.Formats, f)
	}

	cd, err := codec.ByName[httpcache.Record](c.HTTP.Codec)
	if err != nil {
		return tilecache.Options{}, fmt.Errorf("config: %w", err)
	}
	if c.HTTP.MaxRecordKiB > 0 {
		cd = codec.Limit[httpcache.Record]{Inner: cd, MaxDecode: c.HTTP.MaxRecordKiB << 10}
	}
	opts.HTTPCodec = cd

	if c.HTTP.Store == StoreNone {
		opts.HTTPClient = &http.Client{Timeout: c.HTTP.Timeout}
	} else {
		sp, err := c.openStore()
		if err != nil {
			return tilecache.Options{}, fmt.Errorf("config: open %s store: %w", c.HTTP.Store, err)
		}
		opts.HTTPStore = sp
	}
	opts.Executor = executor.Default(c.Concurrency)
	return opts, nil
}

func (c *Config) openStore() (store.Provider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch c.HTTP.Store {
	case StoreMemory:
		rc := ristretto.DefaultConfig()
		rc.MaxCost = c.Memory.MaxCostMB << 20
		return ristretto.New(rc)
	case StoreBigcache:
		return bigcache.New(bigcache.Config{
			LifeWindow:         c.Bigcache.LifeWindow,
			HardMaxCacheSizeMB: c.Bigcache.HardMaxMB,
			MaxEntrySize:       c.Bigcache.MaxEntryKiB << 10,
		})
	case StoreRedis:
		return redis.Dial(ctx, c.Redis.Addr, c.Redis.Password, c.Redis.DB, c.Redis.Prefix)
	case StoreSQLite:
		return sqlite.Open(ctx, sqlite.Config{Path: c.SQLite.Path})
	}
	return nil, fmt.Errorf("unknown store %q", c.HTTP.Store)
}
