package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/redhat-data-and-ai/favourites/pkg/cache"
	"github.com/redhat-data-and-ai/favourites/pkg/clients/entityservice"
	"github.com/redhat-data-and-ai/favourites/pkg/events/rabbitmq"
	"github.com/redhat-data-and-ai/favourites/pkg/persistence/badgerstore"
	"github.com/redhat-data-and-ai/favourites/pkg/persistence/postgres"
	"github.com/redhat-data-and-ai/favourites/pkg/telemetry"
	"github.com/spf13/viper"
)

const (
	EnvPrefix    = "FAVOURITES"
	defaultEnv   = "local"
	defaultDir   = "./config"
	envNameKey   = "FAVOURITES_ENV"
	envConfigDir = "FAVOURITES_CONFIG_DIR"
)

const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"

	EntitySourceMemory   = "memory"
	EntitySourcePostgres = "postgres"
	EntitySourceRemote   = "remote"

	BroadcastLocal    = "local"
	BroadcastRabbitMQ = "rabbitmq"

	AuthModeAPIKey = "apikey"
	AuthModeBasic  = "basic"
	AuthModeLDAP   = "ldap"
)

type AppConfig struct {
	App        App               `mapstructure:"app" yaml:"app"`
	APIServer  APIServerConfig   `mapstructure:"apiServer" yaml:"apiServer"`
	LDAP       LDAP              `mapstructure:"ldap" yaml:"ldap"`
	Cache      cache.Config      `mapstructure:"cache" yaml:"cache"`
	Favourites FavouritesConfig  `mapstructure:"favourites" yaml:"favourites"`
	Entities   EntitiesConfig    `mapstructure:"entities" yaml:"entities"`
	Broadcast  BroadcastConfig   `mapstructure:"broadcast" yaml:"broadcast"`
	Telemetry  telemetry.Config  `mapstructure:"telemetry" yaml:"telemetry"`
	Jobs       JobsConfig        `mapstructure:"jobs" yaml:"jobs"`
}

type App struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Version     string `mapstructure:"version" yaml:"version"`
	Environment string `mapstructure:"environment" yaml:"environment"`
	LogLevel    string `mapstructure:"logLevel" yaml:"logLevel"`
	LogFormat   string `mapstructure:"logFormat" yaml:"logFormat"`
}

type APIServerConfig struct {
	Host string     `mapstructure:"host" yaml:"host"`
	Port int        `mapstructure:"port" yaml:"port"`
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`
	CORS CORSConfig `mapstructure:"cors" yaml:"cors"`
}

type AuthConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Mode is one of apikey, basic or ldap
	Mode       string      `mapstructure:"mode" yaml:"mode"`
	APIKeys    []string    `mapstructure:"apiKeys" yaml:"apiKeys"`
	BasicUsers []BasicUser `mapstructure:"basicUsers" yaml:"basicUsers"`
	// AdminUsers may call the admin routes in basic and ldap mode. API key
	// callers are services and always pass
	AdminUsers []string `mapstructure:"adminUsers" yaml:"adminUsers"`
}

type BasicUser struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins" yaml:"allowedOrigins"`
	AllowedMethods []string `mapstructure:"allowedMethods" yaml:"allowedMethods"`
	AllowedHeaders []string `mapstructure:"allowedHeaders" yaml:"allowedHeaders"`
}

type LDAP struct {
	Server string `mapstructure:"server" yaml:"server"`
	// UserDN is a format string taking the username, e.g. uid=%s,ou=users,dc=example,dc=com
	UserDN string `mapstructure:"userDN" yaml:"userDN"`
	// BaseUserDN, when set, is searched after the bind to resolve the canonical uid
	BaseUserDN string `mapstructure:"baseUserDN" yaml:"baseUserDN"`
}

// FavouritesConfig selects the persistent store and the cache entry TTL
type FavouritesConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	// CacheTTL of 0 keeps cache entries until they are invalidated
	CacheTTL time.Duration      `mapstructure:"cacheTTL" yaml:"cacheTTL"`
	Postgres postgres.Config    `mapstructure:"postgres" yaml:"postgres"`
	Badger   badgerstore.Config `mapstructure:"badger" yaml:"badger"`
}

// EntitiesConfig selects where shared entities are resolved from
type EntitiesConfig struct {
	Source string               `mapstructure:"source" yaml:"source"`
	Types  []string             `mapstructure:"types" yaml:"types"`
	Remote entityservice.Config `mapstructure:"remote" yaml:"remote"`
	// Seed is loaded into the memory source at startup
	Seed []EntitySeed `mapstructure:"seed" yaml:"seed,omitempty"`
}

// EntitySeed describes one shared entity of the memory source
type EntitySeed struct {
	Type     string   `mapstructure:"type" yaml:"type"`
	ID       int64    `mapstructure:"id" yaml:"id"`
	Name     string   `mapstructure:"name" yaml:"name"`
	Owner    string   `mapstructure:"owner" yaml:"owner"`
	Public   bool     `mapstructure:"public" yaml:"public"`
	Grantees []string `mapstructure:"grantees" yaml:"grantees,omitempty"`
}

type BroadcastConfig struct {
	Driver   string          `mapstructure:"driver" yaml:"driver"`
	RabbitMQ rabbitmq.Config `mapstructure:"rabbitmq" yaml:"rabbitmq"`
}

type JobsConfig struct {
	Compaction PeriodicJobConfig `mapstructure:"compaction" yaml:"compaction"`
}

type PeriodicJobConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

var (
	mu     sync.Mutex
	loaded *AppConfig
)

// LoadConfig reads config/<environment>.yaml and applies FAVOURITES_* environment
// overrides, e.g. FAVOURITES_APISERVER_PORT. An empty environment is taken from
// FAVOURITES_ENV and defaults to local. The result becomes the GetConfig singleton
func LoadConfig(environment string) (*AppConfig, error) {
	// a missing .env file is normal outside of local development
	_ = godotenv.Load()

	if environment == "" {
		environment = os.Getenv(envNameKey)
	}
	if environment == "" {
		environment = defaultEnv
	}
	dir := os.Getenv(envConfigDir)
	if dir == "" {
		dir = defaultDir
	}

	v := viper.New()
	v.SetConfigName(environment)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s from %s: %w", environment, dir, err)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = environment
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	mu.Lock()
	loaded = cfg
	mu.Unlock()
	return cfg, nil
}

// GetConfig returns the loaded configuration, loading it on first use
func GetConfig() (*AppConfig, error) {
	mu.Lock()
	cfg := loaded
	mu.Unlock()
	if cfg != nil {
		return cfg, nil
	}
	return LoadConfig("")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "favourites")
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.logFormat", "json")
	v.SetDefault("apiServer.host", "0.0.0.0")
	v.SetDefault("apiServer.port", 8080)
	v.SetDefault("apiServer.auth.enabled", false)
	v.SetDefault("apiServer.auth.mode", AuthModeAPIKey)
	v.SetDefault("cache.driver", cache.DriverMemory)
	v.SetDefault("favourites.backend", BackendBadger)
	v.SetDefault("favourites.cacheTTL", "0s")
	v.SetDefault("favourites.badger.in_memory", false)
	v.SetDefault("favourites.badger.path", "./data/favourites")
	v.SetDefault("favourites.postgres.dsn", "")
	v.SetDefault("entities.source", EntitySourceMemory)
	v.SetDefault("entities.remote.url", "")
	v.SetDefault("broadcast.driver", BroadcastLocal)
	v.SetDefault("broadcast.rabbitmq.url", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("jobs.compaction.enabled", false)
	v.SetDefault("jobs.compaction.interval", "24h")
}

// PersistentFavourites reports whether favourites outlive the process
func (c *AppConfig) PersistentFavourites() bool {
	switch c.Favourites.Backend {
	case BackendPostgres:
		return true
	case BackendBadger:
		return !c.Favourites.Badger.InMemory
	}
	return false
}

// Validate checks the selections that the wiring relies on
func (c *AppConfig) Validate() error {
	var errs []error

	switch c.Favourites.Backend {
	case BackendBadger:
		if !c.Favourites.Badger.InMemory && c.Favourites.Badger.Path == "" {
			errs = append(errs, errors.New("favourites.badger.path is required unless in_memory is set"))
		}
	case BackendPostgres:
		if c.Favourites.Postgres.DSN == "" {
			errs = append(errs, errors.New("favourites.postgres.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported favourites backend: %q", c.Favourites.Backend))
	}

	switch c.Entities.Source {
	case EntitySourceMemory:
		for _, seed := range c.Entities.Seed {
			if !slices.Contains(c.Entities.Types, seed.Type) {
				errs = append(errs, fmt.Errorf("entities.seed: %s:%d has an unregistered type", seed.Type, seed.ID))
			}
			if seed.ID <= 0 {
				errs = append(errs, fmt.Errorf("entities.seed: %s id must be positive", seed.Type))
			}
		}
	case EntitySourcePostgres:
		if c.Favourites.Postgres.DSN == "" {
			errs = append(errs, errors.New("favourites.postgres.dsn is required for postgres entities"))
		}
	case EntitySourceRemote:
		if c.Entities.Remote.URL == "" {
			errs = append(errs, errors.New("entities.remote.url is required for remote entities"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported entities source: %q", c.Entities.Source))
	}

	switch c.Broadcast.Driver {
	case BroadcastLocal:
	case BroadcastRabbitMQ:
		if c.Broadcast.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("broadcast.rabbitmq.url is required for the rabbitmq driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported broadcast driver: %q", c.Broadcast.Driver))
	}

	if c.APIServer.Auth.Enabled {
		switch c.APIServer.Auth.Mode {
		case AuthModeAPIKey, AuthModeBasic:
		case AuthModeLDAP:
			if c.LDAP.Server == "" || c.LDAP.UserDN == "" {
				errs = append(errs, errors.New("ldap.server and ldap.userDN are required for ldap auth"))
			}
		default:
			errs = append(errs, fmt.Errorf("unsupported auth mode: %q", c.APIServer.Auth.Mode))
		}
	}

	if len(c.Entities.Seed) > 0 && c.Entities.Source != EntitySourceMemory {
		errs = append(errs, errors.New("entities.seed is only used by the memory source"))
	}

	if c.Jobs.Compaction.Enabled && c.Jobs.Compaction.Interval <= 0 {
		errs = append(errs, errors.New("jobs.compaction.interval must be positive"))
	}

	return errors.Join(errs...)
}
