package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redhat-data-and-ai/favourites/pkg/persistence/badgerstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
app:
  name: favourites
apiServer:
  port: 8081
  auth:
    enabled: true
    mode: apikey
    apiKeys: [k1, k2]
    basicUsers:
      - username: admin
        password: hunter2
cache:
  driver: redis
  redis:
    host: localhost
    port: 6379
    password: redis-secret
favourites:
  backend: postgres
  cacheTTL: 5m
  postgres:
    dsn: postgres://fav:s3cret@db:5432/favourites
entities:
  source: remote
  remote:
    url: http://entities:9000
    api_token: tok-abc123
broadcast:
  driver: rabbitmq
  rabbitmq:
    url: amqp://guest:guest@mq:5672/
jobs:
  compaction:
    enabled: true
    interval: 1h
`

func setupConfigDir(t *testing.T, env, content string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, env+".yaml"), []byte(content), 0o600))
	t.Setenv(envConfigDir, dir)
}

func TestLoadConfig(t *testing.T) {
	setupConfigDir(t, "test", testYAML)
	t.Setenv("FAVOURITES_APISERVER_PORT", "9090")

	cfg, err := LoadConfig("test")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Environment)
	assert.Equal(t, 9090, cfg.APIServer.Port)
	assert.Equal(t, "0.0.0.0", cfg.APIServer.Host)
	assert.Equal(t, []string{"k1", "k2"}, cfg.APIServer.Auth.APIKeys)
	assert.Equal(t, 5*time.Minute, cfg.Favourites.CacheTTL)
	assert.Equal(t, BackendPostgres, cfg.Favourites.Backend)
	require.NotNil(t, cfg.Cache.Redis)
	assert.Equal(t, 6379, cfg.Cache.Redis.Port)
	assert.Equal(t, "http://entities:9000", cfg.Entities.Remote.URL)
	assert.Equal(t, time.Hour, cfg.Jobs.Compaction.Interval)

	got, err := GetConfig()
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestLoadConfig_EnvironmentFromEnv(t *testing.T) {
	setupConfigDir(t, "staging", "favourites:\n  badger:\n    in_memory: true\n")
	t.Setenv(envNameKey, "staging")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, BackendBadger, cfg.Favourites.Backend)
	assert.True(t, cfg.Favourites.Badger.InMemory)
	assert.Equal(t, 8080, cfg.APIServer.Port)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv(envConfigDir, t.TempDir())
		_, err := LoadConfig("nope")
		assert.Error(t, err)
	})

	t.Run("invalid selection", func(t *testing.T) {
		setupConfigDir(t, "bad", "favourites:\n  backend: mongo\n")
		_, err := LoadConfig("bad")
		assert.ErrorContains(t, err, "unsupported favourites backend")
	})
}

func TestValidate(t *testing.T) {
	valid := func() AppConfig {
		return AppConfig{
			Favourites: FavouritesConfig{Backend: BackendBadger},
			Entities:   EntitiesConfig{Source: EntitySourceMemory},
			Broadcast:  BroadcastConfig{Driver: BroadcastLocal},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{name: "badger needs a path", mutate: func(c *AppConfig) {}, wantErr: "favourites.badger.path"},
		{name: "in memory badger", mutate: func(c *AppConfig) { c.Favourites.Badger.InMemory = true }},
		{name: "postgres needs dsn", mutate: func(c *AppConfig) {
			c.Favourites.Badger.InMemory = true
			c.Entities.Source = EntitySourcePostgres
		}, wantErr: "dsn is required"},
		{name: "remote needs url", mutate: func(c *AppConfig) {
			c.Favourites.Badger.InMemory = true
			c.Entities.Source = EntitySourceRemote
		}, wantErr: "entities.remote.url"},
		{name: "rabbitmq needs url", mutate: func(c *AppConfig) {
			c.Favourites.Badger.InMemory = true
			c.Broadcast.Driver = BroadcastRabbitMQ
		}, wantErr: "broadcast.rabbitmq.url"},
		{name: "ldap auth needs server", mutate: func(c *AppConfig) {
			c.Favourites.Badger.InMemory = true
			c.APIServer.Auth = AuthConfig{Enabled: true, Mode: AuthModeLDAP}
		}, wantErr: "ldap.server"},
		{name: "seeded memory source", mutate: func(c *AppConfig) {
			c.Favourites.Badger.InMemory = true
			c.Entities.Types = []string{"SearchRequest"}
			c.Entities.Seed = []EntitySeed{{Type: "SearchRequest", ID: 1, Owner: "alice"}}
		}},
		{name: "seed of unregistered type", mutate: func(c *AppConfig) {
			c.Favourites.Badger.InMemory = true
			c.Entities.Types = []string{"SearchRequest"}
			c.Entities.Seed = []EntitySeed{{Type: "Dashboard", ID: 1}}
		}, wantErr: "unregistered type"},
		{name: "seed needs positive id", mutate: func(c *AppConfig) {
			c.Favourites.Badger.InMemory = true
			c.Entities.Types = []string{"SearchRequest"}
			c.Entities.Seed = []EntitySeed{{Type: "SearchRequest"}}
		}, wantErr: "id must be positive"},
		{name: "seed with remote source", mutate: func(c *AppConfig) {
			c.Favourites.Badger.InMemory = true
			c.Entities.Source = EntitySourceRemote
			c.Entities.Remote.URL = "http://entities:9000"
			c.Entities.Seed = []EntitySeed{{Type: "SearchRequest", ID: 1}}
		}, wantErr: "only used by the memory source"},
		{name: "compaction needs interval", mutate: func(c *AppConfig) {
			c.Favourites.Badger.InMemory = true
			c.Jobs.Compaction.Enabled = true
		}, wantErr: "jobs.compaction.interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPersistentFavourites(t *testing.T) {
	tests := []struct {
		name string
		fav  FavouritesConfig
		want bool
	}{
		{name: "badger on disk", fav: FavouritesConfig{Backend: BackendBadger, Badger: badgerstore.Config{Path: "/data"}}, want: true},
		{name: "badger in memory", fav: FavouritesConfig{Backend: BackendBadger, Badger: badgerstore.InMemoryConfig()}},
		{name: "postgres", fav: FavouritesConfig{Backend: BackendPostgres}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Favourites: tt.fav}
			assert.Equal(t, tt.want, cfg.PersistentFavourites())
		})
	}
}

func TestDump_RedactsSecrets(t *testing.T) {
	setupConfigDir(t, "test", testYAML)
	cfg, err := LoadConfig("test")
	require.NoError(t, err)

	out, err := Dump(cfg)
	require.NoError(t, err)
	text := string(out)

	for _, secret := range []string{"k1", "hunter2", "redis-secret", "s3cret", "guest:guest", "tok-abc123"} {
		assert.NotContains(t, text, secret)
	}
	assert.Contains(t, text, "postgres://fav:****@db:5432/favourites")
	assert.Contains(t, text, "username: admin")

	// the loaded config is untouched
	assert.Equal(t, "hunter2", cfg.APIServer.Auth.BasicUsers[0].Password)
	assert.Equal(t, "redis-secret", cfg.Cache.Redis.Password)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "", redactURL(""))
	assert.Equal(t, "host=db user=fav password=**** dbname=favourites",
		redactURL("host=db user=fav password=s3cret dbname=favourites"))
	assert.Equal(t, "amqp://mq:5672/", redactURL("amqp://mq:5672/"))
}
