package config

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/goccy/go-yaml"
)

const redacted = "****"

var dsnPassword = regexp.MustCompile(`password=\S+`)

// Dump renders the effective configuration as YAML with every secret redacted
func Dump(cfg *AppConfig) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	out, err := yaml.Marshal(redact(*cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}

func redact(cfg AppConfig) AppConfig {
	if len(cfg.APIServer.Auth.APIKeys) > 0 {
		keys := make([]string, len(cfg.APIServer.Auth.APIKeys))
		for i := range keys {
			keys[i] = redacted
		}
		cfg.APIServer.Auth.APIKeys = keys
	}
	if len(cfg.APIServer.Auth.BasicUsers) > 0 {
		users := make([]BasicUser, len(cfg.APIServer.Auth.BasicUsers))
		for i, u := range cfg.APIServer.Auth.BasicUsers {
			users[i] = BasicUser{Username: u.Username, Password: redacted}
		}
		cfg.APIServer.Auth.BasicUsers = users
	}

	if cfg.Cache.Redis != nil && cfg.Cache.Redis.Password != "" {
		r := *cfg.Cache.Redis
		r.Password = redacted
		cfg.Cache.Redis = &r
	}

	cfg.Favourites.Postgres.DSN = redactURL(cfg.Favourites.Postgres.DSN)
	cfg.Broadcast.RabbitMQ.URL = redactURL(cfg.Broadcast.RabbitMQ.URL)
	if cfg.Entities.Remote.APIToken != "" {
		cfg.Entities.Remote.APIToken = redacted
	}
	return cfg
}

// redactURL hides the password of URL style and key=value style connection strings
func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), redacted)
			return u.String()
		}
		return raw
	}
	return dsnPassword.ReplaceAllString(raw, "password="+redacted)
}
