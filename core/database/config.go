package database

import (
	"net"
	"net/url"
	"strings"

	coreconfig "github.com/crisszkutnik/telegram-bot/core/config"
)

// Config holds Postgres connection settings.
type Config = coreconfig.DatabaseConfig

var dsnQuoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// keywordDSN renders cfg in lib/pq keyword form. Values are single-quoted so
// passwords may contain spaces.
func keywordDSN(cfg Config) string {
	pairs := [][2]string{
		{"user", cfg.User},
		{"password", cfg.Password},
		{"host", cfg.Host},
		{"port", cfg.Port},
		{"dbname", cfg.Name},
		{"sslmode", cfg.SSLMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		if kv[1] == "" {
			continue
		}
		parts = append(parts, kv[0]+"='"+dsnQuoter.Replace(kv[1])+"'")
	}
	return strings.Join(parts, " ")
}

// urlDSN renders cfg as a postgres:// URL for golang-migrate.
func urlDSN(cfg Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}
