package postgres

import (
	"net"
	"net/url"
	"strconv"

	"github.com/GoSim-25-26J-441/diagram-service/config"
)

// DSN renders the database config as a postgres:// URL. Credentials are
// escaped, so passwords may contain any character.
func DSN(cfg *config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}
