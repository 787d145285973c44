package postgres

import (
	"fmt"

	"github.com/cutroom/cutroom-backend/config"
)

// DSN returns cfg.URL when set, otherwise builds a key/value DSN from the
// individual connection settings.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)
}
