package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays SAS_* variables onto c. Unset variables leave the
// current value in place.
func parseEnv(c *Config) error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
