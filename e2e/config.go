package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_TIMEOUT bounds every eventual assertion of a scenario
	Timeout time.Duration `envconfig:"E2E_TIMEOUT" default:"5s"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_VERBOSE routes node logs to the test output
	Verbose bool   `envconfig:"E2E_VERBOSE" default:"false"`
	TeamTag string `envconfig:"E2E_TEAM_TAG" default:"CryptoCrafters"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
