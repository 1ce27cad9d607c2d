package config

import (
	"fmt"
	"os"
	"strings"
)

// DefaultBaseURL is the management API root used when no override is given.
const DefaultBaseURL = "https://manage.kontent.ai/v2"

// Environment holds the coordinates of one management API environment.
type Environment struct {
	EnvironmentID string
	APIKey        string
	BaseURL       string
}

// Config holds CLI configuration for a run.
type Config struct {
	Source Environment
	Target Environment
	Output string // "table", "json"
}

// Load reads configuration defaults from environment variables.
// Flags parsed by the commands override anything loaded here.
func Load() *Config {
	cfg := &Config{Output: "table"}

	cfg.Source.APIKey = os.Getenv("CM_SOURCE_API_KEY")
	cfg.Target.APIKey = os.Getenv("CM_TARGET_API_KEY")

	if url := os.Getenv("CM_BASE_URL"); url != "" {
		cfg.Source.BaseURL = url
		cfg.Target.BaseURL = url
	}
	if output := os.Getenv("CM_OUTPUT"); output != "" {
		cfg.Output = output
	}

	return cfg
}

// ProjectURL returns the API base URL for the environment's project scope.
func (e Environment) ProjectURL() string {
	base := e.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/projects/%s", strings.TrimRight(base, "/"), e.EnvironmentID)
}

// Validate checks that the environment is usable for API calls.
func (e Environment) Validate(role string) error {
	if e.EnvironmentID == "" {
		return fmt.Errorf("missing %s environment id", role)
	}
	if e.APIKey == "" {
		return fmt.Errorf("missing %s api key", role)
	}
	return nil
}
