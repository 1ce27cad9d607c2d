package commands

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// profileEnvironment is one environment block of a migration profile.
type profileEnvironment struct {
	EnvironmentID string `yaml:"environment_id"`
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
}

// profile is a yaml migration profile, so recurring migrations need no
// flag lists. Flags override profile values.
type profile struct {
	Source   profileEnvironment `yaml:"source"`
	Target   profileEnvironment `yaml:"target"`
	Items    []string           `yaml:"items"`
	Language string             `yaml:"language"`
}

func loadProfile(filename string) (*profile, error) {
	payload, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p profile
	if err := yaml.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &p, nil
}

func splitItems(csv string) []string {
	var items []string
	for _, entry := range strings.Split(csv, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			items = append(items, entry)
		}
	}
	return items
}
