package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/contentmigrate/cm-cli/internal/config"
)

func TestSplitItems(t *testing.T) {
	got := splitItems("about, faq ,,contact")
	want := []string{"about", "faq", "contact"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}

	if splitItems("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestLoadProfile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "profile.yaml")
	payload := `source:
  environment_id: src-env
  api_key: src-key
target:
  environment_id: tgt-env
  api_key: tgt-key
  base_url: http://localhost:8080
items:
  - about
  - faq
language: en
`
	if err := os.WriteFile(filename, []byte(payload), 0644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	p, err := loadProfile(filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Source.EnvironmentID != "src-env" || p.Target.APIKey != "tgt-key" {
		t.Errorf("environments not parsed: %+v", p)
	}
	if len(p.Items) != 2 || p.Items[0] != "about" || p.Language != "en" {
		t.Errorf("items/language not parsed: %+v", p)
	}
}

func TestApplyProfileEnvironmentFlagsWin(t *testing.T) {
	env := config.Environment{EnvironmentID: "from-flag"}
	applyProfileEnvironment(&env, profileEnvironment{
		EnvironmentID: "from-profile",
		APIKey:        "profile-key",
	})

	if env.EnvironmentID != "from-flag" {
		t.Errorf("flag value must win, got %q", env.EnvironmentID)
	}
	if env.APIKey != "profile-key" {
		t.Errorf("profile must fill gaps, got %q", env.APIKey)
	}
}

func TestMissingFlagsReportUsage(t *testing.T) {
	cfg := &config.Config{}
	if err := Export(cfg, []string{}); err == nil {
		t.Error("expected export to fail without flags")
	}
	if err := Import(cfg, []string{}); err == nil {
		t.Error("expected import to fail without flags")
	}
	if err := Migrate(cfg, []string{}); err == nil {
		t.Error("expected migrate to fail without flags")
	}
}
