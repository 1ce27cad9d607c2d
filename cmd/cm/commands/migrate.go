package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/config"
	"github.com/contentmigrate/cm-cli/internal/core"
	"github.com/contentmigrate/cm-cli/internal/export"
	"github.com/contentmigrate/cm-cli/internal/imports"
	"github.com/contentmigrate/cm-cli/internal/output"
)

// MapMigrationData optionally transforms the snapshot between the export
// and import phases of migrate. It is the only mutation permitted on the
// snapshot; wrapper binaries may set it.
var MapMigrationData core.MapMigrationData

// Migrate implements the migrate command: export from source and import
// into target without touching disk.
func Migrate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	profileFile := fs.String("profile", "", "Migration profile yaml file")
	sourceEnv := fs.String("source-env", cfg.Source.EnvironmentID, "Source environment id (required)")
	sourceKey := fs.String("source-key", cfg.Source.APIKey, "Source management API key (required)")
	targetEnv := fs.String("target-env", cfg.Target.EnvironmentID, "Target environment id (required)")
	targetKey := fs.String("target-key", cfg.Target.APIKey, "Target management API key (required)")
	baseURL := fs.String("base-url", cfg.Source.BaseURL, "Management API base URL")
	items := fs.String("items", "", "Comma-separated content item codenames (required)")
	language := fs.String("language", "", "Language codename (required)")
	failFast := fs.Bool("fail-fast", false, "Abort on the first per-item error")
	replaceInvalidLinks := fs.Bool("replace-invalid-links", false, "Replace unresolvable rich-text links with their text")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	source := config.Environment{EnvironmentID: *sourceEnv, APIKey: *sourceKey, BaseURL: *baseURL}
	target := config.Environment{EnvironmentID: *targetEnv, APIKey: *targetKey, BaseURL: *baseURL}
	itemCodenames := splitItems(*items)
	languageCodename := *language

	if *profileFile != "" {
		p, err := loadProfile(*profileFile)
		if err != nil {
			return err
		}
		applyProfileEnvironment(&source, p.Source)
		applyProfileEnvironment(&target, p.Target)
		if len(itemCodenames) == 0 {
			itemCodenames = p.Items
		}
		if languageCodename == "" {
			languageCodename = p.Language
		}
	}

	usage := "\n\nUsage: cm migrate --source-env <id> --source-key <key> --target-env <id> --target-key <key> --items <a,b,c> --language <lang>\n       cm migrate --profile <file.yaml>"
	if err := source.Validate("source"); err != nil {
		return fmt.Errorf("%w%s", err, usage)
	}
	if err := target.Validate("target"); err != nil {
		return fmt.Errorf("%w%s", err, usage)
	}
	if len(itemCodenames) == 0 || languageCodename == "" {
		return fmt.Errorf("--items and --language are required%s", usage)
	}

	ctx := context.Background()
	data, itemErrors, err := runExport(ctx, source, itemCodenames, languageCodename, export.Options{
		ReplaceInvalidLinks: *replaceInvalidLinks,
		FailFast:            *failFast,
	})
	if err != nil {
		return err
	}
	reportItemErrors(itemErrors)
	output.Success("Exported %d items and %d assets", len(data.Items), len(data.Assets))

	if MapMigrationData != nil {
		if data, err = MapMigrationData(data); err != nil {
			return fmt.Errorf("map migration data: %w", err)
		}
	}

	summary, err := runImport(ctx, target, data, imports.Options{FailFast: *failFast})
	if err != nil {
		return err
	}
	return printSummary(summary)
}

func applyProfileEnvironment(env *config.Environment, p profileEnvironment) {
	if env.EnvironmentID == "" {
		env.EnvironmentID = p.EnvironmentID
	}
	if env.APIKey == "" {
		env.APIKey = p.APIKey
	}
	if env.BaseURL == "" && p.BaseURL != "" {
		env.BaseURL = p.BaseURL
	}
}
