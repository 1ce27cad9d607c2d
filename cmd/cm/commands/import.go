package commands

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/config"
	"github.com/contentmigrate/cm-cli/internal/core"
	"github.com/contentmigrate/cm-cli/internal/imports"
	"github.com/contentmigrate/cm-cli/internal/output"
	"github.com/contentmigrate/cm-cli/internal/snapshot"
)

// Import implements the import command: snapshot files into a target
// environment.
func Import(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	targetEnv := fs.String("target-env", cfg.Target.EnvironmentID, "Target environment id (required)")
	targetKey := fs.String("target-key", cfg.Target.APIKey, "Target management API key (required)")
	baseURL := fs.String("base-url", cfg.Target.BaseURL, "Management API base URL")
	itemsFile := fs.String("items-file", snapshot.DefaultItemsFilename, "Items snapshot input file")
	assetsFile := fs.String("assets-file", snapshot.DefaultAssetsFilename, "Assets archive input file")
	failFast := fs.Bool("fail-fast", false, "Abort on the first per-item error")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	env := config.Environment{EnvironmentID: *targetEnv, APIKey: *targetKey, BaseURL: *baseURL}
	if err := env.Validate("target"); err != nil {
		return fmt.Errorf("%w\n\nUsage: cm import --target-env <id> --target-key <key> [--items-file f] [--assets-file f]", err)
	}

	items, err := snapshot.ReadItems(*itemsFile)
	if err != nil {
		return err
	}
	data := &core.MigrationData{Items: items}
	if _, err := os.Stat(*assetsFile); err == nil {
		if data.Assets, err = snapshot.ReadAssets(*assetsFile); err != nil {
			return err
		}
	}

	// Schema problems must surface before the first network call.
	if result := core.Validate(data); !result.Valid() {
		return validationFailure(result)
	}

	summary, err := runImport(context.Background(), env, data, imports.Options{FailFast: *failFast})
	if err != nil {
		return err
	}
	return printSummary(summary)
}

// runImport reconciles a snapshot into one target environment. It is
// shared by the import and migrate commands.
func runImport(ctx context.Context, env config.Environment, data *core.MigrationData, opts imports.Options) (*imports.Summary, error) {
	m := api.NewService(env)
	summary, err := imports.Run(ctx, m, data, opts)
	if err != nil {
		return nil, fmt.Errorf("import failed: %w", err)
	}
	return summary, nil
}

func printSummary(summary *imports.Summary) error {
	if output.Format == "json" {
		return output.JSON(summary)
	}

	headers := []string{"ENTITY", "CREATED", "UPDATED", "SKIPPED"}
	rows := [][]string{
		{"content items", fmt.Sprintf("%d", summary.ItemsCreated), fmt.Sprintf("%d", summary.ItemsReused), ""},
		{"assets", fmt.Sprintf("%d", summary.AssetsUploaded), fmt.Sprintf("%d", summary.AssetsUpdated), fmt.Sprintf("%d", summary.AssetsSkipped)},
		{"language variants", fmt.Sprintf("%d", summary.VariantsImported), "", ""},
	}
	output.Table(headers, rows)

	if len(summary.Errors) > 0 {
		fmt.Println()
		for _, itemError := range summary.Errors {
			output.Warn("item %q (%s): %s", itemError.ItemCodename, itemError.LanguageCodename, itemError.Message)
		}
		return fmt.Errorf("%d items failed to import", len(summary.Errors))
	}
	output.Success("Import complete")
	return nil
}

func validationFailure(result *core.ValidationResult) error {
	if output.Format == "json" {
		output.JSON(result)
	} else {
		headers := []string{"ENTITY", "ERROR"}
		var rows [][]string
		for _, validationError := range result.Errors {
			entity := validationError.Item
			if entity == "" {
				entity = validationError.Asset
			}
			rows = append(rows, []string{entity, validationError.Message})
		}
		output.Table(headers, rows)
	}
	return fmt.Errorf("snapshot failed schema validation with %d errors", len(result.Errors))
}
