package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/config"
	"github.com/contentmigrate/cm-cli/internal/core"
	"github.com/contentmigrate/cm-cli/internal/export"
	"github.com/contentmigrate/cm-cli/internal/output"
	"github.com/contentmigrate/cm-cli/internal/snapshot"
)

// Export implements the export command: source environment to snapshot
// files on disk.
func Export(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sourceEnv := fs.String("source-env", cfg.Source.EnvironmentID, "Source environment id (required)")
	sourceKey := fs.String("source-key", cfg.Source.APIKey, "Source management API key (required)")
	items := fs.String("items", "", "Comma-separated content item codenames (required)")
	language := fs.String("language", "", "Language codename (required)")
	baseURL := fs.String("base-url", cfg.Source.BaseURL, "Management API base URL")
	itemsFile := fs.String("items-file", snapshot.DefaultItemsFilename, "Items snapshot output file")
	assetsFile := fs.String("assets-file", snapshot.DefaultAssetsFilename, "Assets archive output file")
	replaceInvalidLinks := fs.Bool("replace-invalid-links", false, "Replace unresolvable rich-text links with their text")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	env := config.Environment{EnvironmentID: *sourceEnv, APIKey: *sourceKey, BaseURL: *baseURL}
	if err := env.Validate("source"); err != nil {
		return fmt.Errorf("%w\n\nUsage: cm export --source-env <id> --source-key <key> --items <a,b,c> --language <lang>", err)
	}
	if *items == "" || *language == "" {
		return fmt.Errorf("--items and --language are required\n\nUsage: cm export --source-env <id> --source-key <key> --items <a,b,c> --language <lang>")
	}

	data, errors, err := runExport(context.Background(), env, splitItems(*items), *language, export.Options{
		ReplaceInvalidLinks: *replaceInvalidLinks,
	})
	if err != nil {
		return err
	}

	if err := snapshot.WriteItems(*itemsFile, data); err != nil {
		return err
	}
	if err := snapshot.WriteAssets(*assetsFile, data.Assets); err != nil {
		return err
	}

	reportItemErrors(errors)
	if output.Format == "json" {
		return output.JSON(map[string]any{
			"items":       len(data.Items),
			"assets":      len(data.Assets),
			"items_file":  *itemsFile,
			"assets_file": *assetsFile,
			"errors":      errors,
		})
	}
	output.Success("Exported %d items and %d assets to %s and %s",
		len(data.Items), len(data.Assets), *itemsFile, *assetsFile)
	return nil
}

// runExport executes the two export phases against one source
// environment. It is shared by the export and migrate commands.
func runExport(ctx context.Context, env config.Environment, itemCodenames []string, language string, opts export.Options) (*core.MigrationData, []export.ItemError, error) {
	requests := make([]export.ItemRequest, 0, len(itemCodenames))
	for _, codename := range itemCodenames {
		requests = append(requests, export.ItemRequest{
			ItemCodename:     codename,
			LanguageCodename: language,
		})
	}

	m := api.NewService(env)
	ec, err := export.FetchContext(ctx, m, requests, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("export failed: %w", err)
	}
	data, err := export.Run(ctx, m, ec, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("export failed: %w", err)
	}
	return data, ec.Errors, nil
}

func reportItemErrors(errors []export.ItemError) {
	for _, itemError := range errors {
		output.Warn("item %q (%s) dropped: %s", itemError.ItemCodename, itemError.LanguageCodename, itemError.Message)
	}
}
