package commands

import (
	"flag"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/core"
	"github.com/contentmigrate/cm-cli/internal/output"
	"github.com/contentmigrate/cm-cli/internal/snapshot"
)

// Validate implements the validate command: offline schema check of an
// items snapshot.
func Validate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	itemsFile := fs.String("items-file", snapshot.DefaultItemsFilename, "Items snapshot to validate")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	items, err := snapshot.ReadItems(*itemsFile)
	if err != nil {
		return err
	}

	result := core.Validate(&core.MigrationData{Items: items})
	if !result.Valid() {
		return validationFailure(result)
	}

	if output.Format == "json" {
		return output.JSON(result)
	}
	output.Success("All %d items are valid", result.Items)
	return nil
}
