package imports

import (
	"context"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/core"
)

// Summary is the outcome of one import run.
type Summary struct {
	ItemsCreated     int         `json:"items_created"`
	ItemsReused      int         `json:"items_reused"`
	AssetsUploaded   int         `json:"assets_uploaded"`
	AssetsUpdated    int         `json:"assets_updated"`
	AssetsSkipped    int         `json:"assets_skipped"`
	VariantsImported int         `json:"variants_imported"`
	Errors           []ItemError `json:"errors,omitempty"`
}

// ItemError is one per-item failure captured during import.
type ItemError struct {
	ItemCodename     string `json:"item"`
	LanguageCodename string `json:"language,omitempty"`
	Message          string `json:"message"`
}

// Run validates the snapshot, probes the target, and reconciles items,
// assets, and language variants in that order. Per-item failures are
// collected in the summary; only environment-level failures (and any
// failure under FailFast) abort the run.
func Run(ctx context.Context, m api.ManagementAPI, data *core.MigrationData, opts Options) (*Summary, error) {
	if result := core.Validate(data); !result.Valid() {
		return nil, fmt.Errorf("snapshot failed schema validation: %s", result.Errors[0])
	}

	ic, err := BuildContext(ctx, m, data, opts)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, state := range ic.Items {
		if state.Exists {
			summary.ItemsReused++
		}
	}

	memo, itemErrors, err := importContentItems(ctx, m, data, ic, opts)
	if err != nil {
		return nil, err
	}
	summary.Errors = append(summary.Errors, itemErrors...)
	summary.ItemsCreated = len(memo) - summary.ItemsReused
	if summary.ItemsCreated < 0 {
		summary.ItemsCreated = 0
	}

	counts, err := importAssets(ctx, m, data, ic, opts)
	if err != nil {
		return nil, err
	}
	summary.AssetsUploaded = counts.Uploaded
	summary.AssetsUpdated = counts.Updated
	summary.AssetsSkipped = counts.Skipped
	summary.Errors = append(summary.Errors, counts.Errors...)

	imported, variantErrors, err := importLanguageVariants(ctx, m, data, ic, opts)
	if err != nil {
		return nil, err
	}
	summary.VariantsImported = imported
	summary.Errors = append(summary.Errors, variantErrors...)

	return summary, nil
}
