// Package export builds a codename-addressed snapshot from an
// id-addressed source environment.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/client"
	"github.com/contentmigrate/cm-cli/internal/output"
	"github.com/contentmigrate/cm-cli/internal/process"
	"github.com/contentmigrate/cm-cli/internal/transform"
	"github.com/contentmigrate/cm-cli/internal/workflow"
)

// ItemRequest names one (item, language) pair to export.
type ItemRequest struct {
	ItemCodename     string
	LanguageCodename string
}

// ExportItem is one validated item with its fetched variants. Versions
// holds the published variant first when both exist.
type ExportItem struct {
	ContentItem *api.ContentItem
	Versions    []*api.LanguageVariant
	ContentType *api.ContentType
	Collection  *api.Collection
	Language    *api.Language
	Workflow    *api.Workflow
}

// ItemError is a per-item failure that dropped the item from the export.
type ItemError struct {
	ItemCodename     string `json:"item"`
	LanguageCodename string `json:"language"`
	Message          string `json:"message"`
}

// Context is the transient view the export manager consumes.
type Context struct {
	Environment *api.EnvironmentData
	ExportItems []*ExportItem
	Errors      []ItemError
	// Transform is the id-resolution view handed to the element
	// transforms, seeded with the reference closure.
	Transform *transform.ExportContext
}

// Options configures an export run.
type Options struct {
	ReplaceInvalidLinks bool
	FailFast            bool
}

// FetchContext loads environment data, the requested items with their
// latest and published variants, and the reference closure.
func FetchContext(ctx context.Context, m api.ManagementAPI, requests []ItemRequest, opts Options) (*Context, error) {
	env, err := api.LoadEnvironmentData(ctx, m)
	if err != nil {
		return nil, err
	}

	ec := &Context{
		Environment: env,
		Transform: &transform.ExportContext{
			Environment:         env,
			Items:               map[string]transform.ItemState{},
			Assets:              map[string]transform.AssetState{},
			ReplaceInvalidLinks: opts.ReplaceInvalidLinks,
			Warnf:               output.Warn,
		},
	}

	for _, request := range requests {
		item, err := prepareExportItem(ctx, m, env, request)
		if err != nil {
			if opts.FailFast {
				return nil, fmt.Errorf("item %q (%s): %w", request.ItemCodename, request.LanguageCodename, err)
			}
			ec.Errors = append(ec.Errors, ItemError{
				ItemCodename:     request.ItemCodename,
				LanguageCodename: request.LanguageCodename,
				Message:          err.Error(),
			})
			continue
		}
		ec.ExportItems = append(ec.ExportItems, item)
	}

	if err := fetchReferencedData(ctx, m, ec); err != nil {
		return nil, err
	}
	return ec, nil
}

func prepareExportItem(ctx context.Context, m api.ManagementAPI, env *api.EnvironmentData, request ItemRequest) (*ExportItem, error) {
	contentItem, err := m.ViewContentItem(ctx, api.ByCodename(request.ItemCodename))
	if err != nil {
		return nil, fmt.Errorf("fetch content item: %w", err)
	}

	latest, err := m.ViewLanguageVariant(ctx, request.ItemCodename, request.LanguageCodename)
	if err != nil {
		return nil, fmt.Errorf("fetch language variant: %w", err)
	}
	if latest.Workflow == nil {
		return nil, fmt.Errorf("language variant has no workflow assignment")
	}

	item := &ExportItem{ContentItem: contentItem}

	var ok bool
	if item.ContentType, ok = env.TypeByID(contentItem.Type.ID); !ok {
		return nil, fmt.Errorf("content type %q not found in environment", contentItem.Type.ID)
	}
	if item.Collection, ok = env.CollectionByID(contentItem.Collection.ID); !ok {
		return nil, fmt.Errorf("collection %q not found in environment", contentItem.Collection.ID)
	}
	if item.Language, ok = env.LanguageByID(latest.Language.ID); !ok {
		return nil, fmt.Errorf("language %q not found in environment", latest.Language.ID)
	}
	if item.Workflow, ok = env.WorkflowByID(latest.Workflow.WorkflowIdentifier.ID); !ok {
		// Some responses omit the workflow identifier; fall back to the
		// step assignment.
		if item.Workflow, ok = env.WorkflowByStepID(latest.Workflow.StepIdentifier.ID); !ok {
			return nil, fmt.Errorf("workflow of step %q not found in environment", latest.Workflow.StepIdentifier.ID)
		}
	}
	latestStep, err := workflow.StepByID(item.Workflow, latest.Workflow.StepIdentifier.ID)
	if err != nil {
		return nil, err
	}

	if workflow.IsPublished(latestStep.Codename) {
		item.Versions = []*api.LanguageVariant{latest}
		return item, nil
	}

	// The latest variant is a draft; the published variant, when one
	// exists, is a separate version.
	published, err := m.ViewPublishedLanguageVariant(ctx, request.ItemCodename, request.LanguageCodename)
	switch {
	case err == nil:
		item.Versions = []*api.LanguageVariant{published, latest}
	case errors.Is(err, client.ErrNotFound):
		item.Versions = []*api.LanguageVariant{latest}
	default:
		return nil, fmt.Errorf("fetch published variant: %w", err)
	}
	return item, nil
}

// fetchReferencedData runs the reference extractor over every version and
// loads the referenced items and assets by id. A 404 records a not-found
// marker; the transforms decide per element type whether that is fatal.
func fetchReferencedData(ctx context.Context, m api.ManagementAPI, ec *Context) error {
	refs := transform.NewReferences()
	for _, item := range ec.ExportItems {
		for _, version := range item.Versions {
			found, err := transform.ExtractReferences(ec.Environment, item.ContentType, version.Elements)
			if err != nil {
				return fmt.Errorf("item %q: extract references: %w", item.ContentItem.Codename, err)
			}
			refs.Merge(found)
		}
	}

	itemIDs := refs.Items()
	itemResults, err := process.Items(ctx, itemIDs, process.Options[string]{
		Limit:    1,
		ItemInfo: func(id string) string { return "item " + id },
		Progress: progressTo("Fetching referenced items"),
	}, func(ctx context.Context, id string) (*api.ContentItem, error) {
		return m.ViewContentItem(ctx, api.ByID(id))
	})
	if err != nil {
		return err
	}
	output.ProgressDone()
	for i, id := range itemIDs {
		result := itemResults[i]
		switch {
		case result.Valid():
			ec.Transform.Items[id] = transform.ItemState{Item: result.Output, Found: true}
		case result.NotFound:
			ec.Transform.Items[id] = transform.ItemState{}
		case result.Err != nil:
			return fmt.Errorf("fetch referenced item %q: %w", id, result.Err)
		}
	}

	assetIDs := refs.Assets()
	assetResults, err := process.Items(ctx, assetIDs, process.Options[string]{
		Limit:    1,
		ItemInfo: func(id string) string { return "asset " + id },
		Progress: progressTo("Fetching referenced assets"),
	}, func(ctx context.Context, id string) (*api.Asset, error) {
		return m.ViewAsset(ctx, api.ByID(id))
	})
	if err != nil {
		return err
	}
	output.ProgressDone()
	for i, id := range assetIDs {
		result := assetResults[i]
		switch {
		case result.Valid():
			ec.Transform.Assets[id] = transform.AssetState{Asset: result.Output, Found: true}
		case result.NotFound:
			ec.Transform.Assets[id] = transform.AssetState{}
		case result.Err != nil:
			return fmt.Errorf("fetch referenced asset %q: %w", id, result.Err)
		}
	}

	return nil
}

func progressTo(label string) func(percent int, info string) {
	return func(percent int, info string) {
		output.Progress(percent, "%s: %s", label, info)
	}
}
