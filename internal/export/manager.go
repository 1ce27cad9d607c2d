package export

import (
	"context"
	"fmt"
	"sort"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/core"
	"github.com/contentmigrate/cm-cli/internal/output"
	"github.com/contentmigrate/cm-cli/internal/process"
	"github.com/contentmigrate/cm-cli/internal/transform"
	"github.com/contentmigrate/cm-cli/internal/workflow"
)

const assetDownloadParallelism = 5

// Run maps the export context into a schema-valid MigrationData, applying
// the element transforms and downloading asset binaries. Items that fail
// to map are logged and omitted unless FailFast is set.
func Run(ctx context.Context, m api.ManagementAPI, ec *Context, opts Options) (*core.MigrationData, error) {
	data := &core.MigrationData{}

	for _, item := range ec.ExportItems {
		migrationItem, err := mapItem(ec, item)
		if err != nil {
			if opts.FailFast {
				return nil, fmt.Errorf("item %q: %w", item.ContentItem.Codename, err)
			}
			output.Warn("item %q dropped: %v", item.ContentItem.Codename, err)
			ec.Errors = append(ec.Errors, ItemError{
				ItemCodename:     item.ContentItem.Codename,
				LanguageCodename: item.Language.Codename,
				Message:          err.Error(),
			})
			continue
		}
		data.Items = append(data.Items, *migrationItem)
	}

	assets, err := downloadAssets(ctx, m, ec)
	if err != nil {
		return nil, err
	}
	data.Assets = assets

	if result := core.Validate(data); !result.Valid() {
		return nil, fmt.Errorf("exported snapshot failed schema validation: %s", result.Errors[0])
	}
	return data, nil
}

func mapItem(ec *Context, item *ExportItem) (*core.MigrationItem, error) {
	migrationItem := &core.MigrationItem{
		System: core.ItemSystem{
			Name:       item.ContentItem.Name,
			Codename:   item.ContentItem.Codename,
			Language:   core.CodenameRef{Codename: item.Language.Codename},
			Type:       core.CodenameRef{Codename: item.ContentType.Codename},
			Collection: core.CodenameRef{Codename: item.Collection.Codename},
			Workflow:   core.CodenameRef{Codename: item.Workflow.Codename},
		},
	}

	for _, variant := range item.Versions {
		version, err := mapVersion(ec, item, variant)
		if err != nil {
			return nil, err
		}
		migrationItem.Versions = append(migrationItem.Versions, *version)
	}
	return migrationItem, nil
}

func mapVersion(ec *Context, item *ExportItem, variant *api.LanguageVariant) (*core.MigrationItemVersion, error) {
	step, err := workflow.StepByID(item.Workflow, variant.Workflow.StepIdentifier.ID)
	if err != nil {
		return nil, err
	}

	version := &core.MigrationItemVersion{
		Elements:     map[string]core.MigrationElement{},
		WorkflowStep: core.CodenameRef{Codename: step.Codename},
	}
	if variant.Schedule != nil && (variant.Schedule.PublishTime != "" || variant.Schedule.UnpublishTime != "") {
		version.Schedule = &core.VersionSchedule{
			PublishTime:              variant.Schedule.PublishTime,
			PublishDisplayTimezone:   variant.Schedule.PublishDisplayTimezone,
			UnpublishTime:            variant.Schedule.UnpublishTime,
			UnpublishDisplayTimezone: variant.Schedule.UnpublishDisplayTimezone,
		}
	}

	for i := range variant.Elements {
		wireElement := &variant.Elements[i]
		descriptor, err := descriptorFor(item.ContentType, wireElement)
		if err != nil {
			return nil, err
		}
		element, err := transform.ExportElement(ec.Transform, descriptor, wireElement)
		if err != nil {
			return nil, err
		}
		version.Elements[descriptor.Codename] = *element
	}
	return version, nil
}

func descriptorFor(contentType *api.ContentType, element *api.VariantElement) (*api.TypeElement, error) {
	if element.Element.ID != "" {
		if descriptor := contentType.Element(element.Element.ID); descriptor != nil {
			return descriptor, nil
		}
		return nil, fmt.Errorf("element %q not found on type %q", element.Element.ID, contentType.Codename)
	}
	if descriptor := contentType.ElementByCodename(element.Element.Codename); descriptor != nil {
		return descriptor, nil
	}
	return nil, fmt.Errorf("element %q not found on type %q", element.Element.Codename, contentType.Codename)
}

func downloadAssets(ctx context.Context, m api.ManagementAPI, ec *Context) ([]core.MigrationAsset, error) {
	var assets []*api.Asset
	for _, id := range assetIDs(ec) {
		state := ec.Transform.Assets[id]
		if state.Found {
			assets = append(assets, state.Asset)
		}
	}
	if len(assets) == 0 {
		return nil, nil
	}

	results, err := process.Items(ctx, assets, process.Options[*api.Asset]{
		Limit:    assetDownloadParallelism,
		ItemInfo: func(a *api.Asset) string { return a.Codename },
		Progress: progressTo("Downloading assets"),
	}, func(ctx context.Context, asset *api.Asset) (core.MigrationAsset, error) {
		binary, contentType, err := m.DownloadAssetBinary(ctx, asset.URL)
		if err != nil {
			return core.MigrationAsset{}, err
		}
		if contentType == "" {
			contentType = asset.Type
		}
		return mapAsset(ec, asset, binary, contentType)
	})
	if err != nil {
		return nil, err
	}
	output.ProgressDone()

	var out []core.MigrationAsset
	for i, result := range results {
		if !result.Valid() {
			reason := result.Err
			if result.NotFound {
				reason = fmt.Errorf("binary not found")
			}
			return nil, fmt.Errorf("download asset %q: %w", assets[i].Codename, reason)
		}
		out = append(out, result.Output)
	}
	return out, nil
}

func mapAsset(ec *Context, asset *api.Asset, binary []byte, contentType string) (core.MigrationAsset, error) {
	migrationAsset := core.MigrationAsset{
		Codename:    asset.Codename,
		Filename:    asset.FileName,
		Title:       asset.Title,
		ContentType: contentType,
		BinaryData:  binary,
	}

	if asset.Collection != nil && asset.Collection.Reference.ID != "" {
		collection, ok := ec.Environment.CollectionByID(asset.Collection.Reference.ID)
		if !ok {
			return core.MigrationAsset{}, fmt.Errorf("asset %q: collection %q not found", asset.Codename, asset.Collection.Reference.ID)
		}
		migrationAsset.Collection = &core.CodenameRef{Codename: collection.Codename}
	}
	if asset.Folder != nil && asset.Folder.ID != "" {
		folder, ok := ec.Environment.FolderByID(asset.Folder.ID)
		if !ok {
			return core.MigrationAsset{}, fmt.Errorf("asset %q: folder %q not found", asset.Codename, asset.Folder.ID)
		}
		migrationAsset.Folder = &core.CodenameRef{Codename: folder.Codename}
	}
	for _, description := range asset.Descriptions {
		language, ok := ec.Environment.LanguageByID(description.Language.ID)
		if !ok {
			return core.MigrationAsset{}, fmt.Errorf("asset %q: language %q not found", asset.Codename, description.Language.ID)
		}
		migrationAsset.Descriptions = append(migrationAsset.Descriptions, core.AssetDescription{
			Language:    core.CodenameRef{Codename: language.Codename},
			Description: description.Description,
		})
	}
	return migrationAsset, nil
}

func assetIDs(ec *Context) []string {
	ids := make([]string, 0, len(ec.Transform.Assets))
	for id := range ec.Transform.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
