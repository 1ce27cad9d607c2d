package imports

import (
	"context"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/core"
	"github.com/contentmigrate/cm-cli/internal/output"
	"github.com/contentmigrate/cm-cli/internal/process"
)

const (
	assetUploadParallelism = 3
	assetEditParallelism   = 1
)

// shouldUpdateAsset compares the metadata the upsert endpoint can change:
// title, collection, folder, and descriptions by language codename.
func shouldUpdateAsset(ic *Context, snapshot *core.MigrationAsset, target *api.Asset) bool {
	if snapshot.Title != target.Title {
		return true
	}
	if snapshotCollection(snapshot) != targetCollectionCodename(ic, target) {
		return true
	}
	if snapshotFolder(snapshot) != targetFolderCodename(ic, target) {
		return true
	}

	targetDescriptions := map[string]string{}
	for _, description := range target.Descriptions {
		language, ok := ic.Environment.LanguageByID(description.Language.ID)
		if !ok {
			continue
		}
		targetDescriptions[language.Codename] = description.Description
	}
	for _, description := range snapshot.Descriptions {
		if _, known := ic.Environment.LanguageByCodename(description.Language.Codename); !known {
			continue
		}
		if targetDescriptions[description.Language.Codename] != description.Description {
			return true
		}
	}
	return false
}

// shouldReplaceBinaryFile decides whether the stored binary differs from
// the snapshot's, by filename, size, and mime type.
func shouldReplaceBinaryFile(snapshot *core.MigrationAsset, target *api.Asset) bool {
	if snapshot.Filename != target.FileName {
		return true
	}
	if int64(len(snapshot.BinaryData)) != target.Size {
		return true
	}
	if snapshot.ContentType != "" && target.Type != "" && snapshot.ContentType != target.Type {
		return true
	}
	return false
}

func snapshotCollection(a *core.MigrationAsset) string {
	if a.Collection == nil {
		return ""
	}
	return a.Collection.Codename
}

func snapshotFolder(a *core.MigrationAsset) string {
	if a.Folder == nil {
		return ""
	}
	return a.Folder.Codename
}

func targetCollectionCodename(ic *Context, target *api.Asset) string {
	if target.Collection == nil {
		return ""
	}
	ref := target.Collection.Reference
	if ref.Codename != "" {
		return ref.Codename
	}
	if collection, ok := ic.Environment.CollectionByID(ref.ID); ok {
		return collection.Codename
	}
	return ""
}

func targetFolderCodename(ic *Context, target *api.Asset) string {
	if target.Folder == nil || target.Folder.ID == "" {
		return ""
	}
	if folder, ok := ic.Environment.FolderByID(target.Folder.ID); ok {
		return folder.Codename
	}
	return ""
}

// descriptionsForTarget silently filters descriptions to the languages
// that exist in the target environment.
func descriptionsForTarget(ic *Context, snapshot *core.MigrationAsset) []api.AssetDescription {
	var out []api.AssetDescription
	for _, description := range snapshot.Descriptions {
		if _, known := ic.Environment.LanguageByCodename(description.Language.Codename); !known {
			continue
		}
		out = append(out, api.AssetDescription{
			Language:    api.ByCodename(description.Language.Codename),
			Description: description.Description,
		})
	}
	return out
}

func assetCollectionRef(snapshot *core.MigrationAsset) *api.AssetCollection {
	if snapshot.Collection == nil {
		return nil
	}
	return &api.AssetCollection{Reference: api.ByCodename(snapshot.Collection.Codename)}
}

func assetFolderRef(ic *Context, snapshot *core.MigrationAsset) *api.Reference {
	if snapshot.Folder == nil {
		return nil
	}
	if folder, ok := ic.Environment.FolderByCodename(snapshot.Folder.Codename); ok {
		ref := api.ByID(folder.ID)
		return &ref
	}
	return nil
}

type assetCounts struct {
	Uploaded int
	Updated  int
	Skipped  int
	Errors   []ItemError
}

// importAssets splits the snapshot assets into an upload queue and an
// edit queue, and runs both with their configured parallelism.
func importAssets(ctx context.Context, m api.ManagementAPI, data *core.MigrationData, ic *Context, opts Options) (assetCounts, error) {
	var counts assetCounts
	var toUpload, toEdit []*core.MigrationAsset

	for i := range data.Assets {
		asset := &data.Assets[i]
		state := ic.Assets[asset.Codename]
		switch {
		case state == nil || !state.Exists:
			toUpload = append(toUpload, asset)
		case shouldUpdateAsset(ic, asset, state.Asset) || shouldReplaceBinaryFile(asset, state.Asset):
			toEdit = append(toEdit, asset)
		default:
			counts.Skipped++
		}
	}

	uploadResults, err := process.Items(ctx, toUpload, process.Options[*core.MigrationAsset]{
		Limit:    assetUploadParallelism,
		FailFast: opts.FailFast,
		ItemInfo: func(a *core.MigrationAsset) string { return a.Codename },
		Progress: func(percent int, info string) {
			output.Progress(percent, "Uploading assets: %s", info)
		},
	}, func(ctx context.Context, asset *core.MigrationAsset) (*api.Asset, error) {
		return uploadAsset(ctx, m, ic, asset)
	})
	if err != nil {
		return counts, err
	}
	if len(toUpload) > 0 {
		output.ProgressDone()
	}
	for i, result := range uploadResults {
		codename := toUpload[i].Codename
		switch {
		case result.Valid():
			counts.Uploaded++
			ic.Assets[codename].Exists = true
			ic.Assets[codename].Asset = result.Output
			ic.Transform.AssetIDs[codename] = result.Output.ID
		case result.Cancelled:
		default:
			reason := result.Err
			if result.NotFound {
				reason = fmt.Errorf("target rejected the upload with not found")
			}
			counts.Errors = append(counts.Errors, ItemError{
				ItemCodename: codename,
				Message:      fmt.Sprintf("upload asset: %v", reason),
			})
		}
	}

	editResults, err := process.Items(ctx, toEdit, process.Options[*core.MigrationAsset]{
		Limit:    assetEditParallelism,
		FailFast: opts.FailFast,
		ItemInfo: func(a *core.MigrationAsset) string { return a.Codename },
		Progress: func(percent int, info string) {
			output.Progress(percent, "Updating assets: %s", info)
		},
	}, func(ctx context.Context, asset *core.MigrationAsset) (*api.Asset, error) {
		return editAsset(ctx, m, ic, asset)
	})
	if err != nil {
		return counts, err
	}
	if len(toEdit) > 0 {
		output.ProgressDone()
	}
	for i, result := range editResults {
		codename := toEdit[i].Codename
		switch {
		case result.Valid():
			counts.Updated++
			ic.Assets[codename].Asset = result.Output
			ic.Transform.AssetIDs[codename] = result.Output.ID
		case result.Cancelled:
		default:
			reason := result.Err
			if result.NotFound {
				reason = fmt.Errorf("asset disappeared from target")
			}
			counts.Errors = append(counts.Errors, ItemError{
				ItemCodename: codename,
				Message:      fmt.Sprintf("update asset: %v", reason),
			})
		}
	}

	return counts, nil
}

// uploadAsset POSTs the binary first to obtain a file reference, then
// creates the asset with it.
func uploadAsset(ctx context.Context, m api.ManagementAPI, ic *Context, asset *core.MigrationAsset) (*api.Asset, error) {
	fileRef, err := m.UploadBinaryFile(ctx, api.BinaryFileData{
		Binary:        asset.BinaryData,
		Filename:      asset.Filename,
		ContentType:   asset.ContentType,
		ContentLength: len(asset.BinaryData),
	})
	if err != nil {
		return nil, fmt.Errorf("upload binary: %w", err)
	}

	state := ic.Assets[asset.Codename]
	return m.AddAsset(ctx, api.AddAssetData{
		FileReference: fileRef,
		Codename:      asset.Codename,
		ExternalID:    state.ExternalID,
		Title:         asset.Title,
		Collection:    assetCollectionRef(asset),
		Folder:        assetFolderRef(ic, asset),
		Descriptions:  descriptionsForTarget(ic, asset),
	})
}

func editAsset(ctx context.Context, m api.ManagementAPI, ic *Context, asset *core.MigrationAsset) (*api.Asset, error) {
	data := api.UpsertAssetData{
		Title:        asset.Title,
		Collection:   assetCollectionRef(asset),
		Folder:       assetFolderRef(ic, asset),
		Descriptions: descriptionsForTarget(ic, asset),
	}

	if shouldReplaceBinaryFile(asset, ic.Assets[asset.Codename].Asset) {
		fileRef, err := m.UploadBinaryFile(ctx, api.BinaryFileData{
			Binary:        asset.BinaryData,
			Filename:      asset.Filename,
			ContentType:   asset.ContentType,
			ContentLength: len(asset.BinaryData),
		})
		if err != nil {
			return nil, fmt.Errorf("upload replacement binary: %w", err)
		}
		data.FileReference = &fileRef
	}

	return m.UpsertAsset(ctx, asset.Codename, data)
}
