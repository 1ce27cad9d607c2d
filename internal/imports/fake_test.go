package imports

import (
	"context"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/client"
	"github.com/contentmigrate/cm-cli/internal/core"
)

// fakeAPI is an in-memory management API that records mutating calls in
// order.
type fakeAPI struct {
	env *api.EnvironmentData

	items             map[string]*api.ContentItem
	variants          map[string]*api.LanguageVariant
	publishedVariants map[string]*api.LanguageVariant
	assets            map[string]*api.Asset

	calls  []string
	nextID int
}

func testTargetEnvironment() *api.EnvironmentData {
	return &api.EnvironmentData{
		Collections: []api.Collection{{ID: "col-1", Codename: "default"}},
		Languages:   []api.Language{{ID: "lang-1", Codename: "en"}},
		Workflows: []api.Workflow{
			{
				ID:       "wf-1",
				Codename: "default",
				Steps: []api.WorkflowStep{
					{ID: "s1", Codename: "draft", TransitionsTo: []api.Reference{{ID: "s2"}}},
					{ID: "s2", Codename: "review", TransitionsTo: []api.Reference{{ID: "s1"}, {ID: "s3"}}},
					{ID: "s3", Codename: "ready", TransitionsTo: []api.Reference{{ID: "s4"}}},
				},
				PublishedStep: api.WorkflowStep{ID: "s4", Codename: "published"},
				ScheduledStep: api.WorkflowStep{ID: "s6", Codename: "scheduled"},
				ArchivedStep:  api.WorkflowStep{ID: "s5", Codename: "archived"},
			},
		},
		Types: []api.ContentType{
			{
				ID:       "type-page",
				Codename: "page",
				Elements: []api.TypeElement{
					{ID: "el-heading", Codename: "heading", Type: core.ElementText},
				},
			},
		},
	}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		env:               testTargetEnvironment(),
		items:             map[string]*api.ContentItem{},
		variants:          map[string]*api.LanguageVariant{},
		publishedVariants: map[string]*api.LanguageVariant{},
		assets:            map[string]*api.Asset{},
	}
}

func (f *fakeAPI) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeAPI) key(item, language string) string { return item + "/" + language }

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, client.ErrNotFound)
}

func (f *fakeAPI) ViewContentItem(_ context.Context, ref api.Reference) (*api.ContentItem, error) {
	codename := ref.Codename
	if codename == "" {
		for _, item := range f.items {
			if item.ID == ref.ID {
				return item, nil
			}
		}
		return nil, notFound(ref.ID)
	}
	if item, ok := f.items[codename]; ok {
		return item, nil
	}
	return nil, notFound(codename)
}

func (f *fakeAPI) AddContentItem(_ context.Context, data api.AddContentItemData) (*api.ContentItem, error) {
	f.record("AddContentItem %s external_id=%s", data.Codename, data.ExternalID)
	f.nextID++
	item := &api.ContentItem{
		ID:         fmt.Sprintf("item-%d", f.nextID),
		Name:       data.Name,
		Codename:   data.Codename,
		Type:       data.Type,
		Collection: data.Collection,
		ExternalID: data.ExternalID,
	}
	f.items[data.Codename] = item
	return item, nil
}

func (f *fakeAPI) UpsertContentItem(_ context.Context, codename string, data api.UpsertContentItemData) (*api.ContentItem, error) {
	f.record("UpsertContentItem %s name=%s", codename, data.Name)
	item, ok := f.items[codename]
	if !ok {
		return nil, notFound(codename)
	}
	item.Name = data.Name
	if data.Collection != nil {
		item.Collection = *data.Collection
	}
	return item, nil
}

func (f *fakeAPI) ViewLanguageVariant(_ context.Context, item, language string) (*api.LanguageVariant, error) {
	if variant, ok := f.variants[f.key(item, language)]; ok {
		return variant, nil
	}
	return nil, notFound(f.key(item, language))
}

func (f *fakeAPI) ViewPublishedLanguageVariant(_ context.Context, item, language string) (*api.LanguageVariant, error) {
	if variant, ok := f.publishedVariants[f.key(item, language)]; ok {
		return variant, nil
	}
	return nil, notFound(f.key(item, language))
}

func (f *fakeAPI) UpsertLanguageVariant(_ context.Context, item, language string, data api.UpsertVariantData) (*api.LanguageVariant, error) {
	step := ""
	if data.Workflow != nil {
		step = data.Workflow.StepIdentifier.Codename
	}
	f.record("UpsertLanguageVariant %s step=%s", f.key(item, language), step)
	variant := &api.LanguageVariant{
		Item:     api.ByCodename(item),
		Language: api.ByCodename(language),
		Elements: data.Elements,
		Workflow: data.Workflow,
	}
	f.variants[f.key(item, language)] = variant
	return variant, nil
}

func (f *fakeAPI) CreateNewVersion(_ context.Context, item, language string) error {
	f.record("CreateNewVersion %s", f.key(item, language))
	return nil
}

func (f *fakeAPI) ChangeWorkflow(_ context.Context, item, language, wf, step string) error {
	f.record("ChangeWorkflow %s %s", f.key(item, language), step)
	return nil
}

func (f *fakeAPI) PublishLanguageVariant(_ context.Context, item, language string, schedule *api.PublishSchedule) error {
	if schedule != nil {
		f.record("SchedulePublish %s %s", f.key(item, language), schedule.ScheduledTo)
		return nil
	}
	f.record("Publish %s", f.key(item, language))
	return nil
}

func (f *fakeAPI) UnpublishLanguageVariant(_ context.Context, item, language string, schedule *api.PublishSchedule) error {
	if schedule != nil {
		f.record("ScheduleUnpublish %s %s", f.key(item, language), schedule.ScheduledTo)
		return nil
	}
	f.record("Unpublish %s", f.key(item, language))
	return nil
}

func (f *fakeAPI) CancelScheduledPublish(_ context.Context, item, language string) error {
	f.record("CancelScheduledPublish %s", f.key(item, language))
	return nil
}

func (f *fakeAPI) CancelScheduledUnpublish(_ context.Context, item, language string) error {
	f.record("CancelScheduledUnpublish %s", f.key(item, language))
	return nil
}

func (f *fakeAPI) ViewAsset(_ context.Context, ref api.Reference) (*api.Asset, error) {
	codename := ref.Codename
	if codename == "" {
		for _, asset := range f.assets {
			if asset.ID == ref.ID {
				return asset, nil
			}
		}
		return nil, notFound(ref.ID)
	}
	if asset, ok := f.assets[codename]; ok {
		return asset, nil
	}
	return nil, notFound(codename)
}

func (f *fakeAPI) AddAsset(_ context.Context, data api.AddAssetData) (*api.Asset, error) {
	f.record("AddAsset %s external_id=%s file=%s", data.Codename, data.ExternalID, data.FileReference.ID)
	f.nextID++
	asset := &api.Asset{
		ID:           fmt.Sprintf("asset-%d", f.nextID),
		Codename:     data.Codename,
		ExternalID:   data.ExternalID,
		Title:        data.Title,
		Descriptions: data.Descriptions,
	}
	f.assets[data.Codename] = asset
	return asset, nil
}

func (f *fakeAPI) UpsertAsset(_ context.Context, codename string, data api.UpsertAssetData) (*api.Asset, error) {
	f.record("UpsertAsset %s", codename)
	asset, ok := f.assets[codename]
	if !ok {
		return nil, notFound(codename)
	}
	asset.Title = data.Title
	return asset, nil
}

func (f *fakeAPI) UploadBinaryFile(_ context.Context, data api.BinaryFileData) (api.FileReference, error) {
	f.record("UploadBinaryFile %s", data.Filename)
	f.nextID++
	return api.FileReference{ID: fmt.Sprintf("file-%d", f.nextID)}, nil
}

func (f *fakeAPI) DownloadAssetBinary(_ context.Context, url string) ([]byte, string, error) {
	return nil, "", notFound(url)
}

func (f *fakeAPI) ListCollections(context.Context) ([]api.Collection, error) {
	return f.env.Collections, nil
}

func (f *fakeAPI) ListLanguages(context.Context) ([]api.Language, error) {
	return f.env.Languages, nil
}

func (f *fakeAPI) ListWorkflows(context.Context) ([]api.Workflow, error) {
	return f.env.Workflows, nil
}

func (f *fakeAPI) ListTaxonomies(context.Context) ([]api.TaxonomyGroup, error) {
	return f.env.Taxonomies, nil
}

func (f *fakeAPI) ListContentTypes(context.Context) ([]api.ContentType, error) {
	return f.env.Types, nil
}

func (f *fakeAPI) ListAssetFolders(context.Context) ([]api.AssetFolder, error) {
	return f.env.AssetFolders, nil
}
