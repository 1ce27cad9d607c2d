// Package api exposes the subset of the management API that the
// migration pipelines consume.
package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/contentmigrate/cm-cli/internal/client"
	"github.com/contentmigrate/cm-cli/internal/config"
)

// ManagementAPI is the capability the pipelines run against. The live
// implementation talks to a management API environment; tests substitute
// in-memory fakes.
type ManagementAPI interface {
	ViewContentItem(ctx context.Context, ref Reference) (*ContentItem, error)
	AddContentItem(ctx context.Context, data AddContentItemData) (*ContentItem, error)
	UpsertContentItem(ctx context.Context, codename string, data UpsertContentItemData) (*ContentItem, error)

	ViewLanguageVariant(ctx context.Context, itemCodename, languageCodename string) (*LanguageVariant, error)
	ViewPublishedLanguageVariant(ctx context.Context, itemCodename, languageCodename string) (*LanguageVariant, error)
	UpsertLanguageVariant(ctx context.Context, itemCodename, languageCodename string, data UpsertVariantData) (*LanguageVariant, error)
	CreateNewVersion(ctx context.Context, itemCodename, languageCodename string) error
	ChangeWorkflow(ctx context.Context, itemCodename, languageCodename, workflowCodename, stepCodename string) error
	PublishLanguageVariant(ctx context.Context, itemCodename, languageCodename string, schedule *PublishSchedule) error
	UnpublishLanguageVariant(ctx context.Context, itemCodename, languageCodename string, schedule *PublishSchedule) error
	CancelScheduledPublish(ctx context.Context, itemCodename, languageCodename string) error
	CancelScheduledUnpublish(ctx context.Context, itemCodename, languageCodename string) error

	ViewAsset(ctx context.Context, ref Reference) (*Asset, error)
	AddAsset(ctx context.Context, data AddAssetData) (*Asset, error)
	UpsertAsset(ctx context.Context, codename string, data UpsertAssetData) (*Asset, error)
	UploadBinaryFile(ctx context.Context, data BinaryFileData) (FileReference, error)
	DownloadAssetBinary(ctx context.Context, assetURL string) ([]byte, string, error)

	ListCollections(ctx context.Context) ([]Collection, error)
	ListLanguages(ctx context.Context) ([]Language, error)
	ListWorkflows(ctx context.Context) ([]Workflow, error)
	ListTaxonomies(ctx context.Context) ([]TaxonomyGroup, error)
	ListContentTypes(ctx context.Context) ([]ContentType, error)
	ListAssetFolders(ctx context.Context) ([]AssetFolder, error)
}

// Service is the live ManagementAPI implementation.
type Service struct {
	c *client.Client
}

// NewService creates a live management API service for one environment.
func NewService(env config.Environment) *Service {
	return &Service{c: client.New(env)}
}

// NewServiceWithClient creates a live service around an existing client,
// such as one built with client.NewWithClock.
func NewServiceWithClient(c *client.Client) *Service {
	return &Service{c: c}
}

func itemPath(ref Reference) string {
	if ref.ID != "" {
		return "/items/" + ref.ID
	}
	return "/items/codename/" + ref.Codename
}

func variantPath(itemCodename, languageCodename string) string {
	return fmt.Sprintf("/items/codename/%s/variants/codename/%s", itemCodename, languageCodename)
}

func (s *Service) ViewContentItem(ctx context.Context, ref Reference) (*ContentItem, error) {
	var item ContentItem
	if err := s.c.Get(ctx, itemPath(ref), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) AddContentItem(ctx context.Context, data AddContentItemData) (*ContentItem, error) {
	var item ContentItem
	if err := s.c.Post(ctx, "/items", data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) UpsertContentItem(ctx context.Context, codename string, data UpsertContentItemData) (*ContentItem, error) {
	var item ContentItem
	if err := s.c.Put(ctx, "/items/codename/"+codename, data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) ViewLanguageVariant(ctx context.Context, itemCodename, languageCodename string) (*LanguageVariant, error) {
	var variant LanguageVariant
	if err := s.c.Get(ctx, variantPath(itemCodename, languageCodename), &variant); err != nil {
		return nil, err
	}
	return &variant, nil
}

func (s *Service) ViewPublishedLanguageVariant(ctx context.Context, itemCodename, languageCodename string) (*LanguageVariant, error) {
	var variant LanguageVariant
	if err := s.c.Get(ctx, variantPath(itemCodename, languageCodename)+"/published", &variant); err != nil {
		return nil, err
	}
	return &variant, nil
}

func (s *Service) UpsertLanguageVariant(ctx context.Context, itemCodename, languageCodename string, data UpsertVariantData) (*LanguageVariant, error) {
	var variant LanguageVariant
	if err := s.c.Put(ctx, variantPath(itemCodename, languageCodename), data, &variant); err != nil {
		return nil, err
	}
	return &variant, nil
}

func (s *Service) CreateNewVersion(ctx context.Context, itemCodename, languageCodename string) error {
	return s.c.Put(ctx, variantPath(itemCodename, languageCodename)+"/new-version", nil, nil)
}

func (s *Service) ChangeWorkflow(ctx context.Context, itemCodename, languageCodename, workflowCodename, stepCodename string) error {
	body := VariantWorkflow{
		WorkflowIdentifier: ByCodename(workflowCodename),
		StepIdentifier:     ByCodename(stepCodename),
	}
	return s.c.Put(ctx, variantPath(itemCodename, languageCodename)+"/change-workflow", body, nil)
}

func (s *Service) PublishLanguageVariant(ctx context.Context, itemCodename, languageCodename string, schedule *PublishSchedule) error {
	var body any
	if schedule != nil {
		body = schedule
	}
	return s.c.Put(ctx, variantPath(itemCodename, languageCodename)+"/publish", body, nil)
}

func (s *Service) UnpublishLanguageVariant(ctx context.Context, itemCodename, languageCodename string, schedule *PublishSchedule) error {
	var body any
	if schedule != nil {
		body = schedule
	}
	return s.c.Put(ctx, variantPath(itemCodename, languageCodename)+"/unpublish", body, nil)
}

func (s *Service) CancelScheduledPublish(ctx context.Context, itemCodename, languageCodename string) error {
	return s.c.Put(ctx, variantPath(itemCodename, languageCodename)+"/cancel-scheduled-publish", nil, nil)
}

func (s *Service) CancelScheduledUnpublish(ctx context.Context, itemCodename, languageCodename string) error {
	return s.c.Put(ctx, variantPath(itemCodename, languageCodename)+"/cancel-scheduled-unpublish", nil, nil)
}

func (s *Service) ViewAsset(ctx context.Context, ref Reference) (*Asset, error) {
	path := "/assets/" + ref.ID
	if ref.ID == "" {
		path = "/assets/codename/" + ref.Codename
	}
	var asset Asset
	if err := s.c.Get(ctx, path, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *Service) AddAsset(ctx context.Context, data AddAssetData) (*Asset, error) {
	var asset Asset
	if err := s.c.Post(ctx, "/assets", data, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *Service) UpsertAsset(ctx context.Context, codename string, data UpsertAssetData) (*Asset, error) {
	var asset Asset
	if err := s.c.Put(ctx, "/assets/codename/"+codename, data, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *Service) UploadBinaryFile(ctx context.Context, data BinaryFileData) (FileReference, error) {
	var ref FileReference
	path := "/files/" + url.PathEscape(data.Filename)
	if err := s.c.PostBinary(ctx, path, data.Binary, data.ContentType, &ref); err != nil {
		return FileReference{}, err
	}
	return ref, nil
}

func (s *Service) DownloadAssetBinary(ctx context.Context, assetURL string) ([]byte, string, error) {
	return s.c.Download(ctx, assetURL)
}

type pagination struct {
	ContinuationToken string `json:"continuation_token"`
}

func (s *Service) ListCollections(ctx context.Context) ([]Collection, error) {
	var page struct {
		Collections []Collection `json:"collections"`
	}
	if err := s.c.Get(ctx, "/collections", &page); err != nil {
		return nil, err
	}
	return page.Collections, nil
}

func (s *Service) ListLanguages(ctx context.Context) ([]Language, error) {
	var all []Language
	token := ""
	for {
		var page struct {
			Languages  []Language `json:"languages"`
			Pagination pagination `json:"pagination"`
		}
		if err := s.c.GetPage(ctx, "/languages", token, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Languages...)
		if page.Pagination.ContinuationToken == "" {
			return all, nil
		}
		token = page.Pagination.ContinuationToken
	}
}

func (s *Service) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	var workflows []Workflow
	if err := s.c.Get(ctx, "/workflows", &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

func (s *Service) ListTaxonomies(ctx context.Context) ([]TaxonomyGroup, error) {
	var all []TaxonomyGroup
	token := ""
	for {
		var page struct {
			Taxonomies []TaxonomyGroup `json:"taxonomies"`
			Pagination pagination      `json:"pagination"`
		}
		if err := s.c.GetPage(ctx, "/taxonomies", token, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Taxonomies...)
		if page.Pagination.ContinuationToken == "" {
			return all, nil
		}
		token = page.Pagination.ContinuationToken
	}
}

func (s *Service) ListContentTypes(ctx context.Context) ([]ContentType, error) {
	var all []ContentType
	token := ""
	for {
		var page struct {
			Types      []ContentType `json:"types"`
			Pagination pagination    `json:"pagination"`
		}
		if err := s.c.GetPage(ctx, "/types", token, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Types...)
		if page.Pagination.ContinuationToken == "" {
			return all, nil
		}
		token = page.Pagination.ContinuationToken
	}
}

func (s *Service) ListAssetFolders(ctx context.Context) ([]AssetFolder, error) {
	var page struct {
		Folders []AssetFolder `json:"folders"`
	}
	if err := s.c.Get(ctx, "/folders", &page); err != nil {
		return nil, err
	}
	return page.Folders, nil
}
