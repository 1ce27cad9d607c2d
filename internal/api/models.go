package api

import "encoding/json"

// Reference identifies a platform entity by exactly one of its id,
// codename, or external id. When marshalled it emits a single key, which
// is what the management API expects.
type Reference struct {
	ID         string `json:"id,omitempty"`
	Codename   string `json:"codename,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

func (r Reference) MarshalJSON() ([]byte, error) {
	switch {
	case r.ID != "":
		return json.Marshal(map[string]string{"id": r.ID})
	case r.Codename != "":
		return json.Marshal(map[string]string{"codename": r.Codename})
	case r.ExternalID != "":
		return json.Marshal(map[string]string{"external_id": r.ExternalID})
	}
	return []byte("null"), nil
}

// ByID builds an id reference.
func ByID(id string) Reference { return Reference{ID: id} }

// ByCodename builds a codename reference.
func ByCodename(codename string) Reference { return Reference{Codename: codename} }

// ContentItem is the language-agnostic shell of a content item.
type ContentItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Codename   string    `json:"codename"`
	Type       Reference `json:"type"`
	Collection Reference `json:"collection"`
	ExternalID string    `json:"external_id,omitempty"`
}

// VariantElement is one element value on the wire.
type VariantElement struct {
	Element         Reference       `json:"element"`
	Value           json.RawMessage `json:"value,omitempty"`
	Mode            string          `json:"mode,omitempty"`
	DisplayTimezone string          `json:"display_timezone,omitempty"`
	Components      []Component     `json:"components,omitempty"`
}

// Component is an inline rich-text component on the wire.
type Component struct {
	ID       string           `json:"id"`
	Type     Reference        `json:"type"`
	Elements []VariantElement `json:"elements"`
}

// VariantWorkflow carries the workflow assignment of a language variant.
type VariantWorkflow struct {
	WorkflowIdentifier Reference `json:"workflow_identifier"`
	StepIdentifier     Reference `json:"step_identifier"`
}

// VariantSchedule carries scheduled publish/unpublish times.
type VariantSchedule struct {
	PublishTime              string `json:"publish_time,omitempty"`
	PublishDisplayTimezone   string `json:"publish_display_timezone,omitempty"`
	UnpublishTime            string `json:"unpublish_time,omitempty"`
	UnpublishDisplayTimezone string `json:"unpublish_display_timezone,omitempty"`
}

// LanguageVariant is the per-language payload of a content item.
type LanguageVariant struct {
	Item     Reference        `json:"item"`
	Language Reference        `json:"language"`
	Elements []VariantElement `json:"elements"`
	Workflow *VariantWorkflow `json:"workflow,omitempty"`
	Schedule *VariantSchedule `json:"schedule,omitempty"`
}

// WorkflowStep is one node of a workflow graph.
type WorkflowStep struct {
	ID            string      `json:"id"`
	Codename      string      `json:"codename"`
	Name          string      `json:"name"`
	TransitionsTo []Reference `json:"transitions_to,omitempty"`
}

// Workflow is a directed graph of steps plus the three pseudo-steps.
type Workflow struct {
	ID            string         `json:"id"`
	Codename      string         `json:"codename"`
	Name          string         `json:"name"`
	Steps         []WorkflowStep `json:"steps"`
	PublishedStep WorkflowStep   `json:"published_step"`
	ScheduledStep WorkflowStep   `json:"scheduled_step"`
	ArchivedStep  WorkflowStep   `json:"archived_step"`
}

// Language is one project language.
type Language struct {
	ID       string `json:"id"`
	Codename string `json:"codename"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Collection is one content collection.
type Collection struct {
	ID       string `json:"id"`
	Codename string `json:"codename"`
	Name     string `json:"name"`
}

// TaxonomyTerm is one node of a taxonomy tree.
type TaxonomyTerm struct {
	ID       string         `json:"id"`
	Codename string         `json:"codename"`
	Name     string         `json:"name"`
	Terms    []TaxonomyTerm `json:"terms,omitempty"`
}

// TaxonomyGroup is a taxonomy group with its term tree.
type TaxonomyGroup struct {
	ID       string         `json:"id"`
	Codename string         `json:"codename"`
	Name     string         `json:"name"`
	Terms    []TaxonomyTerm `json:"terms,omitempty"`
}

// MultipleChoiceOption is one option of a multiple-choice element.
type MultipleChoiceOption struct {
	ID       string `json:"id"`
	Codename string `json:"codename"`
	Name     string `json:"name"`
}

// TypeElement is one element descriptor of a flattened content type.
type TypeElement struct {
	ID            string                 `json:"id"`
	Codename      string                 `json:"codename"`
	Type          string                 `json:"type"`
	TaxonomyGroup *Reference             `json:"taxonomy_group,omitempty"`
	Options       []MultipleChoiceOption `json:"options,omitempty"`
}

// ContentType is a content model flattened into element descriptors.
type ContentType struct {
	ID       string        `json:"id"`
	Codename string        `json:"codename"`
	Name     string        `json:"name"`
	Elements []TypeElement `json:"elements"`
}

// Element returns the descriptor for the given element id, or nil.
func (t *ContentType) Element(id string) *TypeElement {
	for i := range t.Elements {
		if t.Elements[i].ID == id {
			return &t.Elements[i]
		}
	}
	return nil
}

// ElementByCodename returns the descriptor for the given codename, or nil.
func (t *ContentType) ElementByCodename(codename string) *TypeElement {
	for i := range t.Elements {
		if t.Elements[i].Codename == codename {
			return &t.Elements[i]
		}
	}
	return nil
}

// AssetFolder is one node of the asset folder tree.
type AssetFolder struct {
	ID       string        `json:"id"`
	Codename string        `json:"codename"`
	Name     string        `json:"name"`
	Folders  []AssetFolder `json:"folders,omitempty"`
}

// AssetDescription is a per-language asset description.
type AssetDescription struct {
	Language    Reference `json:"language"`
	Description string    `json:"description"`
}

// Asset is one binary asset's metadata.
type Asset struct {
	ID           string             `json:"id"`
	Codename     string             `json:"codename"`
	ExternalID   string             `json:"external_id,omitempty"`
	FileName     string             `json:"file_name"`
	Title        string             `json:"title,omitempty"`
	Size         int64              `json:"size,omitempty"`
	Type         string             `json:"type,omitempty"`
	URL          string             `json:"url,omitempty"`
	Collection   *AssetCollection   `json:"collection,omitempty"`
	Folder       *Reference         `json:"folder,omitempty"`
	Descriptions []AssetDescription `json:"descriptions,omitempty"`
}

// AssetCollection wraps the collection reference of an asset.
type AssetCollection struct {
	Reference Reference `json:"reference"`
}

// AddContentItemData is the payload for creating a content item shell.
type AddContentItemData struct {
	Name       string    `json:"name"`
	Codename   string    `json:"codename,omitempty"`
	Type       Reference `json:"type"`
	Collection Reference `json:"collection,omitempty"`
	ExternalID string    `json:"external_id,omitempty"`
}

// UpsertContentItemData is the payload for updating a content item shell.
// Only name and collection are updatable.
type UpsertContentItemData struct {
	Name       string     `json:"name,omitempty"`
	Collection *Reference `json:"collection,omitempty"`
}

// UpsertVariantData is the payload for upserting a language variant.
type UpsertVariantData struct {
	Elements []VariantElement `json:"elements"`
	Workflow *VariantWorkflow `json:"workflow,omitempty"`
}

// PublishSchedule is the optional scheduling payload of publish/unpublish.
type PublishSchedule struct {
	ScheduledTo     string `json:"scheduled_to"`
	DisplayTimezone string `json:"display_timezone,omitempty"`
}

// FileReference is the handle returned by a binary upload.
type FileReference struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// BinaryFileData describes a binary to upload.
type BinaryFileData struct {
	Binary        []byte
	Filename      string
	ContentType   string
	ContentLength int
}

// AddAssetData is the payload for creating an asset.
type AddAssetData struct {
	FileReference FileReference      `json:"file_reference"`
	Codename      string             `json:"codename,omitempty"`
	ExternalID    string             `json:"external_id,omitempty"`
	Title         string             `json:"title,omitempty"`
	Collection    *AssetCollection   `json:"collection,omitempty"`
	Folder        *Reference         `json:"folder,omitempty"`
	Descriptions  []AssetDescription `json:"descriptions,omitempty"`
}

// UpsertAssetData is the payload for updating asset metadata, with an
// optional binary replacement.
type UpsertAssetData struct {
	FileReference *FileReference     `json:"file_reference,omitempty"`
	Title         string             `json:"title,omitempty"`
	Collection    *AssetCollection   `json:"collection,omitempty"`
	Folder        *Reference         `json:"folder,omitempty"`
	Descriptions  []AssetDescription `json:"descriptions,omitempty"`
}
