package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/core"
)

// URL slug modes.
const (
	SlugModeAutogenerated = "autogenerated"
	SlugModeCustom        = "custom"
)

type exportFunc func(c *ExportContext, descriptor *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error)

type importFunc func(ctx context.Context, c *ImportContext, descriptor *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error)

type elementTransforms struct {
	exportValue exportFunc
	importValue importFunc
}

// registry dispatches on the closed element type set. Unknown types are
// transform errors, not silently passed through.
//
// Populated by init() rather than a package-level map literal: exportRichText
// transitively calls ExportElement, which reads registry, and the compiler's
// initialization-cycle check does not tolerate that self-reference in a
// literal even though it is only ever evaluated long after init.
var registry map[string]elementTransforms

func init() {
	registry = map[string]elementTransforms{
		core.ElementText:           {exportText, importText},
		core.ElementCustom:         {exportText, importText},
		core.ElementNumber:         {exportNumber, importNumber},
		core.ElementDateTime:       {exportDateTime, importDateTime},
		core.ElementURLSlug:        {exportURLSlug, importURLSlug},
		core.ElementAsset:          {exportAsset, importAsset},
		core.ElementTaxonomy:       {exportTaxonomy, importTaxonomy},
		core.ElementMultipleChoice: {exportMultipleChoice, importMultipleChoice},
		core.ElementModularContent: {exportModularContent, importModularContent},
		core.ElementSubpages:       {exportSubpages, importSubpages},
		core.ElementRichText:       {exportRichText, importRichText},
	}
}

// ExportElement translates one wire element into its migration form.
func ExportElement(c *ExportContext, descriptor *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	transforms, ok := registry[descriptor.Type]
	if !ok {
		return nil, fmt.Errorf("element %q: unsupported type %q", descriptor.Codename, descriptor.Type)
	}
	element, err := transforms.exportValue(c, descriptor, wire)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", descriptor.Codename, err)
	}
	element.Type = descriptor.Type
	return element, nil
}

// ImportElement translates one migration element into its wire contract.
// A nil result with nil error means the element is skipped entirely.
func ImportElement(ctx context.Context, c *ImportContext, descriptor *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	transforms, ok := registry[element.Type]
	if !ok {
		return nil, fmt.Errorf("element %q: unsupported type %q", descriptor.Codename, element.Type)
	}
	wire, err := transforms.importValue(ctx, c, descriptor, element)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", descriptor.Codename, err)
	}
	if wire != nil {
		wire.Element = api.ByCodename(descriptor.Codename)
	}
	return wire, nil
}

func decodeString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected string value: %w", err)
	}
	return s, nil
}

func decodeReferences(raw json.RawMessage) ([]api.Reference, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var refs []api.Reference
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("expected reference array: %w", err)
	}
	return refs, nil
}

func encodeValue(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return data, nil
}

func exportText(_ *ExportContext, _ *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	value, err := decodeString(wire.Value)
	if err != nil {
		return nil, err
	}
	return &core.MigrationElement{Value: value}, nil
}

func importText(_ context.Context, _ *ImportContext, _ *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	value, _ := element.Value.(string)
	raw, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	return &api.VariantElement{Value: raw}, nil
}

func exportNumber(_ *ExportContext, _ *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	if len(wire.Value) == 0 || string(wire.Value) == "null" {
		return &core.MigrationElement{}, nil
	}
	var value float64
	if err := json.Unmarshal(wire.Value, &value); err != nil {
		return nil, fmt.Errorf("expected number value: %w", err)
	}
	// Zero is a value, not an absence.
	return &core.MigrationElement{Value: value}, nil
}

func importNumber(_ context.Context, _ *ImportContext, _ *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	if element.Value == nil {
		return &api.VariantElement{Value: json.RawMessage("null")}, nil
	}
	raw, err := encodeValue(element.Value)
	if err != nil {
		return nil, err
	}
	return &api.VariantElement{Value: raw}, nil
}

func exportDateTime(_ *ExportContext, _ *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	value, err := decodeString(wire.Value)
	if err != nil {
		return nil, err
	}
	return &core.MigrationElement{Value: value, DisplayTimezone: wire.DisplayTimezone}, nil
}

func importDateTime(_ context.Context, _ *ImportContext, _ *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	value, _ := element.Value.(string)
	raw, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	return &api.VariantElement{Value: raw, DisplayTimezone: element.DisplayTimezone}, nil
}

func exportURLSlug(_ *ExportContext, _ *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	value, err := decodeString(wire.Value)
	if err != nil {
		return nil, err
	}
	mode := wire.Mode
	if mode == "" {
		mode = SlugModeAutogenerated
	}
	return &core.MigrationElement{Value: value, Mode: mode}, nil
}

func importURLSlug(_ context.Context, _ *ImportContext, _ *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	value, _ := element.Value.(string)
	raw, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	// Autogenerated slugs would drift from the exported values.
	return &api.VariantElement{Value: raw, Mode: SlugModeCustom}, nil
}

func exportAsset(c *ExportContext, _ *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	refs, err := decodeReferences(wire.Value)
	if err != nil {
		return nil, err
	}
	codenames := make([]core.CodenameRef, 0, len(refs))
	for _, ref := range refs {
		codename, ok := c.AssetCodenameByID(ref.ID)
		if !ok {
			return nil, fmt.Errorf("asset %q not found in source environment", ref.ID)
		}
		codenames = append(codenames, core.CodenameRef{Codename: codename})
	}
	return &core.MigrationElement{Value: codenames}, nil
}

func importAsset(_ context.Context, c *ImportContext, _ *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	refs, err := core.CodenameRefs(element.Value)
	if err != nil {
		return nil, err
	}
	ids := make([]api.Reference, 0, len(refs))
	for _, ref := range refs {
		id, ok := c.AssetIDByCodename(ref.Codename)
		if !ok {
			c.Warnf("asset %q missing in target environment, skipping reference", ref.Codename)
			continue
		}
		ids = append(ids, api.ByID(id))
	}
	raw, err := encodeValue(ids)
	if err != nil {
		return nil, err
	}
	return &api.VariantElement{Value: raw}, nil
}

func taxonomyGroup(env *api.EnvironmentData, descriptor *api.TypeElement) (*api.TaxonomyGroup, error) {
	if descriptor.TaxonomyGroup == nil {
		return nil, fmt.Errorf("taxonomy element without a declared group")
	}
	ref := descriptor.TaxonomyGroup
	if ref.ID != "" {
		if group, ok := env.TaxonomyByID(ref.ID); ok {
			return group, nil
		}
		return nil, fmt.Errorf("taxonomy group %q not found", ref.ID)
	}
	if group, ok := env.TaxonomyByCodename(ref.Codename); ok {
		return group, nil
	}
	return nil, fmt.Errorf("taxonomy group %q not found", ref.Codename)
}

func exportTaxonomy(c *ExportContext, descriptor *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	refs, err := decodeReferences(wire.Value)
	if err != nil {
		return nil, err
	}
	group, err := taxonomyGroup(c.Environment, descriptor)
	if err != nil {
		return nil, err
	}
	codenames := make([]core.CodenameRef, 0, len(refs))
	for _, ref := range refs {
		codename, ok := group.TermCodenameByID(ref.ID)
		if !ok {
			return nil, fmt.Errorf("term %q not found in taxonomy group %q", ref.ID, group.Codename)
		}
		codenames = append(codenames, core.CodenameRef{Codename: codename})
	}
	return &core.MigrationElement{Value: codenames}, nil
}

func importTaxonomy(_ context.Context, c *ImportContext, descriptor *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	refs, err := core.CodenameRefs(element.Value)
	if err != nil {
		return nil, err
	}
	group, err := taxonomyGroup(c.Environment, descriptor)
	if err != nil {
		return nil, err
	}
	ids := make([]api.Reference, 0, len(refs))
	for _, ref := range refs {
		id, ok := group.TermIDByCodename(ref.Codename)
		if !ok {
			return nil, fmt.Errorf("term %q not found in taxonomy group %q", ref.Codename, group.Codename)
		}
		ids = append(ids, api.ByID(id))
	}
	raw, err := encodeValue(ids)
	if err != nil {
		return nil, err
	}
	return &api.VariantElement{Value: raw}, nil
}

func exportMultipleChoice(_ *ExportContext, descriptor *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	refs, err := decodeReferences(wire.Value)
	if err != nil {
		return nil, err
	}
	codenames := make([]core.CodenameRef, 0, len(refs))
	for _, ref := range refs {
		found := false
		for _, option := range descriptor.Options {
			if option.ID == ref.ID {
				codenames = append(codenames, core.CodenameRef{Codename: option.Codename})
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("choice option %q not found", ref.ID)
		}
	}
	return &core.MigrationElement{Value: codenames}, nil
}

func importMultipleChoice(_ context.Context, _ *ImportContext, descriptor *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	refs, err := core.CodenameRefs(element.Value)
	if err != nil {
		return nil, err
	}
	ids := make([]api.Reference, 0, len(refs))
	for _, ref := range refs {
		found := false
		for _, option := range descriptor.Options {
			if option.Codename == ref.Codename {
				ids = append(ids, api.ByID(option.ID))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("choice option %q not found", ref.Codename)
		}
	}
	raw, err := encodeValue(ids)
	if err != nil {
		return nil, err
	}
	return &api.VariantElement{Value: raw}, nil
}

func exportModularContent(c *ExportContext, _ *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	refs, err := decodeReferences(wire.Value)
	if err != nil {
		return nil, err
	}
	codenames := make([]core.CodenameRef, 0, len(refs))
	for _, ref := range refs {
		codename, ok := c.ItemCodenameByID(ref.ID)
		if !ok {
			// Dangling references happen when linked items were deleted;
			// the platform keeps the dead id around.
			continue
		}
		codenames = append(codenames, core.CodenameRef{Codename: codename})
	}
	return &core.MigrationElement{Value: codenames}, nil
}

func importModularContent(ctx context.Context, c *ImportContext, _ *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	refs, err := core.CodenameRefs(element.Value)
	if err != nil {
		return nil, err
	}
	ids := make([]api.Reference, 0, len(refs))
	for _, ref := range refs {
		id, found, err := c.ItemIDByCodename(ctx, ref.Codename)
		if err != nil {
			return nil, err
		}
		if !found {
			c.Warnf("linked item %q missing in target environment, dropping reference", ref.Codename)
			continue
		}
		ids = append(ids, api.ByID(id))
	}
	raw, err := encodeValue(ids)
	if err != nil {
		return nil, err
	}
	return &api.VariantElement{Value: raw}, nil
}

func exportSubpages(c *ExportContext, _ *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	refs, err := decodeReferences(wire.Value)
	if err != nil {
		return nil, err
	}
	codenames := make([]core.CodenameRef, 0, len(refs))
	for _, ref := range refs {
		codename, ok := c.ItemCodenameByID(ref.ID)
		if !ok {
			return nil, fmt.Errorf("subpage %q not found in source environment", ref.ID)
		}
		codenames = append(codenames, core.CodenameRef{Codename: codename})
	}
	return &core.MigrationElement{Value: codenames}, nil
}

func importSubpages(ctx context.Context, c *ImportContext, _ *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	refs, err := core.CodenameRefs(element.Value)
	if err != nil {
		return nil, err
	}
	ids := make([]api.Reference, 0, len(refs))
	for _, ref := range refs {
		id, found, err := c.ItemIDByCodename(ctx, ref.Codename)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("subpage %q not found in target environment", ref.Codename)
		}
		ids = append(ids, api.ByID(id))
	}
	raw, err := encodeValue(ids)
	if err != nil {
		return nil, err
	}
	return &api.VariantElement{Value: raw}, nil
}

func exportRichText(c *ExportContext, _ *api.TypeElement, wire *api.VariantElement) (*core.MigrationElement, error) {
	html, err := decodeString(wire.Value)
	if err != nil {
		return nil, err
	}
	rewritten, components, err := ExportRichText(c, html, wire.Components)
	if err != nil {
		return nil, err
	}
	return &core.MigrationElement{Value: rewritten, Components: components}, nil
}

func importRichText(ctx context.Context, c *ImportContext, _ *api.TypeElement, element *core.MigrationElement) (*api.VariantElement, error) {
	html, _ := element.Value.(string)
	rewritten, components, err := ImportRichText(ctx, c, html, element.Components)
	if err != nil {
		return nil, err
	}
	raw, err := encodeValue(rewritten)
	if err != nil {
		return nil, err
	}
	return &api.VariantElement{Value: raw, Components: components}, nil
}
