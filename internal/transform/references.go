package transform

import (
	"fmt"
	"sort"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/core"
)

// References is the closure of ids referenced from a set of elements.
type References struct {
	ItemIDs  map[string]struct{}
	AssetIDs map[string]struct{}
}

// NewReferences returns an empty reference set.
func NewReferences() *References {
	return &References{
		ItemIDs:  map[string]struct{}{},
		AssetIDs: map[string]struct{}{},
	}
}

// Merge folds other into r.
func (r *References) Merge(other *References) {
	for id := range other.ItemIDs {
		r.ItemIDs[id] = struct{}{}
	}
	for id := range other.AssetIDs {
		r.AssetIDs[id] = struct{}{}
	}
}

// Items returns the item ids sorted, for deterministic processing order.
func (r *References) Items() []string { return keys(r.ItemIDs) }

// Assets returns the asset ids sorted.
func (r *References) Assets() []string { return keys(r.AssetIDs) }

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExtractReferences walks the elements of one variant (or component) and
// collects every referenced item id and asset id, recursing into inline
// rich-text components.
func ExtractReferences(env *api.EnvironmentData, contentType *api.ContentType, elements []api.VariantElement) (*References, error) {
	refs := NewReferences()
	for i := range elements {
		element := &elements[i]
		descriptor, err := typeElementFor(contentType, element.Element)
		if err != nil {
			return nil, err
		}
		if err := extractElement(env, refs, descriptor, element); err != nil {
			return nil, fmt.Errorf("element %q: %w", descriptor.Codename, err)
		}
	}
	return refs, nil
}

func extractElement(env *api.EnvironmentData, refs *References, descriptor *api.TypeElement, element *api.VariantElement) error {
	switch descriptor.Type {
	case core.ElementModularContent, core.ElementSubpages:
		ids, err := decodeReferences(element.Value)
		if err != nil {
			return err
		}
		for _, ref := range ids {
			if ref.ID != "" {
				refs.ItemIDs[ref.ID] = struct{}{}
			}
		}
	case core.ElementAsset:
		ids, err := decodeReferences(element.Value)
		if err != nil {
			return err
		}
		for _, ref := range ids {
			if ref.ID != "" {
				refs.AssetIDs[ref.ID] = struct{}{}
			}
		}
	case core.ElementRichText:
		html, err := decodeString(element.Value)
		if err != nil {
			return err
		}
		for _, id := range uniqueMatches(itemIDAttrRe, html) {
			refs.ItemIDs[id] = struct{}{}
		}
		for _, id := range uniqueMatches(assetIDAttrRe, html) {
			refs.AssetIDs[id] = struct{}{}
		}
		// Linked-item objects carry data-id (the anchor form carries
		// data-item-id); component objects resolve through Components.
		for _, tag := range objectTagRe.FindAllString(html, -1) {
			attrs := parseAttrs(tag)
			if attrs["data-rel"] == "component" || attrs["data-type"] == "component" {
				continue
			}
			if id := attrs["data-id"]; id != "" {
				refs.ItemIDs[id] = struct{}{}
			}
		}
		for i := range element.Components {
			component := &element.Components[i]
			componentType, err := resolveType(env, component.Type)
			if err != nil {
				return fmt.Errorf("component %q: %w", component.ID, err)
			}
			nested, err := ExtractReferences(env, componentType, component.Elements)
			if err != nil {
				return fmt.Errorf("component %q: %w", component.ID, err)
			}
			refs.Merge(nested)
		}
	}
	return nil
}
