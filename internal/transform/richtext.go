package transform

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/core"
)

// The platform serializes rich text as a constrained HTML subset, so the
// rewrites here stay at the attribute-string level on purpose; a full
// HTML parser would accept input the platform never produces.
var (
	itemIDAttrRe        = regexp.MustCompile(`data-item-id="([^"]*)"`)
	assetIDAttrRe       = regexp.MustCompile(`data-asset-id="([^"]*)"`)
	linkCodenameAttrRe  = regexp.MustCompile(`data-manager-link-codename="([^"]*)"`)
	assetCodenameAttrRe = regexp.MustCompile(`data-asset-codename="([^"]*)"`)
	objectTagRe         = regexp.MustCompile(`(?s)<object[^>]*type="application/kenticocloud"[^>]*>(?:\s*</object>)?`)
	tagAttrRe           = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9-]*)="([^"]*)"`)

	relAttrRe       = regexp.MustCompile(`\s+rel="[^"]*"`)
	emptyHrefRe     = regexp.MustCompile(`\s+href=""`)
	imgTagRe        = regexp.MustCompile(`<img[^>]*/?>`)
	imageIDAttrRe   = regexp.MustCompile(`\s+data-image-id="[^"]*"`)
	targetBlankRe   = regexp.MustCompile(`target="_blank"`)
)

func parseAttrs(tag string) map[string]string {
	attrs := map[string]string{}
	for _, match := range tagAttrRe.FindAllStringSubmatch(tag, -1) {
		attrs[match[1]] = match[2]
	}
	return attrs
}

func stripAnchorsMatching(html, attr, value string) string {
	re := regexp.MustCompile(`(?s)<a[^>]*` + attr + `="` + regexp.QuoteMeta(value) + `"[^>]*>(.*?)</a>`)
	return re.ReplaceAllString(html, "$1")
}

// ExportRichText rewrites a wire rich-text fragment into the snapshot
// form: item and asset ids become codenames and inline components are
// captured as migration components.
func ExportRichText(c *ExportContext, html string, wireComponents []api.Component) (string, []core.MigrationComponent, error) {
	html, err := exportItemLinks(c, html)
	if err != nil {
		return "", nil, err
	}
	html, components, err := exportObjects(c, html, wireComponents)
	if err != nil {
		return "", nil, err
	}
	html, err = exportAssetRefs(c, html)
	if err != nil {
		return "", nil, err
	}
	return html, components, nil
}

func exportItemLinks(c *ExportContext, html string) (string, error) {
	ids := uniqueMatches(itemIDAttrRe, html)
	for _, id := range ids {
		if codename, ok := c.ItemCodenameByID(id); ok {
			html = strings.ReplaceAll(html,
				`data-item-id="`+id+`"`,
				`data-manager-link-codename="`+codename+`"`)
			continue
		}
		if c.ReplaceInvalidLinks {
			c.Warnf("link to unresolved item %q replaced with its text", id)
			html = stripAnchorsMatching(html, "data-item-id", id)
			continue
		}
		c.Warnf("link to unresolved item %q left untouched", id)
	}
	return html, nil
}

func exportObjects(c *ExportContext, html string, wireComponents []api.Component) (string, []core.MigrationComponent, error) {
	var components []core.MigrationComponent
	var firstErr error

	html = objectTagRe.ReplaceAllStringFunc(html, func(tag string) string {
		if firstErr != nil {
			return tag
		}
		attrs := parseAttrs(tag)

		if attrs["data-rel"] == "component" || attrs["data-type"] == "component" {
			component, rewritten, err := exportComponent(c, attrs, wireComponents)
			if err != nil {
				firstErr = err
				return tag
			}
			components = append(components, *component)
			return rewritten
		}

		// Plain linked-item object.
		codename := attrs["data-codename"]
		if codename == "" {
			resolved, ok := c.ItemCodenameByID(attrs["data-id"])
			if !ok {
				c.Warnf("rich-text object references unresolved item %q", attrs["data-id"])
				return tag
			}
			codename = resolved
		}
		return `<object type="application/kenticocloud" data-type="item" data-codename="` + codename + `"></object>`
	})

	if firstErr != nil {
		return "", nil, firstErr
	}
	return html, components, nil
}

func exportComponent(c *ExportContext, attrs map[string]string, wireComponents []api.Component) (*core.MigrationComponent, string, error) {
	id := attrs["data-id"]
	if id == "" {
		if attrs["data-codename"] == "" {
			return nil, "", fmt.Errorf("component object without data-id or data-codename")
		}
		id = core.CodenameToUUID(attrs["data-codename"])
	}

	var wire *api.Component
	for i := range wireComponents {
		if wireComponents[i].ID == id {
			wire = &wireComponents[i]
			break
		}
	}
	if wire == nil {
		return nil, "", fmt.Errorf("component %q not declared on the element", id)
	}

	componentType, err := resolveType(c.Environment, wire.Type)
	if err != nil {
		return nil, "", fmt.Errorf("component %q: %w", id, err)
	}

	elements := map[string]core.MigrationElement{}
	for i := range wire.Elements {
		wireElement := &wire.Elements[i]
		descriptor, err := typeElementFor(componentType, wireElement.Element)
		if err != nil {
			return nil, "", fmt.Errorf("component %q: %w", id, err)
		}
		element, err := ExportElement(c, descriptor, wireElement)
		if err != nil {
			return nil, "", fmt.Errorf("component %q: %w", id, err)
		}
		elements[descriptor.Codename] = *element
	}

	component := &core.MigrationComponent{
		ID:       id,
		Type:     core.CodenameRef{Codename: componentType.Codename},
		Elements: elements,
	}
	tag := `<object type="application/kenticocloud" data-type="component" data-id="` + id + `"></object>`
	return component, tag, nil
}

func exportAssetRefs(c *ExportContext, html string) (string, error) {
	for _, id := range uniqueMatches(assetIDAttrRe, html) {
		codename, ok := c.AssetCodenameByID(id)
		if !ok {
			return "", fmt.Errorf("rich text references asset %q not found in source environment", id)
		}
		html = strings.ReplaceAll(html,
			`data-asset-id="`+id+`"`,
			`data-asset-codename="`+codename+`"`)
	}
	return html, nil
}

// ImportRichText is the inverse pass: codenames back to target ids,
// components re-embedded, and the attribute forms the API refuses
// normalized away.
func ImportRichText(ctx context.Context, c *ImportContext, html string, components []core.MigrationComponent) (string, []api.Component, error) {
	html, err := importItemLinks(ctx, c, html)
	if err != nil {
		return "", nil, err
	}
	html, wireComponents, err := importObjects(ctx, c, html, components)
	if err != nil {
		return "", nil, err
	}
	html, err = importAssetRefs(c, html)
	if err != nil {
		return "", nil, err
	}
	return normalizeForUpsert(html), wireComponents, nil
}

func importItemLinks(ctx context.Context, c *ImportContext, html string) (string, error) {
	for _, codename := range uniqueMatches(linkCodenameAttrRe, html) {
		id, found, err := c.ItemIDByCodename(ctx, codename)
		if err != nil {
			return "", err
		}
		if !found {
			c.Warnf("linked item %q missing in target environment, stripping link", codename)
			html = stripAnchorsMatching(html, "data-manager-link-codename", codename)
			continue
		}
		html = strings.ReplaceAll(html,
			`data-manager-link-codename="`+codename+`"`,
			`data-item-id="`+id+`"`)
	}
	return html, nil
}

func importObjects(ctx context.Context, c *ImportContext, html string, components []core.MigrationComponent) (string, []api.Component, error) {
	var wireComponents []api.Component
	var firstErr error

	html = objectTagRe.ReplaceAllStringFunc(html, func(tag string) string {
		if firstErr != nil {
			return tag
		}
		attrs := parseAttrs(tag)

		if attrs["data-type"] == "component" {
			id := attrs["data-id"]
			component := findComponent(components, id)
			if component == nil {
				firstErr = fmt.Errorf("component %q not declared on the element", id)
				return tag
			}
			wire, err := importComponent(ctx, c, component)
			if err != nil {
				firstErr = err
				return tag
			}
			wireComponents = append(wireComponents, *wire)
			return `<object type="application/kenticocloud" data-type="component" data-id="` + id + `"></object>`
		}

		codename := attrs["data-codename"]
		id, found, err := c.ItemIDByCodename(ctx, codename)
		if err != nil {
			firstErr = err
			return tag
		}
		if !found {
			c.Warnf("rich-text object references item %q missing in target environment, dropping it", codename)
			return ""
		}
		return `<object type="application/kenticocloud" data-type="item" data-id="` + id + `"></object>`
	})

	if firstErr != nil {
		return "", nil, firstErr
	}
	return html, wireComponents, nil
}

func importComponent(ctx context.Context, c *ImportContext, component *core.MigrationComponent) (*api.Component, error) {
	componentType, ok := c.Environment.TypeByCodename(component.Type.Codename)
	if !ok {
		return nil, fmt.Errorf("component %q: content type %q not found in target environment", component.ID, component.Type.Codename)
	}

	codenames := make([]string, 0, len(component.Elements))
	for codename := range component.Elements {
		codenames = append(codenames, codename)
	}
	sort.Strings(codenames)

	var elements []api.VariantElement
	for _, codename := range codenames {
		descriptor := componentType.ElementByCodename(codename)
		if descriptor == nil {
			return nil, fmt.Errorf("component %q: element %q not found on type %q", component.ID, codename, componentType.Codename)
		}
		element := component.Elements[codename]
		wire, err := ImportElement(ctx, c, descriptor, &element)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", component.ID, err)
		}
		if wire != nil {
			elements = append(elements, *wire)
		}
	}

	return &api.Component{
		ID:       component.ID,
		Type:     api.ByCodename(componentType.Codename),
		Elements: elements,
	}, nil
}

func importAssetRefs(c *ImportContext, html string) (string, error) {
	for _, codename := range uniqueMatches(assetCodenameAttrRe, html) {
		id, ok := c.AssetIDByCodename(codename)
		if !ok {
			c.Warnf("rich-text asset %q missing in target environment, dropping reference", codename)
			figureRe := regexp.MustCompile(`(?s)<figure[^>]*data-asset-codename="` + regexp.QuoteMeta(codename) + `"[^>]*>.*?</figure>`)
			html = figureRe.ReplaceAllString(html, "")
			html = stripAnchorsMatching(html, "data-asset-codename", codename)
			continue
		}
		html = strings.ReplaceAll(html,
			`data-asset-codename="`+codename+`"`,
			`data-asset-id="`+id+`"`)
	}
	return html, nil
}

// normalizeForUpsert removes rendered artifacts the upsert endpoint
// refuses and converts browser link attributes to the platform's forms.
func normalizeForUpsert(html string) string {
	html = targetBlankRe.ReplaceAllString(html, `data-new-window="true"`)
	html = relAttrRe.ReplaceAllString(html, "")
	html = emptyHrefRe.ReplaceAllString(html, "")
	html = imgTagRe.ReplaceAllString(html, "")
	html = imageIDAttrRe.ReplaceAllString(html, "")
	return html
}

func findComponent(components []core.MigrationComponent, id string) *core.MigrationComponent {
	for i := range components {
		if components[i].ID == id {
			return &components[i]
		}
	}
	return nil
}

func resolveType(env *api.EnvironmentData, ref api.Reference) (*api.ContentType, error) {
	if ref.ID != "" {
		if t, ok := env.TypeByID(ref.ID); ok {
			return t, nil
		}
		return nil, fmt.Errorf("content type %q not found", ref.ID)
	}
	if t, ok := env.TypeByCodename(ref.Codename); ok {
		return t, nil
	}
	return nil, fmt.Errorf("content type %q not found", ref.Codename)
}

func typeElementFor(contentType *api.ContentType, ref api.Reference) (*api.TypeElement, error) {
	if ref.ID != "" {
		if descriptor := contentType.Element(ref.ID); descriptor != nil {
			return descriptor, nil
		}
		return nil, fmt.Errorf("element %q not found on type %q", ref.ID, contentType.Codename)
	}
	if descriptor := contentType.ElementByCodename(ref.Codename); descriptor != nil {
		return descriptor, nil
	}
	return nil, fmt.Errorf("element %q not found on type %q", ref.Codename, contentType.Codename)
}

func uniqueMatches(re *regexp.Regexp, html string) []string {
	seen := map[string]bool{}
	var out []string
	for _, match := range re.FindAllStringSubmatch(html, -1) {
		if match[1] == "" || seen[match[1]] {
			continue
		}
		seen[match[1]] = true
		out = append(out, match[1])
	}
	return out
}
