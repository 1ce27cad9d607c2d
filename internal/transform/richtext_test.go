package transform

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/core"
)

func TestExportRichTextRewritesItemLink(t *testing.T) {
	html := `<p><a data-item-id="item-faq">X</a></p>`

	rewritten, _, err := ExportRichText(testExportContext(), html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<p><a data-manager-link-codename="faq">X</a></p>`
	if rewritten != want {
		t.Errorf("expected %s, got %s", want, rewritten)
	}
}

func TestExportRichTextInvalidLinkLeftUntouched(t *testing.T) {
	ectx := testExportContext()
	var warned bool
	ectx.Warnf = func(string, ...any) { warned = true }
	html := `<a data-item-id="item-unknown">X</a>`

	rewritten, _, err := ExportRichText(ectx, html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rewritten != html {
		t.Errorf("expected untouched html, got %s", rewritten)
	}
	if !warned {
		t.Error("expected a warning")
	}
}

func TestExportRichTextInvalidLinkReplaced(t *testing.T) {
	ectx := testExportContext()
	ectx.ReplaceInvalidLinks = true
	html := `before <a href="x" data-item-id="item-unknown">keep me</a> after`

	rewritten, _, err := ExportRichText(ectx, html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rewritten != "before keep me after" {
		t.Errorf("expected anchor stripped to text, got %s", rewritten)
	}
}

func TestExportRichTextLinkedItemObject(t *testing.T) {
	html := `<object type="application/kenticocloud" data-type="item" data-id="item-faq"></object>`

	rewritten, components, err := ExportRichText(testExportContext(), html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(components) != 0 {
		t.Errorf("expected no components, got %d", len(components))
	}
	if !strings.Contains(rewritten, `data-codename="faq"`) {
		t.Errorf("expected codename object, got %s", rewritten)
	}
	if strings.Contains(rewritten, "data-id") {
		t.Errorf("expected id removed, got %s", rewritten)
	}
}

func TestExportRichTextCapturesComponent(t *testing.T) {
	componentID := core.CodenameToUUID("hero_banner")
	html := `<object type="application/kenticocloud" data-type="item" data-rel="component" data-codename="hero_banner"></object>`
	wireComponents := []api.Component{
		{
			ID:   componentID,
			Type: api.Reference{ID: "type-quote"},
			Elements: []api.VariantElement{
				{Element: api.Reference{ID: "el-text"}, Value: json.RawMessage(`"quoted"`)},
			},
		},
	}

	rewritten, components, err := ExportRichText(testExportContext(), html, wireComponents)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(components) != 1 {
		t.Fatalf("expected one captured component, got %d", len(components))
	}
	component := components[0]
	if component.ID != componentID {
		t.Errorf("expected id %s, got %s", componentID, component.ID)
	}
	if component.Type.Codename != "quote" {
		t.Errorf("expected type quote, got %s", component.Type.Codename)
	}
	if component.Elements["text"].Value != "quoted" {
		t.Errorf("expected transformed element, got %+v", component.Elements)
	}
	if !strings.Contains(rewritten, `data-type="component"`) || !strings.Contains(rewritten, `data-id="`+componentID+`"`) {
		t.Errorf("expected re-typed component object, got %s", rewritten)
	}
}

func TestExportRichTextAssetReference(t *testing.T) {
	html := `<figure data-asset-id="asset-logo"><img src="x" data-asset-id="asset-logo"></figure>`

	rewritten, _, err := ExportRichText(testExportContext(), html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rewritten, "data-asset-id") || !strings.Contains(rewritten, `data-asset-codename="logo"`) {
		t.Errorf("expected asset codename form, got %s", rewritten)
	}
}

func TestExportRichTextUnresolvedAssetIsFatal(t *testing.T) {
	html := `<figure data-asset-id="asset-unknown"></figure>`

	if _, _, err := ExportRichText(testExportContext(), html, nil); err == nil {
		t.Fatal("expected hard error for unresolved asset")
	}
}

func TestImportRichTextRewritesLinkBack(t *testing.T) {
	html := `<p><a data-manager-link-codename="faq">X</a></p>`

	rewritten, _, err := ImportRichText(context.Background(), testImportContext(), html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<p><a data-item-id="target-faq">X</a></p>`
	if rewritten != want {
		t.Errorf("expected %s, got %s", want, rewritten)
	}
}

func TestImportRichTextStripsMissingLink(t *testing.T) {
	ictx := testImportContext()
	ictx.ItemIDs["ghost"] = ""
	html := `x <a data-manager-link-codename="ghost">text</a> y`

	rewritten, _, err := ImportRichText(context.Background(), ictx, html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rewritten != "x text y" {
		t.Errorf("expected stripped anchor, got %s", rewritten)
	}
}

func TestImportRichTextReembedsComponent(t *testing.T) {
	componentID := core.CodenameToUUID("hero_banner")
	html := `<object type="application/kenticocloud" data-type="component" data-id="` + componentID + `"></object>`
	components := []core.MigrationComponent{
		{
			ID:   componentID,
			Type: core.CodenameRef{Codename: "quote"},
			Elements: map[string]core.MigrationElement{
				"text": {Type: core.ElementText, Value: "quoted"},
			},
		},
	}

	rewritten, wireComponents, err := ImportRichText(context.Background(), testImportContext(), html, components)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wireComponents) != 1 {
		t.Fatalf("expected one wire component, got %d", len(wireComponents))
	}
	if wireComponents[0].Type.Codename != "quote" {
		t.Errorf("expected type quote, got %+v", wireComponents[0].Type)
	}
	if len(wireComponents[0].Elements) != 1 || wireComponents[0].Elements[0].Element.Codename != "text" {
		t.Errorf("expected transformed component elements, got %+v", wireComponents[0].Elements)
	}
	if !strings.Contains(rewritten, `data-id="`+componentID+`"`) {
		t.Errorf("expected component object kept, got %s", rewritten)
	}
}

func TestImportRichTextDropsMissingObject(t *testing.T) {
	ictx := testImportContext()
	ictx.ItemIDs["ghost"] = ""
	html := `a<object type="application/kenticocloud" data-type="item" data-codename="ghost"></object>b`

	rewritten, _, err := ImportRichText(context.Background(), ictx, html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rewritten != "ab" {
		t.Errorf("expected object dropped, got %s", rewritten)
	}
}

func TestImportRichTextNormalizations(t *testing.T) {
	html := `<p><a href="https://example.com" target="_blank" rel="noopener">x</a>` +
		`<a href="">y</a><img src="rendered.png" data-image-id="img-1"></p>`

	rewritten, _, err := ImportRichText(context.Background(), testImportContext(), html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rewritten, `data-new-window="true"`) {
		t.Errorf("expected target=_blank converted, got %s", rewritten)
	}
	for _, forbidden := range []string{`rel="`, `href=""`, "<img", "data-image-id"} {
		if strings.Contains(rewritten, forbidden) {
			t.Errorf("expected %s removed, got %s", forbidden, rewritten)
		}
	}
}

func TestImportRichTextMissingAssetDropsFigure(t *testing.T) {
	ictx := testImportContext()
	var warned bool
	ictx.Warnf = func(string, ...any) { warned = true }
	html := `a<figure data-asset-codename="missing"><p>caption</p></figure>b`

	rewritten, _, err := ImportRichText(context.Background(), ictx, html, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rewritten != "ab" {
		t.Errorf("expected figure dropped, got %s", rewritten)
	}
	if !warned {
		t.Error("expected a warning")
	}
}

func TestRoundTripLinkRewrite(t *testing.T) {
	source := `<p><a data-item-id="item-faq">X</a></p>`

	exported, _, err := ExportRichText(testExportContext(), source, nil)
	if err != nil {
		t.Fatalf("unexpected export error: %v", err)
	}
	imported, _, err := ImportRichText(context.Background(), testImportContext(), exported, nil)
	if err != nil {
		t.Fatalf("unexpected import error: %v", err)
	}
	if imported != `<p><a data-item-id="target-faq">X</a></p>` {
		t.Errorf("round trip failed: %s", imported)
	}
}
