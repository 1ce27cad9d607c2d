package transform

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/core"
)

func testEnvironment() *api.EnvironmentData {
	return &api.EnvironmentData{
		Collections: []api.Collection{{ID: "col-1", Codename: "default"}},
		Languages:   []api.Language{{ID: "lang-1", Codename: "en"}},
		Types: []api.ContentType{
			{
				ID:       "type-page",
				Codename: "page",
				Elements: []api.TypeElement{
					{ID: "el-heading", Codename: "heading", Type: core.ElementText},
					{ID: "el-count", Codename: "count", Type: core.ElementNumber},
					{ID: "el-slug", Codename: "slug", Type: core.ElementURLSlug},
					{ID: "el-tags", Codename: "tags", Type: core.ElementTaxonomy, TaxonomyGroup: &api.Reference{ID: "tax-1"}},
					{ID: "el-color", Codename: "color", Type: core.ElementMultipleChoice, Options: []api.MultipleChoiceOption{
						{ID: "opt-red", Codename: "red"},
						{ID: "opt-blue", Codename: "blue"},
					}},
					{ID: "el-related", Codename: "related", Type: core.ElementModularContent},
					{ID: "el-children", Codename: "children", Type: core.ElementSubpages},
					{ID: "el-hero", Codename: "hero", Type: core.ElementAsset},
					{ID: "el-body", Codename: "body", Type: core.ElementRichText},
				},
			},
			{
				ID:       "type-quote",
				Codename: "quote",
				Elements: []api.TypeElement{
					{ID: "el-text", Codename: "text", Type: core.ElementText},
				},
			},
		},
		Taxonomies: []api.TaxonomyGroup{
			{
				ID:       "tax-1",
				Codename: "topics",
				Terms: []api.TaxonomyTerm{
					{ID: "term-1", Codename: "news", Terms: []api.TaxonomyTerm{
						{ID: "term-2", Codename: "breaking"},
					}},
				},
			},
		},
	}
}

func testExportContext() *ExportContext {
	env := testEnvironment()
	return &ExportContext{
		Environment: env,
		Items: map[string]ItemState{
			"item-faq": {Item: &api.ContentItem{ID: "item-faq", Codename: "faq"}, Found: true},
			"item-gone": {},
		},
		Assets: map[string]AssetState{
			"asset-logo": {Asset: &api.Asset{ID: "asset-logo", Codename: "logo"}, Found: true},
		},
		Warnf: func(string, ...any) {},
	}
}

func testImportContext() *ImportContext {
	return &ImportContext{
		Environment: testEnvironment(),
		ItemIDs:     map[string]string{"faq": "target-faq"},
		AssetIDs:    map[string]string{"logo": "target-logo"},
		Warnf:       func(string, ...any) {},
	}
}

func descriptor(t *testing.T, codename string) *api.TypeElement {
	t.Helper()
	page, _ := testEnvironment().TypeByCodename("page")
	element := page.ElementByCodename(codename)
	if element == nil {
		t.Fatalf("descriptor %q missing from fixture", codename)
	}
	return element
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

func TestExportTextIdentity(t *testing.T) {
	element, err := ExportElement(testExportContext(), descriptor(t, "heading"), &api.VariantElement{Value: raw(t, "Hello")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if element.Type != core.ElementText || element.Value != "Hello" {
		t.Errorf("expected text Hello, got %+v", element)
	}
}

func TestExportNumberPreservesZero(t *testing.T) {
	element, err := ExportElement(testExportContext(), descriptor(t, "count"), &api.VariantElement{Value: raw(t, 0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if element.Value != float64(0) {
		t.Errorf("expected zero preserved, got %v", element.Value)
	}
}

func TestExportNumberAbsent(t *testing.T) {
	element, err := ExportElement(testExportContext(), descriptor(t, "count"), &api.VariantElement{Value: json.RawMessage("null")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if element.Value != nil {
		t.Errorf("expected undefined value, got %v", element.Value)
	}
}

func TestExportURLSlugDefaultsAutogenerated(t *testing.T) {
	element, err := ExportElement(testExportContext(), descriptor(t, "slug"), &api.VariantElement{Value: raw(t, "about-us")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if element.Mode != SlugModeAutogenerated {
		t.Errorf("expected autogenerated mode, got %q", element.Mode)
	}
}

func TestImportURLSlugForcesCustom(t *testing.T) {
	wire, err := ImportElement(context.Background(), testImportContext(), descriptor(t, "slug"),
		&core.MigrationElement{Type: core.ElementURLSlug, Value: "about-us", Mode: SlugModeAutogenerated})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wire.Mode != SlugModeCustom {
		t.Errorf("expected custom mode on import, got %q", wire.Mode)
	}
}

func TestExportAssetResolvesCodename(t *testing.T) {
	element, err := ExportElement(testExportContext(), descriptor(t, "hero"),
		&api.VariantElement{Value: raw(t, []map[string]string{{"id": "asset-logo"}})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refs := element.Value.([]core.CodenameRef)
	if len(refs) != 1 || refs[0].Codename != "logo" {
		t.Errorf("expected [logo], got %v", refs)
	}
}

func TestExportAssetUnresolvedIsFatal(t *testing.T) {
	_, err := ExportElement(testExportContext(), descriptor(t, "hero"),
		&api.VariantElement{Value: raw(t, []map[string]string{{"id": "asset-missing"}})})
	if err == nil {
		t.Fatal("expected hard error for unresolved asset")
	}
}

func TestImportAssetSkipsMissingWithWarning(t *testing.T) {
	ictx := testImportContext()
	var warned bool
	ictx.Warnf = func(string, ...any) { warned = true }

	wire, err := ImportElement(context.Background(), ictx, descriptor(t, "hero"), &core.MigrationElement{
		Type:  core.ElementAsset,
		Value: []core.CodenameRef{{Codename: "logo"}, {Codename: "missing"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !warned {
		t.Error("expected warning for missing target asset")
	}
	if !strings.Contains(string(wire.Value), "target-logo") || strings.Contains(string(wire.Value), "missing") {
		t.Errorf("expected only resolved asset in value, got %s", wire.Value)
	}
}

func TestExportTaxonomyDFS(t *testing.T) {
	element, err := ExportElement(testExportContext(), descriptor(t, "tags"),
		&api.VariantElement{Value: raw(t, []map[string]string{{"id": "term-2"}})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refs := element.Value.([]core.CodenameRef)
	if len(refs) != 1 || refs[0].Codename != "breaking" {
		t.Errorf("expected nested term resolved, got %v", refs)
	}
}

func TestExportTaxonomyUnresolvedIsFatal(t *testing.T) {
	_, err := ExportElement(testExportContext(), descriptor(t, "tags"),
		&api.VariantElement{Value: raw(t, []map[string]string{{"id": "term-x"}})})
	if err == nil {
		t.Fatal("expected hard error for unresolved term")
	}
}

func TestImportTaxonomyInverse(t *testing.T) {
	wire, err := ImportElement(context.Background(), testImportContext(), descriptor(t, "tags"), &core.MigrationElement{
		Type:  core.ElementTaxonomy,
		Value: []core.CodenameRef{{Codename: "breaking"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(wire.Value), "term-2") {
		t.Errorf("expected term id in value, got %s", wire.Value)
	}
}

func TestExportMultipleChoice(t *testing.T) {
	element, err := ExportElement(testExportContext(), descriptor(t, "color"),
		&api.VariantElement{Value: raw(t, []map[string]string{{"id": "opt-blue"}})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refs := element.Value.([]core.CodenameRef)
	if len(refs) != 1 || refs[0].Codename != "blue" {
		t.Errorf("expected [blue], got %v", refs)
	}

	_, err = ExportElement(testExportContext(), descriptor(t, "color"),
		&api.VariantElement{Value: raw(t, []map[string]string{{"id": "opt-green"}})})
	if err == nil {
		t.Error("expected hard error for unknown option")
	}
}

func TestExportModularContentDropsDangling(t *testing.T) {
	element, err := ExportElement(testExportContext(), descriptor(t, "related"),
		&api.VariantElement{Value: raw(t, []map[string]string{
			{"id": "item-faq"},
			{"id": "item-gone"},
			{"id": "item-unknown"},
		})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refs := element.Value.([]core.CodenameRef)
	if len(refs) != 1 || refs[0].Codename != "faq" {
		t.Errorf("expected dangling references dropped, got %v", refs)
	}
}

func TestExportSubpagesUnresolvedIsFatal(t *testing.T) {
	_, err := ExportElement(testExportContext(), descriptor(t, "children"),
		&api.VariantElement{Value: raw(t, []map[string]string{{"id": "item-gone"}})})
	if err == nil {
		t.Fatal("expected hard error for unresolved subpage")
	}
}

func TestImportModularContentDropsMissingTarget(t *testing.T) {
	ictx := testImportContext()
	ictx.ItemIDs["ghost"] = "" // probed, does not exist

	wire, err := ImportElement(context.Background(), ictx, descriptor(t, "related"), &core.MigrationElement{
		Type:  core.ElementModularContent,
		Value: []core.CodenameRef{{Codename: "faq"}, {Codename: "ghost"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(wire.Value), "target-faq") || strings.Contains(string(wire.Value), "ghost") {
		t.Errorf("expected missing target dropped, got %s", wire.Value)
	}
}

func TestImportSubpagesMissingTargetIsFatal(t *testing.T) {
	ictx := testImportContext()
	ictx.ItemIDs["ghost"] = ""

	_, err := ImportElement(context.Background(), ictx, descriptor(t, "children"), &core.MigrationElement{
		Type:  core.ElementSubpages,
		Value: []core.CodenameRef{{Codename: "ghost"}},
	})
	if err == nil {
		t.Fatal("expected hard error for missing subpage target")
	}
}

func TestImportElementSetsCodenameReference(t *testing.T) {
	wire, err := ImportElement(context.Background(), testImportContext(), descriptor(t, "heading"),
		&core.MigrationElement{Type: core.ElementText, Value: "Hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wire.Element.Codename != "heading" {
		t.Errorf("expected element reference by codename, got %+v", wire.Element)
	}
}

func TestExportDateTimeKeepsTimezone(t *testing.T) {
	element, err := ExportElement(testExportContext(),
		&api.TypeElement{ID: "el-when", Codename: "when", Type: core.ElementDateTime},
		&api.VariantElement{Value: raw(t, "2024-01-01T00:00:00Z"), DisplayTimezone: "Europe/Prague"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if element.DisplayTimezone != "Europe/Prague" {
		t.Errorf("expected timezone kept, got %q", element.DisplayTimezone)
	}
}
