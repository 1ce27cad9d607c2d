package core

import (
	"fmt"
)

// ValidationError describes a single snapshot schema violation.
type ValidationError struct {
	Item    string `json:"item,omitempty"`
	Asset   string `json:"asset,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	switch {
	case e.Item != "":
		return fmt.Sprintf("item %q: %s", e.Item, e.Message)
	case e.Asset != "":
		return fmt.Sprintf("asset %q: %s", e.Asset, e.Message)
	}
	return e.Message
}

// ValidationResult holds the outcome of validating a snapshot.
type ValidationResult struct {
	Items   int               `json:"items"`
	Assets  int               `json:"assets"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// Valid reports whether the snapshot passed.
func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// Validate checks a snapshot against the migration schema: required
// fields, known element types, value shapes, and the version invariants.
// It must pass before a snapshot is imported or written to disk.
func Validate(data *MigrationData) *ValidationResult {
	result := &ValidationResult{Items: len(data.Items), Assets: len(data.Assets)}

	addItem := func(codename, format string, args ...any) {
		result.Errors = append(result.Errors, ValidationError{
			Item:    codename,
			Message: fmt.Sprintf(format, args...),
		})
	}

	seen := map[string]bool{}
	for i := range data.Items {
		item := &data.Items[i]
		codename := item.System.Codename
		if codename == "" {
			addItem("", "item %d: missing system.codename", i)
			continue
		}
		key := codename + "/" + item.System.Language.Codename
		if seen[key] {
			addItem(codename, "duplicate item for language %q", item.System.Language.Codename)
		}
		seen[key] = true

		if item.System.Name == "" {
			addItem(codename, "missing system.name")
		}
		if item.System.Type.Codename == "" {
			addItem(codename, "missing system.type")
		}
		if item.System.Language.Codename == "" {
			addItem(codename, "missing system.language")
		}
		if item.System.Workflow.Codename == "" {
			addItem(codename, "missing system.workflow")
		}
		if len(item.Versions) == 0 {
			addItem(codename, "no versions")
		}

		published := 0
		for v := range item.Versions {
			version := &item.Versions[v]
			if version.WorkflowStep.Codename == "" {
				addItem(codename, "version %d: missing workflow_step", v)
			}
			if version.WorkflowStep.Codename == "published" {
				published++
			}
			validateElements(codename, version.Elements, addItem)
		}
		if published > 1 {
			addItem(codename, "more than one published version")
		}
		if len(item.Versions)-published > 1 {
			addItem(codename, "more than one draft version")
		}
	}

	for i := range data.Assets {
		asset := &data.Assets[i]
		if asset.Codename == "" {
			result.Errors = append(result.Errors, ValidationError{
				Message: fmt.Sprintf("asset %d: missing codename", i),
			})
			continue
		}
		if asset.Filename == "" {
			result.Errors = append(result.Errors, ValidationError{
				Asset:   asset.Codename,
				Message: "missing filename",
			})
		}
	}

	return result
}

func validateElements(item string, elements map[string]MigrationElement, add func(string, string, ...any)) {
	for codename, element := range elements {
		if !KnownElementType(element.Type) {
			add(item, "element %q: unknown type %q", codename, element.Type)
			continue
		}
		if err := validateValueShape(&element); err != nil {
			add(item, "element %q: %v", codename, err)
		}
		for _, component := range element.Components {
			if component.ID == "" {
				add(item, "element %q: component without id", codename)
			}
			if !IsUUID(component.ID) {
				add(item, "element %q: component id %q is not a UUID", codename, component.ID)
			}
			if component.Type.Codename == "" {
				add(item, "element %q: component %s without type", codename, component.ID)
			}
			validateElements(item, component.Elements, add)
		}
	}
}

// validateValueShape checks a decoded-from-JSON value against its declared
// type. Numbers arrive as float64, reference arrays as []any of objects.
func validateValueShape(element *MigrationElement) error {
	switch element.Type {
	case ElementText, ElementCustom, ElementRichText, ElementDateTime, ElementURLSlug:
		if element.Value == nil {
			return nil
		}
		if _, ok := element.Value.(string); !ok {
			return fmt.Errorf("expected string value, got %T", element.Value)
		}
	case ElementNumber:
		if element.Value == nil {
			return nil
		}
		switch element.Value.(type) {
		case float64, int, int64:
		default:
			return fmt.Errorf("expected number value, got %T", element.Value)
		}
	case ElementAsset, ElementTaxonomy, ElementModularContent, ElementMultipleChoice, ElementSubpages:
		if element.Value == nil {
			return nil
		}
		refs, err := CodenameRefs(element.Value)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if ref.Codename == "" {
				return fmt.Errorf("reference without codename")
			}
		}
	}
	return nil
}

// CodenameRefs coerces an element value into its codename-reference slice.
// It accepts both the typed form produced in-process and the generic form
// decoded from a snapshot file.
func CodenameRefs(value any) ([]CodenameRef, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []CodenameRef:
		return v, nil
	case []any:
		refs := make([]CodenameRef, 0, len(v))
		for _, entry := range v {
			obj, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected reference object, got %T", entry)
			}
			codename, _ := obj["codename"].(string)
			refs = append(refs, CodenameRef{Codename: codename})
		}
		return refs, nil
	}
	return nil, fmt.Errorf("expected array value, got %T", value)
}
