package api

import (
	"context"
	"fmt"
)

// EnvironmentData is the one-shot load of everything the transforms need
// to resolve ids and codenames in an environment.
type EnvironmentData struct {
	Collections  []Collection
	Languages    []Language
	Workflows    []Workflow
	Types        []ContentType
	Taxonomies   []TaxonomyGroup
	AssetFolders []AssetFolder
}

// LoadEnvironmentData pulls collections, languages, workflows, flattened
// content types, taxonomies, and asset folders. A failure here aborts the
// pipeline; there is no per-item recovery from missing environment data.
func LoadEnvironmentData(ctx context.Context, m ManagementAPI) (*EnvironmentData, error) {
	env := &EnvironmentData{}
	var err error

	if env.Collections, err = m.ListCollections(ctx); err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	if env.Languages, err = m.ListLanguages(ctx); err != nil {
		return nil, fmt.Errorf("load languages: %w", err)
	}
	if env.Workflows, err = m.ListWorkflows(ctx); err != nil {
		return nil, fmt.Errorf("load workflows: %w", err)
	}
	if env.Types, err = m.ListContentTypes(ctx); err != nil {
		return nil, fmt.Errorf("load content types: %w", err)
	}
	if env.Taxonomies, err = m.ListTaxonomies(ctx); err != nil {
		return nil, fmt.Errorf("load taxonomies: %w", err)
	}
	if env.AssetFolders, err = m.ListAssetFolders(ctx); err != nil {
		return nil, fmt.Errorf("load asset folders: %w", err)
	}
	return env, nil
}

// CollectionByID finds a collection by id.
func (e *EnvironmentData) CollectionByID(id string) (*Collection, bool) {
	for i := range e.Collections {
		if e.Collections[i].ID == id {
			return &e.Collections[i], true
		}
	}
	return nil, false
}

// CollectionByCodename finds a collection by codename.
func (e *EnvironmentData) CollectionByCodename(codename string) (*Collection, bool) {
	for i := range e.Collections {
		if e.Collections[i].Codename == codename {
			return &e.Collections[i], true
		}
	}
	return nil, false
}

// LanguageByID finds a language by id.
func (e *EnvironmentData) LanguageByID(id string) (*Language, bool) {
	for i := range e.Languages {
		if e.Languages[i].ID == id {
			return &e.Languages[i], true
		}
	}
	return nil, false
}

// LanguageByCodename finds a language by codename.
func (e *EnvironmentData) LanguageByCodename(codename string) (*Language, bool) {
	for i := range e.Languages {
		if e.Languages[i].Codename == codename {
			return &e.Languages[i], true
		}
	}
	return nil, false
}

// TypeByID finds a content type by id.
func (e *EnvironmentData) TypeByID(id string) (*ContentType, bool) {
	for i := range e.Types {
		if e.Types[i].ID == id {
			return &e.Types[i], true
		}
	}
	return nil, false
}

// TypeByCodename finds a content type by codename.
func (e *EnvironmentData) TypeByCodename(codename string) (*ContentType, bool) {
	for i := range e.Types {
		if e.Types[i].Codename == codename {
			return &e.Types[i], true
		}
	}
	return nil, false
}

// WorkflowByID finds a workflow by id.
func (e *EnvironmentData) WorkflowByID(id string) (*Workflow, bool) {
	for i := range e.Workflows {
		if e.Workflows[i].ID == id {
			return &e.Workflows[i], true
		}
	}
	return nil, false
}

// WorkflowByStepID finds the workflow containing the given step id.
func (e *EnvironmentData) WorkflowByStepID(stepID string) (*Workflow, bool) {
	for i := range e.Workflows {
		wf := &e.Workflows[i]
		for _, step := range wf.Steps {
			if step.ID == stepID {
				return wf, true
			}
		}
		if wf.PublishedStep.ID == stepID || wf.ScheduledStep.ID == stepID || wf.ArchivedStep.ID == stepID {
			return wf, true
		}
	}
	return nil, false
}

// TaxonomyByID finds a taxonomy group by id.
func (e *EnvironmentData) TaxonomyByID(id string) (*TaxonomyGroup, bool) {
	for i := range e.Taxonomies {
		if e.Taxonomies[i].ID == id {
			return &e.Taxonomies[i], true
		}
	}
	return nil, false
}

// TaxonomyByCodename finds a taxonomy group by codename.
func (e *EnvironmentData) TaxonomyByCodename(codename string) (*TaxonomyGroup, bool) {
	for i := range e.Taxonomies {
		if e.Taxonomies[i].Codename == codename {
			return &e.Taxonomies[i], true
		}
	}
	return nil, false
}

// TermCodenameByID resolves a term id to its codename by walking the
// group's term tree depth-first.
func (g *TaxonomyGroup) TermCodenameByID(id string) (string, bool) {
	return findTerm(g.Terms, func(t *TaxonomyTerm) bool { return t.ID == id })
}

// TermIDByCodename resolves a term codename to its id.
func (g *TaxonomyGroup) TermIDByCodename(codename string) (string, bool) {
	var found string
	_, ok := findTerm(g.Terms, func(t *TaxonomyTerm) bool {
		if t.Codename == codename {
			found = t.ID
			return true
		}
		return false
	})
	return found, ok
}

func findTerm(terms []TaxonomyTerm, match func(*TaxonomyTerm) bool) (string, bool) {
	for i := range terms {
		if match(&terms[i]) {
			return terms[i].Codename, true
		}
		if codename, ok := findTerm(terms[i].Terms, match); ok {
			return codename, true
		}
	}
	return "", false
}

// FolderByID resolves an asset folder id to the folder, walking the tree.
func (e *EnvironmentData) FolderByID(id string) (*AssetFolder, bool) {
	return findFolder(e.AssetFolders, func(f *AssetFolder) bool { return f.ID == id })
}

// FolderByCodename resolves an asset folder codename to the folder.
func (e *EnvironmentData) FolderByCodename(codename string) (*AssetFolder, bool) {
	return findFolder(e.AssetFolders, func(f *AssetFolder) bool { return f.Codename == codename })
}

func findFolder(folders []AssetFolder, match func(*AssetFolder) bool) (*AssetFolder, bool) {
	for i := range folders {
		if match(&folders[i]) {
			return &folders[i], true
		}
		if found, ok := findFolder(folders[i].Folders, match); ok {
			return found, true
		}
	}
	return nil, false
}
