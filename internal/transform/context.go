// Package transform translates element values between the id-addressed
// wire form and the codename-addressed migration form.
package transform

import (
	"context"

	"github.com/contentmigrate/cm-cli/internal/api"
)

// ItemState is what the export context knows about a referenced item.
type ItemState struct {
	Item  *api.ContentItem
	Found bool
}

// AssetState is what the export context knows about a referenced asset.
type AssetState struct {
	Asset *api.Asset
	Found bool
}

// ExportContext is the id-resolution view the export-direction transforms
// run against. Referenced items and assets are pre-fetched by id; a 404
// during that fetch leaves a not-found marker rather than an error.
type ExportContext struct {
	Environment *api.EnvironmentData
	// Items and Assets are keyed by source id.
	Items  map[string]ItemState
	Assets map[string]AssetState
	// ReplaceInvalidLinks strips anchors whose item id cannot be
	// resolved instead of leaving them untouched.
	ReplaceInvalidLinks bool
	// Warnf reports non-fatal findings. The transforms call it without a
	// nil check; the export pipeline sets it to output.Warn.
	Warnf func(format string, args ...any)
}

// ItemCodenameByID resolves a source item id to its codename.
func (c *ExportContext) ItemCodenameByID(id string) (string, bool) {
	state, ok := c.Items[id]
	if !ok || !state.Found {
		return "", false
	}
	return state.Item.Codename, true
}

// AssetCodenameByID resolves a source asset id to its codename.
func (c *ExportContext) AssetCodenameByID(id string) (string, bool) {
	state, ok := c.Assets[id]
	if !ok || !state.Found {
		return "", false
	}
	return state.Asset.Codename, true
}

// ImportContext is the codename-resolution view the import-direction
// transforms run against. Snapshot entities are probed eagerly; items
// referenced from values but absent from the snapshot resolve lazily.
type ImportContext struct {
	Environment *api.EnvironmentData
	// ItemIDs and AssetIDs map codenames to target ids, for entities
	// already known to exist (probed or just created).
	ItemIDs  map[string]string
	AssetIDs map[string]string
	// ResolveItem probes the target for an item codename outside the
	// snapshot. May be nil, in which case unknown codenames are missing.
	ResolveItem func(ctx context.Context, codename string) (string, error)
	// Warnf reports non-fatal findings. The transforms call it without a
	// nil check; the import pipeline sets it to output.Warn.
	Warnf func(format string, args ...any)
}

// ItemIDByCodename resolves an item codename to its target id, probing
// lazily for codenames outside the snapshot. The bool reports whether the
// item exists in the target; errors are genuine API failures.
func (c *ImportContext) ItemIDByCodename(ctx context.Context, codename string) (string, bool, error) {
	if id, ok := c.ItemIDs[codename]; ok {
		return id, id != "", nil
	}
	if c.ResolveItem == nil {
		return "", false, nil
	}
	id, err := c.ResolveItem(ctx, codename)
	if err != nil {
		return "", false, err
	}
	if c.ItemIDs == nil {
		c.ItemIDs = map[string]string{}
	}
	c.ItemIDs[codename] = id
	return id, id != "", nil
}

// AssetIDByCodename resolves an asset codename to its target id.
func (c *ImportContext) AssetIDByCodename(codename string) (string, bool) {
	id, ok := c.AssetIDs[codename]
	return id, ok && id != ""
}
