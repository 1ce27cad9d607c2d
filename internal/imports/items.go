package imports

import (
	"context"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/core"
	"github.com/contentmigrate/cm-cli/internal/output"
	"github.com/contentmigrate/cm-cli/internal/process"
)

// importContentItems creates or renames the language-agnostic item
// shells. It runs serially, and dedupes by codename both locally and via
// the target probe: the snapshot can carry the same item once per
// language, and only one shell may be created.
//
// The returned memo is written at most once per codename. With the serial
// parallelism here it needs no lock; raising the parallelism would.
func importContentItems(ctx context.Context, m api.ManagementAPI, data *core.MigrationData, ic *Context, opts Options) (map[string]*api.ContentItem, []ItemError, error) {
	memo := map[string]*api.ContentItem{}
	var itemErrors []ItemError

	var unique []*core.MigrationItem
	seen := map[string]bool{}
	for i := range data.Items {
		item := &data.Items[i]
		if seen[item.System.Codename] {
			continue
		}
		seen[item.System.Codename] = true
		unique = append(unique, item)
	}

	results, err := process.Items(ctx, unique, process.Options[*core.MigrationItem]{
		Limit:    1,
		FailFast: opts.FailFast,
		ItemInfo: func(item *core.MigrationItem) string { return item.System.Codename },
		Progress: func(percent int, info string) {
			output.Progress(percent, "Importing content items: %s", info)
		},
	}, func(ctx context.Context, item *core.MigrationItem) (*api.ContentItem, error) {
		return importContentItem(ctx, m, ic, item)
	})
	if err != nil {
		return nil, nil, err
	}
	output.ProgressDone()

	for i, result := range results {
		codename := unique[i].System.Codename
		switch {
		case result.Valid():
			memo[codename] = result.Output
			ic.Transform.ItemIDs[codename] = result.Output.ID
		case result.Cancelled:
		default:
			reason := result.Err
			if result.NotFound {
				reason = fmt.Errorf("target rejected the create with not found")
			}
			itemErrors = append(itemErrors, ItemError{
				ItemCodename: codename,
				Message:      fmt.Sprintf("create content item: %v", reason),
			})
		}
	}
	return memo, itemErrors, nil
}

func importContentItem(ctx context.Context, m api.ManagementAPI, ic *Context, item *core.MigrationItem) (*api.ContentItem, error) {
	codename := item.System.Codename
	state := ic.Items[codename]

	if state != nil && state.Exists {
		existing := state.Item
		sameName := existing.Name == item.System.Name
		sameCollection := existing.Collection.Codename == item.System.Collection.Codename
		// The probe returns the collection as an id reference; compare
		// through the environment when the codename is absent.
		if existing.Collection.Codename == "" {
			if collection, ok := ic.Environment.CollectionByID(existing.Collection.ID); ok {
				sameCollection = collection.Codename == item.System.Collection.Codename
			}
		}
		if sameName && sameCollection {
			return existing, nil
		}
		collection := api.ByCodename(item.System.Collection.Codename)
		return m.UpsertContentItem(ctx, codename, api.UpsertContentItemData{
			Name:       item.System.Name,
			Collection: &collection,
		})
	}

	externalID := ""
	if state != nil {
		externalID = state.ExternalID
	}
	return m.AddContentItem(ctx, api.AddContentItemData{
		Name:       item.System.Name,
		Codename:   codename,
		Type:       api.ByCodename(item.System.Type.Codename),
		Collection: api.ByCodename(item.System.Collection.Codename),
		ExternalID: externalID,
	})
}
