// Package imports reconciles a migration snapshot into a target
// environment.
package imports

import (
	"context"
	"errors"
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/client"
	"github.com/contentmigrate/cm-cli/internal/core"
	"github.com/contentmigrate/cm-cli/internal/output"
	"github.com/contentmigrate/cm-cli/internal/transform"
	"github.com/contentmigrate/cm-cli/internal/workflow"
)

// Workflow states of a probed target variant.
const (
	StateDraft     = "draft"
	StatePublished = "published"
	StateArchived  = "archived"
)

// Scheduled states of a probed target variant.
const (
	ScheduledNone      = "none"
	ScheduledPublish   = "scheduledPublish"
	ScheduledUnpublish = "scheduledUnpublish"
)

// ItemState is what the target knows about one item codename.
type ItemState struct {
	Exists     bool
	Item       *api.ContentItem
	ExternalID string
}

// AssetState is what the target knows about one asset codename.
type AssetState struct {
	Exists     bool
	Asset      *api.Asset
	ExternalID string
}

// VariantInfo is one probed target variant with its classified state.
type VariantInfo struct {
	Variant        *api.LanguageVariant
	WorkflowState  string
	ScheduledState string
}

// VariantState holds up to a draft and a published target variant for one
// (item, language) pair.
type VariantState struct {
	Draft     *VariantInfo
	Published *VariantInfo
}

// Context is the transient target-environment view built before importing.
type Context struct {
	Environment *api.EnvironmentData
	Items       map[string]*ItemState
	Variants    map[string]*VariantState
	Assets      map[string]*AssetState
	Transform   *transform.ImportContext
	ExternalID  core.ExternalIDGenerator
}

func variantKey(itemCodename, languageCodename string) string {
	return itemCodename + "/" + languageCodename
}

// Options configures an import run.
type Options struct {
	FailFast   bool
	ExternalID core.ExternalIDGenerator
}

// BuildContext probes the target environment for every codename in the
// snapshot and decides external ids for the entities that are missing,
// which keeps interrupted imports idempotent on re-run.
func BuildContext(ctx context.Context, m api.ManagementAPI, data *core.MigrationData, opts Options) (*Context, error) {
	env, err := api.LoadEnvironmentData(ctx, m)
	if err != nil {
		return nil, err
	}

	generator := opts.ExternalID
	if generator == nil {
		generator = core.DefaultExternalID
	}

	ic := &Context{
		Environment: env,
		Items:       map[string]*ItemState{},
		Variants:    map[string]*VariantState{},
		Assets:      map[string]*AssetState{},
		ExternalID:  generator,
	}
	ic.Transform = &transform.ImportContext{
		Environment: env,
		ItemIDs:     map[string]string{},
		AssetIDs:    map[string]string{},
		Warnf:       output.Warn,
		ResolveItem: func(ctx context.Context, codename string) (string, error) {
			item, err := m.ViewContentItem(ctx, api.ByCodename(codename))
			if errors.Is(err, client.ErrNotFound) {
				return "", nil
			}
			if err != nil {
				return "", err
			}
			return item.ID, nil
		},
	}

	for i := range data.Items {
		item := &data.Items[i]
		if err := ic.probeItem(ctx, m, item); err != nil {
			return nil, err
		}
	}
	for i := range data.Assets {
		if err := ic.probeAsset(ctx, m, data.Assets[i].Codename); err != nil {
			return nil, err
		}
	}
	return ic, nil
}

func (ic *Context) probeItem(ctx context.Context, m api.ManagementAPI, item *core.MigrationItem) error {
	codename := item.System.Codename

	if _, done := ic.Items[codename]; !done {
		state := &ItemState{}
		existing, err := m.ViewContentItem(ctx, api.ByCodename(codename))
		switch {
		case err == nil:
			state.Exists = true
			state.Item = existing
			ic.Transform.ItemIDs[codename] = existing.ID
		case errors.Is(err, client.ErrNotFound):
			state.ExternalID = ic.ExternalID(codename)
		default:
			return fmt.Errorf("probe item %q: %w", codename, err)
		}
		ic.Items[codename] = state
	}

	return ic.probeVariant(ctx, m, codename, item.System.Language.Codename)
}

func (ic *Context) probeVariant(ctx context.Context, m api.ManagementAPI, itemCodename, languageCodename string) error {
	key := variantKey(itemCodename, languageCodename)
	if _, done := ic.Variants[key]; done {
		return nil
	}
	state := &VariantState{}
	ic.Variants[key] = state

	if existing := ic.Items[itemCodename]; existing == nil || !existing.Exists {
		return nil
	}

	latest, err := m.ViewLanguageVariant(ctx, itemCodename, languageCodename)
	switch {
	case errors.Is(err, client.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("probe variant %q: %w", key, err)
	}

	info, err := ic.classifyVariant(latest)
	if err != nil {
		return fmt.Errorf("probe variant %q: %w", key, err)
	}
	if info.WorkflowState == StatePublished {
		state.Published = info
	} else {
		state.Draft = info
	}

	// A published version can exist underneath a draft; the /published
	// endpoint is the only way to see it.
	if state.Published == nil {
		published, err := m.ViewPublishedLanguageVariant(ctx, itemCodename, languageCodename)
		switch {
		case err == nil:
			state.Published = &VariantInfo{
				Variant:        published,
				WorkflowState:  StatePublished,
				ScheduledState: classifySchedule(published),
			}
		case errors.Is(err, client.ErrNotFound):
		default:
			return fmt.Errorf("probe published variant %q: %w", key, err)
		}
	}
	return nil
}

func (ic *Context) classifyVariant(variant *api.LanguageVariant) (*VariantInfo, error) {
	wf, ok := ic.Environment.WorkflowByID(variant.Workflow.WorkflowIdentifier.ID)
	if !ok {
		if wf, ok = ic.Environment.WorkflowByStepID(variant.Workflow.StepIdentifier.ID); !ok {
			return nil, fmt.Errorf("workflow of step %q not found", variant.Workflow.StepIdentifier.ID)
		}
	}
	step, err := workflow.StepByID(wf, variant.Workflow.StepIdentifier.ID)
	if err != nil {
		return nil, err
	}

	info := &VariantInfo{Variant: variant, ScheduledState: classifySchedule(variant)}
	switch {
	case workflow.IsPublished(step.Codename):
		info.WorkflowState = StatePublished
	case workflow.IsArchived(step.Codename):
		info.WorkflowState = StateArchived
	case workflow.IsScheduled(step.Codename):
		info.WorkflowState = StateDraft
		info.ScheduledState = ScheduledPublish
	default:
		info.WorkflowState = StateDraft
	}
	return info, nil
}

// classifySchedule reads the variant's schedule block. The published
// endpoint is known to report stale or inverted scheduled state; the
// pre-import routine cancels whatever is reported and tolerates the
// "nothing scheduled" rejection.
func classifySchedule(variant *api.LanguageVariant) string {
	if variant.Schedule == nil {
		return ScheduledNone
	}
	switch {
	case variant.Schedule.UnpublishTime != "":
		return ScheduledUnpublish
	case variant.Schedule.PublishTime != "":
		return ScheduledPublish
	}
	return ScheduledNone
}

func (ic *Context) probeAsset(ctx context.Context, m api.ManagementAPI, codename string) error {
	if _, done := ic.Assets[codename]; done {
		return nil
	}
	state := &AssetState{}
	existing, err := m.ViewAsset(ctx, api.ByCodename(codename))
	switch {
	case err == nil:
		state.Exists = true
		state.Asset = existing
		ic.Transform.AssetIDs[codename] = existing.ID
	case errors.Is(err, client.ErrNotFound):
		state.ExternalID = ic.ExternalID(codename)
	default:
		return fmt.Errorf("probe asset %q: %w", codename, err)
	}
	ic.Assets[codename] = state
	return nil
}
