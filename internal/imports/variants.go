package imports

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/contentmigrate/cm-cli/internal/api"
	"github.com/contentmigrate/cm-cli/internal/client"
	"github.com/contentmigrate/cm-cli/internal/core"
	"github.com/contentmigrate/cm-cli/internal/output"
	"github.com/contentmigrate/cm-cli/internal/process"
	"github.com/contentmigrate/cm-cli/internal/transform"
	"github.com/contentmigrate/cm-cli/internal/workflow"
)

// importLanguageVariants drives every item's target variant through its
// workflow state machine. Items run serially: the workflow invariants
// depend on the shell existing and on the published version landing
// before the draft.
func importLanguageVariants(ctx context.Context, m api.ManagementAPI, data *core.MigrationData, ic *Context, opts Options) (int, []ItemError, error) {
	var itemErrors []ItemError

	results, err := process.Items(ctx, data.Items, process.Options[core.MigrationItem]{
		Limit:    1,
		FailFast: opts.FailFast,
		ItemInfo: func(item core.MigrationItem) string {
			return item.System.Codename + " (" + item.System.Language.Codename + ")"
		},
		Progress: func(percent int, info string) {
			output.Progress(percent, "Importing language variants: %s", info)
		},
	}, func(ctx context.Context, item core.MigrationItem) (struct{}, error) {
		return struct{}{}, importVariant(ctx, m, ic, &item)
	})
	if err != nil {
		return 0, nil, err
	}
	output.ProgressDone()

	imported := 0
	for i, result := range results {
		item := &data.Items[i]
		switch {
		case result.Valid():
			imported++
		case result.Cancelled:
		default:
			reason := result.Err
			if result.NotFound {
				reason = errors.New("target item or variant vanished mid-import")
			}
			itemErrors = append(itemErrors, ItemError{
				ItemCodename:     item.System.Codename,
				LanguageCodename: item.System.Language.Codename,
				Message:          reason.Error(),
			})
		}
	}
	return imported, itemErrors, nil
}

func importVariant(ctx context.Context, m api.ManagementAPI, ic *Context, item *core.MigrationItem) error {
	itemCodename := item.System.Codename
	languageCodename := item.System.Language.Codename

	if id, ok := ic.Transform.ItemIDs[itemCodename]; !ok || id == "" {
		return errors.New("content item shell was not created")
	}

	wf, err := workflow.ByCodename(ic.Environment.Workflows, item.System.Workflow.Codename)
	if err != nil {
		return err
	}
	contentType, ok := ic.Environment.TypeByCodename(item.System.Type.Codename)
	if !ok {
		return fmt.Errorf("content type %q not found in target environment", item.System.Type.Codename)
	}

	published, draft, err := categorizeVersions(item)
	if err != nil {
		return err
	}

	state := ic.Variants[variantKey(itemCodename, languageCodename)]
	if state == nil {
		state = &VariantState{}
	}
	if err := prepareTargetVariant(ctx, m, wf, state, itemCodename, languageCodename); err != nil {
		return err
	}

	if published != nil {
		if err := importVersion(ctx, m, ic, wf, contentType, item, published); err != nil {
			return err
		}
	}
	if draft != nil {
		if published != nil {
			// Both versions coexist in the target only if the draft goes
			// into a fresh version on top of the published one.
			if err := m.CreateNewVersion(ctx, itemCodename, languageCodename); err != nil {
				return fmt.Errorf("create new version for draft: %w", err)
			}
		}
		if err := importVersion(ctx, m, ic, wf, contentType, item, draft); err != nil {
			return err
		}
	}

	// The target had a published variant but the snapshot carries none:
	// take it down.
	if published == nil && state.Published != nil {
		if err := m.UnpublishLanguageVariant(ctx, itemCodename, languageCodename, nil); err != nil {
			return fmt.Errorf("unpublish leftover published variant: %w", err)
		}
		firstStep, err := workflow.FirstStep(wf)
		if err != nil {
			return err
		}
		if err := m.ChangeWorkflow(ctx, itemCodename, languageCodename, wf.Codename, firstStep.Codename); err != nil {
			return fmt.Errorf("move unpublished variant to draft: %w", err)
		}
	}
	return nil
}

// categorizeVersions partitions the snapshot versions into at most one
// published and one draft.
func categorizeVersions(item *core.MigrationItem) (published, draft *core.MigrationItemVersion, err error) {
	for i := range item.Versions {
		version := &item.Versions[i]
		if workflow.IsPublished(version.WorkflowStep.Codename) {
			if published != nil {
				return nil, nil, errors.New("more than one published version in snapshot")
			}
			published = version
			continue
		}
		if draft != nil {
			return nil, nil, errors.New("more than one draft version in snapshot")
		}
		draft = version
	}
	return published, draft, nil
}

// prepareTargetVariant moves an existing target variant into a state that
// accepts an upsert: schedules cancelled, published variants opened as a
// new version, archived variants revived.
func prepareTargetVariant(ctx context.Context, m api.ManagementAPI, wf *api.Workflow, state *VariantState, itemCodename, languageCodename string) error {
	// The reported scheduled state is unreliable; always cancel what was
	// observed and tolerate the "nothing scheduled" rejection.
	if info := state.Draft; info != nil && info.ScheduledState == ScheduledPublish {
		if err := m.CancelScheduledPublish(ctx, itemCodename, languageCodename); err != nil && !isNoScheduleError(err) {
			return fmt.Errorf("cancel scheduled publish: %w", err)
		}
	}
	if info := state.Published; info != nil && info.ScheduledState == ScheduledUnpublish {
		if err := m.CancelScheduledUnpublish(ctx, itemCodename, languageCodename); err != nil && !isNoScheduleError(err) {
			return fmt.Errorf("cancel scheduled unpublish: %w", err)
		}
	}

	if state.Published != nil && state.Draft == nil {
		if err := m.CreateNewVersion(ctx, itemCodename, languageCodename); err != nil {
			return fmt.Errorf("create new version over published variant: %w", err)
		}
		return nil
	}

	if info := state.Draft; info != nil && info.WorkflowState == StateArchived {
		firstStep, err := workflow.FirstStep(wf)
		if err != nil {
			return err
		}
		if err := m.ChangeWorkflow(ctx, itemCodename, languageCodename, wf.Codename, firstStep.Codename); err != nil {
			return fmt.Errorf("revive archived variant: %w", err)
		}
	}
	return nil
}

func isNoScheduleError(err error) bool {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 400
	}
	return errors.Is(err, client.ErrNotFound)
}

// importVersion upserts one version's elements at the workflow's first
// step and then drives the step to the snapshot's step, applying
// scheduling last.
func importVersion(ctx context.Context, m api.ManagementAPI, ic *Context, wf *api.Workflow, contentType *api.ContentType, item *core.MigrationItem, version *core.MigrationItemVersion) error {
	itemCodename := item.System.Codename
	languageCodename := item.System.Language.Codename

	firstStep, err := workflow.FirstStep(wf)
	if err != nil {
		return err
	}

	elements, err := buildWireElements(ctx, ic, contentType, version)
	if err != nil {
		return err
	}

	_, err = m.UpsertLanguageVariant(ctx, itemCodename, languageCodename, api.UpsertVariantData{
		Elements: elements,
		Workflow: &api.VariantWorkflow{
			WorkflowIdentifier: api.ByCodename(wf.Codename),
			StepIdentifier:     api.ByCodename(firstStep.Codename),
		},
	})
	if err != nil {
		return fmt.Errorf("upsert language variant: %w", err)
	}

	if err := driveWorkflowStep(ctx, m, wf, itemCodename, languageCodename, firstStep.Codename, version.WorkflowStep.Codename); err != nil {
		return err
	}
	return applySchedule(ctx, m, itemCodename, languageCodename, version.Schedule)
}

// driveWorkflowStep moves the variant from the current step to the
// snapshot's step.
func driveWorkflowStep(ctx context.Context, m api.ManagementAPI, wf *api.Workflow, itemCodename, languageCodename, currentStep, targetStep string) error {
	switch {
	case workflow.IsPublished(targetStep):
		// Publishing is only accepted from specific predecessor steps;
		// walk to the penultimate step on the path first.
		penultimate, err := workflow.PenultimateStepBeforePublish(wf, currentStep)
		if err != nil {
			return err
		}
		if penultimate != currentStep {
			if err := m.ChangeWorkflow(ctx, itemCodename, languageCodename, wf.Codename, penultimate); err != nil {
				return fmt.Errorf("move to step %q before publish: %w", penultimate, err)
			}
		}
		if err := m.PublishLanguageVariant(ctx, itemCodename, languageCodename, nil); err != nil {
			if client.IsBadPublish(err) {
				output.Warn("publishError for %q (%s): %v", itemCodename, languageCodename, err)
				return nil
			}
			return fmt.Errorf("publish: %w", err)
		}
		return nil

	case workflow.IsArchived(targetStep):
		if err := m.ChangeWorkflow(ctx, itemCodename, languageCodename, wf.Codename, wf.ArchivedStep.Codename); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		return nil

	case workflow.IsScheduled(targetStep):
		// Scheduling is applied separately from the schedule block.
		return nil

	case targetStep == currentStep:
		return nil

	default:
		if err := m.ChangeWorkflow(ctx, itemCodename, languageCodename, wf.Codename, targetStep); err != nil {
			return fmt.Errorf("change workflow to %q: %w", targetStep, err)
		}
		return nil
	}
}

func applySchedule(ctx context.Context, m api.ManagementAPI, itemCodename, languageCodename string, schedule *core.VersionSchedule) error {
	if schedule == nil {
		return nil
	}
	if schedule.PublishTime != "" {
		err := m.PublishLanguageVariant(ctx, itemCodename, languageCodename, &api.PublishSchedule{
			ScheduledTo:     schedule.PublishTime,
			DisplayTimezone: schedule.PublishDisplayTimezone,
		})
		if err != nil {
			return fmt.Errorf("schedule publish: %w", err)
		}
	}
	if schedule.UnpublishTime != "" {
		err := m.UnpublishLanguageVariant(ctx, itemCodename, languageCodename, &api.PublishSchedule{
			ScheduledTo:     schedule.UnpublishTime,
			DisplayTimezone: schedule.UnpublishDisplayTimezone,
		})
		if err != nil {
			return fmt.Errorf("schedule unpublish: %w", err)
		}
	}
	return nil
}

// buildWireElements transforms the version's elements in codename order.
func buildWireElements(ctx context.Context, ic *Context, contentType *api.ContentType, version *core.MigrationItemVersion) ([]api.VariantElement, error) {
	codenames := make([]string, 0, len(version.Elements))
	for codename := range version.Elements {
		codenames = append(codenames, codename)
	}
	sort.Strings(codenames)

	var elements []api.VariantElement
	for _, codename := range codenames {
		descriptor := contentType.ElementByCodename(codename)
		if descriptor == nil {
			return nil, fmt.Errorf("element %q not found on type %q in target environment", codename, contentType.Codename)
		}
		element := version.Elements[codename]
		wire, err := transform.ImportElement(ctx, ic.Transform, descriptor, &element)
		if err != nil {
			return nil, err
		}
		if wire != nil {
			elements = append(elements, *wire)
		}
	}
	return elements, nil
}
