// Package workflow provides pure lookup and graph utilities over workflow
// definitions.
package workflow

import (
	"fmt"

	"github.com/contentmigrate/cm-cli/internal/api"
)

// Pseudo-step codenames fixed by the platform.
const (
	PublishedStepCodename = "published"
	ScheduledStepCodename = "scheduled"
	ArchivedStepCodename  = "archived"
)

// IsPublished reports whether the step codename is the published pseudo-step.
func IsPublished(codename string) bool { return codename == PublishedStepCodename }

// IsScheduled reports whether the step codename is the scheduled pseudo-step.
func IsScheduled(codename string) bool { return codename == ScheduledStepCodename }

// IsArchived reports whether the step codename is the archived pseudo-step.
func IsArchived(codename string) bool { return codename == ArchivedStepCodename }

// ByCodename finds a workflow by codename.
func ByCodename(workflows []api.Workflow, codename string) (*api.Workflow, error) {
	for i := range workflows {
		if workflows[i].Codename == codename {
			return &workflows[i], nil
		}
	}
	return nil, fmt.Errorf("workflow %q not found", codename)
}

// allSteps returns the workflow's steps including its pseudo-steps, in
// definition order with pseudo-steps appended.
func allSteps(wf *api.Workflow) []api.WorkflowStep {
	steps := make([]api.WorkflowStep, 0, len(wf.Steps)+3)
	steps = append(steps, wf.Steps...)
	steps = append(steps, wf.PublishedStep, wf.ScheduledStep, wf.ArchivedStep)
	return steps
}

// StepByID finds a step (including pseudo-steps) by id.
func StepByID(wf *api.Workflow, id string) (*api.WorkflowStep, error) {
	for _, step := range allSteps(wf) {
		if step.ID == id {
			found := step
			return &found, nil
		}
	}
	return nil, fmt.Errorf("workflow %q has no step with id %q", wf.Codename, id)
}

// StepByCodename finds a step (including pseudo-steps) by codename.
func StepByCodename(wf *api.Workflow, codename string) (*api.WorkflowStep, error) {
	for _, step := range allSteps(wf) {
		if step.Codename == codename {
			found := step
			return &found, nil
		}
	}
	return nil, fmt.Errorf("workflow %q has no step %q", wf.Codename, codename)
}

// FirstStep returns the workflow's initial step.
func FirstStep(wf *api.Workflow) (*api.WorkflowStep, error) {
	if len(wf.Steps) == 0 {
		return nil, fmt.Errorf("workflow %q has no steps", wf.Codename)
	}
	first := wf.Steps[0]
	return &first, nil
}

// ShortestPath returns the minimum-hop step codename sequence from the
// step `from` to the step `to`, following transitions_to edges. The
// returned path includes both endpoints. Ties are broken by the insertion
// order of wf.Steps. An empty path with nil error never occurs: from==to
// yields a single-entry path.
func ShortestPath(wf *api.Workflow, from, to string) ([]string, error) {
	if _, err := StepByCodename(wf, from); err != nil {
		return nil, err
	}
	if _, err := StepByCodename(wf, to); err != nil {
		return nil, err
	}
	if from == to {
		return []string{from}, nil
	}

	// Edges point id→id; resolve each transition to a codename once.
	byID := map[string]string{}
	byCodename := map[string]*api.WorkflowStep{}
	ordered := allSteps(wf)
	for i := range ordered {
		byID[ordered[i].ID] = ordered[i].Codename
		byCodename[ordered[i].Codename] = &ordered[i]
	}

	// BFS in insertion order keeps tie-breaking deterministic.
	previous := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		step := byCodename[current]
		if step == nil {
			continue
		}
		for _, transition := range step.TransitionsTo {
			next := transition.Codename
			if next == "" {
				next = byID[transition.ID]
			}
			if next == "" {
				continue
			}
			if _, visited := previous[next]; visited {
				continue
			}
			previous[next] = current
			if next == to {
				return buildPath(previous, from, to), nil
			}
			queue = append(queue, next)
		}
	}

	return nil, fmt.Errorf("workflow %q has no path from step %q to %q", wf.Codename, from, to)
}

func buildPath(previous map[string]string, from, to string) []string {
	var reversed []string
	for current := to; current != ""; current = previous[current] {
		reversed = append(reversed, current)
		if current == from {
			break
		}
	}
	path := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}

// PenultimateStepBeforePublish returns the step to move a variant to
// before publishing: the last step on the shortest path from `from` to
// the published step that is not the published step itself. Publishing is
// only accepted from specific predecessor steps, hence the detour.
func PenultimateStepBeforePublish(wf *api.Workflow, from string) (string, error) {
	path, err := ShortestPath(wf, from, wf.PublishedStep.Codename)
	if err != nil {
		return "", err
	}
	if len(path) < 2 {
		// Already at the published step; publishing again is a no-op for
		// the caller.
		return from, nil
	}
	return path[len(path)-2], nil
}
