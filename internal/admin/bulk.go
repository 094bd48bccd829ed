package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
	"github.com/gabrielmiguelok/eventadmin/pkg/wizard"
)

// ScheduleEdit is the new schedule of one selected event.
type ScheduleEdit struct {
	EventID string    `msgpack:"id"`
	Title   string    `msgpack:"title"`
	Device  string    `msgpack:"device"`
	Start   time.Time `msgpack:"start"`
	End     time.Time `msgpack:"end"`
}

// SchedulingSnapshot is the accumulated input of the bulk scheduling editor.
type SchedulingSnapshot struct {
	Selected []string       `msgpack:"selected"`
	Edits    []ScheduleEdit `msgpack:"edits"`
}

func (SchedulingSnapshot) Kind() string { return "scheduling" }

// SchedulingWizard reschedules several events at once.
type SchedulingWizard struct{}

func (SchedulingWizard) Title() string { return "Edit scheduled events" }

func (SchedulingWizard) Initial() SchedulingSnapshot { return SchedulingSnapshot{} }

func (SchedulingWizard) Messages() Messages {
	return Messages{
		Context: "edit-scheduling-form",
		Success: "BULK_METADATA_UPDATE.SUCCESS",
		Failure: "BULK_METADATA_UPDATE.FAILURE",
	}
}

func (d SchedulingWizard) Pages() []wizard.Page[SchedulingSnapshot] {
	return []wizard.Page[SchedulingSnapshot]{
		{Name: "selection", Rule: fieldRule(d.Fields, "selection")},
		{Name: "edit", Rule: fieldRule(d.Fields, "edit", checkEdits)},
		{Name: "summary"},
	}
}

func (SchedulingWizard) Load(ctx context.Context, b Backend) (Lookups, error) {
	return loadLookups(ctx, b, needEvents|needAgents, "")
}

func checkEdits(s SchedulingSnapshot, errs forms.Errors) {
	for _, e := range s.Edits {
		if !e.Start.IsZero() && !e.End.IsZero() && !e.End.After(e.Start) {
			errs.Add("end_"+e.EventID, "The end must be after the start")
		}
	}
}

func eventOptions(events []api.Event, keep func(api.Event) bool, selected []string) []forms.Option {
	var ids, labels []string
	for _, e := range events {
		if keep != nil && !keep(e) {
			continue
		}
		ids = append(ids, e.ID)
		labels = append(labels, e.Title)
	}
	return options(ids, labels, selected...)
}

func (SchedulingWizard) Fields(page string, s SchedulingSnapshot, env Env) []forms.Field {
	switch page {
	case "selection":
		return []forms.Field{
			forms.NewField("events", forms.FieldMultiSelect, "Scheduled events", forms.WithRequired(),
				forms.WithValue(s.Selected),
				forms.WithOptions(eventOptions(env.Events, api.Event.Scheduled, s.Selected)...),
				forms.WithHelp("Only events that have not been recorded yet can be rescheduled.")),
		}
	case "edit":
		var fields []forms.Field
		for _, e := range s.Edits {
			fields = append(fields,
				forms.NewField("device_"+e.EventID, forms.FieldSelect, e.Title+": location", forms.WithRequired(),
					forms.WithValue(e.Device), forms.WithOptions(agentOptions(env, e.Device)...)),
				forms.NewField("start_"+e.EventID, forms.FieldDateTime, e.Title+": start", forms.WithRequired(),
					forms.WithValue(e.Start)),
				forms.NewField("end_"+e.EventID, forms.FieldDateTime, e.Title+": end", forms.WithRequired(),
					forms.WithValue(e.End)),
			)
		}
		return fields
	case "summary":
		fields := make([]forms.Field, 0, len(s.Edits))
		for _, e := range s.Edits {
			fields = append(fields, readOnly("summary_"+e.EventID, e.Title,
				fmt.Sprintf("%s, %s to %s", e.Device, e.Start.Format(displayLayout), e.End.Format(displayLayout))))
		}
		return fields
	}
	return nil
}

func (SchedulingWizard) Bind(page string, s SchedulingSnapshot, in forms.Values, env Env) SchedulingSnapshot {
	switch page {
	case "selection":
		if !in.Has("events") {
			return s
		}
		s.Selected = in.Strings("events")
		s.Edits = selectEdits(s.Selected, s.Edits, env)

	case "edit":
		edits := make([]ScheduleEdit, len(s.Edits))
		copy(edits, s.Edits)
		for i := range edits {
			e := &edits[i]
			setString(&e.Device, in, "device_"+e.EventID)
			setTime(&e.Start, in, "start_"+e.EventID, forms.DateTimeLayout, env.Location)
			setTime(&e.End, in, "end_"+e.EventID, forms.DateTimeLayout, env.Location)
		}
		s.Edits = edits
	}
	return s
}

// selectEdits keeps the edits of events that stay selected and starts new
// ones from the events' current schedule.
func selectEdits(selected []string, current []ScheduleEdit, env Env) []ScheduleEdit {
	byID := make(map[string]ScheduleEdit, len(current))
	for _, e := range current {
		byID[e.EventID] = e
	}
	out := make([]ScheduleEdit, 0, len(selected))
	for _, id := range selected {
		if e, ok := byID[id]; ok {
			out = append(out, e)
			continue
		}
		edit := ScheduleEdit{EventID: id, Title: id}
		if ev, ok := env.Event(id); ok {
			edit.Title = ev.Title
			edit.Device = ev.Device
			edit.Start = ev.Start.In(env.location())
			edit.End = ev.End.In(env.location())
		}
		out = append(out, edit)
	}
	return out
}

func (SchedulingWizard) Proposals(s SchedulingSnapshot, env Env) []schedule.Proposal {
	out := make([]schedule.Proposal, 0, len(s.Edits))
	for _, e := range s.Edits {
		out = append(out, schedule.Proposal{
			Device:         e.Device,
			Interval:       schedule.Interval{Start: e.Start, End: e.End},
			ExcludeEventID: e.EventID,
		})
	}
	return out
}

func (SchedulingWizard) Submit(ctx context.Context, b Backend, s SchedulingSnapshot) error {
	changes := make([]api.SchedulingChange, 0, len(s.Edits))
	for _, e := range s.Edits {
		changes = append(changes, api.SchedulingChange{
			EventID: e.EventID,
			Title:   e.Title,
			Device:  e.Device,
			Start:   e.Start,
			End:     e.End,
		})
	}
	return b.UpdateScheduling(ctx, changes)
}

// TaskSnapshot is the accumulated input of the start task wizard.
type TaskSnapshot struct {
	Selected []string          `msgpack:"selected"`
	Workflow string            `msgpack:"workflow"`
	Config   map[string]string `msgpack:"config"`
}

func (TaskSnapshot) Kind() string { return "task" }

// TaskWizard starts a workflow on existing events.
type TaskWizard struct{}

func (TaskWizard) Title() string { return "Start task" }

func (TaskWizard) Initial() TaskSnapshot { return TaskSnapshot{} }

func (TaskWizard) Messages() Messages {
	return Messages{Context: "start-task-form", Success: "TASK_CREATED", Failure: "TASK_NOT_CREATED"}
}

func (d TaskWizard) Pages() []wizard.Page[TaskSnapshot] {
	return []wizard.Page[TaskSnapshot]{
		{Name: "selection", Rule: fieldRule(d.Fields, "selection")},
		{Name: "workflow", Rule: fieldRule(d.Fields, "workflow")},
		{Name: "summary"},
	}
}

func (TaskWizard) Load(ctx context.Context, b Backend) (Lookups, error) {
	return loadLookups(ctx, b, needEvents|needWorkflows, tagTasks)
}

// taskable excludes events that are still waiting for their recording.
func taskable(e api.Event) bool {
	return !e.Scheduled()
}

func (TaskWizard) Fields(page string, s TaskSnapshot, env Env) []forms.Field {
	switch page {
	case "selection":
		return []forms.Field{
			forms.NewField("events", forms.FieldMultiSelect, "Events", forms.WithRequired(),
				forms.WithValue(s.Selected),
				forms.WithOptions(eventOptions(env.Events, taskable, s.Selected)...)),
		}
	case "workflow":
		fields := []forms.Field{
			forms.NewField("workflow", forms.FieldSelect, "Workflow", forms.WithRequired(), forms.WithValue(s.Workflow),
				forms.WithOptions(workflowOptions(env, s.Workflow)...)),
		}
		if wf, ok := env.Workflow(s.Workflow); ok {
			fields = append(fields, workflowFields(wf, s.Config)...)
		}
		return fields
	case "summary":
		return []forms.Field{
			readOnly("summary_events", "Events", len(s.Selected)),
			readOnly("summary_workflow", "Workflow", s.Workflow),
			readOnly("summary_config", "Configuration", configSummary(s.Config)),
		}
	}
	return nil
}

func (TaskWizard) Bind(page string, s TaskSnapshot, in forms.Values, env Env) TaskSnapshot {
	switch page {
	case "selection":
		setStrings(&s.Selected, in, "events")
	case "workflow":
		s.Workflow, s.Config = bindProcessing(s.Workflow, s.Config, in, env)
	}
	return s
}

func (TaskWizard) Submit(ctx context.Context, b Backend, s TaskSnapshot) error {
	return b.StartTask(ctx, api.NewTask{
		EventIDs:      s.Selected,
		Workflow:      s.Workflow,
		Configuration: s.Config,
	})
}
