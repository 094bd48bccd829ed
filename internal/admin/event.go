package admin

import (
	"context"
	"strings"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
	"github.com/gabrielmiguelok/eventadmin/pkg/wizard"
)

// EventSnapshot is the accumulated input of the new event wizard.
type EventSnapshot struct {
	Title       string   `msgpack:"title"`
	Subject     string   `msgpack:"subject"`
	Description string   `msgpack:"description"`
	Language    string   `msgpack:"language"`
	License     string   `msgpack:"license"`
	Creators    []string `msgpack:"creators"`

	Source   string         `msgpack:"source"`
	Device   string         `msgpack:"device"`
	Inputs   []string       `msgpack:"inputs"`
	Start    time.Time      `msgpack:"start"`
	End      time.Time      `msgpack:"end"`
	Weekdays []time.Weekday `msgpack:"weekdays"`
	Until    time.Time      `msgpack:"until"`

	Asset api.Upload `msgpack:"asset"`

	Workflow string            `msgpack:"workflow"`
	Config   map[string]string `msgpack:"config"`

	Access Access `msgpack:"access"`
}

func (EventSnapshot) Kind() string { return "event" }

// Scheduled reports whether the event is captured by a device.
func (s EventSnapshot) Scheduled() bool {
	return s.Source == api.SourceScheduleSingle || s.Source == api.SourceScheduleMultiple
}

// Repeat returns the recurrence of a multiple schedule, or nil.
func (s EventSnapshot) Repeat() *schedule.Repeat {
	if s.Source != api.SourceScheduleMultiple {
		return nil
	}
	return &schedule.Repeat{Weekdays: s.Weekdays, Until: s.Until}
}

// AssetFlavor is the flavor of the media uploaded with a new event.
const AssetFlavor = "presenter/source"

var (
	languages = []string{"eng", "deu", "fra", "spa", "ita", "nld"}
	licenses  = []string{"ALLRIGHTS", "CC-BY", "CC-BY-SA", "CC-BY-ND", "CC-BY-NC", "CC0"}

	weekdayCodes = []string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}
	weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
)

// EventWizard creates a single event from an upload or a schedule.
type EventWizard struct{}

func (EventWizard) Title() string { return "Create event" }

func (EventWizard) Initial() EventSnapshot {
	return EventSnapshot{Source: api.SourceUpload, Access: defaultAccess()}
}

func (EventWizard) Messages() Messages {
	return Messages{Context: "new-event-form", Success: "EVENTS_CREATED", Failure: "EVENTS_NOT_CREATED"}
}

func (d EventWizard) Pages() []wizard.Page[EventSnapshot] {
	return []wizard.Page[EventSnapshot]{
		{Name: "metadata", Rule: fieldRule(d.Fields, "metadata")},
		{Name: "source", Rule: fieldRule(d.Fields, "source", checkEventSchedule)},
		{
			Name:    "upload-asset",
			Rule:    fieldRule(d.Fields, "upload-asset"),
			Visible: func(s EventSnapshot) bool { return s.Source == api.SourceUpload },
		},
		{Name: "processing", Rule: fieldRule(d.Fields, "processing")},
		{Name: "access", Rule: fieldRule(d.Fields, "access", func(s EventSnapshot, errs forms.Errors) {
			checkAccess(s.Access, errs)
		})},
		{Name: "summary"},
	}
}

func (EventWizard) Load(ctx context.Context, b Backend) (Lookups, error) {
	return loadLookups(ctx, b, needWorkflows|needAgents|needRoles, tagUpload)
}

func checkEventSchedule(s EventSnapshot, errs forms.Errors) {
	if !s.Scheduled() {
		return
	}
	if !s.Start.IsZero() && !s.End.IsZero() && !s.End.After(s.Start) {
		errs.Add("end", "The end must be after the start")
	}
	if s.Source == api.SourceScheduleMultiple && !s.Until.IsZero() && s.Until.Before(truncateDay(s.Start)) {
		errs.Add("until", "The last date must not be before the start")
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (EventWizard) Fields(page string, s EventSnapshot, env Env) []forms.Field {
	switch page {
	case "metadata":
		return []forms.Field{
			forms.NewField("title", forms.FieldText, "Title", forms.WithRequired(), forms.WithValue(s.Title),
				forms.WithValidator(forms.MaxLength(255))),
			forms.NewField("subject", forms.FieldText, "Subject", forms.WithValue(s.Subject)),
			forms.NewField("description", forms.FieldTextarea, "Description", forms.WithValue(s.Description)),
			forms.NewField("language", forms.FieldSelect, "Language", forms.WithValue(s.Language),
				forms.WithOptions(options(languages, nil, s.Language)...)),
			forms.NewField("license", forms.FieldSelect, "License", forms.WithValue(s.License),
				forms.WithOptions(options(licenses, nil, s.License)...)),
			forms.NewField("creators", forms.FieldText, "Presenters", forms.WithValue(s.Creators),
				forms.WithHelp("Separate several names with commas.")),
		}

	case "source":
		fields := []forms.Field{
			forms.NewField("source", forms.FieldSelect, "Source", forms.WithRequired(), forms.WithValue(s.Source),
				forms.WithValidator(forms.OneOf(api.SourceUpload, api.SourceScheduleSingle, api.SourceScheduleMultiple)),
				forms.WithOptions(
					forms.Option{Value: api.SourceUpload, Label: "Upload"},
					forms.Option{Value: api.SourceScheduleSingle, Label: "Schedule single event"},
					forms.Option{Value: api.SourceScheduleMultiple, Label: "Schedule multiple events"},
				)),
		}
		if !s.Scheduled() {
			return fields
		}
		fields = append(fields,
			forms.NewField("device", forms.FieldSelect, "Location", forms.WithRequired(), forms.WithValue(s.Device),
				forms.WithOptions(agentOptions(env, s.Device)...)),
			forms.NewField("inputs", forms.FieldMultiSelect, "Inputs", forms.WithValue(s.Inputs),
				forms.WithOptions(inputOptions(env, s.Device, s.Inputs)...)),
			forms.NewField("start", forms.FieldDateTime, "Start", forms.WithRequired(), forms.WithValue(s.Start)),
			forms.NewField("end", forms.FieldDateTime, "End", forms.WithRequired(), forms.WithValue(s.End)),
		)
		if s.Source == api.SourceScheduleMultiple {
			fields = append(fields,
				forms.NewField("weekdays", forms.FieldMultiSelect, "Weekdays", forms.WithRequired(),
					forms.WithValue(weekdayValues(s.Weekdays)),
					forms.WithOptions(options(weekdayCodes, weekdayNames)...)),
				forms.NewField("until", forms.FieldDate, "Repeat until", forms.WithRequired(), forms.WithValue(s.Until)),
			)
		}
		return fields

	case "upload-asset":
		return []forms.Field{
			forms.NewField("asset", forms.FieldFile, "Media file", forms.WithRequired(),
				forms.WithValue(s.Asset.ID), forms.WithUploaded(s.Asset.Filename),
				forms.WithAccept("video/*,audio/*")),
		}

	case "processing":
		fields := []forms.Field{
			forms.NewField("workflow", forms.FieldSelect, "Workflow", forms.WithRequired(), forms.WithValue(s.Workflow),
				forms.WithOptions(workflowOptions(env, s.Workflow)...)),
		}
		if wf, ok := env.Workflow(s.Workflow); ok {
			fields = append(fields, workflowFields(wf, s.Config)...)
		}
		return fields

	case "access":
		return accessFields(s.Access, env)

	case "summary":
		fields := []forms.Field{
			readOnly("summary_title", "Title", s.Title),
			readOnly("summary_creators", "Presenters", s.Creators),
			readOnly("summary_source", "Source", s.Source),
		}
		if s.Scheduled() {
			fields = append(fields,
				readOnly("summary_device", "Location", s.Device),
				readOnly("summary_start", "Start", s.Start),
				readOnly("summary_end", "End", s.End),
			)
			if s.Source == api.SourceScheduleMultiple {
				fields = append(fields,
					readOnly("summary_weekdays", "Weekdays", weekdayValues(s.Weekdays)),
					readOnly("summary_until", "Repeat until", s.Until.Format(forms.DateLayout)),
				)
			}
		} else {
			fields = append(fields, readOnly("summary_asset", "Media file", s.Asset.Filename))
		}
		fields = append(fields,
			readOnly("summary_workflow", "Workflow", s.Workflow),
			readOnly("summary_config", "Configuration", configSummary(s.Config)),
		)
		return append(fields, accessSummary(s.Access)...)
	}
	return nil
}

func (EventWizard) Bind(page string, s EventSnapshot, in forms.Values, env Env) EventSnapshot {
	switch page {
	case "metadata":
		setString(&s.Title, in, "title")
		setString(&s.Subject, in, "subject")
		setString(&s.Description, in, "description")
		setString(&s.Language, in, "language")
		setString(&s.License, in, "license")
		setStrings(&s.Creators, in, "creators")

	case "source":
		setString(&s.Source, in, "source")
		if in.Has("device") {
			if device := in.String("device"); device != s.Device {
				s.Device = device
				s.Inputs = nil
			}
		}
		setStrings(&s.Inputs, in, "inputs")
		setTime(&s.Start, in, "start", forms.DateTimeLayout, env.Location)
		setTime(&s.End, in, "end", forms.DateTimeLayout, env.Location)
		if in.Has("weekdays") {
			s.Weekdays = parseWeekdays(in.Strings("weekdays"))
		}
		setTime(&s.Until, in, "until", forms.DateLayout, env.Location)

	case "upload-asset":
		setUpload(&s.Asset, in, "asset")

	case "processing":
		s.Workflow, s.Config = bindProcessing(s.Workflow, s.Config, in, env)

	case "access":
		s.Access = bindAccess(s.Access, in)
	}
	return s
}

func (EventWizard) Proposals(s EventSnapshot, env Env) []schedule.Proposal {
	if !s.Scheduled() {
		return nil
	}
	return []schedule.Proposal{{
		Device:   s.Device,
		Interval: schedule.Interval{Start: s.Start, End: s.End},
		Repeat:   s.Repeat(),
	}}
}

func (EventWizard) Submit(ctx context.Context, b Backend, s EventSnapshot) error {
	e := api.NewEvent{
		Metadata: api.EventMetadata{
			Title:       s.Title,
			Subject:     s.Subject,
			Description: s.Description,
			Language:    s.Language,
			License:     s.License,
			Creators:    s.Creators,
		},
		Source:     api.EventSource{Type: s.Source},
		Processing: api.Processing{Workflow: s.Workflow, Configuration: s.Config},
		Access:     s.Access.ACL(),
	}
	if s.Scheduled() {
		e.Source.Device = s.Device
		e.Source.Inputs = s.Inputs
		e.Source.Start = s.Start
		e.Source.End = s.End
		e.Source.Repeat = s.Repeat()
	} else {
		e.Assets = []api.AssetRef{{Flavor: AssetFlavor, FileID: s.Asset.ID, Filename: s.Asset.Filename}}
	}
	_, err := b.CreateEvent(ctx, e)
	return err
}

func agentOptions(env Env, selected string) []forms.Option {
	names := make([]string, len(env.Agents))
	for i, a := range env.Agents {
		names[i] = a.Name
	}
	return options(names, nil, selected)
}

func inputOptions(env Env, device string, selected []string) []forms.Option {
	agent, _ := env.Agent(device)
	return options(agent.Inputs, nil, selected...)
}

func weekdayValues(days []time.Weekday) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			out = append(out, weekdayCodes[d])
		}
	}
	return out
}

func parseWeekdays(codes []string) []time.Weekday {
	var out []time.Weekday
	for _, c := range codes {
		for i, code := range weekdayCodes {
			if strings.EqualFold(c, code) {
				out = append(out, time.Weekday(i))
			}
		}
	}
	return out
}
