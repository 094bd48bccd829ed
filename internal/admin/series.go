package admin

import (
	"context"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/wizard"
)

// SeriesSnapshot is the accumulated input of the new series wizard.
type SeriesSnapshot struct {
	Title       string   `msgpack:"title"`
	Subject     string   `msgpack:"subject"`
	Description string   `msgpack:"description"`
	Language    string   `msgpack:"language"`
	License     string   `msgpack:"license"`
	Creators    []string `msgpack:"creators"`
	Publishers  []string `msgpack:"publishers"`

	Access Access `msgpack:"access"`
	Theme  string `msgpack:"theme"`
}

func (SeriesSnapshot) Kind() string { return "series" }

// SeriesWizard creates a series.
type SeriesWizard struct{}

func (SeriesWizard) Title() string { return "Create series" }

func (SeriesWizard) Initial() SeriesSnapshot {
	return SeriesSnapshot{Access: defaultAccess()}
}

func (SeriesWizard) Messages() Messages {
	return Messages{Context: "new-series-form", Success: "SERIES_ADDED", Failure: "SERIES_NOT_SAVED"}
}

func (d SeriesWizard) Pages() []wizard.Page[SeriesSnapshot] {
	return []wizard.Page[SeriesSnapshot]{
		{Name: "metadata", Rule: fieldRule(d.Fields, "metadata")},
		{Name: "access", Rule: fieldRule(d.Fields, "access", func(s SeriesSnapshot, errs forms.Errors) {
			checkAccess(s.Access, errs)
		})},
		{Name: "theme"},
		{Name: "summary"},
	}
}

func (SeriesWizard) Load(ctx context.Context, b Backend) (Lookups, error) {
	return loadLookups(ctx, b, needRoles|needThemes, "")
}

func (SeriesWizard) Fields(page string, s SeriesSnapshot, env Env) []forms.Field {
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
			forms.NewField("creators", forms.FieldText, "Organizers", forms.WithValue(s.Creators)),
			forms.NewField("publishers", forms.FieldText, "Publishers", forms.WithValue(s.Publishers)),
		}
	case "access":
		return accessFields(s.Access, env)
	case "theme":
		ids := make([]string, len(env.Themes))
		names := make([]string, len(env.Themes))
		for i, t := range env.Themes {
			ids[i], names[i] = t.ID, t.Name
		}
		return []forms.Field{
			forms.NewField("theme", forms.FieldSelect, "Theme", forms.WithValue(s.Theme),
				forms.WithOptions(options(ids, names, s.Theme)...),
				forms.WithHelp("Leave empty to use the default theme.")),
		}
	case "summary":
		fields := []forms.Field{
			readOnly("summary_title", "Title", s.Title),
			readOnly("summary_creators", "Organizers", s.Creators),
			readOnly("summary_theme", "Theme", s.Theme),
		}
		return append(fields, accessSummary(s.Access)...)
	}
	return nil
}

func (SeriesWizard) Bind(page string, s SeriesSnapshot, in forms.Values, env Env) SeriesSnapshot {
	switch page {
	case "metadata":
		setString(&s.Title, in, "title")
		setString(&s.Subject, in, "subject")
		setString(&s.Description, in, "description")
		setString(&s.Language, in, "language")
		setString(&s.License, in, "license")
		setStrings(&s.Creators, in, "creators")
		setStrings(&s.Publishers, in, "publishers")
	case "access":
		s.Access = bindAccess(s.Access, in)
	case "theme":
		setString(&s.Theme, in, "theme")
	}
	return s
}

func (SeriesWizard) Submit(ctx context.Context, b Backend, s SeriesSnapshot) error {
	_, err := b.CreateSeries(ctx, api.NewSeries{
		Metadata: api.SeriesMetadata{
			Title:       s.Title,
			Subject:     s.Subject,
			Description: s.Description,
			Language:    s.Language,
			License:     s.License,
			Creators:    s.Creators,
			Publisher:   s.Publishers,
		},
		Access: s.Access.ACL(),
		Theme:  s.Theme,
	})
	return err
}
