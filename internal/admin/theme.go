package admin

import (
	"context"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/wizard"
)

// Title slide modes.
const (
	TitleSlideExtract = "extract"
	TitleSlideUpload  = "upload"
)

var watermarkPositions = []string{"topLeft", "topRight", "bottomLeft", "bottomRight"}

// ThemeSnapshot is the accumulated input of the new theme wizard.
type ThemeSnapshot struct {
	Name        string `msgpack:"name"`
	Description string `msgpack:"description"`
	Default     bool   `msgpack:"default"`

	BumperActive  bool       `msgpack:"bumper_active"`
	Bumper        api.Upload `msgpack:"bumper"`
	TrailerActive bool       `msgpack:"trailer_active"`
	Trailer       api.Upload `msgpack:"trailer"`

	TitleSlideActive bool       `msgpack:"title_active"`
	TitleSlideMode   string     `msgpack:"title_mode"`
	TitleBackground  api.Upload `msgpack:"title_background"`

	LicenseSlideActive      bool   `msgpack:"license_active"`
	LicenseSlideDescription string `msgpack:"license_description"`

	WatermarkActive   bool       `msgpack:"watermark_active"`
	Watermark         api.Upload `msgpack:"watermark"`
	WatermarkPosition string     `msgpack:"watermark_position"`
}

func (ThemeSnapshot) Kind() string { return "theme" }

// ThemeWizard creates a theme.
type ThemeWizard struct{}

func (ThemeWizard) Title() string { return "Create theme" }

func (ThemeWizard) Initial() ThemeSnapshot {
	return ThemeSnapshot{TitleSlideMode: TitleSlideExtract, WatermarkPosition: "topRight"}
}

func (ThemeWizard) Messages() Messages {
	return Messages{Context: "new-theme-form", Success: "THEME_CREATED", Failure: "THEME_NOT_CREATED"}
}

func (d ThemeWizard) Pages() []wizard.Page[ThemeSnapshot] {
	return []wizard.Page[ThemeSnapshot]{
		{Name: "general", Rule: fieldRule(d.Fields, "general")},
		{Name: "bumper", Rule: fieldRule(d.Fields, "bumper")},
		{Name: "trailer", Rule: fieldRule(d.Fields, "trailer")},
		{Name: "title-slide", Rule: fieldRule(d.Fields, "title-slide")},
		{Name: "watermark", Rule: fieldRule(d.Fields, "watermark")},
		{Name: "summary"},
	}
}

func (ThemeWizard) Load(ctx context.Context, b Backend) (Lookups, error) {
	return Lookups{}, nil
}

// uploadField is a file input that is required only while its feature is
// switched on.
func uploadField(name, label, accept string, active bool, u api.Upload) forms.Field {
	opts := []forms.FieldOption{forms.WithValue(u.ID), forms.WithUploaded(u.Filename), forms.WithAccept(accept)}
	if active {
		opts = append(opts, forms.WithRequired())
	}
	return forms.NewField(name, forms.FieldFile, label, opts...)
}

func (ThemeWizard) Fields(page string, s ThemeSnapshot, env Env) []forms.Field {
	switch page {
	case "general":
		return []forms.Field{
			forms.NewField("name", forms.FieldText, "Name", forms.WithRequired(), forms.WithValue(s.Name)),
			forms.NewField("description", forms.FieldTextarea, "Description", forms.WithValue(s.Description)),
			forms.NewField("default", forms.FieldCheckbox, "Default theme", forms.WithValue(s.Default)),
		}
	case "bumper":
		return []forms.Field{
			forms.NewField("bumper_active", forms.FieldCheckbox, "Add a bumper", forms.WithValue(s.BumperActive)),
			uploadField("bumper", "Bumper video", "video/*", s.BumperActive, s.Bumper),
		}
	case "trailer":
		return []forms.Field{
			forms.NewField("trailer_active", forms.FieldCheckbox, "Add a trailer", forms.WithValue(s.TrailerActive)),
			uploadField("trailer", "Trailer video", "video/*", s.TrailerActive, s.Trailer),
		}
	case "title-slide":
		return []forms.Field{
			forms.NewField("title_active", forms.FieldCheckbox, "Add a title slide", forms.WithValue(s.TitleSlideActive)),
			forms.NewField("title_mode", forms.FieldSelect, "Background", forms.WithValue(s.TitleSlideMode),
				forms.WithValidator(forms.OneOf(TitleSlideExtract, TitleSlideUpload)),
				forms.WithOptions(
					forms.Option{Value: TitleSlideExtract, Label: "Extract from the recording"},
					forms.Option{Value: TitleSlideUpload, Label: "Upload an image"},
				)),
			uploadField("title_background", "Background image", "image/*",
				s.TitleSlideActive && s.TitleSlideMode == TitleSlideUpload, s.TitleBackground),
			forms.NewField("license_active", forms.FieldCheckbox, "Add a license slide", forms.WithValue(s.LicenseSlideActive)),
			forms.NewField("license_description", forms.FieldTextarea, "License text", forms.WithValue(s.LicenseSlideDescription)),
		}
	case "watermark":
		return []forms.Field{
			forms.NewField("watermark_active", forms.FieldCheckbox, "Add a watermark", forms.WithValue(s.WatermarkActive)),
			uploadField("watermark", "Watermark image", "image/*", s.WatermarkActive, s.Watermark),
			forms.NewField("watermark_position", forms.FieldSelect, "Position", forms.WithValue(s.WatermarkPosition),
				forms.WithValidator(forms.OneOf(watermarkPositions...)),
				forms.WithOptions(options(watermarkPositions, []string{"Top left", "Top right", "Bottom left", "Bottom right"})...)),
		}
	case "summary":
		return []forms.Field{
			readOnly("summary_name", "Name", s.Name),
			readOnly("summary_default", "Default theme", yesNo(s.Default)),
			readOnly("summary_bumper", "Bumper", activeFile(s.BumperActive, s.Bumper)),
			readOnly("summary_trailer", "Trailer", activeFile(s.TrailerActive, s.Trailer)),
			readOnly("summary_title", "Title slide", yesNo(s.TitleSlideActive)),
			readOnly("summary_license", "License slide", yesNo(s.LicenseSlideActive)),
			readOnly("summary_watermark", "Watermark", activeFile(s.WatermarkActive, s.Watermark)),
		}
	}
	return nil
}

func activeFile(active bool, u api.Upload) string {
	if !active {
		return "No"
	}
	return u.Filename
}

func (ThemeWizard) Bind(page string, s ThemeSnapshot, in forms.Values, env Env) ThemeSnapshot {
	switch page {
	case "general":
		setString(&s.Name, in, "name")
		setString(&s.Description, in, "description")
		setBool(&s.Default, in, "default")
	case "bumper":
		setBool(&s.BumperActive, in, "bumper_active")
		setUpload(&s.Bumper, in, "bumper")
	case "trailer":
		setBool(&s.TrailerActive, in, "trailer_active")
		setUpload(&s.Trailer, in, "trailer")
	case "title-slide":
		setBool(&s.TitleSlideActive, in, "title_active")
		setString(&s.TitleSlideMode, in, "title_mode")
		setUpload(&s.TitleBackground, in, "title_background")
		setBool(&s.LicenseSlideActive, in, "license_active")
		setString(&s.LicenseSlideDescription, in, "license_description")
	case "watermark":
		setBool(&s.WatermarkActive, in, "watermark_active")
		setUpload(&s.Watermark, in, "watermark")
		setString(&s.WatermarkPosition, in, "watermark_position")
	}
	return s
}

func (ThemeWizard) Submit(ctx context.Context, b Backend, s ThemeSnapshot) error {
	t := api.NewTheme{
		Name:                    s.Name,
		Description:             s.Description,
		Default:                 s.Default,
		BumperActive:            s.BumperActive,
		TrailerActive:           s.TrailerActive,
		TitleSlideActive:        s.TitleSlideActive,
		LicenseSlideActive:      s.LicenseSlideActive,
		LicenseSlideDescription: s.LicenseSlideDescription,
		WatermarkActive:         s.WatermarkActive,
	}
	if s.BumperActive {
		t.BumperFile = s.Bumper.ID
	}
	if s.TrailerActive {
		t.TrailerFile = s.Trailer.ID
	}
	if s.TitleSlideActive {
		t.TitleSlideMode = s.TitleSlideMode
		if s.TitleSlideMode == TitleSlideUpload {
			t.TitleSlideBackground = s.TitleBackground.ID
		}
	}
	if s.WatermarkActive {
		t.WatermarkFile = s.Watermark.ID
		t.WatermarkPosition = s.WatermarkPosition
	}
	_, err := b.CreateTheme(ctx, t)
	return err
}
