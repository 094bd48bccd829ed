package forms

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name      string
		validator Validator
		value     any
		valid     bool
	}{
		{"required string", Required(), "x", true},
		{"required blank", Required(), "  ", false},
		{"required empty list", Required(), []string{}, false},
		{"required zero time", Required(), time.Time{}, false},
		{"required false checkbox", Required(), false, true},
		{"email ok", Email(), "a.b@example.org", true},
		{"email bad", Email(), "a.b@", false},
		{"email empty passes", Email(), "", true},
		{"min length runes", MinLength(3), "äöü", true},
		{"min length short", MinLength(3), "ab", false},
		{"max length", MaxLength(2), "abc", false},
		{"pattern", Pattern(`^[a-z]+$`), "abc", true},
		{"pattern mismatch", Pattern(`^[a-z]+$`), "ab1", false},
		{"range", Range(1, 5), 3.0, true},
		{"range outside", Range(1, 5), 6, false},
		{"one of", OneOf("a", "b"), "b", true},
		{"one of other", OneOf("a", "b"), "c", false},
		{"custom", Custom(func(v any) error { return errors.New("no") }, "never"), "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validator.Validate(tt.value)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("expected invalid, got nil")
			}
		})
	}
}

func TestCheckAll(t *testing.T) {
	fields := []Field{
		NewField("title", FieldText, "Title", WithRequired()),
		NewField("email", FieldEmail, "Email", WithValue("nope")),
		NewField("code", FieldText, "Code", WithValue("AB"), WithValidator(MinLength(3)), WithValidator(Pattern(`^[a-z]+$`, "lower case only"))),
		NewField("note", FieldText, "Note", WithValue("fine")),
	}

	errs := CheckAll(fields)
	want := Errors{
		"title": {"This field is required"},
		"email": {"Please enter a valid email address"},
		"code":  {"Must be at least 3 characters", "lower case only"},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"code", "email", "title"}, errs.Fields()); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
	if errs.First("code") != "Must be at least 3 characters" {
		t.Errorf("unexpected first message %q", errs.First("code"))
	}
}

func TestErrors_Merge(t *testing.T) {
	e := Errors{"a": {"one"}}
	e.Merge(Errors{"a": {"two"}, "b": {"three"}})
	if diff := cmp.Diff(Errors{"a": {"one", "two"}, "b": {"three"}}, e); diff != "" {
		t.Errorf("merged (-want +got):\n%s", diff)
	}
	if (Errors{"a": nil}).Empty() != true {
		t.Error("expected entries without messages to be empty")
	}
}

func TestValues(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	v := Values{
		"name":    "  Ada ",
		"count":   "42",
		"num":     float64(7),
		"on":      "on",
		"flag":    true,
		"tags":    []any{"a", " ", "b", 3},
		"csv":     "x, y,,z",
		"start":   "2026-03-02T10:15",
		"broken":  "yesterday",
		"missing": nil,
	}

	if got := v.String("name"); got != "Ada" {
		t.Errorf("expected trimmed name, got %q", got)
	}
	if v.Int("count") != 42 || v.Int("num") != 7 || v.Int("name") != 0 {
		t.Errorf("unexpected ints %d %d %d", v.Int("count"), v.Int("num"), v.Int("name"))
	}
	if !v.Bool("on") || !v.Bool("flag") || v.Bool("name") {
		t.Error("unexpected bool conversions")
	}
	if diff := cmp.Diff([]string{"a", "b"}, v.Strings("tags")); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"x", "y", "z"}, v.Strings("csv")); diff != "" {
		t.Errorf("csv (-want +got):\n%s", diff)
	}
	if got := v.Time("start", DateTimeLayout, loc); !got.Equal(time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %v", got)
	}
	if !v.Time("broken", DateTimeLayout, loc).IsZero() {
		t.Error("expected zero time for malformed input")
	}
	if !v.Has("missing") || v.Has("absent") {
		t.Error("Has should report present keys, including nil values")
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		errs  []string
		want  []string
	}{
		{
			name:  "text with error",
			field: NewField("title", FieldText, "Title", WithRequired(), WithValue(`<b>"x"</b>`)),
			errs:  []string{"Too short"},
			want: []string{
				`class="field field-text field-error"`,
				`<span class="required">*</span>`,
				`value="&lt;b&gt;&#34;x&#34;&lt;/b&gt;"`,
				`<p class="error">Too short</p>`,
			},
		},
		{
			name: "select marks the bound option",
			field: NewField("lang", FieldSelect, "Language", WithValue("deu"),
				WithOptions(Option{Value: "eng", Label: "English"}, Option{Value: "deu", Label: "German"})),
			want: []string{`<option value="deu" selected>German</option>`, `<option value="eng">English</option>`},
		},
		{
			name: "multiselect",
			field: NewField("roles", FieldMultiSelect, "Roles", WithValue([]string{"a", "c"}),
				WithOptions(Option{Value: "a", Label: "A"}, Option{Value: "b", Label: "B"}, Option{Value: "c", Label: "C"})),
			want: []string{`multiple`, `<option value="a" selected>A</option>`, `<option value="b">B</option>`, `<option value="c" selected>C</option>`},
		},
		{
			name:  "checkbox",
			field: NewField("active", FieldCheckbox, "Active", WithValue(true)),
			want:  []string{`type="checkbox"`, `checked`},
		},
		{
			name:  "file keeps uploaded name",
			field: NewField("asset", FieldFile, "Media", WithAccept("video/*"), WithUploaded("talk.mp4")),
			want:  []string{`data-upload="asset"`, `accept="video/*"`, `<span class="uploaded">talk.mp4</span>`},
		},
		{
			name:  "date time",
			field: NewField("start", FieldDateTime, "Start", WithValue(time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC))),
			want:  []string{`type="datetime-local"`, `value="2026-03-02T10:15"`},
		},
		{
			name:  "read only list",
			field: NewField("summary", FieldReadOnly, "Roles", WithValue([]string{"a", "b"})),
			want:  []string{`<span class="readonly" id="f-summary">a, b</span>`},
		},
		{
			name:  "help is sanitized",
			field: NewField("x", FieldText, "X", WithHelp(`<b>bold</b><script>alert(1)</script>`)),
			want:  []string{`<p class="help"><b>bold</b></p>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			if err := Render(&sb, tt.field, tt.errs); err != nil {
				t.Fatalf("Render: %v", err)
			}
			out := sb.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("expected %q in %s", want, out)
				}
			}
			if strings.Contains(out, "<script>") {
				t.Errorf("unexpected script tag in %s", out)
			}
		})
	}
}
