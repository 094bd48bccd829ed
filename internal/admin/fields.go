package admin

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/forms"
	"github.com/gabrielmiguelok/eventadmin/pkg/wizard"
)

// fieldRule validates a page by checking the fields it shows, then runs the
// cross-field checks in extra.
func fieldRule[S wizard.Snapshot](fields func(string, S, Env) []forms.Field, page string, extra ...func(S, forms.Errors)) wizard.Rule[S] {
	return func(values S) forms.Errors {
		errs := forms.CheckAll(fields(page, values, Env{}))
		for _, fn := range extra {
			fn(values, errs)
		}
		return errs
	}
}

// The set helpers copy an input entry into dst only when the browser sent
// it, so partial payloads leave other fields alone.

func setString(dst *string, in forms.Values, key string) {
	if in.Has(key) {
		*dst = in.String(key)
	}
}

func setStrings(dst *[]string, in forms.Values, key string) {
	if in.Has(key) {
		*dst = in.Strings(key)
	}
}

func setBool(dst *bool, in forms.Values, key string) {
	if in.Has(key) {
		*dst = in.Bool(key)
	}
}

func setTime(dst *time.Time, in forms.Values, key, layout string, loc *time.Location) {
	if in.Has(key) {
		*dst = in.Time(key, layout, loc)
	}
}

// setUpload reads the id and filename the upload_done event stores under
// key_id and key_filename.
func setUpload(dst *api.Upload, in forms.Values, key string) {
	if in.Has(key + "_id") {
		dst.ID = in.String(key + "_id")
		dst.Filename = in.String(key + "_filename")
	}
}

func readOnly(name, label string, value any) forms.Field {
	return forms.NewField(name, forms.FieldReadOnly, label, forms.WithValue(value))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// options builds select options, keeping any selected value the list does
// not contain so restored drafts still show it.
func options(values, labels []string, selected ...string) []forms.Option {
	out := make([]forms.Option, 0, len(values)+len(selected))
	for i, v := range values {
		label := v
		if i < len(labels) && labels[i] != "" {
			label = labels[i]
		}
		out = append(out, forms.Option{Value: v, Label: label})
	}
	for _, s := range selected {
		if s != "" && !slices.Contains(values, s) {
			out = append(out, forms.Option{Value: s, Label: s})
		}
	}
	return out
}

func roleOptions(env Env, selected ...string) []forms.Option {
	names := make([]string, len(env.Roles))
	for i, r := range env.Roles {
		names[i] = r.Name
	}
	return options(names, nil, selected...)
}

func workflowOptions(env Env, selected string) []forms.Option {
	ids := make([]string, len(env.Workflows))
	titles := make([]string, len(env.Workflows))
	for i, wf := range env.Workflows {
		ids[i], titles[i] = wf.ID, wf.Title
	}
	return options(ids, titles, selected)
}

// ProcessingDefaults returns the default configuration of wf.
func ProcessingDefaults(wf api.Workflow) map[string]string {
	out := make(map[string]string, len(wf.Fields))
	for _, f := range wf.Fields {
		out[f.Name] = f.Default
	}
	return out
}

// workflowFields renders the configuration panel of wf bound to config.
func workflowFields(wf api.Workflow, config map[string]string) []forms.Field {
	fields := make([]forms.Field, 0, len(wf.Fields))
	for _, f := range wf.Fields {
		name := "config_" + f.Name
		label := f.Label
		if label == "" {
			label = f.Name
		}
		value := config[f.Name]
		switch f.Type {
		case "checkbox", "boolean":
			b, _ := strconv.ParseBool(value)
			fields = append(fields, forms.NewField(name, forms.FieldCheckbox, label, forms.WithValue(b)))
		case "select":
			fields = append(fields, forms.NewField(name, forms.FieldSelect, label,
				forms.WithValue(value), forms.WithOptions(options(f.Options, nil, value)...)))
		default:
			fields = append(fields, forms.NewField(name, forms.FieldText, label, forms.WithValue(value)))
		}
	}
	return fields
}

// bindProcessing applies a workflow selection and its configuration panel.
// Choosing another workflow resets the configuration to its defaults.
func bindProcessing(workflow string, config map[string]string, in forms.Values, env Env) (string, map[string]string) {
	if in.Has("workflow") {
		if next := in.String("workflow"); next != workflow {
			workflow = next
			config = nil
			if wf, ok := env.Workflow(workflow); ok {
				config = ProcessingDefaults(wf)
			}
		}
	}
	wf, ok := env.Workflow(workflow)
	if !ok {
		return workflow, config
	}

	out := make(map[string]string, len(wf.Fields))
	for k, v := range config {
		out[k] = v
	}
	for _, f := range wf.Fields {
		key := "config_" + f.Name
		if !in.Has(key) {
			continue
		}
		if f.Type == "checkbox" || f.Type == "boolean" {
			out[f.Name] = strconv.FormatBool(in.Bool(key))
		} else {
			out[f.Name] = in.String(key)
		}
	}
	return workflow, out
}

// configSummary renders a workflow configuration as "key=value" pairs in
// key order.
func configSummary(config map[string]string) string {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + config[k]
	}
	return strings.Join(parts, ", ")
}
