package forms

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// helpSanitizer allows the small subset of markup used in help texts.
func helpSanitizer() *bluemonday.Policy {
	helpPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "em", "i", "code", "br")
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		helpPolicy = policy
	})
	return helpPolicy
}

// Render writes the input control for f, followed by its error messages.
func Render(w io.Writer, f Field, errs []string) error {
	bw := bufio.NewWriter(w)

	class := "field field-" + string(f.Type)
	if len(errs) > 0 {
		class += " field-error"
	}
	fmt.Fprintf(bw, `<div class="%s" data-field="%s">`, class, esc(f.Name))

	if f.Label != "" && f.Type != FieldHidden {
		required := ""
		if f.Required {
			required = ` <span class="required">*</span>`
		}
		fmt.Fprintf(bw, `<label for="f-%s">%s%s</label>`, esc(f.Name), esc(f.Label), required)
	}

	renderControl(bw, f)

	if f.Help != "" {
		fmt.Fprintf(bw, `<p class="help">%s</p>`, helpSanitizer().Sanitize(f.Help))
	}
	for _, msg := range errs {
		fmt.Fprintf(bw, `<p class="error">%s</p>`, esc(msg))
	}
	bw.WriteString(`</div>`)

	return bw.Flush()
}

// RenderAll renders fields in order, looking up each field's errors in errs.
func RenderAll(w io.Writer, fields []Field, errs Errors) error {
	for _, f := range fields {
		if err := Render(w, f, errs[f.Name]); err != nil {
			return err
		}
	}
	return nil
}

func renderControl(w *bufio.Writer, f Field) {
	name := esc(f.Name)
	attrs := ""
	if f.Placeholder != "" {
		attrs += fmt.Sprintf(` placeholder="%s"`, esc(f.Placeholder))
	}
	if f.Required {
		attrs += ` required`
	}

	if f.ReadOnly || f.Type == FieldReadOnly {
		fmt.Fprintf(w, `<span class="readonly" id="f-%s">%s</span>`, name, esc(FormatValue(f.Type, f.Value)))
		return
	}

	switch f.Type {
	case FieldTextarea:
		fmt.Fprintf(w, `<textarea id="f-%s" name="%s"%s>%s</textarea>`, name, name, attrs, esc(FormatValue(f.Type, f.Value)))

	case FieldSelect:
		fmt.Fprintf(w, `<select id="f-%s" name="%s"%s>`, name, name, attrs)
		current := FormatValue(f.Type, f.Value)
		w.WriteString(`<option value=""></option>`)
		for _, opt := range f.Options {
			selected := ""
			if opt.Value == current {
				selected = " selected"
			}
			fmt.Fprintf(w, `<option value="%s"%s>%s</option>`, esc(opt.Value), selected, esc(opt.Label))
		}
		w.WriteString(`</select>`)

	case FieldMultiSelect:
		fmt.Fprintf(w, `<select id="f-%s" name="%s" multiple%s>`, name, name, attrs)
		chosen := map[string]bool{}
		if list, ok := f.Value.([]string); ok {
			for _, v := range list {
				chosen[v] = true
			}
		}
		for _, opt := range f.Options {
			selected := ""
			if chosen[opt.Value] {
				selected = " selected"
			}
			fmt.Fprintf(w, `<option value="%s"%s>%s</option>`, esc(opt.Value), selected, esc(opt.Label))
		}
		w.WriteString(`</select>`)

	case FieldCheckbox:
		checked := ""
		if b, _ := f.Value.(bool); b {
			checked = " checked"
		}
		fmt.Fprintf(w, `<input type="checkbox" id="f-%s" name="%s"%s>`, name, name, checked)

	case FieldFile:
		accept := ""
		if f.Accept != "" {
			accept = fmt.Sprintf(` accept="%s"`, esc(f.Accept))
		}
		fmt.Fprintf(w, `<input type="file" id="f-%s" name="%s" data-upload="%s"%s>`, name, name, name, accept)
		if f.Uploaded != "" {
			fmt.Fprintf(w, `<span class="uploaded">%s</span>`, esc(f.Uploaded))
		}

	default:
		fmt.Fprintf(w, `<input type="%s" id="f-%s" name="%s" value="%s"%s>`,
			esc(string(f.Type)), name, name, esc(FormatValue(f.Type, f.Value)), attrs)
	}
}

// FormatValue turns a bound value into the string an input control expects.
func FormatValue(t FieldType, value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		return strings.Join(v, ", ")
	case time.Time:
		if v.IsZero() {
			return ""
		}
		switch t {
		case FieldDate:
			return v.Format(DateLayout)
		case FieldTime:
			return v.Format(TimeLayout)
		default:
			return v.Format(DateTimeLayout)
		}
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}
