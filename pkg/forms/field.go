// Package forms describes wizard fields declaratively and renders them as
// input controls.
package forms

// FieldType identifies the input control a field maps to.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldEmail       FieldType = "email"
	FieldPassword    FieldType = "password"
	FieldNumber      FieldType = "number"
	FieldTextarea    FieldType = "textarea"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldCheckbox    FieldType = "checkbox"
	FieldFile        FieldType = "file"
	FieldHidden      FieldType = "hidden"
	FieldDate        FieldType = "date"
	FieldTime        FieldType = "time"
	FieldDateTime    FieldType = "datetime-local"
	FieldReadOnly    FieldType = "readonly"
)

// Field is a declarative description of one input. It carries no state of
// its own beyond the bound Value.
type Field struct {
	Name        string
	Type        FieldType
	Label       string
	Placeholder string
	Help        string
	Required    bool
	ReadOnly    bool
	Options     []Option
	Value       any
	Validators  []Validator

	// Accept lists allowed MIME types for file fields.
	Accept string

	// Uploaded is the name of the already uploaded file, if any.
	Uploaded string
}

// Option is one choice of a select or multiselect field.
type Option struct {
	Value string
	Label string
}

// FieldOption configures a field.
type FieldOption func(*Field)

// NewField creates a field of the given type.
func NewField(name string, fieldType FieldType, label string, opts ...FieldOption) Field {
	field := Field{
		Name:  name,
		Type:  fieldType,
		Label: label,
	}
	for _, opt := range opts {
		opt(&field)
	}
	if fieldType == FieldEmail {
		field.Validators = append(field.Validators, Email())
	}
	return field
}

// WithRequired marks the field as required.
func WithRequired() FieldOption {
	return func(f *Field) {
		f.Required = true
	}
}

// WithReadOnly renders the field without an editable control.
func WithReadOnly() FieldOption {
	return func(f *Field) {
		f.ReadOnly = true
	}
}

// WithValue binds the current value.
func WithValue(value any) FieldOption {
	return func(f *Field) {
		f.Value = value
	}
}

// WithHelp sets help text shown below the control. Limited markup is allowed.
func WithHelp(help string) FieldOption {
	return func(f *Field) {
		f.Help = help
	}
}

// WithPlaceholder sets the placeholder text.
func WithPlaceholder(placeholder string) FieldOption {
	return func(f *Field) {
		f.Placeholder = placeholder
	}
}

// WithOptions sets select choices.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = options
	}
}

// WithValidator appends a validator.
func WithValidator(v Validator) FieldOption {
	return func(f *Field) {
		f.Validators = append(f.Validators, v)
	}
}

// WithAccept restricts file fields to the given MIME types.
func WithAccept(accept string) FieldOption {
	return func(f *Field) {
		f.Accept = accept
	}
}

// WithUploaded records the name of a file already stored for this field.
func WithUploaded(filename string) FieldOption {
	return func(f *Field) {
		f.Uploaded = filename
	}
}

// Check runs the required check and all validators against value.
func (f Field) Check(value any) []string {
	if f.Required && isEmpty(value) {
		return []string{RequiredValidator{}.Message()}
	}
	var msgs []string
	for _, v := range f.Validators {
		if err := v.Validate(value); err != nil {
			msgs = append(msgs, v.Message())
		}
	}
	return msgs
}

// CheckAll validates every field against its own bound Value.
func CheckAll(fields []Field) Errors {
	errs := Errors{}
	for _, f := range fields {
		for _, msg := range f.Check(f.Value) {
			errs.Add(f.Name, msg)
		}
	}
	return errs
}
