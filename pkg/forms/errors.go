package forms

import (
	"sort"
	"strings"
)

// Errors maps field names to validation messages. A nil or empty Errors
// means the values are valid.
type Errors map[string][]string

// Add appends a message for field.
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message for field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Empty reports whether there are no messages at all.
func (e Errors) Empty() bool {
	for _, msgs := range e {
		if len(msgs) > 0 {
			return false
		}
	}
	return true
}

// Merge copies all messages of other into e.
func (e Errors) Merge(other Errors) Errors {
	for field, msgs := range other {
		for _, msg := range msgs {
			e.Add(field, msg)
		}
	}
	return e
}

// Fields returns the names of fields with errors, sorted.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for field, msgs := range e {
		if len(msgs) > 0 {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

func (e Errors) Error() string {
	var parts []string
	for _, field := range e.Fields() {
		parts = append(parts, field+": "+strings.Join(e[field], ", "))
	}
	return strings.Join(parts, "; ")
}
