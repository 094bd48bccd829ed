// Package notify holds the transient, context-scoped user messages shown by
// the admin console.
package notify

import (
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Type is the severity of a notification.
type Type string

const (
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeSuccess Type = "success"
	TypeInfo    Type = "info"
)

// Forever disables automatic removal when used as a Duration.
const Forever = -1

// GlobalContext is the context of notifications that belong to no form.
const GlobalContext = "global"

// Notification is one transient message.
type Notification struct {
	ID int `json:"id"`

	// Key identifies the message text, see Text.
	Key  string `json:"key"`
	Type Type   `json:"type"`

	// Duration is the lifetime in seconds. Forever keeps the entry until it
	// is removed explicitly.
	Duration int `json:"duration"`

	// Context scopes the UI region that displays the message.
	Context string `json:"context"`

	Hidden bool              `json:"hidden"`
	Params map[string]string `json:"params,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsGlobal reports whether n belongs to the global region.
func (n Notification) IsGlobal() bool {
	return n.Context == "" || n.Context == GlobalContext
}

var messages = map[string]string{
	"EVENTS_CREATED":                "The event has been created.",
	"EVENTS_NOT_CREATED":            "The event could not be created.",
	"SERIES_ADDED":                  "The series has been created.",
	"SERIES_NOT_SAVED":              "The series could not be saved.",
	"THEME_CREATED":                 "The theme has been created.",
	"THEME_NOT_CREATED":             "The theme could not be created.",
	"USER_ADDED":                    "The user has been created.",
	"USER_NOT_SAVED":                "The user could not be saved.",
	"GROUP_ADDED":                   "The group has been created.",
	"GROUP_NOT_SAVED":               "The group could not be saved.",
	"ACL_ADDED":                     "The access policy has been created.",
	"ACL_NOT_SAVED":                 "The access policy could not be saved.",
	"BULK_METADATA_UPDATE.SUCCESS":  "The scheduling of the selected events has been updated.",
	"BULK_METADATA_UPDATE.FAILURE":  "The scheduling could not be updated.",
	"TASK_CREATED":                  "The task has been started.",
	"TASK_NOT_CREATED":              "The task could not be started.",
	"CONFLICT_DETECTED":             "The schedule conflicts with existing events.",
	"CONFLICT_CHECK_FAILED":         "The schedule could not be checked for conflicts.",
	"NETWORK_ERROR":                 "The server could not be reached.",
	"UPLOAD_FAILED":                 "The file {filename} could not be uploaded.",
	"UPLOAD_DONE":                   "The file {filename} has been uploaded.",
	"LOAD_FAILED":                   "Some data could not be loaded.",
	"SERVICE_UNAVAILABLE":           "The backend is temporarily unavailable.",
}

var (
	paramPolicyOnce sync.Once
	paramPolicy     *bluemonday.Policy
)

// Text resolves the English text of n, substituting {name} placeholders with
// n.Params stripped of markup. Unknown keys render as the key itself.
func Text(n Notification) string {
	text, ok := messages[n.Key]
	if !ok {
		text = n.Key
	}
	if len(n.Params) == 0 {
		return text
	}

	paramPolicyOnce.Do(func() {
		paramPolicy = bluemonday.StrictPolicy()
	})

	pairs := make([]string, 0, len(n.Params)*2)
	for name, value := range n.Params {
		pairs = append(pairs, "{"+name+"}", paramPolicy.Sanitize(value))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
