package api

import (
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
)

// Source types of a new event.
const (
	SourceUpload           = "UPLOAD"
	SourceScheduleSingle   = "SCHEDULE_SINGLE"
	SourceScheduleMultiple = "SCHEDULE_MULTIPLE"
)

// ACE is one access control entry.
type ACE struct {
	Role    string   `json:"role"`
	Read    bool     `json:"read"`
	Write   bool     `json:"write"`
	Actions []string `json:"actions,omitempty"`
}

// Processing selects the workflow that runs on new media.
type Processing struct {
	Workflow      string            `json:"workflow"`
	Configuration map[string]string `json:"configuration,omitempty"`
}

// EventMetadata is the descriptive metadata of an event.
type EventMetadata struct {
	Title       string   `json:"title"`
	Subject     string   `json:"subject,omitempty"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language,omitempty"`
	License     string   `json:"license,omitempty"`
	Series      string   `json:"isPartOf,omitempty"`
	Creators    []string `json:"creator,omitempty"`
	Contributor []string `json:"contributor,omitempty"`
}

// EventSource describes where an event's media comes from.
type EventSource struct {
	Type   string           `json:"type"`
	Device string           `json:"device,omitempty"`
	Start  time.Time        `json:"start"`
	End    time.Time        `json:"end"`
	Inputs []string         `json:"inputs,omitempty"`
	Repeat *schedule.Repeat `json:"rrule,omitempty"`
}

// AssetRef is an uploaded file attached to a new event or theme.
type AssetRef struct {
	Flavor   string `json:"flavor"`
	FileID   string `json:"id"`
	Filename string `json:"filename"`
}

// NewEvent is the payload of CreateEvent.
type NewEvent struct {
	Metadata   EventMetadata `json:"metadata"`
	Source     EventSource   `json:"source"`
	Processing Processing    `json:"processing"`
	Access     []ACE         `json:"access"`
	Assets     []AssetRef    `json:"assets,omitempty"`
}

// SeriesMetadata is the descriptive metadata of a series.
type SeriesMetadata struct {
	Title       string   `json:"title"`
	Subject     string   `json:"subject,omitempty"`
	Description string   `json:"description,omitempty"`
	Language    string   `json:"language,omitempty"`
	License     string   `json:"license,omitempty"`
	Creators    []string `json:"creator,omitempty"`
	Contributor []string `json:"contributor,omitempty"`
	Publisher   []string `json:"publisher,omitempty"`
}

// NewSeries is the payload of CreateSeries.
type NewSeries struct {
	Metadata SeriesMetadata `json:"metadata"`
	Access   []ACE          `json:"access"`
	Theme    string         `json:"theme,omitempty"`
}

// NewTheme is the payload of CreateTheme.
type NewTheme struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`

	BumperActive  bool   `json:"bumperActive"`
	BumperFile    string `json:"bumperFile,omitempty"`
	TrailerActive bool   `json:"trailerActive"`
	TrailerFile   string `json:"trailerFile,omitempty"`

	TitleSlideActive     bool   `json:"titleSlideActive"`
	TitleSlideMode       string `json:"titleSlideMode,omitempty"`
	TitleSlideBackground string `json:"titleSlideBackground,omitempty"`

	LicenseSlideActive      bool   `json:"licenseSlideActive"`
	LicenseSlideDescription string `json:"licenseSlideDescription,omitempty"`

	WatermarkActive   bool   `json:"watermarkActive"`
	WatermarkFile     string `json:"watermarkFile,omitempty"`
	WatermarkPosition string `json:"watermarkPosition,omitempty"`
}

// NewUser is the payload of CreateUser.
type NewUser struct {
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

// NewGroup is the payload of CreateGroup.
type NewGroup struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles"`
	Users       []string `json:"users"`
}

// NewACL is the payload of CreateACL.
type NewACL struct {
	Name string `json:"name"`
	ACL  []ACE  `json:"acl"`
}

// SchedulingChange is the new schedule of one event in a bulk update.
type SchedulingChange struct {
	EventID string    `json:"eventId"`
	Title   string    `json:"title,omitempty"`
	Device  string    `json:"device"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// NewTask starts a workflow on existing events.
type NewTask struct {
	EventIDs      []string          `json:"eventIds"`
	Workflow      string            `json:"workflow"`
	Configuration map[string]string `json:"configuration,omitempty"`
}

// WorkflowField is one configuration option of a workflow.
type WorkflowField struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Label   string   `json:"label"`
	Default string   `json:"default"`
	Options []string `json:"options,omitempty"`
}

// Workflow is a processing workflow definition.
type Workflow struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Fields      []WorkflowField `json:"configuration_panel,omitempty"`
}

// Agent is a capture agent.
type Agent struct {
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Inputs []string `json:"inputs"`
}

// Role is an assignable role.
type Role struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Theme is a theme summary.
type Theme struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is an event summary as listed by the backend.
type Event struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Series string    `json:"series,omitempty"`
	Device string    `json:"location,omitempty"`
	Start  time.Time `json:"start_date"`
	End    time.Time `json:"end_date"`
	Status string    `json:"status,omitempty"`
}

// Scheduled reports whether e is a future capture that can be rescheduled.
func (e Event) Scheduled() bool {
	return e.Status == "SCHEDULED" && e.Device != ""
}

// Upload is the stored identity of an uploaded file.
type Upload struct {
	ID       string `json:"id" msgpack:"id"`
	Filename string `json:"filename" msgpack:"filename"`
}

// Created is the answer to a creation request.
type Created struct {
	ID string `json:"id"`
}
