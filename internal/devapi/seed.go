package devapi

import (
	"strconv"
	"time"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
)

// seed loads sample data with scheduled events in the week after now.
func (s *Server) seed(now time.Time) {
	s.agents = []api.Agent{
		{Name: "hall-a", Status: "idle", Inputs: []string{"camera", "screen", "audio"}},
		{Name: "hall-b", Status: "idle", Inputs: []string{"camera", "audio"}},
		{Name: "studio", Status: "offline", Inputs: []string{"camera"}},
	}
	s.roles = []api.Role{
		{Name: "ROLE_ADMIN", Description: "Administrators"},
		{Name: "ROLE_STUDENT", Description: "Students"},
		{Name: "ROLE_LECTURER", Description: "Lecturers"},
		{Name: "ROLE_ANONYMOUS", Description: "Public access"},
	}
	s.themes = []api.Theme{{ID: "default", Name: "Default"}}
	s.workflows = []taggedWorkflow{
		{
			Workflow: api.Workflow{
				ID:    "schedule-and-upload",
				Title: "Process and publish",
				Fields: []api.WorkflowField{
					{Name: "publish", Type: "checkbox", Label: "Publish automatically", Default: "true"},
					{Name: "quality", Type: "select", Label: "Quality", Default: "hd", Options: []string{"sd", "hd", "uhd"}},
					{Name: "comment", Type: "text", Label: "Comment"},
				},
			},
			Tags: []string{"upload", "schedule"},
		},
		{
			Workflow: api.Workflow{ID: "fast", Title: "Fast testing workflow"},
			Tags:     []string{"upload", "schedule", "archive"},
		},
		{
			Workflow: api.Workflow{
				ID:    "republish",
				Title: "Republish metadata",
				Fields: []api.WorkflowField{
					{Name: "notify", Type: "boolean", Label: "Notify subscribers", Default: "false"},
				},
			},
			Tags: []string{"archive"},
		},
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	for i, e := range []api.Event{
		{Title: "Linear Algebra", Device: "hall-a", Start: day.Add(9 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)},
		{Title: "Operating Systems", Device: "hall-a", Start: day.Add(11 * time.Hour), End: day.Add(12*time.Hour + 30*time.Minute)},
		{Title: "Organic Chemistry", Device: "hall-b", Start: day.Add(9 * time.Hour), End: day.Add(11 * time.Hour)},
		{Title: "Seminar", Device: "studio", Start: day.AddDate(0, 0, 2).Add(14 * time.Hour), End: day.AddDate(0, 0, 2).Add(16 * time.Hour)},
	} {
		e.ID = "seed-" + strconv.Itoa(i+1)
		e.Status = "SCHEDULED"
		s.addEventLocked(e)
	}
	s.addEventLocked(api.Event{ID: "seed-archived", Title: "Welcome lecture", Status: "PROCESSED"})
}
