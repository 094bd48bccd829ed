// Package devapi is an in-memory stand-in for the admin REST backend. It
// serves the paths the api client calls so the console can run without a
// real platform.
package devapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/eventadmin/pkg/api"
	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/schedule"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// Config configures the backend.
type Config struct {
	Addr string

	// Username and Password enable basic auth when Username is set.
	Username string
	Password string

	// MaxUploadSize bounds /staticfiles bodies.
	MaxUploadSize int64

	// Seed loads the sample agents, roles, workflows and events.
	Seed bool

	Logger logging.Logger
}

// DefaultConfig returns the configuration used by the devapi command.
func DefaultConfig() *Config {
	return &Config{
		Addr:          ":8081",
		MaxUploadSize: 512 << 20,
		Seed:          true,
	}
}

// taggedWorkflow is a workflow with the tags it is listed under.
type taggedWorkflow struct {
	api.Workflow
	Tags []string
}

// Server holds the backend state. It is safe for concurrent use.
type Server struct {
	cfg    Config
	logger logging.Logger
	index  *schedule.Index

	mu        sync.RWMutex
	events    []api.Event
	workflows []taggedWorkflow
	agents    []api.Agent
	roles     []api.Role
	themes    []api.Theme
	series    []api.NewSeries
	users     []api.NewUser
	groups    []api.NewGroup
	acls      []api.NewACL
	tasks     []api.NewTask
	files     map[string]int64
}

// New creates a backend. A nil config uses DefaultConfig.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:    *cfg,
		logger: cfg.Logger,
		index:  schedule.NewIndex(),
		files:  make(map[string]int64),
	}
	if s.logger == nil {
		s.logger = logging.DefaultLogger
	}
	if s.cfg.MaxUploadSize <= 0 {
		s.cfg.MaxUploadSize = DefaultConfig().MaxUploadSize
	}
	if cfg.Seed {
		s.seed(time.Now())
	}
	return s
}

// Handler returns the HTTP handler serving every backend path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+api.PathEvents, s.handleEvents)
	mux.HandleFunc("POST "+api.PathNewEvent, s.handleNewEvent)
	mux.HandleFunc("POST "+api.PathEventConflicts, s.handleConflicts)
	mux.HandleFunc("POST "+api.PathBulkConflicts, s.handleBulkConflicts)
	mux.HandleFunc("PUT "+api.PathBulkUpdate, s.handleBulkUpdate)
	mux.HandleFunc("GET "+api.PathWorkflows, s.handleWorkflows)
	mux.HandleFunc("GET "+api.PathAgents, s.handleList(func() any { return s.agents }))
	mux.HandleFunc("GET "+api.PathRoles, s.handleList(func() any { return s.roles }))
	mux.HandleFunc("GET "+api.PathThemes, s.handleList(func() any { return s.themes }))
	mux.HandleFunc("POST "+api.PathNewSeries, s.handleNewSeries)
	mux.HandleFunc("POST "+api.PathNewTheme, s.handleNewTheme)
	mux.HandleFunc("POST "+api.PathNewUser, s.handleNewUser)
	mux.HandleFunc("POST "+api.PathNewGroup, s.handleNewGroup)
	mux.HandleFunc("POST "+api.PathNewACL, s.handleNewACL)
	mux.HandleFunc("POST "+api.PathNewTask, s.handleNewTask)
	mux.HandleFunc("POST "+api.PathStaticFiles, s.handleUpload)
	mux.HandleFunc("GET "+api.PathHealth, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return logging.RequestLogger(s.logger)(s.auth(mux))
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dev backend listening", logging.String("addr", s.cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) auth(next http.Handler) http.Handler {
	if s.cfg.Username == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="devapi"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Events returns a copy of the stored events.
func (s *Server) Events() []api.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// AddEvent stores e and books its device when it is scheduled.
func (s *Server) AddEvent(e api.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addEventLocked(e)
}

func (s *Server) addEventLocked(e api.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Scheduled() {
		err := s.index.Add(schedule.Booking{
			EventID:  e.ID,
			Title:    e.Title,
			Device:   e.Device,
			Interval: schedule.Interval{Start: e.Start, End: e.End},
		})
		if err != nil {
			return err
		}
	}
	s.events = append(s.events, e)
	return nil
}

func (s *Server) eventIndex(id string) int {
	return slices.IndexFunc(s.events, func(e api.Event) bool { return e.ID == id })
}

// handleEvents lists events. A filter of the form "status:NAME" keeps
// events with that status.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	status, hasStatus := strings.CutPrefix(r.URL.Query().Get("filter"), "status:")

	s.mu.RLock()
	out := make([]api.Event, 0, len(s.events))
	for _, e := range s.events {
		if hasStatus && !strings.EqualFold(e.Status, status) {
			continue
		}
		out = append(out, e)
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNewEvent(w http.ResponseWriter, r *http.Request) {
	var e api.NewEvent
	if !readJSON(w, r, &e) {
		return
	}
	if strings.TrimSpace(e.Metadata.Title) == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if e.Source.Type == api.SourceUpload {
		if len(e.Assets) == 0 || !s.hasFile(e.Assets[0].FileID) {
			http.Error(w, "unknown asset", http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Source.Type == api.SourceUpload {
		id := uuid.NewString()
		s.events = append(s.events, api.Event{ID: id, Title: e.Metadata.Title, Status: "PROCESSING"})
		writeJSON(w, http.StatusCreated, api.Created{ID: id})
		return
	}

	p := schedule.Proposal{
		Device:   e.Source.Device,
		Interval: schedule.Interval{Start: e.Source.Start, End: e.Source.End},
		Repeat:   e.Source.Repeat,
	}
	if err := p.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conflicts, _ := s.index.Conflicts(r.Context(), p)
	if len(conflicts) > 0 {
		writeJSON(w, http.StatusConflict, conflicts)
		return
	}

	var first string
	for i, occ := range p.Expand() {
		title := e.Metadata.Title
		if p.Repeat != nil {
			title = fmt.Sprintf("%s %d", title, i+1)
		}
		ev := api.Event{
			ID:     uuid.NewString(),
			Title:  title,
			Device: p.Device,
			Start:  occ.Start,
			End:    occ.End,
			Status: "SCHEDULED",
		}
		if err := s.addEventLocked(ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if first == "" {
			first = ev.ID
		}
	}
	writeJSON(w, http.StatusCreated, api.Created{ID: first})
}

func proposalOf(req api.ConflictRequest) schedule.Proposal {
	return schedule.Proposal{
		Device:         req.Device,
		Interval:       schedule.Interval{Start: req.Start, End: req.End},
		ExcludeEventID: req.EventID,
		Repeat:         req.Repeat,
	}
}

// handleConflicts answers 204 for a free schedule and 409 with the
// overlapping events otherwise.
func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	var req api.ConflictRequest
	if !readJSON(w, r, &req) {
		return
	}
	conflicts, err := s.index.Conflicts(r.Context(), proposalOf(req))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(conflicts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusConflict, conflicts)
}

func (s *Server) handleBulkConflicts(w http.ResponseWriter, r *http.Request) {
	var reqs []api.ConflictRequest
	if !readJSON(w, r, &reqs) {
		return
	}
	var out []api.BulkConflict
	for _, req := range reqs {
		conflicts, err := s.index.Conflicts(r.Context(), proposalOf(req))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(conflicts) > 0 {
			out = append(out, api.BulkConflict{EventID: req.EventID, Conflicts: conflicts})
		}
	}
	if len(out) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusConflict, out)
}

// handleBulkUpdate reschedules events. The whole batch is rejected when one
// change is invalid or conflicts.
func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var changes []api.SchedulingChange
	if !readJSON(w, r, &changes) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range changes {
		i := s.eventIndex(ch.EventID)
		if i < 0 || !s.events[i].Scheduled() {
			http.Error(w, fmt.Sprintf("event %q cannot be rescheduled", ch.EventID), http.StatusBadRequest)
			return
		}
		p := schedule.Proposal{
			Device:         ch.Device,
			Interval:       schedule.Interval{Start: ch.Start, End: ch.End},
			ExcludeEventID: ch.EventID,
		}
		conflicts, err := s.index.Conflicts(r.Context(), p)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(conflicts) > 0 {
			writeJSON(w, http.StatusConflict, []api.BulkConflict{{EventID: ch.EventID, Conflicts: conflicts}})
			return
		}
	}

	for _, ch := range changes {
		i := s.eventIndex(ch.EventID)
		e := &s.events[i]
		e.Device, e.Start, e.End = ch.Device, ch.Start, ch.End
		s.index.Add(schedule.Booking{
			EventID:  e.ID,
			Title:    e.Title,
			Device:   e.Device,
			Interval: schedule.Interval{Start: e.Start, End: e.End},
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tags")

	s.mu.RLock()
	out := make([]api.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		if tag == "" || slices.Contains(wf.Tags, tag) {
			out = append(out, wf.Workflow)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleList(list func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		body, err := json.Marshal(list())
		s.mu.RUnlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}

func (s *Server) handleNewSeries(w http.ResponseWriter, r *http.Request) {
	var in api.NewSeries
	if !readJSON(w, r, &in) {
		return
	}
	if in.Metadata.Title == "" || len(in.Access) == 0 {
		http.Error(w, "title and access are required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.series = append(s.series, in)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, api.Created{ID: uuid.NewString()})
}

func (s *Server) handleNewTheme(w http.ResponseWriter, r *http.Request) {
	var in api.NewTheme
	if !readJSON(w, r, &in) {
		return
	}
	if in.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	for _, id := range []string{in.BumperFile, in.TrailerFile, in.TitleSlideBackground, in.WatermarkFile} {
		if id != "" && !s.hasFile(id) {
			http.Error(w, fmt.Sprintf("unknown file %q", id), http.StatusBadRequest)
			return
		}
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.themes = append(s.themes, api.Theme{ID: id, Name: in.Name})
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, api.Created{ID: id})
}

func (s *Server) handleNewUser(w http.ResponseWriter, r *http.Request) {
	var in api.NewUser
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.users, func(u api.NewUser) bool { return u.Username == in.Username }) {
		http.Error(w, "user exists", http.StatusConflict)
		return
	}
	in.Password = ""
	s.users = append(s.users, in)
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleNewGroup(w http.ResponseWriter, r *http.Request) {
	var in api.NewGroup
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	s.groups = append(s.groups, in)
	s.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleNewACL(w http.ResponseWriter, r *http.Request) {
	var in api.NewACL
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	s.acls = append(s.acls, in)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, api.Created{ID: uuid.NewString()})
}

func (s *Server) handleNewTask(w http.ResponseWriter, r *http.Request) {
	var in api.NewTask
	if !readJSON(w, r, &in) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range in.EventIDs {
		if s.eventIndex(id) < 0 {
			http.Error(w, fmt.Sprintf("unknown event %q", id), http.StatusBadRequest)
			return
		}
	}
	s.tasks = append(s.tasks, in)
	w.WriteHeader(http.StatusCreated)
}

// handleUpload stores a multipart "BODY" part and answers 201 with the new
// file id as plain text.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if part.FormName() != "BODY" {
			part.Close()
			continue
		}
		n, err := io.Copy(io.Discard, part)
		part.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}

		id := uuid.NewString()
		s.mu.Lock()
		s.files[id] = n
		s.mu.Unlock()

		s.logger.Debug("file stored", logging.String("id", id), logging.String("filename", part.FileName()))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, id)
		return
	}
	http.Error(w, "missing BODY part", http.StatusBadRequest)
}

func (s *Server) hasFile(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[id]
	return ok
}

func readJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(out); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
