package export

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"mediavault/pkg/models"
)

// ErrExportInFlight mirrors the catalog's single-flight guard: one
// export job per process at a time.
var ErrExportInFlight = errors.New("export: job already running")

// Job tracks one pipeline invocation from start to terminal state.
type Job struct {
	ID       string
	Category string
	Token    *CancelToken

	mu      sync.Mutex
	running bool
	report  *models.ExportReport
	err     error
}

// JobStatus is the JSON snapshot served to API clients.
type JobStatus struct {
	ID       string               `json:"id"`
	Category string               `json:"category"`
	Running  bool                 `json:"running"`
	Report   *models.ExportReport `json:"report,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := JobStatus{
		ID:       j.ID,
		Category: j.Category,
		Running:  j.running,
		Report:   j.report,
	}
	if j.err != nil {
		st.Error = j.err.Error()
	}
	return st
}

// Manager owns job lifecycles and enforces the single-flight rule.
type Manager struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	active *Job
}

func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*Job)}
}

// Start launches a pipeline in the background. It fails fast with
// ErrExportInFlight while another job is still running.
func (m *Manager) Start(ctx context.Context, p *Pipeline) (*Job, error) {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return nil, ErrExportInFlight
	}

	job := &Job{
		ID:       uuid.NewString(),
		Category: p.opts.Category,
		Token:    NewCancelToken(),
		running:  true,
	}
	p.opts.JobID = job.ID
	m.jobs[job.ID] = job
	m.active = job
	m.mu.Unlock()

	go func() {
		report, err := p.Run(ctx, job.Token)
		if err != nil {
			log.Printf("[export] job %s failed: %v", job.ID, err)
		}

		job.mu.Lock()
		job.running = false
		job.report = report
		job.err = err
		job.mu.Unlock()

		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
	}()

	return job, nil
}

func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return job, ok
}

// Cancel flips the job's token. The pipeline notices at its next poll
// point; in-flight fetches are allowed to finish.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	job, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	job.Token.Cancel()
	return true
}
