package api

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ankigen/internal/models"
	"ankigen/internal/notify"
)

// DefaultJobTTL is how long a finished job stays available for polling.
const DefaultJobTTL = time.Hour

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"
)

// GenerationJob tracks one deck generation run that the frontend polls.
type GenerationJob struct {
	ID        string          `json:"jobId"`
	Status    string          `json:"status"`
	Subject   string          `json:"subject"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Step      string          `json:"step,omitempty"`
	Message   string          `json:"message,omitempty"`
	Current   int             `json:"current"`
	Total     int             `json:"total"`
	Percent   int             `json:"percent"`
	Notices   []notify.Notice `json:"notices,omitempty"`
	Rows      []models.Row    `json:"rows,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// JobManager keeps generation jobs in memory. Finished jobs are dropped
// once they have been idle for longer than the TTL.
type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*GenerationJob
	ttl  time.Duration
	now  func() time.Time
}

func NewJobManager() *JobManager {
	return NewJobManagerWithTTL(DefaultJobTTL)
}

func NewJobManagerWithTTL(ttl time.Duration) *JobManager {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &JobManager{
		jobs: make(map[string]*GenerationJob),
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *JobManager) CreateJob(subject string) (string, *GenerationJob) {
	now := m.now()
	job := &GenerationJob{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
		Total:     100,
	}

	m.mu.Lock()
	m.sweepLocked(now)
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job.ID, job.clone()
}

func (m *JobManager) GetJob(id string) (*GenerationJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok || m.expired(job, m.now()) {
		return nil, false
	}
	return job.clone(), true
}

// Sweep removes finished jobs that have outlived the TTL.
func (m *JobManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

func (m *JobManager) sweepLocked(now time.Time) int {
	removed := 0
	for id, job := range m.jobs {
		if m.expired(job, now) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

func (m *JobManager) expired(job *GenerationJob, now time.Time) bool {
	if job.Status != JobStatusComplete && job.Status != JobStatusFailed {
		return false
	}
	return now.Sub(job.UpdatedAt) > m.ttl
}

func (m *JobManager) MarkProcessing(id string) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusProcessing
		job.Message = "Starting"
	})
}

func (m *JobManager) UpdateProgress(id string, step, message string, current, total int) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusProcessing
		job.Step = step
		job.Message = message
		job.Current = current
		job.Total = total
		job.Percent = percent(current, total)
	})
}

func (m *JobManager) MarkCompleted(id string, rows []models.Row) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusComplete
		job.Step = "complete"
		job.Current = 100
		job.Total = 100
		job.Percent = 100
		job.Rows = append([]models.Row(nil), rows...)
		if len(rows) == 0 {
			job.Message = "No cards were generated"
		} else {
			job.Message = "Generation complete"
		}
	})
}

func (m *JobManager) MarkFailed(id string, msg string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "generation failed"
	}
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusFailed
		job.Step = "error"
		job.Message = msg
		job.Error = msg
	})
}

// Notifier returns a notifier that records notices on the job.
func (m *JobManager) Notifier(id string) notify.Notifier {
	return jobNotifier{manager: m, id: id}
}

func (m *JobManager) addNotice(id string, level notify.Level, message string) {
	m.withJob(id, func(job *GenerationJob) {
		job.Notices = append(job.Notices, notify.Notice{Level: level, Message: message})
	})
}

func (m *JobManager) withJob(id string, fn func(job *GenerationJob)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = m.now()
}

type jobNotifier struct {
	manager *JobManager
	id      string
}

func (n jobNotifier) Info(message string) {
	n.manager.addNotice(n.id, notify.LevelInfo, message)
}

func (n jobNotifier) Warning(message string) {
	n.manager.addNotice(n.id, notify.LevelWarning, message)
}

func (job *GenerationJob) clone() *GenerationJob {
	if job == nil {
		return nil
	}
	copyJob := *job
	if len(job.Notices) > 0 {
		copyJob.Notices = append([]notify.Notice(nil), job.Notices...)
	}
	if len(job.Rows) > 0 {
		copyJob.Rows = append([]models.Row(nil), job.Rows...)
	}
	return &copyJob
}

func percent(current, total int) int {
	if total <= 0 {
		if current <= 0 {
			return 0
		}
		if current > 100 {
			return 100
		}
		return current
	}
	if current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	return int((float64(current) / float64(total)) * 100)
}
