package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	sgerrors "github.com/wpconnect/syncgate/v1/errors"
	"github.com/wpconnect/syncgate/v1/metrics"
)

var tracer = otel.Tracer("github.com/wpconnect/syncgate/v1/queue")

const (
	defaultTableName = "syncgate_jobs"
	defaultOpTimeout = 5 * time.Second
)

// Manager owns the durable jobs table. All mutations are performed directly
// against the shared database so any number of processes observe the same
// queue.
type Manager struct {
	db           *gorm.DB
	tableName    string
	timeout      time.Duration
	traceEnabled bool
}

// Option configures a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	tableName    string
	timeout      time.Duration
	traceEnabled bool
}

// WithTableName sets the jobs table name.
func WithTableName(name string) Option {
	return func(o *managerOptions) { o.tableName = name }
}

// WithTimeout sets the operation timeout for database calls.
func WithTimeout(d time.Duration) Option {
	return func(o *managerOptions) { o.timeout = d }
}

// WithTracing enables otel spans around queue operations.
func WithTracing() Option {
	return func(o *managerOptions) { o.traceEnabled = true }
}

// NewManager returns a Manager using the provided GORM DB connection.
func NewManager(db *gorm.DB, opts ...Option) *Manager {
	o := managerOptions{
		tableName: defaultTableName,
		timeout:   defaultOpTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Ensure the table exists
	if !db.Migrator().HasTable(o.tableName) {
		_ = db.Table(o.tableName).AutoMigrate(&Job{})
	}

	return &Manager{
		db:           db,
		tableName:    o.tableName,
		timeout:      o.timeout,
		traceEnabled: o.traceEnabled,
	}
}

// JobOption customizes a job at enqueue time.
type JobOption func(*Job)

// WithWPID sets the WordPress-side id on a pulled job.
func WithWPID(id int64) JobOption {
	return func(j *Job) { j.WPID = id }
}

// WithOdooID sets the Odoo-side id on a pushed job.
func WithOdooID(id int64) JobOption {
	return func(j *Job) { j.OdooID = id }
}

// WithPriority sets the job priority; lower values drain first.
func WithPriority(p int) JobOption {
	return func(j *Job) { j.Priority = p }
}

// WithCorrelationID overrides the generated correlation id.
func WithCorrelationID(id string) JobOption {
	return func(j *Job) { j.CorrelationID = id }
}

// WithPayload attaches an opaque serialized payload to the job.
func WithPayload(p []byte) JobOption {
	return func(j *Job) { j.Payload = p }
}

// WithJSONPayload marshals v and attaches it as the job payload. A value
// that cannot be marshalled leaves the payload empty.
func WithJSONPayload(v any) JobOption {
	return func(j *Job) {
		if data, err := json.Marshal(v); err == nil {
			j.Payload = data
		}
	}
}

// WithScheduledAt delays the job until the given time.
func WithScheduledAt(t time.Time) JobOption {
	return func(j *Job) { j.ScheduledAt = &t }
}

// Push enqueues a pending job travelling from WordPress toward the remote.
// The WordPress id is the known key; the remote id can be attached with
// WithOdooID once known.
func (m *Manager) Push(ctx context.Context, module, entityType string, action Action, wpID int64, opts ...JobOption) (Job, error) {
	job := m.newJob(module, entityType, action, DirectionWPToOdoo)
	job.WPID = wpID
	for _, opt := range opts {
		opt(&job)
	}
	return m.insert(ctx, job)
}

// Pull enqueues a pending job travelling from the remote toward WordPress.
// Mirror of Push with the remote id as the known key.
func (m *Manager) Pull(ctx context.Context, module, entityType string, action Action, odooID int64, opts ...JobOption) (Job, error) {
	job := m.newJob(module, entityType, action, DirectionOdooToWP)
	job.OdooID = odooID
	for _, opt := range opts {
		opt(&job)
	}
	return m.insert(ctx, job)
}

func (m *Manager) newJob(module, entityType string, action Action, dir Direction) Job {
	return Job{
		CorrelationID: uuid.NewString(),
		Module:        module,
		Direction:     dir,
		EntityType:    entityType,
		Action:        action,
		Priority:      DefaultPriority,
		Status:        StatusPending,
		MaxAttempts:   DefaultMaxAttempts,
		CreatedAt:     time.Now(),
	}
}

func (m *Manager) insert(ctx context.Context, job Job) (Job, error) {
	var span trace.Span
	if m.traceEnabled {
		ctx, span = tracer.Start(ctx, "Queue.Enqueue")
		defer span.End()
		span.SetAttributes(
			attribute.String("syncgate.job.module", job.Module),
			attribute.String("syncgate.job.direction", string(job.Direction)),
		)
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.db.WithContext(cctx).Table(m.tableName).Create(&job).Error; err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Job{}, sgerrors.ErrTimeout
		}
		return Job{}, err
	}
	metrics.JobsEnqueuedTotal.WithLabelValues(string(job.Direction)).Inc()
	return job, nil
}

// Cancel deletes the job only while it is still pending. Jobs that a worker
// already picked up, finished or failed are left untouched and Cancel
// reports false.
func (m *Manager) Cancel(ctx context.Context, id uint64) bool {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	res := m.db.WithContext(cctx).Table(m.tableName).
		Where("id = ? AND status = ?", id, StatusPending).
		Delete(&Job{})
	if res.Error != nil || res.RowsAffected == 0 {
		return false
	}
	metrics.JobsCancelledTotal.Inc()
	return true
}

// GetPending returns pending jobs for the worker to drain, in priority then
// creation order. Empty module or entityType filters match everything.
func (m *Manager) GetPending(ctx context.Context, module, entityType string) ([]Job, error) {
	var span trace.Span
	if m.traceEnabled {
		ctx, span = tracer.Start(ctx, "Queue.GetPending")
		defer span.End()
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	q := m.db.WithContext(cctx).Table(m.tableName).Where("status = ?", StatusPending)
	if module != "" {
		q = q.Where("module = ?", module)
	}
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	var jobs []Job
	err := q.Order("priority asc, created_at asc, id asc").Find(&jobs).Error
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, sgerrors.ErrTimeout
		}
		return nil, err
	}
	if m.traceEnabled {
		span.SetAttributes(attribute.Int("syncgate.queue.pending", len(jobs)))
	}
	return jobs, nil
}

// PendingCount reports how many jobs are waiting, optionally per module.
func (m *Manager) PendingCount(ctx context.Context, module string) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	q := m.db.WithContext(cctx).Table(m.tableName).Where("status = ?", StatusPending)
	if module != "" {
		q = q.Where("module = ?", module)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, sgerrors.ErrTimeout
		}
		return 0, err
	}
	return n, nil
}

// MarkProcessing moves a pending job into the processing state. It reports
// false when the job is gone or a worker already claimed it.
func (m *Manager) MarkProcessing(ctx context.Context, id uint64) bool {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	res := m.db.WithContext(cctx).Table(m.tableName).
		Where("id = ? AND status = ?", id, StatusPending).
		Update("status", StatusProcessing)
	return res.Error == nil && res.RowsAffected > 0
}

// MarkDone finishes a job successfully and stamps processed_at.
func (m *Manager) MarkDone(ctx context.Context, id uint64) error {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	now := time.Now()
	err := m.db.WithContext(cctx).Table(m.tableName).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       StatusDone,
			"processed_at": now,
		}).Error
	if errors.Is(err, context.DeadlineExceeded) {
		return sgerrors.ErrTimeout
	}
	return err
}

// MarkFailed records one failed attempt. While attempts remain the job goes
// back to pending for another round; once MaxAttempts is consumed it lands
// in failed and stays there.
func (m *Manager) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	err := m.db.WithContext(cctx).Transaction(func(tx *gorm.DB) error {
		var job Job
		if err := tx.Table(m.tableName).First(&job, "id = ?", id).Error; err != nil {
			return err
		}
		job.Attempts++
		status := StatusPending
		if job.Attempts >= job.MaxAttempts {
			status = StatusFailed
		}
		return tx.Table(m.tableName).Where("id = ?", id).
			Updates(map[string]any{
				"status":        status,
				"attempts":      job.Attempts,
				"error_message": errMsg,
			}).Error
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return sgerrors.ErrTimeout
	}
	return err
}
