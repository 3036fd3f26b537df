package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/pkg/jobs"
)

// AuditDispatcher persists audit logs through a background worker queue so
// workflow transactions never wait on the audit table.
type AuditDispatcher struct {
	repo   auditLogger
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAuditDispatcher wires the queue and returns the dispatcher. Call
// Start before use and Stop on shutdown.
func NewAuditDispatcher(repo auditLogger, logger *zap.Logger) *AuditDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &AuditDispatcher{repo: repo, logger: logger}
	d.queue = jobs.NewQueue("audit", d.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 256,
		MaxRetries: 3,
		Logger:     logger,
	})
	return d
}

// Start launches the worker goroutines.
func (d *AuditDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *AuditDispatcher) Stop() {
	d.queue.Stop()
}

// CreateAuditLog enqueues the log entry. The auditLogger interface lets
// services swap the dispatcher for the repository directly in tests.
func (d *AuditDispatcher) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	if log == nil {
		return nil
	}
	return d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    log.Action,
		Payload: log,
	})
}

func (d *AuditDispatcher) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("audit job %s carries unexpected payload", job.ID)
	}
	return d.repo.CreateAuditLog(ctx, log)
}
