package sweeper

import (
	"context"
	"fmt"

	"github.com/rcastillo-dev/terralote-backend/pkg/metrics"
)

const jobName = "reservation_expiry"

// Job adapts the sweep service to the cron runner.
type Job struct {
	svc     *Service
	metrics *metrics.CronJobMetrics
}

// NewJob wraps the sweep service as a scheduled job.
func NewJob(svc *Service, m *metrics.CronJobMetrics) (*Job, error) {
	if svc == nil {
		return nil, fmt.Errorf("sweep service required")
	}
	return &Job{svc: svc, metrics: m}, nil
}

func (j *Job) Name() string {
	return jobName
}

func (j *Job) Run(ctx context.Context) error {
	expired, err := j.svc.Sweep(ctx)
	if j.metrics != nil {
		j.metrics.AddItemsProcessed(jobName, expired)
	}
	return err
}
