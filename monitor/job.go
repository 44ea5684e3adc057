package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/omni/tokenbridge-antelope/bridge"
	"github.com/omni/tokenbridge-antelope/logging"
)

type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Func     func(ctx context.Context) (*bridge.ReconcileResult, error)

	logger logging.Logger

	mu          sync.Mutex
	lastResult  *bridge.ReconcileResult
	lastError   error
	lastSuccess time.Time
}

// Run executes one iteration of the job.
func (j *Job) Run(ctx context.Context) (*bridge.ReconcileResult, error) {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	start := time.Now()
	res, err := j.Func(ctx)
	JobDuration.WithLabelValues(j.Name).Observe(time.Since(start).Seconds())

	j.mu.Lock()
	j.lastResult, j.lastError = res, err
	if err == nil {
		j.lastSuccess = time.Now()
	}
	j.mu.Unlock()

	if err != nil {
		JobRuns.WithLabelValues(j.Name, "error").Inc()
		return nil, err
	}
	JobRuns.WithLabelValues(j.Name, "ok").Inc()
	LastSuccess.WithLabelValues(j.Name).SetToCurrentTime()
	return res, nil
}

// Start runs the job every Interval until ctx is done. Failed iterations are
// logged and retried on the next tick.
func (j *Job) Start(ctx context.Context) {
	for {
		start := time.Now()
		res, err := j.Run(ctx)
		switch {
		case err != nil:
			j.logger.WithError(err).Error("failed to reconcile")
		case res.Processed > 0:
			j.logger.WithFields(logrus.Fields{
				"processed": res.Processed,
				"pending":   res.Pending,
				"duration":  time.Since(start),
			}).Info("settled pending entries")
		default:
			j.logger.WithField("duration", time.Since(start)).Debug("nothing to settle")
		}

		if !sleep(ctx, j.Interval) {
			return
		}
	}
}

// Status is a snapshot of the last iteration.
type Status struct {
	LastResult  *bridge.ReconcileResult `json:"last_result,omitempty"`
	LastError   string                  `json:"last_error,omitempty"`
	LastSuccess *time.Time              `json:"last_success,omitempty"`
}

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Status{LastResult: j.lastResult}
	if j.lastError != nil {
		s.LastError = j.lastError.Error()
	}
	if !j.lastSuccess.IsZero() {
		t := j.lastSuccess
		s.LastSuccess = &t
	}
	return s
}

// sleep waits for d and reports false when ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
