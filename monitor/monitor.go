package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/omni/tokenbridge-antelope/bridge"
	"github.com/omni/tokenbridge-antelope/config"
	"github.com/omni/tokenbridge-antelope/entity"
	"github.com/omni/tokenbridge-antelope/logging"
)

const defaultJobTimeout = 20 * time.Second

type Reconciler interface {
	ReconcileRequests(ctx context.Context) (*bridge.ReconcileResult, error)
	ReconcileRefunds(ctx context.Context) (*bridge.ReconcileResult, error)
}

// Monitor periodically drains the pending requests and refunds of the EVM
// bridge contract.
type Monitor struct {
	logger logging.Logger
	jobs   map[entity.LedgerKind]*Job
}

func NewMonitor(logger logging.Logger, r Reconciler, cfg *config.BridgeConfig) *Monitor {
	newJob := func(kind entity.LedgerKind, fn func(ctx context.Context) (*bridge.ReconcileResult, error)) *Job {
		return &Job{
			Name:     string(kind),
			Interval: cfg.ReconcileInterval,
			Timeout:  defaultJobTimeout,
			Func:     fn,
			logger:   logger.WithField("job", kind),
		}
	}
	return &Monitor{
		logger: logger,
		jobs: map[entity.LedgerKind]*Job{
			entity.LedgerRequests: newJob(entity.LedgerRequests, r.ReconcileRequests),
			entity.LedgerRefunds:  newJob(entity.LedgerRefunds, r.ReconcileRefunds),
		},
	}
}

func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info("starting reconciliation jobs")
	for _, job := range m.jobs {
		go job.Start(ctx)
	}
}

// Reconcile runs a single iteration of the job of kind.
func (m *Monitor) Reconcile(ctx context.Context, kind entity.LedgerKind) (*bridge.ReconcileResult, error) {
	job, ok := m.jobs[kind]
	if !ok {
		return nil, fmt.Errorf("no reconciliation job for %q", kind)
	}
	return job.Run(ctx)
}

// RunOnce reconciles requests, then refunds.
func (m *Monitor) RunOnce(ctx context.Context) ([]*bridge.ReconcileResult, error) {
	res := make([]*bridge.ReconcileResult, 0, len(m.jobs))
	for _, kind := range []entity.LedgerKind{entity.LedgerRequests, entity.LedgerRefunds} {
		r, err := m.Reconcile(ctx, kind)
		if err != nil {
			return res, fmt.Errorf("failed to reconcile %s: %w", kind, err)
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *Monitor) Status() map[entity.LedgerKind]Status {
	res := make(map[entity.LedgerKind]Status, len(m.jobs))
	for kind, job := range m.jobs {
		res[kind] = job.Status()
	}
	return res
}
