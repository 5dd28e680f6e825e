package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"savings-circle/rosca/internal/apperrors"
	"savings-circle/rosca/internal/constants"
	"savings-circle/rosca/internal/logging"
	"savings-circle/rosca/internal/models/dtos"
)

// CandidateLister lists associations that still have turns to pay.
type CandidateLister interface {
	CycleCandidates(ctx context.Context) ([]string, error)
}

// CycleRunner settles the next turn of one association.
type CycleRunner interface {
	TriggerCycle(ctx context.Context, associationID string) (*dtos.CycleResult, error)
}

// RunSummary counts the outcomes of one scheduled pass.
type RunSummary struct {
	Candidates int
	Settled    int64
	Completed  int64
	Failed     int64
}

// CycleJob triggers a cycle for every open association on a schedule.
// Failures are logged and retried on the next tick.
type CycleJob struct {
	candidates  CandidateLister
	cycles      CycleRunner
	concurrency int
}

func NewCycleJob(candidates CandidateLister, cycles CycleRunner, concurrency int) *CycleJob {
	if concurrency < 1 {
		concurrency = 1
	}
	return &CycleJob{
		candidates:  candidates,
		cycles:      cycles,
		concurrency: concurrency,
	}
}

// Run executes one pass over all candidates.
func (j *CycleJob) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()

	ids, err := j.candidates.CycleCandidates(ctx)
	if err != nil {
		logging.Error("[CycleJob] Failed to list candidates", "error", err.Error())
		return nil, err
	}

	summary := &RunSummary{Candidates: len(ids)}
	if len(ids) == 0 {
		logging.Debug("[CycleJob] No open associations")
		return summary, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			result, err := j.cycles.TriggerCycle(gctx, id)
			if err != nil {
				atomic.AddInt64(&summary.Failed, 1)
				logging.WithAssociation(id).Warnw("[CycleJob] Cycle failed",
					"code", apperrors.Code(err),
					"error", err.Error(),
				)
				return nil
			}
			if result.TurnNumber == 0 {
				// Nothing paid: the association was already done.
				return nil
			}
			atomic.AddInt64(&summary.Settled, 1)
			if result.Status == string(constants.AssociationCompleted) {
				atomic.AddInt64(&summary.Completed, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	logging.Info("[CycleJob] Pass finished",
		"source", string(constants.RequestSourceScheduler),
		"candidates", summary.Candidates,
		"settled", summary.Settled,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"duration", time.Since(start).Truncate(time.Millisecond).String(),
	)
	return summary, nil
}

// RunScheduled runs the job every interval until ctx is cancelled.
func (j *CycleJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				logging.Error("[CycleJob] Error in scheduled run", "error", err.Error())
			}
		case <-ctx.Done():
			logging.Info("[CycleJob] Shutting down scheduled cycles")
			return
		}
	}
}
