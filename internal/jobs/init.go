package jobs

import (
	"context"

	"savings-circle/rosca/internal/config"
	"savings-circle/rosca/internal/logging"
)

// InitializeJobs starts background jobs enabled in cfg. It returns nil when
// the cycle job is disabled.
func InitializeJobs(
	ctx context.Context,
	cfg *config.Config,
	candidates CandidateLister,
	cycles CycleRunner,
) *CycleJob {
	if !cfg.CycleJobEnabled {
		logging.Info("Scheduled cycle job disabled")
		return nil
	}

	cycleJob := NewCycleJob(candidates, cycles, cfg.CycleJobConcurrency)

	// Start scheduled cycles in background
	go cycleJob.RunScheduled(ctx, cfg.CycleJobInterval)

	logging.Info("Scheduled cycle job started",
		"interval", cfg.CycleJobInterval.String(),
		"concurrency", cfg.CycleJobConcurrency,
	)
	return cycleJob
}
