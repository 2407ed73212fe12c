package schedule

import (
	"context"
	"time"

	"github.com/daypick/daypick/internal/utils"
	log "github.com/sirupsen/logrus"
)

// SweepResult lists the events a sweep transitioned out of the vote phase.
// Advanced events reached quorum before anything noticed; they still succeed.
type SweepResult struct {
	Failed   []string
	Advanced []string
}

// Sweeper walks events whose vote deadline passed and applies the automatic
// transition rule to each one independently. Safe to run concurrently with
// live votes: every write is conditional on the event still being in the
// vote phase, so a vote that advanced the event a moment earlier wins.
type Sweeper struct {
	service EventService
	repo    EventRepository
	clock   utils.Clock
}

func NewSweeper(service EventService, repo EventRepository, clock utils.Clock) *Sweeper {
	return &Sweeper{service: service, repo: repo, clock: clock}
}

// Sweep evaluates every event past its vote deadline as of now. Each event is
// handled independently, so an interrupted sweep can simply be re-run.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	ids, err := s.repo.FindExpiredVoting(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for _, id := range ids {
		change, err := s.service.Evaluate(ctx, id)
		if err != nil {
			log.Errorf("sweep: failed to evaluate event %s: %v", id, err)
			continue
		}
		if change == nil {
			continue
		}
		switch change.To {
		case PhaseFailed:
			result.Failed = append(result.Failed, id)
		case PhasePickDays:
			result.Advanced = append(result.Advanced, id)
		}
	}

	if len(result.Failed) > 0 || len(result.Advanced) > 0 {
		log.Infof("sweep: %d event(s) failed, %d advanced", len(result.Failed), len(result.Advanced))
	}
	return result, nil
}

// Run triggers a sweep on every tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("deadline sweeper running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, s.clock.Now()); err != nil {
				log.Errorf("sweep failed: %v", err)
			}
		}
	}
}
