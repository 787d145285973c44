// Package maintenance runs periodic housekeeping for the review backend.
package maintenance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// StatusCounter reports per-status project totals. ProjectService.StatusCounts
// also refreshes the projects gauge.
type StatusCounter interface {
	StatusCounts(ctx context.Context) (map[domain.Status]int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	counter StatusCounter
	timeout time.Duration
}

// NewScheduler registers the status report on spec, a five-field cron
// expression or a descriptor such as "@every 5m".
func NewScheduler(counter StatusCounter, spec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		counter: counter,
		timeout: 30 * time.Second,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("maintenance scheduler started")
	s.cron.Start()
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.ReportStatus(ctx); err != nil {
		log.Error().Err(err).Msg("status report failed")
	}
}

// ReportStatus counts projects per status and logs the result.
func (s *Scheduler) ReportStatus(ctx context.Context) (map[domain.Status]int, error) {
	counts, err := s.counter.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Str("counts", Summary(counts)).Msg("project status report")
	return counts, nil
}

// Summary renders counts as "approved=1 draft=3 ..." in status order.
func Summary(counts map[domain.Status]int) string {
	keys := make([]string, 0, len(counts))
	for st := range counts {
		keys = append(keys, string(st))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[domain.Status(k)]))
	}
	return strings.Join(parts, " ")
}
