package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

type countingCounter struct {
	calls  atomic.Int32
	counts map[domain.Status]int
	err    error
}

func (c *countingCounter) StatusCounts(context.Context) (map[domain.Status]int, error) {
	c.calls.Add(1)
	return c.counts, c.err
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(&countingCounter{}, "every now and then")
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestReportStatus(t *testing.T) {
	c := &countingCounter{counts: map[domain.Status]int{domain.StatusDraft: 2, domain.StatusApproved: 1}}
	s, err := NewScheduler(c, "@every 1h")
	require.NoError(t, err)

	counts, err := s.ReportStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.StatusDraft])

	c.err = errors.New("redis down")
	_, err = s.ReportStatus(context.Background())
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	got := Summary(map[domain.Status]int{
		domain.StatusInReview: 4,
		domain.StatusApproved: 1,
		domain.StatusDraft:    0,
	})
	assert.Equal(t, "approved=1 draft=0 in_review=4", got)
}

func TestScheduler_RunsJobs(t *testing.T) {
	c := &countingCounter{counts: map[domain.Status]int{}}
	s, err := NewScheduler(c, "@every 1s")
	require.NoError(t, err)

	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	}()

	assert.Eventually(t, func() bool { return c.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
