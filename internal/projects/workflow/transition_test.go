package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

func TestTransition_ExhaustiveTable(t *testing.T) {
	allowed := map[string]bool{
		"editor:draft->in_review":               true,
		"editor:changes_requested->in_review":   true,
		"youtuber:in_review->approved":          true,
		"youtuber:in_review->changes_requested": true,
	}

	var ok, rejected int
	for _, role := range []domain.Role{domain.RoleEditor, domain.RoleYoutuber} {
		for _, from := range domain.AllStatuses {
			for _, to := range domain.AllStatuses {
				key := fmt.Sprintf("%s:%s->%s", role, from, to)
				t.Run(key, func(t *testing.T) {
					got, err := Transition(role, from, to)
					if allowed[key] {
						require.NoError(t, err)
						assert.Equal(t, to, got)
						return
					}
					require.Error(t, err)
					assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
					assert.Empty(t, got)
				})
				if allowed[key] {
					ok++
				} else {
					rejected++
				}
			}
		}
	}

	assert.Equal(t, 4, ok)
	assert.Equal(t, 28, rejected)
}

func TestTransition_ErrorCarriesContext(t *testing.T) {
	_, err := Transition(domain.RoleYoutuber, domain.StatusInReview, domain.StatusDraft)

	var derr *domain.Error
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, "in_review", derr.Fields["from"])
	assert.Equal(t, "draft", derr.Fields["to"])
	assert.Equal(t, "youtuber", derr.Fields["role"])
}

func TestTransition_UnknownInputsRejected(t *testing.T) {
	_, err := Transition(domain.Role("admin"), domain.StatusInReview, domain.StatusApproved)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	_, err = Transition(domain.RoleEditor, domain.StatusDraft, domain.Status("published"))
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestAllowedTargets(t *testing.T) {
	assert.ElementsMatch(t,
		[]domain.Status{domain.StatusApproved, domain.StatusChangesRequested},
		AllowedTargets(domain.RoleYoutuber, domain.StatusInReview))
	assert.Empty(t, AllowedTargets(domain.RoleYoutuber, domain.StatusApproved))

	got := AllowedTargets(domain.RoleEditor, domain.StatusDraft)
	got[0] = domain.StatusApproved
	assert.Equal(t, []domain.Status{domain.StatusInReview}, AllowedTargets(domain.RoleEditor, domain.StatusDraft))
}
