// Package feedback appends review notes to a project's history. Entries are
// never edited or removed once appended.
package feedback

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// MaxMessageLength bounds a single entry, counted in runes.
const MaxMessageLength = 2000

// NewEntry builds a feedback entry after trimming message. It does not
// check authorship; callers run the access check first.
func NewEntry(authorID, message string, now time.Time) (domain.Feedback, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return domain.Feedback{}, domain.E(domain.KindEmptyFeedback, "", "feedback message is empty")
	}
	if n := utf8.RuneCountInString(msg); n > MaxMessageLength {
		return domain.Feedback{}, domain.Validation("", "message",
			fmt.Sprintf("feedback is %d characters, limit is %d", n, MaxMessageLength))
	}
	return domain.Feedback{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Message:   msg,
		Timestamp: now.UTC(),
	}, nil
}

// Append returns a copy of p with a new entry at the end of its history.
// The input project is left untouched.
func Append(p *domain.Project, authorID, message string, now time.Time) (*domain.Project, domain.Feedback, error) {
	entry, err := NewEntry(authorID, message, now)
	if err != nil {
		return nil, domain.Feedback{}, err
	}
	next := p.Clone()
	next.Feedback = append(next.Feedback, entry)
	next.Touch(now)
	return next, entry, nil
}
