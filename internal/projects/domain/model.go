package domain

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Status is the review lifecycle state of a project.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusInReview         Status = "in_review"
	StatusChangesRequested Status = "changes_requested"
	StatusApproved         Status = "approved"
)

// AllStatuses lists every lifecycle state in table order.
var AllStatuses = []Status{
	StatusDraft,
	StatusInReview,
	StatusChangesRequested,
	StatusApproved,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return lo.Contains(AllStatuses, s)
}

// Role is the part a participant plays on a project.
type Role string

const (
	RoleYoutuber Role = "youtuber"
	RoleEditor   Role = "editor"
)

func (r Role) Valid() bool {
	return r == RoleYoutuber || r == RoleEditor
}

// Feedback is one immutable entry in a project's review history.
type Feedback struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MediaMetadata describes the uploaded cut.
type MediaMetadata struct {
	DurationSeconds float64 `json:"duration_seconds,omitempty" validate:"gte=0"`
	Resolution      string  `json:"resolution,omitempty" validate:"max=32"`
	Format          string  `json:"format,omitempty" validate:"max=32"`
	SizeBytes       int64   `json:"size_bytes,omitempty" validate:"gte=0"`
}

// Project is the unit of collaboration between a youtuber (owner) and an
// editor (assignee). It is storage-agnostic and shared by the repository,
// service and HTTP layers.
type Project struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	OwnerID      string         `json:"owner_id"`
	AssigneeID   string         `json:"assignee_id,omitempty"`
	MediaURL     string         `json:"media_url"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty"`
	Tags         []string       `json:"tags"`
	Status       Status         `json:"status"`
	Metadata     *MediaMetadata `json:"metadata,omitempty"`
	Feedback     []Feedback     `json:"feedback"`
	Version      int64          `json:"version"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored record.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Feedback = append([]Feedback(nil), p.Feedback...)
	if p.Metadata != nil {
		md := *p.Metadata
		cp.Metadata = &md
	}
	return &cp
}

// RoleOf returns the role actorID plays on the project. An empty actor
// never matches, so an unassigned project has no editor.
func (p *Project) RoleOf(actorID string) (Role, bool) {
	switch {
	case actorID == "":
		return "", false
	case actorID == p.OwnerID:
		return RoleYoutuber, true
	case actorID == p.AssigneeID:
		return RoleEditor, true
	}
	return "", false
}

// IsParticipant reports whether actorID is the owner or the assignee.
func (p *Project) IsParticipant(actorID string) bool {
	_, ok := p.RoleOf(actorID)
	return ok
}

// Participants returns the non-empty participant IDs.
func (p *Project) Participants() []string {
	return lo.Compact([]string{p.OwnerID, p.AssigneeID})
}

// MediaReady reports whether both blob locators are present, which is
// required before a project may leave draft.
func (p *Project) MediaReady() bool {
	return strings.TrimSpace(p.MediaURL) != "" && strings.TrimSpace(p.ThumbnailURL) != ""
}

// Touch advances UpdatedAt to now, never moving it backwards.
func (p *Project) Touch(now time.Time) {
	now = now.UTC()
	if now.Before(p.UpdatedAt) {
		return
	}
	p.UpdatedAt = now
}

// NormalizeTags trims labels, drops empties and duplicates, and keeps the
// first-seen order.
func NormalizeTags(tags []string) []string {
	trimmed := lo.Map(tags, func(t string, _ int) string { return strings.TrimSpace(t) })
	return lo.Uniq(lo.Compact(trimmed))
}

// ListQuery narrows a participant's project listing.
type ListQuery struct {
	Status Status
	Limit  int
}
