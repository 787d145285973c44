package service

import (
	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// CreateInput holds the fields a youtuber supplies for a new project.
type CreateInput struct {
	Title        string                `json:"title" validate:"required,max=200"`
	Description  string                `json:"description" validate:"required,max=5000"`
	MediaURL     string                `json:"media_url" validate:"required,url"`
	ThumbnailURL string                `json:"thumbnail_url" validate:"omitempty,url"`
	AssigneeID   string                `json:"assignee_id" validate:"max=128"`
	Tags         []string              `json:"tags" validate:"max=30,dive,max=50"`
	Metadata     *domain.MediaMetadata `json:"metadata"`
}

// MetadataPatch is a partial update. Only fields with Set == true are
// applied; an explicit null clears optional fields.
type MetadataPatch struct {
	Title        domain.Optional[string]                `json:"title"`
	Description  domain.Optional[string]                `json:"description"`
	MediaURL     domain.Optional[string]                `json:"media_url"`
	ThumbnailURL domain.Optional[string]                `json:"thumbnail_url"`
	Tags         domain.Optional[[]string]              `json:"tags"`
	Metadata     domain.Optional[*domain.MediaMetadata] `json:"metadata"`
	AssigneeID   domain.Optional[string]                `json:"assignee_id"`
	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// StatusChange requests a move to To, optionally attaching a feedback
// message in the same write.
type StatusChange struct {
	To              domain.Status `json:"to"`
	Message         string        `json:"message,omitempty"`
	ExpectedVersion *int64        `json:"expected_version,omitempty"`
}
