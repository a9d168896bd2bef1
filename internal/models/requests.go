package models

import (
	"strings"

	"notebook/internal/errs"
)

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#3b82f6"

type CreateNoteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// Validate checks tag ids and collapses duplicates in place.
func (r *CreateNoteRequest) Validate() error {
	tags, err := normalizeTagIDs(r.Tags)
	if err != nil {
		return err
	}
	r.Tags = tags
	return nil
}

// UpdateNoteRequest replaces title, content and is_pinned unconditionally, so all three
// must be sent. Tags nil means "leave associations alone"; a non-nil empty slice clears them.
type UpdateNoteRequest struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	IsPinned *bool     `json:"is_pinned"`
	Tags     *[]string `json:"tags"`
}

func (r *UpdateNoteRequest) Validate() error {
	var missing []string
	if r.Title == nil {
		missing = append(missing, "title")
	}
	if r.Content == nil {
		missing = append(missing, "content")
	}
	if r.IsPinned == nil {
		missing = append(missing, "is_pinned")
	}
	if len(missing) > 0 {
		return errs.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	if r.Tags != nil {
		tags, err := normalizeTagIDs(*r.Tags)
		if err != nil {
			return err
		}
		if tags == nil {
			tags = []string{}
		}
		r.Tags = &tags
	}
	return nil
}

type CreateTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Validate trims the name and fills in the default color.
func (r *CreateTagRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errs.Validation("tag name is required")
	}
	r.Color = strings.TrimSpace(r.Color)
	if r.Color == "" {
		r.Color = DefaultTagColor
	}
	return nil
}

// ListNotesQuery filters the note listing. Empty fields do not filter.
type ListNotesQuery struct {
	Search string
	TagID  string
}

func normalizeTagIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, errs.Validation("tag ids must be non-empty strings")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}
