package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"notebook/internal/errs"
	"notebook/internal/models"
	"notebook/internal/render"
	"notebook/internal/store"
)

type QueryService struct {
	store store.Store
}

func NewQueryService(s store.Store) *QueryService {
	return &QueryService{store: s}
}

// List returns notes with their tags, pinned first then newest first. Search runs in the
// store; the tag filter runs on the composed result. Both filters must match.
func (s *QueryService) List(ctx context.Context, q models.ListNotesQuery) ([]models.NoteWithTags, error) {
	notes, err := s.store.ListNotes(ctx, q.Search)
	if err != nil {
		return nil, errs.Store(err, "list notes")
	}

	tagID := strings.TrimSpace(q.TagID)
	if tagID == "" {
		return notes, nil
	}
	filtered := make([]models.NoteWithTags, 0, len(notes))
	for _, n := range notes {
		if n.HasTag(tagID) {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

func (s *QueryService) Get(ctx context.Context, id string) (*models.NoteWithTags, error) {
	if id == "" {
		return nil, errs.Validation("note id is required")
	}
	note, err := s.store.GetNote(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("note %s not found", id)
	}
	if err != nil {
		return nil, errs.Store(err, "get note")
	}
	return note, nil
}

// RenderHTML returns the note's content rendered from Markdown.
func (s *QueryService) RenderHTML(ctx context.Context, id string) (string, error) {
	note, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	out, err := render.Markdown(note.Content)
	if err != nil {
		return "", errs.Store(err, "render note")
	}
	return out, nil
}
