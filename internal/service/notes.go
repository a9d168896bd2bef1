// Package service holds the note, tag, query and upload operations behind the HTTP and MCP
// surfaces. Services keep no state between calls; everything lives in the store.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"notebook/internal/errs"
	"notebook/internal/models"
	"notebook/internal/store"
)

// NoteService writes notes and their tag associations. The note row and the association
// rows are separate writes: a failed association write leaves the note in place.
type NoteService struct {
	store store.Store
	log   *slog.Logger
}

func NewNoteService(s store.Store, logger *slog.Logger) *NoteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoteService{store: s, log: logger}
}

// Create inserts the note, then one association per tag id. If the association write
// fails the created note is returned together with the error.
func (s *NoteService) Create(ctx context.Context, req models.CreateNoteRequest) (*models.Note, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	note, err := s.store.CreateNote(ctx, req.Title, req.Content)
	if err != nil {
		return nil, errs.Store(err, "create note")
	}

	if len(req.Tags) > 0 {
		if err := s.store.AddNoteTags(ctx, note.ID, req.Tags); err != nil {
			s.log.Warn("note created without tags", "note_id", note.ID, "tags", req.Tags, "err", err)
			return note, errs.Store(err, fmt.Sprintf("tag note %s", note.ID))
		}
	}
	return note, nil
}

// Update overwrites title, content and is_pinned. When req.Tags is set the note's
// associations are replaced by it: all rows are deleted, then the new set is inserted.
func (s *NoteService) Update(ctx context.Context, id string, req models.UpdateNoteRequest) (*models.Note, error) {
	if id == "" {
		return nil, errs.Validation("note id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	note, err := s.store.UpdateNote(ctx, id, *req.Title, *req.Content, *req.IsPinned)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("note %s not found", id)
	}
	if err != nil {
		return nil, errs.Store(err, "update note")
	}

	if req.Tags != nil {
		if err := s.store.ClearNoteTags(ctx, id); err != nil {
			return nil, errs.Store(err, "clear note tags")
		}
		if err := s.store.AddNoteTags(ctx, id, *req.Tags); err != nil {
			s.log.Warn("note left without tags after replace", "note_id", id, "tags", *req.Tags, "err", err)
			return nil, errs.Store(err, fmt.Sprintf("tag note %s", id))
		}
	}
	return note, nil
}

// Delete removes the note. The store cascades to note_tags; the remaining association
// count is checked afterwards and any leftovers are removed.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errs.Validation("note id is required")
	}

	err := s.store.DeleteNote(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errs.NotFound("note %s not found", id)
	}
	if err != nil {
		return errs.Store(err, "delete note")
	}

	remaining, err := s.store.CountNoteTags(ctx, id)
	if err != nil {
		s.log.Warn("could not verify note_tags cascade", "note_id", id, "err", err)
		return nil
	}
	if remaining > 0 {
		s.log.Error("note_tags rows survived note delete", "note_id", id, "count", remaining)
		if err := s.store.ClearNoteTags(ctx, id); err != nil {
			return errs.Store(err, "remove orphaned note tags")
		}
	}
	return nil
}
