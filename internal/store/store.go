package store

import (
	"context"

	"github.com/pkg/errors"

	"notebook/internal/models"
)

var (
	// ErrNotFound is returned when the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("conflict")
)

// Store defines the interface for all database operations
type Store interface {
	// Notes
	CreateNote(ctx context.Context, title, content string) (*models.Note, error)
	GetNote(ctx context.Context, id string) (*models.NoteWithTags, error)
	UpdateNote(ctx context.Context, id, title, content string, isPinned bool) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) error
	// ListNotes returns notes with their tags, pinned first then newest first.
	// A non-empty search keeps notes whose title or content contains it, ignoring case.
	ListNotes(ctx context.Context, search string) ([]models.NoteWithTags, error)

	// Note-tag associations
	AddNoteTags(ctx context.Context, noteID string, tagIDs []string) error
	ClearNoteTags(ctx context.Context, noteID string) error
	CountNoteTags(ctx context.Context, noteID string) (int, error)

	// Tags
	CreateTag(ctx context.Context, name, color string) (*models.Tag, error)
	GetTagByName(ctx context.Context, name string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)

	Ping(ctx context.Context) error
	Close() error
}
