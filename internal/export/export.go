// Package export writes notes to a directory as Markdown files with YAML frontmatter.
package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"notebook/internal/models"
)

// Lister is the read side the exporter needs.
type Lister interface {
	List(ctx context.Context, q models.ListNotesQuery) ([]models.NoteWithTags, error)
}

type frontmatter struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Pinned    bool      `yaml:"pinned"`
	Tags      []string  `yaml:"tags,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Dir writes every note as <dir>/<id>.md and returns how many were written.
func Dir(ctx context.Context, notes Lister, dir string) (int, error) {
	list, err := notes.List(ctx, models.ListNotesQuery{})
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrap(err, "create export dir")
	}

	for i, n := range list {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		data, err := Marshal(n)
		if err != nil {
			return i, err
		}
		if err := os.WriteFile(filepath.Join(dir, n.ID+".md"), data, 0o644); err != nil {
			return i, errors.Wrapf(err, "write note %s", n.ID)
		}
	}
	return len(list), nil
}

// Marshal renders one note: frontmatter block, then the content verbatim.
func Marshal(n models.NoteWithTags) ([]byte, error) {
	fm := frontmatter{
		ID:        n.ID,
		Title:     n.Title,
		Pinned:    n.IsPinned,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	for _, t := range n.Tags {
		fm.Tags = append(fm.Tags, t.Name)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, errors.Wrapf(err, "encode frontmatter for %s", n.ID)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "close yaml encoder")
	}
	buf.WriteString("---\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}
