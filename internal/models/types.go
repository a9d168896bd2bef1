package models

import "time"

type Note struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	IsPinned  bool      `json:"is_pinned" db:"is_pinned"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Tag struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NoteTag labels a note with a tag. At most one row exists per pair.
type NoteTag struct {
	NoteID string `json:"note_id" db:"note_id"`
	TagID  string `json:"tag_id" db:"tag_id"`
}

// NoteWithTags is assembled at query time and never persisted.
type NoteWithTags struct {
	Note
	Tags []Tag `json:"tags"`
}

// HasTag reports whether the note carries the tag with the given id.
func (n NoteWithTags) HasTag(tagID string) bool {
	for _, t := range n.Tags {
		if t.ID == tagID {
			return true
		}
	}
	return false
}

// Attachment is the result of an upload: where the object lives and how to reach it.
type Attachment struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}
