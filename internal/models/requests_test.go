package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notebook/internal/errs"
)

func ptr[T any](v T) *T { return &v }

func TestCreateNoteRequestCollapsesDuplicates(t *testing.T) {
	req := CreateNoteRequest{Title: "T", Content: "C", Tags: []string{"a", " b", "a", "b"}}
	require.NoError(t, req.Validate())
	assert.Equal(t, []string{"a", "b"}, req.Tags)

	req = CreateNoteRequest{Tags: []string{"a", ""}}
	assert.True(t, errs.Is(req.Validate(), errs.KindValidation))
}

func TestUpdateNoteRequestRequiresScalars(t *testing.T) {
	tests := []struct {
		name    string
		req     UpdateNoteRequest
		wantErr bool
	}{
		{"pin only", UpdateNoteRequest{IsPinned: ptr(true)}, true},
		{"missing content", UpdateNoteRequest{Title: ptr("t"), IsPinned: ptr(false)}, true},
		{"complete", UpdateNoteRequest{Title: ptr(""), Content: ptr(""), IsPinned: ptr(false)}, false},
		{"with tags", UpdateNoteRequest{Title: ptr("t"), Content: ptr("c"), IsPinned: ptr(true), Tags: ptr([]string{"x"})}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.True(t, errs.Is(err, errs.KindValidation), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUpdateNoteRequestKeepsExplicitEmptyTags(t *testing.T) {
	req := UpdateNoteRequest{Title: ptr("t"), Content: ptr("c"), IsPinned: ptr(false), Tags: ptr([]string{})}
	require.NoError(t, req.Validate())
	require.NotNil(t, req.Tags)
	assert.Empty(t, *req.Tags)
}

func TestCreateTagRequestDefaults(t *testing.T) {
	req := CreateTagRequest{Name: "  Work "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Work", req.Name)
	assert.Equal(t, DefaultTagColor, req.Color)

	req = CreateTagRequest{Name: "   ", Color: "#fff"}
	assert.True(t, errs.Is(req.Validate(), errs.KindValidation))
}

func TestNoteWithTagsHasTag(t *testing.T) {
	n := NoteWithTags{Tags: []Tag{{ID: "1"}, {ID: "2"}}}
	assert.True(t, n.HasTag("2"))
	assert.False(t, n.HasTag("3"))
}
