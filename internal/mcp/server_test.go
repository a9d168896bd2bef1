package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notebook/internal/models"
	"notebook/internal/service"
	"notebook/internal/store/sqlstore"
)

type fixture struct {
	server *MCPServer
	notes  *service.NoteService
	tags   *service.TagService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tags := service.NewTagService(store, nil)
	return &fixture{
		server: NewMCPServer(service.NewQueryService(store), tags, "test"),
		notes:  service.NewNoteService(store, nil),
		tags:   tags,
	}
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return tc.Text
}

func TestSearchNotesTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	work, _, err := f.tags.Create(ctx, models.CreateTagRequest{Name: "Work"})
	require.NoError(t, err)
	_, err = f.notes.Create(ctx, models.CreateNoteRequest{Title: "Standup", Content: "notes from standup", Tags: []string{work.ID}})
	require.NoError(t, err)
	_, err = f.notes.Create(ctx, models.CreateNoteRequest{Title: "Groceries", Content: "milk " + strings.Repeat("x", 400)})
	require.NoError(t, err)

	result, err := f.server.searchNotesHandler(ctx, call(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)
	out := text(t, result)
	assert.Contains(t, out, "Found 2 notes")
	assert.Contains(t, out, "tags: Work")
	assert.Contains(t, out, "...")

	result, err = f.server.searchNotesHandler(ctx, call(map[string]interface{}{"search": "STANDUP", "tag_id": work.ID}))
	require.NoError(t, err)
	out = text(t, result)
	assert.Contains(t, out, "Found 1 notes")
	assert.Contains(t, out, "Standup")

	result, err = f.server.searchNotesHandler(ctx, call(map[string]interface{}{"search": "milk", "tag_id": work.ID}))
	require.NoError(t, err)
	assert.Equal(t, "No notes found.", text(t, result))
}

func TestGetNoteTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note, err := f.notes.Create(ctx, models.CreateNoteRequest{Title: "Full", Content: strings.Repeat("y", 500)})
	require.NoError(t, err)

	result, err := f.server.getNoteHandler(ctx, call(map[string]interface{}{"id": note.ID}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, text(t, result), strings.Repeat("y", 500))

	result, err = f.server.getNoteHandler(ctx, call(map[string]interface{}{"id": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = f.server.getNoteHandler(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestListTagsTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.server.listTagsHandler(ctx, call(nil))
	require.NoError(t, err)
	assert.Equal(t, "No tags defined.", text(t, result))

	_, _, err = f.tags.Create(ctx, models.CreateTagRequest{Name: "工作", Color: "#ef4444"})
	require.NoError(t, err)

	result, err = f.server.listTagsHandler(ctx, call(nil))
	require.NoError(t, err)
	out := text(t, result)
	assert.Contains(t, out, "Found 1 tags")
	assert.Contains(t, out, "工作")
	assert.Contains(t, out, "#ef4444")
}
