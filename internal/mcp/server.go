// Package mcp exposes read-only note tools over the Model Context Protocol.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"notebook/internal/errs"
	"notebook/internal/models"
	"notebook/internal/service"
)

// maxContent caps note bodies in search results; get_note returns the full text.
const maxContent = 280

type MCPServer struct {
	query *service.QueryService
	tags  *service.TagService
	srv   *server.MCPServer
}

func NewMCPServer(query *service.QueryService, tags *service.TagService, version string) *MCPServer {
	s := &MCPServer{
		query: query,
		tags:  tags,
		srv:   server.NewMCPServer("Notebook", version),
	}
	s.registerTools()
	return s
}

// Handler serves the tools over stateless streamable HTTP.
func (s *MCPServer) Handler() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.srv, server.WithStateLess(true))
}

func readOnly(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

func (s *MCPServer) registerTools() {
	s.srv.AddTool(mcp.NewTool("search_notes", readOnly(
		mcp.WithDescription("List notes, pinned first then newest first. Both filters are optional and must both match."),
		mcp.WithString("search", mcp.Description("Case-insensitive substring of the title or content")),
		mcp.WithString("tag_id", mcp.Description("Only notes carrying this tag id")),
	)...), s.searchNotesHandler)

	s.srv.AddTool(mcp.NewTool("get_note", readOnly(
		mcp.WithDescription("Fetch one note with its full Markdown content and tags."),
		mcp.WithString("id", mcp.Required(), mcp.Description("The note id")),
	)...), s.getNoteHandler)

	s.srv.AddTool(mcp.NewTool("list_tags", readOnly(
		mcp.WithDescription("List every tag with its id and color, oldest first."),
	)...), s.listTagsHandler)
}

func (s *MCPServer) searchNotesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := models.ListNotesQuery{
		Search: request.GetString("search", ""),
		TagID:  request.GetString("tag_id", ""),
	}
	notes, err := s.query.List(ctx, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("database error: %v", err)), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("No notes found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes:\n", len(notes))
	for _, n := range notes {
		b.WriteString("\n")
		writeNote(&b, n, maxContent)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) getNoteHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	note, err := s.query.Get(ctx, id)
	if errs.Is(err, errs.KindNotFound) {
		return mcp.NewToolResultError("note not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("database error: %v", err)), nil
	}

	var b strings.Builder
	writeNote(&b, *note, 0)
	return mcp.NewToolResultText(b.String()), nil
}

func (s *MCPServer) listTagsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("database error: %v", err)), nil
	}
	if len(tags) == 0 {
		return mcp.NewToolResultText("No tags defined."), nil
	}
	lines := make([]string, 0, len(tags))
	for _, t := range tags {
		lines = append(lines, fmt.Sprintf("- %s (id: %s, color: %s)", t.Name, t.ID, t.Color))
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d tags:\n%s", len(tags), strings.Join(lines, "\n"))), nil
}

// writeNote renders a note as Markdown. limit > 0 truncates the content.
func writeNote(b *strings.Builder, n models.NoteWithTags, limit int) {
	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	pin := ""
	if n.IsPinned {
		pin = " [pinned]"
	}
	fmt.Fprintf(b, "## %s%s\n", title, pin)
	fmt.Fprintf(b, "id: %s | updated: %s\n", n.ID, n.UpdatedAt.Format(time.RFC3339))
	if len(n.Tags) > 0 {
		names := make([]string, len(n.Tags))
		for i, t := range n.Tags {
			names[i] = t.Name
		}
		fmt.Fprintf(b, "tags: %s\n", strings.Join(names, ", "))
	}
	content := n.Content
	if limit > 0 {
		if r := []rune(content); len(r) > limit {
			content = string(r[:limit]) + "..."
		}
	}
	if content != "" {
		b.WriteString("\n" + content + "\n")
	}
}
