package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"notebook/internal/errs"
	"notebook/internal/models"
	"notebook/internal/store"
	"notebook/internal/store/sqlstore"
)

type services struct {
	store *sqlstore.SQLStore
	notes *NoteService
	tags  *TagService
	query *QueryService
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// openServices builds services over a fresh in-memory database. Callers close the store.
func openServices(t interface {
	Fatalf(format string, args ...any)
}) *services {
	s, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return &services{
		store: s,
		notes: NewNoteService(s, quietLogger),
		tags:  NewTagService(s, quietLogger),
		query: NewQueryService(s),
	}
}

func newServices(t *testing.T) *services {
	t.Helper()
	svc := openServices(t)
	t.Cleanup(func() { svc.store.Close() })
	return svc
}

func ptr[T any](v T) *T { return &v }

func tagIDs(n models.NoteWithTags) []string {
	ids := make([]string, 0, len(n.Tags))
	for _, t := range n.Tags {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return ids
}

func findNote(t *testing.T, notes []models.NoteWithTags, id string) models.NoteWithTags {
	t.Helper()
	for _, n := range notes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("note %s not in listing", id)
	return models.NoteWithTags{}
}

func mustTag(t *testing.T, svc *services, name string) *models.Tag {
	t.Helper()
	tag, _, err := svc.tags.Create(context.Background(), models.CreateTagRequest{Name: name, Color: "#ef4444"})
	require.NoError(t, err)
	return tag
}

func TestCreatedTagsAppearInListing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		svc := openServices(rt)
		defer svc.store.Close()

		pool := make([]string, 0, 5)
		for i, name := range []string{"work", "study", "life", "ideas", "misc"} {
			tag, _, err := svc.tags.Create(ctx, models.CreateTagRequest{Name: name})
			if err != nil {
				rt.Fatalf("create tag %d: %v", i, err)
			}
			pool = append(pool, tag.ID)
		}

		chosen := rapid.SliceOfDistinct(rapid.SampledFrom(pool), rapid.ID[string]).Draw(rt, "tags")
		title := rapid.StringMatching(`[A-Za-z0-9 ]{0,30}`).Draw(rt, "title")

		note, err := svc.notes.Create(ctx, models.CreateNoteRequest{Title: title, Content: "body", Tags: chosen})
		if err != nil {
			rt.Fatalf("create note: %v", err)
		}

		notes, err := svc.query.List(ctx, models.ListNotesQuery{})
		if err != nil {
			rt.Fatalf("list: %v", err)
		}
		if len(notes) != 1 || notes[0].ID != note.ID {
			rt.Fatalf("expected only note %s, got %d notes", note.ID, len(notes))
		}

		want := append([]string(nil), chosen...)
		sort.Strings(want)
		got := tagIDs(notes[0])
		if len(want) == 0 {
			want = []string{}
		}
		if !assert.ObjectsAreEqual(want, got) {
			rt.Fatalf("tags: want %v, got %v", want, got)
		}
	})
}

func TestUpdateTagSemantics(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)
	work := mustTag(t, svc, "Work")
	home := mustTag(t, svc, "Home")

	note, err := svc.notes.Create(ctx, models.CreateNoteRequest{Title: "T", Content: "C", Tags: []string{work.ID}})
	require.NoError(t, err)

	// tags omitted: associations untouched
	_, err = svc.notes.Update(ctx, note.ID, models.UpdateNoteRequest{Title: ptr("T"), Content: ptr("C"), IsPinned: ptr(true)})
	require.NoError(t, err)
	got, err := svc.query.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{work.ID}, tagIDs(*got))
	assert.True(t, got.IsPinned)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "C", got.Content)

	// full replace
	_, err = svc.notes.Update(ctx, note.ID, models.UpdateNoteRequest{Title: ptr("T"), Content: ptr("C"), IsPinned: ptr(true), Tags: ptr([]string{home.ID})})
	require.NoError(t, err)
	got, err = svc.query.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{home.ID}, tagIDs(*got))

	// empty list clears
	_, err = svc.notes.Update(ctx, note.ID, models.UpdateNoteRequest{Title: ptr("T"), Content: ptr("C"), IsPinned: ptr(false), Tags: ptr([]string{})})
	require.NoError(t, err)
	got, err = svc.query.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}

func TestUpdateRejectsPinOnlyPatch(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)

	note, err := svc.notes.Create(ctx, models.CreateNoteRequest{Title: "Keep", Content: "Me"})
	require.NoError(t, err)

	_, err = svc.notes.Update(ctx, note.ID, models.UpdateNoteRequest{IsPinned: ptr(true)})
	assert.True(t, errs.Is(err, errs.KindValidation))

	got, err := svc.query.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Title)
	assert.Equal(t, "Me", got.Content)
	assert.False(t, got.IsPinned)
}

func TestUpdateAndDeleteMissingNote(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)

	_, err := svc.notes.Update(ctx, "nope", models.UpdateNoteRequest{Title: ptr(""), Content: ptr(""), IsPinned: ptr(false)})
	assert.True(t, errs.Is(err, errs.KindNotFound))

	err = svc.notes.Delete(ctx, "nope")
	assert.True(t, errs.Is(err, errs.KindNotFound))

	_, err = svc.query.Get(ctx, "nope")
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestTagCreateIsIdempotentByName(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)

	first, created, err := svc.tags.Create(ctx, models.CreateTagRequest{Name: "工作", Color: "#ef4444"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.tags.Create(ctx, models.CreateTagRequest{Name: "工作", Color: "#3b82f6"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "#ef4444", second.Color)

	tags, err := svc.tags.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestDeleteRemovesNoteAndAssociations(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)
	work := mustTag(t, svc, "Work")

	note, err := svc.notes.Create(ctx, models.CreateNoteRequest{Title: "T", Content: "C", Tags: []string{work.ID}})
	require.NoError(t, err)
	require.NoError(t, svc.notes.Delete(ctx, note.ID))

	notes, err := svc.query.List(ctx, models.ListNotesQuery{})
	require.NoError(t, err)
	assert.Empty(t, notes)

	count, err := svc.store.CountNoteTags(ctx, note.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateWithUnknownTagLeavesUntaggedNote(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)

	note, err := svc.notes.Create(ctx, models.CreateNoteRequest{Title: "T", Content: "C", Tags: []string{"ghost"}})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindStore))
	require.NotNil(t, note, "partially created note is reported")

	got, err := svc.query.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Empty(t, got.Tags)
}

func TestListFiltersAreANDed(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)
	work := mustTag(t, svc, "Work")
	other := mustTag(t, svc, "Other")

	both, err := svc.notes.Create(ctx, models.CreateNoteRequest{Title: "Hello", Content: "World", Tags: []string{work.ID}})
	require.NoError(t, err)
	_, err = svc.notes.Create(ctx, models.CreateNoteRequest{Title: "Hello again", Content: "untagged"})
	require.NoError(t, err)
	_, err = svc.notes.Create(ctx, models.CreateNoteRequest{Title: "Unrelated", Content: "tagged", Tags: []string{work.ID}})
	require.NoError(t, err)

	notes, err := svc.query.List(ctx, models.ListNotesQuery{Search: "hello", TagID: work.ID})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, both.ID, notes[0].ID)

	notes, err = svc.query.List(ctx, models.ListNotesQuery{TagID: work.ID})
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	notes, err = svc.query.List(ctx, models.ListNotesQuery{TagID: other.ID})
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)

	notes, err = svc.query.List(ctx, models.ListNotesQuery{Search: "HELLO"})
	require.NoError(t, err)
	assert.Len(t, notes, 2)
	findNote(t, notes, both.ID)
}

func TestRenderHTML(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)

	note, err := svc.notes.Create(ctx, models.CreateNoteRequest{Title: "T", Content: "# Heading\n\ntext"})
	require.NoError(t, err)

	out, err := svc.query.RenderHTML(ctx, note.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<p>text</p>")
}

// leakyStore simulates a backend whose delete does not cascade.
type leakyStore struct {
	store.Store
	leftover int
	cleared  bool
}

func (l *leakyStore) CountNoteTags(ctx context.Context, noteID string) (int, error) {
	if l.cleared {
		return 0, nil
	}
	return l.leftover, nil
}

func (l *leakyStore) ClearNoteTags(ctx context.Context, noteID string) error {
	l.cleared = true
	return l.Store.ClearNoteTags(ctx, noteID)
}

func TestDeleteCleansUpWhenCascadeIsMissing(t *testing.T) {
	ctx := context.Background()
	base := newServices(t)
	leaky := &leakyStore{Store: base.store, leftover: 2}
	notes := NewNoteService(leaky, quietLogger)

	note, err := notes.Create(ctx, models.CreateNoteRequest{Title: "T"})
	require.NoError(t, err)
	require.NoError(t, notes.Delete(ctx, note.ID))
	assert.True(t, leaky.cleared)
}

// failingStore fails the association write after the note write succeeded.
type failingStore struct {
	store.Store
}

func (f failingStore) AddNoteTags(ctx context.Context, noteID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	return errors.New("connection reset")
}

func TestUpdateTagFailureIsReported(t *testing.T) {
	ctx := context.Background()
	base := newServices(t)
	work := mustTag(t, base, "Work")
	notes := NewNoteService(failingStore{base.store}, quietLogger)

	note, err := base.notes.Create(ctx, models.CreateNoteRequest{Title: "T", Content: "C", Tags: []string{work.ID}})
	require.NoError(t, err)

	_, err = notes.Update(ctx, note.ID, models.UpdateNoteRequest{Title: ptr("T2"), Content: ptr("C"), IsPinned: ptr(false), Tags: ptr([]string{work.ID})})
	assert.True(t, errs.Is(err, errs.KindStore))

	got, err := base.query.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "T2", got.Title, "scalar update is not rolled back")
	assert.Empty(t, got.Tags)
}
