package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"notebook/internal/models"
	"notebook/internal/store"
)

// DBType represents the type of database
type DBType string

const (
	SQLite   DBType = "sqlite3"
	Postgres DBType = "postgres"
)

const noteColumns = "id, title, content, is_pinned, created_at, updated_at"

// sqliteDriver is go-sqlite3 with a Unicode-aware ulower(); the builtin LOWER only folds ASCII.
const sqliteDriver = "sqlite3_notebook"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
}

// SQLStore implements the Store interface for SQL databases
type SQLStore struct {
	db     *sqlx.DB
	dbType DBType
}

var _ store.Store = (*SQLStore)(nil)

// New creates a new SQLStore with the given driver and connection string.
// SQLite connections are opened with foreign keys enforced; the schema relies on
// ON DELETE CASCADE to drop note_tags rows together with their note.
func New(driver, connStr string) (*SQLStore, error) {
	dbType := DBType(driver)
	switch dbType {
	case SQLite:
		connStr = sqliteDSN(connStr)
	case Postgres:
	default:
		return nil, errors.Errorf("unsupported driver %q", driver)
	}

	sqlDriver := driver
	if dbType == SQLite {
		sqlDriver = sqliteDriver
	}
	raw, err := sql.Open(sqlDriver, connStr)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	db := sqlx.NewDb(raw, driver)
	if dbType == SQLite {
		// One connection keeps ":memory:" databases alive and serializes sqlite writers.
		db.SetMaxOpenConns(1)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	s := &SQLStore{
		db:     db,
		dbType: dbType,
	}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init schema")
	}
	if err := s.verifyCascade(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func sqliteDSN(connStr string) string {
	if strings.Contains(connStr, "_foreign_keys") || strings.Contains(connStr, "_fk=") {
		return connStr
	}
	sep := "?"
	if strings.Contains(connStr, "?") {
		sep = "&"
	}
	return connStr + sep + "_foreign_keys=on"
}

// rebind converts ? placeholders to the driver's bindvar ($1, $2, ... for PostgreSQL)
func (s *SQLStore) rebind(query string) string {
	return s.db.Rebind(query)
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	var createNotesTable, createTagsTable, createNoteTagsTable string

	if s.dbType == Postgres {
		createNotesTable = `
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`

		createTagsTable = `
		CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`

		createNoteTagsTable = `
		CREATE TABLE IF NOT EXISTS note_tags (
			note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
			tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (note_id, tag_id)
		);`
	} else {
		createNotesTable = `
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			is_pinned BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`

		createTagsTable = `
		CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`

		createNoteTagsTable = `
		CREATE TABLE IF NOT EXISTS note_tags (
			note_id TEXT NOT NULL,
			tag_id TEXT NOT NULL,
			PRIMARY KEY (note_id, tag_id),
			FOREIGN KEY(note_id) REFERENCES notes(id) ON DELETE CASCADE,
			FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
		);`
	}

	stmts := []string{
		createNotesTable,
		createTagsTable,
		createNoteTagsTable,
		`CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_id);`,
		`CREATE INDEX IF NOT EXISTS idx_notes_order ON notes(is_pinned, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// verifyCascade checks that deleting a note will also remove its associations.
func (s *SQLStore) verifyCascade(ctx context.Context) error {
	if s.dbType == SQLite {
		var enabled int
		if err := s.db.GetContext(ctx, &enabled, "PRAGMA foreign_keys"); err != nil {
			return errors.Wrap(err, "read foreign_keys pragma")
		}
		if enabled != 1 {
			return errors.New("sqlite foreign keys are disabled: note_tags would not cascade")
		}
		return nil
	}

	var cascades int
	err := s.db.GetContext(ctx, &cascades, `
		SELECT COUNT(*) FROM pg_constraint
		WHERE conrelid = 'note_tags'::regclass AND contype = 'f' AND confdeltype = 'c'`)
	if err != nil {
		return errors.Wrap(err, "inspect note_tags constraints")
	}
	if cascades < 2 {
		return errors.Errorf("note_tags has %d cascading foreign keys, want 2", cascades)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Note functions
func (s *SQLStore) CreateNote(ctx context.Context, title, content string) (*models.Note, error) {
	ts := now()
	n := &models.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO notes ("+noteColumns+") VALUES (?, ?, ?, ?, ?, ?)"),
		n.ID, n.Title, n.Content, n.IsPinned, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert note")
	}
	return n, nil
}

func (s *SQLStore) getNoteRow(ctx context.Context, id string) (*models.Note, error) {
	var n models.Note
	err := s.db.GetContext(ctx, &n, s.rebind("SELECT "+noteColumns+" FROM notes WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(store.ErrNotFound, "note %q", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select note")
	}
	return &n, nil
}

func (s *SQLStore) GetNote(ctx context.Context, id string) (*models.NoteWithTags, error) {
	n, err := s.getNoteRow(ctx, id)
	if err != nil {
		return nil, err
	}
	tagMap, err := s.tagsForNotes(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return &models.NoteWithTags{Note: *n, Tags: withEmpty(tagMap[id])}, nil
}

func (s *SQLStore) UpdateNote(ctx context.Context, id, title, content string, isPinned bool) (*models.Note, error) {
	result, err := s.db.ExecContext(ctx, s.rebind("UPDATE notes SET title = ?, content = ?, is_pinned = ?, updated_at = ? WHERE id = ?"),
		title, content, isPinned, now(), id)
	if err != nil {
		return nil, errors.Wrap(err, "update note")
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "note %q", id)
	}
	return s.getNoteRow(ctx, id)
}

func (s *SQLStore) DeleteNote(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM notes WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "delete note")
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return errors.Wrapf(store.ErrNotFound, "note %q", id)
	}
	return nil
}

func (s *SQLStore) ListNotes(ctx context.Context, search string) ([]models.NoteWithTags, error) {
	query := "SELECT " + noteColumns + " FROM notes"
	var args []interface{}
	if search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		lower := "LOWER"
		if s.dbType == SQLite {
			lower = "ulower"
		}
		query += " WHERE " + lower + `(title) LIKE ? ESCAPE '\' OR ` + lower + `(content) LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
	}
	query += " ORDER BY is_pinned DESC, created_at DESC"

	var notes []models.Note
	if err := s.db.SelectContext(ctx, &notes, s.rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select notes")
	}

	noteIDs := make([]string, len(notes))
	for i, n := range notes {
		noteIDs[i] = n.ID
	}
	tagMap, err := s.tagsForNotes(ctx, noteIDs)
	if err != nil {
		return nil, err
	}

	result := make([]models.NoteWithTags, len(notes))
	for i, n := range notes {
		result[i] = models.NoteWithTags{Note: n, Tags: withEmpty(tagMap[n.ID])}
	}
	return result, nil
}

type noteTagRow struct {
	NoteID string `db:"note_id"`
	models.Tag
}

func (s *SQLStore) tagsForNotes(ctx context.Context, noteIDs []string) (map[string][]models.Tag, error) {
	result := make(map[string][]models.Tag)
	if len(noteIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT nt.note_id, t.id, t.name, t.color, t.created_at
		FROM note_tags nt
		JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id IN (?)
		ORDER BY t.created_at ASC, t.name ASC`, noteIDs)
	if err != nil {
		return nil, errors.Wrap(err, "build note tags query")
	}

	var rows []noteTagRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "select note tags")
	}
	for _, r := range rows {
		result[r.NoteID] = append(result[r.NoteID], r.Tag)
	}
	return result, nil
}

// Note-tag functions
func (s *SQLStore) AddNoteTags(ctx context.Context, noteID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(tagIDs))
	args := make([]interface{}, 0, 2*len(tagIDs))
	for i, tagID := range tagIDs {
		placeholders[i] = "(?, ?)"
		args = append(args, noteID, tagID)
	}
	query := fmt.Sprintf("INSERT INTO note_tags (note_id, tag_id) VALUES %s", strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return errors.Wrap(err, "insert note tags")
	}
	return nil
}

func (s *SQLStore) ClearNoteTags(ctx context.Context, noteID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM note_tags WHERE note_id = ?"), noteID); err != nil {
		return errors.Wrap(err, "delete note tags")
	}
	return nil
}

func (s *SQLStore) CountNoteTags(ctx context.Context, noteID string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, s.rebind("SELECT COUNT(*) FROM note_tags WHERE note_id = ?"), noteID); err != nil {
		return 0, errors.Wrap(err, "count note tags")
	}
	return count, nil
}

// Tag functions
func (s *SQLStore) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	t := &models.Tag{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     color,
		CreatedAt: now(),
	}
	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO tags (id, name, color, created_at) VALUES (?, ?, ?, ?)"),
		t.ID, t.Name, t.Color, t.CreatedAt)
	if isUniqueViolation(err) {
		return nil, errors.Wrapf(store.ErrConflict, "tag %q", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "insert tag")
	}
	return t, nil
}

func (s *SQLStore) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.GetContext(ctx, &t, s.rebind("SELECT id, name, color, created_at FROM tags WHERE name = ?"), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(store.ErrNotFound, "tag %q", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select tag")
	}
	return &t, nil
}

func (s *SQLStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.SelectContext(ctx, &tags, "SELECT id, name, color, created_at FROM tags ORDER BY created_at ASC, name ASC"); err != nil {
		return nil, errors.Wrap(err, "select tags")
	}
	return tags, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func withEmpty(tags []models.Tag) []models.Tag {
	if tags == nil {
		return []models.Tag{}
	}
	return tags
}
