package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Keyring-Network/keyring-notes/internal/store"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const uniqueViolation = "23505"

type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

var openDB = sql.Open

func Open(conn string) (*sql.DB, error) {
	db, err := openDB("pgx", conn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func New(conn string) (*PostgresStore, error) {
	db, err := Open(conn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := verifySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

func (p *PostgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	required := []string{
		"fragments",
		"resources",
		"calendar_events",
		"user_tags",
	}
	for _, table := range required {
		var regclass sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT to_regclass($1)", fmt.Sprintf("public.%s", table)).Scan(&regclass); err != nil {
			return err
		}
		if !regclass.Valid {
			return fmt.Errorf("database schema missing: %s table not found (run notes-assistant migrate)", table)
		}
	}
	return nil
}

// ApplyMigrations executes the embedded schema files in lexical order.
// Every statement is idempotent, so reapplying is safe.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) AddFragment(ctx context.Context, fragment store.Fragment) error {
	if strings.TrimSpace(fragment.OwnerID) == "" {
		return errors.New("fragment owner is required")
	}
	if fragment.ID == "" {
		fragment.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO fragments (id, owner_id, content, source_name, note_title, chunk_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.db.ExecContext(
		ctx,
		query,
		fragment.ID,
		fragment.OwnerID,
		fragment.Content,
		nullString(fragment.SourceName),
		nullString(fragment.NoteTitle),
		fragment.ChunkIndex,
		p.timestampValue(fragment.CreatedAt),
	)
	return err
}

func (p *PostgresStore) AddResource(ctx context.Context, resource store.Resource) error {
	if strings.TrimSpace(resource.OwnerID) == "" {
		return errors.New("resource owner is required")
	}
	if resource.ID == "" {
		resource.ID = uuid.New().String()
	}
	tagsBytes, err := encodeStringSlice(resource.Tags)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO resources (id, owner_id, title, description, url, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = p.db.ExecContext(
		ctx,
		query,
		resource.ID,
		resource.OwnerID,
		resource.Title,
		resource.Description,
		resource.URL,
		tagsBytes,
		p.timestampValue(resource.CreatedAt),
	)
	return err
}

func (p *PostgresStore) SearchFragments(ctx context.Context, ownerID string, keywords []string, limit int) ([]store.Fragment, error) {
	if limit <= 0 {
		return []store.Fragment{}, nil
	}
	args := []any{ownerID, limit}
	filter, filterArgs := keywordFilter("content", keywords, len(args)+1)
	args = append(args, filterArgs...)
	sqlQuery := `
		SELECT id, owner_id, content, source_name, note_title, chunk_index, created_at
		FROM fragments
		WHERE owner_id = $1` + filter + `
		ORDER BY created_at, chunk_index, id
		LIMIT $2
	`
	rows, err := p.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []store.Fragment{}
	for rows.Next() {
		var fragment store.Fragment
		var sourceName sql.NullString
		var noteTitle sql.NullString
		var createdAt time.Time
		if err := rows.Scan(&fragment.ID, &fragment.OwnerID, &fragment.Content, &sourceName, &noteTitle, &fragment.ChunkIndex, &createdAt); err != nil {
			return nil, err
		}
		fragment.SourceName = sourceName.String
		fragment.NoteTitle = noteTitle.String
		fragment.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
		results = append(results, fragment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *PostgresStore) SearchResources(ctx context.Context, ownerID string, keywords []string) ([]store.Resource, error) {
	args := []any{ownerID}
	filter, filterArgs := keywordFilter("description || ' ' || title || ' ' || tags::text", keywords, len(args)+1)
	args = append(args, filterArgs...)
	sqlQuery := `
		SELECT id, owner_id, title, description, url, tags, created_at
		FROM resources
		WHERE owner_id = $1` + filter + `
		ORDER BY created_at, id
	`
	rows, err := p.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []store.Resource{}
	for rows.Next() {
		var resource store.Resource
		var tagsBytes []byte
		var createdAt time.Time
		if err := rows.Scan(&resource.ID, &resource.OwnerID, &resource.Title, &resource.Description, &resource.URL, &tagsBytes, &createdAt); err != nil {
			return nil, err
		}
		tags, err := decodeStringSlice(tagsBytes)
		if err != nil {
			return nil, err
		}
		resource.Tags = tags
		resource.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
		results = append(results, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *PostgresStore) ListEvents(ctx context.Context, ownerID string, window store.EventWindow) ([]store.CalendarEvent, error) {
	args := []any{ownerID}
	conditions := ""
	if window.StartDate != "" {
		args = append(args, window.StartDate)
		conditions += fmt.Sprintf(" AND date >= $%d::date", len(args))
	}
	if window.EndDate != "" {
		args = append(args, window.EndDate)
		conditions += fmt.Sprintf(" AND date <= $%d::date", len(args))
	}
	sqlQuery := `
		SELECT id, owner_id, date, start_minutes, duration_minutes, title, tags, color, created_at
		FROM calendar_events
		WHERE owner_id = $1` + conditions + `
		ORDER BY date, start_minutes, created_at
	`
	rows, err := p.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []store.CalendarEvent{}
	for rows.Next() {
		var event store.CalendarEvent
		var date time.Time
		var tagsBytes []byte
		var color sql.NullString
		var createdAt time.Time
		if err := rows.Scan(&event.ID, &event.OwnerID, &date, &event.StartMinutes, &event.DurationMinutes, &event.Title, &tagsBytes, &color, &createdAt); err != nil {
			return nil, err
		}
		tags, err := decodeStringSlice(tagsBytes)
		if err != nil {
			return nil, err
		}
		event.Date = date.Format("2006-01-02")
		event.Tags = tags
		event.Color = color.String
		event.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *PostgresStore) CreateEvent(ctx context.Context, ownerID string, event store.CalendarEvent) (store.CalendarEvent, error) {
	if strings.TrimSpace(ownerID) == "" {
		return store.CalendarEvent{}, errors.New("event owner is required")
	}
	if event.Tags == nil {
		event.Tags = []string{}
	}
	tagsBytes, err := encodeStringSlice(event.Tags)
	if err != nil {
		return store.CalendarEvent{}, err
	}
	event.ID = uuid.New().String()
	event.OwnerID = ownerID
	createdAt := p.clock().UTC()
	const query = `
		INSERT INTO calendar_events (id, owner_id, date, start_minutes, duration_minutes, title, tags, color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := p.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.OwnerID,
		event.Date,
		event.StartMinutes,
		event.DurationMinutes,
		event.Title,
		tagsBytes,
		nullString(event.Color),
		createdAt,
	); err != nil {
		return store.CalendarEvent{}, err
	}
	event.CreatedAt = createdAt.Format(time.RFC3339Nano)
	return event, nil
}

func (p *PostgresStore) ListTags(ctx context.Context, ownerID string) ([]store.UserTag, error) {
	const query = `
		SELECT id, owner_id, tag, title, color, created_at
		FROM user_tags
		WHERE owner_id = $1
		ORDER BY created_at, id
	`
	rows, err := p.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []store.UserTag{}
	for rows.Next() {
		var tag store.UserTag
		var color sql.NullString
		var createdAt time.Time
		if err := rows.Scan(&tag.ID, &tag.OwnerID, &tag.Tag, &tag.Title, &color, &createdAt); err != nil {
			return nil, err
		}
		tag.Color = color.String
		tag.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
		results = append(results, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *PostgresStore) CreateTag(ctx context.Context, ownerID string, tag store.UserTag) (store.UserTag, error) {
	name := strings.TrimSpace(tag.Tag)
	if name == "" {
		return store.UserTag{}, errors.New("tag is required")
	}
	tag.ID = uuid.New().String()
	tag.OwnerID = ownerID
	tag.Tag = name
	if strings.TrimSpace(tag.Title) == "" {
		tag.Title = name
	}
	createdAt := p.clock().UTC()
	const query = `
		INSERT INTO user_tags (id, owner_id, tag, title, color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := p.db.ExecContext(ctx, query, tag.ID, tag.OwnerID, tag.Tag, tag.Title, nullString(tag.Color), createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.UserTag{}, store.ErrTagExists
		}
		return store.UserTag{}, err
	}
	tag.CreatedAt = createdAt.Format(time.RFC3339Nano)
	return tag, nil
}

// keywordFilter builds an OR of case-insensitive substring tests starting at
// placeholder $startIndex. strpos is used instead of ILIKE so that "%" and
// "_" in keywords stay literal.
func keywordFilter(column string, keywords []string, startIndex int) (string, []any) {
	if len(keywords) == 0 {
		return "", nil
	}
	clauses := []string{}
	args := []any{}
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("strpos(lower(%s), $%d) > 0", column, startIndex+len(args)))
		args = append(args, keyword)
	}
	if len(clauses) == 0 {
		return " AND FALSE", nil
	}
	return " AND (" + strings.Join(clauses, " OR ") + ")", args
}

func (p *PostgresStore) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func (p *PostgresStore) timestampValue(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		return p.clock().UTC()
	}
	return parsed.UTC()
}

func nullString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}

func encodeStringSlice(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func decodeStringSlice(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	values := []string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}
