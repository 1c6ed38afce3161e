package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	_ "modernc.org/sqlite"
)

// Fixed-width UTC layout so timestamp columns compare lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const busyBackoff = 50 * time.Millisecond

const schema = `
CREATE TABLE IF NOT EXISTS knowledge_entries (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    source TEXT NOT NULL,
    content TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 1.0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    refs TEXT NOT NULL DEFAULT '[]',
    tags TEXT NOT NULL DEFAULT '[]',
    context_tags TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_entries_type ON knowledge_entries(type);
CREATE INDEX IF NOT EXISTS idx_entries_source ON knowledge_entries(source);
CREATE INDEX IF NOT EXISTS idx_entries_confidence ON knowledge_entries(confidence);

CREATE VIRTUAL TABLE IF NOT EXISTS knowledge_fts USING fts5(
    id UNINDEXED,
    body
);
`

const selectCols = `SELECT id, type, source, content, confidence, created_at, updated_at, refs, tags, context_tags FROM knowledge_entries`

// Store persists knowledge entries in a single-file SQLite database and keeps
// a derived FTS5 index in sync. Every mutation updates the entry row and the
// index row in one transaction, so readers never observe a stale index.
type Store struct {
	db *sql.DB

	queries atomic.Uint64
}

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open database: %w", err)
	}

	// Single connection, writes are serialized by the engine anyway and the
	// fts virtual table must share the page cache with the entry table.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("knowledge: set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("knowledge: set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("knowledge: initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection. Safe to call multiple times.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// QueryCount reports the number of SQL round trips performed so far. Used by
// callers (and tests) to observe cache effectiveness.
func (s *Store) QueryCount() uint64 {
	return s.queries.Load()
}

// Create inserts a new entry. Fails with ErrDuplicateID when the id exists,
// leaving the store unchanged.
func (s *Store) Create(ctx context.Context, e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.Before(e.CreatedAt) {
		e.UpdatedAt = e.CreatedAt
	}
	if e.Confidence == 0 && e.Source != SourceOutdated {
		e.Confidence = 1.0
	}

	return s.withRetry(ctx, func() error { return s.insert(ctx, e) })
}

func (s *Store) insert(ctx context.Context, e *Entry) error {
	s.queries.Add(1)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	content, err := json.Marshal(e.Content)
	if err != nil {
		return fmt.Errorf("knowledge: marshal content: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO knowledge_entries
		(id, type, source, content, confidence, created_at, updated_at, refs, tags, context_tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), string(e.Source), string(content), e.Confidence,
		e.CreatedAt.Format(timeLayout), e.UpdatedAt.Format(timeLayout),
		marshalList(e.References), marshalList(e.Tags), marshalList(e.ContextTags),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateID
		}
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO knowledge_fts (id, body) VALUES (?, ?)`,
		e.ID, e.SearchText(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateBatch inserts as many entries as are valid and returns the count.
// One bad entry does not abort the rest, only an unavailable store does.
func (s *Store) CreateBatch(ctx context.Context, entries []*Entry) (int, error) {
	n := 0
	for _, e := range entries {
		err := s.Create(ctx, e)
		switch {
		case err == nil:
			n++
		case errors.Is(err, ErrStoreUnavailable):
			return n, err
		default:
			slog.Warn("knowledge batch entry skipped", "id", e.ID, "error", err)
		}
	}
	return n, nil
}

// Read returns the entry or (nil, nil) when the id is absent.
func (s *Store) Read(ctx context.Context, id string) (*Entry, error) {
	var e *Entry
	err := s.withRetry(ctx, func() error {
		s.queries.Add(1)
		var scanErr error
		e, scanErr = scanEntry(s.db.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id))
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ReadByType returns entries of the given type, most recently updated first.
// limit <= 0 means no limit.
func (s *Store) ReadByType(ctx context.Context, t Type, limit int) ([]*Entry, error) {
	query := selectCols + ` WHERE type = ? ORDER BY updated_at DESC`
	args := []any{string(t)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryEntries(ctx, query, args...)
}

// Patch is a partial entry update. Nil fields are left unchanged, the entry
// type is immutable and cannot be patched.
type Patch struct {
	Content     *Content
	Source      *Source
	Confidence  *float64
	References  []string
	Tags        []string
	ContextTags []string
}

// Update merges the patch into the stored entry, bumps updated_at and
// re-derives the search index row. Fails with ErrNotFound when id is absent.
func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	return s.withRetry(ctx, func() error { return s.merge(ctx, id, p) })
}

func (s *Store) merge(ctx context.Context, id string, p Patch) error {
	s.queries.Add(1)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cur, err := scanEntry(tx.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if p.Content != nil {
		if err := p.Content.validate(cur.Type); err != nil {
			return err
		}
		cur.Content = *p.Content
	}
	if p.Source != nil {
		if !p.Source.valid() {
			return &ValidationError{Field: "source", Reason: "unknown value " + string(*p.Source)}
		}
		cur.Source = *p.Source
	}
	if p.Confidence != nil {
		if *p.Confidence < 0 || *p.Confidence > 1 {
			return &ValidationError{Field: "confidence", Reason: "must be in [0,1]"}
		}
		cur.Confidence = *p.Confidence
	}
	if p.References != nil {
		cur.References = p.References
	}
	if p.Tags != nil {
		cur.Tags = p.Tags
	}
	if p.ContextTags != nil {
		cur.ContextTags = p.ContextTags
	}

	now := time.Now().UTC()
	if !now.After(cur.UpdatedAt) {
		now = cur.UpdatedAt.Add(time.Nanosecond)
	}
	cur.UpdatedAt = now

	content, err := json.Marshal(cur.Content)
	if err != nil {
		return fmt.Errorf("knowledge: marshal content: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE knowledge_entries
		SET source = ?, content = ?, confidence = ?, updated_at = ?, refs = ?, tags = ?, context_tags = ?
		WHERE id = ?`,
		string(cur.Source), string(content), cur.Confidence,
		cur.UpdatedAt.Format(timeLayout),
		marshalList(cur.References), marshalList(cur.Tags), marshalList(cur.ContextTags),
		id,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE knowledge_fts SET body = ? WHERE id = ?`,
		cur.SearchText(), id,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes the entry and its index row. Idempotent: reports false when
// the id was already absent.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.withRetry(ctx, func() error {
		s.queries.Add(1)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, `DELETE FROM knowledge_entries WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge_fts WHERE id = ?`, id); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		removed = n > 0
		return nil
	})
	return removed, err
}

// SearchFTS runs a ranked full-text search over the derived index, best
// match first.
func (s *Store) SearchFTS(ctx context.Context, query string, limit int) ([]*Entry, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.queryEntries(ctx, `
		SELECT knowledge_entries.id, knowledge_entries.type, knowledge_entries.source,
		       knowledge_entries.content, knowledge_entries.confidence,
		       knowledge_entries.created_at, knowledge_entries.updated_at,
		       knowledge_entries.refs, knowledge_entries.tags, knowledge_entries.context_tags
		FROM knowledge_entries
		JOIN knowledge_fts ON knowledge_entries.id = knowledge_fts.id
		WHERE knowledge_fts MATCH ?
		ORDER BY knowledge_fts.rank
		LIMIT ?`, match, limit)
}

// SearchByTags returns entries whose tags or context tags contain all
// (matchAll) or any of the given tags, ordered by confidence then recency.
func (s *Store) SearchByTags(ctx context.Context, tags []string, matchAll bool, limit int) ([]*Entry, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	conds := make([]string, 0, len(tags))
	args := make([]any, 0, len(tags)*2+1)
	for _, tag := range tags {
		conds = append(conds, `(tags LIKE ? OR context_tags LIKE ?)`)
		pat := `%"` + tag + `"%`
		args = append(args, pat, pat)
	}

	op := ` OR `
	if matchAll {
		op = ` AND `
	}
	args = append(args, limit)

	return s.queryEntries(ctx,
		selectCols+` WHERE `+strings.Join(conds, op)+` ORDER BY confidence DESC, updated_at DESC LIMIT ?`,
		args...,
	)
}

// Statistics aggregates counts per type and source, total entries, average
// confidence and the number of entries touched in the last 24h.
func (s *Store) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		ByType:   map[string]int{},
		BySource: map[string]int{},
	}

	err := s.withRetry(ctx, func() error {
		s.queries.Add(1)

		row := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(AVG(confidence), 0) FROM knowledge_entries`)
		if err := row.Scan(&stats.TotalEntries, &stats.AvgConfidence); err != nil {
			return err
		}

		if err := s.countGroup(ctx, `type`, stats.ByType); err != nil {
			return err
		}
		if err := s.countGroup(ctx, `source`, stats.BySource); err != nil {
			return err
		}

		cutoff := time.Now().UTC().Add(-24 * time.Hour).Format(timeLayout)
		row = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM knowledge_entries WHERE updated_at > ?`, cutoff)
		return row.Scan(&stats.RecentUpdates)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) countGroup(ctx context.Context, col string, dst map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+col+`, COUNT(*) FROM knowledge_entries GROUP BY `+col)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		dst[key] = n
	}
	return rows.Err()
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	var out []*Entry
	err := s.withRetry(ctx, func() error {
		s.queries.Add(1)
		out = out[:0]

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withRetry runs op, retrying once after a short backoff when the engine
// reports a transient lock. A second busy error is surfaced as
// ErrStoreUnavailable.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	err := op()
	if !isBusy(err) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(busyBackoff):
	}

	if err = op(); isBusy(err) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                    Entry
		typ, src, content    string
		createdAt, updatedAt string
		refs, tags, ctxTags  string
	)
	if err := row.Scan(&e.ID, &typ, &src, &content, &e.Confidence,
		&createdAt, &updatedAt, &refs, &tags, &ctxTags); err != nil {
		return nil, err
	}

	e.Type = Type(typ)
	e.Source = Source(src)

	if err := json.Unmarshal([]byte(content), &e.Content); err != nil {
		return nil, fmt.Errorf("knowledge: unmarshal content of %s: %w", e.ID, err)
	}

	var err error
	if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("knowledge: parse created_at of %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("knowledge: parse updated_at of %s: %w", e.ID, err)
	}

	if err := unmarshalList(refs, &e.References); err != nil {
		return nil, err
	}
	if err := unmarshalList(tags, &e.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalList(ctxTags, &e.ContextTags); err != nil {
		return nil, err
	}
	return &e, nil
}

func marshalList(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func unmarshalList(raw string, dst *[]string) error {
	if raw == "" || raw == "[]" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

// ftsQuery turns free text into an OR query of quoted tokens.
func ftsQuery(text string) string {
	toks := tokenize(text)
	if len(toks) == 0 {
		return ""
	}
	quoted := make([]string, len(toks))
	for i, t := range toks {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := map[string]bool{}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
