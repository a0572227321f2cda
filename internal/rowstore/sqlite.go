package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/schema"
	"github.com/spf13/cast"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// ─── Hooks ───────────────────────────────────────────────────────────────────

type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type storeHooks struct {
	exec    func(ctx context.Context, c conn, query string, args ...any) (sql.Result, error)
	query   func(ctx context.Context, c conn, query string, args ...any) (*sql.Rows, error)
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *SQLite) execHook(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, s.conn, query, args...)
	}
	return s.conn.ExecContext(ctx, query, args...)
}

func (s *SQLite) queryHook(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.hooks.query != nil {
		return s.hooks.query(ctx, s.conn, query, args...)
	}
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *SQLite) beginTxHook(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *SQLite) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// ─── Store ───────────────────────────────────────────────────────────────────

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db    *sql.DB
	conn  conn
	hooks storeHooks
	now   func() time.Time
	inTx  bool
}

var (
	_ Store      = (*SQLite)(nil)
	_ Transactor = (*SQLite)(nil)
)

// Open opens (creating if needed) the database at path, applies the WAL
// pragmas and migrates the six tables.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("rowstore: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("rowstore: open database: %w", err)
	}
	// One connection: SQLite has a single writer, and a deferred transaction
	// upgrading to a write lock fails instead of waiting on busy_timeout.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("rowstore: pragma %q: %w", p, err)
		}
	}

	s := &SQLite{db: db, conn: db, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rowstore: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

var sqlTypes = map[schema.ColumnKind]string{
	schema.KindText:    "TEXT",
	schema.KindNumber:  "REAL",
	schema.KindBoolean: "INTEGER",
	schema.KindTime:    "TEXT",
	schema.KindJSON:    "TEXT",
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_ent_org_type  ON core_entities(organization_id, entity_type)`,
	`CREATE INDEX IF NOT EXISTS idx_ent_org_code  ON core_entities(organization_id, smart_code)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_dyn_active ON core_dynamic_data(organization_id, entity_id, field_name)`,
	`CREATE INDEX IF NOT EXISTS idx_rel_org_from  ON core_relationships(organization_id, from_entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rel_org_to    ON core_relationships(organization_id, to_entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_org_date  ON universal_transactions(organization_id, transaction_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_txn_org_code  ON universal_transactions(organization_id, smart_code)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_txn_code ON universal_transactions(organization_id, transaction_code)`,
	`CREATE INDEX IF NOT EXISTS idx_line_org_txn  ON universal_transaction_lines(organization_id, transaction_id)`,
}

// migrate creates the six tables. It is bootstrap only: the layout comes
// from package schema and no operation can extend it.
func (s *SQLite) migrate(ctx context.Context) error {
	for _, t := range schema.Tables() {
		var defs []string
		for _, c := range schema.Columns(t) {
			def := c.Name + " " + sqlTypes[c.Kind]
			switch c.Name {
			case "id":
				def += " PRIMARY KEY"
			case "organization_id":
				def += " NOT NULL"
			}
			defs = append(defs, def)
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t, strings.Join(defs, ",\n\t"))
		if _, err := s.execHook(ctx, stmt); err != nil {
			return fmt.Errorf("create %s: %w", t, err)
		}
	}
	for _, idx := range indexes {
		if _, err := s.execHook(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// ─── Transactions ────────────────────────────────────────────────────────────

// InTx runs fn against a Store bound to one database transaction.
func (s *SQLite) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return fmt.Errorf("rowstore: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	txStore := *s
	txStore.conn = tx
	txStore.inTx = true
	if err := fn(&txStore); err != nil {
		return err
	}
	if err := s.commitHook(tx); err != nil {
		return fmt.Errorf("rowstore: commit transaction: %w", err)
	}
	return nil
}

// ─── Select ──────────────────────────────────────────────────────────────────

// Select returns rows of table matching q, always scoped to q.OrgID.
func (s *SQLite) Select(ctx context.Context, table schema.Table, q Query) ([]schema.Row, error) {
	if err := guardrail.CheckTable(string(table)); err != nil {
		return nil, err
	}
	if err := guardrail.RequireOrg(q.OrgID); err != nil {
		return nil, err
	}

	cols := q.Columns
	if len(cols) == 0 {
		for _, c := range schema.Columns(table) {
			cols = append(cols, c.Name)
		}
	}
	for _, c := range cols {
		if err := guardrail.CheckColumn(table, c); err != nil {
			return nil, err
		}
	}

	where := []string{"organization_id = ?"}
	args := []any{q.OrgID}
	for _, f := range q.Filters {
		clause, fargs, err := filterSQL(table, f)
		if err != nil {
			return nil, err
		}
		where = append(where, clause)
		args = append(args, fargs...)
	}
	if len(q.AnyOf) > 0 {
		var ors []string
		for _, f := range q.AnyOf {
			clause, fargs, err := filterSQL(table, f)
			if err != nil {
				return nil, err
			}
			ors = append(ors, clause)
			args = append(args, fargs...)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(cols, ", "), table, strings.Join(where, " AND "))

	if len(q.OrderBy) > 0 {
		var parts []string
		for _, o := range q.OrderBy {
			if err := guardrail.CheckColumn(table, o.Column); err != nil {
				return nil, err
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, o.Column+" "+dir)
		}
		query += " ORDER BY " + strings.Join(parts, ", ")
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.queryHook(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rowstore: select %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("rowstore: scan %s: %w", table, err)
		}
		row := make(schema.Row, len(cols))
		for i, name := range cols {
			col, _ := schema.ColumnOf(table, name)
			row[name] = decode(col.Kind, raw[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")

func filterSQL(table schema.Table, f Filter) (string, []any, error) {
	col, ok := schema.ColumnOf(table, f.Column)
	if !ok {
		return "", nil, guardrail.New(guardrail.SchemaViolation,
			"column %q does not exist on %s", f.Column, table)
	}
	switch f.Op {
	case OpEq:
		if f.Value == nil {
			return col.Name + " IS NULL", nil, nil
		}
		v, err := encode(col.Kind, f.Value)
		if err != nil {
			return "", nil, err
		}
		return col.Name + " = ?", []any{v}, nil
	case OpGte, OpLt, OpLte:
		v, err := encode(col.Kind, f.Value)
		if err != nil {
			return "", nil, err
		}
		op := map[Op]string{OpGte: ">=", OpLt: "<", OpLte: "<="}[f.Op]
		return col.Name + " " + op + " ?", []any{v}, nil
	case OpIn:
		vs, _ := f.Value.([]string)
		if len(vs) == 0 {
			return "1 = 0", nil, nil
		}
		args := make([]any, len(vs))
		for i, v := range vs {
			args[i] = v
		}
		return col.Name + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(vs)), ", ") + ")", args, nil
	case OpNotNull:
		return col.Name + " IS NOT NULL", nil, nil
	case OpPrefix:
		p, _ := f.Value.(string)
		return col.Name + ` LIKE ? ESCAPE '\'`, []any{likeEscaper.Replace(p) + "%"}, nil
	}
	return "", nil, fmt.Errorf("rowstore: unsupported filter op %q", f.Op)
}

// ─── Insert / Update ─────────────────────────────────────────────────────────

// Insert writes row into table and returns it as stored. A missing id is
// generated; created_at and updated_at default to now.
func (s *SQLite) Insert(ctx context.Context, table schema.Table, row schema.Row) (schema.Row, error) {
	if err := guardrail.CheckTable(string(table)); err != nil {
		return nil, err
	}
	orgID := row.String("organization_id")
	if err := guardrail.RequireOrg(orgID); err != nil {
		return nil, err
	}

	row = row.Clone()
	if row.String("id") == "" {
		row["id"] = uuid.NewString()
	}
	now := s.now().UTC()
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = now
	}
	row["updated_at"] = now

	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]any, 0, len(names))
	for _, name := range names {
		col, ok := schema.ColumnOf(table, name)
		if !ok {
			return nil, guardrail.New(guardrail.SchemaViolation,
				"column %q does not exist on %s", name, table)
		}
		v, err := encode(col.Kind, row[name])
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))
	if _, err := s.execHook(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("rowstore: insert %s: %w", table, err)
	}
	return s.byID(ctx, table, orgID, row.String("id"))
}

// Update applies patch to the row with id in orgID and returns the result.
func (s *SQLite) Update(ctx context.Context, table schema.Table, orgID, id string, patch schema.Row) (schema.Row, error) {
	if err := guardrail.CheckTable(string(table)); err != nil {
		return nil, err
	}
	if err := guardrail.RequireOrg(orgID); err != nil {
		return nil, err
	}

	patch = patch.Clone()
	delete(patch, "id")
	delete(patch, "organization_id")
	delete(patch, "created_at")
	patch["updated_at"] = s.now().UTC()

	names := make([]string, 0, len(patch))
	for name := range patch {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+2)
	for _, name := range names {
		col, ok := schema.ColumnOf(table, name)
		if !ok {
			return nil, guardrail.New(guardrail.SchemaViolation,
				"column %q does not exist on %s", name, table)
		}
		v, err := encode(col.Kind, patch[name])
		if err != nil {
			return nil, err
		}
		sets = append(sets, name+" = ?")
		args = append(args, v)
	}
	args = append(args, id, orgID)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND organization_id = ?",
		table, strings.Join(sets, ", "))
	res, err := s.execHook(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("rowstore: update %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.byID(ctx, table, orgID, id)
}

func (s *SQLite) byID(ctx context.Context, table schema.Table, orgID, id string) (schema.Row, error) {
	rows, err := s.Select(ctx, table, Query{OrgID: orgID, Filters: []Filter{Eq("id", id)}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// ─── Encoding ────────────────────────────────────────────────────────────────

func encode(kind schema.ColumnKind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case schema.KindText:
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, guardrail.Wrap(guardrail.InvalidArgument, err, "expected text value")
		}
		return s, nil
	case schema.KindNumber:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, guardrail.Wrap(guardrail.InvalidArgument, err, "expected numeric value")
		}
		return f, nil
	case schema.KindBoolean:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, guardrail.Wrap(guardrail.InvalidArgument, err, "expected boolean value")
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case schema.KindTime:
		t, err := ParseTime(v)
		if err != nil {
			return nil, guardrail.Wrap(guardrail.InvalidArgument, err, "expected timestamp")
		}
		return t.UTC().Format(timeLayout), nil
	case schema.KindJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, guardrail.Wrap(guardrail.InvalidArgument, err, "expected JSON object")
		}
		return string(b), nil
	}
	return v, nil
}

func decode(kind schema.ColumnKind, v any) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch kind {
	case schema.KindNumber:
		f, _ := cast.ToFloat64E(v)
		return f
	case schema.KindBoolean:
		b, _ := cast.ToBoolE(v)
		return b
	case schema.KindTime:
		t, err := ParseTime(v)
		if err != nil {
			return nil
		}
		return t
	case schema.KindJSON:
		s, _ := v.(string)
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
			return map[string]any{}
		}
		return m
	}
	s, _ := cast.ToStringE(v)
	return s
}

// ParseTime accepts a time.Time, an RFC 3339 timestamp or a plain
// YYYY-MM-DD date (midnight UTC).
func ParseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time %q", t)
	}
	return time.Time{}, fmt.Errorf("unrecognized time %v (%T)", v, v)
}
