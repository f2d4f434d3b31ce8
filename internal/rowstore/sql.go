package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Dialect carries the per-driver bits of the SQL backend.
type Dialect struct {
	Name   string
	Schema []string
	// Rebind rewrites ? placeholders for drivers that need another style.
	Rebind func(query string) string
}

// SQLite stores sheets in a SQLite file through mattn/go-sqlite3.
var SQLite = Dialect{
	Name: "sqlite3",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS sheets (
			name TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			seq   INTEGER PRIMARY KEY AUTOINCREMENT,
			sheet TEXT NOT NULL REFERENCES sheets(name) ON DELETE CASCADE,
			cells TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet, seq)`,
	},
	Rebind: func(q string) string { return q },
}

// Postgres stores sheets in Postgres through the pgx stdlib driver.
var Postgres = Dialect{
	Name: "pgx",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS sheets (
			name TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			seq   BIGSERIAL PRIMARY KEY,
			sheet TEXT NOT NULL REFERENCES sheets(name) ON DELETE CASCADE,
			cells TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet, seq)`,
	},
	Rebind: dollarPlaceholders,
}

func dollarPlaceholders(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQL keeps one database row per spreadsheet row. Cells are stored as a JSON
// array and rows are ordered by an ever-increasing sequence, so a row's
// position is its rank within the sheet.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQL creates the schema if needed and returns the store.
func NewSQL(ctx context.Context, db *sql.DB, dialect Dialect) (*SQL, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("rowstore schema (%s): %w", dialect.Name, err)
		}
	}
	return &SQL{db: db, dialect: dialect}, nil
}

func (s *SQL) q(query string) string { return s.dialect.Rebind(query) }

// Sheet returns the named sheet.
func (s *SQL) Sheet(ctx context.Context, name string) (Sheet, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT 1 FROM sheets WHERE name = ?`), name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &sqlSheet{store: s, name: name}, nil
}

// EnsureSheet registers the sheet name if it is not known yet.
func (s *SQL) EnsureSheet(ctx context.Context, name string) (Sheet, error) {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO sheets (name) VALUES (?) ON CONFLICT (name) DO NOTHING`), name)
	if err != nil {
		return nil, err
	}
	return &sqlSheet{store: s, name: name}, nil
}

// Ping checks the database connection.
func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

type sqlSheet struct {
	store *SQL
	name  string
}

func (t *sqlSheet) Name() string { return t.name }

func (t *sqlSheet) Values(ctx context.Context) ([][]any, error) {
	rows, err := t.store.db.QueryContext(ctx, t.store.q(`SELECT cells FROM sheet_rows WHERE sheet = ? ORDER BY seq`), t.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

func (t *sqlSheet) AppendRows(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt := t.store.q(`INSERT INTO sheet_rows (sheet, cells) VALUES (?, ?)`)
	for _, row := range rows {
		raw, err := encodeCells(row)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt, t.name, raw); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (t *sqlSheet) SetCell(ctx context.Context, row, col int, value any) error {
	if col < 1 {
		return fmt.Errorf("invalid column %d", col)
	}
	seq, cells, err := t.rowAt(ctx, row)
	if err != nil {
		return err
	}
	for len(cells) < col {
		cells = append(cells, "")
	}
	cells[col-1] = value
	return t.write(ctx, seq, cells)
}

func (t *sqlSheet) SetRow(ctx context.Context, row int, values []any) error {
	seq, _, err := t.rowAt(ctx, row)
	if err != nil {
		return err
	}
	return t.write(ctx, seq, values)
}

func (t *sqlSheet) DeleteRow(ctx context.Context, row int) error {
	seq, _, err := t.rowAt(ctx, row)
	if err != nil {
		return err
	}
	_, err = t.store.db.ExecContext(ctx, t.store.q(`DELETE FROM sheet_rows WHERE seq = ?`), seq)
	return err
}

func (t *sqlSheet) rowAt(ctx context.Context, row int) (int64, []any, error) {
	if row < 1 {
		return 0, nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	var (
		seq int64
		raw string
	)
	err := t.store.db.QueryRowContext(ctx,
		t.store.q(`SELECT seq, cells FROM sheet_rows WHERE sheet = ? ORDER BY seq LIMIT 1 OFFSET ?`),
		t.name, row-1,
	).Scan(&seq, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, fmt.Errorf("%w: %d in %s", ErrRowOutOfRange, row, t.name)
	}
	if err != nil {
		return 0, nil, err
	}
	cells, err := decodeCells(raw)
	return seq, cells, err
}

func (t *sqlSheet) write(ctx context.Context, seq int64, cells []any) error {
	raw, err := encodeCells(cells)
	if err != nil {
		return err
	}
	_, err = t.store.db.ExecContext(ctx, t.store.q(`UPDATE sheet_rows SET cells = ? WHERE seq = ?`), raw, seq)
	return err
}

func encodeCells(row []any) (string, error) {
	b, err := json.Marshal(NormalizeRow(row))
	if err != nil {
		return "", fmt.Errorf("encode row: %w", err)
	}
	return string(b), nil
}

func decodeCells(raw string) ([]any, error) {
	var cells []any
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return cells, nil
}
