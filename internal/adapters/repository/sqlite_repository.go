package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/ports"
)

// SQLiteRepository stores each table as a SQLite table of (id, fields) rows,
// with the fields encoded as a JSON object.
type SQLiteRepository struct {
	db     *sqlx.DB
	prefix string
	tables sync.Map
}

var (
	_ ports.RecordRepository = (*SQLiteRepository)(nil)
	_ ports.TableLister      = (*SQLiteRepository)(nil)
)

type recordRow struct {
	ID     int64  `db:"id"`
	Fields string `db:"fields"`
}

// OpenSQLite opens (creating if needed) the database at dsn
func OpenSQLite(dsn, tablePrefix string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &SQLiteRepository{db: db, prefix: tablePrefix}, nil
}

// Close closes the database handle
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// tableName validates table and makes sure it exists
func (r *SQLiteRepository) tableName(ctx context.Context, table string) (string, error) {
	if err := domain.ValidateTable(table); err != nil {
		return "", err
	}
	name := r.prefix + table
	if _, ok := r.tables.Load(name); ok {
		return name, nil
	}

	q := fmt.Sprintf(`create table if not exists "%s" ( id integer primary key autoincrement, fields text not null default '{}' )`, name)
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", name, err)
	}
	r.tables.Store(name, true)
	return name, nil
}

func encodeFields(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(data), nil
}

func (r *SQLiteRepository) toRecord(table string, row recordRow) (*domain.Record, error) {
	fields := map[string]string{}
	if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
		return nil, fmt.Errorf("corrupt fields for %s/%d: %w", table, row.ID, err)
	}
	rec := domain.NewRecord(table)
	rec.LoadValues(row.ID, fields)
	return rec, nil
}

// Insert stores a new row and returns its id
func (r *SQLiteRepository) Insert(ctx context.Context, table string, fields map[string]string) (int64, error) {
	name, err := r.tableName(ctx, table)
	if err != nil {
		return 0, err
	}
	data, err := encodeFields(fields)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`insert into "%s" ( fields ) values ( ? )`, name), data)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", name, err)
	}
	return res.LastInsertId()
}

// Update overwrites the fields of row id
func (r *SQLiteRepository) Update(ctx context.Context, table string, id int64, fields map[string]string) error {
	name, err := r.tableName(ctx, table)
	if err != nil {
		return err
	}
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`update "%s" set fields=? where id=?`, name), data, id)
	if err != nil {
		return fmt.Errorf("failed to update %s/%d: %w", name, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, id)
	}
	return nil
}

// Get loads row id
func (r *SQLiteRepository) Get(ctx context.Context, table string, id int64) (*domain.Record, error) {
	name, err := r.tableName(ctx, table)
	if err != nil {
		return nil, err
	}

	var row recordRow
	err = r.db.GetContext(ctx, &row, fmt.Sprintf(`select id, fields from "%s" where id=?`, name), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%d: %w", name, id, err)
	}
	return r.toRecord(table, row)
}

// List returns every row ordered by id
func (r *SQLiteRepository) List(ctx context.Context, table string) ([]*domain.Record, error) {
	name, err := r.tableName(ctx, table)
	if err != nil {
		return nil, err
	}

	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, fmt.Sprintf(`select id, fields from "%s" order by id`, name)); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", name, err)
	}

	records := make([]*domain.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := r.toRecord(table, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes row id
func (r *SQLiteRepository) Delete(ctx context.Context, table string, id int64) error {
	name, err := r.tableName(ctx, table)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`delete from "%s" where id=?`, name), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%d: %w", name, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%d", domain.ErrRecordNotFound, table, id)
	}
	return nil
}

// DeleteAll removes the listed rows, or every row when ids is nil
func (r *SQLiteRepository) DeleteAll(ctx context.Context, table string, ids []int64) error {
	name, err := r.tableName(ctx, table)
	if err != nil {
		return err
	}

	if ids == nil {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`delete from "%s"`, name)); err != nil {
			return fmt.Errorf("failed to purge %s: %w", name, err)
		}
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	q, args, err := sqlx.In(fmt.Sprintf(`delete from "%s" where id in (?)`, name), ids)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", name, err)
	}
	return nil
}

// Tables lists the record tables present in the database, without prefix
func (r *SQLiteRepository) Tables(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.SelectContext(ctx, &names, `select name from sqlite_master where type='table' and name not like 'sqlite_%' order by name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	out := names[:0]
	for _, n := range names {
		if t, ok := strings.CutPrefix(n, r.prefix); ok {
			out = append(out, t)
		}
	}
	return out, nil
}
