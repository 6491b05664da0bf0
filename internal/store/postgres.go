package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/saldo-app/saldo/internal/dataservice"
)

// Querier is the subset of pgxpool.Pool used by the store.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore serves data-service rows from PostgreSQL tables.
type PostgresStore struct {
	db Querier
}

// NewPostgres builds a Postgres-backed store.
func NewPostgres(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db Querier) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply store schema: %w", err)
	}
	return nil
}

// Insert stores row and returns it as persisted.
func (s *PostgresStore) Insert(ctx context.Context, table string, row dataservice.Row) (dataservice.Row, error) {
	t, err := lookup("insert", table)
	if err != nil {
		return nil, err
	}
	if err := checkColumns("insert", t, row); err != nil {
		return nil, err
	}
	query, args := buildInsert(t, row)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, dataservice.Wrap("insert", err)
	}
	out, err := collect(rows, t)
	if err != nil {
		return nil, dataservice.Wrap("insert", err)
	}
	if len(out) != 1 {
		return nil, dataservice.Errorf("insert", "insert into %s returned %d rows", table, len(out))
	}
	return out[0], nil
}

// Select returns every row of table matching filter.
func (s *PostgresStore) Select(ctx context.Context, table string, filter dataservice.Filter) ([]dataservice.Row, error) {
	t, err := lookup("select", table)
	if err != nil {
		return nil, err
	}
	if err := checkFilter("select", t, filter); err != nil {
		return nil, err
	}
	query, args := buildSelect(t, filter)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, dataservice.Wrap("select", err)
	}
	out, err := collect(rows, t)
	if err != nil {
		return nil, dataservice.Wrap("select", err)
	}
	return out, nil
}

// Update sets values on every row matching filter.
func (s *PostgresStore) Update(ctx context.Context, table string, values dataservice.Row, filter dataservice.Filter) error {
	t, err := lookup("update", table)
	if err != nil {
		return err
	}
	if err := checkColumns("update", t, values); err != nil {
		return err
	}
	if err := checkFilter("update", t, filter); err != nil {
		return err
	}
	if len(values) == 0 {
		return dataservice.Errorf("update", "nothing to update")
	}
	if _, ok := values[t.key()]; ok {
		return dataservice.Errorf("update", "column %q cannot be updated", t.key())
	}
	query, args := buildUpdate(t, values, filter)
	cmd, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return dataservice.Wrap("update", err)
	}
	if cmd.RowsAffected() == 0 {
		return dataservice.NotFound("update", table)
	}
	return nil
}

// Delete removes every row matching filter.
func (s *PostgresStore) Delete(ctx context.Context, table string, filter dataservice.Filter) error {
	t, err := lookup("delete", table)
	if err != nil {
		return err
	}
	if err := checkFilter("delete", t, filter); err != nil {
		return err
	}
	query, args := buildDelete(t, filter)
	cmd, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return dataservice.Wrap("delete", err)
	}
	if cmd.RowsAffected() == 0 {
		return dataservice.NotFound("delete", table)
	}
	return nil
}

var sqlOps = map[dataservice.Op]string{
	dataservice.OpEq:  "=",
	dataservice.OpGte: ">=",
	dataservice.OpLte: "<=",
}

func placeholder(n int, c Column) string {
	if c.Type == "text" {
		return fmt.Sprintf("$%d::text", n)
	}
	return fmt.Sprintf("$%d::text::%s", n, c.Type)
}

func selectExpr(c Column) string {
	if c.Type == "date" {
		return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", c.Name)
	}
	return c.Name + "::text"
}

func returning(t Table) string {
	exprs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		exprs[i] = selectExpr(c)
	}
	return strings.Join(exprs, ", ")
}

func where(t Table, f dataservice.Filter, args []any) (string, []any) {
	if len(f) == 0 {
		return "", args
	}
	conds := make([]string, len(f))
	for i, cond := range f {
		col, _ := t.column(cond.Column)
		args = append(args, cond.Value)
		conds[i] = fmt.Sprintf("%s %s %s", col.Name, sqlOps[cond.Op], placeholder(len(args), col))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func buildInsert(t Table, row dataservice.Row) (string, []any) {
	values := row.Clone()
	if values[t.key()] == "" {
		delete(values, t.key())
	}
	cols := sortedColumns(t, values)
	names := make([]string, 0, len(cols)+1)
	params := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols))
	if _, ok := values[t.key()]; !ok {
		names = append(names, t.key())
		params = append(params, "gen_random_uuid()")
	}
	for _, c := range cols {
		args = append(args, values[c.Name])
		names = append(names, c.Name)
		params = append(params, placeholder(len(args), c))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.Name, strings.Join(names, ", "), strings.Join(params, ", "), returning(t))
	return query, args
}

func buildSelect(t Table, f dataservice.Filter) (string, []any) {
	clause, args := where(t, f, nil)
	return fmt.Sprintf("SELECT %s FROM %s%s", returning(t), t.Name, clause), args
}

func buildUpdate(t Table, values dataservice.Row, f dataservice.Filter) (string, []any) {
	cols := sortedColumns(t, values)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(f))
	for i, c := range cols {
		args = append(args, values[c.Name])
		sets[i] = fmt.Sprintf("%s = %s", c.Name, placeholder(len(args), c))
	}
	clause, args := where(t, f, args)
	return fmt.Sprintf("UPDATE %s SET %s%s", t.Name, strings.Join(sets, ", "), clause), args
}

func buildDelete(t Table, f dataservice.Filter) (string, []any) {
	clause, args := where(t, f, nil)
	return fmt.Sprintf("DELETE FROM %s%s", t.Name, clause), args
}

func collect(rows pgx.Rows, t Table) ([]dataservice.Row, error) {
	defer rows.Close()
	out := []dataservice.Row{}
	for rows.Next() {
		vals := make([]pgtype.Text, len(t.Columns))
		dest := make([]any, len(vals))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(dataservice.Row, len(t.Columns))
		for i, c := range t.Columns {
			if vals[i].Valid {
				row[c.Name] = vals[i].String
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
