package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/prefect-api/internal/models"
)

// tableSpec describes one resource table. Expressions are written against the
// alias "t"; display joins resolve foreign keys to names.
type tableSpec struct {
	name          string
	columns       []string
	joins         string
	joinSelect    string
	updatable     []string
	ownerColumn   string
	statusColumn  string
	dateColumn    string
	searchColumns []string
}

func (s tableSpec) selectList() string {
	cols := make([]string, 0, len(s.columns)+1)
	for _, c := range s.columns {
		cols = append(cols, "t."+c)
	}
	if s.joinSelect != "" {
		cols = append(cols, s.joinSelect)
	}
	return strings.Join(cols, ", ")
}

func (s tableSpec) from() string {
	if s.joins == "" {
		return " t"
	}
	return " t " + s.joins
}

func (s tableSpec) canUpdate(column string) bool {
	for _, c := range s.updatable {
		if c == column {
			return true
		}
	}
	return false
}

// crudTable implements list/get/update/delete for a single resource table.
// Repositories embed it and add their own Create plus any resource specific queries.
type crudTable[T any] struct {
	db   *sqlx.DB
	spec tableSpec
	now  func() time.Time
}

func newCrudTable[T any](db *sqlx.DB, spec tableSpec) *crudTable[T] {
	return &crudTable[T]{db: db, spec: spec, now: func() time.Time { return time.Now().UTC() }}
}

// List returns rows matching the filter along with the total count.
func (t *crudTable[T]) List(ctx context.Context, filter models.ListFilter) ([]T, int, error) {
	filter.Normalize()
	where, args := t.where(filter)

	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}
	order := fmt.Sprintf("t.%s %s, t.id %s", t.spec.dateColumn, direction, direction)
	if t.spec.dateColumn != "created_at" {
		order = fmt.Sprintf("t.%s %s, t.created_at %s, t.id %s", t.spec.dateColumn, direction, direction, direction)
	}
	offset := (filter.Page - 1) * filter.PageSize

	listQuery := fmt.Sprintf("SELECT %s FROM %s%s%s ORDER BY %s LIMIT %d OFFSET %d",
		t.spec.selectList(), t.spec.name, t.spec.from(), where, order, filter.PageSize, offset)
	items := make([]T, 0)
	if err := t.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", t.spec.name, err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s%s", t.spec.name, t.spec.from(), where)
	var total int
	if err := t.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", t.spec.name, err)
	}
	return items, total, nil
}

func (t *crudTable[T]) where(filter models.ListFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" && t.spec.ownerColumn != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("t.%s = $%d", t.spec.ownerColumn, len(args)))
	}
	if filter.Status != "" && t.spec.statusColumn != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("t.%s = $%d", t.spec.statusColumn, len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("t.%s >= $%d", t.spec.dateColumn, len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("t.%s <= $%d", t.spec.dateColumn, len(args)))
	}
	if term := strings.TrimSpace(filter.Search); term != "" && len(t.spec.searchColumns) > 0 {
		args = append(args, "%"+strings.ToLower(term)+"%")
		parts := make([]string, len(t.spec.searchColumns))
		for i, col := range t.spec.searchColumns {
			parts[i] = fmt.Sprintf("LOWER(COALESCE(%s, '')) LIKE $%d", col, len(args))
		}
		conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
	}

	if len(conditions) == 0 {
		return " WHERE 1=1", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// FindByID returns one row or sql.ErrNoRows.
func (t *crudTable[T]) FindByID(ctx context.Context, id string) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s%s WHERE t.id = $1 LIMIT 1", t.spec.selectList(), t.spec.name, t.spec.from())
	var item T
	if err := t.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find %s by id: %w", t.spec.name, err)
	}
	return &item, nil
}

// insert writes rec (a pointer to a stamped model) and reads it back with its display joins.
func (t *crudTable[T]) insert(ctx context.Context, rec interface{}) (*T, error) {
	named := fmt.Sprintf("WITH t AS (INSERT INTO %s (%s) VALUES (:%s) RETURNING *) SELECT %s FROM%s",
		t.spec.name, strings.Join(t.spec.columns, ", "), strings.Join(t.spec.columns, ", :"), t.spec.selectList(), t.spec.from())
	query, args, err := sqlx.Named(named, rec)
	if err != nil {
		return nil, fmt.Errorf("bind %s insert: %w", t.spec.name, err)
	}
	var item T
	if err := t.db.GetContext(ctx, &item, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return nil, fmt.Errorf("create %s: %w", t.spec.name, err)
	}
	return &item, nil
}

// Update applies only the provided columns and always bumps updated_at.
// Unknown or immutable columns are rejected.
func (t *crudTable[T]) Update(ctx context.Context, id string, fields models.Fields) (*T, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !t.spec.canUpdate(k) {
			return nil, fmt.Errorf("update %s: column %q is not updatable", t.spec.name, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []interface{}{id}
	sets := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		args = append(args, fields[k])
		sets = append(sets, fmt.Sprintf("%s = $%d", k, len(args)))
	}
	args = append(args, t.now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf("WITH t AS (UPDATE %s SET %s WHERE id = $1 RETURNING *) SELECT %s FROM%s",
		t.spec.name, strings.Join(sets, ", "), t.spec.selectList(), t.spec.from())
	var item T
	if err := t.db.GetContext(ctx, &item, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update %s: %w", t.spec.name, err)
	}
	return &item, nil
}

// Delete permanently removes the row. A missing id yields sql.ErrNoRows.
func (t *crudTable[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", t.spec.name)
	res, err := t.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.spec.name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows affected: %w", t.spec.name, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
