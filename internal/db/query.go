package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func mustIdent(name string) string {
	if !identRe.MatchString(name) {
		panic(fmt.Sprintf("db: invalid identifier %q", name))
	}
	return name
}

// Where accumulates AND-ed conditions written with ? placeholders.
type Where struct {
	conds []string
	args  []any
}

// NewWhere starts a condition list with cond.
func NewWhere(cond string, args ...any) *Where {
	w := &Where{}
	return w.And(cond, args...)
}

// And appends cond.
func (w *Where) And(cond string, args ...any) *Where {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
	return w
}

// AndIf appends cond only when ok.
func (w *Where) AndIf(ok bool, cond string, args ...any) *Where {
	if ok {
		return w.And(cond, args...)
	}
	return w
}

// Build renders "cond1 AND cond2 ..." with $n placeholders numbered from start.
// It returns the clause, the args and the next free placeholder number.
func (w *Where) Build(start int) (string, []any, int) {
	clause := strings.Join(w.conds, " AND ")
	var b strings.Builder
	n := start
	for _, r := range clause {
		if r == '?' {
			b.WriteString("$" + strconv.Itoa(n))
			n++
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), append([]any(nil), w.args...), n
}

// Live returns the base filter for org-scoped soft-deleted tables.
func Live(orgID string) *Where {
	return NewWhere("org_id = ?", orgID).And("deleted_at IS NULL")
}

// SelectPage renders "SELECT cols FROM table WHERE ... ORDER BY order LIMIT $n OFFSET $m".
// limit <= 0 omits the LIMIT clause.
func SelectPage(cols, table string, w *Where, order string, limit, offset int32) (string, []any) {
	clause, args, n := w.Build(1)
	q := "SELECT " + cols + " FROM " + mustIdent(table) + " WHERE " + clause
	if order != "" {
		q += " ORDER BY " + order
	}
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", n, n+1)
		args = append(args, limit, offset)
	}
	return q, args
}

// SoftDelete stamps deleted_at on one live row of table owned by orgID.
// It reports whether a row was affected.
func SoftDelete(ctx context.Context, q Querier, table, orgID, id string, at time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		"UPDATE "+mustIdent(table)+" SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND org_id = $3 AND deleted_at IS NULL",
		at, id, orgID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Exists reports whether a live row with id exists in table for orgID.
func Exists(ctx context.Context, q Querier, table, orgID, id string) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM "+mustIdent(table)+" WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL)",
		id, orgID).Scan(&ok)
	return ok, err
}

// NullString maps "" to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullTime maps nil to NULL.
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// TimePtr maps NULL to nil.
func TimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// FloatPtr maps NULL to nil.
func FloatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
