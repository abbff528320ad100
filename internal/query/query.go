package query

import (
	"strings"
)

// Query is an unexecuted SELECT.  Conds are ANDed; Limit 0 means no LIMIT.
type Query struct {
	Table   string
	Columns []string
	Conds   []string
	Args    []any
	OrderBy []string
	Limit   int
	Offset  int
}

// SQL renders the statement and its positional arguments.
func (q *Query) SQL() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.Table)

	args := append([]any(nil), q.Args...)
	if len(q.Conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.Conds, " AND "))
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.OrderBy, ", "))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit, q.Offset)
	}
	return b.String(), args
}
