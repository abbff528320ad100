// Package query turns a request query string into a parameterised SELECT.
//
// A Builder runs four stages in a fixed order: filter, sort, field
// projection and pagination.  Each stage only records its part of the
// statement, so the result stays an unexecuted Query until a repository
// runs it.
package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking/internal/apperr"
	"github.com/iliyamo/tour-booking/internal/model"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// reserved keys never become filters.
var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

var operators = map[string]string{
	"":    "=",
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
}

// Builder accumulates the stages for one request.  The first failing stage
// stores its error; later stages become no-ops and Query reports it.
type Builder struct {
	schema   model.Schema
	params   url.Values
	q        Query
	fields   []string
	maxLimit int
	err      error
}

// New starts a builder over schema's table selecting every public column.
func New(schema model.Schema, params url.Values) *Builder {
	if params == nil {
		params = url.Values{}
	}
	b := &Builder{schema: schema, params: params}
	b.q.Table = schema.Table
	for _, f := range schema.Fields {
		if !f.Internal {
			b.q.Columns = append(b.q.Columns, f.Column)
		}
	}
	return b
}

// Where adds an implicit condition that is not driven by the query string,
// e.g. a parent scope or the exclusion of secret tours.
func (b *Builder) Where(expr string, args ...any) *Builder {
	b.q.Conds = append(b.q.Conds, expr)
	b.q.Args = append(b.q.Args, args...)
	return b
}

// MaxLimit caps the page size.  Zero leaves it uncapped.
func (b *Builder) MaxLimit(n int) *Builder {
	b.maxLimit = n
	return b
}

// Filter turns every non-reserved key into a condition.  `field=v` is an
// equality (IN when repeated) and `field[op]=v` a comparison.
func (b *Builder) Filter() *Builder {
	if b.err != nil {
		return b
	}
	keys := make([]string, 0, len(b.params))
	for k := range b.params {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		name, op := splitKey(key)
		sqlOp, ok := operators[op]
		if !ok {
			b.err = apperr.BadRequest(fmt.Sprintf("Invalid filter operator: %s", op))
			return b
		}
		f, ok := b.schema.Lookup(name)
		if !ok || f.Internal || f.Kind == model.KindJSON {
			b.err = apperr.BadRequest(fmt.Sprintf("Invalid filter field: %s", name))
			return b
		}

		values := b.params[key]
		args := make([]any, 0, len(values))
		for _, raw := range values {
			v, err := cast(f, raw)
			if err != nil {
				b.err = err
				return b
			}
			args = append(args, v)
		}

		switch {
		case len(args) == 0:
			continue
		case sqlOp == "=" && len(args) > 1:
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
			b.Where(fmt.Sprintf("%s IN (%s)", f.Column, marks), args...)
		default:
			for _, a := range args {
				b.Where(fmt.Sprintf("%s %s ?", f.Column, sqlOp), a)
			}
		}
	}
	return b
}

// Sort reads `sort=a,-b`.  Without it results are newest first.
func (b *Builder) Sort() *Builder {
	if b.err != nil {
		return b
	}
	raw := strings.Join(b.params["sort"], ",")
	b.q.OrderBy = nil
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := "ASC"
		if strings.HasPrefix(part, "-") {
			dir = "DESC"
			part = part[1:]
		}
		f, ok := b.schema.Lookup(part)
		if !ok || f.Internal || f.Kind == model.KindJSON {
			b.err = apperr.BadRequest(fmt.Sprintf("Invalid sort field: %s", part))
			return b
		}
		b.q.OrderBy = append(b.q.OrderBy, f.Column+" "+dir)
	}
	if len(b.q.OrderBy) == 0 {
		if f, ok := b.schema.Lookup("createdAt"); ok {
			b.q.OrderBy = []string{f.Column + " DESC"}
		}
	}
	return b
}

// LimitFields projects `fields=a,b` (id is always kept).  Entries prefixed
// with `-` are removed from the full projection instead.  Unknown names are
// ignored.
func (b *Builder) LimitFields() *Builder {
	if b.err != nil {
		return b
	}
	raw := strings.Join(b.params["fields"], ",")
	if strings.TrimSpace(raw) == "" {
		return b
	}
	include := map[string]bool{}
	exclude := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "", part == "-":
		case strings.HasPrefix(part, "-"):
			exclude[part[1:]] = true
		default:
			include[part] = true
		}
	}

	var cols, names []string
	for _, f := range b.schema.Fields {
		if f.Internal {
			continue
		}
		keep := f.Name == "id"
		if len(include) > 0 {
			keep = keep || include[f.Name]
		} else {
			keep = keep || !exclude[f.Name]
		}
		if keep {
			cols = append(cols, f.Column)
			names = append(names, f.Name)
		}
	}
	b.q.Columns = cols
	b.fields = names
	return b
}

// Paginate applies `page` and `limit`.  Missing or non-positive values fall
// back to page 1 and 100 rows.  A page whose offset does not fit in an int
// is rejected.
func (b *Builder) Paginate() *Builder {
	if b.err != nil {
		return b
	}
	page := positive(b.params.Get("page"), DefaultPage)
	limit := positive(b.params.Get("limit"), DefaultLimit)
	if b.maxLimit > 0 && limit > b.maxLimit {
		limit = b.maxLimit
	}
	if page-1 > math.MaxInt/limit {
		b.err = &apperr.CastError{Path: "page", Value: b.params.Get("page"), Err: strconv.ErrRange}
		return b
	}
	b.q.Limit = limit
	b.q.Offset = (page - 1) * limit
	return b
}

// Apply runs every stage in order.
func (b *Builder) Apply() *Builder {
	return b.Filter().Sort().LimitFields().Paginate()
}

// Fields returns the projected JSON names, or nil when every public field is
// selected.
func (b *Builder) Fields() []string { return b.fields }

// Query returns the accumulated statement or the first stage error.
func (b *Builder) Query() (*Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	q := b.q
	return &q, nil
}

func splitKey(key string) (name, op string) {
	i := strings.IndexByte(key, '[')
	if i <= 0 || !strings.HasSuffix(key, "]") {
		return key, ""
	}
	return key[:i], key[i+1 : len(key)-1]
}

func cast(f model.Field, raw string) (any, error) {
	fail := func(err error) error {
		return &apperr.CastError{Path: f.Name, Value: raw, Err: err}
	}
	switch f.Kind {
	case model.KindNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fail(err)
		}
		return n, nil
	case model.KindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fail(err)
		}
		return v, nil
	case model.KindTime:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fail(fmt.Errorf("not a date"))
	}
	return raw, nil
}

func positive(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
