// Package factquery assembles parameterized SQL for the fact table
// skpdi_fact_with_money.
//
// It is not an ORM: it only removes the duplication between the handful of
// similar read queries (date filters, status, description search, grouping)
// and produces a statement with Postgres positional placeholders.
package factquery

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Table is the single fact table all built queries read from.
const Table = "skpdi_fact_with_money"

// DefaultStatus is the review status that makes a fact row count.
// Rows in any other status are excluded by the query, not by aggregation.
const DefaultStatus = "Рассмотрено"

// ErrEmptySelect is returned by Build when no select expressions were added.
var ErrEmptySelect = errors.New("factquery: select list is empty")

// Builder is a fluent, order-independent assembler for one SELECT statement.
// Parameterized filters append their values in call order, so placeholders
// always align with the args slice returned by Build.
type Builder struct {
	selects  []string
	where    []string
	groupBy  []string
	having   []string
	orderBy  []string
	distinct bool
	args     []any
}

func New() *Builder {
	return &Builder{}
}

// bind appends a value to the positional args and returns its placeholder.
func (b *Builder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// Select adds select expressions; empty strings are ignored.
func (b *Builder) Select(columns ...string) *Builder {
	for _, c := range columns {
		if c != "" {
			b.selects = append(b.selects, c)
		}
	}
	return b
}

// Distinct makes the statement a SELECT DISTINCT.
func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// MonthStart filters on equality with the month_start column.
func (b *Builder) MonthStart(monthStart time.Time) *Builder {
	b.where = append(b.where, "month_start = "+b.bind(monthStart))
	return b
}

// DateEquals filters on the work date truncated to a calendar day.
func (b *Builder) DateEquals(day time.Time) *Builder {
	b.where = append(b.where, "date_done::date = "+b.bind(day))
	return b
}

// CurrentMonth filters to the current calendar month on the database side.
// No parameter is bound.
func (b *Builder) CurrentMonth() *Builder {
	b.where = append(b.where, "date_trunc('month', date_done) = date_trunc('month', CURRENT_DATE)")
	return b
}

// DateRange filters on the half-open interval [start, end).
func (b *Builder) DateRange(start, end time.Time) *Builder {
	b.where = append(b.where, "date_done::date >= "+b.bind(start))
	b.where = append(b.where, "date_done::date < "+b.bind(end))
	return b
}

// Status filters on the review status. An empty value means DefaultStatus.
func (b *Builder) Status(value string) *Builder {
	if value == "" {
		value = DefaultStatus
	}
	b.where = append(b.where, "status = "+b.bind(value))
	return b
}

// ILikeDescription adds a case-insensitive substring match on description.
// The caller supplies the pattern including any % wildcards.
func (b *Builder) ILikeDescription(pattern string) *Builder {
	b.where = append(b.where, "COALESCE(description::text, '') ILIKE "+b.bind(pattern))
	return b
}

// RawWhere appends an arbitrary clause verbatim. Escape hatch for
// conditions the typed helpers do not cover; empty clauses are ignored.
func (b *Builder) RawWhere(clause string) *Builder {
	if clause != "" {
		b.where = append(b.where, clause)
	}
	return b
}

func (b *Builder) GroupBy(columns ...string) *Builder {
	for _, c := range columns {
		if c != "" {
			b.groupBy = append(b.groupBy, c)
		}
	}
	return b
}

func (b *Builder) Having(clauses ...string) *Builder {
	for _, c := range clauses {
		if c != "" {
			b.having = append(b.having, c)
		}
	}
	return b
}

func (b *Builder) OrderBy(columns ...string) *Builder {
	for _, c := range columns {
		if c != "" {
			b.orderBy = append(b.orderBy, c)
		}
	}
	return b
}

// Build assembles the final statement and its positional arguments.
// It only constructs text; nothing is executed.
func (b *Builder) Build() (string, []any, error) {
	if len(b.selects) == 0 {
		return "", nil, ErrEmptySelect
	}

	selectKw := "SELECT"
	if b.distinct {
		selectKw = "SELECT DISTINCT"
	}

	parts := []string{
		selectKw + "\n    " + strings.Join(b.selects, ",\n    "),
		"FROM " + Table,
	}
	if len(b.where) > 0 {
		parts = append(parts, "WHERE "+strings.Join(b.where, "\n    AND "))
	}
	if len(b.groupBy) > 0 {
		parts = append(parts, "GROUP BY "+strings.Join(b.groupBy, ", "))
	}
	if len(b.having) > 0 {
		parts = append(parts, "HAVING "+strings.Join(b.having, " AND "))
	}
	if len(b.orderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(b.orderBy, ", "))
	}

	args := make([]any, len(b.args))
	copy(args, b.args)
	return strings.Join(parts, "\n") + ";", args, nil
}
