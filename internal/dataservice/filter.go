package dataservice

import (
	"fmt"
	"strings"
)

// Op is a comparison supported in filters.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Condition compares one column against a value.
type Condition struct {
	Column string
	Op     Op
	Value  string
}

// Filter is a conjunction of conditions. The zero value matches every row.
type Filter []Condition

// Eq starts a filter with column = value.
func Eq(column, value string) Filter {
	return Filter{{Column: column, Op: OpEq, Value: value}}
}

// Eq appends column = value.
func (f Filter) Eq(column, value string) Filter {
	return f.with(Condition{Column: column, Op: OpEq, Value: value})
}

// Gte appends column >= value.
func (f Filter) Gte(column, value string) Filter {
	return f.with(Condition{Column: column, Op: OpGte, Value: value})
}

// Lte appends column <= value.
func (f Filter) Lte(column, value string) Filter {
	return f.with(Condition{Column: column, Op: OpLte, Value: value})
}

func (f Filter) with(c Condition) Filter {
	out := make(Filter, 0, len(f)+1)
	out = append(out, f...)
	return append(out, c)
}

// Match evaluates the filter against row. Ordering comparisons are lexical,
// which is correct for ISO dates.
func (f Filter) Match(row Row) bool {
	for _, c := range f {
		v, ok := row[c.Column]
		if !ok {
			return false
		}
		switch c.Op {
		case OpEq:
			if v != c.Value {
				return false
			}
		case OpGte:
			if strings.Compare(v, c.Value) < 0 {
				return false
			}
		case OpLte:
			if strings.Compare(v, c.Value) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Validate checks every condition uses a known operator.
func (f Filter) Validate() error {
	for _, c := range f {
		switch c.Op {
		case OpEq, OpGte, OpLte:
		default:
			return fmt.Errorf("unsupported filter operator %q on %s", c.Op, c.Column)
		}
		if c.Column == "" {
			return fmt.Errorf("filter condition without column")
		}
	}
	return nil
}

func (f Filter) String() string {
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = fmt.Sprintf("%s=%s.%s", c.Column, c.Op, c.Value)
	}
	return strings.Join(parts, "&")
}
