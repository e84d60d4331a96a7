// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interfaces

// Comparison operators understood by every repository backend.
const (
	OpEq     = "="
	OpNe     = "!="
	OpGt     = ">"
	OpGte    = ">="
	OpLt     = "<"
	OpLte    = "<="
	OpIn     = "IN"
	OpRegexI = "REGEX_I" // case-insensitive regular expression, Value is the pattern string
)

// Field is a single predicate on a document field.
type Field struct {
	Name     string      // bson field name, dotted paths allowed
	Value    interface{} // value compared against; a slice for OpIn
	Operator string      // one of the Op* constants; empty means OpEq
}

// Query defines a structured, database-agnostic query.
// Conditions are ANDed. Each OR group is satisfied when any of its fields
// matches, and all groups must be satisfied.
type Query struct {
	Conditions []Field
	OrGroups   [][]Field
}

// Where returns a query with a single equality condition.
func Where(name string, value interface{}) *Query {
	return &Query{Conditions: []Field{{Name: name, Value: value, Operator: OpEq}}}
}

// And returns a copy of q with the given conditions appended.
func (q *Query) And(fields ...Field) *Query {
	out := &Query{}
	if q != nil {
		out.Conditions = append(out.Conditions, q.Conditions...)
		out.OrGroups = append(out.OrGroups, q.OrGroups...)
	}
	out.Conditions = append(out.Conditions, fields...)
	return out
}

// IsEmpty reports whether the query matches every document.
func (q *Query) IsEmpty() bool {
	return q == nil || (len(q.Conditions) == 0 && len(q.OrGroups) == 0)
}
