// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"fmt"
	"regexp"

	"github.com/carbonledger/api/internal/database/interfaces"
)

// Build translates req into a repository query:
// (search over Search fields) AND (range) AND (column predicate).
func (res Resource) Build(req Request) (*interfaces.Query, error) {
	query := &interfaces.Query{}

	if req.Search != "" && len(res.Search) > 0 {
		pattern := regexp.QuoteMeta(req.Search)
		group := make([]interfaces.Field, 0, len(res.Search))
		for _, field := range res.Search {
			group = append(group, interfaces.Field{Name: field, Operator: interfaces.OpRegexI, Value: pattern})
		}
		query.OrGroups = append(query.OrGroups, group)
	}

	if res.Range != nil && req.HasRange() {
		fields, err := res.Range.conditions(req.RangeStart, req.RangeEnd)
		if err != nil {
			return nil, err
		}
		query.Conditions = append(query.Conditions, fields...)
	}

	if req.HasPredicate() {
		kind, ok := res.Columns[req.Column]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, req.Column)
		}
		if !validOperator(req.Operator) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOperator, req.Operator)
		}
		fields, err := predicate(req.Column, kind, req.Operator, req.Value)
		if err != nil {
			return nil, err
		}
		query.Conditions = append(query.Conditions, fields...)
	}

	return query, nil
}

func (r *Range) conditions(start, end string) ([]interfaces.Field, error) {
	endField := r.EndField
	if endField == "" {
		endField = r.StartField
	}

	if r.Kind == Number {
		lo, err := parseNumber(start)
		if err != nil {
			return nil, err
		}
		hi, err := parseNumber(end)
		if err != nil {
			return nil, err
		}
		return []interfaces.Field{
			{Name: r.StartField, Operator: interfaces.OpGte, Value: lo},
			{Name: endField, Operator: interfaces.OpLte, Value: hi},
		}, nil
	}

	lo, err := ParseSpan(start)
	if err != nil {
		return nil, err
	}
	hi, err := ParseSpan(end)
	if err != nil {
		return nil, err
	}
	upper := interfaces.Field{Name: endField, Operator: interfaces.OpLt, Value: hi.End}
	if hi.Instant() {
		upper = interfaces.Field{Name: endField, Operator: interfaces.OpLte, Value: hi.End}
	}
	return []interfaces.Field{
		{Name: r.StartField, Operator: interfaces.OpGte, Value: lo.Start},
		upper,
	}, nil
}

func predicate(column string, kind Kind, operator, value string) ([]interfaces.Field, error) {
	switch operator {
	case StartsWith, EndsWith, Contains:
		if kind != String {
			return nil, fmt.Errorf("%w: %s is only valid on text columns, %s is not one", ErrOperatorNotApplicable, operator, column)
		}
		pattern := regexp.QuoteMeta(value)
		switch operator {
		case StartsWith:
			pattern = "^" + pattern
		case EndsWith:
			pattern = pattern + "$"
		}
		return []interfaces.Field{{Name: column, Operator: interfaces.OpRegexI, Value: pattern}}, nil
	}

	switch kind {
	case Number:
		n, err := parseNumber(value)
		if err != nil {
			return nil, err
		}
		return []interfaces.Field{{Name: column, Operator: comparison(operator), Value: n}}, nil

	case Date:
		span, err := ParseSpan(value)
		if err != nil {
			return nil, err
		}
		if span.Instant() {
			return []interfaces.Field{{Name: column, Operator: comparison(operator), Value: span.Start}}, nil
		}
		switch operator {
		case GreaterThan:
			return []interfaces.Field{{Name: column, Operator: interfaces.OpGte, Value: span.End}}, nil
		case LessThan:
			return []interfaces.Field{{Name: column, Operator: interfaces.OpLt, Value: span.Start}}, nil
		default:
			return []interfaces.Field{
				{Name: column, Operator: interfaces.OpGte, Value: span.Start},
				{Name: column, Operator: interfaces.OpLt, Value: span.End},
			}, nil
		}

	default:
		return []interfaces.Field{{Name: column, Operator: comparison(operator), Value: value}}, nil
	}
}

func comparison(operator string) string {
	switch operator {
	case GreaterThan:
		return interfaces.OpGt
	case LessThan:
		return interfaces.OpLt
	default:
		return interfaces.OpEq
	}
}
