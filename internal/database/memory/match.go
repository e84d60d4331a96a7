// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package memory

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/carbonledger/api/internal/database/interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type predicate func(doc bson.M) bool

// compile turns a Query into a predicate with MongoDB matching semantics:
// comparisons only succeed between values of the same type class, and a
// condition on an array field succeeds when any element satisfies it.
func compile(query *interfaces.Query) (predicate, error) {
	if query.IsEmpty() {
		return func(bson.M) bool { return true }, nil
	}

	var all []predicate
	for _, field := range query.Conditions {
		p, err := compileField(field)
		if err != nil {
			return nil, err
		}
		all = append(all, p)
	}

	for _, group := range query.OrGroups {
		if len(group) == 0 {
			continue
		}
		var anyOf []predicate
		for _, field := range group {
			p, err := compileField(field)
			if err != nil {
				return nil, err
			}
			anyOf = append(anyOf, p)
		}
		all = append(all, func(doc bson.M) bool {
			for _, p := range anyOf {
				if p(doc) {
					return true
				}
			}
			return false
		})
	}

	return func(doc bson.M) bool {
		for _, p := range all {
			if !p(doc) {
				return false
			}
		}
		return true
	}, nil
}

func compileField(field interfaces.Field) (predicate, error) {
	if field.Name == "" || strings.HasPrefix(field.Name, "$") {
		return nil, fmt.Errorf("%w: field name %q", interfaces.ErrInvalidFilter, field.Name)
	}
	name := field.Name

	switch field.Operator {
	case "", interfaces.OpEq:
		want, err := normalizeQueryValue(field.Value)
		if err != nil {
			return nil, err
		}
		return func(doc bson.M) bool { return matchesEqual(lookup(doc, name), want) }, nil

	case interfaces.OpNe:
		want, err := normalizeQueryValue(field.Value)
		if err != nil {
			return nil, err
		}
		return func(doc bson.M) bool { return !matchesEqual(lookup(doc, name), want) }, nil

	case interfaces.OpGt, interfaces.OpGte, interfaces.OpLt, interfaces.OpLte:
		want, err := normalizeQueryValue(field.Value)
		if err != nil {
			return nil, err
		}
		op := field.Operator
		return func(doc bson.M) bool {
			return anyElement(lookup(doc, name), func(v interface{}) bool {
				c := compareValues(v, want)
				if c == incomparable {
					return false
				}
				switch op {
				case interfaces.OpGt:
					return c > 0
				case interfaces.OpGte:
					return c >= 0
				case interfaces.OpLt:
					return c < 0
				default:
					return c <= 0
				}
			})
		}, nil

	case interfaces.OpIn:
		raw, err := normalizeQueryValue(field.Value)
		if err != nil {
			return nil, err
		}
		candidates, ok := raw.(bson.A)
		if !ok {
			return nil, fmt.Errorf("%w: IN value for %q must be a list", interfaces.ErrInvalidFilter, name)
		}
		return func(doc bson.M) bool {
			value := lookup(doc, name)
			for _, c := range candidates {
				if matchesEqual(value, c) {
					return true
				}
			}
			return false
		}, nil

	case interfaces.OpRegexI:
		pattern, ok := field.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: regex value for %q must be a string", interfaces.ErrInvalidFilter, name)
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidFilter, err)
		}
		return func(doc bson.M) bool {
			return anyElement(lookup(doc, name), func(v interface{}) bool {
				s, ok := v.(string)
				return ok && re.MatchString(s)
			})
		}, nil

	default:
		return nil, fmt.Errorf("%w: operator %q", interfaces.ErrInvalidFilter, field.Operator)
	}
}

// lookup resolves a dotted path; missing fields resolve to nil.
func lookup(doc bson.M, path string) interface{} {
	var current interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(bson.M)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return normalize(current)
}

func anyElement(value interface{}, fn func(interface{}) bool) bool {
	if arr, ok := value.(bson.A); ok {
		for _, v := range arr {
			if fn(normalize(v)) {
				return true
			}
		}
		return false
	}
	return fn(value)
}

func matchesEqual(value, want interface{}) bool {
	if equalValues(value, want) {
		return true
	}
	if _, wantArray := want.(bson.A); wantArray {
		return false
	}
	if arr, ok := value.(bson.A); ok {
		for _, v := range arr {
			if equalValues(normalize(v), want) {
				return true
			}
		}
	}
	return false
}

// normalizeQueryValue encodes a query operand the same way stored documents are encoded.
func normalizeQueryValue(value interface{}) (interface{}, error) {
	doc, err := toDocument(bson.M{"v": value})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidFilter, err)
	}
	return normalize(doc["v"]), nil
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}

const incomparable = -2

// compareValues orders two normalized values of the same type class.
func compareValues(a, b interface{}) int {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return incomparable
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y, ok := b.(string)
		if !ok {
			return incomparable
		}
		return strings.Compare(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return incomparable
		}
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
		return 0
	case bool:
		y, ok := b.(bool)
		if !ok {
			return incomparable
		}
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case nil:
		if b == nil {
			return 0
		}
		return -1
	default:
		if b == nil {
			return 1
		}
		return incomparable
	}
}

func equalValues(a, b interface{}) bool {
	a, b = normalize(a), normalize(b)
	if c := compareValues(a, b); c != incomparable {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}
