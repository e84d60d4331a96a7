// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"fmt"
	"strings"

	"github.com/carbonledger/api/internal/database/interfaces"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToFilter translates a Query into a MongoDB filter document.
// Conditions are emitted under $and so several bounds on one field never collide.
func ToFilter(query *interfaces.Query) (bson.M, error) {
	if query.IsEmpty() {
		return bson.M{}, nil
	}

	clauses := make(bson.A, 0, len(query.Conditions)+len(query.OrGroups))
	for _, field := range query.Conditions {
		clause, err := fieldClause(field)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	for _, group := range query.OrGroups {
		if len(group) == 0 {
			continue
		}
		alternatives := make(bson.A, 0, len(group))
		for _, field := range group {
			clause, err := fieldClause(field)
			if err != nil {
				return nil, err
			}
			alternatives = append(alternatives, clause)
		}
		clauses = append(clauses, bson.M{"$or": alternatives})
	}

	if len(clauses) == 1 {
		return clauses[0].(bson.M), nil
	}
	return bson.M{"$and": clauses}, nil
}

func fieldClause(field interfaces.Field) (bson.M, error) {
	if field.Name == "" || strings.HasPrefix(field.Name, "$") {
		return nil, fmt.Errorf("%w: field name %q", interfaces.ErrInvalidFilter, field.Name)
	}

	switch field.Operator {
	case "", interfaces.OpEq:
		return bson.M{field.Name: field.Value}, nil
	case interfaces.OpNe:
		return bson.M{field.Name: bson.M{"$ne": field.Value}}, nil
	case interfaces.OpGt:
		return bson.M{field.Name: bson.M{"$gt": field.Value}}, nil
	case interfaces.OpGte:
		return bson.M{field.Name: bson.M{"$gte": field.Value}}, nil
	case interfaces.OpLt:
		return bson.M{field.Name: bson.M{"$lt": field.Value}}, nil
	case interfaces.OpLte:
		return bson.M{field.Name: bson.M{"$lte": field.Value}}, nil
	case interfaces.OpIn:
		return bson.M{field.Name: bson.M{"$in": field.Value}}, nil
	case interfaces.OpRegexI:
		pattern, ok := field.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: regex value for %q must be a string", interfaces.ErrInvalidFilter, field.Name)
		}
		return bson.M{field.Name: primitive.Regex{Pattern: pattern, Options: "i"}}, nil
	default:
		return nil, fmt.Errorf("%w: operator %q", interfaces.ErrInvalidFilter, field.Operator)
	}
}

func toSort(fields []interfaces.SortField) bson.D {
	sort := make(bson.D, 0, len(fields))
	for _, f := range fields {
		direction := 1
		if f.Direction < 0 {
			direction = -1
		}
		sort = append(sort, bson.E{Key: f.Field, Value: direction})
	}
	return sort
}

// toUpdateDocument wraps plain field updates in $set and passes operator documents through.
func toUpdateDocument(updates map[string]interface{}) bson.M {
	plain := bson.M{}
	document := bson.M{}
	for key, value := range updates {
		if strings.HasPrefix(key, "$") {
			document[key] = value
			continue
		}
		plain[key] = value
	}
	if len(plain) > 0 {
		switch existing := document["$set"].(type) {
		case bson.M:
			for k, v := range existing {
				plain[k] = v
			}
		case map[string]interface{}:
			for k, v := range existing {
				plain[k] = v
			}
		}
		document["$set"] = plain
	}
	return document
}
