// Copyright (c) 2024 Carbon Ledger
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/schema"
)

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

type listParams struct {
	Search   string `schema:"search"`
	Column   string `schema:"column"`
	Operator string `schema:"operator"`
	Value    string `schema:"value"`
	Page     int    `schema:"page"`
	Limit    int    `schema:"limit"`
}

// Parse decodes list query parameters for the given resource.
func Parse(res Resource, values url.Values) (Request, error) {
	var p listParams
	if err := decoder.Decode(&p, values); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	req := Request{
		Search:   strings.TrimSpace(p.Search),
		Column:   strings.TrimSpace(p.Column),
		Operator: strings.TrimSpace(p.Operator),
		Value:    strings.TrimSpace(p.Value),
		Page:     p.Page,
		Limit:    p.Limit,
	}
	if res.Range != nil {
		req.RangeStart = strings.TrimSpace(values.Get(res.Range.StartParam))
		req.RangeEnd = strings.TrimSpace(values.Get(res.Range.EndParam))
	}
	return req, nil
}

// ParseQuery decodes a raw query string for the given resource.
func ParseQuery(res Resource, rawQuery string) (Request, error) {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return Parse(res, values)
}

// Span is the half-open interval [Start, End) a date value denotes.
// A full timestamp denotes a single instant and has End equal to Start.
type Span struct {
	Start time.Time
	End   time.Time
}

// Instant reports whether the span is a single point in time.
func (s Span) Instant() bool {
	return s.Start.Equal(s.End)
}

// ParseSpan accepts an RFC3339 timestamp, a day (2006-01-02) or a bare year (2006).
func ParseSpan(value string) (Span, error) {
	value = strings.TrimSpace(value)

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return Span{Start: t, End: t}, nil
		}
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return Span{Start: t, End: t.AddDate(0, 0, 1)}, nil
	}
	if len(value) == 4 {
		if t, err := time.Parse("2006", value); err == nil {
			return Span{Start: t, End: t.AddDate(1, 0, 0)}, nil
		}
	}
	return Span{}, fmt.Errorf("%w: %q is not a date", ErrInvalidValue, value)
}

// ParseDate returns the first instant a date value denotes; a bare year maps to January 1st.
func ParseDate(value string) (time.Time, error) {
	span, err := ParseSpan(value)
	if err != nil {
		return time.Time{}, err
	}
	return span.Start, nil
}

// DayOf returns the UTC calendar day containing t.
func DayOf(t time.Time) Span {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return Span{Start: start, End: start.AddDate(0, 0, 1)}
}

func parseNumber(value string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, value)
	}
	return n, nil
}
