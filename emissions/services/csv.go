package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	emissionErrors "github.com/carbonledger/api/emissions/errors"
	"github.com/carbonledger/api/emissions/models"
)

// csvHeaders maps accepted header spellings to record fields.
var csvHeaders = map[string]string{
	"name":             "name",
	"location":         "location",
	"category":         "category",
	"source":           "source",
	"quantity":         "quantity",
	"emission_tracker": "emission_tracker",
	"emissiontracker":  "emission_tracker",
	"scope1":           "scope1",
	"scope_1":          "scope1",
	"scope2":           "scope2",
	"scope_2":          "scope2",
	"scope3":           "scope3",
	"scope_3":          "scope3",
	"date":             "date",
}

// ReadCSV decodes emission rows from r. The first record is the header; unknown
// columns are ignored and blank cells leave the field unset.
func ReadCSV(r io.Reader) ([]models.EmissionInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, emissionErrors.ErrEmptyBatch
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", emissionErrors.ErrInvalidCSV, err)
	}

	columns := make([]string, len(header))
	known := 0
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		columns[i] = csvHeaders[key]
		if columns[i] != "" {
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("%w: header has no known columns", emissionErrors.ErrInvalidCSV)
	}

	var rows []models.EmissionInput
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", emissionErrors.ErrInvalidCSV, err)
		}
		row, err := decodeRow(columns, record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", emissionErrors.ErrInvalidCSV, line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeRow(columns, record []string) (models.EmissionInput, error) {
	var row models.EmissionInput
	for i, cell := range record {
		if i >= len(columns) || columns[i] == "" {
			continue
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		switch columns[i] {
		case "name":
			row.Name = cell
		case "location":
			row.Location = cell
		case "category":
			row.Category = cell
		case "source":
			row.Source = cell
		case "date":
			row.Date = cell
		default:
			n, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return row, fmt.Errorf("%s: %q is not a number", columns[i], cell)
			}
			switch columns[i] {
			case "quantity":
				row.Quantity = &n
			case "emission_tracker":
				row.EmissionTracker = &n
			case "scope1":
				row.Scope1 = &n
			case "scope2":
				row.Scope2 = &n
			case "scope3":
				row.Scope3 = &n
			}
		}
	}
	return row, nil
}
