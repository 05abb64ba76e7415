package io

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/segmentation/internal/dataframe"
	"github.com/paveg/segmentation/internal/series"
)

type columnType int

const (
	stringColumn columnType = iota
	intColumn
	floatColumn
)

// Read reads CSV data and returns a DataFrame
func (r *CSVReader) Read() (*dataframe.DataFrame, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) == 0 {
		return dataframe.New(), nil
	}

	var headers []string
	dataRows := records
	if r.options.Header {
		headers = records[0]
		dataRows = records[1:]
	} else {
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
	}

	headers, err = r.normalizeHeaders(headers)
	if err != nil {
		return nil, err
	}

	// Transpose data to work with columns
	columns := make([][]string, len(headers))
	for i := range headers {
		columns[i] = make([]string, len(dataRows))
		for j, row := range dataRows {
			columns[i][j] = row[i]
		}
	}

	seriesList := make([]dataframe.ISeries, 0, len(headers))
	for i, header := range headers {
		s := r.createSeriesFromStrings(header, columns[i])
		seriesList = append(seriesList, s)
	}

	return dataframe.New(seriesList...), nil
}

// normalizeHeaders trims names when configured and rejects duplicates.
func (r *CSVReader) normalizeHeaders(headers []string) ([]string, error) {
	out := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))
	for i, h := range headers {
		if r.options.TrimHeaders {
			h = strings.TrimSpace(h)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate column name %q", h)
		}
		seen[h] = true
		out[i] = h
	}
	return out, nil
}

func (r *CSVReader) isNull(value string) bool {
	for _, token := range r.options.NullValues {
		if value == token {
			return true
		}
	}
	return false
}

// createSeriesFromStrings creates a series from string data, inferring the appropriate type
func (r *CSVReader) createSeriesFromStrings(name string, data []string) dataframe.ISeries {
	valid := make([]bool, len(data))
	for i, v := range data {
		valid[i] = !r.isNull(strings.TrimSpace(v))
	}

	switch r.inferColumnType(data, valid) {
	case intColumn:
		values := make([]int64, len(data))
		for i, v := range data {
			if valid[i] {
				values[i], _ = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			}
		}
		return series.NewWithValidity(name, values, valid, r.mem)
	case floatColumn:
		values := make([]float64, len(data))
		for i, v := range data {
			if valid[i] {
				values[i], _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
			}
		}
		return series.NewWithValidity(name, values, valid, r.mem)
	default:
		return series.NewWithValidity(name, data, valid, r.mem)
	}
}

// inferColumnType picks the most specific type every non-null value parses as.
// A column with no non-null values is a float64 column of nulls, so numeric
// consumers see NaN and string consumers see "".
func (r *CSVReader) inferColumnType(data []string, valid []bool) columnType {
	canBeInt := true
	canBeFloat := true
	hasValue := false

	for i, raw := range data {
		if !valid[i] {
			continue
		}
		hasValue = true
		value := strings.TrimSpace(raw)

		if canBeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canBeInt = false
			}
		}
		if canBeFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canBeFloat = false
			}
		}
		if !canBeFloat {
			break
		}
	}

	switch {
	case !hasValue:
		return floatColumn
	case canBeInt:
		return intColumn
	case canBeFloat:
		return floatColumn
	default:
		return stringColumn
	}
}
