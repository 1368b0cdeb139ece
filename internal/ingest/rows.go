package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column names of the candidate export.
const (
	ColumnCompany          = "Company"
	ColumnInterviewer      = "Interviewer"
	ColumnInterviewerEmail = "Interviewer Email"
	ColumnCandidate        = "Candidate"
	ColumnCandidateEmail   = "Candidate Email"
	ColumnSchedulingMethod = "Scheduling method"
	ColumnAddedOn          = "Added On"
)

const utf8BOM = "\ufeff"

// Row is one CSV line keyed by header name.
type Row map[string]string

// Get returns the trimmed value of column, or "" when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// ReadFile opens path and parses it with ReadRows.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv %q: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv %q: %w", path, err)
	}
	return rows, nil
}

// ReadRows parses delimited text whose first line is a header. Blank lines are
// skipped, values are trimmed and missing trailing columns read as "".
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		columns[i] = strings.TrimSpace(name)
	}

	rows := make([]Row, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		if isBlank(record) {
			continue
		}

		row := make(Row, len(columns))
		for i, name := range columns {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func isBlank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
