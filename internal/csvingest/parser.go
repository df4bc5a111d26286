package csvingest

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// Row is one raw CSV record keyed by header name, mirroring the SAM.gov
// export's column names.
type Row map[string]string

// ParseResult reports what Parse produced plus how many rows it had to
// discard, so a caller can log the error count without aborting ingestion.
type ParseResult struct {
	Rows   []Row
	Errors int
	Robust bool // true if the strict reader failed and the fallback ran
}

// Parse decodes rawCSV with the encoding cascade and parses it with a
// quote-aware reader. If the strict reader fails partway through (a
// genuinely malformed file), Parse falls back to a line-by-line reader
// that tolerates individual bad rows, counting rather than aborting on
// each one.
func Parse(rawCSV []byte) ParseResult {
	content := decodeCascade(rawCSV)

	rows, errCount, err := parseStrict(content)
	if err == nil {
		return ParseResult{Rows: rows, Errors: errCount}
	}

	rows, errCount = parseRobust(content)
	return ParseResult{Rows: rows, Errors: errCount, Robust: true}
}

func parseStrict(content string) ([]Row, int, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, err
	}

	var rows []Row
	errCount := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			errCount++
			if errCount > 1000 {
				return rows, errCount, err
			}
			continue
		}
		rows = append(rows, recordToRow(header, record))
	}
	return rows, errCount, nil
}

// parseRobust splits on newlines and commas directly, tolerating rows that
// don't line up with the header rather than discarding the whole file.
func parseRobust(content string) ([]Row, int) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return nil, 0
	}

	header := splitRobustLine(lines[0])
	var rows []Row
	errCount := 0
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := splitRobustLine(line)
		if len(values) < len(header) {
			errCount++
			continue
		}
		rows = append(rows, recordToRow(header, values))
	}
	return rows, errCount
}

func splitRobustLine(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return parts
}

func recordToRow(header, record []string) Row {
	row := make(Row, len(header))
	for i, h := range header {
		if i < len(record) {
			row[strings.TrimSpace(strings.Trim(h, `"`))] = record[i]
		}
	}
	return row
}
