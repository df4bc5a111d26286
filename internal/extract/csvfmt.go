package extract

import (
	"encoding/csv"
	"fmt"
	"strings"
)

const csvPreviewRows = 100

func extractCSV(blobBytes []byte) (Result, error) {
	text := decodePermissive(blobBytes)
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		lines     []string
		rowCount  int
		blocks    []Block
	)
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		if rowCount <= csvPreviewRows {
			lines = append(lines, strings.Join(record, " | "))
		}
		rowCount++
	}
	if rowCount > csvPreviewRows+1 {
		lines = append(lines, fmt.Sprintf("… and %d more rows", rowCount-csvPreviewRows-1))
	}
	full := strings.Join(lines, "\n")
	blocks = append(blocks, Block{Kind: KindTable, Text: full})
	return Result{FullText: full, Structure: blocks}, nil
}
