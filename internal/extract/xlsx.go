package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

type xlsxWorkbook struct {
	Sheets struct {
		Sheet []struct {
			Name    string `xml:"name,attr"`
			SheetID string `xml:"sheetId,attr"`
			RID     string `xml:"id,attr"`
		} `xml:"sheet"`
	} `xml:"sheets"`
}

type xlsxSheetData struct {
	Rows []xlsxRow `xml:"sheetData>row"`
}

type xlsxRow struct {
	Cells []xlsxCell `xml:"c"`
}

type xlsxCell struct {
	Ref   string `xml:"r,attr"`
	Type  string `xml:"t,attr"`
	Value string `xml:"v"`
	Is    struct {
		T string `xml:"t"`
	} `xml:"is"`
}

type xlsxSST struct {
	SI []struct {
		T string `xml:"t"`
	} `xml:"si"`
}

func extractXLSX(blobBytes []byte) (Result, error) {
	if !bytes.HasPrefix(blobBytes, []byte("PK")) {
		return Result{FullText: "[Legacy .xls workbook could not be converted to text]"}, nil
	}
	zr, err := zip.NewReader(bytes.NewReader(blobBytes), int64(len(blobBytes)))
	if err != nil {
		return Result{}, fmt.Errorf("open xlsx zip: %w", err)
	}

	sharedStrings := readSharedStrings(zr)
	workbook, err := readWorkbook(zr)
	if err != nil {
		return Result{}, err
	}

	sheetNames := sheetFileNames(zr)

	var (
		sb     strings.Builder
		blocks []Block
		tables []Table
	)
	for i, sheet := range workbook.Sheets.Sheet {
		sheetFile, ok := sheetNames[i]
		if !ok {
			continue
		}
		rows, err := readSheetRows(zr, sheetFile, sharedStrings)
		if err != nil {
			continue
		}
		header := fmt.Sprintf("=== %s ===", sheet.Name)
		sb.WriteString(header + "\n")
		blocks = append(blocks, Block{Kind: KindHeading, Text: header})

		var gridRows [][]string
		for _, row := range rows {
			nonEmpty := filterEmptyCells(row)
			if len(nonEmpty) == 0 {
				continue
			}
			line := strings.Join(nonEmpty, " | ")
			sb.WriteString(line + "\n")
			blocks = append(blocks, Block{Kind: KindTable, Text: line})
			gridRows = append(gridRows, nonEmpty)
		}
		tables = append(tables, Table{Name: sheet.Name, Rows: gridRows})
	}
	return Result{FullText: sb.String(), Structure: blocks, Tables: tables}, nil
}

func sheetFileNames(zr *zip.Reader) map[int]string {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return sheetOrdinal(names[i]) < sheetOrdinal(names[j]) })
	out := make(map[int]string, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}

func sheetOrdinal(name string) int {
	base := strings.TrimSuffix(strings.TrimPrefix(name, "xl/worksheets/sheet"), ".xml")
	n, _ := strconv.Atoi(base)
	return n
}

func readWorkbook(zr *zip.Reader) (xlsxWorkbook, error) {
	f, err := zr.Open("xl/workbook.xml")
	if err != nil {
		return xlsxWorkbook{}, fmt.Errorf("open workbook.xml: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return xlsxWorkbook{}, err
	}
	var wb xlsxWorkbook
	if err := xml.Unmarshal(data, &wb); err != nil {
		return xlsxWorkbook{}, fmt.Errorf("unmarshal workbook.xml: %w", err)
	}
	return wb, nil
}

func readSharedStrings(zr *zip.Reader) []string {
	f, err := zr.Open("xl/sharedStrings.xml")
	if err != nil {
		return nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil
	}
	var sst xlsxSST
	if err := xml.Unmarshal(data, &sst); err != nil {
		return nil
	}
	out := make([]string, len(sst.SI))
	for i, s := range sst.SI {
		out[i] = s.T
	}
	return out
}

func readSheetRows(zr *zip.Reader, name string, sharedStrings []string) ([][]string, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var sheet xlsxSheetData
	if err := xml.Unmarshal(data, &sheet); err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, cellValue(c, sharedStrings))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func cellValue(c xlsxCell, sharedStrings []string) string {
	switch c.Type {
	case "s":
		idx, err := strconv.Atoi(c.Value)
		if err != nil || idx < 0 || idx >= len(sharedStrings) {
			return ""
		}
		return sharedStrings[idx]
	case "inlineStr":
		return c.Is.T
	default:
		return c.Value
	}
}

func filterEmptyCells(row []string) []string {
	var out []string
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}
