package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// docxBody mirrors the subset of WordprocessingML body elements this
// extractor cares about: paragraphs, tables, and paragraph style names.
type docxBody struct {
	XMLName xml.Name    `xml:"body"`
	Content []docxBlock `xml:",any"`
}

type docxBlock struct {
	XMLName xml.Name
	PStyle  *docxPStyle `xml:"pPr>pStyle"`
	Runs    []docxRun   `xml:"r"`
	Rows    []docxRow   `xml:"tr"`
}

type docxPStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paragraphs []docxBlock `xml:"p"`
}

type coreProperties struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
	Subject string `xml:"subject"`
}

func extractDOCX(blobBytes []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(blobBytes), int64(len(blobBytes)))
	if err != nil {
		return Result{}, fmt.Errorf("open docx zip: %w", err)
	}

	meta := extractDOCXCoreProps(zr)

	var structure []Block
	if f := findZipFile(zr, "word/header"); f != nil {
		structure = append(structure, docxHeaderFooterBlocks(zr, f, "Header")...)
	}

	body, err := readDOCXBody(zr, "word/document.xml")
	if err != nil {
		return Result{}, err
	}
	structure = append(structure, docxBlocksFromBody(body)...)

	if f := findZipFile(zr, "word/footer"); f != nil {
		structure = append(structure, docxHeaderFooterBlocks(zr, f, "Footer")...)
	}

	var sb strings.Builder
	for _, b := range structure {
		sb.WriteString(b.Text)
		sb.WriteString("\n")
	}
	return Result{FullText: sb.String(), Structure: structure, Metadata: meta}, nil
}

func readDOCXBody(zr *zip.Reader, name string) (docxBody, error) {
	f, err := zr.Open(name)
	if err != nil {
		return docxBody{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return docxBody{}, err
	}
	var doc struct {
		Body docxBody `xml:"body"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return docxBody{}, fmt.Errorf("unmarshal document.xml: %w", err)
	}
	return doc.Body, nil
}

func docxBlocksFromBody(body docxBody) []Block {
	var blocks []Block
	for _, el := range body.Content {
		switch el.XMLName.Local {
		case "p":
			text := docxRunText(el.Runs)
			if strings.TrimSpace(text) == "" {
				continue
			}
			kind, style := KindParagraph, ""
			if el.PStyle != nil {
				style = el.PStyle.Val
				if strings.HasPrefix(strings.ToLower(style), "heading") {
					kind = KindHeading
				} else if strings.HasPrefix(strings.ToLower(style), "list") {
					kind = KindListItem
				}
			}
			blocks = append(blocks, Block{Kind: kind, Text: text, Style: style})
		case "tbl":
			blocks = append(blocks, docxTableBlock(el))
		}
	}
	return blocks
}

func docxRunText(runs []docxRun) string {
	var sb strings.Builder
	for _, r := range runs {
		for _, t := range r.Text {
			sb.WriteString(t)
		}
	}
	return sb.String()
}

func docxTableBlock(tbl docxBlock) Block {
	var rows []string
	for _, row := range tbl.Rows {
		var cells []string
		for _, cell := range row.Cells {
			var cellText strings.Builder
			for _, p := range cell.Paragraphs {
				cellText.WriteString(docxRunText(p.Runs))
			}
			cells = append(cells, strings.TrimSpace(cellText.String()))
		}
		if rowIsEmpty(cells) {
			continue
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	text := "[TABLE] " + strings.Join(rows, "\n") + " [/TABLE]"
	return Block{Kind: KindTable, Text: text}
}

func rowIsEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func extractDOCXCoreProps(zr *zip.Reader) Metadata {
	f, err := zr.Open("docProps/core.xml")
	if err != nil {
		return Metadata{}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return Metadata{}
	}
	var props coreProperties
	if err := xml.Unmarshal(data, &props); err != nil {
		return Metadata{}
	}
	return Metadata{Title: props.Title, Author: props.Creator, Subject: props.Subject}
}

func findZipFile(zr *zip.Reader, prefix string) *zip.File {
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, ".xml") {
			return f
		}
	}
	return nil
}

func docxHeaderFooterBlocks(zr *zip.Reader, f *zip.File, label string) []Block {
	rc, err := f.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}
	var doc struct {
		Content []docxBlock `xml:",any"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil
	}
	var blocks []Block
	for _, el := range doc.Content {
		if el.XMLName.Local != "p" {
			continue
		}
		text := docxRunText(el.Runs)
		if strings.TrimSpace(text) == "" {
			continue
		}
		blocks = append(blocks, Block{Kind: KindParagraph, Text: fmt.Sprintf("[%s: %s]", label, text)})
	}
	return blocks
}
