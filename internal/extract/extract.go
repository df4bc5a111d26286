// Package extract decodes the bytes of an uploaded or downloaded document
// into cleaned UTF-8 text, preserving enough structure (headings,
// paragraphs, tables) to rebuild a sensible reading order. Dispatch is by
// file extension first, falling back to content sniffing.
package extract

import (
	"context"
	"path/filepath"
	"strings"
)

// BlockKind identifies the role of one Structure element.
type BlockKind string

const (
	KindHeading   BlockKind = "heading"
	KindParagraph BlockKind = "paragraph"
	KindListItem  BlockKind = "list_item"
	KindTable     BlockKind = "table"
)

// Block is one ordered unit of extracted structure.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text"`
	Style string    `json:"style,omitempty"`
}

// Table is a rectangular grid pulled out of a spreadsheet or document table,
// with fully empty rows already filtered out.
type Table struct {
	Name string     `json:"name,omitempty"`
	Rows [][]string `json:"rows"`
}

// Metadata carries whatever document properties the format exposes.
type Metadata struct {
	Title   string `json:"title,omitempty"`
	Author  string `json:"author,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// Result is the output of extracting one document.
type Result struct {
	FullText  string    `json:"fullText"`
	Structure []Block   `json:"structure"`
	Tables    []Table   `json:"tables,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	Format    string    `json:"format"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// OCR is the external, black-box OCR service invoked for image-native
// content and as a PDF fallback. Implementations live outside this package;
// this interface only describes the contract extract depends on.
type OCR interface {
	// Recognize returns plain text recognized from image bytes.
	Recognize(ctx context.Context, imageBytes []byte, mimeType string) (string, error)
}

// Extract dispatches blobBytes to the extractor matching filenameHint's
// extension, falling back to MIME-sniffing the first 2 KiB, then to
// permissive text decoding. It never returns an error to the caller for a
// single document: failures are reported via Result.Success/Result.Error so
// a batch run can retry without aborting.
func Extract(ctx context.Context, blobBytes []byte, filenameHint string, ocr OCR) Result {
	format := detectFormat(blobBytes, filenameHint)

	var (
		res Result
		err error
	)
	switch format {
	case "pdf":
		res, err = extractPDF(ctx, blobBytes, ocr)
	case "docx":
		res, err = extractDOCX(blobBytes)
	case "doc":
		res = Result{FullText: "[Legacy .doc document could not be converted to text]", Format: "doc", Success: true}
	case "xlsx", "xls":
		res, err = extractXLSX(blobBytes)
	case "csv":
		res, err = extractCSV(blobBytes)
	case "html":
		res, err = extractHTML(blobBytes)
	case "png", "jpg", "jpeg", "tiff":
		res, err = extractImage(ctx, blobBytes, format, ocr)
	default:
		res, err = extractText(blobBytes)
	}
	if err != nil {
		return Result{Format: format, Success: false, Error: err.Error()}
	}
	res.Format = format
	res.Success = true
	res.FullText = Clean(res.FullText)
	return res
}

func detectFormat(blobBytes []byte, filenameHint string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filenameHint), "."))
	switch ext {
	case "pdf", "docx", "doc", "xlsx", "xls", "csv", "html", "htm", "txt", "png", "jpg", "jpeg", "tiff":
		if ext == "htm" {
			return "html"
		}
		return ext
	}
	return sniffFormat(blobBytes)
}

func sniffFormat(blobBytes []byte) string {
	head := blobBytes
	if len(head) > 2048 {
		head = head[:2048]
	}
	switch {
	case strings.HasPrefix(string(head), "%PDF-"):
		return "pdf"
	case len(head) >= 4 && head[0] == 'P' && head[1] == 'K' && head[2] == 0x03 && head[3] == 0x04:
		// OOXML zip container; docx/xlsx distinguished by content inspection
		// elsewhere. Default to docx, the more common attachment type.
		return "docx"
	case len(head) >= 8 && string(head[1:4]) == "PNG":
		return "png"
	case len(head) >= 3 && head[0] == 0xFF && head[1] == 0xD8:
		return "jpg"
	case len(head) >= 4 && (string(head[:4]) == "II*\x00" || string(head[:4]) == "MM\x00*"):
		return "tiff"
	case strings.Contains(strings.ToLower(string(head)), "<html"):
		return "html"
	default:
		return "txt"
	}
}
