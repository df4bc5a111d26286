package extract

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// maxSyncOCRBytes is the size threshold below which OCR fallback is
// performed synchronously; above it callers should treat OCR as async-poll.
const maxSyncOCRBytes = 5 * 1024 * 1024

var (
	pdfStreamPattern = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)
	pdfTextOpPattern = regexp.MustCompile(`\((?:[^()\\]|\\.)*\)\s*Tj|\[(?:[^\[\]]|\\.)*\]\s*TJ`)
	pdfStringPattern = regexp.MustCompile(`\((?:[^()\\]|\\.)*\)`)
)

// extractPDF performs vector text extraction page-by-page. On empty output
// (a scanned/image-only PDF, or a parse failure) it falls back to OCR:
// synchronous for small files, and the caller is expected to poll for large
// ones. A temporary blob created for OCR input is the caller's
// responsibility to clean up; this function only returns recognized text.
func extractPDF(ctx context.Context, blobBytes []byte, ocr OCR) (Result, error) {
	pages := splitPDFPages(blobBytes)
	var sb strings.Builder
	for i, page := range pages {
		text := extractPDFPageText(page)
		if text == "" {
			continue
		}
		if i > 0 && sb.Len() > 0 {
			sb.WriteString("\n\f\n")
		}
		sb.WriteString(text)
	}
	fullText := strings.TrimSpace(sb.String())
	if fullText != "" {
		return Result{FullText: fullText}, nil
	}

	if ocr == nil {
		return Result{}, fmt.Errorf("pdf contains no extractable text and no OCR fallback is configured")
	}
	if len(blobBytes) > maxSyncOCRBytes {
		return Result{}, fmt.Errorf("pdf requires async OCR fallback: %d bytes exceeds sync threshold", len(blobBytes))
	}
	recognized, err := ocr.Recognize(ctx, blobBytes, "application/pdf")
	if err != nil {
		return Result{}, fmt.Errorf("ocr fallback: %w", err)
	}
	return Result{FullText: recognized}, nil
}

// splitPDFPages is a best-effort page splitter: true PDF page boundaries
// require parsing the page tree, so this groups decoded content streams in
// document order and treats each as one "page" for separator purposes.
func splitPDFPages(raw []byte) [][]byte {
	var streams [][]byte
	for _, match := range pdfStreamPattern.FindAllSubmatch(raw, -1) {
		streams = append(streams, decodePDFStream(match[1]))
	}
	if len(streams) == 0 {
		return [][]byte{raw}
	}
	return streams
}

func decodePDFStream(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		// Not flate-compressed (or already plain content stream); use as-is.
		return data
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return out
}

// extractPDFPageText pulls literal string operands out of Tj/TJ show-text
// operators, which covers the common case of simple, non-CID-keyed fonts.
func extractPDFPageText(content []byte) string {
	var sb strings.Builder
	for _, op := range pdfTextOpPattern.FindAll(content, -1) {
		for _, lit := range pdfStringPattern.FindAll(op, -1) {
			sb.WriteString(unescapePDFLiteral(lit))
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func unescapePDFLiteral(lit []byte) string {
	s := string(bytes.Trim(lit, "()"))
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			out.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		switch next {
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case '(', ')', '\\':
			out.WriteByte(next)
		default:
			if next >= '0' && next <= '7' {
				end := i + 2
				for end < len(s) && end < i+4 && s[end] >= '0' && s[end] <= '7' {
					end++
				}
				if code, err := strconv.ParseInt(s[i+1:end], 8, 32); err == nil {
					out.WriteByte(byte(code))
				}
				i = end - 2
				continue
			}
			out.WriteByte(next)
		}
		i++
	}
	return out.String()
}

func extractImage(ctx context.Context, blobBytes []byte, format string, ocr OCR) (Result, error) {
	if ocr == nil {
		return Result{}, fmt.Errorf("image format %s requires OCR and none is configured", format)
	}
	mimeType := "image/" + format
	if format == "jpg" {
		mimeType = "image/jpeg"
	}
	text, err := ocr.Recognize(ctx, blobBytes, mimeType)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: %w", err)
	}
	return Result{FullText: text}, nil
}
