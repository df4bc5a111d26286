package extract

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodingCascade is tried in order; the first encoding that round-trips
// cleanly to valid UTF-8 wins. utf-8 is checked directly rather than through
// this list since it needs no transform.
var decodingCascade = []encoding.Encoding{
	unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	charmap.ISO8859_1,
	charmap.Windows1252,
}

func extractText(blobBytes []byte) (Result, error) {
	return Result{FullText: decodePermissive(blobBytes)}, nil
}

// decodePermissive tries utf-8, then utf-16, then latin-1, then cp1252, and
// finally falls back to utf-8 with replacement characters for any bytes that
// don't decode.
func decodePermissive(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	for _, enc := range decodingCascade {
		decoded, err := decodeWith(enc, raw)
		if err == nil && utf8.ValidString(decoded) {
			return decoded
		}
	}
	var buf bytes.Buffer
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		buf.WriteRune(r)
		raw = raw[size:]
	}
	return buf.String()
}

func decodeWith(enc encoding.Encoding, raw []byte) (string, error) {
	reader := transform.NewReader(bytes.NewReader(raw), enc.NewDecoder())
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
