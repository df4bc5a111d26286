package csvingest

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeCascade tries utf-8, then latin-1, then cp1252, then iso-8859-1,
// falling back to utf-8 with replacement characters, matching the reference
// downloader's exact encoding order.
func decodeCascade(raw []byte) string {
	raw = bytes.ReplaceAll(raw, []byte{0x00}, nil)
	if utf8.Valid(raw) {
		return string(raw)
	}
	for _, enc := range []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252, charmap.ISO8859_1} {
		if s, ok := decodeWith(raw, enc); ok {
			return s
		}
	}
	return strings.ToValidUTF8(string(raw), "�")
}

func decodeWith(raw []byte, enc *charmap.Charmap) (string, bool) {
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", false
	}
	return string(out), true
}
