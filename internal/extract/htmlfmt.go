package extract

import (
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
)

var headingPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.*)$`)

func extractHTML(blobBytes []byte) (Result, error) {
	html := decodePermissive(blobBytes)
	base, _ := url.Parse("about:blank")

	var (
		title string
		body  = html
	)
	if art, err := readability.FromReader(strings.NewReader(html), base); err == nil && strings.TrimSpace(art.Content) != "" {
		body = art.Content
		title = strings.TrimSpace(art.Title)
	}

	md, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return Result{}, err
	}

	var structure []Block
	if title != "" {
		structure = append(structure, Block{Kind: KindHeading, Text: title, Style: "h1"})
	}
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
			structure = append(structure, Block{Kind: KindHeading, Text: strings.TrimSpace(m[2]), Style: m[1]})
			continue
		}
		structure = append(structure, Block{Kind: KindParagraph, Text: trimmed})
	}

	full := strings.TrimSpace(md)
	if title != "" {
		full = title + "\n\n" + full
	}
	return Result{FullText: full, Structure: structure, Metadata: Metadata{Title: title}}, nil
}
