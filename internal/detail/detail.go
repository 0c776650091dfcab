// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package detail extracts paper metadata from a single detail page.
package detail

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// DefaultSelectors match arXiv's /abs/<id> markup.
var DefaultSelectors = types.DetailSelectors{
	Title:       "h1.title.mathjax",
	TitleLabel:  "span.descriptor",
	TitleMarker: "Title:",
	Abstract:    "blockquote.abstract.mathjax",
	Authors:     "div.authors a",
	FullText:    "div.extra-services div.full-text a",
}

// ExtractionError reports that a detail page did not have the expected
// structure. Label is the best identifying text available at the failure
// site: the title when it was already extracted, otherwise the page URL.
type ExtractionError struct {
	URL    string
	Label  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %q: %s", e.Label, e.Reason)
}

func failure(pageURL, title, reason string) *ExtractionError {
	label := title
	if label == "" {
		label = pageURL
	}
	return &ExtractionError{URL: pageURL, Label: label, Reason: reason}
}

// Parse extracts a candidate PaperRecord from a detail page. The returned
// error, when non-nil, is always an *ExtractionError; the record is then the
// zero value and must not be used.
//
// The title is the text node immediately after the title label, and the label
// must read TitleMarker. A missing abstract block yields an empty abstract.
// Authors are the trimmed, non-empty author link texts. The PDF link is the
// first full-text link, resolved against pageURL.
func Parse(body []byte, pageURL string, sel types.DetailSelectors) (types.PaperRecord, error) {
	sel = withDefaults(sel)

	base, err := url.Parse(pageURL)
	if err != nil {
		return types.PaperRecord{}, failure(pageURL, "", fmt.Sprintf("invalid page URL: %v", err))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.PaperRecord{}, failure(pageURL, "", fmt.Sprintf("parsing html: %v", err))
	}

	title, reason := extractTitle(doc, sel)
	if reason != "" {
		return types.PaperRecord{}, failure(pageURL, "", reason)
	}

	pdf, ok := extractPDFLink(doc, base, sel)
	if !ok {
		return types.PaperRecord{}, failure(pageURL, title, "full-text link not found")
	}

	return types.PaperRecord{
		Title:     title,
		Authors:   extractAuthors(doc, sel),
		Abstract:  strings.TrimSpace(doc.Find(sel.Abstract).First().Text()),
		PDFLink:   pdf,
		DetailURL: pageURL,
	}, nil
}

func withDefaults(sel types.DetailSelectors) types.DetailSelectors {
	if sel.Title == "" {
		sel.Title = DefaultSelectors.Title
	}
	if sel.TitleLabel == "" {
		sel.TitleLabel = DefaultSelectors.TitleLabel
	}
	if sel.TitleMarker == "" {
		sel.TitleMarker = DefaultSelectors.TitleMarker
	}
	if sel.Abstract == "" {
		sel.Abstract = DefaultSelectors.Abstract
	}
	if sel.Authors == "" {
		sel.Authors = DefaultSelectors.Authors
	}
	if sel.FullText == "" {
		sel.FullText = DefaultSelectors.FullText
	}
	return sel
}

// extractTitle returns the title or a non-empty failure reason.
func extractTitle(doc *goquery.Document, sel types.DetailSelectors) (string, string) {
	heading := doc.Find(sel.Title).First()
	if heading.Length() == 0 {
		return "", "title heading not found"
	}

	label := heading.Find(sel.TitleLabel).First()
	if label.Length() == 0 {
		return "", "title label not found"
	}
	if got := strings.TrimSpace(label.Text()); got != sel.TitleMarker {
		return "", fmt.Sprintf("unexpected title label %q", got)
	}

	// Skip whitespace-only text between the label and the title; anything
	// else that is not a text node means the structure changed.
	for n := label.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.CommentNode:
			continue
		case html.TextNode:
			if title := strings.TrimSpace(n.Data); title != "" {
				return title, ""
			}
		default:
			return "", "title text not found after label"
		}
	}
	return "", "title text not found after label"
}

func extractAuthors(doc *goquery.Document, sel types.DetailSelectors) []string {
	authors := []string{}
	doc.Find(sel.Authors).Each(func(_ int, a *goquery.Selection) {
		if name := strings.TrimSpace(a.Text()); name != "" {
			authors = append(authors, name)
		}
	})
	return authors
}

func extractPDFLink(doc *goquery.Document, base *url.URL, sel types.DetailSelectors) (string, bool) {
	var link string
	doc.Find(sel.FullText).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		link = base.ResolveReference(ref).String()
		return false
	})
	return link, link != ""
}
