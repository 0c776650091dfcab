// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package listing extracts detail-page links and the next-page link from a
// paginated listing page.
package listing

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// DefaultSelectors match arXiv's /list/<category>/recent markup.
var DefaultSelectors = types.ListingSelectors{
	EntryLink:  "dl#articles > dt",
	Pagination: "ul.pagination a",
}

// Parse extracts the ordered detail-page URLs and the next-page URL from a
// listing page. Relative links are resolved against pageURL.
//
// A page without entries yields an empty slice, and entries with a missing or
// unparseable href are skipped. When several pagination links exist, the last
// one in document order is taken as the next page. Only an invalid pageURL or
// an unreadable document is an error.
func Parse(body []byte, pageURL string, sel types.ListingSelectors) (types.ListingPage, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return types.ListingPage{}, fmt.Errorf("parsing listing URL %q: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.ListingPage{}, fmt.Errorf("parsing listing html: %w", err)
	}

	if sel.EntryLink == "" {
		sel.EntryLink = DefaultSelectors.EntryLink
	}
	if sel.Pagination == "" {
		sel.Pagination = DefaultSelectors.Pagination
	}

	page := types.ListingPage{DetailURLs: []string{}}

	doc.Find(sel.EntryLink).Each(func(_ int, entry *goquery.Selection) {
		href, ok := entryHref(entry)
		if !ok {
			return
		}
		if abs, ok := resolve(base, href); ok {
			page.DetailURLs = append(page.DetailURLs, abs)
		}
	})

	var candidates []string
	doc.Find(sel.Pagination).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
			candidates = append(candidates, strings.TrimSpace(href))
		}
	})
	if n := len(candidates); n > 0 {
		if abs, ok := resolve(base, candidates[n-1]); ok {
			page.NextPage = abs
		}
	}

	return page, nil
}

// entryHref returns the first href inside an entry. The entry may itself be
// the anchor.
func entryHref(entry *goquery.Selection) (string, bool) {
	a := entry
	if goquery.NodeName(entry) != "a" {
		a = entry.Find("a[href]").First()
	}
	href, ok := a.Attr("href")
	href = strings.TrimSpace(href)
	return href, ok && href != ""
}

// resolve turns href into an absolute URL without a fragment.
func resolve(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}
