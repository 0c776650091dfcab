// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PaperRecord is one accepted paper: the unit of output handed to the report
// writer. A record in a crawl result always has a non-empty Title and PDFLink.
// Authors and Abstract may be empty but are never nil/absent in serialized form.
type PaperRecord struct {
	// Title is the paper title as rendered on the detail page.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in page order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the abstract block text, possibly empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// PDFLink is the absolute URL of the full-text PDF.
	PDFLink string `json:"pdf_link" yaml:"pdf_link"`

	// DetailURL is the absolute URL of the detail page the record was parsed from.
	DetailURL string `json:"detail_url" yaml:"detail_url"`

	// EvaluationNote is the evaluator's rationale. Set only when the LLM
	// evaluation ran and accepted the paper.
	EvaluationNote string `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
}

// WithEvaluation returns a copy of r carrying the given rationale.
func (r PaperRecord) WithEvaluation(note string) PaperRecord {
	out := r
	out.Authors = append([]string{}, r.Authors...)
	out.EvaluationNote = note
	return out
}

// Valid reports whether r satisfies the record invariant: non-empty title and PDF link.
func (r PaperRecord) Valid() bool {
	return r.Title != "" && r.PDFLink != ""
}

// ListingPage is the parsed content of one listing page. It is transient and
// never persisted.
type ListingPage struct {
	// DetailURLs are absolute detail-page URLs in document order.
	DetailURLs []string

	// NextPage is the absolute URL of the next listing page, or "" when the
	// listing has no pagination link.
	NextPage string
}

// HasNext reports whether the listing links to a further page.
func (p ListingPage) HasNext() bool {
	return p.NextPage != ""
}
