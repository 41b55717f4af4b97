// Package articlemeta provides the document model and source client for the
// ArticleMeta metadata repository.
package articlemeta

// Author is one document author.
type Author struct {
	GivenNames       string `json:"given_names"`
	Surname          string `json:"surname"`
	ORCID            string `json:"orcid,omitempty"`
	AffiliationIndex string `json:"xref,omitempty"`
}

// Affiliation links an author xref index to an institution.
type Affiliation struct {
	Index       string `json:"index"`
	Institution string `json:"institution"`
}

// Journal holds the journal-level metadata of a document.
type Journal struct {
	Title            string   `json:"title"`
	PublisherName    string   `json:"publisher_name"`
	PublisherCountry string   `json:"publisher_country,omitempty"` // ISO country code
	Languages        []string `json:"languages,omitempty"`
	ElectronicISSN   string   `json:"electronic_issn,omitempty"`
	PrintISSN        string   `json:"print_issn,omitempty"`
}

// Issue holds the issue-level metadata of a document. Sections maps a section
// code to per-language section titles.
type Issue struct {
	Volume           string                       `json:"volume,omitempty"`
	Number           string                       `json:"number,omitempty"`
	SupplementNumber string                       `json:"supplement_number,omitempty"`
	SupplementVolume string                       `json:"supplement_volume,omitempty"`
	Sections         map[string]map[string]string `json:"sections,omitempty"`
}

// FulltextLinks maps a content type ("html", "pdf") to per-language URLs.
type FulltextLinks map[string]map[string]string

// Document is one bibliographic record fetched from ArticleMeta, identified
// by (collection, pid). Immutable once fetched.
type Document struct {
	Collection       string            `json:"collection"`
	PID              string            `json:"code"`
	DOI              string            `json:"doi,omitempty"`
	DOAJID           string            `json:"doaj_id,omitempty"`
	DocumentType     string            `json:"document_type,omitempty"`
	OriginalLanguage string            `json:"original_language,omitempty"`
	SectionCode      string            `json:"section_code,omitempty"`
	Titles           map[string]string `json:"titles,omitempty"`    // language -> title
	Abstracts        map[string]string `json:"abstracts,omitempty"` // language -> abstract
	Keywords         map[string][]string `json:"keywords,omitempty"`

	Authors      []Author      `json:"authors,omitempty"`
	Affiliations []Affiliation `json:"affiliations,omitempty"`
	Journal      Journal       `json:"journal"`
	Issue        Issue         `json:"issue"`

	StartPage string `json:"start_page,omitempty"`
	EndPage   string `json:"end_page,omitempty"`

	// Publication dates in "2006-01-02" or "2006-01" form.
	DocumentPublicationDate string `json:"publication_date,omitempty"`
	IssuePublicationDate    string `json:"issue_publication_date,omitempty"`

	Fulltexts FulltextLinks `json:"fulltexts,omitempty"`
}

// OriginalTitle returns the title in the document's original language.
func (d *Document) OriginalTitle() string {
	return d.Titles[d.OriginalLanguage]
}

// OriginalAbstract returns the abstract in the document's original language.
func (d *Document) OriginalAbstract() string {
	return d.Abstracts[d.OriginalLanguage]
}

// Empty reports whether the record carries no usable data.
func (d *Document) Empty() bool {
	return d == nil || d.PID == ""
}
