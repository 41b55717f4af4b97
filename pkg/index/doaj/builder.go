// Package doaj builds DOAJ article payloads from ArticleMeta documents.
package doaj

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/scielo-forge/exporter/pkg/articlemeta"
	"github.com/scielo-forge/exporter/pkg/httpclient"
	"github.com/scielo-forge/exporter/pkg/index"
)

const orcidURL = "https://orcid.org"

var orcidPattern = regexp.MustCompile(`^https://orcid\.org/[0-9]{4}-[0-9]{4}-[0-9]{4}-\d{3}[\dX]$`)

// Validation and configuration errors. All of them are per-document fatal
// except ErrNoRequestData, which reports missing API configuration and fails
// adapter construction for the whole run.
var (
	ErrNoRequestData           = errors.New("dados insuficientes para a requisição ao DOAJ")
	ErrNoAuthors               = errors.New("documento não possui autores")
	ErrNoJournalRequiredFields = errors.New("documento não possui metadados obrigatórios do periódico")
	ErrNoISSN                  = errors.New("periódico não possui ISSN registrado no DOAJ")
	ErrNoDOINorLink            = errors.New("documento não possui DOI ou links para texto completo")
)

// Config holds the DOAJ API configuration.
type Config struct {
	// APIURL is the API base, ending in a slash (e.g. "https://doaj.org/api/").
	APIURL string

	// APIKey authenticates every request as a query parameter.
	APIKey string
}

// Builder implements index.PayloadBuilder for one document against the DOAJ
// article API.
type Builder struct {
	doc    *articlemeta.Document
	cfg    Config
	client *httpclient.Client
	now    func() string
	data   map[string]any
}

// Factory returns an index.BuilderFactory bound to the given API
// configuration and transport, for registration under the "doaj" index name.
func Factory(cfg Config, client *httpclient.Client) index.BuilderFactory {
	return func(doc *articlemeta.Document) (index.PayloadBuilder, error) {
		return NewBuilder(cfg, client, doc)
	}
}

// NewBuilder validates the API configuration and primes the payload with the
// document's known DOAJ id, when present.
func NewBuilder(cfg Config, client *httpclient.Client, doc *articlemeta.Document) (*Builder, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%w: DOAJ API URL não configurada", ErrNoRequestData)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: DOAJ API key não configurada", ErrNoRequestData)
	}

	b := &Builder{
		doc:    doc,
		cfg:    cfg,
		client: client,
		now:    utcNow,
		data:   map[string]any{},
	}
	if doc.DOAJID != "" {
		b.data["id"] = doc.DOAJID
	}
	return b, nil
}

func utcNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}

// ID returns the DOAJ-side article id, or "" when unknown.
func (b *Builder) ID() string {
	id, _ := b.data["id"].(string)
	return id
}

// Params returns the API key credentials attached to every request.
func (b *Builder) Params() url.Values {
	return url.Values{"api_key": []string{b.cfg.APIKey}}
}

// CreateURL is the article creation endpoint.
func (b *Builder) CreateURL() string {
	return b.cfg.APIURL + "articles"
}

// ItemURL is the per-article CRUD endpoint; it requires a known DOAJ id.
func (b *Builder) ItemURL() (string, error) {
	id := b.ID()
	if id == "" {
		return "", fmt.Errorf("%w: documento sem id no DOAJ", ErrNoRequestData)
	}
	return b.cfg.APIURL + "articles/" + id, nil
}

// BulkURL is the bulk articles endpoint.
func (b *Builder) BulkURL() string {
	return b.cfg.APIURL + "bulk/articles"
}

// PostRequest builds the creation payload: both created_date and
// last_updated are stamped and the bibjson block is assembled from the
// document.
func (b *Builder) PostRequest(ctx context.Context) (map[string]any, error) {
	now := b.now()
	b.data["created_date"] = now
	b.data["last_updated"] = now
	if err := b.buildBibjson(ctx); err != nil {
		return nil, err
	}
	return b.data, nil
}

// PutRequest merges the document's current data onto the representation
// fetched from DOAJ. Fields of existing not overwritten by the document
// survive unchanged (created_date in particular); last_updated is always
// refreshed.
func (b *Builder) PutRequest(ctx context.Context, existing map[string]any) (map[string]any, error) {
	b.data = make(map[string]any, len(existing))
	for key, value := range existing {
		b.data[key] = value
	}
	b.data["last_updated"] = b.now()
	if err := b.buildBibjson(ctx); err != nil {
		return nil, err
	}
	return b.data, nil
}

// PostResponse maps the creation response body.
func (b *Builder) PostResponse(body map[string]any) map[string]any {
	return map[string]any{
		"index_id": body["id"],
		"status":   body["status"],
	}
}

// ErrorResponse extracts the service error detail string.
func (b *Builder) ErrorResponse(body map[string]any) string {
	detail, _ := body["error"].(string)
	return detail
}

func (b *Builder) buildBibjson(ctx context.Context) error {
	bibjson, ok := b.data["bibjson"].(map[string]any)
	if !ok {
		bibjson = map[string]any{}
		b.data["bibjson"] = bibjson
	}

	var errs *multierror.Error

	b.setAbstract(bibjson)
	errs = multierror.Append(errs, b.setAuthors(bibjson))
	errs = multierror.Append(errs, b.setIdentifiers(ctx, bibjson))
	errs = multierror.Append(errs, b.setJournal(bibjson))
	b.setKeywords(bibjson)
	errs = multierror.Append(errs, b.setLinks(bibjson))
	b.setTitle(bibjson)
	b.setMonthAndYear(bibjson)
	if b.doc.DocumentType != "" {
		b.data["es_type"] = b.doc.DocumentType
	}

	return errs.ErrorOrNil()
}

func (b *Builder) setAbstract(bibjson map[string]any) {
	if abstract := b.doc.OriginalAbstract(); abstract != "" {
		bibjson["abstract"] = abstract
	}
}

func (b *Builder) setAuthors(bibjson map[string]any) error {
	if len(b.doc.Authors) == 0 {
		return ErrNoAuthors
	}

	institutions := make(map[string]string, len(b.doc.Affiliations))
	for _, aff := range b.doc.Affiliations {
		institutions[aff.Index] = aff.Institution
	}

	authors := make([]map[string]any, 0, len(b.doc.Authors))
	for _, author := range b.doc.Authors {
		entry := map[string]any{
			"name": strings.Join([]string{author.GivenNames, author.Surname}, " "),
		}
		if author.AffiliationIndex != "" {
			entry["affiliation"] = institutions[author.AffiliationIndex]
		}
		if author.ORCID != "" {
			full := orcidURL + "/" + author.ORCID
			if orcidPattern.MatchString(full) {
				entry["orcid_id"] = full
			}
		}
		authors = append(authors, entry)
	}

	bibjson["author"] = authors
	return nil
}

// registeredISSN looks the journal up in the DOAJ journal search endpoint and
// returns the ISSN under which it is registered.
func (b *Builder) registeredISSN(ctx context.Context) (issn, issnType string, err error) {
	for _, candidate := range []string{b.doc.Journal.ElectronicISSN, b.doc.Journal.PrintISSN} {
		if candidate == "" {
			continue
		}

		resp, err := b.client.SendJSON(ctx, http.MethodGet, b.cfg.APIURL+"search/journals/issn:"+candidate, nil, nil)
		if err != nil {
			return "", "", err
		}
		if !resp.Success() {
			continue
		}

		var search struct {
			Results []struct {
				Bibjson struct {
					EISSN string `json:"eissn"`
					PISSN string `json:"pissn"`
				} `json:"bibjson"`
			} `json:"results"`
		}
		if err := resp.JSON(&search); err != nil || len(search.Results) == 0 {
			continue
		}

		registered := search.Results[0].Bibjson
		if registered.EISSN != "" {
			return registered.EISSN, "eissn", nil
		}
		return registered.PISSN, "pissn", nil
	}
	return "", "", ErrNoISSN
}

func (b *Builder) setIdentifiers(ctx context.Context, bibjson map[string]any) error {
	issn, issnType, err := b.registeredISSN(ctx)
	if err != nil {
		return err
	}

	identifiers := []map[string]any{{"id": issn, "type": issnType}}
	if b.doc.DOI != "" {
		identifiers = append(identifiers, map[string]any{"id": b.doc.DOI, "type": "doi"})
	}
	bibjson["identifier"] = identifiers
	return nil
}

// issueLabel normalizes the issue number: "ahead" markers and bare zeroes are
// stripped, supplements appended.
func (b *Builder) issueLabel() string {
	issue := b.doc.Issue
	label := strings.ReplaceAll(issue.Number, "ahead", "")

	if issue.SupplementNumber != "" {
		label += " suppl " + issue.SupplementNumber
	}
	if issue.SupplementVolume != "" {
		label += " suppl " + issue.SupplementVolume
	}

	label = strings.TrimPrefix(label, "0 ")
	label = strings.TrimSuffix(label, " 0")
	return strings.TrimSpace(label)
}

func (b *Builder) setJournal(bibjson map[string]any) error {
	journal := map[string]any{}
	var errs *multierror.Error

	if b.doc.Journal.PublisherCountry == "" {
		errs = multierror.Append(errs, fmt.Errorf("%w: país do publicador", ErrNoJournalRequiredFields))
	} else {
		journal["country"] = b.doc.Journal.PublisherCountry
	}

	if len(b.doc.Journal.Languages) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: idiomas", ErrNoJournalRequiredFields))
	} else {
		journal["language"] = b.doc.Journal.Languages
	}

	if b.doc.Journal.PublisherName == "" {
		errs = multierror.Append(errs, fmt.Errorf("%w: nome do publicador", ErrNoJournalRequiredFields))
	} else {
		journal["publisher"] = b.doc.Journal.PublisherName
	}

	if b.doc.Journal.Title == "" {
		errs = multierror.Append(errs, fmt.Errorf("%w: título do periódico", ErrNoJournalRequiredFields))
	} else {
		journal["title"] = b.doc.Journal.Title
	}

	if b.doc.Issue.Volume != "" {
		journal["volume"] = b.doc.Issue.Volume
	}
	if label := b.issueLabel(); label != "" {
		journal["number"] = label
	}
	if b.doc.StartPage != "" {
		journal["start_page"] = b.doc.StartPage
	}
	if b.doc.EndPage != "" {
		journal["end_page"] = b.doc.EndPage
	}

	bibjson["journal"] = journal
	return errs.ErrorOrNil()
}

func (b *Builder) setKeywords(bibjson map[string]any) {
	if keywords := b.doc.Keywords[b.doc.OriginalLanguage]; len(keywords) > 0 {
		bibjson["keywords"] = keywords
	}
}

var mimeTypes = map[string]string{
	"html": "text/html",
	"pdf":  "application/pdf",
}

func (b *Builder) setLinks(bibjson map[string]any) error {
	var links []map[string]any
	for contentType, byLanguage := range b.doc.Fulltexts {
		for _, fulltextURL := range byLanguage {
			if fulltextURL == "" {
				continue
			}
			links = append(links, map[string]any{
				"content_type": mimeTypes[contentType],
				"type":         "fulltext",
				"url":          fulltextURL,
			})
		}
	}
	if len(links) > 0 {
		bibjson["link"] = links
	}

	if len(links) == 0 && b.doc.DOI == "" {
		return ErrNoDOINorLink
	}
	return nil
}

func (b *Builder) setTitle(bibjson map[string]any) {
	title := b.doc.OriginalTitle()
	if title == "" {
		// Untitled documents fall back to the issue section title.
		title = b.doc.Issue.Sections[b.doc.SectionCode][b.doc.OriginalLanguage]
	}
	if title == "" {
		title = "Documento sem título"
	}
	bibjson["title"] = title
}

func (b *Builder) setMonthAndYear(bibjson map[string]any) {
	raw := b.doc.DocumentPublicationDate
	if raw == "" {
		raw = b.doc.IssuePublicationDate
	}

	pubDate, err := time.Parse("2006-01-02", raw)
	if err != nil {
		pubDate, err = time.Parse("2006-01", raw)
	}
	if err != nil {
		// Unparseable dates are passed through as the year verbatim.
		bibjson["year"] = raw
		return
	}

	bibjson["month"] = int(pubDate.Month())
	bibjson["year"] = pubDate.Year()
}
