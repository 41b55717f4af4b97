package articlemeta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/scielo-forge/exporter/pkg/httpclient"
)

// DefaultDomain is the public ArticleMeta restful API endpoint.
const DefaultDomain = "http://articlemeta.scielo.org"

// ErrDocumentNotFound reports that a document is absent or empty at the
// source.
var ErrDocumentNotFound = errors.New("articlemeta document not found")

// Identifier names one document within a collection.
type Identifier struct {
	Collection string `json:"collection"`
	PID        string `json:"code"`
}

// Filter restricts a document identifier listing. Nil dates are omitted.
// Callers must clamp future dates to today before building the filter.
type Filter struct {
	Collection string
	FromDate   *time.Time
	UntilDate  *time.Time
}

// Source fetches documents and document identifiers from a metadata
// repository.
type Source interface {
	// Document fetches one document. Returns ErrDocumentNotFound when the
	// record is absent or empty.
	Document(ctx context.Context, collection, pid string) (*Document, error)

	// DocumentIdentifiers lists the (collection, pid) pairs matching the
	// filter.
	DocumentIdentifiers(ctx context.Context, f Filter) ([]Identifier, error)
}

// RestfulClient is a Source backed by the ArticleMeta restful API.
type RestfulClient struct {
	domain string
	client *httpclient.Client
	logger hclog.Logger
}

// NewRestfulClient creates a client for the given domain. An empty domain
// falls back to DefaultDomain.
func NewRestfulClient(domain string, client *httpclient.Client, logger hclog.Logger) *RestfulClient {
	if domain == "" {
		domain = DefaultDomain
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &RestfulClient{
		domain: domain,
		client: client,
		logger: logger.Named("articlemeta"),
	}
}

// Document implements Source.
func (c *RestfulClient) Document(ctx context.Context, collection, pid string) (*Document, error) {
	params := url.Values{}
	params.Set("collection", collection)
	params.Set("code", pid)

	resp, err := c.client.SendJSON(ctx, http.MethodGet, c.domain+"/api/v1/article/", params, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, pid)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("articlemeta returned status %d for %s/%s", resp.StatusCode, collection, pid)
	}

	// The API answers "null" for unknown codes.
	var doc *Document
	if err := resp.JSON(&doc); err != nil {
		return nil, err
	}
	if doc.Empty() {
		return nil, fmt.Errorf("%w: %s/%s", ErrDocumentNotFound, collection, pid)
	}

	c.logger.Debug("fetched document", "collection", collection, "pid", pid)
	return doc, nil
}

// DocumentIdentifiers implements Source.
func (c *RestfulClient) DocumentIdentifiers(ctx context.Context, f Filter) ([]Identifier, error) {
	params := url.Values{}
	params.Set("only_identifiers", "true")
	if f.Collection != "" {
		params.Set("collection", f.Collection)
	}
	if f.FromDate != nil {
		params.Set("from_date", f.FromDate.Format("2006-01-02"))
	}
	if f.UntilDate != nil {
		params.Set("until_date", f.UntilDate.Format("2006-01-02"))
	}

	resp, err := c.client.SendJSON(ctx, http.MethodGet, c.domain+"/api/v1/article/identifiers/", params, nil)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, fmt.Errorf("articlemeta returned status %d listing identifiers", resp.StatusCode)
	}

	var listing struct {
		Objects []Identifier `json:"objects"`
	}
	if err := resp.JSON(&listing); err != nil {
		return nil, err
	}

	c.logger.Debug("listed document identifiers", "count", len(listing.Objects))
	return listing.Objects, nil
}
