package index

import (
	"context"
	"net/url"
	"sort"

	"github.com/scielo-forge/exporter/pkg/articlemeta"
)

// PayloadBuilder produces and validates CRUD payloads for one document
// against one index. Implementations raise typed validation errors when
// required fields are absent; those errors surface through the adapter and
// are isolated per document by the job executor.
type PayloadBuilder interface {
	// ID returns the index-side identifier of the document, or "" when the
	// document was never exported.
	ID() string

	// Params returns the query parameters attached to every request
	// (credentials and the like).
	Params() url.Values

	// CreateURL is the collection endpoint used by export.
	CreateURL() string

	// ItemURL is the per-item endpoint used by update, get and delete. It
	// fails when the index-side identifier is unknown.
	ItemURL() (string, error)

	// BulkURL is the bulk collection endpoint.
	BulkURL() string

	// PostRequest builds the creation payload. Blocking: implementations may
	// consult the index (e.g. journal registration lookups).
	PostRequest(ctx context.Context) (map[string]any, error)

	// PutRequest merges the document's current data onto the representation
	// previously fetched from the index. Fields of existing that the
	// document does not overwrite must survive unchanged.
	PutRequest(ctx context.Context, existing map[string]any) (map[string]any, error)

	// PostResponse maps the service response body of a creation.
	PostResponse(body map[string]any) map[string]any

	// ErrorResponse extracts the service-provided error detail string.
	ErrorResponse(body map[string]any) string
}

// BuilderFactory constructs a PayloadBuilder for one document.
type BuilderFactory func(doc *articlemeta.Document) (PayloadBuilder, error)

// Registry maps index names to payload builder factories, so multiple index
// back ends satisfy the same adapter contract.
type Registry struct {
	factories map[string]BuilderFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]BuilderFactory)}
}

// Register binds an index name to a builder factory.
func (r *Registry) Register(index string, factory BuilderFactory) {
	r.factories[index] = factory
}

// Indexes returns the registered index names, sorted.
func (r *Registry) Indexes() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) builder(index string, doc *articlemeta.Document) (PayloadBuilder, error) {
	factory, ok := r.factories[index]
	if !ok {
		return nil, &InitError{Err: ErrInvalidIndex, Value: index}
	}
	return factory(doc)
}
