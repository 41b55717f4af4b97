package index

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"

	"github.com/scielo-forge/exporter/pkg/articlemeta"
	"github.com/scielo-forge/exporter/pkg/httpclient"
)

type bulkItem struct {
	pid     string
	builder PayloadBuilder
}

// BulkExporter runs one command for a fixed-order list of documents in a
// single HTTP exchange against the index bulk endpoint. Only export and
// delete exist in bulk form; the item order is fixed at construction and
// array-shaped responses are zipped back to pids in that order.
type BulkExporter struct {
	index  string
	items  []bulkItem
	client *httpclient.Client
	logger hclog.Logger
	run    func(ctx context.Context) ([]Result, error)
	spent  bool
}

// NewBulkExporter resolves one payload builder per document and binds the
// bulk command handler. get and update are invalid commands in bulk mode.
func NewBulkExporter(cfg ExporterConfig, indexName string, command Command, docs []*articlemeta.Document) (*BulkExporter, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("bulk %s adapter requires at least one document", indexName)
	}

	items := make([]bulkItem, 0, len(docs))
	for _, doc := range docs {
		builder, err := cfg.Registry.builder(indexName, doc)
		if err != nil {
			return nil, err
		}
		items = append(items, bulkItem{pid: doc.PID, builder: builder})
	}

	a := &BulkExporter{
		index:  indexName,
		items:  items,
		client: cfg.Client,
		logger: cfg.logger().Named("bulk-exporter").With("index", indexName, "documents", len(items)),
	}

	switch command {
	case CommandExport:
		a.run = a.export
	case CommandDelete:
		a.run = a.delete
	default:
		return nil, &InitError{Err: ErrInvalidCommand, Value: string(command)}
	}

	return a, nil
}

// CommandFunction invokes the bulk command bound at construction, once.
func (a *BulkExporter) CommandFunction(ctx context.Context) ([]Result, error) {
	if a.spent {
		return nil, fmt.Errorf("%w: %s bulk", ErrSpentAdapter, a.index)
	}
	a.spent = true
	return a.run(ctx)
}

func (a *BulkExporter) export(ctx context.Context) ([]Result, error) {
	payloads := make([]map[string]any, 0, len(a.items))
	for _, item := range a.items {
		payload, err := item.builder.PostRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("building payload for %q: %w", item.pid, err)
		}
		payloads = append(payloads, payload)
	}

	endpoint := a.bulkURL()
	resp, err := a.client.SendJSON(ctx, http.MethodPost, endpoint, a.params(), payloads)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, newHTTPError(prefixExport, a.index, resp.StatusCode, endpoint, badRequestDetail(resp, a.items[0].builder))
	}

	var entries []map[string]any
	if err := resp.JSON(&entries); err != nil {
		return nil, err
	}
	if len(entries) != len(a.items) {
		return nil, fmt.Errorf("bulk export to %s answered %d results for %d documents", a.index, len(entries), len(a.items))
	}

	results := make([]Result, 0, len(a.items))
	for i, item := range a.items {
		result := Result(item.builder.PostResponse(entries[i]))
		result["pid"] = item.pid
		results = append(results, result)
	}
	a.logger.Debug("bulk export result", "results", len(results))
	return results, nil
}

func (a *BulkExporter) delete(ctx context.Context) ([]Result, error) {
	ids := make([]string, 0, len(a.items))
	for _, item := range a.items {
		ids = append(ids, item.builder.ID())
	}

	endpoint := a.bulkURL()
	resp, err := a.client.SendJSON(ctx, http.MethodDelete, endpoint, a.params(), ids)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, newHTTPError(prefixDelete, a.index, resp.StatusCode, endpoint, badRequestDetail(resp, a.items[0].builder))
	}

	results := make([]Result, 0, len(a.items))
	for _, item := range a.items {
		results = append(results, Result{"pid": item.pid, "status": "DELETED"})
	}
	a.logger.Debug("bulk delete result", "results", len(results))
	return results, nil
}

// Bulk requests share one set of credentials and one endpoint; every builder
// of the run resolves the same values.
func (a *BulkExporter) bulkURL() string {
	return a.items[0].builder.BulkURL()
}

func (a *BulkExporter) params() url.Values {
	return a.items[0].builder.Params()
}
