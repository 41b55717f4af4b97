package index

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/scielo-forge/exporter/pkg/articlemeta"
	"github.com/scielo-forge/exporter/pkg/httpclient"
)

// Result is the outcome of one adapter command for one document.
type Result map[string]any

// ExporterConfig carries the collaborators shared by all adapters of one run.
type ExporterConfig struct {
	Registry *Registry
	Client   *httpclient.Client
	Logger   hclog.Logger
}

func (c ExporterConfig) logger() hclog.Logger {
	if c.Logger == nil {
		return hclog.NewNullLogger()
	}
	return c.Logger
}

// DocumentExporter runs one command for one document against one index.
// Adapters are single-shot: construct, invoke CommandFunction once, discard.
type DocumentExporter struct {
	index   string
	command Command
	pid     string
	builder PayloadBuilder
	client  *httpclient.Client
	logger  hclog.Logger
	run     func(ctx context.Context) (Result, error)
	spent   bool
}

// NewDocumentExporter resolves the payload builder for the index and binds
// the command handler. Unknown index and unknown command fail with distinct
// InitErrors; builder construction failures (missing index credentials) also
// surface here, before any job is submitted.
func NewDocumentExporter(cfg ExporterConfig, indexName string, command Command, doc *articlemeta.Document) (*DocumentExporter, error) {
	builder, err := cfg.Registry.builder(indexName, doc)
	if err != nil {
		return nil, err
	}

	a := &DocumentExporter{
		index:   indexName,
		command: command,
		pid:     doc.PID,
		builder: builder,
		client:  cfg.Client,
		logger:  cfg.logger().Named("exporter").With("index", indexName, "pid", doc.PID),
	}

	switch command {
	case CommandExport:
		a.run = a.export
	case CommandUpdate:
		a.run = a.update
	case CommandGet:
		a.run = a.get
	case CommandDelete:
		a.run = a.delete
	default:
		return nil, &InitError{Err: ErrInvalidCommand, Value: string(command)}
	}

	return a, nil
}

// CommandFunction invokes the command bound at construction. A second
// invocation fails with ErrSpentAdapter; export and delete mutate the index,
// so repeating them is never safe.
func (a *DocumentExporter) CommandFunction(ctx context.Context) (Result, error) {
	if a.spent {
		return nil, fmt.Errorf("%w: %s %s", ErrSpentAdapter, a.index, a.command)
	}
	a.spent = true
	return a.run(ctx)
}

func (a *DocumentExporter) export(ctx context.Context) (Result, error) {
	payload, err := a.builder.PostRequest(ctx)
	if err != nil {
		return nil, err
	}

	url := a.builder.CreateURL()
	resp, err := a.client.SendJSON(ctx, http.MethodPost, url, a.builder.Params(), payload)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, newHTTPError(prefixExport, a.index, resp.StatusCode, url, a.badRequestDetail(resp))
	}

	body, err := decodeObject(resp)
	if err != nil {
		return nil, err
	}
	result := Result(a.builder.PostResponse(body))
	result["pid"] = a.pid
	a.logger.Debug("export result", "result", result)
	return result, nil
}

func (a *DocumentExporter) update(ctx context.Context) (Result, error) {
	url, err := a.builder.ItemURL()
	if err != nil {
		return nil, err
	}

	getResp, err := a.client.SendJSON(ctx, http.MethodGet, url, a.builder.Params(), nil)
	if err != nil {
		return nil, err
	}
	if !getResp.Success() {
		return nil, newHTTPError(prefixQuery, a.index, getResp.StatusCode, url, "")
	}

	existing, err := decodeObject(getResp)
	if err != nil {
		return nil, err
	}
	payload, err := a.builder.PutRequest(ctx, existing)
	if err != nil {
		return nil, err
	}

	putResp, err := a.client.SendJSON(ctx, http.MethodPut, url, a.builder.Params(), payload)
	if err != nil {
		return nil, err
	}
	if !putResp.Success() {
		return nil, newHTTPError(prefixUpdate, a.index, putResp.StatusCode, url, a.badRequestDetail(putResp))
	}

	result := Result{"pid": a.pid, "status": "UPDATED"}
	a.logger.Debug("update result", "result", result)
	return result, nil
}

func (a *DocumentExporter) get(ctx context.Context) (Result, error) {
	url, err := a.builder.ItemURL()
	if err != nil {
		return nil, err
	}

	resp, err := a.client.SendJSON(ctx, http.MethodGet, url, a.builder.Params(), nil)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, newHTTPError(prefixQuery, a.index, resp.StatusCode, url, "")
	}

	body, err := decodeObject(resp)
	if err != nil {
		return nil, err
	}
	result := Result(body)
	result["pid"] = a.pid
	return result, nil
}

func (a *DocumentExporter) delete(ctx context.Context) (Result, error) {
	url, err := a.builder.ItemURL()
	if err != nil {
		return nil, err
	}

	resp, err := a.client.SendJSON(ctx, http.MethodDelete, url, a.builder.Params(), nil)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, newHTTPError(prefixDelete, a.index, resp.StatusCode, url, "")
	}

	result := Result{"pid": a.pid, "status": "DELETED"}
	a.logger.Debug("delete result", "result", result)
	return result, nil
}

// badRequestDetail extracts the service error detail, only for 400 responses.
func (a *DocumentExporter) badRequestDetail(resp *httpclient.Response) string {
	return badRequestDetail(resp, a.builder)
}

func badRequestDetail(resp *httpclient.Response, builder PayloadBuilder) string {
	if resp.StatusCode != http.StatusBadRequest {
		return ""
	}
	var body map[string]any
	if err := resp.JSON(&body); err != nil {
		return ""
	}
	return builder.ErrorResponse(body)
}

func decodeObject(resp *httpclient.Response) (map[string]any, error) {
	var body map[string]any
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}
	return body, nil
}
