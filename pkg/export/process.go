package export

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/scielo-forge/exporter/pkg/articlemeta"
	"github.com/scielo-forge/exporter/pkg/index"
)

// DefaultMaxWorkers bounds the worker pool of one processing run.
const DefaultMaxWorkers = 4

// Job identifies one document to process.
type Job struct {
	Collection string
	PID        string
}

// Params composes the collaborators of one processing run.
type Params struct {
	// Source fetches documents by (collection, pid).
	Source articlemeta.Source

	// Index names the target index in Exporters.Registry.
	Index string

	// Command selects the adapter operation.
	Command index.Command

	// Exporters carries the builder registry and HTTP transport.
	Exporters index.ExporterConfig

	// OutputPath receives the results: a directory for per-pid files or a
	// single JSONL file.
	OutputPath string

	// PIDsByCollection lists the documents to process.
	PIDsByCollection map[string][]string

	MaxWorkers int // default: DefaultMaxWorkers

	// OnProgress is invoked once per finished job.
	OnProgress func()

	Logger hclog.Logger
}

func (p *Params) jobs() []Job {
	var jobs []Job
	for collection, pids := range p.PIDsByCollection {
		for _, pid := range pids {
			jobs = append(jobs, Job{Collection: collection, PID: pid})
		}
	}
	return jobs
}

func (p *Params) maxWorkers() int {
	if p.MaxWorkers < 1 {
		return DefaultMaxWorkers
	}
	return p.MaxWorkers
}

func (p *Params) logger() hclog.Logger {
	if p.Logger == nil {
		return hclog.NewNullLogger()
	}
	return p.Logger
}

// fetchDocument loads one document, failing when it is absent or empty.
func fetchDocument(ctx context.Context, source articlemeta.Source, job Job) (*articlemeta.Document, error) {
	doc, err := source.Document(ctx, job.Collection, job.PID)
	if err != nil {
		return nil, err
	}
	if doc.Empty() {
		return nil, fmt.Errorf("%w: %s/%s", articlemeta.ErrDocumentNotFound, job.Collection, job.PID)
	}
	return doc, nil
}

// ProcessExtractedDocuments runs one adapter command per document: fetch,
// build a single-document exporter, invoke it, sink the result. Per-document
// failures are logged with the offending pid and never abort the batch; the
// returned error is non-nil only when the run is interrupted.
func ProcessExtractedDocuments(ctx context.Context, p Params) error {
	log := p.logger().Named("process")
	sink := NewSink(p.OutputPath, log)

	processDocument := func(ctx context.Context, job Job, token *Token) (index.Result, error) {
		if token.Poisoned() {
			return nil, nil
		}
		log.Debug("running command for document", "command", p.Command, "pid", job.PID)

		doc, err := fetchDocument(ctx, p.Source, job)
		if err != nil {
			return nil, err
		}
		adapter, err := index.NewDocumentExporter(p.Exporters, p.Index, p.Command, doc)
		if err != nil {
			return nil, err
		}
		return adapter.CommandFunction(ctx)
	}

	executor, err := NewExecutor(ExecutorConfig[Job, index.Result]{
		Func:       processDocument,
		MaxWorkers: p.maxWorkers(),
		OnSuccess: func(result index.Result, job Job) {
			if result == nil {
				return
			}
			if err := sink.Write(job.PID, result); err != nil {
				log.Error("unable to write result", "pid", job.PID, "error", err)
			}
		},
		OnError: func(err error, job Job) {
			log.Warn("unable to process document", "pid", job.PID, "error", err)
		},
		OnProgress: p.OnProgress,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	return executor.Run(ctx, p.jobs())
}

// ProcessDocumentsInBulk fetches every document first, then runs a single
// bulk adapter call over the successfully fetched set and overwrites the
// output file with one JSON line per item. Fetch failures are logged and
// dropped; when nothing is fetched no bulk call is made and no output is
// written.
func ProcessDocumentsInBulk(ctx context.Context, p Params) error {
	log := p.logger().Named("process-bulk")

	var documents []*articlemeta.Document
	var fetchErrs *multierror.Error

	getDocument := func(ctx context.Context, job Job, token *Token) (*articlemeta.Document, error) {
		if token.Poisoned() {
			return nil, nil
		}
		log.Debug("fetching document", "pid", job.PID)
		return fetchDocument(ctx, p.Source, job)
	}

	executor, err := NewExecutor(ExecutorConfig[Job, *articlemeta.Document]{
		Func:       getDocument,
		MaxWorkers: p.maxWorkers(),
		OnSuccess: func(doc *articlemeta.Document, job Job) {
			if doc != nil {
				documents = append(documents, doc)
			}
		},
		OnError: func(err error, job Job) {
			log.Warn("unable to process document", "pid", job.PID, "error", err)
			fetchErrs = multierror.Append(fetchErrs, fmt.Errorf("%s: %w", job.PID, err))
		},
		OnProgress: p.OnProgress,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	if err := executor.Run(ctx, p.jobs()); err != nil {
		return err
	}

	if fetchErrs != nil {
		log.Warn("documents dropped from bulk run", "count", fetchErrs.Len(), "errors", fetchErrs)
	}
	if len(documents) == 0 {
		log.Info("no documents fetched, skipping bulk call")
		return nil
	}

	adapter, err := index.NewBulkExporter(p.Exporters, p.Index, p.Command, documents)
	if err != nil {
		return err
	}
	results, err := adapter.CommandFunction(ctx)
	if err != nil {
		return err
	}

	log.Debug("writing bulk results", "path", p.OutputPath, "results", len(results))
	return WriteLines(p.OutputPath, results)
}
