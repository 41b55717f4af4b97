// Package doaj implements the "doaj export|update|get|delete" CLI commands.
package doaj

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-hclog"

	"github.com/scielo-forge/exporter/internal/cmd/base"
	"github.com/scielo-forge/exporter/internal/config"
	"github.com/scielo-forge/exporter/pkg/articlemeta"
	"github.com/scielo-forge/exporter/pkg/export"
	"github.com/scielo-forge/exporter/pkg/httpclient"
	"github.com/scielo-forge/exporter/pkg/index"
	"github.com/scielo-forge/exporter/pkg/index/doaj"
)

// ExitCodeInterrupt follows the shell convention of 128 + SIGINT.
const ExitCodeInterrupt = 130

const indexName = "doaj"

// Command runs one DOAJ operation over a set of documents.
type Command struct {
	*base.Command

	op        index.Command
	allowBulk bool

	flagConfig     string
	flagCollection string
	flagPID        string
	flagPIDs       string
	flagFromDate   string
	flagUntilDate  string
	flagOutput     string
	flagDomain     string
	flagLogLevel   string
	flagBulk       bool
}

// NewExport creates the "doaj export" command.
func NewExport(b *base.Command) *Command {
	return &Command{Command: b, op: index.CommandExport, allowBulk: true}
}

// NewUpdate creates the "doaj update" command.
func NewUpdate(b *base.Command) *Command {
	return &Command{Command: b, op: index.CommandUpdate}
}

// NewGet creates the "doaj get" command.
func NewGet(b *base.Command) *Command {
	return &Command{Command: b, op: index.CommandGet}
}

// NewDelete creates the "doaj delete" command.
func NewDelete(b *base.Command) *Command {
	return &Command{Command: b, op: index.CommandDelete, allowBulk: true}
}

func (c *Command) Synopsis() string {
	switch c.op {
	case index.CommandExport:
		return "Export documents to the DOAJ index"
	case index.CommandUpdate:
		return "Update documents already present in the DOAJ index"
	case index.CommandGet:
		return "Fetch document representations from the DOAJ index"
	default:
		return "Delete documents from the DOAJ index"
	}
}

func (c *Command) Help() string {
	help := fmt.Sprintf(`Usage: exporter doaj %s [options]

%s. Documents are selected by -pid, a -pids file, or a
-from-date/-until-date window over the source repository.

Options:
  -output <path>       Result destination: a JSONL file, or an existing
                       directory for one <pid>.json file per document (required)
  -collection <acron>  Source collection (required with -pid or -pids)
  -pid <pid>           Process a single document
  -pids <file>         Process the PIDs listed in file, one per line
  -from-date <date>    Select documents changed since this date
  -until-date <date>   Select documents changed up to this date
  -config <file>       YAML configuration file
  -domain <url>        ArticleMeta endpoint [%s]
  -log-level <level>   trace, debug, info, warn or error (default: info)
`, c.op, c.Synopsis(), config.EnvArticleMetaDomain)

	if c.allowBulk {
		help += "  -bulk                Send all documents in a single bulk request\n"
	}
	return help
}

func (c *Command) flags() *flag.FlagSet {
	f := flag.NewFlagSet("doaj "+string(c.op), flag.ContinueOnError)
	f.StringVar(&c.flagConfig, "config", "", "")
	f.StringVar(&c.flagCollection, "collection", "", "")
	f.StringVar(&c.flagPID, "pid", "", "")
	f.StringVar(&c.flagPIDs, "pids", "", "")
	f.StringVar(&c.flagFromDate, "from-date", "", "")
	f.StringVar(&c.flagUntilDate, "until-date", "", "")
	f.StringVar(&c.flagOutput, "output", "", "")
	f.StringVar(&c.flagDomain, "domain", "", "")
	f.StringVar(&c.flagLogLevel, "log-level", "info", "")
	if c.allowBulk {
		f.BoolVar(&c.flagBulk, "bulk", false, "")
	}
	f.SetOutput(os.Stderr)
	return f
}

func (c *Command) Run(args []string) int {
	if err := c.flags().Parse(args); err != nil {
		return 1
	}

	if err := c.run(); err != nil {
		if errors.Is(err, context.Canceled) {
			c.UI.Error("interrupted")
			return ExitCodeInterrupt
		}
		c.UI.Error(fmt.Sprintf("Um erro inesperado ocorreu: %s", err))
		return 1
	}
	return 0
}

func (c *Command) run() error {
	if c.flagOutput == "" {
		return errors.New("-output is required")
	}
	if c.flagFromDate == "" && c.flagUntilDate == "" && c.flagPID == "" && c.flagPIDs == "" {
		return errors.New("at least one of -from-date, -until-date, -pid or -pids is required")
	}
	if (c.flagPID != "" || c.flagPIDs != "") && c.flagCollection == "" {
		return errors.New("-collection is required with -pid or -pids")
	}

	log := c.Log
	if level := hclog.LevelFromString(c.flagLogLevel); level != hclog.NoLevel {
		log.SetLevel(level)
	}

	cfg, err := config.Load(c.flagConfig)
	if err != nil {
		return err
	}
	domain := cfg.ArticleMeta.Domain
	if c.flagDomain != "" {
		domain = c.flagDomain
	}

	fromDate, err := parseDate(c.flagFromDate)
	if err != nil {
		return err
	}
	untilDate, err := parseDate(c.flagUntilDate)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := httpclient.New(httpclient.Config{
		MaxAttempts: cfg.Retries,
		Logger:      log,
	})
	source := articlemeta.NewRestfulClient(domain, client, log)

	registry := index.NewRegistry()
	registry.Register(indexName, doaj.Factory(doaj.Config{
		APIURL: cfg.DOAJ.APIURL,
		APIKey: cfg.DOAJ.APIKey,
	}, client))

	pidsByCollection, err := c.resolvePIDs(ctx, source, fromDate, untilDate)
	if err != nil {
		return err
	}

	total := 0
	for _, pids := range pidsByCollection {
		total += len(pids)
	}
	c.UI.Info(fmt.Sprintf("Processing %d document(s)", total))

	var processed atomic.Int64
	params := export.Params{
		Source:  source,
		Index:   indexName,
		Command: c.op,
		Exporters: index.ExporterConfig{
			Registry: registry,
			Client:   client,
			Logger:   log,
		},
		OutputPath:       c.flagOutput,
		PIDsByCollection: pidsByCollection,
		MaxWorkers:       cfg.MaxWorkers,
		OnProgress: func() {
			done := processed.Add(1)
			log.Info("progress", "done", done, "total", total)
		},
		Logger: log,
	}

	if c.flagBulk {
		return export.ProcessDocumentsInBulk(ctx, params)
	}
	return export.ProcessExtractedDocuments(ctx, params)
}

// resolvePIDs builds the per-collection pid lists from the pid flag, the pids
// file, or an identifier listing at the source.
func (c *Command) resolvePIDs(ctx context.Context, source articlemeta.Source, fromDate, untilDate *time.Time) (map[string][]string, error) {
	if c.flagPID != "" {
		return map[string][]string{c.flagCollection: {c.flagPID}}, nil
	}

	if c.flagPIDs != "" {
		raw, err := os.ReadFile(c.flagPIDs)
		if err != nil {
			return nil, fmt.Errorf("reading pids file: %w", err)
		}
		var pids []string
		for _, line := range strings.Split(string(raw), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				pids = append(pids, line)
			}
		}
		return map[string][]string{c.flagCollection: pids}, nil
	}

	identifiers, err := source.DocumentIdentifiers(ctx, articlemeta.Filter{
		Collection: c.flagCollection,
		FromDate:   fromDate,
		UntilDate:  untilDate,
	})
	if err != nil {
		return nil, err
	}

	pidsByCollection := map[string][]string{}
	for _, id := range identifiers {
		pidsByCollection[id.Collection] = append(pidsByCollection[id.Collection], id.PID)
	}
	return pidsByCollection, nil
}

// parseDate parses a date flag and clamps future dates to today.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	date, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	if today := time.Now(); date.After(today) {
		date = today
	}
	return &date, nil
}
