package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/scielo-forge/exporter/internal/cmd/base"
	"github.com/scielo-forge/exporter/internal/cmd/commands/doaj"
)

// Commands maps CLI subcommand names to their factories. It is populated by
// initCommands before the CLI runs.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := base.NewCommand(ui, log)

	Commands = map[string]cli.CommandFactory{
		"doaj export": func() (cli.Command, error) {
			return doaj.NewExport(b), nil
		},
		"doaj update": func() (cli.Command, error) {
			return doaj.NewUpdate(b), nil
		},
		"doaj get": func() (cli.Command, error) {
			return doaj.NewGet(b), nil
		},
		"doaj delete": func() (cli.Command, error) {
			return doaj.NewDelete(b), nil
		},
	}
}
