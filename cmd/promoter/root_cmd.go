package main

import (
	"os"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/spf13/cobra"
)

type rootOpts struct {
	logger   log.Logger
	exitCode int
}

func newRoot() *rootOpts {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return &rootOpts{logger: logger}
}

var rootLongHelp = strings.TrimSpace(`
promoter moves built model deployment descriptors through the
environments recorded in a GitOps state-store repository.

Staging-like environments are written directly; production-like
environments get a branch and an assigned change request instead, and
only change when a human merges it.
`)

func (opts *rootOpts) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "promoter",
		Long:         rootLongHelp,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newPromote(opts).Command(),
		newVersionCommand(),
	)
	return cmd
}
