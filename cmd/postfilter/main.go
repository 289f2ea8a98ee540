package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "postfilter",
		Short: "Faceted filtering and paginated listings for content collections",
		Long: `postfilter compiles faceted filter submissions into structured queries,
renders paginated listings over a Redis search index and serves both over HTTP.

Configuration is read from config/<ENV>.yaml (ENV defaults to "local").`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newSeedCmd(),
		newCompileCmd(),
		newVersionCmd(),
	)
	return root
}
