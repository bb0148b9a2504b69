package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/vibesearch/internal/config"
	"github.com/kailas-cloud/vibesearch/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var env string

	root := &cobra.Command{
		Use:          "vibesearch",
		Short:        "Semantic apartment search",
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&env, "env", "e", config.GetEnv(), "config environment (config/<env>.yaml)")

	root.AddCommand(
		newServeCommand(&env),
		newSearchCommand(&env),
		newDetailsCommand(&env),
		newMCPCommand(&env),
	)
	return root
}
