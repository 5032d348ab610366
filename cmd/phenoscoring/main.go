// Command phenoscoring builds reference sets and scores model
// profiles against them using a Bayesian evidence update over an
// ontology DAG.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:   "phenoscoring",
		Short: "Bayesian phenotype-profile scoring against an ontology DAG",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a phenoscoring.yaml config file")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	root.AddCommand(
		newConfigCmd(&configPath),
		newBuildReferencesCmd(&configPath, &verbose),
		newScoreCmd(&configPath, &verbose),
		newExplainCmd(&configPath, &verbose),
	)
	return root
}
