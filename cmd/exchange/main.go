package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nckexchange/exchange/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:           "exchange",
		Short:         "Contact backend for The Exchange marketing site",
		Version:       version.GetInfo(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", os.Getenv("CONFIG_PATH"), "path to config.toml")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
