package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/resquick/portal/cmd/admin/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "admin",
		Short:        "Administrative tasks for ResQuick",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.HashSecretCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
