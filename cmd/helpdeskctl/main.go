// Command helpdeskctl runs the scheduled help-desk jobs and small admin tasks.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "helpdeskctl",
		Short:        "Help-desk maintenance commands",
		SilenceUsage: true,
	}
	root.AddCommand(newSLACheckCmd(), newDueSummaryCmd(), newTokenCmd(), newMigrateCmd())
	return root
}
