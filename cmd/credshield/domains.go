package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/credshield/credshield/internal/config"
	"github.com/credshield/credshield/internal/reputation"
)

// NewDomainsCmd creates the domains command.
func NewDomainsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "List domains rated unreliable",
		Long: `Domains prints every domain that accumulated enough low scores to be
promoted to the unreliable list, worst first. Scores for pages on these
domains are capped at ten points per reliability tier.`,
		Args: cobra.NoArgs,
		RunE: runDomainsCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Reputation database directory (default: XDG data directory)")

	return cmd
}

// runDomainsCmd executes the domains command.
func runDomainsCmd(cmd *cobra.Command, _ []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	store, err := reputation.Open(dbDir, reputation.Options{})
	if err != nil {
		return fmt.Errorf("no reputation database at %s (run a scan first): %w", dbDir, err)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	records, err := store.ListUnreliable(ctx)
	if err != nil {
		return fmt.Errorf("failed to read unreliable domains: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No domains have been rated unreliable yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tRELIABILITY\tSINCE\tREASON")
	for _, rec := range records {
		since := ""
		if !rec.PromotedAt.IsZero() {
			since = rec.PromotedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%d/10\t%s\t%s\n", rec.Domain, rec.Reliability, since, rec.Reason)
	}
	return w.Flush()
}
