package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listQuery string

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Load the gallery and print its statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.gallery.Refresh(cmd.Context()); err != nil {
			return err
		}

		stats := cli.gallery.Stats()
		fmt.Printf("identities:  %d\n", stats.Size)
		fmt.Printf("skipped:     %d\n", stats.LastSkipped)
		fmt.Printf("loaded at:   %s\n", stats.LoadedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("metric:      %s (threshold %.2f, default when 0)\n", cli.cfg.MatchMetric, cli.cfg.MatchThreshold)
		return nil
	},
}

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List enrolled identities",
	RunE: func(cmd *cobra.Command, args []string) error {
		identities, err := cli.enrollment.List(cmd.Context(), listQuery, 500, 0)
		if err != nil {
			return err
		}
		if len(identities) == 0 {
			fmt.Println("No identities found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tENROLLED")
		fmt.Fprintln(w, "--\t----\t--------")
		for _, id := range identities {
			fmt.Fprintf(w, "%s\t%s\t%s\n", id.ID, id.DisplayName, id.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

func init() {
	identitiesCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Filter by display name")
	rootCmd.AddCommand(galleryCmd, identitiesCmd)
}
