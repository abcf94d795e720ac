package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"oriontv/internal/config"
	"oriontv/internal/store"
)

var flagHistoryClear bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show saved playback progress",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "Remove all saved progress")
}

func historyRun(cmd *cobra.Command, args []string) error {
	path, err := config.DataPath()
	if err != nil {
		return err
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("opening playback database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	records, err := db.List(ctx)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	if flagHistoryClear {
		for _, r := range records {
			if err := db.Remove(ctx, r.Source, r.ContentID); err != nil {
				return fmt.Errorf("removing %s/%s: %w", r.Source, r.ContentID, err)
			}
		}
		fmt.Printf("removed %d records\n", len(records))
		return nil
	}

	if len(records) == 0 {
		fmt.Println("no playback history")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tSOURCE\tEPISODE\tPOSITION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n",
			r.Record.Title, r.Source,
			r.Record.EpisodeIndex+1, r.Record.TotalEpisodes,
			formatPosition(r.Record.PositionSec, r.Record.TotalSec))
	}
	return w.Flush()
}

func formatPosition(posSec, totalSec float64) string {
	if totalSec <= 0 {
		return "-"
	}
	return fmt.Sprintf("%s / %s (%.0f%%)",
		formatClock(posSec), formatClock(totalSec), posSec/totalSec*100)
}

func formatClock(sec float64) string {
	s := int(sec)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
