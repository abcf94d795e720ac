package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"oriontv/internal/manifest"
)

var flagNoPublish bool

var filterCmd = &cobra.Command{
	Use:   "filter <manifest-url>",
	Short: "Strip ad segments from a playlist and report the result",
	Args:  cobra.ExactArgs(1),
	RunE:  filterRun,
}

func init() {
	filterCmd.Flags().BoolVar(&flagNoPublish, "no-publish", false,
		"Skip republishing; report what filtering would remove")
}

func filterRun(cmd *cobra.Command, args []string) error {
	var pub manifest.Publisher
	if !flagNoPublish {
		hp := manifest.NewHTTPPublisher()
		if _, err := hp.Listen("127.0.0.1:0"); err != nil {
			return fmt.Errorf("starting publisher: %w", err)
		}
		defer hp.Close()
		pub = hp
	}

	f := manifest.NewFilter(manifest.Config{Publisher: pub})
	result := f.FilterManifest(cmd.Context(), args[0], filterOptions())

	fmt.Println("original: ", result.OriginalURL)
	fmt.Println("filtered: ", result.FilteredURL)
	fmt.Println("removed:  ", result.RemovedSegmentCount)
	fmt.Printf("duration:  %.1fs -> %.1fs\n", result.TotalDurationSec, result.FilteredDurationSec)
	return nil
}

// filterOptions builds filter options from the loaded config.
func filterOptions() manifest.Options {
	opts := manifest.DefaultOptions()
	opts.RemoveAds = cfg.RemoveAds
	opts.MinSegmentDuration = cfg.MinSegmentDuration
	opts.AdURLPatterns = cfg.AdURLPatterns
	return opts
}
