package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"oriontv/internal/media"
	"oriontv/internal/probe"
	"oriontv/internal/resolution"
)

var rankCmd = &cobra.Command{
	Use:   "rank <sources.json>",
	Short: "Probe candidate sources and rank them by score",
	Args:  cobra.ExactArgs(1),
	RunE:  rankRun,
}

func init() {
	rankCmd.Flags().BoolVarP(&flagJSON, "json", "j", false, "Output the ranking as JSON")
}

func rankRun(cmd *cobra.Command, args []string) error {
	sources, err := loadSources(args[0])
	if err != nil {
		return err
	}

	engine := probe.New(probe.Config{
		Detector:      resolution.NewDetector(nil),
		MaxConcurrent: cfg.MaxConcurrentProbes,
	})

	ranked := engine.RankSources(cmd.Context(), sources)

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}

	printRanking(ranked)
	return nil
}

// loadSources reads a JSON array of candidate sources from path.
func loadSources(path string) ([]media.CandidateSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}

	var sources []media.CandidateSource
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("parsing sources file %s: %w", path, err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources in %s", path)
	}
	return sources, nil
}

func printRanking(ranked []media.ScoredSource) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSOURCE\tSCORE\tRES\tEPISODES\tLATENCY\tKB/S\tAVAILABLE")
	for i, s := range ranked {
		latency := "-"
		if s.Probe.Available {
			latency = s.Probe.Latency.Round(time.Millisecond).String()
		}
		res := s.Source.Resolution
		if res == "" {
			res = "?"
		}
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%d\t%s\t%.0f\t%v\n",
			i+1, s.Source.Key, s.Score, res, s.Source.EpisodeCount(),
			latency, s.Probe.ThroughputKBps, s.Probe.Available)
	}
	w.Flush()
}
