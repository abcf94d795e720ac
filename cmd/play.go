package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"oriontv/internal/config"
	"oriontv/internal/manifest"
	"oriontv/internal/media"
	"oriontv/internal/player"
	"oriontv/internal/probe"
	"oriontv/internal/resolution"
	"oriontv/internal/session"
	"oriontv/internal/store"
	"oriontv/internal/ui"
)

var playCmd = &cobra.Command{
	Use:   "play <sources.json>",
	Short: "Rank sources, filter the winner's playlist, and play it",
	Args:  cobra.ExactArgs(1),
	RunE:  playRun,
}

func init() {
	playCmd.Flags().BoolVar(&flagBest, "best", false, "Play the top-ranked source without asking")
	playCmd.Flags().IntVarP(&flagEpisode, "episode", "e", -1, "Episode to play (1-based; default: resume)")
	playCmd.Flags().Float64VarP(&flagResume, "resume-at", "r", -1, "Resume position in seconds (overrides history)")
	playCmd.Flags().BoolVar(&flagNoFilter, "no-filter", false, "Play the original playlist without ad filtering")
}

func playRun(cmd *cobra.Command, args []string) error {
	if cfg.Player == "none" {
		return fmt.Errorf("no player configured")
	}
	if !player.Available() {
		return fmt.Errorf("mpv not found in PATH")
	}

	sources, err := loadSources(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// Rank and pick.
	engine := probe.New(probe.Config{
		Detector:      resolution.NewDetector(nil),
		MaxConcurrent: cfg.MaxConcurrentProbes,
	})
	ranked := engine.RankSources(ctx, sources)

	src, err := pickSource(ranked)
	if err != nil {
		return err
	}

	// Persistence: history off means an ephemeral in-memory store.
	var st store.Store = store.NewMemory()
	if cfg.History {
		path, err := config.DataPath()
		if err != nil {
			return err
		}
		db, err := store.OpenSQLite(path)
		if err != nil {
			return fmt.Errorf("opening playback database: %w", err)
		}
		defer db.Close()
		st = db
	}

	// Filtering: one publisher serves every filtered playlist of this run.
	var filt *manifest.Filter
	if !flagNoFilter && cfg.RemoveAds {
		pub := manifest.NewHTTPPublisher()
		if _, err := pub.Listen("127.0.0.1:0"); err != nil {
			return fmt.Errorf("starting publisher: %w", err)
		}
		defer pub.Close()
		filt = manifest.NewFilter(manifest.Config{Publisher: pub})
	}

	return runSession(ctx, st, filt, src)
}

// pickSource chooses a source from the ranking, via fzf unless --best.
func pickSource(ranked []media.ScoredSource) (media.CandidateSource, error) {
	if flagBest || len(ranked) == 1 {
		top := ranked[0]
		if !top.Probe.Available {
			return media.CandidateSource{}, fmt.Errorf("no source is reachable")
		}
		return top.Source, nil
	}

	items := make([]string, len(ranked))
	for i, s := range ranked {
		state := "ok"
		if !s.Probe.Available {
			state = "unavailable"
		}
		items[i] = fmt.Sprintf("%-20s  %6.2f  %4s  %d eps  [%s]",
			s.Source.Key, s.Score, s.Source.Resolution, s.Source.EpisodeCount(), state)
	}
	idx, err := ui.Select("Source", items)
	if err != nil {
		return media.CandidateSource{}, err
	}
	return ranked[idx].Source, nil
}

// cliListener prints session signals and quits the current player when the
// session advances to another episode.
type cliListener struct {
	mu sync.Mutex
	mp *player.MPV
}

func (l *cliListener) setPlayer(mp *player.MPV) {
	l.mu.Lock()
	l.mp = mp
	l.mu.Unlock()
}

func (l *cliListener) NearEnd(next int) {
	fmt.Printf("episode %d is up next\n", next+1)
}

func (l *cliListener) EpisodeChanged(index int) {
	fmt.Printf("switching to episode %d\n", index+1)
	l.mu.Lock()
	mp := l.mp
	l.mu.Unlock()
	if mp != nil {
		mp.Quit()
	}
}

func (l *cliListener) Notice(msg string) {
	fmt.Println(msg)
}

// runSession drives the playback loop: load, play, and follow episode
// changes (explicit or outro auto-advance) until the session stops moving.
func runSession(ctx context.Context, st store.Store, filt *manifest.Filter, src media.CandidateSource) error {
	listener := &cliListener{}
	sess := session.New(session.Config{
		Store:    st,
		Resolver: session.StaticResolver{URLs: src.Episodes},
		Listener: listener,
	})
	defer sess.Reset()

	contentID := src.Title
	episodeIndex := resolveEpisodeIndex(ctx, st, src, contentID)

	var resume *float64
	if flagResume >= 0 {
		resume = &flagResume
	}

	if err := sess.Load(ctx, src, contentID, episodeIndex, resume); err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	for {
		ep, ok := sess.Episode()
		if !ok {
			return fmt.Errorf("no playable episode")
		}

		playURL := ep.URL
		if filt != nil {
			result := filt.FilterManifest(ctx, ep.URL, filterOptions())
			playURL = result.FilteredURL
			if result.RemovedSegmentCount > 0 {
				fmt.Printf("removed %d ad segments\n", result.RemovedSegmentCount)
			}
		}

		title := fmt.Sprintf("%s (%d/%d)", src.Title, ep.Index+1, src.EpisodeCount())
		mp, err := player.Start(playURL, title, 0)
		if err != nil {
			return fmt.Errorf("starting player: %w", err)
		}
		listener.setPlayer(mp)
		sess.AttachEngine(mp)

		loaded := false
		go mp.Observe(func(pos, dur int64) {
			if !loaded {
				loaded = true
				sess.OnLoaded(dur)
				return
			}
			sess.OnProgress(pos, dur)
		}, sess.OnEnded)

		if err := mp.Wait(); err != nil {
			return fmt.Errorf("player exited: %w", err)
		}
		sess.DetachEngine()
		listener.setPlayer(nil)
		sess.PersistProgress(true)

		// An episode change leaves the session loading the next one;
		// anything else means the user stopped playback.
		if sess.State().Status != session.StatusLoading {
			return nil
		}
	}
}

// resolveEpisodeIndex honors --episode, falling back to the persisted
// record and then the first episode.
func resolveEpisodeIndex(ctx context.Context, st store.Store, src media.CandidateSource, contentID string) int {
	if flagEpisode > 0 && flagEpisode <= src.EpisodeCount() {
		return flagEpisode - 1
	}
	rec, err := st.Get(ctx, src.Key, contentID)
	if err == nil && rec != nil && rec.EpisodeIndex < src.EpisodeCount() {
		return rec.EpisodeIndex
	}
	return 0
}
