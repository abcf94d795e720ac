package session

import (
	"context"

	"oriontv/internal/media"
)

// Engine is the playback engine handle the session holds but does not
// own. The handle may be absent (player not yet mounted); the session
// no-ops safely in that case.
type Engine interface {
	Pause()
	Resume()
	Seek(seconds float64)
}

// EpisodeResolver supplies the ordered episode list for a source. It is
// an external search/catalog collaborator.
type EpisodeResolver interface {
	Episodes(ctx context.Context, sourceKey, contentID string) ([]media.Episode, error)
}

// StaticResolver resolves episodes from an already-known URL list, the
// common case when the caller hands over a ranked CandidateSource.
type StaticResolver struct {
	URLs []string
}

func (r StaticResolver) Episodes(_ context.Context, _, _ string) ([]media.Episode, error) {
	eps := make([]media.Episode, len(r.URLs))
	for i, u := range r.URLs {
		eps[i] = media.Episode{Index: i, URL: u}
	}
	return eps, nil
}

// Listener receives session signals. Implementations must not block; all
// methods are invoked outside the session lock.
type Listener interface {
	// NearEnd fires once per episode when playback passes 95% and a next
	// episode exists with no outro skip configured.
	NearEnd(nextEpisode int)
	// EpisodeChanged fires when the session advances to another episode,
	// either explicitly or through outro auto-advance.
	EpisodeChanged(index int)
	// Notice surfaces a non-fatal, user-visible notification.
	Notice(message string)
}

// NopListener ignores all signals.
type NopListener struct{}

func (NopListener) NearEnd(int)        {}
func (NopListener) EpisodeChanged(int) {}
func (NopListener) Notice(string)      {}
