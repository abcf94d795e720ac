// Package session tracks load, seek and progress transitions for one
// multi-episode playback session, applies operator-defined intro/outro
// skip points, and persists resumable progress with throttled writes.
//
// A session is effectively single-threaded from the owner's perspective:
// every operation serializes on the session lock, and callbacks to the
// Listener happen outside it. Any load, probe or persistence failure is
// caught locally, logged, surfaced as a notification, and leaves the
// session in a consistent state.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"oriontv/internal/logging"
	"oriontv/internal/media"
	"oriontv/internal/store"
)

// Status is the session lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusPlaying
	StatusPaused
	StatusSeeking
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusSeeking:
		return "seeking"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

const (
	defaultThrottleInterval = 10 * time.Second
	defaultSettleWindow     = 500 * time.Millisecond
	defaultLoadTimeout      = 60 * time.Second
	nearEndRatio            = 0.95
	persistTimeout          = 5 * time.Second
)

// Config wires a Session's collaborators. Store and Resolver are
// required; everything else has defaults.
type Config struct {
	Store    store.Store
	Resolver EpisodeResolver
	Listener Listener
	Now      func() time.Time

	ThrottleInterval time.Duration // min gap between non-immediate persists
	SettleWindow     time.Duration // Seeking -> prior state delay
	LoadTimeout      time.Duration // watchdog on the loading state
}

// State is a read-only snapshot of the session.
type State struct {
	Status           Status
	EpisodeIndex     int
	EpisodeCount     int
	PositionMillis   int64
	DurationMillis   int64
	IntroEndMillis   int64
	OutroStartMillis int64
	SeekRatio        float64
}

// Session is the playback session state machine. All mutation goes
// through its methods; fields are never written directly by callers.
type Session struct {
	mu sync.Mutex

	store    store.Store
	resolver EpisodeResolver
	listener Listener
	log      zerolog.Logger
	now      func() time.Time

	throttleInterval time.Duration
	settleWindow     time.Duration
	loadTimeout      time.Duration

	engine Engine

	status      Status
	priorStatus Status

	sourceKey string
	contentID string
	title     string
	poster    string

	episodes     []media.Episode
	episodeIndex int

	durationMillis      int64
	positionMillis      int64
	initialResumeMillis int64
	introEndMillis      int64
	outroOffsetMillis   int64 // offset from the end of the episode
	seekRatio           float64
	nearEndSignaled     bool

	lastWrite time.Time

	loadGen    uint64
	seekGen    uint64
	loadCancel context.CancelFunc
	watchdog   *time.Timer
	settle     *time.Timer
}

// New creates an idle Session.
func New(cfg Config) *Session {
	s := &Session{
		store:            cfg.Store,
		resolver:         cfg.Resolver,
		listener:         cfg.Listener,
		now:              cfg.Now,
		throttleInterval: cfg.ThrottleInterval,
		settleWindow:     cfg.SettleWindow,
		loadTimeout:      cfg.LoadTimeout,
		log:              logging.Component("session"),
		priorStatus:      StatusPlaying,
	}
	if s.listener == nil {
		s.listener = NopListener{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.throttleInterval <= 0 {
		s.throttleInterval = defaultThrottleInterval
	}
	if s.settleWindow <= 0 {
		s.settleWindow = defaultSettleWindow
	}
	if s.loadTimeout <= 0 {
		s.loadTimeout = defaultLoadTimeout
	}
	return s
}

// AttachEngine hands the session a playback engine handle.
func (s *Session) AttachEngine(e Engine) {
	s.mu.Lock()
	s.engine = e
	s.mu.Unlock()
}

// DetachEngine removes the handle; subsequent engine calls no-op.
func (s *Session) DetachEngine() {
	s.mu.Lock()
	s.engine = nil
	s.mu.Unlock()
}

// State returns a consistent snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Status:           s.status,
		EpisodeIndex:     s.episodeIndex,
		EpisodeCount:     len(s.episodes),
		PositionMillis:   s.positionMillis,
		DurationMillis:   s.durationMillis,
		IntroEndMillis:   s.introEndMillis,
		OutroStartMillis: s.outroOffsetMillis,
		SeekRatio:        s.seekRatio,
	}
}

// Episode returns the currently selected episode, if any.
func (s *Session) Episode() (media.Episode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.episodeIndex < 0 || s.episodeIndex >= len(s.episodes) {
		return media.Episode{}, false
	}
	return s.episodes[s.episodeIndex], true
}

// Load starts a session for (source, contentID) at episodeIndex.
// resumeSec, when non-nil, overrides the persisted resume position. A
// Load issued while another is in flight supersedes it: the older load's
// context is cancelled and its completion, if any, is discarded. Failure
// to read the play record is non-fatal;
// the session resumes from zero.
func (s *Session) Load(ctx context.Context, src media.CandidateSource, contentID string, episodeIndex int, resumeSec *float64) error {
	lctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.status = StatusLoading
	s.cancelLoadLocked() // abort the superseded load's collaborator calls
	s.loadCancel = cancel
	s.stopWatchdogLocked()
	s.watchdog = time.AfterFunc(s.loadTimeout, func() { s.loadExpired(gen) })
	s.mu.Unlock()

	episodes, err := s.resolver.Episodes(lctx, src.Key, contentID)
	if err != nil {
		s.failLoad(gen, "failed to load episode list")
		return fmt.Errorf("resolving episodes: %w", err)
	}
	if len(episodes) == 0 {
		s.failLoad(gen, "no episodes available")
		return fmt.Errorf("source %q has no episodes", src.Key)
	}
	if episodeIndex < 0 || episodeIndex >= len(episodes) {
		s.failLoad(gen, "episode out of range")
		return fmt.Errorf("episode index %d out of range [0,%d)", episodeIndex, len(episodes))
	}

	var resumeMillis, introEnd, outroStart int64
	if resumeSec != nil {
		resumeMillis = int64(*resumeSec * 1000)
	}
	rec, err := s.store.Get(lctx, src.Key, contentID)
	if err != nil {
		s.log.Warn().Str("source", src.Key).Str("content", contentID).Err(err).
			Msg("reading play record failed, resuming from zero")
	} else if rec != nil {
		if resumeSec == nil {
			resumeMillis = int64(rec.PositionSec * 1000)
		}
		introEnd = rec.IntroEndMillis
		outroStart = rec.OutroStartMillis
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.loadGen {
		// A newer Load superseded this one while it resolved.
		return nil
	}
	s.loadCancel = nil
	s.sourceKey = src.Key
	s.contentID = contentID
	s.title = src.Title
	s.poster = src.Poster
	s.episodes = episodes
	s.episodeIndex = episodeIndex
	s.initialResumeMillis = resumeMillis
	s.introEndMillis = introEnd
	s.outroOffsetMillis = outroStart
	s.positionMillis = 0
	s.durationMillis = 0
	s.seekRatio = 0
	s.nearEndSignaled = false
	// Still Loading: OnLoaded moves the session to Ready once the
	// playback engine reports media duration.
	return nil
}

// failLoad reverts to Idle with safe defaults and surfaces a notice.
func (s *Session) failLoad(gen uint64, msg string) {
	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		return
	}
	s.loadCancel = nil
	s.stopWatchdogLocked()
	s.status = StatusIdle
	s.mu.Unlock()

	s.log.Warn().Str("reason", msg).Msg("session load failed")
	s.listener.Notice(msg)
}

// loadExpired is the 60s watchdog: force-exit a stuck loading state.
func (s *Session) loadExpired(gen uint64) {
	s.mu.Lock()
	if gen != s.loadGen || s.status != StatusLoading {
		s.mu.Unlock()
		return
	}
	s.status = StatusIdle
	s.mu.Unlock()

	s.log.Warn().Msg("session load watchdog expired")
	s.listener.Notice("loading timed out")
}

// OnLoaded records the media duration reported by the playback engine and
// moves the session to Ready. If a resume position or intro skip point is
// set, exactly one seek is issued, to the later of the two.
func (s *Session) OnLoaded(durationMillis int64) {
	s.mu.Lock()
	if s.status != StatusLoading {
		s.mu.Unlock()
		return
	}
	s.stopWatchdogLocked()
	s.durationMillis = durationMillis
	s.status = StatusReady

	target := s.initialResumeMillis
	if s.introEndMillis > target {
		target = s.introEndMillis
	}
	s.initialResumeMillis = 0 // consumed: the startup seek happens once
	if target > 0 {
		s.positionMillis = target
		if durationMillis > 0 {
			s.seekRatio = float64(target) / float64(durationMillis)
		}
	}
	eng := s.engine
	s.mu.Unlock()

	if target > 0 && eng != nil {
		eng.Seek(float64(target) / 1000)
	}
}

// OnProgress handles a playback position update. When the position
// crosses the configured outro threshold and a next episode exists, the
// session advances immediately and the remainder of the update (persist,
// near-end signal) is suppressed.
func (s *Session) OnProgress(positionMillis, durationMillis int64) {
	s.mu.Lock()
	switch s.status {
	case StatusIdle, StatusLoading, StatusEnded:
		s.mu.Unlock()
		return
	case StatusReady:
		s.status = StatusPlaying
	}

	s.positionMillis = positionMillis
	if durationMillis > 0 {
		s.durationMillis = durationMillis
		s.seekRatio = float64(positionMillis) / float64(durationMillis)
	}

	// Outro skip: threshold is relative to the duration reported with
	// this update, so episodes of different length reuse the offset.
	if s.outroOffsetMillis > 0 && durationMillis > 0 &&
		positionMillis >= durationMillis-s.outroOffsetMillis {
		if next := s.episodeIndex + 1; next < len(s.episodes) {
			s.advanceLocked(next)
			s.mu.Unlock()
			s.listener.EpisodeChanged(next)
			return
		}
	}

	nearEnd := -1
	if s.outroOffsetMillis == 0 && durationMillis > 0 && !s.nearEndSignaled {
		if next := s.episodeIndex + 1; next < len(s.episodes) &&
			float64(positionMillis)/float64(durationMillis) > nearEndRatio {
			s.nearEndSignaled = true
			nearEnd = next
		}
	}

	s.persistLocked(false)
	s.mu.Unlock()

	if nearEnd >= 0 {
		s.listener.NearEnd(nearEnd)
	}
}

// OnEnded marks the episode finished and persists the final position.
func (s *Session) OnEnded() {
	s.mu.Lock()
	if s.status == StatusIdle || s.status == StatusLoading {
		s.mu.Unlock()
		return
	}
	s.positionMillis = s.durationMillis
	s.status = StatusEnded
	s.persistLocked(true)
	s.mu.Unlock()
}

// PlayEpisode switches to another episode of the loaded session. The
// caller is expected to point the playback engine at the new episode URL
// and report OnLoaded when it is up.
func (s *Session) PlayEpisode(index int) error {
	s.mu.Lock()
	if s.contentID == "" {
		s.mu.Unlock()
		return fmt.Errorf("no session loaded")
	}
	if index < 0 || index >= len(s.episodes) {
		s.mu.Unlock()
		return fmt.Errorf("episode index %d out of range [0,%d)", index, len(s.episodes))
	}
	s.advanceLocked(index)
	s.mu.Unlock()

	s.listener.EpisodeChanged(index)
	return nil
}

// advanceLocked resets per-episode state and re-enters Loading. Intro and
// outro skip points are session-scoped and carry across episodes.
func (s *Session) advanceLocked(index int) {
	s.episodeIndex = index
	s.positionMillis = 0
	s.durationMillis = 0
	s.initialResumeMillis = 0
	s.seekRatio = 0
	s.nearEndSignaled = false
	s.status = StatusLoading

	s.loadGen++
	gen := s.loadGen
	s.cancelLoadLocked()
	s.stopWatchdogLocked()
	s.watchdog = time.AfterFunc(s.loadTimeout, func() { s.loadExpired(gen) })
}

// Pause transitions Playing -> Paused and pauses the engine.
func (s *Session) Pause() {
	s.mu.Lock()
	eng := s.engine
	if s.status == StatusPlaying {
		s.status = StatusPaused
	}
	s.mu.Unlock()
	if eng != nil {
		eng.Pause()
	}
}

// Resume transitions Paused -> Playing and resumes the engine.
func (s *Session) Resume() {
	s.mu.Lock()
	eng := s.engine
	if s.status == StatusPaused {
		s.status = StatusPlaying
	}
	s.mu.Unlock()
	if eng != nil {
		eng.Resume()
	}
}

// Seek moves playback to targetMillis. The normalized seek ratio updates
// immediately for UI feedback and the engine seek is issued synchronously;
// the session returns to the prior play/pause state after the settle
// window.
func (s *Session) Seek(targetMillis int64) {
	s.mu.Lock()
	switch s.status {
	case StatusIdle, StatusLoading, StatusEnded:
		s.mu.Unlock()
		return
	}

	if targetMillis < 0 {
		targetMillis = 0
	}
	if s.durationMillis > 0 {
		if targetMillis > s.durationMillis {
			targetMillis = s.durationMillis
		}
		s.seekRatio = float64(targetMillis) / float64(s.durationMillis)
	}
	if s.status == StatusPlaying || s.status == StatusPaused {
		s.priorStatus = s.status
	}
	s.status = StatusSeeking
	s.positionMillis = targetMillis

	s.seekGen++
	gen := s.seekGen
	if s.settle != nil {
		s.settle.Stop()
	}
	s.settle = time.AfterFunc(s.settleWindow, func() { s.settleSeek(gen) })

	eng := s.engine
	s.mu.Unlock()

	if eng != nil {
		eng.Seek(float64(targetMillis) / 1000)
	}
}

func (s *Session) settleSeek(gen uint64) {
	s.mu.Lock()
	if gen == s.seekGen && s.status == StatusSeeking {
		s.status = s.priorStatus
	}
	s.mu.Unlock()
}

// SetIntroEndTime toggles the intro skip point. Unset, it captures the
// current playback position; set, it clears. Both persist immediately,
// bypassing the throttle.
func (s *Session) SetIntroEndTime() {
	s.mu.Lock()
	var msg string
	if s.introEndMillis > 0 {
		s.introEndMillis = 0
		msg = "intro skip cleared"
	} else {
		s.introEndMillis = s.positionMillis
		msg = "intro skip set"
	}
	s.persistLocked(true)
	s.mu.Unlock()

	s.listener.Notice(msg)
}

// SetOutroStartTime toggles the outro skip point as a fixed offset from
// the end of the episode (duration - current position). Persists
// immediately, bypassing the throttle.
func (s *Session) SetOutroStartTime() {
	s.mu.Lock()
	var msg string
	switch {
	case s.outroOffsetMillis > 0:
		s.outroOffsetMillis = 0
		msg = "outro skip cleared"
	case s.durationMillis > 0 && s.positionMillis < s.durationMillis:
		s.outroOffsetMillis = s.durationMillis - s.positionMillis
		msg = "outro skip set"
	default:
		s.mu.Unlock()
		s.listener.Notice("cannot set outro point yet")
		return
	}
	s.persistLocked(true)
	s.mu.Unlock()

	s.listener.Notice(msg)
}

// PersistProgress writes the session snapshot to the store. Non-immediate
// calls are dropped when a write happened within the throttle interval;
// immediate calls always write.
func (s *Session) PersistProgress(immediate bool) {
	s.mu.Lock()
	s.persistLocked(immediate)
	s.mu.Unlock()
}

// persistLocked writes a full snapshot, last-write-wins. Persistence
// failures are logged and the session continues; there is no retry loop
// at this layer.
func (s *Session) persistLocked(immediate bool) {
	if s.store == nil || s.contentID == "" {
		return
	}
	now := s.now()
	if !immediate && now.Sub(s.lastWrite) < s.throttleInterval {
		return
	}
	s.lastWrite = now

	rec := media.PlayRecord{
		Title:            s.title,
		Poster:           s.poster,
		EpisodeIndex:     s.episodeIndex,
		TotalEpisodes:    len(s.episodes),
		PositionSec:      float64(s.positionMillis) / 1000,
		TotalSec:         float64(s.durationMillis) / 1000,
		IntroEndMillis:   s.introEndMillis,
		OutroStartMillis: s.outroOffsetMillis,
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.Save(ctx, s.sourceKey, s.contentID, rec); err != nil {
		s.log.Warn().Str("source", s.sourceKey).Str("content", s.contentID).Err(err).
			Msg("persisting progress failed")
	}
}

// Reset clears all in-memory session state and returns to Idle. The
// persisted PlayRecord is untouched.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadGen++ // discard any in-flight load completion
	s.cancelLoadLocked()
	s.stopWatchdogLocked()
	if s.settle != nil {
		s.settle.Stop()
		s.settle = nil
	}

	s.status = StatusIdle
	s.priorStatus = StatusPlaying
	s.sourceKey = ""
	s.contentID = ""
	s.title = ""
	s.poster = ""
	s.episodes = nil
	s.episodeIndex = 0
	s.durationMillis = 0
	s.positionMillis = 0
	s.initialResumeMillis = 0
	s.introEndMillis = 0
	s.outroOffsetMillis = 0
	s.seekRatio = 0
	s.nearEndSignaled = false
	s.lastWrite = time.Time{}
}

func (s *Session) stopWatchdogLocked() {
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
}

func (s *Session) cancelLoadLocked() {
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
}
