// Package store holds the candidate profile, the transient upload session and
// the job list. State is owned by explicit Store values; there is no package
// level instance.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"

	"wevolve/internal/errors"
	"wevolve/internal/types"
)

const (
	defaultNamespace      = "wevolve"
	defaultPersistTimeout = 5 * time.Second
)

// Snapshot is a consistent copy of the store at one version.
type Snapshot struct {
	Profile *types.CandidateProfile
	Session types.UploadSession
	Version uint64
}

// HasProfile reports whether the snapshot carries a profile
func (s Snapshot) HasProfile() bool {
	return s.Profile != nil
}

type options struct {
	persister      Persister
	logger         *errors.Logger
	namespace      string
	persistTimeout time.Duration
}

// Option configures a Store or JobStore.
type Option func(*options)

// WithPersister enables write-through caching.
func WithPersister(p Persister) Option {
	return func(o *options) { o.persister = p }
}

func WithLogger(l *errors.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNamespace sets the key prefix used for cached values.
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithPersistTimeout bounds every persister call.
func WithPersistTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.persistTimeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		namespace:      defaultNamespace,
		persistTimeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = errors.NewNopLogger()
	}
	return o
}

// Store is the single source of truth for the candidate profile and the
// upload session. Every read returns a deep copy.
type Store struct {
	mu      sync.RWMutex
	profile *types.CandidateProfile
	session types.UploadSession
	version uint64
	// profileRev counts profile writes only; session updates leave it alone
	profileRev uint64

	// notifyMu serializes delivery; lastDelivered drops snapshots that lost a race
	notifyMu      sync.Mutex
	lastDelivered uint64
	subsMu        sync.Mutex
	subs          map[int]func(Snapshot)
	nextSub       int

	persistMu        sync.Mutex
	lastPersisted    uint64
	lastPersistedRaw []byte

	opts        options
	key         string
	hydrateOnce sync.Once
}

// New creates an empty store.
func New(opts ...Option) *Store {
	o := buildOptions(opts)
	return &Store{
		session: types.IdleSession(),
		subs:    make(map[int]func(Snapshot)),
		opts:    o,
		key:     ProfileKey(o.namespace),
	}
}

// Key returns the cache key of the profile.
func (s *Store) Key() string {
	return s.key
}

// Hydrate loads the cached profile the first time it is called. A missing or
// unreadable cache leaves the store empty.
func (s *Store) Hydrate(ctx context.Context) {
	s.hydrateOnce.Do(func() {
		if s.opts.persister == nil {
			return
		}
		if err := s.reload(ctx, true); err != nil {
			s.opts.logger.LogError(err, "Failed to load cached profile", "key", s.key)
		}
	})
}

// Reload replaces the in-memory profile with the cached one without writing
// back. Used when another process changed the cache.
func (s *Store) Reload(ctx context.Context) error {
	if s.opts.persister == nil {
		return nil
	}
	return s.reload(ctx, false)
}

func (s *Store) reload(ctx context.Context, initial bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.persistTimeout)
	defer cancel()

	s.mu.RLock()
	seen := s.profileRev
	s.mu.RUnlock()

	data, found, err := s.opts.persister.Load(ctx, s.key)
	if err != nil {
		return errors.NewIOError(errors.ErrCodePersistFailed, "failed to read cached profile", err)
	}

	// our own writes come back through the watcher; skip them
	s.persistMu.Lock()
	unchanged := bytes.Equal(data, s.lastPersistedRaw)
	s.persistMu.Unlock()
	if unchanged && !initial {
		return nil
	}

	var profile *types.CandidateProfile
	if found {
		var decoded types.CandidateProfile
		if err := json.Unmarshal(data, &decoded); err != nil {
			return errors.NewIOError(errors.ErrCodePersistFailed, "cached profile is corrupt", err)
		}
		c := decoded.Clone()
		profile = &c
	}

	s.mu.Lock()
	if initial && s.profile != nil {
		// a profile set before hydration wins over the cache
		s.mu.Unlock()
		return nil
	}
	if s.profileRev != seen {
		// a local write landed during the load and is newer than what we read
		s.mu.Unlock()
		s.opts.logger.Debug("Dropping stale cache reload", "key", s.key)
		return nil
	}
	s.setProfileLocked(profile)
	snap := s.bump()
	s.mu.Unlock()

	s.persistMu.Lock()
	s.lastPersisted = snap.Version
	s.lastPersistedRaw = data
	s.persistMu.Unlock()

	s.opts.logger.Debug("Profile loaded from cache", "key", s.key, "found", found)
	s.notify(snap)
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Profile returns a copy of the profile, if one is loaded.
func (s *Store) Profile() (*types.CandidateProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil, false
	}
	c := s.profile.Clone()
	return &c, true
}

func (s *Store) HasProfile() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile != nil
}

// Session returns the current upload session.
func (s *Store) Session() types.UploadSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SetProfile replaces the whole profile; nil clears it. No validation happens here.
func (s *Store) SetProfile(profile *types.CandidateProfile) {
	s.mu.Lock()
	if profile == nil {
		s.setProfileLocked(nil)
	} else {
		c := profile.Clone()
		s.setProfileLocked(&c)
	}
	snap := s.bump()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(snap)
}

// UpdateField replaces one field of the loaded profile. Without a profile it
// does nothing. A value of the wrong type for the field is rejected.
func (s *Store) UpdateField(field types.ProfileField, value any) error {
	s.mu.Lock()
	if s.profile == nil {
		s.mu.Unlock()
		return nil
	}

	updated := s.profile.Clone()
	if err := applyField(&updated, field, value); err != nil {
		s.mu.Unlock()
		return err
	}
	s.setProfileLocked(&updated)
	snap := s.bump()
	s.mu.Unlock()

	s.opts.logger.Debug("Profile field updated", "field", field)
	s.persist(snap)
	s.notify(snap)
	return nil
}

// SetUploadPhase moves the session to phase. The error message is cleared
// for every phase except failed.
func (s *Store) SetUploadPhase(phase types.UploadPhase) {
	s.mutateSession(func(sess *types.UploadSession) bool {
		if sess.Phase == phase {
			return false
		}
		sess.Phase = phase
		if phase != types.PhaseFailed {
			sess.ErrorMessage = ""
		}
		return true
	})
}

// SetProgress clamps pct to 0..100. While uploading, a lower value than the
// current one is ignored.
func (s *Store) SetProgress(pct int) {
	pct = min(max(pct, 0), 100)
	s.mutateSession(func(sess *types.UploadSession) bool {
		if sess.Phase == types.PhaseUploading && pct < sess.ProgressPercent {
			return false
		}
		if sess.ProgressPercent == pct {
			return false
		}
		sess.ProgressPercent = pct
		return true
	})
}

// SetError fails the session with msg. An empty msg clears a previous error
// and returns a failed session to idle.
func (s *Store) SetError(msg string) {
	s.mutateSession(func(sess *types.UploadSession) bool {
		if msg == "" {
			if sess.ErrorMessage == "" && sess.Phase != types.PhaseFailed {
				return false
			}
			sess.ErrorMessage = ""
			if sess.Phase == types.PhaseFailed {
				sess.Phase = types.PhaseIdle
			}
			return true
		}
		sess.Phase = types.PhaseFailed
		sess.ErrorMessage = msg
		return true
	})
}

// BeginSession installs a fresh session for a new upload attempt.
func (s *Store) BeginSession(session types.UploadSession) {
	s.mutateSession(func(sess *types.UploadSession) bool {
		*sess = session
		return true
	})
}

// CompleteUpload writes the parsed profile and marks the session complete in
// one mutation, so no observer sees progress 100 without the new profile.
func (s *Store) CompleteUpload(profile types.CandidateProfile) {
	c := profile.Clone()

	s.mu.Lock()
	s.setProfileLocked(&c)
	s.session.Phase = types.PhaseComplete
	s.session.ProgressPercent = 100
	s.session.ErrorMessage = ""
	snap := s.bump()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(snap)
}

// ResetSession returns the session to idle. The preview reference of the last
// file stays so the review page can still show it.
func (s *Store) ResetSession() {
	s.mutateSession(func(sess *types.UploadSession) bool {
		preview := sess.SourceFilePreviewURL
		name := sess.FileName
		*sess = types.IdleSession()
		sess.SourceFilePreviewURL = preview
		sess.FileName = name
		return true
	})
}

// Reset clears both the profile and the session.
func (s *Store) Reset() {
	s.mu.Lock()
	s.setProfileLocked(nil)
	s.session = types.IdleSession()
	snap := s.bump()
	s.mu.Unlock()

	s.persist(snap)
	s.notify(snap)
}

// Subscribe registers fn for every change. Deliveries are serialized and in
// version order; fn must not mutate the store. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) mutateSession(fn func(*types.UploadSession) bool) {
	s.mu.Lock()
	if !fn(&s.session) {
		s.mu.Unlock()
		return
	}
	snap := s.bump()
	s.mu.Unlock()

	s.opts.logger.Debug("Upload session changed",
		"session_id", snap.Session.ID,
		"phase", snap.Session.Phase,
		"progress", snap.Session.ProgressPercent)
	s.notify(snap)
}

// setProfileLocked must be called with mu held.
func (s *Store) setProfileLocked(p *types.CandidateProfile) {
	s.profile = p
	s.profileRev++
}

// bump must be called with mu held.
func (s *Store) bump() Snapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Session: s.session, Version: s.version}
	if s.profile != nil {
		c := s.profile.Clone()
		snap.Profile = &c
	}
	return snap
}

func (s *Store) notify(snap Snapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if snap.Version <= s.lastDelivered {
		return
	}
	s.lastDelivered = snap.Version

	s.subsMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, id := range slices.Sorted(maps.Keys(s.subs)) {
		subs = append(subs, s.subs[id])
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// persist writes the snapshot's profile through to the cache. Failures are
// logged; the in-memory state stays authoritative.
func (s *Store) persist(snap Snapshot) {
	p := s.opts.persister
	if p == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if snap.Version <= s.lastPersisted {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.persistTimeout)
	defer cancel()

	if snap.Profile == nil {
		if err := p.Delete(ctx, s.key); err != nil {
			s.opts.logger.LogError(errors.NewIOError(errors.ErrCodePersistFailed,
				"failed to clear cached profile", err), "Profile cache write failed", "key", s.key)
			return
		}
		s.lastPersisted = snap.Version
		s.lastPersistedRaw = nil
		return
	}

	data, err := json.Marshal(snap.Profile)
	if err != nil {
		s.opts.logger.LogError(err, "Failed to encode profile", "key", s.key)
		return
	}
	if err := p.Save(ctx, s.key, data); err != nil {
		s.opts.logger.LogError(errors.NewIOError(errors.ErrCodePersistFailed,
			"failed to cache profile", err), "Profile cache write failed", "key", s.key)
		return
	}
	s.lastPersisted = snap.Version
	s.lastPersistedRaw = data
}
