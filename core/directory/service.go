package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lumiclass/teacherdir/core"
)

// Source tags where a resolved directory came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceUpstream Source = "upstream"
	SourceStore    Source = "store"
)

// historyLimit bounds match-history queries.
const historyLimit = 10

// auditWriteTimeout bounds the detached MatchDecision write.
const auditWriteTimeout = 5 * time.Second

var errCacheMiss = errors.New("cache miss or stale")

type (
	// Resolution is a directory snapshot tagged with the source that served it.
	Resolution struct {
		Snapshot Snapshot
		Source   Source
	}

	// Match is a successful name resolution.
	Match struct {
		Teacher    Teacher
		Confidence float64
	}

	// Service orchestrates the cache, the upstream client and the store.
	// It exclusively owns cache mutation.
	Service struct {
		cache     *Cache
		upstream  UpstreamClient
		repo      Repository
		logger    core.Logger
		threshold float64
		now       func() time.Time
		audits    sync.WaitGroup
	}
)

// Cached reports whether the resolution was served without a fresh upstream
// fetch in the handling request.
func (r Resolution) Cached() bool {
	return r.Source != SourceUpstream
}

// Degraded reports whether the resolution fell back to the durable store
// because the upstream was unavailable.
func (r Resolution) Degraded() bool {
	return r.Source == SourceStore
}

func NewService(cache *Cache, upstream UpstreamClient, repo Repository, logger core.Logger, threshold float64) *Service {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Service{
		cache:     cache,
		upstream:  upstream,
		repo:      repo,
		logger:    logger,
		threshold: threshold,
		now:       time.Now,
	}
}

// Teachers resolves the directory: fresh cache first, then upstream
// (refilling cache and store), then the store's last-known-good snapshot.
func (s *Service) Teachers(ctx context.Context) (Resolution, error) {
	return s.resolve(ctx, false)
}

// Refresh clears the cache unconditionally and resolves bypassing it.
func (s *Service) Refresh(ctx context.Context) (Resolution, error) {
	s.cache.Invalidate()
	return s.resolve(ctx, true)
}

// resolve walks the ordered resolution chain. Each step either yields a
// snapshot or reports why it cannot, in which case the next step runs.
func (s *Service) resolve(ctx context.Context, skipCache bool) (Resolution, error) {
	type step struct {
		source Source
		run    func(context.Context) (Snapshot, error)
	}
	chain := []step{
		{SourceCache, s.fromCache},
		{SourceUpstream, s.fromUpstream},
		{SourceStore, s.fromStore},
	}
	if skipCache {
		chain = chain[1:]
	}

	for _, st := range chain {
		snap, err := st.run(ctx)
		if err != nil {
			if errors.Cause(err) != errCacheMiss {
				s.logger.Error("directory resolution step failed", err, "source", string(st.source))
			}
			continue
		}
		if st.source == SourceStore {
			s.logger.Warn("serving last-known-good directory from store", "teachers", len(snap.Teachers))
		}
		return Resolution{Snapshot: snap, Source: st.source}, nil
	}
	return Resolution{}, errors.Wrap(ErrNoDirectory, "resolving directory")
}

func (s *Service) fromCache(context.Context) (Snapshot, error) {
	if !s.cache.Fresh(s.now()) {
		return Snapshot{}, errCacheMiss
	}
	snap, ok := s.cache.Get()
	if !ok {
		return Snapshot{}, errCacheMiss
	}
	return snap, nil
}

func (s *Service) fromUpstream(ctx context.Context) (Snapshot, error) {
	snap, err := s.upstream.FetchDirectory(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "fetching upstream directory")
	}

	s.cache.Put(snap)
	// Store write failure is not fatal here: the store keeps its prior
	// contents as the safe fallback and the request is served from the
	// fresh snapshot regardless.
	if err := s.repo.ReplaceAll(ctx, snap); err != nil {
		s.logger.Error("persisting refreshed directory", err)
	}
	return snap, nil
}

func (s *Service) fromStore(ctx context.Context) (Snapshot, error) {
	snap, err := s.repo.LoadLatest(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "loading directory from store")
	}
	return snap, nil
}

// MatchTeacher resolves the directory, finds the best candidate for the
// free-text display name and records the decision for audit. The audit write
// is detached from the request path; its failure only feeds the logger.
func (s *Service) MatchTeacher(ctx context.Context, userID, displayName string) (*Match, error) {
	res, err := s.resolve(ctx, false)
	if err != nil {
		return nil, err
	}

	cand, score, ok := FindBestMatch(displayName, res.Snapshot.Teachers, s.threshold)

	dec := MatchDecision{
		ID:         uuid.NewString(),
		UserID:     userID,
		Matched:    ok,
		Confidence: score,
		CreatedAt:  s.now().UTC(),
	}
	if ok {
		dec.TeacherName = cand.Name
	}
	s.recordDecision(dec, displayName)

	if !ok {
		return nil, nil
	}
	return &Match{Teacher: cand, Confidence: score}, nil
}

// MatchHistory returns the user's most recent match decisions, newest first.
func (s *Service) MatchHistory(ctx context.Context, userID string) ([]MatchDecision, error) {
	decs, err := s.repo.LoadMatchHistory(ctx, userID, historyLimit)
	if err != nil {
		return nil, errors.Wrap(err, "loading match history")
	}
	return decs, nil
}

// CacheAge reports how long ago the cached snapshot was obtained.
func (s *Service) CacheAge() (time.Duration, bool) {
	return s.cache.Age(s.now())
}

// recordDecision persists the decision on a detached goroutine. Audit logging
// is best-effort: the match response never waits on it and never sees its
// errors.
func (s *Service) recordDecision(dec MatchDecision, query string) {
	s.audits.Add(1)
	go func() {
		defer s.audits.Done()
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()
		if err := s.repo.AppendMatchDecision(ctx, dec); err != nil {
			s.logger.Error("recording match decision", err, "user", dec.UserID, "query", query)
		}
	}()
}

// Wait blocks until all in-flight audit writes have finished. Shutdown calls
// it so decisions accepted before the stop signal still reach the store.
func (s *Service) Wait() {
	s.audits.Wait()
}
