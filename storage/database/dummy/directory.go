package dummydb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/lumiclass/teacherdir/core/directory"
)

// DirectoryRepository is the in-memory directory.Repository used in tests.
type DirectoryRepository struct {
	db *directoryTable

	// FailAppends makes AppendMatchDecision fail; Appended receives every
	// attempted decision so tests can wait on detached writes. HistoryErr,
	// when set, is returned from LoadMatchHistory.
	FailAppends bool
	Appended    chan directory.MatchDecision
	HistoryErr  error
}

var _ directory.Repository = (*DirectoryRepository)(nil) // interface compliance check

func NewDirectoryRepository(db *DB) *DirectoryRepository {
	return &DirectoryRepository{db: db.directory}
}

func (repo *DirectoryRepository) LoadLatest(context.Context) (directory.Snapshot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.snap == nil {
		return directory.Snapshot{}, directory.ErrNoDirectory
	}
	return *repo.db.snap, nil
}

func (repo *DirectoryRepository) ReplaceAll(_ context.Context, snap directory.Snapshot) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.snap = &snap
	return nil
}

func (repo *DirectoryRepository) AppendMatchDecision(_ context.Context, dec directory.MatchDecision) error {
	defer func() {
		if repo.Appended != nil {
			repo.Appended <- dec
		}
	}()

	if repo.FailAppends {
		return errors.New("append failed")
	}

	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.decisions = append(repo.db.decisions, dec)
	return nil
}

func (repo *DirectoryRepository) LoadMatchHistory(_ context.Context, userID string, limit int) ([]directory.MatchDecision, error) {
	if repo.HistoryErr != nil {
		return nil, repo.HistoryErr
	}

	repo.db.RLock()
	defer repo.db.RUnlock()

	var decs []directory.MatchDecision
	// walk backwards so that, among equal timestamps, later insertions come first
	for i := len(repo.db.decisions) - 1; i >= 0; i-- {
		if dec := repo.db.decisions[i]; dec.UserID == userID {
			decs = append(decs, dec)
		}
	}
	// newest first
	sort.SliceStable(decs, func(i, j int) bool { return decs[i].CreatedAt.After(decs[j].CreatedAt) })
	if len(decs) > limit {
		decs = decs[:limit]
	}
	return decs, nil
}
