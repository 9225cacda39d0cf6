package sqliterepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/lumiclass/teacherdir/core"
	"github.com/lumiclass/teacherdir/core/directory"
)

const lastRefreshedKey = "last_refreshed_at"

// timeLayout is RFC3339 with a fixed-width nanosecond fraction. Unlike
// RFC3339Nano it never strips trailing zeros, so lexicographic order on the
// stored text always matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// directoryRepository persists the last-known-good teacher directory and the
// append-only match audit log in the embedded SQLite database.
type directoryRepository struct {
	db *sqlx.DB
}

var _ directory.Repository = (*directoryRepository)(nil) // interface compliance check

func NewDirectoryRepository(db *sqlx.DB) directory.Repository {
	return &directoryRepository{db: db}
}

type teacherRow struct {
	Name        string `db:"name"`
	DisplayName string `db:"display_name"`
}

// Timestamps are stored as fixed-width UTC text (timeLayout): lexicographic
// order matches chronological order and the round trip is driver-independent.
type matchRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	TeacherName sql.NullString `db:"teacher_name"`
	Confidence  float64        `db:"confidence"`
	CreatedAt   string         `db:"created_at"`
}

func (repo *directoryRepository) LoadLatest(ctx context.Context) (directory.Snapshot, error) {
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT name, display_name FROM teachers ORDER BY name`); err != nil {
		return directory.Snapshot{}, errors.Wrap(err, "querying teachers")
	}
	if len(rows) == 0 {
		return directory.Snapshot{}, directory.ErrNoDirectory
	}

	teachers := make([]directory.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, directory.Teacher{Name: row.Name, DisplayName: row.DisplayName})
	}

	snap := directory.Snapshot{Teachers: teachers, FetchedAt: repo.loadRefreshedAt(ctx)}
	return snap, nil
}

// loadRefreshedAt reads when the stored directory was obtained. A missing or
// unparsable value yields the zero time, which callers treat as "long ago".
func (repo *directoryRepository) loadRefreshedAt(ctx context.Context) time.Time {
	var value string
	err := repo.db.GetContext(ctx, &value, `SELECT value FROM directory_meta WHERE key = ?`, lastRefreshedKey)
	if err != nil {
		return time.Time{}
	}
	ts, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// ReplaceAll supersedes the stored directory with snap as a unit: the prior
// record set is cleared and the new one written inside one transaction, so a
// reader never observes a partially replaced directory.
func (repo *directoryRepository) ReplaceAll(ctx context.Context, snap directory.Snapshot) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM teachers`); err != nil {
		return errors.Wrap(err, "clearing teachers")
	}

	now := time.Now().UTC().Format(timeLayout)
	for _, t := range snap.Teachers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO teachers (name, display_name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			t.Name, t.DisplayName, now, now,
		)
		if err != nil {
			return errors.Wrapf(err, "inserting teacher %q", t.Name)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO directory_meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		lastRefreshedKey, snap.FetchedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return errors.Wrap(err, "recording refresh time")
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing directory replacement")
	}
	return nil
}

func (repo *directoryRepository) AppendMatchDecision(ctx context.Context, dec directory.MatchDecision) error {
	teacherName := sql.NullString{String: dec.TeacherName, Valid: dec.Matched}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO teacher_matches (id, user_id, teacher_name, confidence, created_at) VALUES (?, ?, ?, ?, ?)`,
		dec.ID, dec.UserID, teacherName, dec.Confidence, dec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return errors.Wrap(err, "inserting match decision")
	}
	return nil
}

func (repo *directoryRepository) LoadMatchHistory(ctx context.Context, userID string, limit int) ([]directory.MatchDecision, error) {
	var rows []matchRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, teacher_name, confidence, created_at
		 FROM teacher_matches
		 WHERE user_id = ?
		 ORDER BY created_at DESC, seq DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying match history")
	}

	decs := make([]directory.MatchDecision, 0, len(rows))
	for _, row := range rows {
		createdAt, err := time.Parse(timeLayout, row.CreatedAt)
		if err != nil {
			// the audit log is append-only; an unparsable timestamp means the
			// store itself is corrupt
			return nil, core.NewShutdownError(fmt.Sprintf("corrupt match decision timestamp %q", row.CreatedAt))
		}
		decs = append(decs, directory.MatchDecision{
			ID:          row.ID,
			UserID:      row.UserID,
			TeacherName: row.TeacherName.String,
			Matched:     row.TeacherName.Valid,
			Confidence:  row.Confidence,
			CreatedAt:   createdAt,
		})
	}
	return decs, nil
}
