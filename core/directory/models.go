package directory

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrUpstreamUnavailable is returned by UpstreamClient implementations on
	// network errors, timeouts and malformed responses.
	ErrUpstreamUnavailable = errors.New("upstream directory unavailable")

	// ErrNoDirectory is returned when neither the upstream nor the store can
	// provide a directory.
	ErrNoDirectory = errors.New("no teacher directory available")
)

type (
	// Teacher is a single directory record. Name is the canonical unique key;
	// DisplayName is presentation-only and may be empty.
	Teacher struct {
		Name        string `json:"name" db:"name"`
		DisplayName string `json:"display_name" db:"display_name"`
	}

	// Snapshot is the full directory as obtained from one source at one time.
	Snapshot struct {
		Teachers  []Teacher
		FetchedAt time.Time
	}

	// MatchDecision is an append-only audit record of one name resolution.
	// TeacherName is empty when the query did not resolve to any teacher.
	MatchDecision struct {
		ID          string
		UserID      string
		TeacherName string
		Matched     bool
		Confidence  float64
		CreatedAt   time.Time
	}

	// Repository is the durable store holding the last-known-good directory
	// and the match audit log.
	Repository interface {
		// LoadLatest returns the most recently persisted snapshot,
		// or ErrNoDirectory when the store is empty.
		LoadLatest(ctx context.Context) (Snapshot, error)
		// ReplaceAll atomically supersedes the stored directory with snap.
		// On failure the prior contents remain intact.
		ReplaceAll(ctx context.Context, snap Snapshot) error
		AppendMatchDecision(ctx context.Context, dec MatchDecision) error
		// LoadMatchHistory returns at most limit decisions for userID,
		// most recent first.
		LoadMatchHistory(ctx context.Context, userID string, limit int) ([]MatchDecision, error)
	}

	// UpstreamClient fetches the authoritative directory from the remote
	// service. A single attempt per call; no internal retry.
	UpstreamClient interface {
		FetchDirectory(ctx context.Context) (Snapshot, error)
	}
)

// Display returns the name to show users, falling back to the canonical name.
func (t Teacher) Display() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Name
}
